package session

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Client-side validation runs before any network call; a failure here never
// reaches the store state or the wire.

const MinPasswordLen = 6

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9()\-\s]{7,20}$`)
)

func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.Errorf("%s is required", field)
	}
	return nil
}

func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("email is required")
	}
	if !emailRe.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) < MinPasswordLen {
		return errors.New("password too short")
	}
	return nil
}

// ValidatePhone accepts an empty phone; format is checked only when present.
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if !phoneRe.MatchString(phone) {
		return errors.New("invalid phone format")
	}
	return nil
}
