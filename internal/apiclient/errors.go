package apiclient

import (
	"net/http"

	"github.com/pkg/errors"
)

// APIError carries the backend failure message and the HTTP status it came
// with. Transport failures are wrapped plain errors, not APIError.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// default messages used when the backend supplies no usable error body
var statusMessages = map[int]string{
	http.StatusUnauthorized:        "invalid credentials",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not found",
	http.StatusInternalServerError: "server error",
}

func defaultStatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return "request error"
}

// AsAPIError unwraps err into *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func IsUnauthorized(err error) bool {
	if e, ok := AsAPIError(err); ok {
		return e.Status == http.StatusUnauthorized
	}
	return false
}

func IsNotFound(err error) bool {
	if e, ok := AsAPIError(err); ok {
		return e.Status == http.StatusNotFound
	}
	return false
}
