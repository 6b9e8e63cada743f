package session

import (
	"context"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/golang-jwt/jwt/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/talkincode/fabrica/config"
	"github.com/talkincode/fabrica/internal/apiclient"
	"github.com/talkincode/fabrica/internal/domain"
	"github.com/talkincode/fabrica/internal/shape"
	"go.uber.org/zap"
)

// TopicSnapshot is the bus topic session snapshots are published on.
const TopicSnapshot = "session.snapshot"

// Snapshot is the immutable session view handed to subscribers.
type Snapshot struct {
	Authenticated bool
	Profile       *domain.Profile
	Loading       bool
	Err           string
}

// Result is returned by mutating session operations.
type Result struct {
	Success bool
	Error   string
	Data    map[string]interface{}
}

// Store owns the authentication lifecycle and is the single source of truth
// for whether the session is authenticated.
type Store struct {
	api   *apiclient.Client
	vault *Vault
	cfg   config.SessionConfig
	bus   EventBus.Bus

	mu      sync.RWMutex
	profile *domain.Profile
	loading bool
	lastErr string
}

func NewStore(api *apiclient.Client, vault *Vault, cfg config.SessionConfig, bus EventBus.Bus) *Store {
	s := &Store{api: api, vault: vault, cfg: cfg, bus: bus}
	// a 401 on any request already purged the token; drop the profile too so
	// the authenticated invariant holds immediately
	api.OnUnauthorized(s.onRevoked)
	return s
}

func (s *Store) onRevoked() {
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()
	s.publish()
}

// RegisterForm carries the registration fields.
type RegisterForm struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

// Login authenticates against /auth/local. Validation failures are returned
// without any network round-trip.
func (s *Store) Login(ctx context.Context, email, password string, remember bool) Result {
	if err := ValidateEmail(email); err != nil {
		return Result{Error: err.Error()}
	}
	if err := ValidatePassword(password); err != nil {
		return Result{Error: err.Error()}
	}

	s.setLoading(true)
	payload, err := s.api.Post(ctx, "/auth/local", map[string]string{
		"identifier": email,
		"password":   password,
	}, false)
	if err != nil {
		return s.finishAuthFailure(err)
	}
	return s.finishAuthSuccess(payload, remember)
}

// Register creates an account; success implies login.
func (s *Store) Register(ctx context.Context, form RegisterForm) Result {
	if err := ValidateRequired("first name", form.FirstName); err != nil {
		return Result{Error: err.Error()}
	}
	if err := ValidateEmail(form.Email); err != nil {
		return Result{Error: err.Error()}
	}
	if err := ValidatePassword(form.Password); err != nil {
		return Result{Error: err.Error()}
	}
	if err := ValidatePhone(form.Phone); err != nil {
		return Result{Error: err.Error()}
	}

	s.setLoading(true)
	payload, err := s.api.Post(ctx, "/auth/local/register", map[string]string{
		"firstName": form.FirstName,
		"lastName":  form.LastName,
		"email":     form.Email,
		"phone":     form.Phone,
		"password":  form.Password,
	}, false)
	if err != nil {
		return s.finishAuthFailure(err)
	}
	return s.finishAuthSuccess(payload, false)
}

func (s *Store) finishAuthFailure(err error) Result {
	msg := err.Error()
	if apiErr, ok := apiclient.AsAPIError(err); ok {
		msg = apiErr.Message
	}
	s.mu.Lock()
	s.profile = nil
	s.loading = false
	s.lastErr = msg
	s.mu.Unlock()
	s.publish()
	return Result{Error: msg}
}

func (s *Store) finishAuthSuccess(payload interface{}, remember bool) Result {
	record, _ := payload.(map[string]interface{})
	token := cast.ToString(record["jwt"])
	if token == "" {
		token = cast.ToString(record["token"])
	}
	profile := decodeProfile(record["user"])
	if token == "" || profile == nil {
		// half-shaped response: refuse to enter an inconsistent state
		_ = s.vault.Clear()
		return s.finishAuthFailure(&apiclient.APIError{Status: 500, Message: "invalid server response"})
	}

	if err := s.vault.Put(token, s.tokenExpiry(token, remember)); err != nil {
		zap.S().Errorf("persist token failed: %s", err)
		return s.finishAuthFailure(err)
	}

	s.mu.Lock()
	s.profile = profile
	s.loading = false
	s.lastErr = ""
	s.mu.Unlock()
	s.publish()
	return Result{Success: true, Data: record}
}

// tokenExpiry picks the vault TTL: 7 days by default, 30 with remember-me,
// capped by the JWT exp claim when the backend issues a shorter one.
func (s *Store) tokenExpiry(token string, remember bool) time.Time {
	days := s.cfg.TokenTTLDays
	if remember {
		days = s.cfg.RememberTTLDays
	}
	expires := time.Now().Add(time.Duration(days) * 24 * time.Hour)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return expires
	}
	if claims, ok := parsed.Claims.(jwt.MapClaims); ok {
		if raw, ok := claims["exp"]; ok {
			exp := time.Unix(cast.ToInt64(raw), 0)
			if exp.After(time.Now()) && exp.Before(expires) {
				expires = exp
			}
		}
	}
	return expires
}

// CheckAuth validates the persisted token at session bootstrap. Any failure
// clears all session state; this is the single point keeping Authenticated
// from going stale against a revoked token.
func (s *Store) CheckAuth(ctx context.Context) {
	if s.vault.Token() == "" {
		s.clearLocal("")
		return
	}

	payload, err := s.api.Get(ctx, "/users/me", nil, true)
	if err != nil {
		_ = s.vault.Clear()
		s.clearLocal("")
		return
	}

	profile := decodeProfile(payload)
	if profile == nil {
		_ = s.vault.Clear()
		s.clearLocal("")
		return
	}

	s.mu.Lock()
	s.profile = profile
	s.lastErr = ""
	s.mu.Unlock()
	s.publish()
}

// UpdateProfile sends only the provided fields and, on success, patches
// exactly those fields into the in-memory profile. The response body is not
// merged, partial-update responses may omit untouched fields.
func (s *Store) UpdateProfile(ctx context.Context, fields map[string]interface{}) Result {
	if len(fields) == 0 {
		return Result{Error: "nothing to update"}
	}
	if email, ok := fields["email"]; ok {
		if err := ValidateEmail(cast.ToString(email)); err != nil {
			return Result{Error: err.Error()}
		}
	}
	if phone, ok := fields["phone"]; ok {
		if err := ValidatePhone(cast.ToString(phone)); err != nil {
			return Result{Error: err.Error()}
		}
	}

	payload, err := s.api.Put(ctx, "/users/me", fields, true)
	if err != nil {
		msg := err.Error()
		if apiErr, ok := apiclient.AsAPIError(err); ok {
			msg = apiErr.Message
		}
		s.mu.Lock()
		s.lastErr = msg
		s.mu.Unlock()
		s.publish()
		return Result{Error: msg}
	}

	s.mu.Lock()
	if s.profile != nil {
		for key, value := range fields {
			switch key {
			case "firstName":
				s.profile.FirstName = cast.ToString(value)
			case "lastName":
				s.profile.LastName = cast.ToString(value)
			case "email":
				s.profile.Email = cast.ToString(value)
			case "phone":
				s.profile.Phone = cast.ToString(value)
			case "avatar":
				s.profile.Avatar = cast.ToString(value)
			}
		}
	}
	s.lastErr = ""
	s.mu.Unlock()
	s.publish()

	data, _ := payload.(map[string]interface{})
	return Result{Success: true, Data: data}
}

// ChangePassword is a stateless pass-through; the local profile is untouched.
func (s *Store) ChangePassword(ctx context.Context, oldPassword, newPassword string) Result {
	if err := ValidatePassword(newPassword); err != nil {
		return Result{Error: err.Error()}
	}
	_, err := s.api.Post(ctx, "/auth/change-password", map[string]string{
		"currentPassword": oldPassword,
		"password":        newPassword,
	}, true)
	if err != nil {
		msg := err.Error()
		if apiErr, ok := apiclient.AsAPIError(err); ok {
			msg = apiErr.Message
		}
		return Result{Error: msg}
	}
	return Result{Success: true}
}

// Logout clears token and profile unconditionally. Never fails.
func (s *Store) Logout() {
	if err := s.vault.Clear(); err != nil {
		zap.S().Warnf("vault clear on logout failed: %s", err)
	}
	s.clearLocal("")
}

func (s *Store) clearLocal(errMsg string) {
	s.mu.Lock()
	s.profile = nil
	s.loading = false
	s.lastErr = errMsg
	s.mu.Unlock()
	s.publish()
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.publish()
}

// Snapshot derives Authenticated from both halves of the invariant: a
// persisted unexpired token and a populated profile.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var profile *domain.Profile
	if s.profile != nil {
		cp := *s.profile
		profile = &cp
	}
	return Snapshot{
		Authenticated: profile != nil && s.vault.Token() != "",
		Profile:       profile,
		Loading:       s.loading,
		Err:           s.lastErr,
	}
}

func (s *Store) publish() {
	if s.bus != nil {
		s.bus.Publish(TopicSnapshot, s.Snapshot())
	}
}

// Subscribe registers a snapshot consumer on the bus.
func (s *Store) Subscribe(fn func(Snapshot)) error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Subscribe(TopicSnapshot, fn)
}

// decodeProfile flattens a user payload into a Profile, tolerating both
// camelCase and snake_case keys and string/number ids.
func decodeProfile(v interface{}) *domain.Profile {
	record, ok := v.(map[string]interface{})
	if !ok || len(record) == 0 {
		return nil
	}

	normalized := make(map[string]interface{}, len(record))
	for key, value := range record {
		normalized[key] = value
	}
	aliases := map[string]string{
		"first_name": "firstName",
		"last_name":  "lastName",
	}
	for from, to := range aliases {
		if value, ok := normalized[from]; ok {
			if _, exists := normalized[to]; !exists {
				normalized[to] = value
			}
		}
	}

	// role may arrive as a populated relation object; keep the name only
	if role, ok := normalized["role"].(map[string]interface{}); ok {
		normalized["role"] = cast.ToString(role["name"])
	}
	// avatar may arrive as any of the media shapes; keep the URL only
	if _, ok := normalized["avatar"].(string); !ok && normalized["avatar"] != nil {
		if url := shape.ResolveImage(normalized["avatar"], ""); url != shape.PlaceholderImage {
			normalized["avatar"] = url
		} else {
			delete(normalized, "avatar")
		}
	}

	var profile domain.Profile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &profile,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil
	}
	if err := decoder.Decode(normalized); err != nil {
		zap.S().Debugf("profile decode failed: %s", err)
		return nil
	}
	if profile.ID == 0 && profile.Email == "" {
		return nil
	}
	return &profile
}
