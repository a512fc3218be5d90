package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"
)

const (
	// StateCookieName is the name of the login state cookie.
	StateCookieName = "stagehand_oidc_state"
	// StateCookieMaxAge is how long a login attempt may take, in seconds.
	StateCookieMaxAge = 5 * 60
)

// StateData holds the state and nonce for one login attempt.
type StateData struct {
	State     string    `json:"state"`
	Nonce     string    `json:"nonce"`
	ReturnTo  string    `json:"return_to,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StateStore keeps login state in an encrypted cookie for CSRF protection.
type StateStore struct {
	sealer *sealer
	secure bool
	now    func() time.Time
}

// NewStateStore creates a state store. The key must be 32 bytes.
func NewStateStore(key []byte, secure bool) (*StateStore, error) {
	s, err := newSealer(key)
	if err != nil {
		return nil, err
	}
	return &StateStore{sealer: s, secure: secure, now: time.Now}, nil
}

// Generate creates a fresh state/nonce pair and writes it as a cookie.
func (ss *StateStore) Generate(w http.ResponseWriter, returnTo string) (*StateData, error) {
	state, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	data := &StateData{
		State:     state,
		Nonce:     nonce,
		ReturnTo:  returnTo,
		ExpiresAt: ss.now().Add(StateCookieMaxAge * time.Second),
	}
	value, err := ss.sealer.seal(data)
	if err != nil {
		return nil, err
	}
	setCookie(w, StateCookieName, value, StateCookieMaxAge, ss.secure)
	return data, nil
}

// Validate checks the callback's state parameter against the cookie.
func (ss *StateStore) Validate(r *http.Request, state string) (*StateData, error) {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil {
		return nil, fmt.Errorf("%w: state cookie not found", ErrInvalidCookie)
	}

	var data StateData
	if err := ss.sealer.open(cookie.Value, &data); err != nil {
		return nil, err
	}
	if ss.now().After(data.ExpiresAt) {
		return nil, fmt.Errorf("%w: state expired", ErrInvalidCookie)
	}
	if subtle.ConstantTimeCompare([]byte(data.State), []byte(state)) != 1 {
		return nil, fmt.Errorf("%w: state mismatch", ErrInvalidCookie)
	}
	return &data, nil
}

// Clear expires the state cookie.
func (ss *StateStore) Clear(w http.ResponseWriter) {
	setCookie(w, StateCookieName, "", -1, ss.secure)
}
