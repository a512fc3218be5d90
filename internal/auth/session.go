package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/stagehand-music/stagehand/internal/domain"
)

// SessionCookieName is the name of the admin session cookie.
const SessionCookieName = "stagehand_session"

// Session is the admin identity stored in the encrypted session cookie.
type Session struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal returns the identity the admin API sees for this session.
func (s *Session) Principal() *domain.Principal {
	name := s.Name
	if name == "" {
		name = s.Email
	}
	return &domain.Principal{Kind: "oidc", ID: s.Subject, Name: name, Email: s.Email}
}

// SessionManager issues and reads encrypted session cookies.
type SessionManager struct {
	sealer   *sealer
	duration time.Duration
	secure   bool
	now      func() time.Time
}

// NewSessionManager creates a session manager. The key must be 32 bytes.
func NewSessionManager(key []byte, duration time.Duration, secure bool) (*SessionManager, error) {
	s, err := newSealer(key)
	if err != nil {
		return nil, err
	}
	return &SessionManager{sealer: s, duration: duration, secure: secure, now: time.Now}, nil
}

// Create stamps the session's lifetime and writes it as a cookie.
func (sm *SessionManager) Create(w http.ResponseWriter, session *Session) error {
	session.CreatedAt = sm.now()
	session.ExpiresAt = session.CreatedAt.Add(sm.duration)

	value, err := sm.sealer.seal(session)
	if err != nil {
		return err
	}
	setCookie(w, SessionCookieName, value, int(sm.duration.Seconds()), sm.secure)
	return nil
}

// Get reads and validates the session cookie.
func (sm *SessionManager) Get(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, fmt.Errorf("%w: session cookie not found", ErrInvalidCookie)
	}

	var session Session
	if err := sm.sealer.open(cookie.Value, &session); err != nil {
		return nil, err
	}
	if sm.now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("%w: session expired", ErrInvalidCookie)
	}
	return &session, nil
}

// Clear expires the session cookie.
func (sm *SessionManager) Clear(w http.ResponseWriter) {
	setCookie(w, SessionCookieName, "", -1, sm.secure)
}
