package inspection

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the backend bearer token. Expiry is a cross-cutting
// concern: any 401, or a token past its exp claim, marks the session
// expired and fires the registered callback exactly once per token.
// Task and upload trackers never see session state.
type Session struct {
	mu        sync.Mutex
	token     string
	role      string
	username  string
	onExpired func()
	fired     bool
}

func NewSession(onExpired func()) *Session {
	return &Session{onExpired: onExpired}
}

// Set installs a fresh token and re-arms the expiry callback.
func (s *Session) Set(token, role, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.role = role
	s.username = username
	s.fired = false
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Clear drops the session without firing the expiry callback (logout).
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.role = ""
	s.username = ""
	s.fired = true
}

// ExpiresSoon inspects the token's exp claim without verifying the
// signature (the backend holds the secret). Unparseable tokens report
// false; the backend's 401 remains authoritative.
func (s *Session) ExpiresSoon(within time.Duration) bool {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) < within
}

// expire clears the token and fires the callback once.
func (s *Session) expire() {
	s.mu.Lock()
	s.token = ""
	fire := !s.fired && s.onExpired != nil
	s.fired = true
	s.mu.Unlock()
	if fire {
		s.onExpired()
	}
}
