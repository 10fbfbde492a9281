package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession indicates a stored or returned payload is not a usable session.
var ErrInvalidSession = errors.New("invalid session payload")

// Session is the client-held authentication state: the user identity, role
// and bearer token returned by register or login.
type Session struct {
	User
	Token string `json:"token"`

	// raw is the full response payload as returned by the backend. It is what
	// gets persisted so fields this client does not model survive a restore.
	raw json.RawMessage
}

// ParseSession decodes a register/login payload. The payload must be a JSON
// object carrying a non-empty token.
func ParseSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if s.Token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrInvalidSession)
	}
	s.raw = append(json.RawMessage(nil), data...)
	return &s, nil
}

// Raw returns the payload the session was parsed from.
func (s *Session) Raw() json.RawMessage {
	if s.raw == nil {
		data, _ := json.Marshal(s)
		return data
	}
	return s.raw
}

// BearerToken returns the Authorization header value for this session.
func (s *Session) BearerToken() string {
	return "Bearer " + s.Token
}

// ExpiresAt returns the expiry recorded in the token's exp claim. The token is
// not verified; the backend remains the authority. Opaque tokens and tokens
// without an exp claim return the zero time.
func (s *Session) ExpiresAt() time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// IsExpired reports whether the token carries an expiry that has passed.
func (s *Session) IsExpired() bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && time.Now().After(exp)
}
