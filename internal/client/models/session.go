// Package models defines client-side data models used by the famwealth client.
package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal identifies the authenticated user.
type Principal struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Valid reports whether p carries both an id and an email.
func (p Principal) Valid() bool {
	return p.ID != 0 && p.Email != ""
}

// Session is the tuple describing who is logged in. Either all three fields
// are present or none is; anything in between is corrupt state.
type Session struct {
	AccessToken  string
	RefreshToken string
	Principal    *Principal
}

// IsAuthenticated is true iff the access credential and the principal are present.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.AccessToken != "" && s.Principal != nil
}

// Complete reports whether every field is present and the principal is valid.
func (s *Session) Complete() bool {
	return s.IsAuthenticated() && s.RefreshToken != "" && s.Principal.Valid()
}

// Clone returns a deep copy, so snapshots handed to observers cannot alias
// the manager's state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Principal != nil {
		p := *s.Principal
		c.Principal = &p
	}
	return &c
}

// AccessExpiry decodes the exp claim of a JWT access credential. The
// signature is not verified: the client never holds the signing key and
// uses the value for display only. ok is false for opaque tokens.
func (s *Session) AccessExpiry() (exp time.Time, ok bool) {
	if s == nil || s.AccessToken == "" {
		return time.Time{}, false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
