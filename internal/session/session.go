// Package session owns the credential token and the identity derived from it.
//
// A Session is an immutable value. The Manager is the only writer: every
// Login or Logout replaces the current value and writes (or clears) the
// persisted token. Malformed or expired tokens never surface as errors; they
// resolve to the logged-out state.
package session

import (
	"context"
	"time"
)

// TokenKey is the store key that holds the persisted credential.
const TokenKey = "token"

type Identity struct {
	ID    string
	Email string
	Role  string
}

type Session struct {
	Token     string
	Identity  *Identity
	ExpiresAt time.Time
}

// LoggedOut is the zero Session.
var LoggedOut = Session{}

func (s Session) LoggedIn() bool {
	return s.Token != "" && s.Identity != nil
}

// Expired reports whether the session carried an expiry that is now past.
// A logged-out session is always expired.
func (s Session) Expired(now time.Time) bool {
	if !s.LoggedIn() {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return now.After(s.ExpiresAt)
}

func (s Session) Email() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Email
}

type ctxKey struct{}

func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
