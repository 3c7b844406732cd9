package domain

import (
	"time"
)

// User is the authenticated identity held by a session.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Session is the single client session. The zero value is the anonymous state.
// Token is opaque to this layer.
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the timer already fired
	// or was already stopped; calling it more than once is safe.
	Stop() bool
}

// Clock abstracts wall time and deferred callbacks so expiry can be simulated in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}
