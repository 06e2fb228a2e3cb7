package model

import "time"

// Session is returned by sign-in and sign-up and threaded into every
// controller that needs a note scope. The zero Session is the anonymous
// variant.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) Anonymous() bool {
	return s.UserID == ""
}

// Scope returns the note scope for the session.
func (s Session) Scope() Scope {
	return Scope{UserID: s.UserID}
}
