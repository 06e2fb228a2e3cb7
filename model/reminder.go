package model

import "time"

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Reminder is a one-shot local alert. It is not linked to any note.
type Reminder struct {
	ID     string    `json:"id"`
	UserID string    `json:"user_id,omitempty"`
	When   time.Time `json:"when"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
}
