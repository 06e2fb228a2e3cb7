package utils

import (
	"github.com/google/uuid"
)

// NewID returns a random identifier for users, reminders, local notes and
// request tracing.
func NewID() string {
	return uuid.New().String()
}
