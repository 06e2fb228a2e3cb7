package model

import (
	"time"
)

// Note is a single text note. ID is assigned by the store on creation and
// never changes afterwards.
type Note struct {
	ID        string    `bson:"-" json:"id" yaml:"id"`
	UserID    string    `bson:"user_id,omitempty" json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Text      string    `bson:"text" json:"text" yaml:"text"`
	CreatedAt time.Time `bson:"created_at" json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at" yaml:"updated_at"`
}

// PendingEdit is the edit handed from the detail screen back to the list
// screen. The list controller owns its consumption.
type PendingEdit struct {
	NoteID string
	Text   string
}
