package model

import (
	"strings"
)

// MaxImageSize caps the bytes of one stored image.
const MaxImageSize = 20 << 20

// Locator addresses one stored image as "<noteID>/<stamp>".
type Locator string

// NoteID returns the owning note's identifier, or "" when the locator is
// malformed.
func (l Locator) NoteID() string {
	noteID, _, ok := strings.Cut(string(l), "/")
	if !ok {
		return ""
	}
	return noteID
}

// Name returns the part of the locator after the note namespace.
func (l Locator) Name() string {
	_, name, _ := strings.Cut(string(l), "/")
	return name
}

func (l Locator) String() string {
	return string(l)
}

// Image is an attached image as shown on the detail screen.
type Image struct {
	Locator Locator `json:"locator"`
	URL     string  `json:"url"`
}
