package repository

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"notebook/model"
)

// Stamper hands out strictly increasing nanosecond stamps, so two uploads
// issued within the same clock tick still get distinct locators.
type Stamper struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewStamper(now func() time.Time) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{now: now}
}

func (s *Stamper) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.now().UnixNano()
	if ns <= s.last {
		ns = s.last + 1
	}
	s.last = ns
	return strconv.FormatInt(ns, 10)
}

// NewLocator builds the locator for a fresh upload under noteID.
func NewLocator(noteID string, s *Stamper) (model.Locator, error) {
	if err := ValidateNoteID(noteID); err != nil {
		return "", err
	}
	return model.Locator(noteID + "/" + s.Next()), nil
}

// ValidateNoteID rejects identifiers that could escape their image namespace.
func ValidateNoteID(noteID string) error {
	if noteID == "" || strings.ContainsAny(noteID, `/\`) || noteID == "." || noteID == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidNoteID, noteID)
	}
	return nil
}

// ValidateLocator checks that loc is exactly "<noteID>/<name>".
func ValidateLocator(loc model.Locator) error {
	noteID, name, ok := strings.Cut(string(loc), "/")
	if !ok || ValidateNoteID(noteID) != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLocator, loc)
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidLocator, loc)
	}
	return nil
}
