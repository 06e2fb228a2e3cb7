package repository

import "errors"

var (
	ErrNoteNotFound     = errors.New("note not found")
	ErrImageNotFound    = errors.New("image not found")
	ErrInvalidLocator   = errors.New("invalid image locator")
	ErrInvalidNoteID    = errors.New("invalid note id")
	ErrImageTooLarge    = errors.New("image too large")
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrReminderNotFound = errors.New("reminder not found")
)
