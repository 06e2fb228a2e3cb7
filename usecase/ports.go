package usecase

import (
	"context"
	"time"

	"notebook/model"
)

// NoteStore is implemented by repository.NotesRepo and local.NotesStore.
type NoteStore interface {
	Subscribe(ctx context.Context, scope model.Scope) (<-chan []model.Note, error)
	Create(ctx context.Context, scope model.Scope, text string) (string, error)
	Update(ctx context.Context, scope model.Scope, noteID string, text string) error
	Delete(ctx context.Context, scope model.Scope, noteID string) error
}

// ImageStore is implemented by repository.ImagesRepo and local.ImagesStore.
type ImageStore interface {
	Upload(ctx context.Context, noteID string, data []byte) (model.Locator, error)
	List(ctx context.Context, noteID string) ([]model.Locator, error)
	Resolve(ctx context.Context, loc model.Locator) (string, error)
	Delete(ctx context.Context, loc model.Locator) error
}

type ReminderScheduler interface {
	RequestPermission(ctx context.Context) (model.Permission, error)
	Schedule(ctx context.Context, scope model.Scope, when time.Time, title, body string) (model.Reminder, error)
	Cancel(ctx context.Context, id string) error
}

type Camera interface {
	RequestPermission(ctx context.Context) (model.Permission, error)
	Capture(ctx context.Context) ([]byte, error)
}

// Library loads a user-picked image.
type Library interface {
	Open(ctx context.Context, ref string) ([]byte, error)
}

// Alerter shows a dismissable notice.
type Alerter interface {
	Alert(message string)
}

type AlertFunc func(message string)

func (f AlertFunc) Alert(message string) { f(message) }
