package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"notebook/dto"
	"notebook/model"
	"notebook/repository"
	"notebook/utils"
)

const (
	msgEmptyInput     = "Please enter some text!"
	msgSaveFailed     = "Failed to save notes!"
	msgUpdateFailed   = "Failed to update note!"
	msgLoadFailed     = "Failed to load notes!"
	msgReminderDenied = "Notifications are turned off!"
	msgReminderFailed = "Failed to schedule reminder!"
	reminderTitle     = "Notebook reminder"
)

type ListState int

const (
	StateIdle ListState = iota
	StateComposing
	StateSubmitting
)

func (s ListState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComposing:
		return "composing"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// NoteListController drives the notes overview: composing new notes,
// mirroring the live subscription and applying edits handed back from the
// detail screen.
type NoteListController struct {
	notes     NoteStore
	reminders ReminderScheduler
	alerts    Alerter
	logger    *slog.Logger
	scope     model.Scope

	mu             sync.Mutex
	state          ListState
	input          string
	snapshot       []model.Note
	pending        *model.PendingEdit
	reminderID     string
	reminderDenied bool
}

func NewNoteListController(session model.Session, notes NoteStore, reminders ReminderScheduler, alerts Alerter, logger *slog.Logger) *NoteListController {
	return &NoteListController{
		notes:     notes,
		reminders: reminders,
		alerts:    alerts,
		logger:    logger.With("controller", "list", "scope", session.Scope().Collection()),
		scope:     session.Scope(),
	}
}

func (c *NoteListController) State() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *NoteListController) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput records what the user is typing. It does not change a
// submission already in flight.
func (c *NoteListController) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
	if c.state == StateSubmitting {
		return
	}
	if text == "" {
		c.state = StateIdle
	} else {
		c.state = StateComposing
	}
}

// AddNote stores the current input as a new note. Blank input is rejected
// without touching the store. On failure the input is kept for a retry.
func (c *NoteListController) AddNote(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return "", ErrSubmitInProgress
	}
	text := c.input
	if strings.TrimSpace(text) == "" {
		c.state = StateComposing
		c.mu.Unlock()
		c.alerts.Alert(msgEmptyInput)
		return "", &ValidationError{Message: msgEmptyInput}
	}
	c.state = StateSubmitting
	c.mu.Unlock()

	id, err := c.notes.Create(ctx, c.scope, text)

	c.mu.Lock()
	if err != nil {
		c.state = StateComposing
		c.mu.Unlock()
		c.logger.Error("failed to create note", "error", err)
		c.alerts.Alert(msgSaveFailed)
		return "", &RemoteError{Op: "create note", Err: err}
	}
	if c.input == text {
		c.input = ""
	}
	if c.input == "" {
		c.state = StateIdle
	} else {
		c.state = StateComposing
	}
	c.mu.Unlock()

	utils.TrackNoteOperation("create")
	c.logger.Info("note created", "note_id", id)
	return id, nil
}

// Watch subscribes to the store and keeps Notes current until ctx ends.
// onChange, when non-nil, runs after every new snapshot.
func (c *NoteListController) Watch(ctx context.Context, onChange func([]model.Note)) error {
	ch, err := c.notes.Subscribe(ctx, c.scope)
	if err != nil {
		c.logger.Error("failed to subscribe to notes", "error", err)
		c.alerts.Alert(msgLoadFailed)
		return &RemoteError{Op: "subscribe", Err: err}
	}

	go func() {
		for notes := range ch {
			c.mu.Lock()
			c.snapshot = notes
			c.mu.Unlock()
			if onChange != nil {
				onChange(slices.Clone(notes))
			}
		}
		if ctx.Err() == nil {
			c.logger.Warn("note subscription ended")
		}
	}()
	return nil
}

func (c *NoteListController) Notes() []model.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.snapshot)
}

func (c *NoteListController) Items() []dto.NoteListItem {
	return dto.ToNoteListItems(c.Notes())
}

// Select returns the full note to open on the detail screen.
func (c *NoteListController) Select(noteID string) (model.Note, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.snapshot, func(n model.Note) bool { return n.ID == noteID })
	if i < 0 {
		return model.Note{}, ErrUnknownNote
	}
	return c.snapshot[i], nil
}

// Deliver hands over an edit from the detail screen. It is applied on the
// next Focus.
func (c *NoteListController) Deliver(edit model.PendingEdit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return ErrEditPending
	}
	c.pending = &edit
	return nil
}

// HasPendingEdit reports whether a delivered edit is waiting for Focus.
func (c *NoteListController) HasPendingEdit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Focus applies the pending edit, if any. The edit is consumed before the
// write, so a second Focus never applies it again, even when the write
// failed.
func (c *NoteListController) Focus(ctx context.Context) error {
	c.mu.Lock()
	edit := c.pending
	c.pending = nil
	c.mu.Unlock()

	if edit == nil {
		return nil
	}

	if err := c.notes.Update(ctx, c.scope, edit.NoteID, edit.Text); err != nil {
		c.logger.Error("failed to apply edit", "note_id", edit.NoteID, "error", err)
		c.alerts.Alert(msgUpdateFailed)
		return &RemoteError{Op: "update note", Err: err}
	}
	utils.TrackNoteOperation("update")
	c.logger.Info("note updated", "note_id", edit.NoteID)
	return nil
}

// ScheduleReminder arms a reminder at when. A reminder armed earlier by
// this controller and not yet fired is cancelled first.
func (c *NoteListController) ScheduleReminder(ctx context.Context, when time.Time, body string) (model.Reminder, error) {
	c.mu.Lock()
	denied := c.reminderDenied
	previous := c.reminderID
	c.mu.Unlock()

	if denied {
		return model.Reminder{}, &PermissionDeniedError{Feature: "notifications"}
	}

	perm, err := c.reminders.RequestPermission(ctx)
	if err != nil {
		c.alerts.Alert(msgReminderFailed)
		return model.Reminder{}, &RemoteError{Op: "request notification permission", Err: err}
	}
	if perm != model.PermissionGranted {
		c.mu.Lock()
		c.reminderDenied = true
		c.mu.Unlock()
		c.logger.Info("notification permission denied")
		c.alerts.Alert(msgReminderDenied)
		return model.Reminder{}, &PermissionDeniedError{Feature: "notifications"}
	}

	if previous != "" {
		err := c.reminders.Cancel(ctx, previous)
		if err != nil && !errors.Is(err, repository.ErrReminderNotFound) {
			c.logger.Warn("failed to cancel previous reminder", "reminder_id", previous, "error", err)
		}
	}

	reminder, err := c.reminders.Schedule(ctx, c.scope, when, reminderTitle, body)
	if err != nil {
		c.logger.Error("failed to schedule reminder", "error", err)
		c.alerts.Alert(msgReminderFailed)
		return model.Reminder{}, &RemoteError{Op: "schedule reminder", Err: err}
	}

	c.mu.Lock()
	c.reminderID = reminder.ID
	c.mu.Unlock()
	return reminder, nil
}
