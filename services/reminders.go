package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"notebook/model"
	"notebook/utils"
)

var ErrNotificationsDisabled = errors.New("notifications are disabled")

// ReminderQueue stores pending reminders until they fall due.
type ReminderQueue interface {
	Add(ctx context.Context, reminder model.Reminder) error
	Remove(ctx context.Context, id string) error
	ClaimDue(ctx context.Context, now time.Time) ([]model.Reminder, error)
}

// Notifier shows a fired reminder to the user.
type Notifier interface {
	Notify(reminder model.Reminder)
}

type NotifierFunc func(reminder model.Reminder)

func (f NotifierFunc) Notify(reminder model.Reminder) { f(reminder) }

// ReminderScheduler registers one-shot reminders. Permission is a
// configuration switch; there is no OS prompt to retry.
type ReminderScheduler struct {
	queue   ReminderQueue
	enabled bool
	logger  *slog.Logger
	newID   func() string
}

func NewReminderScheduler(queue ReminderQueue, enabled bool, logger *slog.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		queue:   queue,
		enabled: enabled,
		logger:  logger.With("component", "reminders"),
		newID:   utils.NewID,
	}
}

func (s *ReminderScheduler) RequestPermission(ctx context.Context) (model.Permission, error) {
	if !s.enabled {
		return model.PermissionDenied, nil
	}
	return model.PermissionGranted, nil
}

func (s *ReminderScheduler) Schedule(ctx context.Context, scope model.Scope, when time.Time, title, body string) (model.Reminder, error) {
	if !s.enabled {
		return model.Reminder{}, ErrNotificationsDisabled
	}
	reminder := model.Reminder{
		ID:     s.newID(),
		UserID: scope.UserID,
		When:   when,
		Title:  title,
		Body:   body,
	}
	if err := s.queue.Add(ctx, reminder); err != nil {
		return model.Reminder{}, fmt.Errorf("failed to schedule reminder: %w", err)
	}
	s.logger.Info("reminder scheduled", "reminder_id", reminder.ID, "when", when)
	return reminder, nil
}

func (s *ReminderScheduler) Cancel(ctx context.Context, id string) error {
	if err := s.queue.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info("reminder cancelled", "reminder_id", id)
	return nil
}

// ReminderDispatcher polls the queue and hands every due reminder to the
// notifier exactly once.
type ReminderDispatcher struct {
	queue    ReminderQueue
	notifier Notifier
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewReminderDispatcher(queue ReminderQueue, notifier Notifier, interval time.Duration, logger *slog.Logger) *ReminderDispatcher {
	return &ReminderDispatcher{
		queue:    queue,
		notifier: notifier,
		interval: interval,
		logger:   logger.With("component", "reminder-dispatcher"),
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (d *ReminderDispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.Dispatch(ctx)
		}
	}
}

// Dispatch delivers whatever is due now and returns how many fired.
func (d *ReminderDispatcher) Dispatch(ctx context.Context) int {
	due, err := d.queue.ClaimDue(ctx, d.now())
	if err != nil {
		d.logger.Error("failed to claim due reminders", "error", err)
	}
	for _, reminder := range due {
		d.logger.Info("reminder fired", "reminder_id", reminder.ID, "title", reminder.Title)
		utils.RemindersFiredTotal.Inc()
		d.notifier.Notify(reminder)
	}
	return len(due)
}
