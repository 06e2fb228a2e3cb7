package local

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"notebook/model"
	"notebook/repository"
)

// ReminderQueue holds pending reminders in memory. Reminders do not survive
// a restart.
type ReminderQueue struct {
	mu      sync.Mutex
	pending map[string]model.Reminder
}

func NewReminderQueue() *ReminderQueue {
	return &ReminderQueue{pending: make(map[string]model.Reminder)}
}

func (q *ReminderQueue) Add(ctx context.Context, reminder model.Reminder) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[reminder.ID] = reminder
	return nil
}

func (q *ReminderQueue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[id]; !ok {
		return fmt.Errorf("%w: %s", repository.ErrReminderNotFound, id)
	}
	delete(q.pending, id)
	return nil
}

// ClaimDue removes and returns every reminder due at or before now, earliest
// first.
func (q *ReminderQueue) ClaimDue(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []model.Reminder
	for id, r := range q.pending {
		if !r.When.After(now) {
			due = append(due, r)
			delete(q.pending, id)
		}
	}
	slices.SortFunc(due, func(a, b model.Reminder) int {
		return a.When.Compare(b.When)
	})
	return due, nil
}
