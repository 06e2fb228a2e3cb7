package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"notebook/model"
	"notebook/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*model.User)}
}

func (m *memoryUsers) AddUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	if _, ok := m.users[user.Email]; ok {
		return repository.ErrUserExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *memoryUsers) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotContains(t, hash, "s3cret!")

	ok, err := VerifyPassword(hash, "s3cret!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrong1!")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPassword("no-separator", "s3cret!")
	assert.Error(t, err)

	other, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ")
}

func TestTokenIssuer(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return now }

	token, expiresAt, err := issuer.Issue("user-1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	userID, exp, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.True(t, exp.Equal(expiresAt))

	other := NewTokenIssuer("different", time.Hour)
	other.now = issuer.now
	_, _, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	issuer.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, _, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = issuer.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(newMemoryUsers(), NewTokenIssuer("secret", time.Hour), nil, discardLogger())

	tests := []struct {
		name  string
		creds model.Credentials
	}{
		{"missing email", model.Credentials{Password: "abc12!"}},
		{"bad email", model.Credentials{Email: "nope", Password: "abc12!"}},
		{"weak password", model.Credentials{Email: "a@example.com", Password: "abcdef"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.SignUp(ctx, tt.creds)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	session, err := auth.SignUp(ctx, model.Credentials{Email: "Alice@Example.com", Password: "abc12!"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.UserID)
	assert.Equal(t, "alice@example.com", session.Email)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, model.Scope{UserID: session.UserID}, session.Scope())
	require.NoError(t, auth.Verify(ctx, session))

	_, err = auth.SignUp(ctx, model.Credentials{Email: "alice@example.com", Password: "abc12!"})
	assert.ErrorIs(t, err, repository.ErrUserExists)

	signedIn, err := auth.SignIn(ctx, model.Credentials{Email: "alice@example.com", Password: "abc12!"})
	require.NoError(t, err)
	assert.Equal(t, session.UserID, signedIn.UserID)

	_, err = auth.SignIn(ctx, model.Credentials{Email: "alice@example.com", Password: "wrong1!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.SignIn(ctx, model.Credentials{Email: "bob@example.com", Password: "abc12!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Without Redis the blacklist is absent and sign-out is local only.
	require.NoError(t, auth.SignOut(ctx, signedIn))
	require.NoError(t, auth.SignOut(ctx, model.Session{}))
}

type recordingNotifier struct {
	mu    sync.Mutex
	fired []model.Reminder
}

func (r *recordingNotifier) Notify(reminder model.Reminder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, reminder)
}

type memoryQueue struct {
	mu      sync.Mutex
	pending []model.Reminder
}

func (q *memoryQueue) Add(ctx context.Context, r model.Reminder) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, r)
	return nil
}

func (q *memoryQueue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, r := range q.pending {
		if r.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return nil
		}
	}
	return repository.ErrReminderNotFound
}

func (q *memoryQueue) ClaimDue(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due, rest []model.Reminder
	for _, r := range q.pending {
		if r.When.After(now) {
			rest = append(rest, r)
		} else {
			due = append(due, r)
		}
	}
	q.pending = rest
	return due, nil
}

func TestReminderScheduler(t *testing.T) {
	ctx := context.Background()
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	disabled := NewReminderScheduler(&memoryQueue{}, false, discardLogger())
	perm, err := disabled.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PermissionDenied, perm)
	_, err = disabled.Schedule(ctx, model.Scope{}, when, "Reminder", "body")
	assert.ErrorIs(t, err, ErrNotificationsDisabled)

	queue := &memoryQueue{}
	scheduler := NewReminderScheduler(queue, true, discardLogger())
	perm, err = scheduler.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PermissionGranted, perm)

	reminder, err := scheduler.Schedule(ctx, model.Scope{UserID: "u1"}, when, "Reminder", "water plants")
	require.NoError(t, err)
	assert.NotEmpty(t, reminder.ID)
	assert.Equal(t, "u1", reminder.UserID)
	require.Len(t, queue.pending, 1)

	require.NoError(t, scheduler.Cancel(ctx, reminder.ID))
	assert.Empty(t, queue.pending)
	assert.ErrorIs(t, scheduler.Cancel(ctx, reminder.ID), repository.ErrReminderNotFound)
}

func TestReminderDispatcherFiresOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	queue := &memoryQueue{}
	require.NoError(t, queue.Add(ctx, model.Reminder{ID: "due", When: now.Add(-time.Second)}))
	require.NoError(t, queue.Add(ctx, model.Reminder{ID: "later", When: now.Add(time.Minute)}))

	notifier := &recordingNotifier{}
	d := NewReminderDispatcher(queue, notifier, time.Second, discardLogger())
	d.now = func() time.Time { return now }

	assert.Equal(t, 1, d.Dispatch(ctx))
	assert.Equal(t, 0, d.Dispatch(ctx))
	require.Len(t, notifier.fired, 1)
	assert.Equal(t, "due", notifier.fired[0].ID)

	d.now = func() time.Time { return now.Add(time.Hour) }
	assert.Equal(t, 1, d.Dispatch(ctx))
	assert.Len(t, notifier.fired, 2)
}

func TestReminderDispatcherRunStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan model.Reminder, 1)

	queue := &memoryQueue{}
	require.NoError(t, queue.Add(ctx, model.Reminder{ID: "now", When: time.Now()}))

	d := NewReminderDispatcher(queue, NotifierFunc(func(r model.Reminder) { fired <- r }), 10*time.Millisecond, discardLogger())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case r := <-fired:
		assert.Equal(t, "now", r.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("reminder never fired")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
