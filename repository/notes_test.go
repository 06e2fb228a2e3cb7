package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"notebook/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestChangeStreamsUnsupported(t *testing.T) {
	standalone := mongo.CommandError{Code: codeChangeStreamsUnsupported, Message: "The $changeStream stage is only supported on replica sets"}

	assert.True(t, changeStreamsUnsupported(standalone))
	assert.True(t, changeStreamsUnsupported(fmt.Errorf("failed to open change stream: %w", standalone)))
	assert.False(t, changeStreamsUnsupported(mongo.CommandError{Code: 13, Message: "unauthorized"}))
	assert.False(t, changeStreamsUnsupported(errors.New("connection refused")))
	assert.False(t, changeStreamsUnsupported(nil))
}

type fakeLister struct {
	mu    sync.Mutex
	notes []model.Note
	err   error
}

func (f *fakeLister) set(notes []model.Note, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes, f.err = notes, err
}

func (f *fakeLister) list(ctx context.Context) ([]model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Note(nil), f.notes...), f.err
}

func receive(t *testing.T, ch <-chan []model.Note) []model.Note {
	t.Helper()
	select {
	case notes, ok := <-ch:
		require.True(t, ok, "channel closed")
		return notes
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestPollNotes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	milk := model.Note{ID: "a", Text: "Buy milk", CreatedAt: created, UpdatedAt: created}

	lister := &fakeLister{notes: []model.Note{milk}}
	out := make(chan []model.Note, 1)
	go pollNotes(ctx, lister.list, 10*time.Millisecond, []model.Note{milk}, out, testLogger())

	assert.Equal(t, []model.Note{milk}, receive(t, out))

	// A failing poll is retried, not fatal.
	lister.set(nil, errors.New("server selection timeout"))
	time.Sleep(30 * time.Millisecond)

	edited := milk
	edited.Text = "Buy oat milk"
	edited.UpdatedAt = created.Add(time.Minute)
	eggs := model.Note{ID: "b", Text: "eggs", CreatedAt: created.Add(time.Second), UpdatedAt: created.Add(time.Second)}
	lister.set([]model.Note{edited, eggs}, nil)
	assert.Equal(t, []model.Note{edited, eggs}, receive(t, out))

	select {
	case notes := <-out:
		t.Fatalf("unchanged state sent again: %v", notes)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-out:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
