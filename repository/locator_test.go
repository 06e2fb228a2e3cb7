package repository

import (
	"sync"
	"testing"
	"time"

	"notebook/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStamperIsStrictlyIncreasingWithinOneTick(t *testing.T) {
	frozen := time.Unix(1700000000, 0)
	s := NewStamper(func() time.Time { return frozen })

	first := s.Next()
	second := s.Next()
	assert.NotEqual(t, first, second)
	assert.Equal(t, "1700000000000000000", first)
	assert.Equal(t, "1700000000000000001", second)
}

func TestStamperConcurrentCallsAreDistinct(t *testing.T) {
	s := NewStamper(nil)
	const n = 200

	var mu sync.Mutex
	seen := make(map[string]struct{}, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stamp := s.Next()
			mu.Lock()
			seen[stamp] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestNewLocator(t *testing.T) {
	s := NewStamper(func() time.Time { return time.Unix(0, 5) })
	loc, err := NewLocator("note-1", s)
	require.NoError(t, err)
	assert.Equal(t, model.Locator("note-1/5"), loc)
	assert.Equal(t, "note-1", loc.NoteID())

	_, err = NewLocator("../etc", s)
	assert.ErrorIs(t, err, ErrInvalidNoteID)
}

func TestValidateLocator(t *testing.T) {
	valid := []model.Locator{"abc/123", "65a1f0c2e4b0a1b2c3d4e5f6/1700000000000000000"}
	for _, loc := range valid {
		assert.NoError(t, ValidateLocator(loc), loc)
	}

	invalid := []model.Locator{"", "abc", "abc/", "/123", "abc/12/3", "../123", "abc/..", `abc\def/1`}
	for _, loc := range invalid {
		assert.ErrorIs(t, ValidateLocator(loc), ErrInvalidLocator, loc)
	}
}
