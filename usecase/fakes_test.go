package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"notebook/model"
	"notebook/repository/local"

	"github.com/stretchr/testify/require"
)

var errBackendDown = errors.New("backend unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type alertRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (a *alertRecorder) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

func (a *alertRecorder) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.messages...)
}

func (a *alertRecorder) last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.messages) == 0 {
		return ""
	}
	return a.messages[len(a.messages)-1]
}

// countingNotes wraps a NoteStore, counting writes and optionally failing
// them.
type countingNotes struct {
	NoteStore

	mu        sync.Mutex
	creates   int
	updates   int
	deletes   int
	failWrite error
}

func (c *countingNotes) Create(ctx context.Context, scope model.Scope, text string) (string, error) {
	c.mu.Lock()
	c.creates++
	err := c.failWrite
	c.mu.Unlock()
	if err != nil {
		return "", err
	}
	return c.NoteStore.Create(ctx, scope, text)
}

func (c *countingNotes) Update(ctx context.Context, scope model.Scope, noteID, text string) error {
	c.mu.Lock()
	c.updates++
	err := c.failWrite
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.NoteStore.Update(ctx, scope, noteID, text)
}

func (c *countingNotes) Delete(ctx context.Context, scope model.Scope, noteID string) error {
	c.mu.Lock()
	c.deletes++
	err := c.failWrite
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.NoteStore.Delete(ctx, scope, noteID)
}

func (c *countingNotes) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWrite = err
}

func (c *countingNotes) counts() (creates, updates, deletes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creates, c.updates, c.deletes
}

// flakyImages fails List or Delete on demand.
type flakyImages struct {
	ImageStore
	failList   error
	failDelete error
}

func (f *flakyImages) List(ctx context.Context, noteID string) ([]model.Locator, error) {
	if f.failList != nil {
		return nil, f.failList
	}
	return f.ImageStore.List(ctx, noteID)
}

func (f *flakyImages) Delete(ctx context.Context, loc model.Locator) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	return f.ImageStore.Delete(ctx, loc)
}

type fakeCamera struct {
	mu         sync.Mutex
	permission model.Permission
	data       []byte
	asked      int
}

func (f *fakeCamera) RequestPermission(ctx context.Context) (model.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked++
	return f.permission, nil
}

func (f *fakeCamera) Capture(ctx context.Context) ([]byte, error) {
	return f.data, nil
}

type fakeLibrary map[string][]byte

func (f fakeLibrary) Open(ctx context.Context, ref string) ([]byte, error) {
	data, ok := f[ref]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

type fakeScheduler struct {
	permission model.Permission
	asked      int
	scheduled  []model.Reminder
	cancelled  []string
}

func (f *fakeScheduler) RequestPermission(ctx context.Context) (model.Permission, error) {
	f.asked++
	return f.permission, nil
}

func (f *fakeScheduler) Schedule(ctx context.Context, scope model.Scope, when time.Time, title, body string) (model.Reminder, error) {
	r := model.Reminder{ID: time.Now().Format(time.RFC3339Nano), UserID: scope.UserID, When: when, Title: title, Body: body}
	f.scheduled = append(f.scheduled, r)
	return r, nil
}

func (f *fakeScheduler) Cancel(ctx context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

type harness struct {
	ctx     context.Context
	session model.Session
	notes   *countingNotes
	images  *flakyImages
	alerts  *alertRecorder
	list    *NoteListController
	camera  *fakeCamera
	library fakeLibrary
	cascade bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	dir := t.TempDir()
	notes, err := local.NewNotesStore(dir, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { notes.Close() })
	images, err := local.NewImagesStore(dir+"/images", "http://localhost:8089", discardLogger())
	require.NoError(t, err)

	h := &harness{
		ctx:     ctx,
		notes:   &countingNotes{NoteStore: notes},
		images:  &flakyImages{ImageStore: images},
		alerts:  &alertRecorder{},
		camera:  &fakeCamera{permission: model.PermissionGranted, data: []byte("jpeg")},
		library: fakeLibrary{"/pics/cat.png": []byte("png")},
	}
	h.list = NewNoteListController(h.session, h.notes, &fakeScheduler{permission: model.PermissionGranted}, h.alerts, discardLogger())
	require.NoError(t, h.list.Watch(ctx, nil))
	return h
}

func (h *harness) detail(note model.Note) *NoteDetailController {
	return NewNoteDetailController(h.session, note, DetailDeps{
		Notes:              h.notes,
		Images:             h.images,
		Camera:             h.camera,
		Library:            h.library,
		Alerts:             h.alerts,
		CascadeImageDelete: h.cascade,
	}, discardLogger())
}

// addNote types text and submits it, then waits for it to show up.
func (h *harness) addNote(t *testing.T, text string) model.Note {
	t.Helper()
	h.list.SetInput(text)
	id, err := h.list.AddNote(h.ctx)
	require.NoError(t, err)
	return h.waitForNote(t, id, func(n model.Note) bool { return n.Text == text })
}

func (h *harness) waitForNote(t *testing.T, id string, cond func(model.Note) bool) model.Note {
	t.Helper()
	var found model.Note
	require.Eventually(t, func() bool {
		note, err := h.list.Select(id)
		if err != nil || !cond(note) {
			return false
		}
		found = note
		return true
	}, 5*time.Second, 10*time.Millisecond)
	return found
}

func (h *harness) waitForGone(t *testing.T, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, err := h.list.Select(id)
		return errors.Is(err, ErrUnknownNote)
	}, 5*time.Second, 10*time.Millisecond)
}
