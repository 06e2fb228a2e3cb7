// Package local is the offline fallback backend: notes as one YAML file
// each, images in a directory tree, reminders in memory.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"notebook/model"
	"notebook/repository"
	"notebook/utils"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const notesExt = ".yaml"

type subscriber struct {
	ch chan []model.Note
}

// NotesStore keeps each note in "<dir>/<collection>/<id>.yaml". Every write
// touches a single note file, so clients sharing the directory never
// overwrite each other's creates. Their changes are picked up through
// fsnotify.
type NotesStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu        sync.Mutex
	subs      map[string]map[*subscriber]struct{}
	published map[string][]model.Note
	watcher   *fsnotify.Watcher
	watched   map[string]bool
}

func NewNotesStore(dir string, logger *slog.Logger) (*NotesStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create notes directory: %w", err)
	}
	return &NotesStore{
		dir:       dir,
		logger:    logger.With("store", "local-notes"),
		now:       time.Now,
		newID:     utils.NewID,
		subs:      make(map[string]map[*subscriber]struct{}),
		published: make(map[string][]model.Note),
		watched:   make(map[string]bool),
	}, nil
}

func (s *NotesStore) collectionDir(collection string) string {
	return filepath.Join(s.dir, collection)
}

func (s *NotesStore) notePath(collection, noteID string) string {
	return filepath.Join(s.dir, collection, noteID+notesExt)
}

func (s *NotesStore) Create(ctx context.Context, scope model.Scope, text string) (string, error) {
	timer := utils.TrackStoreOperation("create", "local-notes")
	defer timer.ObserveDuration()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := s.now().UTC()
	note := model.Note{
		ID:        s.newID(),
		UserID:    scope.UserID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeNote(scope.Collection(), note); err != nil {
		return "", utils.TrackStoreError("create", "local-notes", err)
	}
	s.refresh(scope.Collection())
	return note.ID, nil
}

// Update rewrites one note file. A delete racing in from another client
// can be undone by it; the last write wins.
func (s *NotesStore) Update(ctx context.Context, scope model.Scope, noteID string, text string) error {
	timer := utils.TrackStoreOperation("update", "local-notes")
	defer timer.ObserveDuration()

	if err := ctx.Err(); err != nil {
		return err
	}
	collection := scope.Collection()

	s.mu.Lock()
	defer s.mu.Unlock()
	note, err := s.readNote(collection, noteID)
	if err != nil {
		return err
	}
	note.Text = text
	note.UpdatedAt = s.now().UTC()
	if err := s.writeNote(collection, note); err != nil {
		return utils.TrackStoreError("update", "local-notes", err)
	}
	s.refresh(collection)
	return nil
}

func (s *NotesStore) Delete(ctx context.Context, scope model.Scope, noteID string) error {
	timer := utils.TrackStoreOperation("delete", "local-notes")
	defer timer.ObserveDuration()

	if err := ctx.Err(); err != nil {
		return err
	}
	if repository.ValidateNoteID(noteID) != nil {
		return fmt.Errorf("%w: %s", repository.ErrNoteNotFound, noteID)
	}
	collection := scope.Collection()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.notePath(collection, noteID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", repository.ErrNoteNotFound, noteID)
		}
		return utils.TrackStoreError("delete", "local-notes", fmt.Errorf("failed to delete note: %w", err))
	}
	s.refresh(collection)
	return nil
}

func (s *NotesStore) List(ctx context.Context, scope model.Scope) ([]model.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(scope.Collection())
}

// Subscribe emits the current notes, then the latest state after every
// change. A slow reader only ever sees the newest snapshot.
func (s *NotesStore) Subscribe(ctx context.Context, scope model.Scope) (<-chan []model.Note, error) {
	collection := scope.Collection()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.watch(collection); err != nil {
		return nil, err
	}
	notes, err := s.read(collection)
	if err != nil {
		return nil, err
	}

	sub := &subscriber{ch: make(chan []model.Note, 1)}
	sub.ch <- slices.Clone(notes)
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[*subscriber]struct{})
	}
	s.subs[collection][sub] = struct{}{}
	s.published[collection] = notes

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[collection], sub)
		close(sub.ch)
	}()
	return sub.ch, nil
}

// Close stops watching the directory. Open subscriptions stay open until
// their contexts end.
func (s *NotesStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	clear(s.watched)
	return err
}

// read loads every note of one collection. Callers hold s.mu.
func (s *NotesStore) read(collection string) ([]model.Note, error) {
	entries, err := os.ReadDir(s.collectionDir(collection))
	if errors.Is(err, os.ErrNotExist) {
		return []model.Note{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}

	notes := make([]model.Note, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != notesExt {
			continue
		}
		note, err := s.readNote(collection, strings.TrimSuffix(name, notesExt))
		if errors.Is(err, repository.ErrNoteNotFound) {
			// Deleted by another client since ReadDir.
			continue
		}
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	repository.SortNotes(notes)
	return notes, nil
}

func (s *NotesStore) readNote(collection, noteID string) (model.Note, error) {
	if repository.ValidateNoteID(noteID) != nil {
		return model.Note{}, fmt.Errorf("%w: %s", repository.ErrNoteNotFound, noteID)
	}
	path := s.notePath(collection, noteID)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return model.Note{}, fmt.Errorf("%w: %s", repository.ErrNoteNotFound, noteID)
	}
	if err != nil {
		return model.Note{}, fmt.Errorf("failed to read note: %w", err)
	}

	var note model.Note
	if err := yaml.Unmarshal(data, &note); err != nil {
		return model.Note{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	note.ID = noteID
	return note, nil
}

// writeNote replaces one note file atomically: temp file, sync, rename.
func (s *NotesStore) writeNote(collection string, note model.Note) error {
	data, err := yaml.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to encode note: %w", err)
	}
	dir := s.collectionDir(collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+note.ID+"-*")
	if err != nil {
		return fmt.Errorf("failed to write note: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write note: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync note: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write note: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.notePath(collection, note.ID)); err != nil {
		return fmt.Errorf("failed to write note: %w", err)
	}
	return nil
}

// refresh re-reads a collection after a local write and publishes it.
// Callers hold s.mu.
func (s *NotesStore) refresh(collection string) {
	if len(s.subs[collection]) == 0 {
		return
	}
	notes, err := s.read(collection)
	if err != nil {
		s.logger.Warn("failed to reload notes", "collection", collection, "error", err)
		return
	}
	s.publish(collection, notes)
}

// publish hands notes to every subscriber of collection, replacing any
// snapshot they have not read yet. Callers hold s.mu.
func (s *NotesStore) publish(collection string, notes []model.Note) {
	if slices.Equal(s.published[collection], notes) {
		return
	}
	s.published[collection] = notes

	for sub := range s.subs[collection] {
		snapshot := slices.Clone(notes)
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snapshot
	}
}

// watch makes sure collection's directory is watched. Callers hold s.mu.
func (s *NotesStore) watch(collection string) error {
	if s.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		s.watcher = watcher
		go s.run(watcher)
	}
	if s.watched[collection] {
		return nil
	}
	dir := s.collectionDir(collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}
	if err := s.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.watched[collection] = true
	return nil
}

func (s *NotesStore) run(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

func (s *NotesStore) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || filepath.Ext(name) != notesExt {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	collection := filepath.Base(filepath.Dir(event.Name))

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs[collection]) == 0 {
		return
	}
	notes, err := s.read(collection)
	if err != nil {
		s.logger.Warn("failed to reload notes after external change", "collection", collection, "error", err)
		return
	}
	s.logger.Debug("external change picked up", "collection", collection, "op", event.Op.String())
	s.publish(collection, notes)
}
