package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"notebook/model"
	"notebook/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type noteDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id,omitempty"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d noteDocument) toModel() model.Note {
	return model.Note{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Text:      d.Text,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *noteDocument `bson:"fullDocument"`
}

const (
	// codeChangeStreamsUnsupported is returned for $changeStream on a
	// standalone server.
	codeChangeStreamsUnsupported = 40573

	defaultPollInterval = 2 * time.Second
)

// NotesRepo stores notes in MongoDB, one collection per scope. Subscribe
// follows a change stream, or polls when the server is standalone.
type NotesRepo struct {
	db           *mongo.Database
	logger       *slog.Logger
	now          func() time.Time
	pollInterval time.Duration
}

func GetNotesRepo(db *mongo.Database, logger *slog.Logger) *NotesRepo {
	return &NotesRepo{
		db:           db,
		logger:       logger.With("store", "notes"),
		now:          time.Now,
		pollInterval: defaultPollInterval,
	}
}

func changeStreamsUnsupported(err error) bool {
	var serverErr mongo.ServerError
	return errors.As(err, &serverErr) && serverErr.HasErrorCode(codeChangeStreamsUnsupported)
}

func (r *NotesRepo) collection(scope model.Scope) *mongo.Collection {
	return r.db.Collection(scope.Collection())
}

// Mongo keeps millisecond precision; truncating up front keeps the value we
// hand back identical to what a later read returns.
func (r *NotesRepo) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

// Create inserts a note and returns the store-assigned identifier.
func (r *NotesRepo) Create(ctx context.Context, scope model.Scope, text string) (string, error) {
	timer := utils.TrackStoreOperation("create", "notes")
	defer timer.ObserveDuration()

	now := r.timestamp()
	result, err := r.collection(scope).InsertOne(ctx, noteDocument{
		UserID:    scope.UserID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", utils.TrackStoreError("create", "notes", fmt.Errorf("failed to create note: %w", err))
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return id.Hex(), nil
}

// Update replaces the text of one note.
func (r *NotesRepo) Update(ctx context.Context, scope model.Scope, noteID string, text string) error {
	timer := utils.TrackStoreOperation("update", "notes")
	defer timer.ObserveDuration()

	oid, err := primitive.ObjectIDFromHex(noteID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
	}

	update := bson.M{
		"$set": bson.M{
			"text":       text,
			"updated_at": r.timestamp(),
		},
	}
	result, err := r.collection(scope).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return utils.TrackStoreError("update", "notes", fmt.Errorf("failed to update note: %w", err))
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
	}
	return nil
}

// Delete removes one note. Attached images are not touched here.
func (r *NotesRepo) Delete(ctx context.Context, scope model.Scope, noteID string) error {
	timer := utils.TrackStoreOperation("delete", "notes")
	defer timer.ObserveDuration()

	oid, err := primitive.ObjectIDFromHex(noteID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
	}

	result, err := r.collection(scope).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return utils.TrackStoreError("delete", "notes", fmt.Errorf("failed to delete note: %w", err))
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
	}
	return nil
}

// List returns every note in the scope, sorted for display.
func (r *NotesRepo) List(ctx context.Context, scope model.Scope) ([]model.Note, error) {
	timer := utils.TrackStoreOperation("list", "notes")
	defer timer.ObserveDuration()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection(scope).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, utils.TrackStoreError("list", "notes", fmt.Errorf("failed to list notes: %w", err))
	}
	defer cursor.Close(ctx)

	var docs []noteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, utils.TrackStoreError("list", "notes", fmt.Errorf("failed to decode notes: %w", err))
	}

	notes := make([]model.Note, len(docs))
	for i, d := range docs {
		notes[i] = d.toModel()
	}
	return notes, nil
}

// Subscribe emits the current notes of the scope, then a fresh snapshot
// after every change made by any client. The channel closes when ctx is
// done or the change stream ends.
func (r *NotesRepo) Subscribe(ctx context.Context, scope model.Scope) (<-chan []model.Note, error) {
	// Open the stream before the initial read so no write can fall between them.
	streamOpts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := r.collection(scope).Watch(ctx, mongo.Pipeline{}, streamOpts)
	if changeStreamsUnsupported(err) {
		r.logger.Warn("change streams unsupported, polling for changes",
			"collection", scope.Collection(), "interval", r.pollInterval)
		return r.subscribePolling(ctx, scope)
	}
	if err != nil {
		return nil, utils.TrackStoreError("subscribe", "notes", fmt.Errorf("failed to open change stream: %w", err))
	}

	initial, err := r.List(ctx, scope)
	if err != nil {
		_ = stream.Close(context.Background())
		return nil, err
	}

	out := make(chan []model.Note, 1)
	go r.follow(ctx, scope, stream, initial, out)
	return out, nil
}

func (r *NotesRepo) follow(ctx context.Context, scope model.Scope, stream *mongo.ChangeStream, initial []model.Note, out chan<- []model.Note) {
	defer close(out)
	defer stream.Close(context.Background())

	logger := r.logger.With("collection", scope.Collection())
	snap := newSnapshot(initial)
	if !sendSnapshot(ctx, out, snap.notes()) {
		return
	}

	for stream.Next(ctx) {
		var event changeEvent
		if err := stream.Decode(&event); err != nil {
			logger.Warn("skipping undecodable change event", "error", err)
			continue
		}

		var doc *model.Note
		if event.FullDocument != nil {
			n := event.FullDocument.toModel()
			doc = &n
		}
		changed, invalidated := snap.apply(event.OperationType, event.DocumentKey.ID.Hex(), doc)
		if invalidated {
			logger.Warn("change stream invalidated", "operation", event.OperationType)
			return
		}
		if changed && !sendSnapshot(ctx, out, snap.notes()) {
			return
		}
	}

	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		utils.TrackStoreError("subscribe", "notes", err)
		logger.Error("change stream failed", "error", err)
	}
}

func (r *NotesRepo) subscribePolling(ctx context.Context, scope model.Scope) (<-chan []model.Note, error) {
	list := func(ctx context.Context) ([]model.Note, error) { return r.List(ctx, scope) }
	initial, err := list(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan []model.Note, 1)
	go pollNotes(ctx, list, r.pollInterval, initial, out, r.logger.With("collection", scope.Collection()))
	return out, nil
}

// pollNotes sends initial, then every listed state that differs from the
// last one sent. Failed polls are logged and retried on the next tick.
func pollNotes(ctx context.Context, list func(context.Context) ([]model.Note, error), interval time.Duration,
	initial []model.Note, out chan<- []model.Note, logger *slog.Logger) {
	defer close(out)

	last := initial
	if !sendSnapshot(ctx, out, last) {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		notes, err := list(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("failed to poll notes", "error", err)
			continue
		}
		if slices.EqualFunc(notes, last, sameNote) {
			continue
		}
		last = notes
		if !sendSnapshot(ctx, out, notes) {
			return
		}
	}
}

func sameNote(a, b model.Note) bool {
	return a.ID == b.ID && a.Text == b.Text && a.UpdatedAt.Equal(b.UpdatedAt)
}

func sendSnapshot(ctx context.Context, out chan<- []model.Note, notes []model.Note) bool {
	select {
	case out <- notes:
		return true
	case <-ctx.Done():
		return false
	}
}
