package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"notebook/model"
	"notebook/utils"

	"github.com/gabriel-vasile/mimetype"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const imagesBucket = "images"

type imageFile struct {
	ID       primitive.ObjectID `bson:"_id"`
	Filename string             `bson:"filename"`
	Length   int64              `bson:"length"`
}

// ImagesRepo keeps image bytes in a GridFS bucket. The GridFS filename is
// the locator, so every file lives under its note's namespace.
type ImagesRepo struct {
	db      *mongo.Database
	baseURL string
	stamper *Stamper
	logger  *slog.Logger
}

// GetImagesRepo opens the bucket. baseURL is where the image HTTP surface
// is reachable; resolved URLs are "<baseURL>/images/<locator>".
func GetImagesRepo(db *mongo.Database, baseURL string, logger *slog.Logger) (*ImagesRepo, error) {
	if _, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(imagesBucket)); err != nil {
		return nil, fmt.Errorf("failed to open images bucket: %w", err)
	}
	return &ImagesRepo{
		db:      db,
		baseURL: baseURL,
		stamper: NewStamper(nil),
		logger:  logger.With("store", "images"),
	}, nil
}

// bucket returns a handle on the images bucket whose reads and writes
// stop at ctx's deadline. Handles are per call because deadlines are
// bucket-wide.
func (r *ImagesRepo) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(r.db, options.GridFSBucket().SetName(imagesBucket))
	if err != nil {
		return nil, fmt.Errorf("failed to open images bucket: %w", err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return bucket, nil
	}
	if err := bucket.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := bucket.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	return bucket, nil
}

// contextReader fails reads once ctx is done, which aborts a GridFS
// upload or download mid-stream.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

type downloadStream struct {
	contextReader
	io.Closer
}

func (r *ImagesRepo) Upload(ctx context.Context, noteID string, data []byte) (model.Locator, error) {
	timer := utils.TrackStoreOperation("upload", "images")
	defer timer.ObserveDuration()

	loc, err := NewLocator(noteID, r.stamper)
	if err != nil {
		return "", err
	}
	if len(data) > model.MaxImageSize {
		return "", fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(data))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	bucket, err := r.bucket(ctx)
	if err != nil {
		return "", err
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{
		{Key: "note_id", Value: noteID},
		{Key: "content_type", Value: mimetype.Detect(data).String()},
	})
	source := contextReader{ctx: ctx, r: bytes.NewReader(data)}
	if _, err := bucket.UploadFromStream(loc.String(), source, opts); err != nil {
		return "", utils.TrackStoreError("upload", "images", fmt.Errorf("failed to upload image: %w", err))
	}
	r.logger.Debug("image uploaded", "locator", loc, "bytes", len(data))
	return loc, nil
}

// List returns the locators attached to noteID in upload order.
func (r *ImagesRepo) List(ctx context.Context, noteID string) ([]model.Locator, error) {
	timer := utils.TrackStoreOperation("list", "images")
	defer timer.ObserveDuration()

	if err := ValidateNoteID(noteID); err != nil {
		return nil, err
	}

	bucket, err := r.bucket(ctx)
	if err != nil {
		return nil, err
	}
	opts := options.GridFSFind().SetSort(bson.D{{Key: "filename", Value: 1}})
	cursor, err := bucket.FindContext(ctx, bson.M{"metadata.note_id": noteID}, opts)
	if err != nil {
		return nil, utils.TrackStoreError("list", "images", fmt.Errorf("failed to list images: %w", err))
	}
	defer cursor.Close(ctx)

	var files []imageFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, utils.TrackStoreError("list", "images", fmt.Errorf("failed to decode images: %w", err))
	}

	locators := make([]model.Locator, 0, len(files))
	for _, f := range files {
		locators = append(locators, model.Locator(f.Filename))
	}
	return locators, nil
}

func (r *ImagesRepo) Resolve(_ context.Context, loc model.Locator) (string, error) {
	if err := ValidateLocator(loc); err != nil {
		return "", err
	}
	return r.baseURL + "/images/" + loc.String(), nil
}

func (r *ImagesRepo) Delete(ctx context.Context, loc model.Locator) error {
	timer := utils.TrackStoreOperation("delete", "images")
	defer timer.ObserveDuration()

	bucket, err := r.bucket(ctx)
	if err != nil {
		return err
	}
	file, err := r.find(ctx, bucket, loc)
	if err != nil {
		return err
	}
	if err := bucket.DeleteContext(ctx, file.ID); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("%w: %s", ErrImageNotFound, loc)
		}
		return utils.TrackStoreError("delete", "images", fmt.Errorf("failed to delete image: %w", err))
	}
	return nil
}

// Open streams the bytes stored under loc.
func (r *ImagesRepo) Open(ctx context.Context, loc model.Locator) (io.ReadCloser, error) {
	timer := utils.TrackStoreOperation("open", "images")
	defer timer.ObserveDuration()

	if err := ValidateLocator(loc); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bucket, err := r.bucket(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := bucket.OpenDownloadStreamByName(loc.String())
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrImageNotFound, loc)
		}
		return nil, utils.TrackStoreError("open", "images", fmt.Errorf("failed to open image: %w", err))
	}
	return downloadStream{contextReader{ctx: ctx, r: stream}, stream}, nil
}

func (r *ImagesRepo) find(ctx context.Context, bucket *gridfs.Bucket, loc model.Locator) (*imageFile, error) {
	if err := ValidateLocator(loc); err != nil {
		return nil, err
	}
	cursor, err := bucket.FindContext(ctx, bson.M{"filename": loc.String()})
	if err != nil {
		return nil, utils.TrackStoreError("find", "images", fmt.Errorf("failed to find image: %w", err))
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, utils.TrackStoreError("find", "images", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, loc)
	}
	var file imageFile
	if err := cursor.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode image file: %w", err)
	}
	return &file, nil
}
