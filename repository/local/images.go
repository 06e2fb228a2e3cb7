package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"notebook/model"
	"notebook/repository"
	"notebook/utils"
)

// ImagesStore keeps each image as "<dir>/<noteID>/<stamp>".
type ImagesStore struct {
	dir     string
	baseURL string
	stamper *repository.Stamper
	logger  *slog.Logger
}

func NewImagesStore(dir, baseURL string, logger *slog.Logger) (*ImagesStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}
	return &ImagesStore{
		dir:     dir,
		baseURL: baseURL,
		stamper: repository.NewStamper(nil),
		logger:  logger.With("store", "local-images"),
	}, nil
}

func (s *ImagesStore) path(loc model.Locator) string {
	return filepath.Join(s.dir, loc.NoteID(), loc.Name())
}

func (s *ImagesStore) Upload(ctx context.Context, noteID string, data []byte) (model.Locator, error) {
	timer := utils.TrackStoreOperation("upload", "local-images")
	defer timer.ObserveDuration()

	loc, err := repository.NewLocator(noteID, s.stamper)
	if err != nil {
		return "", err
	}
	if len(data) > model.MaxImageSize {
		return "", fmt.Errorf("%w: %d bytes", repository.ErrImageTooLarge, len(data))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Join(s.dir, noteID), 0o755); err != nil {
		return "", utils.TrackStoreError("upload", "local-images", fmt.Errorf("failed to create note directory: %w", err))
	}

	f, err := os.OpenFile(s.path(loc), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", utils.TrackStoreError("upload", "local-images", fmt.Errorf("failed to upload image: %w", err))
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", utils.TrackStoreError("upload", "local-images", fmt.Errorf("failed to upload image: %w", err))
	}
	if err := f.Close(); err != nil {
		return "", utils.TrackStoreError("upload", "local-images", fmt.Errorf("failed to upload image: %w", err))
	}
	s.logger.Debug("image uploaded", "locator", loc, "bytes", len(data))
	return loc, nil
}

// List returns the locators under noteID in upload order. A note without
// images yields an empty list.
func (s *ImagesStore) List(ctx context.Context, noteID string) ([]model.Locator, error) {
	if err := repository.ValidateNoteID(noteID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, noteID))
	if errors.Is(err, os.ErrNotExist) {
		return []model.Locator{}, nil
	}
	if err != nil {
		return nil, utils.TrackStoreError("list", "local-images", fmt.Errorf("failed to list images: %w", err))
	}

	locs := make([]model.Locator, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		locs = append(locs, model.Locator(noteID+"/"+entry.Name()))
	}
	// Stamps are decimal nanoseconds of equal width, so lexical order is
	// upload order.
	slices.Sort(locs)
	return locs, nil
}

func (s *ImagesStore) Resolve(ctx context.Context, loc model.Locator) (string, error) {
	if err := repository.ValidateLocator(loc); err != nil {
		return "", err
	}
	if _, err := os.Stat(s.path(loc)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", repository.ErrImageNotFound, loc)
		}
		return "", fmt.Errorf("failed to resolve image: %w", err)
	}
	return s.baseURL + "/images/" + loc.String(), nil
}

func (s *ImagesStore) Delete(ctx context.Context, loc model.Locator) error {
	timer := utils.TrackStoreOperation("delete", "local-images")
	defer timer.ObserveDuration()

	if err := repository.ValidateLocator(loc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(loc)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", repository.ErrImageNotFound, loc)
		}
		return utils.TrackStoreError("delete", "local-images", fmt.Errorf("failed to delete image: %w", err))
	}
	return nil
}

func (s *ImagesStore) Open(ctx context.Context, loc model.Locator) (io.ReadCloser, error) {
	if err := repository.ValidateLocator(loc); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(loc))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", repository.ErrImageNotFound, loc)
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return f, nil
}
