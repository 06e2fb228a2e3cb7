package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"notebook/model"
)

// FileLibrary picks images from the local filesystem.
type FileLibrary struct {
	home string
}

func NewFileLibrary() *FileLibrary {
	home, _ := os.UserHomeDir()
	return &FileLibrary{home: home}
}

// Open reads the image at ref. A leading "~/" expands to the home
// directory.
func (l *FileLibrary) Open(ctx context.Context, ref string) ([]byte, error) {
	path := ref
	if rest, ok := strings.CutPrefix(ref, "~/"); ok && l.home != "" {
		path = filepath.Join(l.home, rest)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, model.MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > model.MaxImageSize {
		return nil, fmt.Errorf("%s: %w", path, ErrImageTooLarge)
	}
	if err := checkImage(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}
