package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"notebook/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileLibrary(t *testing.T) {
	ctx := context.Background()
	lib := &FileLibrary{}

	png := writeFile(t, "pic.png", pngHeader)
	data, err := lib.Open(ctx, png)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	text := writeFile(t, "notes.txt", []byte("just words"))
	_, err = lib.Open(ctx, text)
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, err = lib.Open(ctx, filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileLibraryRejectsOversizedFile(t *testing.T) {
	big := make([]byte, model.MaxImageSize+1)
	copy(big, pngHeader)

	_, err := (&FileLibrary{}).Open(context.Background(), writeFile(t, "huge.png", big))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestFileLibraryExpandsHome(t *testing.T) {
	png := writeFile(t, "pic.png", pngHeader)
	lib := &FileLibrary{home: filepath.Dir(png)}

	data, err := lib.Open(context.Background(), "~/pic.png")
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestCommandCameraWithoutCommand(t *testing.T) {
	cam := NewCommandCamera("  ")
	perm, err := cam.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.PermissionDenied, perm)

	_, err = cam.Capture(context.Background())
	assert.Error(t, err)
}

func TestCommandCameraMissingBinary(t *testing.T) {
	perm, err := NewCommandCamera("no-such-camera-binary --snap").RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.PermissionDenied, perm)
}

func TestCommandCameraCapture(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	ctx := context.Background()

	cam := NewCommandCamera("cat " + writeFile(t, "shot.png", pngHeader))
	perm, err := cam.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PermissionGranted, perm)

	data, err := cam.Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	_, err = NewCommandCamera("cat " + writeFile(t, "shot.txt", []byte("hello"))).Capture(ctx)
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestCommandCameraCapsCaptureSize(t *testing.T) {
	if _, err := exec.LookPath("head"); err != nil {
		t.Skip("head not available")
	}
	cam := NewCommandCamera(fmt.Sprintf("head -c %d /dev/zero", model.MaxImageSize+1024))

	_, err := cam.Capture(context.Background())
	assert.ErrorIs(t, err, ErrImageTooLarge)
}
