// Package platform adapts local devices and files to the camera and
// library collaborators of the detail screen.
package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"notebook/model"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNotAnImage    = errors.New("not an image")
	ErrImageTooLarge = errors.New("image too large")
)

// CommandCamera captures a photo by running a shell-free command that
// writes the image to stdout, for example "fswebcam --no-banner -".
type CommandCamera struct {
	args []string
}

func NewCommandCamera(command string) *CommandCamera {
	return &CommandCamera{args: strings.Fields(command)}
}

// RequestPermission grants access only when a command is configured and
// its binary is on PATH.
func (c *CommandCamera) RequestPermission(ctx context.Context) (model.Permission, error) {
	if len(c.args) == 0 {
		return model.PermissionDenied, nil
	}
	if _, err := exec.LookPath(c.args[0]); err != nil {
		return model.PermissionDenied, nil
	}
	return model.PermissionGranted, nil
}

func (c *CommandCamera) Capture(ctx context.Context) ([]byte, error) {
	if len(c.args) == 0 {
		return nil, errors.New("no camera command configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stderr bytes.Buffer
	command := exec.CommandContext(ctx, c.args[0], c.args[1:]...)
	command.Stderr = &stderr
	stdout, err := command.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("%s: %w", strings.Join(c.args, " "), err)
	}

	data, readErr := io.ReadAll(io.LimitReader(stdout, model.MaxImageSize+1))
	if len(data) > model.MaxImageSize {
		cancel()
		_ = command.Wait()
		return nil, fmt.Errorf("%s: %w", strings.Join(c.args, " "), ErrImageTooLarge)
	}
	if err := command.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w (stderr: %s)",
			strings.Join(c.args, " "), err, strings.TrimSpace(stderr.String()))
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read capture: %w", readErr)
	}
	if err := checkImage(data); err != nil {
		return nil, err
	}
	return data, nil
}

func checkImage(data []byte) error {
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return fmt.Errorf("%w: detected %s", ErrNotAnImage, mtype.String())
	}
	return nil
}
