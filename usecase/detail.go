package usecase

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"notebook/model"
	"notebook/utils"
)

const (
	msgNoteDeleted       = "Note deleted!"
	msgDeleteFailed      = "Failed to delete note"
	msgImageDeleted      = "Image deleted"
	msgImageDeleteFailed = "Failed to delete image"
	msgCameraDenied      = "Camera access denied!"
	msgCameraFailed      = "Failed to launch camera"
	msgUploadFailed      = "Failed to upload image"
	msgLibraryFailed     = "Could not read that image!"
)

// DetailDeps are the collaborators of a NoteDetailController.
type DetailDeps struct {
	Notes   NoteStore
	Images  ImageStore
	Camera  Camera
	Library Library
	Alerts  Alerter
	// CascadeImageDelete removes a note's images before the note itself.
	// Off by default: deleted notes leave their images behind.
	CascadeImageDelete bool
}

// NoteDetailController edits one note. The draft stays local until Save
// hands it to the list controller.
type NoteDetailController struct {
	deps   DetailDeps
	logger *slog.Logger
	scope  model.Scope
	noteID string

	mu           sync.Mutex
	draft        string
	images       []model.Image
	cameraDenied bool
}

func NewNoteDetailController(session model.Session, note model.Note, deps DetailDeps, logger *slog.Logger) *NoteDetailController {
	return &NoteDetailController{
		deps:   deps,
		logger: logger.With("controller", "detail", "note_id", note.ID),
		scope:  session.Scope(),
		noteID: note.ID,
		draft:  note.Text,
	}
}

func (c *NoteDetailController) NoteID() string {
	return c.noteID
}

// Open loads the attached images. A failure is logged and leaves the list
// empty.
func (c *NoteDetailController) Open(ctx context.Context) []model.Image {
	if err := c.refreshImages(ctx); err != nil {
		c.logger.Error("error fetching images", "error", err)
	}
	return c.Images()
}

func (c *NoteDetailController) Edit(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

func (c *NoteDetailController) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Save returns the edit for the list controller to apply. It does no I/O.
func (c *NoteDetailController) Save() model.PendingEdit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.PendingEdit{NoteID: c.noteID, Text: c.draft}
}

// Delete removes the note. On error the caller stays on the page.
func (c *NoteDetailController) Delete(ctx context.Context) error {
	if c.deps.CascadeImageDelete {
		c.deleteImages(ctx)
	}

	if err := c.deps.Notes.Delete(ctx, c.scope, c.noteID); err != nil {
		c.logger.Error("failed to delete note", "error", err)
		c.deps.Alerts.Alert(msgDeleteFailed)
		return &RemoteError{Op: "delete note", Err: err}
	}
	utils.TrackNoteOperation("delete")
	c.logger.Info("note deleted")
	c.deps.Alerts.Alert(msgNoteDeleted)
	return nil
}

// deleteImages removes every image under the note. Failures are logged and
// do not stop the note delete.
func (c *NoteDetailController) deleteImages(ctx context.Context) {
	locs, err := c.deps.Images.List(ctx, c.noteID)
	if err != nil {
		c.logger.Warn("failed to list images for cascade delete", "error", err)
		return
	}
	for _, loc := range locs {
		if err := c.deps.Images.Delete(ctx, loc); err != nil {
			c.logger.Warn("failed to delete image", "locator", loc, "error", err)
		}
	}
}

// AttachFromCamera captures a photo and uploads it. Once the camera
// permission is denied, later calls fail without prompting again.
func (c *NoteDetailController) AttachFromCamera(ctx context.Context) error {
	c.mu.Lock()
	denied := c.cameraDenied
	c.mu.Unlock()
	if denied {
		return &PermissionDeniedError{Feature: "camera"}
	}

	perm, err := c.deps.Camera.RequestPermission(ctx)
	if err != nil {
		c.deps.Alerts.Alert(msgCameraFailed)
		return &RemoteError{Op: "camera permission", Err: err}
	}
	if perm != model.PermissionGranted {
		c.mu.Lock()
		c.cameraDenied = true
		c.mu.Unlock()
		c.logger.Info("camera access denied")
		c.deps.Alerts.Alert(msgCameraDenied)
		return &PermissionDeniedError{Feature: "camera"}
	}

	data, err := c.deps.Camera.Capture(ctx)
	if err != nil {
		c.logger.Error("camera capture failed", "error", err)
		c.deps.Alerts.Alert(msgCameraFailed)
		return &RemoteError{Op: "capture", Err: err}
	}
	return c.upload(ctx, data)
}

// AttachFromLibrary uploads the image at ref. An empty ref means the pick
// was cancelled.
func (c *NoteDetailController) AttachFromLibrary(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}

	data, err := c.deps.Library.Open(ctx, ref)
	if err != nil {
		c.logger.Warn("failed to read picked image", "ref", ref, "error", err)
		c.deps.Alerts.Alert(msgLibraryFailed)
		return &ValidationError{Message: msgLibraryFailed}
	}
	return c.upload(ctx, data)
}

func (c *NoteDetailController) upload(ctx context.Context, data []byte) error {
	loc, err := c.deps.Images.Upload(ctx, c.noteID, data)
	if err != nil {
		c.logger.Error("error uploading image", "error", err)
		c.deps.Alerts.Alert(msgUploadFailed)
		return &RemoteError{Op: "upload image", Err: err}
	}
	c.logger.Info("image uploaded", "locator", loc)

	if err := c.refreshImages(ctx); err != nil {
		c.logger.Error("error fetching images", "error", err)
	}
	return nil
}

func (c *NoteDetailController) RemoveImage(ctx context.Context, loc model.Locator) error {
	if err := c.deps.Images.Delete(ctx, loc); err != nil {
		c.logger.Error("failed to delete image", "locator", loc, "error", err)
		c.deps.Alerts.Alert(msgImageDeleteFailed)
		return &RemoteError{Op: "delete image", Err: err}
	}
	if err := c.refreshImages(ctx); err != nil {
		c.logger.Error("error fetching images", "error", err)
	}
	c.deps.Alerts.Alert(msgImageDeleted)
	return nil
}

func (c *NoteDetailController) Images() []model.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.images)
}

// refreshImages re-lists the note's images. On error the current list is
// kept as is.
func (c *NoteDetailController) refreshImages(ctx context.Context) error {
	locs, err := c.deps.Images.List(ctx, c.noteID)
	if err != nil {
		return err
	}

	images := make([]model.Image, 0, len(locs))
	for _, loc := range locs {
		url, err := c.deps.Images.Resolve(ctx, loc)
		if err != nil {
			c.logger.Warn("failed to resolve image", "locator", loc, "error", err)
			continue
		}
		images = append(images, model.Image{Locator: loc, URL: url})
	}

	c.mu.Lock()
	c.images = images
	c.mu.Unlock()
	return nil
}
