package tui

import (
	"errors"
	"strings"

	"notebook/model"
	"notebook/usecase"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type imagesMsg struct {
	ctrl   *usecase.NoteDetailController
	images []model.Image
}

type noteDeletedMsg struct {
	ctrl *usecase.NoteDetailController
	err  error
}

type detailView struct {
	ctrl    *usecase.NoteDetailController
	editor  textarea.Model
	images  []model.Image
	cursor  int
	picking bool
	picker  textinput.Model
}

func (a *App) enterDetail(note model.Note) tea.Cmd {
	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.SetValue(note.Text)

	picker := textinput.New()
	picker.Placeholder = "path to image, empty to cancel"

	v := &detailView{
		ctrl:   a.deps.NewDetail(a.session, note, a.notices),
		editor: editor,
		picker: picker,
	}
	v.resize(a.width, a.height)
	a.detail = v
	a.screen = screenDetail

	ctrl, ctx := v.ctrl, a.ctx
	return tea.Batch(v.editor.Focus(), func() tea.Msg {
		return imagesMsg{ctrl: ctrl, images: ctrl.Open(ctx)}
	})
}

func (v *detailView) resize(width, height int) {
	if width > 8 {
		v.editor.SetWidth(width - 8)
	}
	if height > 20 {
		v.editor.SetHeight(height / 3)
	}
}

// imagesCmd runs op and reports the refreshed image list.
func (a *App) imagesCmd(op func() error) tea.Cmd {
	ctrl := a.detail.ctrl
	return func() tea.Msg {
		if err := op(); err != nil {
			var denied *usecase.PermissionDeniedError
			if !errors.As(err, &denied) {
				a.logger.Debug("image operation failed", "error", err)
			}
		}
		return imagesMsg{ctrl: ctrl, images: ctrl.Images()}
	}
}

func (a *App) updateDetail(msg tea.Msg) tea.Cmd {
	v := a.detail

	switch msg := msg.(type) {
	case imagesMsg:
		if msg.ctrl != v.ctrl {
			return nil
		}
		v.images = msg.images
		if v.cursor >= len(v.images) {
			v.cursor = max(len(v.images)-1, 0)
		}
		return nil

	case noteDeletedMsg:
		if msg.ctrl != v.ctrl || msg.err != nil {
			return nil
		}
		return a.returnToList()

	case tea.KeyMsg:
		if v.picking {
			return a.updatePicker(msg)
		}
		ctrl, ctx := v.ctrl, a.ctx
		switch msg.String() {
		case "esc":
			a.screen = screenList
			a.detail = nil
			return a.list.input.Focus()
		case "ctrl+s":
			ctrl.Edit(v.editor.Value())
			if err := a.list.ctrl.Deliver(ctrl.Save()); err != nil {
				a.notice = "Previous edit is still saving, try again"
				return nil
			}
			return a.returnToList()
		case "ctrl+d":
			return func() tea.Msg {
				return noteDeletedMsg{ctrl: ctrl, err: ctrl.Delete(ctx)}
			}
		case "ctrl+p":
			return a.imagesCmd(func() error { return ctrl.AttachFromCamera(ctx) })
		case "ctrl+f":
			v.picking = true
			v.picker.SetValue("")
			v.editor.Blur()
			return v.picker.Focus()
		case "ctrl+x":
			if len(v.images) == 0 {
				return nil
			}
			loc := v.images[v.cursor].Locator
			return a.imagesCmd(func() error { return ctrl.RemoveImage(ctx, loc) })
		case "pgup":
			if v.cursor > 0 {
				v.cursor--
			}
			return nil
		case "pgdown":
			if v.cursor < len(v.images)-1 {
				v.cursor++
			}
			return nil
		}
	}

	var cmd tea.Cmd
	v.editor, cmd = v.editor.Update(msg)
	v.ctrl.Edit(v.editor.Value())
	return cmd
}

func (a *App) updatePicker(msg tea.KeyMsg) tea.Cmd {
	v := a.detail
	switch msg.String() {
	case "esc", "enter":
		v.picking = false
		v.picker.Blur()
		ref := ""
		if msg.String() == "enter" {
			ref = v.picker.Value()
		}
		ctrl, ctx := v.ctrl, a.ctx
		return tea.Batch(v.editor.Focus(), a.imagesCmd(func() error {
			return ctrl.AttachFromLibrary(ctx, ref)
		}))
	}
	var cmd tea.Cmd
	v.picker, cmd = v.picker.Update(msg)
	return cmd
}

func (v *detailView) view() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Details") + "\n\n")
	b.WriteString(v.editor.View() + "\n\n")

	if v.picking {
		b.WriteString(v.picker.View() + "\n\n")
	}

	b.WriteString(labelStyle.Render("Images") + "\n")
	if len(v.images) == 0 {
		b.WriteString(subtitleStyle.Render("No images attached.") + "\n")
	}
	for i, img := range v.images {
		if i == v.cursor {
			b.WriteString(selectedItemStyle.Render(img.URL) + "\n")
		} else {
			b.WriteString(itemStyle.Render(img.URL) + "\n")
		}
	}

	b.WriteString("\n" + helpStyle.Render(
		"ctrl+s save • ctrl+d delete • ctrl+p camera • ctrl+f pick file • pgup/pgdn select image • ctrl+x remove image • esc back"))
	return b.String()
}
