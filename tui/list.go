package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"notebook/dto"
	"notebook/model"
	"notebook/usecase"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type notesChangedMsg struct {
	changes chan struct{}
}

type noteAddedMsg struct {
	err error
}

type editAppliedMsg struct {
	err error
}

type reminderScheduledMsg struct {
	reminder model.Reminder
	err      error
}

type listView struct {
	ctrl    *usecase.NoteListController
	input   textinput.Model
	items   []dto.NoteListItem
	cursor  int
	changes chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// enterList builds the list controller for session and starts watching
// the store.
func (a *App) enterList(session model.Session) tea.Cmd {
	a.session = session
	a.screen = screenList

	ctx, cancel := context.WithCancel(a.ctx)
	input := textinput.New()
	input.Placeholder = "Insert note"
	input.CharLimit = 0

	v := &listView{
		ctrl:    a.deps.NewList(session, a.notices),
		input:   input,
		changes: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	a.list = v

	changes := v.changes
	err := v.ctrl.Watch(ctx, func([]model.Note) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	if err != nil {
		a.logger.Error("failed to watch notes", "error", err)
	}
	return tea.Batch(v.input.Focus(), v.waitForChange())
}

func (v *listView) waitForChange() tea.Cmd {
	ctx, changes := v.ctx, v.changes
	return func() tea.Msg {
		select {
		case <-changes:
			return notesChangedMsg{changes: changes}
		case <-ctx.Done():
			return nil
		}
	}
}

func (v *listView) refresh() {
	v.items = v.ctrl.Items()
	if v.cursor >= len(v.items) {
		v.cursor = max(len(v.items)-1, 0)
	}
}

func (a *App) updateList(msg tea.Msg) tea.Cmd {
	v := a.list

	switch msg := msg.(type) {
	case notesChangedMsg:
		if msg.changes != v.changes {
			return nil
		}
		v.refresh()
		return v.waitForChange()

	case noteAddedMsg:
		v.input.SetValue(v.ctrl.Input())
		v.input.CursorEnd()
		return nil

	case editAppliedMsg:
		if msg.err == nil {
			v.refresh()
		}
		return nil

	case reminderScheduledMsg:
		if msg.err != nil {
			var denied *usecase.PermissionDeniedError
			if errors.As(msg.err, &denied) {
				a.notice = "Notifications are turned off!"
			}
			return nil
		}
		a.notice = "Reminder set for " + msg.reminder.When.Format("Mon 15:04")
		v.input.SetValue("")
		v.ctrl.SetInput("")
		return nil

	case signedOutMsg:
		if msg.err != nil {
			a.logger.Warn("sign out failed", "error", msg.err)
		}
		v.cancel()
		a.list = nil
		a.session = model.Session{}
		a.login = newLoginView()
		a.screen = screenLogin
		a.notice = "Signed out"
		return textinput.Blink

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			v.ctrl.SetInput(v.input.Value())
			ctrl, ctx := v.ctrl, v.ctx
			return func() tea.Msg {
				_, err := ctrl.AddNote(ctx)
				return noteAddedMsg{err: err}
			}
		case "up":
			if v.cursor > 0 {
				v.cursor--
			}
			return nil
		case "down":
			if v.cursor < len(v.items)-1 {
				v.cursor++
			}
			return nil
		case "tab":
			if len(v.items) == 0 {
				return nil
			}
			note, err := v.ctrl.Select(v.items[v.cursor].ID)
			if err != nil {
				a.notice = "That note is gone"
				return nil
			}
			return a.enterDetail(note)
		case "ctrl+r":
			return a.scheduleReminder()
		case "ctrl+l":
			if a.deps.Auth == nil {
				return nil
			}
			return a.signOut()
		case "esc":
			return tea.Quit
		}
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	v.ctrl.SetInput(v.input.Value())
	return cmd
}

func (a *App) scheduleReminder() tea.Cmd {
	v := a.list
	when, body, err := parseReminder(v.input.Value(), time.Now())
	if err != nil {
		a.notice = "Reminder: " + err.Error()
		return nil
	}
	ctrl, ctx := v.ctrl, v.ctx
	return func() tea.Msg {
		reminder, err := ctrl.ScheduleReminder(ctx, when, body)
		return reminderScheduledMsg{reminder: reminder, err: err}
	}
}

// returnToList re-focuses the list and applies a delivered edit.
func (a *App) returnToList() tea.Cmd {
	a.screen = screenList
	a.detail = nil

	v := a.list
	v.refresh()
	ctrl, ctx := v.ctrl, v.ctx
	return tea.Batch(v.input.Focus(), func() tea.Msg {
		return editAppliedMsg{err: ctrl.Focus(ctx)}
	})
}

func (v *listView) view(canSignOut bool) string {
	var b strings.Builder
	b.WriteString(v.input.View() + "\n\n")

	if len(v.items) == 0 {
		b.WriteString(subtitleStyle.Render("No notes yet.") + "\n")
	}
	for i, item := range v.items {
		if i == v.cursor {
			b.WriteString(selectedItemStyle.Render(item.Label) + "\n")
		} else {
			b.WriteString(itemStyle.Render(item.Label) + "\n")
		}
	}

	help := "enter add • ↑/↓ select • tab open • ctrl+r remind (\"10m text\") • esc quit"
	if canSignOut {
		help += " • ctrl+l sign out"
	}
	b.WriteString("\n" + helpStyle.Render(help))
	return b.String()
}
