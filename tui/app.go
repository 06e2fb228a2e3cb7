// Package tui is the terminal front end: a sign-in screen in authenticated
// mode, the notes list and the note detail screen.
package tui

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"notebook/model"
	"notebook/usecase"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type screen int

const (
	screenLogin screen = iota
	screenList
	screenDetail
)

// Authenticator is the account service used by the sign-in screen.
type Authenticator interface {
	SignUp(ctx context.Context, creds model.Credentials) (model.Session, error)
	SignIn(ctx context.Context, creds model.Credentials) (model.Session, error)
	SignOut(ctx context.Context, session model.Session) error
}

type (
	ListFactory   func(session model.Session, alerts usecase.Alerter) *usecase.NoteListController
	DetailFactory func(session model.Session, note model.Note, alerts usecase.Alerter) *usecase.NoteDetailController
)

type Deps struct {
	// Auth is nil in shared mode; the app then opens on the notes list.
	Auth      Authenticator
	NewList   ListFactory
	NewDetail DetailFactory
	Logger    *slog.Logger
}

// ReminderFiredMsg is sent into the running program when a reminder is due.
type ReminderFiredMsg struct {
	Reminder model.Reminder
}

// noticeQueue collects alerts raised by controllers inside commands. Update
// drains it after every message.
type noticeQueue struct {
	mu      sync.Mutex
	pending []string
}

func (q *noticeQueue) Alert(message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, message)
}

func (q *noticeQueue) drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// App is the root bubbletea model.
type App struct {
	ctx     context.Context
	deps    Deps
	logger  *slog.Logger
	notices *noticeQueue

	screen  screen
	session model.Session
	notice  string
	width   int
	height  int

	login  *loginView
	list   *listView
	detail *detailView
}

func New(ctx context.Context, deps Deps) *App {
	a := &App{
		ctx:     ctx,
		deps:    deps,
		logger:  deps.Logger.With("component", "tui"),
		notices: &noticeQueue{},
	}
	if deps.Auth != nil {
		a.screen = screenLogin
		a.login = newLoginView()
	} else {
		a.screen = screenList
	}
	return a
}

func (a *App) Init() tea.Cmd {
	if a.screen == screenList {
		return a.enterList(model.Session{})
	}
	return textinput.Blink
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	if pending := a.notices.drain(); len(pending) > 0 {
		a.notice = pending[len(pending)-1]
	}
	return a, cmd
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		if a.detail != nil {
			a.detail.resize(msg.Width, msg.Height)
		}
		return nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return tea.Quit
		}

	case ReminderFiredMsg:
		a.notice = "⏰ " + msg.Reminder.Title + ": " + msg.Reminder.Body
		return nil

	// Results of list and detail commands are routed by owner, not by the
	// screen that happens to be active when they arrive.
	case notesChangedMsg, noteAddedMsg, editAppliedMsg, reminderScheduledMsg, signedOutMsg:
		if a.list == nil {
			return nil
		}
		return a.updateList(msg)

	case imagesMsg, noteDeletedMsg:
		if a.detail == nil {
			return nil
		}
		return a.updateDetail(msg)
	}

	switch a.screen {
	case screenLogin:
		return a.updateLogin(msg)
	case screenDetail:
		return a.updateDetail(msg)
	default:
		return a.updateList(msg)
	}
}

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Notebook App"))
	if !a.session.Anonymous() {
		b.WriteString(" " + subtitleStyle.Render(a.session.Email))
	}
	b.WriteString("\n\n")

	switch a.screen {
	case screenLogin:
		b.WriteString(a.login.view())
	case screenDetail:
		b.WriteString(a.detail.view())
	default:
		b.WriteString(a.list.view(a.deps.Auth != nil))
	}

	if a.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(a.notice) + "\n")
	}
	return appStyle.Render(b.String())
}

// Session returns the signed-in session, zero in shared mode.
func (a *App) Session() model.Session {
	return a.session
}
