package tui

import (
	"strings"

	"notebook/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type signedInMsg struct {
	session model.Session
	err     error
}

type signedOutMsg struct {
	err error
}

type loginView struct {
	email    textinput.Model
	password textinput.Model
	focus    int
	busy     bool
}

func newLoginView() *loginView {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return &loginView{email: email, password: password}
}

func (v *loginView) credentials() model.Credentials {
	return model.Credentials{
		Email:    strings.TrimSpace(v.email.Value()),
		Password: v.password.Value(),
	}
}

func (v *loginView) toggleFocus() tea.Cmd {
	v.focus = 1 - v.focus
	if v.focus == 0 {
		v.password.Blur()
		return v.email.Focus()
	}
	v.email.Blur()
	return v.password.Focus()
}

func (a *App) updateLogin(msg tea.Msg) tea.Cmd {
	v := a.login

	switch msg := msg.(type) {
	case signedInMsg:
		v.busy = false
		if msg.err != nil {
			a.notice = msg.err.Error()
			return nil
		}
		a.logger.Info("signed in", "user_id", msg.session.UserID)
		a.notice = ""
		v.password.SetValue("")
		return a.enterList(msg.session)

	case tea.KeyMsg:
		if v.busy {
			return nil
		}
		switch msg.String() {
		case "tab", "shift+tab":
			return v.toggleFocus()
		case "enter":
			return a.authenticate(false)
		case "ctrl+u":
			return a.authenticate(true)
		case "esc":
			return tea.Quit
		}
	}

	var cmd tea.Cmd
	if v.focus == 0 {
		v.email, cmd = v.email.Update(msg)
	} else {
		v.password, cmd = v.password.Update(msg)
	}
	return cmd
}

func (a *App) authenticate(signUp bool) tea.Cmd {
	a.login.busy = true
	creds := a.login.credentials()
	auth, ctx := a.deps.Auth, a.ctx
	return func() tea.Msg {
		var (
			session model.Session
			err     error
		)
		if signUp {
			session, err = auth.SignUp(ctx, creds)
		} else {
			session, err = auth.SignIn(ctx, creds)
		}
		return signedInMsg{session: session, err: err}
	}
}

func (a *App) signOut() tea.Cmd {
	auth, ctx, session := a.deps.Auth, a.ctx, a.session
	return func() tea.Msg {
		return signedOutMsg{err: auth.SignOut(ctx, session)}
	}
}

func (v *loginView) view() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Sign in") + "\n\n")
	b.WriteString(v.email.View() + "\n")
	b.WriteString(v.password.View() + "\n\n")
	if v.busy {
		b.WriteString(subtitleStyle.Render("Contacting server...") + "\n")
	}
	b.WriteString(helpStyle.Render("tab switch field • enter sign in • ctrl+u sign up • esc quit"))
	return b.String()
}
