package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jobchat/internal/api"
)

// Authenticator exchanges credentials for a token. *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password, role string) (string, error)
}

type authMode int

const (
	modeLogin authMode = iota
	modeRegister
)

const (
	fieldEmail = iota
	fieldPassword
	fieldRole
)

// authResultMsg carries the outcome of a login or register call.
type authResultMsg struct {
	token string
	err   error
}

type authModel struct {
	client Authenticator

	email    textinput.Model
	password textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     authKeyMap

	mode       authMode
	focus      int
	role       int
	submitting bool
	err        string
	notice     string
	width      int
}

func newAuthModel(client Authenticator) authModel {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email:    "
	email.CharLimit = 254

	pw := textinput.New()
	pw.Placeholder = "password"
	pw.Prompt = "Password: "
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'
	pw.CharLimit = 128

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := authModel{
		client:   client,
		email:    email,
		password: pw,
		spinner:  sp,
		help:     help.New(),
		keys:     defaultAuthKeys(),
	}
	m.email.Focus()
	return m
}

func (m authModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m authModel) fields() int {
	if m.mode == modeRegister {
		return 3
	}
	return 2
}

func (m *authModel) setFocus(f int) tea.Cmd {
	m.focus = f
	m.email.Blur()
	m.password.Blur()
	switch f {
	case fieldEmail:
		return m.email.Focus()
	case fieldPassword:
		return m.password.Focus()
	}
	return nil
}

// fail shows err under the form and ends the in-flight submission.
func (m *authModel) fail(err string) {
	m.submitting = false
	m.err = err
}

func (m authModel) submitCmd() tea.Cmd {
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()
	mode := m.mode
	role := api.Roles[m.role].Value
	client := m.client

	return func() tea.Msg {
		ctx := context.Background()
		var (
			token string
			err   error
		)
		if mode == modeRegister {
			token, err = client.Register(ctx, email, password, role)
		} else {
			token, err = client.Login(ctx, email, password)
		}
		return authResultMsg{token: token, err: err}
	}
}

func (m authModel) Update(msg tea.Msg) (authModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case authResultMsg:
		// Successful results are consumed by App, which owns the session.
		if msg.err != nil {
			m.fail(msg.err.Error())
		}
		return m, nil

	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.SwitchTab):
			if m.mode == modeLogin {
				m.mode = modeRegister
			} else {
				m.mode = modeLogin
			}
			m.err = ""
			cmd := m.setFocus(fieldEmail)
			return m, cmd
		case key.Matches(msg, m.keys.NextField):
			cmd := m.setFocus((m.focus + 1) % m.fields())
			return m, cmd
		case key.Matches(msg, m.keys.PrevField):
			cmd := m.setFocus((m.focus - 1 + m.fields()) % m.fields())
			return m, cmd
		case m.focus == fieldRole && key.Matches(msg, m.keys.CycleRole):
			if msg.String() == "left" {
				m.role = (m.role - 1 + len(api.Roles)) % len(api.Roles)
			} else {
				m.role = (m.role + 1) % len(api.Roles)
			}
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			if strings.TrimSpace(m.email.Value()) == "" || m.password.Value() == "" {
				m.err = "Email and password are required."
				return m, nil
			}
			m.submitting = true
			m.err = ""
			m.notice = ""
			return m, tea.Batch(m.submitCmd(), m.spinner.Tick)
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldEmail:
		m.email, cmd = m.email.Update(msg)
	case fieldPassword:
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m authModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("AI Job Portal") + "\n\n")

	loginTab, registerTab := inactiveTabStyle, inactiveTabStyle
	if m.mode == modeLogin {
		loginTab = activeTabStyle
	} else {
		registerTab = activeTabStyle
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		loginTab.Render("Login"), " ", registerTab.Render("Register")) + "\n\n")

	b.WriteString(m.email.View() + "\n")
	b.WriteString(m.password.View() + "\n")
	if m.mode == modeRegister {
		b.WriteString(m.roleView() + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.submitting:
		b.WriteString(m.spinner.View() + " " + m.actionLabel() + "...\n")
	case m.err != "":
		b.WriteString(errorStyle.Render(m.err) + "\n")
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice) + "\n")
	default:
		b.WriteString(mutedStyle.Render("Press enter to "+strings.ToLower(m.actionLabel())) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))

	width := m.width - 4
	if width < 40 {
		width = 40
	}
	if width > 72 {
		width = 72
	}
	return panelStyle(true).Width(width).Render(b.String())
}

func (m authModel) roleView() string {
	label := "Role:     "
	value := "< " + api.Roles[m.role].Label + " >"
	if m.focus == fieldRole {
		return label + titleStyle.Render(value)
	}
	return label + mutedStyle.Render(value)
}

func (m authModel) actionLabel() string {
	if m.mode == modeRegister {
		return "Register"
	}
	return "Login"
}
