// Package ui is the interactive client: a login/register screen and the chat
// screen, routed by whether the session manager holds a valid identity.
package ui

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"jobchat/internal/chat"
	"jobchat/internal/clipboard"
	"jobchat/internal/export"
	"jobchat/internal/logging"
	"jobchat/internal/render"
	"jobchat/internal/session"
)

const expiryCheckInterval = 30 * time.Second

type Options struct {
	Sessions *session.Manager
	Auth     Authenticator
	Executor chat.Executor
	Exports  *export.Writer
	// Exporter picks the ctrl+e format; markdown when nil.
	Exporter export.Exporter
	// Clipboard defaults to the system clipboard.
	Clipboard    func(ctx context.Context, text string) error
	GlamourStyle string
	Logger       *slog.Logger
	Now          func() time.Time
}

type screen int

const (
	screenAuth screen = iota
	screenChat
)

type expiryTickMsg struct{}

type App struct {
	opts   Options
	screen screen
	auth   authModel
	chat   chatModel
	width  int
	height int
	// startCmd is the first command of a chat screen restored at startup.
	startCmd tea.Cmd
}

func NewApp(opts Options) App {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.Copy
	}
	if opts.Exporter == nil {
		opts.Exporter = &export.MarkdownExporter{}
	}
	if opts.GlamourStyle == "" {
		opts.GlamourStyle = render.DefaultStyle
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := App{opts: opts, auth: newAuthModel(opts.Auth)}
	if s := opts.Sessions.Current(); s.LoggedIn() {
		a.screen = screenChat
		a.chat, a.startCmd = newChatModel(s, opts).start()
	}
	return a
}

func expiryTick() tea.Cmd {
	return tea.Tick(expiryCheckInterval, func(time.Time) tea.Msg { return expiryTickMsg{} })
}

func (a App) Init() tea.Cmd {
	return tea.Batch(expiryTick(), a.initScreen())
}

func (a App) initScreen() tea.Cmd {
	if a.screen == screenChat {
		return a.startCmd
	}
	return a.auth.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		var authCmd, chatCmd tea.Cmd
		a.auth, authCmd = a.auth.Update(msg)
		if a.screen == screenChat {
			a.chat, chatCmd = a.chat.Update(msg)
		}
		return a, tea.Batch(authCmd, chatCmd)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (a.screen == screenAuth && msg.String() == "esc") {
			return a, tea.Quit
		}

	case expiryTickMsg:
		s, changed, err := a.opts.Sessions.Refresh(context.Background())
		if err != nil {
			a.opts.Logger.Warn("clear expired session", "error", err)
		}
		if changed && !s.LoggedIn() && a.screen == screenChat {
			a.toAuth("Your session has expired. Please log in again.")
		}
		return a, expiryTick()

	case authResultMsg:
		if msg.err != nil {
			break
		}
		return a.completeLogin(msg.token)

	case logoutRequestMsg:
		if _, err := a.opts.Sessions.Logout(context.Background()); err != nil {
			a.opts.Logger.Warn("logout", "error", err)
		}
		a.toAuth("You have been logged out.")
		return a, a.auth.Init()
	}

	var cmd tea.Cmd
	if a.screen == screenChat {
		a.chat, cmd = a.chat.Update(msg)
	} else {
		a.auth, cmd = a.auth.Update(msg)
	}
	return a, cmd
}

func (a App) completeLogin(token string) (tea.Model, tea.Cmd) {
	s, err := a.opts.Sessions.Login(context.Background(), token)
	if !s.LoggedIn() {
		a.auth.fail("Received an invalid or expired token.")
		return a, nil
	}
	if err != nil {
		// Logged in for this run only.
		a.opts.Logger.Warn("persist session", "error", err)
	}
	a.auth.submitting = false
	a.auth.password.Reset()

	a.screen = screenChat
	a.chat = newChatModel(s, a.opts)
	if err != nil {
		a.chat.status = "Session could not be saved; you will need to log in again next time"
	}
	a.chat.width, a.chat.height = a.width, a.height
	a.chat.resize()
	var cmd tea.Cmd
	a.chat, cmd = a.chat.start()
	return a, cmd
}

func (a *App) toAuth(notice string) {
	a.screen = screenAuth
	a.chat = chatModel{}
	a.auth.submitting = false
	a.auth.err = ""
	a.auth.notice = notice
	a.auth.password.Reset()
}

func (a App) View() string {
	if a.screen == screenChat {
		return a.chat.View()
	}
	return a.auth.View()
}

// Screen names the visible screen, for callers and tests.
func (a App) Screen() string {
	if a.screen == screenChat {
		return "chat"
	}
	return "auth"
}
