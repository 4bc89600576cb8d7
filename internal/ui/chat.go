package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"

	"jobchat/internal/api"
	"jobchat/internal/chat"
	"jobchat/internal/clipboard"
	"jobchat/internal/export"
	"jobchat/internal/highlight"
	"jobchat/internal/logging"
	"jobchat/internal/render"
	"jobchat/internal/session"
)

const promptPlaceholder = "Ask something, e.g. 'show all jobs'"

type replyMsg struct {
	msg chat.Message
}
type renderMsg struct {
	rendered string
	nonce    int
}
type exportMsg struct {
	path string
	err  error
}
type copyMsg struct {
	err error
}
type logoutRequestMsg struct{}

type searchState int

const (
	searchOff searchState = iota
	searchTyping
	searchBrowsing
)

type chatModel struct {
	ctl      *chat.Controller
	session  session.Session
	deps     Options
	viewport viewport.Model
	input    textinput.Model
	search   textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     chatKeyMap

	width  int
	height int

	rendered    string
	rendering   bool
	renderNonce int

	searchMode  searchState
	searchQuery string
	matches     highlight.Matches
	matchIndex  int

	status string
}

func newChatModel(s session.Session, deps Options) chatModel {
	ctl := chat.NewController(deps.Executor, chat.WithLogger(deps.Logger), chat.WithClock(deps.Now))

	in := textinput.New()
	in.Placeholder = promptPlaceholder
	in.Prompt = "> "
	in.CharLimit = 0
	in.Focus()

	search := textinput.New()
	search.Placeholder = "Search transcript..."
	search.Prompt = "/ "
	search.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Points

	vp := viewport.New(60, 20)
	vp.SetContent("Loading conversation...")

	return chatModel{
		ctl:        ctl,
		session:    s,
		deps:       deps,
		viewport:   vp,
		input:      in,
		search:     search,
		spinner:    sp,
		help:       help.New(),
		keys:       defaultChatKeys(),
		matchIndex: -1,
	}
}

// start kicks off the first render. It returns the model because the render
// nonce lives on it.
func (m chatModel) start() (chatModel, tea.Cmd) {
	cmd := m.renderCmd()
	return m, tea.Batch(textinput.Blink, cmd)
}

// requestContext carries the session for the bearer token and a fresh
// request id for log correlation.
func (m chatModel) requestContext() context.Context {
	ctx := session.NewContext(context.Background(), m.session)
	return logging.WithRequestID(ctx, uuid.NewString())
}

func (m chatModel) completeCmd(p chat.Pending) tea.Cmd {
	ctl := m.ctl
	ctx := m.requestContext()
	return func() tea.Msg {
		return replyMsg{msg: ctl.Complete(ctx, p)}
	}
}

// renderCmd re-renders the whole transcript; stale results are dropped by
// nonce.
func (m *chatModel) renderCmd() tea.Cmd {
	m.rendering = true
	m.renderNonce++
	nonce := m.renderNonce
	msgs := m.ctl.Messages()
	style := m.deps.GlamourStyle
	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	return func() tea.Msg {
		md := render.TranscriptMarkdown(msgs)
		return renderMsg{rendered: render.Markdown(md, style, wrap), nonce: nonce}
	}
}

func (m chatModel) exportCmd() tea.Cmd {
	if m.deps.Exports == nil {
		return nil
	}
	w, e := m.deps.Exports, m.deps.Exporter
	t := export.Transcript{Messages: m.ctl.Messages()}
	if m.session.Identity != nil {
		t.Account = m.session.Identity.Email
		t.Role = m.session.Identity.Role
	}
	return func() tea.Msg {
		path, err := w.Write(t, e)
		return exportMsg{path: path, err: err}
	}
}

func (m chatModel) copyCmd(text string) tea.Cmd {
	cp := m.deps.Clipboard
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyMsg{err: cp(ctx, text)}
	}
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		cmd := m.renderCmd()
		return m, cmd

	case replyMsg:
		m.input.Placeholder = promptPlaceholder
		cmds = append(cmds, m.input.Focus(), m.renderCmd())
		return m, tea.Batch(cmds...)

	case renderMsg:
		if msg.nonce != m.renderNonce {
			return m, nil
		}
		m.rendering = false
		m.rendered = msg.rendered
		m.refreshViewport(true)
		return m, nil

	case exportMsg:
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Exported: " + msg.path
		}
		return m, nil

	case copyMsg:
		switch {
		case errors.Is(msg.err, clipboard.ErrUnavailable):
			m.status = "Could not copy: no clipboard available"
		case msg.err != nil:
			m.status = "Could not copy: " + msg.err.Error()
		default:
			m.status = "Copied GraphQL to clipboard"
		}
		return m, nil

	case spinner.TickMsg:
		if !m.ctl.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode == searchTyping {
			return m.updateSearchInput(msg)
		}
		if m.searchMode == searchBrowsing {
			switch {
			case key.Matches(msg, m.keys.NextHit):
				m.jumpToMatch(1)
				return m, nil
			case key.Matches(msg, m.keys.PrevHit):
				m.jumpToMatch(-1)
				return m, nil
			case key.Matches(msg, m.keys.Esc):
				m.clearSearch()
				cmd := m.input.Focus()
				return m, cmd
			}
		}

		switch {
		case key.Matches(msg, m.keys.Logout):
			return m, func() tea.Msg { return logoutRequestMsg{} }
		case key.Matches(msg, m.keys.Search):
			m.searchMode = searchTyping
			m.search.SetValue(m.searchQuery)
			m.search.CursorEnd()
			m.input.Blur()
			cmd := m.search.Focus()
			return m, cmd
		case key.Matches(msg, m.keys.PageUp):
			m.viewport.HalfViewUp()
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.viewport.HalfViewDown()
			return m, nil
		case key.Matches(msg, m.keys.Export):
			return m, m.exportCmd()
		case key.Matches(msg, m.keys.Copy):
			q, ok := m.ctl.LastQuery()
			if !ok {
				m.status = "No generated GraphQL to copy yet"
				return m, nil
			}
			return m, m.copyCmd(q)
		case key.Matches(msg, m.keys.Send):
			return m.submit()
		}
		if m.searchMode == searchBrowsing {
			return m, nil
		}
	}

	if !m.ctl.Busy() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m chatModel) submit() (chatModel, tea.Cmd) {
	p, err := m.ctl.Begin(m.input.Value())
	switch {
	case errors.Is(err, chat.ErrEmptyPrompt):
		return m, nil
	case errors.Is(err, chat.ErrBusy):
		m.status = "Still waiting for the previous answer"
		return m, nil
	case err != nil:
		m.status = err.Error()
		return m, nil
	}
	m.input.Reset()
	m.input.Placeholder = "..."
	m.input.Blur()
	m.status = ""
	cmd := tea.Batch(m.completeCmd(p), m.renderCmd(), m.spinner.Tick)
	return m, cmd
}

func (m chatModel) updateSearchInput(msg tea.KeyMsg) (chatModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.clearSearch()
		cmd := m.input.Focus()
		return m, cmd
	case "enter":
		m.search.Blur()
		m.searchQuery = strings.TrimSpace(m.search.Value())
		if m.searchQuery == "" {
			m.clearSearch()
			cmd := m.input.Focus()
			return m, cmd
		}
		m.searchMode = searchBrowsing
		m.refreshViewport(false)
		m.jumpToMatch(0)
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if q := strings.TrimSpace(m.search.Value()); q != m.searchQuery {
		m.searchQuery = q
		m.refreshViewport(false)
	}
	return m, cmd
}

func (m *chatModel) clearSearch() {
	m.searchMode = searchOff
	m.searchQuery = ""
	m.search.SetValue("")
	m.search.Blur()
	m.refreshViewport(false)
}

// refreshViewport applies the current search highlight to the rendered
// transcript. A fresh render scrolls to the newest message.
func (m *chatModel) refreshViewport(fresh bool) {
	offset := m.viewport.YOffset
	content := m.rendered
	if m.searchQuery != "" {
		m.matches = highlight.Search(m.rendered, m.searchQuery, func(s string) string {
			return searchMatchStyle.Render(s)
		})
		content = m.matches.Text
		if m.matchIndex >= len(m.matches.Lines) {
			m.matchIndex = -1
		}
	} else {
		m.matches = highlight.Matches{}
		m.matchIndex = -1
	}
	m.viewport.SetContent(content)
	if fresh && m.searchMode == searchOff {
		m.viewport.GotoBottom()
		return
	}
	m.viewport.SetYOffset(m.clampViewportOffset(offset))
}

// jumpToMatch moves to the next (delta > 0), previous (delta < 0) or first
// (delta == 0) line with a hit, wrapping around.
func (m *chatModel) jumpToMatch(delta int) {
	if len(m.matches.Lines) == 0 {
		m.status = fmt.Sprintf("No matches for %q", m.searchQuery)
		return
	}
	line := m.matches.Lines[0]
	if m.matchIndex >= 0 && delta != 0 {
		current := m.matches.Lines[m.matchIndex]
		if delta > 0 {
			line, _ = m.matches.Next(current)
		} else {
			line, _ = m.matches.Prev(current)
		}
	}
	m.matchIndex = sort.SearchInts(m.matches.Lines, line)
	m.viewport.SetYOffset(m.clampViewportOffset(line))
	m.status = fmt.Sprintf("Match %d/%d", m.matchIndex+1, len(m.matches.Lines))
}

func (m *chatModel) clampViewportOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

func (m *chatModel) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	// header, panel border, input, status and help lines
	bodyHeight := m.height - 7
	if bodyHeight < 5 {
		bodyHeight = 5
	}
	m.viewport.Width = m.width - 4
	m.viewport.Height = bodyHeight
	m.input.Width = m.width - 6
	m.search.Width = m.width - 6
}

func (m chatModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	body := panelStyle(m.searchMode == searchOff).
		Width(m.width - 2).
		Render(m.viewport.View())

	input := m.input.View()
	switch {
	case m.searchMode == searchTyping:
		input = m.search.View()
	case m.ctl.Busy():
		input = m.spinner.View() + " " + input
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		body,
		input,
		m.statusLine(),
		m.help.View(m.keys),
	)
}

func (m chatModel) header() string {
	title := titleStyle.Render("AI Job Assistant")
	if m.session.Identity == nil {
		return title
	}
	welcome := fmt.Sprintf("Welcome, %s!", m.session.Identity.Email)
	if role := api.RoleLabel(m.session.Identity.Role); role != "" {
		welcome += " (" + role + ")"
	}
	return title + "  " + mutedStyle.Render(welcome)
}

func (m chatModel) statusLine() string {
	parts := []string{fmt.Sprintf("messages=%d", m.ctl.Len())}
	if !m.session.ExpiresAt.IsZero() {
		parts = append(parts, "expires="+m.session.ExpiresAt.Local().Format("15:04"))
	}
	if m.ctl.Busy() {
		parts = append(parts, "[waiting]")
	}
	if m.rendering {
		parts = append(parts, "[rendering]")
	}
	if m.searchQuery != "" {
		parts = append(parts, fmt.Sprintf("[search %q: %d]", m.searchQuery, m.matches.Count))
	}
	if s := strings.TrimSpace(m.status); s != "" {
		parts = append(parts, s)
	}
	line := strings.Join(parts, "  ")
	if m.width > 4 {
		line = ansi.Truncate(line, m.width-2, "…")
	}
	return statusStyle.Render(line)
}
