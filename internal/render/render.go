// Package render turns transcript messages into terminal output: glamour
// markdown for the TUI and chroma-highlighted blocks for one-shot commands.
package render

import (
	"strings"
	"unicode"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"

	"jobchat/internal/chat"
)

const (
	DefaultStyle = "dark"
	codeStyle    = "monokai"
)

// TranscriptMarkdown lays messages out for display. Assistant replies with a
// query or result are rebuilt from their parsed parts; anything else is
// shown as written.
func TranscriptMarkdown(messages []chat.Message) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case chat.RoleUser:
			b.WriteString("### You\n\n")
			b.WriteString(escapeMarkdown(strings.TrimSpace(m.Content)) + "\n\n")
		default:
			b.WriteString("### Assistant\n\n")
			b.WriteString(AssistantMarkdown(m.Parsed) + "\n\n")
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// escapeMarkdown backslash-escapes ASCII punctuation so a prompt is shown as
// typed instead of being read as markup.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func AssistantMarkdown(p chat.ParsedContent) string {
	if p.Query == "" && !p.HasResult {
		return p.Text
	}
	var parts []string
	if p.Text != "" {
		parts = append(parts, p.Text)
	}
	if p.Query != "" {
		parts = append(parts, "#### Generated GraphQL:\n\n```graphql\n"+p.Query+"\n```")
	}
	if p.HasResult {
		parts = append(parts, "#### Result:\n\n```json\n"+p.RawResult+"\n```")
	}
	return strings.Join(parts, "\n\n")
}

// Markdown renders md with glamour, falling back to the source on failure.
func Markdown(md, style string, width int) string {
	if style == "" {
		style = DefaultStyle
	}
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle(style)}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// Code highlights a snippet for a 256-colour terminal.
func Code(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(codeStyle)
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, it); err != nil {
		return code
	}
	return buf.String()
}

// Plain prints an assistant message for a terminal without markdown
// rendering: prose as is, then the highlighted query and result.
func Plain(m chat.Message, color bool) string {
	p := m.Parsed
	if p.Query == "" && !p.HasResult {
		return p.Text
	}
	hl := func(code, lang string) string {
		if !color {
			return code
		}
		return strings.TrimRight(Code(code, lang), "\n")
	}

	var b strings.Builder
	if p.Text != "" {
		b.WriteString(p.Text + "\n\n")
	}
	if p.Query != "" {
		b.WriteString("Generated GraphQL:\n")
		b.WriteString(hl(p.Query, "graphql") + "\n")
	}
	if p.HasResult {
		if p.Query != "" {
			b.WriteString("\n")
		}
		b.WriteString("Result:\n")
		b.WriteString(hl(p.RawResult, "json") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
