package export

import (
	"io"
	"strings"
	"time"

	"jobchat/internal/chat"
)

type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(t Transcript, w io.Writer) error {
	_, err := io.WriteString(w, BuildMarkdown(t))
	return err
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}

func BuildMarkdown(t Transcript) string {
	var b strings.Builder
	b.WriteString("# Job assistant transcript\n\n")
	b.WriteString("Exported: " + t.ExportedAt.UTC().Format(time.RFC3339) + "\n\n")
	if t.Account != "" {
		b.WriteString("```text\n")
		b.WriteString("account: " + t.Account + "\n")
		b.WriteString("role: " + safeValue(t.Role) + "\n")
		b.WriteString("```\n\n")
	}
	b.WriteString(BuildTranscriptMarkdown(t.Messages))
	return b.String()
}

// BuildTranscriptMarkdown renders messages under "## You" and
// "## Assistant" headers. Assistant content already is markdown and is kept
// verbatim, fenced blocks included.
func BuildTranscriptMarkdown(messages []chat.Message) string {
	var b strings.Builder
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch m.Role {
		case chat.RoleUser:
			b.WriteString("## You\n\n")
		default:
			b.WriteString("## Assistant\n\n")
		}
		b.WriteString(content + "\n\n")
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}
