package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"jobchat/internal/chat"
)

func assistant(content string) chat.Message {
	return chat.Message{Role: chat.RoleAssistant, Content: content, Parsed: chat.Parse(content)}
}

func TestAssistantMarkdownFromParsed(t *testing.T) {
	m := assistant(chat.Format("query { jobs { id } }", json.RawMessage(`{"a":1}`)))
	got := AssistantMarkdown(m.Parsed)
	want := "#### Generated GraphQL:\n\n```graphql\nquery { jobs { id } }\n```\n\n" +
		"#### Result:\n\n```json\n{\n  \"a\": 1\n}\n```"
	assert.Equal(t, want, got)
}

func TestAssistantMarkdownPlain(t *testing.T) {
	assert.Equal(t, "**Error:** network down", AssistantMarkdown(assistant(chat.FormatError("network down")).Parsed))
}

func TestTranscriptMarkdownHeaders(t *testing.T) {
	msgs := []chat.Message{
		assistant("Hello there"),
		{Role: chat.RoleUser, Content: " show all jobs ", Parsed: chat.ParsedContent{Text: " show all jobs "}},
	}
	assert.Equal(t, "### Assistant\n\nHello there\n\n### You\n\nshow all jobs\n", TranscriptMarkdown(msgs))
}

func TestUserPromptIsNotMarkup(t *testing.T) {
	prompt := "# jobs *remote* [go](x) 1. `cmd`"
	msgs := []chat.Message{{Role: chat.RoleUser, Content: prompt, Parsed: chat.ParsedContent{Text: prompt}}}

	md := TranscriptMarkdown(msgs)
	assert.Equal(t, "### You\n\n\\# jobs \\*remote\\* \\[go\\]\\(x\\) 1\\. \\`cmd\\`\n", md)

	plain := ansi.Strip(Markdown(md, "notty", 80))
	assert.Contains(t, plain, prompt)
}

func TestMarkdownRendersText(t *testing.T) {
	out := Markdown("# Title\n\nsome *jobs*", "notty", 40)
	plain := ansi.Strip(out)
	assert.Contains(t, plain, "Title")
	assert.Contains(t, plain, "jobs")
}

func TestCodeHighlights(t *testing.T) {
	out := Code(`{"id": 1}`, "json")
	assert.Contains(t, out, "\x1b[")
	assert.Equal(t, `{"id": 1}`, strings.TrimRight(ansi.Strip(out), "\n"))
}

func TestPlainWithoutColor(t *testing.T) {
	m := assistant(chat.Format("query { me { id } }", json.RawMessage(`{"me":null}`)))
	got := Plain(m, false)
	assert.Equal(t, "Generated GraphQL:\nquery { me { id } }\n\nResult:\n{\n  \"me\": null\n}", got)
	assert.False(t, strings.Contains(got, "\x1b["))

	assert.Equal(t, "Hello there", Plain(assistant("Hello there"), false))
}
