package chat

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	noQuery        = "No GraphQL generated."
	unknownFailure = "An unknown error occurred."
	errorPrefix    = "**Error:** "
)

// Format renders a successful backend reply as the assistant message body.
// The result keeps the backend's key order; an absent or null result is shown
// as an empty object.
func Format(query string, result json.RawMessage) string {
	if strings.TrimSpace(query) == "" {
		query = noQuery
	}
	var b strings.Builder
	b.WriteString(queryMarker + "\n\n```graphql\n")
	b.WriteString(query)
	b.WriteString("\n```\n\n" + resultMarker + "\n\n```json\n")
	b.WriteString(prettyRaw(result))
	b.WriteString("\n```")
	return b.String()
}

// FormatError renders a failure. A blank message falls back to a generic one.
func FormatError(message string) string {
	if strings.TrimSpace(message) == "" {
		message = unknownFailure
	}
	return errorPrefix + message
}

func prettyRaw(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(trimmed)
	}
	return buf.String()
}
