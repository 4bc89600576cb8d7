package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Greeting seeds every new transcript.
const Greeting = "Hi! How can I help you today? Try asking to 'show all jobs' or 'update my profile'."

// Message is one transcript entry. Parsed is computed once when the message
// is created; user messages are never parsed.
type Message struct {
	ID        string        `json:"id" yaml:"id"`
	Role      Role          `json:"role" yaml:"role"`
	Content   string        `json:"content" yaml:"content"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
	Parsed    ParsedContent `json:"-" yaml:"-"`
}

func newMessage(role Role, content string, at time.Time) Message {
	m := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: at,
	}
	if role == RoleAssistant {
		m.Parsed = Parse(content)
	} else {
		m.Parsed = ParsedContent{Text: content}
	}
	return m
}

// IsError reports whether an assistant message describes a failed request.
func (m Message) IsError() bool {
	return m.Role == RoleAssistant && strings.HasPrefix(m.Content, errorPrefix)
}
