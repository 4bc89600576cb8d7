package export

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"jobchat/internal/chat"
)

// document is the shape shared by the JSON and YAML exports. Assistant
// messages carry their parsed query and result next to the raw content.
type document struct {
	Transcript `yaml:",inline"`
	Messages   []record `json:"messages" yaml:"messages"`
}

type record struct {
	ID        string    `json:"id" yaml:"id"`
	Role      chat.Role `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Query     string    `json:"graphql,omitempty" yaml:"graphql,omitempty"`
	Result    any       `json:"result,omitempty" yaml:"result,omitempty"`
}

func newDocument(t Transcript) document {
	doc := document{Transcript: t, Messages: make([]record, 0, len(t.Messages))}
	for _, m := range t.Messages {
		r := record{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
		if m.Role == chat.RoleAssistant {
			r.Query = m.Parsed.Query
			r.Result = plainValue(m.Parsed.Result)
		}
		doc.Messages = append(doc.Messages, r)
	}
	return doc
}

// plainValue swaps json.Number for int64 or float64 so YAML writes numbers,
// not quoted strings. Integers too large for int64 keep their digits as a
// string rather than losing precision.
func plainValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if !strings.ContainsAny(t.String(), ".eE") {
			return t.String()
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plainValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}
		return out
	default:
		return v
	}
}

type JSONExporter struct{}

func (e *JSONExporter) Export(t Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newDocument(t))
}

func (e *JSONExporter) Extension() string {
	return "json"
}

type YAMLExporter struct{}

func (e *YAMLExporter) Export(t Transcript, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(newDocument(t)); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
