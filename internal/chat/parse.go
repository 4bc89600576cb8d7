package chat

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

const (
	queryMarker  = "**Generated GraphQL:**"
	resultMarker = "**Result:**"
)

// Each block kind has a line form, closed by a fence at the start of a line,
// and an inline form closed by the next fence anywhere. The line form lets a
// result string contain a fence of its own.
var (
	graphqlLine   = regexp.MustCompile("(?s)```graphql[ \t]*\n(.*?)\n[ \t]*```[ \t]*(?:\n|\\z)")
	graphqlInline = regexp.MustCompile("(?s)```graphql(.*?)```")
	jsonLine      = regexp.MustCompile("(?s)```json[ \t]*\n(.*?)\n[ \t]*```[ \t]*(?:\n|\\z)")
	jsonInline    = regexp.MustCompile("(?s)```json(.*?)```")
)

// findBlock returns the submatch indices of the first block of one kind. When
// both forms start at the same fence the line form wins.
func findBlock(content string, line, inline *regexp.Regexp) []int {
	l := line.FindStringSubmatchIndex(content)
	i := inline.FindStringSubmatchIndex(content)
	switch {
	case l == nil:
		return i
	case i == nil || l[0] <= i[0]:
		return l
	default:
		return i
	}
}

// ParsedContent splits an assistant message into prose, the generated query
// and the decoded result.
type ParsedContent struct {
	Text      string
	Query     string
	Result    any
	HasResult bool
	// RawResult is the trimmed interior of the json block as written.
	RawResult string
}

// Parse extracts the first graphql and json fenced blocks from content. The
// json block is decoded with numbers kept as json.Number; when it does not
// decode, Result holds the trimmed raw text instead. Content with neither
// block comes back unchanged as Text.
func Parse(content string) ParsedContent {
	gql := findBlock(content, graphqlLine, graphqlInline)
	js := findBlock(content, jsonLine, jsonInline)
	if gql == nil && js == nil {
		return ParsedContent{Text: content}
	}

	var out ParsedContent
	text := content
	if gql != nil {
		out.Query = strings.TrimSpace(content[gql[2]:gql[3]])
		text = strings.Replace(text, content[gql[0]:gql[1]], "", 1)
	}
	if js != nil {
		raw := strings.TrimSpace(content[js[2]:js[3]])
		out.HasResult = true
		out.RawResult = raw
		if v, err := decodeJSON(raw); err == nil {
			out.Result = v
		} else {
			out.Result = raw
		}
		text = strings.Replace(text, content[js[0]:js[1]], "", 1)
	}
	text = strings.Replace(text, queryMarker, "", 1)
	text = strings.Replace(text, resultMarker, "", 1)
	out.Text = strings.TrimSpace(text)
	return out
}

var errTrailingData = errors.New("trailing data after json value")

func decodeJSON(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return v, nil
}
