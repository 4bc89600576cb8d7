// Package highlight marks search hits inside the rendered transcript. The
// transcript is glamour output, so matching runs over the visible text and
// leaves escape sequences in place.
package highlight

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// CSI (colours) and OSC (hyperlinks) sequences.
var escapeSeq = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)

type Matches struct {
	Text  string
	Count int
	// Lines holds the index of every line with at least one hit, ascending.
	Lines []int
}

// Search wraps every case-insensitive occurrence of query in rendered with
// mark. A blank query returns the input untouched.
func Search(rendered, query string, mark func(string) string) Matches {
	query = strings.TrimSpace(query)
	if query == "" {
		return Matches{Text: rendered}
	}
	if mark == nil {
		mark = func(s string) string { return s }
	}
	needle := strings.ToLower(query)

	lines := strings.Split(rendered, "\n")
	var m Matches
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(ansi.Strip(line)), needle) {
			continue
		}
		marked, n := markLine(line, needle, mark)
		if n == 0 {
			continue
		}
		lines[i] = marked
		m.Count += n
		m.Lines = append(m.Lines, i)
	}
	m.Text = strings.Join(lines, "\n")
	return m
}

// Next returns the first hit line after line, wrapping to the top.
func (m Matches) Next(line int) (int, bool) {
	if len(m.Lines) == 0 {
		return 0, false
	}
	for _, l := range m.Lines {
		if l > line {
			return l, true
		}
	}
	return m.Lines[0], true
}

// Prev returns the last hit line before line, wrapping to the bottom.
func (m Matches) Prev(line int) (int, bool) {
	if len(m.Lines) == 0 {
		return 0, false
	}
	for i := len(m.Lines) - 1; i >= 0; i-- {
		if m.Lines[i] < line {
			return m.Lines[i], true
		}
	}
	return m.Lines[len(m.Lines)-1], true
}

// markLine matches needle against the visible text of line and marks each
// hit piecewise, so escape sequences inside a hit stay where they were.
func markLine(line, needle string, mark func(string) string) (string, int) {
	var runs [][2]int
	var plain strings.Builder
	pos := 0
	for _, seq := range escapeSeq.FindAllStringIndex(line, -1) {
		if seq[0] > pos {
			runs = append(runs, [2]int{pos, seq[0]})
		}
		pos = seq[1]
	}
	if pos < len(line) {
		runs = append(runs, [2]int{pos, len(line)})
	}
	for _, r := range runs {
		plain.WriteString(line[r[0]:r[1]])
	}

	hits := findAll(plain.String(), needle)
	if len(hits) == 0 {
		return line, 0
	}

	var b strings.Builder
	raw, offset, h := 0, 0, 0
	for _, r := range runs {
		b.WriteString(line[raw:r[0]])
		seg := line[r[0]:r[1]]
		for i := 0; i < len(seg); {
			at := offset + i
			for h < len(hits) && hits[h][1] <= at {
				h++
			}
			if h < len(hits) && hits[h][0] <= at {
				end := min(hits[h][1]-offset, len(seg))
				b.WriteString(mark(seg[i:end]))
				i = end
				continue
			}
			next := len(seg)
			if h < len(hits) {
				next = min(next, hits[h][0]-offset)
			}
			b.WriteString(seg[i:next])
			i = next
		}
		offset += len(seg)
		raw = r[1]
	}
	b.WriteString(line[raw:])
	return b.String(), len(hits)
}

// findAll returns the non-overlapping byte ranges of needle in s, ignoring
// case.
func findAll(s, needle string) [][2]int {
	lower := strings.ToLower(s)
	// Lowercasing changed byte offsets; only exact-case hits are safe to mark.
	if len(lower) != len(s) {
		lower = s
	}
	var out [][2]int
	for start := 0; ; {
		rel := strings.Index(lower[start:], needle)
		if rel < 0 {
			return out
		}
		at := start + rel
		out = append(out, [2]int{at, at + len(needle)})
		start = at + len(needle)
	}
}
