// Package export writes the chat transcript to disk on request. Nothing is
// written implicitly.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jobchat/internal/chat"
)

// Transcript is one export: the conversation plus who it belongs to.
type Transcript struct {
	Account    string         `json:"account,omitempty" yaml:"account,omitempty"`
	Role       string         `json:"role,omitempty" yaml:"role,omitempty"`
	ExportedAt time.Time      `json:"exported_at" yaml:"exported_at"`
	Messages   []chat.Message `json:"-" yaml:"-"`
}

type Exporter interface {
	Export(t Transcript, w io.Writer) error
	Extension() string
}

func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown":
		return &MarkdownExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json, yaml)", format)
	}
}

// Writer places export files in a directory, relative paths resolving
// against the working directory.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) (*Writer, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" || !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve cwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

func (w *Writer) Dir() string {
	return w.dir
}

// Write renders t with e into jobchat-<timestamp>.<ext> and returns the path.
// An existing file is never overwritten; a numeric suffix is added instead.
func (w *Writer) Write(t Transcript, e Exporter) (string, error) {
	if t.ExportedAt.IsZero() {
		t.ExportedAt = w.now()
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	base := "jobchat-" + t.ExportedAt.Format("20060102-150405")
	for n := 1; ; n++ {
		name := base
		if n > 1 {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		path := filepath.Join(w.dir, name+"."+e.Extension())
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create export file: %w", err)
		}
		if err := e.Export(t, f); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("write export file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close export file: %w", err)
		}
		return path, nil
	}
}
