// Package clipboard copies text (usually a generated GraphQL operation) to
// the system clipboard.
package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

var ErrUnavailable = errors.New("no clipboard backend available")

type Backend struct {
	Write     func(string) error
	Available func() bool
}

// System uses whatever the OS provides: pbcopy, wl-copy, xclip, xsel or the
// Windows API.
func System() Backend {
	return Backend{
		Write:     clipboard.WriteAll,
		Available: func() bool { return !clipboard.Unsupported },
	}
}

func Copy(ctx context.Context, text string) error {
	return System().Copy(ctx, text)
}

// Copy writes text to the clipboard. The helper process may hang when no
// display is attached, so the call gives up when ctx is done.
func (b Backend) Copy(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.Write == nil || (b.Available != nil && !b.Available()) {
		return ErrUnavailable
	}

	done := make(chan error, 1)
	go func() { done <- b.Write(text) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write clipboard: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
