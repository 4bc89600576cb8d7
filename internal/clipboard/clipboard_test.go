package clipboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendCopy(t *testing.T) {
	var got string
	b := Backend{
		Write:     func(s string) error { got = s; return nil },
		Available: func() bool { return true },
	}
	require.NoError(t, b.Copy(context.Background(), "query { jobs { id } }"))
	assert.Equal(t, "query { jobs { id } }", got)
}

func TestBackendUnavailable(t *testing.T) {
	b := Backend{
		Write:     func(string) error { t.Fatal("write must not be called"); return nil },
		Available: func() bool { return false },
	}
	assert.ErrorIs(t, b.Copy(context.Background(), "x"), ErrUnavailable)
	assert.ErrorIs(t, Backend{}.Copy(context.Background(), "x"), ErrUnavailable)
}

func TestBackendWrapsWriteError(t *testing.T) {
	boom := errors.New("xclip exited 1")
	b := Backend{Write: func(string) error { return boom }}
	err := b.Copy(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "write clipboard")
}

func TestBackendHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	b := Backend{Write: func(string) error { <-block; return nil }}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Copy(ctx, "x"), context.DeadlineExceeded)

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	assert.ErrorIs(t, b.Copy(cancelled, "x"), context.Canceled)
}
