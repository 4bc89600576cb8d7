package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobchat/internal/api"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func okExecutor(gql, result string) ExecutorFunc {
	return func(ctx context.Context, prompt string) (*api.QueryResponse, error) {
		return &api.QueryResponse{Status: http.StatusOK, GraphQL: gql, Result: json.RawMessage(result)}, nil
	}
}

func TestNewControllerSeedsGreeting(t *testing.T) {
	c := NewController(okExecutor("", ""), WithClock(clock))
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
	assert.Equal(t, Greeting, msgs[0].Content)
	assert.Equal(t, Greeting, msgs[0].Parsed.Text)
	assert.Equal(t, fixedNow, msgs[0].CreatedAt)
	assert.NotEmpty(t, msgs[0].ID)
}

func TestWithGreetingEmpty(t *testing.T) {
	c := NewController(okExecutor("", ""), WithGreeting(""))
	assert.Equal(t, 0, c.Len())
	_, ok := c.LastAssistant()
	assert.False(t, ok)
}

func TestSubmitRoundTrip(t *testing.T) {
	c := NewController(okExecutor("query { jobs { id } }", `{"data":{"jobs":[{"id":1}]}}`), WithClock(clock))

	reply, err := c.Submit(context.Background(), "show all jobs")
	require.NoError(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "show all jobs", msgs[1].Content)
	assert.Equal(t, RoleAssistant, msgs[2].Role)
	assert.Equal(t, reply, msgs[2])
	assert.Equal(t, "query { jobs { id } }", reply.Parsed.Query)
	assert.Contains(t, reply.Content, "```json\n{\n  \"data\"")
	assert.False(t, reply.IsError())
	assert.False(t, c.Busy())

	q, ok := c.LastQuery()
	assert.True(t, ok)
	assert.Equal(t, "query { jobs { id } }", q)
}

func TestSubmitTwiceKeepsOrder(t *testing.T) {
	c := NewController(okExecutor("q", `{}`), WithGreeting(""))
	_, err := c.Submit(context.Background(), "first")
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), "second")
	require.NoError(t, err)

	var roles []Role
	var contents []string
	for _, m := range c.Messages() {
		roles = append(roles, m.Role)
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []Role{RoleUser, RoleAssistant, RoleUser, RoleAssistant}, roles)
	assert.Equal(t, "first", contents[0])
	assert.Equal(t, "second", contents[2])
}

func TestSubmitEmptyPrompt(t *testing.T) {
	c := NewController(okExecutor("q", `{}`))
	_, err := c.Submit(context.Background(), "   \n\t")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Equal(t, 1, c.Len())

	_, err = c.AppendUser("")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Equal(t, 1, c.Len())
}

func TestBusyGuard(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	exec := ExecutorFunc(func(ctx context.Context, prompt string) (*api.QueryResponse, error) {
		close(started)
		<-release
		return &api.QueryResponse{Status: http.StatusOK, GraphQL: "q"}, nil
	})
	c := NewController(exec)

	p, err := c.Begin("first")
	require.NoError(t, err)
	assert.True(t, c.Busy())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Complete(context.Background(), p)
	}()
	<-started

	lenBefore := c.Len()
	_, err = c.Begin("second")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.Submit(context.Background(), "third")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, lenBefore, c.Len(), "rejected prompts must not be appended")

	close(release)
	wg.Wait()
	assert.False(t, c.Busy())
	assert.Equal(t, 3, c.Len())

	_, err = c.Begin("fourth")
	assert.NoError(t, err)
}

func TestTransportErrorBecomesMessage(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, prompt string) (*api.QueryResponse, error) {
		return nil, &api.TransportError{Op: "nl2gql", Err: errors.New("network down")}
	})
	c := NewController(exec)

	reply, err := c.Submit(context.Background(), "show all jobs")
	require.NoError(t, err)
	assert.Equal(t, "**Error:** network down", reply.Content)
	assert.Equal(t, "**Error:** network down", reply.Parsed.Text)
	assert.True(t, reply.IsError())
	assert.False(t, c.Busy())
}

func TestApplicationErrorBecomesMessage(t *testing.T) {
	cases := []struct {
		name string
		res  *api.QueryResponse
		want string
	}{
		{
			name: "message from body",
			res:  &api.QueryResponse{Status: http.StatusBadRequest, Error: &api.AppError{Message: "Out of scope."}},
			want: "**Error:** Out of scope.",
		},
		{
			name: "error object on 200",
			res:  &api.QueryResponse{Status: http.StatusOK, Error: &api.AppError{Message: "denied"}},
			want: "**Error:** denied",
		},
		{
			name: "non-200 without message",
			res:  &api.QueryResponse{Status: http.StatusInternalServerError},
			want: "**Error:** An unknown error occurred.",
		},
		{
			name: "nil response",
			res:  nil,
			want: "**Error:** An unknown error occurred.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exec := ExecutorFunc(func(ctx context.Context, prompt string) (*api.QueryResponse, error) {
				return tc.res, nil
			})
			reply, err := NewController(exec).Submit(context.Background(), "x")
			require.NoError(t, err)
			assert.Equal(t, tc.want, reply.Content)
		})
	}
}

func TestCompleteReleasesBusyOnPanic(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, prompt string) (*api.QueryResponse, error) {
		panic("boom")
	})
	c := NewController(exec)
	p, err := c.Begin("x")
	require.NoError(t, err)

	assert.Panics(t, func() { c.Complete(context.Background(), p) })
	assert.False(t, c.Busy())
}

func TestMessagesReturnsCopy(t *testing.T) {
	c := NewController(okExecutor("q", `{}`))
	msgs := c.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, Greeting, c.Messages()[0].Content)
}

func TestLastQuerySkipsPlaceholder(t *testing.T) {
	c := NewController(okExecutor("", `{}`))
	_, err := c.Submit(context.Background(), "x")
	require.NoError(t, err)
	_, ok := c.LastQuery()
	assert.False(t, ok)
}
