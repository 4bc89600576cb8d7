// Package chat holds the conversation transcript and the submit cycle that
// turns a prompt into an assistant reply.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"jobchat/internal/api"
	"jobchat/internal/logging"
)

var (
	ErrBusy        = errors.New("a request is already in flight")
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// Executor sends a prompt to the backend. *api.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, prompt string) (*api.QueryResponse, error)
}

type ExecutorFunc func(ctx context.Context, prompt string) (*api.QueryResponse, error)

func (f ExecutorFunc) Execute(ctx context.Context, prompt string) (*api.QueryResponse, error) {
	return f(ctx, prompt)
}

// Pending is returned by Begin and consumed by Complete.
type Pending struct {
	Prompt string
	User   Message
}

type Controller struct {
	mu       sync.Mutex
	exec     Executor
	now      func() time.Time
	log      *slog.Logger
	greeting string
	messages []Message
	busy     bool
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithGreeting replaces the first assistant message. An empty greeting
// starts the transcript empty.
func WithGreeting(text string) Option {
	return func(c *Controller) {
		c.greeting = text
	}
}

func NewController(exec Executor, opts ...Option) *Controller {
	c := &Controller{
		exec:     exec,
		now:      time.Now,
		log:      logging.Discard(),
		greeting: Greeting,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.greeting != "" {
		c.messages = append(c.messages, newMessage(RoleAssistant, c.greeting, c.now()))
	}
	return c
}

// AppendUser adds a user message without contacting the backend.
func (c *Controller) AppendUser(prompt string) (Message, error) {
	if strings.TrimSpace(prompt) == "" {
		return Message{}, ErrEmptyPrompt
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(RoleUser, prompt), nil
}

// Begin appends the user message and marks the controller busy. It fails
// without touching the transcript when a submission is outstanding or the
// prompt is blank.
func (c *Controller) Begin(prompt string) (Pending, error) {
	if strings.TrimSpace(prompt) == "" {
		return Pending{}, ErrEmptyPrompt
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return Pending{}, ErrBusy
	}
	c.busy = true
	msg := c.appendLocked(RoleUser, prompt)
	return Pending{Prompt: prompt, User: msg}, nil
}

// Complete runs the pending prompt through the executor and appends the
// assistant reply. The busy flag is released however the call ends.
func (c *Controller) Complete(ctx context.Context, p Pending) Message {
	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	log := logging.FromContext(ctx, c.log)
	start := c.now()
	res, err := c.exec.Execute(ctx, p.Prompt)

	var content string
	switch {
	case err != nil:
		log.Warn("submit failed", "error", err)
		content = FormatError(err.Error())
	case res == nil:
		content = FormatError("")
	case res.Failed():
		msg := ""
		if res.Error != nil {
			msg = res.Error.Message
		}
		log.Info("backend reported an error", "status", res.Status, "message", msg)
		content = FormatError(msg)
	default:
		content = Format(res.GraphQL, res.Result)
	}
	log.Debug("submit complete", "prompt_len", len(p.Prompt), "elapsed", c.now().Sub(start))

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(RoleAssistant, content)
}

// Submit is Begin followed by a blocking Complete.
func (c *Controller) Submit(ctx context.Context, prompt string) (Message, error) {
	p, err := c.Begin(prompt)
	if err != nil {
		return Message{}, err
	}
	return c.Complete(ctx, p), nil
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *Controller) LastAssistant() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleAssistant {
			return c.messages[i], true
		}
	}
	return Message{}, false
}

// LastQuery returns the most recent generated GraphQL in the transcript.
func (c *Controller) LastQuery() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		m := c.messages[i]
		if m.Role == RoleAssistant && m.Parsed.Query != "" && m.Parsed.Query != noQuery {
			return m.Parsed.Query, true
		}
	}
	return "", false
}

func (c *Controller) appendLocked(role Role, content string) Message {
	msg := newMessage(role, content, c.now())
	c.messages = append(c.messages, msg)
	return msg
}
