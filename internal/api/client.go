// Package api talks to the job-portal backend: the natural-language endpoint
// (/nl2gql), the GraphQL endpoint used for login and register, and the
// health check.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"jobchat/internal/logging"
	"jobchat/internal/session"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 90 * time.Second
)

// Roles offered by the register form. The backend accepts any string; the
// client passes the value through.
const (
	RoleJobSeeker = "user"
	RoleRecruiter = "recruiter"
)

type RoleOption struct {
	Value string
	Label string
}

// Roles lists the register choices in display order.
var Roles = []RoleOption{
	{Value: RoleJobSeeker, Label: "Job Seeker"},
	{Value: RoleRecruiter, Label: "Recruiter"},
}

// RoleLabel names role for display. Unknown roles are shown as given.
func RoleLabel(role string) string {
	for _, r := range Roles {
		if r.Value == role {
			return r.Label
		}
	}
	return role
}

const (
	loginMutation    = `mutation Login($email: String!, $password: String!) { login(email: $email, password: $password) { token } }`
	registerMutation = `mutation Register($email: String!, $password: String!, $role: String!) { register(email: $email, password: $password, role: $role) { token } }`
)

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

type Client struct {
	http *resty.Client
	log  *slog.Logger
}

// QueryResponse is the decoded /nl2gql reply.
type QueryResponse struct {
	Status  int             `json:"-"`
	GraphQL string          `json:"graphql"`
	Result  json.RawMessage `json:"result"`
	Error   *AppError       `json:"error"`
}

// Failed reports an application-level failure: a non-200 status or an
// error object in the body.
func (r *QueryResponse) Failed() bool {
	return r.Status != http.StatusOK || r.Error != nil
}

type GraphQLError struct {
	Message string `json:"message"`
}

type GraphQLResponse struct {
	Status int             `json:"-"`
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

func New(opts Options) *Client {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "jobchat"
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
			SetTimeout(opts.Timeout).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", opts.UserAgent),
		log: opts.Logger,
	}
	c.http.OnBeforeRequest(authorize)
	return c
}

// authorize attaches the bearer token of the session carried by the request
// context, and a request id for log correlation.
func authorize(_ *resty.Client, r *resty.Request) error {
	ctx := r.Context()
	if s, ok := session.FromContext(ctx); ok && s.Token != "" {
		r.SetAuthToken(s.Token)
	}
	id := logging.RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	r.SetHeader("X-Request-ID", id)
	return nil
}

// Execute sends prompt to /nl2gql and runs the generated operation.
func (c *Client) Execute(ctx context.Context, prompt string) (*QueryResponse, error) {
	return c.nl2gql(ctx, prompt, true)
}

// Generate only translates prompt to GraphQL without running it.
func (c *Client) Generate(ctx context.Context, prompt string) (*QueryResponse, error) {
	return c.nl2gql(ctx, prompt, false)
}

func (c *Client) nl2gql(ctx context.Context, prompt string, run bool) (*QueryResponse, error) {
	log := logging.FromContext(ctx, c.log)

	req := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"query": prompt})
	if !run {
		req.SetQueryParam("run", "false")
	}

	res, err := req.Post("/nl2gql")
	if err != nil {
		log.Warn("nl2gql request failed", "error", err)
		return nil, &TransportError{Op: "nl2gql", Err: err}
	}
	log.Debug("nl2gql response", "status", res.StatusCode(), "duration", res.Time())

	out := &QueryResponse{}
	if err := json.Unmarshal(res.Body(), out); err != nil {
		out = &QueryResponse{Error: &AppError{
			Status:  res.StatusCode(),
			Message: unexpectedBody(res),
			Err:     err,
		}}
	}
	out.Status = res.StatusCode()
	if out.Error != nil {
		out.Error.Status = res.StatusCode()
	}
	return out, nil
}

// GraphQL runs a raw operation against /graphql.
func (c *Client) GraphQL(ctx context.Context, query string, variables map[string]any) (*GraphQLResponse, error) {
	if variables == nil {
		variables = map[string]any{}
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"query": query, "variables": variables}).
		Post("/graphql")
	if err != nil {
		logging.FromContext(ctx, c.log).Warn("graphql request failed", "error", err)
		return nil, &TransportError{Op: "graphql", Err: err}
	}

	out := &GraphQLResponse{}
	if err := json.Unmarshal(res.Body(), out); err != nil {
		return nil, &AppError{Status: res.StatusCode(), Message: unexpectedBody(res), Err: err}
	}
	out.Status = res.StatusCode()
	return out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	vars := map[string]any{"email": email, "password": password}
	return c.authenticate(ctx, "login", loginMutation, vars, "Login failed: No token received.")
}

func (c *Client) Register(ctx context.Context, email, password, role string) (string, error) {
	vars := map[string]any{"email": email, "password": password, "role": role}
	return c.authenticate(ctx, "register", registerMutation, vars, "Registration failed: No token received.")
}

func (c *Client) authenticate(ctx context.Context, field, mutation string, vars map[string]any, noToken string) (string, error) {
	res, err := c.GraphQL(ctx, mutation, vars)
	if err != nil {
		return "", err
	}
	if len(res.Errors) > 0 {
		return "", &AppError{Status: res.Status, Message: res.Errors[0].Message}
	}

	var data map[string]*struct {
		Token string `json:"token"`
	}
	if len(res.Data) > 0 {
		if err := json.Unmarshal(res.Data, &data); err != nil {
			return "", &AppError{Status: res.Status, Message: noToken, Err: err}
		}
	}
	if entry := data[field]; entry != nil && entry.Token != "" {
		logging.FromContext(ctx, c.log).Info("authenticated", "operation", field)
		return entry.Token, nil
	}
	return "", &AppError{Status: res.Status, Message: noToken, Err: ErrNoToken}
}

// Health checks that the backend answers on its root route.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return &TransportError{Op: "health", Err: err}
	}
	if !res.IsSuccess() {
		return &AppError{Status: res.StatusCode(), Message: fmt.Sprintf("backend unhealthy: %s", res.Status())}
	}
	return nil
}

func unexpectedBody(res *resty.Response) string {
	return fmt.Sprintf("unexpected response from backend (HTTP %d)", res.StatusCode())
}
