package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobchat/internal/logging"
	"jobchat/internal/session"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestExecuteSuccessCarriesBearerToken(t *testing.T) {
	var gotAuth, gotReqID, gotRun string
	var gotBody map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nl2gql", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		gotRun = r.URL.Query().Get("run")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, map[string]any{
			"graphql": "query { jobs { id } }",
			"result":  map[string]any{"data": map[string]any{"jobs": []any{}}},
		})
	})

	ctx := session.NewContext(context.Background(), session.Session{Token: "tok-123", Identity: &session.Identity{}})
	ctx = logging.WithRequestID(ctx, "req-9")
	res, err := c.Execute(ctx, "show all jobs")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "req-9", gotReqID)
	assert.Empty(t, gotRun)
	assert.Equal(t, "show all jobs", gotBody["query"])

	assert.False(t, res.Failed())
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "query { jobs { id } }", res.GraphQL)
	assert.JSONEq(t, `{"data":{"jobs":[]}}`, string(res.Result))
}

func TestExecuteWithoutSessionSendsNoAuth(t *testing.T) {
	var gotAuth, gotReqID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, map[string]any{"graphql": "q"})
	})

	_, err := c.Execute(context.Background(), "hi")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.NotEmpty(t, gotReqID, "a request id is generated when none is in context")
}

func TestGenerateSetsRunFalse(t *testing.T) {
	var gotRun string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRun = r.URL.Query().Get("run")
		writeJSON(w, http.StatusOK, map[string]any{"graphql": "q"})
	})

	res, err := c.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "false", gotRun)
	assert.Empty(t, res.Result)
}

func TestExecuteApplicationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"message": "Out of scope."},
		})
	})

	res, err := c.Execute(context.Background(), "sing a song")
	require.NoError(t, err, "application errors are not transport errors")
	assert.True(t, res.Failed())
	require.NotNil(t, res.Error)
	assert.Equal(t, "Out of scope.", res.Error.Message)
	assert.Equal(t, http.StatusBadRequest, res.Error.Status)
}

func TestExecuteNonJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	res, err := c.Execute(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Error.Message, "HTTP 502")
}

func TestExecuteTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url, Timeout: time.Second})
	res, err := c.Execute(context.Background(), "x")
	assert.Nil(t, res)
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "nl2gql", terr.Op)
	assert.NotEmpty(t, err.Error())
}

func TestLogin(t *testing.T) {
	var gotVars map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Contains(t, body.Query, "mutation Login")
		gotVars = body.Variables
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{"login": map[string]any{"token": "jwt-abc"}},
		})
	})

	tok, err := c.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", tok)
	assert.Equal(t, map[string]any{"email": "ada@example.com", "password": "pw"}, gotVars)
}

func TestRegisterPassesRoleThrough(t *testing.T) {
	var gotVars map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Contains(t, body.Query, "mutation Register")
		gotVars = body.Variables
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{"register": map[string]any{"token": "jwt-new"}},
		})
	})

	tok, err := c.Register(context.Background(), "r@example.com", "pw", "hiring-manager")
	require.NoError(t, err)
	assert.Equal(t, "jwt-new", tok)
	assert.Equal(t, "hiring-manager", gotVars["role"])
}

func TestLoginGraphQLError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":   map[string]any{"login": nil},
			"errors": []any{map[string]any{"message": "Invalid credentials"}},
		})
	})

	_, err := c.Login(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
}

func TestLoginNoToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"login": nil}})
	})

	_, err := c.Login(context.Background(), "a@b.c", "pw")
	require.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, "Login failed: No token received.", err.Error())

	_, err = c.Register(context.Background(), "a@b.c", "pw", RoleJobSeeker)
	require.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, "Registration failed: No token received.", err.Error())
}

func TestHealth(t *testing.T) {
	healthy := true
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if healthy {
			writeJSON(w, http.StatusOK, map[string]any{"status": "Backend is running!"})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	require.NoError(t, c.Health(context.Background()))
	healthy = false
	var aerr *AppError
	require.ErrorAs(t, c.Health(context.Background()), &aerr)
	assert.Equal(t, http.StatusServiceUnavailable, aerr.Status)
}

func TestRoleLabel(t *testing.T) {
	assert.Equal(t, "Job Seeker", RoleLabel(RoleJobSeeker))
	assert.Equal(t, "Recruiter", RoleLabel(RoleRecruiter))
	assert.Equal(t, "admin", RoleLabel("admin"))
}
