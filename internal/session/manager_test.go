package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobchat/internal/store"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func validToken(t *testing.T) string {
	return signToken(t, jwt.MapClaims{
		"sub":   42,
		"email": "ada@example.com",
		"role":  "recruiter",
		"iat":   fixedNow.Add(-time.Hour).Unix(),
		"exp":   fixedNow.Add(time.Hour).Unix(),
	})
}

func openManager(t *testing.T, st store.Store) *Manager {
	t.Helper()
	m, err := Open(context.Background(), st, WithClock(clock))
	require.NoError(t, err)
	return m
}

func persisted(t *testing.T, st store.Store) (string, bool) {
	t.Helper()
	v, ok, err := st.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	return v, ok
}

func TestLoginValidTokenDerivesIdentity(t *testing.T) {
	st := store.NewMemory()
	m := openManager(t, st)
	tok := validToken(t)

	s, err := m.Login(context.Background(), tok)
	require.NoError(t, err)

	require.True(t, s.LoggedIn())
	assert.Equal(t, tok, s.Token)
	assert.Equal(t, Identity{ID: "42", Email: "ada@example.com", Role: "recruiter"}, *s.Identity)
	assert.Equal(t, fixedNow.Add(time.Hour).Unix(), s.ExpiresAt.Unix())

	v, ok := persisted(t, st)
	assert.True(t, ok)
	assert.Equal(t, tok, v)
}

func TestLoginIsDeterministic(t *testing.T) {
	tok := validToken(t)
	a, err := openManager(t, store.NewMemory()).Login(context.Background(), tok)
	require.NoError(t, err)
	b, err := openManager(t, store.NewMemory()).Login(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLoginStringSubject(t *testing.T) {
	m := openManager(t, store.NewMemory())
	tok := signToken(t, jwt.MapClaims{"sub": "user-7", "email": "x@y.z", "role": "user"})

	s, err := m.Login(context.Background(), tok)
	require.NoError(t, err)
	require.True(t, s.LoggedIn())
	assert.Equal(t, "user-7", s.Identity.ID)
	assert.True(t, s.ExpiresAt.IsZero(), "no exp claim means no expiry")
}

func TestLoginRejectsBadTokens(t *testing.T) {
	cases := map[string]func(t *testing.T) string{
		"garbage":     func(*testing.T) string { return "not-a-token" },
		"two parts":   func(*testing.T) string { return "abc.def" },
		"bad payload": func(*testing.T) string { return "eyJhbGciOiJIUzI1NiJ9.!!!.sig" },
		"empty":       func(*testing.T) string { return "   " },
		"expired": func(t *testing.T) string {
			return signToken(t, jwt.MapClaims{
				"sub": 1, "email": "old@example.com", "role": "user",
				"exp": fixedNow.Add(-time.Second).Unix(),
			})
		},
		"non-numeric exp": func(t *testing.T) string {
			return signToken(t, jwt.MapClaims{"sub": 1, "exp": "tomorrow"})
		},
	}

	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			st := store.NewMemory()
			m := openManager(t, st)
			_, err := m.Login(context.Background(), validToken(t))
			require.NoError(t, err)

			s, err := m.Login(context.Background(), mk(t))
			require.NoError(t, err, "bad tokens never surface as errors")
			assert.Equal(t, LoggedOut, s)
			assert.Equal(t, LoggedOut, m.Current())

			_, ok := persisted(t, st)
			assert.False(t, ok, "persisted token must be cleared")
		})
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	st := store.NewMemory()
	m := openManager(t, st)
	_, err := m.Login(context.Background(), validToken(t))
	require.NoError(t, err)

	first, err := m.Logout(context.Background())
	require.NoError(t, err)
	second, err := m.Logout(context.Background())
	require.NoError(t, err)

	assert.Equal(t, LoggedOut, first)
	assert.Equal(t, first, second)
	_, ok := persisted(t, st)
	assert.False(t, ok)
}

func TestOpenRestoresPersistedToken(t *testing.T) {
	st := store.NewMemory()
	tok := validToken(t)
	require.NoError(t, st.Set(context.Background(), TokenKey, tok))

	m := openManager(t, st)
	s := m.Current()
	require.True(t, s.LoggedIn())
	assert.Equal(t, "ada@example.com", s.Identity.Email)
}

func TestOpenClearsExpiredPersistedToken(t *testing.T) {
	st := store.NewMemory()
	tok := signToken(t, jwt.MapClaims{"sub": 1, "exp": fixedNow.Add(-time.Minute).Unix()})
	require.NoError(t, st.Set(context.Background(), TokenKey, tok))

	m := openManager(t, st)
	assert.False(t, m.Current().LoggedIn())
	_, ok := persisted(t, st)
	assert.False(t, ok)
}

func TestRefreshLogsOutAfterExpiry(t *testing.T) {
	now := fixedNow
	st := store.NewMemory()
	m, err := Open(context.Background(), st, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	_, err = m.Login(context.Background(), validToken(t))
	require.NoError(t, err)

	_, changed, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	now = fixedNow.Add(2 * time.Hour)
	s, changed, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, LoggedOut, s)
	_, ok := persisted(t, st)
	assert.False(t, ok)
}

func TestCurrentReturnsCopy(t *testing.T) {
	m := openManager(t, store.NewMemory())
	_, err := m.Login(context.Background(), validToken(t))
	require.NoError(t, err)

	s := m.Current()
	s.Identity.Email = "mallory@example.com"
	assert.Equal(t, "ada@example.com", m.Current().Identity.Email)
}

type failingStore struct{ *store.Memory }

var errDisk = errors.New("disk full")

func (f *failingStore) Set(context.Context, string, string) error { return errDisk }

func TestLoginReportsStoreFailure(t *testing.T) {
	st := &failingStore{Memory: store.NewMemory()}
	m := openManager(t, st)

	s, err := m.Login(context.Background(), validToken(t))
	require.ErrorIs(t, err, errDisk)
	assert.True(t, s.LoggedIn(), "in-memory session still reflects the login")
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := Session{Token: "t", Identity: &Identity{Email: "a@b.c"}}
	got, ok := FromContext(NewContext(context.Background(), s))
	require.True(t, ok)
	assert.Equal(t, s, got)
}

func TestSessionExpired(t *testing.T) {
	assert.True(t, LoggedOut.Expired(fixedNow))

	s := Session{Token: "t", Identity: &Identity{}}
	assert.False(t, s.Expired(fixedNow), "zero expiry never expires")

	s.ExpiresAt = fixedNow
	assert.False(t, s.Expired(fixedNow))
	assert.True(t, s.Expired(fixedNow.Add(time.Nanosecond)))
}
