package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/shelfkeeper/internal/db"
	"github.com/erazemk/shelfkeeper/internal/store"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// withCookies copies the cookies set on rec onto a new request.
func withCookies(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSessionLoginLogout(t *testing.T) {
	s := NewSessions(testKey, 0, false)

	rec := httptest.NewRecorder()
	require.NoError(t, s.Login(rec, httptest.NewRequest("POST", "/login", nil), 42))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, DefaultSessionMaxAge, cookies[0].MaxAge)

	id, ok := s.UserID(withCookies(rec))
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	out := httptest.NewRecorder()
	require.NoError(t, s.Logout(out, withCookies(rec)))
	expired := out.Result().Cookies()
	require.Len(t, expired, 1)
	assert.Negative(t, expired[0].MaxAge)
}

func TestSessionRejectsForeignKey(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, NewSessions(testKey, 0, false).Login(rec, httptest.NewRequest("POST", "/", nil), 1))

	other := NewSessions([]byte("another-key-another-key-another!"), 0, false)
	_, ok := other.UserID(withCookies(rec))
	assert.False(t, ok)
}

func TestSessionWithoutCookie(t *testing.T) {
	_, ok := NewSessions(testKey, 0, false).UserID(httptest.NewRequest("GET", "/", nil))
	assert.False(t, ok)
}

func TestResolver(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, err := store.CreateUser(ctx, database, "alice", "hash")
	require.NoError(t, err)

	res := &Resolver{DB: database, Sessions: NewSessions(testKey, 0, false), JWTSecret: "jwt-secret"}

	t.Run("no credentials", func(t *testing.T) {
		u, err := res.Resolve(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, res.Sessions.Login(rec, httptest.NewRequest("POST", "/", nil), user.ID))

		u, err := res.Resolve(withCookies(rec))
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "alice", u.Username)
	})

	t.Run("bearer and revocation", func(t *testing.T) {
		token, err := GenerateToken(res.JWTSecret, user.ID, user.Username)
		require.NoError(t, err)

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		u, err := res.Resolve(r)
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, user.ID, u.ID)

		require.NoError(t, res.Revoke(r))

		u, err = res.Resolve(r)
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("garbage bearer", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer nope")
		u, err := res.Resolve(r)
		require.NoError(t, err)
		assert.Nil(t, u)
	})
}
