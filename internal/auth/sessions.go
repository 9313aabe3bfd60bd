package auth

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the session cookie.
const SessionName = "shelfkeeper"

// DefaultSessionMaxAge is the session lifetime in seconds.
const DefaultSessionMaxAge = 7 * 24 * 60 * 60

const userIDKey = "user_id"

// Sessions keeps the logged-in user ID in a signed cookie.
type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions creates a session cookie store signed with key. A maxAge of
// zero selects DefaultSessionMaxAge.
func NewSessions(key []byte, maxAge int, secure bool) *Sessions {
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	store := sessions.NewCookieStore(key)
	store.MaxAge(maxAge)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return &Sessions{store: store}
}

// Login stores userID in the session and writes the cookie.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	// A cookie signed with an old key fails to decode; start a fresh session.
	session, _ := s.store.Get(r, SessionName)
	session.Values[userIDKey] = userID
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Logout expires the session cookie.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, SessionName)
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// UserID returns the user ID stored in the request's session.
func (s *Sessions) UserID(r *http.Request) (int64, bool) {
	session, err := s.store.Get(r, SessionName)
	if err != nil || session.IsNew {
		return 0, false
	}
	id, ok := session.Values[userIDKey].(int64)
	return id, ok && id > 0
}
