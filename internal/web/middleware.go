package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/erazemk/shelfkeeper/internal/model"
	"github.com/erazemk/shelfkeeper/internal/store"
)

type webContextKey string

const webUserKey webContextKey = "webuser"

// SessionMiddleware loads the session user and adds it to the context.
// Requests without a valid session are sent to the sign-in page.
func (s *Server) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.Sessions.UserID(r)
		if !ok {
			http.Redirect(w, r, "/signin", http.StatusSeeOther)
			return
		}

		user, err := store.GetUser(r.Context(), s.DB, id)
		if err != nil {
			slog.Error("failed to load session user", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			// The account is gone; drop the stale cookie.
			if err := s.Sessions.Logout(w, r); err != nil {
				slog.Error("failed to clear session", "error", err)
			}
			http.Redirect(w, r, "/signin", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), webUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetWebUser retrieves the session user from web context.
func GetWebUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(webUserKey).(*model.User)
	return user
}
