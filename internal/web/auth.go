package web

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/shelfkeeper/internal/store"
)

// SigninPage handles GET /signin.
func (s *Server) SigninPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "signin.html", &PageData{Title: "Sign in"})
}

// SigninSubmit handles POST /signin.
func (s *Server) SigninSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		s.Templates.RenderStatus(w, http.StatusUnprocessableEntity, "signin.html", &PageData{
			Title: "Sign in",
			Error: "Enter your username and password.",
		})
		return
	}

	user, err := store.GetUserByUsername(r.Context(), s.DB, username)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		slog.Warn("login failed", "username", username, "remote", r.RemoteAddr)
		s.Templates.RenderStatus(w, http.StatusUnauthorized, "signin.html", &PageData{
			Title: "Sign in",
			Error: "Wrong username or password.",
		})
		return
	}

	if err := s.Sessions.Login(w, r, user.ID); err != nil {
		slog.Error("failed to start session", "error", err)
		s.Templates.RenderStatus(w, http.StatusInternalServerError, "signin.html", &PageData{
			Title: "Sign in",
			Error: "Could not sign you in.",
		})
		return
	}

	slog.Info("user logged in", "user", user.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Signout handles POST /signout.
func (s *Server) Signout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Logout(w, r); err != nil {
		slog.Error("failed to end session", "error", err)
	}
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}
