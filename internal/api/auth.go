package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/shelfkeeper/internal/auth"
	"github.com/erazemk/shelfkeeper/internal/inventory"
	"github.com/erazemk/shelfkeeper/internal/model"
	"github.com/erazemk/shelfkeeper/internal/store"
)

// AuthHandler handles signup, login and logout. Login sets the session
// cookie and also returns a bearer token for non-browser clients.
type AuthHandler struct {
	DB         *sql.DB
	Sessions   *auth.Sessions
	Resolver   *auth.Resolver
	JWTSecret  string
	Containers *inventory.Containers
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

type meResponse struct {
	*model.User
	Containers []model.Container `json:"containers"`
}

// Signup handles POST /signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	var problems []string
	if err := model.ValidateUsername(req.Username); err != nil {
		problems = append(problems, err.Error())
	} else {
		taken, err := store.UsernameTaken(r.Context(), h.DB, req.Username)
		if err != nil {
			handleError(w, r, err, "failed to create user")
			return
		}
		if taken {
			problems = append(problems, "username has already been taken")
		}
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		handleError(w, r, &inventory.ValidationError{Errors: problems}, "invalid signup")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		handleError(w, r, err, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, string(hash))
	if err != nil {
		handleError(w, r, err, "failed to create user")
		return
	}

	if err := h.Sessions.Login(w, r, user.ID); err != nil {
		handleError(w, r, err, "failed to start session")
		return
	}

	slog.Info("user signed up", "user", user.Username)
	jsonResponse(w, http.StatusCreated, user)
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		handleError(w, r, err, "internal error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Username)
	if err != nil {
		handleError(w, r, err, "failed to generate token")
		return
	}

	if err := h.Sessions.Login(w, r, user.ID); err != nil {
		handleError(w, r, err, "failed to start session")
		return
	}

	slog.Info("user logged in", "user", user.Username)
	jsonResponse(w, http.StatusOK, loginResponse{User: user, Token: token})
}

// Logout handles DELETE /logout. It ends the session and revokes the bearer
// token the request was made with, if any.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Resolver.Revoke(r); err != nil {
		handleError(w, r, err, "failed to revoke token")
		return
	}
	if err := h.Sessions.Logout(w, r); err != nil {
		handleError(w, r, err, "failed to end session")
		return
	}

	if user := GetUser(r.Context()); user != nil {
		slog.Info("user logged out", "user", user.Username)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())
	containers, err := h.Containers.ListOwned(r.Context(), user)
	if err != nil {
		handleError(w, r, err, "failed to list containers")
		return
	}
	jsonResponse(w, http.StatusOK, meResponse{User: user, Containers: containers})
}
