package auth

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/erazemk/shelfkeeper/internal/model"
	"github.com/erazemk/shelfkeeper/internal/store"
)

// Resolver finds the user acting on a request.
type Resolver struct {
	DB        *sql.DB
	Sessions  *Sessions
	JWTSecret string
}

// Resolve returns the user behind the session cookie or, failing that, a
// valid unrevoked bearer token. It returns nil when there is no such user.
func (res *Resolver) Resolve(r *http.Request) (*model.User, error) {
	if id, ok := res.Sessions.UserID(r); ok {
		return store.GetUser(r.Context(), res.DB, id)
	}

	claims, err := res.Bearer(r.Context(), r)
	if err != nil || claims == nil {
		return nil, err
	}
	return store.GetUser(r.Context(), res.DB, claims.UserID)
}

// Bearer returns the claims of the request's bearer token when it is valid
// and has not been revoked. Missing or invalid tokens yield nil claims.
func (res *Resolver) Bearer(ctx context.Context, r *http.Request) (*Claims, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, nil
	}

	claims, err := ValidateToken(res.JWTSecret, token)
	if err != nil {
		return nil, nil
	}

	revoked, err := store.IsTokenRevoked(ctx, res.DB, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("resolving bearer token: %w", err)
	}
	if revoked {
		return nil, nil
	}
	return claims, nil
}

// Revoke revokes the request's bearer token, if it carries a valid one.
func (res *Resolver) Revoke(r *http.Request) error {
	claims, err := res.Bearer(r.Context(), r)
	if err != nil || claims == nil {
		return err
	}
	return store.RevokeToken(r.Context(), res.DB, claims.ID, claims.ExpiresAt.Time)
}
