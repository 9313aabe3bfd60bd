package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/shelfkeeper/internal/auth"
	"github.com/erazemk/shelfkeeper/internal/inventory"
	"github.com/erazemk/shelfkeeper/internal/viewmodel"
)

// Deps are the collaborators shared by the API handlers.
type Deps struct {
	DB         *sql.DB
	Sessions   *auth.Sessions
	JWTSecret  string
	Containers *inventory.Containers
	Products   *inventory.Products
	Clock      viewmodel.Clock
}

// NewRouter creates a router with only the API endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	Register(mux, d)
	return mux
}

// Register adds the API endpoints to mux.
func Register(mux *http.ServeMux, d Deps) {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	resolver := &auth.Resolver{DB: d.DB, Sessions: d.Sessions, JWTSecret: d.JWTSecret}

	authHandler := &AuthHandler{
		DB:         d.DB,
		Sessions:   d.Sessions,
		Resolver:   resolver,
		JWTSecret:  d.JWTSecret,
		Containers: d.Containers,
	}
	containersHandler := &ContainersHandler{Containers: d.Containers}
	productsHandler := &ProductsHandler{Products: d.Products}
	inventoryHandler := &InventoryHandler{Containers: d.Containers, Products: d.Products, Clock: d.Clock}

	withUser := UserMiddleware(resolver)
	requireUser := func(h http.HandlerFunc) http.Handler { return withUser(RequireUser(h)) }

	// Sessions.
	mux.HandleFunc("POST /signup", authHandler.Signup)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.Handle("DELETE /logout", withUser(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /me", requireUser(authHandler.Me))

	// Containers: reads unscoped, writes scoped to the session user.
	mux.HandleFunc("GET /containers", containersHandler.List)
	mux.HandleFunc("GET /containers/{id}", containersHandler.Get)
	mux.Handle("POST /containers", withUser(http.HandlerFunc(containersHandler.Create)))
	mux.Handle("PATCH /containers/{id}", withUser(http.HandlerFunc(containersHandler.Update)))
	mux.Handle("PUT /containers/{id}", withUser(http.HandlerFunc(containersHandler.Update)))
	mux.Handle("DELETE /containers/{id}", withUser(http.HandlerFunc(containersHandler.Delete)))

	// Products.
	mux.HandleFunc("GET /products", productsHandler.List)
	mux.HandleFunc("POST /products", productsHandler.Create)
	mux.HandleFunc("GET /products/{id}", productsHandler.Get)
	mux.HandleFunc("PATCH /products/{id}", productsHandler.Update)
	mux.HandleFunc("PUT /products/{id}", productsHandler.Update)
	mux.HandleFunc("DELETE /products/{id}", productsHandler.Delete)
	mux.HandleFunc("PUT /products/{id}/label", productsHandler.UploadLabel)
	mux.HandleFunc("GET /products/{id}/label", productsHandler.GetLabel)

	// The session user's inventory table.
	mux.Handle("GET /inventory", requireUser(inventoryHandler.Get))
	mux.Handle("GET /containers.csv", requireUser(inventoryHandler.CSV))
}
