package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/shelfkeeper/internal/inventory"
	webembed "github.com/erazemk/shelfkeeper/web"
)

// Register adds all page routes to mux.
func Register(mux *http.ServeMux, s *Server) error {
	static, err := webembed.StaticFS()
	if err != nil {
		return err
	}
	session := s.SessionMiddleware

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Public routes.
	mux.HandleFunc("GET /signin", s.SigninPage)
	mux.HandleFunc("POST /signin", s.SigninSubmit)
	mux.HandleFunc("POST /signout", s.Signout)

	// Authenticated routes.
	mux.Handle("GET /{$}", session(http.HandlerFunc(s.InventoryPage)))

	mux.Handle("POST /inventory/containers", session(http.HandlerFunc(s.ContainerCreateSubmit)))
	mux.Handle("GET /inventory/containers/{id}", session(http.HandlerFunc(s.ContainerPage)))
	mux.Handle("GET /inventory/containers/{id}/edit", session(http.HandlerFunc(s.ContainerEditPage)))
	mux.Handle("POST /inventory/containers/{id}/edit", session(http.HandlerFunc(s.ContainerEditSubmit)))
	mux.Handle("POST /inventory/containers/{id}/delete", session(http.HandlerFunc(s.ContainerDeleteSubmit)))

	mux.Handle("GET /inventory/products", session(http.HandlerFunc(s.ProductsPage)))
	mux.Handle("POST /inventory/products", session(http.HandlerFunc(s.ProductCreateSubmit)))
	mux.Handle("POST /inventory/products/{id}/delete", session(http.HandlerFunc(s.ProductDeleteSubmit)))
	mux.Handle("POST /inventory/products/{id}/label", session(http.HandlerFunc(s.ProductLabelSubmit)))
	mux.Handle("GET /inventory/products/{id}/label", session(http.HandlerFunc(s.ProductLabelGet)))
	return nil
}

// ProductLabelGet handles GET /inventory/products/{id}/label.
func (s *Server) ProductLabelGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, mime, err := s.Products.Label(r.Context(), id)
	if errors.Is(err, inventory.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to get label", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write label response", "error", err)
	}
}
