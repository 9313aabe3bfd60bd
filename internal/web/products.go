package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/shelfkeeper/internal/imaging"
	"github.com/erazemk/shelfkeeper/internal/inventory"
	"github.com/erazemk/shelfkeeper/internal/model"
	"github.com/erazemk/shelfkeeper/internal/viewmodel"
)

type productsPage struct {
	PageData
	Products []model.Product
	Name     string
	EPAReg   string
}

// ProductsPage handles GET /inventory/products.
func (s *Server) ProductsPage(w http.ResponseWriter, r *http.Request) {
	s.renderProducts(w, r, http.StatusOK, &PageData{
		Title:   "Products",
		User:    GetWebUser(r.Context()),
		Success: r.URL.Query().Get("success"),
	}, "", "")
}

// ProductCreateSubmit handles POST /inventory/products.
func (s *Server) ProductCreateSubmit(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	epaReg := r.FormValue("epa_reg")

	p, err := s.Products.Create(r.Context(), &inventory.ProductPayload{Name: &name, EPAReg: &epaReg})
	if err != nil {
		var verr *inventory.ValidationError
		if errors.As(err, &verr) {
			s.renderProducts(w, r, http.StatusUnprocessableEntity, &PageData{
				Title:  "Products",
				User:   GetWebUser(r.Context()),
				Errors: verr.Errors,
			}, name, epaReg)
			return
		}
		slog.Error("failed to create product", "error", err)
		http.Error(w, "failed to create product", http.StatusInternalServerError)
		return
	}

	slog.Info("product added from web", "id", p.ID, "name", p.Name)
	http.Redirect(w, r, "/inventory/products?success=Product+added", http.StatusSeeOther)
}

// ProductDeleteSubmit handles POST /inventory/products/{id}/delete.
func (s *Server) ProductDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if _, err := s.Products.Destroy(r.Context(), id); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to delete product", "error", err)
		http.Error(w, "failed to delete product", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/inventory/products?success=Product+removed", http.StatusSeeOther)
}

// ProductLabelSubmit handles POST /inventory/products/{id}/label.
func (s *Server) ProductLabelSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1<<20)
	file, _, err := r.FormFile("label")
	if err != nil {
		s.renderProducts(w, r, http.StatusUnprocessableEntity, &PageData{
			Title:  "Products",
			User:   GetWebUser(r.Context()),
			Errors: []string{"label can't be blank"},
		}, "", "")
		return
	}
	defer file.Close()

	if err := s.Products.SetLabel(r.Context(), id, file); err != nil {
		var verr *inventory.ValidationError
		switch {
		case errors.Is(err, inventory.ErrNotFound):
			http.NotFound(w, r)
		case errors.As(err, &verr):
			s.renderProducts(w, r, http.StatusUnprocessableEntity, &PageData{
				Title:  "Products",
				User:   GetWebUser(r.Context()),
				Errors: verr.Errors,
			}, "", "")
		default:
			slog.Error("failed to store label", "error", err)
			http.Error(w, "failed to store label", http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, "/inventory/products?success=Label+uploaded", http.StatusSeeOther)
}

func (s *Server) renderProducts(w http.ResponseWriter, r *http.Request, status int, data *PageData, name, epaReg string) {
	products, err := s.Products.List(r.Context())
	if err != nil {
		slog.Error("failed to list products", "error", err)
		http.Error(w, "failed to load products", http.StatusInternalServerError)
		return
	}

	s.Templates.RenderStatus(w, status, "products.html", productsPage{
		PageData: *data,
		Products: viewmodel.SortProducts(products),
		Name:     name,
		EPAReg:   epaReg,
	})
}
