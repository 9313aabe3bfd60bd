package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/shelfkeeper/internal/export"
	"github.com/erazemk/shelfkeeper/internal/inventory"
	"github.com/erazemk/shelfkeeper/internal/viewmodel"
)

// InventoryHandler serves the session user's inventory table.
type InventoryHandler struct {
	Containers *inventory.Containers
	Products   *inventory.Products
	Clock      viewmodel.Clock
}

// build loads the user's containers and all products and derives the table.
// It writes the error response itself and returns false on failure.
func (h *InventoryHandler) build(w http.ResponseWriter, r *http.Request) (viewmodel.Inventory, bool) {
	var productID int64
	if v := r.URL.Query().Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			jsonError(w, http.StatusBadRequest, "invalid product_id")
			return viewmodel.Inventory{}, false
		}
		productID = id
	}

	containers, err := h.Containers.ListOwned(r.Context(), GetUser(r.Context()))
	if err != nil {
		handleError(w, r, err, "failed to list containers")
		return viewmodel.Inventory{}, false
	}
	products, err := h.Products.List(r.Context())
	if err != nil {
		handleError(w, r, err, "failed to list products")
		return viewmodel.Inventory{}, false
	}

	return viewmodel.Build(containers, products, productID, viewmodel.Today(h.Clock())), true
}

// Get handles GET /inventory.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.build(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, inv)
}

// CSV handles GET /containers.csv.
func (h *InventoryHandler) CSV(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.build(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="containers.csv"`)
	if err := export.WriteContainers(w, inv); err != nil {
		handleError(w, r, err, "failed to export containers")
	}
}
