package api

import (
	"io"
	"mime"
	"net/http"

	"github.com/erazemk/shelfkeeper/internal/imaging"
	"github.com/erazemk/shelfkeeper/internal/inventory"
)

// ProductsHandler handles product endpoints. Products are shared, so no
// endpoint is scoped to a user.
type ProductsHandler struct {
	Products *inventory.Products
}

// List handles GET /products.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.Products.List(r.Context())
	if err != nil {
		handleError(w, r, err, "failed to list products")
		return
	}
	jsonResponse(w, http.StatusOK, products)
}

// Get handles GET /products/{id}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	product, err := h.Products.Show(r.Context(), id)
	if err != nil {
		handleError(w, r, err, "failed to get product")
		return
	}
	jsonResponse(w, http.StatusOK, product)
}

// Create handles POST /products.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req inventory.ProductPayload
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.Products.Create(r.Context(), &req)
	if err != nil {
		handleError(w, r, err, "failed to create product")
		return
	}
	jsonResponse(w, http.StatusCreated, product)
}

// Update handles PATCH and PUT /products/{id}.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	var req inventory.ProductPayload
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.Products.Update(r.Context(), id, &req)
	if err != nil {
		handleError(w, r, err, "failed to update product")
		return
	}
	jsonResponse(w, http.StatusAccepted, product)
}

// Delete handles DELETE /products/{id}.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	if _, err := h.Products.Destroy(r.Context(), id); err != nil {
		handleError(w, r, err, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadLabel handles PUT /products/{id}/label. The image is sent either as
// the raw request body or as the "label" field of a multipart form.
func (h *ProductsHandler) UploadLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	// Leave room for multipart framing around the image.
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+64<<10)
	defer r.Body.Close()

	var body io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
			jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
			return
		}
		file, _, err := r.FormFile("label")
		if err != nil {
			jsonError(w, http.StatusBadRequest, "label file required")
			return
		}
		defer file.Close()
		body = file
	}

	if err := h.Products.SetLabel(r.Context(), id, body); err != nil {
		handleError(w, r, err, "failed to save label")
		return
	}

	product, err := h.Products.Show(r.Context(), id)
	if err != nil {
		handleError(w, r, err, "failed to get product")
		return
	}
	jsonResponse(w, http.StatusAccepted, product)
}

// GetLabel handles GET /products/{id}/label.
func (h *ProductsHandler) GetLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	data, mimeType, err := h.Products.Label(r.Context(), id)
	if err != nil {
		handleError(w, r, err, "failed to get label")
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
