package api

import (
	"net/http"

	"github.com/erazemk/shelfkeeper/internal/inventory"
)

// ContainersHandler handles container endpoints. Reads are open to
// everyone; writes act on the session user's containers.
type ContainersHandler struct {
	Containers *inventory.Containers
}

// List handles GET /containers.
func (h *ContainersHandler) List(w http.ResponseWriter, r *http.Request) {
	containers, err := h.Containers.List(r.Context())
	if err != nil {
		handleError(w, r, err, "failed to list containers")
		return
	}
	jsonResponse(w, http.StatusOK, containers)
}

// Get handles GET /containers/{id}.
func (h *ContainersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	container, err := h.Containers.Show(r.Context(), id)
	if err != nil {
		handleError(w, r, err, "failed to get container")
		return
	}
	jsonResponse(w, http.StatusOK, container)
}

// Create handles POST /containers.
func (h *ContainersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req inventory.ContainerPayload
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	container, err := h.Containers.Create(r.Context(), GetUser(r.Context()), &req)
	if err != nil {
		handleError(w, r, err, "failed to create container")
		return
	}
	jsonResponse(w, http.StatusCreated, container)
}

// Update handles PATCH and PUT /containers/{id}.
func (h *ContainersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	var req inventory.ContainerPayload
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	container, err := h.Containers.Update(r.Context(), GetUser(r.Context()), id, &req)
	if err != nil {
		handleError(w, r, err, "failed to update container")
		return
	}
	jsonResponse(w, http.StatusAccepted, container)
}

// Delete handles DELETE /containers/{id}.
func (h *ContainersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	if _, err := h.Containers.Destroy(r.Context(), GetUser(r.Context()), id); err != nil {
		handleError(w, r, err, "failed to delete container")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
