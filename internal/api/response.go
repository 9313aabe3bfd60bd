package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/shelfkeeper/internal/inventory"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// notFound writes a bare 404 so the response does not reveal whether the
// record exists for someone else.
func notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
}

// handleError maps service errors to responses. Unexpected errors are logged
// and reported as 500 with a generic message.
func handleError(w http.ResponseWriter, r *http.Request, err error, message string) {
	var verr *inventory.ValidationError
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		notFound(w)
	case errors.As(err, &verr):
		jsonResponse(w, http.StatusUnprocessableEntity, map[string][]string{"errors": verr.Errors})
	default:
		slog.Error(message, "error", err, "method", r.Method, "path", r.URL.Path, "request_id", RequestID(r.Context()))
		jsonError(w, http.StatusInternalServerError, message)
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(target)
}

// pathID parses the {id} path value. Malformed IDs are reported as missing.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}
