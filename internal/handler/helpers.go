package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hoffkamp/bureau/internal/notes"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	return parsePathID(r, "id")
}

func parsePathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// writeMutationError maps engine failures onto HTTP statuses. Transient
// failures never reach here: the engine absorbs them and reports an
// applied result with reconciliation pending.
func writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notes.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "note not found"})
	case errors.Is(err, notes.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "permission denied"})
	case errors.Is(err, notes.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "operation failed"})
	}
}
