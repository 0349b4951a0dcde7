package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/markdave123-py/Memora/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("handlers: encode response: %v", err)
	}
}

// writeError maps core sentinel errors onto HTTP statuses and renders a
// uniform {"error": ...} body. Unrecognized errors become a 500 with a
// generic message so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, core.ErrDuplicateSubmission):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, core.ErrTaskNotActive):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, core.ErrContentProcessing):
		status = http.StatusUnprocessableEntity
		msg = err.Error()
	default:
		log.Printf("handlers: internal error: %v", err)
	}

	writeJSON(w, status, map[string]string{"error": msg})
}
