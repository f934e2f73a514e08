package api

import (
	"encoding/json"
	"net/http"

	"loft/internal/errors"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a taxonomy error to its HTTP status. Internal errors
// are logged with detail and reported generically, never leaked.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := errors.Code(err)
	if code >= http.StatusInternalServerError {
		logger.Error("internal error", zap.Error(err))
		http.Error(w, "internal server error", code)
		return
	}
	http.Error(w, err.Error(), code)
}
