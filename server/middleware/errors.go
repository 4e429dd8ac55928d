package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/kbukum/streamdiar/errors"
)

// writeError sends err in the same envelope the API handlers use.
func writeError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]*errors.AppError{"error": err})
}
