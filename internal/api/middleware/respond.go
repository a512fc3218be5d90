package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/stagehand-music/stagehand/internal/domain"
)

// writeError writes the standard error envelope. Middleware cannot use the
// handler package's helpers without an import cycle.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&domain.StandardErrorResponse{
		Error: domain.StandardError{Code: code, Message: message},
	})
}
