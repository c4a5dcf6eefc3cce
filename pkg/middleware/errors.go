package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/logger"
)

// writeError writes the API error body so middleware failures look like
// handler failures to clients
func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(common.ErrorResponse{Error: kind, ErrorMessage: message}); err != nil {
		logger.Warn("Failed to write error response: %v", err)
	}
}
