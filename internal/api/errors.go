package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/learnquest/learnquest/internal/domain"
)

// Error types carried in the "type" field of an error response.
const (
	errTypeValidation  = "validation_error"
	errTypeNotFound    = "not_found"
	errTypeUnavailable = "unavailable"
	errTypeServer      = "server_error"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, errType, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// classify maps an error to its HTTP status, error type and the message
// safe to show the client.
func classify(err error) (int, string, string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, errTypeValidation, ve.Error()
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errTypeNotFound, domain.ErrUserNotFound.Error()
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound, errTypeNotFound, domain.ErrTaskNotFound.Error()
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, errTypeUnavailable, domain.ErrStorageUnavailable.Error()
	default:
		return http.StatusInternalServerError, errTypeServer, "internal server error"
	}
}

// fail writes err to the client. Server errors are logged in full and
// reported generically.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, errType, msg := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, status, errType, msg)
}
