package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"proctor-backend/internal/services"
)

// envelope is the uniform response wrapper on every REST endpoint.
type envelope struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Timestamp  string      `json:"timestamp"`
	Path       string      `json:"path"`
	Data       interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	writeJSON(w, status, envelope{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       r.URL.Path,
		Data:       data,
	})
}

func writeFailure(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	writeJSON(w, status, envelope{
		Success:    false,
		StatusCode: status,
		Message:    message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       r.URL.Path,
		Data:       data,
	})
}

// handleServiceError maps the service error taxonomy to status codes.
// Validation, not-found and conflict messages go to the caller verbatim;
// everything else is logged in full and surfaced as a generic 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeFailure(w, r, http.StatusBadRequest, "Validation failed", e.Fields)
	case *services.ConflictError:
		writeFailure(w, r, http.StatusConflict, e.Message, nil)
	case *services.NotFoundError:
		writeFailure(w, r, http.StatusNotFound, e.Message, nil)
	case *services.UnauthorizedError:
		writeFailure(w, r, http.StatusUnauthorized, e.Message, nil)
	case *services.ForbiddenError:
		writeFailure(w, r, http.StatusForbidden, e.Message, nil)
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeFailure(w, r, http.StatusInternalServerError, "An unexpected error occurred", nil)
	}
}
