package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"proctor-backend/internal/services"
)

func TestWriteSuccessEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exams", nil)
	rec := httptest.NewRecorder()

	writeSuccess(rec, req, http.StatusCreated, "Exam created", map[string]int{"id": 7})

	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var body envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse body: %v", err)
	}
	if !body.Success || body.StatusCode != 201 || body.Message != "Exam created" {
		t.Errorf("Unexpected envelope: %+v", body)
	}
	if body.Path != "/api/v1/exams" {
		t.Errorf("Expected request path in envelope, got %q", body.Path)
	}
	if body.Timestamp == "" {
		t.Error("Expected a timestamp")
	}
	if body.Data == nil {
		t.Error("Expected data to be present")
	}
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			"validation",
			&services.ValidationError{Fields: map[string]string{"title": "too short"}},
			http.StatusBadRequest,
			"Validation failed",
		},
		{
			"conflict",
			&services.ConflictError{Message: "An exam with this title already exists"},
			http.StatusConflict,
			"An exam with this title already exists",
		},
		{
			"not found",
			&services.NotFoundError{Message: "Exam 7 not found"},
			http.StatusNotFound,
			"Exam 7 not found",
		},
		{
			"unauthorized",
			&services.UnauthorizedError{Message: "Invalid nickname or password"},
			http.StatusUnauthorized,
			"Invalid nickname or password",
		},
		{
			"forbidden",
			&services.ForbiddenError{Message: "Admin access required"},
			http.StatusForbidden,
			"Admin access required",
		},
		{
			"internal details hidden",
			errors.New("pq: connection refused"),
			http.StatusInternalServerError,
			"An unexpected error occurred",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/exams", nil)
			rec := httptest.NewRecorder()

			handleServiceError(rec, req, tc.err)

			if rec.Code != tc.status {
				t.Errorf("Expected status %d, got %d", tc.status, rec.Code)
			}

			var body envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to parse body: %v", err)
			}
			if body.Success {
				t.Error("Failure envelope must have success=false")
			}
			if body.Message != tc.message {
				t.Errorf("Expected message %q, got %q", tc.message, body.Message)
			}
		})
	}
}

func TestHandleServiceError_ValidationFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exams", nil)
	rec := httptest.NewRecorder()

	handleServiceError(rec, req, &services.ValidationError{
		Fields: map[string]string{"title": "Title must be between 2 and 50 characters"},
	})

	var body struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse body: %v", err)
	}
	if body.Data["title"] != "Title must be between 2 and 50 characters" {
		t.Errorf("Expected field errors in data, got %v", body.Data)
	}
}
