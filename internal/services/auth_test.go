package services

import (
	"context"
	"strings"
	"testing"

	"proctor-backend/internal/models"
)

func TestRegister_RejectsBadInput(t *testing.T) {
	// Validation runs before any persistence, so no repos are needed.
	svc := NewAuthService(nil, nil, nil)

	tests := []struct {
		name     string
		nickname string
		password string
		field    string
	}{
		{"nickname too short", "a", "password123", "nickname"},
		{"nickname too long", strings.Repeat("a", 21), "password123", "nickname"},
		{"password too short", "student1", "short", "password"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := models.RegisterRequest{Nickname: tc.nickname, Password: tc.password}
			_, err := svc.Register(context.Background(), req)

			vErr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if _, present := vErr.Fields[tc.field]; !present {
				t.Errorf("Expected field error for %q, got %v", tc.field, vErr.Fields)
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	a, err := generateToken(64)
	if err != nil {
		t.Fatalf("generateToken failed: %v", err)
	}
	b, err := generateToken(64)
	if err != nil {
		t.Fatalf("generateToken failed: %v", err)
	}

	if len(a) != 128 {
		t.Errorf("Expected 128 hex characters, got %d", len(a))
	}
	if a == b {
		t.Error("Tokens must be unique")
	}
}
