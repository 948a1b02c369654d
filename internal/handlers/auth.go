package handlers

import (
	"encoding/json"
	"net/http"

	"proctor-backend/internal/models"
	"proctor-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusCreated, "User registered", user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	tokens, err := h.authService.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusOK, "Logged in", tokens)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	tokens, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusOK, "Token refreshed", tokens)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	h.authService.Logout(r.Context(), req.RefreshToken)
	writeSuccess(w, r, http.StatusOK, "Logged out", nil)
}
