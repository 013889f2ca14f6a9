package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/services"
)

// RegisterRequest for POST /api/v1/auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse for register and login.
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// AuthHandler handles registration and login.
type AuthHandler struct {
	users  *services.UserService
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *services.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// RegisterRoutes registers the auth routes on the given mux. These endpoints
// are unauthenticated by nature.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/register", h.Register)
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_email", "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		_ = ErrorResponse(w, http.StatusBadRequest, "weak_password", "password must be at least 8 characters")
		return
	}

	user, token, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, AuthResponse{User: user, Token: token}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	user, token, err := h.users.Login(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, AuthResponse{User: user, Token: token}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
