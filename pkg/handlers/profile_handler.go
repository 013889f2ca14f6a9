package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/services"
)

// FCMTokenRequest for POST /api/v1/profile/fcm-token
type FCMTokenRequest struct {
	Token string `json:"token"`
}

// SubscriptionRequest for POST /api/v1/profile/subscription
type SubscriptionRequest struct {
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ProfileHandler handles the profile endpoints.
type ProfileHandler struct {
	profile      *services.ProfileService
	users        *services.UserService
	achievements *services.AchievementService
	logger       *zap.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profile *services.ProfileService, users *services.UserService, achievements *services.AchievementService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profile: profile, users: users, achievements: achievements, logger: logger}
}

// RegisterRoutes registers the profile routes. middleware wraps each route
// with authentication.
func (h *ProfileHandler) RegisterRoutes(mux *http.ServeMux, middleware func(http.Handler) http.Handler) {
	mux.Handle("GET /api/v1/profile", middleware(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/v1/profile", middleware(http.HandlerFunc(h.Update)))
	mux.Handle("GET /api/v1/profile/achievements", middleware(http.HandlerFunc(h.Achievements)))
	mux.Handle("POST /api/v1/profile/fcm-token", middleware(http.HandlerFunc(h.SetFCMToken)))
	mux.Handle("DELETE /api/v1/profile/fcm-token", middleware(http.HandlerFunc(h.ClearFCMToken)))
	mux.Handle("POST /api/v1/profile/subscription", middleware(http.HandlerFunc(h.SetSubscription)))
}

// Get handles GET /api/v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.profile.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, profile); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/v1/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var req services.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	user, err := h.profile.Update(r.Context(), userID, req)
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Achievements handles GET /api/v1/profile/achievements
func (h *ProfileHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	grants, err := h.achievements.ListForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"achievements": grants, "total": len(grants)}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// SetFCMToken handles POST /api/v1/profile/fcm-token
func (h *ProfileHandler) SetFCMToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var req FCMTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "a device token is required")
		return
	}

	if err := h.users.RegisterFCMToken(r.Context(), userID, req.Token); err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearFCMToken handles DELETE /api/v1/profile/fcm-token
func (h *ProfileHandler) ClearFCMToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	if err := h.users.UnregisterFCMToken(r.Context(), userID); err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetSubscription handles POST /api/v1/profile/subscription
func (h *ProfileHandler) SetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var req SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	switch req.Status {
	case models.SubscriptionFree, models.SubscriptionPremium, models.SubscriptionTrial:
	default:
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_status", "status must be free, premium, or trial")
		return
	}

	user, err := h.users.UpdateSubscription(r.Context(), userID, req.Status, req.ExpiresAt)
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
