package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/auth"
)

// requestUserID pulls the authenticated user out of the request context.
// Routes behind RequireAuth always have one; a miss means a wiring bug.
func requestUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeServiceError maps the service error sentinels onto HTTP statuses.
// Anything unmapped is a 500 with a generic message; internals stay in logs.
func writeServiceError(logger *zap.Logger, w http.ResponseWriter, err error) {
	var (
		status  int
		code    string
		message string
	)

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "resource not found"
	case errors.Is(err, apperrors.ErrConflict):
		status, code, message = http.StatusConflict, "conflict", "resource already exists"
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		status, code, message = http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case errors.Is(err, apperrors.ErrDailyLimitReached):
		status, code, message = http.StatusTooManyRequests, "daily_limit_reached", "daily free usage limit reached"
	case errors.Is(err, apperrors.ErrRateLimiterUnavailable):
		status, code, message = http.StatusServiceUnavailable, "temporarily_unavailable", "please try again shortly"
	case errors.Is(err, apperrors.ErrNoIdentificationMatches):
		status, code, message = http.StatusUnprocessableEntity, "no_matches", "no plant could be identified on the image"
	default:
		status, code, message = http.StatusInternalServerError, "internal_error", "internal server error"
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}

	if werr := ErrorResponse(w, status, code, message); werr != nil {
		logger.Error("failed to write error response", zap.Error(werr))
	}
}
