package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/services"
)

// AnalyzeRequest for POST /api/v1/garden/analyze
type AnalyzeRequest struct {
	Image     string   `json:"image"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Nickname  *string  `json:"nickname,omitempty"`
	ImageURL  *string  `json:"image_url,omitempty"`
}

// HealthCheckRequest for POST /api/v1/garden/{plantID}/health
type HealthCheckRequest struct {
	Image string `json:"image"`
}

// GardenListResponse for GET /api/v1/garden
type GardenListResponse struct {
	Plants []*PlantResponse `json:"plants"`
	Total  int              `json:"total"`
}

// PlantResponse is one garden record as serialized to clients.
type PlantResponse = services.PlantDetail

// GardenHandler handles the garden endpoints.
type GardenHandler struct {
	garden *services.GardenService
	logger *zap.Logger
}

// NewGardenHandler creates a new garden handler.
func NewGardenHandler(garden *services.GardenService, logger *zap.Logger) *GardenHandler {
	return &GardenHandler{garden: garden, logger: logger}
}

// RegisterRoutes registers the garden routes. middleware wraps each route
// with authentication.
func (h *GardenHandler) RegisterRoutes(mux *http.ServeMux, middleware func(http.Handler) http.Handler) {
	mux.Handle("POST /api/v1/garden/analyze", middleware(http.HandlerFunc(h.Analyze)))
	mux.Handle("GET /api/v1/garden", middleware(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/v1/garden/{plantID}", middleware(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/v1/garden/{plantID}", middleware(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/v1/garden/{plantID}", middleware(http.HandlerFunc(h.Delete)))
	mux.Handle("POST /api/v1/garden/{plantID}/water", middleware(http.HandlerFunc(h.Water)))
	mux.Handle("POST /api/v1/garden/{plantID}/health", middleware(http.HandlerFunc(h.AssessHealth)))
}

// parsePlantID reads the {plantID} path value.
func parsePlantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	plantID, err := uuid.Parse(r.PathValue("plantID"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_plant_id", "plant id must be a UUID")
		return uuid.Nil, false
	}
	return plantID, true
}

// Analyze handles POST /api/v1/garden/analyze
func (h *GardenHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "a base64 image is required")
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_coordinates", "latitude and longitude must be sent together")
		return
	}

	result, err := h.garden.Analyze(r.Context(), userID, services.AnalyzeRequest{
		ImageB64:  req.Image,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Nickname:  req.Nickname,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, result); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// List handles GET /api/v1/garden
func (h *GardenHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	plants, err := h.garden.List(r.Context(), userID)
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	response := GardenListResponse{Plants: make([]*PlantResponse, 0, len(plants)), Total: len(plants)}
	for _, p := range plants {
		response.Plants = append(response.Plants, &PlantResponse{Plant: p})
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/v1/garden/{plantID}
func (h *GardenHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	plantID, ok := parsePlantID(w, r)
	if !ok {
		return
	}

	detail, err := h.garden.Get(r.Context(), userID, plantID)
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, detail); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/v1/garden/{plantID}
func (h *GardenHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	plantID, ok := parsePlantID(w, r)
	if !ok {
		return
	}

	var req services.PlantUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	plant, err := h.garden.Update(r.Context(), userID, plantID, req)
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, plant); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/v1/garden/{plantID}
func (h *GardenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	plantID, ok := parsePlantID(w, r)
	if !ok {
		return
	}

	if err := h.garden.Delete(r.Context(), userID, plantID); err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Water handles POST /api/v1/garden/{plantID}/water
func (h *GardenHandler) Water(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	plantID, ok := parsePlantID(w, r)
	if !ok {
		return
	}

	plant, err := h.garden.Water(r.Context(), userID, plantID)
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, plant); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// AssessHealth handles POST /api/v1/garden/{plantID}/health
func (h *GardenHandler) AssessHealth(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	plantID, ok := parsePlantID(w, r)
	if !ok {
		return
	}

	var req HealthCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "a base64 image is required")
		return
	}

	result, err := h.garden.AssessHealth(r.Context(), userID, plantID, req.Image)
	if err != nil {
		writeServiceError(h.logger, w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
