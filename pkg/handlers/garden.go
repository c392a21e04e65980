package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/models"
	"github.com/greenthumb-app/greenthumb/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// GardenListResponse is returned by GET /api/garden.
type GardenListResponse struct {
	Plants []*models.GardenPlant `json:"plants"`
	Total  int                   `json:"total"`
}

// PlantDetailResponse is returned by GET /api/garden/{id}.
type PlantDetailResponse struct {
	Plant     *models.GardenPlant `json:"plant"`
	Reminders []models.Reminder   `json:"reminders"`
}

// UpdateNotesRequest replaces a plant's notes.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// ============================================================================
// Handler
// ============================================================================

// GardenHandler serves the user's garden.
type GardenHandler struct {
	garden services.GardenService
	logger *zap.Logger
}

// NewGardenHandler creates a new garden handler.
func NewGardenHandler(garden services.GardenService, logger *zap.Logger) *GardenHandler {
	return &GardenHandler{
		garden: garden,
		logger: logger.Named("garden-handler"),
	}
}

// RegisterRoutes registers the garden handler's routes on the mux.
func (h *GardenHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/garden"
	mux.HandleFunc("GET "+base, h.List)
	mux.HandleFunc("POST "+base, h.Adopt)
	mux.HandleFunc("GET "+base+"/{id}", h.Get)
	mux.HandleFunc("DELETE "+base+"/{id}", h.Remove)
	mux.HandleFunc("PUT "+base+"/{id}/notes", h.UpdateNotes)
	mux.HandleFunc("POST "+base+"/{id}/logs/{action}", h.LogCare)
	mux.HandleFunc("GET "+base+"/{id}/reminders", h.Reminders)
	mux.HandleFunc("GET /api/reminders", h.AllReminders)
}

// List handles GET /api/garden.
func (h *GardenHandler) List(w http.ResponseWriter, r *http.Request) {
	plants, err := h.garden.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "List garden", err, nil)
		return
	}
	if plants == nil {
		plants = []*models.GardenPlant{}
	}
	writeData(w, h.logger, http.StatusOK, GardenListResponse{Plants: plants, Total: len(plants)})
}

// Adopt handles POST /api/garden.
func (h *GardenHandler) Adopt(w http.ResponseWriter, r *http.Request) {
	var req services.AdoptRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	plant, err := h.garden.AdoptPlant(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "Adopt plant", err, plant)
		return
	}
	writeData(w, h.logger, http.StatusCreated, plant)
}

// Get handles GET /api/garden/{id}.
func (h *GardenHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePlantID(w, r, h.logger)
	if !ok {
		return
	}

	plant, err := h.garden.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Get plant", err, nil)
		return
	}
	reminders, err := h.garden.Reminders(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Get reminders", err, nil)
		return
	}

	writeData(w, h.logger, http.StatusOK, PlantDetailResponse{Plant: plant, Reminders: reminders.Reminders})
}

// UpdateNotes handles PUT /api/garden/{id}/notes.
func (h *GardenHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePlantID(w, r, h.logger)
	if !ok {
		return
	}
	var req UpdateNotesRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	plant, err := h.garden.UpdateNotes(r.Context(), id, req.Notes)
	if err != nil {
		writeServiceError(w, h.logger, "Update notes", err, plant)
		return
	}
	writeData(w, h.logger, http.StatusOK, plant)
}

// LogCare handles POST /api/garden/{id}/logs/{action}.
// Records the care event at the current time.
func (h *GardenHandler) LogCare(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePlantID(w, r, h.logger)
	if !ok {
		return
	}
	action, ok := ParseCareAction(w, r, h.logger)
	if !ok {
		return
	}

	plant, err := h.garden.LogCare(r.Context(), id, action, time.Time{})
	if err != nil {
		writeServiceError(w, h.logger, "Log care", err, plant)
		return
	}
	writeData(w, h.logger, http.StatusOK, plant)
}

// Reminders handles GET /api/garden/{id}/reminders.
func (h *GardenHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePlantID(w, r, h.logger)
	if !ok {
		return
	}

	reminders, err := h.garden.Reminders(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Get reminders", err, nil)
		return
	}
	writeData(w, h.logger, http.StatusOK, reminders)
}

// AllReminders handles GET /api/reminders.
func (h *GardenHandler) AllReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.garden.AllReminders(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "List reminders", err, nil)
		return
	}
	writeData(w, h.logger, http.StatusOK, reminders)
}

// Remove handles DELETE /api/garden/{id}?confirm=true.
// Removal is irreversible, so the request must carry confirm=true.
func (h *GardenHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePlantID(w, r, h.logger)
	if !ok {
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		if err := ErrorResponse(w, http.StatusConflict, "confirmation_required",
			"Removing a plant cannot be undone. Repeat the request with confirm=true."); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.garden.Remove(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Remove plant", err, nil)
		return
	}
	writeData(w, h.logger, http.StatusOK, map[string]int64{"id": id})
}
