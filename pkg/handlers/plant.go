package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/careguide"
	"github.com/greenthumb-app/greenthumb/pkg/models"
	"github.com/greenthumb-app/greenthumb/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// IdentifyResponse is returned by POST /api/identify. Image is the upload as
// a data URL, ready to be adopted into the garden.
type IdentifyResponse struct {
	PlantName string                 `json:"plantName"`
	Image     string                 `json:"image"`
	Guide     *models.PlantCareGuide `json:"guide"`
}

// GuideRequest names the plant a guide is requested for.
type GuideRequest struct {
	PlantName string `json:"plantName"`
}

// ParseGuideRequest carries free text in the heading convention.
type ParseGuideRequest struct {
	Text string `json:"text"`
}

// ============================================================================
// Handler
// ============================================================================

// PlantHandler serves the AI capabilities: identification, care guides and
// diagnosis.
type PlantHandler struct {
	ai             services.PlantAI
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewPlantHandler creates a new plant handler.
func NewPlantHandler(ai services.PlantAI, maxUploadBytes int64, logger *zap.Logger) *PlantHandler {
	return &PlantHandler{
		ai:             ai,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.Named("plant-handler"),
	}
}

// RegisterRoutes registers the plant handler's routes on the mux.
func (h *PlantHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/identify", h.Identify)
	mux.HandleFunc("POST /api/guides", h.Guide)
	mux.HandleFunc("POST /api/guides/legacy", h.LegacyGuide)
	mux.HandleFunc("POST /api/guides/parse", h.ParseGuide)
	mux.HandleFunc("POST /api/diagnose", h.Diagnose)
}

// Identify handles POST /api/identify.
// Identifies the plant in the uploaded photo and fetches its care guide. When
// the guide cannot be fetched the identified name is still returned in data.
func (h *PlantHandler) Identify(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(w, r, h.maxUploadBytes)
	if err != nil {
		writeServiceError(w, h.logger, "Identify", err, nil)
		return
	}

	name, err := h.ai.IdentifyPlant(r.Context(), image)
	if err != nil {
		writeServiceError(w, h.logger, "Identify", err, nil)
		return
	}

	response := IdentifyResponse{
		PlantName: name,
		Image:     models.NewImageDataURL(image.MIMEType, image.Data),
	}

	guide, err := h.ai.FetchCareGuide(r.Context(), name)
	if err != nil {
		writeServiceError(w, h.logger, "Fetch care guide", err, response)
		return
	}
	response.Guide = guide

	writeData(w, h.logger, http.StatusOK, response)
}

// Guide handles POST /api/guides.
func (h *PlantHandler) Guide(w http.ResponseWriter, r *http.Request) {
	name, ok := h.plantName(w, r)
	if !ok {
		return
	}

	guide, err := h.ai.FetchCareGuide(r.Context(), name)
	if err != nil {
		writeServiceError(w, h.logger, "Fetch care guide", err, nil)
		return
	}
	writeData(w, h.logger, http.StatusOK, guide)
}

// LegacyGuide handles POST /api/guides/legacy.
func (h *PlantHandler) LegacyGuide(w http.ResponseWriter, r *http.Request) {
	name, ok := h.plantName(w, r)
	if !ok {
		return
	}

	guide, err := h.ai.FetchLegacyGuide(r.Context(), name)
	if err != nil {
		writeServiceError(w, h.logger, "Fetch legacy guide", err, nil)
		return
	}
	writeData(w, h.logger, http.StatusOK, guide)
}

// ParseGuide handles POST /api/guides/parse.
// Runs the heading parser over the given text without calling the model.
func (h *PlantHandler) ParseGuide(w http.ResponseWriter, r *http.Request) {
	var req ParseGuideRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	writeData(w, h.logger, http.StatusOK, careguide.Parse(req.Text))
}

// Diagnose handles POST /api/diagnose.
func (h *PlantHandler) Diagnose(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(w, r, h.maxUploadBytes)
	if err != nil {
		writeServiceError(w, h.logger, "Diagnose", err, nil)
		return
	}

	report, err := h.ai.Diagnose(r.Context(), image)
	if err != nil {
		writeServiceError(w, h.logger, "Diagnose", err, nil)
		return
	}
	writeData(w, h.logger, http.StatusOK, report)
}

func (h *PlantHandler) plantName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req GuideRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return "", false
	}
	name := strings.TrimSpace(req.PlantName)
	if name == "" {
		writeServiceError(w, h.logger, "Fetch care guide",
			fmt.Errorf("%w: plantName is required", apperrors.ErrValidation), nil)
		return "", false
	}
	return name, true
}
