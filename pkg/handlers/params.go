package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/models"
)

// ParsePlantID extracts and validates the plant ID from the request path.
// Returns the ID and true on success, or 0 and false on error
// (after writing an error response).
// Expects path parameter: id
func ParsePlantID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadParam(w, "invalid_plant_id", "Invalid plant ID", logger)
		return 0, false
	}
	return id, true
}

// ParseCareAction extracts and validates the care action from the request path.
// Expects path parameter: action
func ParseCareAction(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (models.CareAction, bool) {
	action, err := models.ParseCareAction(r.PathValue("action"))
	if err != nil {
		writeBadParam(w, "invalid_care_action", "Care action must be watering or fertilizing", logger)
		return "", false
	}
	return action, true
}

func writeBadParam(w http.ResponseWriter, errorCode, errorMessage string, logger *zap.Logger) {
	if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
