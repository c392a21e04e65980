package handlers

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/llm"
)

// ApiResponse is the standard API response wrapper.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, ApiResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	_, err = w.Write(append(body, '\n'))
	return err
}

// errorStatus maps a service error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errImageTooLarge):
		return http.StatusRequestEntityTooLarge, "image_too_large"
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperrors.ErrPersistence):
		return http.StatusInternalServerError, "persistence_failed"
	}

	// AI failures are upstream failures. An open circuit means the model is
	// not being called at all.
	status := http.StatusBadGateway
	if llm.GetErrorType(err) == llm.ErrorTypeUnavailable {
		status = http.StatusServiceUnavailable
	}
	switch {
	case errors.Is(err, apperrors.ErrIdentification):
		return status, "identification_failed"
	case errors.Is(err, apperrors.ErrGuideParse), errors.Is(err, apperrors.ErrInvalidGuide):
		return status, "guide_failed"
	case errors.Is(err, apperrors.ErrDiagnosis):
		return status, "diagnosis_failed"
	case errors.Is(err, apperrors.ErrChat):
		return status, "chat_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeServiceError writes err as an API error with its user-facing message.
// data, when non-nil, is returned alongside the error so clients can keep
// state that was changed before the failure.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error, data any) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.String("error_code", code), zap.Error(err))
	} else {
		logger.Debug(op+" rejected", zap.String("error_code", code), zap.Error(err))
	}

	resp := ApiResponse{
		Success: false,
		Data:    data,
		Error:   code,
		Message: apperrors.UserMessage(err),
	}
	if err := WriteJSON(w, status, resp); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeData writes a successful envelope.
func writeData(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

// decodeJSON decodes a request body, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *zap.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}
