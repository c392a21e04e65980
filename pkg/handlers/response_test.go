package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/llm"
)

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, ErrorResponse(rec, http.StatusNotFound, "not_found", "resource not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":false,"error":"not_found","message":"resource not found"}`, rec.Body.String())
}

func TestWriteJSON(t *testing.T) {
	t.Run("ok status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, WriteJSON(rec, http.StatusOK, map[string]string{"key": "value"}))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"key":"value"}`, rec.Body.String())
	})

	t.Run("created", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, WriteJSON(rec, http.StatusCreated, ApiResponse{Success: true}))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	})

	t.Run("unencodable data writes nothing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		assert.Error(t, WriteJSON(rec, http.StatusOK, make(chan int)))
		assert.Empty(t, rec.Body.String())
	})
}

func TestErrorStatus(t *testing.T) {
	upstream := llm.NewError(llm.ErrorTypeTimeout, "deadline exceeded", true, nil)
	open := llm.NewError(llm.ErrorTypeUnavailable, "circuit open", true, nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", fmt.Errorf("%w: bad", apperrors.ErrValidation), http.StatusBadRequest, "validation_failed"},
		{"too large", fmt.Errorf("%w: %w", apperrors.ErrValidation, errImageTooLarge), http.StatusRequestEntityTooLarge, "image_too_large"},
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, "conflict"},
		{"persistence", apperrors.ErrPersistence, http.StatusInternalServerError, "persistence_failed"},
		{"identification", fmt.Errorf("%w: %w", apperrors.ErrIdentification, upstream), http.StatusBadGateway, "identification_failed"},
		{"guide", fmt.Errorf("%w: %w", apperrors.ErrGuideParse, upstream), http.StatusBadGateway, "guide_failed"},
		{"invalid guide", apperrors.ErrInvalidGuide, http.StatusBadGateway, "guide_failed"},
		{"diagnosis", apperrors.ErrDiagnosis, http.StatusBadGateway, "diagnosis_failed"},
		{"chat circuit open", fmt.Errorf("%w: %w", apperrors.ErrChat, open), http.StatusServiceUnavailable, "chat_failed"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestWriteServiceError_UsesUserMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	writeServiceError(rec, zap.NewNop(), "Diagnose", fmt.Errorf("%w: provider said no", apperrors.ErrDiagnosis), nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	env := decodeEnvelope[any](t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "diagnosis_failed", env.Error)
	assert.Equal(t, apperrors.MessageDiagnosis, env.Message)
	assert.NotContains(t, rec.Body.String(), "provider said no")
}
