package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/careguide"
	"github.com/greenthumb-app/greenthumb/pkg/kvstore"
	"github.com/greenthumb-app/greenthumb/pkg/llm"
	"github.com/greenthumb-app/greenthumb/pkg/models"
	"github.com/greenthumb-app/greenthumb/pkg/reminder"
	"github.com/greenthumb-app/greenthumb/pkg/repositories"
	"github.com/greenthumb-app/greenthumb/pkg/services"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// mockPlantAI is a configurable PlantAI for handler tests.
type mockPlantAI struct {
	IdentifyFunc    func(ctx context.Context, image llm.Image) (string, error)
	CareGuideFunc   func(ctx context.Context, plantName string) (*models.PlantCareGuide, error)
	LegacyGuideFunc func(ctx context.Context, plantName string) (*careguide.LegacyGuide, error)
	DiagnoseFunc    func(ctx context.Context, image llm.Image) (*models.DiagnosisReport, error)
	ConverseFunc    func(ctx context.Context, history []models.ChatMessage, text string) (string, error)

	lastImage llm.Image
}

func (m *mockPlantAI) IdentifyPlant(ctx context.Context, image llm.Image) (string, error) {
	m.lastImage = image
	if m.IdentifyFunc != nil {
		return m.IdentifyFunc(ctx, image)
	}
	return "Monstera deliciosa", nil
}

func (m *mockPlantAI) FetchCareGuide(ctx context.Context, plantName string) (*models.PlantCareGuide, error) {
	if m.CareGuideFunc != nil {
		return m.CareGuideFunc(ctx, plantName)
	}
	return testGuide(plantName), nil
}

func (m *mockPlantAI) FetchLegacyGuide(ctx context.Context, plantName string) (*careguide.LegacyGuide, error) {
	if m.LegacyGuideFunc != nil {
		return m.LegacyGuideFunc(ctx, plantName)
	}
	guide := careguide.Parse(plantName + " is easy.\n### Watering:\nWeekly.")
	return &guide, nil
}

func (m *mockPlantAI) Diagnose(ctx context.Context, image llm.Image) (*models.DiagnosisReport, error) {
	m.lastImage = image
	if m.DiagnoseFunc != nil {
		return m.DiagnoseFunc(ctx, image)
	}
	return &models.DiagnosisReport{}, nil
}

func (m *mockPlantAI) Converse(ctx context.Context, history []models.ChatMessage, text string) (string, error) {
	if m.ConverseFunc != nil {
		return m.ConverseFunc(ctx, history, text)
	}
	return "You said: " + text, nil
}

func testGuide(name string) *models.PlantCareGuide {
	return &models.PlantCareGuide{
		PlantName: name,
		Summary:   "A forgiving tropical plant.",
		Instructions: []models.CareInstruction{
			{Topic: "Watering", Details: "When the top inch is dry.", FrequencyDays: &models.FrequencyRange{Min: 7, Max: 10}},
			{Topic: "Sunlight", Details: "Bright, indirect light."},
		},
	}
}

var handlerNow = time.Date(2026, time.April, 20, 10, 0, 0, 0, time.UTC)

func newTestGardenService(t *testing.T) services.GardenService {
	t.Helper()
	clock := func() time.Time { return handlerNow }
	repo := repositories.NewGardenRepository(kvstore.NewMemoryStore(), "myGarden", zap.NewNop())
	calc := reminder.NewCalculator(reminder.ModeCalendarDays, time.UTC, clock)
	return services.NewGardenService(repo, calc, clock, zap.NewNop())
}

// imageRequest builds a multipart upload with the given part content type.
func imageRequest(t *testing.T, target, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="plant.png"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// envelope decodes an ApiResponse with typed data.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeBody(rec *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}
