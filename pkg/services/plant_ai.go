package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/careguide"
	"github.com/greenthumb-app/greenthumb/pkg/llm"
	"github.com/greenthumb-app/greenthumb/pkg/logging"
	"github.com/greenthumb-app/greenthumb/pkg/models"
	"github.com/greenthumb-app/greenthumb/pkg/prompts"
)

// maxPlantNameLength bounds an identification answer. Anything longer is a
// sentence, not a name.
const maxPlantNameLength = 100

// PlantAI is the boundary to the generative model for the four plant
// capabilities. Every method fails closed with a domain sentinel from
// apperrors wrapping the classified transport error.
type PlantAI interface {
	// IdentifyPlant returns the common name of the plant in the image.
	IdentifyPlant(ctx context.Context, image llm.Image) (string, error)

	// FetchCareGuide returns a validated structured guide.
	FetchCareGuide(ctx context.Context, plantName string) (*models.PlantCareGuide, error)

	// FetchLegacyGuide requests a free-text guide and runs the heading parser over it.
	FetchLegacyGuide(ctx context.Context, plantName string) (*careguide.LegacyGuide, error)

	// Diagnose returns the suspected problems. An empty report means healthy.
	Diagnose(ctx context.Context, image llm.Image) (*models.DiagnosisReport, error)

	// Converse returns the assistant reply to text given the prior turns.
	Converse(ctx context.Context, history []models.ChatMessage, text string) (string, error)
}

type plantAI struct {
	client  llm.LLMClient
	timeout time.Duration
	logger  *zap.Logger
}

// NewPlantAI creates the adapter. A non-positive timeout leaves deadlines to
// the caller's context.
func NewPlantAI(client llm.LLMClient, timeout time.Duration, logger *zap.Logger) PlantAI {
	return &plantAI{
		client:  client,
		timeout: timeout,
		logger:  logger.Named("plant-ai"),
	}
}

var _ PlantAI = (*plantAI)(nil)

// generate runs one request under the configured timeout and logs the outcome.
func (s *plantAI) generate(ctx context.Context, op string, req *llm.Request) (*llm.Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.client.Generate(ctx, req)
	if err != nil {
		classified := llm.ClassifyError(err)
		s.logger.Error("Model request failed",
			zap.String("operation", op),
			zap.String("provider", s.client.Provider()),
			zap.String("error_type", string(classified.Type)),
			zap.Bool("retryable", classified.Retryable),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, classified
	}

	s.logger.Debug("Model request completed",
		zap.String("operation", op),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("completion_tokens", resp.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// ============================================================================
// Identification
// ============================================================================

func (s *plantAI) IdentifyPlant(ctx context.Context, image llm.Image) (string, error) {
	if len(image.Data) == 0 {
		return "", fmt.Errorf("%w: %w: image is empty", apperrors.ErrIdentification, apperrors.ErrValidation)
	}

	resp, err := s.generate(ctx, "identify", &llm.Request{
		Messages: llm.UserText(prompts.IdentifyPlant, image),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrIdentification, err)
	}

	name, err := cleanPlantName(resp.Text)
	if err != nil {
		s.logger.Warn("Unusable identification answer",
			zap.String("answer", logging.TruncateString(resp.Text, 200)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", apperrors.ErrIdentification, err)
	}

	s.logger.Info("Plant identified", zap.String("plant_name", name))
	return name, nil
}

// cleanPlantName trims the answer and strips markdown emphasis, quotes and a
// trailing period. Empty, multi-line or overlong answers are rejected.
func cleanPlantName(answer string) (string, error) {
	name := strings.TrimSpace(answer)
	name = strings.Trim(name, "*_\"'`")
	name = strings.TrimSuffix(name, ".")
	name = strings.TrimSpace(name)

	switch {
	case name == "":
		return "", errors.New("empty answer")
	case strings.ContainsAny(name, "\r\n"):
		return "", errors.New("answer spans several lines")
	case len(name) > maxPlantNameLength:
		return "", fmt.Errorf("answer longer than %d characters", maxPlantNameLength)
	}
	return name, nil
}

// ============================================================================
// Care Guides
// ============================================================================

func (s *plantAI) FetchCareGuide(ctx context.Context, plantName string) (*models.PlantCareGuide, error) {
	plantName = strings.TrimSpace(plantName)
	if plantName == "" {
		return nil, fmt.Errorf("%w: plant name is required", apperrors.ErrValidation)
	}

	resp, err := s.generate(ctx, "care_guide", &llm.Request{
		SystemInstruction: prompts.BuildCareGuideSystemMessage(),
		Messages:          llm.UserText(prompts.BuildCareGuidePrompt(plantName)),
		JSON:              true,
		Schema:            prompts.CareGuideSchema(),
		Temperature:       llm.Float(0.4),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrGuideParse, err)
	}

	guide, err := llm.ParseJSONResponse[models.PlantCareGuide](resp.Text, prompts.CareGuideSchema())
	if errors.Is(err, llm.ErrMissingRequired) {
		s.logger.Warn("Care guide is missing required fields",
			zap.String("plant_name", plantName),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w: %w", apperrors.ErrGuideParse, apperrors.ErrInvalidGuide, err)
	}
	if err != nil {
		s.logger.Warn("Care guide response is not valid JSON",
			zap.String("plant_name", plantName),
			zap.String("response", logging.TruncateString(resp.Text, 500)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", apperrors.ErrGuideParse, err)
	}
	if err := guide.Validate(); err != nil {
		s.logger.Warn("Care guide failed validation",
			zap.String("plant_name", plantName),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", apperrors.ErrGuideParse, err)
	}

	if missing := guide.MissingTopics(); len(missing) > 0 {
		s.logger.Info("Care guide is missing topics",
			zap.String("plant_name", guide.PlantName),
			zap.Strings("missing", missing))
	}
	return &guide, nil
}

func (s *plantAI) FetchLegacyGuide(ctx context.Context, plantName string) (*careguide.LegacyGuide, error) {
	plantName = strings.TrimSpace(plantName)
	if plantName == "" {
		return nil, fmt.Errorf("%w: plant name is required", apperrors.ErrValidation)
	}

	resp, err := s.generate(ctx, "legacy_guide", &llm.Request{
		Messages: llm.UserText(careguide.Prompt(plantName)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrGuideParse, err)
	}

	guide := careguide.Parse(resp.Text)
	return &guide, nil
}

// ============================================================================
// Diagnosis
// ============================================================================

func (s *plantAI) Diagnose(ctx context.Context, image llm.Image) (*models.DiagnosisReport, error) {
	if len(image.Data) == 0 {
		return nil, fmt.Errorf("%w: %w: image is empty", apperrors.ErrDiagnosis, apperrors.ErrValidation)
	}

	resp, err := s.generate(ctx, "diagnose", &llm.Request{
		SystemInstruction: prompts.BuildDiagnosisSystemMessage(),
		Messages:          llm.UserText(prompts.BuildDiagnosisPrompt(), image),
		JSON:              true,
		Schema:            prompts.DiagnosisSchema(),
		Temperature:       llm.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrDiagnosis, err)
	}

	diagnoses, err := parseDiagnoses(resp.Text)
	if err != nil {
		s.logger.Warn("Diagnosis response could not be parsed",
			zap.String("response", logging.TruncateString(resp.Text, 500)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", apperrors.ErrDiagnosis, err)
	}

	s.logger.Info("Plant diagnosed", zap.Int("issues", len(diagnoses)))
	return &models.DiagnosisReport{Diagnoses: diagnoses}, nil
}

// parseDiagnoses accepts a bare array or an object with a "diagnoses" array,
// since some models wrap arrays when asked for JSON.
func parseDiagnoses(text string) ([]models.Diagnosis, error) {
	raw, err := llm.ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	items := []byte(raw)
	if strings.HasPrefix(raw, "{") {
		var wrapped struct {
			Diagnoses json.RawMessage `json:"diagnoses"`
		}
		if err := json.Unmarshal(items, &wrapped); err != nil {
			return nil, fmt.Errorf("unmarshal diagnoses: %w", err)
		}
		if len(wrapped.Diagnoses) == 0 || string(wrapped.Diagnoses) == "null" {
			return nil, errors.New("response object has no diagnoses")
		}
		items = wrapped.Diagnoses
	}

	var diagnoses []models.Diagnosis
	if err := json.Unmarshal(items, &diagnoses); err != nil {
		return nil, fmt.Errorf("unmarshal diagnoses: %w", err)
	}
	if err := prompts.DiagnosisSchema().CheckRequired(items); err != nil {
		return nil, err
	}
	for i := range diagnoses {
		if err := diagnoses[i].Validate(); err != nil {
			return nil, fmt.Errorf("diagnosis %d: %w", i, err)
		}
	}
	if diagnoses == nil {
		diagnoses = []models.Diagnosis{}
	}
	return diagnoses, nil
}

// ============================================================================
// Chat
// ============================================================================

func (s *plantAI) Converse(ctx context.Context, history []models.ChatMessage, text string) (string, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		role := llm.RoleAssistant
		if m.IsFromUser() {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Text: m.Text})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Text: text})

	resp, err := s.generate(ctx, "converse", &llm.Request{
		SystemInstruction: prompts.ChatPersona,
		Messages:          messages,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrChat, err)
	}

	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", apperrors.ErrChat)
	}
	return reply, nil
}
