package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/models"
	"github.com/greenthumb-app/greenthumb/pkg/reminder"
	"github.com/greenthumb-app/greenthumb/pkg/repositories"
)

// MaxNotesLength bounds the free-text notes on a plant, in characters.
const MaxNotesLength = 10000

// AdoptRequest carries a freshly fetched guide into the garden.
type AdoptRequest struct {
	Name         string                   `json:"name"`
	Image        string                   `json:"image"`
	Summary      string                   `json:"summary"`
	Instructions []models.CareInstruction `json:"instructions"`
}

// GardenService manages the user's adopted plants and their care logs.
//
// Mutations that fail to persist return the mutated plant together with an
// error wrapping apperrors.ErrPersistence: the change is kept in memory but
// is not durable.
type GardenService interface {
	AdoptPlant(ctx context.Context, req AdoptRequest) (*models.GardenPlant, error)
	List(ctx context.Context) ([]*models.GardenPlant, error)
	Get(ctx context.Context, id int64) (*models.GardenPlant, error)
	UpdateNotes(ctx context.Context, id int64, notes string) (*models.GardenPlant, error)
	// LogCare appends a care event. A zero at means now.
	LogCare(ctx context.Context, id int64, action models.CareAction, at time.Time) (*models.GardenPlant, error)
	Remove(ctx context.Context, id int64) error
	Reminders(ctx context.Context, id int64) (*models.PlantReminders, error)
	AllReminders(ctx context.Context) ([]models.PlantReminders, error)
}

type gardenService struct {
	repo       repositories.GardenRepository
	calculator *reminder.Calculator
	ids        *models.IDGenerator
	now        func() time.Time
	logger     *zap.Logger

	// mu serializes read-modify-write on single plants.
	mu     sync.Mutex
	seeded bool
}

// NewGardenService creates the garden service. A nil clock uses time.Now.
func NewGardenService(
	repo repositories.GardenRepository,
	calculator *reminder.Calculator,
	now func() time.Time,
	logger *zap.Logger,
) GardenService {
	if now == nil {
		now = time.Now
	}
	return &gardenService{
		repo:       repo,
		calculator: calculator,
		ids:        models.NewIDGenerator(now),
		now:        now,
		logger:     logger.Named("garden-service"),
	}
}

var _ GardenService = (*gardenService)(nil)

// AdoptPlant snapshots the guide into a new plant with empty logs.
func (s *gardenService) AdoptPlant(ctx context.Context, req AdoptRequest) (*models.GardenPlant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: plant name is required", apperrors.ErrValidation)
	}
	if req.Image != "" && !models.IsImageDataURL(req.Image) {
		return nil, fmt.Errorf("%w: image must be a base64 image data URL", apperrors.ErrValidation)
	}
	for i, inst := range req.Instructions {
		if inst.FrequencyDays == nil {
			continue
		}
		if err := inst.FrequencyDays.Validate(); err != nil {
			return nil, fmt.Errorf("%w: instructions[%d]: %w", apperrors.ErrValidation, i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.seedIDs(ctx); err != nil {
		return nil, err
	}

	plant := &models.GardenPlant{
		ID:               s.ids.Next(),
		Name:             name,
		Image:            req.Image,
		Summary:          req.Summary,
		CareInstructions: models.CloneInstructions(req.Instructions),
		WateringLog:      []time.Time{},
		FertilizingLog:   []time.Time{},
	}
	if plant.CareInstructions == nil {
		plant.CareInstructions = []models.CareInstruction{}
	}

	if err := s.repo.Add(ctx, plant); err != nil {
		if errors.Is(err, apperrors.ErrPersistence) {
			s.logger.Warn("Adopted plant is not durable", zap.Int64("plant_id", plant.ID), zap.Error(err))
			return plant, err
		}
		return nil, err
	}

	s.logger.Info("Plant adopted",
		zap.Int64("plant_id", plant.ID),
		zap.String("plant_name", plant.Name))
	return plant, nil
}

// seedIDs makes sure new ids are above every stored id, even when the clock
// moved backwards since they were assigned.
func (s *gardenService) seedIDs(ctx context.Context) error {
	if s.seeded {
		return nil
	}
	maxID, err := s.repo.MaxID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read garden: %w", err)
	}
	s.ids.Seed(maxID)
	s.seeded = true
	return nil
}

func (s *gardenService) List(ctx context.Context) ([]*models.GardenPlant, error) {
	return s.repo.List(ctx)
}

func (s *gardenService) Get(ctx context.Context, id int64) (*models.GardenPlant, error) {
	return s.repo.Get(ctx, id)
}

func (s *gardenService) UpdateNotes(ctx context.Context, id int64, notes string) (*models.GardenPlant, error) {
	if n := utf8.RuneCountInString(notes); n > MaxNotesLength {
		return nil, fmt.Errorf("%w: notes are %d characters, limit is %d", apperrors.ErrValidation, n, MaxNotesLength)
	}

	return s.mutate(ctx, id, func(p *models.GardenPlant) error {
		p.Notes = notes
		return nil
	})
}

func (s *gardenService) LogCare(ctx context.Context, id int64, action models.CareAction, at time.Time) (*models.GardenPlant, error) {
	if at.IsZero() {
		at = s.now()
	}

	plant, err := s.mutate(ctx, id, func(p *models.GardenPlant) error {
		if err := p.AppendEvent(action, at); err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("Care logged",
			zap.Int64("plant_id", id),
			zap.String("action", string(action)),
			zap.Time("at", at))
	}
	return plant, err
}

// mutate loads a plant, applies fn and writes the whole garden back.
func (s *gardenService) mutate(ctx context.Context, id int64, fn func(*models.GardenPlant) error) (*models.GardenPlant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plant, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(plant); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, plant); err != nil {
		if errors.Is(err, apperrors.ErrPersistence) {
			s.logger.Warn("Plant change is not durable", zap.Int64("plant_id", id), zap.Error(err))
			return plant, err
		}
		return nil, err
	}
	return plant, nil
}

// Remove deletes the plant unconditionally. Confirmation is the caller's job.
func (s *gardenService) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Plant removed", zap.Int64("plant_id", id))
	return nil
}

func (s *gardenService) Reminders(ctx context.Context, id int64) (*models.PlantReminders, error) {
	plant, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	reminders := s.calculator.ForPlant(plant)
	return &reminders, nil
}

func (s *gardenService) AllReminders(ctx context.Context) ([]models.PlantReminders, error) {
	plants, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.PlantReminders, 0, len(plants))
	for _, p := range plants {
		out = append(out, s.calculator.ForPlant(p))
	}
	return out, nil
}
