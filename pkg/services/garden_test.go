package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/kvstore"
	"github.com/greenthumb-app/greenthumb/pkg/models"
	"github.com/greenthumb-app/greenthumb/pkg/reminder"
	"github.com/greenthumb-app/greenthumb/pkg/repositories"
)

var gardenNow = time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC)

// failingStore fails writes while failSet is true.
type failingStore struct {
	*kvstore.MemoryStore
	mu      sync.Mutex
	failSet bool
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return errors.New("quota exceeded")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *failingStore) setFailing(v bool) {
	s.mu.Lock()
	s.failSet = v
	s.mu.Unlock()
}

func newTestGarden(t *testing.T, store kvstore.Store) GardenService {
	t.Helper()
	if store == nil {
		store = kvstore.NewMemoryStore()
	}
	clock := func() time.Time { return gardenNow }
	repo := repositories.NewGardenRepository(store, "myGarden", zap.NewNop())
	calc := reminder.NewCalculator(reminder.ModeCalendarDays, time.UTC, clock)
	return NewGardenService(repo, calc, clock, zap.NewNop())
}

func basilAdoption() AdoptRequest {
	return AdoptRequest{
		Name:    "Basil",
		Image:   models.NewImageDataURL("image/png", []byte{1, 2, 3}),
		Summary: "Sun and water.",
		Instructions: []models.CareInstruction{
			{Topic: "Sunlight", Details: "Full sun."},
			{Topic: "Watering", Details: "Keep moist.", FrequencyDays: &models.FrequencyRange{Min: 5, Max: 7}},
			{Topic: "Fertilizing", Details: "Monthly.", FrequencyDays: &models.FrequencyRange{Min: 28, Max: 30}},
		},
	}
}

func TestGardenService_AdoptPlant(t *testing.T) {
	ctx := context.Background()
	svc := newTestGarden(t, nil)

	req := basilAdoption()
	plant, err := svc.AdoptPlant(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, gardenNow.UnixMilli(), plant.ID)
	assert.Equal(t, "Basil", plant.Name)
	assert.Empty(t, plant.WateringLog)
	assert.NotNil(t, plant.WateringLog)
	assert.Empty(t, plant.Notes)

	// The stored instructions are a snapshot.
	req.Instructions[1].FrequencyDays.Max = 99
	stored, err := svc.Get(ctx, plant.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.CareInstructions[1].FrequencyDays.Max)

	second, err := svc.AdoptPlant(ctx, basilAdoption())
	require.NoError(t, err)
	assert.Greater(t, second.ID, plant.ID)

	plants, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, plants, 2)
	assert.Equal(t, plant.ID, plants[0].ID)
}

func TestGardenService_AdoptPlantValidation(t *testing.T) {
	svc := newTestGarden(t, nil)

	tests := map[string]func(*AdoptRequest){
		"blank name":    func(r *AdoptRequest) { r.Name = "  " },
		"image url":     func(r *AdoptRequest) { r.Image = "https://example.com/basil.png" },
		"invalid range": func(r *AdoptRequest) { r.Instructions[1].FrequencyDays = &models.FrequencyRange{Min: 8, Max: 2} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := basilAdoption()
			mutate(&req)
			_, err := svc.AdoptPlant(context.Background(), req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestGardenService_IDsStayAboveStoredOnes(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	future := gardenNow.Add(time.Hour).UnixMilli()
	require.NoError(t, store.Set(ctx, "myGarden", []byte(`[{"id": `+strconv.FormatInt(future, 10)+`, "name": "Fern"}]`)))

	plant, err := newTestGarden(t, store).AdoptPlant(ctx, basilAdoption())
	require.NoError(t, err)
	assert.Equal(t, future+1, plant.ID)
}

func TestGardenService_UpdateNotes(t *testing.T) {
	ctx := context.Background()
	svc := newTestGarden(t, nil)
	plant, err := svc.AdoptPlant(ctx, basilAdoption())
	require.NoError(t, err)

	updated, err := svc.UpdateNotes(ctx, plant.ID, "Repotted in spring.")
	require.NoError(t, err)
	assert.Equal(t, "Repotted in spring.", updated.Notes)

	stored, err := svc.Get(ctx, plant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Repotted in spring.", stored.Notes)

	_, err = svc.UpdateNotes(ctx, 42, "x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.UpdateNotes(ctx, plant.ID, string(make([]rune, MaxNotesLength+1)))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGardenService_LogCareKeepsOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestGarden(t, nil)
	plant, err := svc.AdoptPlant(ctx, basilAdoption())
	require.NoError(t, err)

	first := gardenNow.Add(-48 * time.Hour)
	_, err = svc.LogCare(ctx, plant.ID, models.CareActionWatering, first)
	require.NoError(t, err)
	updated, err := svc.LogCare(ctx, plant.ID, models.CareActionWatering, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{first, gardenNow}, updated.WateringLog)
	assert.Empty(t, updated.FertilizingLog)

	_, err = svc.LogCare(ctx, plant.ID, models.CareActionWatering, first)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.LogCare(ctx, plant.ID, models.CareAction("pruning"), gardenNow)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.LogCare(ctx, 1, models.CareActionWatering, gardenNow)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGardenService_Remove(t *testing.T) {
	ctx := context.Background()
	svc := newTestGarden(t, nil)
	plant, err := svc.AdoptPlant(ctx, basilAdoption())
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, plant.ID))
	plants, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, plants)

	assert.ErrorIs(t, svc.Remove(ctx, plant.ID), apperrors.ErrNotFound)
}

func TestGardenService_Reminders(t *testing.T) {
	ctx := context.Background()
	svc := newTestGarden(t, nil)
	plant, err := svc.AdoptPlant(ctx, basilAdoption())
	require.NoError(t, err)

	r, err := svc.Reminders(ctx, plant.ID)
	require.NoError(t, err)
	require.Len(t, r.Reminders, 2)
	assert.Equal(t, models.SeverityFirstTime, r.Reminders[0].Severity)
	assert.Equal(t, "Ready for first watering!", r.Reminders[0].Text)

	_, err = svc.LogCare(ctx, plant.ID, models.CareActionWatering, gardenNow.AddDate(0, 0, -10))
	require.NoError(t, err)

	r, err = svc.Reminders(ctx, plant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityOverdue, r.Reminders[0].Severity)
	assert.Equal(t, "Overdue by 3 day(s)", r.Reminders[0].Text)

	all, err := svc.AllReminders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, plant.ID, all[0].PlantID)

	_, err = svc.Reminders(ctx, 7)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGardenService_PersistenceFailureKeepsChange(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: kvstore.NewMemoryStore()}
	svc := newTestGarden(t, store)

	plant, err := svc.AdoptPlant(ctx, basilAdoption())
	require.NoError(t, err)

	store.setFailing(true)
	updated, err := svc.UpdateNotes(ctx, plant.ID, "kept in memory")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	require.NotNil(t, updated)
	assert.Equal(t, "kept in memory", updated.Notes)

	stored, err := svc.Get(ctx, plant.ID)
	require.NoError(t, err)
	assert.Equal(t, "kept in memory", stored.Notes)

	adopted, err := svc.AdoptPlant(ctx, basilAdoption())
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.NotNil(t, adopted)
}
