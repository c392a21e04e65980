package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/kvstore"
	"github.com/greenthumb-app/greenthumb/pkg/models"
)

const testKey = "myGarden"

// mockStore wraps a MemoryStore with injectable failures and call counters.
type mockStore struct {
	*kvstore.MemoryStore

	mu     sync.Mutex
	getErr error
	setErr error
	gets   int
	sets   int
}

func newMockStore() *mockStore {
	return &mockStore{MemoryStore: kvstore.NewMemoryStore()}
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	m.gets++
	err := m.getErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.MemoryStore.Get(ctx, key)
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.sets++
	err := m.setErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.MemoryStore.Set(ctx, key, value)
}

func newPlant(id int64, name string) *models.GardenPlant {
	return &models.GardenPlant{
		ID:      id,
		Name:    name,
		Image:   "data:image/png;base64,iVBORw==",
		Summary: name + " summary",
		CareInstructions: []models.CareInstruction{
			{Topic: "Watering", Details: "weekly", FrequencyDays: &models.FrequencyRange{Min: 7, Max: 10}},
		},
		WateringLog:    []time.Time{},
		FertilizingLog: []time.Time{},
	}
}

func TestGardenRepository_EmptyWhenAbsent(t *testing.T) {
	repo := NewGardenRepository(newMockStore(), testKey, zap.NewNop())

	plants, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, plants)
	assert.Empty(t, plants)

	maxID, err := repo.MaxID(context.Background())
	require.NoError(t, err)
	assert.Zero(t, maxID)
}

func TestGardenRepository_AddPersistsBareArray(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	repo := NewGardenRepository(store, testKey, zap.NewNop())

	require.NoError(t, repo.Add(ctx, newPlant(1, "Monstera")))
	require.NoError(t, repo.Add(ctx, newPlant(2, "Pothos")))

	raw, err := store.MemoryStore.Get(ctx, testKey)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Monstera", decoded[0]["name"])
	for _, field := range []string{"id", "name", "image", "summary", "careInstructions", "wateringLog", "fertilizingLog", "notes"} {
		assert.Contains(t, decoded[0], field)
	}

	plants, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, plants, 2)
	assert.Equal(t, int64(1), plants[0].ID)
	assert.Equal(t, int64(2), plants[1].ID)
}

func TestGardenRepository_AddRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	repo := NewGardenRepository(store, testKey, zap.NewNop())
	require.NoError(t, repo.Add(ctx, newPlant(5, "Fern")))

	err := repo.Add(ctx, newPlant(5, "Another Fern"))
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	err = repo.Add(ctx, newPlant(0, "No id"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Equal(t, 1, store.sets)
}

func TestGardenRepository_ReadsExistingBlob(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	blob := `[{"id":1714550000000,"name":"Monstera","image":"data:image/jpeg;base64,/9j/4AAQ",
		"summary":"Easy going.","careInstructions":[
			{"topic":"Sunlight","details":"Bright indirect light."},
			{"topic":"Watering","details":"Weekly.","frequencyDays":{"min":7,"max":10}}],
		"wateringLog":["2024-05-01T10:00:00.000Z","2024-05-08T09:30:00.000Z"],
		"fertilizingLog":[],"notes":"by the window"}]`
	require.NoError(t, store.MemoryStore.Set(ctx, testKey, []byte(blob)))

	repo := NewGardenRepository(store, testKey, zap.NewNop())
	plant, err := repo.Get(ctx, 1714550000000)
	require.NoError(t, err)

	assert.Equal(t, "Monstera", plant.Name)
	assert.Equal(t, "by the window", plant.Notes)
	require.Len(t, plant.WateringLog, 2)
	assert.Equal(t, time.Date(2024, time.May, 8, 9, 30, 0, 0, time.UTC), plant.WateringLog[1].UTC())
	inst, ok := plant.Instruction(models.CareActionWatering)
	require.True(t, ok)
	assert.Equal(t, 10, inst.FrequencyDays.Max)

	maxID, err := repo.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1714550000000), maxID)
}

func TestGardenRepository_CorruptBlobIsEmpty(t *testing.T) {
	for name, blob := range map[string]string{
		"not json":  "{{{",
		"object":    `{"id":1}`,
		"null":      "null",
		"truncated": `[{"id":1,"name":"Mon`,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newMockStore()
			require.NoError(t, store.MemoryStore.Set(ctx, testKey, []byte(blob)))
			repo := NewGardenRepository(store, testKey, zap.NewNop())

			plants, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, plants)

			require.NoError(t, repo.Add(ctx, newPlant(3, "Aloe")))
			raw, _ := store.MemoryStore.Get(ctx, testKey)
			var decoded []models.GardenPlant
			require.NoError(t, json.Unmarshal(raw, &decoded))
			assert.Len(t, decoded, 1)
		})
	}
}

func TestGardenRepository_LoadsOnce(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	repo := NewGardenRepository(store, testKey, zap.NewNop())

	_, _ = repo.List(ctx)
	_, _ = repo.List(ctx)
	_ = repo.Add(ctx, newPlant(1, "Cactus"))
	_, _ = repo.Get(ctx, 1)

	assert.Equal(t, 1, store.gets)
}

func TestGardenRepository_UpdateAndRemoveUnknown(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	repo := NewGardenRepository(store, testKey, zap.NewNop())
	require.NoError(t, repo.Add(ctx, newPlant(1, "Cactus")))

	err := repo.Update(ctx, newPlant(99, "Ghost"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = repo.Remove(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repo.Get(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, 1, store.sets, "failed mutations must not write")
	plants, _ := repo.List(ctx)
	assert.Len(t, plants, 1)
}

func TestGardenRepository_UpdateReplacesRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewGardenRepository(newMockStore(), testKey, zap.NewNop())
	require.NoError(t, repo.Add(ctx, newPlant(1, "Cactus")))
	require.NoError(t, repo.Add(ctx, newPlant(2, "Fern")))

	updated := newPlant(2, "Fern")
	updated.Notes = "moved to bathroom"
	require.NoError(t, repo.Update(ctx, updated))

	got, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "moved to bathroom", got.Notes)

	plants, _ := repo.List(ctx)
	assert.Equal(t, []int64{1, 2}, []int64{plants[0].ID, plants[1].ID}, "order is preserved")
}

func TestGardenRepository_Remove(t *testing.T) {
	ctx := context.Background()
	repo := NewGardenRepository(newMockStore(), testKey, zap.NewNop())
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, repo.Add(ctx, newPlant(i, "Plant")))
	}

	before, _ := repo.List(ctx)
	require.NoError(t, repo.Remove(ctx, 2))

	after, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, int64(1), after[0].ID)
	assert.Equal(t, int64(3), after[1].ID)
	assert.Len(t, before, 3, "earlier snapshots are unaffected")
}

func TestGardenRepository_PersistenceFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	repo := NewGardenRepository(store, testKey, zap.NewNop())
	require.NoError(t, repo.Add(ctx, newPlant(1, "Cactus")))

	store.setErr = errors.New("disk full")
	err := repo.Add(ctx, newPlant(2, "Fern"))
	assert.ErrorIs(t, err, apperrors.ErrPersistence)

	plants, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, plants, 2)

	raw, _ := store.MemoryStore.Get(ctx, testKey)
	var stored []models.GardenPlant
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Len(t, stored, 1)

	store.setErr = nil
	require.NoError(t, repo.Remove(ctx, 1))
	raw, _ = store.MemoryStore.Get(ctx, testKey)
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, int64(2), stored[0].ID)
}

func TestGardenRepository_ReadFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.getErr = errors.New("connection refused")
	repo := NewGardenRepository(store, testKey, zap.NewNop())

	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)

	store.getErr = nil
	plants, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, plants)
	assert.Equal(t, 2, store.gets)
}

func TestGardenRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewGardenRepository(newMockStore(), testKey, zap.NewNop())
	original := newPlant(1, "Cactus")
	require.NoError(t, repo.Add(ctx, original))

	original.Name = "mutated after add"
	got, _ := repo.Get(ctx, 1)
	got.CareInstructions[0].FrequencyDays.Max = 99
	got.WateringLog = append(got.WateringLog, time.Now())

	again, _ := repo.Get(ctx, 1)
	assert.Equal(t, "Cactus", again.Name)
	assert.Equal(t, 10, again.CareInstructions[0].FrequencyDays.Max)
	assert.Empty(t, again.WateringLog)
}

func TestGardenRepository_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	repo := NewGardenRepository(store, testKey, zap.NewNop())

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Add(ctx, newPlant(i, "Plant")))
		}()
	}
	wg.Wait()

	raw, _ := store.MemoryStore.Get(ctx, testKey)
	var stored []models.GardenPlant
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Len(t, stored, 20)
}
