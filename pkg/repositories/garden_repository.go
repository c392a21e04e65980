package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/kvstore"
	"github.com/greenthumb-app/greenthumb/pkg/logging"
	"github.com/greenthumb-app/greenthumb/pkg/models"
)

// GardenRepository provides access to the garden collection. The whole
// collection is one blob; every mutation rewrites it.
type GardenRepository interface {
	List(ctx context.Context) ([]*models.GardenPlant, error)
	Get(ctx context.Context, id int64) (*models.GardenPlant, error)
	Add(ctx context.Context, plant *models.GardenPlant) error
	Update(ctx context.Context, plant *models.GardenPlant) error
	Remove(ctx context.Context, id int64) error
	// MaxID returns the largest stored id, or 0 for an empty garden.
	MaxID(ctx context.Context) (int64, error)
}

type gardenRepository struct {
	store  kvstore.Store
	key    string
	logger *zap.Logger

	mu     sync.Mutex
	loaded bool
	plants []*models.GardenPlant
}

// NewGardenRepository creates a repository over store, keeping the collection
// under key. Nothing is read until the first call.
func NewGardenRepository(store kvstore.Store, key string, logger *zap.Logger) GardenRepository {
	return &gardenRepository{
		store:  store,
		key:    key,
		logger: logger.Named("garden-repository"),
	}
}

var _ GardenRepository = (*gardenRepository)(nil)

// ============================================================================
// Reads
// ============================================================================

func (r *gardenRepository) List(ctx context.Context) ([]*models.GardenPlant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	out := make([]*models.GardenPlant, len(r.plants))
	for i, p := range r.plants {
		out[i] = p.Clone()
	}
	return out, nil
}

func (r *gardenRepository) Get(ctx context.Context, id int64) (*models.GardenPlant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	i := r.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("plant %d: %w", id, apperrors.ErrNotFound)
	}
	return r.plants[i].Clone(), nil
}

func (r *gardenRepository) MaxID(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return 0, err
	}

	var maxID int64
	for _, p := range r.plants {
		maxID = max(maxID, p.ID)
	}
	return maxID, nil
}

// ============================================================================
// Mutations
// ============================================================================

func (r *gardenRepository) Add(ctx context.Context, plant *models.GardenPlant) error {
	if plant == nil || plant.ID <= 0 {
		return fmt.Errorf("%w: plant id must be positive", apperrors.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}
	if r.indexOf(plant.ID) >= 0 {
		return fmt.Errorf("%w: plant %d already exists", apperrors.ErrConflict, plant.ID)
	}

	r.plants = append(r.plants, plant.Clone())
	return r.persist(ctx)
}

func (r *gardenRepository) Update(ctx context.Context, plant *models.GardenPlant) error {
	if plant == nil {
		return fmt.Errorf("%w: plant is required", apperrors.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}

	i := r.indexOf(plant.ID)
	if i < 0 {
		return fmt.Errorf("plant %d: %w", plant.ID, apperrors.ErrNotFound)
	}

	r.plants[i] = plant.Clone()
	return r.persist(ctx)
}

func (r *gardenRepository) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}

	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("plant %d: %w", id, apperrors.ErrNotFound)
	}

	r.plants = append(r.plants[:i:i], r.plants[i+1:]...)
	return r.persist(ctx)
}

// ============================================================================
// Blob I/O
// ============================================================================

// load reads the blob once. An absent or undecodable blob is an empty garden.
// A failed read is returned and retried on the next call. Callers hold r.mu.
func (r *gardenRepository) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	data, err := r.store.Get(ctx, r.key)
	switch {
	case errors.Is(err, kvstore.ErrKeyNotFound):
		r.plants = []*models.GardenPlant{}
		r.loaded = true
		return nil
	case err != nil:
		r.logger.Error("Failed to read garden",
			zap.String("key", r.key),
			zap.String("error", logging.SanitizeError(err)))
		return fmt.Errorf("%w: %w", apperrors.ErrPersistence, err)
	}

	var plants []*models.GardenPlant
	if err := json.Unmarshal(data, &plants); err != nil {
		r.logger.Warn("Stored garden is corrupt, starting empty",
			zap.String("key", r.key),
			zap.Int("bytes", len(data)),
			zap.Error(err))
		plants = nil
	}

	r.plants = make([]*models.GardenPlant, 0, len(plants))
	for _, p := range plants {
		if p != nil {
			r.plants = append(r.plants, p)
		}
	}
	r.loaded = true

	r.logger.Debug("Loaded garden", zap.String("key", r.key), zap.Int("plants", len(r.plants)))
	return nil
}

// persist writes the whole collection. On failure the in-memory collection
// keeps the mutation. Callers hold r.mu.
func (r *gardenRepository) persist(ctx context.Context) error {
	data, err := json.Marshal(r.plants)
	if err != nil {
		return fmt.Errorf("%w: encode garden: %w", apperrors.ErrPersistence, err)
	}

	if err := r.store.Set(ctx, r.key, data); err != nil {
		r.logger.Error("Failed to save garden",
			zap.String("key", r.key),
			zap.Int("plants", len(r.plants)),
			zap.String("error", logging.SanitizeError(err)))
		return fmt.Errorf("%w: %w", apperrors.ErrPersistence, err)
	}
	return nil
}

func (r *gardenRepository) indexOf(id int64) int {
	for i, p := range r.plants {
		if p.ID == id {
			return i
		}
	}
	return -1
}
