package places

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"telegram-places-bot/apperror"
)

var validate = validator.New()

// Repository owns the current dataset snapshot. Load replaces the snapshot atomically, so
// queries running concurrently see either the old or the new dataset, never a mix.
type Repository struct {
	source     Source
	categories []string
	logger     *zap.Logger

	current atomic.Pointer[Snapshot]
	loadMu  sync.Mutex
}

// NewRepository creates a repository. When categories is not empty, records outside the list
// are dropped and category names are normalized to the configured spelling.
func NewRepository(source Source, categories []string, logger *zap.Logger) *Repository {
	r := &Repository{
		source:     source,
		categories: categories,
		logger:     logger,
	}
	r.current.Store(emptySnapshot(categories))
	return r
}

// Snapshot returns the current dataset snapshot. It is never nil.
func (r *Repository) Snapshot() *Snapshot {
	return r.current.Load()
}

// Load reads the source, validates every record and swaps in a new snapshot. On a read failure
// it returns an empty sequence and an error wrapping apperror.ErrDataUnavailable; the previous
// snapshot stays in place.
func (r *Repository) Load(ctx context.Context) ([]Place, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	raw, err := r.source.Read(ctx)
	if err != nil {
		r.logger.Error("Failed to read places dataset",
			zap.String("source", r.source.Name()),
			zap.Error(err),
		)
		return []Place{}, fmt.Errorf("failed to load places: %w: %w", apperror.ErrDataUnavailable, err)
	}

	valid := r.validateAll(raw)
	snapshot := newSnapshot(valid, r.categories, true, r.source.Name(), time.Now())
	r.current.Store(snapshot)

	r.logger.Info("Places dataset loaded",
		zap.String("source", r.source.Name()),
		zap.Int("places", len(valid)),
		zap.Int("dropped", len(raw)-len(valid)),
	)
	return valid, nil
}

func (r *Repository) validateAll(raw []Place) []Place {
	valid := make([]Place, 0, len(raw))
	for _, p := range raw {
		if err := validate.Struct(p); err != nil {
			r.logger.Warn("Invalid place record dropped", zap.String("name", p.Name), zap.Error(err))
			continue
		}
		if p.Coordinates != nil && !p.Coordinates.Valid() {
			r.logger.Warn("Place with out-of-range coordinates dropped",
				zap.String("name", p.Name),
				zap.Stringer("coordinates", p.Coordinates),
			)
			continue
		}
		if len(r.categories) > 0 {
			canonical, ok := r.canonicalCategory(p.Category)
			if !ok {
				r.logger.Warn("Place with unsupported category dropped",
					zap.String("name", p.Name),
					zap.String("category", p.Category),
				)
				continue
			}
			p.Category = canonical
		}
		valid = append(valid, p)
	}
	return valid
}

func (r *Repository) canonicalCategory(category string) (string, bool) {
	for _, c := range r.categories {
		if strings.EqualFold(c, category) {
			return c, true
		}
	}
	return "", false
}

// ByCategory returns the places of one category from the current snapshot.
func (r *Repository) ByCategory(category string) []Place {
	return r.Snapshot().ByCategory(category)
}

// CountsByCategory returns per-category counts from the current snapshot.
func (r *Repository) CountsByCategory() map[string]int {
	return r.Snapshot().CountsByCategory()
}
