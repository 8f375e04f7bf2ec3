package nearby

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"telegram-places-bot/apperror"
	"telegram-places-bot/geo"
	"telegram-places-bot/places"
)

// Result is a place annotated with its distance from the query origin.
type Result struct {
	Place      places.Place `json:"place"`
	DistanceKm *float64     `json:"distance_km,omitempty"`
}

// HasDistance reports whether the distance was computed
func (r Result) HasDistance() bool {
	return r.DistanceKm != nil
}

// SnapshotProvider hands out the current dataset snapshot.
type SnapshotProvider interface {
	Snapshot() *places.Snapshot
}

// Engine answers proximity queries against the current snapshot. It holds no mutable state.
type Engine struct {
	repo   SnapshotProvider
	logger *zap.Logger
}

// NewEngine creates an Engine
func NewEngine(repo SnapshotProvider, logger *zap.Logger) *Engine {
	return &Engine{repo: repo, logger: logger}
}

// Snapshot is the dataset snapshot queries currently run against.
func (e *Engine) Snapshot() *places.Snapshot {
	return e.repo.Snapshot()
}

// FindNear returns places matching the query.
//
//   - origin == nil: every place with valid coordinates, no distance, dataset order.
//   - origin != nil, radiusKm != nil: places with distance <= *radiusKm, ascending by distance.
//   - origin != nil, radiusKm == nil: every place with valid coordinates, ascending by distance.
//
// A non-empty category restricts results to that category (case-insensitive). An empty result
// with a nil error means nothing matched; an error wrapping apperror.ErrDataUnavailable means
// there is no dataset to query.
func (e *Engine) FindNear(origin *geo.Coordinates, radiusKm *float64, category string) ([]Result, error) {
	snap := e.repo.Snapshot()
	if !snap.Available() {
		return []Result{}, fmt.Errorf("no places dataset loaded: %w", apperror.ErrDataUnavailable)
	}
	if origin != nil && !origin.Valid() {
		return []Result{}, fmt.Errorf("origin %s: %w", origin, apperror.ErrInvalidCoordinates)
	}
	if radiusKm != nil && *radiusKm < 0 {
		return []Result{}, fmt.Errorf("radius %.3f km: %w", *radiusKm, apperror.ErrInvalidInput)
	}

	candidates := snap.Places()
	if category != "" {
		candidates = snap.ByCategory(category)
	}

	results := make([]Result, 0, len(candidates))
	for _, p := range candidates {
		if !p.HasCoordinates() {
			continue
		}
		if origin == nil {
			results = append(results, Result{Place: p})
			continue
		}

		d := origin.DistanceTo(*p.Coordinates)
		if radiusKm != nil && d > *radiusKm {
			continue
		}
		results = append(results, Result{Place: p, DistanceKm: &d})
	}

	if origin != nil {
		sort.SliceStable(results, func(i, j int) bool {
			return *results[i].DistanceKm < *results[j].DistanceKm
		})
	}

	e.logger.Debug("Proximity query",
		zap.Bool("has_origin", origin != nil),
		zap.String("category", category),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// Browse lists the places of a category in dataset order without distances. Unlike FindNear it
// includes places without coordinates. An empty category lists every place.
func (e *Engine) Browse(category string) ([]Result, error) {
	snap := e.repo.Snapshot()
	if !snap.Available() {
		return []Result{}, fmt.Errorf("no places dataset loaded: %w", apperror.ErrDataUnavailable)
	}

	candidates := snap.Places()
	if category != "" {
		candidates = snap.ByCategory(category)
	}
	results := make([]Result, len(candidates))
	for i, p := range candidates {
		results[i] = Result{Place: p}
	}
	return results, nil
}

// Categories returns the configured categories in order together with their place counts.
func (e *Engine) Categories() ([]CategoryCount, error) {
	snap := e.repo.Snapshot()
	if !snap.Available() {
		return nil, fmt.Errorf("no places dataset loaded: %w", apperror.ErrDataUnavailable)
	}

	counts := snap.CountsByCategory()
	out := make([]CategoryCount, 0, len(counts))
	seen := make(map[string]bool, len(counts))
	for _, c := range snap.Categories() {
		out = append(out, CategoryCount{Name: c, Count: counts[c]})
		seen[c] = true
	}

	// categories present in the data but not configured, in name order
	var extra []string
	for c := range counts {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	for _, c := range extra {
		out = append(out, CategoryCount{Name: c, Count: counts[c]})
	}
	return out, nil
}

// CategoryCount pairs a category with the number of places in it.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RadiusKm converts a radius in meters to the engine's working unit.
func RadiusKm(meters float64) *float64 {
	km := meters / 1000
	return &km
}
