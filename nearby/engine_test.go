package nearby

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telegram-places-bot/apperror"
	"telegram-places-bot/geo"
	"telegram-places-bot/paginate"
	"telegram-places-bot/places"
)

type fixedSource []places.Place

func (s fixedSource) Read(ctx context.Context) ([]places.Place, error) { return s, nil }
func (s fixedSource) Name() string                                      { return "fixed" }

func newEngine(t *testing.T, list []places.Place) *Engine {
	t.Helper()
	repo := places.NewRepository(fixedSource(list), places.DefaultCategories, zap.NewNop())
	_, err := repo.Load(context.Background())
	require.NoError(t, err)
	return NewEngine(repo, zap.NewNop())
}

func at(lat, lon float64) *geo.Coordinates {
	return &geo.Coordinates{Lat: lat, Lon: lon}
}

func names(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Place.Name)
	}
	return out
}

func TestFindNear_NoDataset(t *testing.T) {
	repo := places.NewRepository(fixedSource(nil), nil, zap.NewNop())
	engine := NewEngine(repo, zap.NewNop())

	results, err := engine.FindNear(at(0, 0), RadiusKm(2000), "")
	assert.True(t, errors.Is(err, apperror.ErrDataUnavailable))
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestFindNear_SevenPlacesPageSizeSix(t *testing.T) {
	var list []places.Place
	for i := 7; i >= 1; i-- {
		list = append(list, places.Place{
			Name:        fmt.Sprintf("Place %d", i),
			Category:    "Restaurants",
			Coordinates: at(0.001*float64(i), 0),
		})
	}
	engine := newEngine(t, list)

	results, err := engine.FindNear(at(0, 0), RadiusKm(2000), "")
	require.NoError(t, err)
	require.Len(t, results, 7)
	assert.Equal(t, "Place 1", results[0].Place.Name)

	p1, err := paginate.Paginate(results, 6, 1)
	require.NoError(t, err)
	assert.Len(t, p1.Items, 6)
	assert.True(t, p1.HasNext)

	p2, err := paginate.Paginate(results, 6, 2)
	require.NoError(t, err)
	assert.Len(t, p2.Items, 1)
	assert.False(t, p2.HasNext)
	assert.Equal(t, "Place 7", p2.Items[0].Place.Name)
}

func TestFindNear_NothingWithinRadius(t *testing.T) {
	engine := newEngine(t, []places.Place{
		{Name: "Far Hotel", Category: "Hotels", Coordinates: at(0.045, 0)},
	})

	results, err := engine.FindNear(at(0, 0), RadiusKm(2000), "")
	require.NoError(t, err)
	assert.Empty(t, results)

	all, err := engine.FindNear(at(0, 0), nil, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.InDelta(t, 5.0, *all[0].DistanceKm, 0.01)
}

func TestFindNear_RadiusSoundAndComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var list []places.Place
	for i := 0; i < 300; i++ {
		list = append(list, places.Place{
			Name:        fmt.Sprintf("P%03d", i),
			Category:    places.DefaultCategories[i%len(places.DefaultCategories)],
			Coordinates: at(8.9+rng.Float64()*0.2, 38.7+rng.Float64()*0.2),
		})
	}
	engine := newEngine(t, list)
	origin := at(9.0, 38.8)

	for _, radius := range []float64{0.5, 2, 5, 50} {
		results, err := engine.FindNear(origin, &radius, "")
		require.NoError(t, err)

		included := make(map[string]bool)
		for i, r := range results {
			require.NotNil(t, r.DistanceKm)
			assert.LessOrEqual(t, *r.DistanceKm, radius)
			if i > 0 {
				assert.LessOrEqual(t, *results[i-1].DistanceKm, *r.DistanceKm, "ascending order")
			}
			included[r.Place.Name] = true
		}
		for _, p := range list {
			if !included[p.Name] {
				assert.Greater(t, origin.DistanceTo(*p.Coordinates), radius, "%s was wrongly excluded", p.Name)
			}
		}
	}
}

func TestFindNear_CategoryFilterMatchesPostFilter(t *testing.T) {
	engine := newEngine(t, []places.Place{
		{Name: "Hilton", Category: "Hotels", Coordinates: at(9.02, 38.76)},
		{Name: "Tomoca", Category: "Cafes", Coordinates: at(9.03, 38.75)},
		{Name: "Sheraton", Category: "Hotels", Coordinates: at(9.01, 38.76)},
		{Name: "Ghion", Category: "Hotels", Coordinates: at(9.02, 38.76)},
	})
	origin := at(9.0, 38.76)

	filtered, err := engine.FindNear(origin, nil, "hotels")
	require.NoError(t, err)

	all, err := engine.FindNear(origin, nil, "")
	require.NoError(t, err)
	var postFiltered []Result
	for _, r := range all {
		if r.Place.InCategory("Hotels") {
			postFiltered = append(postFiltered, r)
		}
	}

	assert.Equal(t, names(postFiltered), names(filtered))
	assert.Equal(t, []string{"Sheraton", "Hilton", "Ghion"}, names(filtered), "ties keep dataset order")
}

func TestFindNear_WithoutOrigin(t *testing.T) {
	engine := newEngine(t, []places.Place{
		{Name: "B", Category: "Banks", Coordinates: at(9.05, 38.7)},
		{Name: "No coords", Category: "Banks"},
		{Name: "A", Category: "Banks", Coordinates: at(9.0, 38.7)},
	})

	results, err := engine.FindNear(nil, nil, "Banks")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, names(results))
	for _, r := range results {
		assert.False(t, r.HasDistance())
	}
}

func TestBrowse_IncludesPlacesWithoutCoordinates(t *testing.T) {
	engine := newEngine(t, []places.Place{
		{Name: "B", Category: "Banks", Coordinates: at(9.05, 38.7)},
		{Name: "No coords", Category: "Banks"},
		{Name: "Hotel", Category: "Hotels", Coordinates: at(9.0, 38.7)},
	})

	results, err := engine.Browse("Banks")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "No coords"}, names(results))
	for _, r := range results {
		assert.False(t, r.HasDistance())
	}

	all, err := engine.Browse("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	empty := NewEngine(places.NewRepository(fixedSource(nil), nil, zap.NewNop()), zap.NewNop())
	_, err = empty.Browse("Banks")
	assert.True(t, errors.Is(err, apperror.ErrDataUnavailable))
}

func TestFindNear_InvalidOrigin(t *testing.T) {
	engine := newEngine(t, []places.Place{{Name: "A", Category: "Banks", Coordinates: at(9, 38)}})

	_, err := engine.FindNear(at(120, 0), nil, "")
	assert.True(t, errors.Is(err, apperror.ErrInvalidCoordinates))
}

func TestFindNear_UnknownCategoryIsEmpty(t *testing.T) {
	engine := newEngine(t, []places.Place{{Name: "A", Category: "Banks", Coordinates: at(9, 38)}})

	results, err := engine.FindNear(at(9, 38), nil, "Hotels")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCategories(t *testing.T) {
	engine := newEngine(t, []places.Place{
		{Name: "A", Category: "Banks", Coordinates: at(9, 38)},
		{Name: "B", Category: "banks"},
		{Name: "C", Category: "Hotels"},
	})

	cats, err := engine.Categories()
	require.NoError(t, err)
	require.Len(t, cats, len(places.DefaultCategories))
	assert.Equal(t, CategoryCount{Name: "Hotels", Count: 1}, cats[0])
	assert.Equal(t, CategoryCount{Name: "Banks", Count: 2}, cats[7])
	assert.Equal(t, CategoryCount{Name: "Cafes", Count: 0}, cats[2])
}
