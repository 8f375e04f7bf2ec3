package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"googlemaps.github.io/maps"
)

type fakeSearcher struct {
	pages    map[maps.PlaceType][]maps.PlacesSearchResponse
	failFrom int
	requests []maps.NearbySearchRequest
}

func (f *fakeSearcher) NearbySearch(ctx context.Context, r *maps.NearbySearchRequest) (maps.PlacesSearchResponse, error) {
	f.requests = append(f.requests, *r)
	pages := f.pages[r.Type]
	page := 0
	if r.PageToken != "" {
		fmt.Sscanf(r.PageToken, "page-%d", &page)
	}
	if f.failFrom > 0 && page >= f.failFrom {
		return maps.PlacesSearchResponse{}, errors.New("INVALID_REQUEST")
	}
	if page >= len(pages) {
		return maps.PlacesSearchResponse{}, nil
	}
	return pages[page], nil
}

func result(id, name string, lat, lng float64) maps.PlacesSearchResult {
	r := maps.PlacesSearchResult{
		PlaceID:  id,
		Name:     name,
		Vicinity: "Bole",
		Types:    []string{"lodging", "point_of_interest"},
	}
	r.Geometry.Location = maps.LatLng{Lat: lat, Lng: lng}
	return r
}

func pagesOf(n int) []maps.PlacesSearchResponse {
	var pages []maps.PlacesSearchResponse
	for i := 0; i < n; i++ {
		resp := maps.PlacesSearchResponse{
			Results: []maps.PlacesSearchResult{result(fmt.Sprintf("p%d", i), fmt.Sprintf("Hotel %d", i), 9.0, 38.7)},
		}
		if i < n-1 {
			resp.NextPageToken = fmt.Sprintf("page-%d", i+1)
		}
		pages = append(pages, resp)
	}
	return pages
}

func newGoogleFetcher(s nearbySearcher) *GoogleFetcher {
	return &GoogleFetcher{client: s, logger: zap.NewNop()}
}

func TestGoogleFetcher_Pagination(t *testing.T) {
	s := &fakeSearcher{pages: map[maps.PlaceType][]maps.PlacesSearchResponse{
		maps.PlaceTypeLodging: pagesOf(5),
	}}

	list, err := newGoogleFetcher(s).Fetch(context.Background(), "Hotels")
	require.NoError(t, err)
	assert.Len(t, list, maxGooglePages, "at most three pages are read")

	first := list[0]
	assert.Equal(t, "google:p0", first.ID)
	assert.Equal(t, "Hotels", first.Category)
	assert.Equal(t, "Bole", first.Area)
	assert.Equal(t, "Lodging", first.Description)
	assert.Equal(t, 38.7, first.Coordinates.Lon)

	req := s.requests[0]
	assert.Equal(t, uint(cityRadiusM), req.Radius)
	assert.Equal(t, cityCenterLat, req.Location.Lat)
}

func TestGoogleFetcher_MultipleTypes(t *testing.T) {
	s := &fakeSearcher{pages: map[maps.PlaceType][]maps.PlacesSearchResponse{
		maps.PlaceTypeBank: pagesOf(1),
		maps.PlaceTypeAtm:  pagesOf(2),
	}}

	list, err := newGoogleFetcher(s).Fetch(context.Background(), "banks")
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestGoogleFetcher_Errors(t *testing.T) {
	t.Run("first page failure", func(t *testing.T) {
		f := newGoogleFetcher(failingSearcher{})
		_, err := f.Fetch(context.Background(), "Cafes")
		assert.Error(t, err)
	})

	t.Run("later page failure keeps earlier pages", func(t *testing.T) {
		s := &fakeSearcher{
			pages:    map[maps.PlaceType][]maps.PlacesSearchResponse{maps.PlaceTypeCafe: pagesOf(3)},
			failFrom: 1,
		}
		list, err := newGoogleFetcher(s).Fetch(context.Background(), "Cafes")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("unsupported category", func(t *testing.T) {
		_, err := newGoogleFetcher(&fakeSearcher{}).Fetch(context.Background(), "Nightlife")
		assert.ErrorIs(t, err, ErrUnsupportedCategory)
	})
}

type failingSearcher struct{}

func (failingSearcher) NearbySearch(ctx context.Context, r *maps.NearbySearchRequest) (maps.PlacesSearchResponse, error) {
	return maps.PlacesSearchResponse{}, errors.New("REQUEST_DENIED")
}
