package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"googlemaps.github.io/maps"

	"telegram-places-bot/geo"
	"telegram-places-bot/places"
)

const maxGooglePages = 3

// googleTypes maps each category to the Google place types searched for it.
var googleTypes = map[string][]maps.PlaceType{
	"Hotels":        {maps.PlaceTypeLodging},
	"Restaurants":   {maps.PlaceTypeRestaurant},
	"Cafes":         {maps.PlaceTypeCafe},
	"Shopping":      {maps.PlaceTypeShoppingMall, maps.PlaceTypeDepartmentStore},
	"Entertainment": {maps.PlaceTypePark, maps.PlaceTypeMovieTheater},
	"Education":     {maps.PlaceTypeUniversity, maps.PlaceTypeSchool},
	"Healthcare":    {maps.PlaceTypeHospital},
	"Banks":         {maps.PlaceTypeBank, maps.PlaceTypeAtm},
	"Sports":        {maps.PlaceTypeStadium, maps.PlaceTypeGym},
	"Cultural":      {maps.PlaceTypeMuseum, maps.PlaceTypeChurch, maps.PlaceTypeMosque},
}

// nearbySearcher is the part of *maps.Client the fetcher uses.
type nearbySearcher interface {
	NearbySearch(ctx context.Context, r *maps.NearbySearchRequest) (maps.PlacesSearchResponse, error)
}

// GoogleFetcher runs Places Nearby Search around the city centre, following up to three result
// pages per place type.
type GoogleFetcher struct {
	client    nearbySearcher
	pageDelay time.Duration
	logger    *zap.Logger
}

func NewGoogleFetcher(apiKey string, logger *zap.Logger) (*GoogleFetcher, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleFetcher{
		client:    client,
		pageDelay: 2 * time.Second,
		logger:    logger,
	}, nil
}

func (f *GoogleFetcher) Name() string {
	return "google"
}

func (f *GoogleFetcher) Fetch(ctx context.Context, category string) ([]places.Place, error) {
	var types []maps.PlaceType
	for c, t := range googleTypes {
		if strings.EqualFold(c, category) {
			types = t
		}
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("%s: %w", category, ErrUnsupportedCategory)
	}

	var result []places.Place
	for _, placeType := range types {
		found, err := f.fetchType(ctx, category, placeType)
		if err != nil {
			return nil, err
		}
		result = append(result, found...)
	}
	return result, nil
}

func (f *GoogleFetcher) fetchType(ctx context.Context, category string, placeType maps.PlaceType) ([]places.Place, error) {
	request := &maps.NearbySearchRequest{
		Location: &maps.LatLng{
			Lat: cityCenterLat,
			Lng: cityCenterLon,
		},
		Radius:   cityRadiusM,
		Type:     placeType,
		Language: "en",
	}

	result := make([]places.Place, 0)
	for page := 0; page < maxGooglePages; page++ {
		if page > 0 {
			// next_page_token takes a moment to become valid
			if err := sleep(ctx, f.pageDelay); err != nil {
				return result, err
			}
		}

		resp, err := f.client.NearbySearch(ctx, request)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("nearby search failed: %w", err)
			}
			f.logger.Warn("Nearby search pagination failed, keeping earlier pages",
				zap.String("type", string(placeType)),
				zap.Int("page", page),
				zap.Error(err))
			break
		}

		for _, r := range resp.Results {
			if strings.TrimSpace(r.Name) == "" {
				continue
			}
			result = append(result, googlePlace(category, r))
		}

		if resp.NextPageToken == "" {
			break
		}
		request.PageToken = resp.NextPageToken
	}
	return result, nil
}

func googlePlace(category string, r maps.PlacesSearchResult) places.Place {
	p := places.Place{
		ID:       "google:" + r.PlaceID,
		Name:     r.Name,
		Category: category,
		Area:     r.Vicinity,
		Coordinates: &geo.Coordinates{
			Lat: r.Geometry.Location.Lat,
			Lon: r.Geometry.Location.Lng,
		},
	}
	if len(r.Types) > 0 {
		p.Description = formatTypeString(r.Types[0])
	}
	if r.OpeningHours != nil && len(r.OpeningHours.WeekdayText) > 0 {
		p.OpeningHours = strings.Join(r.OpeningHours.WeekdayText, "; ")
	}
	return p
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
