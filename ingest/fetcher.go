// Package ingest rebuilds the places dataset from OpenStreetMap and Google Places.
package ingest

import (
	"context"
	"errors"

	"telegram-places-bot/places"
)

// ErrUnsupportedCategory is returned by a fetcher that has no mapping for a category.
var ErrUnsupportedCategory = errors.New("category not supported by fetcher")

// Fetcher retrieves the places of one category from an external provider.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, category string) ([]places.Place, error)
}

// Addis Ababa, used as the search area of every provider.
const (
	cityBBox      = "8.9,38.7,9.1,38.9" // south,west,north,east
	cityCenterLat = 9.0108
	cityCenterLon = 38.7613
	cityRadiusM   = 15000
)
