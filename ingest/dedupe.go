package ingest

import (
	"fmt"
	"math"
	"strings"

	"telegram-places-bot/places"
)

// proximityThreshold is the grid, in degrees, two records must share to be duplicates. ~50 m.
const proximityThreshold = 0.0005

// Deduplicate drops records with the same normalized name, category and ~50 m grid cell as an
// earlier record. Records without coordinates are matched by name and category alone.
func Deduplicate(list []places.Place) []places.Place {
	if len(list) == 0 {
		return list
	}

	seen := make(map[string]bool, len(list))
	unique := make([]places.Place, 0, len(list))

	for _, p := range list {
		key := dedupeKey(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, p)
	}
	return unique
}

func dedupeKey(p places.Place) string {
	name := strings.Join(strings.Fields(strings.ToLower(p.Name)), " ")
	category := strings.ToLower(p.Category)
	if p.Coordinates == nil {
		return fmt.Sprintf("%s_%s_nocoords", category, name)
	}

	roundedLat := math.Round(p.Coordinates.Lat/proximityThreshold) * proximityThreshold
	roundedLon := math.Round(p.Coordinates.Lon/proximityThreshold) * proximityThreshold
	return fmt.Sprintf("%s_%s_%.6f_%.6f", category, name, roundedLat, roundedLon)
}
