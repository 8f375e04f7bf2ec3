package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"telegram-places-bot/geo"
	"telegram-places-bot/places"
)

const overpassTimeout = 60 * time.Second

// osmTags maps each category to the OSM key=value tags it is built from.
var osmTags = map[string][]string{
	"Hotels":        {"tourism=hotel", "tourism=guest_house"},
	"Restaurants":   {"amenity=restaurant"},
	"Cafes":         {"amenity=cafe"},
	"Shopping":      {"shop=mall", "shop=supermarket", "shop=department_store"},
	"Entertainment": {"leisure=park", "amenity=cinema", "amenity=theatre"},
	"Education":     {"amenity=university", "amenity=school", "amenity=college"},
	"Healthcare":    {"amenity=hospital", "amenity=clinic"},
	"Banks":         {"amenity=bank", "amenity=atm"},
	"Sports":        {"leisure=sports_centre", "leisure=stadium"},
	"Cultural":      {"tourism=museum", "historic=monument", "amenity=place_of_worship"},
}

// OverpassFetcher queries the Overpass API for OSM features inside the city bounding box.
type OverpassFetcher struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewOverpassFetcher(url string, logger *zap.Logger) *OverpassFetcher {
	return &OverpassFetcher{
		url:    url,
		client: &http.Client{Timeout: overpassTimeout},
		logger: logger,
	}
}

func (f *OverpassFetcher) Name() string {
	return "osm"
}

// buildOverpassQuery returns the Overpass QL for category, or "" when it has no tags.
func buildOverpassQuery(category string) string {
	tags := tagsFor(category)
	if len(tags) == 0 {
		return ""
	}

	var parts []string
	for _, tag := range tags {
		key, value, _ := strings.Cut(tag, "=")
		for _, kind := range []string{"node", "way", "relation"} {
			parts = append(parts, fmt.Sprintf(`%s["%s"="%s"](%s);`, kind, key, value, cityBBox))
		}
	}

	return fmt.Sprintf(`
		[out:json][timeout:25];
		(
		  %s
		);
		out center tags;
	`, strings.Join(parts, "\n\t\t  "))
}

func tagsFor(category string) []string {
	for c, tags := range osmTags {
		if strings.EqualFold(c, category) {
			return tags
		}
	}
	return nil
}

type overpassElement struct {
	Type   string  `json:"type"`
	ID     int64   `json:"id"`
	Lat    float64 `json:"lat,omitempty"`
	Lon    float64 `json:"lon,omitempty"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center,omitempty"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// Fetch returns the named features of category. Unnamed features are skipped.
func (f *OverpassFetcher) Fetch(ctx context.Context, category string) ([]places.Place, error) {
	query := buildOverpassQuery(category)
	if query == "" {
		return nil, fmt.Errorf("%s: %w", category, ErrUnsupportedCategory)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass API returned status %d", resp.StatusCode)
	}

	var overpassResp overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&overpassResp); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}

	result := make([]places.Place, 0, len(overpassResp.Elements))
	for _, elem := range overpassResp.Elements {
		if p, ok := elem.toPlace(category); ok {
			result = append(result, p)
		}
	}

	f.logger.Debug("Overpass category fetched",
		zap.String("category", category),
		zap.Int("elements", len(overpassResp.Elements)),
		zap.Int("places", len(result)),
	)
	return result, nil
}

func (e overpassElement) toPlace(category string) (places.Place, bool) {
	name := strings.TrimSpace(e.Tags["name:en"])
	if name == "" {
		name = strings.TrimSpace(e.Tags["name"])
	}
	if name == "" {
		return places.Place{}, false
	}

	var coords *geo.Coordinates
	switch {
	case e.Type == "node":
		coords = &geo.Coordinates{Lat: e.Lat, Lon: e.Lon}
	case e.Center != nil:
		coords = &geo.Coordinates{Lat: e.Center.Lat, Lon: e.Center.Lon}
	}

	return places.Place{
		ID:           fmt.Sprintf("osm:%s/%d", e.Type, e.ID),
		Name:         name,
		Category:     category,
		Area:         firstTag(e.Tags, "addr:suburb", "addr:street"),
		Coordinates:  coords,
		Description:  e.Tags["description"],
		OpeningHours: e.Tags["opening_hours"],
		Contact: places.Contact{
			Phone:   firstTag(e.Tags, "phone", "contact:phone"),
			Email:   firstTag(e.Tags, "email", "contact:email"),
			Website: firstTag(e.Tags, "website", "contact:website"),
		},
		Amenities: amenitiesFromTags(e.Tags),
	}, true
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}
	return ""
}

// amenitiesFromTags lists the facilities OSM records as yes/no tags.
func amenitiesFromTags(tags map[string]string) []string {
	var out []string
	if v := tags["internet_access"]; v != "" && v != "no" {
		out = append(out, "WiFi")
	}
	if tags["wheelchair"] == "yes" {
		out = append(out, "Wheelchair Access")
	}
	if tags["outdoor_seating"] == "yes" {
		out = append(out, "Outdoor Seating")
	}
	if tags["parking"] != "" || tags["amenity"] == "parking" {
		out = append(out, "Parking")
	}
	if c := tags["cuisine"]; c != "" {
		out = append(out, formatTypeString(c)+" Cuisine")
	}
	return out
}

// formatTypeString converts a tag value such as "ethiopian;italian" or "fast_food" to "Ethiopian,
// Italian" or "Fast Food".
func formatTypeString(value string) string {
	value = strings.ReplaceAll(value, ";", ", ")
	parts := strings.Fields(strings.ReplaceAll(value, "_", " "))
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, " ")
}
