package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"telegram-places-bot/geo"
)

const (
	// LocationsKey is the root key of the places document.
	LocationsKey = "locations"
	// HubsKey is the root key of the transport hubs document.
	HubsKey = "hubs"
)

// Source reads the full place list from an external dataset.
type Source interface {
	Read(ctx context.Context) ([]Place, error)
	Name() string
}

// FileSource reads places from a JSON document of the form {"<key>": [ ...records ]}.
type FileSource struct {
	Path string
	Key  string
}

// NewFileSource creates a FileSource for the given document root key
func NewFileSource(path, key string) *FileSource {
	if key == "" {
		key = LocationsKey
	}
	return &FileSource{Path: path, Key: key}
}

func (s *FileSource) Name() string {
	return "file:" + s.Path
}

// Read opens and decodes the document
func (s *FileSource) Read(ctx context.Context) ([]Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open places file: %w", err)
	}
	defer f.Close()

	return ReadDocument(f, s.Key)
}

// fileRecord accepts the field aliases used by older datasets (hubs use "services" and
// "operating_hours") and tolerates a coordinates object with missing members.
type fileRecord struct {
	Place
	Coordinates    *fileCoordinates `json:"coordinates,omitempty"`
	Services       []string         `json:"services,omitempty"`
	OperatingHours string           `json:"operating_hours,omitempty"`
}

type fileCoordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r fileRecord) toPlace() Place {
	p := r.Place
	p.Coordinates = nil
	if r.Coordinates != nil && r.Coordinates.Latitude != nil && r.Coordinates.Longitude != nil {
		p.Coordinates = &geo.Coordinates{Lat: *r.Coordinates.Latitude, Lon: *r.Coordinates.Longitude}
	}
	if len(p.Amenities) == 0 && len(r.Services) > 0 {
		p.Amenities = r.Services
	}
	if p.OpeningHours == "" {
		p.OpeningHours = r.OperatingHours
	}
	return p
}

// ReadDocument decodes a places document. A document without the root key is malformed.
func ReadDocument(r io.Reader, key string) ([]Place, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode places document: %w", err)
	}

	raw, ok := doc[key]
	if !ok {
		return nil, fmt.Errorf("places document has no %q list", key)
	}

	var records []fileRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %q list: %w", key, err)
	}

	result := make([]Place, 0, len(records))
	for _, rec := range records {
		result = append(result, rec.toPlace())
	}
	return result, nil
}

// WriteDocument encodes places under the given root key
func WriteDocument(w io.Writer, key string, places []Place) error {
	if places == nil {
		places = []Place{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(map[string][]Place{key: places})
}

// WriteFile replaces the document at path. The new content is written to a temporary file in
// the same directory and renamed over the old one, so readers never see a partial file.
func WriteFile(path, key string, places []Place) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := WriteDocument(tmp, key, places); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write places document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace places file: %w", err)
	}
	return nil
}
