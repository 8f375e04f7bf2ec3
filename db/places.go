package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"telegram-places-bot/geo"
	"telegram-places-bot/places"
)

var placeColumns = []string{
	"dataset", "place_id", "name", "category", "area", "latitude", "longitude",
	"description", "opening_hours", "phone", "email", "website", "amenities", "position", "run_id",
}

// PlaceSource reads one dataset from the places table. It implements places.Source.
type PlaceSource struct {
	db      *DB
	dataset string
}

// NewPlaceSource creates a source for dataset (places.LocationsKey or places.HubsKey).
func (db *DB) NewPlaceSource(dataset string) *PlaceSource {
	return &PlaceSource{db: db, dataset: dataset}
}

func (s *PlaceSource) Name() string {
	return "db:" + s.dataset
}

// Read returns the dataset in the order it was stored.
func (s *PlaceSource) Read(ctx context.Context) ([]places.Place, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(place_id, ''), name, category, COALESCE(area, ''), latitude, longitude,
			   COALESCE(description, ''), COALESCE(opening_hours, ''),
			   COALESCE(phone, ''), COALESCE(email, ''), COALESCE(website, ''), amenities
		FROM %s
		WHERE dataset = $1
		ORDER BY position
	`, s.db.TableName("places"))

	rows, err := s.db.Pool.Query(ctx, query, s.dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	list := make([]places.Place, 0)
	for rows.Next() {
		var (
			p        places.Place
			lat, lon *float64
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Category, &p.Area, &lat, &lon,
			&p.Description, &p.OpeningHours,
			&p.Contact.Phone, &p.Contact.Email, &p.Contact.Website, &p.Amenities,
		); err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		if lat != nil && lon != nil {
			p.Coordinates = &geo.Coordinates{Lat: *lat, Lon: *lon}
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read places: %w", err)
	}
	return list, nil
}

// placeRow converts p to the values of placeColumns.
func placeRow(dataset string, runID uuid.UUID, position int, p places.Place) []interface{} {
	var lat, lon *float64
	if p.Coordinates != nil {
		lat, lon = &p.Coordinates.Lat, &p.Coordinates.Lon
	}
	var placeID *string
	if p.ID != "" {
		placeID = &p.ID
	}
	var run *uuid.UUID
	if runID != uuid.Nil {
		run = &runID
	}
	amenities := p.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return []interface{}{
		dataset, placeID, p.Name, p.Category, p.Area, lat, lon,
		p.Description, p.OpeningHours, p.Contact.Phone, p.Contact.Email, p.Contact.Website,
		amenities, position, run,
	}
}

// ReplacePlaces swaps the stored dataset for list in one transaction. Readers see either the old
// or the new dataset.
func (db *DB) ReplacePlaces(ctx context.Context, dataset string, runID uuid.UUID, list []places.Place) (int64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE dataset = $1", db.TableName("places")), dataset); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", dataset, err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{db.Config.Schema, "places"},
		placeColumns,
		pgx.CopyFromSlice(len(list), func(i int) ([]interface{}, error) {
			return placeRow(dataset, runID, i, list[i]), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy places: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit places: %w", err)
	}
	return copied, nil
}

// IngestRun is the record of one ingestion run.
type IngestRun struct {
	RunID      uuid.UUID
	Providers  string
	Fetched    int
	Kept       int
	StartedAt  time.Time
	FinishedAt time.Time
}

// RecordIngestRun saves an ingestion run
func (db *DB) RecordIngestRun(ctx context.Context, run IngestRun) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, providers, fetched, kept, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, db.TableName("ingest_runs"))

	_, err := db.Pool.Exec(ctx, query,
		run.RunID, run.Providers, run.Fetched, run.Kept, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record ingest run: %w", err)
	}
	return nil
}

// LastIngestRun returns the most recent run, or nil when there is none.
func (db *DB) LastIngestRun(ctx context.Context) (*IngestRun, error) {
	query := fmt.Sprintf(`
		SELECT run_id, providers, fetched, kept, started_at, finished_at
		FROM %s
		ORDER BY finished_at DESC
		LIMIT 1
	`, db.TableName("ingest_runs"))

	var run IngestRun
	err := db.Pool.QueryRow(ctx, query).Scan(
		&run.RunID, &run.Providers, &run.Fetched, &run.Kept, &run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last ingest run: %w", err)
	}
	return &run, nil
}
