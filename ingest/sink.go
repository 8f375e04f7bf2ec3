package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"telegram-places-bot/places"
)

// Sink stores a complete dataset produced by a run.
type Sink interface {
	Name() string
	Write(ctx context.Context, runID uuid.UUID, list []places.Place) error
}

// FileSink writes the dataset as a JSON document. The file is replaced atomically.
type FileSink struct {
	path string
	key  string
}

func NewFileSink(path, key string) *FileSink {
	return &FileSink{path: path, key: key}
}

func (s *FileSink) Name() string {
	return "file:" + s.path
}

func (s *FileSink) Write(ctx context.Context, runID uuid.UUID, list []places.Place) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return places.WriteFile(s.path, s.key, list)
}

// PlaceStore replaces a dataset in the database. Implemented by *db.DB.
type PlaceStore interface {
	ReplacePlaces(ctx context.Context, dataset string, runID uuid.UUID, list []places.Place) (int64, error)
}

// DBSink writes the dataset to the places table.
type DBSink struct {
	store   PlaceStore
	dataset string
}

func NewDBSink(store PlaceStore, dataset string) *DBSink {
	return &DBSink{store: store, dataset: dataset}
}

func (s *DBSink) Name() string {
	return "db:" + s.dataset
}

func (s *DBSink) Write(ctx context.Context, runID uuid.UUID, list []places.Place) error {
	n, err := s.store.ReplacePlaces(ctx, s.dataset, runID, list)
	if err != nil {
		return err
	}
	if int(n) != len(list) {
		return fmt.Errorf("stored %d of %d places", n, len(list))
	}
	return nil
}
