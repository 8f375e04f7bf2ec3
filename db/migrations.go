package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          string
}

// getMigrations lists every migration in order. Tables are created in schema.
func getMigrations(schema string) []Migration {
	s := pgx.Identifier{schema}.Sanitize()
	return []Migration{
		{
			Version:     1,
			Description: "Create schema and migrations table",
			Up: fmt.Sprintf(`
				CREATE SCHEMA IF NOT EXISTS %s;

				CREATE TABLE IF NOT EXISTS %s.schema_migrations (
					version INTEGER PRIMARY KEY,
					description TEXT NOT NULL,
					applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
				);
			`, s, s),
		},
		{
			Version:     2,
			Description: "Create places table",
			Up: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s.places (
					id BIGSERIAL PRIMARY KEY,
					dataset VARCHAR(20) NOT NULL,
					place_id VARCHAR(255),
					name VARCHAR(500) NOT NULL,
					category VARCHAR(100) NOT NULL,
					area VARCHAR(255),
					latitude DOUBLE PRECISION,
					longitude DOUBLE PRECISION,
					description TEXT,
					opening_hours TEXT,
					phone VARCHAR(100),
					email VARCHAR(255),
					website TEXT,
					amenities TEXT[],
					position INTEGER NOT NULL,
					run_id UUID,
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_places_dataset_position ON %s.places(dataset, position);
				CREATE INDEX IF NOT EXISTS idx_places_dataset_category ON %s.places(dataset, category);
			`, s, s, s),
		},
		{
			Version:     3,
			Description: "Create ingest_runs table",
			Up: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s.ingest_runs (
					run_id UUID PRIMARY KEY,
					providers VARCHAR(50) NOT NULL,
					fetched INTEGER NOT NULL DEFAULT 0,
					kept INTEGER NOT NULL DEFAULT 0,
					started_at TIMESTAMP WITH TIME ZONE NOT NULL,
					finished_at TIMESTAMP WITH TIME ZONE NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_ingest_runs_finished_at ON %s.ingest_runs(finished_at);
			`, s, s),
		},
	}
}

// RunMigrations executes all pending migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	migrations := getMigrations(db.Config.Schema)

	// migration 1 creates the tracking table itself
	if _, err := db.Pool.Exec(ctx, migrations[0].Up); err != nil {
		return fmt.Errorf("failed to create schema and migrations table: %w", err)
	}

	currentVersion, err := db.GetSchemaVersion(ctx)
	if err != nil {
		return err
	}

	db.logger.Info("Current database schema version", zap.Int("version", currentVersion))

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		db.logger.Info("Running migration",
			zap.Int("version", migration.Version),
			zap.String("description", migration.Description))

		if err := db.apply(ctx, migration); err != nil {
			return err
		}
	}

	db.logger.Info("All migrations completed", zap.Int("version", len(migrations)))
	return nil
}

// apply runs one migration and records it in the same transaction.
func (db *DB) apply(ctx context.Context, migration Migration) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, migration.Up); err != nil {
		return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Description, err)
	}

	_, err = tx.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (version, description) VALUES ($1, $2)", db.TableName("schema_migrations")),
		migration.Version, migration.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	return tx.Commit(ctx)
}

// GetSchemaVersion returns the current schema version
func (db *DB) GetSchemaVersion(ctx context.Context) (int, error) {
	var version int
	row := db.Pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT COALESCE(MAX(version), 0) FROM %s",
		db.TableName("schema_migrations"),
	))
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
