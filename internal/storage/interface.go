// Package storage keeps the ingestion run log: one row per ingest or seed
// run with its counters and outcome.
package storage

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/torvalds/internal/errors"
)

// Run is one recorded ingestion run.
type Run struct {
	ID                 string    `db:"id" json:"id"`
	Kind               string    `db:"kind" json:"kind"`
	Username           string    `db:"username" json:"username"`
	Success            bool      `db:"success" json:"success"`
	DevelopersAdded    int       `db:"developers_added" json:"developers_added"`
	RepositoriesAdded  int       `db:"repositories_added" json:"repositories_added"`
	ContributionsAdded int       `db:"contributions_added" json:"contributions_added"`
	Error              string    `db:"error" json:"error,omitempty"`
	StartedAt          time.Time `db:"started_at" json:"started_at"`
	DurationMS         int64     `db:"duration_ms" json:"duration_ms"`
}

// Duration returns the run's wall time.
func (r Run) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// RunStore defines the run log interface
type RunStore interface {
	// RecordRun inserts the run, or replaces the row with the same ID.
	RecordRun(ctx context.Context, run Run) error
	// RecentRuns returns the newest runs first.
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Open returns the store for driver ("sqlite" or "postgres"). Driver "none"
// or "" yields a nil store and no error.
func Open(driver, dsn string, logger *logrus.Logger) (RunStore, error) {
	switch driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		store, err := NewSQLiteStore(dsn, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := NewPostgresStore(dsn, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.ConfigErrorf("unknown run log driver %q", driver)
	}
}

var (
	_ RunStore = (*SQLiteStore)(nil)
	_ RunStore = (*PostgresStore)(nil)
)
