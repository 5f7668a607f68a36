package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Both SQLite (3.24+) and PostgreSQL accept this upsert form.
const upsertRunSQL = `
	INSERT INTO ingestion_runs (id, kind, username, success, developers_added,
		repositories_added, contributions_added, error, started_at, duration_ms)
	VALUES (:id, :kind, :username, :success, :developers_added,
		:repositories_added, :contributions_added, :error, :started_at, :duration_ms)
	ON CONFLICT (id) DO UPDATE SET
		success = EXCLUDED.success,
		developers_added = EXCLUDED.developers_added,
		repositories_added = EXCLUDED.repositories_added,
		contributions_added = EXCLUDED.contributions_added,
		error = EXCLUDED.error,
		duration_ms = EXCLUDED.duration_ms
`

const recentRunsSQL = `
	SELECT id, kind, username, success, developers_added, repositories_added,
		contributions_added, error, started_at, duration_ms
	FROM ingestion_runs
	ORDER BY started_at DESC
	LIMIT ?
`

// sqlRunStore holds the queries shared by both dialects. sqlx rebinds
// placeholders for the driver.
type sqlRunStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

func (s *sqlRunStore) RecordRun(ctx context.Context, run Run) error {
	if _, err := s.db.NamedExecContext(ctx, upsertRunSQL, run); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"username": run.Username,
		"success":  run.Success,
	}).Debug("Recorded ingestion run")
	return nil
}

func (s *sqlRunStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	runs := []Run{}
	if err := s.db.SelectContext(ctx, &runs, s.db.Rebind(recentRunsSQL), limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Close closes the database connection
func (s *sqlRunStore) Close() error {
	return s.db.Close()
}
