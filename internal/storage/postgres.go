package storage

import (
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PostgresStore keeps the run log in PostgreSQL, for deployments with
// several API replicas.
type PostgresStore struct {
	sqlRunStore
}

// NewPostgresStore connects through the pgx stdlib driver.
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{sqlRunStore{db: db, logger: logger}}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingestion_runs (
		id UUID PRIMARY KEY,
		kind TEXT NOT NULL,
		username TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		developers_added INTEGER NOT NULL DEFAULT 0,
		repositories_added INTEGER NOT NULL DEFAULT 0,
		contributions_added INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_ingestion_runs_started ON ingestion_runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_ingestion_runs_username ON ingestion_runs(username);
	`

	_, err := s.db.Exec(schema)
	return err
}
