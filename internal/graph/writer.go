package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// sessionWriter issues every upsert of one ingestion run on a single write
// session. Each upsert is its own managed transaction, so a failure midway
// keeps everything written before it.
type sessionWriter struct {
	session neo4j.SessionWithContext
	txOpts  []func(*neo4j.TransactionConfig)
	logger  *slog.Logger
}

// OpenWriter acquires the write session for one ingestion run. Every
// transaction carries runID in its metadata.
func (s *Store) OpenWriter(ctx context.Context, runID string) ContributionWriter {
	session := s.client.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.client.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	return &sessionWriter{
		session: session,
		txOpts:  ingestWriteConfig(runID).AsNeo4jConfig(),
		logger:  s.client.logger,
	}
}

func ingestWriteConfig(runID string) TransactionConfig {
	cfg := GetConfigForOperation(OpIngestWrite)
	if runID == "" {
		return cfg
	}
	return cfg.WithCustomMetadata("run_id", runID)
}

func (w *sessionWriter) UpsertDeveloper(ctx context.Context, id int64, username string) error {
	b := NewCypherBuilder()
	query, err := b.BuildMergeNode(LabelDeveloper, "github_id", id, map[string]any{
		"username": username,
	})
	if err != nil {
		return err
	}
	if _, err := w.run(ctx, query, b.Params()); err != nil {
		return fmt.Errorf("upsert developer %d (%s): %w", id, username, err)
	}
	return nil
}

func (w *sessionWriter) UpsertRepository(ctx context.Context, id int64, name, language string) error {
	b := NewCypherBuilder()
	query, err := b.BuildMergeNode(LabelRepository, "github_id", id, map[string]any{
		"name":     name,
		"language": nullable(language),
	})
	if err != nil {
		return err
	}
	if _, err := w.run(ctx, query, b.Params()); err != nil {
		return fmt.Errorf("upsert repository %d (%s): %w", id, name, err)
	}
	return nil
}

func (w *sessionWriter) UpsertContribution(ctx context.Context, developerID, repositoryID int64, commits int, language string) error {
	b := NewCypherBuilder()
	query, err := b.BuildMergeEdge(
		LabelDeveloper, "github_id", developerID,
		LabelRepository, "github_id", repositoryID,
		RelContributedTo,
		map[string]any{
			"total_commits":    commits,
			"primary_language": nullable(language),
		})
	if err != nil {
		return err
	}
	rows, err := w.run(ctx, query, b.Params())
	if err != nil {
		return fmt.Errorf("upsert contribution %d->%d: %w", developerID, repositoryID, err)
	}
	if rows == 0 {
		return fmt.Errorf("upsert contribution %d->%d: developer or repository does not exist", developerID, repositoryID)
	}
	return nil
}

func (w *sessionWriter) Close(ctx context.Context) error {
	return w.session.Close(ctx)
}

// run executes one statement and reports how many rows it returned.
func (w *sessionWriter) run(ctx context.Context, query string, params map[string]any) (int, error) {
	rows, err := w.session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return 0, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return 0, err
		}
		return len(records), nil
	}, w.txOpts...)
	if err != nil {
		return 0, err
	}
	return rows.(int), nil
}

// nullable stores empty strings as null properties.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
