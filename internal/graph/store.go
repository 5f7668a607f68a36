package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Store is the query surface over a connected Client.
type Store struct {
	client *Client
}

// NewStore creates a store on top of client.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// FindShortestPath returns a shortest undirected path between two developers,
// matching usernames case-insensitively, or nil when none exists within
// maxHops relationships. Among equally short paths the database picks one.
func (s *Store) FindShortestPath(ctx context.Context, source, target string, maxHops int) (*Path, error) {
	if maxHops <= 0 || maxHops > DefaultMaxHops {
		maxHops = DefaultMaxHops
	}
	source = strings.ToLower(strings.TrimSpace(source))
	target = strings.ToLower(strings.TrimSpace(target))
	if source == "" || target == "" || source == target {
		return nil, nil
	}

	// Variable length bounds cannot be parameters.
	query := fmt.Sprintf(`
		MATCH (start:Developer), (end:Developer)
		WHERE toLower(start.username) = $source
		  AND toLower(end.username) = $target
		  AND start <> end
		MATCH p = shortestPath((start)-[:CONTRIBUTED_TO*..%d]-(end))
		RETURN p
		LIMIT 1`, maxHops)

	started := time.Now()
	result, err := s.client.read(ctx, OpPathQuery, query, map[string]any{
		"source": source,
		"target": target,
	})
	if err != nil {
		return nil, fmt.Errorf("shortest path %s -> %s: %w", source, target, err)
	}
	s.client.logger.Debug("shortest path query", "source", source, "target", target,
		"rows", len(result.Records), "duration", time.Since(started))

	if len(result.Records) == 0 {
		return nil, nil
	}
	raw, ok := result.Records[0].Get("p")
	if !ok {
		return nil, fmt.Errorf("shortest path query returned no path column")
	}
	dbPath, ok := raw.(neo4j.Path)
	if !ok {
		return nil, fmt.Errorf("unexpected type for path: %T", raw)
	}
	return pathFromRecord(dbPath)
}

// Counts returns live node and relationship counts. Callers cache it.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	query := `
		CALL { MATCH (d:Developer) RETURN count(d) AS developers }
		CALL { MATCH (r:Repository) RETURN count(r) AS repositories }
		CALL { MATCH (:Developer)-[c:CONTRIBUTED_TO]->(:Repository) RETURN count(c) AS contributions }
		RETURN developers, repositories, contributions`

	result, err := s.client.read(ctx, OpStatsQuery, query, nil)
	if err != nil {
		return Counts{}, fmt.Errorf("graph counts: %w", err)
	}
	if len(result.Records) == 0 {
		return Counts{}, nil
	}

	rec := result.Records[0]
	return Counts{
		Developers:    recordInt(rec, "developers"),
		Repositories:  recordInt(rec, "repositories"),
		Contributions: recordInt(rec, "contributions"),
	}, nil
}

// HealthCheck verifies the underlying connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}

// schemaStatements are safe to rerun.
var schemaStatements = []string{
	`CREATE CONSTRAINT developer_github_id IF NOT EXISTS FOR (d:Developer) REQUIRE d.github_id IS UNIQUE`,
	`CREATE CONSTRAINT repository_github_id IF NOT EXISTS FOR (r:Repository) REQUIRE r.github_id IS UNIQUE`,
	`CREATE FULLTEXT INDEX ` + FulltextIndexName + ` IF NOT EXISTS FOR (n:Developer) ON EACH [n.username]`,
}

// EnsureSchema creates the uniqueness constraints and the username fulltext
// index if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if err := s.client.write(ctx, OpSchema, stmt, nil); err != nil {
			return fmt.Errorf("schema statement failed (%s): %w", stmt, err)
		}
	}
	s.client.logger.Info("graph schema ensured", "statements", len(schemaStatements))
	return nil
}

func recordInt(rec *neo4j.Record, key string) int64 {
	v, _ := rec.Get(key)
	return toInt64(v)
}
