package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMergeNode(t *testing.T) {
	b := NewCypherBuilder()
	query, err := b.BuildMergeNode("Repository", "github_id", int64(2325298), map[string]any{
		"name":     "torvalds/linux",
		"language": "C",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"MERGE (n:Repository {github_id: $p0}) SET n.language = $p1, n.name = $p2 RETURN n.github_id AS key",
		query)
	assert.Equal(t, map[string]any{
		"p0": int64(2325298),
		"p1": "C",
		"p2": "torvalds/linux",
	}, b.Params())
}

func TestBuildMergeEdge(t *testing.T) {
	b := NewCypherBuilder()
	query, err := b.BuildMergeEdge(
		"Developer", "github_id", int64(1),
		"Repository", "github_id", int64(2),
		"CONTRIBUTED_TO",
		map[string]any{"total_commits": 12, "primary_language": nil},
	)
	require.NoError(t, err)

	assert.Equal(t,
		"MATCH (from:Developer {github_id: $p0}) MATCH (to:Repository {github_id: $p1}) "+
			"MERGE (from)-[r:CONTRIBUTED_TO]->(to) SET r.primary_language = $p2, r.total_commits = $p3 RETURN type(r) AS type",
		query)
	assert.Nil(t, b.Params()["p2"])
	assert.Equal(t, 12, b.Params()["p3"])
}

func TestCypherBuilder_RejectsInjection(t *testing.T) {
	tests := []struct {
		name  string
		build func(*CypherBuilder) error
	}{
		{"label", func(b *CypherBuilder) error {
			_, err := b.BuildMergeNode("Developer) DETACH DELETE (x", "github_id", 1, nil)
			return err
		}},
		{"key", func(b *CypherBuilder) error {
			_, err := b.BuildMergeNode("Developer", "id}) //", 1, nil)
			return err
		}},
		{"property", func(b *CypherBuilder) error {
			_, err := b.BuildMergeNode("Developer", "github_id", 1, map[string]any{"a = 1, n.b": 2})
			return err
		}},
		{"edge type", func(b *CypherBuilder) error {
			_, err := b.BuildMergeEdge("A", "k", 1, "B", "k", 2, "REL]-(x", nil)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.build(NewCypherBuilder()))
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, isValidIdentifier("github_id"))
	assert.True(t, isValidIdentifier("_x1"))
	assert.False(t, isValidIdentifier(""))
	assert.False(t, isValidIdentifier("1abc"))
	assert.False(t, isValidIdentifier("a-b"))
}

func TestGetConfigForOperation(t *testing.T) {
	cfg := GetConfigForOperation(OpAutocomplete)
	assert.Equal(t, OpAutocomplete, cfg.Metadata["operation"])
	assert.Len(t, cfg.AsNeo4jConfig(), 2)

	unknown := GetConfigForOperation("nope")
	assert.Equal(t, "unknown", unknown.Metadata["type"])

	tagged := cfg.WithCustomMetadata("username", "octo")
	assert.Equal(t, "octo", tagged.Metadata["username"])
	_, leaked := cfg.Metadata["username"]
	assert.False(t, leaked, "original metadata is not mutated")
}

func TestIngestWriteConfig(t *testing.T) {
	cfg := ingestWriteConfig("run-42")
	assert.Equal(t, OpIngestWrite, cfg.Metadata["operation"])
	assert.Equal(t, "run-42", cfg.Metadata["run_id"])
	assert.Len(t, cfg.AsNeo4jConfig(), 2)

	_, tagged := ingestWriteConfig("").Metadata["run_id"]
	assert.False(t, tagged)
	_, leaked := GetConfigForOperation(OpIngestWrite).Metadata["run_id"]
	assert.False(t, leaked)
}

