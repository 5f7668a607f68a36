package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test ids live far above real GitHub ids so cleanup cannot touch real data.
const testIDBase = int64(9_000_000_000)

func integrationStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set, skipping Neo4j integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewClient(ctx, Options{
		URI:      uri,
		User:     envOr("NEO4J_TEST_USER", "neo4j"),
		Password: envOr("NEO4J_TEST_PASSWORD", "password"),
		Database: envOr("NEO4J_TEST_DATABASE", "neo4j"),
	})
	require.NoError(t, err)

	store := NewStore(client)
	require.NoError(t, store.EnsureSchema(ctx))

	cleanup := func() {
		_, err := neo4j.ExecuteQuery(context.Background(), client.driver,
			`MATCH (n) WHERE (n:Developer OR n:Repository) AND n.github_id >= $base DETACH DELETE n`,
			map[string]any{"base": testIDBase}, neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(client.database))
		assert.NoError(t, err)
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close(context.Background())
	})
	return store
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestStore_UpsertIdempotentAndShortestPath(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	before, err := store.Counts(ctx)
	require.NoError(t, err)

	w := store.OpenWriter(ctx, "")
	defer w.Close(ctx)

	alice, bob, ref := testIDBase+1, testIDBase+2, testIDBase+3
	r1, r2 := testIDBase+101, testIDBase+102

	for i := 0; i < 2; i++ {
		require.NoError(t, w.UpsertDeveloper(ctx, alice, "Alice-Test"))
		require.NoError(t, w.UpsertDeveloper(ctx, bob, "zzqxbobtest"))
		require.NoError(t, w.UpsertDeveloper(ctx, ref, "ref-test"))
		require.NoError(t, w.UpsertRepository(ctx, r1, "alice/one", "Go"))
		require.NoError(t, w.UpsertRepository(ctx, r2, "bob/two", ""))
		require.NoError(t, w.UpsertContribution(ctx, alice, r1, 5, "Go"))
		require.NoError(t, w.UpsertContribution(ctx, bob, r1, 3, "Go"))
		require.NoError(t, w.UpsertContribution(ctx, bob, r2, 9, ""))
		require.NoError(t, w.UpsertContribution(ctx, ref, r2, 1, ""))
	}

	after, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Developers+3, after.Developers)
	assert.Equal(t, before.Repositories+2, after.Repositories)
	assert.Equal(t, before.Contributions+4, after.Contributions)

	err = w.UpsertContribution(ctx, alice, testIDBase+999, 1, "")
	assert.Error(t, err, "missing repository endpoint")

	path, err := store.FindShortestPath(ctx, "alice-test", "REF-TEST", DefaultMaxHops)
	require.NoError(t, err)
	require.NotNil(t, path)
	require.Len(t, path.Nodes, 5)
	assert.Equal(t, "Alice-Test", path.Nodes[0].Name)
	assert.Equal(t, "alice/one", path.Nodes[1].Name)
	assert.Equal(t, "bob/two", path.Nodes[3].Name)
	assert.Equal(t, 5, path.Edges[0].TotalCommits)
	assert.Equal(t, 9, path.Edges[2].TotalCommits)

	// Undirected: the reverse query finds a path of the same length.
	reverse, err := store.FindShortestPath(ctx, "ref-test", "alice-test", DefaultMaxHops)
	require.NoError(t, err)
	require.NotNil(t, reverse)
	assert.Len(t, reverse.Nodes, 5)

	tooShort, err := store.FindShortestPath(ctx, "alice-test", "ref-test", 2)
	require.NoError(t, err)
	assert.Nil(t, tooShort)

	missing, err := store.FindShortestPath(ctx, "alice-test", "nobody-test", DefaultMaxHops)
	require.NoError(t, err)
	assert.Nil(t, missing)

	names, err := store.Suggest(ctx, "zzqxbob", 3)
	require.NoError(t, err)
	assert.Contains(t, names, "zzqxbobtest")
}
