package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/torvalds/internal/errors"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs", "runs.db"), quietLogger())
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED=0") {
		t.Skip("sqlite3 driver needs cgo")
	}
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := Run{ID: uuid.NewString(), Kind: "ingest", Username: "alice", StartedAt: base}
	second := Run{ID: uuid.NewString(), Kind: "seed", Username: "bob", StartedAt: base.Add(time.Minute),
		Success: true, DevelopersAdded: 10, RepositoriesAdded: 2, ContributionsAdded: 12, DurationMS: 1500}

	require.NoError(t, store.RecordRun(ctx, first))
	require.NoError(t, store.RecordRun(ctx, second))

	// Same id replaces the row.
	first.Success = false
	first.Error = `user "alice" not found on GitHub or GitHub API error`
	first.DurationMS = 42
	require.NoError(t, store.RecordRun(ctx, first))

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second.ID, runs[0].ID, "newest first")
	assert.True(t, runs[0].Success)
	assert.Equal(t, 12, runs[0].ContributionsAdded)
	assert.Equal(t, 1500*time.Millisecond, runs[0].Duration())

	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, first.Error, runs[1].Error)
	assert.Equal(t, int64(42), runs[1].DurationMS)

	limited, err := store.RecentRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOpen(t *testing.T) {
	store, err := Open("none", "", quietLogger())
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = Open("mysql", "x", quietLogger())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.True(t, errors.IsFatal(err))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("RUNLOG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RUNLOG_TEST_POSTGRES_DSN not set")
	}
	store, err := NewPostgresStore(dsn, quietLogger())
	require.NoError(t, err)
	defer store.Close()

	run := Run{ID: uuid.NewString(), Kind: "ingest", Username: "pg-test", StartedAt: time.Now().UTC(), Success: true}
	require.NoError(t, store.RecordRun(context.Background(), run))

	runs, err := store.RecentRuns(context.Background(), 50)
	require.NoError(t, err)
	found := false
	for _, r := range runs {
		if r.ID == run.ID {
			found = true
		}
	}
	assert.True(t, found)
}
