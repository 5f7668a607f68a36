package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GITHUB_TOKEN", "GITHUB_API_URL", "GITHUB_RATE_LIMIT",
		"NEO4J_URI", "NEO4J_USER", "NEO4J_PASSWORD", "NEO4J_DATABASE",
		"REDIS_ADDR", "RUNLOG_DRIVER", "RUNLOG_DSN", "HTTP_ADDR", "REFERENCE_USERNAME",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "torvalds", cfg.Path.Reference)
	assert.Equal(t, 50, cfg.Path.MaxHops)
	assert.Equal(t, 50, cfg.Ingest.ContributorLimit)
	assert.Equal(t, 4, cfg.Ingest.FetchWorkers)
	assert.Equal(t, 3*time.Minute, cfg.Ingest.Timeout)
	assert.Equal(t, time.Hour, cfg.Cache.StatsTTL)
	assert.Equal(t, "sqlite", cfg.RunLog.Driver)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
neo4j:
  uri: neo4j://graph.internal:7687
  password: from-file
ingest:
  fetch_workers: 8
  timeout: 90s
path:
  reference: gvanrossum
`), 0600))

	t.Setenv("NEO4J_PASSWORD", "from-env")
	t.Setenv("HTTP_ADDR", ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "neo4j://graph.internal:7687", cfg.Neo4j.URI)
	assert.Equal(t, "from-env", cfg.Neo4j.Password)
	assert.Equal(t, 8, cfg.Ingest.FetchWorkers)
	assert.Equal(t, 90*time.Second, cfg.Ingest.Timeout)
	assert.Equal(t, "gvanrossum", cfg.Path.Reference)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	// untouched keys keep their defaults
	assert.Equal(t, 50, cfg.Ingest.ContributorLimit)
}

func TestLoad_KeychainTokenWhenEnvUnset(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	require.NoError(t, NewKeyringManager().SetGitHubToken("ghp_keychain_value"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ghp_keychain_value", cfg.GitHub.Token)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Neo4j.Password = "s3cret-graph"
		cfg.GitHub.Token = "ghp_abcdef1234567890"
		return cfg
	}

	tests := []struct {
		name       string
		mutate     func(*Config)
		ctx        ValidationContext
		wantErrors bool
	}{
		{"valid serve", func(*Config) {}, ValidationContextServe, false},
		{"missing password", func(c *Config) { c.Neo4j.Password = "" }, ValidationContextQuery, true},
		{"bad scheme", func(c *Config) { c.Neo4j.URI = "http://localhost:7474" }, ValidationContextQuery, true},
		{"missing token for ingest", func(c *Config) { c.GitHub.Token = "" }, ValidationContextIngest, true},
		{"missing token for query", func(c *Config) { c.GitHub.Token = "" }, ValidationContextQuery, false},
		{"hops out of range", func(c *Config) { c.Path.MaxHops = 500 }, ValidationContextQuery, true},
		{"zero workers", func(c *Config) { c.Ingest.FetchWorkers = 0 }, ValidationContextQuery, true},
		{"unknown runlog driver", func(c *Config) { c.RunLog.Driver = "mysql" }, ValidationContextQuery, true},
		{"postgres without url dsn", func(c *Config) {
			c.RunLog.Driver = "postgres"
			c.RunLog.DSN = "/tmp/runs.db"
		}, ValidationContextAll, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			result := cfg.Validate(tt.ctx)
			assert.Equal(t, tt.wantErrors, result.HasErrors(), result.Error())
		})
	}
}

func TestValidate_CommonPasswordWarningOmitsValue(t *testing.T) {
	cfg := Default()
	cfg.GitHub.Token = "ghp_abcdef1234567890"
	cfg.Neo4j.Password = "password"

	result := cfg.Validate(ValidationContextQuery)
	require.False(t, result.HasErrors(), result.Error())
	require.NotEmpty(t, result.Warnings)
	for _, w := range result.Warnings {
		assert.NotContains(t, w, "(password)")
	}
	assert.Contains(t, result.Warnings, "NEO4J_PASSWORD is set to a very common password")
}

func TestWriteYAML_MasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.GitHub.Token = "ghp_abcdef1234567890"
	cfg.Neo4j.Password = "hunter2"

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "ghp_abcdef1234567890")
	assert.Contains(t, out, "ghp_ab...7890")
	assert.Contains(t, out, "reference: torvalds")
}
