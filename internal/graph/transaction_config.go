package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Operation names used for transaction timeouts and metadata.
const (
	OpIngestWrite  = "ingest_write"
	OpPathQuery    = "path_query"
	OpStatsQuery   = "stats_query"
	OpAutocomplete = "autocomplete"
	OpSchema       = "schema"
	OpHealthCheck  = "health_check"
)

// TransactionConfig defines timeout and metadata for transactions.
// Metadata shows up in Neo4j's query.log and SHOW TRANSACTIONS.
type TransactionConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

// DefaultTransactionConfigs returns the config per operation type
func DefaultTransactionConfigs() map[string]TransactionConfig {
	return map[string]TransactionConfig{
		// One MERGE per call; a single ingestion run issues thousands.
		OpIngestWrite: {
			Timeout: 30 * time.Second,
			Metadata: map[string]any{
				"operation": OpIngestWrite,
				"type":      "write",
			},
		},

		// shortestPath over up to 50 hops can fan out on hub repositories
		OpPathQuery: {
			Timeout: 30 * time.Second,
			Metadata: map[string]any{
				"operation": OpPathQuery,
				"type":      "read",
			},
		},

		OpStatsQuery: {
			Timeout: 20 * time.Second,
			Metadata: map[string]any{
				"operation": OpStatsQuery,
				"type":      "read",
			},
		},

		// Typed as the user types; must stay fast
		OpAutocomplete: {
			Timeout: 3 * time.Second,
			Metadata: map[string]any{
				"operation": OpAutocomplete,
				"type":      "read",
			},
		},

		OpSchema: {
			Timeout: 5 * time.Minute,
			Metadata: map[string]any{
				"operation": OpSchema,
				"type":      "schema",
			},
		},

		OpHealthCheck: {
			Timeout: 5 * time.Second,
			Metadata: map[string]any{
				"operation": OpHealthCheck,
				"type":      "read",
			},
		},
	}
}

// AsNeo4jConfig converts to Neo4j transaction config functions
// for ExecuteRead/ExecuteWrite. ExecuteQuery takes its timeout from ctx.
func (tc TransactionConfig) AsNeo4jConfig() []func(*neo4j.TransactionConfig) {
	configs := []func(*neo4j.TransactionConfig){}

	if tc.Timeout > 0 {
		configs = append(configs, neo4j.WithTxTimeout(tc.Timeout))
	}
	if len(tc.Metadata) > 0 {
		configs = append(configs, neo4j.WithTxMetadata(tc.Metadata))
	}

	return configs
}

// GetConfigForOperation retrieves the appropriate transaction config
// Returns default config if operation not found
func GetConfigForOperation(operation string) TransactionConfig {
	if config, ok := DefaultTransactionConfigs()[operation]; ok {
		return config
	}

	return TransactionConfig{
		Timeout: 60 * time.Second,
		Metadata: map[string]any{
			"operation": operation,
			"type":      "unknown",
		},
	}
}

// WithCustomMetadata returns a copy with one more metadata entry
func (tc TransactionConfig) WithCustomMetadata(key string, value any) TransactionConfig {
	newConfig := TransactionConfig{
		Timeout:  tc.Timeout,
		Metadata: make(map[string]any, len(tc.Metadata)+1),
	}
	for k, v := range tc.Metadata {
		newConfig.Metadata[k] = v
	}
	newConfig.Metadata[key] = value
	return newConfig
}
