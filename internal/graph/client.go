// Package graph is the Neo4j adapter for the developer/repository
// contribution graph: idempotent upserts, shortest path lookup, counts and
// username suggestions.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Options configures the Neo4j connection.
type Options struct {
	URI      string
	User     string
	Password string
	Database string
	// MaxPoolSize defaults to 50.
	MaxPoolSize int
}

// Client wraps the Neo4j driver with pool settings and health checks
type Client struct {
	driver      neo4j.DriverWithContext
	logger      *slog.Logger
	database    string
	maxPoolSize int
}

// NewClient connects to Neo4j and verifies connectivity before returning.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.URI == "" || opts.User == "" || opts.Password == "" {
		return nil, fmt.Errorf("neo4j credentials missing: uri=%s, user=%s", opts.URI, opts.User)
	}
	if opts.Database == "" {
		opts.Database = "neo4j"
	}
	if opts.MaxPoolSize <= 0 {
		opts.MaxPoolSize = 50
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI,
		neo4j.BasicAuth(opts.User, opts.Password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = opts.MaxPoolSize
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = time.Hour
			config.ConnectionLivenessCheckTimeout = 5 * time.Second
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", opts.URI, err)
	}

	logger := slog.Default().With("component", "neo4j")
	logger.Info("neo4j client connected",
		"uri", opts.URI,
		"user", opts.User,
		"database", opts.Database,
		"max_pool_size", opts.MaxPoolSize)

	return &Client{
		driver:      driver,
		logger:      logger,
		database:    opts.Database,
		maxPoolSize: opts.MaxPoolSize,
	}, nil
}

// Close closes the Neo4j driver connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	c.logger.Info("neo4j client closed")
	return nil
}

// HealthCheck verifies Neo4j connectivity
func (c *Client) HealthCheck(ctx context.Context) error {
	cfg := GetConfigForOperation(OpHealthCheck)
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j health check failed: %w", err)
	}
	return nil
}

// read runs a single auto-routed read query under the operation's timeout.
func (c *Client) read(ctx context.Context, op, query string, params map[string]any) (*neo4j.EagerResult, error) {
	cfg := GetConfigForOperation(op)
	queryCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var result *neo4j.EagerResult
	err := monitorQuery(c.logger, op, cfg.Timeout, func() error {
		var err error
		result, err = neo4j.ExecuteQuery(queryCtx, c.driver, query, params,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(c.database),
			neo4j.ExecuteQueryWithReadersRouting())
		return err
	})
	return result, err
}

// write runs one statement in a managed write transaction on a fresh session.
func (c *Client) write(ctx context.Context, op, query string, params map[string]any) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	cfg := GetConfigForOperation(op)
	return monitorQuery(c.logger, op, cfg.Timeout, func() error {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		}, cfg.AsNeo4jConfig()...)
		return err
	})
}
