package graph

import (
	"context"
	"fmt"
	"time"
)

// slowHealthCheck marks the pool unhealthy even when connectivity succeeds.
const slowHealthCheck = 2 * time.Second

// PoolHealthStatus represents the health of the connection pool
type PoolHealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Message       string        `json:"message"`
	MaxPoolSize   int           `json:"max_pool_size"`
	CheckDuration time.Duration `json:"check_duration"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// WatchPoolHealth runs periodic health checks until ctx is done.
//
//	go client.WatchPoolHealth(ctx, 30*time.Second)
func (c *Client) WatchPoolHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("starting pool health monitor", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("pool health monitor stopped")
			return
		case <-ticker.C:
			if status, err := c.CheckPoolHealth(ctx); err != nil {
				c.logger.Warn("pool health check failed", "error", err)
			} else {
				c.logger.Debug("pool health check passed", "duration", status.CheckDuration)
			}
		}
	}
}

// CheckPoolHealth performs a connectivity check and reports how long it took.
func (c *Client) CheckPoolHealth(ctx context.Context) (*PoolHealthStatus, error) {
	start := time.Now()
	err := c.HealthCheck(ctx)
	took := time.Since(start)

	status := &PoolHealthStatus{
		MaxPoolSize:   c.maxPoolSize,
		CheckDuration: took,
		LastCheckTime: time.Now(),
	}

	if err != nil {
		status.Message = fmt.Sprintf("health check failed: %v", err)
		return status, err
	}
	if took > slowHealthCheck {
		status.Message = fmt.Sprintf("health check slow: %v (threshold: %v)", took, slowHealthCheck)
		return status, fmt.Errorf("neo4j health check slow: %v", took)
	}

	status.Healthy = true
	status.Message = fmt.Sprintf("pool healthy (check took %v)", took)
	return status, nil
}
