// Package api serves the HTTP interface: path calculation, username
// autocomplete, graph stats, health and Prometheus metrics.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/torvalds/internal/errors"
	"github.com/rohankatakam/torvalds/internal/graph"
	"github.com/rohankatakam/torvalds/internal/pathfinder"
)

const requestIDHeader = "X-Request-ID"

type Resolver interface {
	Resolve(ctx context.Context, username string) (*pathfinder.Result, error)
}

type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

type StatsSource interface {
	Counts(ctx context.Context) (graph.Counts, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies are the services behind the routes. Metrics may be nil.
type Dependencies struct {
	Resolver Resolver
	Suggest  Suggester
	Stats    StatsSource
	Health   HealthChecker
	Metrics  http.Handler
	// StatsMaxAge is advertised in Cache-Control on /api/stats.
	StatsMaxAge time.Duration
	Logger      *logrus.Logger
}

type handlers struct {
	deps Dependencies
}

// NewRouter builds the gin engine with request ID, logging and recovery
// middleware.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.StatsMaxAge <= 0 {
		deps.StatsMaxAge = time.Hour
	}
	h := &handlers{deps: deps}

	router := gin.New()
	router.Use(requestID(), requestLogger(deps.Logger), gin.Recovery())

	api := router.Group("/api")
	api.POST("/calculate", h.calculate)
	api.GET("/autocomplete", h.autocomplete)
	api.GET("/stats", h.stats)

	router.GET("/healthz", h.health)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	return router
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request served")
	}
}

type calculateRequest struct {
	Username string `json:"username" binding:"required"`
}

func (h *handlers) calculate(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required"})
		return
	}

	result, err := h.deps.Resolver.Resolve(c.Request.Context(), req.Username)
	if err != nil {
		h.fail(c, err, "An error occurred while calculating the path")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) autocomplete(c *gin.Context) {
	names, err := h.deps.Suggest.Suggest(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, err, "Autocomplete is unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": names})
}

func (h *handlers) stats(c *gin.Context) {
	counts, err := h.deps.Stats.Counts(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Stats are unavailable")
		return
	}
	c.Header("Cache-Control", "public, max-age="+strconv.Itoa(int(h.deps.StatsMaxAge.Seconds())))
	c.JSON(http.StatusOK, counts)
}

func (h *handlers) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := h.deps.Health.HealthCheck(ctx); err != nil {
		h.deps.Logger.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail writes err with its mapped status. Server-side faults are logged and
// reported with the generic message only.
func (h *handlers) fail(c *gin.Context, err error, generic string) {
	status := errors.StatusCode(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
		h.deps.Logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).WithError(err).Error("Request error")
		message = generic
	}
	c.JSON(status, gin.H{"error": message})
}
