// Package pathfinder answers "what is this developer's number": the count of
// repositories on the shortest contribution path to the reference
// developer, ingesting the developer from GitHub when the graph has no path
// yet.
package pathfinder

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/torvalds/internal/errors"
	"github.com/rohankatakam/torvalds/internal/graph"
	"github.com/rohankatakam/torvalds/internal/ingestion"
	"github.com/rohankatakam/torvalds/internal/metrics"
)

// DefaultIngestTimeout bounds the on-demand ingestion of a missing user.
const DefaultIngestTimeout = 3 * time.Minute

// Outcomes reported to metrics.
const (
	outcomeReference = "reference"
	outcomeFound     = "found"
	outcomeIngested  = "ingested"
	outcomeNotFound  = "not_found"
	outcomeTimeout   = "timeout"
	outcomeCanceled  = "canceled"
	outcomeError     = "error"
)

// PathFinder is the read side of the graph store.
type PathFinder interface {
	FindShortestPath(ctx context.Context, source, target string, maxHops int) (*graph.Path, error)
}

// Ingester loads a user into the graph.
type Ingester interface {
	Ingest(ctx context.Context, username string) *ingestion.Result
}

// Options configures a Resolver.
type Options struct {
	Reference     string        // default "torvalds"
	MaxHops       int           // default 50
	IngestTimeout time.Duration // default 3m
	Metrics       *metrics.Metrics
}

// Result is the answer for one username.
type Result struct {
	Number   int    `json:"number"`
	Steps    []Step `json:"path"`
	Username string `json:"username"`
	// Ingested is set when the user had to be loaded from GitHub first.
	Ingested bool `json:"ingested"`
}

type Resolver struct {
	paths     PathFinder
	ingester  Ingester
	logger    *logrus.Logger
	reference string
	maxHops   int
	timeout   time.Duration
	metrics   *metrics.Metrics
}

func NewResolver(paths PathFinder, ingester Ingester, logger *logrus.Logger, opts Options) *Resolver {
	if opts.Reference == "" {
		opts.Reference = "torvalds"
	}
	if opts.MaxHops <= 0 {
		opts.MaxHops = graph.DefaultMaxHops
	}
	if opts.IngestTimeout <= 0 {
		opts.IngestTimeout = DefaultIngestTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{
		paths:     paths,
		ingester:  ingester,
		logger:    logger,
		reference: strings.ToLower(strings.TrimSpace(opts.Reference)),
		maxHops:   opts.MaxHops,
		timeout:   opts.IngestTimeout,
		metrics:   opts.Metrics,
	}
}

// Reference returns the normalized reference username.
func (r *Resolver) Reference() string {
	return r.reference
}

// Resolve looks up the path from username to the reference developer. On a
// miss it ingests the user once and retries the lookup once.
func (r *Resolver) Resolve(ctx context.Context, username string) (*Result, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, errors.ValidationError("username is required")
	}

	if username == r.reference {
		r.metrics.PathResolution(outcomeReference)
		return &Result{
			Number:   0,
			Steps:    []Step{{Type: StepDeveloper, Developer: &Developer{Username: r.reference}}},
			Username: username,
		}, nil
	}

	log := r.logger.WithField("username", username)

	path, err := r.findPath(ctx, username)
	if err != nil {
		r.metrics.PathResolution(outcomeError)
		return nil, err
	}
	if path != nil {
		r.metrics.PathResolution(outcomeFound)
		return newResult(username, path, false), nil
	}

	log.Info("No path in graph, ingesting from GitHub")
	if err := r.ingest(ctx, username, log); err != nil {
		switch errors.GetType(err) {
		case errors.ErrorTypeTimeout:
			r.metrics.PathResolution(outcomeTimeout)
		case errors.ErrorTypeCanceled:
			r.metrics.PathResolution(outcomeCanceled)
		default:
			r.metrics.PathResolution(outcomeNotFound)
		}
		return nil, err
	}

	path, err = r.findPath(ctx, username)
	if err != nil {
		r.metrics.PathResolution(outcomeError)
		return nil, err
	}
	if path == nil {
		r.metrics.PathResolution(outcomeNotFound)
		return nil, errors.NotFoundErrorf("no path found between %q and %s; the user may not be in the database or not connected",
			username, r.reference)
	}

	r.metrics.PathResolution(outcomeIngested)
	return newResult(username, path, true), nil
}

func (r *Resolver) findPath(ctx context.Context, username string) (*graph.Path, error) {
	started := time.Now()
	path, err := r.paths.FindShortestPath(ctx, username, r.reference, r.maxHops)
	r.metrics.PathQuery(time.Since(started))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.ContextError(ctxErr, "path query abandoned")
		}
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, errors.SeverityHigh, "path lookup failed")
	}
	return path, nil
}

func (r *Resolver) ingest(ctx context.Context, username string, log *logrus.Entry) error {
	ingestCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result := r.ingester.Ingest(ingestCtx, username)
	if result.Success {
		log.WithFields(logrus.Fields{
			"run_id":        result.RunID,
			"contributions": result.ContributionsAdded,
		}).Info("Ingested user")
		return nil
	}

	switch ctxErr := ingestCtx.Err(); {
	case stderrors.Is(ctxErr, context.DeadlineExceeded):
		log.WithField("timeout", r.timeout.String()).Warn("Ingestion timed out")
		return errors.TimeoutError(ctxErr, "ingestion timed out").
			WithContext("username", username)
	case stderrors.Is(ctxErr, context.Canceled):
		log.Info("Ingestion canceled by caller")
		return errors.CanceledError(ctxErr, "ingestion canceled").
			WithContext("username", username)
	}
	log.WithField("error", result.Error).Info("Ingestion failed")
	return errors.NotFoundErrorf("could not find or ingest %q: %s", username, result.Error)
}

func newResult(username string, path *graph.Path, ingested bool) *Result {
	steps := buildSteps(path)
	return &Result{
		Number:   number(steps),
		Steps:    steps,
		Username: username,
		Ingested: ingested,
	}
}
