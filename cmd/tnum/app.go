package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rohankatakam/torvalds/internal/autocomplete"
	"github.com/rohankatakam/torvalds/internal/cache"
	"github.com/rohankatakam/torvalds/internal/config"
	"github.com/rohankatakam/torvalds/internal/errors"
	"github.com/rohankatakam/torvalds/internal/github"
	"github.com/rohankatakam/torvalds/internal/graph"
	"github.com/rohankatakam/torvalds/internal/ingestion"
	"github.com/rohankatakam/torvalds/internal/metrics"
	"github.com/rohankatakam/torvalds/internal/pathfinder"
	"github.com/rohankatakam/torvalds/internal/storage"
)

// app holds every wired service. Optional layers (account cache, Redis,
// run log) degrade to nil with a warning instead of failing the command.
type app struct {
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	graphClient *graph.Client
	store       *graph.Store
	accounts    *cache.AccountStore
	redis       *cache.RedisClient
	runs        storage.RunStore

	github       *github.Client
	orchestrator *ingestion.Orchestrator
	resolver     *pathfinder.Resolver
	suggest      *autocomplete.Service
	stats        cache.CachedCounts
}

type appOptions struct {
	validation config.ValidationContext
	withRedis  bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	result := cfg.Validate(opts.validation)
	if result.HasErrors() {
		return nil, errors.Wrap(result, errors.ErrorTypeConfig, errors.SeverityCritical, "invalid configuration")
	}
	for _, w := range result.Warnings {
		logger.Warn(w)
	}

	a := &app{registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	client, err := graph.NewClient(ctx, graph.Options{
		URI:      cfg.Neo4j.URI,
		User:     cfg.Neo4j.User,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	})
	if err != nil {
		return nil, err
	}
	a.graphClient = client
	a.store = graph.NewStore(client)

	if cfg.Cache.AccountCachePath != "" {
		if a.accounts, err = cache.OpenAccountStore(cfg.Cache.AccountCachePath, cfg.Cache.AccountTTL); err != nil {
			logger.WithError(err).Warn("Account cache disabled")
		}
	}

	if opts.withRedis && cfg.Cache.RedisAddr != "" {
		if a.redis, err = cache.NewRedisClient(ctx, cfg.Cache.RedisAddr, "", cfg.Cache.StatsTTL); err != nil {
			logger.WithError(err).Warn("Redis disabled, using in-process cache only")
		}
	}

	if a.runs, err = storage.Open(cfg.RunLog.Driver, cfg.RunLog.DSN, logger); err != nil {
		logger.WithError(err).Warn("Run log disabled")
		a.runs = nil
	}

	ghOpts := github.Options{
		Token:     cfg.GitHub.Token,
		BaseURL:   cfg.GitHub.APIURL,
		RateLimit: cfg.GitHub.RateLimit,
		Metrics:   a.metrics,
	}
	if a.accounts != nil {
		ghOpts.Accounts = a.accounts
	}
	if a.github, err = github.NewClient(ghOpts); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("github client: %w", err)
	}

	a.stats = cache.CachedCounts{
		Cache: cache.NewStatsCache(cfg.Cache.StatsTTL, a.redis, a.metrics),
		Load:  a.store.Counts,
	}

	ingestOpts := ingestion.Options{
		ContributorLimit: cfg.Ingest.ContributorLimit,
		FetchWorkers:     cfg.Ingest.FetchWorkers,
		Stats:            a.stats.Cache,
		Metrics:          a.metrics,
	}
	if a.runs != nil {
		ingestOpts.Runs = a.runs
	}
	a.orchestrator = ingestion.NewOrchestrator(a.github, a.store, logger, ingestOpts)

	a.resolver = pathfinder.NewResolver(a.store, a.orchestrator, logger, pathfinder.Options{
		Reference:     cfg.Path.Reference,
		MaxHops:       cfg.Path.MaxHops,
		IngestTimeout: cfg.Ingest.Timeout,
		Metrics:       a.metrics,
	})

	a.suggest = autocomplete.NewService(a.store, cache.NewSuggestCache(cfg.Cache.SuggestSize, cache.DefaultSuggestTTL), graph.DefaultSuggestLimit)
	return a, nil
}

func (a *app) Close(ctx context.Context) {
	if a.runs != nil {
		a.runs.Close()
	}
	if a.accounts != nil {
		a.accounts.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.graphClient != nil {
		a.graphClient.Close(ctx)
	}
}
