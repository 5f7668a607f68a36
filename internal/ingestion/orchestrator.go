// Package ingestion loads a developer's contribution neighbourhood from
// GitHub into the graph: the developer, every repository they committed to,
// and up to N contributors of each of those repositories.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/torvalds/internal/github"
	"github.com/rohankatakam/torvalds/internal/graph"
	"github.com/rohankatakam/torvalds/internal/metrics"
	"github.com/rohankatakam/torvalds/internal/storage"
)

// Run kinds recorded in the run log.
const (
	KindIngest = "ingest"
	KindSeed   = "seed"
)

// Source is the GitHub side of a run.
type Source interface {
	FetchUser(ctx context.Context, username string) (*github.Account, error)
	FetchAllTimeContributedRepositories(ctx context.Context, username string, minStars int) ([]github.ContributedRepository, error)
	FetchUserRepositories(ctx context.Context, username string, limit, minStars int) ([]github.ContributedRepository, error)
	FetchRepositoryContributors(ctx context.Context, fullName string, limit int) ([]github.Contributor, error)
}

// Graph hands out the writer a run uses. Writes are tagged with runID.
type Graph interface {
	OpenWriter(ctx context.Context, runID string) graph.ContributionWriter
}

// StatsInvalidator drops cached graph counts once a run has written.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// RunRecorder receives one row per finished run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run storage.Run) error
}

// Options tunes an Orchestrator. Zero values select the defaults.
type Options struct {
	ContributorLimit int // per repository, default 50
	FetchWorkers     int // concurrent contributor fetches, default 4
	SeedRepoLimit    int // repositories per seeded user, default 20

	Runs    RunRecorder
	Stats   StatsInvalidator
	Metrics *metrics.Metrics
}

// Orchestrator coordinates ingestion runs
type Orchestrator struct {
	source Source
	graph  Graph
	logger *logrus.Logger
	opts   Options
}

// NewOrchestrator creates a new ingestion orchestrator
func NewOrchestrator(source Source, g Graph, logger *logrus.Logger, opts Options) *Orchestrator {
	if opts.ContributorLimit <= 0 {
		opts.ContributorLimit = github.DefaultContributorLimit
	}
	if opts.FetchWorkers <= 0 {
		opts.FetchWorkers = 4
	}
	if opts.SeedRepoLimit <= 0 {
		opts.SeedRepoLimit = 20
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		source: source,
		graph:  g,
		logger: logger,
		opts:   opts,
	}
}

// Result describes one run. The Added counters count upserts performed,
// not distinct new entities.
type Result struct {
	RunID              string        `json:"run_id"`
	Kind               string        `json:"kind"`
	Username           string        `json:"username"`
	Success            bool          `json:"success"`
	DevelopersAdded    int           `json:"developers_added"`
	RepositoriesAdded  int           `json:"repositories_added"`
	ContributionsAdded int           `json:"contributions_added"`
	Error              string        `json:"error,omitempty"`
	StartedAt          time.Time     `json:"started_at"`
	Duration           time.Duration `json:"duration"`
}

type repoLister func(ctx context.Context, username string) ([]github.ContributedRepository, error)

// Ingest loads everything the user ever committed to (all years).
func (o *Orchestrator) Ingest(ctx context.Context, username string) *Result {
	return o.run(ctx, KindIngest, username, func(ctx context.Context, username string) ([]github.ContributedRepository, error) {
		return o.source.FetchAllTimeContributedRepositories(ctx, username, 0)
	})
}

// Seed is the bulk variant: only the user's popular repositories (owned or
// contributed to in the last year) with at least minStars stars.
func (o *Orchestrator) Seed(ctx context.Context, username string, minStars int) *Result {
	return o.run(ctx, KindSeed, username, func(ctx context.Context, username string) ([]github.ContributedRepository, error) {
		return o.source.FetchUserRepositories(ctx, username, o.opts.SeedRepoLimit, minStars)
	})
}

func (o *Orchestrator) run(ctx context.Context, kind, username string, list repoLister) *Result {
	result := &Result{
		RunID:     uuid.NewString(),
		Kind:      kind,
		Username:  username,
		StartedAt: time.Now(),
	}
	log := o.logger.WithFields(logrus.Fields{
		"run_id":   result.RunID,
		"kind":     kind,
		"username": username,
	})
	log.Info("Starting ingestion")

	if err := o.load(ctx, username, list, result, log); err != nil {
		result.Error = err.Error()
		log.WithError(err).Warn("Ingestion failed")
	} else {
		result.Success = true
	}
	result.Duration = time.Since(result.StartedAt)

	o.opts.Metrics.IngestRun(result.Success, result.Duration)
	o.opts.Metrics.IngestUpserts(result.DevelopersAdded, result.RepositoriesAdded, result.ContributionsAdded)
	o.record(ctx, result, log)
	o.invalidateStats(ctx, result)

	log.WithFields(logrus.Fields{
		"success":       result.Success,
		"developers":    result.DevelopersAdded,
		"repositories":  result.RepositoriesAdded,
		"contributions": result.ContributionsAdded,
		"duration":      result.Duration.String(),
	}).Info("Ingestion completed")

	return result
}

func (o *Orchestrator) load(ctx context.Context, username string, list repoLister, result *Result, log *logrus.Entry) error {
	user, err := o.source.FetchUser(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %q not found on GitHub or GitHub API error", username)
	}

	writer := o.graph.OpenWriter(ctx, result.RunID)
	defer func() {
		if err := writer.Close(ctx); err != nil {
			log.WithError(err).Warn("Failed to close graph writer")
		}
	}()

	if err := writer.UpsertDeveloper(ctx, user.ID, user.Login); err != nil {
		return fmt.Errorf("upsert developer %s: %w", user.Login, err)
	}
	result.DevelopersAdded++

	repos, err := list(ctx, user.Login)
	if err != nil {
		return fmt.Errorf("list repositories: %w", err)
	}
	log.WithField("repositories", len(repos)).Info("Fetched contributed repositories")

	contributors := o.prefetchContributors(ctx, repos)
	defer contributors.stop()

	for i, repo := range repos {
		if err := writer.UpsertRepository(ctx, repo.ID, repo.FullName, repo.Language); err != nil {
			return fmt.Errorf("upsert repository %s: %w", repo.FullName, err)
		}
		result.RepositoriesAdded++

		commits := repo.Commits
		if commits == github.CommitsUnknown {
			commits = 1
		}
		if err := writer.UpsertContribution(ctx, user.ID, repo.ID, commits, repo.Language); err != nil {
			return fmt.Errorf("upsert contribution %s -> %s: %w", user.Login, repo.FullName, err)
		}
		result.ContributionsAdded++

		people, err := contributors.await(ctx, i)
		if err != nil {
			return err
		}
		for _, c := range people {
			if c.ID == user.ID {
				continue
			}
			if err := writer.UpsertDeveloper(ctx, c.ID, c.Login); err != nil {
				return fmt.Errorf("upsert developer %s: %w", c.Login, err)
			}
			result.DevelopersAdded++
			if err := writer.UpsertContribution(ctx, c.ID, repo.ID, c.Commits, repo.Language); err != nil {
				return fmt.Errorf("upsert contribution %s -> %s: %w", c.Login, repo.FullName, err)
			}
			result.ContributionsAdded++
		}

		log.WithFields(logrus.Fields{
			"repository":   repo.FullName,
			"contributors": len(people),
		}).Debug("Ingested repository")
	}
	return nil
}

// invalidateStats runs after any run that wrote, failed ones included,
// since committed writes are kept.
func (o *Orchestrator) invalidateStats(ctx context.Context, result *Result) {
	if o.opts.Stats == nil || result.DevelopersAdded == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	o.opts.Stats.Invalidate(ctx)
}

// record writes the run log row. It runs even when ctx is already done so
// timed-out runs still show up.
func (o *Orchestrator) record(ctx context.Context, result *Result, log *logrus.Entry) {
	if o.opts.Runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := o.opts.Runs.RecordRun(ctx, storage.Run{
		ID:                 result.RunID,
		Kind:               result.Kind,
		Username:           result.Username,
		Success:            result.Success,
		DevelopersAdded:    result.DevelopersAdded,
		RepositoriesAdded:  result.RepositoriesAdded,
		ContributionsAdded: result.ContributionsAdded,
		Error:              result.Error,
		StartedAt:          result.StartedAt.UTC(),
		DurationMS:         result.Duration.Milliseconds(),
	})
	if err != nil {
		log.WithError(err).Warn("Failed to record ingestion run")
	}
}
