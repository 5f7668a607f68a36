// Package github fetches the developer and repository facts the graph is
// built from. REST and GraphQL calls share one go-github client and one rate
// limiter. Most API failures are absorbed and reported as "no data"; only
// transport faults on user lookup and context cancellation surface as errors.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/rohankatakam/torvalds/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	// PageSize is the page size for both REST and GraphQL listings.
	PageSize = 100
	// FallbackMaxPages bounds the commit-history walk (1000 commits).
	FallbackMaxPages = 10
	// FoundingYear is the first year the contribution crawl visits.
	FoundingYear = 2008
	// EarlyStopWindow: an empty year older than this many years ends the crawl.
	EarlyStopWindow = 3
	// DefaultContributorLimit is the per-repository contributor cap used by ingestion.
	DefaultContributorLimit = 50
	// DefaultGraphQLPath is resolved against the API base URL.
	DefaultGraphQLPath = "graphql"
	// CommitsUnknown marks a repository listing that carries no commit count.
	CommitsUnknown = -1
)

// Account is a GitHub user identity.
type Account struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// ContributedRepository is a repository a user committed to, with the
// user's commit count for the most recent year it was seen in. Commits is
// CommitsUnknown when the listing does not report it.
type ContributedRepository struct {
	ID       int64
	FullName string
	Stars    int
	Language string
	Commits  int
}

// Contributor is one user-type contributor of a repository.
type Contributor struct {
	ID      int64
	Login   string
	Commits int
}

// AccountCache remembers resolved logins between runs. Keys are
// case-insensitive.
type AccountCache interface {
	Get(login string) (*Account, bool)
	Put(acct *Account) error
}

// Options configures a Client.
type Options struct {
	Token string
	// BaseURL overrides https://api.github.com/ (GitHub Enterprise, tests).
	BaseURL string
	// GraphQLURL overrides BaseURL + "graphql".
	GraphQLURL string
	// RateLimit in requests per second; <= 0 means unlimited.
	RateLimit float64
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	Accounts   AccountCache
	Metrics    *metrics.Metrics
}

// Client wraps the GitHub API client with rate limiting
type Client struct {
	client      *github.Client
	graphqlURL  string
	rateLimiter *rate.Limiter
	accounts    AccountCache
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewClient creates a new GitHub client with rate limiting
func NewClient(opts Options) (*Client, error) {
	client := github.NewClient(opts.HTTPClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}

	if opts.BaseURL != "" {
		base, err := parseBaseURL(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = base
	}

	graphqlURL := DefaultGraphQLPath
	if opts.GraphQLURL != "" {
		if _, err := url.Parse(opts.GraphQLURL); err != nil {
			return nil, fmt.Errorf("invalid github graphql url: %w", err)
		}
		graphqlURL = opts.GraphQLURL
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Client{
		client:      client,
		graphqlURL:  graphqlURL,
		rateLimiter: rate.NewLimiter(limit, 1),
		accounts:    opts.Accounts,
		metrics:     opts.Metrics,
		logger:      slog.Default().With("component", "github"),
		now:         time.Now,
	}, nil
}

// go-github requires a trailing slash on BaseURL.
func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute url", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// callOutcome is how a single API call ended once errors are absorbed.
type callOutcome int

const (
	outcomeOK callOutcome = iota
	// outcomeForbidden is HTTP 403: rate limited or the listing is too large.
	outcomeForbidden
	// outcomeFailed covers every other non-2xx and GraphQL-level errors.
	outcomeFailed
)

// classify records the call and folds go-github's error into an outcome.
// The returned error is non-nil only for context cancellation or when no
// HTTP response was received at all.
func (c *Client) classify(ctx context.Context, transport string, resp *github.Response, err error) (callOutcome, error) {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	c.metrics.GitHubRequest(transport, status)
	c.logRateLimit(resp)

	if err == nil {
		return outcomeOK, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcomeFailed, ctxErr
	}
	if status == 0 {
		return outcomeFailed, err
	}
	if status == http.StatusForbidden {
		c.logger.Warn("github api forbidden", "transport", transport, "error", err)
		return outcomeForbidden, nil
	}
	c.logger.Debug("github api call failed", "transport", transport, "status", status, "error", err)
	return outcomeFailed, nil
}

// wait blocks on the shared limiter.
func (c *Client) wait(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (c *Client) logRateLimit(resp *github.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	if resp.Rate.Remaining < 100 {
		c.logger.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"limit", resp.Rate.Limit,
			"reset", resp.Rate.Reset.Time)
	}
}
