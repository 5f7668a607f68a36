package github

import (
	"context"
	"strings"

	"github.com/google/go-github/v57/github"
)

// strategyResult is what one contributor strategy produced. Fallback asks
// the caller to try the next strategy and discard these contributors.
type strategyResult struct {
	Contributors []Contributor
	Fallback     bool
}

type contributorStrategy struct {
	name  string
	fetch func(ctx context.Context, owner, repo string, limit int) (strategyResult, error)
}

func (c *Client) contributorStrategies() []contributorStrategy {
	return []contributorStrategy{
		{name: "rest", fetch: c.restContributors},
		{name: "commit_history", fetch: c.commitHistoryContributors},
	}
}

// FetchRepositoryContributors lists up to limit user contributors of
// fullName ("owner/name"). The REST listing is tried first; when GitHub
// refuses it with 403 the default branch commit history is scanned instead.
// Failures yield whatever was gathered; only ctx errors are returned.
func (c *Client) FetchRepositoryContributors(ctx context.Context, fullName string, limit int) ([]Contributor, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		c.logger.Warn("malformed repository name", "repository", fullName)
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultContributorLimit
	}

	var last strategyResult
	for _, strategy := range c.contributorStrategies() {
		result, err := strategy.fetch(ctx, owner, repo, limit)
		if err != nil {
			return nil, err
		}
		if !result.Fallback {
			return result.Contributors, nil
		}
		c.logger.Info("contributor strategy fell back",
			"repository", fullName, "strategy", strategy.name)
		last = result
	}
	return last.Contributors, nil
}

func (c *Client) restContributors(ctx context.Context, owner, repo string, limit int) (strategyResult, error) {
	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: PageSize, Page: 1},
	}

	var contributors []Contributor
	for len(contributors) < limit {
		if err := c.wait(ctx); err != nil {
			return strategyResult{Contributors: contributors}, c.absorb(ctx, err)
		}

		page, resp, err := c.client.Repositories.ListContributors(ctx, owner, repo, opts)
		outcome, err := c.classify(ctx, "rest", resp, err)
		if err != nil {
			return strategyResult{Contributors: contributors}, c.absorb(ctx, err)
		}
		if outcome == outcomeForbidden {
			return strategyResult{Fallback: true}, nil
		}
		if outcome != outcomeOK || len(page) == 0 {
			break
		}

		for _, contrib := range page {
			if contrib.GetType() != "User" {
				continue
			}
			contributors = append(contributors, Contributor{
				ID:      contrib.GetID(),
				Login:   contrib.GetLogin(),
				Commits: contrib.GetContributions(),
			})
			if len(contributors) >= limit {
				break
			}
		}

		if len(page) < PageSize {
			break
		}
		opts.Page++
	}

	return strategyResult{Contributors: contributors}, nil
}

const commitHistoryQuery = `query($owner: String!, $name: String!, $first: Int!, $after: String) {
  repository(owner: $owner, name: $name) {
    defaultBranchRef {
      target {
        ... on Commit {
          history(first: $first, after: $after) {
            pageInfo {
              hasNextPage
              endCursor
            }
            nodes {
              author {
                user {
                  databaseId
                  login
                }
              }
            }
          }
        }
      }
    }
  }
}`

type commitHistoryPage struct {
	Repository *struct {
		DefaultBranchRef *struct {
			Target *struct {
				History *struct {
					PageInfo struct {
						HasNextPage bool    `json:"hasNextPage"`
						EndCursor   *string `json:"endCursor"`
					} `json:"pageInfo"`
					Nodes []struct {
						Author *struct {
							User *struct {
								DatabaseID int64  `json:"databaseId"`
								Login      string `json:"login"`
							} `json:"user"`
						} `json:"author"`
					} `json:"nodes"`
				} `json:"history"`
			} `json:"target"`
		} `json:"defaultBranchRef"`
	} `json:"repository"`
}

// commitHistoryContributors derives contributors from commit authors on the
// default branch. Commit counts are not tallied: every author gets 1.
func (c *Client) commitHistoryContributors(ctx context.Context, owner, repo string, limit int) (strategyResult, error) {
	seen := make(map[int64]struct{})
	var contributors []Contributor
	var cursor *string

	for pages := 0; len(contributors) < limit && pages < FallbackMaxPages; pages++ {
		vars := map[string]interface{}{
			"owner": owner,
			"name":  repo,
			"first": PageSize,
			"after": cursor,
		}

		var data commitHistoryPage
		outcome, err := c.graphql(ctx, commitHistoryQuery, vars, &data)
		if err != nil {
			return strategyResult{Contributors: contributors}, c.absorb(ctx, err)
		}
		if outcome != outcomeOK || data.Repository == nil || data.Repository.DefaultBranchRef == nil ||
			data.Repository.DefaultBranchRef.Target == nil || data.Repository.DefaultBranchRef.Target.History == nil {
			break
		}
		history := data.Repository.DefaultBranchRef.Target.History

		for _, node := range history.Nodes {
			if node.Author == nil || node.Author.User == nil {
				continue
			}
			user := node.Author.User
			if _, dup := seen[user.DatabaseID]; dup {
				continue
			}
			seen[user.DatabaseID] = struct{}{}
			contributors = append(contributors, Contributor{ID: user.DatabaseID, Login: user.Login, Commits: 1})
			if len(contributors) >= limit {
				break
			}
		}

		if !history.PageInfo.HasNextPage {
			break
		}
		cursor = history.PageInfo.EndCursor
	}

	return strategyResult{Contributors: contributors}, nil
}

// absorb keeps err only when ctx has ended; other faults become "no more data".
func (c *Client) absorb(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	c.logger.Warn("github call failed, keeping partial result", "error", err)
	return nil
}
