package github

import (
	"context"
	"fmt"
	"sort"
	"time"
)

const contributionsQuery = `query($login: String!, $from: DateTime!, $to: DateTime!) {
  user(login: $login) {
    contributionsCollection(from: $from, to: $to) {
      commitContributionsByRepository(maxRepositories: 100) {
        repository {
          databaseId
          nameWithOwner
          stargazerCount
          primaryLanguage { name }
        }
        contributions {
          totalCount
        }
      }
    }
  }
}`

type yearContribution struct {
	Repository    *repositoryNode `json:"repository"`
	Contributions struct {
		TotalCount int `json:"totalCount"`
	} `json:"contributions"`
}

// FetchAllTimeContributedRepositories walks the user's commit contributions
// one calendar year at a time, newest first, back to FoundingYear. A
// repository seen in several years keeps the entry of the most recent one.
// Years that fail are skipped. An empty year older than EarlyStopWindow
// years ends the walk. The result holds repositories with at least minStars
// stars, most starred first.
func (c *Client) FetchAllTimeContributedRepositories(ctx context.Context, username string, minStars int) ([]ContributedRepository, error) {
	currentYear := c.now().UTC().Year()
	seen := make(map[int64]struct{})
	var repos []ContributedRepository

	c.logger.Info("fetching all-time contributions",
		"username", username, "from_year", FoundingYear, "to_year", currentYear)

	for year := currentYear; year >= FoundingYear; year-- {
		yearRepos, ok, err := c.fetchContributionYear(ctx, username, year)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Warn("contribution year failed", "username", username, "year", year, "error", err)
			continue
		}
		if !ok {
			continue
		}

		c.logger.Debug("contribution year", "username", username, "year", year, "repositories", len(yearRepos))

		for _, contrib := range yearRepos {
			repo := contrib.Repository
			if repo == nil || repo.DatabaseID == 0 {
				continue
			}
			if _, dup := seen[repo.DatabaseID]; dup {
				continue
			}
			seen[repo.DatabaseID] = struct{}{}
			if repo.StargazerCount < minStars {
				continue
			}
			repos = append(repos, ContributedRepository{
				ID:       repo.DatabaseID,
				FullName: repo.NameWithOwner,
				Stars:    repo.StargazerCount,
				Language: repo.language(),
				Commits:  contrib.Contributions.TotalCount,
			})
		}

		if len(yearRepos) == 0 && year < currentYear-EarlyStopWindow {
			c.logger.Debug("stopping contribution walk at empty year", "username", username, "year", year)
			break
		}
	}

	sort.SliceStable(repos, func(i, j int) bool { return repos[i].Stars > repos[j].Stars })

	c.logger.Info("all-time contributions fetched", "username", username, "repositories", len(repos))
	return repos, nil
}

// fetchContributionYear returns ok=false when the year produced no usable
// answer (API failure, unknown user).
func (c *Client) fetchContributionYear(ctx context.Context, username string, year int) ([]yearContribution, bool, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	var data struct {
		User *struct {
			ContributionsCollection *struct {
				CommitContributionsByRepository []yearContribution `json:"commitContributionsByRepository"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	}
	vars := map[string]interface{}{
		"login": username,
		"from":  from.Format(time.RFC3339),
		"to":    to.Format(time.RFC3339),
	}

	outcome, err := c.graphql(ctx, contributionsQuery, vars, &data)
	if err != nil {
		return nil, false, fmt.Errorf("contributions %d: %w", year, err)
	}
	if outcome != outcomeOK || data.User == nil || data.User.ContributionsCollection == nil {
		return nil, false, nil
	}
	return data.User.ContributionsCollection.CommitContributionsByRepository, true, nil
}
