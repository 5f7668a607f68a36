package github

import (
	"context"
	"sort"
)

const userRepositoriesQuery = `query($login: String!, $first: Int!) {
  user(login: $login) {
    repositories(
      first: $first
      orderBy: {field: STARGAZERS, direction: DESC}
      ownerAffiliations: [OWNER]
      isFork: false
    ) {
      nodes {
        databaseId
        nameWithOwner
        stargazerCount
        primaryLanguage { name }
      }
    }
    repositoriesContributedTo(
      first: $first
      contributionTypes: [COMMIT]
      orderBy: {field: STARGAZERS, direction: DESC}
    ) {
      nodes {
        databaseId
        nameWithOwner
        stargazerCount
        primaryLanguage { name }
      }
    }
  }
}`

// FetchUserRepositories returns the user's own non-fork repositories plus
// those they committed to in the last year, deduplicated, with at least
// minStars stars, most starred first and capped at limit. Commits is
// CommitsUnknown. Used by bulk seeding where only popular repositories matter.
func (c *Client) FetchUserRepositories(ctx context.Context, username string, limit, minStars int) ([]ContributedRepository, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > PageSize {
		limit = PageSize
	}

	var data struct {
		User *struct {
			Repositories struct {
				Nodes []*repositoryNode `json:"nodes"`
			} `json:"repositories"`
			RepositoriesContributedTo struct {
				Nodes []*repositoryNode `json:"nodes"`
			} `json:"repositoriesContributedTo"`
		} `json:"user"`
	}

	outcome, err := c.graphql(ctx, userRepositoriesQuery, map[string]interface{}{"login": username, "first": limit}, &data)
	if err != nil {
		return nil, c.absorb(ctx, err)
	}
	if outcome != outcomeOK || data.User == nil {
		c.logger.Info("no repository data returned", "username", username)
		return nil, nil
	}

	seen := make(map[int64]struct{})
	var repos []ContributedRepository
	collect := func(nodes []*repositoryNode) {
		for _, node := range nodes {
			if node == nil || node.DatabaseID == 0 {
				continue
			}
			if _, dup := seen[node.DatabaseID]; dup {
				continue
			}
			seen[node.DatabaseID] = struct{}{}
			if node.StargazerCount < minStars {
				continue
			}
			repos = append(repos, ContributedRepository{
				ID:       node.DatabaseID,
				FullName: node.NameWithOwner,
				Stars:    node.StargazerCount,
				Language: node.language(),
				Commits:  CommitsUnknown,
			})
		}
	}
	collect(data.User.Repositories.Nodes)
	collect(data.User.RepositoriesContributedTo.Nodes)

	sort.SliceStable(repos, func(i, j int) bool { return repos[i].Stars > repos[j].Stars })
	if len(repos) > limit {
		repos = repos[:limit]
	}
	return repos, nil
}
