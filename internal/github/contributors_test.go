package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contributorsPage(startID, n int, bots ...int) string {
	isBot := make(map[int]bool)
	for _, b := range bots {
		isBot[b] = true
	}
	entries := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := startID + i
		kind := "User"
		if isBot[id] {
			kind = "Bot"
		}
		entries = append(entries, fmt.Sprintf(`{"id":%d,"login":"user%d","contributions":%d,"type":%q}`, id, id, 1000-id, kind))
	}
	return "[" + strings.Join(entries, ",") + "]"
}

func historyPage(hasNext bool, cursor string, authors ...string) string {
	nodes := make([]string, 0, len(authors))
	for _, a := range authors {
		if a == "" {
			nodes = append(nodes, `{"author":{"user":null}}`)
			continue
		}
		var id int
		fmt.Sscanf(a, "dev%d", &id)
		nodes = append(nodes, fmt.Sprintf(`{"author":{"user":{"databaseId":%d,"login":%q}}}`, id, a))
	}
	return fmt.Sprintf(`{"data":{"repository":{"defaultBranchRef":{"target":{"history":{"pageInfo":{"hasNextPage":%t,"endCursor":%q},"nodes":[%s]}}}}}}`,
		hasNext, cursor, strings.Join(nodes, ","))
}

func TestFetchRepositoryContributors_REST(t *testing.T) {
	tests := []struct {
		name      string
		pages     map[string]func() (int, string)
		bots      []int64
		limit     int
		wantCount int
		wantCalls int
	}{
		{
			name: "short second page ends listing",
			pages: map[string]func() (int, string){
				"1": respondOK(contributorsPage(1, 100, 5)),
				"2": respondOK(contributorsPage(101, 3)),
			},
			bots:      []int64{5},
			limit:     500,
			wantCount: 102,
			wantCalls: 2,
		},
		{
			name: "limit stops paging",
			pages: map[string]func() (int, string){
				"1": respondOK(contributorsPage(1, 100)),
			},
			limit:     50,
			wantCount: 50,
			wantCalls: 1,
		},
		{
			name: "empty page ends listing",
			pages: map[string]func() (int, string){
				"1": respondOK(contributorsPage(1, 100)),
				"2": respondOK(`[]`),
			},
			limit:     500,
			wantCount: 100,
			wantCalls: 2,
		},
		{
			name: "error page keeps what was gathered",
			pages: map[string]func() (int, string){
				"1": respondOK(contributorsPage(1, 100)),
				"2": func() (int, string) { return http.StatusInternalServerError, `{"message":"boom"}` },
			},
			limit:     500,
			wantCount: 100,
			wantCalls: 2,
		},
		{
			name: "not found yields nothing",
			pages: map[string]func() (int, string){
				"1": func() (int, string) { return http.StatusNotFound, `{"message":"Not Found"}` },
			},
			limit:     50,
			wantCount: 0,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, srv := newFakeGitHub(t)
			fake.rest["/repos/torvalds/linux/contributors"] = func(page string) (int, string) {
				h, found := tt.pages[page]
				require.True(t, found, "unexpected page %s", page)
				return h()
			}

			got, err := newTestClient(t, srv, nil).FetchRepositoryContributors(context.Background(), "torvalds/linux", tt.limit)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
			assert.Equal(t, tt.wantCalls, fake.callCount("/repos/torvalds/linux/contributors"))
			for _, c := range got {
				assert.NotContains(t, tt.bots, c.ID, "bots are dropped")
			}
		})
	}
}

func TestFetchRepositoryContributors_ForbiddenFallsBackToHistory(t *testing.T) {
	fake, srv := newFakeGitHub(t)
	fake.rest["/repos/torvalds/linux/contributors"] = func(page string) (int, string) {
		if page == "1" {
			return http.StatusOK, contributorsPage(1, 100)
		}
		return http.StatusForbidden, `{"message":"too large"}`
	}
	fake.onGraphQL("defaultBranchRef", func(vars map[string]interface{}) (int, string) {
		assert.Equal(t, "torvalds", vars["owner"])
		assert.Equal(t, "linux", vars["name"])
		switch vars["after"] {
		case nil:
			return http.StatusOK, historyPage(true, "c1", "dev1", "dev2", "dev1", "")
		case "c1":
			return http.StatusOK, historyPage(false, "c2", "dev3", "dev2")
		}
		t.Errorf("unexpected cursor %v", vars["after"])
		return http.StatusBadRequest, `{}`
	})

	got, err := newTestClient(t, srv, nil).FetchRepositoryContributors(context.Background(), "torvalds/linux", 500)
	require.NoError(t, err)

	// REST results gathered before the 403 are discarded
	assert.Equal(t, []Contributor{
		{ID: 1, Login: "dev1", Commits: 1},
		{ID: 2, Login: "dev2", Commits: 1},
		{ID: 3, Login: "dev3", Commits: 1},
	}, got)
	assert.Equal(t, 2, fake.callCount("defaultBranchRef"))
}

func TestFetchRepositoryContributors_HistoryPageCap(t *testing.T) {
	fake, srv := newFakeGitHub(t)
	fake.rest["/repos/o/r/contributors"] = func(string) (int, string) {
		return http.StatusForbidden, `{"message":"forbidden"}`
	}
	fake.onGraphQL("defaultBranchRef", func(vars map[string]interface{}) (int, string) {
		page := 1
		if after, isString := vars["after"].(string); isString {
			fmt.Sscanf(after, "c%d", &page)
			page++
		}
		return http.StatusOK, historyPage(true, fmt.Sprintf("c%d", page), fmt.Sprintf("dev%d", page))
	})

	got, err := newTestClient(t, srv, nil).FetchRepositoryContributors(context.Background(), "o/r", 500)
	require.NoError(t, err)
	assert.Len(t, got, FallbackMaxPages)
	assert.Equal(t, FallbackMaxPages, fake.callCount("defaultBranchRef"))
}

func TestFetchRepositoryContributors_MalformedName(t *testing.T) {
	_, srv := newFakeGitHub(t)
	got, err := newTestClient(t, srv, nil).FetchRepositoryContributors(context.Background(), "no-slash", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
