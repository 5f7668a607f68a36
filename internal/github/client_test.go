package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohankatakam/torvalds/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGitHub serves the handful of REST and GraphQL endpoints the client uses.
type fakeGitHub struct {
	t *testing.T

	mu      sync.Mutex
	calls   map[string]int
	graphql []graphQLRoute
	rest    map[string]func(page string) (int, string)
}

// graphQLRoute matches queries containing marker. Routes are tried in
// registration order, so register the more specific markers first.
type graphQLRoute struct {
	marker  string
	handler func(vars map[string]interface{}) (int, string)
}

func (f *fakeGitHub) onGraphQL(marker string, handler func(vars map[string]interface{}) (int, string)) {
	f.graphql = append(f.graphql, graphQLRoute{marker: marker, handler: handler})
}

func newFakeGitHub(t *testing.T) (*fakeGitHub, *httptest.Server) {
	f := &fakeGitHub{
		t:     t,
		calls: make(map[string]int),
		rest:  make(map[string]func(string) (int, string)),
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeGitHub) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/graphql" {
		var req graphQLRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		for _, route := range f.graphql {
			if strings.Contains(req.Query, route.marker) {
				f.count(route.marker)
				status, body := route.handler(req.Variables)
				w.WriteHeader(status)
				fmt.Fprint(w, body)
				return
			}
		}
		f.t.Errorf("unexpected graphql query: %s", req.Query)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	handler, ok := f.rest[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
		return
	}
	f.count(r.URL.Path)
	status, body := handler(r.URL.Query().Get("page"))
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func (f *fakeGitHub) count(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
}

func (f *fakeGitHub) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func newTestClient(t *testing.T, srv *httptest.Server, accounts AccountCache) *Client {
	t.Helper()
	c, err := NewClient(Options{
		Token:    "test-token",
		BaseURL:  srv.URL,
		Accounts: accounts,
		Metrics:  metrics.New(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

type mapAccounts struct {
	mu   sync.Mutex
	data map[string]*Account
}

func (m *mapAccounts) Get(login string) (*Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.data[strings.ToLower(login)]
	return a, ok
}

func (m *mapAccounts) Put(a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[strings.ToLower(a.Login)] = a
	return nil
}

func TestNewClient_BaseURL(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "https://ghe.example.com/api/v3"})
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.com/api/v3/", c.client.BaseURL.String())

	_, err = NewClient(Options{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestFetchUser(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    *Account
		wantErr bool
	}{
		{
			name:   "found",
			status: http.StatusOK,
			body:   `{"data":{"user":{"databaseId":1024025,"login":"torvalds"}}}`,
			want:   &Account{ID: 1024025, Login: "torvalds"},
		},
		{
			name:   "not found",
			status: http.StatusOK,
			body:   `{"data":{"user":null},"errors":[{"type":"NOT_FOUND","message":"Could not resolve to a User"}]}`,
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"message":"Bad credentials"}`,
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   `{"message":"secondary rate limit"}`,
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `{"message":"bad gateway"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, srv := newFakeGitHub(t)
			fake.onGraphQL("user(login", func(vars map[string]interface{}) (int, string) {
				assert.Equal(t, "torvalds", vars["login"])
				return tt.status, tt.body
			})

			got, err := newTestClient(t, srv, nil).FetchUser(context.Background(), " torvalds ")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchUser_TransportFault(t *testing.T) {
	_, srv := newFakeGitHub(t)
	c := newTestClient(t, srv, nil)
	srv.Close()

	got, err := c.FetchUser(context.Background(), "torvalds")
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestFetchUser_CachesPositiveLookups(t *testing.T) {
	fake, srv := newFakeGitHub(t)
	fake.onGraphQL("user(login", func(vars map[string]interface{}) (int, string) {
		if vars["login"] == "ghost" {
			return http.StatusOK, `{"data":{"user":null}}`
		}
		return http.StatusOK, `{"data":{"user":{"databaseId":7,"login":"Octo"}}}`
	})

	cache := &mapAccounts{data: map[string]*Account{}}
	c := newTestClient(t, srv, cache)

	for i := 0; i < 3; i++ {
		acct, err := c.FetchUser(context.Background(), "octo")
		require.NoError(t, err)
		assert.Equal(t, int64(7), acct.ID)
	}
	for i := 0; i < 2; i++ {
		acct, err := c.FetchUser(context.Background(), "ghost")
		require.NoError(t, err)
		assert.Nil(t, acct)
	}

	assert.Equal(t, 3, fake.callCount("user(login"), "one call for octo, two for ghost")
}

func TestFetchUser_CanceledContext(t *testing.T) {
	_, srv := newFakeGitHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, srv, nil).FetchUser(ctx, "torvalds")
	assert.ErrorIs(t, err, context.Canceled)
}
