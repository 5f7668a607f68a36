// Package graphtest provides an in-memory contribution graph with the same
// observable behavior as the Neo4j store, for tests of code built on top of
// it.
package graphtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rohankatakam/torvalds/internal/graph"
)

type edgeKey struct {
	developer  int64
	repository int64
}

type repository struct {
	name     string
	language string
}

// MemoryGraph is safe for concurrent use.
type MemoryGraph struct {
	mu           sync.Mutex
	developers   map[int64]string
	repositories map[int64]repository
	edges        map[edgeKey]graph.PathEdge
	edgeOrder    []edgeKey

	// Hooks for fault injection; nil means no fault.
	FailWrite func(op string) error
	FailRead  error

	PathQueries int
	Writers     int
	OpenWriters int
	// RunIDs lists the run id of every writer opened, in order.
	RunIDs []string
}

// New returns an empty graph.
func New() *MemoryGraph {
	return &MemoryGraph{
		developers:   make(map[int64]string),
		repositories: make(map[int64]repository),
		edges:        make(map[edgeKey]graph.PathEdge),
	}
}

// OpenWriter returns a writer that applies upserts directly.
func (g *MemoryGraph) OpenWriter(ctx context.Context, runID string) graph.ContributionWriter {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Writers++
	g.OpenWriters++
	g.RunIDs = append(g.RunIDs, runID)
	return &memoryWriter{g: g}
}

type memoryWriter struct {
	g      *MemoryGraph
	closed bool
}

func (w *memoryWriter) fail(op string) error {
	if w.closed {
		return fmt.Errorf("%s on closed writer", op)
	}
	if w.g.FailWrite != nil {
		return w.g.FailWrite(op)
	}
	return nil
}

func (w *memoryWriter) UpsertDeveloper(ctx context.Context, id int64, username string) error {
	w.g.mu.Lock()
	defer w.g.mu.Unlock()
	if err := w.fail("developer"); err != nil {
		return err
	}
	w.g.developers[id] = username
	return nil
}

func (w *memoryWriter) UpsertRepository(ctx context.Context, id int64, name, language string) error {
	w.g.mu.Lock()
	defer w.g.mu.Unlock()
	if err := w.fail("repository"); err != nil {
		return err
	}
	w.g.repositories[id] = repository{name: name, language: language}
	return nil
}

func (w *memoryWriter) UpsertContribution(ctx context.Context, developerID, repositoryID int64, commits int, language string) error {
	w.g.mu.Lock()
	defer w.g.mu.Unlock()
	if err := w.fail("contribution"); err != nil {
		return err
	}
	if _, ok := w.g.developers[developerID]; !ok {
		return fmt.Errorf("developer %d does not exist", developerID)
	}
	if _, ok := w.g.repositories[repositoryID]; !ok {
		return fmt.Errorf("repository %d does not exist", repositoryID)
	}
	key := edgeKey{developer: developerID, repository: repositoryID}
	existing, seen := w.g.edges[key]
	if !seen {
		w.g.edgeOrder = append(w.g.edgeOrder, key)
	}
	existing.TotalCommits = commits
	existing.PrimaryLanguage = language
	w.g.edges[key] = existing
	return nil
}

func (w *memoryWriter) Close(ctx context.Context) error {
	w.g.mu.Lock()
	defer w.g.mu.Unlock()
	if !w.closed {
		w.closed = true
		w.g.OpenWriters--
	}
	return nil
}

// SetLinesAdded sets a property ingestion never writes, for read-side tests.
func (g *MemoryGraph) SetLinesAdded(developerID, repositoryID int64, lines int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := edgeKey{developer: developerID, repository: repositoryID}
	e := g.edges[key]
	e.LinesAdded = lines
	g.edges[key] = e
}

// Developer returns the stored username for id.
func (g *MemoryGraph) Developer(id int64) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name, ok := g.developers[id]
	return name, ok
}

// Contribution returns the edge between a developer and a repository.
func (g *MemoryGraph) Contribution(developerID, repositoryID int64) (graph.PathEdge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.edges[edgeKey{developer: developerID, repository: repositoryID}]
	return e, ok
}

// Counts mirrors Store.Counts.
func (g *MemoryGraph) Counts(ctx context.Context) (graph.Counts, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailRead != nil {
		return graph.Counts{}, g.FailRead
	}
	return graph.Counts{
		Developers:    int64(len(g.developers)),
		Repositories:  int64(len(g.repositories)),
		Contributions: int64(len(g.edges)),
	}, nil
}

// Suggest mirrors the prefix scan of Store.Suggest.
func (g *MemoryGraph) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailRead != nil {
		return nil, g.FailRead
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	names := []string{}
	for _, name := range g.developers {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

type vertex struct {
	kind graph.NodeKind
	id   int64
}

// FindShortestPath runs a breadth-first search over the undirected graph,
// matching usernames case-insensitively. Neighbors are visited in insertion
// order so results are deterministic.
func (g *MemoryGraph) FindShortestPath(ctx context.Context, source, target string, maxHops int) (*graph.Path, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.PathQueries++
	if g.FailRead != nil {
		return nil, g.FailRead
	}
	if maxHops <= 0 || maxHops > graph.DefaultMaxHops {
		maxHops = graph.DefaultMaxHops
	}

	start, okStart := g.developerByName(source)
	end, okEnd := g.developerByName(target)
	if !okStart || !okEnd || start == end {
		return nil, nil
	}

	adj := make(map[vertex][]vertex)
	for _, k := range g.edgeOrder {
		d := vertex{graph.KindDeveloper, k.developer}
		r := vertex{graph.KindRepository, k.repository}
		adj[d] = append(adj[d], r)
		adj[r] = append(adj[r], d)
	}

	from := vertex{graph.KindDeveloper, start}
	to := vertex{graph.KindDeveloper, end}
	prev := map[vertex]vertex{from: from}
	depth := map[vertex]int{from: 0}
	queue := []vertex{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			break
		}
		if depth[cur] == maxHops {
			continue
		}
		for _, next := range adj[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			depth[next] = depth[cur] + 1
			queue = append(queue, next)
		}
	}

	if _, found := prev[to]; !found {
		return nil, nil
	}

	var chain []vertex
	for v := to; v != from; v = prev[v] {
		chain = append(chain, v)
	}
	chain = append(chain, from)
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	path := &graph.Path{}
	for i, v := range chain {
		path.Nodes = append(path.Nodes, g.node(v))
		if i > 0 {
			path.Edges = append(path.Edges, g.edgeBetween(chain[i-1], v))
		}
	}
	return path, nil
}

func (g *MemoryGraph) developerByName(name string) (int64, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for id, username := range g.developers {
		if strings.ToLower(username) == name {
			return id, true
		}
	}
	return 0, false
}

func (g *MemoryGraph) node(v vertex) graph.PathNode {
	if v.kind == graph.KindDeveloper {
		return graph.PathNode{Kind: graph.KindDeveloper, GitHubID: v.id, Name: g.developers[v.id]}
	}
	r := g.repositories[v.id]
	return graph.PathNode{Kind: graph.KindRepository, GitHubID: v.id, Name: r.name, Language: r.language}
}

func (g *MemoryGraph) edgeBetween(a, b vertex) graph.PathEdge {
	if a.kind == graph.KindDeveloper {
		return g.edges[edgeKey{developer: a.id, repository: b.id}]
	}
	return g.edges[edgeKey{developer: b.id, repository: a.id}]
}
