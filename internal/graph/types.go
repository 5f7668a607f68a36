package graph

import (
	"context"
	"fmt"
)

// Node labels and relationship type of the contribution graph.
const (
	LabelDeveloper    = "Developer"
	LabelRepository   = "Repository"
	RelContributedTo  = "CONTRIBUTED_TO"
	DefaultMaxHops    = 50
	FulltextIndexName = "developer_usernames"
)

// NodeKind distinguishes the two node labels.
type NodeKind string

const (
	KindDeveloper  NodeKind = "developer"
	KindRepository NodeKind = "repository"
)

// PathNode is one node on a shortest path. Name is the username for
// developers and owner/name for repositories.
type PathNode struct {
	Kind     NodeKind
	GitHubID int64
	Name     string
	Language string
}

// PathEdge is the CONTRIBUTED_TO relationship between two adjacent path
// nodes. Missing properties read as zero values.
type PathEdge struct {
	TotalCommits    int
	LinesAdded      int
	PrimaryLanguage string
}

// Path alternates developers and repositories. Edges[i] joins Nodes[i] and
// Nodes[i+1].
type Path struct {
	Nodes []PathNode
	Edges []PathEdge
}

// Validate checks the structural shape of a path.
func (p *Path) Validate() error {
	if len(p.Nodes) == 0 {
		return fmt.Errorf("empty path")
	}
	if len(p.Edges) != len(p.Nodes)-1 {
		return fmt.Errorf("path has %d nodes but %d edges", len(p.Nodes), len(p.Edges))
	}
	for i := 1; i < len(p.Nodes); i++ {
		if p.Nodes[i].Kind == p.Nodes[i-1].Kind {
			return fmt.Errorf("path nodes %d and %d are both %s", i-1, i, p.Nodes[i].Kind)
		}
	}
	return nil
}

// Counts is the size of the graph.
type Counts struct {
	Developers    int64 `json:"developers"`
	Repositories  int64 `json:"repositories"`
	Contributions int64 `json:"contributions"`
}

// ContributionWriter is the write side used by an ingestion run. One writer
// holds one session; Close must be called on every path.
type ContributionWriter interface {
	UpsertDeveloper(ctx context.Context, id int64, username string) error
	UpsertRepository(ctx context.Context, id int64, name, language string) error
	// UpsertContribution fails when either endpoint does not exist.
	UpsertContribution(ctx context.Context, developerID, repositoryID int64, commits int, language string) error
	Close(ctx context.Context) error
}
