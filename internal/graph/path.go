package graph

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// pathFromRecord converts a driver path into the domain Path. The driver
// orders Relationships along the path regardless of their direction.
func pathFromRecord(p dbtype.Path) (*Path, error) {
	out := &Path{
		Nodes: make([]PathNode, 0, len(p.Nodes)),
		Edges: make([]PathEdge, 0, len(p.Relationships)),
	}

	for _, n := range p.Nodes {
		node, err := nodeFromRecord(n)
		if err != nil {
			return nil, err
		}
		out.Nodes = append(out.Nodes, node)
	}
	for _, r := range p.Relationships {
		out.Edges = append(out.Edges, PathEdge{
			TotalCommits:    int(toInt64(r.Props["total_commits"])),
			LinesAdded:      int(toInt64(r.Props["lines_added"])),
			PrimaryLanguage: toString(r.Props["primary_language"]),
		})
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func nodeFromRecord(n dbtype.Node) (PathNode, error) {
	for _, label := range n.Labels {
		switch label {
		case LabelDeveloper:
			return PathNode{
				Kind:     KindDeveloper,
				GitHubID: toInt64(n.Props["github_id"]),
				Name:     toString(n.Props["username"]),
			}, nil
		case LabelRepository:
			return PathNode{
				Kind:     KindRepository,
				GitHubID: toInt64(n.Props["github_id"]),
				Name:     toString(n.Props["name"]),
				Language: toString(n.Props["language"]),
			}, nil
		}
	}
	return PathNode{}, fmt.Errorf("unknown node type: %v", n.Labels)
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float64:
		return int64(x)
	default:
		return 0
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}
