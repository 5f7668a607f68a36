package pathfinder

import "github.com/rohankatakam/torvalds/internal/graph"

// UnknownLanguage is reported when an edge carries no language.
const UnknownLanguage = "Unknown"

// StepType is "developer" or "repository".
type StepType string

const (
	StepDeveloper  StepType = "developer"
	StepRepository StepType = "repository"
)

type Developer struct {
	GitHubID int64  `json:"githubId"`
	Username string `json:"username"`
}

type Repository struct {
	GitHubID int64  `json:"githubId"`
	Name     string `json:"name"`
}

// Facts describe a developer's contribution to an adjacent repository.
type Facts struct {
	TotalCommits    int    `json:"totalCommits"`
	LinesAdded      int    `json:"linesAdded"`
	PrimaryLanguage string `json:"primaryLanguage"`
}

// Step is one node of the answer path. Exactly one of Developer and
// Repository is set.
type Step struct {
	Type       StepType    `json:"type"`
	Developer  *Developer  `json:"developer,omitempty"`
	Repository *Repository `json:"repository,omitempty"`
	Facts      *Facts      `json:"facts,omitempty"`
}

// buildSteps walks the path in order. A developer next to a repository gets
// the joining edge's facts; a developer between two repositories ends up
// with the facts of the edge that follows it.
func buildSteps(p *graph.Path) []Step {
	steps := make([]Step, len(p.Nodes))
	for i, n := range p.Nodes {
		steps[i] = nodeStep(n)
	}
	for i, e := range p.Edges {
		from, to := &steps[i], &steps[i+1]
		switch {
		case from.Type == StepDeveloper && to.Type == StepRepository:
			from.Facts = edgeFacts(e)
		case from.Type == StepRepository && to.Type == StepDeveloper:
			to.Facts = edgeFacts(e)
		}
	}
	return steps
}

func nodeStep(n graph.PathNode) Step {
	if n.Kind == graph.KindRepository {
		return Step{
			Type:       StepRepository,
			Repository: &Repository{GitHubID: n.GitHubID, Name: n.Name},
		}
	}
	return Step{
		Type:      StepDeveloper,
		Developer: &Developer{GitHubID: n.GitHubID, Username: n.Name},
	}
}

func edgeFacts(e graph.PathEdge) *Facts {
	lang := e.PrimaryLanguage
	if lang == "" {
		lang = UnknownLanguage
	}
	return &Facts{
		TotalCommits:    e.TotalCommits,
		LinesAdded:      e.LinesAdded,
		PrimaryLanguage: lang,
	}
}

// number counts repository steps.
func number(steps []Step) int {
	n := 0
	for _, s := range steps {
		if s.Type == StepRepository {
			n++
		}
	}
	return n
}
