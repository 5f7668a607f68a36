// Package mcp exposes the number lookup to MCP clients (editors, agents)
// over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rohankatakam/torvalds/internal/graph"
	"github.com/rohankatakam/torvalds/internal/pathfinder"
)

// Tool names.
const (
	ToolTorvaldsNumber    = "torvalds_number"
	ToolSuggestDevelopers = "suggest_developers"
	ToolGraphStats        = "graph_stats"
)

type Resolver interface {
	Resolve(ctx context.Context, username string) (*pathfinder.Result, error)
}

type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

type StatsSource interface {
	Counts(ctx context.Context) (graph.Counts, error)
}

type NumberInput struct {
	Username string `json:"username" jsonschema:"GitHub username to look up"`
}

type NumberOutput struct {
	Username string `json:"username"`
	Number   int    `json:"number"`
	Ingested bool   `json:"ingested"`
	// Path lists node names from the user to the reference developer.
	Path []string `json:"path"`
	// Summary is a one-line human readable chain.
	Summary string `json:"summary"`
}

type SuggestInput struct {
	Prefix string `json:"prefix" jsonschema:"Start of a username, at least two characters"`
}

type SuggestOutput struct {
	Suggestions []string `json:"suggestions"`
}

type StatsInput struct{}

type StatsOutput struct {
	Developers    int64 `json:"developers"`
	Repositories  int64 `json:"repositories"`
	Contributions int64 `json:"contributions"`
}

type tools struct {
	resolver Resolver
	suggest  Suggester
	stats    StatsSource
	logger   *slog.Logger
}

// NewServer registers the three tools on a new MCP server.
func NewServer(version string, resolver Resolver, suggest Suggester, stats StatsSource) *sdk.Server {
	t := &tools{
		resolver: resolver,
		suggest:  suggest,
		stats:    stats,
		logger:   slog.Default().With("component", "mcp"),
	}

	server := sdk.NewServer(&sdk.Implementation{Name: "tnum", Version: version}, nil)
	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolTorvaldsNumber,
		Description: "Shortest contribution path from a GitHub user to the reference developer. Ingests the user from GitHub when unknown.",
	}, t.number)
	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolSuggestDevelopers,
		Description: "Known usernames starting with a prefix (up to three).",
	}, t.suggestDevelopers)
	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolGraphStats,
		Description: "Developer, repository and contribution counts of the graph.",
	}, t.graphStats)
	return server
}

// ServeStdio runs the server on stdin/stdout until the client disconnects
// or ctx is canceled.
func ServeStdio(ctx context.Context, server *sdk.Server) error {
	return server.Run(ctx, &sdk.StdioTransport{})
}

func (t *tools) number(ctx context.Context, req *sdk.CallToolRequest, in NumberInput) (*sdk.CallToolResult, NumberOutput, error) {
	result, err := t.resolver.Resolve(ctx, in.Username)
	if err != nil {
		t.logger.Info("number lookup failed", "username", in.Username, "error", err)
		return nil, NumberOutput{}, err
	}

	out := NumberOutput{
		Username: result.Username,
		Number:   result.Number,
		Ingested: result.Ingested,
		Path:     make([]string, 0, len(result.Steps)),
	}
	for _, s := range result.Steps {
		out.Path = append(out.Path, stepName(s))
	}
	out.Summary = fmt.Sprintf("%s has number %d: %s", out.Username, out.Number, strings.Join(out.Path, " -> "))
	return nil, out, nil
}

func (t *tools) suggestDevelopers(ctx context.Context, req *sdk.CallToolRequest, in SuggestInput) (*sdk.CallToolResult, SuggestOutput, error) {
	names, err := t.suggest.Suggest(ctx, in.Prefix)
	if err != nil {
		return nil, SuggestOutput{}, err
	}
	return nil, SuggestOutput{Suggestions: names}, nil
}

func (t *tools) graphStats(ctx context.Context, req *sdk.CallToolRequest, in StatsInput) (*sdk.CallToolResult, StatsOutput, error) {
	c, err := t.stats.Counts(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, StatsOutput{Developers: c.Developers, Repositories: c.Repositories, Contributions: c.Contributions}, nil
}

func stepName(s pathfinder.Step) string {
	if s.Repository != nil {
		return s.Repository.Name
	}
	if s.Developer != nil {
		return s.Developer.Username
	}
	return string(s.Type)
}
