package main

import (
	"github.com/spf13/cobra"

	"github.com/rohankatakam/torvalds/internal/config"
	"github.com/rohankatakam/torvalds/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long: `Serve torvalds_number, suggest_developers and graph_stats to an MCP client
over stdin/stdout. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{validation: config.ValidationContextServe})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		server := mcp.NewServer(Version, a.resolver, a.suggest, a.stats)
		return mcp.ServeStdio(ctx, server)
	},
}
