package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/torvalds/internal/config"
	"github.com/rohankatakam/torvalds/internal/ingestion"
)

var seedMinStars int

var ingestCmd = &cobra.Command{
	Use:   "ingest <username>",
	Short: "Load a developer's contribution history from GitHub",
	Long: `Load every repository the developer ever committed to, and up to 50
contributors of each, into the graph. Safe to rerun.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var seedCmd = &cobra.Command{
	Use:   "seed <username>...",
	Short: "Bulk-load popular repositories around well-known developers",
	Long: `For each username, load their own and recently contributed repositories
with at least --min-stars stars, plus the contributors of each.

Example:
  tnum seed torvalds gregkh --min-stars 500`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedMinStars, "min-stars", 0, "minimum stars (default from config, 100)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{validation: config.ValidationContextIngest})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	ctx, cancel := context.WithTimeout(ctx, cfg.Ingest.Timeout)
	defer cancel()

	result := a.orchestrator.Ingest(ctx, args[0])
	printResult(result)
	if !result.Success {
		return fmt.Errorf("ingestion of %s failed", args[0])
	}
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{validation: config.ValidationContextIngest})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	minStars := seedMinStars
	if minStars <= 0 {
		minStars = cfg.Ingest.MinStars
	}

	failed := 0
	for _, username := range args {
		if ctx.Err() != nil {
			break
		}
		runCtx, cancel := context.WithTimeout(ctx, cfg.Ingest.Timeout)
		result := a.orchestrator.Seed(runCtx, username, minStars)
		cancel()
		printResult(result)
		if !result.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d seed runs failed", failed, len(args))
	}
	return nil
}

func printResult(r *ingestion.Result) {
	status := "✓"
	if !r.Success {
		status = "✗"
	}
	fmt.Printf("%s %s %s  developers=%d repositories=%d contributions=%d  (%s, run %s)\n",
		status, r.Kind, r.Username, r.DevelopersAdded, r.RepositoriesAdded, r.ContributionsAdded,
		r.Duration.Round(time.Millisecond), r.RunID)
	if r.Error != "" {
		fmt.Printf("  error: %s\n", r.Error)
	}
}
