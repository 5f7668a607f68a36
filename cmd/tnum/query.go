package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/torvalds/internal/config"
	"github.com/rohankatakam/torvalds/internal/storage"
)

var runsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show graph size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{validation: config.ValidationContextQuery})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		counts, err := a.store.Counts(ctx)
		if err != nil {
			return err
		}
		if jsonOut {
			return json.NewEncoder(os.Stdout).Encode(counts)
		}
		fmt.Printf("Developers:    %d\n", counts.Developers)
		fmt.Printf("Repositories:  %d\n", counts.Repositories)
		fmt.Printf("Contributions: %d\n", counts.Contributions)
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <prefix>",
	Short: "List known usernames starting with prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{validation: config.ValidationContextQuery})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		names, err := a.suggest.Suggest(ctx, args[0])
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var setupDBCmd = &cobra.Command{
	Use:   "setup-db",
	Short: "Create graph constraints and the username fulltext index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{validation: config.ValidationContextQuery})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		if err := a.store.EnsureSchema(ctx); err != nil {
			return err
		}
		fmt.Println("✓ Schema ready")
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingestion runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.Open(cfg.RunLog.Driver, cfg.RunLog.DSN, logger)
		if err != nil {
			return err
		}
		if store == nil {
			fmt.Println("Run log is disabled (runlog.driver: none)")
			return nil
		}
		defer store.Close()

		runs, err := store.RecentRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if jsonOut {
			return json.NewEncoder(os.Stdout).Encode(runs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tKIND\tUSER\tOK\tDEVS\tREPOS\tEDGES\tDURATION\tERROR")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%d\t%d\t%s\t%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Kind, r.Username, r.Success,
				r.DevelopersAdded, r.RepositoriesAdded, r.ContributionsAdded, r.Duration(), r.Error)
		}
		return w.Flush()
	},
}

func init() {
	statsCmd.Flags().BoolVar(&jsonOut, "json", false, "print as JSON")
	runsCmd.Flags().BoolVar(&jsonOut, "json", false, "print as JSON")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")
}
