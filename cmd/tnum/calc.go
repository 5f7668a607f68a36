package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/torvalds/internal/config"
	"github.com/rohankatakam/torvalds/internal/pathfinder"
)

var calcCmd = &cobra.Command{
	Use:   "calc <username>",
	Short: "Compute a developer's number",
	Long: `Compute the number of repositories between a developer and the reference
developer (torvalds by default). Unknown developers are ingested first.`,
	Args: cobra.ExactArgs(1),
	RunE: runCalc,
}

func init() {
	calcCmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
}

func runCalc(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{validation: config.ValidationContextIngest})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	result, err := a.resolver.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printPath(result, a.resolver.Reference())
	return nil
}

func printPath(result *pathfinder.Result, reference string) {
	fmt.Printf("%s's number: %d\n", result.Username, result.Number)
	if result.Ingested {
		fmt.Println("(ingested from GitHub for this lookup)")
	}
	fmt.Println()

	for _, step := range result.Steps {
		switch step.Type {
		case pathfinder.StepRepository:
			fmt.Printf("    %s\n", step.Repository.Name)
		default:
			line := "  " + step.Developer.Username
			if step.Facts != nil {
				line += fmt.Sprintf("  (%d commits, %s)", step.Facts.TotalCommits, step.Facts.PrimaryLanguage)
			}
			fmt.Println(line)
		}
	}
	if result.Number == 0 {
		fmt.Printf("\n%s is the reference developer.\n", strings.ToLower(reference))
	}
}
