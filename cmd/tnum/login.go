package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/torvalds/internal/config"
	"github.com/rohankatakam/torvalds/internal/github"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a GitHub token in the OS keychain",
	Long: `Store a GitHub personal access token in the OS keychain.

The token raises the API rate limit and is required for the GraphQL
contribution queries. GITHUB_TOKEN in the environment still takes precedence.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the GitHub token from the OS keychain",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func runLogin(cmd *cobra.Command, args []string) error {
	km := config.NewKeyringManager()
	if !km.IsAvailable() {
		return fmt.Errorf("OS keychain is not available; set GITHUB_TOKEN or github.token in the config file instead")
	}

	token, err := config.PromptGitHubToken(os.Stderr)
	if err != nil {
		return err
	}

	// Verify before storing
	client, err := github.NewClient(github.Options{Token: token, BaseURL: cfg.GitHub.APIURL})
	if err != nil {
		return err
	}
	acct, err := client.FetchUser(cmd.Context(), "octocat")
	if err != nil || acct == nil {
		logger.WithError(err).Warn("Could not verify token against GitHub, storing anyway")
	}

	if err := km.SetGitHubToken(token); err != nil {
		return err
	}
	fmt.Printf("✓ Stored GitHub token %s in the keychain\n", config.MaskToken(token))
	if os.Getenv("GITHUB_TOKEN") != "" {
		fmt.Println("Note: GITHUB_TOKEN is set and will take precedence")
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	km := config.NewKeyringManager()
	if config.ResolveTokenSource(cfg, km) != config.TokenSourceKeychain {
		fmt.Println("⚠️  No GitHub token in use from the keychain")
	}
	if err := km.DeleteGitHubToken(); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	fmt.Println("✓ GitHub token removed from the keychain")
	return nil
}
