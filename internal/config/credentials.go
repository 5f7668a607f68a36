package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rohankatakam/torvalds/internal/errors"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// TokenSource describes where the effective GitHub token came from.
type TokenSource string

const (
	TokenSourceEnv      TokenSource = "env"
	TokenSourceKeychain TokenSource = "keychain"
	TokenSourceConfig   TokenSource = "config"
	TokenSourceNone     TokenSource = "none"
)

// ResolveTokenSource reports which layer supplies the GitHub token, using the
// same precedence as Load.
func ResolveTokenSource(cfg *Config, km *KeyringManager) TokenSource {
	if os.Getenv("GITHUB_TOKEN") != "" {
		return TokenSourceEnv
	}
	if km != nil && km.IsAvailable() {
		if token, err := km.GetGitHubToken(); err == nil && token != "" {
			return TokenSourceKeychain
		}
	}
	if cfg != nil && cfg.GitHub.Token != "" {
		return TokenSourceConfig
	}
	return TokenSourceNone
}

// PromptGitHubToken reads a token from stdin without echoing when stdin is a
// terminal, or a single line when input is piped.
func PromptGitHubToken(out io.Writer) (string, error) {
	fmt.Fprint(out, "GitHub token (https://github.com/settings/tokens, no scopes needed): ")

	fd := int(os.Stdin.Fd())
	var raw string
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		raw = string(bytes)
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		raw = line
	}

	token := strings.TrimSpace(raw)
	if token == "" {
		return "", errors.ValidationError("github token is required")
	}
	return token, nil
}

// WriteYAML prints the configuration with secrets masked.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.Redacted()); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
