package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextServe - HTTP and MCP servers need Neo4j and GitHub
	ValidationContextServe ValidationContext = "serve"
	// ValidationContextIngest - ingest and seed need Neo4j and GitHub
	ValidationContextIngest ValidationContext = "ingest"
	// ValidationContextQuery - read-only commands need Neo4j only
	ValidationContextQuery ValidationContext = "query"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate validates configuration for the given context
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	c.validateFields(result)

	switch ctx {
	case ValidationContextServe, ValidationContextIngest:
		c.validateNeo4j(result)
		c.validateGitHub(result, true)
	case ValidationContextQuery:
		c.validateNeo4j(result)
	case ValidationContextAll:
		c.validateNeo4j(result)
		c.validateGitHub(result, false)
		c.validateRunLog(result)
	}

	return result
}

// validateFields runs the struct tag rules.
func (c *Config) validateFields(result *ValidationResult) {
	err := structValidator.Struct(c)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		result.AddError("%v", err)
		return
	}
	for _, fe := range verrs {
		if fe.Param() != "" {
			result.AddError("%s fails %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		} else {
			result.AddError("%s fails %s (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
	}
}

func (c *Config) validateNeo4j(result *ValidationResult) {
	if c.Neo4j.URI == "" {
		result.AddError("NEO4J_URI is required but not set")
	} else if u, err := url.Parse(c.Neo4j.URI); err != nil {
		result.AddError("NEO4J_URI is invalid: %v", err)
	} else if !isBoltScheme(u.Scheme) {
		result.AddError("NEO4J_URI scheme %q is not a bolt or neo4j scheme", u.Scheme)
	}

	if c.Neo4j.User == "" {
		result.AddError("NEO4J_USER is required but not set")
	}
	if c.Neo4j.Password == "" {
		result.AddError("NEO4J_PASSWORD is required but not set. Set it via environment variable or .env file.")
	} else if c.Neo4j.Password == "neo4j" || c.Neo4j.Password == "password" {
		result.AddWarning("NEO4J_PASSWORD is set to a very common password")
	}
	if c.Neo4j.Database == "" {
		result.AddWarning("NEO4J_DATABASE is not set, will use 'neo4j' as default")
	}
}

func (c *Config) validateGitHub(result *ValidationResult, required bool) {
	if c.GitHub.Token == "" {
		// Anonymous GraphQL calls are rejected by GitHub.
		msg := "GITHUB_TOKEN is not set; GraphQL lookups will fail. Run: tnum login"
		if required {
			result.AddError("%s", msg)
		} else {
			result.AddWarning("%s", msg)
		}
	}
	if c.GitHub.APIURL != "" && !strings.HasSuffix(c.GitHub.APIURL, "/") {
		result.AddWarning("GITHUB_API_URL has no trailing slash; one will be appended")
	}
}

func (c *Config) validateRunLog(result *ValidationResult) {
	switch c.RunLog.Driver {
	case "postgres":
		if !strings.HasPrefix(c.RunLog.DSN, "postgres://") && !strings.HasPrefix(c.RunLog.DSN, "postgresql://") {
			result.AddError("RUNLOG_DSN must start with postgres:// or postgresql:// when runlog.driver=postgres")
		}
	case "sqlite":
		if c.RunLog.DSN == "" {
			result.AddError("RUNLOG_DSN is required when runlog.driver=sqlite")
		}
	}
}

func isBoltScheme(scheme string) bool {
	switch scheme {
	case "bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc":
		return true
	}
	return false
}
