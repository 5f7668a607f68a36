package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// GitHub API access
	GitHub GitHubConfig `yaml:"github" mapstructure:"github"`

	// Graph store connection
	Neo4j Neo4jConfig `yaml:"neo4j" mapstructure:"neo4j"`

	// Ingestion tuning
	Ingest IngestConfig `yaml:"ingest" mapstructure:"ingest"`

	// Path resolution
	Path PathConfig `yaml:"path" mapstructure:"path"`

	// Cache layers
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Ingestion run log
	RunLog RunLogConfig `yaml:"runlog" mapstructure:"runlog"`

	// HTTP server
	HTTP HTTPConfig `yaml:"http" mapstructure:"http"`
}

type GitHubConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	APIURL    string  `yaml:"api_url" mapstructure:"api_url" validate:"omitempty,url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"` // Requests per second, 0 = unlimited
}

type Neo4jConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

type IngestConfig struct {
	ContributorLimit int           `yaml:"contributor_limit" mapstructure:"contributor_limit" validate:"gte=1,lte=500"`
	FetchWorkers     int           `yaml:"fetch_workers" mapstructure:"fetch_workers" validate:"gte=1,lte=32"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MinStars         int           `yaml:"min_stars" mapstructure:"min_stars" validate:"gte=0"` // Used by seed
}

type PathConfig struct {
	Reference string `yaml:"reference" mapstructure:"reference" validate:"required"`
	MaxHops   int    `yaml:"max_hops" mapstructure:"max_hops" validate:"gte=2,lte=50"`
}

type CacheConfig struct {
	StatsTTL         time.Duration `yaml:"stats_ttl" mapstructure:"stats_ttl"`
	RedisAddr        string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	AccountCachePath string        `yaml:"account_cache_path" mapstructure:"account_cache_path"`
	AccountTTL       time.Duration `yaml:"account_ttl" mapstructure:"account_ttl"`
	SuggestSize      int           `yaml:"suggest_size" mapstructure:"suggest_size" validate:"gte=0"`
}

type RunLogConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres none"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required"`
}

// DataDir is where local state (run log, account cache) lives by default.
func DataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".tnum")
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			RateLimit: 10,
		},
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		Ingest: IngestConfig{
			ContributorLimit: 50,
			FetchWorkers:     4,
			Timeout:          3 * time.Minute,
			MinStars:         100,
		},
		Path: PathConfig{
			Reference: "torvalds",
			MaxHops:   50,
		},
		Cache: CacheConfig{
			StatsTTL:         time.Hour,
			AccountCachePath: filepath.Join(DataDir(), "accounts.db"),
			AccountTTL:       24 * time.Hour,
			SuggestSize:      1024,
		},
		RunLog: RunLogConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(DataDir(), "runs.db"),
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix("TNUM")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".tnum")
		v.AddConfigPath(".")
		v.AddConfigPath(DataDir())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// setDefaults registers every leaf key so AutomaticEnv can see it
// (TNUM_INGEST_FETCH_WORKERS and friends).
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("github.token", cfg.GitHub.Token)
	v.SetDefault("github.api_url", cfg.GitHub.APIURL)
	v.SetDefault("github.rate_limit", cfg.GitHub.RateLimit)
	v.SetDefault("neo4j.uri", cfg.Neo4j.URI)
	v.SetDefault("neo4j.user", cfg.Neo4j.User)
	v.SetDefault("neo4j.password", cfg.Neo4j.Password)
	v.SetDefault("neo4j.database", cfg.Neo4j.Database)
	v.SetDefault("ingest.contributor_limit", cfg.Ingest.ContributorLimit)
	v.SetDefault("ingest.fetch_workers", cfg.Ingest.FetchWorkers)
	v.SetDefault("ingest.timeout", cfg.Ingest.Timeout)
	v.SetDefault("ingest.min_stars", cfg.Ingest.MinStars)
	v.SetDefault("path.reference", cfg.Path.Reference)
	v.SetDefault("path.max_hops", cfg.Path.MaxHops)
	v.SetDefault("cache.stats_ttl", cfg.Cache.StatsTTL)
	v.SetDefault("cache.redis_addr", cfg.Cache.RedisAddr)
	v.SetDefault("cache.account_cache_path", cfg.Cache.AccountCachePath)
	v.SetDefault("cache.account_ttl", cfg.Cache.AccountTTL)
	v.SetDefault("cache.suggest_size", cfg.Cache.SuggestSize)
	v.SetDefault("runlog.driver", cfg.RunLog.Driver)
	v.SetDefault("runlog.dsn", cfg.RunLog.DSN)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	// godotenv never overrides variables that are already set, so the
	// first file to define a key wins.
	envFiles := []string{
		".env.local",
		".env",
		filepath.Join(DataDir(), ".env"),
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies the unprefixed environment variables that the
// deployment scripts and docker-compose files use.
func applyEnvOverrides(cfg *Config) {
	// GitHub token precedence: env > keychain > config file
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	} else {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if keychainToken, err := km.GetGitHubToken(); err == nil && keychainToken != "" {
				cfg.GitHub.Token = keychainToken
			}
		}
	}
	if url := os.Getenv("GITHUB_API_URL"); url != "" {
		cfg.GitHub.APIURL = url
	}
	if rateLimit := os.Getenv("GITHUB_RATE_LIMIT"); rateLimit != "" {
		if rate, err := strconv.ParseFloat(rateLimit, 64); err == nil {
			cfg.GitHub.RateLimit = rate
		}
	}

	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.Neo4j.User = user
	}
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		cfg.Neo4j.Password = password
	}
	if database := os.Getenv("NEO4J_DATABASE"); database != "" {
		cfg.Neo4j.Database = database
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}

	if driver := os.Getenv("RUNLOG_DRIVER"); driver != "" {
		cfg.RunLog.Driver = driver
	}
	if dsn := os.Getenv("RUNLOG_DSN"); dsn != "" {
		cfg.RunLog.DSN = expandPath(dsn)
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTP.Addr = addr
	}
	if ref := os.Getenv("REFERENCE_USERNAME"); ref != "" {
		cfg.Path.Reference = ref
	}

	cfg.Cache.AccountCachePath = expandPath(cfg.Cache.AccountCachePath)
	if cfg.RunLog.Driver == "sqlite" {
		cfg.RunLog.DSN = expandPath(cfg.RunLog.DSN)
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.GitHub.Token = MaskToken(c.GitHub.Token)
	if c.Neo4j.Password != "" {
		out.Neo4j.Password = "***"
	}
	return &out
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("github", c.GitHub)
	v.Set("neo4j", c.Neo4j)
	v.Set("ingest", c.Ingest)
	v.Set("path", c.Path)
	v.Set("cache", c.Cache)
	v.Set("runlog", c.RunLog)
	v.Set("http", c.HTTP)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
