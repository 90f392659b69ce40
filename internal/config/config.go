package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Database    DatabaseConfig    `yaml:"database"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Sources     SourcesConfig     `yaml:"sources"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Server      ServerConfig      `yaml:"server"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Env      string `yaml:"env" env:"APP_ENV"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

// DatabaseConfig selects the post store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"MINDSHARE_DB_DRIVER"` // "sqlite" or "postgres"
	Path   string `yaml:"path" env:"MINDSHARE_DB_PATH"`
	DSN    string `yaml:"dsn" env:"SUPABASE_DB_URL"`
}

// ScheduleConfig configures collection and leaderboard refresh intervals.
type ScheduleConfig struct {
	CollectInterval     string `yaml:"collect_interval" env:"SCRAPE_INTERVAL"`
	LeaderboardInterval string `yaml:"leaderboard_interval"`
}

// ParseCollectInterval returns the collect interval as time.Duration.
func (s ScheduleConfig) ParseCollectInterval() time.Duration {
	d, err := time.ParseDuration(s.CollectInterval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// ParseLeaderboardInterval returns the leaderboard refresh interval as time.Duration.
func (s ScheduleConfig) ParseLeaderboardInterval() time.Duration {
	d, err := time.ParseDuration(s.LeaderboardInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// SourcesConfig holds configuration for all collectors.
type SourcesConfig struct {
	SinceHours int          `yaml:"since_hours" env:"SCRAPE_SINCE_HOURS"`
	XAPI       XAPIConfig   `yaml:"xapi"`
	Nitter     NitterConfig `yaml:"nitter"`
}

// CollectWindow returns how far back collectors look.
func (s SourcesConfig) CollectWindow() time.Duration {
	if s.SinceHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.SinceHours) * time.Hour
}

// XAPIConfig for the X API v2 recent search collector.
type XAPIConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BearerToken string `yaml:"bearer_token" env:"TWITTER_BEARER_TOKEN"`
	Query       string `yaml:"query" env:"KEYWORDS"`
	MaxPosts    int    `yaml:"max_posts" env:"SCRAPE_LIMIT"`
	RPM         int    `yaml:"rpm"`
}

// NitterConfig for the Nitter RSS collector.
type NitterConfig struct {
	Enabled  bool     `yaml:"enabled"`
	URL      string   `yaml:"url" env:"NITTER_URL"`
	Accounts []string `yaml:"accounts" env:"NITTER_ACCOUNTS" envSeparator:","`
}

// LeaderboardConfig configures qualification and fetch size.
type LeaderboardConfig struct {
	FetchLimit      int      `yaml:"fetch_limit"`
	FollowerFloor   int      `yaml:"follower_floor"`
	QualityFloor    int      `yaml:"quality_floor"`
	SpecialAccounts []string `yaml:"special_accounts" env:"SPECIAL_ACCOUNTS" envSeparator:","`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" env:"MINDSHARE_PORT"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		App: AppConfig{Env: "local", LogLevel: "info"},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./mindshare.db",
		},
		Schedule: ScheduleConfig{
			CollectInterval:     "24h",
			LeaderboardInterval: "15m",
		},
		Sources: SourcesConfig{
			SinceHours: 24,
			XAPI: XAPIConfig{
				Query:    "blockfest OR #blockfest OR #blockfestafrica",
				MaxPosts: 100,
				RPM:      30,
			},
			Nitter: NitterConfig{
				URL:      "https://nitter.net",
				Accounts: []string{"blockfestafrica"},
			},
		},
		Leaderboard: LeaderboardConfig{
			FetchLimit:    100,
			FollowerFloor: 250,
			QualityFloor:  20,
			SpecialAccounts: []string{
				"@samuelxeus", "@blockfestafrica", "@thenirvanacad", "@xeusthegreat",
			},
		},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file, then dotenv files, then
// environment variables. Later layers win.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	loadDotenv()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	applyEnvImplications(cfg)
	return cfg, nil
}

// loadDotenv loads optional dotenv files. Variables already set in the
// environment are not overridden.
func loadDotenv() {
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f) //nolint:errcheck // dotenv files are optional
	}
}

// applyEnvImplications turns on features whose credentials arrive via the environment.
func applyEnvImplications(cfg *Config) {
	if _, ok := os.LookupEnv("TWITTER_BEARER_TOKEN"); ok && cfg.Sources.XAPI.BearerToken != "" {
		cfg.Sources.XAPI.Enabled = true
	}
	if _, ok := os.LookupEnv("SUPABASE_DB_URL"); ok && cfg.Database.DSN != "" {
		if _, set := os.LookupEnv("MINDSHARE_DB_DRIVER"); !set {
			cfg.Database.Driver = "postgres"
		}
	}
}

// IsLocal reports whether logs should be human-readable.
func (c *Config) IsLocal() bool {
	return c.App.Env == "" || c.App.Env == "local"
}
