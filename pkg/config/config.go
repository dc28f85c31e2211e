// Package config loads the engine's configuration surface: environment
// variables, an optional YAML file, and CLI flag overrides (§6.3), using
// viper-based layering.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// RemoteBackendConfig holds connection details for one remote backend
// candidate, keyed by MEMORY_<NAME>_URI/USER/PASSWORD (§6.3).
type RemoteBackendConfig struct {
	Name     string
	URI      string
	User     string
	Password string
}

// ToolLimitConfig is a per-tool rate-limit override.
type ToolLimitConfig struct {
	Name              string  `mapstructure:"name"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// RateLimitConfig mirrors internal/ratelimit's configuration shape so
// callers can build one without importing that package.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Global  struct {
		RequestsPerSecond float64 `mapstructure:"requests_per_second"`
		BurstSize         int     `mapstructure:"burst_size"`
	} `mapstructure:"global"`
	Tools []ToolLimitConfig `mapstructure:"tools"`
}

// Config is the engine's full configuration surface (§6.3).
type Config struct {
	Backend      string `mapstructure:"backend"`       // MEMORY_BACKEND
	SQLitePath   string `mapstructure:"sqlite_path"`    // MEMORY_SQLITE_PATH
	ToolProfile  string `mapstructure:"tool_profile"`   // MEMORY_TOOL_PROFILE
	LogLevel     string `mapstructure:"log_level"`      // MEMORY_LOG_LEVEL
	AllowCycles  bool   `mapstructure:"allow_cycles"`   // MEMORY_ALLOW_CYCLES

	Remotes map[string]RemoteBackendConfig `mapstructure:"-"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// knownBackendNames is the recognized MEMORY_BACKEND vocabulary (§6.3),
// including the remote candidates the auto policy (§4.8) tries in order.
var knownBackendNames = []string{"sqlite", "neo4j", "memgraph", "falkordb", "falkordblite", "turso", "ladybugdb", "cloud", "auto"}

// autoPolicyOrder is the order the factory tries remote backends under
// MEMORY_BACKEND=auto, before falling back to the embedded relational store.
var autoPolicyOrder = []string{"neo4j", "memgraph", "falkordb", "falkordblite", "turso", "ladybugdb", "cloud"}

func defaultSQLitePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memorygraph", "memory.db")
}

// DefaultConfig returns the documented defaults (§6.3).
func DefaultConfig() *Config {
	return &Config{
		Backend:     "sqlite",
		SQLitePath:  defaultSQLitePath(),
		ToolProfile: "core",
		LogLevel:    "INFO",
		AllowCycles: false,
		Remotes:     map[string]RemoteBackendConfig{},
		RateLimit:   defaultRateLimitConfig(),
	}
}

// defaultRateLimitConfig mirrors internal/ratelimit.DefaultConfig's values;
// duplicated here rather than imported so pkg/config stays free of an
// internal/ dependency.
func defaultRateLimitConfig() RateLimitConfig {
	rl := RateLimitConfig{Enabled: true}
	rl.Global.RequestsPerSecond = 100
	rl.Global.BurstSize = 200
	rl.Tools = []ToolLimitConfig{
		{Name: "search_memories", RequestsPerSecond: 20, BurstSize: 40},
		{Name: "recall_memories", RequestsPerSecond: 20, BurstSize: 40},
		{Name: "store_memory", RequestsPerSecond: 30, BurstSize: 60},
		{Name: "create_relationship", RequestsPerSecond: 20, BurstSize: 40},
		{Name: "search_relationships_by_context", RequestsPerSecond: 5, BurstSize: 10},
	}
	return rl
}

// Load reads MEMORY_* environment variables (and an optional config.yaml in
// the current directory, the user's ~/.memorygraph, or /etc/memorygraph),
// with environment variables taking precedence over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	home, _ := os.UserHomeDir()
	v.AddConfigPath(filepath.Join(home, ".memorygraph"))
	v.AddConfigPath("/etc/memorygraph")

	v.SetEnvPrefix("memory")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", "sqlite")
	v.SetDefault("sqlite_path", defaultSQLitePath())
	v.SetDefault("tool_profile", "core")
	v.SetDefault("log_level", "INFO")
	v.SetDefault("allow_cycles", false)
	v.SetDefault("rate_limit", defaultRateLimitConfig())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Remotes = loadRemoteBackends()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadRemoteBackends scans the process environment for the
// MEMORY_<NAME>_URI/USER/PASSWORD pattern (§6.3) for every known remote
// backend name.
func loadRemoteBackends() map[string]RemoteBackendConfig {
	out := make(map[string]RemoteBackendConfig)
	for _, name := range autoPolicyOrder {
		upper := strings.ToUpper(name)
		uri := os.Getenv("MEMORY_" + upper + "_URI")
		if uri == "" {
			continue
		}
		out[name] = RemoteBackendConfig{
			Name:     name,
			URI:      uri,
			User:     os.Getenv("MEMORY_" + upper + "_USER"),
			Password: os.Getenv("MEMORY_" + upper + "_PASSWORD"),
		}
	}
	return out
}

// AutoPolicyOrder exposes the remote-backend trial order for the factory.
func AutoPolicyOrder() []string { return autoPolicyOrder }

func isKnownBackend(name string) bool {
	for _, b := range knownBackendNames {
		if b == name {
			return true
		}
	}
	return false
}

// Validate enforces the constraints implied by §6.3's enumerated variables.
func (c *Config) Validate() error {
	if !isKnownBackend(c.Backend) {
		return fmt.Errorf("backend must be one of %v, got %q", knownBackendNames, c.Backend)
	}
	if c.ToolProfile != "core" && c.ToolProfile != "extended" {
		return fmt.Errorf("tool_profile must be 'core' or 'extended', got %q", c.ToolProfile)
	}
	validLevels := map[string]bool{"DEBUG": true, "INFO": true, "WARNING": true, "ERROR": true}
	if !validLevels[strings.ToUpper(c.LogLevel)] {
		return fmt.Errorf("log_level must be one of DEBUG, INFO, WARNING, ERROR, got %q", c.LogLevel)
	}
	return nil
}

// ApplyFlagOverrides lets cmd/kgstore's cobra flags override the
// corresponding config values without touching the process environment,
// keeping Config construction explicit per create_from_config's thread
// safety requirement (§4.8).
func (c *Config) ApplyFlagOverrides(backend, profile, logLevel string) {
	if backend != "" {
		c.Backend = backend
	}
	if profile != "" {
		c.ToolProfile = profile
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}
