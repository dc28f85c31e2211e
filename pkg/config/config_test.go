package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != "sqlite" {
		t.Errorf("Expected Backend=sqlite, got %s", cfg.Backend)
	}
	if cfg.ToolProfile != "core" {
		t.Errorf("Expected ToolProfile=core, got %s", cfg.ToolProfile)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("Expected LogLevel=INFO, got %s", cfg.LogLevel)
	}
	if cfg.AllowCycles {
		t.Error("Expected AllowCycles=false")
	}
	if filepath.Base(cfg.SQLitePath) != "memory.db" {
		t.Errorf("Expected sqlite path to end in memory.db, got %s", cfg.SQLitePath)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("Expected RateLimit.Enabled=true by default")
	}
	if cfg.RateLimit.Global.RequestsPerSecond != 100 {
		t.Errorf("Expected default global RPS=100, got %v", cfg.RateLimit.Global.RequestsPerSecond)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		expectErr bool
	}{
		{name: "valid config", modify: func(c *Config) {}, expectErr: false},
		{
			name:      "unknown backend",
			modify:    func(c *Config) { c.Backend = "mongodb" },
			expectErr: true,
		},
		{
			name:      "auto backend is known",
			modify:    func(c *Config) { c.Backend = "auto" },
			expectErr: false,
		},
		{
			name:      "invalid tool profile",
			modify:    func(c *Config) { c.ToolProfile = "admin" },
			expectErr: true,
		},
		{
			name:      "invalid log level",
			modify:    func(c *Config) { c.LogLevel = "TRACE" },
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd) //nolint:errcheck
	_ = os.Chdir(tmpDir)

	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	defer os.Setenv("HOME", oldHome)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error with missing config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected config, got nil")
	}
	if cfg.Backend != "sqlite" {
		t.Errorf("Expected default backend sqlite, got %s", cfg.Backend)
	}
}

func TestLoadConfig_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
backend: neo4j
tool_profile: extended
log_level: DEBUG
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd) //nolint:errcheck
	_ = os.Chdir(tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Backend != "neo4j" {
		t.Errorf("Expected backend=neo4j, got %s", cfg.Backend)
	}
	if cfg.ToolProfile != "extended" {
		t.Errorf("Expected tool_profile=extended, got %s", cfg.ToolProfile)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("Expected log_level=DEBUG, got %s", cfg.LogLevel)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("backend: sqlite\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd) //nolint:errcheck
	_ = os.Chdir(tmpDir)

	os.Setenv("MEMORY_BACKEND", "memgraph")
	defer os.Unsetenv("MEMORY_BACKEND")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Backend != "memgraph" {
		t.Errorf("Expected env override backend=memgraph, got %s", cfg.Backend)
	}
}

func TestLoadRemoteBackends(t *testing.T) {
	os.Setenv("MEMORY_NEO4J_URI", "bolt://localhost:7687")
	os.Setenv("MEMORY_NEO4J_USER", "neo4j")
	os.Setenv("MEMORY_NEO4J_PASSWORD", "secret")
	defer os.Unsetenv("MEMORY_NEO4J_URI")
	defer os.Unsetenv("MEMORY_NEO4J_USER")
	defer os.Unsetenv("MEMORY_NEO4J_PASSWORD")

	remotes := loadRemoteBackends()
	r, ok := remotes["neo4j"]
	if !ok {
		t.Fatal("Expected neo4j remote to be loaded from env")
	}
	if r.URI != "bolt://localhost:7687" || r.User != "neo4j" || r.Password != "secret" {
		t.Errorf("Unexpected remote config: %+v", r)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyFlagOverrides("neo4j", "extended", "DEBUG")

	if cfg.Backend != "neo4j" {
		t.Errorf("Expected backend override to neo4j, got %s", cfg.Backend)
	}
	if cfg.ToolProfile != "extended" {
		t.Errorf("Expected profile override to extended, got %s", cfg.ToolProfile)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("Expected log level override to DEBUG, got %s", cfg.LogLevel)
	}

	cfg.ApplyFlagOverrides("", "", "")
	if cfg.Backend != "neo4j" {
		t.Error("Empty override strings should not reset previously applied values")
	}
}

func TestAutoPolicyOrder(t *testing.T) {
	order := AutoPolicyOrder()
	if len(order) == 0 {
		t.Fatal("Expected non-empty auto policy order")
	}
	if order[0] != "neo4j" {
		t.Errorf("Expected neo4j first in auto policy order, got %s", order[0])
	}
}
