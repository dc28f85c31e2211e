package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kgstore/kgstore/internal/backendfactory"
	"github.com/kgstore/kgstore/internal/logging"
	"github.com/kgstore/kgstore/internal/mcp"
	"github.com/kgstore/kgstore/internal/metrics"
	"github.com/kgstore/kgstore/internal/repository"
	"github.com/kgstore/kgstore/pkg/config"
)

// Version is set during build.
var Version = "1.0.0"

var (
	flagBackend   string
	flagProfile   string
	flagLogLevel  string
	flagShowConf  bool
	flagHealth    bool
)

var rootCmd = &cobra.Command{
	Use:   "kgstore",
	Short: "A knowledge-graph memory engine for AI agents",
	Long: `kgstore persists typed, interrelated knowledge for AI coding agents and
serves it back over the Model Context Protocol.

Run with no subcommand to start the MCP server on stdio. Use the export,
import, and migrate subcommands to move data between backends.`,
	Version:      Version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}

		if flagShowConf {
			return printConfig(cfg)
		}
		if flagHealth {
			return runHealthCheck(cmd.Context(), cfg)
		}
		return runServer(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "override the configured backend (sqlite|neo4j|memgraph|falkordb|falkordblite|turso|ladybugdb|cloud|auto)")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "override the tool profile (core|extended)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override the log level (DEBUG|INFO|WARNING|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&flagShowConf, "show-config", false, "print the resolved configuration and exit")
	rootCmd.PersistentFlags().BoolVar(&flagHealth, "health", false, "run a backend health check and exit")
}

// Execute runs the root command, translating its outcome into the exit
// codes of §6.4: 0 graceful stop, 1 server error, 130 interrupted by user.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	interrupted := false
	go func() {
		<-sigChan
		interrupted = true
		cancel()
	}()

	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		if interrupted {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if interrupted {
		os.Exit(130)
	}
}

func resolveConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	cfg.ApplyFlagOverrides(flagBackend, flagProfile, flagLogLevel)
	return cfg, nil
}

func printConfig(cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// runHealthCheck connects the configured backend, runs its health check,
// and reports the result. A backend that cannot be constructed or connected
// is reported on stderr as unavailable and is not a server error (exit 0).
func runHealthCheck(ctx context.Context, cfg *config.Config) error {
	b, err := backendfactory.CreateFromConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend unavailable: %v\n", err)
		return nil
	}
	defer b.Disconnect(ctx)

	status, err := b.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	data, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(data))
	return nil
}

func runServer(cfg *config.Config) error {
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: "console", Output: "stderr"})

	ctx := rootCmd.Context()

	shutdownMetrics, err := metrics.Init(ctx)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer shutdownMetrics(context.Background())

	b, err := backendfactory.CreateFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("construct backend: %w", err)
	}
	defer b.Disconnect(ctx)

	repo := repository.New(b)
	server := mcp.NewServer(repo, cfg)

	if err := server.Run(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func openRepository(ctx context.Context, path string) (*repository.Repository, func(), error) {
	cfg := config.DefaultConfig()
	cfg.Backend = "sqlite"
	cfg.SQLitePath = path
	b, err := backendfactory.CreateFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return repository.New(b), func() { b.Disconnect(ctx) }, nil
}
