// Package backendfactory implements the backend factory (C10): selecting,
// lazily constructing, and connecting the storage backend named by
// configuration, including the `auto` policy's ordered fallback.
package backendfactory

import (
	"context"
	"fmt"
	"strings"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/backend/cypher"
	"github.com/kgstore/kgstore/internal/backend/sqlite"
	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/logging"
	"github.com/kgstore/kgstore/pkg/config"
)

var log = logging.GetLogger("backendfactory")

// DriverFactory builds a cypher.Driver for a named remote backend (neo4j,
// memgraph, falkordb, falkordblite, turso, ladybugdb, cloud). Backend
// modules are loaded lazily: a driver factory is only invoked — and its
// package's init cost paid — the first time that backend name is actually
// selected.
type DriverFactory func(cfg cypher.Config) (cypher.Driver, error)

var driverFactories = map[string]DriverFactory{}

// RegisterDriver wires a concrete Cypher-capable client in under a backend
// name. Host binaries call this from an init() in the package that imports
// the real driver library, keeping that dependency out of this package.
func RegisterDriver(name string, factory DriverFactory) {
	driverFactories[name] = factory
}

// CreateBackend reads configuration (consulting process environment via
// config.Load) and constructs the selected backend, connecting it before
// returning.
func CreateBackend(ctx context.Context) (backend.Backend, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	b, err := CreateFromConfig(ctx, cfg)
	return b, cfg, err
}

// CreateFromConfig is the thread-safe variant (§4.8): every connection
// detail comes from the passed-in Config, and process-wide environment is
// never consulted here.
func CreateFromConfig(ctx context.Context, cfg *config.Config) (backend.Backend, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return connectEmbedded(ctx, cfg)
	case "auto":
		return createAuto(ctx, cfg)
	default:
		return connectRemote(ctx, cfg.Backend, cfg)
	}
}

// connectEmbedded constructs and connects the embedded relational backend;
// Connect performs schema initialization itself (§4.8: "by the factory...
// for the embedded relational").
func connectEmbedded(ctx context.Context, cfg *config.Config) (backend.Backend, error) {
	b := sqlite.New(cfg.SQLitePath)
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// connectRemote builds the cypher-capable adapter for one named remote
// backend, using the registered DriverFactory and the credentials loaded
// into cfg.Remotes. Connect performs schema initialization itself for this
// cloud-adapter backend (§4.8).
func connectRemote(ctx context.Context, name string, cfg *config.Config) (backend.Backend, error) {
	factory, ok := driverFactories[name]
	if !ok {
		return nil, domain.NewError(domain.KindBackendUnavailable,
			fmt.Sprintf("no driver registered for backend %q", name), nil)
	}
	remote, ok := cfg.Remotes[name]
	if !ok || remote.URI == "" {
		return nil, domain.NewError(domain.KindBackendUnavailable,
			fmt.Sprintf("no connection details configured for backend %q (set MEMORY_%s_URI)", name, strings.ToUpper(name)), nil)
	}

	driverCfg := cypher.Config{DSN: remote.URI, Username: remote.User, Password: remote.Password}
	driver, err := factory(driverCfg)
	if err != nil {
		return nil, domain.Wrap(domain.KindBackendUnavailable, "construct driver for "+name, err)
	}

	b := cypher.New(driver, driverCfg)
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// createAuto implements the auto policy (§4.8): try each remote candidate
// with configured credentials in order, logging WARN on each failure, then
// fall back to the embedded relational backend.
func createAuto(ctx context.Context, cfg *config.Config) (backend.Backend, error) {
	for _, name := range config.AutoPolicyOrder() {
		remote, ok := cfg.Remotes[name]
		if !ok || remote.URI == "" {
			continue
		}
		b, err := connectRemote(ctx, name, cfg)
		if err != nil {
			log.Warn("auto backend candidate failed, trying next", "backend", name, "error", err)
			continue
		}
		log.Info("auto policy selected remote backend", "backend", name)
		return b, nil
	}

	log.Info("auto policy falling back to embedded relational backend")
	return connectEmbedded(ctx, cfg)
}
