package backendfactory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kgstore/kgstore/internal/backend/cypher"
	"github.com/kgstore/kgstore/pkg/config"
)

// fakeSession is the minimal cypher.Session a test driver needs; every
// statement succeeds with no rows, enough to get past Connect's schema init.
type fakeSession struct{ fail bool }

func (s *fakeSession) Run(ctx context.Context, stmt string, params map[string]interface{}, write bool) ([]map[string]interface{}, error) {
	return nil, nil
}
func (s *fakeSession) Ping(ctx context.Context) error {
	if s.fail {
		return context.DeadlineExceeded
	}
	return nil
}
func (s *fakeSession) Close(ctx context.Context) error { return nil }

type fakeDriver struct{ fail bool }

func (d *fakeDriver) Dial(ctx context.Context, dsn, user, pass string) (cypher.Session, error) {
	return &fakeSession{fail: d.fail}, nil
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "memory.db")
	cfg.Remotes = map[string]config.RemoteBackendConfig{}
	return cfg
}

func TestCreateFromConfig_Embedded(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Backend = "sqlite"

	b, err := CreateFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateFromConfig: %v", err)
	}
	defer b.Disconnect(context.Background())

	if b.Name() != "sqlite" {
		t.Errorf("expected sqlite backend, got %s", b.Name())
	}
}

func TestCreateFromConfig_UnregisteredRemote(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Backend = "neo4j"
	cfg.Remotes["neo4j"] = config.RemoteBackendConfig{Name: "neo4j", URI: "bolt://localhost:7687"}

	_, err := CreateFromConfig(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unregistered driver")
	}
}

func TestCreateFromConfig_RegisteredRemote(t *testing.T) {
	RegisterDriver("neo4j-test", func(cfg cypher.Config) (cypher.Driver, error) {
		return &fakeDriver{}, nil
	})

	cfg := newTestConfig(t)
	cfg.Backend = "neo4j-test"
	cfg.Remotes["neo4j-test"] = config.RemoteBackendConfig{Name: "neo4j-test", URI: "bolt://localhost:7687"}

	b, err := CreateFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateFromConfig: %v", err)
	}
	defer b.Disconnect(context.Background())

	if b.Name() != "cypher" {
		t.Errorf("expected cypher backend, got %s", b.Name())
	}
}

func TestCreateFromConfig_AutoFallsBackToEmbedded(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Backend = "auto"

	b, err := CreateFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateFromConfig: %v", err)
	}
	defer b.Disconnect(context.Background())

	if b.Name() != "sqlite" {
		t.Errorf("expected auto policy to fall back to sqlite, got %s", b.Name())
	}
}

func TestCreateFromConfig_AutoPrefersRegisteredRemote(t *testing.T) {
	RegisterDriver("neo4j", func(cfg cypher.Config) (cypher.Driver, error) {
		return &fakeDriver{}, nil
	})
	defer delete(driverFactories, "neo4j")

	cfg := newTestConfig(t)
	cfg.Backend = "auto"
	cfg.Remotes["neo4j"] = config.RemoteBackendConfig{Name: "neo4j", URI: "bolt://localhost:7687"}

	b, err := CreateFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateFromConfig: %v", err)
	}
	defer b.Disconnect(context.Background())

	if b.Name() != "cypher" {
		t.Errorf("expected auto policy to pick registered neo4j backend, got %s", b.Name())
	}
}
