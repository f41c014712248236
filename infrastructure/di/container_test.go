package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"projectgraph/application/services"
	"projectgraph/domain/core/entities"
	"projectgraph/infrastructure/config"
	"projectgraph/infrastructure/persistence"
	"projectgraph/infrastructure/persistence/kvstore"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Environment = "test"
	cfg.Storage.DataDir = filepath.Join(dir, "graphs")
	cfg.Storage.SQLitePath = filepath.Join(dir, "graphs.db")
	cfg.Autosave.Interval = time.Minute
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestInitializeContainer_BackendSelection(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"auto prefers files", func(*config.Config) {}, "filestore"},
		{"auto without filesystem", func(c *config.Config) { c.Storage.DisableFilesystem = true }, "sqlite"},
		{"auto with nothing but kv", func(c *config.Config) {
			c.Storage.DisableFilesystem = true
			c.Storage.DisableObjectStore = true
		}, "kvstore"},
		{"explicit sqlite", func(c *config.Config) { c.Storage.Backend = "sqlite" }, "sqlite"},
		{"explicit kvstore", func(c *config.Config) { c.Storage.Backend = "kvstore" }, "kvstore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			c, err := InitializeContainer(context.Background(), cfg, WithLogger(zap.NewNop()))
			require.NoError(t, err)
			t.Cleanup(func() { _ = c.Shutdown(context.Background()) })

			assert.Equal(t, tt.want, c.Engine.BackendName())
			_, instrumented := c.Adapter.(*persistence.Instrumented)
			assert.True(t, instrumented)
			assert.Equal(t, services.StateUninitialized, c.Engine.State())
			assert.Equal(t, time.Minute, c.Engine.AutosaveInterval())
		})
	}
}

func TestInitializeContainer_EngineRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "kvstore"
	store := kvstore.NewMemoryStore()

	c, err := InitializeContainer(context.Background(), cfg, WithLogger(zap.NewNop()), WithKeyValueStore(store))
	require.NoError(t, err)
	defer c.Shutdown(context.Background())

	c.Engine.NewGraph("Wired", "")
	_, err = c.Engine.AddNode(entities.Record{
		"kind":     "feature",
		"name":     "Login",
		"status":   "planned",
		"priority": "high",
	})
	require.NoError(t, err)
	require.True(t, c.Engine.SaveGraph(context.Background()))
	assert.Positive(t, store.Len())

	loaded, err := c.Engine.LoadGraph(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Wired", loaded.Name)
	assert.Len(t, loaded.Nodes, 1)
}

func TestInitializeContainer_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false

	c, err := InitializeContainer(context.Background(), cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer c.Shutdown(context.Background())
	assert.Nil(t, c.Metrics)
}

func TestInitializeContainer_RejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "mongo"

	_, err := InitializeContainer(context.Background(), cfg, WithLogger(zap.NewNop()))
	assert.Error(t, err)
}
