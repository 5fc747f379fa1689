package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

func testConfig(t *testing.T, mirrorURL string) *config.Config {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.Store.Driver = DriverMemory
	cfg.Services.Mirror.BaseURL = mirrorURL
	cfg.Client.Retry.MaxAttempts = 1

	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mirrorServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":101}`))
			return
		}

		_, _ = w.Write([]byte(`[{"id":1,"title":"R1","body":"","userId":1}]`))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestBuild_MemoryDriver(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, mirrorServer(t).URL)

	c, err := Build(ctx, cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, c.Close()) })

	assert.Equal(t, domain.DefaultQuotes(), c.Book.Quotes(), "empty store is seeded")

	result := c.Health.CheckAll(ctx)
	assert.Equal(t, ports.HealthStatusHealthy, result.Status)
	assert.Len(t, result.Checks, 2)
}

func TestBuild_SQLiteDriverPersists(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, mirrorServer(t).URL)
	cfg.Store.Driver = DriverSQLite
	cfg.Store.Path = filepath.Join(t.TempDir(), "quotebook.db")
	cfg.Store.SeedDefaults = false

	c, err := Build(ctx, cfg, discardLogger())
	require.NoError(t, err)

	_, err = c.Book.Add(ctx, "Persisted", "Test")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := Build(ctx, cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, reopened.Close()) })

	assert.Equal(t, []domain.Quote{{Text: "Persisted", Category: "Test"}}, reopened.Book.Quotes())
}

func TestBuild_ReconcilerUsesMirror(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, mirrorServer(t).URL)
	cfg.Store.SeedDefaults = false

	c, err := Build(ctx, cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	result, err := c.Reconciler.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, []domain.Quote{{Text: "R1", Category: "API"}}, c.Book.Quotes())
}

func TestBuild_UnknownDriver(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Store.Driver = "postgres"

	_, err := Build(context.Background(), cfg, discardLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestComponents_Scheduler(t *testing.T) {
	cfg := testConfig(t, mirrorServer(t).URL)

	c, err := Build(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.NotNil(t, c.Scheduler())
}
