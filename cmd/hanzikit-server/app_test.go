package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hanzikit/config"
	"hanzikit/core"
	"hanzikit/integrations/webhook"
	"hanzikit/notify"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestSetupLoggingAttributes(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := config.DefaultConfig()
	cfg.Logging.Attributes = map[string]string{"service": "hanzikit"}
	var buf bytes.Buffer
	logger := setupLogging(cfg, &buf)
	logger.Info("hello")
	assert.Contains(t, buf.String(), `"service":"hanzikit"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestProvidersAssembleServer(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Storage.Adapter = "file"
	cfg.Storage.File.Dir = filepath.Join(t.TempDir(), "data")
	cfg.Metrics.Enabled = true
	cfg.Security.APIKeys = []string{"k"}
	logger := setupLogging(cfg, &bytes.Buffer{})

	store, closeStore, err := provideStore(ctx, cfg, logger)
	require.NoError(t, err)
	defer closeStore()

	// a user saved before startup should be ranked after the rebuild
	rec := core.NewRecord(5, core.DefaultSchema())
	rec.Unlock(core.DefaultDefinitions()[0])
	require.NoError(t, store.Save(ctx, rec))

	hub := provideHub()
	metrics := provideMetrics(cfg)
	require.NotNil(t, metrics)
	catalog, tiers := provideCatalog(), provideTiers()
	assert.Nil(t, provideWebhooks(cfg, logger, catalog, tiers))

	eng, closeEngine, err := provideEngine(ctx, cfg, logger, hub, store, catalog, tiers, metrics, nil)
	require.NoError(t, err)
	defer closeEngine()
	require.Len(t, eng.Leaderboard(10), 1)

	srv := provideServer(cfg, provideHandler(eng, hub, metrics, cfg))
	assert.Equal(t, ":8080", srv.Addr)

	req := httptest.NewRequest(http.MethodPost, "/api/users/5/stats/words_learned?delta=50", nil)
	req.Header.Set("X-API-Key", "k")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "word_collector")

	req = httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	req.Header.Set("X-API-Key", "k")
	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProvideWebhooksRendersText(t *testing.T) {
	var (
		mu  sync.Mutex
		got []webhook.Payload
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhook.Payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}))
	defer ts.Close()

	cfg := config.DefaultConfig()
	cfg.Integrations.Webhooks = []string{ts.URL}
	catalog, tiers := provideCatalog(), provideTiers()
	sink := provideWebhooks(cfg, slog.Default(), catalog, tiers)
	require.NotNil(t, sink)

	first := core.DefaultDefinitions()[0]
	sink.OnEvent(core.NewAchievementUnlocked(1, first, first.Points))
	sink.OnEvent(core.NewLevelUp(1, 2, tiers[1].Threshold))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, notify.Unlock(first), got[0].Text)
	assert.Contains(t, got[0].Text, first.Name)
	assert.Equal(t, notify.LevelUp(core.ComputeLevel(tiers[1].Threshold, tiers)), got[1].Text)
	assert.Contains(t, got[1].Text, tiers[1].Name)
	assert.Zero(t, sink.Failures())
}
