package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "hanzikit/adapters/memory"
	"hanzikit/analytics"
	"hanzikit/core"
	"hanzikit/engine"
	"hanzikit/leaderboard"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	bus := engine.NewEventBus(engine.DispatchSync)
	eng := engine.NewEngine(mem.New(), core.DefaultCatalog(), bus,
		engine.WithLeaderboard(leaderboard.NewSkipList()))
	t.Cleanup(eng.Close)
	return eng
}

func do(h http.Handler, method, target string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUpdateStatUnlocks(t *testing.T) {
	handler := NewMux(newTestEngine(t), nil, Options{PathPrefix: "/api"})

	rec := do(handler, http.MethodPost, "/api/users/42/stats/lessons_completed?delta=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Recognized bool                         `json:"recognized"`
		Unlocked   []core.AchievementDefinition `json:"unlocked"`
		Messages   []string                     `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Recognized)
	require.Len(t, resp.Unlocked, 1)
	assert.Equal(t, core.AchievementID("first_steps"), resp.Unlocked[0].ID)
	require.Len(t, resp.Messages, 1)
	assert.Contains(t, resp.Messages[0], "الخطوات الأولى")
}

func TestUpdateStatUnknownKeyIgnored(t *testing.T) {
	handler := NewMux(newTestEngine(t), nil, Options{})
	rec := do(handler, http.MethodPost, "/users/42/stats/bogus?delta=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["recognized"])
	assert.Empty(t, resp["unlocked"])
}

func TestUpdateStatValidation(t *testing.T) {
	handler := NewMux(newTestEngine(t), nil, Options{PathPrefix: "/api"})

	assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodPost, "/api/users/42/stats/words_learned?delta=bad").Code)
	assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodPost, "/api/users/alice/stats/words_learned").Code)
	assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodPost, "/api/users/0/check").Code)
}

func TestMembershipAndCheck(t *testing.T) {
	eng := newTestEngine(t)
	handler := NewMux(eng, nil, Options{})

	require.Equal(t, http.StatusOK, do(handler, http.MethodPost, "/users/7/stats/hsk_levels_completed?delta=1").Code)
	rec := do(handler, http.MethodPost, "/users/7/check")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp["unlocked"])

	rec = do(handler, http.MethodGet, "/users/7/achievements")
	var defs []core.AchievementDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &defs))
	require.Len(t, defs, 1)
	assert.Equal(t, core.AchievementID("hsk1_master"), defs[0].ID)
}

func TestGetUserDefaults(t *testing.T) {
	handler := NewMux(newTestEngine(t), nil, Options{})

	rec := do(handler, http.MethodGet, "/users/99")
	require.Equal(t, http.StatusOK, rec.Code)
	var got core.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, core.UserID(99), got.UserID)
	assert.Zero(t, got.TotalPoints)

	rec = do(handler, http.MethodGet, "/users/99/level")
	var lvl core.Level
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lvl))
	assert.Equal(t, 1, lvl.Index)

	rec = do(handler, http.MethodGet, "/users/99/achievements/locked")
	var locked []core.LockedAchievement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &locked))
	assert.Len(t, locked, core.DefaultCatalog().Len())
}

func TestTextViews(t *testing.T) {
	handler := NewMux(newTestEngine(t), nil, Options{})
	for _, view := range []string{"summary", "screen", "details"} {
		rec := do(handler, http.MethodGet, "/users/5/"+view)
		require.Equal(t, http.StatusOK, rec.Code, view)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"), view)
		assert.NotEmpty(t, rec.Body.String(), view)
	}
}

func TestLeaderboardAndCatalog(t *testing.T) {
	handler := NewMux(newTestEngine(t), nil, Options{})
	do(handler, http.MethodPost, "/users/1/stats/lessons_completed")
	do(handler, http.MethodPost, "/users/2/stats/streak_days?delta=7")

	rec := do(handler, http.MethodGet, "/leaderboard?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []leaderboard.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, core.UserID(2), entries[0].User)
	assert.Equal(t, 1, entries[0].Rank)

	assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodGet, "/leaderboard?limit=-1").Code)

	rec = do(handler, http.MethodGet, "/leaderboard?format=text")
	assert.Contains(t, rec.Body.String(), "🥇")

	rec = do(handler, http.MethodGet, "/achievements")
	var defs []core.AchievementDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &defs))
	assert.Len(t, defs, core.DefaultCatalog().Len())
}

func TestMetricsRoute(t *testing.T) {
	metrics := analytics.NewProgressMetrics()
	eng := newTestEngine(t)
	eng.Bus().SubscribeAll(analytics.Handler(metrics))
	handler := NewMux(eng, nil, Options{Metrics: metrics, MetricsPath: "/metrics"})
	do(handler, http.MethodPost, "/users/1/stats/lessons_completed")

	rec := do(handler, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.NotEmpty(t, snap)
}

func TestHealthAndNotFound(t *testing.T) {
	handler := NewMux(newTestEngine(t), nil, Options{PathPrefix: "/api/"})
	rec := do(handler, http.MethodGet, "/api/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = do(handler, http.MethodGet, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")

	assert.Equal(t, http.StatusMethodNotAllowed, do(handler, http.MethodGet, "/api/users/1/check").Code)
}

func TestAPIKeyAuth(t *testing.T) {
	handler := NewMux(newTestEngine(t), nil, Options{
		PathPrefix: "/api",
		APIKeys:    []string{"secret"},
	})
	assert.Equal(t, http.StatusUnauthorized, do(handler, http.MethodGet, "/api/users/1").Code)
	assert.Equal(t, http.StatusUnauthorized, do(handler, http.MethodGet, "/api/users/1", "X-API-Key", "wrong").Code)
	assert.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/api/users/1", "Authorization", "Bearer secret").Code)
	assert.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/api/healthz").Code)
}

func TestCORS(t *testing.T) {
	handler := NewMux(newTestEngine(t), nil, Options{CORSOrigins: []string{"https://bot.example"}})
	rec := do(handler, http.MethodGet, "/users/1", "Origin", "https://bot.example")
	assert.Equal(t, "https://bot.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(handler, http.MethodGet, "/users/1", "Origin", "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	handler := NewMux(newTestEngine(t), nil, Options{
		APIKeys:          []string{"k"},
		RateLimitEnabled: true,
		RateLimitRPM:     1,
		RateLimitBurst:   1,
	})
	assert.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/users/1", "X-API-Key", "k").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(handler, http.MethodGet, "/users/1", "X-API-Key", "k").Code)
}

func TestRateLimiterRefill(t *testing.T) {
	now := time.Unix(0, 0)
	l := newRateLimiter(60, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))
	now = now.Add(time.Second)
	assert.True(t, l.allow("a"))
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Unix(0, 0)
	l := newRateLimiter(60, 2)
	l.sweepEvery = time.Minute
	l.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c"} {
		assert.True(t, l.allow(k))
	}
	assert.Equal(t, 3, l.size())

	// "a" stays busy and keeps its drained bucket
	now = now.Add(59 * time.Second)
	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	now = now.Add(time.Second)
	assert.True(t, l.allow("a"))
	assert.Equal(t, 1, l.size())

	// swept clients start again with a full burst
	assert.True(t, l.allow("b"))
	assert.True(t, l.allow("b"))
	assert.False(t, l.allow("b"))
}
