package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	wsadapter "hanzikit/adapters/websocket"
	"hanzikit/analytics"
	"hanzikit/core"
	"hanzikit/engine"
	"hanzikit/notify"
	"hanzikit/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// CORSOrigins enables CORS for the listed origins ("*" for any).
	CORSOrigins []string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// RateLimitCleanup is how often idle client buckets are dropped. Zero keeps them.
	RateLimitCleanup time.Duration
	// Metrics, if set, is served as JSON at MetricsPath.
	Metrics         *analytics.ProgressMetrics
	MetricsPath     string
	TopAchievements int
	// LeaderboardSize is the default number of entries returned.
	LeaderboardSize int
}

type api struct {
	eng  *engine.Engine
	opts Options
}

// NewMux builds an http.Handler exposing the progression REST API and WebSocket stream.
// Routes:
//   - POST {prefix}/users/{id}/stats/{key}?delta=1
//   - POST {prefix}/users/{id}/check
//   - GET  {prefix}/users/{id}
//   - GET  {prefix}/users/{id}/level
//   - GET  {prefix}/users/{id}/achievements
//   - GET  {prefix}/users/{id}/achievements/locked
//   - GET  {prefix}/users/{id}/summary | screen | details   (text/plain)
//   - GET  {prefix}/achievements
//   - GET  {prefix}/leaderboard?limit=10&format=text
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws?user=42
func NewMux(eng *engine.Engine, hub *realtime.Hub, opts Options) http.Handler {
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = 10
	}
	a := &api{eng: eng, opts: opts}

	root := mux.NewRouter()
	r := root
	if p := strings.TrimSuffix(opts.PathPrefix, "/"); p != "" {
		r = root.PathPrefix(p).Subrouter()
	}
	r.HandleFunc("/healthz", a.healthCheck).Methods(http.MethodGet)
	if hub != nil {
		r.Handle("/ws", wsadapter.Handler(hub))
	}
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.HandleFunc(path, a.metrics).Methods(http.MethodGet)
	}

	r.HandleFunc("/achievements", a.catalog).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", a.leaderboard).Methods(http.MethodGet)

	u := r.PathPrefix("/users/{id}").Subrouter()
	u.HandleFunc("/stats/{key}", a.updateStat).Methods(http.MethodPost)
	u.HandleFunc("/check", a.check).Methods(http.MethodPost)
	u.HandleFunc("", a.record).Methods(http.MethodGet)
	u.HandleFunc("/level", a.level).Methods(http.MethodGet)
	u.HandleFunc("/achievements", a.unlocked).Methods(http.MethodGet)
	u.HandleFunc("/achievements/locked", a.locked).Methods(http.MethodGet)
	u.HandleFunc("/summary", a.text(eng.Summary)).Methods(http.MethodGet)
	u.HandleFunc("/screen", a.text(eng.Screen)).Methods(http.MethodGet)
	u.HandleFunc("/details", a.text(eng.Details)).Methods(http.MethodGet)

	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})
	root.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	var handler http.Handler = root
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst, opts.RateLimitCleanup)
	}
	if len(opts.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key"},
		}).Handler(handler)
	}
	return handler
}

func (a *api) updateStat(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromPath(w, r)
	if !ok {
		return
	}
	key := core.StatKey(mux.Vars(r)["key"])
	raw := r.URL.Query().Get("delta")
	if raw == "" {
		raw = "1"
	}
	delta, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_delta", "delta must be a number", nil)
		return
	}
	unlocked, err := a.eng.UpdateStatistic(r.Context(), user, key, delta)
	if err != nil {
		a.storageFailure(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"recognized": a.eng.Catalog().Recognized(key),
		"unlocked":   nonNil(unlocked),
		"messages":   notify.Unlocks(unlocked),
	})
}

func (a *api) check(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromPath(w, r)
	if !ok {
		return
	}
	unlocked, err := a.eng.CheckAchievements(r.Context(), user)
	if err != nil {
		a.storageFailure(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"unlocked": nonNil(unlocked),
		"messages": notify.Unlocks(unlocked),
	})
}

func (a *api) record(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromPath(w, r)
	if !ok {
		return
	}
	rec, err := a.eng.Record(r.Context(), user)
	if err != nil {
		a.storageFailure(w, err)
		return
	}
	writeJSON(w, rec)
}

func (a *api) level(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromPath(w, r)
	if !ok {
		return
	}
	lvl, err := a.eng.Level(r.Context(), user)
	if err != nil {
		a.storageFailure(w, err)
		return
	}
	writeJSON(w, lvl)
}

func (a *api) unlocked(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromPath(w, r)
	if !ok {
		return
	}
	defs, err := a.eng.ListUnlocked(r.Context(), user)
	if err != nil {
		a.storageFailure(w, err)
		return
	}
	writeJSON(w, nonNil(defs))
}

func (a *api) locked(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromPath(w, r)
	if !ok {
		return
	}
	locked, err := a.eng.ListLocked(r.Context(), user)
	if err != nil {
		a.storageFailure(w, err)
		return
	}
	writeJSON(w, nonNil(locked))
}

// text serves one of the engine's rendered views as plain text.
func (a *api) text(render func(ctx context.Context, user core.UserID) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromPath(w, r)
		if !ok {
			return
		}
		out, err := render(r.Context(), user)
		if err != nil {
			a.storageFailure(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(out))
	}
}

func (a *api) catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.eng.Catalog().All())
}

func (a *api) leaderboard(w http.ResponseWriter, r *http.Request) {
	n := a.opts.LeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", nil)
			return
		}
		n = v
	}
	entries := a.eng.Leaderboard(n)
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(notify.Leaderboard(entries, nil)))
		return
	}
	writeJSON(w, entries)
}

func (a *api) metrics(w http.ResponseWriter, _ *http.Request) {
	limit := a.opts.TopAchievements
	if limit <= 0 {
		limit = 5
	}
	writeJSON(w, a.opts.Metrics.Snapshot(limit))
}

// healthCheck verifies the store answers a load for a user that never exists.
func (a *api) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}
	if err := a.eng.Ping(r.Context()); err != nil {
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
		writeJSONStatus(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, status)
}

func (a *api) storageFailure(w http.ResponseWriter, err error) {
	if core.IsStorageError(err) {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error(), nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
}

// Helpers

func userFromPath(w http.ResponseWriter, r *http.Request) (core.UserID, bool) {
	user, err := core.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
		return 0, false
	}
	return user, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSONStatus(w, status, apiError{Code: code, Message: msg, Details: details})
}
