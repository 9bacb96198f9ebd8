package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"hanzikit/analytics"
	"hanzikit/api/httpapi"
	"hanzikit/config"
	"hanzikit/core"
	"hanzikit/engine"
	"hanzikit/gamify"
	"hanzikit/integrations/webhook"
	"hanzikit/notify"
	"hanzikit/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Engine  *engine.Engine
	Handler http.Handler
	Server  *http.Server
}

// provideConfig loads configuration and, when HANZIKIT_SECRETS_DIR is set,
// overlays secrets read from files in that directory.
func provideConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dir := os.Getenv("HANZIKIT_SECRETS_DIR"); dir != "" {
		if err := config.LoadSecrets(ctx, cfg, config.NewFileSecretStore(dir)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg, nil)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.Store, func(), error) {
	store, closeFn, err := gamify.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("storage ready", "adapter", cfg.Storage.Adapter)
	return store, func() {
		if err := closeFn(); err != nil {
			logger.Error("closing storage", "error", err)
		}
	}, nil
}

// provideMetrics returns nil when metrics are disabled.
func provideMetrics(cfg *config.Config) *analytics.ProgressMetrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return analytics.NewProgressMetrics()
}

func provideCatalog() *core.Catalog { return core.DefaultCatalog() }

func provideTiers() []core.LevelTier { return core.DefaultTiers() }

// provideWebhooks returns nil when no endpoints are configured.
func provideWebhooks(cfg *config.Config, logger *slog.Logger, catalog *core.Catalog, tiers []core.LevelTier) *webhook.Sink {
	in := cfg.Integrations
	if len(in.Webhooks) == 0 {
		return nil
	}
	return webhook.New(in.Webhooks,
		webhook.WithClient(&http.Client{Timeout: in.WebhookTimeout}),
		webhook.WithSecret(in.WebhookSecret),
		webhook.WithRenderer(eventText(catalog, tiers)),
		webhook.WithLogger(logger),
	)
}

// eventText renders the chat message posted alongside an event.
func eventText(catalog *core.Catalog, tiers []core.LevelTier) func(core.Event) string {
	return func(e core.Event) string {
		switch e.Type {
		case core.EventAchievementUnlocked:
			def, err := catalog.Lookup(e.Achievement)
			if err != nil {
				return ""
			}
			return notify.Unlock(def)
		case core.EventLevelUp:
			return notify.LevelUp(core.ComputeLevel(e.Total, tiers))
		}
		return ""
	}
}

func provideEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, hub *realtime.Hub, store engine.Store, catalog *core.Catalog, tiers []core.LevelTier, metrics *analytics.ProgressMetrics, sink *webhook.Sink) (*engine.Engine, func(), error) {
	var hooks []analytics.Hook
	if metrics != nil {
		hooks = append(hooks, metrics)
	}
	if sink != nil {
		hooks = append(hooks, sink)
	}
	eng := gamify.New(
		gamify.WithStore(store),
		gamify.WithCatalog(catalog),
		gamify.WithTiers(tiers),
		gamify.WithRealtime(hub),
		gamify.WithHooks(hooks...),
		gamify.WithDispatchMode(gamify.ParseDispatchMode(cfg.Engine.Dispatch)),
		gamify.WithEventQueue(cfg.Engine.QueueSize, cfg.Engine.Workers),
		gamify.WithLogger(logger),
	)
	if cfg.Engine.RebuildLeaderboard {
		n, err := eng.RebuildLeaderboard(ctx)
		if err != nil {
			eng.Close()
			return nil, nil, err
		}
		logger.Info("leaderboard rebuilt", "users", n)
	}
	return eng, eng.Close, nil
}

func provideHandler(eng *engine.Engine, hub *realtime.Hub, metrics *analytics.ProgressMetrics, cfg *config.Config) http.Handler {
	return httpapi.NewMux(eng, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		CORSOrigins:      cfg.Server.CORSOrigins,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		RateLimitCleanup: cfg.Security.RateLimit.CleanupInterval,
		Metrics:          metrics,
		MetricsPath:      cfg.Metrics.Path,
		TopAchievements:  cfg.Metrics.TopAchievements,
		LeaderboardSize:  cfg.Engine.LeaderboardSize,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the default logger. A nil w selects the
// configured output.
func setupLogging(cfg *config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
		if cfg.Logging.Output == "stderr" {
			w = os.Stderr
		}
	}
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}
