package gamify

import (
	"context"
	"log/slog"

	"hanzikit/adapters/memory"
	"hanzikit/analytics"
	"hanzikit/core"
	"hanzikit/engine"
	"hanzikit/leaderboard"
	"hanzikit/realtime"
)

// Option configures the engine builder.
type Option func(*options)

type options struct {
	store   engine.Store
	catalog *core.Catalog
	tiers   []core.LevelTier
	mode    engine.DispatchMode
	busOpts []engine.BusOption
	rules   engine.RuleEngine
	hub     *realtime.Hub
	hooks   []analytics.Hook
	board   leaderboard.Board
	logger  *slog.Logger
}

// WithStore sets the persistence adapter.
func WithStore(s engine.Store) Option { return func(o *options) { o.store = s } }

// WithCatalog replaces the built-in achievement catalog.
func WithCatalog(c *core.Catalog) Option { return func(o *options) { o.catalog = c } }

// WithTiers replaces the built-in level ladder.
func WithTiers(t []core.LevelTier) Option { return func(o *options) { o.tiers = t } }

// WithRuleEngine sets the rule engine.
func WithRuleEngine(r engine.RuleEngine) Option { return func(o *options) { o.rules = r } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(o *options) { o.mode = m } }

// WithEventQueue sizes the async dispatch queue and worker pool. Zero keeps
// the default.
func WithEventQueue(size, workers int) Option {
	return func(o *options) {
		o.busOpts = append(o.busOpts, engine.WithQueueSize(size), engine.WithWorkers(workers))
	}
}

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(o *options) { o.hub = h } }

// WithHooks subscribes hooks (analytics, webhooks) to all engine events.
func WithHooks(h ...analytics.Hook) Option {
	return func(o *options) { o.hooks = append(o.hooks, h...) }
}

// WithLeaderboard sets the board kept in step with point totals.
func WithLeaderboard(b leaderboard.Board) Option { return func(o *options) { o.board = b } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// New builds a configured Engine. If not provided, defaults are used:
//   - store: in-memory
//   - catalog and tiers: built-in
//   - rules: level-up detection
//   - dispatch: async
//   - leaderboard: skip list
func New(opts ...Option) *engine.Engine {
	o := &options{mode: engine.DispatchAsync, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = memory.New()
	}
	if o.catalog == nil {
		o.catalog = core.DefaultCatalog()
	}
	if o.board == nil {
		o.board = leaderboard.NewSkipList()
	}
	bus := engine.NewEventBus(o.mode, append(o.busOpts, engine.WithBusLogger(o.logger))...)
	if o.hub != nil {
		hub := o.hub
		bus.SubscribeAll(func(ctx context.Context, e core.Event) { hub.Broadcast(ctx, e) })
	}
	if len(o.hooks) > 0 {
		bus.SubscribeAll(analytics.Handler(analytics.NewBridge(o.hooks...)))
	}
	eopts := []engine.Option{
		engine.WithLeaderboard(o.board),
		engine.WithLogger(o.logger),
	}
	if len(o.tiers) > 0 {
		eopts = append(eopts, engine.WithTiers(o.tiers))
	}
	if o.rules != nil {
		eopts = append(eopts, engine.WithRules(o.rules))
	}
	return engine.NewEngine(o.store, o.catalog, bus, eopts...)
}

// ParseDispatchMode maps "sync" and "async" to dispatch modes. Anything else is async.
func ParseDispatchMode(s string) engine.DispatchMode {
	if s == "sync" {
		return engine.DispatchSync
	}
	return engine.DispatchAsync
}
