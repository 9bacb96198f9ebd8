package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"hanzikit/core"
	"hanzikit/leaderboard"
	"hanzikit/notify"
)

// Engine applies statistic updates to per-user progress records, unlocks
// achievements whose conditions become true, and reports levels and progress.
type Engine struct {
	store   Store
	catalog *core.Catalog
	schema  core.Schema
	tiers   []core.LevelTier
	bus     *EventBus
	rules   RuleEngine
	board   leaderboard.Board
	logger  *slog.Logger
	locks   userLocks
	now     func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithTiers replaces the level ladder. Tiers must be ascending.
func WithTiers(tiers []core.LevelTier) Option {
	return func(e *Engine) {
		if len(tiers) > 0 {
			e.tiers = tiers
		}
	}
}

// WithRules replaces the rule engine run after every published event.
func WithRules(r RuleEngine) Option { return func(e *Engine) { e.rules = r } }

// WithLeaderboard keeps b in step with users' point totals.
func WithLeaderboard(b leaderboard.Board) Option { return func(e *Engine) { e.board = b } }

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(store Store, catalog *core.Catalog, bus *EventBus, opts ...Option) *Engine {
	if store == nil || catalog == nil || bus == nil {
		panic("NewEngine requires non-nil store, catalog, and bus")
	}
	e := &Engine{
		store:   store,
		catalog: catalog,
		schema:  catalog.Schema(),
		tiers:   core.DefaultTiers(),
		bus:     bus,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.rules == nil {
		e.rules = DefaultRuleEngine(e.tiers)
	}
	return e
}

// DefaultRuleEngine emits level-up events on tier changes.
func DefaultRuleEngine(tiers []core.LevelTier) RuleEngine {
	return &simpleRuleEngine{rules: []core.Rule{core.LevelUpRule{Tiers: tiers}}}
}

func (e *Engine) Catalog() *core.Catalog   { return e.catalog }
func (e *Engine) Tiers() []core.LevelTier  { return append([]core.LevelTier(nil), e.tiers...) }
func (e *Engine) Bus() *EventBus           { return e.bus }
func (e *Engine) Board() leaderboard.Board { return e.board }

// Subscribe convenience method.
func (e *Engine) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return e.bus.Subscribe(typ, handler)
}

// UpdateStatistic adds delta to a counter, or inserts delta as an element into
// a set statistic, persists the record and returns the achievements unlocked
// as a result in catalog order.
//
// Unknown keys, negative or non-finite counter deltas and non-integral set
// elements are ignored: nothing is stored and no error is returned.
func (e *Engine) UpdateStatistic(ctx context.Context, user core.UserID, key core.StatKey, delta float64) ([]core.AchievementDefinition, error) {
	kind, ok := e.schema.Kind(key)
	if !ok {
		e.logger.Debug("ignoring unknown statistic", "user", user, "stat", key)
		return nil, nil
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		e.logger.Warn("ignoring non-finite delta", "user", user, "stat", key)
		return nil, nil
	}
	switch kind {
	case core.KindCounter:
		if delta < 0 {
			e.logger.Warn("ignoring negative delta", "user", user, "stat", key, "delta", delta)
			return nil, nil
		}
	case core.KindSet:
		if delta != math.Trunc(delta) {
			e.logger.Warn("ignoring non-integral set element", "user", user, "stat", key, "value", delta)
			return nil, nil
		}
	}

	unlock := e.locks.lock(user)
	defer unlock()

	rec, err := e.load(ctx, user)
	if err != nil {
		return nil, err
	}
	cur := rec.Stats[key]
	switch kind {
	case core.KindCounter:
		rec.Stats[key] = core.Counter(cur.Count + delta)
	case core.KindSet:
		elem := int64(delta)
		if !cur.Has(elem) {
			next := cur.Clone()
			next.Set[elem] = struct{}{}
			rec.Stats[key] = next
		}
	}
	if err := e.save(ctx, &rec); err != nil {
		return nil, err
	}
	e.emit(ctx, rec, core.NewStatUpdated(user, key, delta))
	return e.evaluate(ctx, &rec)
}

// CheckAchievements unlocks whatever the stored statistics already satisfy.
func (e *Engine) CheckAchievements(ctx context.Context, user core.UserID) ([]core.AchievementDefinition, error) {
	unlock := e.locks.lock(user)
	defer unlock()
	rec, err := e.load(ctx, user)
	if err != nil {
		return nil, err
	}
	return e.evaluate(ctx, &rec)
}

// Record returns the user's progress record, or a fresh default one.
func (e *Engine) Record(ctx context.Context, user core.UserID) (core.Record, error) {
	return e.load(ctx, user)
}

// Level computes the user's rank from their point total.
func (e *Engine) Level(ctx context.Context, user core.UserID) (core.Level, error) {
	rec, err := e.load(ctx, user)
	if err != nil {
		return core.Level{}, err
	}
	return core.ComputeLevel(rec.TotalPoints, e.tiers), nil
}

// ListUnlocked returns the user's unlocked achievements in catalog order.
func (e *Engine) ListUnlocked(ctx context.Context, user core.UserID) ([]core.AchievementDefinition, error) {
	rec, err := e.load(ctx, user)
	if err != nil {
		return nil, err
	}
	return e.catalog.Unlocked(rec), nil
}

// ListLocked returns the user's locked achievements, closest first.
func (e *Engine) ListLocked(ctx context.Context, user core.UserID) ([]core.LockedAchievement, error) {
	rec, err := e.load(ctx, user)
	if err != nil {
		return nil, err
	}
	return e.catalog.Locked(rec), nil
}

// Summary renders the user's progress as chat text.
func (e *Engine) Summary(ctx context.Context, user core.UserID) (string, error) {
	rec, err := e.load(ctx, user)
	if err != nil {
		return "", err
	}
	return notify.Summary(rec, core.ComputeLevel(rec.TotalPoints, e.tiers), e.catalog.Len()), nil
}

// Screen renders the compact achievements screen.
func (e *Engine) Screen(ctx context.Context, user core.UserID) (string, error) {
	rec, err := e.load(ctx, user)
	if err != nil {
		return "", err
	}
	lvl := core.ComputeLevel(rec.TotalPoints, e.tiers)
	return notify.Screen(lvl, e.catalog.Unlocked(rec), e.catalog.Locked(rec)), nil
}

// Details renders the summary followed by every achievement with progress bars.
func (e *Engine) Details(ctx context.Context, user core.UserID) (string, error) {
	rec, err := e.load(ctx, user)
	if err != nil {
		return "", err
	}
	lvl := core.ComputeLevel(rec.TotalPoints, e.tiers)
	summary := notify.Summary(rec, lvl, e.catalog.Len())
	return notify.Details(summary, e.catalog.Unlocked(rec), e.catalog.Locked(rec)), nil
}

// Leaderboard returns the top n users by points. Empty without a board.
func (e *Engine) Leaderboard(n int) []leaderboard.Entry {
	if e.board == nil {
		return nil
	}
	return e.board.TopN(n)
}

// RebuildLeaderboard loads every stored user into the board. Stores that
// cannot enumerate users leave the board untouched.
func (e *Engine) RebuildLeaderboard(ctx context.Context) (int, error) {
	if e.board == nil {
		return 0, nil
	}
	en, ok := e.store.(Enumerator)
	if !ok {
		e.logger.Info("store cannot list users, leaderboard starts empty")
		return 0, nil
	}
	users, err := en.Users(ctx)
	if err != nil {
		return 0, &core.StorageError{Op: "list", Err: err}
	}
	n := 0
	for _, u := range users {
		rec, err := e.load(ctx, u)
		if err != nil {
			return n, err
		}
		if rec.TotalPoints > 0 {
			e.board.Update(u, rec.TotalPoints)
			n++
		}
	}
	return n, nil
}

// Ping checks that the store answers reads.
func (e *Engine) Ping(ctx context.Context) error {
	_, _, err := e.store.Load(ctx, core.UserID(math.MaxInt64))
	if err != nil && !errors.Is(err, core.ErrMalformedRecord) {
		return &core.StorageError{Op: "ping", Err: err}
	}
	return nil
}

func (e *Engine) Close() { e.bus.Close() }

func (e *Engine) load(ctx context.Context, user core.UserID) (core.Record, error) {
	if user <= 0 {
		return core.Record{}, fmt.Errorf("user id %d must be positive", user)
	}
	rec, found, err := e.store.Load(ctx, user)
	switch {
	case errors.Is(err, core.ErrMalformedRecord):
		e.logger.Warn("malformed progress record, starting fresh", "user", user, "error", err)
		return core.NewRecord(user, e.schema), nil
	case err != nil:
		return core.Record{}, &core.StorageError{Op: "load", User: user, Err: err}
	case !found:
		return core.NewRecord(user, e.schema), nil
	}
	rec.UserID = user
	if reset := e.schema.Normalize(&rec); len(reset) > 0 {
		e.logger.Warn("reset statistics with unexpected shape", "user", user, "stats", reset)
	}
	return rec, nil
}

func (e *Engine) save(ctx context.Context, rec *core.Record) error {
	rec.Updated = e.now().UTC()
	if err := e.store.Save(ctx, *rec); err != nil {
		return &core.StorageError{Op: "save", User: rec.UserID, Err: err}
	}
	return nil
}

// evaluate unlocks due achievements one at a time, saving after each so a
// failure never leaves points without the matching unlock.
func (e *Engine) evaluate(ctx context.Context, rec *core.Record) ([]core.AchievementDefinition, error) {
	var unlocked []core.AchievementDefinition
	for _, def := range e.catalog.Evaluate(*rec) {
		if !rec.Unlock(def) {
			continue
		}
		if err := e.save(ctx, rec); err != nil {
			return unlocked, err
		}
		unlocked = append(unlocked, def)
		e.logger.Info("achievement unlocked", "user", rec.UserID, "achievement", def.ID, "points", def.Points, "total", rec.TotalPoints)
		e.emit(ctx, *rec, core.NewAchievementUnlocked(rec.UserID, def, rec.TotalPoints))
	}
	return unlocked, nil
}

func (e *Engine) emit(ctx context.Context, rec core.Record, ev core.Event) {
	if ev.Type == core.EventAchievementUnlocked && e.board != nil {
		e.board.Update(ev.UserID, ev.Total)
	}
	e.bus.Publish(ctx, ev)
	for _, d := range e.rules.Evaluate(ctx, rec, ev) {
		e.bus.Publish(ctx, d)
	}
}

type simpleRuleEngine struct{ rules []core.Rule }

func (s *simpleRuleEngine) Evaluate(ctx context.Context, state core.Record, trigger core.Event) []core.Event {
	var out []core.Event
	for _, r := range s.rules {
		out = append(out, r.Evaluate(ctx, state, trigger)...)
	}
	return out
}
