package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"hanzikit/core"
)

type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

type handler struct {
	id int64
	fn func(context.Context, core.Event)
}

// BusOption tunes an EventBus.
type BusOption func(*EventBus)

// WithQueueSize sets the async queue capacity.
func WithQueueSize(n int) BusOption {
	return func(b *EventBus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithWorkers sets the number of async dispatch goroutines.
func WithWorkers(n int) BusOption {
	return func(b *EventBus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithBusLogger sets the logger for dropped events and handler panics.
func WithBusLogger(l *slog.Logger) BusOption {
	return func(b *EventBus) {
		if l != nil {
			b.logger = l
		}
	}
}

// EventBus fans events out to handlers registered per event type. Handlers
// run in subscription order. In async mode a bounded queue feeds a worker
// pool and events are dropped, not blocked on, when it is full.
type EventBus struct {
	mode      DispatchMode
	queueSize int
	workers   int
	logger    *slog.Logger

	mu       sync.RWMutex
	handlers map[core.EventType][]handler
	nextID   int64

	queue chan core.Event
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
	// sendMu orders enqueues against Close; closed is guarded by it.
	sendMu  sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewEventBus(mode DispatchMode, opts ...BusOption) *EventBus {
	b := &EventBus{
		mode:      mode,
		queueSize: 2048,
		workers:   4,
		logger:    slog.Default(),
		handlers:  make(map[core.EventType][]handler),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if mode == DispatchAsync {
		b.queue = make(chan core.Event, b.queueSize)
		for i := 0; i < b.workers; i++ {
			b.wg.Add(1)
			go b.work()
		}
	}
	return b
}

func (b *EventBus) work() {
	defer b.wg.Done()
	for {
		select {
		case ev := <-b.queue:
			b.dispatch(context.Background(), ev)
		case <-b.done:
			// flush what was queued before Close
			for {
				select {
				case ev := <-b.queue:
					b.dispatch(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}

// Close stops async workers once the queue is flushed. Later publishes are
// dropped. Safe to call more than once.
func (b *EventBus) Close() {
	b.once.Do(func() {
		b.sendMu.Lock()
		b.closed = true
		b.sendMu.Unlock()
		close(b.done)
		b.wg.Wait()
	})
}

// Dropped counts async events discarded because the queue was full or the
// bus was closed.
func (b *EventBus) Dropped() int64 { return b.dropped.Load() }

// Subscribe registers fn for one event type and returns its unsubscribe func.
func (b *EventBus) Subscribe(typ core.EventType, fn func(context.Context, core.Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[typ] = append(b.handlers[typ], handler{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers[typ] = slices.DeleteFunc(b.handlers[typ], func(h handler) bool { return h.id == id })
	}
}

// SubscribeAll registers fn for every engine event type.
func (b *EventBus) SubscribeAll(fn func(context.Context, core.Event)) func() {
	unsubs := []func(){
		b.Subscribe(core.EventStatUpdated, fn),
		b.Subscribe(core.EventAchievementUnlocked, fn),
		b.Subscribe(core.EventLevelUp, fn),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Publish delivers ev inline in sync mode or enqueues it in async mode.
func (b *EventBus) Publish(ctx context.Context, ev core.Event) {
	if b.mode == DispatchSync {
		b.dispatch(ctx, ev)
		return
	}
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		b.logger.Debug("event bus closed, dropping event", "type", ev.Type, "user", ev.UserID)
		return
	}
	select {
	case b.queue <- ev:
	default:
		b.dropped.Add(1)
		b.logger.Warn("event bus queue full, dropping event", "type", ev.Type, "user", ev.UserID)
	}
}

func (b *EventBus) dispatch(ctx context.Context, ev core.Event) {
	b.mu.RLock()
	hs := slices.Clone(b.handlers[ev.Type])
	b.mu.RUnlock()
	for _, h := range hs {
		b.call(ctx, h, ev)
	}
}

// call runs one handler, containing panics so one bad subscriber cannot stop
// the others or kill a worker.
func (b *EventBus) call(ctx context.Context, h handler, ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "type", ev.Type, "user", ev.UserID, "panic", r)
		}
	}()
	h.fn(ctx, ev)
}
