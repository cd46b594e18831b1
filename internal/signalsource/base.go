package signalsource

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/signaldock/signaldock/internal/model"
)

// pollFunc is implemented by each concrete source. It is called once per
// tick and returns the events to emit (zero or more — cpu emits zero or
// one combined event, filesystem emits one per filtered fsnotify event).
// A returned error is logged and the loop continues; it never stops the
// source (§4.1 failure semantics).
type pollFunc func(ctx context.Context) ([]model.SignalEvent, error)

// baseSource provides the lifecycle, subscriber bookkeeping, and poll
// loop shared by every concrete Source. It mirrors connwatch.Watcher's
// idempotent start/stop-with-drain pattern, generalized from a single
// readiness probe to an arbitrary per-tick poll.
type baseSource struct {
	name       string
	sourceType string
	interval   time.Duration
	poll       pollFunc
	logger     *slog.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	subMu sync.Mutex
	subs  map[int]func(model.SignalEvent)
	subID int

	statusMu  sync.RWMutex
	lastErr   error
	lastValue map[string]any
}

func newBaseSource(name, sourceType string, interval time.Duration, poll pollFunc, logger *slog.Logger) *baseSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &baseSource{
		name:       name,
		sourceType: sourceType,
		interval:   interval,
		poll:       poll,
		logger:     logger,
		subs:       make(map[int]func(model.SignalEvent)),
		lastValue:  map[string]any{},
	}
}

func (b *baseSource) Name() string       { return b.name }
func (b *baseSource) SourceType() string { return b.sourceType }

func (b *baseSource) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.runLoop(runCtx)
	return nil
}

func (b *baseSource) Stop() error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	b.cancel()
	<-b.done
	return nil
}

func (b *baseSource) runLoop(ctx context.Context) {
	defer close(b.done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

// tick runs one poll iteration. A poll error is logged and the loop
// continues — a single failed sample never takes the source down.
func (b *baseSource) tick(ctx context.Context) {
	events, err := b.poll(ctx)
	b.statusMu.Lock()
	b.lastErr = err
	b.statusMu.Unlock()
	if err != nil {
		b.logger.Warn("signalsource: poll failed", "source_type", b.sourceType, "name", b.name, "error", err)
		return
	}
	for _, e := range events {
		b.notify(e)
	}
}

// notify fans an event out to every subscriber. Each callback is
// isolated: a panicking subscriber is recovered and logged, and never
// prevents the remaining subscribers from being notified.
func (b *baseSource) notify(e model.SignalEvent) {
	b.statusMu.Lock()
	b.lastValue = e.Data
	b.statusMu.Unlock()

	b.subMu.Lock()
	callbacks := make([]func(model.SignalEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		callbacks = append(callbacks, fn)
	}
	b.subMu.Unlock()

	for _, fn := range callbacks {
		b.safeCall(fn, e)
	}
}

func (b *baseSource) safeCall(fn func(model.SignalEvent), e model.SignalEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("signalsource: subscriber callback panicked",
				"source_type", b.sourceType, "name", b.name, "panic", r)
		}
	}()
	fn(e)
}

func (b *baseSource) Subscribe(fn func(model.SignalEvent)) func() {
	b.subMu.Lock()
	id := b.subID
	b.subID++
	b.subs[id] = fn
	b.subMu.Unlock()

	return func() {
		b.subMu.Lock()
		delete(b.subs, id)
		b.subMu.Unlock()
	}
}

func (b *baseSource) Status() Status {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()
	st := Status{Running: b.running.Load()}
	if b.lastErr != nil {
		st.Error = b.lastErr.Error()
	}
	return st
}

func (b *baseSource) CurrentValues() map[string]any {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()
	out := make(map[string]any, len(b.lastValue))
	for k, v := range b.lastValue {
		out[k] = v
	}
	return out
}

func (b *baseSource) emit(eventType model.EventType, data, metadata map[string]any) model.SignalEvent {
	return model.NewSignalEvent(b.sourceType, b.name, eventType, data, metadata)
}
