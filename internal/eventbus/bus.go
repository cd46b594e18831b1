// Package eventbus provides a publish/subscribe broadcast bus for
// model.SignalEvent. Subscribers receive events on buffered channels;
// a slow subscriber misses events rather than blocking the publisher.
// The bus is nil-safe: calling Publish on a nil *Bus is a no-op, so
// signal sources do not need guard checks around a bus that might not
// be wired.
package eventbus

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/signaldock/signaldock/internal/model"
)

// Bus is a non-blocking broadcast event bus. Two independent Bus
// instances are typically wired in a running process — one feeding the
// pipeline executor, one feeding the WebSocket hub's "events" channel —
// so a slow hub subscriber can never cause the executor to miss events.
//
// Publish only guarantees per-subscriber-channel ordering for events
// from a single source instance, because each source publishes from a
// single goroutine: two distinct sources racing to Publish concurrently
// may interleave, but one source's own events never reorder.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan model.SignalEvent]struct{}
	// recvToSend maps the receive-only channel returned by Subscribe
	// back to the bidirectional channel stored in subs, so Unsubscribe
	// can accept the caller's <-chan view without an illegal conversion.
	recvToSend map[<-chan model.SignalEvent]chan model.SignalEvent

	dropped atomic.Int64
	logger  *slog.Logger
}

// New creates a new event bus ready for use. A nil logger disables the
// first-drop warning log line.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:       make(map[chan model.SignalEvent]struct{}),
		recvToSend: make(map[<-chan model.SignalEvent]chan model.SignalEvent),
		logger:     logger,
	}
}

// Publish sends an event to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber and the drop counter is incremented. Safe to call on a nil
// receiver (no-op).
func (b *Bus) Publish(e model.SignalEvent) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			if b.dropped.Add(1) == 1 && b.logger != nil {
				b.logger.Warn("eventbus: subscriber channel full, dropping newest event",
					"source_type", e.SourceType, "source_name", e.SourceName)
			}
		}
	}
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe to avoid resource leaks.
func (b *Bus) Subscribe(bufSize int) <-chan model.SignalEvent {
	ch := make(chan model.SignalEvent, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed (no-op).
func (b *Bus) Unsubscribe(ch <-chan model.SignalEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// DroppedCount returns the total number of events dropped across all
// subscribers since the bus was created.
func (b *Bus) DroppedCount() int64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}
