// Package signalsource defines the Source interface every signal
// producer implements (cpu, battery, network, window focus, filesystem,
// clipboard) and the shared polling/lifecycle scaffolding they embed.
package signalsource

import (
	"context"

	"github.com/signaldock/signaldock/internal/model"
)

// ParamSchema describes one configuration parameter a source accepts,
// returned by ConfigSchema for discovery/documentation purposes.
type ParamSchema struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// Status reports a source's current lifecycle state.
type Status struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

// Source is a long-lived producer of SignalEvents. A Source is started
// once, runs its own poll loop (or OS-callback bridge, for filesystem),
// and is stopped once. Stop must guarantee no subscriber callback fires
// after it returns.
type Source interface {
	// Name identifies this source instance ("cpu", "filesystem:downloads").
	Name() string
	// SourceType is the closed identifier shared by every instance of
	// this source kind ("cpu", "battery", "network", "window_focus",
	// "filesystem", "clipboard").
	SourceType() string

	// Start begins producing events. Starting an already-started source
	// is a no-op.
	Start(ctx context.Context) error
	// Stop halts production and waits for the producer goroutine to
	// exit. Stopping an already-stopped source is a no-op.
	Stop() error

	// Subscribe registers a callback invoked for every emitted event.
	// The returned func removes the subscription. Safe to call before
	// or after Start.
	Subscribe(fn func(model.SignalEvent)) (unsubscribe func())

	// Status reports whether the source is currently running.
	Status() Status
	// CurrentValues returns a point-in-time snapshot of the source's
	// last observed values, independent of whether a new event fired.
	CurrentValues() map[string]any
	// ConfigSchema documents the tunable parameters this source accepts.
	ConfigSchema() map[string]ParamSchema
}
