package signalsource

import (
	"context"
	"log/slog"
	"time"

	"github.com/signaldock/signaldock/internal/model"
)

// FocusProbe reads the host's currently active window. Concrete
// implementations are platform-specific (X11/xdotool, AppleScript, the
// Win32 foreground-window API); none is implemented in this core —
// window focus detection is an external collaborator wired at process
// startup, matching the other OS-syscall-backed sources' Non-goal.
type FocusProbe interface {
	ActiveWindow(ctx context.Context) (title, process string, err error)
}

// noopFocusProbe reports no active window. Used when no platform-
// specific probe is wired (headless hosts, CI, unsupported OS); the
// source simply never emits, per §4.1's "capability unavailable" rule.
type noopFocusProbe struct{}

func (noopFocusProbe) ActiveWindow(context.Context) (string, string, error) {
	return "", "", errUnavailable
}

var errUnavailable = errUnavailableErr("window focus probe not available on this host")

type errUnavailableErr string

func (e errUnavailableErr) Error() string { return string(e) }

// WindowFocusSource emits an event each time the host's active window
// (title or owning process) changes.
type WindowFocusSource struct {
	*baseSource
	probe FocusProbe

	lastTitle, lastProcess string
	haveSample             bool
}

// NewWindowFocusSource constructs a window_focus signal source named
// "window_focus". A nil probe falls back to noopFocusProbe.
func NewWindowFocusSource(pollInterval time.Duration, probe FocusProbe, logger *slog.Logger) *WindowFocusSource {
	if probe == nil {
		probe = noopFocusProbe{}
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	s := &WindowFocusSource{probe: probe}
	s.baseSource = newBaseSource("window_focus", "window_focus", pollInterval, s.poll, logger)
	return s
}

func (s *WindowFocusSource) poll(ctx context.Context) ([]model.SignalEvent, error) {
	title, process, err := s.probe.ActiveWindow(ctx)
	if err != nil {
		// Capability unavailable is expected on hosts without a probe
		// wired; do not surface it as a poll failure.
		return nil, nil
	}

	if s.haveSample && title == s.lastTitle && process == s.lastProcess {
		return nil, nil
	}
	s.lastTitle, s.lastProcess, s.haveSample = title, process, true

	data := map[string]any{
		"title":   title,
		"process": process,
	}
	return []model.SignalEvent{s.emit(model.EventStateChanged, data, nil)}, nil
}

// ConfigSchema documents the tunable parameters this source accepts.
func (s *WindowFocusSource) ConfigSchema() map[string]ParamSchema {
	return map[string]ParamSchema{
		"poll_interval_sec": {Type: "integer", Description: "seconds between samples", Default: 2},
	}
}
