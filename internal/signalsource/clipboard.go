package signalsource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/signaldock/signaldock/internal/config"
	"github.com/signaldock/signaldock/internal/model"
)

// ClipboardReader reads the current clipboard text contents. Like
// FocusProbe, the concrete platform implementation (X11 selection,
// NSPasteboard, the Win32 clipboard API) is an external collaborator;
// only the narrow contract lives in this core.
type ClipboardReader interface {
	ReadText(ctx context.Context) (string, error)
}

// ClipboardSource emits an event whenever the clipboard's text content
// hash changes. Per the Non-goal on auto-starting a privacy-sensitive
// source, registering this source does not start it — the process
// entrypoint only starts it when the configured PermissionChecker
// grants the "clipboard_access" tag.
type ClipboardSource struct {
	*baseSource
	reader   ClipboardReader
	lastHash string
}

// NewClipboardSource constructs a clipboard signal source named
// "clipboard".
func NewClipboardSource(cfg config.ClipboardSourceConfig, reader ClipboardReader, logger *slog.Logger) *ClipboardSource {
	interval := time.Duration(cfg.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	s := &ClipboardSource{reader: reader}
	s.baseSource = newBaseSource("clipboard", "clipboard", interval, s.poll, logger)
	return s
}

func (s *ClipboardSource) poll(ctx context.Context) ([]model.SignalEvent, error) {
	if s.reader == nil {
		return nil, nil
	}
	text, err := s.reader.ReadText(ctx)
	if err != nil {
		return nil, nil // unreadable clipboard (e.g. binary content): treat as unavailable, not an error
	}

	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])
	if hash == s.lastHash {
		return nil, nil
	}
	s.lastHash = hash

	data := map[string]any{
		"length":     len(text),
		"content_sha256": hash,
	}
	return []model.SignalEvent{s.emit(model.EventValueChanged, data, nil)}, nil
}

// ConfigSchema documents the tunable parameters this source accepts.
func (s *ClipboardSource) ConfigSchema() map[string]ParamSchema {
	return map[string]ParamSchema{
		"enabled":           {Type: "boolean", Description: "must be true, and clipboard_access permission granted, to start", Default: false},
		"poll_interval_sec": {Type: "integer", Description: "seconds between samples", Default: 2},
	}
}
