package signalsource

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/distatus/battery"

	"github.com/signaldock/signaldock/internal/config"
	"github.com/signaldock/signaldock/internal/model"
)

// BatterySource samples the host's battery state (percent, charging
// status) via distatus/battery and emits on percent delta, a
// plugged/unplugged transition, or a threshold crossing. Hosts with no
// battery (desktops, most servers) simply never emit — this is treated
// as a capability-unavailable condition, not an error (§4.1).
type BatterySource struct {
	*baseSource
	thresholds *ThresholdTracker

	lastPercent  float64
	lastPlugged  bool
	haveSample   bool
}

// NewBatterySource constructs a battery signal source named "battery".
func NewBatterySource(cfg config.BatterySourceConfig, logger *slog.Logger) *BatterySource {
	s := &BatterySource{thresholds: NewThresholdTracker()}
	s.thresholds.SetThreshold("battery", cfg.LowPercent, cfg.HighPercent)
	s.baseSource = newBaseSource("battery", "battery", time.Duration(cfg.PollIntervalSec)*time.Second, s.poll, logger)
	return s
}

func (s *BatterySource) poll(ctx context.Context) ([]model.SignalEvent, error) {
	batteries, err := battery.GetAll()
	if err != nil {
		// A partial failure (some packs readable) still yields data;
		// ErrPartial from the library wraps per-battery errors.
		var partial battery.ErrPartial
		if !errors.As(err, &partial) {
			return nil, nil // no battery sensor present: not an error condition
		}
	}
	if len(batteries) == 0 {
		return nil, nil
	}

	b := batteries[0]
	percent := 0.0
	if b.Full > 0 {
		percent = (b.Current / b.Full) * 100
	}
	plugged := b.State.Raw == battery.Charging || b.State.Raw == battery.Full

	delta := math.Abs(percent - s.lastPercent)
	state, changed := s.thresholds.Check("battery", percent)
	pluggedFlipped := s.haveSample && plugged != s.lastPlugged

	significant := !s.haveSample || delta >= 1.0 || changed || pluggedFlipped
	s.lastPercent, s.lastPlugged, s.haveSample = percent, plugged, true

	if !significant {
		return nil, nil
	}

	eventType := model.EventValueChanged
	if changed {
		eventType = model.EventThresholdCrossed
	} else if pluggedFlipped {
		eventType = model.EventStateChanged
	}

	data := map[string]any{
		"percent": percent,
		"plugged": plugged,
	}
	if changed {
		data["new_state"] = state
	}

	return []model.SignalEvent{s.emit(eventType, data, nil)}, nil
}

// ConfigSchema documents the tunable parameters this source accepts.
func (s *BatterySource) ConfigSchema() map[string]ParamSchema {
	return map[string]ParamSchema{
		"poll_interval_sec": {Type: "integer", Description: "seconds between samples", Default: 30},
		"low_percent":       {Type: "number", Description: "percent at/below which state is low", Default: 20},
		"high_percent":      {Type: "number", Description: "percent at/above which state is high", Default: 95},
	}
}
