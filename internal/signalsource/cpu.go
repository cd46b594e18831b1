package signalsource

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	gopsutilcpu "github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/signaldock/signaldock/internal/config"
	"github.com/signaldock/signaldock/internal/model"
)

// significantChangeThreshold is the minimum percentage-point delta
// (on either cpu_percent or ram_percent) required to emit an event when
// neither metric has crossed a threshold boundary. Mirrors the
// original's 5.0-point debounce so a noisy but unremarkable CPU graph
// doesn't flood the bus every poll.
const significantChangeThreshold = 5.0

// cpuSample is what one poll iteration measures. Abstracted behind
// sampleFunc so tests can drive the threshold ladder without real
// gopsutil calls.
type cpuSample struct {
	cpuPercent   float64
	ramPercent   float64
	ramUsedBytes uint64
	ramTotalBytes uint64
	cpuCount     int
	cpuFreqMHz   float64
}

type sampleFunc func(ctx context.Context) (cpuSample, error)

// CPUSource samples host CPU and RAM utilization via gopsutil and emits
// a combined event when either metric moves significantly or crosses a
// configured threshold.
type CPUSource struct {
	*baseSource
	cfg        config.CPUSourceConfig
	thresholds *ThresholdTracker
	sample     sampleFunc

	lastCPU, lastRAM float64
	haveSample       bool
}

// NewCPUSource constructs a cpu signal source named "cpu".
func NewCPUSource(cfg config.CPUSourceConfig, logger *slog.Logger) *CPUSource {
	s := &CPUSource{
		cfg:        cfg,
		thresholds: NewThresholdTracker(),
		sample:     gopsutilSample,
	}
	s.thresholds.SetThreshold("cpu", cfg.CPULowPercent, cfg.CPUHighPercent)
	s.thresholds.SetThreshold("ram", 0, cfg.RAMHighPercent)
	s.baseSource = newBaseSource("cpu", "cpu", time.Duration(cfg.PollIntervalSec)*time.Second, s.poll, logger)
	return s
}

func gopsutilSample(ctx context.Context) (cpuSample, error) {
	percents, err := gopsutilcpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return cpuSample{}, fmt.Errorf("cpu source: sample cpu percent: %w", err)
	}
	if len(percents) == 0 {
		return cpuSample{}, fmt.Errorf("cpu source: no cpu percent samples returned")
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return cpuSample{}, fmt.Errorf("cpu source: sample memory: %w", err)
	}

	counts, _ := gopsutilcpu.CountsWithContext(ctx, true)
	freq, _ := gopsutilcpu.InfoWithContext(ctx)
	freqMHz := 0.0
	if len(freq) > 0 {
		freqMHz = freq[0].Mhz
	}

	return cpuSample{
		cpuPercent:    percents[0],
		ramPercent:    vm.UsedPercent,
		ramUsedBytes:  vm.Used,
		ramTotalBytes: vm.Total,
		cpuCount:      counts,
		cpuFreqMHz:    freqMHz,
	}, nil
}

func (s *CPUSource) poll(ctx context.Context) ([]model.SignalEvent, error) {
	sample, err := s.sample(ctx)
	if err != nil {
		return nil, err
	}
	cpuPct := sample.cpuPercent
	ramPct := sample.ramPercent

	type change struct {
		Metric   string  `json:"metric"`
		Value    float64 `json:"value"`
		Crossed  bool    `json:"crossed_threshold"`
		NewState string  `json:"new_state,omitempty"`
	}
	var changes []change
	crossedAny := false

	cpuDelta := math.Abs(cpuPct - s.lastCPU)
	ramDelta := math.Abs(ramPct - s.lastRAM)

	cpuState, cpuChanged := s.thresholds.Check("cpu", cpuPct)
	ramState, ramChanged := s.thresholds.Check("ram", ramPct)

	significant := !s.haveSample || cpuDelta >= significantChangeThreshold || ramDelta >= significantChangeThreshold || cpuChanged || ramChanged

	if !significant {
		return nil, nil
	}

	// Baseline only moves on emit, so the delta is always measured
	// against the last *emitted* value — a slow ramp that moves less
	// than the threshold per poll still accumulates toward it instead
	// of resetting its baseline every tick.
	s.lastCPU, s.lastRAM = cpuPct, ramPct
	s.haveSample = true

	if cpuChanged {
		changes = append(changes, change{Metric: "cpu", Value: cpuPct, Crossed: true, NewState: cpuState})
		crossedAny = true
	}
	if ramChanged {
		changes = append(changes, change{Metric: "ram", Value: ramPct, Crossed: true, NewState: ramState})
		crossedAny = true
	}

	eventType := model.EventValueChanged
	if crossedAny {
		eventType = model.EventThresholdCrossed
	}

	data := map[string]any{
		"cpu_percent":  cpuPct,
		"ram_percent":  ramPct,
		"ram_used_gb":  float64(sample.ramUsedBytes) / (1 << 30),
		"ram_total_gb": float64(sample.ramTotalBytes) / (1 << 30),
		"changes":      changes,
	}
	metadata := map[string]any{
		"cpu_count": sample.cpuCount,
		"cpu_freq":  sample.cpuFreqMHz,
	}

	return []model.SignalEvent{s.emit(eventType, data, metadata)}, nil
}

// ConfigSchema documents the tunable parameters this source accepts.
func (s *CPUSource) ConfigSchema() map[string]ParamSchema {
	return map[string]ParamSchema{
		"poll_interval_sec": {Type: "integer", Description: "seconds between samples", Default: 5},
		"cpu_low_percent":   {Type: "number", Description: "cpu percent at/below which state is low", Default: 0},
		"cpu_high_percent":  {Type: "number", Description: "cpu percent at/above which state is high", Default: 85},
		"ram_high_percent":  {Type: "number", Description: "ram percent at/above which state is high", Default: 90},
	}
}
