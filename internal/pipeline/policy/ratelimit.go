package policy

import (
	"fmt"
	"sync"
	"time"
)

// rateLimitPolicy admits up to maxCount executions per Key within a
// sliding window of windowSeconds, counting only admissions that were
// later Recorded (i.e. actually executed).
type rateLimitPolicy struct {
	maxCount      int
	windowSeconds float64

	mu      sync.Mutex
	history map[Key][]time.Time
}

func newRateLimitPolicy(params map[string]any, _ Scheduler) (Policy, error) {
	maxCountF, ok := params["max_count"].(float64)
	if !ok || maxCountF <= 0 {
		return nil, fmt.Errorf("rate_limit policy: max_count must be a positive number")
	}
	windowSeconds, ok := params["window_seconds"].(float64)
	if !ok || windowSeconds <= 0 {
		return nil, fmt.Errorf("rate_limit policy: window_seconds must be a positive number")
	}
	return &rateLimitPolicy{
		maxCount:      int(maxCountF),
		windowSeconds: windowSeconds,
		history:       map[Key][]time.Time{},
	}, nil
}

func (p *rateLimitPolicy) Admit(key Key, _ map[string]any, _ func(map[string]any)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune(key)
	return len(p.history[key]) < p.maxCount
}

func (p *rateLimitPolicy) Record(key Key, _ map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune(key)
	p.history[key] = append(p.history[key], time.Now())
}

// prune drops timestamps older than the window. Caller holds p.mu.
func (p *rateLimitPolicy) prune(key Key) {
	window := time.Duration(p.windowSeconds * float64(time.Second))
	cutoff := time.Now().Add(-window)
	entries := p.history[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	p.history[key] = kept
}
