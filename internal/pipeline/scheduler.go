package pipeline

import (
	"sync"
	"time"

	"github.com/signaldock/signaldock/internal/pipeline/policy"
)

// timerScheduler implements policy.Scheduler with one *time.Timer per
// key, cancelled and replaced on every Schedule call — the
// cancel-and-reschedule idiom debounce needs, and the same shape
// Executor.Unload uses to cancel every timer belonging to an unloaded
// pipeline's nodes.
type timerScheduler struct {
	mu     sync.Mutex
	timers map[policy.Key]*time.Timer
}

func newTimerScheduler() *timerScheduler {
	return &timerScheduler{timers: make(map[policy.Key]*time.Timer)}
}

func (s *timerScheduler) Schedule(key policy.Key, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.timers[key]; ok {
		existing.Stop()
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

func (s *timerScheduler) Cancel(key policy.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

// cancelForPipeline stops every pending timer whose key belongs to
// pipelineID, used by Executor.Unload.
func (s *timerScheduler) cancelForPipeline(pipelineID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		if key.PipelineID == pipelineID {
			t.Stop()
			delete(s.timers, key)
		}
	}
}
