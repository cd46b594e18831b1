package signalsource

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/signaldock/signaldock/internal/config"
	"github.com/signaldock/signaldock/internal/model"
)

// FilesystemSource watches a set of root directories via fsnotify and
// emits a SignalEvent per filtered filesystem change. Unlike the
// polled sources, its producer is the fsnotify watcher's own OS-backed
// goroutine; this source bridges those callbacks onto a bounded
// internal queue so a slow consumer cannot block the OS watcher thread
// (§5: "the OS watcher thread is never blocked waiting on the bus").
type FilesystemSource struct {
	*baseSource

	roots        []string
	includeGlobs []string
	ignoreGlobs  []string

	watcher *fsnotify.Watcher
	queue   chan fsnotify.Event
	wg      sync.WaitGroup
}

// NewFilesystemSource constructs a filesystem signal source named
// "filesystem". backlog bounds the internal queue between the fsnotify
// callback and the event-emitting goroutine; once full, the oldest
// queued entry is dropped to make room for the newest (§4.1).
func NewFilesystemSource(cfg config.FilesystemSourceConfig, logger *slog.Logger) (*FilesystemSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backlog := cfg.QueueBacklog
	if backlog <= 0 {
		backlog = 256
	}
	s := &FilesystemSource{
		roots:        cfg.Roots,
		includeGlobs: cfg.IncludeGlobs,
		ignoreGlobs:  cfg.IgnoreGlobs,
		queue:        make(chan fsnotify.Event, backlog),
	}
	// interval is unused by FilesystemSource: its lifecycle is driven by
	// fsnotify callbacks, not a ticker, so poll is never invoked.
	s.baseSource = newBaseSource("filesystem", "filesystem", 0, func(context.Context) ([]model.SignalEvent, error) {
		return nil, nil
	}, logger)
	return s, nil
}

// Start begins watching the configured root directories. Overrides
// baseSource.Start's ticker loop with an fsnotify-driven one.
func (s *FilesystemSource) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("filesystem source: create watcher: %w", err)
	}
	for _, root := range s.roots {
		if err := watcher.Add(root); err != nil {
			watcher.Close()
			s.running.Store(false)
			return fmt.Errorf("filesystem source: watch %s: %w", root, err)
		}
	}
	s.watcher = watcher

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.wg.Add(2)
	go s.bridgeLoop(runCtx)
	go s.emitLoop(runCtx)

	go func() {
		s.wg.Wait()
		watcher.Close()
		close(s.done)
	}()

	return nil
}

// Stop halts watching and waits for both internal goroutines to exit,
// guaranteeing no subscriber callback fires after Stop returns.
func (s *FilesystemSource) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.cancel()
	<-s.done
	return nil
}

// bridgeLoop drains the fsnotify watcher's own channel onto the bounded
// internal queue, dropping the oldest queued entry on overflow so the
// OS watcher thread is never blocked by select/default backpressure.
func (s *FilesystemSource) bridgeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("filesystem source: watcher error", "error", err)
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			select {
			case s.queue <- ev:
			default:
				// Queue full: drop the oldest to admit the newest.
				select {
				case <-s.queue:
				default:
				}
				select {
				case s.queue <- ev:
				default:
				}
			}
		}
	}
}

// emitLoop drains the internal queue, applies include/ignore filtering,
// and emits a SignalEvent per surviving fsnotify event.
func (s *FilesystemSource) emitLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.queue:
			if !s.matches(ev.Name) {
				continue
			}
			s.notify(s.toSignalEvent(ev))
		}
	}
}

func (s *FilesystemSource) matches(path string) bool {
	for _, pattern := range s.ignoreGlobs {
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return false
		}
	}
	if len(s.includeGlobs) == 0 {
		return true
	}
	for _, pattern := range s.includeGlobs {
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

func (s *FilesystemSource) toSignalEvent(ev fsnotify.Event) model.SignalEvent {
	eventType := model.EventModified
	switch {
	case ev.Op&fsnotify.Create != 0:
		eventType = model.EventCreated
	case ev.Op&fsnotify.Remove != 0:
		eventType = model.EventDeleted
	case ev.Op&fsnotify.Rename != 0:
		eventType = model.EventMoved
	case ev.Op&fsnotify.Write != 0:
		eventType = model.EventModified
	}
	data := map[string]any{
		"path": ev.Name,
		"op":   ev.Op.String(),
	}
	return s.emit(eventType, data, nil)
}

// ConfigSchema documents the tunable parameters this source accepts.
func (s *FilesystemSource) ConfigSchema() map[string]ParamSchema {
	return map[string]ParamSchema{
		"roots":          {Type: "array", Description: "directories to watch"},
		"include_globs":  {Type: "array", Description: "only emit for basenames matching one of these globs"},
		"ignore_globs":   {Type: "array", Description: "never emit for basenames matching one of these globs"},
		"queue_backlog":  {Type: "integer", Description: "bounded queue size between OS watcher and emitter", Default: 256},
	}
}
