package service

import (
	"context"
	"sync"

	"log/slog"

	"golang.org/x/sync/semaphore"
)

// Handle lets a caller optionally wait for a submitted pass. Most callers
// discard it; the supervisor logs completion either way.
type Handle struct {
	done chan struct{}
	err  error
}

// Done closes when the pass finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the pass outcome after Done closes.
func (h *Handle) Err() error { return h.err }

// Supervisor runs detached scan passes on a bounded pool. Every submitted
// pass logs its completion or failure; silent fire-and-forget is a
// compliance risk here, so there is no path that loses an outcome.
type Supervisor struct {
	sem    *semaphore.Weighted
	logger *slog.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewSupervisor creates a pool admitting at most workers concurrent passes.
func NewSupervisor(workers int, logger *slog.Logger) *Supervisor {
	if workers < 1 {
		workers = 4
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		sem:    semaphore.NewWeighted(int64(workers)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit schedules a pass. The pass runs under the supervisor's lifecycle
// context, not the caller's: the triggering request may finish long before
// the pass does.
func (s *Supervisor) Submit(name string, fn func(ctx context.Context) error) *Handle {
	h := &Handle{done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		h.err = context.Canceled
		close(h.done)
		return h
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer close(h.done)

		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			h.err = err
			s.logger.Warn("background pass not started", "pass", name, "error", err)
			return
		}
		defer s.sem.Release(1)

		s.logger.Info("background pass started", "pass", name)
		if err := fn(s.ctx); err != nil {
			h.err = err
			s.logger.Error("background pass failed", "pass", name, "error", err)
			return
		}
		s.logger.Info("background pass completed", "pass", name)
	}()
	return h
}

// Close stops admitting work, cancels running passes and waits for them.
func (s *Supervisor) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}
