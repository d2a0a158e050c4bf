// cmd/aozora/scheduler.go
package main

import (
	"context"
	"sync"
	"time"
)

type pipelineRunner interface {
	RunOnce(ctx context.Context) (RunResult, error)
}

// Scheduler owns the single background loop that re-runs the pipeline on a
// fixed interval. Start replaces any previous loop only after it has fully
// exited, so at most one loop is ever alive; Stop is cooperative and waits
// out an in-flight run rather than interrupting it.
type Scheduler struct {
	runner pipelineRunner

	// lifecycle serializes whole Start/Stop sequences. Without it two
	// concurrent Starts could both see an idle scheduler, both skip the
	// stop, and install two loops, the first of which becomes unreachable
	// once its channels are overwritten.
	lifecycle sync.Mutex

	mutex    sync.Mutex
	running  bool
	interval time.Duration
	done     chan struct{}
	finished chan struct{}
}

// NewScheduler creates an idle scheduler over the given runner
func NewScheduler(runner pipelineRunner) *Scheduler {
	return &Scheduler{runner: runner}
}

// Start begins a new loop running every intervalMinutes. A loop that is
// already running is stopped first, with a full join, before the new one is
// installed.
func (s *Scheduler) Start(intervalMinutes int) error {
	if intervalMinutes <= 0 {
		return NewSchedulerError(ErrSchedulerInterval, "interval must be a positive number of minutes", nil)
	}
	return s.start(time.Duration(intervalMinutes) * time.Minute)
}

func (s *Scheduler) start(interval time.Duration) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopCurrent()

	s.mutex.Lock()
	s.running = true
	s.interval = interval
	s.done = make(chan struct{})
	s.finished = make(chan struct{})
	go s.loop(s.done, s.finished, interval)
	s.mutex.Unlock()

	Logger().Info("Scheduler started (every %s)", interval)
	return nil
}

// Stop signals cancellation and waits for the loop goroutine to exit. It is
// a no-op when the scheduler is idle.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopCurrent()
}

// stopCurrent joins the active loop, if any; callers hold lifecycle. Only
// the state mutex is released while waiting, so the loop can still finish
// its in-flight run.
func (s *Scheduler) stopCurrent() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	done, finished := s.done, s.finished
	s.running = false
	s.mutex.Unlock()

	close(done)
	<-finished
	Logger().Info("Scheduler stopped")
}

// Running reports whether a loop is currently active
func (s *Scheduler) Running() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// Interval returns the active interval, or zero when idle
func (s *Scheduler) Interval() time.Duration {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.running {
		return 0
	}
	return s.interval
}

// loop runs the pipeline, then waits out the interval, checking the
// cancellation signal both before each run and during the wait. A failed run
// is logged and never terminates the loop.
func (s *Scheduler) loop(done, finished chan struct{}, interval time.Duration) {
	defer close(finished)

	for {
		select {
		case <-done:
			return
		default:
		}

		result, err := s.runner.RunOnce(context.Background())
		if err != nil {
			if IsTransient(err) {
				Logger().Warning("Scheduled run failed (will retry next interval): %v", err)
			} else {
				Logger().Error("Scheduled run failed: %v", err)
			}
		} else {
			Logger().Info("Scheduled run finished: %s", result.Outcome)
		}

		select {
		case <-done:
			return
		case <-time.After(interval):
		}
	}
}
