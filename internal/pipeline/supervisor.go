package pipeline

import (
	"context"
	"sync"
)

// RunHandle identifies one run occupying the supervisor's slot.
type RunHandle struct {
	Contest string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Supervisor serializes collection runs: at most one is in flight.
// Starting a run for the contest that is already running is refused;
// starting one for a different contest cancels the active run and
// waits for it to wind down first.
type Supervisor struct {
	mu     sync.Mutex
	active *RunHandle
}

func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Begin reserves the run slot and returns the context the run must
// live under. Every successful Begin must be paired with a Finish.
func (s *Supervisor) Begin(ctx context.Context, contest string) (context.Context, *RunHandle, error) {
	s.mu.Lock()
	for s.active != nil {
		if s.active.Contest == contest {
			s.mu.Unlock()
			return nil, nil, ErrAlreadyRunning
		}
		superseded := s.active
		superseded.cancel()
		s.mu.Unlock()
		<-superseded.done
		s.mu.Lock()
	}

	runCtx, cancel := context.WithCancel(ctx)
	handle := &RunHandle{
		Contest: contest,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.active = handle
	s.mu.Unlock()
	return runCtx, handle, nil
}

// Finish releases the slot held by handle.
func (s *Supervisor) Finish(handle *RunHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == handle {
		s.active = nil
	}
	handle.cancel()
	close(handle.done)
}

// Launch runs fn in its own goroutine under the run slot, releasing
// the slot when fn returns. ctx bounds the run's lifetime; pass a
// long lived context, not a request scoped one.
func (s *Supervisor) Launch(ctx context.Context, contest string, fn func(ctx context.Context)) error {
	runCtx, handle, err := s.Begin(ctx, contest)
	if err != nil {
		return err
	}
	go func() {
		defer s.Finish(handle)
		fn(runCtx)
	}()
	return nil
}

// Cancel aborts the active run, if any. With a contest filter it
// reports true only when the active run matched the filter; a
// mismatched run is aborted anyway since a cancel request always
// means the user wants the scraper quiet.
func (s *Supervisor) Cancel(contest string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return false
	}
	matched := contest == "" || s.active.Contest == contest
	s.active.cancel()
	return matched
}

// Active returns the contest of the run in flight.
func (s *Supervisor) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return "", false
	}
	return s.active.Contest, true
}
