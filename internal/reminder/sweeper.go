package reminder

import (
	"context"
	"log"
	"sync"
	"time"
)

// SweepState represents the current state of the sweeper.
type SweepState int

const (
	SweepIdle SweepState = iota
	SweepRunning
	SweepError
)

// SweepStatus holds the outcome of the most recent pass.
type SweepStatus struct {
	State   SweepState
	LastRun time.Time
	Last    ReconcileResult
	Error   error
}

// sweepTimeout is the maximum time allowed for a single pass.
const sweepTimeout = 30 * time.Second

// defaultSweepInterval is used when no positive interval is configured.
const defaultSweepInterval = 60 * time.Second

// Reconciler is implemented by Coordinator.
type Reconciler interface {
	Reconcile(ctx context.Context) (ReconcileResult, error)
}

// Sweeper runs Reconcile in the background on a fixed interval and on
// demand.
type Sweeper struct {
	rec       Reconciler
	interval  time.Duration
	status    SweepStatus
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	running   bool
	stopped   bool
}

// NewSweeper creates a Sweeper for rec.
func NewSweeper(rec Reconciler, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		rec:       rec,
		interval:  interval,
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the sweep loop. The first pass runs immediately.
// Calling Start on a running or stopped sweeper does nothing.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.loop()
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh
}

// Trigger requests an immediate pass. It never blocks; a request made
// while one is already queued is dropped.
func (s *Sweeper) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the outcome of the most recent pass.
func (s *Sweeper) Status() SweepStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Sweeper) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		case <-s.triggerCh:
			s.sweep()
		}
	}
}

// sweep performs a single pass and records its outcome.
func (s *Sweeper) sweep() {
	s.setState(SweepRunning)

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	res, err := s.rec.Reconcile(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.LastRun = time.Now()
	s.status.Last = res
	s.status.Error = err
	if err != nil {
		s.status.State = SweepError
		log.Printf("reminder: sweep failed: %v", err)
		return
	}
	s.status.State = SweepIdle
	if res.Scheduled > 0 || res.Cleared > 0 {
		log.Printf("reminder: sweep rescheduled %d, cleared %d", res.Scheduled, res.Cleared)
	}
}

func (s *Sweeper) setState(state SweepState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = state
}
