package reminder

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingReconciler struct {
	calls chan struct{}
	err   error
}

func (r *countingReconciler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	select {
	case r.calls <- struct{}{}:
	default:
	}
	return ReconcileResult{Scheduled: 1}, r.err
}

func waitCall(t *testing.T, r *countingReconciler) {
	t.Helper()
	select {
	case <-r.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("reconcile was not called")
	}
}

func TestSweeperRunsImmediatelyAndOnTrigger(t *testing.T) {
	rec := &countingReconciler{calls: make(chan struct{}, 4)}
	s := NewSweeper(rec, time.Hour)

	s.Start()
	s.Start()
	waitCall(t, rec)

	s.Trigger()
	waitCall(t, rec)

	s.Stop()
	s.Stop()

	status := s.Status()
	if status.State != SweepIdle || status.Last.Scheduled != 1 || status.LastRun.IsZero() {
		t.Errorf("status = %+v", status)
	}

	// A stopped sweeper stays stopped.
	s.Start()
	select {
	case <-rec.calls:
		t.Error("reconcile ran after stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSweeperRecordsErrors(t *testing.T) {
	rec := &countingReconciler{calls: make(chan struct{}, 4), err: errors.New("db locked")}
	s := NewSweeper(rec, time.Hour)

	s.Start()
	waitCall(t, rec)
	s.Stop()

	status := s.Status()
	if status.State != SweepError || status.Error == nil {
		t.Errorf("status = %+v, want error state", status)
	}
}

func TestSweeperTicks(t *testing.T) {
	rec := &countingReconciler{calls: make(chan struct{}, 8)}
	s := NewSweeper(rec, 10*time.Millisecond)

	s.Start()
	defer s.Stop()

	for i := 0; i < 3; i++ {
		waitCall(t, rec)
	}
}
