package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/labeltasks/internal/apperr"
)

// LocalScheduler is an in-process Notifier backed by one timer per
// scheduled notification. Timers do not survive a restart; pending
// reminders are re-scheduled from the store on startup.
type LocalScheduler struct {
	mu      sync.Mutex
	granted bool
	prompt  func() bool
	handler DeliveryHandler
	timers  map[string]*time.Timer
	closed  bool
}

// LocalOption configures a LocalScheduler.
type LocalOption func(*LocalScheduler)

// WithPrompt sets the function that answers RequestPermission. Without
// it, a request is granted when the scheduler was created enabled.
func WithPrompt(prompt func() bool) LocalOption {
	return func(s *LocalScheduler) {
		s.prompt = prompt
	}
}

// NewLocalScheduler creates a scheduler. When enabled is false,
// PermissionGranted reports false until a request is granted.
func NewLocalScheduler(enabled bool, opts ...LocalOption) *LocalScheduler {
	s := &LocalScheduler{
		granted: enabled,
		timers:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetHandler registers the delivery callback. It replaces any previous one.
func (s *LocalScheduler) SetHandler(h DeliveryHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// PermissionGranted implements Notifier.
func (s *LocalScheduler) PermissionGranted(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granted, nil
}

// RequestPermission implements Notifier.
func (s *LocalScheduler) RequestPermission(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.granted {
		return true, nil
	}
	if s.prompt != nil && s.prompt() {
		s.granted = true
	}
	return s.granted, nil
}

// ScheduleOneShot implements Notifier.
func (s *LocalScheduler) ScheduleOneShot(
	ctx context.Context,
	delay time.Duration,
	n Notification,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", fmt.Errorf("scheduler is closed")
	}
	if !s.granted {
		return "", fmt.Errorf("scheduling notification for task %s: %w",
			n.Payload.TaskID, apperr.ErrPermissionDenied)
	}
	if delay < 0 {
		delay = 0
	}

	handle := uuid.New().String()
	s.timers[handle] = time.AfterFunc(delay, func() {
		s.fire(handle, n)
	})
	return handle, nil
}

// Cancel implements Notifier.
func (s *LocalScheduler) Cancel(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[handle]; ok {
		t.Stop()
		delete(s.timers, handle)
	}
	return nil
}

// Has reports whether handle is scheduled and has not fired yet.
func (s *LocalScheduler) Has(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[handle]
	return ok
}

// Pending returns the number of notifications that have not fired yet.
func (s *LocalScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops every pending timer. Later schedules fail.
func (s *LocalScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for handle, t := range s.timers {
		t.Stop()
		delete(s.timers, handle)
	}
	s.closed = true
}

// fire delivers n unless its handle was cancelled in the meantime.
func (s *LocalScheduler) fire(handle string, n Notification) {
	s.mu.Lock()
	if _, ok := s.timers[handle]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.timers, handle)
	h := s.handler
	s.mu.Unlock()

	if h == nil {
		log.Printf("notify: delivered %q for task %s with no handler", n.Title, n.Payload.TaskID)
		return
	}
	h(n)
}
