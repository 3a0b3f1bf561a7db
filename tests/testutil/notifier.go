package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/labeltasks/internal/notify"
)

// Scheduled records one ScheduleOneShot call.
type Scheduled struct {
	Handle       string
	Delay        time.Duration
	Notification notify.Notification
}

// FakeNotifier is a notify.Notifier that records every call. Handles are
// issued as h-1, h-2, ...
type FakeNotifier struct {
	mu sync.Mutex

	granted        bool
	grantOnRequest bool
	scheduleErr    error
	cancelErr      error

	requests  int
	next      int
	scheduled []Scheduled
	cancelled []string
	live      map[string]bool
}

// NewFakeNotifier returns a notifier with permission already granted.
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{granted: true, live: make(map[string]bool)}
}

// Deny revokes permission. When grantOnRequest is true, the next
// RequestPermission grants it again.
func (f *FakeNotifier) Deny(grantOnRequest bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted = false
	f.grantOnRequest = grantOnRequest
}

// FailSchedule makes every later ScheduleOneShot return err.
func (f *FakeNotifier) FailSchedule(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduleErr = err
}

// FailCancel makes every later Cancel return err.
func (f *FakeNotifier) FailCancel(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelErr = err
}

// Forget drops all live handles, as a restart of an in-process
// scheduler would.
func (f *FakeNotifier) Forget() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = make(map[string]bool)
}

func (f *FakeNotifier) PermissionGranted(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granted, nil
}

func (f *FakeNotifier) RequestPermission(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.grantOnRequest {
		f.granted = true
	}
	return f.granted, nil
}

func (f *FakeNotifier) ScheduleOneShot(
	ctx context.Context,
	delay time.Duration,
	n notify.Notification,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.scheduleErr != nil {
		return "", f.scheduleErr
	}
	f.next++
	handle := fmt.Sprintf("h-%d", f.next)
	f.scheduled = append(f.scheduled, Scheduled{Handle: handle, Delay: delay, Notification: n})
	f.live[handle] = true
	return handle, nil
}

func (f *FakeNotifier) Cancel(ctx context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancelled = append(f.cancelled, handle)
	if f.cancelErr != nil {
		return f.cancelErr
	}
	delete(f.live, handle)
	return nil
}

// Has implements notify.Tracker.
func (f *FakeNotifier) Has(handle string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live[handle]
}

// ScheduledCalls returns a copy of the recorded schedules.
func (f *FakeNotifier) ScheduledCalls() []Scheduled {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Scheduled(nil), f.scheduled...)
}

// Cancelled returns a copy of the cancelled handles in call order.
func (f *FakeNotifier) Cancelled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

// Requests returns how many times permission was requested.
func (f *FakeNotifier) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

var (
	_ notify.Notifier = (*FakeNotifier)(nil)
	_ notify.Tracker  = (*FakeNotifier)(nil)
)
