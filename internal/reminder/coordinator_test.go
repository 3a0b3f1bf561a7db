package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/labeltasks/internal/apperr"
	"github.com/nhle/labeltasks/internal/model"
	"github.com/nhle/labeltasks/internal/notify"
	"github.com/nhle/labeltasks/internal/store"
	"github.com/nhle/labeltasks/tests/testutil"
)

type fixture struct {
	ctx      context.Context
	store    *store.SQLiteStore
	notifier *testutil.FakeNotifier
	clock    *testutil.Clock
	coord    *Coordinator
	denied   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:      context.Background(),
		notifier: testutil.NewFakeNotifier(),
		clock:    testutil.NewClock(testutil.Epoch),
	}
	f.store = testutil.NewTestStore(t, f.clock)
	f.coord = New(f.store, f.notifier,
		WithClock(f.clock.Now),
		WithPermissionDenied(func() { f.denied++ }),
	)
	return f
}

func (f *fixture) task(t *testing.T, labelTitle, text string) *model.Task {
	t.Helper()
	l, err := f.store.CreateLabel(f.ctx, labelTitle, "#1F78B4", nil)
	if err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}
	task, err := f.store.CreateTask(f.ctx, l.ID, text, nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func (f *fixture) reload(t *testing.T, id string) *model.Task {
	t.Helper()
	task, err := f.store.GetTaskByID(f.ctx, id)
	if err != nil {
		t.Fatalf("GetTaskByID: %v", err)
	}
	return task
}

func (f *fixture) in(d time.Duration) *time.Time {
	at := f.clock.Now().Add(d)
	return &at
}

func handleOf(task *model.Task) string {
	if task.ReminderID == nil {
		return ""
	}
	return *task.ReminderID
}

func TestDelay(t *testing.T) {
	now := testutil.Epoch
	tests := []struct {
		name string
		at   time.Time
		want time.Duration
	}{
		{"whole minutes", now.Add(5 * time.Minute), 5 * time.Minute},
		{"fraction floored", now.Add(5700 * time.Millisecond), 5 * time.Second},
		{"under a second", now.Add(300 * time.Millisecond), time.Second},
		{"in the past", now.Add(-time.Minute), time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delay(now, tt.at); got != tt.want {
				t.Errorf("Delay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduleRequiresFutureTime(t *testing.T) {
	f := newFixture(t)

	task := model.Task{ID: "t1", Text: "Stretch"}
	if h := f.coord.Schedule(f.ctx, task); h != nil {
		t.Errorf("no reminder time: handle = %q", *h)
	}

	task.ReminderDateTime = f.in(-time.Second)
	if h := f.coord.Schedule(f.ctx, task); h != nil {
		t.Errorf("past reminder: handle = %q", *h)
	}

	task.ReminderDateTime = f.in(90 * time.Second)
	h := f.coord.Schedule(f.ctx, task)
	if h == nil {
		t.Fatal("future reminder not scheduled")
	}

	calls := f.notifier.ScheduledCalls()
	if len(calls) != 1 {
		t.Fatalf("schedule calls = %d, want 1", len(calls))
	}
	if calls[0].Delay != 90*time.Second {
		t.Errorf("delay = %v, want 90s", calls[0].Delay)
	}
	if calls[0].Notification.Payload.TaskID != "t1" || calls[0].Notification.Body != "Stretch" {
		t.Errorf("notification = %+v", calls[0].Notification)
	}
}

func TestSchedulePermissionDenied(t *testing.T) {
	f := newFixture(t)
	f.notifier.Deny(false)

	task := model.Task{ID: "t1", Text: "Stretch", ReminderDateTime: f.in(time.Hour)}
	for i := 0; i < 2; i++ {
		if h := f.coord.Schedule(f.ctx, task); h != nil {
			t.Fatalf("scheduled without permission: %q", *h)
		}
	}

	if f.notifier.Requests() != 2 {
		t.Errorf("permission requests = %d, want 2", f.notifier.Requests())
	}
	if f.denied != 1 {
		t.Errorf("denied callback fired %d times, want 1", f.denied)
	}
	if len(f.notifier.ScheduledCalls()) != 0 {
		t.Error("scheduler called without permission")
	}
}

func TestScheduleRequestsPermissionOnce(t *testing.T) {
	f := newFixture(t)
	f.notifier.Deny(true)

	task := model.Task{ID: "t1", Text: "Stretch", ReminderDateTime: f.in(time.Hour)}
	if h := f.coord.Schedule(f.ctx, task); h == nil {
		t.Fatal("not scheduled after permission was granted")
	}
	if h := f.coord.Schedule(f.ctx, task); h == nil {
		t.Fatal("second schedule failed")
	}
	if f.notifier.Requests() != 1 {
		t.Errorf("permission requests = %d, want 1", f.notifier.Requests())
	}
	if f.denied != 0 {
		t.Errorf("denied callback fired %d times", f.denied)
	}
}

func TestSetReminder(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "Work", "Call Bob")

	first := f.in(5 * time.Minute)
	updated, err := f.coord.SetReminder(f.ctx, task.ID, first)
	if err != nil {
		t.Fatalf("SetReminder: %v", err)
	}
	if handleOf(updated) != "h-1" || !updated.ReminderDateTime.Equal(*first) {
		t.Fatalf("after first set: %+v", updated)
	}
	if !updated.HasActiveReminder(f.clock.Now()) {
		t.Error("reminder not active")
	}

	second := f.in(10 * time.Minute)
	updated, err = f.coord.SetReminder(f.ctx, task.ID, second)
	if err != nil {
		t.Fatalf("SetReminder: %v", err)
	}
	if handleOf(updated) != "h-2" {
		t.Errorf("handle = %q, want h-2", handleOf(updated))
	}
	if got := f.notifier.Cancelled(); len(got) != 1 || got[0] != "h-1" {
		t.Errorf("cancelled = %v, want [h-1]", got)
	}

	updated, err = f.coord.SetReminder(f.ctx, task.ID, nil)
	if err != nil {
		t.Fatalf("SetReminder(nil): %v", err)
	}
	if updated.ReminderDateTime != nil || updated.ReminderID != nil {
		t.Errorf("reminder not cleared: %+v", updated)
	}
	if got := f.notifier.Cancelled(); len(got) != 2 || got[1] != "h-2" {
		t.Errorf("cancelled = %v, want [h-1 h-2]", got)
	}
}

func TestSetReminderKeepsTimeWhenSchedulingFails(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "Work", "Call Bob")
	f.notifier.FailSchedule(errors.New("scheduler unavailable"))

	at := f.in(time.Hour)
	updated, err := f.coord.SetReminder(f.ctx, task.ID, at)
	if err != nil {
		t.Fatalf("SetReminder: %v", err)
	}
	if updated.ReminderDateTime == nil || !updated.ReminderDateTime.Equal(*at) {
		t.Errorf("reminder time = %v, want %v", updated.ReminderDateTime, at)
	}
	if updated.ReminderID != nil {
		t.Errorf("handle = %q, want nil", *updated.ReminderID)
	}
}

func TestSetReminderRejectsPastTime(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "Work", "Call Bob")
	if _, err := f.coord.SetReminder(f.ctx, task.ID, f.in(time.Hour)); err != nil {
		t.Fatalf("SetReminder: %v", err)
	}

	for _, d := range []time.Duration{0, -time.Minute} {
		if _, err := f.coord.SetReminder(f.ctx, task.ID, f.in(d)); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("SetReminder(now%+v) err = %v, want validation", d, err)
		}
	}

	if got := f.reload(t, task.ID); handleOf(got) != "h-1" {
		t.Errorf("existing reminder changed: %+v", got)
	}
	if len(f.notifier.Cancelled()) != 0 || len(f.notifier.ScheduledCalls()) != 1 {
		t.Errorf("scheduler touched: cancelled %v, scheduled %d",
			f.notifier.Cancelled(), len(f.notifier.ScheduledCalls()))
	}
}

func TestSetReminderMissingTask(t *testing.T) {
	f := newFixture(t)
	if _, err := f.coord.SetReminder(f.ctx, "missing", f.in(time.Hour)); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
	if len(f.notifier.ScheduledCalls()) != 0 {
		t.Error("scheduled for a missing task")
	}
}

func TestEditTask(t *testing.T) {
	t.Run("text change reschedules", func(t *testing.T) {
		f := newFixture(t)
		task := f.task(t, "Work", "Call Bob")
		at := f.in(time.Hour)
		if _, err := f.coord.SetReminder(f.ctx, task.ID, at); err != nil {
			t.Fatalf("SetReminder: %v", err)
		}

		updated, err := f.coord.EditTask(f.ctx, task.ID, Edit{Text: "Call Alice", ReminderAt: at})
		if err != nil {
			t.Fatalf("EditTask: %v", err)
		}
		if updated.Text != "Call Alice" || handleOf(updated) != "h-2" {
			t.Errorf("edited task = %+v", updated)
		}
		if got := f.notifier.Cancelled(); len(got) != 1 || got[0] != "h-1" {
			t.Errorf("cancelled = %v, want [h-1]", got)
		}
		calls := f.notifier.ScheduledCalls()
		if calls[len(calls)-1].Notification.Body != "Call Alice" {
			t.Errorf("new notification body = %q", calls[len(calls)-1].Notification.Body)
		}
	})

	t.Run("unchanged reminder is kept", func(t *testing.T) {
		f := newFixture(t)
		task := f.task(t, "Work", "Call Bob")
		at := f.in(time.Hour)
		if _, err := f.coord.SetReminder(f.ctx, task.ID, at); err != nil {
			t.Fatalf("SetReminder: %v", err)
		}

		updated, err := f.coord.EditTask(f.ctx, task.ID, Edit{Text: "Call Bob", ReminderAt: at})
		if err != nil {
			t.Fatalf("EditTask: %v", err)
		}
		if handleOf(updated) != "h-1" {
			t.Errorf("handle = %q, want h-1", handleOf(updated))
		}
		if len(f.notifier.Cancelled()) != 0 || len(f.notifier.ScheduledCalls()) != 1 {
			t.Errorf("scheduler touched: cancelled %v, scheduled %d",
				f.notifier.Cancelled(), len(f.notifier.ScheduledCalls()))
		}
	})

	t.Run("removing reminder only cancels", func(t *testing.T) {
		f := newFixture(t)
		task := f.task(t, "Work", "Call Bob")
		if _, err := f.coord.SetReminder(f.ctx, task.ID, f.in(time.Hour)); err != nil {
			t.Fatalf("SetReminder: %v", err)
		}

		updated, err := f.coord.EditTask(f.ctx, task.ID, Edit{Text: "Call Bob later"})
		if err != nil {
			t.Fatalf("EditTask: %v", err)
		}
		if updated.ReminderDateTime != nil || updated.ReminderID != nil {
			t.Errorf("reminder not cleared: %+v", updated)
		}
		if len(f.notifier.Cancelled()) != 1 || len(f.notifier.ScheduledCalls()) != 1 {
			t.Errorf("cancelled %v, scheduled %d", f.notifier.Cancelled(), len(f.notifier.ScheduledCalls()))
		}
	})

	t.Run("adding reminder schedules", func(t *testing.T) {
		f := newFixture(t)
		task := f.task(t, "Work", "Call Bob")

		updated, err := f.coord.EditTask(f.ctx, task.ID, Edit{Text: "Call Bob", ReminderAt: f.in(time.Minute)})
		if err != nil {
			t.Fatalf("EditTask: %v", err)
		}
		if handleOf(updated) != "h-1" {
			t.Errorf("handle = %q, want h-1", handleOf(updated))
		}
		if len(f.notifier.Cancelled()) != 0 {
			t.Errorf("cancelled = %v", f.notifier.Cancelled())
		}
	})

	t.Run("new past time is rejected", func(t *testing.T) {
		f := newFixture(t)
		task := f.task(t, "Work", "Call Bob")

		_, err := f.coord.EditTask(f.ctx, task.ID, Edit{Text: "Call Bob", ReminderAt: f.in(-time.Minute)})
		if !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("err = %v, want validation", err)
		}
		if got := f.reload(t, task.ID); got.ReminderDateTime != nil {
			t.Errorf("past reminder stored: %+v", got)
		}
	})

	t.Run("expired reminder is cleared on edit", func(t *testing.T) {
		f := newFixture(t)
		task := f.task(t, "Work", "Call Bob")
		at := f.in(time.Minute)
		if _, err := f.coord.SetReminder(f.ctx, task.ID, at); err != nil {
			t.Fatalf("SetReminder: %v", err)
		}
		f.clock.Advance(time.Hour)

		updated, err := f.coord.EditTask(f.ctx, task.ID, Edit{Text: "Call Alice", ReminderAt: at})
		if err != nil {
			t.Fatalf("EditTask: %v", err)
		}
		if updated.Text != "Call Alice" || updated.ReminderDateTime != nil || updated.ReminderID != nil {
			t.Errorf("edited task = %+v", updated)
		}
		if len(f.notifier.ScheduledCalls()) != 1 {
			t.Errorf("rescheduled an expired reminder")
		}
	})

	t.Run("blank text is rejected before scheduling", func(t *testing.T) {
		f := newFixture(t)
		task := f.task(t, "Work", "Call Bob")

		_, err := f.coord.EditTask(f.ctx, task.ID, Edit{Text: "  ", ReminderAt: f.in(time.Minute)})
		if !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("err = %v, want validation", err)
		}
		if len(f.notifier.ScheduledCalls()) != 0 {
			t.Error("scheduled despite invalid edit")
		}
		if got := f.reload(t, task.ID); got.Text != "Call Bob" {
			t.Errorf("text = %q", got.Text)
		}
	})
}

func TestToggleCheckedClearsReminder(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "Work", "Call Bob")
	if _, err := f.coord.SetReminder(f.ctx, task.ID, f.in(time.Hour)); err != nil {
		t.Fatalf("SetReminder: %v", err)
	}

	checked, err := f.coord.ToggleChecked(f.ctx, task.ID)
	if err != nil {
		t.Fatalf("ToggleChecked: %v", err)
	}
	if !checked.Checked || checked.ReminderDateTime != nil || checked.ReminderID != nil {
		t.Errorf("checked task = %+v", checked)
	}
	if got := f.notifier.Cancelled(); len(got) != 1 || got[0] != "h-1" {
		t.Errorf("cancelled = %v, want exactly [h-1]", got)
	}

	unchecked, err := f.coord.ToggleChecked(f.ctx, task.ID)
	if err != nil {
		t.Fatalf("ToggleChecked: %v", err)
	}
	if unchecked.Checked {
		t.Error("task still checked")
	}
	if len(f.notifier.Cancelled()) != 1 {
		t.Errorf("uncheck cancelled again: %v", f.notifier.Cancelled())
	}
}

func TestToggleCheckedSwallowsCancelFailure(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "Work", "Call Bob")
	if _, err := f.coord.SetReminder(f.ctx, task.ID, f.in(time.Hour)); err != nil {
		t.Fatalf("SetReminder: %v", err)
	}
	f.notifier.FailCancel(errors.New("scheduler unavailable"))

	checked, err := f.coord.ToggleChecked(f.ctx, task.ID)
	if err != nil {
		t.Fatalf("ToggleChecked: %v", err)
	}
	if !checked.Checked || checked.ReminderID != nil {
		t.Errorf("checked task = %+v", checked)
	}
}

func TestGroceriesReminderScenario(t *testing.T) {
	f := newFixture(t)

	label, err := f.store.CreateLabel(f.ctx, "Groceries", "#1F78B4", nil)
	if err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}
	task, err := f.store.CreateTask(f.ctx, label.ID, "Buy milk", nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	withReminder, err := f.coord.SetReminder(f.ctx, task.ID, f.in(5*time.Minute))
	if err != nil {
		t.Fatalf("SetReminder: %v", err)
	}
	handle := handleOf(withReminder)
	if handle == "" {
		t.Fatal("no handle stored")
	}

	if _, err := f.coord.ToggleChecked(f.ctx, task.ID); err != nil {
		t.Fatalf("ToggleChecked: %v", err)
	}

	got := f.reload(t, task.ID)
	if !got.Checked || got.ReminderDateTime != nil || got.ReminderID != nil {
		t.Errorf("final task = %+v", got)
	}
	if cancelled := f.notifier.Cancelled(); len(cancelled) != 1 || cancelled[0] != handle {
		t.Errorf("cancelled = %v, want [%s]", cancelled, handle)
	}
}

func TestDeleteTaskCancelsReminder(t *testing.T) {
	f := newFixture(t)
	soft := f.task(t, "Work", "Soft")
	hard := f.task(t, "Home", "Hard")
	if _, err := f.coord.SetReminder(f.ctx, soft.ID, f.in(time.Hour)); err != nil {
		t.Fatalf("SetReminder: %v", err)
	}
	if _, err := f.coord.SetReminder(f.ctx, hard.ID, f.in(time.Hour)); err != nil {
		t.Fatalf("SetReminder: %v", err)
	}

	if err := f.coord.SoftDeleteTask(f.ctx, soft.ID); err != nil {
		t.Fatalf("SoftDeleteTask: %v", err)
	}
	got := f.reload(t, soft.ID)
	if !got.IsDeleted || got.ReminderID != nil || got.ReminderDateTime != nil {
		t.Errorf("soft-deleted task = %+v", got)
	}

	if err := f.coord.HardDeleteTask(f.ctx, hard.ID); err != nil {
		t.Fatalf("HardDeleteTask: %v", err)
	}
	if _, err := f.store.GetTaskByID(f.ctx, hard.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("hard-deleted lookup err = %v", err)
	}

	if got := f.notifier.Cancelled(); len(got) != 2 || got[0] != "h-1" || got[1] != "h-2" {
		t.Errorf("cancelled = %v, want [h-1 h-2]", got)
	}
}

func TestDeleteLabelCancelsReminders(t *testing.T) {
	for _, purge := range []bool{false, true} {
		name := "soft"
		if purge {
			name = "hard"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			a := f.task(t, "Work", "A")
			b, err := f.store.CreateTask(f.ctx, a.LabelID, "B", nil)
			if err != nil {
				t.Fatalf("CreateTask: %v", err)
			}
			other := f.task(t, "Home", "Other")

			for _, id := range []string{a.ID, b.ID, other.ID} {
				if _, err := f.coord.SetReminder(f.ctx, id, f.in(time.Hour)); err != nil {
					t.Fatalf("SetReminder: %v", err)
				}
			}

			del := f.coord.SoftDeleteLabel
			if purge {
				del = f.coord.HardDeleteLabel
			}
			if err := del(f.ctx, a.LabelID); err != nil {
				t.Fatalf("delete label: %v", err)
			}

			if got := f.notifier.Cancelled(); len(got) != 2 || got[0] != "h-1" || got[1] != "h-2" {
				t.Errorf("cancelled = %v, want [h-1 h-2]", got)
			}
			if !purge {
				for _, id := range []string{a.ID, b.ID} {
					if task := f.reload(t, id); !task.IsDeleted || task.ReminderID != nil {
						t.Errorf("task %s = %+v", task.Text, task)
					}
				}
			}
			if task := f.reload(t, other.ID); handleOf(task) != "h-3" {
				t.Errorf("other label's reminder = %q, want h-3", handleOf(task))
			}
		})
	}
}

// failingDeletes passes every call through to the store except the
// deletions, which fail.
type failingDeletes struct {
	*store.SQLiteStore
}

var errDiskFull = errors.New("disk full")

func (failingDeletes) SoftDeleteTask(ctx context.Context, id string) error  { return errDiskFull }
func (failingDeletes) SoftDeleteLabel(ctx context.Context, id string) error { return errDiskFull }
func (failingDeletes) HardDeleteLabel(ctx context.Context, id string) error { return errDiskFull }

func TestFailedDeleteKeepsReminders(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "Work", "Call Bob")
	at := f.in(time.Hour)
	if _, err := f.coord.SetReminder(f.ctx, task.ID, at); err != nil {
		t.Fatalf("SetReminder: %v", err)
	}

	coord := New(failingDeletes{f.store}, f.notifier, WithClock(f.clock.Now))
	for name, del := range map[string]func() error{
		"task":       func() error { return coord.SoftDeleteTask(f.ctx, task.ID) },
		"label":      func() error { return coord.SoftDeleteLabel(f.ctx, task.LabelID) },
		"label hard": func() error { return coord.HardDeleteLabel(f.ctx, task.LabelID) },
	} {
		if err := del(); !errors.Is(err, errDiskFull) {
			t.Errorf("%s: err = %v, want disk full", name, err)
		}
	}

	got := f.reload(t, task.ID)
	if got.IsDeleted || handleOf(got) != "h-1" || got.ReminderDateTime == nil || !got.ReminderDateTime.Equal(*at) {
		t.Errorf("task after failed deletes = %+v", got)
	}
	if cancelled := f.notifier.Cancelled(); len(cancelled) != 0 {
		t.Errorf("cancelled = %v, want none", cancelled)
	}
}

func TestHandleDelivery(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "Work", "Call Bob")
	if _, err := f.coord.SetReminder(f.ctx, task.ID, f.in(10*time.Second)); err != nil {
		t.Fatalf("SetReminder: %v", err)
	}

	f.clock.Advance(10 * time.Second)
	n := notify.Notification{Payload: notify.Payload{TaskID: task.ID}}
	if !f.coord.HandleDelivery(f.ctx, n) {
		t.Error("HandleDelivery reported nothing cleared")
	}

	got := f.reload(t, task.ID)
	if got.ReminderDateTime != nil || got.ReminderID != nil {
		t.Errorf("delivered reminder not cleared: %+v", got)
	}

	// Repeats, unknown ids and empty payloads are ignored.
	if f.coord.HandleDelivery(f.ctx, n) {
		t.Error("repeated delivery reported as cleared")
	}
	if f.coord.HandleDelivery(f.ctx, notify.Notification{Payload: notify.Payload{TaskID: "missing"}}) {
		t.Error("unknown task reported as cleared")
	}
	if f.coord.HandleDelivery(f.ctx, notify.Notification{}) {
		t.Error("empty payload reported as cleared")
	}
}

func TestHandleDeliveryKeepsRescheduledReminder(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "Work", "Call Bob")
	if _, err := f.coord.SetReminder(f.ctx, task.ID, f.in(time.Hour)); err != nil {
		t.Fatalf("SetReminder: %v", err)
	}

	// An old notification fires while the current reminder is an hour out.
	if f.coord.HandleDelivery(f.ctx, notify.Notification{Payload: notify.Payload{TaskID: task.ID}}) {
		t.Error("stale delivery reported as cleared")
	}

	if got := f.reload(t, task.ID); handleOf(got) != "h-1" {
		t.Errorf("reminder cleared by stale delivery: %+v", got)
	}
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	expired := f.task(t, "Work", "Expired")
	future := f.task(t, "Home", "Future")
	kept := f.task(t, "Gym", "Kept")

	if _, err := f.coord.SetReminder(f.ctx, expired.ID, f.in(time.Minute)); err != nil {
		t.Fatalf("SetReminder: %v", err)
	}
	if _, err := f.coord.SetReminder(f.ctx, future.ID, f.in(time.Hour)); err != nil {
		t.Fatalf("SetReminder: %v", err)
	}

	// The scheduler restarts and loses every pending notification.
	f.notifier.Forget()
	if _, err := f.coord.SetReminder(f.ctx, kept.ID, f.in(time.Hour)); err != nil {
		t.Fatalf("SetReminder: %v", err)
	}
	f.clock.Advance(2 * time.Minute)

	res, err := f.coord.Reconcile(f.ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Cleared != 1 || res.Scheduled != 1 {
		t.Errorf("result = %+v, want 1 cleared, 1 scheduled", res)
	}

	if got := f.reload(t, expired.ID); got.ReminderDateTime != nil || got.ReminderID != nil {
		t.Errorf("expired reminder kept: %+v", got)
	}
	if got := f.reload(t, future.ID); handleOf(got) != "h-4" {
		t.Errorf("future reminder handle = %q, want h-4", handleOf(got))
	}
	if got := f.reload(t, kept.ID); handleOf(got) != "h-3" {
		t.Errorf("live reminder handle = %q, want h-3", handleOf(got))
	}

	// A second pass has nothing to do.
	res, err = f.coord.Reconcile(f.ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res != (ReconcileResult{}) {
		t.Errorf("second pass = %+v", res)
	}
}
