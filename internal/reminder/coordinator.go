// Package reminder keeps the reminder fields stored on tasks consistent
// with the notifications actually scheduled. Every mutation that touches a
// task's reminder goes through the Coordinator. Deletions clear the stored
// reminder in the same write as the delete and cancel the notification
// only once that write has committed.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/nhle/labeltasks/internal/apperr"
	"github.com/nhle/labeltasks/internal/model"
	"github.com/nhle/labeltasks/internal/notify"
	"github.com/nhle/labeltasks/internal/store"
)

// notificationTitle is shown on every reminder.
const notificationTitle = "Task reminder"

// deliveryGrace absorbs the sub-second truncation of the scheduling delay,
// so a notification that fires just before its reminder time still counts
// as delivered.
const deliveryGrace = time.Second

// Repository is the subset of the store the coordinator uses.
type Repository interface {
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasks(ctx context.Context, labelID *string) ([]model.Task, error)
	GetDeletedTasks(ctx context.Context) ([]model.Task, error)
	GetTasksWithReminders(ctx context.Context) ([]model.Task, error)
	UpdateTask(ctx context.Context, id string, upd store.TaskUpdate) (*model.Task, error)
	SoftDeleteTask(ctx context.Context, id string) error
	HardDeleteTask(ctx context.Context, id string) error
	SoftDeleteLabel(ctx context.Context, id string) error
	HardDeleteLabel(ctx context.Context, id string) error
}

// Coordinator schedules, cancels and clears task reminders.
type Coordinator struct {
	tasks    Repository
	notifier notify.Notifier
	now      func() time.Time

	onDenied   func()
	deniedOnce sync.Once
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithPermissionDenied registers a callback fired the first time
// notification permission is found to be denied. It is not fired again
// for the lifetime of the coordinator.
func WithPermissionDenied(fn func()) Option {
	return func(c *Coordinator) {
		c.onDenied = fn
	}
}

// New creates a Coordinator.
func New(tasks Repository, n notify.Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		tasks:    tasks,
		notifier: n,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schedule schedules a notification for the task's reminder time and
// returns its handle. It returns nil when the task has no future reminder,
// permission is denied, or the scheduler fails; failures are logged.
func (c *Coordinator) Schedule(ctx context.Context, task model.Task) *string {
	if task.ReminderDateTime == nil {
		return nil
	}
	now := c.now()
	if !task.ReminderDateTime.After(now) {
		return nil
	}

	if !c.ensurePermission(ctx) {
		return nil
	}

	handle, err := c.notifier.ScheduleOneShot(ctx, Delay(now, *task.ReminderDateTime), notify.Notification{
		Title:   notificationTitle,
		Body:    task.Text,
		Payload: notify.Payload{TaskID: task.ID},
	})
	if err != nil {
		if errors.Is(err, apperr.ErrPermissionDenied) {
			c.permissionDenied()
		}
		log.Printf("reminder: scheduling task %s: %v", task.ID, err)
		return nil
	}
	return &handle
}

// Cancel cancels a scheduled notification. Errors are logged, never
// returned.
func (c *Coordinator) Cancel(ctx context.Context, handle *string) {
	if handle == nil || *handle == "" {
		return
	}
	if err := c.notifier.Cancel(ctx, *handle); err != nil {
		log.Printf("reminder: cancelling %s: %v", *handle, err)
	}
}

// Delay returns the wait before a reminder at `at` fires, in whole seconds
// rounded down and never less than one second.
func Delay(now, at time.Time) time.Duration {
	secs := math.Floor(at.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// ValidateReminder rejects a reminder time that is not in the future.
func (c *Coordinator) ValidateReminder(at time.Time) error {
	if !at.After(c.now()) {
		return fmt.Errorf("reminder time %s is not in the future: %w",
			at.Format(time.RFC3339), apperr.ErrValidation)
	}
	return nil
}

// SetReminder replaces the task's reminder with one at `at`, or removes it
// when at is nil. The old notification is cancelled first. A time that is
// not in the future fails with ErrValidation and changes nothing.
func (c *Coordinator) SetReminder(
	ctx context.Context,
	taskID string,
	at *time.Time,
) (*model.Task, error) {
	if at != nil {
		if err := c.ValidateReminder(*at); err != nil {
			return nil, err
		}
	}

	task, err := c.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	c.Cancel(ctx, task.ReminderID)

	if at == nil {
		return c.tasks.UpdateTask(ctx, taskID, store.TaskUpdate{Reminder: &store.Reminder{}})
	}

	next := *task
	next.ReminderDateTime = at
	handle := c.Schedule(ctx, next)

	return c.persist(ctx, taskID, store.TaskUpdate{
		Reminder: &store.Reminder{DateTime: at, ID: handle},
	}, handle)
}

// Edit is the edited form of a task. A nil ReminderAt means the task has
// no reminder after the edit.
type Edit struct {
	Text       string
	ReminderAt *time.Time
}

// EditTask applies an edit of the task's text and reminder time. A task
// with a scheduled reminder whose text or time changes gets its old
// notification cancelled and a new one scheduled; removing the reminder
// only cancels. Unchanged reminders are left alone, except one whose time
// has already passed, which is cleared. A new reminder time must be in
// the future.
func (c *Coordinator) EditTask(ctx context.Context, taskID string, e Edit) (*model.Task, error) {
	if strings.TrimSpace(e.Text) == "" {
		return nil, fmt.Errorf("task text must not be empty: %w", apperr.ErrValidation)
	}

	task, err := c.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	textChanged := e.Text != task.Text
	timeChanged := !sameTime(e.ReminderAt, task.ReminderDateTime)
	expired := e.ReminderAt != nil && !e.ReminderAt.After(c.now())
	if expired && timeChanged {
		return nil, c.ValidateReminder(*e.ReminderAt)
	}

	upd := store.TaskUpdate{Text: &e.Text}
	var handle *string

	switch {
	case e.ReminderAt == nil || expired:
		c.Cancel(ctx, task.ReminderID)
		upd.Reminder = &store.Reminder{}

	case task.HasReminderHandle() && (textChanged || timeChanged):
		c.Cancel(ctx, task.ReminderID)
		handle = c.scheduleEdited(ctx, *task, e)
		upd.Reminder = &store.Reminder{DateTime: e.ReminderAt, ID: handle}

	case !task.HasReminderHandle():
		handle = c.scheduleEdited(ctx, *task, e)
		upd.Reminder = &store.Reminder{DateTime: e.ReminderAt, ID: handle}
	}

	return c.persist(ctx, taskID, upd, handle)
}

func (c *Coordinator) scheduleEdited(ctx context.Context, task model.Task, e Edit) *string {
	task.Text = e.Text
	task.ReminderDateTime = e.ReminderAt
	return c.Schedule(ctx, task)
}

// ToggleChecked flips the task's checked flag. Checking a task cancels its
// notification and clears the reminder fields in the same update.
func (c *Coordinator) ToggleChecked(ctx context.Context, taskID string) (*model.Task, error) {
	task, err := c.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	checked := !task.Checked
	upd := store.TaskUpdate{Checked: &checked}
	if checked {
		c.Cancel(ctx, task.ReminderID)
		upd.Reminder = &store.Reminder{}
	}
	return c.tasks.UpdateTask(ctx, taskID, upd)
}

// CancelReminder cancels the task's notification and clears its reminder.
func (c *Coordinator) CancelReminder(ctx context.Context, taskID string) (*model.Task, error) {
	return c.SetReminder(ctx, taskID, nil)
}

// SoftDeleteTask moves the task to the trash, clearing its reminder in the
// same write, then cancels the notification. If the write fails nothing is
// cancelled.
func (c *Coordinator) SoftDeleteTask(ctx context.Context, taskID string) error {
	task, err := c.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if err := c.tasks.SoftDeleteTask(ctx, taskID); err != nil {
		return err
	}
	c.Cancel(ctx, task.ReminderID)
	return nil
}

// HardDeleteTask deletes the task permanently, then cancels its
// notification.
func (c *Coordinator) HardDeleteTask(ctx context.Context, taskID string) error {
	task, err := c.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if err := c.tasks.HardDeleteTask(ctx, taskID); err != nil {
		return err
	}
	c.Cancel(ctx, task.ReminderID)
	return nil
}

// SoftDeleteLabel moves the label and its tasks to the trash and cancels
// the notifications of every task under it, active or already in the
// trash. The store clears the reminder fields in the delete transaction;
// notifications are cancelled only after it commits.
func (c *Coordinator) SoftDeleteLabel(ctx context.Context, labelID string) error {
	return c.deleteLabel(ctx, labelID, c.tasks.SoftDeleteLabel)
}

// HardDeleteLabel deletes the label and its tasks permanently, then
// cancels their notifications.
func (c *Coordinator) HardDeleteLabel(ctx context.Context, labelID string) error {
	return c.deleteLabel(ctx, labelID, c.tasks.HardDeleteLabel)
}

func (c *Coordinator) deleteLabel(
	ctx context.Context,
	labelID string,
	del func(ctx context.Context, id string) error,
) error {
	handles, err := c.labelHandles(ctx, labelID)
	if err != nil {
		return err
	}
	if err := del(ctx, labelID); err != nil {
		return err
	}
	for _, h := range handles {
		c.Cancel(ctx, h)
	}
	return nil
}

// labelHandles collects the notification handles of every task under the
// label, active or in the trash.
func (c *Coordinator) labelHandles(ctx context.Context, labelID string) ([]*string, error) {
	active, err := c.tasks.GetTasks(ctx, &labelID)
	if err != nil {
		return nil, err
	}
	deleted, err := c.tasks.GetDeletedTasks(ctx)
	if err != nil {
		return nil, err
	}

	var handles []*string
	for _, t := range append(active, deleted...) {
		if t.LabelID == labelID && t.HasReminderHandle() {
			handles = append(handles, t.ReminderID)
		}
	}
	return handles, nil
}

// HandleDelivery clears the reminder of the task named in a delivered
// notification and reports whether it did. The task is re-read by id; a
// reminder that was moved to a later time since the notification was
// scheduled is kept, and so is a task whose reminder was already cleared.
// Failures are logged.
func (c *Coordinator) HandleDelivery(ctx context.Context, n notify.Notification) bool {
	id := n.Payload.TaskID
	if id == "" {
		log.Printf("reminder: delivered notification without task id")
		return false
	}

	task, err := c.tasks.GetTaskByID(ctx, id)
	if err != nil {
		log.Printf("reminder: delivery for task %s: %v", id, err)
		return false
	}
	if task.ReminderDateTime == nil && task.ReminderID == nil {
		return false
	}
	if task.ReminderDateTime != nil && task.ReminderDateTime.After(c.now().Add(deliveryGrace)) {
		log.Printf("reminder: stale delivery for task %s, reminder now due %s",
			id, task.ReminderDateTime.Format(time.RFC3339))
		return false
	}

	if _, err := c.tasks.UpdateTask(ctx, id, store.TaskUpdate{Reminder: &store.Reminder{}}); err != nil {
		log.Printf("reminder: clearing delivered reminder of task %s: %v", id, err)
		return false
	}
	return true
}

// ReconcileResult counts what a reconciliation pass changed.
type ReconcileResult struct {
	Scheduled int
	Cleared   int
}

// Reconcile brings stored reminders in line with the scheduler. Reminders
// whose time has passed are cleared. Future reminders without a handle, or
// whose handle the scheduler no longer tracks, are scheduled again.
func (c *Coordinator) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	tasks, err := c.tasks.GetTasksWithReminders(ctx)
	if err != nil {
		return res, err
	}

	tracker, _ := c.notifier.(notify.Tracker)
	now := c.now()

	var errs []error
	for _, t := range tasks {
		if !t.ReminderDateTime.After(now) {
			if err := c.clear(ctx, t); err != nil {
				errs = append(errs, err)
				continue
			}
			res.Cleared++
			continue
		}

		lost := !t.HasReminderHandle() ||
			(tracker != nil && !tracker.Has(*t.ReminderID))
		if !lost {
			continue
		}

		handle := c.Schedule(ctx, t)
		if handle == nil {
			continue
		}
		if _, err := c.persist(ctx, t.ID, store.TaskUpdate{
			Reminder: &store.Reminder{DateTime: t.ReminderDateTime, ID: handle},
		}, handle); err != nil {
			errs = append(errs, err)
			continue
		}
		res.Scheduled++
	}

	return res, errors.Join(errs...)
}

// clear cancels the task's notification, then nulls its reminder fields.
func (c *Coordinator) clear(ctx context.Context, task model.Task) error {
	if task.ReminderDateTime == nil && task.ReminderID == nil {
		return nil
	}
	c.Cancel(ctx, task.ReminderID)
	_, err := c.tasks.UpdateTask(ctx, task.ID, store.TaskUpdate{Reminder: &store.Reminder{}})
	return err
}

// persist writes upd. If the write fails, the freshly scheduled handle is
// cancelled so no notification points at state that was never stored.
func (c *Coordinator) persist(
	ctx context.Context,
	taskID string,
	upd store.TaskUpdate,
	handle *string,
) (*model.Task, error) {
	task, err := c.tasks.UpdateTask(ctx, taskID, upd)
	if err != nil {
		c.Cancel(ctx, handle)
		return nil, err
	}
	return task, nil
}

// ensurePermission checks notification permission, asking once if it has
// not been granted.
func (c *Coordinator) ensurePermission(ctx context.Context) bool {
	granted, err := c.notifier.PermissionGranted(ctx)
	if err != nil {
		log.Printf("reminder: checking notification permission: %v", err)
		return false
	}
	if granted {
		return true
	}

	granted, err = c.notifier.RequestPermission(ctx)
	if err != nil {
		log.Printf("reminder: requesting notification permission: %v", err)
		return false
	}
	if !granted {
		c.permissionDenied()
	}
	return granted
}

func (c *Coordinator) permissionDenied() {
	c.deniedOnce.Do(func() {
		log.Printf("reminder: notification permission denied, enable it in system settings")
		if c.onDenied != nil {
			c.onDenied()
		}
	})
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
