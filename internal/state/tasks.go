package state

import (
	"context"
	"sync"
	"time"

	"github.com/nhle/labeltasks/internal/model"
	"github.com/nhle/labeltasks/internal/reminder"
	"github.com/nhle/labeltasks/internal/store"
)

// TaskReminders performs the task mutations that touch reminders.
// *reminder.Coordinator implements it.
type TaskReminders interface {
	ValidateReminder(at time.Time) error
	SetReminder(ctx context.Context, taskID string, at *time.Time) (*model.Task, error)
	EditTask(ctx context.Context, taskID string, e reminder.Edit) (*model.Task, error)
	ToggleChecked(ctx context.Context, taskID string) (*model.Task, error)
	CancelReminder(ctx context.Context, taskID string) (*model.Task, error)
	SoftDeleteTask(ctx context.Context, taskID string) error
	HardDeleteTask(ctx context.Context, taskID string) error
}

// Tasks is the task collection across all labels.
type Tasks struct {
	repo      store.TaskRepository
	reminders TaskReminders
	subs      subscribers

	mu        sync.RWMutex
	active    []model.Task
	favorites []model.Task
	deleted   []model.Task
}

// NewTasks creates an empty collection. Call ReloadAll before reading.
func NewTasks(repo store.TaskRepository, reminders TaskReminders) *Tasks {
	return &Tasks{repo: repo, reminders: reminders}
}

// ReloadAll replaces every view with fresh rows from storage.
func (t *Tasks) ReloadAll(ctx context.Context) error {
	active, err := t.repo.GetTasks(ctx, nil)
	if err != nil {
		return err
	}
	favorites, err := t.repo.GetFavoriteTasks(ctx)
	if err != nil {
		return err
	}
	deleted, err := t.repo.GetDeletedTasks(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.active, t.favorites, t.deleted = active, favorites, deleted
	t.mu.Unlock()

	t.subs.notify()
	return nil
}

// Subscribe registers fn to run after every reload and returns a function
// that removes it.
func (t *Tasks) Subscribe(fn func()) (unsubscribe func()) {
	return t.subs.add(fn)
}

// Close drops all subscribers and cached rows.
func (t *Tasks) Close() {
	t.subs.clear()
	t.mu.Lock()
	t.active, t.favorites, t.deleted = nil, nil, nil
	t.mu.Unlock()
}

// Active returns every active task, grouped by label in manual order.
func (t *Tasks) Active() []model.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.Task(nil), t.active...)
}

// ByLabel returns the active tasks of one label in manual order.
func (t *Tasks) ByLabel(labelID string) []model.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []model.Task
	for _, task := range t.active {
		if task.LabelID == labelID {
			out = append(out, task)
		}
	}
	return out
}

// Favorites returns the active favorite tasks.
func (t *Tasks) Favorites() []model.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.Task(nil), t.favorites...)
}

// Deleted returns the tasks in the trash, most recently deleted first.
func (t *Tasks) Deleted() []model.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.Task(nil), t.deleted...)
}

// WithActiveReminders returns the active tasks whose reminder is still
// pending at now.
func (t *Tasks) WithActiveReminders(now time.Time) []model.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []model.Task
	for _, task := range t.active {
		if task.HasActiveReminder(now) {
			out = append(out, task)
		}
	}
	return out
}

// Counts returns the number of active and completed tasks of a label.
func (t *Tasks) Counts(labelID string) store.TaskCounts {
	var c store.TaskCounts
	for _, task := range t.ByLabel(labelID) {
		c.Total++
		if task.Checked {
			c.Completed++
		}
	}
	return c
}

// Get returns a cached task, active or deleted.
func (t *Tasks) Get(id string) (model.Task, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, views := range [][]model.Task{t.active, t.deleted} {
		for _, task := range views {
			if task.ID == id {
				return task, true
			}
		}
	}
	return model.Task{}, false
}

// Create adds a task at the end of its label and schedules its reminder
// when reminderAt is set. A reminder time that is not in the future fails
// with ErrValidation before the task is created.
func (t *Tasks) Create(
	ctx context.Context,
	labelID, text string,
	reminderAt *time.Time,
) (*model.Task, error) {
	if reminderAt != nil {
		if err := t.reminders.ValidateReminder(*reminderAt); err != nil {
			return nil, err
		}
	}

	created, err := t.repo.CreateTask(ctx, labelID, text, reminderAt)
	if err != nil {
		return nil, err
	}

	if reminderAt != nil {
		scheduled, err := t.reminders.SetReminder(ctx, created.ID, reminderAt)
		if err != nil {
			// The task exists; show it even though the reminder was not stored.
			if rerr := t.ReloadAll(ctx); rerr != nil {
				return nil, rerr
			}
			return created, err
		}
		created = scheduled
	}

	return created, t.ReloadAll(ctx)
}

// Edit changes the task's text and reminder time together.
func (t *Tasks) Edit(ctx context.Context, id string, e reminder.Edit) (*model.Task, error) {
	return t.mutateTask(ctx, func() (*model.Task, error) {
		return t.reminders.EditTask(ctx, id, e)
	})
}

// SetReminder replaces the task's reminder, or removes it when at is nil.
func (t *Tasks) SetReminder(ctx context.Context, id string, at *time.Time) (*model.Task, error) {
	return t.mutateTask(ctx, func() (*model.Task, error) {
		return t.reminders.SetReminder(ctx, id, at)
	})
}

// CancelReminder removes the task's reminder.
func (t *Tasks) CancelReminder(ctx context.Context, id string) (*model.Task, error) {
	return t.mutateTask(ctx, func() (*model.Task, error) {
		return t.reminders.CancelReminder(ctx, id)
	})
}

// ToggleChecked flips the checked flag, clearing any reminder on check.
func (t *Tasks) ToggleChecked(ctx context.Context, id string) (*model.Task, error) {
	return t.mutateTask(ctx, func() (*model.Task, error) {
		return t.reminders.ToggleChecked(ctx, id)
	})
}

// ToggleFavorite flips the favorite flag.
func (t *Tasks) ToggleFavorite(ctx context.Context, id string) (*model.Task, error) {
	return t.mutateTask(ctx, func() (*model.Task, error) {
		return t.repo.ToggleTaskFavorite(ctx, id)
	})
}

// Reorder stores a new manual order within one label.
func (t *Tasks) Reorder(ctx context.Context, ids []string) error {
	return t.mutate(ctx, func() error {
		return t.repo.ReorderTasks(ctx, ids)
	})
}

// SoftDelete moves the task to the trash after cancelling its reminder.
func (t *Tasks) SoftDelete(ctx context.Context, id string) error {
	return t.mutate(ctx, func() error {
		return t.reminders.SoftDeleteTask(ctx, id)
	})
}

// Restore brings the task back from the trash.
func (t *Tasks) Restore(ctx context.Context, id string) error {
	return t.mutate(ctx, func() error {
		return t.repo.RestoreTask(ctx, id)
	})
}

// Purge deletes the task permanently after cancelling its reminder.
func (t *Tasks) Purge(ctx context.Context, id string) error {
	return t.mutate(ctx, func() error {
		return t.reminders.HardDeleteTask(ctx, id)
	})
}

func (t *Tasks) mutate(ctx context.Context, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	return t.ReloadAll(ctx)
}

func (t *Tasks) mutateTask(ctx context.Context, fn func() (*model.Task, error)) (*model.Task, error) {
	task, err := fn()
	if err != nil {
		return nil, err
	}
	return task, t.ReloadAll(ctx)
}
