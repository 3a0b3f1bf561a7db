// Package state holds the in-memory label and task collections that the
// rest of the app reads. Every write goes to the repository first and, on
// success, the affected collections are reloaded in full from storage. On
// failure the previous collections are kept and the error is returned.
package state

import (
	"context"
	"sync"

	"github.com/nhle/labeltasks/internal/model"
	"github.com/nhle/labeltasks/internal/store"
)

// LabelReminders deletes a label and cancels the reminders of its tasks
// once the delete has committed. *reminder.Coordinator implements it.
type LabelReminders interface {
	SoftDeleteLabel(ctx context.Context, labelID string) error
	HardDeleteLabel(ctx context.Context, labelID string) error
}

// Labels is the label collection.
type Labels struct {
	repo      store.LabelRepository
	reminders LabelReminders
	subs      subscribers

	mu        sync.RWMutex
	active    []model.Label
	favorites []model.Label
	deleted   []model.Label
}

// NewLabels creates an empty collection. Call ReloadAll before reading.
// reminders may be nil.
func NewLabels(repo store.LabelRepository, reminders LabelReminders) *Labels {
	return &Labels{repo: repo, reminders: reminders}
}

// ReloadAll replaces every view with fresh rows from storage.
func (l *Labels) ReloadAll(ctx context.Context) error {
	active, err := l.repo.GetLabels(ctx)
	if err != nil {
		return err
	}
	favorites, err := l.repo.GetFavoriteLabels(ctx)
	if err != nil {
		return err
	}
	deleted, err := l.repo.GetDeletedLabels(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.active, l.favorites, l.deleted = active, favorites, deleted
	l.mu.Unlock()

	l.subs.notify()
	return nil
}

// Subscribe registers fn to run after every reload and returns a function
// that removes it.
func (l *Labels) Subscribe(fn func()) (unsubscribe func()) {
	return l.subs.add(fn)
}

// Close drops all subscribers and cached rows.
func (l *Labels) Close() {
	l.subs.clear()
	l.mu.Lock()
	l.active, l.favorites, l.deleted = nil, nil, nil
	l.mu.Unlock()
}

// Active returns the active labels in manual order.
func (l *Labels) Active() []model.Label {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Label(nil), l.active...)
}

// Favorites returns the active favorite labels.
func (l *Labels) Favorites() []model.Label {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Label(nil), l.favorites...)
}

// Deleted returns the labels in the trash, most recently deleted first.
func (l *Labels) Deleted() []model.Label {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Label(nil), l.deleted...)
}

// ByCategory returns the active labels of one category. An empty category
// selects labels without one.
func (l *Labels) ByCategory(category string) []model.Label {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.Label
	for _, lb := range l.active {
		if lb.CategoryName() == category {
			out = append(out, lb)
		}
	}
	return out
}

// Get returns a cached label, active or deleted.
func (l *Labels) Get(id string) (model.Label, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, views := range [][]model.Label{l.active, l.deleted} {
		for _, lb := range views {
			if lb.ID == id {
				return lb, true
			}
		}
	}
	return model.Label{}, false
}

// Create adds a label at the end of the order.
func (l *Labels) Create(ctx context.Context, title, color string, category *string) (*model.Label, error) {
	created, err := l.repo.CreateLabel(ctx, title, color, category)
	if err != nil {
		return nil, err
	}
	return created, l.ReloadAll(ctx)
}

// Update changes the label's fields.
func (l *Labels) Update(ctx context.Context, id string, upd store.LabelUpdate) (*model.Label, error) {
	updated, err := l.repo.UpdateLabel(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	return updated, l.ReloadAll(ctx)
}

// ToggleFavorite flips the label's favorite flag.
func (l *Labels) ToggleFavorite(ctx context.Context, id string) (*model.Label, error) {
	updated, err := l.repo.ToggleLabelFavorite(ctx, id)
	if err != nil {
		return nil, err
	}
	return updated, l.ReloadAll(ctx)
}

// Reorder stores a new manual order.
func (l *Labels) Reorder(ctx context.Context, ids []string) error {
	return l.mutate(ctx, func() error {
		return l.repo.ReorderLabels(ctx, ids)
	})
}

// SoftDelete moves the label and its tasks to the trash and cancels their
// reminders. The task collection must be reloaded by the caller.
func (l *Labels) SoftDelete(ctx context.Context, id string) error {
	return l.mutate(ctx, func() error {
		if l.reminders == nil {
			return l.repo.SoftDeleteLabel(ctx, id)
		}
		return l.reminders.SoftDeleteLabel(ctx, id)
	})
}

// Restore brings the label and all of its tasks back from the trash.
func (l *Labels) Restore(ctx context.Context, id string) error {
	return l.mutate(ctx, func() error {
		return l.repo.RestoreLabel(ctx, id)
	})
}

// Purge deletes the label and its tasks permanently and cancels their
// reminders.
func (l *Labels) Purge(ctx context.Context, id string) error {
	return l.mutate(ctx, func() error {
		if l.reminders == nil {
			return l.repo.HardDeleteLabel(ctx, id)
		}
		return l.reminders.HardDeleteLabel(ctx, id)
	})
}

// mutate runs fn and reloads on success.
func (l *Labels) mutate(ctx context.Context, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	return l.ReloadAll(ctx)
}
