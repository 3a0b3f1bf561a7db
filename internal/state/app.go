package state

import (
	"context"
	"errors"
	"log"

	"github.com/nhle/labeltasks/internal/backup"
	"github.com/nhle/labeltasks/internal/reminder"
	"github.com/nhle/labeltasks/internal/store"
)

// Reconciler re-schedules reminders after rows change underneath the
// scheduler.
type Reconciler interface {
	Reconcile(ctx context.Context) (reminder.ReconcileResult, error)
}

// Backups exports and imports the whole database.
type Backups interface {
	Export(ctx context.Context) (*backup.ExportResult, error)
	Import(ctx context.Context) (*backup.ImportResult, error)
}

var errNoBackups = errors.New("backup is not configured")

// App bundles the label and task collections and the operations that
// change both.
type App struct {
	Labels *Labels
	Tasks  *Tasks

	backups    Backups
	reconciler Reconciler
}

// NewApp wires the collections over st. Reminder-touching mutations go
// through coord. backups may be nil when backup is not available.
func NewApp(st store.Store, coord *reminder.Coordinator, backups Backups) *App {
	return &App{
		Labels:     NewLabels(st, coord),
		Tasks:      NewTasks(st, coord),
		backups:    backups,
		reconciler: coord,
	}
}

// ReloadAll loads both collections.
func (a *App) ReloadAll(ctx context.Context) error {
	if err := a.Labels.ReloadAll(ctx); err != nil {
		return err
	}
	return a.Tasks.ReloadAll(ctx)
}

// DeleteLabel moves a label and its tasks to the trash.
func (a *App) DeleteLabel(ctx context.Context, id string) error {
	if err := a.Labels.SoftDelete(ctx, id); err != nil {
		return err
	}
	return a.Tasks.ReloadAll(ctx)
}

// RestoreLabel brings a label and every one of its tasks back.
func (a *App) RestoreLabel(ctx context.Context, id string) error {
	if err := a.Labels.Restore(ctx, id); err != nil {
		return err
	}
	return a.Tasks.ReloadAll(ctx)
}

// PurgeLabel deletes a label and its tasks permanently.
func (a *App) PurgeLabel(ctx context.Context, id string) error {
	if err := a.Labels.Purge(ctx, id); err != nil {
		return err
	}
	return a.Tasks.ReloadAll(ctx)
}

// Export writes a backup of everything.
func (a *App) Export(ctx context.Context) (*backup.ExportResult, error) {
	if a.backups == nil {
		return nil, errNoBackups
	}
	return a.backups.Export(ctx)
}

// Import restores a backup, reloads both collections and re-schedules the
// imported reminders.
func (a *App) Import(ctx context.Context) (*backup.ImportResult, error) {
	if a.backups == nil {
		return nil, errNoBackups
	}

	res, err := a.backups.Import(ctx)
	if err != nil {
		return nil, err
	}

	if a.reconciler != nil {
		if _, err := a.reconciler.Reconcile(ctx); err != nil {
			log.Printf("state: reconciling reminders after import: %v", err)
		}
	}

	if err := a.ReloadAll(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Close releases both collections.
func (a *App) Close() {
	a.Labels.Close()
	a.Tasks.Close()
}
