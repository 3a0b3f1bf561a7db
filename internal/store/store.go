package store

import (
	"context"
	"time"

	"github.com/nhle/labeltasks/internal/model"
)

// LabelUpdate carries the label fields to change. Nil fields keep their
// current value. A Category pointing at "" clears the category.
type LabelUpdate struct {
	Title      *string
	Color      *string
	Category   *string
	IsFavorite *bool
}

// Reminder is the pair of reminder fields, always written together.
// A nil DateTime and ID clear the reminder.
type Reminder struct {
	DateTime *time.Time
	ID       *string
}

// TaskUpdate carries the mutable task fields to change. Nil fields are
// filled from the stored row before writing.
type TaskUpdate struct {
	Text       *string
	Date       *time.Time
	Checked    *bool
	IsFavorite *bool
	Reminder   *Reminder
}

// TaskCounts summarizes the active tasks of a label.
type TaskCounts struct {
	Total     int `db:"total"`
	Completed int `db:"completed"`
}

// LabelRepository persists labels, including the cascade of soft delete
// and restore onto the label's tasks.
type LabelRepository interface {
	GetLabels(ctx context.Context) ([]model.Label, error)
	GetLabelByID(ctx context.Context, id string) (*model.Label, error)
	GetLabelsByCategory(ctx context.Context, category string) ([]model.Label, error)
	GetDeletedLabels(ctx context.Context) ([]model.Label, error)
	GetFavoriteLabels(ctx context.Context) ([]model.Label, error)

	CreateLabel(ctx context.Context, title, color string, category *string) (*model.Label, error)
	UpdateLabel(ctx context.Context, id string, upd LabelUpdate) (*model.Label, error)
	ToggleLabelFavorite(ctx context.Context, id string) (*model.Label, error)
	SoftDeleteLabel(ctx context.Context, id string) error
	RestoreLabel(ctx context.Context, id string) error
	HardDeleteLabel(ctx context.Context, id string) error
	ReorderLabels(ctx context.Context, ids []string) error
}

// TaskRepository persists tasks, optionally scoped by their label.
type TaskRepository interface {
	GetTasks(ctx context.Context, labelID *string) ([]model.Task, error)
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetFavoriteTasks(ctx context.Context) ([]model.Task, error)
	GetDeletedTasks(ctx context.Context) ([]model.Task, error)
	GetTasksWithReminders(ctx context.Context) ([]model.Task, error)
	CountTasks(ctx context.Context, labelID string) (TaskCounts, error)

	CreateTask(ctx context.Context, labelID, text string, reminderAt *time.Time) (*model.Task, error)
	UpdateTask(ctx context.Context, id string, upd TaskUpdate) (*model.Task, error)
	ToggleTaskChecked(ctx context.Context, id string) (*model.Task, error)
	ToggleTaskFavorite(ctx context.Context, id string) (*model.Task, error)
	SoftDeleteTask(ctx context.Context, id string) error
	RestoreTask(ctx context.Context, id string) error
	HardDeleteTask(ctx context.Context, id string) error
	ReorderTasks(ctx context.Context, ids []string) error
}

// BackupRepository reads and writes whole tables as schema rows.
type BackupRepository interface {
	ExportRows(ctx context.Context) ([]LabelRow, []TaskRow, error)
	ImportRows(ctx context.Context, labels []LabelRow, tasks []TaskRow) error
}

// Store is the full persistence interface.
type Store interface {
	LabelRepository
	TaskRepository
	BackupRepository
}
