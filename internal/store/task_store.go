package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/labeltasks/internal/apperr"
	"github.com/nhle/labeltasks/internal/model"
)

// validateTaskText rejects empty or whitespace-only task text.
func validateTaskText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("task text must not be empty: %w", apperr.ErrValidation)
	}
	return nil
}

// CreateTask inserts a new task at the end of its label's active tasks.
// The reminder handle starts empty; scheduling is done by the caller.
func (s *SQLiteStore) CreateTask(
	ctx context.Context,
	labelID, text string,
	reminderAt *time.Time,
) (*model.Task, error) {
	if err := validateTaskText(text); err != nil {
		return nil, err
	}

	now := s.stamp()
	row := TaskRow{
		ID:               uuid.New().String(),
		LabelID:          labelID,
		Text:             text,
		Date:             now,
		ReminderDateTime: formatTimePtr(reminderAt),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.withTx(ctx, "creating task", func(tx *sqlx.Tx) error {
		var active int
		if err := tx.GetContext(ctx, &active,
			"SELECT COUNT(*) FROM labels WHERE id = ? AND isDeleted = 0", labelID); err != nil {
			return storageErr(fmt.Sprintf("checking label %s", labelID), err)
		}
		if active == 0 {
			return notFound("label", labelID)
		}

		var maxPos sql.NullInt64
		if err := tx.GetContext(ctx, &maxPos, `
			SELECT MAX(order_position) FROM tasks
			WHERE labelId = ? AND isDeleted = 0`, labelID); err != nil {
			return storageErr("getting max task position", err)
		}
		if maxPos.Valid {
			row.OrderPosition = int(maxPos.Int64) + 1
		}

		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO tasks (
				id, labelId, text, date, checked, order_position,
				reminderDateTime, reminderId, isFavorite, isDeleted,
				deletedAt, createdAt, updatedAt
			) VALUES (
				:id, :labelId, :text, :date, :checked, :order_position,
				:reminderDateTime, :reminderId, :isFavorite, :isDeleted,
				:deletedAt, :createdAt, :updatedAt
			)`, row)
		if err != nil {
			return storageErr("inserting task", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	task, err := row.Task()
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTasks returns active tasks in manual sort order. When labelID is
// non-nil only that label's tasks are returned.
func (s *SQLiteStore) GetTasks(ctx context.Context, labelID *string) ([]model.Task, error) {
	if labelID != nil {
		return s.selectTasks(ctx, "querying tasks of label", `
			SELECT * FROM tasks
			WHERE isDeleted = 0 AND labelId = ?
			ORDER BY order_position, rowid`, *labelID)
	}
	return s.selectTasks(ctx, "querying tasks", `
		SELECT * FROM tasks
		WHERE isDeleted = 0
		ORDER BY labelId, order_position, rowid`)
}

// GetTaskByID retrieves a single task by ID, deleted or not.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	return getTask(ctx, s.db, id)
}

// GetFavoriteTasks returns active favorite tasks.
func (s *SQLiteStore) GetFavoriteTasks(ctx context.Context) ([]model.Task, error) {
	return s.selectTasks(ctx, "querying favorite tasks", `
		SELECT * FROM tasks
		WHERE isDeleted = 0 AND isFavorite = 1
		ORDER BY updatedAt DESC, rowid`)
}

// GetDeletedTasks returns soft-deleted tasks, most recently deleted first.
func (s *SQLiteStore) GetDeletedTasks(ctx context.Context) ([]model.Task, error) {
	return s.selectTasks(ctx, "querying deleted tasks",
		"SELECT * FROM tasks WHERE isDeleted = 1 ORDER BY deletedAt DESC, rowid")
}

// GetTasksWithReminders returns active, unchecked tasks that have a
// reminder time set, soonest first. Whether the reminder is still in the
// future is left to the caller.
func (s *SQLiteStore) GetTasksWithReminders(ctx context.Context) ([]model.Task, error) {
	return s.selectTasks(ctx, "querying tasks with reminders", `
		SELECT * FROM tasks
		WHERE isDeleted = 0 AND checked = 0 AND reminderDateTime IS NOT NULL
		ORDER BY reminderDateTime, rowid`)
}

// CountTasks returns the number of active and completed tasks of a label.
func (s *SQLiteStore) CountTasks(ctx context.Context, labelID string) (TaskCounts, error) {
	var counts TaskCounts
	err := s.db.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS total, COALESCE(SUM(checked), 0) AS completed
		FROM tasks WHERE labelId = ? AND isDeleted = 0`, labelID)
	if err != nil {
		return TaskCounts{}, storageErr(fmt.Sprintf("counting tasks of label %s", labelID), err)
	}
	return counts, nil
}

// UpdateTask merges upd over the stored task and writes every mutable
// field back, bumping updatedAt.
func (s *SQLiteStore) UpdateTask(
	ctx context.Context,
	id string,
	upd TaskUpdate,
) (*model.Task, error) {
	var updated *model.Task

	err := s.withTx(ctx, "updating task", func(tx *sqlx.Tx) error {
		current, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}

		if upd.Text != nil {
			current.Text = *upd.Text
		}
		if upd.Date != nil {
			current.Date = *upd.Date
		}
		if upd.Checked != nil {
			current.Checked = *upd.Checked
		}
		if upd.IsFavorite != nil {
			current.IsFavorite = *upd.IsFavorite
		}
		if upd.Reminder != nil {
			current.ReminderDateTime = upd.Reminder.DateTime
			current.ReminderID = upd.Reminder.ID
		}
		if err := validateTaskText(current.Text); err != nil {
			return err
		}

		row := taskRowFrom(*current)
		row.UpdatedAt = s.stamp()

		if _, err := tx.NamedExecContext(ctx, `
			UPDATE tasks SET
				text = :text, date = :date, checked = :checked,
				reminderDateTime = :reminderDateTime, reminderId = :reminderId,
				isFavorite = :isFavorite, updatedAt = :updatedAt
			WHERE id = :id`, row); err != nil {
			return storageErr(fmt.Sprintf("updating task %s", id), err)
		}

		task, err := row.Task()
		if err != nil {
			return err
		}
		updated = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ToggleTaskChecked flips the checked flag. Reminder fields are left
// untouched; clearing them is the reminder coordinator's job.
func (s *SQLiteStore) ToggleTaskChecked(ctx context.Context, id string) (*model.Task, error) {
	return s.toggleTaskFlag(ctx, id, "checked")
}

// ToggleTaskFavorite flips the favorite flag.
func (s *SQLiteStore) ToggleTaskFavorite(ctx context.Context, id string) (*model.Task, error) {
	return s.toggleTaskFlag(ctx, id, "isFavorite")
}

func (s *SQLiteStore) toggleTaskFlag(ctx context.Context, id, column string) (*model.Task, error) {
	query := fmt.Sprintf(`
		UPDATE tasks SET
			%[1]s = CASE WHEN %[1]s = 0 THEN 1 ELSE 0 END,
			updatedAt = ?
		WHERE id = ?`, column)

	result, err := s.db.ExecContext(ctx, query, s.stamp(), id)
	if err != nil {
		return nil, storageErr(fmt.Sprintf("toggling %s on task %s", column, id), err)
	}
	if err := requireAffected(result, "task", id); err != nil {
		return nil, err
	}
	return s.GetTaskByID(ctx, id)
}

// SoftDeleteTask marks a task as deleted and clears its reminder fields
// in the same statement. Cancelling the notification is up to the caller.
func (s *SQLiteStore) SoftDeleteTask(ctx context.Context, id string) error {
	now := s.stamp()
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			isDeleted = 1, deletedAt = ?, updatedAt = ?,
			reminderDateTime = NULL, reminderId = NULL
		WHERE id = ?`,
		now, now, id,
	)
	if err != nil {
		return storageErr(fmt.Sprintf("soft-deleting task %s", id), err)
	}
	return requireAffected(result, "task", id)
}

// RestoreTask clears the deleted flag on a task.
func (s *SQLiteStore) RestoreTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET isDeleted = 0, deletedAt = NULL, updatedAt = ?
		WHERE id = ?`,
		s.stamp(), id,
	)
	if err != nil {
		return storageErr(fmt.Sprintf("restoring task %s", id), err)
	}
	return requireAffected(result, "task", id)
}

// HardDeleteTask removes a task permanently.
func (s *SQLiteStore) HardDeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return storageErr(fmt.Sprintf("deleting task %s", id), err)
	}
	return requireAffected(result, "task", id)
}

// ReorderTasks assigns order_position 0..n-1 to the given tasks. The scope
// is the label of the first active task in ids; ids belonging to other
// labels, unknown ids and deleted tasks are skipped, so no other label's
// positions are touched. Active tasks of the label missing from ids follow
// in their current order.
func (s *SQLiteStore) ReorderTasks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	return s.withTx(ctx, "reordering tasks", func(tx *sqlx.Tx) error {
		query, args, err := sqlx.In(
			"SELECT id, labelId FROM tasks WHERE isDeleted = 0 AND id IN (?)", ids)
		if err != nil {
			return fmt.Errorf("building reorder lookup: %w", err)
		}

		var found []struct {
			ID      string `db:"id"`
			LabelID string `db:"labelId"`
		}
		if err := tx.SelectContext(ctx, &found, tx.Rebind(query), args...); err != nil {
			return storageErr("looking up reordered tasks", err)
		}
		labelOf := make(map[string]string, len(found))
		for _, f := range found {
			labelOf[f.ID] = f.LabelID
		}

		var labelID string
		for _, id := range ids {
			if l, ok := labelOf[id]; ok {
				labelID = l
				break
			}
		}
		if labelID == "" {
			return nil
		}

		var scope []string
		if err := tx.SelectContext(ctx, &scope,
			`SELECT id FROM tasks WHERE isDeleted = 0 AND labelId = ?
			ORDER BY order_position, rowid`, labelID); err != nil {
			return storageErr(fmt.Sprintf("querying active tasks of label %s", labelID), err)
		}

		return renumber(ctx, tx, "tasks", ids, scope, s.stamp())
	})
}

// selectTasks runs a task query and converts the rows.
func (s *SQLiteStore) selectTasks(
	ctx context.Context,
	op, query string,
	args ...interface{},
) ([]model.Task, error) {
	var rows []TaskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storageErr(op, err)
	}
	return tasksFromRows(rows)
}

// getTask loads one task through either the DB or an open transaction.
func getTask(ctx context.Context, q sqlx.QueryerContext, id string) (*model.Task, error) {
	var row TaskRow
	if err := sqlx.GetContext(ctx, q, &row, "SELECT * FROM tasks WHERE id = ?", id); err != nil {
		return nil, lookupErr("task", id, err)
	}
	task, err := row.Task()
	if err != nil {
		return nil, err
	}
	return &task, nil
}
