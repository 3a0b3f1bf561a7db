package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/labeltasks/internal/apperr"
	"github.com/nhle/labeltasks/internal/model"
)

// validateLabel checks the required label fields.
func validateLabel(title, color string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("label title must not be empty: %w", apperr.ErrValidation)
	}
	if !model.ValidColor(color) {
		return fmt.Errorf("label color %q is not valid: %w", color, apperr.ErrValidation)
	}
	return nil
}

// normalizeCategory maps an empty category to NULL.
func normalizeCategory(category *string) *string {
	if category == nil || strings.TrimSpace(*category) == "" {
		return nil
	}
	c := strings.TrimSpace(*category)
	return &c
}

// CreateLabel inserts a new label at the end of the active label order.
func (s *SQLiteStore) CreateLabel(
	ctx context.Context,
	title, color string,
	category *string,
) (*model.Label, error) {
	if err := validateLabel(title, color); err != nil {
		return nil, err
	}

	now := s.stamp()
	row := LabelRow{
		ID:        uuid.New().String(),
		Title:     title,
		Color:     strings.TrimSpace(color),
		Category:  normalizeCategory(category),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.withTx(ctx, "creating label", func(tx *sqlx.Tx) error {
		// Position defaults to max+1 among active labels, or 0 if none exist.
		var maxPos sql.NullInt64
		if err := tx.GetContext(ctx, &maxPos,
			"SELECT MAX(order_position) FROM labels WHERE isDeleted = 0"); err != nil {
			return storageErr("getting max label position", err)
		}
		if maxPos.Valid {
			row.OrderPosition = int(maxPos.Int64) + 1
		}

		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO labels (
				id, title, color, category, order_position,
				isFavorite, isDeleted, deletedAt, createdAt, updatedAt
			) VALUES (
				:id, :title, :color, :category, :order_position,
				:isFavorite, :isDeleted, :deletedAt, :createdAt, :updatedAt
			)`, row)
		if err != nil {
			return storageErr("inserting label", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	label, err := row.Label()
	if err != nil {
		return nil, err
	}
	return &label, nil
}

// GetLabels returns all active labels in manual sort order.
func (s *SQLiteStore) GetLabels(ctx context.Context) ([]model.Label, error) {
	return s.selectLabels(ctx, "querying labels",
		"SELECT * FROM labels WHERE isDeleted = 0 ORDER BY order_position, rowid")
}

// GetLabelByID retrieves a single label by ID, deleted or not.
func (s *SQLiteStore) GetLabelByID(ctx context.Context, id string) (*model.Label, error) {
	return getLabel(ctx, s.db, id)
}

// GetLabelsByCategory returns the active labels of one category. An empty
// category selects labels without one.
func (s *SQLiteStore) GetLabelsByCategory(
	ctx context.Context,
	category string,
) ([]model.Label, error) {
	return s.selectLabels(ctx, "querying labels by category", `
		SELECT * FROM labels
		WHERE isDeleted = 0 AND COALESCE(category, '') = ?
		ORDER BY order_position, rowid`, category)
}

// GetDeletedLabels returns soft-deleted labels, most recently deleted first.
func (s *SQLiteStore) GetDeletedLabels(ctx context.Context) ([]model.Label, error) {
	return s.selectLabels(ctx, "querying deleted labels",
		"SELECT * FROM labels WHERE isDeleted = 1 ORDER BY deletedAt DESC, rowid")
}

// GetFavoriteLabels returns active favorite labels in manual sort order.
func (s *SQLiteStore) GetFavoriteLabels(ctx context.Context) ([]model.Label, error) {
	return s.selectLabels(ctx, "querying favorite labels", `
		SELECT * FROM labels
		WHERE isDeleted = 0 AND isFavorite = 1
		ORDER BY order_position, rowid`)
}

// UpdateLabel merges upd over the stored label and writes it back.
func (s *SQLiteStore) UpdateLabel(
	ctx context.Context,
	id string,
	upd LabelUpdate,
) (*model.Label, error) {
	var updated *model.Label

	err := s.withTx(ctx, "updating label", func(tx *sqlx.Tx) error {
		current, err := getLabel(ctx, tx, id)
		if err != nil {
			return err
		}

		if upd.Title != nil {
			current.Title = *upd.Title
		}
		if upd.Color != nil {
			current.Color = strings.TrimSpace(*upd.Color)
		}
		if upd.Category != nil {
			current.Category = normalizeCategory(upd.Category)
		}
		if upd.IsFavorite != nil {
			current.IsFavorite = *upd.IsFavorite
		}
		if err := validateLabel(current.Title, current.Color); err != nil {
			return err
		}

		row := labelRowFrom(*current)
		row.UpdatedAt = s.stamp()

		if _, err := tx.NamedExecContext(ctx, `
			UPDATE labels SET
				title = :title, color = :color, category = :category,
				isFavorite = :isFavorite, updatedAt = :updatedAt
			WHERE id = :id`, row); err != nil {
			return storageErr(fmt.Sprintf("updating label %s", id), err)
		}

		label, err := row.Label()
		if err != nil {
			return err
		}
		updated = &label
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ToggleLabelFavorite flips the favorite flag of a label.
func (s *SQLiteStore) ToggleLabelFavorite(ctx context.Context, id string) (*model.Label, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE labels SET
			isFavorite = CASE WHEN isFavorite = 0 THEN 1 ELSE 0 END,
			updatedAt = ?
		WHERE id = ?`,
		s.stamp(), id,
	)
	if err != nil {
		return nil, storageErr(fmt.Sprintf("toggling favorite on label %s", id), err)
	}
	if err := requireAffected(result, "label", id); err != nil {
		return nil, err
	}
	return s.GetLabelByID(ctx, id)
}

// SoftDeleteLabel marks the label and all of its active tasks as deleted
// in one transaction. Tasks deleted earlier keep their own deletedAt.
// Every task of the label loses its reminder fields in the same
// transaction; cancelling the notifications is up to the caller.
func (s *SQLiteStore) SoftDeleteLabel(ctx context.Context, id string) error {
	return s.withTx(ctx, "soft-deleting label", func(tx *sqlx.Tx) error {
		if err := labelExists(ctx, tx, id); err != nil {
			return err
		}

		now := s.stamp()
		if _, err := tx.ExecContext(ctx, `
			UPDATE tasks SET
				reminderDateTime = NULL, reminderId = NULL, updatedAt = ?
			WHERE labelId = ? AND isDeleted = 1
				AND (reminderDateTime IS NOT NULL OR reminderId IS NOT NULL)`,
			now, id,
		); err != nil {
			return storageErr(fmt.Sprintf("clearing reminders of label %s", id), err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE tasks SET
				isDeleted = 1, deletedAt = ?, updatedAt = ?,
				reminderDateTime = NULL, reminderId = NULL
			WHERE labelId = ? AND isDeleted = 0`,
			now, now, id,
		); err != nil {
			return storageErr(fmt.Sprintf("soft-deleting tasks of label %s", id), err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE labels SET isDeleted = 1, deletedAt = ?, updatedAt = ?
			WHERE id = ?`,
			now, now, id,
		); err != nil {
			return storageErr(fmt.Sprintf("soft-deleting label %s", id), err)
		}
		return nil
	})
}

// RestoreLabel clears the deleted flag on the label and on every task
// under it, including tasks that were deleted independently before the
// label was.
func (s *SQLiteStore) RestoreLabel(ctx context.Context, id string) error {
	return s.withTx(ctx, "restoring label", func(tx *sqlx.Tx) error {
		now := s.stamp()
		result, err := tx.ExecContext(ctx, `
			UPDATE labels SET isDeleted = 0, deletedAt = NULL, updatedAt = ?
			WHERE id = ?`,
			now, id,
		)
		if err != nil {
			return storageErr(fmt.Sprintf("restoring label %s", id), err)
		}
		if err := requireAffected(result, "label", id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE tasks SET isDeleted = 0, deletedAt = NULL, updatedAt = ?
			WHERE labelId = ? AND isDeleted = 1`,
			now, id,
		); err != nil {
			return storageErr(fmt.Sprintf("restoring tasks of label %s", id), err)
		}
		return nil
	})
}

// HardDeleteLabel removes a label permanently. Its tasks are removed by
// the ON DELETE CASCADE foreign key.
func (s *SQLiteStore) HardDeleteLabel(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM labels WHERE id = ?", id)
	if err != nil {
		return storageErr(fmt.Sprintf("deleting label %s", id), err)
	}
	return requireAffected(result, "label", id)
}

// ReorderLabels assigns order_position 0..n-1 to the active labels in the
// order given. Ids that are unknown, deleted or repeated are skipped, and
// active labels missing from ids follow in their current order.
// Rows whose position does not change keep their updatedAt.
func (s *SQLiteStore) ReorderLabels(ctx context.Context, ids []string) error {
	return s.withTx(ctx, "reordering labels", func(tx *sqlx.Tx) error {
		var activeIDs []string
		if err := tx.SelectContext(ctx, &activeIDs,
			"SELECT id FROM labels WHERE isDeleted = 0 ORDER BY order_position, rowid"); err != nil {
			return storageErr("querying active labels", err)
		}

		return renumber(ctx, tx, "labels", ids, activeIDs, s.stamp())
	})
}

// renumber writes dense positions over scope: first the ids in the order
// given, then the rest of scope in its existing order.
func renumber(
	ctx context.Context,
	tx *sqlx.Tx,
	table string,
	ids, scope []string,
	now string,
) error {
	inScope := make(map[string]bool, len(scope))
	for _, id := range scope {
		inScope[id] = true
	}

	query := fmt.Sprintf(`
		UPDATE %s SET order_position = ?, updatedAt = ?
		WHERE id = ? AND order_position != ?`, table)

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return storageErr("preparing reorder statement", err)
	}
	defer stmt.Close()

	pos := 0
	for _, id := range ids {
		if !inScope[id] {
			continue
		}
		// Each id takes exactly one slot.
		delete(inScope, id)

		if _, err := stmt.ExecContext(ctx, pos, now, id, pos); err != nil {
			return storageErr(fmt.Sprintf("repositioning %s %s", table, id), err)
		}
		pos++
	}

	for _, id := range scope {
		if !inScope[id] {
			continue
		}
		if _, err := stmt.ExecContext(ctx, pos, now, id, pos); err != nil {
			return storageErr(fmt.Sprintf("repositioning %s %s", table, id), err)
		}
		pos++
	}
	return nil
}

// selectLabels runs a label query and converts the rows.
func (s *SQLiteStore) selectLabels(
	ctx context.Context,
	op, query string,
	args ...interface{},
) ([]model.Label, error) {
	var rows []LabelRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storageErr(op, err)
	}
	return labelsFromRows(rows)
}

// getLabel loads one label through either the DB or an open transaction.
func getLabel(ctx context.Context, q sqlx.QueryerContext, id string) (*model.Label, error) {
	var row LabelRow
	if err := sqlx.GetContext(ctx, q, &row, "SELECT * FROM labels WHERE id = ?", id); err != nil {
		return nil, lookupErr("label", id, err)
	}
	label, err := row.Label()
	if err != nil {
		return nil, err
	}
	return &label, nil
}

// labelExists returns a not-found error unless the label row exists.
func labelExists(ctx context.Context, q sqlx.QueryerContext, id string) error {
	var count int
	if err := sqlx.GetContext(ctx, q, &count,
		"SELECT COUNT(*) FROM labels WHERE id = ?", id); err != nil {
		return storageErr(fmt.Sprintf("checking label %s", id), err)
	}
	if count == 0 {
		return notFound("label", id)
	}
	return nil
}
