package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/labeltasks/internal/apperr"
)

// ExportRows returns every row of both tables, soft-deleted rows included,
// in insertion order.
func (s *SQLiteStore) ExportRows(ctx context.Context) ([]LabelRow, []TaskRow, error) {
	var labels []LabelRow
	if err := s.db.SelectContext(ctx, &labels,
		"SELECT * FROM labels ORDER BY rowid"); err != nil {
		return nil, nil, storageErr("exporting labels", err)
	}

	var tasks []TaskRow
	if err := s.db.SelectContext(ctx, &tasks,
		"SELECT * FROM tasks ORDER BY rowid"); err != nil {
		return nil, nil, storageErr("exporting tasks", err)
	}

	return labels, tasks, nil
}

// ImportRows upserts every label and task by id in one transaction.
// Existing rows with the same id are overwritten in full. Rows are
// updated in place rather than replaced so that overwriting a label does
// not cascade-delete tasks missing from the import. Rows are normalized
// first; a row whose timestamps cannot be read fails with ErrValidation
// before anything is written.
func (s *SQLiteStore) ImportRows(ctx context.Context, labels []LabelRow, tasks []TaskRow) error {
	labels = append([]LabelRow(nil), labels...)
	for i := range labels {
		if err := labels[i].Normalize(); err != nil {
			return fmt.Errorf("importing: %v: %w", err, apperr.ErrValidation)
		}
	}
	tasks = append([]TaskRow(nil), tasks...)
	for i := range tasks {
		if err := tasks[i].Normalize(); err != nil {
			return fmt.Errorf("importing: %v: %w", err, apperr.ErrValidation)
		}
	}

	return s.withTx(ctx, "importing backup", func(tx *sqlx.Tx) error {
		labelStmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO labels (
				id, title, color, category, order_position,
				isFavorite, isDeleted, deletedAt, createdAt, updatedAt
			) VALUES (
				:id, :title, :color, :category, :order_position,
				:isFavorite, :isDeleted, :deletedAt, :createdAt, :updatedAt
			)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				color = excluded.color,
				category = excluded.category,
				order_position = excluded.order_position,
				isFavorite = excluded.isFavorite,
				isDeleted = excluded.isDeleted,
				deletedAt = excluded.deletedAt,
				createdAt = excluded.createdAt,
				updatedAt = excluded.updatedAt`)
		if err != nil {
			return storageErr("preparing label upsert", err)
		}
		defer labelStmt.Close()

		for _, l := range labels {
			if _, err := labelStmt.ExecContext(ctx, l); err != nil {
				return storageErr(fmt.Sprintf("upserting label %s", l.ID), err)
			}
		}

		taskStmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO tasks (
				id, labelId, text, date, checked, order_position,
				reminderDateTime, reminderId, isFavorite, isDeleted,
				deletedAt, createdAt, updatedAt
			) VALUES (
				:id, :labelId, :text, :date, :checked, :order_position,
				:reminderDateTime, :reminderId, :isFavorite, :isDeleted,
				:deletedAt, :createdAt, :updatedAt
			)
			ON CONFLICT(id) DO UPDATE SET
				labelId = excluded.labelId,
				text = excluded.text,
				date = excluded.date,
				checked = excluded.checked,
				order_position = excluded.order_position,
				reminderDateTime = excluded.reminderDateTime,
				reminderId = excluded.reminderId,
				isFavorite = excluded.isFavorite,
				isDeleted = excluded.isDeleted,
				deletedAt = excluded.deletedAt,
				createdAt = excluded.createdAt,
				updatedAt = excluded.updatedAt`)
		if err != nil {
			return storageErr("preparing task upsert", err)
		}
		defer taskStmt.Close()

		for _, t := range tasks {
			if _, err := taskStmt.ExecContext(ctx, t); err != nil {
				return storageErr(fmt.Sprintf("upserting task %s", t.ID), err)
			}
		}

		return nil
	})
}
