package store

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/nhle/labeltasks/internal/model"
)

// Bit is a 0/1 INTEGER flag. It marshals as a JSON number like the raw
// table row, and also accepts JSON booleans when unmarshaling.
type Bit int

// MarshalJSON encodes the flag as 0 or 1.
func (b Bit) MarshalJSON() ([]byte, error) {
	if b != 0 {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON accepts 0, 1, true, false and null.
func (b *Bit) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		*b = 1
		return nil
	case "false", "null":
		*b = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("flag must be a number or boolean, got %s", data)
	}
	if n != 0 {
		*b = 1
	} else {
		*b = 0
	}
	return nil
}

func bit(v bool) Bit {
	return Bit(boolToInt(v))
}

// LabelRow mirrors one row of the labels table. It is the scan target for
// queries and the record format of backup files.
type LabelRow struct {
	ID            string  `db:"id" json:"id"`
	Title         string  `db:"title" json:"title"`
	Color         string  `db:"color" json:"color"`
	Category      *string `db:"category" json:"category"`
	OrderPosition int     `db:"order_position" json:"order_position"`
	IsFavorite    Bit     `db:"isFavorite" json:"isFavorite"`
	IsDeleted     Bit     `db:"isDeleted" json:"isDeleted"`
	DeletedAt     *string `db:"deletedAt" json:"deletedAt"`
	CreatedAt     string  `db:"createdAt" json:"createdAt"`
	UpdatedAt     string  `db:"updatedAt" json:"updatedAt"`
}

// TaskRow mirrors one row of the tasks table.
type TaskRow struct {
	ID               string  `db:"id" json:"id"`
	LabelID          string  `db:"labelId" json:"labelId"`
	Text             string  `db:"text" json:"text"`
	Date             string  `db:"date" json:"date"`
	Checked          Bit     `db:"checked" json:"checked"`
	OrderPosition    int     `db:"order_position" json:"order_position"`
	ReminderDateTime *string `db:"reminderDateTime" json:"reminderDateTime"`
	ReminderID       *string `db:"reminderId" json:"reminderId"`
	IsFavorite       Bit     `db:"isFavorite" json:"isFavorite"`
	IsDeleted        Bit     `db:"isDeleted" json:"isDeleted"`
	DeletedAt        *string `db:"deletedAt" json:"deletedAt"`
	CreatedAt        string  `db:"createdAt" json:"createdAt"`
	UpdatedAt        string  `db:"updatedAt" json:"updatedAt"`
}

// Label converts the row to its model form.
func (r LabelRow) Label() (model.Label, error) {
	l := model.Label{
		ID:            r.ID,
		Title:         r.Title,
		Color:         r.Color,
		Category:      r.Category,
		OrderPosition: r.OrderPosition,
		IsFavorite:    r.IsFavorite != 0,
		IsDeleted:     r.IsDeleted != 0,
	}

	var err error
	if l.DeletedAt, err = parseTimePtr(r.DeletedAt); err != nil {
		return model.Label{}, fmt.Errorf("label %s deletedAt: %w", r.ID, err)
	}
	if l.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return model.Label{}, fmt.Errorf("label %s createdAt: %w", r.ID, err)
	}
	if l.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return model.Label{}, fmt.Errorf("label %s updatedAt: %w", r.ID, err)
	}
	return l, nil
}

// Task converts the row to its model form.
func (r TaskRow) Task() (model.Task, error) {
	t := model.Task{
		ID:            r.ID,
		LabelID:       r.LabelID,
		Text:          r.Text,
		Checked:       r.Checked != 0,
		OrderPosition: r.OrderPosition,
		ReminderID:    r.ReminderID,
		IsFavorite:    r.IsFavorite != 0,
		IsDeleted:     r.IsDeleted != 0,
	}

	var err error
	if t.Date, err = parseTime(r.Date); err != nil {
		return model.Task{}, fmt.Errorf("task %s date: %w", r.ID, err)
	}
	if t.ReminderDateTime, err = parseTimePtr(r.ReminderDateTime); err != nil {
		return model.Task{}, fmt.Errorf("task %s reminderDateTime: %w", r.ID, err)
	}
	if t.DeletedAt, err = parseTimePtr(r.DeletedAt); err != nil {
		return model.Task{}, fmt.Errorf("task %s deletedAt: %w", r.ID, err)
	}
	if t.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return model.Task{}, fmt.Errorf("task %s createdAt: %w", r.ID, err)
	}
	if t.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return model.Task{}, fmt.Errorf("task %s updatedAt: %w", r.ID, err)
	}
	return t, nil
}

// Normalize fills the timestamps a row may omit and rewrites every
// timestamp in the storage layout, so the row reads back through Label.
// A missing updatedAt defaults to createdAt.
func (r *LabelRow) Normalize() error {
	if r.UpdatedAt == "" {
		r.UpdatedAt = r.CreatedAt
	}
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"createdAt", &r.CreatedAt},
		{"updatedAt", &r.UpdatedAt},
	} {
		if err := canonicalize(f.v); err != nil {
			return fmt.Errorf("label %s %s: %w", r.ID, f.name, err)
		}
	}
	if err := canonicalizePtr(&r.DeletedAt); err != nil {
		return fmt.Errorf("label %s deletedAt: %w", r.ID, err)
	}
	return nil
}

// Normalize fills the timestamps a row may omit and rewrites every
// timestamp in the storage layout, so the row reads back through Task.
// A missing date or updatedAt defaults to createdAt.
func (r *TaskRow) Normalize() error {
	if r.Date == "" {
		r.Date = r.CreatedAt
	}
	if r.UpdatedAt == "" {
		r.UpdatedAt = r.CreatedAt
	}
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"createdAt", &r.CreatedAt},
		{"updatedAt", &r.UpdatedAt},
		{"date", &r.Date},
	} {
		if err := canonicalize(f.v); err != nil {
			return fmt.Errorf("task %s %s: %w", r.ID, f.name, err)
		}
	}
	if err := canonicalizePtr(&r.ReminderDateTime); err != nil {
		return fmt.Errorf("task %s reminderDateTime: %w", r.ID, err)
	}
	if err := canonicalizePtr(&r.DeletedAt); err != nil {
		return fmt.Errorf("task %s deletedAt: %w", r.ID, err)
	}
	if r.ReminderID != nil && *r.ReminderID == "" {
		r.ReminderID = nil
	}
	return nil
}

func canonicalize(v *string) error {
	t, err := parseTime(*v)
	if err != nil {
		return err
	}
	*v = formatTime(t)
	return nil
}

func canonicalizePtr(v **string) error {
	if *v == nil {
		return nil
	}
	if **v == "" {
		*v = nil
		return nil
	}
	s := **v
	if err := canonicalize(&s); err != nil {
		return err
	}
	*v = &s
	return nil
}

// labelRowFrom converts a model label to its row form.
func labelRowFrom(l model.Label) LabelRow {
	return LabelRow{
		ID:            l.ID,
		Title:         l.Title,
		Color:         l.Color,
		Category:      l.Category,
		OrderPosition: l.OrderPosition,
		IsFavorite:    bit(l.IsFavorite),
		IsDeleted:     bit(l.IsDeleted),
		DeletedAt:     formatTimePtr(l.DeletedAt),
		CreatedAt:     formatTime(l.CreatedAt),
		UpdatedAt:     formatTime(l.UpdatedAt),
	}
}

// taskRowFrom converts a model task to its row form.
func taskRowFrom(t model.Task) TaskRow {
	return TaskRow{
		ID:               t.ID,
		LabelID:          t.LabelID,
		Text:             t.Text,
		Date:             formatTime(t.Date),
		Checked:          bit(t.Checked),
		OrderPosition:    t.OrderPosition,
		ReminderDateTime: formatTimePtr(t.ReminderDateTime),
		ReminderID:       t.ReminderID,
		IsFavorite:       bit(t.IsFavorite),
		IsDeleted:        bit(t.IsDeleted),
		DeletedAt:        formatTimePtr(t.DeletedAt),
		CreatedAt:        formatTime(t.CreatedAt),
		UpdatedAt:        formatTime(t.UpdatedAt),
	}
}

// labelsFromRows converts a slice of rows, failing on the first bad row.
func labelsFromRows(rows []LabelRow) ([]model.Label, error) {
	labels := make([]model.Label, 0, len(rows))
	for _, r := range rows {
		l, err := r.Label()
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// tasksFromRows converts a slice of rows, failing on the first bad row.
func tasksFromRows(rows []TaskRow) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		t, err := r.Task()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
