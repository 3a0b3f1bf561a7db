package model

import "time"

// Task is a single to-do item belonging to exactly one label.
type Task struct {
	ID      string `json:"id" db:"id"`
	LabelID string `json:"labelId" db:"labelId"`
	Text    string `json:"text" db:"text"`

	// Date is the legacy display timestamp, set once at creation.
	Date time.Time `json:"date" db:"date"`

	Checked       bool `json:"checked" db:"checked"`
	OrderPosition int  `json:"order_position" db:"order_position"`

	// ReminderDateTime and ReminderID are set together when a
	// notification has been scheduled for the task.
	ReminderDateTime *time.Time `json:"reminderDateTime,omitempty" db:"reminderDateTime"`
	ReminderID       *string    `json:"reminderId,omitempty" db:"reminderId"`

	IsFavorite bool       `json:"isFavorite" db:"isFavorite"`
	IsDeleted  bool       `json:"isDeleted" db:"isDeleted"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty" db:"deletedAt"`
	CreatedAt  time.Time  `json:"createdAt" db:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updatedAt"`
}

// HasActiveReminder reports whether the task has a scheduled reminder
// that has not fired yet as of now. It is derived, never stored.
func (t Task) HasActiveReminder(now time.Time) bool {
	return t.ReminderDateTime != nil &&
		t.ReminderID != nil &&
		t.ReminderDateTime.After(now)
}

// HasReminderHandle reports whether a notification handle is recorded,
// regardless of whether the reminder time has passed.
func (t Task) HasReminderHandle() bool {
	return t.ReminderID != nil && *t.ReminderID != ""
}
