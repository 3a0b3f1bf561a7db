// Package notify defines the contract of the one-shot notification
// scheduler used for task reminders, and an in-process implementation.
package notify

import (
	"context"
	"time"
)

// Payload is attached to every notification and handed back on delivery.
type Payload struct {
	TaskID string `json:"taskId"`
}

// Notification is a single reminder to show to the user.
type Notification struct {
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	Payload Payload `json:"payload"`
}

// Notifier schedules and cancels one-shot notifications.
type Notifier interface {
	// PermissionGranted reports whether notifications may be scheduled.
	PermissionGranted(ctx context.Context) (bool, error)

	// RequestPermission asks the user for permission and reports the answer.
	RequestPermission(ctx context.Context) (bool, error)

	// ScheduleOneShot schedules n to fire once after delay and returns an
	// opaque handle for cancellation.
	ScheduleOneShot(ctx context.Context, delay time.Duration, n Notification) (string, error)

	// Cancel removes a scheduled notification. Cancelling a handle that
	// already fired or was never issued is not an error.
	Cancel(ctx context.Context, handle string) error
}

// Tracker is implemented by notifiers that can tell whether a handle is
// still pending. Reconciliation uses it to find reminders whose
// notification was lost.
type Tracker interface {
	Has(handle string) bool
}

// DeliveryHandler is called when a notification fires.
type DeliveryHandler func(n Notification)
