package backup

import (
	"errors"
	"testing"

	"github.com/nhle/labeltasks/internal/apperr"
)

func TestDecode(t *testing.T) {
	const label = `{"id": "l1", "title": "Work", "color": "#fff", "createdAt": "2026-03-01T09:00:00.000Z", "updatedAt": "2026-03-01T09:00:00.000Z"}`
	const task = `{"id": "t1", "labelId": "l1", "text": "Ship", "date": "2026-03-01T09:00:00.000Z", "checked": true, "createdAt": "2026-03-01T09:00:00.000Z", "updatedAt": "2026-03-01T09:00:00.000Z"}`

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:  "valid",
			input: `{"version": "1.0", "appName": "LabelTasks", "exportDate": "x", "labels": [` + label + `], "tasks": [` + task + `]}`,
		},
		{
			name:  "empty collections",
			input: `{"version": "1.0", "appName": "LabelTasks", "exportDate": "x", "labels": [], "tasks": []}`,
		},
		{
			name:    "not json",
			input:   `labels: []`,
			wantErr: apperr.ErrInvalidFormat,
		},
		{
			name:    "top-level array",
			input:   `[]`,
			wantErr: apperr.ErrIncompatibleFile,
		},
		{
			name:    "missing version",
			input:   `{"appName": "LabelTasks", "exportDate": "x", "labels": [], "tasks": []}`,
			wantErr: apperr.ErrIncompatibleFile,
		},
		{
			name:    "missing export date",
			input:   `{"version": "1.0", "appName": "LabelTasks", "labels": [], "tasks": []}`,
			wantErr: apperr.ErrIncompatibleFile,
		},
		{
			name:    "other app",
			input:   `{"version": "1.0", "appName": "Other", "exportDate": "x", "labels": [], "tasks": []}`,
			wantErr: apperr.ErrIncompatibleFile,
		},
		{
			name:    "labels not an array",
			input:   `{"version": "1.0", "appName": "LabelTasks", "exportDate": "x", "labels": {}, "tasks": []}`,
			wantErr: apperr.ErrIncompatibleFile,
		},
		{
			name:    "missing tasks",
			input:   `{"version": "1.0", "appName": "LabelTasks", "exportDate": "x", "labels": []}`,
			wantErr: apperr.ErrIncompatibleFile,
		},
		{
			name:    "label missing color",
			input:   `{"version": "1.0", "appName": "LabelTasks", "exportDate": "x", "labels": [{"id": "l1", "title": "Work", "createdAt": "2026-03-01T09:00:00.000Z"}], "tasks": []}`,
			wantErr: apperr.ErrIncompatibleFile,
		},
		{
			name:    "task with null labelId",
			input:   `{"version": "1.0", "appName": "LabelTasks", "exportDate": "x", "labels": [], "tasks": [{"id": "t1", "labelId": null, "text": "x", "createdAt": "2026-03-01T09:00:00.000Z"}]}`,
			wantErr: apperr.ErrIncompatibleFile,
		},
		{
			name:    "unreadable label timestamp",
			input:   `{"version": "1.0", "appName": "LabelTasks", "exportDate": "x", "labels": [{"id": "l1", "title": "Work", "color": "#fff", "createdAt": "yesterday"}], "tasks": []}`,
			wantErr: apperr.ErrIncompatibleFile,
		},
		{
			name:    "unreadable reminder time",
			input:   `{"version": "1.0", "appName": "LabelTasks", "exportDate": "x", "labels": [], "tasks": [{"id": "t1", "labelId": "l1", "text": "x", "createdAt": "2026-03-01T09:00:00.000Z", "reminderDateTime": "soon"}]}`,
			wantErr: apperr.ErrIncompatibleFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.input), "LabelTasks")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if doc.Version != "1.0" {
				t.Errorf("version = %q", doc.Version)
			}
		})
	}
}

func TestDecodeAcceptsBooleanFlags(t *testing.T) {
	input := `{"version": "1.0", "appName": "LabelTasks", "exportDate": "x", "labels": [], "tasks": [
		{"id": "t1", "labelId": "l1", "text": "Ship", "checked": true, "isFavorite": false, "createdAt": "2026-03-01T09:00:00.000Z"}
	]}`

	doc, err := Decode([]byte(input), "LabelTasks")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Tasks[0].Checked != 1 || doc.Tasks[0].IsFavorite != 0 {
		t.Errorf("flags = %d/%d", doc.Tasks[0].Checked, doc.Tasks[0].IsFavorite)
	}
}

func TestDecodeFillsOmittedTimestamps(t *testing.T) {
	input := `{"version": "1.0", "appName": "LabelTasks", "exportDate": "x",
		"labels": [{"id": "l1", "title": "Work", "color": "#fff", "createdAt": "2026-03-01 09:00:00"}],
		"tasks": [{"id": "t1", "labelId": "l1", "text": "Ship", "createdAt": "2026-03-01T10:00:00Z", "reminderDateTime": ""}]}`

	doc, err := Decode([]byte(input), "LabelTasks")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	l := doc.Labels[0]
	if l.CreatedAt != "2026-03-01T09:00:00.000Z" || l.UpdatedAt != l.CreatedAt {
		t.Errorf("label timestamps = %q / %q", l.CreatedAt, l.UpdatedAt)
	}

	task := doc.Tasks[0]
	if task.Date != "2026-03-01T10:00:00.000Z" || task.UpdatedAt != task.Date {
		t.Errorf("task timestamps = date %q updatedAt %q", task.Date, task.UpdatedAt)
	}
	if task.ReminderDateTime != nil {
		t.Errorf("empty reminder time kept as %q", *task.ReminderDateTime)
	}
	if _, err := task.Task(); err != nil {
		t.Errorf("normalized row does not convert: %v", err)
	}
}
