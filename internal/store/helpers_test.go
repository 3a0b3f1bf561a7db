package store

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/labeltasks/internal/model"
)

// testClock is a manually advanced time source.
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*SQLiteStore, *testClock) {
	t.Helper()

	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s, err := NewSQLiteStore(":memory:", WithClock(clock.Now))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s, clock
}

func mustCreateLabel(t *testing.T, s *SQLiteStore, title string) *model.Label {
	t.Helper()
	l, err := s.CreateLabel(context.Background(), title, "#1F78B4", nil)
	if err != nil {
		t.Fatalf("creating label %q: %v", title, err)
	}
	return l
}

func mustCreateTask(t *testing.T, s *SQLiteStore, labelID, text string) *model.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), labelID, text, nil)
	if err != nil {
		t.Fatalf("creating task %q: %v", text, err)
	}
	return task
}

func labelIDs(labels []model.Label) []string {
	ids := make([]string, len(labels))
	for i, l := range labels {
		ids[i] = l.ID
	}
	return ids
}

func taskIDs(tasks []model.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
