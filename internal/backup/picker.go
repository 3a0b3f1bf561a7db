package backup

import (
	"context"
	"fmt"

	"github.com/nhle/labeltasks/internal/apperr"
)

// DirectoryPicker lets the user choose where an export is written.
// Implementations return an error wrapping apperr.ErrCancelled when the
// user dismisses the picker.
type DirectoryPicker interface {
	PickDirectory(ctx context.Context) (string, error)
}

// FilePicker lets the user choose a backup file to import. Implementations
// return an error wrapping apperr.ErrCancelled when the user dismisses the
// picker.
type FilePicker interface {
	PickFile(ctx context.Context) (string, error)
}

// Sharer hands a finished export file to another app.
type Sharer interface {
	Share(ctx context.Context, path string) error
}

// PathPicker answers both pickers with fixed paths. An empty path behaves
// like a dismissed picker.
type PathPicker struct {
	Dir  string
	File string
}

// PickDirectory implements DirectoryPicker.
func (p PathPicker) PickDirectory(ctx context.Context) (string, error) {
	if p.Dir == "" {
		return "", fmt.Errorf("no export directory chosen: %w", apperr.ErrCancelled)
	}
	return p.Dir, nil
}

// PickFile implements FilePicker.
func (p PathPicker) PickFile(ctx context.Context) (string, error) {
	if p.File == "" {
		return "", fmt.Errorf("no backup file chosen: %w", apperr.ErrCancelled)
	}
	return p.File, nil
}
