package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nhle/labeltasks/internal/apperr"
	"github.com/nhle/labeltasks/internal/store"
)

// exportDateLayout matches the timestamps stored in the database.
const exportDateLayout = "2006-01-02T15:04:05.000Z07:00"

// ExportResult describes a finished export.
type ExportResult struct {
	Path        string
	ExportDate  time.Time
	LabelsCount int
	TasksCount  int
}

// ImportResult counts the rows written by an import.
type ImportResult struct {
	LabelsCount int
	TasksCount  int
}

// Service exports and imports backups.
type Service struct {
	repo    store.BackupRepository
	appName string

	dirs    DirectoryPicker
	sharer  Sharer
	files   FilePicker
	meta    MetaStore
	tempDir string
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithDirectoryPicker makes exports ask for a destination directory.
func WithDirectoryPicker(p DirectoryPicker) Option {
	return func(s *Service) { s.dirs = p }
}

// WithSharer hands exports to a Sharer when no directory picker is set.
func WithSharer(sh Sharer) Option {
	return func(s *Service) { s.sharer = sh }
}

// WithFilePicker sets how imports choose their file.
func WithFilePicker(p FilePicker) Option {
	return func(s *Service) { s.files = p }
}

// WithMeta records every successful export in m.
func WithMeta(m MetaStore) Option {
	return func(s *Service) { s.meta = m }
}

// WithTempDir sets where files handed to a Sharer are staged.
func WithTempDir(dir string) Option {
	return func(s *Service) { s.tempDir = dir }
}

// WithClock overrides the time source for export dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a backup service for the app named appName.
func NewService(repo store.BackupRepository, appName string, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		appName: appName,
		tempDir: os.TempDir(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export writes every label and task, soft-deleted ones included, to a
// new backup file. The destination comes from the directory picker when
// one is configured; otherwise the file is staged in the temp directory
// and handed to the sharer.
func (s *Service) Export(ctx context.Context) (*ExportResult, error) {
	labels, tasks, err := s.repo.ExportRows(ctx)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 && len(tasks) == 0 {
		return nil, fmt.Errorf("nothing to export: %w", apperr.ErrNoData)
	}

	now := s.now().UTC()
	doc := Document{
		Version:    FormatVersion,
		AppName:    s.appName,
		ExportDate: now.Format(exportDateLayout),
		Labels:     labels,
		Tasks:      tasks,
	}
	if doc.Labels == nil {
		doc.Labels = []store.LabelRow{}
	}
	if doc.Tasks == nil {
		doc.Tasks = []store.TaskRow{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding backup: %w", err)
	}

	name := s.fileName(now)
	var path string

	switch {
	case s.dirs != nil:
		dir, err := s.dirs.PickDirectory(ctx)
		if err != nil {
			if errors.Is(err, apperr.ErrCancelled) {
				return nil, fmt.Errorf("export destination not chosen: %w", apperr.ErrPermissionDenied)
			}
			return nil, fmt.Errorf("choosing export directory: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating export directory %s: %w", dir, err)
		}
		path = filepath.Join(dir, name)
		if err := writeFileAtomic(path, data); err != nil {
			return nil, err
		}

	case s.sharer != nil:
		path = filepath.Join(s.tempDir, name)
		if err := writeFileAtomic(path, data); err != nil {
			return nil, err
		}
		if err := s.sharer.Share(ctx, path); err != nil {
			os.Remove(path)
			if errors.Is(err, apperr.ErrCancelled) {
				return nil, fmt.Errorf("export not shared: %w", apperr.ErrPermissionDenied)
			}
			return nil, fmt.Errorf("sharing backup: %w", err)
		}

	default:
		return nil, fmt.Errorf("no export destination configured")
	}

	res := &ExportResult{
		Path:        path,
		ExportDate:  now,
		LabelsCount: len(labels),
		TasksCount:  len(tasks),
	}

	if s.meta != nil {
		if err := s.meta.Save(LastBackup{
			At:          now,
			Path:        path,
			LabelsCount: res.LabelsCount,
			TasksCount:  res.TasksCount,
		}); err != nil {
			log.Printf("backup: recording last backup: %v", err)
		}
	}

	return res, nil
}

// LastBackup returns the most recent export, or nil if none is recorded.
func (s *Service) LastBackup() (*LastBackup, error) {
	if s.meta == nil {
		return nil, nil
	}
	return s.meta.Load()
}

// Import asks for a backup file and restores it.
func (s *Service) Import(ctx context.Context) (*ImportResult, error) {
	if s.files == nil {
		return nil, fmt.Errorf("no backup file picker configured")
	}

	path, err := s.files.PickFile(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("choosing backup file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", path, err)
	}
	return s.ImportData(ctx, data)
}

// ImportData validates data as a backup file and upserts every row it
// contains by id in one transaction. Rows with an existing id are
// overwritten; rows not present in the file are kept.
func (s *Service) ImportData(ctx context.Context, data []byte) (*ImportResult, error) {
	doc, err := Decode(data, s.appName)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ImportRows(ctx, doc.Labels, doc.Tasks); err != nil {
		return nil, err
	}

	return &ImportResult{
		LabelsCount: len(doc.Labels),
		TasksCount:  len(doc.Tasks),
	}, nil
}

// fileName builds the export file name, e.g. labeltasks_backup_20260301_090000.json.
func (s *Service) fileName(at time.Time) string {
	prefix := strings.ToLower(strings.Join(strings.Fields(s.appName), "_"))
	if prefix == "" {
		prefix = "backup"
	}
	return fmt.Sprintf("%s_backup_%s.json", prefix, at.Format("20060102_150405"))
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place. The temporary file is removed on any failure.
func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
