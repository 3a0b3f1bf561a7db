package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// LastBackup describes the most recent successful export.
type LastBackup struct {
	At          time.Time
	Path        string
	LabelsCount int
	TasksCount  int
}

// MetaStore persists the last-backup record.
type MetaStore interface {
	Load() (*LastBackup, error)
	Save(b LastBackup) error
}

// MetaFile stores the last-backup record in a small YAML file.
type MetaFile struct {
	path string
}

// NewMetaFile returns a MetaFile at path. The file is created on the first
// Save.
func NewMetaFile(path string) *MetaFile {
	return &MetaFile{path: path}
}

// Load reads the record. It returns nil without error when no backup has
// been recorded yet.
func (m *MetaFile) Load() (*LastBackup, error) {
	v := viper.New()
	v.SetConfigFile(m.path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &pathErr) || errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup metadata %s: %w", m.path, err)
	}

	if !v.IsSet("last_backup.at") {
		return nil, nil
	}
	at := v.GetTime("last_backup.at")
	if at.IsZero() {
		return nil, fmt.Errorf("parsing backup metadata %s: bad timestamp %q",
			m.path, v.GetString("last_backup.at"))
	}

	return &LastBackup{
		At:          at.UTC(),
		Path:        v.GetString("last_backup.path"),
		LabelsCount: v.GetInt("last_backup.labels_count"),
		TasksCount:  v.GetInt("last_backup.tasks_count"),
	}, nil
}

// Save overwrites the record, creating parent directories if needed.
func (m *MetaFile) Save(b LastBackup) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metadata directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("last_backup.at", b.At.UTC().Format(time.RFC3339Nano))
	v.Set("last_backup.path", b.Path)
	v.Set("last_backup.labels_count", b.LabelsCount)
	v.Set("last_backup.tasks_count", b.TasksCount)

	if err := v.WriteConfigAs(m.path); err != nil {
		return fmt.Errorf("writing backup metadata to %s: %w", m.path, err)
	}
	return nil
}
