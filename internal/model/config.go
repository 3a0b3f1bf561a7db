package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultAppName is the identity stamped into backup files. Imports are
// rejected unless the file carries the same name.
const DefaultAppName = "LabelTasks"

// AppSection holds identity settings.
type AppSection struct {
	Name string `mapstructure:"name" yaml:"name"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// BackupConfig holds backup destinations.
type BackupConfig struct {
	// Dir is where exports are written when no directory is picked
	// interactively.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// MetaPath is the YAML file recording the last successful export.
	MetaPath string `mapstructure:"meta_path" yaml:"meta_path"`
}

// NotificationConfig controls the local notification scheduler.
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ReminderConfig controls background reminder reconciliation.
type ReminderConfig struct {
	SweepIntervalSec int `mapstructure:"sweep_interval_sec" yaml:"sweep_interval_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	App           AppSection         `mapstructure:"app" yaml:"app"`
	Database      DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Backup        BackupConfig       `mapstructure:"backup" yaml:"backup"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Reminders     ReminderConfig     `mapstructure:"reminders" yaml:"reminders"`
}

// configDir returns ~/.config/labeltasks, falling back to the working
// directory when the home directory is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "labeltasks")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/labeltasks/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := configDir()
	return &AppConfig{
		App:      AppSection{Name: DefaultAppName},
		Database: DatabaseConfig{Path: filepath.Join(dir, "labeltasks.db")},
		Backup: BackupConfig{
			Dir:      filepath.Join(dir, "backups"),
			MetaPath: filepath.Join(dir, "last_backup.yaml"),
		},
		Notifications: NotificationConfig{Enabled: true},
		Reminders:     ReminderConfig{SweepIntervalSec: 60},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Values may be overridden by LABELTASKS_* environment variables, which are
// also read from a .env file in the working directory when present.
// If the config file does not exist, defaults are used.
func LoadConfig(path string) (*AppConfig, error) {
	// .env is optional.
	_ = godotenv.Load()

	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("labeltasks")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.name", def.App.Name)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("backup.dir", def.Backup.Dir)
	v.SetDefault("backup.meta_path", def.Backup.MetaPath)
	v.SetDefault("notifications.enabled", def.Notifications.Enabled)
	v.SetDefault("reminders.sweep_interval_sec", def.Reminders.SweepIntervalSec)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if strings.TrimSpace(cfg.App.Name) == "" {
		cfg.App.Name = DefaultAppName
	}
	if cfg.Reminders.SweepIntervalSec <= 0 {
		cfg.Reminders.SweepIntervalSec = def.Reminders.SweepIntervalSec
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("app", cfg.App)
	v.Set("database", cfg.Database)
	v.Set("backup", cfg.Backup)
	v.Set("notifications", cfg.Notifications)
	v.Set("reminders", cfg.Reminders)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
