package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nhle/labeltasks/internal/apperr"
	"github.com/nhle/labeltasks/internal/backup"
	"github.com/nhle/labeltasks/internal/model"
	"github.com/nhle/labeltasks/internal/notify"
	"github.com/nhle/labeltasks/internal/reminder"
	"github.com/nhle/labeltasks/internal/state"
	"github.com/nhle/labeltasks/internal/store"
)

// runtime holds everything a command needs.
type runtime struct {
	cfg       *model.AppConfig
	store     *store.SQLiteStore
	scheduler *notify.LocalScheduler
	coord     *reminder.Coordinator
	backups   *backup.Service
	picker    *backup.PathPicker
	app       *state.App
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	cmd := os.Args[1]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	handler, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	rt, err := open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = handler(ctx, rt, os.Args[2:])
	rt.close()
	if err != nil {
		if apperr.Silent(err) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		os.Exit(1)
	}
}

// open loads configuration and wires the store, scheduler, reminder
// coordinator, backup service and state collections.
func open(ctx context.Context) (*runtime, error) {
	configPath := os.Getenv("LABELTASKS_CONFIG")
	if configPath == "" {
		configPath = model.DefaultConfigPath()
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	scheduler := notify.NewLocalScheduler(cfg.Notifications.Enabled)
	coord := reminder.New(st, scheduler, reminder.WithPermissionDenied(func() {
		fmt.Fprintln(os.Stderr, "Notifications are disabled. Enable them with notifications.enabled in",
			configPath, "to receive reminders.")
	}))

	picker := &backup.PathPicker{Dir: cfg.Backup.Dir}
	backups := backup.NewService(st, cfg.App.Name,
		backup.WithDirectoryPicker(picker),
		backup.WithFilePicker(picker),
		backup.WithMeta(backup.NewMetaFile(cfg.Backup.MetaPath)),
	)

	app := state.NewApp(st, coord, backups)
	if err := app.ReloadAll(ctx); err != nil {
		st.Close()
		return nil, err
	}

	return &runtime{
		cfg:       cfg,
		store:     st,
		scheduler: scheduler,
		coord:     coord,
		backups:   backups,
		picker:    picker,
		app:       app,
	}, nil
}

func (rt *runtime) close() {
	rt.app.Close()
	rt.scheduler.Close()
	if err := rt.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing database: %v\n", err)
	}
}

// describe turns an error into a message for the user.
func describe(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return fmt.Sprintf("not found (%v)", err)
	case apperr.KindValidation:
		return fmt.Sprintf("invalid input: %v", err)
	case apperr.KindStorage:
		return fmt.Sprintf("the database could not be updated, nothing was changed: %v", err)
	case apperr.KindPermissionDenied:
		return fmt.Sprintf("permission denied: %v", err)
	case apperr.KindInvalidFormat:
		return "the selected file is not a valid backup"
	case apperr.KindIncompatibleFile:
		return fmt.Sprintf("the selected backup is not compatible with this app: %v", err)
	case apperr.KindNoData:
		return "there is nothing to back up yet"
	default:
		return err.Error()
	}
}

func printUsage() {
	fmt.Println(`labeltasks - Manage labelled task lists

Usage: labeltasks <command> [options]

Commands:
  labels                        List active labels with task counts
  labels --favorites            List favorite labels
  labels --trash                List deleted labels
  labels --category=<name>      List labels of one category
  add-label <title>             Create a label (--color, --category)
  edit-label <id>               Change a label (--title, --color, --category)
  fav-label <id>                Toggle a label's favorite flag
  delete-label <id>             Move a label and its tasks to the trash
  delete-label --purge --yes <id>  Delete a label and its tasks permanently
  restore-label <id>            Restore a label and all of its tasks
  reorder-labels <id>...        Set the manual label order

  tasks [<label-id>]            List active tasks
  tasks --favorites|--trash|--reminders
  add-task <label-id> <text>    Create a task (--remind-in=5m, --remind-at=<RFC3339>)
  edit-task <id> <text>         Change text and reminder (--remind-in, --remind-at, --no-reminder)
  remind <id>                   Set a reminder (--in=5m, --at=<RFC3339>, --clear)
  check <id>                    Toggle a task's checked flag
  fav-task <id>                 Toggle a task's favorite flag
  delete-task <id>              Move a task to the trash
  delete-task --purge --yes <id>  Delete a task permanently
  restore-task <id>             Restore a task from the trash
  reorder-tasks <id>...         Set the manual order within one label

  export [--dir=<path>]         Write a backup file
  import --yes <file>           Restore a backup, overwriting rows with the same id
  last-backup                   Show the most recent export

  watch                         Deliver reminders until interrupted

Environment:
  LABELTASKS_CONFIG             Config file (default: ~/.config/labeltasks/config.yaml)
  LABELTASKS_DATABASE_PATH      Overrides database.path
  LABELTASKS_BACKUP_DIR         Overrides backup.dir`)
}
