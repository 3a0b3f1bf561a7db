package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nhle/labeltasks/internal/model"
	"github.com/nhle/labeltasks/internal/notify"
	"github.com/nhle/labeltasks/internal/reminder"
	"github.com/nhle/labeltasks/internal/store"
)

type command func(ctx context.Context, rt *runtime, args []string) error

var commands = map[string]command{
	"labels":         handleLabels,
	"add-label":      handleAddLabel,
	"edit-label":     handleEditLabel,
	"fav-label":      handleFavLabel,
	"delete-label":   handleDeleteLabel,
	"restore-label":  handleRestoreLabel,
	"reorder-labels": handleReorderLabels,
	"tasks":          handleTasks,
	"add-task":       handleAddTask,
	"edit-task":      handleEditTask,
	"remind":         handleRemind,
	"check":          handleCheck,
	"fav-task":       handleFavTask,
	"delete-task":    handleDeleteTask,
	"restore-task":   handleRestoreTask,
	"reorder-tasks":  handleReorderTasks,
	"export":         handleExport,
	"import":         handleImport,
	"last-backup":    handleLastBackup,
	"watch":          handleWatch,
}

// parseInterspersed parses flags that may appear before, between or
// after positional arguments, and returns the positional ones.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

func needArgs(name string, pos []string, n int) error {
	if len(pos) < n {
		return fmt.Errorf("%s: expected %d argument(s), got %d", name, n, len(pos))
	}
	return nil
}

// reminderFlags registers --<prefix>in and --<prefix>at on fs.
type reminderFlags struct {
	in *time.Duration
	at *string
}

func addReminderFlags(fs *flag.FlagSet, prefix string) reminderFlags {
	return reminderFlags{
		in: fs.Duration(prefix+"in", 0, "Remind after this long, e.g. 5m"),
		at: fs.String(prefix+"at", "", "Remind at this RFC3339 time"),
	}
}

// value returns the requested reminder time, or nil when neither flag is set.
func (f reminderFlags) value() (*time.Time, error) {
	switch {
	case *f.at != "":
		at, err := time.Parse(time.RFC3339, *f.at)
		if err != nil {
			return nil, fmt.Errorf("parsing reminder time %q: %w", *f.at, err)
		}
		return &at, nil
	case *f.in > 0:
		at := time.Now().Add(*f.in)
		return &at, nil
	}
	return nil, nil
}

func handleLabels(ctx context.Context, rt *runtime, args []string) error {
	fs := flag.NewFlagSet("labels", flag.ContinueOnError)
	favorites := fs.Bool("favorites", false, "Only favorite labels")
	trash := fs.Bool("trash", false, "Only deleted labels")
	category := fs.String("category", "", "Only labels of this category")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}

	labels := rt.app.Labels.Active()
	switch {
	case *trash:
		labels = rt.app.Labels.Deleted()
	case *favorites:
		labels = rt.app.Labels.Favorites()
	case *category != "":
		labels = rt.app.Labels.ByCategory(*category)
	}

	if len(labels) == 0 {
		fmt.Println("No labels.")
		return nil
	}
	for _, l := range labels {
		counts, err := rt.store.CountTasks(ctx, l.ID)
		if err != nil {
			return err
		}
		printLabel(l, counts)
	}
	return nil
}

func printLabel(l model.Label, counts store.TaskCounts) {
	star := " "
	if l.IsFavorite {
		star = "*"
	}
	fmt.Printf("%s %-36s  %-20s %-9s %-12s %d/%d done\n",
		star, l.ID, l.Title, l.Color, l.CategoryName(), counts.Completed, counts.Total)
	if l.DeletedAt != nil {
		fmt.Printf("  deleted %s\n", l.DeletedAt.Local().Format(time.RFC822))
	}
}

func handleAddLabel(ctx context.Context, rt *runtime, args []string) error {
	fs := flag.NewFlagSet("add-label", flag.ContinueOnError)
	color := fs.String("color", "#1F78B4", "Label color")
	category := fs.String("category", "", "Label category")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := needArgs("add-label", pos, 1); err != nil {
		return err
	}

	l, err := rt.app.Labels.Create(ctx, strings.Join(pos, " "), *color, category)
	if err != nil {
		return err
	}
	fmt.Printf("Created label %s (%s)\n", l.Title, l.ID)
	return nil
}

func handleEditLabel(ctx context.Context, rt *runtime, args []string) error {
	fs := flag.NewFlagSet("edit-label", flag.ContinueOnError)
	title := fs.String("title", "", "New title")
	color := fs.String("color", "", "New color")
	category := fs.String("category", "", "New category, or - to clear")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := needArgs("edit-label", pos, 1); err != nil {
		return err
	}

	var upd store.LabelUpdate
	if *title != "" {
		upd.Title = title
	}
	if *color != "" {
		upd.Color = color
	}
	switch *category {
	case "":
	case "-":
		empty := ""
		upd.Category = &empty
	default:
		upd.Category = category
	}

	l, err := rt.app.Labels.Update(ctx, pos[0], upd)
	if err != nil {
		return err
	}
	fmt.Printf("Updated label %s\n", l.Title)
	return nil
}

func handleFavLabel(ctx context.Context, rt *runtime, args []string) error {
	if err := needArgs("fav-label", args, 1); err != nil {
		return err
	}
	l, err := rt.app.Labels.ToggleFavorite(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s favorite: %v\n", l.Title, l.IsFavorite)
	return nil
}

func handleDeleteLabel(ctx context.Context, rt *runtime, args []string) error {
	fs := flag.NewFlagSet("delete-label", flag.ContinueOnError)
	purge := fs.Bool("purge", false, "Delete permanently")
	yes := fs.Bool("yes", false, "Confirm permanent deletion")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := needArgs("delete-label", pos, 1); err != nil {
		return err
	}

	if *purge {
		if !*yes {
			return fmt.Errorf("this permanently deletes the label and all associated tasks; rerun with --yes")
		}
		if err := rt.app.PurgeLabel(ctx, pos[0]); err != nil {
			return err
		}
		fmt.Println("Label and its tasks deleted permanently.")
		return nil
	}

	if err := rt.app.DeleteLabel(ctx, pos[0]); err != nil {
		return err
	}
	fmt.Println("Label and its tasks moved to the trash.")
	return nil
}

func handleRestoreLabel(ctx context.Context, rt *runtime, args []string) error {
	if err := needArgs("restore-label", args, 1); err != nil {
		return err
	}
	if err := rt.app.RestoreLabel(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("Label and all of its tasks restored.")
	return nil
}

func handleReorderLabels(ctx context.Context, rt *runtime, args []string) error {
	if err := needArgs("reorder-labels", args, 1); err != nil {
		return err
	}
	return rt.app.Labels.Reorder(ctx, args)
}

func handleTasks(ctx context.Context, rt *runtime, args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ContinueOnError)
	favorites := fs.Bool("favorites", false, "Only favorite tasks")
	trash := fs.Bool("trash", false, "Only deleted tasks")
	reminders := fs.Bool("reminders", false, "Only tasks with a pending reminder")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}

	tasks := rt.app.Tasks.Active()
	switch {
	case *trash:
		tasks = rt.app.Tasks.Deleted()
	case *favorites:
		tasks = rt.app.Tasks.Favorites()
	case *reminders:
		tasks = rt.app.Tasks.WithActiveReminders(time.Now())
	case len(pos) > 0:
		tasks = rt.app.Tasks.ByLabel(pos[0])
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}
	now := time.Now()
	for _, t := range tasks {
		printTask(t, now)
	}
	return nil
}

func printTask(t model.Task, now time.Time) {
	box := "[ ]"
	if t.Checked {
		box = "[x]"
	}
	star := ""
	if t.IsFavorite {
		star = " *"
	}
	fmt.Printf("%s %s  %s%s\n", box, t.ID, t.Text, star)
	if t.HasActiveReminder(now) {
		fmt.Printf("    reminder %s\n", t.ReminderDateTime.Local().Format(time.RFC822))
	}
}

func handleAddTask(ctx context.Context, rt *runtime, args []string) error {
	fs := flag.NewFlagSet("add-task", flag.ContinueOnError)
	rf := addReminderFlags(fs, "remind-")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := needArgs("add-task", pos, 2); err != nil {
		return err
	}
	at, err := rf.value()
	if err != nil {
		return err
	}

	t, err := rt.app.Tasks.Create(ctx, pos[0], strings.Join(pos[1:], " "), at)
	if err != nil {
		return err
	}
	fmt.Printf("Created task %s\n", t.ID)
	return nil
}

func handleEditTask(ctx context.Context, rt *runtime, args []string) error {
	fs := flag.NewFlagSet("edit-task", flag.ContinueOnError)
	rf := addReminderFlags(fs, "remind-")
	noReminder := fs.Bool("no-reminder", false, "Remove the reminder")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := needArgs("edit-task", pos, 2); err != nil {
		return err
	}

	// Keep the current reminder unless a flag changes it.
	current, _ := rt.app.Tasks.Get(pos[0])
	edit := reminder.Edit{
		Text:       strings.Join(pos[1:], " "),
		ReminderAt: current.ReminderDateTime,
	}
	if *noReminder {
		edit.ReminderAt = nil
	} else if at, err := rf.value(); err != nil {
		return err
	} else if at != nil {
		edit.ReminderAt = at
	}

	t, err := rt.app.Tasks.Edit(ctx, pos[0], edit)
	if err != nil {
		return err
	}
	fmt.Printf("Updated task %s\n", t.ID)
	return nil
}

func handleRemind(ctx context.Context, rt *runtime, args []string) error {
	fs := flag.NewFlagSet("remind", flag.ContinueOnError)
	rf := addReminderFlags(fs, "")
	cancel := fs.Bool("clear", false, "Cancel the reminder")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := needArgs("remind", pos, 1); err != nil {
		return err
	}

	if *cancel {
		if _, err := rt.app.Tasks.CancelReminder(ctx, pos[0]); err != nil {
			return err
		}
		fmt.Println("Reminder cancelled.")
		return nil
	}

	at, err := rf.value()
	if err != nil {
		return err
	}
	if at == nil {
		return fmt.Errorf("remind: one of --in, --at or --clear is required")
	}
	t, err := rt.app.Tasks.SetReminder(ctx, pos[0], at)
	if err != nil {
		return err
	}
	if t.ReminderID == nil {
		fmt.Println("Reminder time saved, but no notification could be scheduled.")
		return nil
	}
	fmt.Printf("Reminder set for %s. Keep `labeltasks watch` running to receive it.\n",
		t.ReminderDateTime.Local().Format(time.RFC822))
	return nil
}

func handleCheck(ctx context.Context, rt *runtime, args []string) error {
	if err := needArgs("check", args, 1); err != nil {
		return err
	}
	t, err := rt.app.Tasks.ToggleChecked(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s checked: %v\n", t.Text, t.Checked)
	return nil
}

func handleFavTask(ctx context.Context, rt *runtime, args []string) error {
	if err := needArgs("fav-task", args, 1); err != nil {
		return err
	}
	t, err := rt.app.Tasks.ToggleFavorite(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s favorite: %v\n", t.Text, t.IsFavorite)
	return nil
}

func handleDeleteTask(ctx context.Context, rt *runtime, args []string) error {
	fs := flag.NewFlagSet("delete-task", flag.ContinueOnError)
	purge := fs.Bool("purge", false, "Delete permanently")
	yes := fs.Bool("yes", false, "Confirm permanent deletion")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := needArgs("delete-task", pos, 1); err != nil {
		return err
	}

	if *purge {
		if !*yes {
			return fmt.Errorf("this permanently deletes the task; rerun with --yes")
		}
		if err := rt.app.Tasks.Purge(ctx, pos[0]); err != nil {
			return err
		}
		fmt.Println("Task deleted permanently.")
		return nil
	}

	if err := rt.app.Tasks.SoftDelete(ctx, pos[0]); err != nil {
		return err
	}
	fmt.Println("Task moved to the trash.")
	return nil
}

func handleRestoreTask(ctx context.Context, rt *runtime, args []string) error {
	if err := needArgs("restore-task", args, 1); err != nil {
		return err
	}
	if err := rt.app.Tasks.Restore(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("Task restored.")
	return nil
}

func handleReorderTasks(ctx context.Context, rt *runtime, args []string) error {
	if err := needArgs("reorder-tasks", args, 1); err != nil {
		return err
	}
	return rt.app.Tasks.Reorder(ctx, args)
}

func handleExport(ctx context.Context, rt *runtime, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	dir := fs.String("dir", rt.cfg.Backup.Dir, "Destination directory")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}

	rt.picker.Dir = *dir
	res, err := rt.app.Export(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d labels and %d tasks to %s\n", res.LabelsCount, res.TasksCount, res.Path)
	return nil
}

func handleImport(ctx context.Context, rt *runtime, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "Confirm overwriting existing rows")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := needArgs("import", pos, 1); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("restoring a backup overwrites labels and tasks with the same id; rerun with --yes")
	}

	rt.picker.File = pos[0]
	res, err := rt.app.Import(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d labels and %d tasks\n", res.LabelsCount, res.TasksCount)
	return nil
}

func handleLastBackup(ctx context.Context, rt *runtime, args []string) error {
	last, err := rt.backups.LastBackup()
	if err != nil {
		return err
	}
	if last == nil {
		fmt.Println("No backup yet.")
		return nil
	}
	fmt.Printf("Last backup: %s\n  %d labels, %d tasks\n  %s\n",
		last.At.Local().Format(time.RFC822), last.LabelsCount, last.TasksCount, last.Path)
	return nil
}

// handleWatch keeps the scheduler alive, re-scheduling stored reminders
// and printing them as they fire. Notifications for reminders that were
// moved or cleared since scheduling are dropped. SIGHUP forces a sweep.
func handleWatch(ctx context.Context, rt *runtime, args []string) error {
	rt.scheduler.SetHandler(func(n notify.Notification) {
		if !rt.coord.HandleDelivery(ctx, n) {
			return
		}
		fmt.Printf("[%s] %s: %s\n", time.Now().Format("15:04:05"), n.Title, n.Body)
	})

	sweeper := reminder.NewSweeper(rt.coord,
		time.Duration(rt.cfg.Reminders.SweepIntervalSec)*time.Second)
	sweeper.Start()
	defer sweeper.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	fmt.Println("Watching reminders. Press Ctrl+C to stop.")
	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			sweeper.Trigger()
			continue
		}
		break
	}
	return nil
}
