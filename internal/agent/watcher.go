package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the burst of writes a milking session
// produces into a single nudge.
const debounceWindow = 30 * time.Second

// Watcher nudges the Runner when the milking system writes to the
// DelPro database, so fresh sessions reach the cloud without waiting
// for the next scheduled tick. Purely best-effort: if watching fails,
// the fixed interval still delivers everything.
type Watcher struct {
	dbPath string
	runner *Runner
	logger *slog.Logger

	// debounce is overridable in tests.
	debounce time.Duration
}

// NewWatcher creates a Watcher for the database at dbPath.
func NewWatcher(dbPath string, runner *Runner, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		dbPath:   dbPath,
		runner:   runner,
		logger:   logger,
		debounce: debounceWindow,
	}
}

// Run watches until ctx is canceled, then returns nil. The parent
// directory is watched rather than the file itself: SQLite checkpoints
// replace sidecar files, which would silently drop a file-level watch.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("agent: creating file watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.dbPath)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("agent: watching %s: %w", dir, err)
	}

	w.logger.Info("watching database for activity", slog.String("path", w.dbPath))

	base := filepath.Base(w.dbPath)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	// Inactive until the first relevant event.
	fire := make(<-chan time.Time)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if !w.relevant(event, base) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-fire:
			w.logger.Debug("database activity settled, nudging scheduler")
			w.runner.Nudge()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

// relevant filters directory events down to writes touching the
// database file or its WAL/journal sidecars.
func (w *Watcher) relevant(event fsnotify.Event, base string) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return false
	}

	name := filepath.Base(event.Name)

	switch name {
	case base, base + "-wal", base + "-journal", base + "-shm":
		return true
	default:
		return false
	}
}
