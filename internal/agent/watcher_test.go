package agent

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pecuschain/farmsync/internal/config"
)

func TestWatcher_NudgesOnDatabaseWrite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "DDM.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0o644))

	syncer := NewSyncer(&fakeAPI{}, staticFactory(&fakeExtractor{}, nil), slog.Default())
	runner := NewRunner(syncer, func() (*config.Config, error) { return testConfig(), nil }, slog.Default())

	w := NewWatcher(dbPath, runner, slog.Default())
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to arm, then simulate the milking
	// system appending to the WAL.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("y"), 0o644))

	select {
	case <-runner.nudge:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not nudge after database write")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	syncer := NewSyncer(&fakeAPI{}, staticFactory(&fakeExtractor{}, nil), slog.Default())
	runner := NewRunner(syncer, func() (*config.Config, error) { return testConfig(), nil }, slog.Default())

	w := NewWatcher("/nonexistent/dir/DDM.db", runner, slog.Default())

	err := w.Run(context.Background())
	assert.Error(t, err)
}

func TestWatcherRelevant(t *testing.T) {
	w := NewWatcher("/data/DDM.db", nil, slog.Default())

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"db write", fsnotify.Event{Name: "/data/DDM.db", Op: fsnotify.Write}, true},
		{"wal write", fsnotify.Event{Name: "/data/DDM.db-wal", Op: fsnotify.Write}, true},
		{"journal create", fsnotify.Event{Name: "/data/DDM.db-journal", Op: fsnotify.Create}, true},
		{"shm write", fsnotify.Event{Name: "/data/DDM.db-shm", Op: fsnotify.Write}, true},
		{"unrelated file", fsnotify.Event{Name: "/data/other.txt", Op: fsnotify.Write}, false},
		{"db chmod", fsnotify.Event{Name: "/data/DDM.db", Op: fsnotify.Chmod}, false},
		{"db remove", fsnotify.Event{Name: "/data/DDM.db", Op: fsnotify.Remove}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.ev, "DDM.db"))
		})
	}
}
