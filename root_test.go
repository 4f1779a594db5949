package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pecuschain/farmsync/internal/config"
)

// resetGlobals restores flag and config globals after a test that
// executes commands.
func resetGlobals(t *testing.T) {
	t.Helper()

	t.Cleanup(func() {
		flagConfigPath = ""
		flagFarmID = ""
		flagJSON = false
		flagVerbose = false
		flagQuiet = false
		resolvedCfg = nil
	})
}

// writeTestConfig writes a config file and returns its path.
func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

// execute runs the root command with args and returns its combined
// output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}

	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	assert.Contains(t, names, "run")
	assert.Contains(t, names, "once")
	assert.Contains(t, names, "register")
	assert.Contains(t, names, "status")
}

func TestBuildLogger_Levels(t *testing.T) {
	resetGlobals(t)
	resolvedCfg = config.DefaultConfig()

	logger := buildLogger()
	assert.False(t, logger.Enabled(nil, slog.LevelDebug))
	assert.True(t, logger.Enabled(nil, slog.LevelInfo))

	flagVerbose = true
	assert.True(t, buildLogger().Enabled(nil, slog.LevelDebug))
	flagVerbose = false

	flagQuiet = true
	logger = buildLogger()
	assert.False(t, logger.Enabled(nil, slog.LevelInfo))
	assert.True(t, logger.Enabled(nil, slog.LevelError))
}

func TestStatusCommand(t *testing.T) {
	resetGlobals(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/sync/status", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"last_oid":1500,"last_animal_oid":40,"last_lactation_oid":9,"last_history_milk_diversion_oid":3}`))
	}))
	defer srv.Close()

	cfgPath := writeTestConfig(t, `
farm_id = "farm-abc"
database_name = "/nonexistent/DDM.db"
cloud_url = "`+srv.URL+`"
`)

	out, err := execute(t, "--config", cfgPath, "status")
	require.NoError(t, err)

	assert.Contains(t, out, "farm-abc")
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "not running")
	assert.Contains(t, out, "sessions 1500")
}

func TestStatusCommand_JSON(t *testing.T) {
	resetGlobals(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"last_oid":10,"last_animal_oid":0,"last_lactation_oid":0,"last_history_milk_diversion_oid":0}`))
	}))
	defer srv.Close()

	cfgPath := writeTestConfig(t, `
farm_id = "farm-abc"
cloud_url = "`+srv.URL+`"
`)

	out, err := execute(t, "--config", cfgPath, "--json", "status")
	require.NoError(t, err)

	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "farm-abc", report.FarmID)
	require.NotNil(t, report.Watermarks)
	assert.Equal(t, int64(10), report.Watermarks.LastSessionOID)
	assert.False(t, report.DaemonRunning)
}

func TestRegisterCommand(t *testing.T) {
	resetGlobals(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/farms/register", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"farm_id":"farm-fresh-1","name":"Hilltop Dairy","created_at":"2026-08-30T10:00:00Z"}`))
	}))
	defer srv.Close()

	cfgPath := writeTestConfig(t, `cloud_url = "`+srv.URL+`"`)

	out, err := execute(t, "--config", cfgPath, "register", "--name", "Hilltop Dairy")
	require.NoError(t, err)
	assert.Contains(t, out, "farm-fresh-1")

	// The identity was persisted.
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "farm-fresh-1", cfg.FarmID)
}

func TestRegisterCommand_AlreadyRegistered(t *testing.T) {
	resetGlobals(t)

	cfgPath := writeTestConfig(t, `farm_id = "farm-abc"`)

	_, err := execute(t, "--config", cfgPath, "register", "--name", "Another Farm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegisterCommand_NameRequired(t *testing.T) {
	resetGlobals(t)

	cfgPath := writeTestConfig(t, ``)

	_, err := execute(t, "--config", cfgPath, "register")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name")
}

func TestOnceCommand_MissingDatabaseStillSucceeds(t *testing.T) {
	resetGlobals(t)

	var ingests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/ingest" {
			ingests++
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"last_oid":0,"last_animal_oid":0,"last_lactation_oid":0,"last_history_milk_diversion_oid":0}`))
	}))
	defer srv.Close()

	cfgPath := writeTestConfig(t, `
farm_id = "farm-abc"
database_name = "/nonexistent/DDM.db"
cloud_url = "`+srv.URL+`"
`)

	// An unreadable local store is a clean no-data cycle, not a
	// failure.
	_, err := execute(t, "--config", cfgPath, "once")
	require.NoError(t, err)
	assert.Zero(t, ingests)
}

func TestLoadConfig_FarmIDFlagOverride(t *testing.T) {
	resetGlobals(t)

	cfgPath := writeTestConfig(t, `farm_id = "farm-from-file"`)

	flagConfigPath = cfgPath
	flagFarmID = "farm-from-flag"

	require.NoError(t, loadConfig())
	assert.Equal(t, "farm-from-flag", resolvedCfg.FarmID)
}
