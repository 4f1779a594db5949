package delpro

import (
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB creates a DelPro-shaped database file on disk and returns
// its path along with a writable handle for loading fixtures.
func newTestDB(t *testing.T) (string, *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "DDM.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for table, columns := range map[string]string{
		"BasicAnimal":               animalColumns,
		"AnimalLactationSummary":    lactationColumns,
		"SessionMilkYield":          sessionColumns,
		"VoluntarySessionMilkYield": voluntaryColumns,
		"HistoryMilkDiversionInfo":  diversionColumns,
		"HistoryAnimal":             historyColumns,
	} {
		_, err := db.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", table, columns))
		require.NoError(t, err)
	}

	return path, db
}

func TestOpen(t *testing.T) {
	path, _ := newTestDB(t)

	store, err := Open(path, slog.Default())
	require.NoError(t, err)
	defer store.Close()

	var n int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM BasicAnimal").Scan(&n))
	assert.Zero(t, n)
}

func TestOpen_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.db")

	_, err := Open(missing, slog.Default())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatabaseMissing)

	// Opening must not have created the file.
	assert.NoFileExists(t, missing)
}

func TestOpen_ReadOnly(t *testing.T) {
	path, _ := newTestDB(t)

	store, err := Open(path, slog.Default())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.Exec("INSERT INTO BasicAnimal (OID) VALUES (1)")
	assert.Error(t, err)
}
