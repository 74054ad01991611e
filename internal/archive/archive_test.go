package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		a, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		a.Close()
	}

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	for _, table := range []string{"sessions", "snapshots"} {
		var name string
		err := a.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	a := createTestArchive(t)

	assert.NoError(t, a.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, a.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, a.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, a.verifyPragma("user_version", "1"))
}

func TestOpen_MigrationCreatesDigestIndex(t *testing.T) {
	a := createTestArchive(t)

	var name string
	err := a.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_snapshots_digest'",
	).Scan(&name)
	assert.NoError(t, err)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_Nil(t *testing.T) {
	a := &Archive{}
	assert.NoError(t, a.Close())
}
