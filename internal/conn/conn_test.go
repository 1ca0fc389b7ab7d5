package conn

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesAndConfiguresDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	var journalMode string
	err = db.Handle().QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	assert.Equal(t, "wal", journalMode)

	var foreignKeys int
	err = db.Handle().QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
	require.NoError(t, err)
	assert.Equal(t, 1, foreignKeys)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()
}

func TestOpenMemory_IsPrivate(t *testing.T) {
	db1, err := OpenMemory()
	require.NoError(t, err)
	defer db1.Close()

	require.NoError(t, db1.ApplyDDL(`CREATE TABLE t (id INTEGER PRIMARY KEY)`))

	// A second memory database does not see the first one's schema.
	db2, err := OpenMemory()
	require.NoError(t, err)
	defer db2.Close()

	_, err = db2.Handle().Exec(`INSERT INTO t (id) VALUES (1)`)
	assert.Error(t, err)
}

func TestApplyDDL_ExecutesSchema(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	err = db.ApplyDDL(`
		CREATE TABLE User (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE Post (id INTEGER PRIMARY KEY, authorId INTEGER);
	`)
	require.NoError(t, err)

	_, err = db.Handle().Exec(`INSERT INTO User (name) VALUES ('a')`)
	assert.NoError(t, err)
}

func TestApplyDDL_InvalidSchemaFails(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	err = db.ApplyDDL(`CREATE BOGUS`)
	assert.Error(t, err)
}

func TestClose_NilSafe(t *testing.T) {
	var db DB
	assert.NoError(t, db.Close())
}
