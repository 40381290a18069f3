package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, name string) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "nested", name+".db"),
		Profile: ProfileCache,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_CreatesDirectoryAndPings(t *testing.T) {
	db := openTemp(t, "cache")

	assert.FileExists(t, db.Path())
	assert.Equal(t, ProfileCache, db.Profile())
	assert.Equal(t, "cache", db.Name())
	assert.NoError(t, db.QuickCheck(context.Background()))
}

func TestMigrate_CreatesCacheSchema(t *testing.T) {
	db := openTemp(t, "cache")

	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate(), "migration is idempotent")

	var name string
	err := db.Conn().QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'monthly_returns'",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "monthly_returns", name)
}

func TestMigrate_UnknownDatabaseIsNoop(t *testing.T) {
	db := openTemp(t, "scratch")
	assert.NoError(t, db.Migrate())
}

// unreadableFS fails every open with a permission error.
type unreadableFS struct{}

func (unreadableFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
}

func TestReadSchema(t *testing.T) {
	fsys := fstest.MapFS{
		"schemas/cache_schema.sql": &fstest.MapFile{Data: []byte("CREATE TABLE t (x);")},
	}

	content, err := readSchema(fsys, "cache")
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t (x);", string(content))

	missing, err := readSchema(fsys, "scratch")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = readSchema(unreadableFS{}, "cache")
	require.Error(t, err, "read failures other than a missing file are reported")
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestBuildConnectionString(t *testing.T) {
	cache := buildConnectionString("/tmp/a.db", ProfileCache)
	assert.Contains(t, cache, "/tmp/a.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, cache, "synchronous(OFF)")

	standard := buildConnectionString("file:mem?mode=memory", ProfileStandard)
	assert.Contains(t, standard, "file:mem?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, standard, "synchronous(NORMAL)")
}

func TestWithTransaction(t *testing.T) {
	db := openTemp(t, "cache")
	require.NoError(t, db.Migrate())
	insert := func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO monthly_returns (symbol, period, data, expires_at) VALUES ('IWB', '2024-01', x'00', 0)")
		return err
	}

	boom := errors.New("boom")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		require.NoError(t, insert(tx))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM monthly_returns").Scan(&count))
	assert.Zero(t, count, "rolled back")

	require.NoError(t, WithTransaction(db.Conn(), insert))
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM monthly_returns").Scan(&count))
	assert.Equal(t, 1, count)

	assert.Error(t, WithTransaction(nil, insert))
}
