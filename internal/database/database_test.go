package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(Config{Path: filepath.Join(t.TempDir(), "fog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestOpenAppliesMigrations(t *testing.T) {
	conn := openTestDB(t)

	for _, table := range []string{"partial_cell_collections", "region_statistics", "change_history", "tasks"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	conn := openTestDB(t)

	manager := NewMigrationManager(conn, Migrations)
	require.NoError(t, manager.Run(context.Background()))

	version, err := manager.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestLoadMigrationsSkipsInvalidNames(t *testing.T) {
	source := fstest.MapFS{
		"010_second.sql": {Data: []byte("SELECT 1")},
		"002_first.sql":  {Data: []byte("SELECT 1")},
		"README.md":      {Data: []byte("notes")},
		"bad.sql":        {Data: []byte("SELECT 1")},
	}

	migrations, err := NewMigrationManager(nil, source).LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 2, migrations[0].Version)
	assert.Equal(t, "second", migrations[1].Name)
}

func TestLoadMigrationsRejectsDuplicateVersions(t *testing.T) {
	source := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1")},
		"1_b.sql":   {Data: []byte("SELECT 1")},
	}

	_, err := NewMigrationManager(nil, source).LoadMigrations()
	assert.Error(t, err)
}

func TestTransactionRollsBack(t *testing.T) {
	conn := openTestDB(t)
	boom := errors.New("boom")

	err := Transaction(context.Background(), conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO change_history (source) VALUES ('test')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM change_history").Scan(&count))
	assert.Zero(t, count)
}

func TestEveryConnectionWaitsForLocks(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	first, err := conn.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := conn.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, c := range []*sql.Conn{first, second} {
		var timeout, foreignKeys int
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys))
		assert.Equal(t, 5000, timeout)
		assert.Equal(t, 1, foreignKeys)
	}
}

func TestConcurrentWriteWaitsForTransaction(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.Exec("INSERT INTO change_history (source) VALUES ('tx')")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := conn.ExecContext(ctx, "INSERT INTO change_history (source) VALUES ('pool')")
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, tx.Commit())
	require.NoError(t, <-done)

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM change_history").Scan(&count))
	assert.Equal(t, 2, count)
}
