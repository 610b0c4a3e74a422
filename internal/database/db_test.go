package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: ":memory:", Name: "holdings"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestNew_CreatesFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "holdings.db")

	db, err := New(Config{Path: path, Name: "holdings"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "holdings", db.Name())

	require.NoError(t, db.Migrate(context.Background()))
	stats, err := db.GetStats(context.Background())
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.SizeBytes, int64(0))
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))

	for _, table := range []string{"portfolios", "holdings", "holdings_snapshots"} {
		var name string
		err := db.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_UnknownDatabaseIsNoop(t *testing.T) {
	db, err := New(Config{Path: ":memory:", Name: "scratch"})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate(context.Background()))
}

func TestWithTransaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	insert := func(tx *sql.Tx, id string) error {
		_, err := tx.Exec(`INSERT INTO portfolios (id, user_id, name, created_at, updated_at) VALUES (?, 'u1', 'p', 0, 0)`, id)
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM portfolios").Scan(&n))
		return n
	}

	t.Run("commit", func(t *testing.T) {
		err := WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error { return insert(tx, "p1") })
		require.NoError(t, err)
		assert.Equal(t, 1, count())
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
			require.NoError(t, insert(tx, "p2"))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, count())
	})

	t.Run("rollback on panic", func(t *testing.T) {
		err := WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
			require.NoError(t, insert(tx, "p3"))
			panic("unexpected")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")
		assert.Equal(t, 1, count())
	})

	t.Run("nil connection", func(t *testing.T) {
		assert.Error(t, WithTransaction(ctx, nil, func(*sql.Tx) error { return nil }))
	})
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestBuildConnectionString(t *testing.T) {
	file := buildConnectionString("/data/holdings.db", ProfileStandard)
	assert.Contains(t, file, "/data/holdings.db?_pragma=busy_timeout(5000)")
	assert.Contains(t, file, "journal_mode(WAL)")
	assert.Contains(t, file, "synchronous(NORMAL)")
	assert.Contains(t, file, "foreign_keys(1)")

	mem := buildConnectionString(":memory:", ProfileCache)
	assert.NotContains(t, mem, "journal_mode")
	assert.Contains(t, mem, "synchronous(OFF)")

	uri := buildConnectionString("file:test?mode=memory", ProfileStandard)
	assert.Contains(t, uri, "file:test?mode=memory&_pragma=")
}
