package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, RunMigrations(dbPath))
	require.NoError(t, RunMigrations(dbPath), "second run must be a no-op")

	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrationsCreateSchema(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db := openTestDB(t)

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='content_hashes'`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestContextDBOnlyInsidePerform(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	c := NewContext(db, "store")
	defer c.Close()

	_, err := c.DB()
	require.ErrorIs(t, err, ErrOutsidePerform)

	var inside *sql.DB
	c.PerformAndWait(func() {
		inside, err = c.DB()
	})
	require.NoError(t, err)
	require.Same(t, db, inside)
}

func TestContextPerformIsSerial(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db := openTestDB(t)
	c := NewContext(db, "serial")

	_, err := db.ExecContext(ctx, `CREATE TABLE counter (n INTEGER NOT NULL)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO counter(n) VALUES (0)`)
	require.NoError(t, err)

	// Read-modify-write without SQL-level atomicity: only serial execution
	// keeps the final count exact.
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		c.Perform(func() {
			db, err := c.DB()
			if err != nil {
				errs <- err
				return
			}
			var n int
			if err := db.QueryRowContext(ctx, `SELECT n FROM counter`).Scan(&n); err != nil {
				errs <- err
				return
			}
			_, err = db.ExecContext(ctx, `UPDATE counter SET n = ?`, n+1)
			errs <- err
		})
	}
	c.Close()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT n FROM counter`).Scan(&n))
	require.Equal(t, 100, n)
}

func TestContextWithTxRollsBack(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db := openTestDB(t)
	c := NewContext(db, "tx")
	defer c.Close()

	errAbort := errors.New("abort")
	var txErr error
	c.PerformAndWait(func() {
		txErr = c.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `INSERT INTO content_hashes(id, path, sha256, size, modified_at, hashed_at)
				VALUES ('a', '/a', 'x', 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`); err != nil {
				return err
			}
			return errAbort
		})
	})
	require.ErrorIs(t, txErr, errAbort)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_hashes`).Scan(&count))
	require.Zero(t, count)

	require.ErrorIs(t, c.WithTx(ctx, func(*sql.Tx) error { return nil }), ErrOutsidePerform)
}
