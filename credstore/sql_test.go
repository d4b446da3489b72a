package credstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStoreTest(t *testing.T) *SQL {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "credentials.db") + "?_pragma=busy_timeout(5000)"
	store, err := OpenSQL(context.Background(), dsn, SQLOptions{Dialect: DialectSQLite})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLPutFindRoundTrip(t *testing.T) {
	store := newSQLiteStoreTest(t)
	ctx := context.Background()

	at := time.Unix(1700000000, 42)
	in := Record{
		Username:             "alice",
		PasswordDigest:       "d",
		Role:                 "admin",
		IsLocked:             true,
		RecentFailedAttempts: 2,
		LastLoginAttempt:     at,
	}
	require.NoError(t, store.Put(ctx, in))

	out, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, in.Username, out.Username)
	assert.Equal(t, in.PasswordDigest, out.PasswordDigest)
	assert.Equal(t, in.Role, out.Role)
	assert.True(t, out.IsLocked)
	assert.Equal(t, 2, out.RecentFailedAttempts)
	assert.True(t, out.LastLoginAttempt.Equal(at))
}

func TestSQLPutUpserts(t *testing.T) {
	store := newSQLiteStoreTest(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Record{Username: "alice", PasswordDigest: "old"}))
	require.NoError(t, store.Put(ctx, Record{Username: "alice", PasswordDigest: "new"}))

	out, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "new", out.PasswordDigest)
	assert.True(t, out.LastLoginAttempt.IsZero())
}

func TestSQLFindMissing(t *testing.T) {
	store := newSQLiteStoreTest(t)
	_, err := store.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLApplyUpdate(t *testing.T) {
	store := newSQLiteStoreTest(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, Record{Username: "alice", PasswordDigest: "d", RecentFailedAttempts: 4}))

	at := time.Unix(1700000100, 0)
	require.NoError(t, store.ApplyUpdate(ctx, "alice", Changes{}.Locked(true).FailedAttempts(5).LastAttempt(at)))

	out, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, out.IsLocked)
	assert.Equal(t, 5, out.RecentFailedAttempts)
	assert.True(t, out.LastLoginAttempt.Equal(at))
	assert.Equal(t, "d", out.PasswordDigest)
}

func TestSQLApplyUpdateMissingUser(t *testing.T) {
	store := newSQLiteStoreTest(t)
	err := store.ApplyUpdate(context.Background(), "ghost", Changes{}.Locked(true))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLApplyUpdateRejectsInvalid(t *testing.T) {
	store := newSQLiteStoreTest(t)
	err := store.ApplyUpdate(context.Background(), "alice", Changes{"role": "admin"})
	assert.ErrorIs(t, err, ErrInvalidChanges)
}

func TestSQLBuildUpdatePostgresPlaceholders(t *testing.T) {
	store := NewSQL(nil, SQLOptions{Dialect: DialectPostgres})

	query, args := store.buildUpdate("alice", Changes{}.Locked(false).FailedAttempts(0))
	assert.Equal(t, "UPDATE credentials SET is_locked = $1, recent_failed_attempts = $2 WHERE username = $3", query)
	assert.Equal(t, []any{false, int64(0), "alice"}, args)
}

func TestSQLPing(t *testing.T) {
	store := newSQLiteStoreTest(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestMigrateUsesEmbeddedDir(t *testing.T) {
	db, err := sql.Open(DialectSQLite.DriverName(), filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	gooseUp = func(_ context.Context, _ *sql.DB, dir string) error {
		if dir != "migrations" {
			return errors.New("unexpected dir " + dir)
		}
		return nil
	}
	defer func() { gooseUp = orig }()

	require.NoError(t, Migrate(context.Background(), db, DialectSQLite))
}

func TestMigrateWrapsFailure(t *testing.T) {
	db, err := sql.Open(DialectSQLite.DriverName(), filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	orig := gooseUp
	gooseUp = func(context.Context, *sql.DB, string) error { return boom }
	defer func() { gooseUp = orig }()

	err = Migrate(context.Background(), db, DialectSQLite)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "credstore: migrate")
}

func TestOpenSQLFailsWhenMigrationFails(t *testing.T) {
	orig := gooseUp
	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }
	defer func() { gooseUp = orig }()

	dsn := filepath.Join(t.TempDir(), "credentials.db")
	store, err := OpenSQL(context.Background(), dsn, SQLOptions{Dialect: DialectSQLite})
	require.Error(t, err)
	assert.Nil(t, store)
}
