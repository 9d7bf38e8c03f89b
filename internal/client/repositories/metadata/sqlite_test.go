package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every pooled connection would open its own empty :memory: database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "authToken", []byte("tok-1")))

	v, err := r.Get(ctx, "authToken")
	require.NoError(t, err)
	require.Equal(t, []byte("tok-1"), v)
}

func TestGet_Missing_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSet_Upsert(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "biometricEnabled", []byte("false")))
	require.NoError(t, r.Set(ctx, "biometricEnabled", []byte("true")))

	v, err := r.Get(ctx, "biometricEnabled")
	require.NoError(t, err)
	require.Equal(t, []byte("true"), v)
}

func TestDelete_IsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "user", []byte(`{}`)))
	require.NoError(t, r.Delete(ctx, "user"))

	v, err := r.Get(ctx, "user")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, r.Delete(ctx, "user"))
}

func TestWorksInsideTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteRepository(tx).Set(ctx, "k", []byte("v")))
	require.NoError(t, tx.Rollback())

	v, err := NewSQLiteRepository(db).Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get metadata[k]")

	err = r.Set(ctx, "k", []byte("v"))
	require.ErrorContains(t, err, "failed to set metadata[k]")

	err = r.Delete(ctx, "k")
	require.ErrorContains(t, err, "failed to delete metadata[k]")
}
