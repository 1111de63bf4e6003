package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"qmllink/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := store.SaveSearch(Search{
		Timestamp: base,
		Path:      "/app/Main.qml",
		Offset:    42,
		Name:      "count",
		Kind:      "expression",
		Usages:    3,
		Duration:  120 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "default", first.ProjectKey)

	_, err = store.SaveSearch(Search{
		Timestamp: base.Add(time.Minute),
		Path:      "/app/Main.qml",
		Name:      "Button",
		Kind:      "type",
		Error:     "CANCELLED: context canceled",
	})
	require.NoError(t, err)
	_, err = store.SaveSearch(Search{ProjectKey: "other", Path: "/x.qml", Timestamp: base})
	require.NoError(t, err)

	got, err := store.LoadSearches("", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Button", got[0].Name, "newest first")
	assert.Equal(t, "CANCELLED: context canceled", got[0].Error)
	assert.Equal(t, first.ID, got[1].ID)
	assert.Equal(t, 42, got[1].Offset)
	assert.Equal(t, 3, got[1].Usages)
	assert.Equal(t, 120*time.Millisecond, got[1].Duration)
	assert.True(t, got[1].Timestamp.Equal(base))

	limited, err := store.LoadSearches("default", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStoreSaveUpdatesExistingID(t *testing.T) {
	store := openStore(t)
	rec, err := store.SaveSearch(Search{Path: "/a.qml", Name: "x"})
	require.NoError(t, err)

	rec.Usages = 9
	_, err = store.SaveSearch(rec)
	require.NoError(t, err)

	got, err := store.LoadSearches("default", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].Usages)
}

func TestStorePrune(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := store.SaveSearch(Search{Path: "/a.qml", Offset: i, Timestamp: base.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}

	deleted, err := store.Prune("default", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	got, err := store.LoadSearches("default", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Offset)
	assert.Equal(t, 3, got[1].Offset)

	n, err := store.Count("")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = store.Count("other")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenValidatesPath(t *testing.T) {
	_, err := Open(" ", 0)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = Open(t.TempDir(), 0)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path, 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path, 0)
	require.NoError(t, err)
	defer store.Close()

	var version int
	require.NoError(t, store.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, SchemaVersion, version)
}

func TestEnsureSchemaRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open(driverName, "file:"+path)
	require.NoError(t, err)
	require.NoError(t, EnsureSchema(db))
	_, err = db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1)
	require.NoError(t, err)
	assert.ErrorContains(t, EnsureSchema(db), "newer than supported")
	require.NoError(t, db.Close())
}

func TestIsCorruptError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not sqlite, padded to look like a header......"), 0o644))
	_, err := Open(path, 0)
	require.Error(t, err)
	assert.True(t, IsCorruptError(err))
	assert.False(t, IsCorruptError(nil))
}
