package ratings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelrouter/config"
	"modelrouter/internal/core"
	"modelrouter/internal/storage"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	overrides, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileStore_SaveIsAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(context.Background(), Override{ModelID: "a", ModelRatings: core.ModelRatings{Chat: intPtr(1)}}))
	require.NoError(t, store.Save(context.Background(), Override{ModelID: "b", ModelRatings: core.ModelRatings{Chat: intPtr(2)}}))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	overrides, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, overrides, 2)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	conn, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "ratings.db"))
	require.NoError(t, err)
	defer conn.Close()

	store, err := NewSQLiteStore(conn.SQL)
	require.NoError(t, err)

	ctx := context.Background()
	updated := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	require.NoError(t, store.Save(ctx, Override{
		ModelID:      "@cf/meta/llama-3.1-8b-instruct",
		ModelRatings: core.ModelRatings{Chat: intPtr(3), Coding: intPtr(2)},
		Notes:        strPtr("ok for drafts"),
		UpdatedAt:    updated,
	}))
	require.NoError(t, store.Save(ctx, Override{
		ModelID:      "@cf/meta/llama-3.1-8b-instruct",
		ModelRatings: core.ModelRatings{Chat: intPtr(4)},
		UpdatedAt:    updated.Add(time.Hour),
	}))

	overrides, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, overrides, 1)

	o := overrides["@cf/meta/llama-3.1-8b-instruct"]
	assert.Equal(t, 4, *o.Chat)
	assert.Nil(t, o.Coding, "save replaces the whole row")
	assert.Nil(t, o.Notes)
	assert.True(t, o.UpdatedAt.Equal(updated.Add(time.Hour)))
}

func TestNewSQLiteStore_NilDB(t *testing.T) {
	_, err := NewSQLiteStore(nil)
	assert.Error(t, err)
}

func TestNew_Backends(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		backend string
		wantErr bool
		wantDB  bool
	}{
		{"file", config.RatingsBackendFile, false, false},
		{"sqlite", config.RatingsBackendSQLite, false, true},
		{"unknown", "etcd", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Ratings.Backend = tt.backend
			cfg.Ratings.Path = filepath.Join(dir, tt.name+".json")
			cfg.Storage.SQLite.Path = filepath.Join(dir, tt.name+".db")

			result, err := New(context.Background(), cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer result.Close()

			assert.NotNil(t, result.Service)
			assert.Equal(t, tt.wantDB, result.Storage != nil)

			_, err = result.Service.Update(context.Background(), "m", Override{ModelRatings: core.ModelRatings{Chat: intPtr(1)}})
			assert.NoError(t, err)
		})
	}
}
