package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "sixchan_backup_1.db")
	require.NoError(t, os.WriteFile(src, []byte("SQLite format 3"), 0644))

	store := &LocalStorage{Dir: filepath.Join(t.TempDir(), "nested", "backups")}
	loc, err := store.Store(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir, "sixchan_backup_1.db"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3", string(data))

	// Storing a file already in place is a no-op.
	again, err := store.Store(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, loc, again)

	require.NoError(t, store.Delete(ctx, loc))
	_, err = os.Stat(loc)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Delete(ctx, loc), "deleting twice is fine")
}
