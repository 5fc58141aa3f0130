package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutWritesBlobAndReturnsFileURL(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key := Key("agency", "ws-1", "garden", "logo.png")
	url, err := store.Put(context.Background(), key, strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"), "url %q", url)

	data, err := os.ReadFile(filepath.Join(store.Root, "agency", "ws-1", "garden", "logo.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestKeyStripsDirectoryFromFilename(t *testing.T) {
	key := Key("agency", "ws-1", "garden", "/tmp/upload/logo.png")
	assert.Equal(t, "agency/ws-1/garden/logo.png", key)
}

func TestPutRejectsTraversalKeys(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../escape", "a/../../escape", "/abs/path"} {
		_, err := store.Put(context.Background(), key, strings.NewReader("x"))
		assert.Error(t, err, "key %q", key)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key := Key("agency", "ws-1", "garden", "logo.png")
	_, err = store.Put(context.Background(), key, strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), key))
	_, err = os.Stat(filepath.Join(store.Root, "agency", "ws-1", "garden", "logo.png"))
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing blob is not an error; the compensating cleanup
	// path may run after a partial upload.
	require.NoError(t, store.Delete(context.Background(), key))
}
