package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutGetDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := store.Put(ctx, "receipts/abc.pdf", strings.NewReader("%PDF-1.4 receipt"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/receipts/abc.pdf", url)

	exists, err := store.Exists(ctx, "receipts/abc.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Get(ctx, "receipts/abc.pdf")
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 receipt", string(content))

	require.NoError(t, store.Delete(ctx, "receipts/abc.pdf"))

	exists, err = store.Exists(ctx, "receipts/abc.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorageGetMissingFile(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "receipts/nope.pdf")
	require.Error(t, err)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, codeNotFound, storageErr.Code)
}

func TestLocalStorageDeleteIsIdempotent(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "receipts/never-existed.jpg"))
}
