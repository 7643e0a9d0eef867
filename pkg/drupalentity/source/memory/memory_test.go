package memory_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/drupal-entity/pkg/drupalentity"
	"github.com/tendant/drupal-entity/pkg/drupalentity/source/memory"
)

func TestMemoryStore(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	testKey := "uploads/report.txt"
	testData := "Hello, World! This is test data."

	t.Run("Put", func(t *testing.T) {
		store.Put(testKey, []byte(testData), "")
	})

	t.Run("Stat", func(t *testing.T) {
		meta, err := store.Stat(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, testKey, meta.Key)
		assert.Equal(t, int64(len(testData)), meta.Size)
		assert.Equal(t, "text/plain; charset=utf-8", meta.ContentType)
		assert.False(t, meta.UpdatedAt.IsZero())
	})

	t.Run("Open", func(t *testing.T) {
		rc, err := store.Open(ctx, testKey)
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, testData, string(data))
	})

	t.Run("UploadRequest", func(t *testing.T) {
		e := drupalentity.New("media", "document")
		req, err := e.UploadFileRequest(ctx, "", "field_media_document", drupalentity.StoreFile(store, testKey))
		require.NoError(t, err)
		assert.Equal(t, `file; filename="report.txt"`, req.Header.Get("Content-Disposition"))
		assert.Equal(t, testData, string(req.Body))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(testKey))

		_, err := store.Stat(ctx, testKey)
		assert.ErrorIs(t, err, drupalentity.ErrFileNotFound)
		_, err = store.Open(ctx, testKey)
		assert.ErrorIs(t, err, drupalentity.ErrFileNotFound)
		assert.ErrorIs(t, store.Delete(testKey), drupalentity.ErrFileNotFound)
	})
}
