package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newStore(t *testing.T, maxBytes int64) *FilesystemStore {
	t.Helper()
	store, err := NewFilesystemStore(Config{Root: t.TempDir(), PublicPath: "media/", MaxUploadBytes: maxBytes})
	require.NoError(t, err)
	return store
}

func TestFilesystemStorePutAndDelete(t *testing.T) {
	store := newStore(t, 0)
	ctx := context.Background()

	obj, err := store.Put(ctx, NewsImageKey("3f9a1c2b7d4", "enrolment day.png"), bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.Equal(t, "newsUpdate/3f9a1c2b7d4/enrolment day.png", obj.Key)
	require.Equal(t, "/media/newsUpdate/3f9a1c2b7d4/enrolment%20day.png", obj.URL)
	require.Equal(t, "image/png", obj.ContentType)
	require.EqualValues(t, len(pngHeader), obj.Size)

	content, err := os.ReadFile(filepath.Join(store.Root(), "newsUpdate", "3f9a1c2b7d4", "enrolment day.png"))
	require.NoError(t, err)
	require.Equal(t, pngHeader, content)

	require.NoError(t, store.Delete(ctx, obj.Key))
	_, err = os.Stat(filepath.Join(store.Root(), "newsUpdate", "3f9a1c2b7d4", "enrolment day.png"))
	require.True(t, os.IsNotExist(err))

	require.NoError(t, store.Delete(ctx, obj.Key))
}

func TestFilesystemStoreRejectsUnsupportedType(t *testing.T) {
	store := newStore(t, 0)

	_, err := store.Put(context.Background(), "newsUpdate/notes.txt", bytes.NewReader([]byte("plain text")))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFilesystemStoreEnforcesLimit(t *testing.T) {
	store := newStore(t, 8)

	_, err := store.Put(context.Background(), "newsUpdate/big.png", bytes.NewReader(pngHeader))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	store := newStore(t, 0)

	_, err := store.Put(context.Background(), "../escape.png", bytes.NewReader(pngHeader))
	require.ErrorIs(t, err, ErrInvalidKey)
	require.Equal(t, "newsUpdate/abc/passwd", NewsImageKey("abc", "../../etc/passwd"))
	require.Equal(t, "newsUpdate/etc/a.png", NewsImageKey("../etc", "a.png"))
}
