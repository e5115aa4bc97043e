package imagestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHead  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegHead = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
	gifHead  = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00")
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		max     int64
		wantExt string
		wantErr error
	}{
		{name: "png", data: pngHead, wantExt: ".png"},
		{name: "jpeg", data: jpegHead, wantExt: ".jpg"},
		{name: "gif", data: gifHead, wantExt: ".gif"},
		{name: "html disguised", data: []byte("<!DOCTYPE html><html><script>alert(1)</script></html>"), wantErr: ErrUnsupportedImage},
		{name: "svg", data: []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`), wantErr: ErrUnsupportedImage},
		{name: "empty", data: nil, wantErr: ErrEmptyImage},
		{name: "too large", data: pngHead, max: 8, wantErr: ErrImageTooLarge},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Validate(tc.data, tc.max)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExt, got.Extension)
		})
	}
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "issues/2026/03/abc.png", ObjectKey("abc", ".png", at))
}

func TestLocalStorePutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "https://city.example/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "issues/2026/03/abc.png", pngHead, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://city.example/uploads/issues/2026/03/abc.png", url)

	onDisk := filepath.Join(dir, "issues", "2026", "03", "abc.png")
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, pngHead, data)

	require.NoError(t, store.Delete(context.Background(), "issues/2026/03/abc.png"))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, store.Delete(context.Background(), "issues/2026/03/abc.png"))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../../etc/passwd", pngHead, "image/png")
	assert.Error(t, err)
}
