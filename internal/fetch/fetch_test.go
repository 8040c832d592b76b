package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 最小合法的 PNG 和 JPEG 头，足够通过内容嗅探
var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 64)...)
)

func TestExtensionOf(t *testing.T) {
	cases := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"http://example.com/photo.jpg", "jpg", false},
		{"http://example.com/photo.JPEG", "jpeg", false},
		{"http://example.com/dir/photo.PNG", "png", false},
		{"http://example.com/photo.png?size=large", "png", false},
		{"http://example.com/photo.gif", "", true},
		{"http://example.com/photo.jpg.exe", "", true},
		{"http://example.com/photo", "", true},
		{"http://example.com/", "", true},
	}
	for _, tc := range cases {
		ext, err := ExtensionOf(tc.url)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrBadExtension, "url: %s", tc.url)
			continue
		}
		require.NoError(t, err, "url: %s", tc.url)
		assert.Equal(t, tc.want, ext)
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "fhello-world.png", Filename("Hello World", "png"))
	assert.Equal(t, "fcreme-brulee.jpg", Filename("Crème Brûlée", "jpg"))
}

func TestFilenameWithID(t *testing.T) {
	got := FilenameWithID("Hello World", "png", "0d1f3a88-0000-0000-0000-000000000000")
	assert.Equal(t, "fhello-world-0d1f3a88.png", got)
}

func TestFetchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngBytes)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 1<<20)
	data, err := f.Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestFetchJPEG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(jpegBytes)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 1<<20)
	_, err := f.Fetch(context.Background(), srv.URL+"/a.jpg")
	require.NoError(t, err)
}

func TestFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 1<<20)
	_, err := f.Fetch(context.Background(), srv.URL+"/a.png")
	assert.ErrorIs(t, err, ErrBadStatus)
}

func TestFetchTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngBytes)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 16)
	_, err := f.Fetch(context.Background(), srv.URL+"/a.png")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetchNotImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>not an image</body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 1<<20)
	_, err := f.Fetch(context.Background(), srv.URL+"/a.png")
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 服务已关闭，连接必然失败

	f := NewFetcher(time.Second, 1<<20)
	_, err := f.Fetch(context.Background(), srv.URL+"/a.png")
	require.Error(t, err)
	// 网络错误不属于任何校验类别
	assert.NotErrorIs(t, err, ErrBadStatus)
	assert.NotErrorIs(t, err, ErrTooLarge)
	assert.NotErrorIs(t, err, ErrNotImage)
}
