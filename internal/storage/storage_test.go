package storage

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPutDelete(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "http://localhost:8080/files/")
	require.NoError(t, err)

	n, err := l.Put("u1/avatar.png", strings.NewReader("png-bytes"), MaxAvatarBytes)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	data, err := os.ReadFile(filepath.Join(dir, "u1", "avatar.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "http://localhost:8080/files/u1/avatar.png", l.URL("u1/avatar.png"))

	require.NoError(t, l.Delete("u1/avatar.png"))
	_, err = os.Stat(filepath.Join(dir, "u1", "avatar.png"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, l.Delete("u1/avatar.png"))
}

func TestLocalPutTooLarge(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "http://x/files")
	require.NoError(t, err)
	_, err = l.Put("u1/big.bin", bytes.NewReader(make([]byte, 11)), 10)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = os.Stat(filepath.Join(dir, "u1", "big.bin"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "u1", "big.bin.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalRejectsTraversal(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "http://x/files")
	require.NoError(t, err)
	_, err = l.Put("../escape.txt", strings.NewReader("x"), 10)
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.ErrorIs(t, l.Delete(""), ErrInvalidPath)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestSniffKeepsContent(t *testing.T) {
	data := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte("x"), 1000)...)
	ct, body, err := Sniff(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	ct, _, err = Sniff(strings.NewReader("<script>alert(1)</script>"))
	require.NoError(t, err)
	assert.Equal(t, "text/html", ct)
}

func TestAvatarKey(t *testing.T) {
	k, err := AvatarKey("u1", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "u1/avatar.png", k)
	k, err = AvatarKey("u1", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "u1/avatar.jpg", k)
	for _, ct := range []string{"application/pdf", "text/html", "image/svg+xml", ""} {
		_, err = AvatarKey("u1", ct)
		assert.ErrorIs(t, err, ErrNotImage, ct)
	}
}

func TestResourceKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "u1/1700000000123.pdf", ResourceKey("u1", "application/pdf", now))
	assert.Equal(t, "u1/1700000000123.mp3", ResourceKey("u1", "audio/mpeg", now))
	assert.Equal(t, "u1/1700000000123.bin", ResourceKey("u1", "text/html", now))
	assert.Equal(t, "u1/1700000000123.bin", ResourceKey("u1", "", now))
}

func TestHandlerServesFilesSafely(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "http://x/files")
	require.NoError(t, err)

	// html disfarçado de png não vira avatar
	ct, _, err := Sniff(strings.NewReader("<script>alert(1)</script>"))
	require.NoError(t, err)
	_, err = AvatarKey("therapist-a", ct)
	require.ErrorIs(t, err, ErrNotImage)

	_, err = l.Put("therapist-a/avatar.png", bytes.NewReader(pngHeader), MaxAvatarBytes)
	require.NoError(t, err)
	_, err = l.Put("therapist-b/1700000000000.pdf", strings.NewReader("%PDF-1.4 fake"), MaxResourceBytes)
	require.NoError(t, err)
	_, err = l.Put("therapist-b/1700000000001.bin", strings.NewReader("<html><script>alert(1)</script></html>"), MaxResourceBytes)
	require.NoError(t, err)

	srv := http.StripPrefix("/files/", l.Handler())
	get := func(p string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, p, nil))
		return rr
	}

	for _, p := range []string{"/files/", "/files/therapist-a/", "/files/therapist-b", "/files/nada.png", "/files/therapist-a/avatar.png.tmp"} {
		rr := get(p)
		assert.Equal(t, http.StatusNotFound, rr.Code, p)
		assert.NotContains(t, rr.Body.String(), "therapist-", p)
	}

	rr := get("/files/therapist-a/avatar.png")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rr.Header().Get("Content-Disposition"))

	rr = get("/files/therapist-b/1700000000000.pdf")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "attachment", rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = get("/files/therapist-b/1700000000001.bin")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/octet-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "attachment", rr.Header().Get("Content-Disposition"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "sandbox")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType(".jpg"))
	assert.Equal(t, "application/pdf", ContentType("PDF"))
	assert.Equal(t, "application/octet-stream", ContentType(".html"))
	assert.Equal(t, "application/octet-stream", ContentType(""))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "0 KB", HumanSize(100))
	assert.Equal(t, "500 KB", HumanSize(512000))
	assert.Equal(t, "1.00 MB", HumanSize(1048000))
	assert.Equal(t, "2.50 MB", HumanSize(2621440))
}

func TestResourceType(t *testing.T) {
	assert.Equal(t, "PDF", ResourceType("application/pdf"))
	assert.Equal(t, "Vídeo", ResourceType("video/mp4"))
	assert.Equal(t, "Áudio", ResourceType("audio/mpeg"))
	assert.Equal(t, "Áudio", ResourceType("application/ogg"))
	assert.Equal(t, "Link", ResourceType("text/plain"))
}
