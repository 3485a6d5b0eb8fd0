package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

func TestLoadFileReadsAllowedPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# hello"), 0o644))

	l, err := New(nil)
	require.NoError(t, err)
	data, err := l.Load(context.Background(), "file://"+path)
	require.NoError(t, err)
	require.Equal(t, "# hello", string(data))
}

func TestLoadFileRejectsPathOutsideAllowList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# hello"), 0o644))

	l, err := New([]string{"/allowed/**"})
	require.NoError(t, err)
	_, err = l.Load(context.Background(), "file://"+path)
	require.Error(t, err)
	require.Equal(t, model.ErrInvalidURI, model.CodeOf(err))
}

func TestLoadFileMissingReturnsIOError(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)
	_, err = l.Load(context.Background(), "file:///does/not/exist.md")
	require.Error(t, err)
	require.Equal(t, model.ErrIO, model.CodeOf(err))
}

func TestLoadHTTPFetchesAllowedHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello from http"))
	}))
	defer srv.Close()

	l, err := New(nil)
	require.NoError(t, err)
	data, err := l.Load(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "hello from http", string(data))
}

func TestLoadHTTPNonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l, err := New(nil)
	require.NoError(t, err)
	_, err = l.Load(context.Background(), srv.URL)
	require.Error(t, err)
	require.Equal(t, model.ErrHTTP, model.CodeOf(err))
}

func TestLoadDataURIPlainAndBase64(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)

	data, err := l.Load(context.Background(), "data:text/plain,hello%20world")
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))

	// "aGVsbG8=" is the base64 encoding of "hello".
	data, err = l.Load(context.Background(), "data:text/plain;base64,aGVsbG8=")
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestLoadUnsupportedSchemeFails(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)
	_, err = l.Load(context.Background(), "ftp://example.com/a.txt")
	require.Error(t, err)
	require.Equal(t, model.ErrInvalidURI, model.CodeOf(err))
}

func TestNewRejectsInvalidGlobPattern(t *testing.T) {
	_, err := New([]string{"["})
	require.Error(t, err)
}
