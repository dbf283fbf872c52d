package fetch

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveRelativeToFileBase(t *testing.T) {
	got := Resolve("/a/b/root.wsdl", "child.xsd")
	require.Equal(t, "/a/b/child.xsd", got)
}

func TestResolveAbsolutePathUnchanged(t *testing.T) {
	got := Resolve("/a/b/root.wsdl", "/other/child.xsd")
	require.Equal(t, "/other/child.xsd", got)
}

func TestResolveRelativeToURLBase(t *testing.T) {
	got := Resolve("http://example.com/wsdl/root.wsdl", "child.xsd")
	require.Equal(t, "http://example.com/wsdl/child.xsd", got)
}

func TestResolveAbsoluteURLUnchanged(t *testing.T) {
	got := Resolve("http://example.com/root.wsdl", "http://other.example.com/child.xsd")
	require.Equal(t, "http://other.example.com/child.xsd", got)
}

func TestResolveEmptyLocation(t *testing.T) {
	require.Equal(t, "", Resolve("http://example.com/root.wsdl", ""))
}

func TestOpenLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.xsd")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	c := NewCache(nil)
	r, err := c.Open(path)
	require.NoError(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))
}

func TestOpenMissingFileReturnsIOError(t *testing.T) {
	c := NewCache(nil)
	_, err := c.Open(filepath.Join(t.TempDir(), "missing.xsd"))
	require.Error(t, err)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.True(t, os.IsNotExist(ioErr.Cause))
}

func TestOpenHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote schema"))
	}))
	defer srv.Close()

	c := NewCache(srv.Client())
	r, err := c.Open(srv.URL)
	require.NoError(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "remote schema", string(b))
}

func TestOpenHTTPNonOKReturnsIOError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewCache(srv.Client())
	_, err := c.Open(srv.URL)
	require.Error(t, err)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
}

func TestVisitMarksLocationSeen(t *testing.T) {
	c := NewCache(nil)
	require.False(t, c.Visit("a"))
	require.True(t, c.Visit("a"))
	require.False(t, c.Visit("b"))
}
