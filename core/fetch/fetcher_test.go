package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "mailmd")
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<p>hi</p>"))
	}))
	defer srv.Close()

	res, err := New().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, res.Source)
	assert.Equal(t, "text/html; charset=iso-8859-1", res.ContentType)
	assert.Equal(t, "<p>hi</p>", string(res.Body))
}

func TestFetch_URLStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "unexpected status 404")
}

func TestFetch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>file</p>"), 0o644))

	res, err := New().Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "<p>file</p>", string(res.Body))
	assert.Contains(t, res.ContentType, "text/html")

	_, err = New().Fetch(context.Background(), filepath.Join(t.TempDir(), "nope.html"))
	assert.ErrorContains(t, err, "reading")
}

func TestFetch_Stdin(t *testing.T) {
	f := New().WithStdin(strings.NewReader("<p>piped</p>"))
	res, err := f.Fetch(context.Background(), "-")
	require.NoError(t, err)
	assert.Equal(t, "-", res.Source)
	assert.Equal(t, "<p>piped</p>", string(res.Body))
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.htm", "a.html", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.html"), 0o755))
	single := filepath.Join(dir, "notes.txt")

	got, err := Expand([]string{"-", "https://example.com", dir, single})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-",
		"https://example.com",
		filepath.Join(dir, "a.html"),
		filepath.Join(dir, "b.htm"),
		single,
	}, got)

	_, err = Expand([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
