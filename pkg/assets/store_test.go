package assets

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, body string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(body), 0644))
}

func TestLocalStoreListOpenURL(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "portfolio/b.jpg", "b")
	writeFile(t, root, "portfolio/a.jpg", "a")
	writeFile(t, root, "img/carbonara.jpg", "c")

	store := NewLocalStore(root, "assets")
	ctx := context.Background()

	names, err := store.List(ctx, "portfolio")
	require.NoError(t, err)
	require.Equal(t, []string{"portfolio/a.jpg", "portfolio/b.jpg"}, names)

	missing, err := store.List(ctx, "nothing-here")
	require.NoError(t, err)
	require.Empty(t, missing)

	rc, err := store.Open(ctx, "img/carbonara.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "c", string(data))

	_, err = store.Open(ctx, "img/none.jpg")
	require.ErrorIs(t, err, ErrNotFound)

	url, err := store.URL(ctx, "portfolio/a.jpg")
	require.NoError(t, err)
	require.Equal(t, "/assets/portfolio/a.jpg", url)
}

func TestLocalStoreStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "/assets")

	w, err := store.Create(context.Background(), "../../escape.txt", "text/plain")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	require.NoError(t, err, "dot segments are cleaned relative to the root")
}

func TestStoreFetcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "img/a.jpg", "local")
	store := NewLocalStore(root, "/assets")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("remote"))
	}))
	defer srv.Close()

	f := NewStoreFetcher(store, store.URLPrefix(), srv.Client())
	ctx := context.Background()

	for uri, want := range map[string]string{
		"/assets/img/a.jpg": "local",
		"img/a.jpg":         "local",
		srv.URL + "/x.jpg":  "remote",
	} {
		rc, err := f.Fetch(ctx, uri)
		require.NoError(t, err, uri)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		require.Equal(t, want, string(data), uri)
	}

	_, err := f.Fetch(ctx, srv.URL+"/missing")
	require.Error(t, err)
}
