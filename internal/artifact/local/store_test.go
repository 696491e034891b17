package local

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

func TestStorePutGetRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	ref, err := store.Put(context.Background(), "clones/job-1/abc.html", "text/html; charset=utf-8", []byte("<html></html>"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "file://"))
	require.True(t, strings.HasSuffix(ref, "clones/job-1/abc.html"))

	got, err := store.Get(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, []byte("<html></html>"), got)
}

func TestStoreRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.html", "", []byte("x"))
	require.Error(t, err)

	_, err = store.Get(context.Background(), "file:///etc/passwd")
	require.Error(t, err)
}

func TestStoreGetMissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "file://"+dir+"/missing.html")
	require.True(t, errors.Is(err, clone.ErrNotFound))
}

func TestNewRequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)
}
