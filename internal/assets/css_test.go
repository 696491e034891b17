package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchAllConcatenatesSheets(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/one.css":
			_, _ = w.Write([]byte("body { margin: 0; }"))
		case "/two.css":
			_, _ = w.Write([]byte("h1 { color: red; }"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewCSSFetcher(Config{Timeout: time.Second}, nil)
	css := f.FetchAll(context.Background(), []string{
		srv.URL + "/one.css",
		srv.URL + "/missing.css",
		srv.URL + "/two.css",
	})
	require.Contains(t, css, "body { margin: 0; }")
	require.Contains(t, css, "h1 { color: red; }")
	require.Contains(t, css, "/* "+srv.URL+"/one.css */")
}

func TestFetchAllRespectsSheetLimit(t *testing.T) {
	t.Parallel()

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte("p{}"))
	}))
	defer srv.Close()

	f := NewCSSFetcher(Config{Timeout: time.Second, MaxSheets: 1}, nil)
	f.FetchAll(context.Background(), []string{srv.URL + "/a.css", srv.URL + "/b.css"})
	require.Equal(t, 1, hits)
}

func TestFetchAllTruncatesToByteBudget(t *testing.T) {
	t.Parallel()

	big := make([]byte, 4096)
	for i := range big {
		big[i] = 'x'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(big)
	}))
	defer srv.Close()

	f := NewCSSFetcher(Config{Timeout: time.Second, MaxBytes: 1024}, nil)
	css := f.FetchAll(context.Background(), []string{srv.URL + "/big.css"})
	require.Len(t, css, 1024)
}

func TestFetchAllEmptyInput(t *testing.T) {
	t.Parallel()

	f := NewCSSFetcher(Config{}, nil)
	require.Equal(t, "", f.FetchAll(context.Background(), nil))
}
