package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/blz/internal/discovery"
	"github.com/standardbeagle/blz/internal/fetcher"
	"github.com/standardbeagle/blz/internal/registry"
	"github.com/standardbeagle/blz/internal/searchindex"
	"github.com/standardbeagle/blz/internal/sitemap"
	"github.com/standardbeagle/blz/internal/storage"
)

const sampleDoc = "# Widgets\n\nIntro text.\n\n## Install\n\nRun the installer.\n"

func newTestService(t *testing.T, srv *httptest.Server) (*Service, *storage.Storage) {
	t.Helper()
	store, err := storage.Open(t.TempDir(), 5)
	require.NoError(t, err)
	indexes := searchindex.NewManager(store.IndexDir)
	client := srv.Client()
	svc := New(store, indexes, nil, discovery.New(client), fetcher.New(client), nil, nil, nil, nil)
	return svc, store
}

func TestAddFetchesDiscoversAndIndexes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write([]byte(sampleDoc))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc, store := newTestService(t, srv)

	result, err := svc.Add(context.Background(), "widgets", srv.URL)
	require.NoError(t, err)
	assert.True(t, result.DiscoveryUsed)
	assert.Equal(t, "widgets", result.Alias)
	assert.True(t, result.TotalLines > 0)

	meta, err := store.LoadMetadata("widgets")
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, meta.Source.ETag)
	assert.NotEmpty(t, meta.Source.SHA256)
}

func TestAddRejectsExistingAlias(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleDoc))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc, store := newTestService(t, srv)
	require.NoError(t, store.SaveContent("widgets", "llms", sampleDoc))

	_, err := svc.Add(context.Background(), "widgets", srv.URL)
	assert.Error(t, err)
}

func TestAddUsesRegistryAliasWhenNotAURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleDoc))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store, err := storage.Open(t.TempDir(), 5)
	require.NoError(t, err)
	indexes := searchindex.NewManager(store.IndexDir)
	client := srv.Client()
	reg := registry.NewFrom([]registry.Entry{{Alias: "widgets", URL: srv.URL, DisplayName: "Widgets"}})
	svc := New(store, indexes, nil, discovery.New(client), fetcher.New(client), nil, reg, nil, nil)

	result, err := svc.Add(context.Background(), "widgets", "widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", result.Alias)

	meta, err := store.LoadMetadata("widgets")
	require.NoError(t, err)
	assert.Equal(t, "Widgets", meta.Source.DisplayName)
}

func TestSyncReturnsUnchangedOn304(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(sampleDoc))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc, _ := newTestService(t, srv)
	_, err := svc.Add(context.Background(), "widgets", srv.URL+"/llms.txt")
	require.NoError(t, err)

	result, err := svc.Sync(context.Background(), "widgets")
	require.NoError(t, err)
	assert.False(t, result.Changed)
}

func TestSyncArchivesAndReindexesOnChange(t *testing.T) {
	body := sampleDoc
	mux := http.NewServeMux()
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc, store := newTestService(t, srv)
	_, err := svc.Add(context.Background(), "widgets", srv.URL+"/llms.txt")
	require.NoError(t, err)

	body = sampleDoc + "\n## More\n\nExtra section.\n"
	result, err := svc.Sync(context.Background(), "widgets")
	require.NoError(t, err)
	assert.True(t, result.Changed)

	meta, err := store.LoadMetadata("widgets")
	require.NoError(t, err)
	root := meta.Toc[len(meta.Toc)-1]
	assert.Contains(t, root.Children[len(root.Children)-1].HeadingPath, "More")
}

func TestAddFallsBackToSitemapAndAppliesFollowLinksPolicy(t *testing.T) {
	var srv *httptest.Server // closed over by the sitemap handler below

	mux := http.NewServeMux()
	mux.HandleFunc("/llms-full.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		// HEAD must miss at the host root so discovery falls through to
		// sitemap.xml; GET still serves the document once the sitemap
		// entry is chosen and fetched directly.
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(sampleDoc))
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset>
  <url><loc>http://evil.example.com/llms.txt</loc></url>
  <url><loc>%s/llms.txt</loc></url>
</urlset>`, srv.URL)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	store, err := storage.Open(t.TempDir(), 5)
	require.NoError(t, err)
	indexes := searchindex.NewManager(store.IndexDir)
	client := srv.Client()
	svc := New(store, indexes, nil, discovery.New(client), fetcher.New(client), sitemap.New(client, nil), nil, nil, nil)

	result, err := svc.Add(context.Background(), "widgets", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/llms.txt", result.URL)
}

func TestRemoveDeletesSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleDoc))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc, store := newTestService(t, srv)
	_, err := svc.Add(context.Background(), "widgets", srv.URL+"/llms.txt")
	require.NoError(t, err)

	require.NoError(t, svc.Remove("widgets"))
	assert.False(t, store.Exists("widgets"))
}
