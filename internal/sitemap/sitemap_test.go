package sitemap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const urlsetBody = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://example.com/docs/intro</loc>
    <lastmod>2025-01-15</lastmod>
    <changefreq>weekly</changefreq>
    <priority>0.8</priority>
  </url>
  <url>
    <loc>https://example.com/docs/advanced</loc>
    <lastmod>2025-02-20T10:30:00Z</lastmod>
  </url>
</urlset>`

func TestReadURLSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(urlsetBody))
	}))
	defer srv.Close()

	r := New(srv.Client(), nil)
	entries, err := r.Read(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "https://example.com/docs/intro", entries[0].Loc)
	assert.True(t, entries[0].HasLastMod)
	assert.Equal(t, Weekly, entries[0].ChangeFreq)
	assert.InDelta(t, 0.8, entries[0].Priority, 0.0001)

	assert.True(t, entries[1].HasLastMod)
	assert.False(t, entries[1].HasFreq)
	assert.False(t, entries[1].HasPriority)
}

func TestReadSitemapIndexRecurses(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/child1.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<urlset><url><loc>https://example.com/a</loc></url></urlset>`))
	})
	mux.HandleFunc("/child2.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<urlset><url><loc>https://example.com/b</loc></url></urlset>`))
	})
	mux.HandleFunc("/index2.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + srv.URL + `/child1.xml</loc></sitemap>
  <sitemap><loc>` + srv.URL + `/child2.xml</loc></sitemap>
</sitemapindex>`))
	})

	r := New(srv.Client(), nil)
	entries, err := r.Read(context.Background(), srv.URL+"/index2.xml")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	locs := []string{entries[0].Loc, entries[1].Loc}
	assert.ElementsMatch(t, []string{"https://example.com/a", "https://example.com/b"}, locs)
}

func TestReadSkipsMalformedChild(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/index.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + srv.URL + `/good.xml</loc></sitemap>
  <sitemap><loc>` + srv.URL + `/bad.xml</loc></sitemap>
</sitemapindex>`))
	})
	mux.HandleFunc("/good.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<urlset><url><loc>https://example.com/good</loc></url></urlset>`))
	})
	mux.HandleFunc("/bad.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not xml at all`))
	})

	r := New(srv.Client(), nil)
	entries, err := r.Read(context.Background(), srv.URL+"/index.xml")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/good", entries[0].Loc)
}

func TestParsePriorityClamps(t *testing.T) {
	p, ok := parsePriority("1.5")
	require.True(t, ok)
	assert.Equal(t, 1.0, p)

	p, ok = parsePriority("-0.3")
	require.True(t, ok)
	assert.Equal(t, 0.0, p)
}

func TestParseChangeFreqRejectsUnknown(t *testing.T) {
	_, ok := parseChangeFreq("fortnightly")
	assert.False(t, ok)
}

func TestParseLastModAcceptsDateOnly(t *testing.T) {
	_, ok := parseLastMod("2025-06-01")
	assert.True(t, ok)
}
