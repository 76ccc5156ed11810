// Package sitemap implements blz's sitemap.xml / sitemap-index reader
// (spec.md §4.8): a best-effort companion to the discovery probe, used when
// a host-root HEAD cascade falls back to sitemap.xml instead of a direct
// llms[-full].txt hit.
package sitemap

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	blzerrors "github.com/standardbeagle/blz/internal/errors"
	"golang.org/x/sync/errgroup"
)

// maxChildFetches bounds how many child sitemaps a sitemap-index fetches
// concurrently (spec.md §4.8).
const maxChildFetches = 50

// maxDepth bounds sitemap-index recursion (spec.md §4.8): an index may
// reference child indexes at most this many levels deep.
const maxDepth = 2

// ChangeFreq is the sitemap protocol's changefreq enum.
type ChangeFreq string

const (
	Always  ChangeFreq = "always"
	Hourly  ChangeFreq = "hourly"
	Daily   ChangeFreq = "daily"
	Weekly  ChangeFreq = "weekly"
	Monthly ChangeFreq = "monthly"
	Yearly  ChangeFreq = "yearly"
	Never   ChangeFreq = "never"
)

// Entry is one <url> in a sitemap's <urlset>.
type Entry struct {
	Loc        string
	LastMod    time.Time
	HasLastMod bool
	ChangeFreq ChangeFreq
	HasFreq    bool
	Priority   float64
	HasPriority bool
}

// rawURLSet / rawSitemapIndex mirror the sitemap protocol's XML shapes.
type rawURLSet struct {
	XMLName xml.Name  `xml:"urlset"`
	URLs    []rawURL  `xml:"url"`
}

type rawURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type rawSitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []rawSitemap `xml:"sitemap"`
}

type rawSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// Fetcher is the minimal HTTP surface Reader needs; satisfied by *http.Client.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Reader fetches and parses sitemaps, recursing into sitemap indexes.
type Reader struct {
	client Fetcher
	logger *slog.Logger
}

// New builds a Reader. client defaults to http.DefaultClient; logger
// defaults to slog.Default().
func New(client Fetcher, logger *slog.Logger) *Reader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{client: client, logger: logger}
}

// Read fetches url and returns its flattened entry list, recursing through
// any sitemap-index structure up to maxDepth levels.
func (r *Reader) Read(ctx context.Context, url string) ([]Entry, error) {
	return r.read(ctx, url, 0)
}

func (r *Reader) read(ctx context.Context, url string, depth int) ([]Entry, error) {
	body, err := r.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if entries, ok := tryParseURLSet(body); ok {
		return entries, nil
	}

	index, ok := tryParseSitemapIndex(body)
	if !ok {
		return nil, blzerrors.New(blzerrors.Parse, "sitemap.read", "not a recognized urlset or sitemapindex document").WithContext("url", url)
	}
	if depth >= maxDepth {
		r.logger.Warn("sitemap index exceeds max recursion depth, skipping children",
			"sitemap.op", "read", "url", url, "depth", depth)
		return nil, nil
	}

	children := index.Sitemaps
	if len(children) > maxChildFetches {
		r.logger.Warn("sitemap index has more children than the fetch bound, truncating",
			"sitemap.op", "read", "url", url, "total", len(children), "fetched", maxChildFetches)
		children = children[:maxChildFetches]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxChildFetches)
	results := make([][]Entry, len(children))
	for i, child := range children {
		i, child := i, child
		g.Go(func() error {
			entries, err := r.read(gctx, child.Loc, depth+1)
			if err != nil {
				r.logger.Warn("malformed child sitemap skipped", "sitemap.op", "read", "url", child.Loc, "error", err)
				return nil
			}
			results[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	var all []Entry
	for _, entries := range results {
		all = append(all, entries...)
	}
	return all, nil
}

func (r *Reader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Network, "sitemap.fetch", err).WithContext("url", url)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Network, "sitemap.fetch", err).WithContext("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, blzerrors.New(blzerrors.Network, "sitemap.fetch", "non-2xx response").
			WithContext("url", url).WithContext("status", strconv.Itoa(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Io, "sitemap.fetch", err).WithContext("url", url)
	}
	return body, nil
}

func tryParseURLSet(body []byte) ([]Entry, bool) {
	var raw rawURLSet
	if err := xml.Unmarshal(body, &raw); err != nil || raw.XMLName.Local != "urlset" {
		return nil, false
	}
	entries := make([]Entry, 0, len(raw.URLs))
	for _, u := range raw.URLs {
		if u.Loc == "" {
			continue
		}
		entries = append(entries, toEntry(u))
	}
	return entries, true
}

func tryParseSitemapIndex(body []byte) (rawSitemapIndex, bool) {
	var raw rawSitemapIndex
	if err := xml.Unmarshal(body, &raw); err != nil || raw.XMLName.Local != "sitemapindex" {
		return rawSitemapIndex{}, false
	}
	return raw, true
}

func toEntry(u rawURL) Entry {
	e := Entry{Loc: u.Loc}
	if t, ok := parseLastMod(u.LastMod); ok {
		e.LastMod = t
		e.HasLastMod = true
	}
	if cf, ok := parseChangeFreq(u.ChangeFreq); ok {
		e.ChangeFreq = cf
		e.HasFreq = true
	}
	if p, ok := parsePriority(u.Priority); ok {
		e.Priority = p
		e.HasPriority = true
	}
	return e
}

// parseLastMod accepts RFC 3339, a bare date, or a local (no-zone) date-time,
// best-effort (spec.md §4.8).
func parseLastMod(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	layouts := []string{time.RFC3339, "2006-01-02", "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseChangeFreq(value string) (ChangeFreq, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(Always), string(Hourly), string(Daily), string(Weekly), string(Monthly), string(Yearly), string(Never):
		return ChangeFreq(strings.ToLower(strings.TrimSpace(value))), true
	default:
		return "", false
	}
}

// parsePriority parses and clamps to [0,1] (spec.md §4.8).
func parsePriority(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}
	p, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p, true
}
