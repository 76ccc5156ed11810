// Package ingest wires the ingest data flow spec.md §2 describes —
// discovery probe → fetcher → parser → storage → index builder — into the
// operations the CLI and MCP front ends call: add a new source, sync an
// existing one, sync every source, and remove one. None of this logic
// belongs to the core library components themselves (each of those stays a
// narrow, independently-testable unit); Service is the pipeline that
// sequences them, grounded on the teacher's internal/indexing/pipeline.go
// (a FileScanner feeding a processing pipeline) generalized from a
// directory walk to a single-URL fetch.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/standardbeagle/blz/internal/cache"
	"github.com/standardbeagle/blz/internal/config"
	"github.com/standardbeagle/blz/internal/discovery"
	blzerrors "github.com/standardbeagle/blz/internal/errors"
	"github.com/standardbeagle/blz/internal/fetcher"
	"github.com/standardbeagle/blz/internal/model"
	"github.com/standardbeagle/blz/internal/parser"
	"github.com/standardbeagle/blz/internal/registry"
	"github.com/standardbeagle/blz/internal/searchindex"
	"github.com/standardbeagle/blz/internal/sitemap"
	"github.com/standardbeagle/blz/internal/storage"
)

// Service sequences discovery, fetch, parse, storage, and index-build for
// one source at a time. One Service is shared across every add/sync call a
// front end makes.
type Service struct {
	store    *storage.Storage
	indexes  *searchindex.Manager
	cache    *cache.Cache // optional
	prober   *discovery.Prober
	fetcher  *fetcher.Fetcher
	sitemaps *sitemap.Reader
	registry *registry.Registry
	global   *config.GlobalConfig
	logger   *slog.Logger
}

// New builds a Service. searchCache, sitemaps, reg, and global may be nil;
// a nil sitemaps reader is built against http.DefaultClient.
func New(store *storage.Storage, indexes *searchindex.Manager, searchCache *cache.Cache, prober *discovery.Prober, f *fetcher.Fetcher, sitemaps *sitemap.Reader, reg *registry.Registry, global *config.GlobalConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if global == nil {
		global = config.DefaultGlobalConfig()
	}
	if sitemaps == nil {
		sitemaps = sitemap.New(nil, logger)
	}
	return &Service{
		store:    store,
		indexes:  indexes,
		cache:    searchCache,
		prober:   prober,
		fetcher:  f,
		sitemaps: sitemaps,
		registry: reg,
		global:   global,
		logger:   logger,
	}
}

// AddResult reports what Add did, for a front end to print.
type AddResult struct {
	Alias           string
	URL             string
	DiscoveryUsed   bool
	DiscoveryMethod string
	TotalLines      int
	Diagnostics     []model.Diagnostic
}

// Add ingests a brand-new source under alias. If rawURLOrAlias looks like a
// URL (see looksLikeURL) it is the target; otherwise it is looked up in the
// registry by alias. A URL that already names an llms.txt/llms-full.txt
// file is fetched directly; any other target, registry entries included,
// goes through the discovery probe first. An alias that already exists is
// rejected — callers use Sync to refresh it.
func (s *Service) Add(ctx context.Context, alias, rawURLOrAlias string) (AddResult, error) {
	if s.store.Exists(alias) {
		return AddResult{}, blzerrors.New(blzerrors.Storage, "ingest.add", "source already exists").WithAlias(alias)
	}

	target, origin, entry, err := s.resolveTarget(rawURLOrAlias)
	if err != nil {
		return AddResult{}, err
	}

	fetchURL := target
	var discoveryUsed bool
	var discoveryMethod string
	if origin != model.OriginManual || !looksLikeDocument(target) {
		result, err := s.prober.Discover(ctx, target)
		if err != nil {
			return AddResult{}, err
		}
		if result.Method == discovery.NotFound {
			return AddResult{}, blzerrors.New(blzerrors.NotFound, "ingest.add", "no llms.txt resource discovered").WithContext("url", target)
		}
		fetchURL = result.URL
		discoveryUsed = true
		discoveryMethod = string(result.Method)

		if strings.HasSuffix(fetchURL, "sitemap.xml") {
			fetchURL, err = s.resolveViaSitemap(ctx, target, fetchURL)
			if err != nil {
				return AddResult{}, err
			}
		}
	}

	res, err := s.fetcher.Fetch(ctx, fetchURL, fetcher.Validators{})
	if err != nil {
		return AddResult{}, err
	}
	if res.Unchanged {
		return AddResult{}, blzerrors.New(blzerrors.Other, "ingest.add", "server reported no content for a first-time fetch").WithContext("url", fetchURL)
	}

	text := string(res.Body)
	parsed := parser.Parse(text)
	variant := variantFor(fetchURL)
	checksum := sha256Hex(res.Body)

	meta := &model.LlmsJson{
		Source: model.Source{
			Alias:        alias,
			URL:          fetchURL,
			ETag:         res.ETag,
			LastModified: res.LastModified,
			FetchedAt:    time.Now(),
			SHA256:       checksum,
			Variant:      variant,
			Origin:       origin,
		},
		Toc:         parsed.Toc,
		Files:       []model.FileEntry{{Path: contentFileName(variant), SHA256: checksum}},
		LineIndex:   parsed.LineIndex,
		Diagnostics: parsed.Diagnostics,
	}
	if entry != nil {
		meta.Source.DisplayName = entry.DisplayName
		meta.Source.Description = entry.Description
		meta.Source.Category = entry.Category
		meta.Source.Tags = entry.Tags
	}

	if err := s.store.SaveContent(alias, variant, text); err != nil {
		return AddResult{}, err
	}
	if err := s.store.SaveMetadata(alias, meta); err != nil {
		return AddResult{}, err
	}
	if err := s.buildIndex(ctx, alias, variant, parsed.Blocks); err != nil {
		return AddResult{}, err
	}

	return AddResult{
		Alias:           alias,
		URL:             fetchURL,
		DiscoveryUsed:   discoveryUsed,
		DiscoveryMethod: discoveryMethod,
		TotalLines:      parsed.LineIndex.TotalLines,
		Diagnostics:     parsed.Diagnostics,
	}, nil
}

// resolveViaSitemap is reached when discovery falls back to sitemap.xml
// (no direct llms[-full].txt hit at the host root): it reads the sitemap,
// applies the global [defaults] follow_links/allowlist policy to each
// listed URL (no per-source [fetch] override is consulted here), and
// fetches the first allowed entry that names an llms[-full].txt file.
func (s *Service) resolveViaSitemap(ctx context.Context, baseURL, sitemapURL string) (string, error) {
	entries, err := s.sitemaps.Read(ctx, sitemapURL)
	if err != nil {
		return "", err
	}
	eff := config.Resolve(s.global, nil)
	for _, entry := range entries {
		if !looksLikeDocument(entry.Loc) {
			continue
		}
		if !config.MayFollow(eff.FollowLinks, eff.Allowlist, baseURL, entry.Loc) {
			continue
		}
		return entry.Loc, nil
	}
	return "", blzerrors.New(blzerrors.NotFound, "ingest.resolve_via_sitemap", "sitemap listed no allowed llms.txt resource").WithContext("sitemap", sitemapURL)
}

// resolveTarget decides what Add fetches from, and what origin to record.
func (s *Service) resolveTarget(rawURLOrAlias string) (target string, origin model.OriginKind, entry *registry.Entry, err error) {
	if looksLikeURL(rawURLOrAlias) {
		return rawURLOrAlias, model.OriginManual, nil, nil
	}
	if s.registry == nil {
		return "", "", nil, blzerrors.New(blzerrors.NotFound, "ingest.resolve_target", "not a URL and no registry configured").WithContext("input", rawURLOrAlias)
	}
	e, ok := s.registry.Lookup(rawURLOrAlias)
	if !ok {
		if suggestion, ok := s.registry.Suggest(rawURLOrAlias); ok {
			return "", "", nil, blzerrors.New(blzerrors.NotFound, "ingest.resolve_target", fmt.Sprintf("unknown registry alias (did you mean %q?)", suggestion)).WithContext("input", rawURLOrAlias)
		}
		return "", "", nil, blzerrors.New(blzerrors.NotFound, "ingest.resolve_target", "unknown registry alias").WithContext("input", rawURLOrAlias)
	}
	return e.URL, model.OriginRegistry, &e, nil
}

// SyncResult reports what Sync did.
type SyncResult struct {
	Alias      string
	Changed    bool
	TotalLines int
}

// Sync re-fetches an existing source using its stored ETag/Last-Modified
// validators. A 304 leaves storage and the index untouched. A changed body
// archives the prior version, rewrites content/metadata, rebuilds the
// index, and bumps the source's cache version so stale search results
// aren't served afterward.
func (s *Service) Sync(ctx context.Context, alias string) (SyncResult, error) {
	meta, err := s.store.LoadMetadata(alias)
	if err != nil {
		return SyncResult{}, err
	}

	res, err := s.fetcher.Fetch(ctx, meta.Source.URL, fetcher.Validators{
		ETag:         meta.Source.ETag,
		LastModified: meta.Source.LastModified,
	})
	if err != nil {
		return SyncResult{}, err
	}
	if res.Unchanged {
		return SyncResult{Alias: alias, Changed: false, TotalLines: meta.LineIndex.TotalLines}, nil
	}

	text := string(res.Body)
	parsed := parser.Parse(text)
	checksum := sha256Hex(res.Body)

	if err := s.store.ArchiveCurrent(alias); err != nil {
		return SyncResult{}, err
	}

	newMeta := *meta
	newMeta.Source.ETag = res.ETag
	newMeta.Source.LastModified = res.LastModified
	newMeta.Source.FetchedAt = time.Now()
	newMeta.Source.SHA256 = checksum
	newMeta.Toc = parsed.Toc
	newMeta.Files = []model.FileEntry{{Path: contentFileName(meta.Source.Variant), SHA256: checksum}}
	newMeta.LineIndex = parsed.LineIndex
	newMeta.Diagnostics = parsed.Diagnostics

	if err := s.store.SaveContent(alias, meta.Source.Variant, text); err != nil {
		return SyncResult{}, err
	}
	if err := s.store.SaveMetadata(alias, &newMeta); err != nil {
		return SyncResult{}, err
	}
	if err := s.buildIndex(ctx, alias, meta.Source.Variant, parsed.Blocks); err != nil {
		return SyncResult{}, err
	}
	if s.cache != nil {
		s.cache.BumpVersion(alias)
	}

	return SyncResult{Alias: alias, Changed: true, TotalLines: parsed.LineIndex.TotalLines}, nil
}

// SyncAll syncs every stored source, continuing past per-source failures
// (the same "log and skip" policy the orchestrator uses for search) and
// returning each alias's error, if any.
func (s *Service) SyncAll(ctx context.Context) map[string]error {
	aliases, err := s.store.ListSources()
	if err != nil {
		return map[string]error{"*": err}
	}
	failures := make(map[string]error)
	for _, alias := range aliases {
		if _, err := s.Sync(ctx, alias); err != nil {
			s.logger.Warn("source sync failed", "ingest.op", "sync_all", "alias", alias, "error", err)
			failures[alias] = err
		}
	}
	return failures
}

// Remove deletes alias's entire on-disk directory and drops any cached
// search results for it.
func (s *Service) Remove(alias string) error {
	if err := s.store.DeleteSource(alias); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.InvalidateAlias(alias)
	}
	return nil
}

func (s *Service) buildIndex(ctx context.Context, alias string, variant model.Variant, blocks []model.HeadingBlock) error {
	w, err := s.indexes.AcquireWriter(ctx, alias)
	if err != nil {
		return err
	}
	defer w.Release()
	return w.IndexBlocksFlavored(string(variant), contentFileName(variant), blocks)
}

func contentFileName(variant model.Variant) string {
	if variant == model.VariantLlmsFull {
		return "llms-full.txt"
	}
	return "llms.txt"
}

func variantFor(fetchURL string) model.Variant {
	if strings.Contains(fetchURL, "llms-full.txt") {
		return model.VariantLlmsFull
	}
	return model.VariantLlms
}

func looksLikeURL(s string) bool {
	return strings.Contains(s, "://") || strings.Contains(s, ".")
}

// looksLikeDocument reports whether s already names a specific llms[-full].txt
// file, in which case Add skips discovery and fetches it directly.
func looksLikeDocument(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Path, "llms.txt") || strings.HasSuffix(u.Path, "llms-full.txt")
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
