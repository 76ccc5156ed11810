// Package orchestrator implements blz's parallel multi-source search entry
// point (spec.md §4.5): resolve a source list, fan out bounded-concurrency
// per-source searches, merge/dedup/sort the results, apply an optional
// top-percentile cut, enrich hits with source metadata, and paginate.
package orchestrator

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/standardbeagle/blz/internal/cache"
	blzerrors "github.com/standardbeagle/blz/internal/errors"
	"github.com/standardbeagle/blz/internal/headingfilter"
	"github.com/standardbeagle/blz/internal/model"
	"github.com/standardbeagle/blz/internal/searchindex"
	"github.com/standardbeagle/blz/internal/storage"
	"golang.org/x/sync/errgroup"
)

// FlavorPolicy selects which indexed flavor(s) a search considers for a
// source, per spec.md §4.5 step 4b. The spec names the four policies but
// leaves their exact resolution to the implementation; DESIGN.md records
// the decision.
type FlavorPolicy string

const (
	FlavorCurrent FlavorPolicy = "current" // whatever Source.Variant currently is
	FlavorAuto    FlavorPolicy = "auto"    // resolved the same as current (see resolveFlavorFilter)
	FlavorFull    FlavorPolicy = "full"    // llms-full only
	FlavorBase    FlavorPolicy = "base"    // llms only
)

const (
	maxEffectiveLimit = 1000
	allEffectiveLimit = 10000
	minConcurrency    = 8
	maxConcurrency    = 16
)

// Request is one perform_search call's input.
type Request struct {
	Query         string
	AliasFilter   []string // metadata or canonical aliases; empty means "all sources"
	FlavorPolicy  FlavorPolicy
	HeadingsOnly  bool
	HeadingFilter string // spec.md §4.6 Boolean expression; empty matches everything
	Limit         int  // ignored when All is set
	All           bool // "all" sentinel: effective_limit=10000, actual_limit=max(1,n)
	TopPercentile float64 // 0 disables; otherwise keep ceil(n*p/100) hits, min 1
	Page          int
	Last          bool // page = max(1, total_pages)
}

// Response is perform_search's output.
type Response struct {
	Hits               []model.SearchHit
	Duration           time.Duration
	TotalLinesSearched int
	Sources            []string
	Page               int
	TotalPages         int
	PageOutOfRange     bool
}

// Orchestrator ties storage metadata, per-source indexes, and the result
// cache together behind PerformSearch. It holds no per-search state, so one
// Orchestrator is safe to call concurrently from many goroutines.
type Orchestrator struct {
	storage *storage.Storage
	indexes *searchindex.Manager
	cache   *cache.Cache // optional: a nil cache disables the lookup/store step entirely
	logger  *slog.Logger
}

// New builds an Orchestrator. logger defaults to slog.Default() when nil.
// searchCache may be nil, in which case PerformSearch always executes a
// fresh per-source search.
func New(store *storage.Storage, indexes *searchindex.Manager, searchCache *cache.Cache, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{storage: store, indexes: indexes, cache: searchCache, logger: logger}
}

// PerformSearch implements spec.md §4.5's eleven steps.
func (o *Orchestrator) PerformSearch(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	aliases, err := o.resolveAliases(req.AliasFilter)
	if err != nil {
		return Response{}, err
	}

	effectiveLimit := allEffectiveLimit
	if !req.All {
		effectiveLimit = req.Limit * 3
		if effectiveLimit > maxEffectiveLimit {
			effectiveLimit = maxEffectiveLimit
		}
		if effectiveLimit < 1 {
			effectiveLimit = 1
		}
	}

	concurrency := 2 * runtime.GOMAXPROCS(0)
	if concurrency < minConcurrency {
		concurrency = minConcurrency
	}
	if concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}

	perSource, totalLines, err := o.searchSources(ctx, aliases, req, effectiveLimit, concurrency)
	if err != nil {
		return Response{}, err
	}

	hits := dedupHits(perSource)
	sortHits(hits)

	if req.HeadingFilter != "" {
		hf, err := headingfilter.Parse(req.HeadingFilter)
		if err != nil {
			return Response{}, err
		}
		hits = filterByHeading(hits, hf)
	}

	if req.TopPercentile > 0 {
		hits = topPercentile(hits, req.TopPercentile)
		if len(hits) < 10 {
			o.logger.Info("top-percentile filter left few results; consider a lower percentile or broader query",
				"orchestrator.op", "top_percentile", "remaining", len(hits))
		}
	}

	o.enrich(hits)

	page, totalPages, pageHits, outOfRange := paginate(hits, req.Limit, req.All, req.Page, req.Last)

	participating := make([]string, 0, len(aliases))
	for _, a := range aliases {
		participating = append(participating, a)
	}
	sort.Strings(participating)

	return Response{
		Hits:               pageHits,
		Duration:           time.Since(start),
		TotalLinesSearched: totalLines,
		Sources:            participating,
		Page:               page,
		TotalPages:         totalPages,
		PageOutOfRange:     outOfRange,
	}, nil
}

// resolveAliases implements step 1: translate metadata aliases to canonical
// aliases when a filter is given, otherwise return every stored source.
func (o *Orchestrator) resolveAliases(filter []string) ([]string, error) {
	all, err := o.storage.ListSources()
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Storage, "orchestrator.resolve_aliases", err)
	}
	if len(filter) == 0 {
		return all, nil
	}

	canonical := make(map[string]string, len(all)) // lowercased alias/metadata-alias -> canonical
	for _, alias := range all {
		canonical[alias] = alias
		meta, err := o.storage.LoadMetadata(alias)
		if err != nil {
			continue // best-effort: a source whose metadata can't load just isn't alias-matchable
		}
		for _, a := range meta.Source.Aliases {
			canonical[a] = alias
		}
	}

	seen := make(map[string]bool, len(filter))
	var resolved []string
	var unresolved []string
	for _, want := range filter {
		if c, ok := canonical[want]; ok {
			if !seen[c] {
				seen[c] = true
				resolved = append(resolved, c)
			}
			continue
		}
		unresolved = append(unresolved, want)
	}

	if len(unresolved) > 0 {
		for _, want := range unresolved {
			if suggestion, ok := suggestAlias(want, all); ok {
				o.logger.Warn("source filter did not match any alias",
					"orchestrator.op", "resolve_aliases", "requested", want, "suggestion", suggestion)
			} else {
				o.logger.Warn("source filter did not match any alias",
					"orchestrator.op", "resolve_aliases", "requested", want)
			}
		}
	}

	return resolved, nil
}

type perSourceResult struct {
	alias      string
	hits       []model.SearchHit
	totalLines int
}

// searchSources implements steps 3-5: bounded-concurrency fan-out, logging
// and skipping per-source failures, succeeding overall if at least one
// source returned. Cancellation (step 11's contract) stops scheduling new
// tasks; in-flight tasks still complete and their results are discarded if
// the context was already done when they finish.
func (o *Orchestrator) searchSources(ctx context.Context, aliases []string, req Request, effectiveLimit, concurrency int) ([]perSourceResult, int, error) {
	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(concurrency)

	results := make([]perSourceResult, len(aliases))
	for i, alias := range aliases {
		i, alias := i, alias
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil // cancelled before this task was scheduled
			}
			hits, lines, err := o.searchOneSource(gctx, alias, req, effectiveLimit)
			if err != nil {
				o.logger.Warn("per-source search failed", "orchestrator.op", "search_source", "alias", alias, "error", err)
				return nil
			}
			if ctx.Err() != nil {
				return nil // result discarded: caller already cancelled
			}
			results[i] = perSourceResult{alias: alias, hits: hits, totalLines: lines}
			return nil
		})
	}
	_ = g.Wait() // per-source errors are already logged and folded into a nil task result

	var anySucceeded bool
	totalLines := 0
	out := make([]perSourceResult, 0, len(results))
	for _, r := range results {
		if r.alias == "" {
			continue
		}
		anySucceeded = true
		totalLines += r.totalLines
		out = append(out, r)
	}
	// A caller-cancelled search is not a failure: it's a short-circuit, so an
	// empty result set here returns cleanly rather than as "all sources
	// failed" (that error is reserved for a genuine all-sources failure).
	if ctx.Err() != nil {
		return out, totalLines, nil
	}
	if len(aliases) > 0 && !anySucceeded {
		return nil, 0, blzerrors.New(blzerrors.Index, "orchestrator.search", "all sources failed")
	}
	return out, totalLines, nil
}

func (o *Orchestrator) searchOneSource(ctx context.Context, alias string, req Request, effectiveLimit int) ([]model.SearchHit, int, error) {
	meta, err := o.storage.LoadMetadata(alias)
	if err != nil {
		return nil, 0, err
	}

	cacheFlavor := cacheFlavorKey(req)
	if o.cache != nil {
		if hits, ok := o.cache.Get(alias, req.Query, cacheFlavor); ok {
			return hits, meta.LineIndex.TotalLines, nil
		}
	}

	ix, err := o.indexes.GetReader(alias)
	if err != nil {
		return nil, 0, err
	}

	flavorFilter := resolveFlavorFilter(req.FlavorPolicy, meta.Source.Variant)

	hits, err := ix.Search(searchindex.SearchOptions{
		Query:        req.Query,
		FlavorFilter: flavorFilter,
		Limit:        effectiveLimit,
		HeadingsOnly: req.HeadingsOnly,
	})
	if err != nil {
		return nil, 0, err
	}
	for i := range hits {
		hits[i].Alias = alias
	}
	if o.cache != nil {
		o.cache.Put(alias, req.Query, cacheFlavor, hits)
	}
	return hits, meta.LineIndex.TotalLines, nil
}

// cacheFlavorKey folds the flavor policy and headings-only flag into the
// single flavor string Cache.Get/Put key on, so two requests that would
// resolve to a different hit set never share a cache entry.
func cacheFlavorKey(req Request) string {
	policy := req.FlavorPolicy
	if policy == "" {
		policy = FlavorCurrent
	}
	if req.HeadingsOnly {
		return string(policy) + "|headings"
	}
	return string(policy)
}

// resolveFlavorFilter decides the flavor disjunction passed to Index.Search
// for policy against a source's currently stored variant. "auto" and
// "current" both resolve to the source's live variant since a source only
// ever has one variant fetched at a time (see DESIGN.md's Open Question
// note on flavor policy); "full"/"base" pin to a specific variant
// regardless of what's currently fetched.
func resolveFlavorFilter(policy FlavorPolicy, current model.Variant) []string {
	switch policy {
	case FlavorFull:
		return []string{string(model.VariantLlmsFull)}
	case FlavorBase:
		return []string{string(model.VariantLlms)}
	case FlavorCurrent, FlavorAuto, "":
		if current == "" {
			return nil
		}
		return []string{string(current)}
	default:
		return nil
	}
}

// enrich implements step 9: best-effort source_url/checksum enrichment from
// each hit's source metadata. Failures (a source's metadata vanished
// between search and enrichment) are ignored; the hit is left unenriched.
func (o *Orchestrator) enrich(hits []model.SearchHit) {
	cache := make(map[string]*model.LlmsJson)
	for i := range hits {
		alias := hits[i].Alias
		meta, ok := cache[alias]
		if !ok {
			meta, _ = o.storage.LoadMetadata(alias)
			cache[alias] = meta
		}
		if meta == nil {
			continue
		}
		hits[i].SourceURL = meta.Source.URL
		hits[i].Checksum = meta.Source.SHA256
	}
}

// filterByHeading narrows merged hits to those whose heading_path/anchor
// satisfy a compiled heading-filter expression (spec.md §4.6, applied here
// to search candidates rather than a TOC listing).
func filterByHeading(hits []model.SearchHit, hf *headingfilter.Filter) []model.SearchHit {
	out := hits[:0]
	for _, h := range hits {
		if hf.Matches(h.HeadingPath, h.Anchor) {
			out = append(out, h)
		}
	}
	return out
}

// topPercentile implements step 8: keep max(1, ceil(n*p/100)) hits from an
// already score-sorted slice.
func topPercentile(hits []model.SearchHit, percentile float64) []model.SearchHit {
	n := len(hits)
	if n == 0 {
		return hits
	}
	keep := int(math.Ceil(float64(n) * percentile / 100))
	if keep < 1 {
		keep = 1
	}
	if keep > n {
		keep = n
	}
	return hits[:keep]
}
