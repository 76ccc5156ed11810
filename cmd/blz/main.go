// Command blz is the CLI front end for the blz documentation cache and
// search engine. It wires internal/config, internal/storage,
// internal/searchindex, internal/cache, internal/orchestrator,
// internal/discovery, internal/fetcher, internal/sitemap,
// internal/registry, and internal/ingest together behind a small command
// set, grounded on the teacher's cmd/lci/main.go urfave/cli/v2 App/Command
// construction.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/standardbeagle/blz/internal/cache"
	"github.com/standardbeagle/blz/internal/config"
	"github.com/standardbeagle/blz/internal/discovery"
	"github.com/standardbeagle/blz/internal/fetcher"
	"github.com/standardbeagle/blz/internal/headingfilter"
	"github.com/standardbeagle/blz/internal/ingest"
	"github.com/standardbeagle/blz/internal/logging"
	"github.com/standardbeagle/blz/internal/model"
	"github.com/standardbeagle/blz/internal/orchestrator"
	"github.com/standardbeagle/blz/internal/registry"
	"github.com/standardbeagle/blz/internal/searchindex"
	"github.com/standardbeagle/blz/internal/sitemap"
	"github.com/standardbeagle/blz/internal/storage"
	"github.com/standardbeagle/blz/internal/version"

	"github.com/urfave/cli/v2"
)

// state bundles every long-lived component a command needs. Each command
// action builds it by calling bootstrap.
type state struct {
	store   *storage.Storage
	indexes *searchindex.Manager
	cache   *cache.Cache
	orch    *orchestrator.Orchestrator
	ingest  *ingest.Service
	reg     *registry.Registry
}

func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".blz"
	}
	return filepath.Join(home, ".blz")
}

func bootstrap(c *cli.Context) (*state, error) {
	root := c.String("root")
	if root == "" {
		root = defaultRoot()
	}

	logLevel := logging.LevelInfo
	if c.Bool("verbose") {
		logLevel = logging.LevelDebug
	}
	logger := logging.New(logging.Options{Level: logLevel})

	global, err := config.LoadGlobal(root)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(root, global.Defaults.MaxArchives)
	if err != nil {
		return nil, err
	}
	indexes := searchindex.NewManager(store.IndexDir)
	searchCache := cache.NewSearchCache()

	orch := orchestrator.New(store, indexes, searchCache, logger)
	prober := discovery.New(nil)
	f := fetcher.New(nil)
	sitemaps := sitemap.New(nil, logger)
	reg := registry.New()
	ingestSvc := ingest.New(store, indexes, searchCache, prober, f, sitemaps, reg, global, logger)

	return &state{store: store, indexes: indexes, cache: searchCache, orch: orch, ingest: ingestSvc, reg: reg}, nil
}

func main() {
	app := &cli.App{
		Name:                   "blz",
		Usage:                  "Local-first cache and search engine for llms.txt documentation",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "Cache root directory (overrides ~/.blz)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a new documentation source by URL or registry name",
				ArgsUsage: "<alias> <url-or-registry-name>",
				Action:    addCommand,
			},
			{
				Name:      "sync",
				Usage:     "Re-fetch a source (or every source with --all) and reindex if changed",
				ArgsUsage: "[alias]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Sync every stored source"},
				},
				Action: syncCommand,
			},
			{
				Name:   "list",
				Usage:  "List every source currently in the cache",
				Action: listCommand,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a source from the cache",
				ArgsUsage: "<alias>",
				Action:    removeCommand,
			},
			{
				Name:      "search",
				Aliases:   []string{"s"},
				Usage:     "Search indexed sources",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "source", Usage: "Restrict to one or more aliases"},
					&cli.IntFlag{Name: "limit", Value: 10, Usage: "Results per page"},
					&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
					&cli.BoolFlag{Name: "all", Usage: "Return every match, ignoring --limit/--page"},
					&cli.BoolFlag{Name: "headings-only", Usage: "Match against heading text only"},
					&cli.StringFlag{Name: "flavor", Value: "current", Usage: "Flavor policy: current|auto|full|base"},
					&cli.Float64Flag{Name: "top-percentile", Usage: "Keep only the top N%% of ranked hits"},
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
					&cli.StringFlag{Name: "heading-filter", Usage: "Boolean expression over heading path/anchor (AND/OR/NOT, quotes, parens)"},
				},
				Action: searchCommand,
			},
			{
				Name:      "toc",
				Usage:     "Print a source's table of contents, optionally filtered by heading path",
				ArgsUsage: "<alias>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filter", Usage: "Boolean expression over heading path/anchor (AND/OR/NOT, quotes, parens)"},
				},
				Action: tocCommand,
			},
			{
				Name:      "get",
				Usage:     "Print a line range from a source's stored content",
				ArgsUsage: "<alias> <start-end>",
				Action:    getCommand,
			},
			{
				Name:  "sources",
				Usage: "Look up or list the built-in registry catalog",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Usage: "Substring filter over alias/name/category/tags"},
				},
				Action: sourcesCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "blz:", err)
		os.Exit(1)
	}
}

func addCommand(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: blz add <alias> <url-or-registry-name>", 1)
	}
	s, err := bootstrap(c)
	if err != nil {
		return err
	}
	result, err := s.ingest.Add(context.Background(), c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Printf("added %s from %s (%d lines)\n", result.Alias, result.URL, result.TotalLines)
	if result.DiscoveryUsed {
		fmt.Printf("  discovered via %s\n", result.DiscoveryMethod)
	}
	for _, d := range result.Diagnostics {
		fmt.Printf("  note: %s (line %d)\n", d.Message, d.Line)
	}
	return nil
}

func syncCommand(c *cli.Context) error {
	s, err := bootstrap(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if c.Bool("all") {
		failures := s.ingest.SyncAll(ctx)
		aliases, err := s.store.ListSources()
		if err != nil {
			return err
		}
		for _, alias := range aliases {
			if err, failed := failures[alias]; failed {
				fmt.Printf("%s: FAILED: %v\n", alias, err)
			} else {
				fmt.Printf("%s: ok\n", alias)
			}
		}
		if len(failures) > 0 {
			return cli.Exit(fmt.Sprintf("%d source(s) failed to sync", len(failures)), 1)
		}
		return nil
	}
	if c.NArg() < 1 {
		return cli.Exit("usage: blz sync <alias> (or --all)", 1)
	}
	result, err := s.ingest.Sync(ctx, c.Args().Get(0))
	if err != nil {
		return err
	}
	if result.Changed {
		fmt.Printf("%s: updated (%d lines)\n", result.Alias, result.TotalLines)
	} else {
		fmt.Printf("%s: unchanged\n", result.Alias)
	}
	return nil
}

func listCommand(c *cli.Context) error {
	s, err := bootstrap(c)
	if err != nil {
		return err
	}
	aliases, err := s.store.ListSources()
	if err != nil {
		return err
	}
	if len(aliases) == 0 {
		fmt.Println("no sources cached yet; try: blz add <alias> <url>")
		return nil
	}
	for _, alias := range aliases {
		meta, err := s.store.LoadMetadata(alias)
		if err != nil {
			fmt.Printf("%s: metadata unavailable (%v)\n", alias, err)
			continue
		}
		fmt.Printf("%-20s %-10s %6d lines  %s\n", alias, meta.Source.Variant, meta.LineIndex.TotalLines, meta.Source.URL)
	}
	return nil
}

func removeCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: blz remove <alias>", 1)
	}
	s, err := bootstrap(c)
	if err != nil {
		return err
	}
	if err := s.ingest.Remove(c.Args().Get(0)); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", c.Args().Get(0))
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: blz search <query>", 1)
	}
	s, err := bootstrap(c)
	if err != nil {
		return err
	}
	req := orchestrator.Request{
		Query:         strings.Join(c.Args().Slice(), " "),
		AliasFilter:   c.StringSlice("source"),
		FlavorPolicy:  orchestrator.FlavorPolicy(c.String("flavor")),
		HeadingsOnly:  c.Bool("headings-only"),
		Limit:         c.Int("limit"),
		All:           c.Bool("all"),
		TopPercentile: c.Float64("top-percentile"),
		Page:          c.Int("page"),
		HeadingFilter: c.String("heading-filter"),
	}
	resp, err := s.orch.PerformSearch(context.Background(), req)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.PageOutOfRange {
		fmt.Printf("page %d is beyond the last page (%d); showing no results\n", resp.Page, resp.TotalPages)
		return nil
	}
	for _, hit := range resp.Hits {
		fmt.Printf("%s:%s %s\n  %s\n", hit.Alias, hit.Lines, strings.Join(hit.HeadingPath, " > "), hit.Snippet)
	}
	fmt.Printf("\n%d hit(s), page %d/%d, %s\n", len(resp.Hits), resp.Page, resp.TotalPages, resp.Duration)
	return nil
}

func tocCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: blz toc <alias>", 1)
	}
	s, err := bootstrap(c)
	if err != nil {
		return err
	}
	hf, err := headingfilter.Parse(c.String("filter"))
	if err != nil {
		return err
	}
	meta, err := s.store.LoadMetadata(c.Args().Get(0))
	if err != nil {
		return err
	}
	printToc(meta.Toc, hf)
	return nil
}

func printToc(entries []*model.TocEntry, hf *headingfilter.Filter) {
	for _, e := range entries {
		if hf.Matches(e.HeadingPath, e.Anchor) {
			title := "(root)"
			if len(e.HeadingPath) > 0 {
				title = e.HeadingPath[len(e.HeadingPath)-1]
			}
			indent := e.Depth() - 1
			if indent < 0 {
				indent = 0
			}
			fmt.Printf("%s%s  %s  #%s\n", strings.Repeat("  ", indent), title, e.Lines, e.Anchor)
		}
		printToc(e.Children, hf)
	}
}

func getCommand(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: blz get <alias> <start-end>", 1)
	}
	s, err := bootstrap(c)
	if err != nil {
		return err
	}
	alias := c.Args().Get(0)
	meta, err := s.store.LoadMetadata(alias)
	if err != nil {
		return err
	}
	text, err := s.store.LoadContent(alias, meta.Source.Variant, meta.Source.SHA256)
	if err != nil {
		return err
	}
	start, end, err := parseRange(c.Args().Get(1))
	if err != nil {
		return err
	}
	lines := strings.Split(text, "\n")
	if start < 1 || start > len(lines) {
		return cli.Exit(fmt.Sprintf("start line %d out of range (1-%d)", start, len(lines)), 1)
	}
	if end > len(lines) {
		end = len(lines)
	}
	fmt.Println(strings.Join(lines[start-1:end], "\n"))
	return nil
}

func parseRange(s string) (start, end int, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range must be formatted start-end, got %q", s)
	}
	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("end line %d precedes start line %d", end, start)
	}
	return start, end, nil
}

func sourcesCommand(c *cli.Context) error {
	reg := registry.New()
	entries := reg.Search(c.String("query"))
	for _, e := range entries {
		fmt.Printf("%-14s %-20s %s\n", e.Alias, e.DisplayName, e.URL)
	}
	return nil
}
