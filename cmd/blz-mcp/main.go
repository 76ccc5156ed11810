// Command blz-mcp serves blz's search/get_block/list_sources tools over
// the Model Context Protocol, grounded on the teacher's cmd/lci/main.go MCP
// startup (mcp.NewServer(indexer, cfg) then serve-until-signal).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/standardbeagle/blz/internal/cache"
	"github.com/standardbeagle/blz/internal/config"
	"github.com/standardbeagle/blz/internal/logging"
	"github.com/standardbeagle/blz/internal/mcpserver"
	"github.com/standardbeagle/blz/internal/orchestrator"
	"github.com/standardbeagle/blz/internal/searchindex"
	"github.com/standardbeagle/blz/internal/storage"
	"github.com/standardbeagle/blz/internal/version"
)

func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".blz"
	}
	return filepath.Join(home, ".blz")
}

func main() {
	root := os.Getenv("BLZ_ROOT")
	if root == "" {
		root = defaultRoot()
	}

	logger := logging.New(logging.Options{Level: logging.LevelInfo})

	global, err := config.LoadGlobal(root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "blz-mcp: load config:", err)
		os.Exit(1)
	}

	store, err := storage.Open(root, global.Defaults.MaxArchives)
	if err != nil {
		fmt.Fprintln(os.Stderr, "blz-mcp: open storage:", err)
		os.Exit(1)
	}
	indexes := searchindex.NewManager(store.IndexDir)
	searchCache := cache.NewSearchCache()
	defer searchCache.Close()

	orch := orchestrator.New(store, indexes, searchCache, logger)
	server := mcpserver.New(orch, store, "blz", version.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "blz-mcp:", err)
		os.Exit(1)
	}
}
