package searchindex

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"

	blzerrors "github.com/standardbeagle/blz/internal/errors"
	"github.com/standardbeagle/blz/internal/model"
)

const (
	// ReaderPoolCapacity bounds the number of resident Index readers kept
	// warm across sources, per spec.md §4.3's "bounded FIFO, capacity ≈ 10".
	ReaderPoolCapacity = 10
	// WriterPoolCapacity gates concurrent index construction; writers are
	// expensive (a full postings rebuild), so at most 2 run at once.
	WriterPoolCapacity = 2

	documentsFileName = "documents.json"
)

// indexDirFunc resolves a source's .index/ directory; Manager takes this as
// a function rather than a *storage.Storage to avoid an import cycle
// between searchindex and storage, and to keep the package testable
// without a real on-disk layout.
type indexDirFunc func(alias string) (string, error)

// Manager owns every source's Index plus the reader/writer pool discipline
// described in spec.md §4.3: a bounded FIFO of resident readers, and a
// semaphore-gated writer pool for construction, so indexing never runs more
// than WriterPoolCapacity builds concurrently.
type Manager struct {
	indexDir indexDirFunc

	mu       sync.Mutex
	resident map[string]*Index // alias -> loaded index
	fifo     []string          // resident aliases, oldest first, for eviction

	writerSem *semaphore.Weighted
}

// NewManager returns a Manager that persists/loads indexes via indexDir.
func NewManager(indexDir indexDirFunc) *Manager {
	return &Manager{
		indexDir:  indexDir,
		resident:  make(map[string]*Index),
		writerSem: semaphore.NewWeighted(WriterPoolCapacity),
	}
}

// GetReader returns alias's resident Index, loading it from disk (or
// creating an empty one) if it isn't already resident. The on-commit
// reload policy means a reader acquired after a commit always reflects
// that commit, since commits replace the resident entry directly.
func (m *Manager) GetReader(alias string) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ix, ok := m.resident[alias]; ok {
		m.touch(alias)
		return ix, nil
	}
	ix, err := m.load(alias)
	if err != nil {
		return nil, err
	}
	m.insert(alias, ix)
	return ix, nil
}

// load reads alias's persisted documents.json, or returns a fresh empty
// index if none exists yet (a source with no committed index).
func (m *Manager) load(alias string) (*Index, error) {
	dir, err := m.indexDir(alias)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, documentsFileName))
	if os.IsNotExist(err) {
		return NewIndex(alias), nil
	}
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Index, "searchindex.reader", err).WithAlias(alias)
	}
	return unmarshalInto(alias, data)
}

// touch moves alias to the back of the FIFO (most recently used).
func (m *Manager) touch(alias string) {
	for i, a := range m.fifo {
		if a == alias {
			m.fifo = append(m.fifo[:i], m.fifo[i+1:]...)
			break
		}
	}
	m.fifo = append(m.fifo, alias)
}

// insert adds alias to the resident set, evicting the oldest entry if the
// pool is at capacity.
func (m *Manager) insert(alias string, ix *Index) {
	m.resident[alias] = ix
	m.touch(alias)
	for len(m.fifo) > ReaderPoolCapacity {
		oldest := m.fifo[0]
		m.fifo = m.fifo[1:]
		delete(m.resident, oldest)
	}
}

// Writer is a construction-gated handle for committing changes to one
// alias's index. Callers must call Release when done, whether or not
// Commit was called.
type Writer struct {
	m     *Manager
	alias string
	index *Index
}

// AcquireWriter blocks (respecting ctx) for a writer permit, then returns a
// Writer positioned on alias's current index. At most WriterPoolCapacity
// writers across all aliases run concurrently.
func (m *Manager) AcquireWriter(ctx context.Context, alias string) (*Writer, error) {
	if err := m.writerSem.Acquire(ctx, 1); err != nil {
		return nil, blzerrors.Wrap(blzerrors.Timeout, "searchindex.writer", err).WithAlias(alias)
	}
	m.mu.Lock()
	ix, ok := m.resident[alias]
	m.mu.Unlock()
	if !ok {
		loaded, err := m.load(alias)
		if err != nil {
			m.writerSem.Release(1)
			return nil, err
		}
		ix = loaded
	}
	return &Writer{m: m, alias: alias, index: ix}, nil
}

// IndexBlocks applies the build and persists the result, then commits it
// into the resident reader set so the next GetReader sees it.
func (w *Writer) IndexBlocks(path string, blocks []model.HeadingBlock) error {
	if err := w.index.IndexBlocks(path, blocks); err != nil {
		return blzerrors.Wrap(blzerrors.Index, "searchindex.index_blocks", err).WithAlias(w.alias)
	}
	return w.persistAndCommit()
}

// IndexBlocksFlavored is IndexBlocks scoped to one flavor.
func (w *Writer) IndexBlocksFlavored(flavor, path string, blocks []model.HeadingBlock) error {
	if err := w.index.IndexBlocksFlavored(flavor, path, blocks); err != nil {
		return blzerrors.Wrap(blzerrors.Index, "searchindex.index_blocks_flavored", err).WithAlias(w.alias)
	}
	return w.persistAndCommit()
}

func (w *Writer) persistAndCommit() error {
	dir, err := w.m.indexDir(w.alias)
	if err != nil {
		return err
	}
	data, err := w.index.marshal()
	if err != nil {
		return err
	}
	if err := atomicWriteFile(filepath.Join(dir, documentsFileName), data); err != nil {
		return blzerrors.Wrap(blzerrors.Index, "searchindex.commit", err).WithAlias(w.alias)
	}
	w.m.mu.Lock()
	w.m.insert(w.alias, w.index)
	w.m.mu.Unlock()
	return nil
}

// Release returns the writer permit. Safe to call exactly once.
func (w *Writer) Release() {
	w.m.writerSem.Release(1)
}
