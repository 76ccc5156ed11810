// Package storage implements the on-disk layout described in spec.md §4.1:
// a cache root holding global.toml plus one sources/<alias>/ directory per
// indexed documentation set, each owning its canonical text, metadata,
// anchors map, index directory, and bounded archive history. Content,
// metadata and anchors writes go through atomicWrite (temp file + fsync +
// rename), the same pattern the config package uses for
// global.toml/settings.toml; archive copies are written in place by
// copyFile.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	blzerrors "github.com/standardbeagle/blz/internal/errors"
	"github.com/standardbeagle/blz/internal/model"
)

const (
	contentFileLlms     = "llms.txt"
	contentFileLlmsFull = "llms-full.txt"
	metadataFile         = "llms.json"
	anchorsFile          = "anchors.json"
	indexDirName         = ".index"
	archiveDirName       = "archive"
	sourcesDirName       = "sources"
)

// Storage is the filesystem-backed owner of every source's files. It holds
// no index-building or search logic of its own; callers read/write whole
// content and metadata blobs and consult Storage only for paths and atomic
// persistence, matching the teacher's FileService boundary of owning IO
// and nothing else.
type Storage struct {
	root        string
	maxArchives int
}

// Open returns a Storage rooted at root, creating root/sources if absent.
// A zero maxArchives means archives are never pruned.
func Open(root string, maxArchives int) (*Storage, error) {
	if err := os.MkdirAll(filepath.Join(root, sourcesDirName), 0o755); err != nil {
		return nil, blzerrors.Wrap(blzerrors.Io, "storage.open", err)
	}
	return &Storage{root: root, maxArchives: maxArchives}, nil
}

// Root returns the cache root directory.
func (s *Storage) Root() string { return s.root }

func (s *Storage) sourceDir(alias string) string {
	return filepath.Join(s.root, sourcesDirName, alias)
}

// IndexDir returns the per-source inverted-index directory, creating it if
// absent (the index writer expects the directory to already exist).
func (s *Storage) IndexDir(alias string) (string, error) {
	dir := filepath.Join(s.sourceDir(alias), indexDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", blzerrors.Wrap(blzerrors.Io, "storage.index_dir", err).WithAlias(alias)
	}
	return dir, nil
}

// ListSources returns every alias with a source directory, lexicographically.
func (s *Storage) ListSources() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, sourcesDirName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Io, "storage.list_sources", err)
	}
	var aliases []string
	for _, e := range entries {
		if e.IsDir() {
			aliases = append(aliases, e.Name())
		}
	}
	sort.Strings(aliases)
	return aliases, nil
}

// Exists reports whether alias has a source directory.
func (s *Storage) Exists(alias string) bool {
	info, err := os.Stat(s.sourceDir(alias))
	return err == nil && info.IsDir()
}

// contentFileName returns llms.txt or llms-full.txt for variant.
func contentFileName(variant model.Variant) string {
	if variant == model.VariantLlmsFull {
		return contentFileLlmsFull
	}
	return contentFileLlms
}

// LoadContent reads a source's canonical text and verifies it against
// wantSHA256 (the checksum recorded in llms.json), if non-empty.
func (s *Storage) LoadContent(alias string, variant model.Variant, wantSHA256 string) (string, error) {
	path := filepath.Join(s.sourceDir(alias), contentFileName(variant))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", blzerrors.New(blzerrors.NotFound, "storage.load_content", "content file not found").WithAlias(alias)
	}
	if err != nil {
		return "", blzerrors.Wrap(blzerrors.Io, "storage.load_content", err).WithAlias(alias)
	}
	if wantSHA256 != "" {
		if got := sha256Hex(data); got != wantSHA256 {
			return "", blzerrors.ChecksumMismatch("storage.load_content", alias, wantSHA256, got)
		}
	}
	return string(data), nil
}

// SaveContent atomically writes text as alias's canonical content file. It
// does not archive the previous version itself; callers that want archival
// call ArchiveCurrent first, per spec.md §4.1's separate archive_current op.
func (s *Storage) SaveContent(alias string, variant model.Variant, text string) error {
	dir := s.sourceDir(alias)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return blzerrors.Wrap(blzerrors.Io, "storage.save_content", err).WithAlias(alias)
	}
	path := filepath.Join(dir, contentFileName(variant))
	if err := atomicWrite(path, []byte(text)); err != nil {
		return blzerrors.Wrap(blzerrors.Io, "storage.save_content", err).WithAlias(alias)
	}
	return nil
}

// LoadMetadata reads alias's llms.json.
func (s *Storage) LoadMetadata(alias string) (*model.LlmsJson, error) {
	path := filepath.Join(s.sourceDir(alias), metadataFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, blzerrors.New(blzerrors.NotFound, "storage.load_metadata", "metadata not found").WithAlias(alias)
	}
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Io, "storage.load_metadata", err).WithAlias(alias)
	}
	var meta model.LlmsJson
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, blzerrors.Wrap(blzerrors.Parse, "storage.load_metadata", err).WithAlias(alias)
	}
	return &meta, nil
}

// SaveMetadata atomically rewrites alias's llms.json in full; per spec.md
// §4.1 it is never partially updated.
func (s *Storage) SaveMetadata(alias string, meta *model.LlmsJson) error {
	dir := s.sourceDir(alias)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return blzerrors.Wrap(blzerrors.Io, "storage.save_metadata", err).WithAlias(alias)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return blzerrors.Wrap(blzerrors.Serialization, "storage.save_metadata", err).WithAlias(alias)
	}
	if err := atomicWrite(filepath.Join(dir, metadataFile), data); err != nil {
		return blzerrors.Wrap(blzerrors.Io, "storage.save_metadata", err).WithAlias(alias)
	}
	return nil
}

// LoadAnchors reads alias's anchors.json. A missing file returns an empty,
// non-error AnchorsMap: the remap history is optional.
func (s *Storage) LoadAnchors(alias string) (*model.AnchorsMap, error) {
	path := filepath.Join(s.sourceDir(alias), anchorsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &model.AnchorsMap{}, nil
	}
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Io, "storage.load_anchors", err).WithAlias(alias)
	}
	var anchors model.AnchorsMap
	if err := json.Unmarshal(data, &anchors); err != nil {
		return nil, blzerrors.Wrap(blzerrors.Parse, "storage.load_anchors", err).WithAlias(alias)
	}
	return &anchors, nil
}

// SaveAnchors atomically rewrites alias's anchors.json.
func (s *Storage) SaveAnchors(alias string, anchors *model.AnchorsMap) error {
	dir := s.sourceDir(alias)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return blzerrors.Wrap(blzerrors.Io, "storage.save_anchors", err).WithAlias(alias)
	}
	anchors.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(anchors, "", "  ")
	if err != nil {
		return blzerrors.Wrap(blzerrors.Serialization, "storage.save_anchors", err).WithAlias(alias)
	}
	if err := atomicWrite(filepath.Join(dir, anchorsFile), data); err != nil {
		return blzerrors.Wrap(blzerrors.Io, "storage.save_anchors", err).WithAlias(alias)
	}
	return nil
}

// DeleteSource removes alias's entire source directory.
func (s *Storage) DeleteSource(alias string) error {
	if err := os.RemoveAll(s.sourceDir(alias)); err != nil {
		return blzerrors.Wrap(blzerrors.Io, "storage.delete_source", err).WithAlias(alias)
	}
	return nil
}
