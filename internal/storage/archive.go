package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	blzerrors "github.com/standardbeagle/blz/internal/errors"
)

// ArchiveCurrent copies alias's current content + metadata + anchors into
// archive/<unix-nano-timestamp>/ before a new version overwrites them, then
// prunes the oldest archives beyond maxArchives. A zero/negative
// maxArchives disables pruning.
func (s *Storage) ArchiveCurrent(alias string) error {
	return s.archiveAt(alias, time.Now().UnixNano())
}

func (s *Storage) archiveAt(alias string, now int64) error {
	srcDir := s.sourceDir(alias)
	dstDir := filepath.Join(srcDir, archiveDirName, strconv.FormatInt(now, 10))

	files := []string{contentFileLlms, contentFileLlmsFull, metadataFile, anchorsFile}
	copied := false
	for _, name := range files {
		srcPath := filepath.Join(srcDir, name)
		if _, err := os.Stat(srcPath); err != nil {
			continue
		}
		if !copied {
			if err := os.MkdirAll(dstDir, 0o755); err != nil {
				return blzerrors.Wrap(blzerrors.Io, "storage.archive_current", err).WithAlias(alias)
			}
			copied = true
		}
		if err := copyFile(srcPath, filepath.Join(dstDir, name)); err != nil {
			return blzerrors.Wrap(blzerrors.Io, "storage.archive_current", err).WithAlias(alias)
		}
	}
	if !copied {
		return nil // nothing to archive yet, e.g. first sync of a new source
	}
	return s.pruneArchives(alias)
}

// pruneArchives deletes the oldest archive directories beyond maxArchives,
// ordered by directory name (the unix-nano timestamp sorts lexicographically
// the same as numerically for same-width values, so a plain string sort is
// sufficient here).
func (s *Storage) pruneArchives(alias string) error {
	if s.maxArchives <= 0 {
		return nil
	}
	archiveRoot := filepath.Join(s.sourceDir(alias), archiveDirName)
	entries, err := os.ReadDir(archiveRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return blzerrors.Wrap(blzerrors.Io, "storage.prune_archives", err).WithAlias(alias)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) <= s.maxArchives {
		return nil
	}
	for _, name := range names[:len(names)-s.maxArchives] {
		if err := os.RemoveAll(filepath.Join(archiveRoot, name)); err != nil {
			return blzerrors.Wrap(blzerrors.Io, "storage.prune_archives", err).WithAlias(alias)
		}
	}
	return nil
}

// ListArchives returns alias's archive timestamps, oldest first.
func (s *Storage) ListArchives(alias string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.sourceDir(alias), archiveDirName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Io, "storage.list_archives", err).WithAlias(alias)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
