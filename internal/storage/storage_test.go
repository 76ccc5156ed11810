package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/blz/internal/model"
)

func newTestStorage(t *testing.T, maxArchives int) *Storage {
	t.Helper()
	s, err := Open(t.TempDir(), maxArchives)
	require.NoError(t, err)
	return s
}

func TestSaveLoadContentRoundTrip(t *testing.T) {
	s := newTestStorage(t, 0)
	require.NoError(t, s.SaveContent("react", model.VariantLlms, "# React\nhooks\n"))

	text, err := s.LoadContent("react", model.VariantLlms, "")
	require.NoError(t, err)
	assert.Equal(t, "# React\nhooks\n", text)
}

func TestLoadContentChecksumMismatch(t *testing.T) {
	s := newTestStorage(t, 0)
	require.NoError(t, s.SaveContent("react", model.VariantLlms, "content"))

	_, err := s.LoadContent("react", model.VariantLlms, "deadbeef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestLoadContentMissingIsNotFound(t *testing.T) {
	s := newTestStorage(t, 0)
	_, err := s.LoadContent("missing", model.VariantLlms, "")
	require.Error(t, err)
}

func TestSaveLoadMetadataRoundTrip(t *testing.T) {
	s := newTestStorage(t, 0)
	meta := &model.LlmsJson{
		Source: model.Source{Alias: "react", URL: "https://react.dev/llms.txt"},
		LineIndex: model.LineIndex{TotalLines: 10},
	}
	require.NoError(t, s.SaveMetadata("react", meta))

	loaded, err := s.LoadMetadata("react")
	require.NoError(t, err)
	assert.Equal(t, "react", loaded.Source.Alias)
	assert.Equal(t, 10, loaded.LineIndex.TotalLines)
}

func TestListSourcesLexicographic(t *testing.T) {
	s := newTestStorage(t, 0)
	require.NoError(t, s.SaveContent("vue", model.VariantLlms, "v"))
	require.NoError(t, s.SaveContent("angular", model.VariantLlms, "a"))
	require.NoError(t, s.SaveContent("react", model.VariantLlms, "r"))

	aliases, err := s.ListSources()
	require.NoError(t, err)
	assert.Equal(t, []string{"angular", "react", "vue"}, aliases)
}

func TestLoadAnchorsMissingReturnsEmpty(t *testing.T) {
	s := newTestStorage(t, 0)
	anchors, err := s.LoadAnchors("react")
	require.NoError(t, err)
	assert.Empty(t, anchors.Mappings)
}

func TestArchiveCurrentAndPrune(t *testing.T) {
	s := newTestStorage(t, 2)
	require.NoError(t, s.SaveContent("react", model.VariantLlms, "v1"))
	require.NoError(t, s.SaveMetadata("react", &model.LlmsJson{Source: model.Source{Alias: "react"}}))

	require.NoError(t, s.archiveAt("react", 1))
	require.NoError(t, s.SaveContent("react", model.VariantLlms, "v2"))
	require.NoError(t, s.archiveAt("react", 2))
	require.NoError(t, s.SaveContent("react", model.VariantLlms, "v3"))
	require.NoError(t, s.archiveAt("react", 3))

	archives, err := s.ListArchives("react")
	require.NoError(t, err)
	assert.Len(t, archives, 2, "oldest archive should have been pruned")
	assert.Equal(t, []string{"2", "3"}, archives)
}

func TestArchiveCurrentNoopWhenNothingStoredYet(t *testing.T) {
	s := newTestStorage(t, 5)
	require.NoError(t, s.ArchiveCurrent("brandnew"))

	_, err := os.Stat(filepath.Join(s.sourceDir("brandnew"), archiveDirName))
	assert.Error(t, err, "no archive directory should be created when there was nothing to archive")
}

func TestIndexDirCreatesDirectory(t *testing.T) {
	s := newTestStorage(t, 0)
	dir, err := s.IndexDir("react")
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDeleteSourceRemovesEverything(t *testing.T) {
	s := newTestStorage(t, 0)
	require.NoError(t, s.SaveContent("react", model.VariantLlms, "v1"))
	require.NoError(t, s.DeleteSource("react"))
	assert.False(t, s.Exists("react"))
}

func TestSaveAnchorsSetsUpdatedAt(t *testing.T) {
	s := newTestStorage(t, 0)
	before := time.Now()
	require.NoError(t, s.SaveAnchors("react", &model.AnchorsMap{}))

	loaded, err := s.LoadAnchors("react")
	require.NoError(t, err)
	assert.True(t, !loaded.UpdatedAt.Before(before))
}
