package model

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTocEntryDepthAndNormalizedPath(t *testing.T) {
	e := &TocEntry{HeadingPath: []string{"API", "Hooks", "UseState"}}
	assert.Equal(t, 3, e.Depth())
	assert.Equal(t, []string{"api", "hooks", "usestate"}, e.NormalizedHeadingPath())
}

func TestTocEntryFormatLines(t *testing.T) {
	e := &TocEntry{StartLine: 10, EndLine: 42}
	e.FormatLines()
	assert.Equal(t, "10-42", e.Lines)
}

func TestSearchHitCloneIsIndependent(t *testing.T) {
	ln := [2]int{5, 10}
	original := SearchHit{
		Alias:       "react",
		HeadingPath: []string{"Hooks"},
		LineNumbers: &ln,
	}

	clone := original.Clone()
	clone.HeadingPath[0] = "Mutated"
	*clone.LineNumbers = [2]int{0, 0}

	assert.Equal(t, "Hooks", original.HeadingPath[0])
	assert.Equal(t, [2]int{5, 10}, *original.LineNumbers)
}

func TestCloneHitsCopiesEachElement(t *testing.T) {
	hits := []SearchHit{
		{Alias: "react", HeadingPath: []string{"Hooks"}},
		{Alias: "vue", HeadingPath: []string{"Reactivity"}},
	}
	clones := CloneHits(hits)
	clones[0].HeadingPath[0] = "Mutated"

	assert.Equal(t, "Hooks", hits[0].HeadingPath[0])
	assert.Len(t, clones, 2)
}

func TestOriginKindString(t *testing.T) {
	assert.Equal(t, "registry", OriginRegistry.String())
	assert.Equal(t, "manual", OriginKind("").String())
}

func TestOriginKindMarshalText(t *testing.T) {
	text, err := OriginManifest.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "manifest", string(text))
}

func TestSourceVerifyContentMatches(t *testing.T) {
	content := []byte("hello world")
	sum := sha256.Sum256(content)
	s := &Source{Alias: "widgets", SHA256: hex.EncodeToString(sum[:])}

	assert.NoError(t, s.VerifyContent(content))
}

func TestSourceVerifyContentMismatchErrors(t *testing.T) {
	s := &Source{Alias: "widgets", SHA256: "deadbeef"}

	err := s.VerifyContent([]byte("tampered"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}
