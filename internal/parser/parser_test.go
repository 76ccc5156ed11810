package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/blz/internal/model"
)

func TestParseSmoke(t *testing.T) {
	result := Parse("# A\nintro\n## B\nbody\n### C\ndeep\n")

	require.Empty(t, result.Diagnostics)
	assert.Equal(t, 6, result.LineIndex.TotalLines)

	require.Len(t, result.Toc, 1)
	a := result.Toc[0]
	assert.Equal(t, []string{"A"}, a.HeadingPath)
	assert.Equal(t, "1-6", a.Lines)

	require.Len(t, a.Children, 1)
	b := a.Children[0]
	assert.Equal(t, []string{"A", "B"}, b.HeadingPath)
	assert.Equal(t, "3-6", b.Lines)

	require.Len(t, b.Children, 1)
	c := b.Children[0]
	assert.Equal(t, []string{"A", "B", "C"}, c.HeadingPath)
	assert.Equal(t, "5-6", c.Lines)

	require.Len(t, result.Blocks, 3)
	assert.Equal(t, "intro", result.Blocks[0].Content)
	assert.Equal(t, "body", result.Blocks[1].Content)
	assert.Equal(t, "deep", result.Blocks[2].Content)
}

func TestParseNoHeadings(t *testing.T) {
	result := Parse("just a paragraph\nwith two lines\n")

	require.Len(t, result.Toc, 1)
	root := result.Toc[0]
	assert.Empty(t, root.HeadingPath)
	assert.Equal(t, "1-2", root.Lines)

	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "just a paragraph\nwith two lines", result.Blocks[0].Content)
}

func TestParseAnchorCollision(t *testing.T) {
	result := Parse("# Intro\ntext one\n# Intro\ntext two\n")

	require.Len(t, result.Toc, 2)
	assert.Equal(t, "intro", result.Toc[0].Anchor)
	assert.Equal(t, "intro-2", result.Toc[1].Anchor)

	var dupDiags int
	for _, d := range result.Diagnostics {
		if d.Kind == model.DiagDuplicateAnchor {
			dupDiags++
		}
	}
	assert.Equal(t, 1, dupDiags)
}

func TestParseFencedCodeSuppressesHeadings(t *testing.T) {
	result := Parse("# Real\n```\n# not a heading\n```\nbody\n")

	require.Len(t, result.Toc, 1)
	assert.Equal(t, []string{"Real"}, result.Toc[0].HeadingPath)
	assert.Contains(t, result.Blocks[0].Content, "# not a heading")
}

func TestParseUnbalancedFence(t *testing.T) {
	result := Parse("# A\n```\ncode without a closing fence\n")

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, model.DiagUnbalancedFence, result.Diagnostics[0].Kind)
}

func TestParseHeadingTooDeep(t *testing.T) {
	result := Parse("# A\n####### too deep\nbody\n")

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, model.DiagHeadingTooDeep, result.Diagnostics[0].Kind)
	// the too-deep marker line is treated as plain text, not a heading
	assert.Contains(t, result.Blocks[0].Content, "####### too deep")
}

func TestParseEmptyHeading(t *testing.T) {
	result := Parse("# \nbody\n")

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, model.DiagEmptyHeading, result.Diagnostics[0].Kind)
	assert.Equal(t, "section", result.Toc[0].Anchor)
}

func TestParseSetextHeadings(t *testing.T) {
	result := Parse("Title\n=====\nintro\nSubtitle\n--------\nbody\n")

	require.Len(t, result.Toc, 1)
	assert.Equal(t, []string{"Title"}, result.Toc[0].HeadingPath)
	require.Len(t, result.Toc[0].Children, 1)
	assert.Equal(t, []string{"Title", "Subtitle"}, result.Toc[0].Children[0].HeadingPath)
}

func TestParseInvariantLineRanges(t *testing.T) {
	result := Parse("# A\n## B\ntext\n# C\nmore\n")

	var check func(nodes []*model.TocEntry)
	check = func(nodes []*model.TocEntry) {
		for _, n := range nodes {
			assert.LessOrEqual(t, n.StartLine, n.EndLine)
			assert.LessOrEqual(t, n.EndLine, result.LineIndex.TotalLines)
			for _, child := range n.Children {
				assert.GreaterOrEqual(t, child.StartLine, n.StartLine)
				assert.LessOrEqual(t, child.EndLine, n.EndLine)
			}
			check(n.Children)
		}
	}
	check(result.Toc)
}
