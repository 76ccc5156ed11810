package parser

import (
	"strings"

	"github.com/standardbeagle/blz/internal/model"
)

// buildBlocks walks the TOC tree in document order, turning each node into a
// HeadingBlock whose Content holds only that node's own text, excluding any
// descendant's range. This is the "own paragraphs" policy: a parent section
// that is mostly subheadings yields a short or empty block, and the text
// under each subheading is indexed once, under its own heading only.
func buildBlocks(lines []string, roots []*model.TocEntry) []model.HeadingBlock {
	var blocks []model.HeadingBlock
	var walk func(node *model.TocEntry)
	walk = func(node *model.TocEntry) {
		blocks = append(blocks, model.HeadingBlock{
			Path:      append([]string(nil), node.HeadingPath...),
			Content:   ownContent(lines, node),
			StartLine: node.StartLine,
			EndLine:   node.EndLine,
			Anchor:    node.Anchor,
		})
		for _, child := range node.Children {
			walk(child)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return blocks
}

// ownContent joins the lines in node's range that are not covered by any
// child's range, so descendant text is excluded from the parent's block.
// A real heading's own line (the "# text" line itself) is never content;
// the synthetic no-heading root has no such line and includes everything.
func ownContent(lines []string, node *model.TocEntry) string {
	if node.StartLine > node.EndLine {
		return ""
	}
	contentStart := node.StartLine
	if len(node.HeadingPath) > 0 {
		contentStart++
	}
	if contentStart > node.EndLine {
		return ""
	}
	covered := make([]bool, node.EndLine-contentStart+2)
	mark := func(start, end int) {
		for l := start; l <= end; l++ {
			if idx := l - contentStart; idx >= 0 && idx < len(covered) {
				covered[idx] = true
			}
		}
	}
	for _, child := range node.Children {
		mark(child.StartLine, child.EndLine)
	}

	var b strings.Builder
	prevWritten := false
	for l := contentStart; l <= node.EndLine; l++ {
		if l-1 < 0 || l-1 >= len(lines) {
			continue
		}
		if covered[l-contentStart] {
			continue
		}
		if prevWritten {
			b.WriteByte('\n')
		}
		b.WriteString(lines[l-1])
		prevWritten = true
	}
	return strings.TrimRight(b.String(), "\n")
}
