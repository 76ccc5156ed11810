// Package parser turns a raw llms.txt/llms-full.txt document into a
// table-of-contents tree, an ordered list of indexable HeadingBlocks, a
// LineIndex, and a diagnostics list. Markdown headings are a regular
// grammar (ATX "# text", Setext "text\n===="), so unlike the teacher's
// tree-sitter-backed source-code parser (internal/parser/parser.go in the
// teacher tree, one grammar per language) blz uses a single hand-written
// line scanner — there is no Markdown grammar among the pack's tree-sitter
// dependencies to reuse, and a 6-production heading grammar does not
// warrant one.
package parser

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/blz/internal/model"
	"github.com/standardbeagle/blz/internal/pool"
)

var (
	atxHeadingRe   = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	tooDeepRe      = regexp.MustCompile(`^(#{7,})(\s+.*)?$`)
	setextH1Re     = regexp.MustCompile(`^=+\s*$`)
	setextH2Re     = regexp.MustCompile(`^-+\s*$`)
	fenceRe        = regexp.MustCompile("^( {0,3})(`{3,}|~{3,})")
	whitespaceRunRe = regexp.MustCompile(`\s+`)
	nonAlnumRunRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// lineAllocator pools the []string slices Parse allocates for splitting a
// document into lines, matching the teacher's slab-allocator idiom for
// hot-path buffer reuse (internal/pool's LineTierConfigs).
var lineAllocator = pool.NewLineAllocator[string]()

// heading is the working-set representation of one open/closed heading
// while the scanner walks the document; it carries what TocEntry needs
// plus the scanner-only Level field.
type heading struct {
	node  *model.TocEntry
	level int
}

// Parse parses a complete Markdown document into a TOC tree, heading
// blocks, a line index, and diagnostics. It never fails: malformed input
// degrades to diagnostics, never an error return, matching spec.md §4.2.
func Parse(text string) model.ParseResult {
	lines := splitLines(text)
	defer lineAllocator.Put(lines)

	totalLines := len(lines)
	var diagnostics []model.Diagnostic

	var stack []*heading
	var roots []*model.TocEntry
	anchorSeen := make(map[string]int)
	anchorCollisions := make(map[string]bool)

	inFence := false
	var fenceChar byte
	var fenceLen int

	closeHeading := func(h *heading, endLine int) {
		h.node.EndLine = endLine
		h.node.FormatLines()
	}

	pushHeading := func(level int, text string, lineNo int) {
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			closeHeading(top, lineNo-1)
		}

		var path []string
		if len(stack) > 0 {
			path = append(append([]string(nil), stack[len(stack)-1].node.HeadingPath...), text)
		} else {
			path = []string{text}
		}

		anchor := slugify(text)
		if anchor == "" {
			anchor = "section"
		}
		anchorSeen[anchor]++
		if anchorSeen[anchor] > 1 {
			anchorCollisions[anchor] = true
			anchor = anchor + "-" + itoa(anchorSeen[anchor])
		}

		node := &model.TocEntry{
			HeadingPath: path,
			Anchor:      anchor,
			StartLine:   lineNo,
		}
		h := &heading{node: node, level: level}

		if len(stack) > 0 {
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
		stack = append(stack, h)
	}

	for i := 0; i < totalLines; i++ {
		lineNo := i + 1
		line := lines[i]

		if m := fenceRe.FindStringSubmatch(line); m != nil {
			char, length := m[2][0], len(m[2])
			if !inFence {
				inFence, fenceChar, fenceLen = true, char, length
			} else if char == fenceChar && length >= fenceLen {
				inFence = false
			}
			continue
		}
		if inFence {
			continue
		}

		if m := tooDeepRe.FindStringSubmatch(line); m != nil {
			diagnostics = append(diagnostics, model.Diagnostic{
				Kind: model.DiagHeadingTooDeep, Line: lineNo,
				Message: "heading marker exceeds level 6",
			})
			continue
		}

		if m := atxHeadingRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			text := normalizeHeadingText(m[2])
			if text == "" {
				diagnostics = append(diagnostics, model.Diagnostic{
					Kind: model.DiagEmptyHeading, Line: lineNo, Message: "heading has no text",
				})
			}
			pushHeading(level, text, lineNo)
			continue
		}

		if i > 0 && setextH1Re.MatchString(line) {
			if prev, ok := previousNonBlank(lines, i); ok {
				pushHeading(1, normalizeHeadingText(lines[prev]), prev+1)
				continue
			}
		}
		if i > 0 && setextH2Re.MatchString(line) {
			if prev, ok := previousNonBlank(lines, i); ok {
				pushHeading(2, normalizeHeadingText(lines[prev]), prev+1)
				continue
			}
		}
	}

	if inFence {
		diagnostics = append(diagnostics, model.Diagnostic{
			Kind: model.DiagUnbalancedFence, Line: totalLines, Message: "unterminated fenced code block",
		})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		closeHeading(top, totalLines)
	}
	for anchor := range anchorCollisions {
		diagnostics = append(diagnostics, model.Diagnostic{
			Kind: model.DiagDuplicateAnchor, Line: 0,
			Message: "duplicate anchor before uniqueing: " + anchor,
		})
	}

	if len(roots) == 0 {
		root := &model.TocEntry{StartLine: 1, EndLine: totalLines, Anchor: ""}
		root.FormatLines()
		roots = []*model.TocEntry{root}
	}

	blocks := buildBlocks(lines, roots)

	return model.ParseResult{
		Toc:         roots,
		Blocks:      blocks,
		LineIndex:   model.LineIndex{TotalLines: totalLines, ByteOffsets: false},
		Diagnostics: diagnostics,
	}
}

// splitLines splits text into 1-based lines, stripping a trailing "\r"
// from each returned line so CRLF and LF documents split the same way
// (storage keeps the original CRLF bytes by operating on the raw text, not
// on this split).
func splitLines(text string) []string {
	if text == "" {
		return lineAllocator.Get(0)
	}
	raw := strings.Split(text, "\n")
	// A trailing "\n" produces one trailing empty element from Split that
	// is not a line of the document; a file with no final newline keeps
	// its last (non-empty) element as a real line.
	if len(raw) > 0 && raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}
	lines := lineAllocator.Get(len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimSuffix(l, "\r"))
	}
	return lines
}

// previousNonBlank returns the line directly above a Setext underline, if
// that line holds text. A blank line directly above means there is no
// heading to associate the underline with.
func previousNonBlank(lines []string, before int) (int, bool) {
	if before-1 < 0 {
		return 0, false
	}
	i := before - 1
	if strings.TrimSpace(lines[i]) == "" {
		return 0, false
	}
	return i, true
}

// normalizeHeadingText trims and collapses internal whitespace. The spec
// asks for a normalized lowercase form used only for matching; that form is
// derived on demand (NormalizedHeadingPath), so the value stored on the
// node is the trimmed/collapsed display form.
func normalizeHeadingText(s string) string {
	return strings.Join(strings.Fields(whitespaceRunRe.ReplaceAllString(s, " ")), " ")
}

// slugify builds the anchor slug: lowercase, non-alphanumeric runs to '-',
// trimmed of leading/trailing '-'.
func slugify(s string) string {
	lower := strings.ToLower(s)
	slug := nonAlnumRunRe.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
