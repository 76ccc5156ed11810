package model

import (
	"fmt"
	"strings"
)

// TocEntry is one node of the ordered table-of-contents tree produced by
// the parser. HeadingPath is the display form (original casing); the
// normalized form used for matching is derived on demand by
// NormalizedHeadingPath, not stored, since it is cheap to recompute and
// storing both would let them drift.
type TocEntry struct {
	HeadingPath []string    `json:"heading_path"`
	Lines       string      `json:"lines"` // "start-end", inclusive, 1-based
	Anchor      string      `json:"anchor"`
	Children    []*TocEntry `json:"children,omitempty"`

	// StartLine/EndLine are the numeric form of Lines, set by the parser so
	// its callers need not re-parse the "start-end" string. They are not
	// serialized: an entry loaded from llms.json carries only Lines.
	StartLine int `json:"-"`
	EndLine   int `json:"-"`
}

// Depth returns the node's depth, equal to len(HeadingPath).
func (t *TocEntry) Depth() int {
	return len(t.HeadingPath)
}

// NormalizedHeadingPath returns HeadingPath lowercased, for case-insensitive
// heading-path matching (the heading filter and anchor lookups use this
// instead of storing a second, duplicate path on every node).
func (t *TocEntry) NormalizedHeadingPath() []string {
	out := make([]string, len(t.HeadingPath))
	for i, p := range t.HeadingPath {
		out[i] = strings.ToLower(p)
	}
	return out
}

// FormatLines renders StartLine/EndLine into the canonical "start-end" form
// and stores it on Lines.
func (t *TocEntry) FormatLines() {
	t.Lines = fmt.Sprintf("%d-%d", t.StartLine, t.EndLine)
}

// HeadingBlock is the indexable unit emitted by the parser: the text owned
// by one TOC node, excluding any descendant's text (see DESIGN.md's Open
// Question resolution).
type HeadingBlock struct {
	Path      []string `json:"path"`
	Content   string   `json:"content"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	Anchor    string   `json:"anchor"`
}

// LineIndex records total_lines for the stored content and whether byte
// offsets are retained alongside line numbers.
type LineIndex struct {
	TotalLines  int  `json:"total_lines"`
	ByteOffsets bool `json:"byte_offsets"`
}

// DiagnosticKind tags a parser diagnostic.
type DiagnosticKind string

const (
	DiagDuplicateAnchor DiagnosticKind = "duplicate_anchor"
	DiagUnbalancedFence DiagnosticKind = "unbalanced_fence"
	DiagHeadingTooDeep  DiagnosticKind = "heading_above_level_6"
	DiagEmptyHeading    DiagnosticKind = "empty_heading"
)

// Diagnostic is a non-fatal parser observation attached to a source's
// metadata; diagnostics never fail parsing.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Line    int            `json:"line"`
	Message string         `json:"message"`
}

// ParseResult is everything parser.Parse produces for one document.
type ParseResult struct {
	Toc         []*TocEntry    `json:"toc"`
	Blocks      []HeadingBlock `json:"blocks"`
	LineIndex   LineIndex      `json:"line_index"`
	Diagnostics []Diagnostic   `json:"diagnostics"`
}
