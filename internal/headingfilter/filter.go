// Package headingfilter implements the small Boolean expression language
// used to filter TOC listings (and, optionally, search candidates) by
// heading path: AND/OR/NOT, parentheses, quoted phrases, and implicit OR
// between adjacent terms. Grammar:
//
//	expr    := or_expr
//	or_expr := and_expr ( ('OR' | implicit) and_expr )*
//	and_expr:= unary ( 'AND' unary )*
//	unary   := 'NOT' unary | '(' expr ')' | term
//	term    := QUOTED | WORD
//
// There is no query-language library anywhere in the retrieval pack, and a
// 5-production grammar doesn't warrant a parser generator, so this is
// hand-written in the teacher's own style of writing parsers by hand
// rather than generating them.
package headingfilter

import (
	"strings"

	blzerrors "github.com/standardbeagle/blz/internal/errors"
)

// Filter is a compiled heading-filter expression, ready to evaluate against
// many heading paths.
type Filter struct {
	root node
}

// Parse compiles expr into a Filter. An empty or whitespace-only expr
// matches everything.
func Parse(expr string) (*Filter, error) {
	if strings.TrimSpace(expr) == "" {
		return &Filter{root: matchAllNode{}}, nil
	}
	p := &parser{tokens: lex(expr)}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, blzerrors.New(blzerrors.Parse, "headingfilter.parse", "unexpected trailing input").
			WithContext("expr", expr)
	}
	return &Filter{root: n}, nil
}

// Matches reports whether headingPath+anchor satisfy the filter. Per
// spec.md §4.6, terms are matched (case-insensitively) against
// join(heading_path, " ") + " " + anchor.
func (f *Filter) Matches(headingPath []string, anchor string) bool {
	haystack := strings.ToLower(strings.Join(headingPath, " ") + " " + anchor)
	return f.root.eval(haystack)
}

type node interface {
	eval(haystack string) bool
}

type matchAllNode struct{}

func (matchAllNode) eval(string) bool { return true }

type termNode struct{ text string } // already lowercased

func (t termNode) eval(haystack string) bool {
	return strings.Contains(haystack, t.text)
}

type notNode struct{ child node }

func (n notNode) eval(haystack string) bool { return !n.child.eval(haystack) }

type andNode struct{ children []node }

func (n andNode) eval(haystack string) bool {
	for _, c := range n.children {
		if !c.eval(haystack) {
			return false
		}
	}
	return true
}

type orNode struct{ children []node }

func (n orNode) eval(haystack string) bool {
	for _, c := range n.children {
		if c.eval(haystack) {
			return true
		}
	}
	return false
}
