package searchindex

import (
	"sort"
	"strconv"
	"strings"

	blzerrors "github.com/standardbeagle/blz/internal/errors"
	"github.com/standardbeagle/blz/internal/model"
)

// Index is one source's persistent inverted index: every HeadingBlock ever
// committed, plus content/heading_path postings built from them. A single
// Index is read by many concurrent searches and written by at most one
// writer at a time; callers coordinate that through ReaderPool/WriterPool,
// not through Index itself.
type Index struct {
	alias string

	docs    map[docID]*document
	content *fieldIndex
	heading *fieldIndex
	nextID  docID
}

// NewIndex returns an empty index for alias.
func NewIndex(alias string) *Index {
	return &Index{
		alias:   alias,
		docs:    make(map[docID]*document),
		content: newFieldIndex(),
		heading: newFieldIndex(),
	}
}

// IndexBlocks replaces every document previously indexed for alias (with no
// flavor) with one document per block, in input order, per spec.md §4.3's
// build contract. It rebuilds in a staging copy and only swaps it in once
// every block has analyzed successfully, so a parse failure mid-build
// leaves the prior committed index untouched.
func (ix *Index) IndexBlocks(path string, blocks []model.HeadingBlock) error {
	return ix.indexBlocks(path, "", blocks)
}

// IndexBlocksFlavored is IndexBlocks scoped to (alias, flavor): only prior
// documents matching both alias and flavor are replaced.
func (ix *Index) IndexBlocksFlavored(flavor, path string, blocks []model.HeadingBlock) error {
	if flavor == "" {
		return blzerrors.New(blzerrors.Index, "searchindex.index_blocks_flavored", "flavor must be non-empty")
	}
	return ix.indexBlocks(path, flavor, blocks)
}

func (ix *Index) indexBlocks(path, flavor string, blocks []model.HeadingBlock) error {
	staging := &Index{
		alias:   ix.alias,
		docs:    make(map[docID]*document, len(ix.docs)+len(blocks)),
		content: newFieldIndex(),
		heading: newFieldIndex(),
		nextID:  ix.nextID,
	}

	// index_blocks (flavor=="") rebuilds the whole alias-scoped index;
	// index_blocks_flavored only supersedes documents carrying that flavor,
	// so other flavors' documents survive the commit.
	if flavor != "" {
		for _, d := range ix.docs {
			if d.Flavor == flavor {
				continue // superseded: dropped from the staged copy
			}
			staging.addDocumentLocked(*d)
		}
	}

	for _, block := range blocks {
		id := staging.nextID
		staging.nextID++
		doc := newDocument(id, ix.alias, flavor, path, block)
		staging.docs[id] = &doc
		staging.content.addDocument(id, doc.contentTerms)
		staging.heading.addDocument(id, doc.headingPathTerms)
	}

	// commit: swap staged state in. Mid-build failures above never reach
	// here, so this assignment is the only mutation of ix's committed state.
	ix.docs = staging.docs
	ix.content = staging.content
	ix.heading = staging.heading
	ix.nextID = staging.nextID
	return nil
}

// addDocumentLocked re-inserts an already-analyzed document into a staging
// index being rebuilt, reusing its previously computed analyzed terms.
func (ix *Index) addDocumentLocked(doc document) {
	ix.docs[doc.ID] = &doc
	ix.content.addDocument(doc.ID, doc.contentTerms)
	ix.heading.addDocument(doc.ID, doc.headingPathTerms)
}

// DocCount returns the number of documents currently committed.
func (ix *Index) DocCount() int { return len(ix.docs) }

// SearchOptions configures one Search call.
type SearchOptions struct {
	Query        string
	FlavorFilter []string // non-empty means "any of these flavors"
	Limit        int
	HeadingsOnly bool // restrict scoring to heading_path only
}

// Search executes query against this index per spec.md §4.3's query
// contract, returning up to opts.Limit hits sorted by score descending,
// then by (path, lines) for a deterministic tie-break.
func (ix *Index) Search(opts SearchOptions) ([]model.SearchHit, error) {
	node, err := parseQuery(opts.Query)
	if err != nil {
		return nil, err
	}

	fields := []string{fieldContent, fieldHeadingPath}
	if opts.HeadingsOnly {
		fields = []string{fieldHeadingPath}
	}

	scores := make(map[docID]float64)
	for _, field := range fields {
		fi := ix.fieldFor(field)
		matched, fieldScores := evaluate(node, fi)
		if !opts.HeadingsOnly {
			_ = matched // boolean membership already folded into fieldScores
		}
		for id, s := range fieldScores {
			scores[id] += s
		}
	}

	type scored struct {
		doc   *document
		score float64
	}
	var hits []scored
	for id, score := range scores {
		doc, ok := ix.docs[id]
		if !ok {
			continue
		}
		if !flavorMatches(doc.Flavor, opts.FlavorFilter) {
			continue
		}
		hits = append(hits, scored{doc: doc, score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if hits[i].doc.Path != hits[j].doc.Path {
			return hits[i].doc.Path < hits[j].doc.Path
		}
		return hits[i].doc.Lines < hits[j].doc.Lines
	})

	limit := opts.Limit
	if limit <= 0 || limit > len(hits) {
		limit = len(hits)
	}
	out := make([]model.SearchHit, 0, limit)
	for _, h := range hits[:limit] {
		out = append(out, ix.projectHit(h.doc, float32(h.score), opts.Query))
	}
	return out, nil
}

func (ix *Index) fieldFor(field string) *fieldIndex {
	if field == fieldHeadingPath {
		return ix.heading
	}
	return ix.content
}

// flavorMatches implements the flavor disjunction filter: an empty filter
// matches everything; otherwise the document's flavor must be one of the
// listed, normalized values.
func flavorMatches(docFlavor string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if strings.EqualFold(docFlavor, f) {
			return true
		}
	}
	return false
}

// projectHit builds the SearchHit, applying the snippet policy from
// spec.md §4.3: ~50 chars either side of the first match, UTF-8-safe,
// "..." truncation markers, falling back to the first ~100 chars when the
// query only matched heading_path.
func (ix *Index) projectHit(doc *document, score float32, query string) model.SearchHit {
	return model.SearchHit{
		Alias:       doc.Alias,
		Path:        doc.Path,
		HeadingPath: append([]string(nil), doc.HeadingPath...),
		Lines:       doc.Lines,
		LineNumbers: parseLineNumbers(doc.Lines),
		Snippet:     snippet(doc.Content, query),
		Score:       score,
		Anchor:      doc.Anchor,
	}
}

// parseLineNumbers parses a "start-end" string into the numeric pair
// SearchHit.LineNumbers mirrors (spec.md §8 invariant 2); malformed input
// (never produced by the writer, but guarded against) yields nil rather
// than a misleading zero pair.
func parseLineNumbers(lines string) *[2]int {
	start, end, ok := strings.Cut(lines, "-")
	if !ok {
		return nil
	}
	s, err := strconv.Atoi(start)
	if err != nil {
		return nil
	}
	e, err := strconv.Atoi(end)
	if err != nil {
		return nil
	}
	return &[2]int{s, e}
}

// evaluate walks the query AST over one field's postings, returning the set
// of matching docIDs and a per-doc score. Boolean combination rules:
//   - OR unions children's matches, summing scores for docs matched by more
//     than one child.
//   - AND intersects the positive (non-NOT) children's matches, then drops
//     any doc forbidden by a NOT child; an AND with no positive child
//     matches nothing.
//   - A standalone NOT outside an AND (e.g. under OR, or at top level) is
//     evaluated against the full document set of the field: "NOT x" alone
//     means "every document not matching x".
func evaluate(node queryNode, fi *fieldIndex) (map[docID]bool, map[docID]float64) {
	switch n := node.(type) {
	case termNode:
		var matches []docID
		if len(n.phrase) > 1 {
			matches = fi.phraseMatches(n.phrase)
		} else if len(n.phrase) == 1 {
			matches = fi.matchingDocs(n.phrase[0])
		}
		included := make(map[docID]bool, len(matches))
		scores := make(map[docID]float64, len(matches))
		for _, id := range matches {
			included[id] = true
			sum := 0.0
			for _, term := range n.phrase {
				sum += bm25Score(fi, term, id)
			}
			scores[id] = sum
		}
		return included, scores

	case notNode:
		childIncluded, _ := evaluate(n.child, fi)
		included := make(map[docID]bool)
		scores := make(map[docID]float64)
		for id := range fi.docLength {
			if !childIncluded[id] {
				included[id] = true
				scores[id] = 0 // NOT never contributes a positive score itself
			}
		}
		return included, scores

	case boolNode:
		if n.op == "OR" {
			included := make(map[docID]bool)
			scores := make(map[docID]float64)
			for _, child := range n.children {
				ci, cs := evaluate(child, fi)
				for id := range ci {
					included[id] = true
				}
				for id, s := range cs {
					scores[id] += s
				}
			}
			return included, scores
		}

		// AND
		var positive []map[docID]bool
		var positiveScores []map[docID]float64
		forbidden := make(map[docID]bool)
		for _, child := range n.children {
			if _, isNot := child.(notNode); isNot {
				ci, _ := evaluate(childNotTarget(child), fi)
				for id := range ci {
					forbidden[id] = true
				}
				continue
			}
			ci, cs := evaluate(child, fi)
			positive = append(positive, ci)
			positiveScores = append(positiveScores, cs)
		}
		if len(positive) == 0 {
			return make(map[docID]bool), make(map[docID]float64)
		}
		included := make(map[docID]bool)
		scores := make(map[docID]float64)
		for id := range positive[0] {
			if forbidden[id] {
				continue
			}
			inAll := true
			total := positiveScores[0][id]
			for i := 1; i < len(positive); i++ {
				if !positive[i][id] {
					inAll = false
					break
				}
				total += positiveScores[i][id]
			}
			if inAll {
				included[id] = true
				scores[id] = total
			}
		}
		return included, scores

	default:
		return make(map[docID]bool), make(map[docID]float64)
	}
}

// childNotTarget extracts the negated child from a notNode without
// re-evaluating it through the NOT-as-complement path, so AND can compute
// the forbidden set directly from what the NOT wraps.
func childNotTarget(n queryNode) queryNode {
	return n.(notNode).child
}
