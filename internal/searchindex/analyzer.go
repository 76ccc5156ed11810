// Package searchindex implements blz's per-source inverted index: a
// pure-Go BM25-style document store over HeadingBlocks, with its own tiny
// boolean+phrase query language, a bounded reader pool, and a
// semaphore-gated writer pool. There is no full-text search engine anywhere
// in the retrieval pack (no tantivy/bleve/bluge equivalent), so the index
// itself is hand-written; what the pack does contribute is the analyzer
// chain's stemmer (surgebase/porter2, the same wiring the teacher's
// semantic stemmer uses) and the pool-gating idiom (golang.org/x/sync).
package searchindex

import (
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
)

// stopwords is a small, fixed English stopword list; terms in it are
// dropped before indexing and before querying so neither side scores noise.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "if": true, "in": true,
	"into": true, "is": true, "it": true, "no": true, "not": true, "of": true,
	"on": true, "or": true, "such": true, "that": true, "the": true, "their": true,
	"then": true, "there": true, "these": true, "they": true, "this": true,
	"to": true, "was": true, "will": true, "with": true,
}

// analyzerConfig controls the chain. Every caller in this package enables
// stemming, quoted phrases included (see phraseAnalyze).
type analyzerConfig struct {
	stem bool
}

// analyze runs the tokenize → lowercase → stopword → stem chain over text,
// returning tokens in document order (duplicates retained, for BM25 term
// frequency and for phrase-adjacency matching).
func analyze(text string, cfg analyzerConfig) []string {
	raw := tokenize(text)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.ToLower(tok)
		if tok == "" || stopwords[tok] {
			continue
		}
		if cfg.stem {
			tok = porter2.Stem(tok)
		}
		out = append(out, tok)
	}
	return out
}

// defaultAnalyze analyzes with stemming enabled, the configuration used for
// indexing and for unquoted query terms.
func defaultAnalyze(text string) []string {
	return analyze(text, analyzerConfig{stem: true})
}

// phraseAnalyze analyzes a quoted phrase the same way content is indexed
// (stemmed): content postings only ever store stemmed terms, so an
// unstemmed phrase term would never match. Adjacency, not surface form, is
// what distinguishes a phrase query from a bag-of-words OR.
func phraseAnalyze(text string) []string {
	return defaultAnalyze(text)
}

// tokenize splits on runs of non-letter/non-digit runes, keeping
// alphanumeric runs (including internal apostrophes/hyphens collapse to a
// split, matching simple whitespace/punctuation tokenizers elsewhere in the
// ecosystem rather than a locale-aware one, which this query language
// doesn't need).
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
