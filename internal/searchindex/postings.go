package searchindex

// posting records one document's occurrences of a term within a field, in
// document order, so phrase queries can check adjacency.
type posting struct {
	doc       docID
	positions []int
}

// fieldIndex is one field's postings plus the per-document length needed
// for BM25's length-normalization term.
type fieldIndex struct {
	postings  map[string][]posting // term -> postings, docID-ascending
	docLength map[docID]int
	totalLen  int64
	docCount  int
}

func newFieldIndex() *fieldIndex {
	return &fieldIndex{
		postings:  make(map[string][]posting),
		docLength: make(map[docID]int),
	}
}

func (f *fieldIndex) addDocument(id docID, terms []string) {
	if len(terms) == 0 {
		f.docLength[id] = 0
		f.docCount++
		return
	}
	positions := make(map[string][]int, len(terms))
	for i, t := range terms {
		positions[t] = append(positions[t], i)
	}
	for term, pos := range positions {
		f.postings[term] = append(f.postings[term], posting{doc: id, positions: pos})
	}
	f.docLength[id] = len(terms)
	f.totalLen += int64(len(terms))
	f.docCount++
}

func (f *fieldIndex) avgDocLength() float64 {
	if f.docCount == 0 {
		return 0
	}
	return float64(f.totalLen) / float64(f.docCount)
}

// docFreq returns the number of documents containing term, i.e. len of its
// postings list.
func (f *fieldIndex) docFreq(term string) int {
	return len(f.postings[term])
}

// termFreq returns how many times term occurs in doc.
func (f *fieldIndex) termFreq(term string, doc docID) int {
	for _, p := range f.postings[term] {
		if p.doc == doc {
			return len(p.positions)
		}
	}
	return 0
}

// matchingDocs returns every docID containing term.
func (f *fieldIndex) matchingDocs(term string) []docID {
	postings := f.postings[term]
	out := make([]docID, len(postings))
	for i, p := range postings {
		out[i] = p.doc
	}
	return out
}

// phraseMatches returns the docIDs where terms occur as a contiguous,
// in-order run (simple adjacency check over each term's position list).
func (f *fieldIndex) phraseMatches(terms []string) []docID {
	if len(terms) == 0 {
		return nil
	}
	if len(terms) == 1 {
		return f.matchingDocs(terms[0])
	}
	firstPostings := f.postings[terms[0]]
	var out []docID
	for _, fp := range firstPostings {
		for _, start := range fp.positions {
			if f.hasPhraseAt(terms, fp.doc, start) {
				out = append(out, fp.doc)
				break
			}
		}
	}
	return out
}

func (f *fieldIndex) hasPhraseAt(terms []string, doc docID, start int) bool {
	for offset := 1; offset < len(terms); offset++ {
		want := start + offset
		found := false
		for _, p := range f.postings[terms[offset]] {
			if p.doc != doc {
				continue
			}
			for _, pos := range p.positions {
				if pos == want {
					found = true
					break
				}
			}
			break
		}
		if !found {
			return false
		}
	}
	return true
}
