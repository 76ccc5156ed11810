package searchindex

import (
	"encoding/json"

	blzerrors "github.com/standardbeagle/blz/internal/errors"
)

// persistedDoc is the on-disk form of one document, written under each
// source's .index/ directory so a reader can be reconstructed without
// re-parsing the source's content file.
type persistedDoc struct {
	ID          docID    `json:"id"`
	Flavor      string   `json:"flavor,omitempty"`
	Path        string   `json:"path"`
	Lines       string   `json:"lines"`
	Anchor      string   `json:"anchor"`
	HeadingPath []string `json:"heading_path"`
	Content     string   `json:"content"`
}

type persistedIndex struct {
	NextID docID          `json:"next_id"`
	Docs   []persistedDoc `json:"docs"`
}

// marshal serializes the index's committed documents.
func (ix *Index) marshal() ([]byte, error) {
	p := persistedIndex{NextID: ix.nextID, Docs: make([]persistedDoc, 0, len(ix.docs))}
	for _, d := range ix.docs {
		p.Docs = append(p.Docs, persistedDoc{
			ID: d.ID, Flavor: d.Flavor, Path: d.Path, Lines: d.Lines,
			Anchor: d.Anchor, HeadingPath: d.HeadingPath, Content: d.Content,
		})
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Serialization, "searchindex.marshal", err).WithAlias(ix.alias)
	}
	return data, nil
}

// unmarshalInto rebuilds an index's postings from persisted documents.
func unmarshalInto(alias string, data []byte) (*Index, error) {
	var p persistedIndex
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, blzerrors.Wrap(blzerrors.Parse, "searchindex.unmarshal", err).WithAlias(alias)
	}
	ix := NewIndex(alias)
	ix.nextID = p.NextID
	for _, pd := range p.Docs {
		doc := document{
			ID: pd.ID, Alias: alias, Flavor: pd.Flavor, Path: pd.Path, Lines: pd.Lines,
			Anchor: pd.Anchor, HeadingPath: pd.HeadingPath, Content: pd.Content,
			contentTerms:     defaultAnalyze(pd.Content),
			headingPathTerms: defaultAnalyze(joinHeadingPath(pd.HeadingPath)),
		}
		ix.docs[doc.ID] = &doc
		ix.content.addDocument(doc.ID, doc.contentTerms)
		ix.heading.addDocument(doc.ID, doc.headingPathTerms)
	}
	return ix, nil
}
