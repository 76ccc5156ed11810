package searchindex

import "github.com/standardbeagle/blz/internal/model"

// docID identifies one document within a single source's index. IDs are
// never reused within a commit generation; IndexBlocks/IndexBlocksFlavored
// assigns fresh IDs on every rebuild.
type docID uint64

// document is one indexed HeadingBlock plus the stored fields a hit is
// projected from, per spec.md §4.3's field list.
type document struct {
	ID          docID
	Alias       string
	Flavor      string
	Path        string
	Lines       string
	Anchor      string
	HeadingPath []string
	Content     string

	contentTerms     []string // analyzed, stemmed, document order
	headingPathTerms []string
}

// fieldTerms returns the analyzed term sequence for field ("content" or
// "heading_path"), used both to build postings and to fall back to a raw
// substring scan for snippet extraction.
func (d *document) fieldTerms(field string) []string {
	if field == fieldHeadingPath {
		return d.headingPathTerms
	}
	return d.contentTerms
}

const (
	fieldContent     = "content"
	fieldHeadingPath = "heading_path"
)

// newDocument analyzes a HeadingBlock into an indexable document.
func newDocument(id docID, alias, flavor, path string, block model.HeadingBlock) document {
	return document{
		ID:               id,
		Alias:            alias,
		Flavor:           flavor,
		Path:             path,
		Lines:            formatLines(block.StartLine, block.EndLine),
		Anchor:           block.Anchor,
		HeadingPath:      append([]string(nil), block.Path...),
		Content:          block.Content,
		contentTerms:     defaultAnalyze(block.Content),
		headingPathTerms: defaultAnalyze(joinHeadingPath(block.Path)),
	}
}

func joinHeadingPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " > "
		}
		out += p
	}
	return out
}

func formatLines(start, end int) string {
	if start <= 0 && end <= 0 {
		return ""
	}
	return intToA(start) + "-" + intToA(end)
}

func intToA(n int) string {
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
