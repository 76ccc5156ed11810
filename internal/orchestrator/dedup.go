package orchestrator

import (
	"sort"
	"strings"

	"github.com/standardbeagle/blz/internal/model"
)

// dedupHits implements step 6: merge every source's hits and deduplicate by
// (alias, lines, heading_path), keeping the higher-scoring of any two
// duplicates (the same block can be returned twice when a query matches it
// through more than one analyzed field path).
func dedupHits(perSource []perSourceResult) []model.SearchHit {
	seen := make(map[string]int, 64) // dedup key -> index into out
	var out []model.SearchHit
	for _, src := range perSource {
		for _, hit := range src.hits {
			key := dedupKey(hit)
			if idx, ok := seen[key]; ok {
				if hit.Score > out[idx].Score {
					out[idx] = hit
				}
				continue
			}
			seen[key] = len(out)
			out = append(out, hit)
		}
	}
	return out
}

func dedupKey(hit model.SearchHit) string {
	return hit.Alias + "\x00" + hit.Lines + "\x00" + strings.Join(hit.HeadingPath, "\x00")
}

// sortHits implements step 7: score descending, then (alias, lines,
// heading_path) ascending for a fully deterministic tie-break.
func sortHits(hits []model.SearchHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Alias != hits[j].Alias {
			return hits[i].Alias < hits[j].Alias
		}
		if hits[i].Lines != hits[j].Lines {
			return hits[i].Lines < hits[j].Lines
		}
		return strings.Join(hits[i].HeadingPath, "\x00") < strings.Join(hits[j].HeadingPath, "\x00")
	})
}
