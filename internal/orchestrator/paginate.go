package orchestrator

import (
	"math"

	"github.com/standardbeagle/blz/internal/model"
)

// paginate implements step 10. hits is already deduped, sorted, and
// percentile-cut. It returns the resolved page number, total page count,
// the hits belonging to that page, and whether the requested page was out
// of range (n>0 but page>totalPages).
func paginate(hits []model.SearchHit, limit int, all bool, requestedPage int, last bool) (page, totalPages int, pageHits []model.SearchHit, outOfRange bool) {
	n := len(hits)

	actualLimit := limit
	if all {
		actualLimit = n
	}
	if actualLimit < 1 {
		actualLimit = 1
	}

	if n == 0 {
		totalPages = 0
	} else {
		totalPages = int(math.Ceil(float64(n) / float64(actualLimit)))
	}

	outOfRange = n > 0 && requestedPage > totalPages

	switch {
	case last:
		page = totalPages
		if page < 1 {
			page = 1
		}
	default:
		page = requestedPage
		if page < 1 {
			page = 1
		}
		if totalPages > 0 && page > totalPages {
			page = totalPages
		}
	}

	if outOfRange {
		return page, totalPages, nil, true
	}

	start := (page - 1) * actualLimit
	if start < 0 || start >= n {
		return page, totalPages, nil, false
	}
	end := start + actualLimit
	if end > n {
		end = n
	}
	return page, totalPages, hits[start:end], false
}
