package ranking

import (
	"sort"

	"github.com/kailas-cloud/talentsearch/internal/domain/search/result"
)

// SortHits orders hits by score descending, ties by id ascending.
func SortHits(hits []result.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score() != hits[j].Score() {
			return hits[i].Score() > hits[j].Score()
		}
		return hits[i].ID() < hits[j].ID()
	})
}

// Paginate cuts one page from backend hits fetched with a pageSize+1 limit.
// Hits not strictly after the cursor, and repeated ids, are dropped. next is nil on
// the last page.
func Paginate(hits []result.Hit, pageSize int, after *Cursor, plan Plan) (page []result.Hit, next *Cursor) {
	sorted := make([]result.Hit, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		if seen[h.ID()] || (after != nil && !after.After(h.Score(), h.ID())) {
			continue
		}
		seen[h.ID()] = true
		sorted = append(sorted, h)
	}
	SortHits(sorted)

	if len(sorted) <= pageSize {
		return sorted, nil
	}
	page = sorted[:pageSize]
	last := page[len(page)-1]
	return page, &Cursor{
		Score: last.Score(),
		ID:    last.ID(),
		Epoch: plan.Epoch().UnixMilli(),
		Sort:  plan.Sort(),
	}
}
