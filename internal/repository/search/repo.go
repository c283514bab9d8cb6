package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/talentsearch/internal/db"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/query"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/ranking"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Repository over one backend index.
type Repo struct {
	store   store
	index   string
	idField string
}

// New creates a search repository for index. idField is the tie-break sort key.
func New(s store, index, idField string) *Repo {
	return &Repo{store: s, index: index, idField: idField}
}

// Fetch runs one ranked search attempt and returns up to size hits after the cursor.
func (r *Repo) Fetch(
	ctx context.Context, q query.Query, plan ranking.Plan, size int, after *ranking.Cursor,
) (result.Page, error) {
	sq := &db.SearchQuery{
		Index:   r.index,
		Query:   q,
		Plan:    plan,
		IDField: r.idField,
		Size:    size,
	}
	if after != nil {
		sq.SearchAfter = after.SearchAfter()
	}

	sr, err := r.store.Search(ctx, sq)
	if err != nil {
		return result.Page{}, fmt.Errorf("search %s: %w", r.index, err)
	}

	hits := make([]result.Hit, 0, len(sr.Hits))
	for _, h := range sr.Hits {
		if h.ID == "" {
			continue
		}
		hits = append(hits, result.NewHit(h.ID, h.Score, h.Source))
	}
	return result.NewPage(hits, sr.Total, sr.TotalApproximate), nil
}
