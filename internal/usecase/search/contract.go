package search

import (
	"context"

	"github.com/kailas-cloud/talentsearch/internal/domain/search/query"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/ranking"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/result"
	"github.com/kailas-cloud/talentsearch/internal/report"
)

// Repository runs one ranked backend search attempt.
type Repository interface {
	Fetch(
		ctx context.Context, q query.Query, plan ranking.Plan,
		size int, after *ranking.Cursor,
	) (result.Page, error)
}

// Fetcher fetches one logical page, retries included.
type Fetcher interface {
	Fetch(
		ctx context.Context, q query.Query, plan ranking.Plan,
		size int, after *ranking.Cursor,
	) (result.Page, error)
}

// Reporter receives server-side failures.
type Reporter interface {
	Report(ctx context.Context, ev report.Event)
}
