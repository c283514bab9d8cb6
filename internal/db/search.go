package db

import (
	"encoding/json"

	"github.com/kailas-cloud/talentsearch/internal/domain/search/query"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/ranking"
)

// SearchQuery is the input for a ranked, cursor-paginated search.
type SearchQuery struct {
	Index string
	Query query.Query
	Plan  ranking.Plan
	// IDField is the tie-break sort key.
	IDField string
	Size    int
	// SearchAfter resumes strictly after the given (score, id) sort values.
	SearchAfter []any
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total            int64
	TotalApproximate bool
	Hits             []SearchHit
}

// SearchHit is a single document hit from a search.
type SearchHit struct {
	ID     string
	Score  float64
	Source json.RawMessage
}
