package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/kailas-cloud/talentsearch/internal/db"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/query"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/ranking"
)

// Search runs a compiled query. The hit order is the adjusted ranking score
// descending, then the id field ascending.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.Index == "" || q.IDField == "" {
		return nil, fmt.Errorf("index and id field are required")
	}
	if q.Size <= 0 {
		return nil, fmt.Errorf("size must be positive")
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(q.Index),
		s.client.Search.WithBody(esutil.NewJSONReader(RenderSearch(q))),
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	defer drain(res)
	if res.IsError() {
		return nil, &db.Error{Op: db.OpSearch, Err: statusError(res)}
	}

	var body searchResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("decode response: %w", err)}
	}
	return body.toResult(), nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value    int64  `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Score  *float64        `json:"_score"`
			Source json.RawMessage `json:"_source"`
			Sort   []any           `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

func (r *searchResponse) toResult() *db.SearchResult {
	out := &db.SearchResult{
		Total:            r.Hits.Total.Value,
		TotalApproximate: r.Hits.Total.Relation == "gte",
		Hits:             make([]db.SearchHit, 0, len(r.Hits.Hits)),
	}
	for _, h := range r.Hits.Hits {
		hit := db.SearchHit{ID: h.ID, Source: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		// sort values are [score, id]; they are the cursor position
		if len(h.Sort) == 2 {
			if sc, ok := h.Sort[0].(float64); ok {
				hit.Score = sc
			}
			if id, ok := h.Sort[1].(string); ok {
				hit.ID = id
			}
		}
		out.Hits = append(out.Hits, hit)
	}
	return out
}

// RenderSearch builds the _search request body.
func RenderSearch(q *db.SearchQuery) map[string]any {
	body := map[string]any{
		"query":        RenderScored(q.Query, q.Plan),
		"size":         q.Size,
		"track_scores": true,
		"sort": []any{
			map[string]any{"_score": map[string]any{"order": "desc"}},
			map[string]any{q.IDField: map[string]any{"order": "asc"}},
		},
	}
	if len(q.SearchAfter) > 0 {
		body["search_after"] = q.SearchAfter
	}
	return body
}

// RenderScored wraps the boolean tree so that the backend score equals
// base × recencyWeight + Σ matched boosts.
func RenderScored(q query.Query, plan ranking.Plan) map[string]any {
	scored := RenderBool(q)
	if plan.Decays() {
		scored = map[string]any{
			"function_score": map[string]any{
				"query": scored,
				"functions": []any{map[string]any{
					"exp": map[string]any{
						plan.RecencyField(): map[string]any{
							"origin": plan.Epoch().Format(time.RFC3339),
							"scale":  scaleMinutes(plan.HalfLifeDays()),
							"decay":  math.Exp(-1),
						},
					},
				}},
				"score_mode": "multiply",
				"boost_mode": "multiply",
			},
		}
	}
	if len(plan.Boosts()) == 0 {
		return scored
	}
	should := make([]any, 0, len(plan.Boosts()))
	for _, b := range plan.Boosts() {
		should = append(should, map[string]any{
			"constant_score": map[string]any{
				"filter": RenderClause(query.Scoped(b.Criterion)),
				"boost":  b.Weight,
				"_name":  b.Name,
			},
		})
	}
	return map[string]any{
		"bool": map[string]any{
			"must":   []any{scored},
			"should": should,
		},
	}
}

// scaleMinutes renders a half-life in days as a whole-minute time unit.
func scaleMinutes(days float64) string {
	m := int64(math.Round(days * 24 * 60))
	if m < 1 {
		m = 1
	}
	return fmt.Sprintf("%dm", m)
}

// RenderBool renders the boolean tree. An empty tree matches all documents.
func RenderBool(q query.Query) map[string]any {
	if q.IsEmpty() {
		return map[string]any{"match_all": map[string]any{}}
	}
	b := map[string]any{}
	if len(q.Must()) > 0 {
		b["must"] = renderClauses(q.Must())
	}
	if len(q.Should()) > 0 {
		b["should"] = renderClauses(q.Should())
	}
	if msm := q.MinimumShouldMatch(); msm > 0 {
		b["minimum_should_match"] = msm
	}
	if len(q.MustNot()) > 0 {
		b["must_not"] = renderClauses(q.MustNot())
	}
	return map[string]any{"bool": b}
}

func renderClauses(cs []query.Clause) []any {
	out := make([]any, len(cs))
	for i, c := range cs {
		out[i] = RenderClause(c)
	}
	return out
}

// RenderClause renders one leaf or nested node.
func RenderClause(c query.Clause) map[string]any {
	switch c.Kind() {
	case query.KindTerm:
		return map[string]any{"term": map[string]any{
			c.Field(): map[string]any{"value": c.Values()[0].Any()},
		}}
	case query.KindTerms:
		vals := make([]any, len(c.Values()))
		for i, v := range c.Values() {
			vals[i] = v.Any()
		}
		return map[string]any{"terms": map[string]any{c.Field(): vals}}
	case query.KindRange:
		bounds := map[string]any{}
		if lo := c.Range().Lower(); lo != nil {
			op := "gt"
			if lo.Inclusive {
				op = "gte"
			}
			bounds[op] = lo.Value.Any()
		}
		if hi := c.Range().Upper(); hi != nil {
			op := "lt"
			if hi.Inclusive {
				op = "lte"
			}
			bounds[op] = hi.Value.Any()
		}
		return map[string]any{"range": map[string]any{c.Field(): bounds}}
	case query.KindGeoDistance:
		g := c.Geo()
		return map[string]any{"geo_distance": map[string]any{
			"distance": fmt.Sprintf("%gm", g.Meters),
			c.Field():  map[string]any{"lat": g.Lat, "lon": g.Lon},
		}}
	case query.KindExists:
		return map[string]any{"exists": map[string]any{"field": c.Field()}}
	case query.KindMatch:
		return map[string]any{"match": map[string]any{
			c.Field(): map[string]any{"query": c.Text()},
		}}
	case query.KindMultiMatch:
		return map[string]any{"multi_match": map[string]any{
			"query":       c.Text(),
			"fields":      c.Fields(),
			"type":        "cross_fields",
			"tie_breaker": 0,
		}}
	case query.KindBool:
		return RenderBool(*c.Sub())
	case query.KindNested:
		return map[string]any{"nested": map[string]any{
			"path":  c.Path(),
			"query": map[string]any{"bool": map[string]any{"must": renderClauses(c.Inner())}},
		}}
	}
	return map[string]any{"match_none": map[string]any{}}
}
