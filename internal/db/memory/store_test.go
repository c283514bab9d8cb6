package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/talentsearch/internal/db"
	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/query"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/ranking"
)

var epoch = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

const fixtures = `[
 {"id":"c1","skills":["go","rust"],"yearsExperience":5,"summary":"Backend engineer, distributed systems",
  "location":{"lat":52.52,"lon":13.40},"added_at":"2024-02-29T00:00:00Z",
  "experience":[{"company":"acme","years":1},{"company":"globex","years":4}]},
 {"id":"c2","skills":["go"],"yearsExperience":2,"summary":"Frontend developer",
  "location":"48.85,2.35","added_at":"2023-03-01T00:00:00Z",
  "experience":[{"company":"acme","years":3}]},
 {"id":"c3","skills":["php"],"yearsExperience":8,"summary":"Backend PHP developer",
  "added_at":"2024-01-01T00:00:00Z","experience":[]},
 {"id":"c4","skills":["go","php"],"yearsExperience":3,"summary":"Go backend",
  "location":{"lat":52.40,"lon":13.05},"added_at":"2024-02-01T00:00:00Z",
  "experience":[{"company":"initech","years":2}]}
]`

func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	var fields []schema.Field
	for _, d := range []struct {
		path   string
		ft     schema.Type
		nested string
		kw     bool
	}{
		{"id", schema.Keyword, "", false},
		{"skills", schema.Keyword, "", true},
		{"summary", schema.Text, "", true},
		{"yearsExperience", schema.Integer, "", false},
		{"location", schema.GeoPoint, "", false},
		{"added_at", schema.Date, "", false},
		{"experience.company", schema.Keyword, "experience", false},
		{"experience.years", schema.Integer, "experience", false},
	} {
		f, err := schema.NewField(d.path, d.ft, d.nested, d.kw)
		require.NoError(t, err)
		fields = append(fields, f)
	}
	c, err := schema.NewCatalog(fields, "id", "added_at")
	require.NoError(t, err)
	return c
}

func loaded(t *testing.T) (*Store, *schema.Catalog) {
	t.Helper()
	cat := testCatalog(t)
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.CreateIndex(ctx, db.NewIndex("talents").FromCatalog(cat).MustBuild()))
	var docs []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(fixtures), &docs))
	require.NoError(t, s.Load("talents", docs))
	return s, cat
}

type search struct {
	raw      map[string][]string
	keywords string
	sort     mode.Sort
	weights  map[string]float64
	size     int
	after    []any
}

func run(t *testing.T, s *Store, cat *schema.Catalog, in search) *db.SearchResult {
	t.Helper()
	criteria, err := filter.NewNormalizer(cat).Normalize(in.raw)
	require.NoError(t, err)
	if in.sort == "" {
		in.sort = mode.Relevance
	}
	if in.size == 0 {
		in.size = 10
	}
	res, err := s.Search(context.Background(), &db.SearchQuery{
		Index:       "talents",
		Query:       query.Compile(criteria, query.WithKeywords(in.keywords, cat.KeywordFields())),
		Plan:        ranking.NewPlan(in.sort, epoch, 30, cat.RecencyField(), criteria, in.weights),
		IDField:     "id",
		Size:        in.size,
		SearchAfter: in.after,
	})
	require.NoError(t, err)
	return res
}

func hitIDs(res *db.SearchResult) []string {
	out := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		out[i] = h.ID
	}
	return out
}

func TestSearch_Filters(t *testing.T) {
	s, cat := loaded(t)

	tests := []struct {
		name string
		raw  map[string][]string
		want []string
	}{
		{"terms", map[string][]string{"skills": {"rust", "php"}}, []string{"c1", "c3", "c4"}},
		{"open range", map[string][]string{"yearsExperience": {"3.."}}, []string{"c1", "c3", "c4"}},
		{"exclusive range", map[string][]string{"yearsExperience": {"(3..8)"}}, []string{"c1"}},
		{"must not", map[string][]string{"skills": {"go"}, "-skills": {"php"}}, []string{"c1", "c2"}},
		{"geo within", map[string][]string{"location": {"52.52,13.40~40km"}}, []string{"c1", "c4"}},
		{"geo string point", map[string][]string{"location": {"48.85,2.35~1km"}}, []string{"c2"}},
		{"exists", map[string][]string{"location": {"*"}}, []string{"c1", "c2", "c4"}},
		{"match text", map[string][]string{"summary": {"backend"}}, []string{"c1", "c3", "c4"}},
		{"date range", map[string][]string{"added_at": {"2024-01-01.."}}, []string{"c1", "c3", "c4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, s, cat, search{raw: tt.raw})
			assert.ElementsMatch(t, tt.want, hitIDs(res))
			assert.Equal(t, int64(len(tt.want)), res.Total)
		})
	}
}

func TestSearch_NestedScopeBindsOneEntry(t *testing.T) {
	s, cat := loaded(t)

	// c1 worked at acme for 1 year and elsewhere for 4; only c2 has acme with 2+ years.
	res := run(t, s, cat, search{raw: map[string][]string{
		"experience.company@a": {"acme"},
		"experience.years@a":   {"2.."},
	}})
	assert.Equal(t, []string{"c2"}, hitIDs(res))

	res = run(t, s, cat, search{raw: map[string][]string{
		"experience.company@a": {"acme"},
		"experience.years@b":   {"2.."},
	}})
	assert.ElementsMatch(t, []string{"c1", "c2"}, hitIDs(res))
}

func TestSearch_ShouldOnly(t *testing.T) {
	s, cat := loaded(t)
	res := run(t, s, cat, search{raw: map[string][]string{"~skills": {"rust"}}})
	assert.Equal(t, []string{"c1"}, hitIDs(res))
}

func TestSearch_ShouldRaisesScore(t *testing.T) {
	s, cat := loaded(t)
	res := run(t, s, cat, search{raw: map[string][]string{
		"skills":  {"go"},
		"~skills": {"rust"},
	}})
	require.Len(t, res.Hits, 3)
	assert.Equal(t, "c1", res.Hits[0].ID)
	assert.Equal(t, []string{"c1", "c2", "c4"}, hitIDs(res))
}

func TestSearch_Keywords(t *testing.T) {
	s, cat := loaded(t)
	res := run(t, s, cat, search{keywords: "rust distributed"})
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "c1", res.Hits[0].ID)
	assert.Equal(t, 3.0, res.Hits[0].Score)
}

func TestSearch_RecencyOrdersByAge(t *testing.T) {
	s, cat := loaded(t)
	res := run(t, s, cat, search{raw: map[string][]string{"skills": {"go"}}, sort: mode.Recency})
	assert.Equal(t, []string{"c1", "c4", "c2"}, hitIDs(res))
	assert.Less(t, res.Hits[2].Score, res.Hits[1].Score)
}

func TestSearch_CustomBoost(t *testing.T) {
	s, cat := loaded(t)
	res := run(t, s, cat, search{
		raw:     map[string][]string{"skills": {"go"}, "~yearsExperience": {"2"}},
		sort:    mode.CustomBoost,
		weights: map[string]float64{"yearsExperience": 10},
	})
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "c2", res.Hits[0].ID)
}

func TestSearch_SearchAfter(t *testing.T) {
	s, cat := loaded(t)
	raw := map[string][]string{"location": {"*"}}

	first := run(t, s, cat, search{raw: raw, size: 2})
	require.Len(t, first.Hits, 2)
	last := first.Hits[1]

	second := run(t, s, cat, search{raw: raw, size: 2, after: []any{last.Score, last.ID}})
	require.Len(t, second.Hits, 1)
	assert.NotContains(t, hitIDs(first), second.Hits[0].ID)
	assert.Equal(t, int64(3), second.Total)
}

func TestSearch_MissingIndex(t *testing.T) {
	s := NewStore()
	_, err := s.Search(context.Background(), &db.SearchQuery{Index: "nope", IDField: "id", Size: 1})
	require.Error(t, err)
	var se *db.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 404, se.Status)
	assert.False(t, se.Retryable())
}

func TestSearch_CanceledContext(t *testing.T) {
	s, _ := loaded(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Search(ctx, &db.SearchQuery{Index: "talents", IDField: "id", Size: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestIndexLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	def := db.NewIndex("people").Keyword("id").MustBuild()

	require.NoError(t, s.CreateIndex(ctx, def))
	assert.ErrorIs(t, s.CreateIndex(ctx, def), db.ErrIndexExists)
	ok, err := s.IndexExists(ctx, "people")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.DropIndex(ctx, "people"))
	assert.ErrorIs(t, s.DropIndex(ctx, "people"), db.ErrIndexNotFound)
	assert.ErrorIs(t, s.Load("people", nil), db.ErrIndexNotFound)
}

func TestLoad_RejectsNonObject(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateIndex(context.Background(), db.NewIndex("people").Keyword("id").MustBuild()))
	require.Error(t, s.Load("people", []json.RawMessage{json.RawMessage(`[1,2]`)}))
	require.Error(t, s.Load("people", []json.RawMessage{json.RawMessage(`null`)}))
}

func TestLoad_RejectsBadIdentifier(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"number", `{"id":42,"skills":["go"]}`},
		{"missing", `{"skills":["go"]}`},
		{"empty", `{"id":"","skills":["go"]}`},
		{"null", `{"id":null}`},
		{"array", `{"id":["c1"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := testCatalog(t)
			s := NewStore()
			require.NoError(t, s.CreateIndex(context.Background(), db.NewIndex("talents").FromCatalog(cat).MustBuild()))
			docs := []json.RawMessage{json.RawMessage(`{"id":"ok","skills":["go"]}`), json.RawMessage(tt.doc)}
			err := s.Load("talents", docs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "document 1")

			// Nothing from the rejected batch is searchable, so totals stay consistent.
			res, err := s.Search(context.Background(), &db.SearchQuery{
				Index: "talents", IDField: "id", Size: 10,
				Query: query.Compile(nil),
			})
			require.NoError(t, err)
			assert.Zero(t, res.Total)
			assert.Empty(t, res.Hits)
		})
	}
}

func TestLoad_NoIDFieldAcceptsAnyObject(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateIndex(context.Background(), db.NewIndex("people").Keyword("name").MustBuild()))
	require.NoError(t, s.Load("people", []json.RawMessage{json.RawMessage(`{"name":"x"}`)}))
}
