package ranking

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/result"
)

var epoch = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func criterion(t *testing.T, path, value string, role filter.Role) filter.Criterion {
	t.Helper()
	f, err := schema.NewField(path, schema.Keyword, "", false)
	require.NoError(t, err)
	c, err := filter.NewEq(f, filter.StringValue(value))
	require.NoError(t, err)
	return c.WithRole(role)
}

func TestNewPlan_BindsBoosts(t *testing.T) {
	criteria := []filter.Criterion{
		criterion(t, "skills", "go", filter.Must),
		criterion(t, "skills", "php", filter.MustNot),
		criterion(t, "city", "berlin", filter.Should),
		criterion(t, "role", "sre", filter.Should),
	}
	p := NewPlan(mode.CustomBoost, epoch, 0, "added_at", criteria,
		map[string]float64{"skills": 2, "city": 0.5})

	require.Len(t, p.Boosts(), 2)
	assert.Equal(t, "boost_0", p.Boosts()[0].Name)
	assert.Equal(t, "skills", p.Boosts()[0].Criterion.Field())
	assert.Equal(t, filter.Must, p.Boosts()[0].Criterion.Role())
	assert.Equal(t, "boost_1", p.Boosts()[1].Name)
	assert.Equal(t, 0.5, p.Boosts()[1].Weight)
	assert.Equal(t, float64(DefaultHalfLifeDays), p.HalfLifeDays())
}

func TestRecencyWeight(t *testing.T) {
	p := NewPlan(mode.Recency, epoch, 10, "added_at", nil, nil)

	assert.Equal(t, 1.0, p.RecencyWeight(epoch, true))
	assert.InDelta(t, math.Exp(-1), p.RecencyWeight(epoch.AddDate(0, 0, -10), true), 1e-12)
	assert.InDelta(t, math.Exp(-1), p.RecencyWeight(epoch.AddDate(0, 0, 10), true), 1e-12)
	assert.Equal(t, 1.0, p.RecencyWeight(time.Time{}, false))

	rel := NewPlan(mode.Relevance, epoch, 10, "added_at", nil, nil)
	assert.Equal(t, 1.0, rel.RecencyWeight(epoch.AddDate(-1, 0, 0), true))
	assert.True(t, rel.IsPlain())
}

func TestAdjusted(t *testing.T) {
	criteria := []filter.Criterion{
		criterion(t, "skills", "go", filter.Should),
		criterion(t, "city", "berlin", filter.Should),
	}
	p := NewPlan(mode.CustomBoost, epoch, 10, "added_at", criteria,
		map[string]float64{"skills": 2, "city": 3})

	got := p.Adjusted(4, epoch.AddDate(0, 0, -10), true, func(b Boost) bool {
		return b.Criterion.Field() == "city"
	})
	assert.InDelta(t, 4*math.Exp(-1)+3, got, 1e-12)
}

func TestCursor_RoundTripAndChecks(t *testing.T) {
	c := Cursor{Score: 1.25, ID: "c7", Epoch: epoch.UnixMilli(), Sort: mode.Recency}

	got, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.Equal(t, epoch, got.EpochTime())
	assert.NoError(t, got.Check(mode.Recency))

	err = got.Check(mode.Relevance)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestDecodeCursor_Malformed(t *testing.T) {
	for _, token := range []string{"", "%%%", "bm90IGpzb24", Cursor{Score: 1, Sort: mode.Recency, Epoch: 1}.Encode()} {
		_, err := DecodeCursor(token)
		require.Error(t, err, "token %q", token)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	}
}

func TestCursor_After(t *testing.T) {
	c := Cursor{Score: 2, ID: "m"}
	assert.True(t, c.After(1, "a"))
	assert.True(t, c.After(2, "n"))
	assert.False(t, c.After(2, "m"))
	assert.False(t, c.After(2, "a"))
	assert.False(t, c.After(3, "z"))
}

func hits(pairs ...any) []result.Hit {
	var out []result.Hit
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, result.NewHit(pairs[i].(string), pairs[i+1].(float64), nil))
	}
	return out
}

func ids(hs []result.Hit) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.ID()
	}
	return out
}

func TestPaginate(t *testing.T) {
	p := NewPlan(mode.Relevance, epoch, 0, "", nil, nil)
	all := hits("b", 1.0, "a", 1.0, "c", 3.0, "d", 0.5, "a", 1.0)

	page, next := Paginate(all, 2, nil, p)
	assert.Equal(t, []string{"c", "a"}, ids(page))
	require.NotNil(t, next)
	assert.Equal(t, "a", next.ID)
	assert.Equal(t, 1.0, next.Score)
	assert.Equal(t, epoch.UnixMilli(), next.Epoch)

	page, next = Paginate(all, 2, next, p)
	assert.Equal(t, []string{"b", "d"}, ids(page))
	assert.Nil(t, next)
}

func TestPaginate_NoRepeatsAcrossPages(t *testing.T) {
	p := NewPlan(mode.Relevance, epoch, 0, "", nil, nil)
	all := hits("e", 1.0, "d", 1.0, "c", 1.0, "b", 2.0, "a", 2.0, "f", 0.1, "g", 0.1)

	seen := map[string]bool{}
	var cur *Cursor
	for pages := 0; ; pages++ {
		require.Less(t, pages, 10)
		page, next := Paginate(all, 3, cur, p)
		for _, h := range page {
			require.False(t, seen[h.ID()], "repeated %s", h.ID())
			seen[h.ID()] = true
		}
		if next == nil {
			break
		}
		cur = next
	}
	assert.Len(t, seen, 7)
}

func TestSortHits_Stable(t *testing.T) {
	a := hits("z", 1.0, "y", 1.0, "x", 2.0)
	b := hits("y", 1.0, "x", 2.0, "z", 1.0)
	SortHits(a)
	SortHits(b)
	assert.Equal(t, ids(a), ids(b))
	assert.Equal(t, []string{"x", "y", "z"}, ids(a))
}
