package talentsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Sort modes.
const (
	SortRelevance   = "relevance"
	SortRecency     = "recency"
	SortCustomBoost = "custom_boost"
)

// Page is one page of results.
type Page struct {
	Results               []json.RawMessage `json:"results"`
	TotalCount            int64             `json:"totalCount"`
	TotalCountApproximate bool              `json:"totalCountApproximate"`
	NextCursor            *string           `json:"nextCursor"`
}

// HasMore reports whether another page follows.
func (p *Page) HasMore() bool { return p.NextCursor != nil && *p.NextCursor != "" }

// Decode unmarshals every result of p into T.
func Decode[T any](p *Page) ([]T, error) {
	out := make([]T, len(p.Results))
	for i, raw := range p.Results {
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			return nil, fmt.Errorf("talentsearch: decode result %d: %w", i, err)
		}
	}
	return out, nil
}

// SearchBuilder is a fluent builder for search requests. Not safe for concurrent use.
type SearchBuilder struct {
	client *Client
	params url.Values
}

// Where requires field to equal one of values.
func (b *SearchBuilder) Where(field string, values ...string) *SearchBuilder {
	b.params[field] = append(b.params[field], values...)
	return b
}

// Not excludes documents where field equals one of values.
func (b *SearchBuilder) Not(field string, values ...string) *SearchBuilder {
	return b.Where("-"+field, values...)
}

// Should ranks documents where field equals one of values higher without requiring it.
func (b *SearchBuilder) Should(field string, values ...string) *SearchBuilder {
	return b.Where("~"+field, values...)
}

// Range requires field within [lo, hi]. An empty bound is open.
func (b *SearchBuilder) Range(field, lo, hi string) *SearchBuilder {
	return b.Where(field, lo+".."+hi)
}

// Exists requires field to be present.
func (b *SearchBuilder) Exists(field string) *SearchBuilder {
	return b.Where(field, "*")
}

// Near requires the geo field within radiusKm of (lat, lon).
func (b *SearchBuilder) Near(field string, lat, lon, radiusKm float64) *SearchBuilder {
	return b.Where(field, fmt.Sprintf("%s,%s~%skm",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
		strconv.FormatFloat(radiusKm, 'f', -1, 64)))
}

// Scoped groups nested conditions under label; conditions sharing a label must hold
// for the same array entry.
func (b *SearchBuilder) Scoped(label string) *ScopeBuilder {
	return &ScopeBuilder{parent: b, label: label}
}

// Keywords sets the full-text keyword query.
func (b *SearchBuilder) Keywords(text string) *SearchBuilder {
	b.params.Set("keywords", text)
	return b
}

// Sort sets the ranking mode.
func (b *SearchBuilder) Sort(mode string) *SearchBuilder {
	b.params.Set("sort", mode)
	return b
}

// Boost adds a custom_boost weight for field.
func (b *SearchBuilder) Boost(field string, weight float64) *SearchBuilder {
	b.params.Set("boost."+field, strconv.FormatFloat(weight, 'f', -1, 64))
	return b
}

// PageSize sets the number of results per page.
func (b *SearchBuilder) PageSize(n int) *SearchBuilder {
	b.params.Set("page_size", strconv.Itoa(n))
	return b
}

// Epoch evaluates time-relative visibility rules at t instead of the server clock.
func (b *SearchBuilder) Epoch(t time.Time) *SearchBuilder {
	b.params.Set("epoch", strconv.FormatInt(t.Unix(), 10))
	return b
}

// Presented keeps ids visible even when visibility rules would hide them.
func (b *SearchBuilder) Presented(ids ...string) *SearchBuilder {
	b.params["presented"] = append(b.params["presented"], ids...)
	return b
}

// Cursor resumes after a previous page.
func (b *SearchBuilder) Cursor(token string) *SearchBuilder {
	if token == "" {
		b.params.Del("cursor")
		return b
	}
	b.params.Set("cursor", token)
	return b
}

// Query returns the encoded query parameters.
func (b *SearchBuilder) Query() url.Values {
	out := make(url.Values, len(b.params))
	for k, v := range b.params {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Do fetches one page.
func (b *SearchBuilder) Do(ctx context.Context) (page *Page, err error) {
	start := time.Now()
	defer func() { b.client.obs.observe("search", start, page, err) }()

	page = &Page{}
	if err = b.client.get(ctx, "/v1/candidates/search", b.params, true, page); err != nil {
		return nil, err
	}
	return page, nil
}

// Pages fetches pages in order, calling fn for each, until the last page or an error.
func (b *SearchBuilder) Pages(ctx context.Context, fn func(*Page) error) error {
	for {
		page, err := b.Do(ctx)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
		if !page.HasMore() {
			return nil
		}
		b.Cursor(*page.NextCursor)
	}
}

// ScopeBuilder adds conditions bound to one nested entry.
type ScopeBuilder struct {
	parent *SearchBuilder
	label  string
}

func (s *ScopeBuilder) key(field string) string {
	return field + "@" + s.label
}

// Where requires field of the scoped entry to equal one of values.
func (s *ScopeBuilder) Where(field string, values ...string) *ScopeBuilder {
	s.parent.Where(s.key(field), values...)
	return s
}

// Not excludes entries where field equals one of values.
func (s *ScopeBuilder) Not(field string, values ...string) *ScopeBuilder {
	s.parent.Not(s.key(field), values...)
	return s
}

// Range requires field of the scoped entry within [lo, hi].
func (s *ScopeBuilder) Range(field, lo, hi string) *ScopeBuilder {
	s.parent.Range(s.key(field), lo, hi)
	return s
}

// Done returns to the parent builder.
func (s *ScopeBuilder) Done() *SearchBuilder { return s.parent }
