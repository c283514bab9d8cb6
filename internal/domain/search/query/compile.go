package query

import (
	"strings"

	"github.com/kailas-cloud/talentsearch/internal/domain/search/filter"
)

// Option configures compilation.
type Option func(*options)

type options struct {
	keywords      string
	keywordFields []string
	visibility    []filter.Criterion
	idField       string
	bypass        []string
}

// WithKeywords adds a leading MUST multi-match over fields. Blank text is ignored.
func WithKeywords(text string, fields []string) Option {
	return func(o *options) {
		o.keywords = strings.TrimSpace(text)
		o.keywordFields = fields
	}
}

// WithVisibility adds the visibility criteria as one leading MUST group. Documents whose
// idField is in bypass match the group regardless of the criteria.
func WithVisibility(criteria []filter.Criterion, idField string, bypass []string) Option {
	return func(o *options) {
		o.visibility = criteria
		o.idField = idField
		o.bypass = bypass
	}
}

// Compile translates validated criteria into a boolean tree. Bucket order follows input
// order; criteria sharing a nested scope collapse into one nested node placed at the
// position of the first member. Compile is pure: equal input yields equal trees.
func Compile(criteria []filter.Criterion, opts ...Option) Query {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	var q Query
	if o.keywords != "" && len(o.keywordFields) > 0 {
		q.must = append(q.must, MultiMatch(o.keywords, o.keywordFields))
	}
	if len(o.visibility) > 0 {
		vis := Group(Compile(o.visibility))
		if len(o.bypass) > 0 && o.idField != "" {
			vis = AnyOf(vis, IDs(o.idField, o.bypass))
		}
		q.must = append(q.must, vis)
	}
	q.must = append(q.must, bucket(criteria, filter.Must)...)
	q.should = bucket(criteria, filter.Should)
	q.mustNot = bucket(criteria, filter.MustNot)
	return q
}

func bucket(criteria []filter.Criterion, role filter.Role) []Clause {
	var out []Clause
	nestedAt := make(map[string]int)
	for _, c := range criteria {
		if c.Role() != role {
			continue
		}
		scope := c.NestedScope()
		if scope == "" {
			out = append(out, Leaf(c))
			continue
		}
		if i, ok := nestedAt[scope]; ok {
			out[i].inner = append(out[i].inner, Leaf(c))
			continue
		}
		nestedAt[scope] = len(out)
		out = append(out, Clause{
			kind:  KindNested,
			path:  c.NestedPath(),
			scope: scope,
			inner: []Clause{Leaf(c)},
		})
	}
	return out
}
