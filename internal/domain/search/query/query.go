// Package query holds the backend-agnostic compiled boolean query tree.
package query

import (
	"strings"

	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/filter"
)

// Kind is the clause type of a tree node.
type Kind string

// Clause kinds.
const (
	KindTerm        Kind = "term"
	KindTerms       Kind = "terms"
	KindRange       Kind = "range"
	KindGeoDistance Kind = "geo_distance"
	KindExists      Kind = "exists"
	KindMatch       Kind = "match"
	KindMultiMatch  Kind = "multi_match"
	KindNested      Kind = "nested"
	KindBool        Kind = "bool"
)

// Clause is one node of a compiled query: a leaf, a nested node holding the
// conjunction of its members, or a bool node holding a sub-query. Immutable after
// construction.
type Clause struct {
	kind   Kind
	field  string
	values []filter.Value
	rng    *filter.Range
	geo    *filter.GeoDistance
	text   string
	fields []string
	path   string
	scope  string
	inner  []Clause
	sub    *Query
}

// Kind returns the clause type.
func (c Clause) Kind() Kind { return c.kind }

// Field returns the target field of a leaf.
func (c Clause) Field() string { return c.field }

// Values returns term/terms literals.
func (c Clause) Values() []filter.Value { return c.values }

// Range returns the bounds of a range leaf.
func (c Clause) Range() *filter.Range { return c.rng }

// Geo returns the circle of a geo-distance leaf.
func (c Clause) Geo() *filter.GeoDistance { return c.geo }

// Text returns the query text of match/multi-match leaves.
func (c Clause) Text() string { return c.text }

// Fields returns the searched fields of a multi-match leaf.
func (c Clause) Fields() []string { return c.fields }

// Path returns the nested sub-document path of a nested node.
func (c Clause) Path() string { return c.path }

// Scope returns the nested scope key a nested node was grouped by.
func (c Clause) Scope() string { return c.scope }

// Inner returns the conjunction members of a nested node.
func (c Clause) Inner() []Clause { return c.inner }

// Sub returns the sub-query of a bool node.
func (c Clause) Sub() *Query { return c.sub }

// Equal reports structural equality.
func (c Clause) Equal(o Clause) bool {
	if c.kind != o.kind || c.field != o.field || c.text != o.text ||
		c.path != o.path || c.scope != o.scope {
		return false
	}
	if len(c.values) != len(o.values) || len(c.fields) != len(o.fields) || len(c.inner) != len(o.inner) {
		return false
	}
	for i := range c.values {
		if c.values[i].Kind() != o.values[i].Kind() || c.values[i].String() != o.values[i].String() {
			return false
		}
	}
	for i := range c.fields {
		if c.fields[i] != o.fields[i] {
			return false
		}
	}
	if (c.rng == nil) != (o.rng == nil) || (c.rng != nil && c.rng.String() != o.rng.String()) {
		return false
	}
	if (c.geo == nil) != (o.geo == nil) || (c.geo != nil && *c.geo != *o.geo) {
		return false
	}
	for i := range c.inner {
		if !c.inner[i].Equal(o.inner[i]) {
			return false
		}
	}
	if (c.sub == nil) != (o.sub == nil) || (c.sub != nil && !c.sub.Equal(*o.sub)) {
		return false
	}
	return true
}

func (c Clause) String() string {
	var b strings.Builder
	c.write(&b)
	return b.String()
}

func (c Clause) write(b *strings.Builder) {
	b.WriteString(string(c.kind))
	b.WriteByte('(')
	switch c.kind {
	case KindTerm, KindTerms, KindMatch:
		b.WriteString(c.field)
		for _, v := range c.values {
			b.WriteByte(' ')
			b.WriteString(v.String())
		}
		if c.text != "" {
			b.WriteString(" " + c.text)
		}
	case KindRange:
		b.WriteString(c.field + " " + c.rng.String())
	case KindGeoDistance:
		b.WriteString(c.field + " " + c.geo.String())
	case KindExists:
		b.WriteString(c.field)
	case KindMultiMatch:
		b.WriteString(strings.Join(c.fields, ",") + " " + c.text)
	case KindNested:
		b.WriteString(c.path)
		for _, in := range c.inner {
			b.WriteByte(' ')
			in.write(b)
		}
	case KindBool:
		b.WriteString(c.sub.String())
	}
	b.WriteByte(')')
}

// Query is the compiled boolean tree. Immutable after Compile.
type Query struct {
	must    []Clause
	should  []Clause
	mustNot []Clause
}

// Must returns the required clauses.
func (q Query) Must() []Clause { return q.must }

// Should returns the optional clauses.
func (q Query) Should() []Clause { return q.should }

// MustNot returns the excluded clauses.
func (q Query) MustNot() []Clause { return q.mustNot }

// MinimumShouldMatch is 1 when SHOULD clauses alone constrain the result set, else 0.
func (q Query) MinimumShouldMatch() int {
	if len(q.must) == 0 && len(q.should) > 0 {
		return 1
	}
	return 0
}

// IsEmpty reports whether the query matches every document.
func (q Query) IsEmpty() bool {
	return len(q.must) == 0 && len(q.should) == 0 && len(q.mustNot) == 0
}

// Equal reports structural equality of two trees.
func (q Query) Equal(o Query) bool {
	return clausesEqual(q.must, o.must) && clausesEqual(q.should, o.should) &&
		clausesEqual(q.mustNot, o.mustNot)
}

func clausesEqual(a, b []Clause) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// String renders a compact debug form, e.g. "must[terms(skills go rust)] should[] must_not[]".
func (q Query) String() string {
	var b strings.Builder
	for i, bucket := range []struct {
		name    string
		clauses []Clause
	}{{"must", q.must}, {"should", q.should}, {"must_not", q.mustNot}} {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(bucket.name)
		b.WriteByte('[')
		for j, c := range bucket.clauses {
			if j > 0 {
				b.WriteString(", ")
			}
			c.write(&b)
		}
		b.WriteByte(']')
	}
	return b.String()
}

// Leaf builds the clause for a single criterion, ignoring its role and scope.
func Leaf(c filter.Criterion) Clause {
	switch c.Operator() {
	case filter.OpEq:
		v := c.Values()[0]
		if c.FieldType() == schema.Text {
			return Clause{kind: KindMatch, field: c.Field(), text: v.Str()}
		}
		return Clause{kind: KindTerm, field: c.Field(), values: c.Values()}
	case filter.OpIn:
		return Clause{kind: KindTerms, field: c.Field(), values: c.Values()}
	case filter.OpRange:
		return Clause{kind: KindRange, field: c.Field(), rng: c.Range()}
	case filter.OpGeoWithin:
		return Clause{kind: KindGeoDistance, field: c.Field(), geo: c.Geo()}
	default:
		return Clause{kind: KindExists, field: c.Field()}
	}
}

// Scoped builds the leaf for c, wrapped in a nested node when c lives in a sub-document.
func Scoped(c filter.Criterion) Clause {
	leaf := Leaf(c)
	if c.NestedPath() == "" {
		return leaf
	}
	return Clause{kind: KindNested, path: c.NestedPath(), scope: c.NestedScope(), inner: []Clause{leaf}}
}

// MultiMatch builds a cross-field full-text clause.
func MultiMatch(text string, fields []string) Clause {
	fs := make([]string, len(fields))
	copy(fs, fields)
	return Clause{kind: KindMultiMatch, text: text, fields: fs}
}

// Group wraps q as a single clause.
func Group(q Query) Clause {
	return Clause{kind: KindBool, sub: &q}
}

// AnyOf builds a clause matching when at least one member matches.
func AnyOf(members ...Clause) Clause {
	return Group(Query{should: members})
}

// IDs builds a terms clause over document ids.
func IDs(field string, ids []string) Clause {
	vals := make([]filter.Value, len(ids))
	for i, id := range ids {
		vals[i] = filter.StringValue(id)
	}
	return Clause{kind: KindTerms, field: field, values: vals}
}
