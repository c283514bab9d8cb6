package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/talentsearch/internal/domain/geo"
	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
)

// MaxValuesPerCriterion is the maximum number of literals in an IN criterion.
const MaxValuesPerCriterion = 64

// Operator is the comparison a criterion applies.
type Operator string

// Operator constants.
const (
	OpEq        Operator = "eq"
	OpIn        Operator = "in"
	OpRange     Operator = "range"
	OpGeoWithin Operator = "geo_within"
	OpExists    Operator = "exists"
)

// Role is the boolean role of a criterion in the compiled query.
type Role string

// Role constants.
const (
	Must    Role = "must"
	Should  Role = "should"
	MustNot Role = "must_not"
)

// IsValid checks if the role is supported.
func (r Role) IsValid() bool {
	return r == Must || r == Should || r == MustNot
}

// Value is a typed filter literal. Exactly one payload is set, selected by Kind.
type Value struct {
	kind schema.Type
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// StringValue creates a keyword/text literal.
func StringValue(s string) Value { return Value{kind: schema.Keyword, s: s} }

// IntValue creates an integer literal.
func IntValue(i int64) Value { return Value{kind: schema.Integer, i: i} }

// FloatValue creates a float literal.
func FloatValue(f float64) Value { return Value{kind: schema.Float, f: f} }

// BoolValue creates a boolean literal.
func BoolValue(b bool) Value { return Value{kind: schema.Boolean, b: b} }

// DateValue creates a date literal (normalized to UTC).
func DateValue(t time.Time) Value { return Value{kind: schema.Date, t: t.UTC()} }

// Kind returns the literal type.
func (v Value) Kind() schema.Type { return v.kind }

// Str returns the string payload.
func (v Value) Str() string { return v.s }

// Int returns the integer payload.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload.
func (v Value) Float() float64 { return v.f }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Time returns the date payload.
func (v Value) Time() time.Time { return v.t }

// Any returns the payload in its JSON-friendly form (dates as RFC 3339).
func (v Value) Any() any {
	switch v.kind {
	case schema.Integer:
		return v.i
	case schema.Float:
		return v.f
	case schema.Boolean:
		return v.b
	case schema.Date:
		return v.t.Format(time.RFC3339Nano)
	default:
		return v.s
	}
}

// String returns the canonical literal form.
func (v Value) String() string {
	switch v.kind {
	case schema.Integer:
		return strconv.FormatInt(v.i, 10)
	case schema.Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case schema.Boolean:
		return strconv.FormatBool(v.b)
	case schema.Date:
		return v.t.Format(time.RFC3339Nano)
	default:
		return v.s
	}
}

// Compare orders two literals of the same kind: -1, 0 or +1.
func (v Value) Compare(o Value) int {
	switch v.kind {
	case schema.Integer:
		return cmp3(v.i < o.i, v.i > o.i)
	case schema.Float:
		return cmp3(v.f < o.f, v.f > o.f)
	case schema.Date:
		return cmp3(v.t.Before(o.t), v.t.After(o.t))
	case schema.Boolean:
		return cmp3(!v.b && o.b, v.b && !o.b)
	default:
		return strings.Compare(v.s, o.s)
	}
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// Bound is one end of a range.
type Bound struct {
	Value     Value
	Inclusive bool
}

// Range has two bounds, either of which may be open (nil).
type Range struct {
	lower *Bound
	upper *Bound
}

// NewRange validates and creates a Range. At least one bound is required and
// the interval must not be empty.
func NewRange(lower, upper *Bound) (Range, error) {
	if lower == nil && upper == nil {
		return Range{}, fmt.Errorf("range needs at least one bound")
	}
	if lower != nil && upper != nil {
		if lower.Value.kind != upper.Value.kind {
			return Range{}, fmt.Errorf("range bounds have different types")
		}
		switch c := lower.Value.Compare(upper.Value); {
		case c > 0:
			return Range{}, fmt.Errorf("lower bound %s is greater than upper bound %s", lower.Value, upper.Value)
		case c == 0 && (!lower.Inclusive || !upper.Inclusive):
			return Range{}, fmt.Errorf("empty range at %s", lower.Value)
		}
	}
	return Range{lower: lower, upper: upper}, nil
}

// Lower returns the lower bound (nil when open).
func (r Range) Lower() *Bound { return r.lower }

// Upper returns the upper bound (nil when open).
func (r Range) Upper() *Bound { return r.upper }

// Contains reports whether v lies inside the range.
func (r Range) Contains(v Value) bool {
	if r.lower != nil {
		c := v.Compare(r.lower.Value)
		if c < 0 || (c == 0 && !r.lower.Inclusive) {
			return false
		}
	}
	if r.upper != nil {
		c := v.Compare(r.upper.Value)
		if c > 0 || (c == 0 && !r.upper.Inclusive) {
			return false
		}
	}
	return true
}

func (r Range) String() string {
	var b strings.Builder
	if r.lower != nil && !r.lower.Inclusive {
		b.WriteByte('(')
	} else {
		b.WriteByte('[')
	}
	if r.lower != nil {
		b.WriteString(r.lower.Value.String())
	}
	b.WriteString("..")
	if r.upper != nil {
		b.WriteString(r.upper.Value.String())
	}
	if r.upper != nil && !r.upper.Inclusive {
		b.WriteByte(')')
	} else {
		b.WriteByte(']')
	}
	return b.String()
}

// GeoDistance is a circle on the earth surface.
type GeoDistance struct {
	Lat    float64
	Lon    float64
	Meters float64
}

func (g GeoDistance) String() string {
	return fmt.Sprintf("%g,%g~%gm", g.Lat, g.Lon, g.Meters)
}

// Criterion is a single typed filter: one field, one operator, one role.
type Criterion struct {
	field       string
	fieldType   schema.Type
	nestedPath  string
	op          Operator
	values      []Value
	rng         *Range
	geo         *GeoDistance
	role        Role
	nestedScope string
}

func newCriterion(f schema.Field, op Operator) Criterion {
	return Criterion{
		field:      f.Path(),
		fieldType:  f.FieldType(),
		nestedPath: f.Nested(),
		op:         op,
		role:       Must,
	}
}

// NewEq creates an exact-match criterion.
func NewEq(f schema.Field, v Value) (Criterion, error) {
	if err := checkKind(f, v); err != nil {
		return Criterion{}, err
	}
	c := newCriterion(f, OpEq)
	c.values = []Value{v}
	return c, nil
}

// NewIn creates a set-membership criterion. Duplicate literals are dropped.
func NewIn(f schema.Field, vs []Value) (Criterion, error) {
	if len(vs) == 0 {
		return Criterion{}, fmt.Errorf("empty IN set")
	}
	if len(vs) > MaxValuesPerCriterion {
		return Criterion{}, fmt.Errorf("too many values (max %d)", MaxValuesPerCriterion)
	}
	seen := make(map[string]bool, len(vs))
	out := make([]Value, 0, len(vs))
	for _, v := range vs {
		if err := checkKind(f, v); err != nil {
			return Criterion{}, err
		}
		if seen[v.String()] {
			continue
		}
		seen[v.String()] = true
		out = append(out, v)
	}
	c := newCriterion(f, OpIn)
	c.values = out
	return c, nil
}

// NewRangeCriterion creates a range criterion on an ordered field.
func NewRangeCriterion(f schema.Field, r Range) (Criterion, error) {
	if !f.FieldType().IsOrdered() {
		return Criterion{}, fmt.Errorf("range filter on non-ordered %s field", f.FieldType())
	}
	for _, b := range []*Bound{r.lower, r.upper} {
		if b == nil {
			continue
		}
		if err := checkKind(f, b.Value); err != nil {
			return Criterion{}, err
		}
	}
	c := newCriterion(f, OpRange)
	c.rng = &r
	return c, nil
}

// NewGeoWithin creates a geo-distance criterion on a geo_point field.
func NewGeoWithin(f schema.Field, g GeoDistance) (Criterion, error) {
	if f.FieldType() != schema.GeoPoint {
		return Criterion{}, fmt.Errorf("geo filter on %s field", f.FieldType())
	}
	if !geo.ValidateCoordinates(g.Lat, g.Lon) {
		return Criterion{}, fmt.Errorf("coordinates out of range")
	}
	if g.Meters <= 0 {
		return Criterion{}, fmt.Errorf("radius must be positive")
	}
	c := newCriterion(f, OpGeoWithin)
	c.geo = &g
	return c, nil
}

// NewExists creates a field-presence criterion.
func NewExists(f schema.Field) Criterion {
	return newCriterion(f, OpExists)
}

func checkKind(f schema.Field, v Value) error {
	want := f.FieldType()
	if want == schema.Text {
		want = schema.Keyword
	}
	if want == schema.GeoPoint || v.kind != want {
		return fmt.Errorf("%s literal on %s field", v.kind, f.FieldType())
	}
	return nil
}

// WithRole returns a copy of c with the given role.
func (c Criterion) WithRole(r Role) Criterion {
	c.role = r
	return c
}

// WithScope returns a copy of c bound to a nested scope. The scope key is the nested path,
// suffixed with "#label" when a label is given. Only nested fields accept a scope.
func (c Criterion) WithScope(label string) (Criterion, error) {
	if c.nestedPath == "" {
		if label != "" {
			return Criterion{}, fmt.Errorf("scope label on non-nested field")
		}
		return c, nil
	}
	c.nestedScope = c.nestedPath
	if label != "" {
		c.nestedScope += "#" + label
	}
	return c, nil
}

// Field returns the dotted field path.
func (c Criterion) Field() string { return c.field }

// FieldType returns the declared type of the field.
func (c Criterion) FieldType() schema.Type { return c.fieldType }

// Operator returns the comparison operator.
func (c Criterion) Operator() Operator { return c.op }

// Values returns the literals of EQ/IN criteria.
func (c Criterion) Values() []Value { return c.values }

// Range returns the range of RANGE criteria.
func (c Criterion) Range() *Range { return c.rng }

// Geo returns the circle of GEO_WITHIN criteria.
func (c Criterion) Geo() *GeoDistance { return c.geo }

// Role returns the boolean role.
func (c Criterion) Role() Role { return c.role }

// NestedScope returns the scope key ("" for top-level criteria).
func (c Criterion) NestedScope() string { return c.nestedScope }

// NestedPath returns the nested sub-document path of the field ("" if top-level).
func (c Criterion) NestedPath() string { return c.nestedPath }

// Signature identifies field, operator and operands, ignoring role and scope.
func (c Criterion) Signature() string {
	var b strings.Builder
	b.WriteString(c.field)
	b.WriteByte(' ')
	b.WriteString(string(c.op))
	switch c.op {
	case OpEq, OpIn:
		// IN is set membership: operand order does not matter.
		vals := make([]string, len(c.values))
		for i, v := range c.values {
			vals[i] = v.String()
		}
		sort.Strings(vals)
		b.WriteByte(' ')
		b.WriteString(strings.Join(vals, ","))
	case OpRange:
		b.WriteByte(' ')
		b.WriteString(c.rng.String())
	case OpGeoWithin:
		b.WriteByte(' ')
		b.WriteString(c.geo.String())
	}
	return b.String()
}

func (c Criterion) String() string {
	s := string(c.role) + " " + c.Signature()
	if c.nestedScope != "" {
		s += " @" + c.nestedScope
	}
	return s
}

// CheckContradictions rejects a field filtered with both MUST and MUST_NOT at the same
// operator and operands.
func CheckContradictions(criteria []Criterion) error {
	must := make(map[string]bool)
	for _, c := range criteria {
		if c.role == Must {
			must[c.Signature()] = true
		}
	}
	for _, c := range criteria {
		if c.role == MustNot && must[c.Signature()] {
			return &contradiction{field: c.field, signature: c.Signature()}
		}
	}
	return nil
}

type contradiction struct {
	field     string
	signature string
}

func (e *contradiction) Error() string {
	return fmt.Sprintf("contradictory must and must_not filters: %s", e.signature)
}
