package filter

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/geo"
	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
)

// Key syntax.
const (
	mustNotPrefix = "-"
	shouldPrefix  = "~"
	arraySuffix   = "[]"
	scopeSep      = "@"
	existsToken   = "*"
	rangeSep      = ".."
)

// Normalizer turns raw field/value pairs into typed criteria against a schema catalog.
// Safe for concurrent use.
type Normalizer struct {
	catalog *schema.Catalog
}

// NewNormalizer creates a Normalizer over catalog.
func NewNormalizer(catalog *schema.Catalog) *Normalizer {
	return &Normalizer{catalog: catalog}
}

// Normalize validates raw and returns criteria ordered by sorted key.
// Errors are *domain.ValidationError naming the offending key.
func (n *Normalizer) Normalize(raw map[string][]string) ([]Criterion, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Criterion, 0, len(keys))
	for _, k := range keys {
		c, err := n.parseEntry(k, raw[k])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := CheckContradictions(out); err != nil {
		return nil, contradictionError(err)
	}
	return out, nil
}

// EpochToken in a filter value stands for the request's reference time.
const EpochToken = "$epoch"

// ResolveEpoch returns a copy of raw with every EpochToken replaced by epoch.
func ResolveEpoch(raw map[string][]string, epoch time.Time) map[string][]string {
	ts := epoch.UTC().Format(time.RFC3339Nano)
	out := make(map[string][]string, len(raw))
	for k, vals := range raw {
		resolved := make([]string, len(vals))
		for i, v := range vals {
			resolved[i] = strings.ReplaceAll(v, EpochToken, ts)
		}
		out[k] = resolved
	}
	return out
}

func contradictionError(err error) error {
	if c, ok := err.(*contradiction); ok {
		return domain.NewValidation(c.field, "%s", c.Error())
	}
	return domain.NewValidation("", "%s", err.Error())
}

// ValidateAll checks a full criteria sequence (baseline plus request filters) for
// contradictory roles.
func ValidateAll(criteria []Criterion) error {
	if err := CheckContradictions(criteria); err != nil {
		return contradictionError(err)
	}
	return nil
}

func (n *Normalizer) parseEntry(key string, values []string) (Criterion, error) {
	role, path, label := parseKey(key)
	f, ok := n.catalog.Lookup(path)
	if !ok {
		return Criterion{}, domain.NewValidation(path, "unknown field")
	}

	c, err := parseValues(f, values)
	if err != nil {
		return Criterion{}, domain.NewValidation(path, "%s", err.Error())
	}
	c, err = c.WithRole(role).WithScope(label)
	if err != nil {
		return Criterion{}, domain.NewValidation(path, "%s", err.Error())
	}
	return c, nil
}

// parseKey splits "-experience.company[]@a" into (MustNot, "experience.company", "a").
func parseKey(key string) (Role, string, string) {
	role := Must
	switch {
	case strings.HasPrefix(key, mustNotPrefix):
		role, key = MustNot, key[len(mustNotPrefix):]
	case strings.HasPrefix(key, shouldPrefix):
		role, key = Should, key[len(shouldPrefix):]
	}

	var label string
	if i := strings.LastIndex(key, scopeSep); i >= 0 {
		key, label = key[:i], key[i+len(scopeSep):]
	}
	key = strings.TrimSuffix(key, arraySuffix)
	return role, key, label
}

func parseValues(f schema.Field, raw []string) (Criterion, error) {
	vals := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return Criterion{}, fmt.Errorf("empty IN set")
	}

	if len(vals) == 1 {
		v := vals[0]
		switch {
		case v == existsToken:
			return NewExists(f), nil
		case f.FieldType() == schema.GeoPoint:
			g, err := parseGeo(v)
			if err != nil {
				return Criterion{}, err
			}
			return NewGeoWithin(f, g)
		case f.FieldType().IsOrdered() && strings.Contains(v, rangeSep):
			r, err := parseRange(f.FieldType(), v)
			if err != nil {
				return Criterion{}, err
			}
			return NewRangeCriterion(f, r)
		}
		lit, err := parseLiteral(f.FieldType(), v)
		if err != nil {
			return Criterion{}, err
		}
		return NewEq(f, lit)
	}

	if f.FieldType() == schema.GeoPoint {
		return Criterion{}, fmt.Errorf("geo_point accepts a single lat,lon~radius token")
	}
	lits := make([]Value, 0, len(vals))
	for _, v := range vals {
		if v == existsToken {
			return Criterion{}, fmt.Errorf("%q cannot be combined with other values", existsToken)
		}
		if f.FieldType().IsOrdered() && strings.Contains(v, rangeSep) {
			return Criterion{}, fmt.Errorf("range %q cannot be combined with other values", v)
		}
		lit, err := parseLiteral(f.FieldType(), v)
		if err != nil {
			return Criterion{}, err
		}
		lits = append(lits, lit)
	}
	if len(lits) == 1 {
		return NewEq(f, lits[0])
	}
	return NewIn(f, lits)
}

func parseLiteral(t schema.Type, s string) (Value, error) {
	switch t {
	case schema.Keyword, schema.Text:
		return StringValue(s), nil
	case schema.Integer:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("type mismatch: %q is not an integer", s)
		}
		return IntValue(i), nil
	case schema.Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("type mismatch: %q is not a number", s)
		}
		return FloatValue(f), nil
	case schema.Boolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, fmt.Errorf("type mismatch: %q is not a boolean", s)
		}
		return BoolValue(b), nil
	case schema.Date:
		tm, err := dateparse.ParseStrict(s)
		if err != nil {
			return Value{}, fmt.Errorf("type mismatch: %q is not a date", s)
		}
		return DateValue(tm), nil
	}
	return Value{}, fmt.Errorf("type mismatch: %s field does not accept %q", t, s)
}

// parseRange parses "[lo..hi]", "(lo..hi)", "lo..", "..hi". Brackets default to inclusive.
func parseRange(t schema.Type, s string) (Range, error) {
	lowerIncl, upperIncl := true, true
	switch {
	case strings.HasPrefix(s, "["):
		s = s[1:]
	case strings.HasPrefix(s, "("):
		lowerIncl, s = false, s[1:]
	}
	switch {
	case strings.HasSuffix(s, "]"):
		s = s[:len(s)-1]
	case strings.HasSuffix(s, ")"):
		upperIncl, s = false, s[:len(s)-1]
	}

	i := strings.Index(s, rangeSep)
	if i < 0 {
		return Range{}, fmt.Errorf("malformed range %q", s)
	}
	lo, hi := strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(rangeSep):])

	var lower, upper *Bound
	if lo != "" {
		v, err := parseLiteral(t, lo)
		if err != nil {
			return Range{}, err
		}
		lower = &Bound{Value: v, Inclusive: lowerIncl}
	}
	if hi != "" {
		v, err := parseLiteral(t, hi)
		if err != nil {
			return Range{}, err
		}
		upper = &Bound{Value: v, Inclusive: upperIncl}
	}
	r, err := NewRange(lower, upper)
	if err != nil {
		return Range{}, fmt.Errorf("malformed range: %w", err)
	}
	return r, nil
}

var unitMeters = map[string]float64{
	"m":  1,
	"km": 1000,
	"mi": 1609.344,
}

// parseGeo parses "lat,lon~radius[unit]", unit m|km|mi, default km.
func parseGeo(s string) (GeoDistance, error) {
	coords, radius, ok := strings.Cut(s, "~")
	if !ok {
		return GeoDistance{}, fmt.Errorf("malformed geo token %q: want lat,lon~radius", s)
	}
	lat, lon, err := geo.ParseLatLon(coords)
	if err != nil {
		return GeoDistance{}, fmt.Errorf("malformed geo token %q: %w", s, err)
	}

	radius = strings.TrimSpace(radius)
	numEnd := strings.IndexFunc(radius, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	unit := "km"
	if numEnd >= 0 {
		unit = radius[numEnd:]
		radius = radius[:numEnd]
	}
	mult, ok := unitMeters[unit]
	if !ok {
		return GeoDistance{}, fmt.Errorf("malformed geo token %q: unknown unit %q", s, unit)
	}
	r, err := strconv.ParseFloat(radius, 64)
	if err != nil || r <= 0 {
		return GeoDistance{}, fmt.Errorf("malformed geo token %q: radius must be positive", s)
	}
	return GeoDistance{Lat: lat, Lon: lon, Meters: r * mult}, nil
}
