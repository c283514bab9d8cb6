package memory

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/kailas-cloud/talentsearch/internal/domain/geo"
	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/query"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/ranking"
)

// evalQuery reports whether doc matches q and its base score: 1, plus one per
// matched SHOULD clause, plus one per keyword token found.
func evalQuery(q query.Query, doc map[string]any) (float64, bool) {
	for _, c := range q.MustNot() {
		if evalClause(c, doc, "") {
			return 0, false
		}
	}
	score := 1.0
	for _, c := range q.Must() {
		if c.Kind() == query.KindMultiMatch {
			hits := keywordHits(c, doc)
			if hits == 0 {
				return 0, false
			}
			score += float64(hits)
			continue
		}
		if !evalClause(c, doc, "") {
			return 0, false
		}
	}
	should := 0
	for _, c := range q.Should() {
		if evalClause(c, doc, "") {
			should++
		}
	}
	if should < q.MinimumShouldMatch() {
		return 0, false
	}
	return score + float64(should), true
}

// evalClause matches one clause against obj. prefix is the nested path (with a
// trailing dot) obj was reached through.
func evalClause(c query.Clause, obj map[string]any, prefix string) bool {
	rel := strings.TrimPrefix(c.Field(), prefix)
	switch c.Kind() {
	case query.KindTerm, query.KindTerms:
		for _, v := range lookup(obj, rel) {
			for _, lit := range c.Values() {
				if n, ok := compare(v, lit); ok && n == 0 {
					return true
				}
			}
		}
	case query.KindRange:
		for _, v := range lookup(obj, rel) {
			if inRange(v, c.Range()) {
				return true
			}
		}
	case query.KindGeoDistance:
		g := c.Geo()
		for _, v := range lookup(obj, rel) {
			if lat, lon, ok := toPoint(v); ok && geo.Haversine(lat, lon, g.Lat, g.Lon) <= g.Meters {
				return true
			}
		}
	case query.KindExists:
		return len(lookup(obj, rel)) > 0
	case query.KindMatch:
		return tokenHits(c.Text(), lookup(obj, rel)) > 0
	case query.KindMultiMatch:
		return keywordHits(c, obj) > 0
	case query.KindBool:
		_, ok := evalQuery(*c.Sub(), obj)
		return ok
	case query.KindNested:
		inner := c.Path() + "."
		for _, v := range lookup(obj, strings.TrimPrefix(c.Path(), prefix)) {
			entry, ok := v.(map[string]any)
			if !ok {
				continue
			}
			all := true
			for _, in := range c.Inner() {
				if !evalClause(in, entry, inner) {
					all = false
					break
				}
			}
			if all {
				return true
			}
		}
	}
	return false
}

func keywordHits(c query.Clause, obj map[string]any) int {
	var vals []any
	for _, f := range c.Fields() {
		vals = append(vals, lookup(obj, strings.TrimSuffix(f, "."+schema.TextSubfield))...)
	}
	return tokenHits(c.Text(), vals)
}

// tokenHits counts query tokens found as case-insensitive substrings of any value.
func tokenHits(text string, vals []any) int {
	var hay []string
	for _, v := range vals {
		if s, ok := v.(string); ok {
			hay = append(hay, strings.ToLower(s))
		}
	}
	n := 0
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		for _, h := range hay {
			if strings.Contains(h, tok) {
				n++
				break
			}
		}
	}
	return n
}

// lookup returns the non-null values at a dotted path, flattening arrays.
func lookup(obj map[string]any, path string) []any {
	cur := []any{obj}
	for _, seg := range strings.Split(path, ".") {
		var next []any
		for _, v := range cur {
			m, ok := v.(map[string]any)
			if !ok {
				continue
			}
			switch val := m[seg].(type) {
			case nil:
			case []any:
				for _, el := range val {
					if el != nil {
						next = append(next, el)
					}
				}
			default:
				next = append(next, val)
			}
		}
		cur = next
	}
	return cur
}

// compare orders a document value against a literal. ok is false on type mismatch.
func compare(v any, lit filter.Value) (int, bool) {
	switch lit.Kind() {
	case schema.Integer, schema.Float:
		f, ok := toFloat(v)
		if !ok {
			return 0, false
		}
		l := lit.Float()
		if lit.Kind() == schema.Integer {
			l = float64(lit.Int())
		}
		return cmpFloat(f, l), true
	case schema.Boolean:
		b, ok := v.(bool)
		if !ok || b != lit.Bool() {
			return 1, ok
		}
		return 0, true
	case schema.Date:
		t, ok := toTime(v)
		if !ok {
			return 0, false
		}
		return t.Compare(lit.Time()), true
	default:
		s, ok := v.(string)
		return strings.Compare(s, lit.Str()), ok
	}
}

func inRange(v any, r *filter.Range) bool {
	if lo := r.Lower(); lo != nil {
		n, ok := compare(v, lo.Value)
		if !ok || n < 0 || (n == 0 && !lo.Inclusive) {
			return false
		}
	}
	if hi := r.Upper(); hi != nil {
		n, ok := compare(v, hi.Value)
		if !ok || n > 0 || (n == 0 && !hi.Inclusive) {
			return false
		}
	}
	return true
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	}
	return 0, false
}

// toTime accepts date strings and epoch milliseconds.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		if tm, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return tm, true
		}
		tm, err := dateparse.ParseStrict(t)
		return tm, err == nil
	case json.Number:
		ms, err := t.Int64()
		return time.UnixMilli(ms), err == nil
	}
	return time.Time{}, false
}

// toPoint accepts {"lat":..,"lon":..} objects and "lat,lon" strings.
func toPoint(v any) (lat, lon float64, ok bool) {
	switch p := v.(type) {
	case map[string]any:
		lat, ok1 := toFloat(p["lat"])
		lon, ok2 := toFloat(p["lon"])
		return lat, lon, ok1 && ok2
	case string:
		lat, lon, err := geo.ParseLatLon(p)
		return lat, lon, err == nil
	}
	return 0, 0, false
}

func recency(plan ranking.Plan, doc map[string]any) (time.Time, bool) {
	if !plan.Decays() {
		return time.Time{}, false
	}
	for _, v := range lookup(doc, plan.RecencyField()) {
		if t, ok := toTime(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
