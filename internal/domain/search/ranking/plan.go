// Package ranking adjusts backend scores and produces stable cursor-paginated pages.
//
// adjusted = base × recencyWeight + Σ weight(matched boosted criterion)
//
// recencyWeight = exp(-ageDays / halfLifeDays) in decaying sort modes, else 1.
// Backends apply the Plan so that their sort key equals adjusted; Paginate then
// re-sorts by (adjusted desc, id asc) and cuts the page.
package ranking

import (
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/talentsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/mode"
)

// DefaultHalfLifeDays is the recency decay constant used when config leaves it unset.
const DefaultHalfLifeDays = 30

// Boost is a weighted criterion: matching documents gain Weight.
type Boost struct {
	Name      string
	Criterion filter.Criterion
	Weight    float64
}

// Plan is the backend-agnostic description of how to score hits.
type Plan struct {
	sort         mode.Sort
	epoch        time.Time
	halfLifeDays float64
	recencyField string
	boosts       []Boost
}

// NewPlan binds caller weights to the MUST and SHOULD criteria on weighted fields.
// Boost names are stable for a given criteria order.
func NewPlan(
	sort mode.Sort, epoch time.Time, halfLifeDays float64, recencyField string,
	criteria []filter.Criterion, weights map[string]float64,
) Plan {
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}
	p := Plan{
		sort:         sort,
		epoch:        epoch.UTC(),
		halfLifeDays: halfLifeDays,
		recencyField: recencyField,
	}
	for _, c := range criteria {
		if c.Role() == filter.MustNot {
			continue
		}
		w, ok := weights[c.Field()]
		if !ok || w == 0 {
			continue
		}
		p.boosts = append(p.boosts, Boost{
			Name:      fmt.Sprintf("boost_%d", len(p.boosts)),
			Criterion: c,
			Weight:    w,
		})
	}
	return p
}

// Sort returns the sort mode.
func (p Plan) Sort() mode.Sort { return p.sort }

// Epoch returns the reference time for recency decay.
func (p Plan) Epoch() time.Time { return p.epoch }

// HalfLifeDays returns the decay constant.
func (p Plan) HalfLifeDays() float64 { return p.halfLifeDays }

// RecencyField returns the date field decayed on.
func (p Plan) RecencyField() string { return p.recencyField }

// Boosts returns the weighted criteria.
func (p Plan) Boosts() []Boost { return p.boosts }

// Decays reports whether recency decay applies.
func (p Plan) Decays() bool {
	return p.sort.Decays() && p.recencyField != ""
}

// IsPlain reports whether adjusted equals the backend's base relevance.
func (p Plan) IsPlain() bool {
	return !p.Decays() && len(p.boosts) == 0
}

// RecencyWeight returns exp(-|epoch - t| in days / halfLife). Documents without a
// recency value, and non-decaying modes, weigh 1.
func (p Plan) RecencyWeight(t time.Time, ok bool) float64 {
	if !p.Decays() || !ok {
		return 1
	}
	age := math.Abs(p.epoch.Sub(t).Hours()) / 24
	return math.Exp(-age / p.halfLifeDays)
}

// Adjusted computes the final score of a document.
func (p Plan) Adjusted(base float64, t time.Time, hasTime bool, matched func(Boost) bool) float64 {
	s := base * p.RecencyWeight(t, hasTime)
	for _, b := range p.boosts {
		if matched(b) {
			s += b.Weight
		}
	}
	return s
}
