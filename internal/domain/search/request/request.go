package request

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxKeywordsLength is the maximum allowed keywords length.
	MaxKeywordsLength = 512
	DefaultPageSize   = 20
	MaxPageSize       = 100
	MaxBoosts         = 16
	MaxBoostWeight    = 1000
	MaxPresented      = filter.MaxValuesPerCriterion
)

// Params are the caller-supplied search parameters after filter normalization.
type Params struct {
	Criteria  []filter.Criterion
	Keywords  string
	Sort      mode.Sort
	Boosts    map[string]float64
	PageSize  int
	Cursor    string
	Epoch     time.Time
	// Presented lists candidate ids visible regardless of the visibility filters.
	Presented []string
}

// Request is a validated search query. Created per call, consumed once.
type Request struct {
	criteria  []filter.Criterion
	keywords  string
	sort      mode.Sort
	boosts    map[string]float64
	pageSize  int
	cursor    string
	epoch     time.Time
	presented []string
}

// New validates search parameters against catalog.
// Defaults: sort=relevance, pageSize=20. Errors are *domain.ValidationError.
func New(p Params, catalog *schema.Catalog) (Request, error) {
	if p.Sort == "" {
		p.Sort = mode.Relevance
	}
	if !p.Sort.IsValid() {
		return Request{}, domain.NewValidation("sort", "invalid sort mode: %q", p.Sort)
	}
	switch {
	case p.PageSize == 0:
		p.PageSize = DefaultPageSize
	case p.PageSize < 1 || p.PageSize > MaxPageSize:
		return Request{}, domain.NewValidation("page_size", "must be between 1 and %d", MaxPageSize)
	}
	p.Keywords = strings.TrimSpace(p.Keywords)
	if len(p.Keywords) > MaxKeywordsLength {
		return Request{}, domain.NewValidation("keywords", "too long (max %d chars)", MaxKeywordsLength)
	}
	if p.Epoch.IsZero() {
		return Request{}, domain.NewValidation("epoch", "reference time is required")
	}

	if len(p.Boosts) > MaxBoosts {
		return Request{}, domain.NewValidation("boost", "too many boosts (max %d)", MaxBoosts)
	}
	boosts := make(map[string]float64, len(p.Boosts))
	for field, w := range p.Boosts {
		if _, ok := catalog.Lookup(field); !ok {
			return Request{}, domain.NewValidation("boost."+field, "unknown field")
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 || w > MaxBoostWeight {
			return Request{}, domain.NewValidation("boost."+field, "weight must be in (0, %d]", MaxBoostWeight)
		}
		boosts[field] = w
	}
	if p.Sort == mode.CustomBoost && len(boosts) == 0 {
		return Request{}, domain.NewValidation("sort", "custom_boost requires at least one boost")
	}

	presented, err := normalizeIDs(p.Presented)
	if err != nil {
		return Request{}, err
	}

	if err := filter.ValidateAll(p.Criteria); err != nil {
		return Request{}, err
	}
	criteria := make([]filter.Criterion, len(p.Criteria))
	copy(criteria, p.Criteria)

	return Request{
		criteria: criteria,
		keywords: p.Keywords,
		sort:     p.Sort,
		boosts:   boosts,
		pageSize: p.PageSize,
		cursor:    p.Cursor,
		epoch:     p.Epoch.UTC(),
		presented: presented,
	}, nil
}

func normalizeIDs(ids []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) > MaxPresented {
		return nil, domain.NewValidation("presented", "too many ids (max %d)", MaxPresented)
	}
	return out, nil
}

// ParseEpoch parses a caller-supplied reference time: UNIX seconds or a date.
func ParseEpoch(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, domain.NewValidation("epoch", "not a date or unix time: %q", s)
	}
	return t.UTC(), nil
}

// Criteria returns the validated filter criteria in order.
func (r *Request) Criteria() []filter.Criterion { return r.criteria }

// Keywords returns the free-text keywords ("" if none).
func (r *Request) Keywords() string { return r.keywords }

// Sort returns the ranking strategy.
func (r *Request) Sort() mode.Sort { return r.sort }

// Boosts returns per-field weights.
func (r *Request) Boosts() map[string]float64 { return r.boosts }

// PageSize returns the maximum number of results per page.
func (r *Request) PageSize() int { return r.pageSize }

// Cursor returns the opaque pagination token ("" for the first page).
func (r *Request) Cursor() string { return r.cursor }

// Epoch returns the reference time for recency decay and visibility windows.
func (r *Request) Epoch() time.Time { return r.epoch }

// Presented returns the ids that bypass the visibility filters.
func (r *Request) Presented() []string { return r.presented }

// WithEpoch returns a copy pinned to a cursor's reference time.
func (r Request) WithEpoch(t time.Time) Request {
	r.epoch = t.UTC()
	return r
}
