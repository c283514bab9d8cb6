package search

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/candidate"
	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
	"github.com/kailas-cloud/talentsearch/internal/domain/scope"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/query"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/ranking"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/request"
	"github.com/kailas-cloud/talentsearch/internal/metrics"
	"github.com/kailas-cloud/talentsearch/internal/report"
)

// Input is one caller search call before validation.
type Input struct {
	// Filters maps filter keys (with role prefix and scope suffix) to raw values.
	Filters  map[string][]string
	Keywords string
	Sort     string
	Boosts   map[string]float64
	PageSize int
	Cursor   string

	// Epoch is the caller's reference time; empty means now. A cursor pins it.
	Epoch     string
	// Presented lists candidate ids that skip the baseline visibility filters.
	Presented []string
}

// Output is one ranked page.
type Output struct {
	Results          []candidate.Summary
	TotalCount       int64
	TotalApproximate bool
	// NextCursor is empty on the last page.
	NextCursor string
}

// Config holds pipeline settings.
type Config struct {
	HalfLifeDays float64
	// Baseline holds raw filters applied to every search. Values may reference
	// filter.EpochToken, resolved against the request epoch.
	Baseline map[string][]string
}

// Service runs the search pipeline: normalize, compile, fetch, paginate, shape.
type Service struct {
	catalog    *schema.Catalog
	normalizer *filter.Normalizer
	fetcher    Fetcher
	shaper     *candidate.Shaper
	reporter   Reporter
	baseline   map[string][]string
	halfLife   float64
	now        func() time.Time
}

// New creates a search service. Baseline filters are validated here and resolved
// per request.
func New(
	catalog *schema.Catalog, fetcher Fetcher, shaper *candidate.Shaper,
	reporter Reporter, cfg Config,
) (*Service, error) {
	n := filter.NewNormalizer(catalog)
	if _, err := n.Normalize(filter.ResolveEpoch(cfg.Baseline, time.Now())); err != nil {
		return nil, errors.Wrap(err, "baseline filters")
	}
	return &Service{
		catalog:    catalog,
		normalizer: n,
		fetcher:    fetcher,
		shaper:     shaper,
		reporter:   reporter,
		baseline:   cfg.Baseline,
		halfLife:   cfg.HalfLifeDays,
		now:        time.Now,
	}, nil
}

// Search returns one page for in. Scopes come from the context (set by the auth gate).
// Client faults are returned as is; server-side failures other than backend
// rejections (reported by the executor) are reported here.
func (s *Service) Search(ctx context.Context, in Input) (Output, error) {
	out, err := s.search(ctx, in)
	if err != nil {
		if !domain.IsClientFault(err) &&
			!errors.Is(err, domain.ErrBackendQuery) &&
			!errors.Is(err, context.Canceled) {
			s.reporter.Report(ctx, report.FromError(ctx, err))
		}
		return Output{}, err
	}
	return out, nil
}

func (s *Service) search(ctx context.Context, in Input) (Output, error) {
	criteria, err := s.normalizer.Normalize(in.Filters)
	if err != nil {
		return Output{}, err
	}

	sortMode, ok := mode.Parse(in.Sort)
	if !ok {
		return Output{}, domain.NewValidation("sort", "invalid sort mode: %q", in.Sort)
	}

	epoch := s.now()
	if in.Epoch != "" {
		if epoch, err = request.ParseEpoch(in.Epoch); err != nil {
			return Output{}, err
		}
	}
	var after *ranking.Cursor
	if in.Cursor != "" {
		c, err := ranking.DecodeCursor(in.Cursor)
		if err != nil {
			return Output{}, err
		}
		if err := c.Check(sortMode); err != nil {
			return Output{}, err
		}
		if in.Epoch != "" && !c.EpochTime().Equal(epoch) {
			return Output{}, domain.NewValidation("epoch", "does not match the cursor")
		}
		epoch = c.EpochTime()
		after = &c
	}

	visibility, err := s.normalizer.Normalize(filter.ResolveEpoch(s.baseline, epoch))
	if err != nil {
		return Output{}, errors.Wrap(err, "baseline filters")
	}
	if len(in.Presented) == 0 {
		criteria = append(visibility, criteria...)
		visibility = nil
	}

	req, err := request.New(request.Params{
		Criteria:  criteria,
		Keywords:  in.Keywords,
		Sort:      sortMode,
		Boosts:    in.Boosts,
		PageSize:  in.PageSize,
		Cursor:    in.Cursor,
		Epoch:     epoch,
		Presented: in.Presented,
	}, s.catalog)
	if err != nil {
		return Output{}, err
	}

	opts := []query.Option{query.WithKeywords(req.Keywords(), s.catalog.KeywordFields())}
	if len(visibility) > 0 {
		opts = append(opts, query.WithVisibility(visibility, s.catalog.IDField(), req.Presented()))
	}
	q := query.Compile(req.Criteria(), opts...)
	plan := ranking.NewPlan(
		req.Sort(), req.Epoch(), s.halfLife, s.catalog.RecencyField(), req.Criteria(), req.Boosts(),
	)

	page, err := s.fetcher.Fetch(ctx, q, plan, req.PageSize()+1, after)
	if err != nil {
		return Output{}, err
	}
	hits, next := ranking.Paginate(page.Hits(), req.PageSize(), after, plan)

	scopes, _ := scope.FromContext(ctx)
	results := make([]candidate.Summary, 0, len(hits))
	for _, h := range hits {
		sum, err := s.shaper.Shape(scopes, h.Source())
		if err != nil {
			return Output{}, errors.Wrapf(err, "shape %s", h.ID())
		}
		results = append(results, sum)
	}
	metrics.SearchResultsTotal.Observe(float64(len(results)))

	out := Output{
		Results:          results,
		TotalCount:       page.Total(),
		TotalApproximate: page.Approximate(),
	}
	if next != nil {
		out.NextCursor = next.Encode()
	}
	return out, nil
}
