package search

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentsearch/internal/db"
	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/query"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/ranking"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/result"
	"github.com/kailas-cloud/talentsearch/internal/logger"
	"github.com/kailas-cloud/talentsearch/internal/metrics"
	"github.com/kailas-cloud/talentsearch/internal/report"
)

// Executor defaults.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxRetries  = 2
	DefaultBackoffBase = 100 * time.Millisecond
)

// ExecutorConfig bounds backend calls.
type ExecutorConfig struct {
	// Timeout bounds one logical page fetch, retries included.
	Timeout time.Duration
	// AttemptTimeout bounds a single attempt. Zero disables it.
	AttemptTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
}

// Executor runs compiled queries against the backend with a call timeout and
// bounded exponential-backoff retries.
type Executor struct {
	repo     Repository
	reporter Reporter
	cfg      ExecutorConfig
	tracer   trace.Tracer
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor. Zero config values take the package defaults;
// a negative MaxRetries disables retries.
func NewExecutor(repo Repository, reporter Reporter, cfg ExecutorConfig) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	return &Executor{
		repo:     repo,
		reporter: reporter,
		cfg:      cfg,
		tracer:   otel.Tracer("talentsearch-executor"),
		sleep:    sleepCtx,
	}
}

// Fetch runs q and returns up to size hits after the cursor.
//
// Transport failures, timeouts, 429 and 5xx responses are retried up to
// MaxRetries times, only for the first page. A 4xx rejection is reported once
// with the compiled query and returned as *domain.BackendQueryError. Exhausted
// retries or an elapsed call timeout yield ErrBackendUnavailable. When the
// caller cancels, its context error is returned and nothing is reported.
func (e *Executor) Fetch(
	ctx context.Context, q query.Query, plan ranking.Plan, size int, after *ranking.Cursor,
) (result.Page, error) {
	start := time.Now()
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	retries := e.cfg.MaxRetries
	if after != nil {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			metrics.BackendRetriesTotal.Inc()
			if err := e.sleep(ctx, e.backoff(attempt)); err != nil {
				break
			}
		}

		page, err := e.attempt(ctx, q, plan, size, after, attempt)
		if err == nil {
			metrics.BackendAttemptsTotal.WithLabelValues("ok").Inc()
			observe(start, "ok")
			return page, nil
		}
		lastErr = err

		if parent.Err() != nil {
			metrics.BackendAttemptsTotal.WithLabelValues("canceled").Inc()
			observe(start, "canceled")
			return result.Page{}, parent.Err()
		}

		var se *db.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			metrics.BackendAttemptsTotal.WithLabelValues("rejected").Inc()
			observe(start, "rejected")
			rejected := &domain.BackendQueryError{Status: se.Status, Reason: se.Type}
			ev := report.FromError(ctx, rejected)
			ev.Message = err.Error()
			ev.Query = q.String()
			e.reporter.Report(ctx, ev)
			return result.Page{}, rejected
		}

		metrics.BackendAttemptsTotal.WithLabelValues("retryable").Inc()
		logger.FromContext(ctx).Warn("Backend attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", retries+1),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	if parent.Err() != nil {
		observe(start, "canceled")
		return result.Page{}, parent.Err()
	}
	observe(start, "unavailable")
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return result.Page{}, domain.MarkUnavailable(lastErr)
}

func (e *Executor) attempt(
	ctx context.Context, q query.Query, plan ranking.Plan, size int, after *ranking.Cursor, n int,
) (result.Page, error) {
	ctx, span := e.tracer.Start(ctx, "backend.search",
		trace.WithAttributes(
			attribute.Int("search.attempt", n+1),
			attribute.Int("search.size", size),
			attribute.String("search.sort", string(plan.Sort())),
			attribute.Bool("search.cursor", after != nil),
		),
	)
	defer span.End()

	if e.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.AttemptTimeout)
		defer cancel()
	}

	page, err := e.repo.Fetch(ctx, q, plan, size, after)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend search failed")
		return result.Page{}, err
	}
	span.SetAttributes(attribute.Int("search.hits", len(page.Hits())))
	span.SetStatus(codes.Ok, "")
	return page, nil
}

// backoff returns base * 2^(retry-1).
func (e *Executor) backoff(retry int) time.Duration {
	d := e.cfg.BackoffBase
	for i := 1; i < retry; i++ {
		d *= 2
	}
	return d
}

func observe(start time.Time, res string) {
	metrics.SearchFetchDuration.WithLabelValues(res).Observe(time.Since(start).Seconds())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
