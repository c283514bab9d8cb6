package talentsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels recorded per operation.
const (
	outcomeOK           = "ok"
	outcomeValidation   = "validation"
	outcomeUnauthorized = "unauthorized"
	outcomeForbidden    = "forbidden"
	outcomeUnavailable  = "unavailable"
	outcomeCanceled     = "canceled"
	outcomeTransport    = "transport"
	outcomeServer       = "server_error"
)

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	pageResults prometheus.Histogram
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "talentsearch",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Total SDK operations by type and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "talentsearch",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		pageResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "talentsearch",
			Subsystem: "sdk",
			Name:      "page_results",
			Help:      "Candidates returned per search page.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.pageResults); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses one another client registered.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("talentsearch: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("talentsearch: register metric: %w", err)
	}
	return nil
}

// outcome classifies err by the server's error taxonomy.
func outcome(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrValidation):
		return outcomeValidation
	case errors.Is(err, ErrUnauthorized):
		return outcomeUnauthorized
	case errors.Is(err, ErrForbidden):
		return outcomeForbidden
	case errors.Is(err, ErrUnavailable):
		return outcomeUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	case errors.As(err, &apiErr):
		return outcomeServer
	}
	return outcomeTransport
}

// observer records metrics and logs for SDK operations.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// observe records one operation. page is nil for non-search operations.
func (o *observer) observe(op string, start time.Time, page *Page, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	res := outcome(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, res).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
		if page != nil {
			o.metrics.pageResults.Observe(float64(len(page.Results)))
		}
	}

	if o.logger == nil {
		return
	}
	if err != nil {
		attrs := []any{"op", op, "outcome", res, "duration", dur, "error", err}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			attrs = append(attrs, "code", apiErr.Code)
		}
		o.logger.Warn("talentsearch request failed", attrs...)
		return
	}
	attrs := []any{"op", op, "duration", dur}
	if page != nil {
		attrs = append(attrs, "results", len(page.Results), "has_more", page.HasMore())
	}
	o.logger.Debug("talentsearch request completed", attrs...)
}
