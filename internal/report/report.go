// Package report forwards server-side failures to crash reporting backends.
package report

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentsearch/internal/domain"
)

// Event is one reported failure.
type Event struct {
	Kind      string
	Message   string
	RequestID string
	// Query is the compiled query for backend rejections, empty otherwise.
	Query string
}

// Reporter receives server-side failures. Implementations must be safe for
// concurrent use and must not block the request path.
type Reporter interface {
	Report(ctx context.Context, ev Event)
}

// FromError builds an event for err, taking the request id from ctx.
func FromError(ctx context.Context, err error) Event {
	return Event{
		Kind:      domain.Kind(err),
		Message:   err.Error(),
		RequestID: middleware.GetReqID(ctx),
	}
}

// Log writes events to a zap logger.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a log reporter.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

// Report logs ev at error level.
func (l *Log) Report(_ context.Context, ev Event) {
	fields := []zap.Field{
		zap.String("error_kind", ev.Kind),
		zap.String("request_id", ev.RequestID),
	}
	if ev.Query != "" {
		fields = append(fields, zap.String("query", ev.Query))
	}
	l.logger.Error(ev.Message, fields...)
}

// Sentry sends events to Sentry through a dedicated hub.
type Sentry struct {
	hub *sentry.Hub
}

// NewSentry creates a Sentry reporter for dsn.
func NewSentry(dsn, environment, release string) (*Sentry, error) {
	return newSentry(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
}

func newSentry(opts sentry.ClientOptions) (*Sentry, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Report captures ev as a Sentry event.
func (s *Sentry) Report(_ context.Context, ev Event) {
	e := sentry.NewEvent()
	e.Level = sentry.LevelError
	e.Message = ev.Message
	e.Tags = map[string]string{"error_kind": ev.Kind}
	if ev.RequestID != "" {
		e.Tags["request_id"] = ev.RequestID
	}
	if ev.Query != "" {
		e.Extra = map[string]any{"query": ev.Query}
	}
	s.hub.CaptureEvent(e)
}

// Flush waits for queued events.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}

// Multi fans an event out to several reporters.
type Multi []Reporter

// Report forwards ev to every reporter.
func (m Multi) Report(ctx context.Context, ev Event) {
	for _, r := range m {
		r.Report(ctx, ev)
	}
}

// Nop discards events.
type Nop struct{}

// Report does nothing.
func (Nop) Report(context.Context, Event) {}
