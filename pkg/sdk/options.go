package talentsearch

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// CredentialSource returns a credential for one request. It is called once per request.
type CredentialSource func(ctx context.Context) (string, error)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	httpClient  *http.Client
	credentials CredentialSource
	scheme      string
	userAgent   string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithHTTPClient sets the HTTP client. Defaults to a client with a 10s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithCredentialSource sets the per-request credential provider.
func WithCredentialSource(src CredentialSource) Option {
	return optionFunc(func(c *clientConfig) {
		c.credentials = src
	})
}

// WithBearer sends credentials with the Bearer scheme instead of Token (JWT deployments).
func WithBearer() Option {
	return optionFunc(func(c *clientConfig) {
		c.scheme = "Bearer"
	})
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
