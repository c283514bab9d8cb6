// Package chi exposes the candidate search API over HTTP using the chi router.
package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/candidate"
	logpkg "github.com/kailas-cloud/talentsearch/internal/logger"
	"github.com/kailas-cloud/talentsearch/internal/metrics"
	"github.com/kailas-cloud/talentsearch/internal/report"
	healthuc "github.com/kailas-cloud/talentsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/talentsearch/internal/usecase/search"
	"github.com/kailas-cloud/talentsearch/internal/version"
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeBackendUnavailable = "backend_unavailable"
	codeInternalError      = "internal_error"
)

// Searcher runs one candidate search.
type Searcher interface {
	Search(ctx context.Context, in searchuc.Input) (searchuc.Output, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Authorizer validates a caller credential and returns a context carrying its scopes.
type Authorizer interface {
	Authorize(ctx context.Context, credential string) (context.Context, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the HTTP API.
type Server struct {
	search        Searcher
	health        HealthChecker
	auth          Authorizer
	reporter      report.Reporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type searchResponse struct {
	Results               []candidate.Summary `json:"results"`
	TotalCount            int64               `json:"totalCount"`
	TotalCountApproximate bool                `json:"totalCountApproximate"`
	NextCursor            *string             `json:"nextCursor"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

// NewServer creates an HTTP API server. reporter receives failures raised outside the
// search pipeline, such as replay store errors during authentication.
func NewServer(
	search Searcher,
	health HealthChecker,
	auth Authorizer,
	reporter report.Reporter,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		health:   health,
		auth:     auth,
		reporter: reporter,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, codeForbidden),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, codeBackendUnavailable),
	}
	return s
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/v1/candidates/search", s.SearchCandidates)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// SearchCandidates handles GET /v1/candidates/search.
func (s *Server) SearchCandidates(w http.ResponseWriter, r *http.Request) {
	in, err := searchInputFromQuery(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out, err := s.search.Search(r.Context(), in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := searchResponse{
		Results:               out.Results,
		TotalCount:            out.TotalCount,
		TotalCountApproximate: out.TotalApproximate,
	}
	if resp.Results == nil {
		resp.Results = []candidate.Summary{}
	}
	if out.NextCursor != "" {
		resp.NextCursor = &out.NextCursor
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	rep := s.health.Check(r.Context())

	checks := make(map[string]string, len(rep.Checks))
	for k, v := range rep.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if rep.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{
		Status:  string(rep.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation errors keep their field-level reason.
func safeDomainMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrUnauthorized,
		domain.ErrForbidden,
		domain.ErrBackendUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("request failed", zap.String("error_kind", domain.Kind(err)), zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.String("error_kind", domain.Kind(err)), zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
