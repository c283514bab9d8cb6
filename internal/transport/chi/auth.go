package chi

import (
	"net/http"
	"strings"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/report"
)

// credentialSchemes are the accepted Authorization header schemes.
var credentialSchemes = []string{"Token ", "Bearer "}

// authenticate resolves the caller credential through the Authorizer and stores the
// granted scopes in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential, ok := credentialFromHeader(r.Header.Get("Authorization"))
		if !ok {
			s.handleDomainError(w, r, domain.NewUnauthorized("authorization header must use Token or Bearer scheme"))
			return
		}

		ctx, err := s.auth.Authorize(r.Context(), credential)
		if err != nil {
			if !domain.IsClientFault(err) {
				s.reporter.Report(r.Context(), report.FromError(r.Context(), err))
			}
			s.handleDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// credentialFromHeader extracts the credential. An empty header yields an empty
// credential; an unknown scheme is rejected.
func credentialFromHeader(header string) (string, bool) {
	if header == "" {
		return "", true
	}
	for _, scheme := range credentialSchemes {
		if len(header) >= len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			return strings.TrimSpace(header[len(scheme):]), true
		}
	}
	return "", false
}
