package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/talentsearch/internal/domain/scope"
	authuc "github.com/kailas-cloud/talentsearch/internal/usecase/auth"
)

const (
	testJWTSecret  = "0123456789abcdef0123456789abcdef"
	testTOTPSecret = "JBSWY3DPEHPK3PXP"
)

func writeConfig(t *testing.T, driver, addr, authMode string) string {
	t.Helper()
	data := fmt.Sprintf(`
http:
  port: 8080
backend:
  driver: %s
  addrs: [%q]
  index: talents
auth:
  mode: %s
  totp:
    keys:
      - {name: recruiting, secret: %s, scopes: [search]}
  jwt:
    secret: %s
    issuer: talentctl
schema:
  recency_field: added_at
  fields:
    - {name: id, type: keyword}
    - {name: accepted, type: boolean}
    - {name: added_at, type: date}
    - {name: batch_starts_at, type: date}
    - {name: batch_ends_at, type: date}
    - {name: skills, type: keyword, keyword_search: true}
    - {name: yearsExperience, type: integer}
    - {name: experience.company, type: keyword, nested: experience}
search:
  baseline_filters:
    accepted: ["true"]
    batch_starts_at: ["..$epoch"]
    batch_ends_at: ["$epoch.."]
`, driver, addr, authMode, testTOTPSecret, testJWTSecret)
	path := filepath.Join(t.TempDir(), "talentsearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"talentctl", "--env", "test"}, args...))
	return out.String(), err
}

func TestToken_JWT(t *testing.T) {
	cfg := writeConfig(t, "memory", "", "jwt")

	out, err := run(t, "--config", cfg, "token", "--subject", "ops", "--scope", "search", "--scope", "contact")
	require.NoError(t, err)

	v, err := authuc.NewJWTVerifier(testJWTSecret, "talentctl", 0)
	require.NoError(t, err)
	grant, err := v.Verify(strings.TrimSpace(out), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "ops", grant.Subject)
	assert.True(t, grant.Scopes.Has(scope.Search))
	assert.True(t, grant.Scopes.Has("contact"))
}

func TestToken_TOTP(t *testing.T) {
	cfg := writeConfig(t, "memory", "", "totp")

	out, err := run(t, "--config", cfg, "token")
	require.NoError(t, err)
	credential := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(credential, "recruiting:"), credential)

	v, err := authuc.NewTOTPVerifier([]authuc.TOTPKey{
		{Name: "recruiting", Secret: testTOTPSecret, Scopes: []string{scope.Search}},
	}, authuc.DefaultPeriod, authuc.DefaultSkew)
	require.NoError(t, err)
	_, err = v.Verify(credential, time.Now())
	require.NoError(t, err)

	_, err = run(t, "--config", cfg, "token", "--key", "unknown")
	require.Error(t, err)
}

func TestCompile(t *testing.T) {
	cfg := writeConfig(t, "memory", "", "totp")

	out, err := run(t, "--config", cfg, "compile", "--page-size", "5", "--keywords", "rust",
		"skills=go", "skills=rust", "yearsExperience=3..", "experience.company@a=acme")
	require.NoError(t, err)

	compiled, body, ok := strings.Cut(out, "\n")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(compiled, "compiled: must["), compiled)
	assert.Contains(t, compiled, "accepted")

	var req map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, float64(6), req["size"])
	assert.NotContains(t, req, "search_after")
	assert.Contains(t, body, `"nested"`)
	assert.Contains(t, body, `"multi_match"`)
}

func TestCompile_EpochWindow(t *testing.T) {
	cfg := writeConfig(t, "memory", "", "totp")

	out, err := run(t, "--config", cfg, "compile", "--epoch", "2040-01-01", "skills=go")
	require.NoError(t, err)
	compiled, _, _ := strings.Cut(out, "\n")
	assert.Contains(t, compiled, "range(batch_starts_at [..2040-01-01T00:00:00Z])")
	assert.Contains(t, compiled, "range(batch_ends_at [2040-01-01T00:00:00Z..])")
	assert.NotContains(t, compiled, "$epoch")

	out, err = run(t, "--config", cfg, "compile", "--epoch", "2040-01-01", "--presented", "c7", "skills=go")
	require.NoError(t, err)
	compiled, _, _ = strings.Cut(out, "\n")
	assert.True(t, strings.HasPrefix(compiled, "compiled: must[bool(must[] should[bool("), compiled)
	assert.Contains(t, compiled, "terms(id c7)")
}

func TestCompile_Rejects(t *testing.T) {
	cfg := writeConfig(t, "memory", "", "totp")

	for _, args := range [][]string{
		{"compile", "skills"},
		{"compile", "unknown=1"},
		{"compile", "yearsExperience=5..1"},
		{"compile", "--boost", "skills=heavy"},
		{"compile", "--sort", "newest"},
		{"compile", "--epoch", "someday"},
		{"compile", "accepted=true", "-accepted=true"},
	} {
		_, err := run(t, append([]string{"--config", cfg}, args...)...)
		assert.Error(t, err, "%v", args)
	}
}

func TestResetIndex(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
		body  map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception","reason":"no such index"},"status":404}`))
		case http.MethodPut:
			_ = json.NewDecoder(r.Body).Decode(&body)
			_, _ = w.Write([]byte(`{"acknowledged":true,"index":"talents"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	cfg := writeConfig(t, "elastic", srv.URL, "totp")

	_, err := run(t, "--config", cfg, "reset-index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err := run(t, "--config", cfg, "reset-index", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "index talents recreated")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"DELETE /talents", "PUT /talents"}, calls)
	mappings, _ := body["mappings"].(map[string]any)
	require.NotNil(t, mappings)
	props, _ := mappings["properties"].(map[string]any)
	require.NotNil(t, props)
	experience, _ := props["experience"].(map[string]any)
	assert.Equal(t, "nested", experience["type"])
}

func TestResetIndex_NeedsElastic(t *testing.T) {
	cfg := writeConfig(t, "memory", "", "totp")
	_, err := run(t, "--config", cfg, "reset-index", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elastic")
}
