package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:    HTTPConfig{Port: 8080},
		Backend: BackendConfig{Driver: "memory"},
		Auth:    AuthConfig{Mode: "none"},
		Schema: SchemaConfig{
			IDField: "id",
			Fields:  []FieldConfig{{Name: "id", Type: "keyword"}},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		errPart string
	}{
		{"valid", func(*Config) {}, ""},
		{"port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"driver", func(c *Config) { c.Backend.Driver = "solr" }, "backend.driver"},
		{"elastic addrs", func(c *Config) { c.Backend.Driver = "elastic" }, "backend.addrs"},
		{"index name", func(c *Config) { c.Backend.Index = "Talents" }, "backend.index"},
		{"attempt timeout", func(c *Config) { c.Backend.AttemptTimeoutMs = -1 }, "attempt_timeout_ms"},
		{"auth mode", func(c *Config) { c.Auth.Mode = "basic" }, "auth.mode"},
		{"totp keys", func(c *Config) { c.Auth.Mode = "totp" }, "auth.totp.keys"},
		{"jwt secret", func(c *Config) { c.Auth.Mode = "jwt"; c.Auth.JWT.Secret = "short" }, "auth.jwt.secret"},
		{"replay driver", func(c *Config) { c.Replay.Driver = "etcd" }, "replay.driver"},
		{"redis addrs", func(c *Config) { c.Replay.Driver = "redis" }, "replay.addrs"},
		{"schema type", func(c *Config) {
			c.Schema.Fields = append(c.Schema.Fields, FieldConfig{Name: "x", Type: "blob"})
		}, "schema"},
		{"schema id", func(c *Config) { c.Schema.IDField = "missing" }, "id field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errPart == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.errPart)
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error = %q, want substring %q", err, tt.errPart)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.WriteTimeoutSec != 10 || cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("unexpected http timeouts %+v", cfg.HTTP)
	}
	if cfg.Backend.Driver != "elastic" {
		t.Errorf("expected driver elastic, got %q", cfg.Backend.Driver)
	}
	if cfg.Backend.Index != "talents" {
		t.Errorf("expected index talents, got %q", cfg.Backend.Index)
	}
	if cfg.Backend.TimeoutMs != 5000 || cfg.Backend.BackoffBaseMs != 100 {
		t.Errorf("unexpected backend timings %+v", cfg.Backend)
	}
	if cfg.Auth.Mode != "totp" || cfg.Auth.RequiredScope != "search" || cfg.Auth.TOTP.PeriodSec != 30 {
		t.Errorf("unexpected auth defaults %+v", cfg.Auth)
	}
	if cfg.Replay.Driver != "memory" || cfg.Replay.KeyPrefix != "talentsearch:replay:" {
		t.Errorf("unexpected replay defaults %+v", cfg.Replay)
	}
	if cfg.Schema.IDField != "id" {
		t.Errorf("expected id field id, got %q", cfg.Schema.IDField)
	}
	if cfg.Search.HalfLifeDays != 30 {
		t.Errorf("expected half life 30, got %v", cfg.Search.HalfLifeDays)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{ReadTimeoutSec: 30},
		Backend: BackendConfig{Driver: "memory", Index: "people", TimeoutMs: 800, MaxRetries: -1},
		Replay:  ReplayConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Backend.Driver != "memory" || cfg.Backend.Index != "people" || cfg.Backend.TimeoutMs != 800 {
		t.Errorf("backend overridden: %+v", cfg.Backend)
	}
	if cfg.Backend.MaxRetries != -1 {
		t.Errorf("expected MaxRetries=-1, got %d", cfg.Backend.MaxRetries)
	}
	if cfg.Replay.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Replay.KeyPrefix)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TS_TEST_PORT", "9191")
	path := filepath.Join(t.TempDir(), "test.yaml")
	data := `
http:
  port: ${TS_TEST_PORT}
backend:
  driver: memory
  index: ${TS_TEST_INDEX:-people}
auth:
  mode: none
schema:
  fields:
    - {name: id, type: keyword}
    - {name: experience.company, type: keyword, nested: experience}
search:
  baseline_filters:
    accepted: ["true"]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9191 {
		t.Errorf("expected port 9191, got %d", cfg.HTTP.Port)
	}
	if cfg.Backend.Index != "people" {
		t.Errorf("expected index people, got %q", cfg.Backend.Index)
	}
	if got := cfg.Search.BaselineFilters["accepted"]; len(got) != 1 || got[0] != "true" {
		t.Errorf("unexpected baseline filters %v", cfg.Search.BaselineFilters)
	}
	cat, err := cfg.Schema.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if paths := cat.NestedPaths(); len(paths) != 1 || paths[0] != "experience" {
		t.Errorf("unexpected nested paths %v", paths)
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.Schema.RecencyField != "added_at" {
		t.Errorf("expected recency field added_at, got %q", cfg.Schema.RecencyField)
	}
	if _, ok := cfg.Response.Whitelist["search"]; !ok {
		t.Error("expected a whitelist for the search scope")
	}
	if got := cfg.Search.BaselineFilters["batch_starts_at"]; len(got) != 1 || got[0] != "..$epoch" {
		t.Errorf("epoch token must survive env expansion, got %v", got)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TS_SET", "value")
	got := string(expandEnvVars([]byte("a=${TS_SET} b=${TS_UNSET:-fallback} c=${TS_UNSET}")))
	if got != "a=value b=fallback c=" {
		t.Errorf("unexpected expansion %q", got)
	}
}
