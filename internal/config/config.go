package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/talentsearch/internal/db"
	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
)

// Config holds the talentsearch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Backend   BackendConfig   `yaml:"backend"`
	Auth      AuthConfig      `yaml:"auth"`
	Replay    ReplayConfig    `yaml:"replay"`
	Schema    SchemaConfig    `yaml:"schema"`
	Search    SearchConfig    `yaml:"search"`
	Response  ResponseConfig  `yaml:"response"`
	Reporting ReportingConfig `yaml:"reporting"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// BackendConfig holds search backend settings.
type BackendConfig struct {
	Driver           string   `yaml:"driver"` // elastic, memory (default: elastic)
	Addrs            []string `yaml:"addrs"`
	Index            string   `yaml:"index"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	TimeoutMs        int      `yaml:"timeout_ms"`         // whole page fetch, retries included
	AttemptTimeoutMs int      `yaml:"attempt_timeout_ms"` // 0 = no per-attempt timeout
	MaxRetries       int      `yaml:"max_retries"`        // 0 = default (2), negative disables
	BackoffBaseMs    int      `yaml:"backoff_base_ms"`
	Fixtures         string   `yaml:"fixtures"` // memory driver: JSON array of documents
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// AuthConfig holds caller authentication settings.
type AuthConfig struct {
	Mode          string     `yaml:"mode"` // totp, jwt, none (default: totp)
	RequiredScope string     `yaml:"required_scope"`
	DefaultScopes []string   `yaml:"default_scopes"` // granted in none mode
	TOTP          TOTPConfig `yaml:"totp"`
	JWT           JWTConfig  `yaml:"jwt"`
}

// TOTPConfig holds one-time code settings.
type TOTPConfig struct {
	PeriodSec int             `yaml:"period_sec"`
	Skew      uint            `yaml:"skew"`
	Keys      []TOTPKeyConfig `yaml:"keys"`
}

// TOTPKeyConfig is one shared secret.
type TOTPKeyConfig struct {
	Name   string   `yaml:"name"`
	Secret string   `yaml:"secret"`
	Scopes []string `yaml:"scopes"`
}

// JWTConfig holds signed token settings.
type JWTConfig struct {
	Secret    string `yaml:"secret"`
	Issuer    string `yaml:"issuer"`
	LeewaySec int    `yaml:"leeway_sec"`
}

// ReplayConfig holds the used-credential store settings.
type ReplayConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory, none (default: memory)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SchemaConfig describes the backend document schema.
type SchemaConfig struct {
	IDField      string        `yaml:"id_field"`
	RecencyField string        `yaml:"recency_field"`
	Fields       []FieldConfig `yaml:"fields"`
}

// FieldConfig is one filterable document field.
type FieldConfig struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Nested        string `yaml:"nested"`
	KeywordSearch bool   `yaml:"keyword_search"`
}

// SearchConfig holds ranking and filtering settings.
type SearchConfig struct {
	HalfLifeDays    float64             `yaml:"half_life_days"`
	BaselineFilters map[string][]string `yaml:"baseline_filters"`
}

// ResponseConfig holds response shaping settings.
type ResponseConfig struct {
	Whitelist map[string][]string `yaml:"whitelist"` // scope -> document paths
}

// ReportingConfig holds crash reporting settings.
type ReportingConfig struct {
	SentryDSN   string `yaml:"sentry_dsn"`
	Environment string `yaml:"environment"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Backend.Driver == "" {
		c.Backend.Driver = "elastic"
	}
	if c.Backend.Index == "" {
		c.Backend.Index = "talents"
	}
	if c.Backend.TimeoutMs <= 0 {
		c.Backend.TimeoutMs = 5000
	}
	if c.Backend.BackoffBaseMs <= 0 {
		c.Backend.BackoffBaseMs = 100
	}
	if c.Backend.ReadinessTimeout <= 0 {
		c.Backend.ReadinessTimeout = 10
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = "totp"
	}
	if c.Auth.RequiredScope == "" {
		c.Auth.RequiredScope = "search"
	}
	if c.Auth.TOTP.PeriodSec <= 0 {
		c.Auth.TOTP.PeriodSec = 30
	}
	if c.Replay.Driver == "" {
		c.Replay.Driver = "memory"
	}
	if c.Replay.KeyPrefix == "" {
		c.Replay.KeyPrefix = "talentsearch:replay:"
	}
	if c.Replay.ReadinessTimeout <= 0 {
		c.Replay.ReadinessTimeout = 10
	}
	if c.Schema.IDField == "" {
		c.Schema.IDField = "id"
	}
	if c.Search.HalfLifeDays <= 0 {
		c.Search.HalfLifeDays = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Backend.Driver {
	case "elastic":
		if len(c.Backend.Addrs) == 0 {
			return fmt.Errorf("backend.addrs is required for the elastic driver")
		}
	case "memory":
	default:
		return fmt.Errorf("backend.driver must be \"elastic\" or \"memory\", got %q", c.Backend.Driver)
	}
	if !db.IsValidIdentifier(c.Backend.Index) {
		return fmt.Errorf("backend.index %q is not a valid index name", c.Backend.Index)
	}
	if c.Backend.AttemptTimeoutMs < 0 {
		return fmt.Errorf("backend.attempt_timeout_ms must not be negative")
	}

	switch c.Auth.Mode {
	case "totp":
		if len(c.Auth.TOTP.Keys) == 0 {
			return fmt.Errorf("auth.totp.keys is required in totp mode")
		}
	case "jwt":
		if len(c.Auth.JWT.Secret) < 32 {
			return fmt.Errorf("auth.jwt.secret must be at least 32 bytes")
		}
	case "none":
	default:
		return fmt.Errorf("auth.mode must be \"totp\", \"jwt\" or \"none\", got %q", c.Auth.Mode)
	}

	switch c.Replay.Driver {
	case "redis":
		if len(c.Replay.Addrs) == 0 {
			return fmt.Errorf("replay.addrs is required for the redis driver")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("replay.driver must be \"redis\", \"memory\" or \"none\", got %q", c.Replay.Driver)
	}

	if _, err := c.Schema.Catalog(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// Catalog builds the schema catalog from the configured fields.
func (s SchemaConfig) Catalog() (*schema.Catalog, error) {
	fields := make([]schema.Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		field, err := schema.NewField(f.Name, schema.Type(f.Type), f.Nested, f.KeywordSearch)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return schema.NewCatalog(fields, s.IDField, s.RecencyField)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests and go run from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
