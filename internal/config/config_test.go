package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "LOOKOUT_") {
			t.Setenv(key, "")
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Source.Provider != "tableau" {
		t.Fatalf("expected default provider 'tableau', got %q", cfg.Source.Provider)
	}
	if cfg.Source.Extra != nil {
		t.Fatalf("expected nil Extra when no provider vars set, got %v", cfg.Source.Extra)
	}
	if cfg.Catalog.Backend != "sqlite" || cfg.Catalog.Path != "lookout.db" {
		t.Fatalf("unexpected catalog defaults: %+v", cfg.Catalog)
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.Interval != 0 || cfg.Pipeline.Timezone != "UTC" {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if len(cfg.Output.Targets) != 1 || cfg.Output.Targets[0] != "stdout" {
		t.Fatalf("expected stdout target, got %v", cfg.Output.Targets)
	}
	if cfg.Output.Pretty {
		t.Fatal("expected default Pretty=false")
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOKOUT_PROVIDER", "metabase")
	t.Setenv("LOOKOUT_API_KEY", "mb_key")
	t.Setenv("LOOKOUT_RATE_LIMIT", "2.5")
	t.Setenv("LOOKOUT_CATALOG", "redis")
	t.Setenv("LOOKOUT_REDIS_DB", "3")
	t.Setenv("LOOKOUT_WORKERS", "8")
	t.Setenv("LOOKOUT_INTERVAL", "1h")
	t.Setenv("LOOKOUT_SKIP_USAGE", "true")
	t.Setenv("LOOKOUT_OUTPUT", "stdout, webhook")
	t.Setenv("LOOKOUT_WEBHOOK_HEADERS", "Authorization=Bearer x, X-Team=bi")
	t.Setenv("LOOKOUT_DASHBOARD_EXCLUDE", "^tmp,^scratch")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Source.Provider != "metabase" || cfg.Source.APIKey != "mb_key" || cfg.Source.RateLimit != 2.5 {
		t.Errorf("unexpected source: %+v", cfg.Source)
	}
	if cfg.Catalog.Backend != "redis" || cfg.Catalog.RedisDB != 3 {
		t.Errorf("unexpected catalog: %+v", cfg.Catalog)
	}
	if cfg.Pipeline.Workers != 8 || cfg.Pipeline.Interval != time.Hour || !cfg.Pipeline.SkipUsage {
		t.Errorf("unexpected pipeline: %+v", cfg.Pipeline)
	}
	if got := strings.Join(cfg.Output.Targets, "|"); got != "stdout|webhook" {
		t.Errorf("targets = %q", got)
	}
	if cfg.Output.WebhookHeaders["Authorization"] != "Bearer x" || cfg.Output.WebhookHeaders["X-Team"] != "bi" {
		t.Errorf("unexpected headers: %v", cfg.Output.WebhookHeaders)
	}
	if len(cfg.Filters.DashboardExclude) != 2 {
		t.Errorf("unexpected excludes: %v", cfg.Filters.DashboardExclude)
	}
}

func TestLoad_ConnectorExtra(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOKOUT_TABLEAU_SITE_URL", "finance")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.Extra["site_url"] != "finance" {
		t.Fatalf("expected site_url=finance, got %v", cfg.Source.Extra)
	}
	if _, ok := cfg.Source.Extra["api_version"]; ok {
		t.Fatal("api_version should be absent")
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOKOUT_WORKERS", "many")
	t.Setenv("LOOKOUT_INTERVAL", "soon")
	t.Setenv("LOOKOUT_OUTPUT_PRETTY", "yes please")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.Interval != 0 || cfg.Output.Pretty {
		t.Fatalf("expected defaults on unparsable values, got %+v %+v", cfg.Pipeline, cfg.Output)
	}
}

const sampleYAML = `
source:
  provider: tableau
  endpoint: https://tableau.example.com
  site: 9a8b7c
  apiKey: from-file
  extra:
    site_url: finance
catalog:
  backend: rest
  endpoint: http://catalog:8585/api
  timeout: 5s
filters:
  chartExclude: ["(?i)draft"]
pipeline:
  interval: 24h
  timezone: Europe/Berlin
output:
  targets: [file]
  filePath: /var/lib/lookout/usage.ndjson
  verbosity: full
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lookout.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, sampleYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Source.Site != "9a8b7c" || cfg.Source.Extra["site_url"] != "finance" {
		t.Errorf("unexpected source: %+v", cfg.Source)
	}
	if cfg.Catalog.Backend != "rest" || cfg.Catalog.Timeout != 5*time.Second {
		t.Errorf("unexpected catalog: %+v", cfg.Catalog)
	}
	if cfg.Pipeline.Interval != 24*time.Hour || cfg.Pipeline.Timezone != "Europe/Berlin" {
		t.Errorf("unexpected pipeline: %+v", cfg.Pipeline)
	}
	// Unset keys keep their defaults.
	if cfg.Pipeline.Workers != 4 || cfg.Catalog.RedisPrefix != "lookout" {
		t.Errorf("defaults lost: %+v %+v", cfg.Pipeline, cfg.Catalog)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected file config to validate: %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOKOUT_CONFIG", writeFile(t, sampleYAML))
	t.Setenv("LOOKOUT_API_KEY", "from-env")
	t.Setenv("LOOKOUT_TABLEAU_API_VERSION", "3.22")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.APIKey != "from-env" {
		t.Errorf("env should override file, got %q", cfg.Source.APIKey)
	}
	if cfg.Source.Extra["site_url"] != "finance" || cfg.Source.Extra["api_version"] != "3.22" {
		t.Errorf("extras should merge, got %v", cfg.Source.Extra)
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "source: [unclosed")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

// --- Validate tests ---

func validConfig() Config {
	cfg := Default()
	cfg.Source.Endpoint = "https://tableau.example.com"
	cfg.Source.APIKey = "pat"
	cfg.Source.Site = "9a8b7c"
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected nil error for valid config, got: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing api key", func(c *Config) { c.Source.APIKey = "" }, "LOOKOUT_API_KEY"},
		{"tableau without site", func(c *Config) { c.Source.Site = "" }, "LOOKOUT_SITE"},
		{"unknown backend", func(c *Config) { c.Catalog.Backend = "postgres" }, "postgres"},
		{"redis without addr", func(c *Config) { c.Catalog.Backend = "redis" }, "LOOKOUT_REDIS_ADDR"},
		{"rest without endpoint", func(c *Config) { c.Catalog.Backend = "rest" }, "LOOKOUT_CATALOG_ENDPOINT"},
		{"bad filter", func(c *Config) { c.Filters.ChartInclude = []string{"("} }, "chart filter"},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }, "workers"},
		{"negative interval", func(c *Config) { c.Pipeline.Interval = -time.Minute }, "interval"},
		{"bad timezone", func(c *Config) { c.Pipeline.Timezone = "Mars/Olympus" }, "timezone"},
		{"bad verbosity", func(c *Config) { c.Output.Verbosity = "verbose" }, "verbosity"},
		{"file without path", func(c *Config) { c.Output.Targets = []string{"file"} }, "LOOKOUT_OUTPUT_FILE"},
		{"unknown target", func(c *Config) { c.Output.Targets = []string{"kafka"} }, "kafka"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error to mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Source.APIKey = ""
	cfg.Pipeline.Workers = -1
	cfg.Output.Verbosity = "loud"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for multiple bad fields")
	}
	msg := err.Error()
	for _, want := range []string{"LOOKOUT_API_KEY", "workers", "verbosity"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error to mention %q, got: %v", want, msg)
		}
	}
}

func TestConversions(t *testing.T) {
	cfg := validConfig()
	cfg.Catalog.RedisAddr = "localhost:6379"

	cc := cfg.ConnectorConfig()
	if cc.Provider != "tableau" || cc.Site != "9a8b7c" || cc.APIKey != "pat" {
		t.Errorf("unexpected connector config: %+v", cc)
	}
	kc := cfg.CatalogConfig()
	if kc.Redis.Addr != "localhost:6379" || kc.Redis.Prefix != "lookout" || kc.Path != "lookout.db" {
		t.Errorf("unexpected catalog config: %+v", kc)
	}
	if cfg.ServiceName() != "tableau" {
		t.Errorf("service name should default to provider, got %q", cfg.ServiceName())
	}
	cfg.Catalog.Service = "tableau_prod"
	if cfg.ServiceName() != "tableau_prod" {
		t.Errorf("explicit service name ignored")
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		envVal   string
		fallback int
		want     int
	}{
		{"empty uses fallback", "", 1000, 1000},
		{"valid int", "500", 1000, 500},
		{"zero", "0", 1000, 0},
		{"invalid falls back", "abc", 1000, 1000},
		{"negative", "-1", 1000, -1},
	}

	const key = "LOOKOUT_TEST_GETENVINT"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, tt.envVal)
			if got := getenvInt(key, tt.fallback); got != tt.want {
				t.Errorf("getenvInt(%q) = %d, want %d", tt.envVal, got, tt.want)
			}
		})
	}
}
