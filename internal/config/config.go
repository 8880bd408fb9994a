package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // LoadLocation in minimal images

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/lookout/internal/catalog"
	"github.com/crimson-sun/lookout/internal/connector"
	"github.com/crimson-sun/lookout/internal/filter"
)

// Config holds all lookout configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Filters  FilterConfig   `yaml:"filters"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Output   OutputConfig   `yaml:"output"`
	LogLevel string         `yaml:"logLevel"` // "debug", "info", "warn", "error"
}

// SourceConfig holds BI connector settings.
type SourceConfig struct {
	Provider  string            `yaml:"provider"`
	APIKey    string            `yaml:"apiKey"`
	Endpoint  string            `yaml:"endpoint"`
	Site      string            `yaml:"site"`
	PageSize  int               `yaml:"pageSize"`
	RateLimit float64           `yaml:"rateLimit"`
	Extra     map[string]string `yaml:"extra"`
}

// CatalogConfig holds metadata catalog settings.
type CatalogConfig struct {
	Backend       string        `yaml:"backend"` // "rest", "sqlite", "redis", "memory"
	Endpoint      string        `yaml:"endpoint"`
	Token         string        `yaml:"token"`
	Path          string        `yaml:"path"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`
	RedisPrefix   string        `yaml:"redisPrefix"`
	Service       string        `yaml:"service"`
	Timeout       time.Duration `yaml:"timeout"`
}

// FilterConfig holds include/exclude regular expressions.
type FilterConfig struct {
	DashboardInclude []string `yaml:"dashboardInclude"`
	DashboardExclude []string `yaml:"dashboardExclude"`
	ChartInclude     []string `yaml:"chartInclude"`
	ChartExclude     []string `yaml:"chartExclude"`
}

// PipelineConfig holds run settings.
type PipelineConfig struct {
	Workers         int           `yaml:"workers"`
	Interval        time.Duration `yaml:"interval"` // 0 runs once
	Timezone        string        `yaml:"timezone"` // decides what "today" is
	SkipUsage       bool          `yaml:"skipUsage"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// OutputConfig holds result destination settings.
type OutputConfig struct {
	Targets             []string          `yaml:"targets"` // "stdout", "file", "webhook"
	Verbosity           string            `yaml:"verbosity"`
	Pretty              bool              `yaml:"pretty"`
	FilePath            string            `yaml:"filePath"`
	FileMaxSize         int64             `yaml:"fileMaxSize"`
	WebhookURL          string            `yaml:"webhookURL"`
	WebhookHeaders      map[string]string `yaml:"webhookHeaders"`
	WebhookProblemsOnly bool              `yaml:"webhookProblemsOnly"`
	Async               bool              `yaml:"async"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Source: SourceConfig{Provider: "tableau"},
		Catalog: CatalogConfig{
			Backend:     "sqlite",
			Path:        "lookout.db",
			RedisPrefix: "lookout",
			Timeout:     30 * time.Second,
		},
		Pipeline: PipelineConfig{
			Workers:         4,
			Timezone:        "UTC",
			ShutdownTimeout: 10 * time.Second,
		},
		Output: OutputConfig{
			Targets:   []string{"stdout"},
			Verbosity: "standard",
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment variables on top. An empty path falls back to LOOKOUT_CONFIG;
// with neither set only defaults and environment are used.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("LOOKOUT_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	s := &cfg.Source
	s.Provider = getenv("LOOKOUT_PROVIDER", s.Provider)
	s.APIKey = getenv("LOOKOUT_API_KEY", s.APIKey)
	s.Endpoint = getenv("LOOKOUT_ENDPOINT", s.Endpoint)
	s.Site = getenv("LOOKOUT_SITE", s.Site)
	s.PageSize = getenvInt("LOOKOUT_PAGE_SIZE", s.PageSize)
	s.RateLimit = getenvFloat("LOOKOUT_RATE_LIMIT", s.RateLimit)
	s.Extra = loadConnectorExtra(s.Extra)

	c := &cfg.Catalog
	c.Backend = getenv("LOOKOUT_CATALOG", c.Backend)
	c.Endpoint = getenv("LOOKOUT_CATALOG_ENDPOINT", c.Endpoint)
	c.Token = getenv("LOOKOUT_CATALOG_TOKEN", c.Token)
	c.Path = getenv("LOOKOUT_CATALOG_PATH", c.Path)
	c.RedisAddr = getenv("LOOKOUT_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getenv("LOOKOUT_REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getenvInt("LOOKOUT_REDIS_DB", c.RedisDB)
	c.RedisPrefix = getenv("LOOKOUT_REDIS_PREFIX", c.RedisPrefix)
	c.Service = getenv("LOOKOUT_SERVICE", c.Service)
	c.Timeout = getenvDuration("LOOKOUT_CATALOG_TIMEOUT", c.Timeout)

	f := &cfg.Filters
	f.DashboardInclude = getenvList("LOOKOUT_DASHBOARD_INCLUDE", f.DashboardInclude)
	f.DashboardExclude = getenvList("LOOKOUT_DASHBOARD_EXCLUDE", f.DashboardExclude)
	f.ChartInclude = getenvList("LOOKOUT_CHART_INCLUDE", f.ChartInclude)
	f.ChartExclude = getenvList("LOOKOUT_CHART_EXCLUDE", f.ChartExclude)

	p := &cfg.Pipeline
	p.Workers = getenvInt("LOOKOUT_WORKERS", p.Workers)
	p.Interval = getenvDuration("LOOKOUT_INTERVAL", p.Interval)
	p.Timezone = getenv("LOOKOUT_TIMEZONE", p.Timezone)
	p.SkipUsage = getenvBool("LOOKOUT_SKIP_USAGE", p.SkipUsage)
	p.ShutdownTimeout = getenvDuration("LOOKOUT_SHUTDOWN_TIMEOUT", p.ShutdownTimeout)

	o := &cfg.Output
	o.Targets = getenvList("LOOKOUT_OUTPUT", o.Targets)
	o.Verbosity = getenv("LOOKOUT_VERBOSITY", o.Verbosity)
	o.Pretty = getenvBool("LOOKOUT_OUTPUT_PRETTY", o.Pretty)
	o.FilePath = getenv("LOOKOUT_OUTPUT_FILE", o.FilePath)
	o.FileMaxSize = int64(getenvInt("LOOKOUT_OUTPUT_FILE_MAX_SIZE", int(o.FileMaxSize)))
	o.WebhookURL = getenv("LOOKOUT_WEBHOOK_URL", o.WebhookURL)
	o.WebhookHeaders = getenvMap("LOOKOUT_WEBHOOK_HEADERS", o.WebhookHeaders)
	o.WebhookProblemsOnly = getenvBool("LOOKOUT_WEBHOOK_PROBLEMS_ONLY", o.WebhookProblemsOnly)
	o.Async = getenvBool("LOOKOUT_OUTPUT_ASYNC", o.Async)

	cfg.LogLevel = getenv("LOOKOUT_LOG_LEVEL", cfg.LogLevel)
}

// Validate checks the configuration for invalid combinations and returns
// every problem found, joined.
func (c Config) Validate() error {
	var errs []error

	if c.Source.Provider == "" {
		errs = append(errs, errors.New("source provider is required (LOOKOUT_PROVIDER)"))
	}
	if c.Source.Endpoint == "" {
		errs = append(errs, errors.New("source endpoint is required (LOOKOUT_ENDPOINT)"))
	}
	if c.Source.APIKey == "" {
		errs = append(errs, errors.New("LOOKOUT_API_KEY is required"))
	}
	if c.Source.Provider == "tableau" && c.Source.Site == "" {
		errs = append(errs, errors.New("tableau requires a site id (LOOKOUT_SITE)"))
	}
	if c.Source.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must be >= 0, got %g", c.Source.RateLimit))
	}

	switch c.Catalog.Backend {
	case "memory":
	case "sqlite":
		if c.Catalog.Path == "" {
			errs = append(errs, errors.New("sqlite catalog requires a path (LOOKOUT_CATALOG_PATH)"))
		}
	case "redis":
		if c.Catalog.RedisAddr == "" {
			errs = append(errs, errors.New("redis catalog requires an address (LOOKOUT_REDIS_ADDR)"))
		}
	case "rest":
		if c.Catalog.Endpoint == "" {
			errs = append(errs, errors.New("rest catalog requires an endpoint (LOOKOUT_CATALOG_ENDPOINT)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog backend %q", c.Catalog.Backend))
	}

	if _, _, err := c.Patterns(); err != nil {
		errs = append(errs, err)
	}

	if c.Pipeline.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Pipeline.Workers))
	}
	if c.Pipeline.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval must be >= 0, got %s", c.Pipeline.Interval))
	}
	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Pipeline.Timezone, err))
	}

	switch c.Output.Verbosity {
	case "minimal", "standard", "full":
	default:
		errs = append(errs, fmt.Errorf("verbosity must be minimal, standard or full, got %q", c.Output.Verbosity))
	}
	if len(c.Output.Targets) == 0 {
		errs = append(errs, errors.New("at least one output target is required"))
	}
	for _, t := range c.Output.Targets {
		switch t {
		case "stdout":
		case "file":
			if c.Output.FilePath == "" {
				errs = append(errs, errors.New("file output requires a path (LOOKOUT_OUTPUT_FILE)"))
			}
		case "webhook":
			if c.Output.WebhookURL == "" {
				errs = append(errs, errors.New("webhook output requires a URL (LOOKOUT_WEBHOOK_URL)"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown output target %q", t))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	return errors.Join(errs...)
}

// ConnectorConfig converts the source section for connectors.
func (c Config) ConnectorConfig() connector.ConnectorConfig {
	return connector.ConnectorConfig{
		Provider:  c.Source.Provider,
		APIKey:    c.Source.APIKey,
		Endpoint:  c.Source.Endpoint,
		Site:      c.Source.Site,
		PageSize:  c.Source.PageSize,
		RateLimit: c.Source.RateLimit,
		Extra:     c.Source.Extra,
	}
}

// CatalogConfig converts the catalog section for catalog.Open.
func (c Config) CatalogConfig() catalog.Config {
	return catalog.Config{
		Backend:  c.Catalog.Backend,
		Endpoint: c.Catalog.Endpoint,
		Token:    c.Catalog.Token,
		Path:     c.Catalog.Path,
		Redis: catalog.RedisConfig{
			Addr:     c.Catalog.RedisAddr,
			Password: c.Catalog.RedisPassword,
			DB:       c.Catalog.RedisDB,
			Prefix:   c.Catalog.RedisPrefix,
		},
		Timeout: c.Catalog.Timeout,
	}
}

// Patterns compiles the dashboard and chart filters.
func (c Config) Patterns() (dashboards, charts *filter.Pattern, err error) {
	if dashboards, err = filter.New(c.Filters.DashboardInclude, c.Filters.DashboardExclude); err != nil {
		return nil, nil, fmt.Errorf("dashboard filter: %w", err)
	}
	if charts, err = filter.New(c.Filters.ChartInclude, c.Filters.ChartExclude); err != nil {
		return nil, nil, fmt.Errorf("chart filter: %w", err)
	}
	return dashboards, charts, nil
}

// Location returns the time zone that decides the calendar day of a run.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Pipeline.Timezone)
}

// ServiceName is the catalog service name, defaulting to the provider.
func (c Config) ServiceName() string {
	if c.Catalog.Service != "" {
		return c.Catalog.Service
	}
	return c.Source.Provider
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConnectorExtra reads provider-specific env vars into an Extra map.
func loadConnectorExtra(m map[string]string) map[string]string {
	vars := []struct {
		envVar   string
		extraKey string
	}{
		{"LOOKOUT_TABLEAU_SITE_URL", "site_url"},
		{"LOOKOUT_TABLEAU_API_VERSION", "api_version"},
	}

	for _, v := range vars {
		if val := os.Getenv(v.envVar); val != "" {
			if m == nil {
				m = make(map[string]string)
			}
			m[v.extraKey] = val
		}
	}
	return m
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// getenvList splits a comma-separated value, dropping empty items.
func getenvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getenvMap parses "k1=v1,k2=v2" into a map, merging over fallback.
func getenvMap(key string, fallback map[string]string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	m := make(map[string]string, len(fallback))
	for k, val := range fallback {
		m[k] = val
	}
	for _, pair := range strings.Split(v, ",") {
		k, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		m[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return m
}
