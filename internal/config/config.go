// File: internal/config/config.go

// Package config loads and validates the framework configuration. Sources in
// priority order: an explicit config file, ./config.yaml, SOCKSHOP_*
// environment variables, and built-in defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported browser engines.
const (
	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserWebKit   = "webkit"
)

// Screenshot capture modes.
const (
	ScreenshotOff           = "off"
	ScreenshotOn            = "on"
	ScreenshotOnlyOnFailure = "only-on-failure"
)

// Config holds the entire framework configuration.
type Config struct {
	Environment Environment `mapstructure:"environment" yaml:"environment"`
	Debug       bool        `mapstructure:"debug" yaml:"debug"`
	AppName     string      `mapstructure:"app_name" yaml:"app_name"`

	// BaseURL is the storefront under test.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	API         APIConfig         `mapstructure:"api" yaml:"api"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Test        TestConfig        `mapstructure:"test" yaml:"test"`
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance"`
	Security    SecurityConfig    `mapstructure:"security" yaml:"security"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the managed browser instances.
type BrowserConfig struct {
	Name           string        `mapstructure:"name" yaml:"name"`
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	ViewportWidth  int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	SlowMo         time.Duration `mapstructure:"slow_mo" yaml:"slow_mo"`
	Args           []string      `mapstructure:"args" yaml:"args"`
	MaxConcurrent  int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	MaxIdle        time.Duration `mapstructure:"max_idle" yaml:"max_idle"`
	RecordVideo    bool          `mapstructure:"record_video" yaml:"record_video"`
	ScreenshotMode string        `mapstructure:"screenshot_mode" yaml:"screenshot_mode"`
	ScreenshotDir  string        `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	Locale         string        `mapstructure:"locale" yaml:"locale"`
	Timezone       string        `mapstructure:"timezone" yaml:"timezone"`
}

// APIConfig tunes the REST client for the shop's backend services.
type APIConfig struct {
	BaseURL        string            `mapstructure:"base_url" yaml:"base_url"`
	Timeout        time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries     int               `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay     time.Duration     `mapstructure:"retry_delay" yaml:"retry_delay"`
	VerifyTLS      bool              `mapstructure:"verify_tls" yaml:"verify_tls"`
	RateLimitRPS   float64           `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	DefaultHeaders map[string]string `mapstructure:"default_headers" yaml:"default_headers"`
}

// DatabaseConfig holds connection details for the test-data database.
type DatabaseConfig struct {
	Host           string `mapstructure:"host" yaml:"host"`
	Port           int    `mapstructure:"port" yaml:"port"`
	Name           string `mapstructure:"name" yaml:"name"`
	User           string `mapstructure:"user" yaml:"user"`
	Password       string `mapstructure:"password" yaml:"-"`
	SSLMode        string `mapstructure:"sslmode" yaml:"sslmode"`
	MinConnections int    `mapstructure:"min_connections" yaml:"min_connections"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections"`
}

// DSN builds a pgx-compatible connection string. The password is masked when
// includePassword is false so the value is safe to log.
func (d DatabaseConfig) DSN(includePassword bool) string {
	password := "***"
	if includePassword {
		password = d.Password
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, password, d.Host, d.Port, d.Name, d.SSLMode)
}

// TestConfig controls suite execution behavior.
type TestConfig struct {
	ParallelWorkers int           `mapstructure:"parallel_workers" yaml:"parallel_workers"`
	CleanupData     bool          `mapstructure:"cleanup_data" yaml:"cleanup_data"`
	ScenarioTimeout time.Duration `mapstructure:"scenario_timeout" yaml:"scenario_timeout"`
	RetryFlaky      bool          `mapstructure:"retry_flaky" yaml:"retry_flaky"`
	ReportFormats   []string      `mapstructure:"report_formats" yaml:"report_formats"`
	ReportDir       string        `mapstructure:"report_dir" yaml:"report_dir"`
	Tags            []string      `mapstructure:"tags" yaml:"tags"`
	ExcludedTags    []string      `mapstructure:"excluded_tags" yaml:"excluded_tags"`
}

// PerformanceConfig defines the thresholds used by the performance timers.
type PerformanceConfig struct {
	MonitoringEnabled    bool          `mapstructure:"monitoring_enabled" yaml:"monitoring_enabled"`
	PageLoadThreshold    time.Duration `mapstructure:"page_load_threshold" yaml:"page_load_threshold"`
	APIResponseThreshold time.Duration `mapstructure:"api_response_threshold" yaml:"api_response_threshold"`
}

// SecurityConfig carries test credentials and signing material.
type SecurityConfig struct {
	SecretKey string `mapstructure:"secret_key" yaml:"-"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "")
	v.SetDefault("debug", false)
	v.SetDefault("app_name", "sockshop-e2e")
	v.SetDefault("base_url", "http://localhost:8080")

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "sockshop-e2e")
	v.SetDefault("logger.log_file", "logs/automation.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.name", BrowserChromium)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.timeout", "30s")
	v.SetDefault("browser.slow_mo", "0s")
	v.SetDefault("browser.max_concurrent", 3)
	v.SetDefault("browser.max_idle", "1h")
	v.SetDefault("browser.record_video", false)
	v.SetDefault("browser.screenshot_mode", ScreenshotOnlyOnFailure)
	v.SetDefault("browser.screenshot_dir", "artifacts/screenshots")
	v.SetDefault("browser.locale", "en-US")
	v.SetDefault("browser.timezone", "UTC")

	// -- API --
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.max_retries", 4)
	v.SetDefault("api.retry_delay", "500ms")
	v.SetDefault("api.verify_tls", true)
	v.SetDefault("api.rate_limit_rps", 10.0)

	// -- Database --
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "sockshop_test")
	v.SetDefault("database.user", "testuser")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.max_connections", 10)

	// -- Test execution --
	v.SetDefault("test.parallel_workers", 4)
	v.SetDefault("test.cleanup_data", true)
	v.SetDefault("test.scenario_timeout", "5m")
	v.SetDefault("test.retry_flaky", true)
	v.SetDefault("test.report_formats", []string{"json"})
	v.SetDefault("test.report_dir", "artifacts/reports")

	// -- Performance --
	v.SetDefault("performance.monitoring_enabled", true)
	v.SetDefault("performance.page_load_threshold", "3s")
	v.SetDefault("performance.api_response_threshold", "1s")
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	cfg.Environment = DetectEnvironment(cfg.Environment)
	applyEnvironmentDefaults(&cfg)
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper instance
// that already has the config file and SOCKSHOP_* env bindings applied.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data
	v.BindEnv("database.password", "SOCKSHOP_DATABASE_PASSWORD")
	v.BindEnv("security.secret_key", "SOCKSHOP_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Environment = DetectEnvironment(cfg.Environment)
	applyEnvironmentDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyEnvironmentDefaults adjusts settings the environment implies. Explicit
// validation later catches contradictions the user introduced on purpose.
func applyEnvironmentDefaults(cfg *Config) {
	switch cfg.Environment {
	case EnvDevelopment:
		cfg.Debug = true
	case EnvCI:
		// CI runners have no display to attach to.
		cfg.Browser.Headless = true
	case EnvProduction:
		cfg.Debug = false
	}
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := validateURL("base_url", c.BaseURL); err != nil {
		return err
	}
	if err := validateURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}

	switch c.Browser.Name {
	case BrowserChromium, BrowserFirefox, BrowserWebKit:
	default:
		return fmt.Errorf("browser.name must be one of chromium, firefox, webkit; got %q", c.Browser.Name)
	}
	switch c.Browser.ScreenshotMode {
	case ScreenshotOff, ScreenshotOn, ScreenshotOnlyOnFailure:
	default:
		return fmt.Errorf("browser.screenshot_mode must be off, on, or only-on-failure; got %q", c.Browser.ScreenshotMode)
	}
	if c.Browser.MaxConcurrent <= 0 {
		return fmt.Errorf("browser.max_concurrent must be a positive integer")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be positive")
	}

	if c.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries must not be negative")
	}
	if c.API.RateLimitRPS <= 0 {
		return fmt.Errorf("api.rate_limit_rps must be positive")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database.min_connections (%d) must not exceed max_connections (%d)",
			c.Database.MinConnections, c.Database.MaxConnections)
	}

	if c.Test.ParallelWorkers <= 0 {
		return fmt.Errorf("test.parallel_workers must be a positive integer")
	}
	for _, f := range c.Test.ReportFormats {
		switch f {
		case "html", "json", "junit":
		default:
			return fmt.Errorf("test.report_formats contains unsupported format %q", f)
		}
	}

	if c.Security.SecretKey != "" && len(c.Security.SecretKey) < 16 {
		return fmt.Errorf("security.secret_key must be at least 16 characters")
	}

	return c.validateEnvironment()
}

// validateEnvironment enforces the rules that differ per environment.
func (c *Config) validateEnvironment() error {
	switch c.Environment {
	case EnvProduction:
		if c.Debug {
			return fmt.Errorf("debug mode must be disabled against production")
		}
		if isLocalURL(c.BaseURL) {
			return fmt.Errorf("base_url must not point at localhost in production")
		}
		if c.Security.SecretKey == "" {
			return fmt.Errorf("security.secret_key is required in production")
		}
	case EnvStaging:
		if c.Security.SecretKey == "" {
			return fmt.Errorf("security.secret_key is required in staging")
		}
	case EnvCI:
		if !c.Browser.Headless {
			return fmt.Errorf("browser.headless must be enabled in CI")
		}
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be a valid absolute URL, got %q", key, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, u.Scheme)
	}
	return nil
}

func isLocalURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || strings.HasSuffix(host, ".local")
}
