package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nimas-seat-alert/internal/models"
)

// Config represents the application configuration
type Config struct {
	Target    TargetConfig    `yaml:"target"`
	API       APIConfig       `yaml:"api"`
	Browser   BrowserConfig   `yaml:"browser"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TargetConfig names the course row to watch
type TargetConfig struct {
	PageURL    string `yaml:"page_url"`
	Identifier string `yaml:"identifier"`
	Threshold  *int   `yaml:"threshold"`
	Backend    string `yaml:"backend"` // api | rendered | auto
}

// APIConfig represents the JSON endpoint settings
type APIConfig struct {
	URL              string        `yaml:"url"`
	Timeout          time.Duration `yaml:"timeout"`
	Category         string        `yaml:"category"`
	TemplateID       int           `yaml:"template_id"`
	PageSize         int           `yaml:"page_size"`
	EnvelopeFallback *bool         `yaml:"envelope_fallback"`
}

// BrowserConfig represents headless browser settings
type BrowserConfig struct {
	Enabled   *bool         `yaml:"enabled"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// TelegramConfig represents bot notification settings
type TelegramConfig struct {
	BotToken string        `yaml:"bot_token"`
	ChatID   string        `yaml:"chat_id"`
	APIURL   string        `yaml:"api_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

type TelemetryConfig struct {
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

const (
	defaultAPITimeout      = 20 * time.Second
	defaultBrowserTimeout  = 30 * time.Second
	defaultTelegramTimeout = 15 * time.Second
	defaultCategory        = "Mountaineering"
	defaultTemplateID      = 3
	defaultPageSize        = 200
	defaultJob             = "nimas_seat_alert"
)

// GetConfigPath finds an optional configuration file. It returns "" when
// none of the usual locations has one.
func GetConfigPath() string {
	var candidates []string

	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), "configs", "config.yaml"))
	}
	candidates = append(candidates, filepath.Join("configs", "config.yaml"))
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".nimas-seat-alert", "config.yaml"))
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load builds the configuration. Layers, lowest first: the YAML file at
// path (skipped when path is ""), a .env file in the working directory,
// then the process environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// godotenv never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Target.PageURL, "TARGET_URL")
	setString(&c.Target.Identifier, "ROW_MATCH")
	setString(&c.Target.Backend, "SCRAPER_BACKEND")
	setString(&c.API.URL, "NIMAS_API_URL")
	setString(&c.API.Category, "API_CATEGORY")
	setString(&c.Browser.UserAgent, "BROWSER_USER_AGENT")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.Telegram.APIURL, "TELEGRAM_API_URL")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.Telemetry.PushgatewayURL, "PUSHGATEWAY_URL")

	if v, ok := getEnv("THRESHOLD"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("THRESHOLD must be an integer: %w", err)
		}
		c.Target.Threshold = &n
	}

	for key, dst := range map[string]*time.Duration{
		"API_TIMEOUT":      &c.API.Timeout,
		"BROWSER_TIMEOUT":  &c.Browser.Timeout,
		"TELEGRAM_TIMEOUT": &c.Telegram.Timeout,
	} {
		v, ok := getEnv(key)
		if !ok {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	for key, dst := range map[string]**bool{
		"BROWSER_ENABLED":       &c.Browser.Enabled,
		"API_ENVELOPE_FALLBACK": &c.API.EnvelopeFallback,
	} {
		v, ok := getEnv(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", key, err)
		}
		*dst = &b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Target.Backend == "" {
		c.Target.Backend = string(models.BackendAuto)
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = defaultAPITimeout
	}
	if c.API.Category == "" {
		c.API.Category = defaultCategory
	}
	if c.API.TemplateID == 0 {
		c.API.TemplateID = defaultTemplateID
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = defaultPageSize
	}
	if c.API.EnvelopeFallback == nil {
		c.API.EnvelopeFallback = boolPtr(true)
	}
	if c.Browser.Enabled == nil {
		c.Browser.Enabled = boolPtr(true)
	}
	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = defaultBrowserTimeout
	}
	if c.Telegram.Timeout <= 0 {
		c.Telegram.Timeout = defaultTelegramTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Telemetry.Job == "" {
		c.Telemetry.Job = defaultJob
	}
}

// Validate reports every required setting that is missing or malformed
func (c *Config) Validate() error {
	var errs []error
	missing := func(env string) {
		errs = append(errs, fmt.Errorf("missing required env var: %s", env))
	}

	backend, err := models.ParseBackend(c.Target.Backend)
	if err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Target.PageURL) == "" {
		missing("TARGET_URL")
	}
	if strings.TrimSpace(c.Target.Identifier) == "" {
		missing("ROW_MATCH")
	}
	if c.Target.Threshold == nil {
		missing("THRESHOLD")
	}
	if backend != models.BackendRendered && strings.TrimSpace(c.API.URL) == "" {
		missing("NIMAS_API_URL")
	}
	if c.Telegram.BotToken == "" {
		missing("TELEGRAM_BOT_TOKEN")
	}
	if c.Telegram.ChatID == "" {
		missing("TELEGRAM_CHAT_ID")
	}
	return errors.Join(errs...)
}

// Backend returns the parsed backend mode; call Validate first
func (c *Config) Backend() models.Backend {
	b, err := models.ParseBackend(c.Target.Backend)
	if err != nil {
		return models.BackendAuto
	}
	return b
}

// ThresholdValue returns the alert threshold, 0 if unset
func (c *Config) ThresholdValue() int {
	if c.Target.Threshold == nil {
		return 0
	}
	return *c.Target.Threshold
}

func getEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func setString(dst *string, key string) {
	if v, ok := getEnv(key); ok {
		*dst = v
	}
}

// parseDuration accepts Go durations ("20s", "30000ms") or whole seconds
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func boolPtr(b bool) *bool { return &b }
