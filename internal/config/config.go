package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v10"

	yaml "gopkg.in/yaml.v2"
)

// App identifies one storefront application. AppName is used in output file
// names, so path separators are rejected.
type App struct {
	AppName string `yaml:"app_name" json:"app_name" validate:"required,excludesall=/\\"`
	AppID   string `yaml:"app_id" json:"app_id" validate:"required,numeric"`
}

// ColumnsConfig reshapes flattened review tables before they are written.
// Missing columns are ignored.
type ColumnsConfig struct {
	Rename map[string]string `yaml:"rename"`
	Drop   []string          `yaml:"drop"`
}

// StorageConfig controls where and how CSV files are written.
type StorageConfig struct {
	OutputDir     string `yaml:"output_dir" env:"APPREVIEWS_OUTPUT_DIR" validate:"required"`
	Delimiter     string `yaml:"delimiter" validate:"len=1"`
	WriteAttempts int    `yaml:"write_attempts" validate:"gte=1"`
	WriteDelayMS  int    `yaml:"write_delay_ms" validate:"gte=0"`
}

// RetryConfig bounds the rate-limit backoff of the review fetcher. The n-th
// retry waits DelayMS*n milliseconds.
type RetryConfig struct {
	Attempts int `yaml:"attempts" validate:"gte=1"`
	DelayMS  int `yaml:"delay_ms" validate:"gte=0"`
}

type HTTPConfig struct {
	TimeoutMS int `yaml:"timeout_ms" validate:"gte=0"`
}

// Config is the full run configuration. See Defaults for the values used when
// a field is left out.
type Config struct {
	Country             string   `yaml:"country" env:"APPREVIEWS_COUNTRY" validate:"required"`
	Language            string   `yaml:"language" env:"APPREVIEWS_LANGUAGE" validate:"required"`
	StorefrontURL       string   `yaml:"storefront_url" validate:"required,url"`
	APIURL              string   `yaml:"api_url" validate:"required,url"`
	Platform            string   `yaml:"platform" validate:"required"`
	AdditionalPlatforms []string `yaml:"additional_platforms"`
	UserAgents          []string `yaml:"user_agents" validate:"min=1,dive,required"`

	// AppsFile points at a JSON (or JSON5) array of {app_name, app_id}
	// objects. Relative paths are resolved against the config file directory.
	AppsFile string `yaml:"apps_file" env:"APPREVIEWS_APPS_FILE"`
	Apps     []App  `yaml:"apps" validate:"dive"`

	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Retry   RetryConfig   `yaml:"retry"`
	// ThrottleMS is slept after every review page request.
	ThrottleMS int `yaml:"throttle_ms" validate:"gte=0"`
	// MaxPages caps the pages fetched per app. Zero means no cap.
	MaxPages int           `yaml:"max_pages" validate:"gte=0"`
	Columns  ColumnsConfig `yaml:"columns"`
	LogLevel string        `yaml:"log_level" env:"APPREVIEWS_LOG_LEVEL" validate:"oneof=trace debug info warn warning error"`
}

// Defaults mirrors the French storefront setup the scraper was first run with.
func Defaults() Config {
	return Config{
		Country:             "fr",
		Language:            "fr-FR",
		StorefrontURL:       "https://apps.apple.com",
		APIURL:              "https://amp-api.apps.apple.com",
		Platform:            "web",
		AdditionalPlatforms: []string{"appletv", "ipad", "iphone", "mac"},
		UserAgents: []string{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.4 Safari/605.1.15",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/113.0.0.0 Safari/537.36",
		},
		Storage: StorageConfig{
			OutputDir:     "data",
			Delimiter:     ";",
			WriteAttempts: 3,
			WriteDelayMS:  1000,
		},
		HTTP:       HTTPConfig{TimeoutMS: 30_000},
		Retry:      RetryConfig{Attempts: 5, DelayMS: 10_000},
		ThrottleMS: 500,
		Columns: ColumnsConfig{
			Rename: map[string]string{
				"attributes.date":                      "review_date",
				"attributes.review":                    "review_text",
				"attributes.rating":                    "rating",
				"attributes.title":                     "review_title",
				"attributes.developerResponse.body":    "developer_response",
				"attributes.developerResponse.modified": "developer_response_date",
			},
			Drop: []string{
				"id",
				"type",
				"attributes.isEdited",
				"attributes.userName",
				"attributes.developerResponse.id",
			},
		},
		LogLevel: "info",
	}
}

// Load reads the YAML configuration at path, applies APPREVIEWS_* environment
// overrides, fills unset fields from Defaults, loads the app list file and
// validates the result.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", absPath, err)
	}

	if err := finish(&cfg, filepath.Dir(absPath)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv builds a configuration without a file: defaults plus environment
// overrides. Relative paths resolve against the working directory.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := finish(&cfg, "."); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config, baseDir string) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env overrides: %w", err)
	}

	applyDefaults(cfg)

	if cfg.AppsFile != "" {
		appsPath := cfg.AppsFile
		if !filepath.IsAbs(appsPath) {
			appsPath = filepath.Join(baseDir, appsPath)
		}
		apps, err := LoadApps(appsPath)
		if err != nil {
			return err
		}
		cfg.AppsFile = appsPath
		cfg.Apps = append(cfg.Apps, apps...)
	}

	return Validate(cfg)
}

// applyDefaults fills zero fields from Defaults. Column maps are only taken
// from the defaults when the file leaves the whole columns block out, so a
// configured rename map is never extended with default keys.
func applyDefaults(cfg *Config) {
	defaults := Defaults()
	columns := defaults.Columns
	defaults.Columns = ColumnsConfig{}

	// mergo only errors on mismatched or non-pointer arguments.
	_ = mergo.Merge(cfg, defaults)

	if cfg.Columns.Rename == nil && cfg.Columns.Drop == nil {
		cfg.Columns = columns
	}
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutMS) * time.Millisecond
}

func (c *Config) BaseDelay() time.Duration {
	return time.Duration(c.Retry.DelayMS) * time.Millisecond
}

func (c *Config) Throttle() time.Duration {
	return time.Duration(c.ThrottleMS) * time.Millisecond
}

// DelimiterRune returns the CSV field separator.
func (c *Config) DelimiterRune() rune {
	for _, r := range c.Storage.Delimiter {
		return r
	}
	return ';'
}
