// Package config loads s3scan runtime configuration.
//
// Precedence, highest first: runtime overrides (bound CLI flags or explicit
// override maps), S3SCAN_* environment variables, the config file, defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. S3SCAN_SCAN_PAGE_SIZE.
const EnvPrefix = "S3SCAN"

// Defaults.
const (
	DefaultPageSize  = 50
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	maxPageSize      = 1000
)

// Config is the complete runtime configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	S3      S3Config      `mapstructure:"s3"`
	Scan    ScanConfig    `mapstructure:"scan"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// S3Config configures the S3 client. Empty fields fall through to the AWS
// SDK default chain.
type S3Config struct {
	Region            string  `mapstructure:"region"`
	Profile           string  `mapstructure:"profile"`
	Endpoint          string  `mapstructure:"endpoint"`
	ForcePathStyle    bool    `mapstructure:"force_path_style"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// ScanConfig configures scanning.
type ScanConfig struct {
	// PageSize is the number of keys requested per listing call.
	PageSize int `mapstructure:"page_size"`

	// Timeout bounds one command's scanning. Zero means no deadline.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// SetDefaults registers default values on v.
//
// Every key must have a default so that AutomaticEnv can resolve it during
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.profile", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.force_path_style", false)
	v.SetDefault("s3.requests_per_second", 0.0)

	v.SetDefault("scan.page_size", DefaultPageSize)
	v.SetDefault("scan.timeout", "0s")
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile loads a YAML/JSON/TOML config file into v.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load decodes v into a Config, applying overrides first.
//
// Override maps may be nested ({"scan": {"page_size": 10}}) and take
// precedence over environment and file values.
func Load(v *viper.Viper, overrides ...map[string]any) (*Config, error) {
	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q (want console or json)", ErrInvalidConfig, c.Logging.Format)
	}
	if c.Scan.PageSize < 1 || c.Scan.PageSize > maxPageSize {
		return fmt.Errorf("%w: scan.page_size %d (want 1-%d)", ErrInvalidConfig, c.Scan.PageSize, maxPageSize)
	}
	if c.Scan.Timeout < 0 {
		return fmt.Errorf("%w: scan.timeout must not be negative", ErrInvalidConfig)
	}
	if c.S3.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: s3.requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}
