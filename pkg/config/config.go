// Package config holds the nebulaframe engine configuration.
//
// The configuration is organized into sections:
//   - Log: logger level and encoding
//   - Codec: JSON encoder settings
//   - Join, Explode: default operation options for the plan runner and CLI
//   - Arrow: Arrow bridge mode flags
//   - Metrics, Tracing: step instrumentation
//
// Example usage:
//
//	cfg, err := config.Load("nebulaframe.yaml")
//	if err != nil {
//	    return err
//	}
//	cfg.Codec.Indent = "  "
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
)

// EnvPrefix is the prefix of environment variables overriding file values.
const EnvPrefix = "NEBULAFRAME"

// Config is the root configuration structure.
type Config struct {
	Log     LogConfig     `yaml:"log" json:"log" mapstructure:"log"`
	Codec   CodecConfig   `yaml:"codec" json:"codec" mapstructure:"codec"`
	Join    JoinConfig    `yaml:"join" json:"join" mapstructure:"join"`
	Explode ExplodeConfig `yaml:"explode" json:"explode" mapstructure:"explode"`
	Arrow   ArrowConfig   `yaml:"arrow" json:"arrow" mapstructure:"arrow"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing" mapstructure:"tracing"`
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level       string `yaml:"level" json:"level" mapstructure:"level"`
	// Encoding is json or console
	Encoding    string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
	Development bool   `yaml:"development" json:"development" mapstructure:"development"`
}

// CodecConfig configures the nested JSON codec.
type CodecConfig struct {
	// MetadataPreserving wraps frame cells with their row and column counts
	MetadataPreserving bool   `yaml:"metadata_preserving" json:"metadata_preserving" mapstructure:"metadata_preserving"`
	// Version is written into the document envelope
	Version            string `yaml:"version" json:"version" mapstructure:"version"`
	Indent             string `yaml:"indent" json:"indent" mapstructure:"indent"`
}

// JoinConfig holds join defaults.
type JoinConfig struct {
	// Type is one of inner, left, right, full, exclude
	Type string `yaml:"type" json:"type" mapstructure:"type"`
}

// ExplodeConfig holds explode defaults.
type ExplodeConfig struct {
	DropEmpty bool `yaml:"drop_empty" json:"drop_empty" mapstructure:"drop_empty"`
}

// ArrowConfig configures the Arrow bridge.
type ArrowConfig struct {
	// Mode is lenient or strict. Strict overrides the individual flags.
	Mode           string `yaml:"mode" json:"mode" mapstructure:"mode"`
	AllowWidening  bool   `yaml:"allow_widening" json:"allow_widening" mapstructure:"allow_widening"`
	AllowNarrowing bool   `yaml:"allow_narrowing" json:"allow_narrowing" mapstructure:"allow_narrowing"`
	StrictType     bool   `yaml:"strict_type" json:"strict_type" mapstructure:"strict_type"`
	StrictNullable bool   `yaml:"strict_nullable" json:"strict_nullable" mapstructure:"strict_nullable"`
	// BatchSize caps rows per record batch; 0 writes a single batch.
	BatchSize int `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
}

// MetricsConfig configures Prometheus step metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace" mapstructure:"namespace"`
}

// TracingConfig configures OpenTelemetry step tracing.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name" mapstructure:"service_name"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Codec: CodecConfig{
			MetadataPreserving: true,
			Version:            "0.15.0",
		},
		Join: JoinConfig{Type: "inner"},
		Explode: ExplodeConfig{
			DropEmpty: true,
		},
		Arrow: ArrowConfig{
			Mode:           "lenient",
			AllowWidening:  true,
			AllowNarrowing: true,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "nebulaframe",
		},
		Tracing: TracingConfig{
			ServiceName: "nebulaframe",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("codec.metadata_preserving", d.Codec.MetadataPreserving)
	v.SetDefault("codec.version", d.Codec.Version)
	v.SetDefault("codec.indent", d.Codec.Indent)
	v.SetDefault("join.type", d.Join.Type)
	v.SetDefault("explode.drop_empty", d.Explode.DropEmpty)
	v.SetDefault("arrow.mode", d.Arrow.Mode)
	v.SetDefault("arrow.allow_widening", d.Arrow.AllowWidening)
	v.SetDefault("arrow.allow_narrowing", d.Arrow.AllowNarrowing)
	v.SetDefault("arrow.strict_type", d.Arrow.StrictType)
	v.SetDefault("arrow.strict_nullable", d.Arrow.StrictNullable)
	v.SetDefault("arrow.batch_size", d.Arrow.BatchSize)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Load reads the configuration file at path (may be empty) and applies
// NEBULAFRAME_* environment overrides, e.g. NEBULAFRAME_LOG_LEVEL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	validLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validEncodings = map[string]bool{"json": true, "console": true}
	validJoinTypes = map[string]bool{"inner": true, "left": true, "right": true, "full": true, "exclude": true}
	validArrowMode = map[string]bool{"lenient": true, "strict": true}
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return errors.Newf(errors.ErrorTypeConfig, "invalid log level %q", c.Log.Level)
	}
	if !validEncodings[c.Log.Encoding] {
		return errors.Newf(errors.ErrorTypeConfig, "invalid log encoding %q", c.Log.Encoding)
	}
	if !validJoinTypes[strings.ToLower(c.Join.Type)] {
		return errors.Newf(errors.ErrorTypeConfig, "invalid join type %q", c.Join.Type)
	}
	if !validArrowMode[strings.ToLower(c.Arrow.Mode)] {
		return errors.Newf(errors.ErrorTypeConfig, "invalid arrow mode %q", c.Arrow.Mode)
	}
	if c.Arrow.BatchSize < 0 {
		return errors.Newf(errors.ErrorTypeConfig, "arrow batch size must not be negative, got %d", c.Arrow.BatchSize)
	}
	if c.Codec.Version == "" {
		return errors.New(errors.ErrorTypeConfig, "codec version must not be empty")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.New(errors.ErrorTypeConfig, "metrics namespace is required when metrics are enabled")
	}
	return nil
}
