// Package config loads runtime configuration from flags, environment,
// and an optional YAML config file via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Defaults shared by the CLI and tests.
const (
	DefaultWorkers       = 0 // 0 means "all CPU threads"
	DefaultMaxOutputMB   = 10
	DefaultCodec         = "h264"
	DefaultContainer     = "mp4"
	DefaultProbeTimeout  = 30 * time.Second
	DefaultEncodeTimeout = 5 * time.Minute
)

// Config is the immutable runtime configuration. Jobs share it
// read-only; nothing here changes after Load.
type Config struct {
	InputDir  string `mapstructure:"input_dir" yaml:"input_dir"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	Workers     int    `mapstructure:"workers" yaml:"workers"`
	MaxOutputMB int    `mapstructure:"max_output_mb" yaml:"max_output_mb"`
	Codec       string `mapstructure:"codec" yaml:"codec"`
	Container   string `mapstructure:"container" yaml:"container"`
	Hardware    bool   `mapstructure:"hardware" yaml:"hardware"`

	ProbeTimeout  time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	EncodeTimeout time.Duration `mapstructure:"encode_timeout" yaml:"encode_timeout"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" yaml:"log_json"`

	MetricsListen string `mapstructure:"metrics_listen" yaml:"metrics_listen"`
}

// MaxOutputBytes converts the configured megabyte ceiling to bytes.
func (c *Config) MaxOutputBytes() int64 {
	return int64(c.MaxOutputMB) * 1024 * 1024
}

// setDefaults registers defaults on a viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input_dir", "input")
	v.SetDefault("output_dir", "output")
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("max_output_mb", DefaultMaxOutputMB)
	v.SetDefault("codec", DefaultCodec)
	v.SetDefault("container", DefaultContainer)
	v.SetDefault("hardware", true)
	v.SetDefault("probe_timeout", DefaultProbeTimeout)
	v.SetDefault("encode_timeout", DefaultEncodeTimeout)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("metrics_listen", "")
}

// Load reads configuration from the given file (optional), the
// SPOTLIGHT_* environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SPOTLIGHT")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("spotlight")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".spotlight"))
		}
		// Missing default config is fine; defaults apply.
		_ = v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxOutputMB <= 0 {
		return fmt.Errorf("max_output_mb must be positive, got %d", c.MaxOutputMB)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	switch c.Codec {
	case "h264", "h265":
	default:
		return fmt.Errorf("unsupported codec %q (want h264 or h265)", c.Codec)
	}
	return nil
}

// WriteDefault writes a config file with all defaults to path.
func WriteDefault(path string) error {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
