package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/eltociear/Ef-RAFT/internal/attention"
	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

// Config represents the application configuration
type Config struct {
	Attention AttentionConfig `mapstructure:"attention" yaml:"attention"`
	Runtime   RuntimeConfig   `mapstructure:"runtime" yaml:"runtime"`
	CLI       CLIConfig       `mapstructure:"cli" yaml:"cli"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

type AttentionConfig struct {
	FeatureSize   int     `mapstructure:"feature_size" yaml:"feature_size"`
	EncSize       int     `mapstructure:"enc_size" yaml:"enc_size"`
	Heads         int     `mapstructure:"heads" yaml:"heads"`
	Dropout       float64 `mapstructure:"dropout" yaml:"dropout"`
	Bias          bool    `mapstructure:"bias" yaml:"bias"`
	MaxLen        int     `mapstructure:"max_len" yaml:"max_len"`
	Interpolation string  `mapstructure:"interpolation" yaml:"interpolation"`
}

type RuntimeConfig struct {
	Seed    int64 `mapstructure:"seed" yaml:"seed"`
	Workers int   `mapstructure:"workers" yaml:"workers"`
}

type CLIConfig struct {
	Color           bool `mapstructure:"color" yaml:"color"`
	SyntaxHighlight bool `mapstructure:"syntax_highlight" yaml:"syntax_highlight"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	File    string `mapstructure:"file" yaml:"file"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	efraftDir := filepath.Join(home, ".efraft")
	defaults := attention.DefaultConfig()

	return &Config{
		Attention: AttentionConfig{
			FeatureSize:   defaults.FeatureSize,
			EncSize:       defaults.EncSize,
			Heads:         defaults.Heads,
			Dropout:       defaults.Dropout,
			Bias:          defaults.Bias,
			MaxLen:        defaults.MaxLen,
			Interpolation: defaults.Interpolation.String(),
		},
		Runtime: RuntimeConfig{
			Seed:    1234,
			Workers: 0,
		},
		CLI: CLIConfig{
			Color:           true,
			SyntaxHighlight: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    filepath.Join(efraftDir, "efraft.log"),
			Console: true,
		},
	}
}

// Load loads configuration from file, environment, and defaults
func Load(cfgFile string) (*Config, error) {
	return LoadWith(viper.New(), cfgFile)
}

// LoadWith loads configuration into v, which may already carry bound flags
func LoadWith(v *viper.Viper, cfgFile string) (*Config, error) {
	// Set defaults
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	// Config file setup
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".efraft"))
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// Environment variables
	v.SetEnvPrefix("EFRAFT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is okay, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand paths
	cfg.ExpandPaths()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := c.AttentionConfig(); err != nil {
		return err
	}

	if c.Runtime.Workers < 0 {
		return errors.New("runtime.workers must not be negative")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !lo.Contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// AttentionConfig converts the attention and runtime sections into a
// validated module configuration
func (c *Config) AttentionConfig() (attention.Config, error) {
	interp, err := tensor.ParseInterpolation(c.Attention.Interpolation)
	if err != nil {
		return attention.Config{}, fmt.Errorf("attention.interpolation: %w", err)
	}

	ac := attention.Config{
		FeatureSize:   c.Attention.FeatureSize,
		EncSize:       c.Attention.EncSize,
		Heads:         c.Attention.Heads,
		Dropout:       c.Attention.Dropout,
		Bias:          c.Attention.Bias,
		MaxLen:        c.Attention.MaxLen,
		Interpolation: interp,
		Seed:          c.Runtime.Seed,
		Workers:       c.Runtime.Workers,
	}
	if err := ac.Validate(); err != nil {
		return attention.Config{}, err
	}
	return ac, nil
}

// YAML renders the effective configuration as a YAML document
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return string(out), nil
}

// ExpandPaths expands ~ and environment variables in paths
func (c *Config) ExpandPaths() {
	c.Logging.File = expandPath(c.Logging.File)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("attention.feature_size", cfg.Attention.FeatureSize)
	v.SetDefault("attention.enc_size", cfg.Attention.EncSize)
	v.SetDefault("attention.heads", cfg.Attention.Heads)
	v.SetDefault("attention.dropout", cfg.Attention.Dropout)
	v.SetDefault("attention.bias", cfg.Attention.Bias)
	v.SetDefault("attention.max_len", cfg.Attention.MaxLen)
	v.SetDefault("attention.interpolation", cfg.Attention.Interpolation)

	v.SetDefault("runtime.seed", cfg.Runtime.Seed)
	v.SetDefault("runtime.workers", cfg.Runtime.Workers)

	v.SetDefault("cli.color", cfg.CLI.Color)
	v.SetDefault("cli.syntax_highlight", cfg.CLI.SyntaxHighlight)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
