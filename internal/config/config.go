// Package config assembles the process configuration once at startup.
//
// Precedence, lowest to highest: built-in defaults, the YAML file,
// variables from .env, process environment variables. CLI flags are applied
// on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/vvka-141/payetl/pkg/payetl"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConfigFileName is looked up in the working directory when no explicit
// path is given.
const ConfigFileName = "payetl.yaml"

// Config holds every setting of a run. Load builds it once per process and
// callers pass it down explicitly. Fields are listed with their YAML key and
// environment variable.
type Config struct {
	Bucket   string `yaml:"bucket" envconfig:"S3_BUCKET"`
	Prefix   string `yaml:"prefix" envconfig:"S3_PREFIX"`
	Region   string `yaml:"region" envconfig:"AWS_REGION"`
	Endpoint string `yaml:"endpoint,omitempty" envconfig:"S3_ENDPOINT"`

	// DBCredentials is a JSON document with host, port, user, password and
	// database. DatabaseURL is consulted only when it is empty.
	DBCredentials string `yaml:"-" envconfig:"DB_CREDENTIALS"`
	DatabaseURL   string `yaml:"database_url,omitempty" envconfig:"DATABASE_URL"`
	DBAuth        string `yaml:"db_auth,omitempty" envconfig:"DB_AUTH"`

	BatchSize      int           `yaml:"batch_size" envconfig:"BATCH_SIZE"`
	HeaderSkipRows int           `yaml:"header_skip_rows" envconfig:"HEADER_SKIP_ROWS"`
	ScratchDir     string        `yaml:"scratch_dir" envconfig:"SCRATCH_DIR"`
	Atomic         bool          `yaml:"atomic" envconfig:"LOAD_ATOMIC"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		BatchSize:      payetl.DefaultBatchSize,
		HeaderSkipRows: payetl.DefaultHeaderSkipRows,
		ScratchDir:     payetl.DefaultScratchDir,
	}
}

// Load builds the configuration from every source.
// An explicit path must exist; the implicit payetl.yaml is optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = ConfigFileName
	}
	if err := cfg.mergeFile(path); err != nil {
		if !explicit && errors.Is(err, ErrConfigNotFound) {
			err = nil
		}
		if err != nil {
			return nil, err
		}
	}

	// A missing .env is the normal case in deployed environments.
	_ = godotenv.Load()

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %v: %w", err, payetl.ErrInvalidConfig)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, ErrConfigNotFound)
		}
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %v: %w", path, err, payetl.ErrInvalidConfig)
	}
	return nil
}

// Validate checks everything a full pipeline run needs.
// It returns a multi-error if multiple validation failures occur.
func (c *Config) Validate() error {
	var errs []error

	if c.Bucket == "" {
		errs = append(errs, fmt.Errorf("S3_BUCKET is required: %w", payetl.ErrInvalidConfig))
	}
	if c.DBCredentials == "" && c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DB_CREDENTIALS or DATABASE_URL is required: %w", payetl.ErrInvalidConfig))
	}
	if _, err := payetl.ParseAuthMethod(c.DBAuth); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.ValidateCleaning())
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d: %w", c.BatchSize, payetl.ErrInvalidConfig))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", payetl.ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ValidateCleaning checks only the settings the cleaner uses.
func (c *Config) ValidateCleaning() error {
	var errs []error
	if c.HeaderSkipRows < 0 {
		errs = append(errs, fmt.Errorf("header skip rows cannot be negative: %w", payetl.ErrInvalidConfig))
	}
	if c.ScratchDir == "" {
		errs = append(errs, fmt.Errorf("scratch dir is required: %w", payetl.ErrInvalidConfig))
	}
	return errors.Join(errs...)
}
