package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendFile = "file"
	BackendGCS  = "gcs"
)

// Config represents the application configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	GCS      GCSConfig      `mapstructure:"gcs"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	BigQuery BigQueryConfig `mapstructure:"bigquery"`
}

// StorageConfig selects where the ledger document lives.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // "file" or "gcs"
	Path    string `mapstructure:"path"`    // file backend only
}

// GCSConfig locates the ledger document in Cloud Storage.
type GCSConfig struct {
	URI             string `mapstructure:"uri"` // gs://bucket/object, overrides bucket and object
	Bucket          string `mapstructure:"bucket"`
	Object          string `mapstructure:"object"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	StaticDir    string        `mapstructure:"static_dir"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// BigQueryConfig is the export destination.
type BigQueryConfig struct {
	Project         string `mapstructure:"project"`
	Dataset         string `mapstructure:"dataset"`
	Table           string `mapstructure:"table"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// EnvPrefix prefixes environment overrides, e.g. CLEARLEDGER_STORAGE_PATH.
const EnvPrefix = "CLEARLEDGER"

// Load reads configuration from the optional file at path, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", "data/companies.json")
	v.SetDefault("gcs.uri", "")
	v.SetDefault("gcs.bucket", "")
	v.SetDefault("gcs.object", "companies.json")
	v.SetDefault("gcs.credentials_file", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.static_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("bigquery.project", "")
	v.SetDefault("bigquery.dataset", "")
	v.SetDefault("bigquery.table", "transactions")
	v.SetDefault("bigquery.credentials_file", "")
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the file backend")
		}
	case BackendGCS:
		if c.GCS.URI == "" && (c.GCS.Bucket == "" || c.GCS.Object == "") {
			return errors.New("gcs.uri or gcs.bucket and gcs.object are required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// ValidateExport checks that a BigQuery destination is configured.
func (c *Config) ValidateExport() error {
	if c.BigQuery.Project == "" || c.BigQuery.Dataset == "" || c.BigQuery.Table == "" {
		return errors.New("bigquery.project, bigquery.dataset and bigquery.table are required for export")
	}
	return nil
}
