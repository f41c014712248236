// Package config loads process configuration from defaults, an optional
// YAML file and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"projectgraph/pkg/utils"
)

// ConfigFileEnv names the variable holding the YAML config path.
const ConfigFileEnv = "GRAPH_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment" json:"environment" validate:"required,oneof=development staging production test"`
	LogLevel    string `yaml:"logLevel" json:"logLevel" validate:"omitempty,oneof=debug info warn error"`

	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Autosave AutosaveConfig `yaml:"autosave" json:"autosave"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
}

// StorageConfig selects and tunes the persistence backend.
type StorageConfig struct {
	// Backend is auto, files, sqlite or kvstore.
	Backend    string `yaml:"backend" json:"backend" validate:"omitempty,oneof=auto files sqlite kvstore"`
	DataDir    string `yaml:"dataDir" json:"dataDir"`
	SQLitePath string `yaml:"sqlitePath" json:"sqlitePath"`
	Key        string `yaml:"key" json:"key" validate:"required"`
	// KVStore is memory or dynamodb.
	KVStore       string `yaml:"kvStore" json:"kvStore" validate:"oneof=memory dynamodb"`
	DynamoDBTable string `yaml:"dynamodbTable" json:"dynamodbTable" validate:"required_if=KVStore dynamodb"`
	AWSRegion     string `yaml:"awsRegion" json:"awsRegion"`

	// Capability switches for automatic selection.
	DisableFilesystem  bool `yaml:"disableFilesystem" json:"disableFilesystem"`
	DisableObjectStore bool `yaml:"disableObjectStore" json:"disableObjectStore"`

	BackupsEnabled  bool `yaml:"backupsEnabled" json:"backupsEnabled"`
	BackupRetention int  `yaml:"backupRetention" json:"backupRetention" validate:"gte=1,lte=1000"`
}

type AutosaveConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Interval time.Duration `yaml:"interval" json:"interval" validate:"gte=1s"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace" validate:"required"`
}

type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	Endpoint   string  `yaml:"endpoint" json:"endpoint"`
	SampleRate float64 `yaml:"sampleRate" json:"sampleRate" validate:"gte=0,lte=1"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" json:"address"`
	EnableCORS bool   `yaml:"enableCors" json:"enableCors"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Storage: StorageConfig{
			Backend:         "auto",
			DataDir:         "data/graphs",
			SQLitePath:      "data/graphs.db",
			Key:             "project-graph",
			KVStore:         "memory",
			AWSRegion:       "us-west-2",
			BackupsEnabled:  true,
			BackupRetention: 10,
		},
		Autosave: AutosaveConfig{Enabled: true, Interval: 5 * time.Minute},
		Metrics:  MetricsConfig{Enabled: true, Namespace: "projectgraph"},
		Tracing:  TracingConfig{SampleRate: 1},
		HTTP:     HTTPConfig{Address: ":8080", EnableCORS: true},
	}
}

// LoadConfig reads the file named by GRAPH_CONFIG_FILE, if set, then
// applies environment overrides and validates the result.
func LoadConfig() (*Config, error) {
	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile is LoadConfig with an explicit file path. An empty path skips
// the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Storage.Backend = getEnv("GRAPH_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.DataDir = getEnv("GRAPH_DATA_DIR", c.Storage.DataDir)
	c.Storage.SQLitePath = getEnv("GRAPH_SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.Key = getEnv("GRAPH_STORAGE_KEY", c.Storage.Key)
	c.Storage.KVStore = getEnv("GRAPH_KV_STORE", c.Storage.KVStore)
	c.Storage.DynamoDBTable = getEnv("DYNAMODB_TABLE", c.Storage.DynamoDBTable)
	c.Storage.AWSRegion = getEnv("AWS_REGION", c.Storage.AWSRegion)
	c.Storage.DisableFilesystem = getEnvBool("GRAPH_DISABLE_FILESYSTEM", c.Storage.DisableFilesystem)
	c.Storage.DisableObjectStore = getEnvBool("GRAPH_DISABLE_OBJECT_STORE", c.Storage.DisableObjectStore)
	c.Storage.BackupsEnabled = getEnvBool("GRAPH_BACKUPS_ENABLED", c.Storage.BackupsEnabled)
	c.Storage.BackupRetention = getEnvInt("GRAPH_BACKUP_RETENTION", c.Storage.BackupRetention)

	c.Autosave.Enabled = getEnvBool("GRAPH_AUTOSAVE", c.Autosave.Enabled)
	c.Autosave.Interval = getEnvDuration("GRAPH_AUTOSAVE_INTERVAL", c.Autosave.Interval)

	c.Metrics.Enabled = getEnvBool("ENABLE_METRICS", c.Metrics.Enabled)
	c.Metrics.Namespace = getEnv("METRICS_NAMESPACE", c.Metrics.Namespace)

	c.Tracing.Enabled = getEnvBool("ENABLE_TRACING", c.Tracing.Enabled)
	c.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)

	c.HTTP.Address = getEnv("SERVER_ADDRESS", c.HTTP.Address)
	c.HTTP.EnableCORS = getEnvBool("ENABLE_CORS", c.HTTP.EnableCORS)
}

// Validate checks the struct constraints.
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c, "config"); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
