// Package config handles configuration for the server: defaults, an optional
// YAML overlay and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendSQL   = "sql"
)

// Config holds runtime settings for the inventory server.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	Storage StorageConfig `yaml:"storage"`
	Web     WebConfig     `yaml:"web"`
	Log     LogConfig     `yaml:"log"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

// GRPCConfig controls the gRPC listener that serves grpc.health.v1.
type GRPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// StorageConfig selects the record-store backend and names the two
// collections. Only the fields of the chosen backend are read.
type StorageConfig struct {
	Backend             string `yaml:"backend"`
	UsersCollection     string `yaml:"users_collection"`
	InventoryCollection string `yaml:"inventory_collection"`

	DataDir string `yaml:"data_dir"`

	RedisAddr      string `yaml:"redis_addr"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`

	SQLDriver string `yaml:"sql_driver"`
	SQLDSN    string `yaml:"sql_dsn"`
}

// WebConfig.Dir, when set, serves the login and dashboard pages from disk
// instead of the embedded copies.
type WebConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadDefaults populates Config with the settings of a single local instance.
func (c *Config) LoadDefaults() {
	c.HTTP.Address = ":5000"
	c.GRPC.Enabled = true
	c.GRPC.Address = ":50051"
	c.Storage.Backend = BackendFile
	c.Storage.UsersCollection = "users"
	c.Storage.InventoryCollection = "inventory"
	c.Storage.DataDir = "."
	c.Storage.RedisAddr = "localhost:6379"
	c.Storage.RedisKeyPrefix = "medstock:"
	c.Storage.SQLDriver = "sqlite3"
	c.Storage.SQLDSN = "medstock.db"
	c.Log.Level = "info"
	c.Log.Format = "text"
}

// Load applies defaults, then the YAML file at path (skipped when path is
// empty), then MEDSTOCK_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.HTTP.Address = getEnv("MEDSTOCK_HTTP_ADDR", c.HTTP.Address)
	c.GRPC.Address = getEnv("MEDSTOCK_GRPC_ADDR", c.GRPC.Address)
	c.Storage.Backend = getEnv("MEDSTOCK_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.DataDir = getEnv("MEDSTOCK_DATA_DIR", c.Storage.DataDir)
	c.Storage.RedisAddr = getEnv("MEDSTOCK_REDIS_ADDR", c.Storage.RedisAddr)
	c.Storage.SQLDriver = getEnv("MEDSTOCK_SQL_DRIVER", c.Storage.SQLDriver)
	c.Storage.SQLDSN = getEnv("MEDSTOCK_SQL_DSN", c.Storage.SQLDSN)
	c.Web.Dir = getEnv("MEDSTOCK_WEB_DIR", c.Web.Dir)
	c.Log.Level = getEnv("MEDSTOCK_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("MEDSTOCK_LOG_FORMAT", c.Log.Format)

	enabled, err := getEnvBool("MEDSTOCK_GRPC_ENABLED", c.GRPC.Enabled)
	if err != nil {
		return err
	}
	c.GRPC.Enabled = enabled
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Address == "" {
		errs = append(errs, errors.New("http.address is required"))
	}
	if c.GRPC.Enabled && c.GRPC.Address == "" {
		errs = append(errs, errors.New("grpc.address is required when grpc is enabled"))
	}
	if c.Storage.UsersCollection == "" || c.Storage.InventoryCollection == "" {
		errs = append(errs, errors.New("storage collections must be named"))
	}
	if c.Storage.UsersCollection == c.Storage.InventoryCollection {
		errs = append(errs, errors.New("users and inventory collections must differ"))
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.DataDir == "" {
			errs = append(errs, errors.New("storage.data_dir is required for the file backend"))
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			errs = append(errs, errors.New("storage.redis_addr is required for the redis backend"))
		}
	case BackendSQL:
		if c.Storage.SQLDriver != "mysql" && c.Storage.SQLDriver != "sqlite3" {
			errs = append(errs, fmt.Errorf("storage.sql_driver %q is not supported", c.Storage.SQLDriver))
		}
		if c.Storage.SQLDSN == "" {
			errs = append(errs, errors.New("storage.sql_dsn is required for the sql backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}
