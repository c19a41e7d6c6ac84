// Package config loads server configuration from an optional YAML file,
// with environment variables taking precedence. A .env file in the working
// directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/soumikpal/schemagraph/internal/snapshot"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Neo4j    Neo4jConfig    `yaml:"neo4j"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Neo4jConfig holds graph database settings. When Enabled is false the
// server runs with an in-memory graph writer, which is only useful for
// local development.
type Neo4jConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// SnapshotConfig holds the optional snapshot archive settings.
type SnapshotConfig struct {
	Enabled bool `yaml:"enabled"`
	snapshot.Config `yaml:",inline"`
}

// Default returns the configuration used when no file and no env are set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8004"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Neo4j: Neo4jConfig{
			Enabled: true,
			URI:     "bolt://localhost:7687",
			User:    "neo4j",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (when
// non-empty), then environment variables.
func Load(path string) (*Config, error) {
	// Missing .env is fine; it only exists in dev setups.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setStr(&cfg.Server.Addr, "SCHEMAGRAPH_ADDR")
	setStr(&cfg.Log.Level, "SCHEMAGRAPH_LOG_LEVEL")
	setStr(&cfg.Log.Format, "SCHEMAGRAPH_LOG_FORMAT")

	setBool(&cfg.Neo4j.Enabled, "NEO4J_ENABLED")
	setStr(&cfg.Neo4j.URI, "NEO4J_URI")
	setStr(&cfg.Neo4j.User, "NEO4J_USER")
	setStr(&cfg.Neo4j.Password, "NEO4J_PASSWORD")
	setStr(&cfg.Neo4j.Database, "NEO4J_DATABASE")

	setBool(&cfg.Snapshot.Enabled, "SNAPSHOT_ENABLED")
	setStr(&cfg.Snapshot.Endpoint, "SNAPSHOT_ENDPOINT")
	setStr(&cfg.Snapshot.AccessKey, "SNAPSHOT_ACCESS_KEY")
	setStr(&cfg.Snapshot.SecretKey, "SNAPSHOT_SECRET_KEY")
	setBool(&cfg.Snapshot.UseSSL, "SNAPSHOT_USE_SSL")
	setStr(&cfg.Snapshot.Bucket, "SNAPSHOT_BUCKET")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
