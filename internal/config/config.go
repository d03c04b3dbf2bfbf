// Package config holds logsleuth configuration, read from environment
// variables with sensible defaults and optionally overridden by a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all logsleuth configuration.
type Config struct {
	Store   StoreConfig  `yaml:"store"`
	GeoIP   GeoIPConfig  `yaml:"geoip"`
	Ingest  IngestConfig `yaml:"ingest"`
	Report  ReportConfig `yaml:"report"`
	Logging LogConfig    `yaml:"logging"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "memory" or "bolt"
	Path    string `yaml:"path"`    // bolt database file
}

// GeoIPConfig locates the optional MaxMind database. Empty path disables
// enrichment.
type GeoIPConfig struct {
	DBPath string `yaml:"db_path"`
}

// IngestConfig holds parsing and watch-mode settings.
type IngestConfig struct {
	BatchSize      int     `yaml:"batch_size"`
	InferThreshold float64 `yaml:"infer_threshold"`
	WatchDir       string  `yaml:"watch_dir"`
}

// ReportConfig selects where anomaly reports are delivered in addition to
// stdout. Empty values disable the corresponding sink.
type ReportConfig struct {
	File       string `yaml:"file"`        // NDJSON file to append reports to
	WebhookURL string `yaml:"webhook_url"` // HTTP endpoint to POST reports to
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		Store: StoreConfig{
			Backend: getenv("LOGSLEUTH_STORE", "memory"),
			Path:    getenv("LOGSLEUTH_STORE_PATH", "logsleuth.db"),
		},
		GeoIP: GeoIPConfig{
			DBPath: os.Getenv("GEOIP_DB_PATH"),
		},
		Ingest: IngestConfig{
			BatchSize:      getenvInt("LOGSLEUTH_BATCH_SIZE", 500),
			InferThreshold: getenvFloat("LOGSLEUTH_INFER_THRESHOLD", 0.45),
			WatchDir:       os.Getenv("LOGSLEUTH_WATCH_DIR"),
		},
		Report: ReportConfig{
			File:       os.Getenv("LOGSLEUTH_REPORT_FILE"),
			WebhookURL: os.Getenv("LOGSLEUTH_WEBHOOK_URL"),
		},
		Logging: LogConfig{
			Level: getenv("LOGSLEUTH_LOG_LEVEL", "info"),
			JSON:  os.Getenv("LOGSLEUTH_LOG_JSON") == "true",
		},
	}
}

// LoadFile overlays the YAML file at path onto the env-derived config and
// validates the result.
func LoadFile(path string) (Config, error) {
	cfg := Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func validate(c *Config) error {
	switch c.Store.Backend {
	case "memory":
	case "bolt":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required when store.backend=bolt")
		}
	default:
		return fmt.Errorf("unsupported store.backend %q", c.Store.Backend)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be > 0")
	}
	if c.Ingest.InferThreshold < 0 || c.Ingest.InferThreshold > 1 {
		return fmt.Errorf("ingest.infer_threshold must be in [0,1]")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
