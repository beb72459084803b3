package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Config holds the matchd process configuration. Values come from an
// optional YAML file, overridden by environment variables.
type Config struct {
	Listen          string  `yaml:"listen"`
	IndexPath       string  `yaml:"index_path"`
	Cutoff          float64 `yaml:"cutoff"`
	AllOrientations bool    `yaml:"all_orientations"`
	MaxCandidates   int     `yaml:"max_candidates"`
	LogLevel        string  `yaml:"log_level"`

	S3 S3Config `yaml:"s3"`
}

// S3Config enables fetching s3:// image references. Disabled when Endpoint
// is empty.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Listen:          ":8080",
		IndexPath:       "./match.bleve",
		Cutoff:          0.45,
		AllOrientations: false,
		MaxCandidates:   100,
		LogLevel:        "info",
	}
}

// LoadConfig reads path (if non-empty) and applies environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MATCHD_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("MATCHD_INDEX_PATH"); v != "" {
		c.IndexPath = v
	}
	if v := os.Getenv("MATCHD_CUTOFF"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MATCHD_CUTOFF: %w", err)
		}
		c.Cutoff = f
	}
	if v := os.Getenv("MATCHD_ALL_ORIENTATIONS"); v != "" {
		c.AllOrientations = v == "true"
	}
	if v := os.Getenv("MATCHD_MAX_CANDIDATES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MATCHD_MAX_CANDIDATES: %w", err)
		}
		c.MaxCandidates = n
	}
	if v := os.Getenv("MATCHD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MATCHD_S3_ENDPOINT"); v != "" {
		c.S3.Endpoint = v
	}
	if v := os.Getenv("MATCHD_S3_ACCESS_KEY"); v != "" {
		c.S3.AccessKey = v
	}
	if v := os.Getenv("MATCHD_S3_SECRET_KEY"); v != "" {
		c.S3.SecretKey = v
	}
	if v := os.Getenv("MATCHD_S3_USE_SSL"); v != "" {
		c.S3.UseSSL = v == "true"
	}
	return nil
}
