// Package config loads service settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Http     HTTPConfig     `yaml:"http"`
	Models   ModelsConfig   `yaml:"models"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Stream   StreamConfig   `yaml:"stream"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	RateLimit      struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

type ModelsConfig struct {
	Dir             string `yaml:"dir"`
	MalwareModel    string `yaml:"malware_model"`
	MalwareFeatures string `yaml:"malware_features"`
	SpamModel       string `yaml:"spam_model"`
	SpamVectorizer  string `yaml:"spam_vectorizer"`
	SpamKeywords    string `yaml:"spam_keywords"`
}

type CacheConfig struct {
	SpamSize int `yaml:"spam_size"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type StreamConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() *Config {
	cfg := &Config{
		Http: HTTPConfig{
			Port:           8000,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			MaxBodyBytes:   1 << 20,
		},
		Models: ModelsConfig{
			Dir:             "models",
			MalwareModel:    "malware_rf_model.json",
			MalwareFeatures: "malware_features.json",
			SpamModel:       "spam_rf_model.json",
			SpamVectorizer:  "spam_tfidf.json",
			SpamKeywords:    "spam_keywords.json",
		},
		Cache: CacheConfig{SpamSize: 1024},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
	cfg.Http.RateLimit.RPS = 50
	cfg.Http.RateLimit.Burst = 100
	return cfg
}

// Load reads .env (if present), then the YAML file over the defaults, then
// environment overrides. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		payload, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(payload, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CYBERML_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CYBERML_PORT: %w", err)
		}
		c.Http.Port = port
	}
	if v := os.Getenv("CYBERML_MODELS_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := os.Getenv("CYBERML_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CYBERML_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.MaxBodyBytes < 0 {
		return errors.New("http.max_body_bytes must not be negative")
	}
	if c.Http.RateLimit.RPS < 0 || c.Http.RateLimit.Burst < 0 {
		return errors.New("http.rate_limit values must not be negative")
	}
	if c.Cache.SpamSize < 0 {
		return errors.New("cache.spam_size must not be negative")
	}
	if c.Models.Dir == "" {
		return errors.New("models.dir is required")
	}
	return nil
}

// Path resolves an artifact file name against the models directory.
// Absolute names are used as is.
func (m ModelsConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.Dir, name)
}
