// Package config loads service settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the service configuration.
type Config struct {
	Addr        string         `yaml:"addr"`
	CORSOrigins []string       `yaml:"cors_origins"`
	Redis       RedisConfig    `yaml:"redis"`
	OCR         OCRConfig      `yaml:"ocr"`
	Reminder    ReminderConfig `yaml:"reminder"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type OCRConfig struct {
	Binary   string        `yaml:"binary"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ReminderConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:        ":8080",
		CORSOrigins: []string{"*"},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		OCR: OCRConfig{
			Binary:   "tesseract",
			Language: "eng",
			Timeout:  time.Minute,
		},
		Reminder: ReminderConfig{
			Interval: 30 * time.Second,
		},
	}
}

// Load reads .env (if present), then the YAML file at path (if not empty),
// then applies CLASSTRACK_* environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("CLASSTRACK_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("CLASSTRACK_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("CLASSTRACK_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLASSTRACK_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CLASSTRACK_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CLASSTRACK_REDIS_DB %q: %w", v, err)
		}
		c.Redis.DB = db
	}
	if v := os.Getenv("CLASSTRACK_TESSERACT"); v != "" {
		c.OCR.Binary = v
	}
	if v := os.Getenv("CLASSTRACK_OCR_LANG"); v != "" {
		c.OCR.Language = v
	}
	if v := os.Getenv("CLASSTRACK_OCR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CLASSTRACK_OCR_TIMEOUT %q: %w", v, err)
		}
		c.OCR.Timeout = d
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
