package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "DASHBOARD_CONFIG"

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Remote content API configuration
	ContentAPI ContentAPIConfig `yaml:"contentApi"`

	// Query cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Image staging configuration
	Uploads UploadConfig `yaml:"uploads"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// Timezone defines "today" for the future-date check
	Timezone string `yaml:"timezone"`
}

// ContentAPIConfig describes the remote content store
type ContentAPIConfig struct {
	BaseURL string `yaml:"baseUrl"`
	// Timeout of zero means requests never time out
	Timeout time.Duration `yaml:"timeout"`
	// UpdateMode is "override" (POST with _method=PUT) or "put"
	UpdateMode string `yaml:"updateMode"`
	PerPage    int    `yaml:"perPage"`
	// Token is used by the CLI when no session token is supplied
	Token string `yaml:"token"`
}

// CacheConfig holds query cache settings
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // "memory" or "redis"
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDb"`
	TTL           time.Duration `yaml:"ttl"`
}

// UploadConfig holds settings for images staged before submission
type UploadConfig struct {
	Dir         string        `yaml:"dir"`
	MaxFileSize int64         `yaml:"maxFileSize"` // in bytes
	TTL         time.Duration `yaml:"ttl"`
	// DeletionTTL bounds how long an unconfirmed delete request is kept
	DeletionTTL   time.Duration `yaml:"deletionTtl"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "pretty"
}

// Load reads an optional .env file and YAML overlay, then environment
// variables, which take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	base := defaultConfig()
	if path := os.Getenv(configPathEnv); path != "" {
		if err := loadFile(path, base); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", base.Server.Port),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", base.Server.ReadTimeout),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", base.Server.WriteTimeout),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", base.Server.ShutdownTimeout),
			Timezone:        getEnv("DASHBOARD_TIMEZONE", base.Server.Timezone),
		},
		ContentAPI: ContentAPIConfig{
			BaseURL:    getEnv("CONTENT_API_URL", base.ContentAPI.BaseURL),
			Timeout:    getDurationEnv("CONTENT_API_TIMEOUT", base.ContentAPI.Timeout),
			UpdateMode: getEnv("CONTENT_API_UPDATE_MODE", base.ContentAPI.UpdateMode),
			PerPage:    getIntEnv("CONTENT_PER_PAGE", base.ContentAPI.PerPage),
			Token:      getEnv("CONTENT_API_TOKEN", base.ContentAPI.Token),
		},
		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", base.Cache.Backend),
			RedisAddr:     getEnv("REDIS_ADDR", base.Cache.RedisAddr),
			RedisPassword: getEnv("REDIS_PASSWORD", base.Cache.RedisPassword),
			RedisDB:       getIntEnv("REDIS_DB", base.Cache.RedisDB),
			TTL:           getDurationEnv("CACHE_TTL", base.Cache.TTL),
		},
		Uploads: UploadConfig{
			Dir:           getEnv("UPLOAD_DIR", base.Uploads.Dir),
			MaxFileSize:   getInt64Env("MAX_UPLOAD_SIZE", base.Uploads.MaxFileSize),
			TTL:           getDurationEnv("UPLOAD_TTL", base.Uploads.TTL),
			DeletionTTL:   getDurationEnv("DELETION_TTL", base.Uploads.DeletionTTL),
			SweepInterval: getDurationEnv("SWEEP_INTERVAL", base.Uploads.SweepInterval),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", base.Log.Level),
			Format: getEnv("LOG_FORMAT", base.Log.Format),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading the environment
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		ContentAPI: ContentAPIConfig{
			BaseURL:    "http://localhost:8000",
			UpdateMode: "override",
			PerPage:    7,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       5 * time.Minute,
		},
		Uploads: UploadConfig{
			Dir:           os.TempDir(),
			MaxFileSize:   10 * 1024 * 1024, // 10MB
			TTL:           30 * time.Minute,
			DeletionTTL:   10 * time.Minute,
			SweepInterval: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func loadFile(path string, into *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ContentAPI.BaseURL == "" {
		return fmt.Errorf("CONTENT_API_URL is required")
	}
	u, err := url.Parse(c.ContentAPI.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CONTENT_API_URL must be an absolute URL, got %q", c.ContentAPI.BaseURL)
	}
	if c.ContentAPI.UpdateMode != "override" && c.ContentAPI.UpdateMode != "put" {
		return fmt.Errorf("CONTENT_API_UPDATE_MODE must be one of: override, put")
	}
	if c.ContentAPI.PerPage < 1 {
		return fmt.Errorf("CONTENT_PER_PAGE must be positive")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("CACHE_BACKEND must be one of: memory, redis")
	}
	if c.Uploads.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone; empty means the local zone
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown DASHBOARD_TIMEZONE %q: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
