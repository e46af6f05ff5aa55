// Package config loads server settings from defaults, an optional TOML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
)

var (
	validStores     = []string{StoreMemory, StoreFirestore}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json", "logfmt"}
)

// Config holds everything the server needs to start.
type Config struct {
	Port             int           `toml:"port"`
	Prefix           string        `toml:"prefix"`
	Store            string        `toml:"store"`
	FirestoreProject string        `toml:"firestore_project"`
	CORSOrigins      []string      `toml:"cors_origins"`
	LogLevel         string        `toml:"log_level"`
	LogFormat        string        `toml:"log_format"`
	ShutdownTimeout  time.Duration `toml:"shutdown_timeout"`

	LineChannelSecret string `toml:"line_channel_secret"`
	LineChannelToken  string `toml:"line_channel_token"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Port:            3001,
		Prefix:          "/api",
		Store:           StoreMemory,
		CORSOrigins:     []string{"*"},
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds a Config. path names an optional TOML file; when empty,
// TODO_API_CONFIG is consulted. envFiles are passed to godotenv and may be
// missing.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if err := loadDotEnv(envFiles...); err != nil {
		return cfg, err
	}

	if path == "" {
		path = os.Getenv("TODO_API_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := loadFromEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading env file %s: %w", f, err)
		}
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("TODO_API_PREFIX"); v != "" {
		cfg.Prefix = v
	}
	if v := os.Getenv("TODO_STORE"); v != "" {
		cfg.Store = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		cfg.FirestoreProject = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("LINE_CHANNEL_SECRET"); v != "" {
		cfg.LineChannelSecret = v
	}
	if v := os.Getenv("LINE_CHANNEL_TOKEN"); v != "" {
		cfg.LineChannelToken = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// LineEnabled reports whether the LINE webhook should be mounted.
func (c Config) LineEnabled() bool {
	return c.LineChannelSecret != "" && c.LineChannelToken != ""
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Prefix != "" && !strings.HasPrefix(c.Prefix, "/") {
		return fmt.Errorf("prefix %q must start with /", c.Prefix)
	}
	if !contains(validStores, c.Store) {
		return fmt.Errorf("invalid store %q: must be one of %v", c.Store, validStores)
	}
	if c.Store == StoreFirestore && c.FirestoreProject == "" {
		return errors.New("firestore store requires GOOGLE_CLOUD_PROJECT or firestore_project")
	}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level %q: must be one of %v", c.LogLevel, validLogLevels)
	}
	if !contains(validLogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log format %q: must be one of %v", c.LogFormat, validLogFormats)
	}
	if (c.LineChannelSecret == "") != (c.LineChannelToken == "") {
		return errors.New("LINE_CHANNEL_SECRET and LINE_CHANNEL_TOKEN must be set together")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout %s must be positive", c.ShutdownTimeout)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
