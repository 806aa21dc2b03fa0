// Package config handles TOML configuration loading with environment
// variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Downloads DownloadsConfig `toml:"downloads"`
	Providers ProvidersConfig `toml:"providers"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type DownloadsConfig struct {
	Root            string   `toml:"root"`
	MaxConcurrent   int      `toml:"max_concurrent"`
	PollInterval    duration `toml:"poll_interval"`
	ProviderTimeout duration `toml:"provider_timeout"`
	Language        string   `toml:"language"`
	HistorySize     int      `toml:"history_size"`
}

type ProvidersConfig struct {
	// Order overrides the built-in provider race priority.
	Order []string `toml:"order"`
}

// duration wraps time.Duration so TOML accepts strings like "5s".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// PollInterval returns the scheduler idle sleep.
func (c *Config) PollInterval() time.Duration { return time.Duration(c.Downloads.PollInterval) }

// ProviderTimeout returns the per-attempt resolution deadline.
func (c *Config) ProviderTimeout() time.Duration { return time.Duration(c.Downloads.ProviderTimeout) }

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", errs[0])
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8486
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/fetcharr.db"
	}
	if c.Downloads.Root == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Downloads.Root = home + "/Downloads"
		} else {
			c.Downloads.Root = "./downloads"
		}
	}
	if c.Downloads.MaxConcurrent == 0 {
		c.Downloads.MaxConcurrent = 3
	}
	if c.Downloads.PollInterval == 0 {
		c.Downloads.PollInterval = duration(2 * time.Second)
	}
	if c.Downloads.ProviderTimeout == 0 {
		c.Downloads.ProviderTimeout = duration(5 * time.Second)
	}
	if c.Downloads.Language == "" {
		c.Downloads.Language = "German Dub"
	}
	if c.Downloads.HistorySize == 0 {
		c.Downloads.HistorySize = 10
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}
	if c.Downloads.Root == "" {
		errs = append(errs, "downloads.root: required")
	}
	if c.Downloads.MaxConcurrent < 1 {
		errs = append(errs, fmt.Sprintf("downloads.max_concurrent: must be at least 1, got %d", c.Downloads.MaxConcurrent))
	}
	if c.Downloads.HistorySize < 1 {
		errs = append(errs, fmt.Sprintf("downloads.history_size: must be at least 1, got %d", c.Downloads.HistorySize))
	}
	if c.PollInterval() < 0 {
		errs = append(errs, "downloads.poll_interval: must not be negative")
	}
	if c.ProviderTimeout() < 0 {
		errs = append(errs, "downloads.provider_timeout: must not be negative")
	}

	return errs
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match // Leave unchanged if not found
	})
}
