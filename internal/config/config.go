package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const FileName = "taskpulse.yml"

// Config models taskpulse.yml.
type Config struct {
	Server struct {
		Addr                string   `yaml:"addr"`
		BasePath            string   `yaml:"base_path"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		CORSOrigins         []string `yaml:"cors_origins"`
		JWTSecret           string   `yaml:"jwt_secret"`
		JWTIssuer           string   `yaml:"jwt_issuer"`
	} `yaml:"server"`
	Engine struct {
		Timezone          string `yaml:"timezone"`
		Workers           int    `yaml:"workers"`
		CacheSize         int    `yaml:"cache_size"`
		DominoPoolSize    int    `yaml:"domino_pool_size"`
		JournalWindowDays int    `yaml:"journal_window_days"`
	} `yaml:"engine"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`
}

// Load reads and validates config from workspace.
func Load(fsys afero.Fs, workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config %s not found; create one with tp config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOrDefault returns the default config if the file does not exist.
func LoadOrDefault(fsys afero.Fs, workspace string) (*Config, error) {
	cfg, err := LoadOptional(fsys, workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Default(), nil
	}
	return cfg, nil
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(fsys afero.Fs, workspace string) (*Config, error) {
	data, err := afero.ReadFile(fsys, Path(workspace))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Write stores cfg in workspace, refusing to overwrite unless force is set.
func Write(fsys afero.Fs, workspace string, cfg *Config, force bool) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	path := Path(workspace)
	if !force {
		if ok, _ := afero.Exists(fsys, path); ok {
			return "", fmt.Errorf("config %s already exists", path)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, afero.WriteFile(fsys, path, data, 0o600)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Server.ReadTimeoutSeconds < 0 || c.Server.WriteTimeoutSeconds < 0 {
		return fmt.Errorf("config.server timeouts must not be negative")
	}
	for _, origin := range c.Server.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("config.server.cors_origins contains an empty origin")
		}
	}
	if c.Server.JWTSecret != "" && len(c.Server.JWTSecret) < 16 {
		return fmt.Errorf("config.server.jwt_secret must be at least 16 characters")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("config.engine.workers must be at least 1")
	}
	if c.Engine.CacheSize < 0 {
		return fmt.Errorf("config.engine.cache_size must not be negative")
	}
	if c.Engine.DominoPoolSize < 1 {
		return fmt.Errorf("config.engine.domino_pool_size must be at least 1")
	}
	if c.Engine.JournalWindowDays < 1 {
		return fmt.Errorf("config.engine.journal_window_days must be at least 1")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json")
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("config.log rotation limits must not be negative")
	}
	return nil
}

// Location resolves engine.timezone; empty means the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Engine.Timezone == "" || c.Engine.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config.engine.timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing keys keep
// their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v0
  read_timeout_seconds: 15
  write_timeout_seconds: 30
  cors_origins: []
  jwt_secret: ""
  jwt_issuer: taskpulse

engine:
  timezone: Local
  workers: 4
  cache_size: 256
  domino_pool_size: 50
  journal_window_days: 30

log:
  level: info
  format: text
  file: ""
  max_size_mb: 20
  max_backups: 3
`
