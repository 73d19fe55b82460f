package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"storeviewer/internal/viewer"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Viewer   viewer.Config  `yaml:"viewer"`
	Probe    ProbeConfig    `yaml:"probe"`
	Sessions SessionsConfig `yaml:"sessions"`
	Preview  PreviewConfig  `yaml:"preview"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type ProbeConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	CacheSize   int           `yaml:"cache_size"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

type SessionsConfig struct {
	MaxSessions       int `yaml:"max_sessions"`
	NotificationLimit int `yaml:"notification_limit"`
}

// PreviewConfig sizes a terminal cell in pixels so mouse positions can be
// fed to the gesture thresholds.
type PreviewConfig struct {
	UserID       string  `yaml:"user_id"`
	CellWidthPx  float64 `yaml:"cell_width_px"`
	CellHeightPx float64 `yaml:"cell_height_px"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         6540,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data/storeviewer.db",
		},
		Catalog: CatalogConfig{
			Path: "catalog.yaml",
		},
		Viewer: viewer.DefaultConfig(),
		Probe: ProbeConfig{
			Enabled:     true,
			Timeout:     3 * time.Second,
			Concurrency: 4,
			CacheSize:   1000,
			CacheTTL:    10 * time.Minute,
		},
		Sessions: SessionsConfig{
			MaxSessions:       256,
			NotificationLimit: 50,
		},
		Preview: PreviewConfig{
			UserID:       "preview",
			CellWidthPx:  8,
			CellHeightPx: 16,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads .env into the environment, then the YAML file at path over
// the defaults, then STOREVIEWER_* overrides. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("STOREVIEWER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("STOREVIEWER_PORT: " + err.Error())
		}
		c.Server.Port = port
	}
	if v := os.Getenv("STOREVIEWER_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("STOREVIEWER_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("STOREVIEWER_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	return nil
}
