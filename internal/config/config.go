package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Log         LogConfig
	Performance PerformanceConfig
}

type ServerConfig struct {
	Port     int
	MaxConns int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type PerformanceConfig struct {
	// Averaging is "per_category" or "combined".
	Averaging string
	// AccuracyPolicy is "reject" or "clamp".
	AccuracyPolicy string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     4100,
			MaxConns: 64,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Performance: PerformanceConfig{
			Averaging:      "per_category",
			AccuracyPolicy: "reject",
		},
	}
}

// DotEnvFile is read from the working directory before environment
// overrides are applied. Variables already set in the process win.
const DotEnvFile = ".env"

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/prepd/config.json, then a .env file in the working
// directory, then PREPD_* environment variables. Later sources win.
func Load() (Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return Config{}, err
	}
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("reading %s: %w", path, err)
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Server.MaxConns < 0 {
		return fmt.Errorf("server.max_conns must not be negative, got %d", c.Server.MaxConns)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	for _, s := range specs {
		if len(s.allowed) == 0 {
			continue
		}
		if v, ok := s.extract(c).(string); ok && !isAllowed(s.allowed, v) {
			return fmt.Errorf("invalid %s %q (allowed: %v)", s.key, v, s.allowed)
		}
	}
	return nil
}

func isAllowed(allowed []string, v string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "prepd-data"
		}
	}
	return filepath.Join(dir, "prepd")
}
