package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"qmllink/internal/core/errors"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "qmllink.toml"

type Config struct {
	Version       int           `toml:"version"`
	Workspace     Workspace     `toml:"workspace"`
	Search        Search        `toml:"search"`
	Cache         Cache         `toml:"cache"`
	Watch         Watch         `toml:"watch"`
	Types         Types         `toml:"types"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
}

type Workspace struct {
	Roots       []string `toml:"roots"`
	ImportPaths []string `toml:"import_paths"`
	Exclude     Exclude  `toml:"exclude"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Search struct {
	Workers int           `toml:"workers"`
	Timeout time.Duration `toml:"timeout"`
}

type Cache struct {
	// Documents bounds the parsed-document cache.
	Documents int `toml:"documents"`
}

type Watch struct {
	Debounce        time.Duration `toml:"debounce"`
	RelinkPerSecond float64       `toml:"relink_per_second"`
	RelinkBurst     int           `toml:"relink_burst"`
}

type Types struct {
	// Catalogues are extra TOML type catalogues loaded after the built-in one.
	Catalogues []string `toml:"catalogues"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	Keep        int           `toml:"keep"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	ServiceName   string `toml:"service_name"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeInternal
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "failed to read config"), errors.CtxPath, path)
	}
	return Parse(string(data))
}

// Parse decodes, defaults and validates a TOML document.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "failed to decode config")
	}

	applyDefaults(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Wrap(stderrors.Join(errs...), errors.CodeValidationError, "invalid config")
	}
	return &cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process
// environment without overriding variables already set. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeParse, "failed to load env file"), errors.CtxPath, path)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if len(cfg.Workspace.Roots) == 0 {
		cfg.Workspace.Roots = []string{"."}
	}
	if len(cfg.Workspace.Exclude.Dirs) == 0 {
		cfg.Workspace.Exclude.Dirs = []string{".git", "node_modules", "build*"}
	}

	if cfg.Search.Workers <= 0 {
		cfg.Search.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = 30 * time.Second
	}

	if cfg.Cache.Documents <= 0 {
		cfg.Cache.Documents = 2048
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.RelinkPerSecond <= 0 {
		cfg.Watch.RelinkPerSecond = 2
	}
	if cfg.Watch.RelinkBurst <= 0 {
		cfg.Watch.RelinkBurst = 1
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = ".qmllink/history.db"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 5 * time.Second
	}
	if cfg.History.Keep <= 0 {
		cfg.History.Keep = 500
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9464
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "qmllink"
	}
}

func (o Observability) Address() string {
	return fmt.Sprintf(":%d", o.Port)
}
