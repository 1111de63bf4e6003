package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateWorkspace(cfg *Config) error {
	for i, root := range cfg.Workspace.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("workspace.roots[%d] must not be empty", i)
		}
	}
	seen := make(map[string]bool, len(cfg.Workspace.ImportPaths))
	for i, p := range cfg.Workspace.ImportPaths {
		p = strings.TrimSpace(p)
		if p == "" {
			return fmt.Errorf("workspace.import_paths[%d] must not be empty", i)
		}
		if seen[p] {
			return fmt.Errorf("duplicate import path %q", p)
		}
		seen[p] = true
	}
	for _, pattern := range append(append([]string(nil), cfg.Workspace.Exclude.Dirs...), cfg.Workspace.Exclude.Files...) {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateSearch(cfg *Config) error {
	if cfg.Search.Workers < 1 || cfg.Search.Workers > 256 {
		return fmt.Errorf("search.workers must be between 1 and 256")
	}
	if cfg.Search.Timeout < 0 {
		return fmt.Errorf("search.timeout must not be negative")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 10*time.Millisecond || cfg.Watch.Debounce > time.Minute {
		return fmt.Errorf("watch.debounce must be between 10ms and 1m")
	}
	if cfg.Watch.RelinkPerSecond > 1000 {
		return fmt.Errorf("watch.relink_per_second must be <= 1000")
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return fmt.Errorf("history.path must not be empty when history.enabled=true")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Port < 1 || cfg.Observability.Port > 65535 {
		return fmt.Errorf("observability.port must be between 1 and 65535")
	}
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when observability.enable_tracing=true")
	}
	return nil
}

// Validate reports every problem found in cfg.
func Validate(cfg *Config) []error {
	var errs []error

	if err := validateVersion(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateWorkspace(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateSearch(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateWatch(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateHistory(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateObservability(cfg); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// ValidatePaths checks that the resolved roots and catalogues exist.
func ValidatePaths(paths ResolvedPaths) []error {
	var errs []error
	for _, root := range paths.Roots {
		stat, err := os.Stat(root)
		if os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("workspace root %q does not exist", root))
		} else if err == nil && !stat.IsDir() {
			errs = append(errs, fmt.Errorf("workspace root %q is not a directory", root))
		}
	}
	for _, c := range paths.Catalogues {
		if _, err := os.Stat(c); os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("type catalogue %q does not exist", c))
		}
	}
	return errs
}
