package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: QMLLINK_[SECTION]_[KEY] (e.g., QMLLINK_SEARCH_WORKERS).
// List values are separated by the OS path list separator.
func ApplyEnvOverrides(cfg *Config) {
	// Workspace
	setEnvList(&cfg.Workspace.Roots, "QMLLINK_WORKSPACE_ROOTS")
	setEnvList(&cfg.Workspace.ImportPaths, "QMLLINK_WORKSPACE_IMPORT_PATHS")

	// Search
	setEnvInt(&cfg.Search.Workers, "QMLLINK_SEARCH_WORKERS")
	setEnvDuration(&cfg.Search.Timeout, "QMLLINK_SEARCH_TIMEOUT")

	// Cache
	setEnvInt(&cfg.Cache.Documents, "QMLLINK_CACHE_DOCUMENTS")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "QMLLINK_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RelinkPerSecond, "QMLLINK_WATCH_RELINK_PER_SECOND")

	// Types
	setEnvList(&cfg.Types.Catalogues, "QMLLINK_TYPES_CATALOGUES")

	// History
	setEnvBool(&cfg.History.Enabled, "QMLLINK_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "QMLLINK_HISTORY_PATH")
	setEnvDuration(&cfg.History.BusyTimeout, "QMLLINK_HISTORY_BUSY_TIMEOUT")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "QMLLINK_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "QMLLINK_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "QMLLINK_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "QMLLINK_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "QMLLINK_OBSERVABILITY_ENABLE_METRICS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		var out []string
		for _, part := range strings.Split(val, string(os.PathListSeparator)) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		log.Printf("Applying env override: %s=%s", key, val)
		*target = out
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = d
		}
	}
}
