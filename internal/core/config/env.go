package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies STRATA_* environment variables on top of cfg.
// Unparseable values are ignored.
func ApplyEnvOverrides(cfg *Config) {
	setEnvInt(&cfg.Level, "STRATA_LEVEL")
	setEnvInt(&cfg.Parallel, "STRATA_PARALLEL")
	setEnvList(&cfg.Paths, "STRATA_PATHS")
	setEnvList(&cfg.Exclude, "STRATA_EXCLUDE")
	setEnvList(&cfg.ScanPaths, "STRATA_SCAN_PATHS")
	setEnvBool(&cfg.Composer.Autoload, "STRATA_COMPOSER_AUTOLOAD")
	setEnvBool(&cfg.Options.ReportMaybes, "STRATA_REPORT_MAYBES")
	setEnvBool(&cfg.Options.StrictTypesDefault, "STRATA_STRICT_TYPES_DEFAULT")
	setEnvString(&cfg.Baseline.Path, "STRATA_BASELINE_PATH")

	setEnvBool(&cfg.History.Enabled, "STRATA_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "STRATA_HISTORY_PATH")

	setEnvDuration(&cfg.Watch.Debounce, "STRATA_WATCH_DEBOUNCE")
	setEnvDuration(&cfg.Watch.MinInterval, "STRATA_WATCH_MIN_INTERVAL")

	setEnvString(&cfg.Observability.MetricsAddr, "STRATA_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "STRATA_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	slog.Debug("applying env override", "key", key, "value", val)
	*target = out
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
