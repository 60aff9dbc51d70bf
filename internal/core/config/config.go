// Package config loads strata.toml. Decoding starts from Default so that keys absent
// from the file keep their default values; applyDefaults then fills zero values that
// a file may have cleared, and Validate rejects the rest.
package config

import (
	"time"
)

// FileName is the configuration file looked up when no path is given.
const FileName = "strata.toml"

// MaxLevel is the strictest rule level.
const MaxLevel = 10

type Config struct {
	Version                      int           `toml:"version"`
	Level                        int           `toml:"level"`
	Paths                        []string      `toml:"paths"`
	Exclude                      []string      `toml:"exclude"`
	ScanPaths                    []string      `toml:"scan_paths"`
	Composer                     Composer      `toml:"composer"`
	Extensions                   []string      `toml:"extensions"`
	Parallel                     int           `toml:"parallel"`
	ReportUnmatchedIgnoredErrors bool          `toml:"report_unmatched_ignored_errors"`
	Options                      Options       `toml:"options"`
	Ignore                       []IgnoreRule  `toml:"ignore"`
	Baseline                     Baseline      `toml:"baseline"`
	History                      History       `toml:"history"`
	Watch                        Watch         `toml:"watch"`
	Observability                Observability `toml:"observability"`

	// Root is the directory relative paths resolve against: the directory holding the
	// loaded file, or the working directory for a default configuration.
	Root string `toml:"-"`
	// Source is the file the configuration was read from, empty for defaults.
	Source string `toml:"-"`
}

// Options refine rules whose level is already enabled. They never enable a rule
// above the configured level.
type Options struct {
	ReportMaybes              bool `toml:"report_maybes"`
	CheckNullables            bool `toml:"check_nullables"`
	CheckExplicitMixed        bool `toml:"check_explicit_mixed"`
	CheckImplicitMixed        bool `toml:"check_implicit_mixed"`
	CheckUnionTypes           bool `toml:"check_union_types"`
	TreatPhpDocTypesAsCertain bool `toml:"treat_phpdoc_types_as_certain"`
	CheckMissingTypehints     bool `toml:"check_missing_typehints"`
	StrictTypesDefault        bool `toml:"strict_types_default"`
}

// IgnoreRule suppresses matching issues. Every set field must match; Count limits how
// many issues the rule may suppress, zero meaning unlimited.
type IgnoreRule struct {
	Message    string `toml:"message"`
	Path       string `toml:"path"`
	Identifier string `toml:"identifier"`
	Count      int    `toml:"count"`
}

// Composer controls symbol discovery from composer.json and vendor/composer/installed.json.
// Autoload directories are collected for declarations but never checked.
type Composer struct {
	Autoload bool `toml:"autoload"`
	Dev      bool `toml:"dev"`
}

type Baseline struct {
	Path string `toml:"path"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	Retain      int           `toml:"retain"`
}

type Watch struct {
	Debounce    time.Duration `toml:"debounce"`
	MinInterval time.Duration `toml:"min_interval"`
	Burst       int           `toml:"burst"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

// Default returns the configuration used when no strata.toml exists.
func Default() *Config {
	cfg := &Config{
		Version:                      1,
		Level:                        0,
		Paths:                        []string{"."},
		Exclude:                      []string{"vendor/**", "node_modules/**", ".git/**"},
		Extensions:                   []string{".php"},
		ReportUnmatchedIgnoredErrors: true,
		Composer:                     Composer{Autoload: true, Dev: true},
		Options: Options{
			CheckNullables:            true,
			CheckExplicitMixed:        true,
			CheckImplicitMixed:        true,
			CheckUnionTypes:           true,
			TreatPhpDocTypesAsCertain: true,
			CheckMissingTypehints:     true,
		},
		Baseline: Baseline{Path: "strata-baseline.toml"},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if len(cfg.Paths) == 0 {
		cfg.Paths = []string{"."}
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".php"}
	}
	if cfg.History.Path == "" {
		cfg.History.Path = ".strata/history.db"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 5 * time.Second
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.MinInterval == 0 {
		cfg.Watch.MinInterval = time.Second
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 1
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "strata"
	}
}
