package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"strata/internal/core/errors"
	"strata/internal/shared/util"
)

// Validate reports every problem of cfg; each error is a VALIDATION_ERROR naming the
// offending key.
func Validate(cfg *Config) []error {
	var errs []error
	add := func(key, format string, args ...any) {
		errs = append(errs, errors.AddContext(errors.Newf(errors.CodeValidationError, format, args...), errors.CtxKey, key))
	}

	if cfg.Version != 1 {
		add("version", "unsupported config version %d; supported version is 1", cfg.Version)
	}
	if cfg.Level < 0 || cfg.Level > MaxLevel {
		add("level", "level must be between 0 and %d, got %d", MaxLevel, cfg.Level)
	}
	if cfg.Parallel < 0 {
		add("parallel", "parallel must be >= 0, got %d", cfg.Parallel)
	}
	for i, p := range cfg.Paths {
		if strings.TrimSpace(p) == "" {
			add(fmt.Sprintf("paths[%d]", i), "paths[%d] must not be empty", i)
		}
	}
	for i, p := range cfg.ScanPaths {
		if strings.TrimSpace(p) == "" {
			add(fmt.Sprintf("scan_paths[%d]", i), "scan_paths[%d] must not be empty", i)
		}
	}
	for i, p := range cfg.Exclude {
		if _, err := PathPattern(p); err != nil {
			add(fmt.Sprintf("exclude[%d]", i), "exclude[%d] %q is not a valid glob: %v", i, p, err)
		}
	}
	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			add(fmt.Sprintf("extensions[%d]", i), "extensions[%d] %q must start with a dot", i, ext)
		}
	}
	for i, rule := range cfg.Ignore {
		errs = append(errs, validateIgnore(i, rule)...)
	}
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		add("history.path", "history.path must not be empty when history is enabled")
	}
	if cfg.History.Retain < 0 {
		add("history.retain", "history.retain must be >= 0, got %d", cfg.History.Retain)
	}
	if cfg.Watch.Debounce < 0 {
		add("watch.debounce", "watch.debounce must be >= 0, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.MinInterval < 0 {
		add("watch.min_interval", "watch.min_interval must be >= 0, got %v", cfg.Watch.MinInterval)
	}
	return errs
}

func validateIgnore(i int, rule IgnoreRule) []error {
	ref := fmt.Sprintf("ignore[%d]", i)
	var errs []error
	add := func(key, format string, args ...any) {
		errs = append(errs, errors.AddContext(errors.Newf(errors.CodeValidationError, format, args...), errors.CtxKey, key))
	}
	if strings.TrimSpace(rule.Message) == "" && strings.TrimSpace(rule.Path) == "" && strings.TrimSpace(rule.Identifier) == "" {
		add(ref, "%s needs at least one of message, path or identifier", ref)
	}
	if rule.Message != "" {
		if _, err := MessagePattern(rule.Message); err != nil {
			add(ref+".message", "%s.message is not a valid regular expression: %v", ref, err)
		}
	}
	if rule.Path != "" {
		if _, err := PathPattern(rule.Path); err != nil {
			add(ref+".path", "%s.path %q is not a valid glob: %v", ref, rule.Path, err)
		}
	}
	if rule.Count < 0 {
		add(ref+".count", "%s.count must be >= 0, got %d", ref, rule.Count)
	}
	return errs
}

// MessagePattern compiles an ignore message. A pattern wrapped in matching delimiters,
// such as #^Call to .*# or /foo/i, has them stripped and trailing flags applied.
func MessagePattern(raw string) (*regexp.Regexp, error) {
	pattern := raw
	if len(raw) >= 2 {
		delim := raw[0]
		if !isAlnum(delim) && delim != '\\' && delim != '^' && delim != '(' && delim != '[' {
			if end := strings.LastIndexByte(raw, delim); end > 0 {
				flags := raw[end+1:]
				pattern = raw[1:end]
				if strings.Trim(flags, "imsux") != "" {
					return nil, fmt.Errorf("unsupported pattern flags %q", flags)
				}
				if f := strings.Trim(flags, "ux"); f != "" {
					pattern = "(?" + f + ")" + pattern
				}
			}
		}
	}
	return regexp.Compile(pattern)
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// PathPattern compiles a path glob; `*` stays within one directory, `**` crosses them.
func PathPattern(pattern string) (glob.Glob, error) {
	return util.CompileGlob(pattern)
}
