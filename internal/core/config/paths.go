package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveRelative joins value onto base unless value is absolute.
func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// Find walks from start towards the filesystem root looking for strata.toml.
func Find(start string) (string, bool) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	dir := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		dir = filepath.Dir(abs)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DetectProjectRoot returns the nearest directory above one of candidates that holds a
// project marker, or the working directory when none does.
func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{FileName, "composer.json", ".git"}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}
		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}

// AnalysedPaths returns the configured source paths, resolved against Root.
func (c *Config) AnalysedPaths() []string {
	out := make([]string, 0, len(c.Paths))
	for _, p := range c.Paths {
		out = append(out, ResolveRelative(c.Root, p))
	}
	return out
}

// ScannedPaths returns the collect-only paths, resolved against Root.
func (c *Config) ScannedPaths() []string {
	out := make([]string, 0, len(c.ScanPaths))
	for _, p := range c.ScanPaths {
		out = append(out, ResolveRelative(c.Root, p))
	}
	return out
}

func (c *Config) BaselinePath() string {
	if strings.TrimSpace(c.Baseline.Path) == "" {
		return ""
	}
	return ResolveRelative(c.Root, c.Baseline.Path)
}

func (c *Config) HistoryPath() string {
	return ResolveRelative(c.Root, c.History.Path)
}
