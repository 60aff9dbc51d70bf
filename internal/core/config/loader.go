package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"strata/internal/core/errors"
)

// Load reads, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read config"), errors.CtxPath, path)
	}

	cfg := Default()
	cfg.Paths, cfg.Exclude, cfg.Extensions = nil, nil, nil
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}
	if !md.IsDefined("exclude") {
		cfg.Exclude = Default().Exclude
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.AddContext(
			errors.Newf(errors.CodeValidationError, "unknown config key %q", undecoded[0].String()),
			errors.CtxPath, path)
	}

	applyDefaults(cfg)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.Source = abs
	cfg.Root = filepath.Dir(abs)

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, errors.AddContext(errs[0], errors.CtxPath, path)
	}
	return cfg, nil
}

// LoadOrDefault loads path when given. Otherwise it looks for strata.toml in cwd and
// its parents and falls back to Default rooted at cwd.
func LoadOrDefault(path, cwd string) (*Config, error) {
	if path != "" {
		return Load(ResolveRelative(cwd, path))
	}
	if found, ok := Find(cwd); ok {
		return Load(found)
	}
	cfg := Default()
	cfg.Root = filepath.Clean(cwd)
	return cfg, nil
}
