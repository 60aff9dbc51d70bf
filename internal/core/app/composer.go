package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"strata/internal/core/errors"
)

type composerAutoload struct {
	PSR4     map[string]json.RawMessage `json:"psr-4"`
	PSR0     map[string]json.RawMessage `json:"psr-0"`
	Classmap []string                   `json:"classmap"`
	Files    []string                   `json:"files"`
}

// dirs lists every path the autoload section names, relative to its package.
func (a composerAutoload) dirs() []string {
	var out []string
	for _, section := range []map[string]json.RawMessage{a.PSR4, a.PSR0} {
		for _, raw := range section {
			out = append(out, oneOrMany(raw)...)
		}
	}
	out = append(out, a.Classmap...)
	return append(out, a.Files...)
}

// oneOrMany decodes a Composer path that is either a string or a list of strings.
func oneOrMany(raw json.RawMessage) []string {
	var one string
	if json.Unmarshal(raw, &one) == nil {
		return []string{one}
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		return many
	}
	return nil
}

type composerManifest struct {
	Name        string           `json:"name"`
	Autoload    composerAutoload `json:"autoload"`
	AutoloadDev composerAutoload `json:"autoload-dev"`
	Config      struct {
		VendorDir string `json:"vendor-dir"`
	} `json:"config"`
}

type installedPackage struct {
	Name        string           `json:"name"`
	InstallPath string           `json:"install-path"`
	Autoload    composerAutoload `json:"autoload"`
}

type installedFile struct {
	Packages    []installedPackage `json:"packages"`
	DevPackages []string           `json:"dev-package-names"`
}

// ComposerPaths returns the existing autoload directories and files of the project in
// root and of the packages installed in its vendor directory. dev adds autoload-dev of
// the project and dev-only packages. A project without composer.json yields nothing.
func ComposerPaths(root string, dev bool) ([]string, error) {
	manifestPath := filepath.Join(root, "composer.json")
	var manifest composerManifest
	if err := readJSON(manifestPath, &manifest); err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	add := func(base string, rel []string) {
		for _, r := range rel {
			if r == "" {
				r = "."
			}
			p := filepath.Clean(filepath.Join(base, filepath.FromSlash(r)))
			if seen[p] {
				continue
			}
			if _, err := os.Stat(p); err != nil {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}

	add(root, manifest.Autoload.dirs())
	if dev {
		add(root, manifest.AutoloadDev.dirs())
	}

	vendor := manifest.Config.VendorDir
	if vendor == "" {
		vendor = "vendor"
	}
	vendor = filepath.Join(root, filepath.FromSlash(vendor))
	packages, devOnly, err := installedPackages(filepath.Join(vendor, "composer", "installed.json"))
	if err != nil {
		return nil, err
	}
	for _, pkg := range packages {
		if !dev && devOnly[pkg.Name] {
			continue
		}
		base := filepath.Join(vendor, filepath.FromSlash(pkg.Name))
		if pkg.InstallPath != "" {
			base = filepath.Join(vendor, "composer", filepath.FromSlash(pkg.InstallPath))
		}
		add(base, pkg.Autoload.dirs())
	}
	sort.Strings(out)
	return out, nil
}

// installedPackages reads installed.json in either the Composer 2 object form or the
// Composer 1 list form. A missing file means nothing is installed.
func installedPackages(path string) ([]installedPackage, map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read installed packages"), errors.CtxPath, path)
	}
	var v2 installedFile
	if err := json.Unmarshal(data, &v2); err == nil {
		devOnly := make(map[string]bool, len(v2.DevPackages))
		for _, name := range v2.DevPackages {
			devOnly[name] = true
		}
		return v2.Packages, devOnly, nil
	}
	var v1 []installedPackage
	if err := json.Unmarshal(data, &v1); err != nil {
		return nil, nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode installed packages"), errors.CtxPath, path)
	}
	return v1, nil, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeInternal
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return errors.AddContext(errors.Wrap(err, code, "read "+filepath.Base(path)), errors.CtxPath, path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode "+filepath.Base(path)), errors.CtxPath, path)
	}
	return nil
}
