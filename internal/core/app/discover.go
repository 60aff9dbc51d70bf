package app

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"strata/internal/core/config"
	"strata/internal/core/errors"
	"strata/internal/engine/parser"
	"strata/internal/shared/util"
)

// SourceFile is a discovered file. Display is the slash-separated path relative to the
// project root used in issues, ignore rules and the baseline.
type SourceFile struct {
	Path    string
	Display string
	// CollectOnly files contribute declarations to the symbol table but are not checked
	// and report nothing.
	CollectOnly bool
}

// Discover walks roots and returns the source files with one of extensions that no
// exclude glob matches, sorted by display path. Roots may name files or directories;
// relative roots resolve against root. A file named explicitly is kept even when an
// exclude pattern matches it.
func Discover(root string, roots, exclude, extensions []string) ([]SourceFile, error) {
	matcher, err := util.NewPathMatcher(exclude)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern")
	}
	if len(extensions) == 0 {
		extensions = parser.DefaultExtensions
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	seen := make(map[string]bool)
	var files []SourceFile
	add := func(path string) {
		if seen[path] {
			return
		}
		seen[path] = true
		files = append(files, SourceFile{Path: path, Display: displayPath(root, path)})
	}

	for _, r := range roots {
		start := config.ResolveRelative(root, r)
		info, err := os.Stat(start)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "analysed path does not exist"), errors.CtxPath, r)
		}
		if !info.IsDir() {
			add(start)
			continue
		}
		err = filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel := util.RelPath(root, path)
			if d.IsDir() {
				if path != start && (d.Name() == ".git" || matcher.MatchDir(rel)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !parser.IsSourceFile(path, extensions) || matcher.Match(rel) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk analysed path"), errors.CtxPath, r)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Display < files[j].Display })
	return files, nil
}

func displayPath(root, path string) string {
	return util.RelPath(root, path)
}

// CollectOnlySources returns the files whose declarations the checked files may use
// without being checked themselves: scan_paths, Composer autoload paths and, on partial
// runs, the rest of the configured paths. Files already in analysed are left out.
func CollectOnlySources(cfg *config.Config, analysed []SourceFile, partial bool) ([]SourceFile, error) {
	skip := make(map[string]bool, len(analysed))
	for _, f := range analysed {
		skip[f.Path] = true
	}
	var out []SourceFile
	take := func(files []SourceFile) {
		for _, f := range files {
			if skip[f.Path] {
				continue
			}
			skip[f.Path] = true
			f.CollectOnly = true
			out = append(out, f)
		}
	}

	if partial {
		rest, err := Discover(cfg.Root, cfg.AnalysedPaths(), cfg.Exclude, cfg.Extensions)
		if err != nil {
			return nil, err
		}
		take(rest)
	}
	if len(cfg.ScanPaths) > 0 {
		scanned, err := Discover(cfg.Root, cfg.ScannedPaths(), nil, cfg.Extensions)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxKey, "scan_paths")
		}
		take(scanned)
	}
	if cfg.Composer.Autoload {
		paths, err := ComposerPaths(cfg.Root, cfg.Composer.Dev)
		if err != nil {
			return nil, err
		}
		if len(paths) > 0 {
			autoloaded, err := Discover(cfg.Root, paths, nil, cfg.Extensions)
			if err != nil {
				return nil, err
			}
			take(autoloaded)
		}
	}
	return out, nil
}
