package util

import (
	"strings"

	"github.com/gobwas/glob"
)

// CompileGlob compiles a path pattern; `*` stays within one directory, `**` crosses them.
// A `**/` segment also matches no directory at all, so "**/*.php" matches "a.php".
func CompileGlob(pattern string) (glob.Glob, error) {
	variants := zeroDirVariants(NormalizePatternPath(pattern))
	out := make(anyGlob, 0, len(variants))
	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

// zeroDirVariants expands every `**/` segment into itself and its absence.
func zeroDirVariants(pattern string) []string {
	for i := 0; i+3 <= len(pattern); i++ {
		if pattern[i:i+3] != "**/" || (i > 0 && pattern[i-1] != '/') {
			continue
		}
		head := pattern[:i]
		var out []string
		for _, tail := range zeroDirVariants(pattern[i+3:]) {
			out = append(out, head+"**/"+tail, head+tail)
		}
		return out
	}
	return []string{pattern}
}

type anyGlob []glob.Glob

func (a anyGlob) Match(s string) bool {
	for _, g := range a {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// PathMatcher matches root-relative paths against a set of globs.
type PathMatcher struct {
	globs []glob.Glob
}

func NewPathMatcher(patterns []string) (*PathMatcher, error) {
	m := &PathMatcher{}
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		g, err := CompileGlob(p)
		if err != nil {
			return nil, err
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether the file at rel matches any pattern.
func (m *PathMatcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	rel = NormalizePatternPath(rel)
	for _, g := range m.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// MatchDir reports whether everything below the directory rel is excluded, so that a
// walk can skip it. "vendor/**" excludes the directory vendor.
func (m *PathMatcher) MatchDir(rel string) bool {
	if m == nil {
		return false
	}
	rel = NormalizePatternPath(rel)
	if rel == "" {
		return false
	}
	for _, g := range m.globs {
		if g.Match(rel) || g.Match(rel+"/") {
			return true
		}
	}
	return false
}

func (m *PathMatcher) Empty() bool { return m == nil || len(m.globs) == 0 }
