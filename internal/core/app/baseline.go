package app

import (
	"bytes"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"strata/internal/core/errors"
	"strata/internal/engine/issue"
	"strata/internal/shared/util"
)

// BaselineEntry suppresses up to Count issues with exactly this message, identifier
// and file.
type BaselineEntry struct {
	Message    string `toml:"message"`
	Identifier string `toml:"identifier"`
	Path       string `toml:"path"`
	Count      int    `toml:"count"`
}

// Baseline is the set of known issues a project has accepted.
type Baseline struct {
	Entries []BaselineEntry `toml:"ignore"`
}

type baselineKey struct {
	message, identifier, path string
}

func keyOf(iss issue.Issue) baselineKey {
	return baselineKey{message: iss.Message, identifier: iss.ID, path: iss.File}
}

// LoadBaseline reads a baseline file. A missing file is a NOT_FOUND error.
func LoadBaseline(path string) (*Baseline, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(errors.CodeNotFound, "no baseline configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeInternal
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "read baseline"), errors.CtxPath, path)
	}
	var bl Baseline
	md, err := toml.Decode(string(data), &bl)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode baseline"), errors.CtxPath, path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.AddContext(errors.Newf(errors.CodeValidationError, "unknown baseline key %q", undecoded[0].String()), errors.CtxPath, path)
	}
	for i := range bl.Entries {
		if bl.Entries[i].Count <= 0 {
			bl.Entries[i].Count = 1
		}
	}
	return &bl, nil
}

// GenerateBaseline records every issue of c except parse errors and unmatched ignores,
// which describe the run rather than the code.
func GenerateBaseline(c *issue.Collection) *Baseline {
	counts := make(map[baselineKey]int)
	for _, iss := range c.Items() {
		if iss.ID == ParseErrorID || iss.ID == UnmatchedIgnoreID {
			continue
		}
		counts[keyOf(iss)]++
	}
	bl := &Baseline{Entries: make([]BaselineEntry, 0, len(counts))}
	for k, n := range counts {
		bl.Entries = append(bl.Entries, BaselineEntry{Message: k.message, Identifier: k.identifier, Path: k.path, Count: n})
	}
	sort.Slice(bl.Entries, func(i, j int) bool {
		a, b := bl.Entries[i], bl.Entries[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Identifier != b.Identifier {
			return a.Identifier < b.Identifier
		}
		return a.Message < b.Message
	})
	return bl
}

// Save writes the baseline, creating parent directories.
func (b *Baseline) Save(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New(errors.CodeValidationError, "baseline path is empty")
	}
	var buf bytes.Buffer
	buf.WriteString("# Generated by strata. Issues listed here are not reported.\n\n")
	if err := toml.NewEncoder(&buf).Encode(b); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode baseline")
	}
	if err := util.WriteFileWithDirs(path, buf.Bytes(), 0o644); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write baseline"), errors.CtxPath, path)
	}
	return nil
}

// Apply removes baselined issues from c and returns how many were removed. Issues
// beyond an entry's count are kept.
func (b *Baseline) Apply(c *issue.Collection) int {
	if b == nil || len(b.Entries) == 0 {
		return 0
	}
	remaining := make(map[baselineKey]int, len(b.Entries))
	for _, e := range b.Entries {
		remaining[baselineKey{message: e.Message, identifier: e.Identifier, path: util.NormalizePatternPath(e.Path)}] += e.Count
	}
	return c.Filter(func(iss issue.Issue) bool {
		k := keyOf(iss)
		if remaining[k] > 0 {
			remaining[k]--
			return false
		}
		return true
	})
}
