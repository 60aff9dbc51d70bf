package app

import (
	"fmt"
	"regexp"

	"github.com/gobwas/glob"

	"strata/internal/core/config"
	"strata/internal/core/errors"
	"strata/internal/engine/issue"
)

// UnmatchedIgnoreID reports ignore rules that suppressed fewer issues than expected.
const UnmatchedIgnoreID = "ignore.unmatched"

type ignoreRule struct {
	raw     config.IgnoreRule
	message *regexp.Regexp
	path    glob.Glob
	matched int
}

func (r *ignoreRule) matches(iss issue.Issue) bool {
	if r.raw.Identifier != "" && r.raw.Identifier != iss.ID {
		return false
	}
	if r.path != nil && !r.path.Match(iss.File) {
		return false
	}
	if r.message != nil && !r.message.MatchString(iss.Message) {
		return false
	}
	return true
}

// exhausted reports whether a counted rule has suppressed all it may.
func (r *ignoreRule) exhausted() bool {
	return r.raw.Count > 0 && r.matched >= r.raw.Count
}

func (r *ignoreRule) describe() string {
	switch {
	case r.raw.Message != "":
		return r.raw.Message
	case r.raw.Identifier != "":
		return "identifier " + r.raw.Identifier
	}
	return "path " + r.raw.Path
}

type ignoreSet struct {
	rules []*ignoreRule
}

func compileIgnores(rules []config.IgnoreRule) (*ignoreSet, error) {
	set := &ignoreSet{}
	for i, raw := range rules {
		r := &ignoreRule{raw: raw}
		if raw.Message != "" {
			re, err := config.MessagePattern(raw.Message)
			if err != nil {
				return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid ignore message"), errors.CtxKey, fmt.Sprintf("ignore[%d].message", i))
			}
			r.message = re
		}
		if raw.Path != "" {
			g, err := config.PathPattern(raw.Path)
			if err != nil {
				return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid ignore path"), errors.CtxKey, fmt.Sprintf("ignore[%d].path", i))
			}
			r.path = g
		}
		set.rules = append(set.rules, r)
	}
	return set, nil
}

// apply removes ignored issues from c and returns how many were removed. Match counts
// restart on every call. Parse errors are never ignored.
func (s *ignoreSet) apply(c *issue.Collection) int {
	for _, r := range s.rules {
		r.matched = 0
	}
	if len(s.rules) == 0 {
		return 0
	}
	return c.Filter(func(iss issue.Issue) bool {
		if iss.ID == ParseErrorID {
			return true
		}
		for _, r := range s.rules {
			if r.exhausted() || !r.matches(iss) {
				continue
			}
			r.matched++
			return false
		}
		return true
	})
}

// unmatched reports rules from the last apply that matched nothing, or fewer issues
// than their count.
func (s *ignoreSet) unmatched(configPath string) []issue.Issue {
	var out []issue.Issue
	for _, r := range s.rules {
		switch {
		case r.matched == 0:
			out = append(out, issue.Warning(UnmatchedIgnoreID, configPath, 0, 0,
				fmt.Sprintf("Ignored error pattern %s was not matched in reported errors.", r.describe())))
		case r.raw.Count > 0 && r.matched < r.raw.Count:
			out = append(out, issue.Warning(UnmatchedIgnoreID, configPath, 0, 0,
				fmt.Sprintf("Ignored error pattern %s is expected to occur %d %s, but occurred only %d %s.",
					r.describe(), r.raw.Count, times(r.raw.Count), r.matched, times(r.matched))))
		}
	}
	return out
}

func times(n int) string {
	if n == 1 {
		return "time"
	}
	return "times"
}
