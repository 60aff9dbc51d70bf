package issue

import (
	"sort"
)

// Collection is an ordered list of issues. Insertion order is kept until Sort is called.
// A Collection is not safe for concurrent use; per-file workers build their own and the
// pipeline concatenates them.
type Collection struct {
	items []Issue
}

func NewCollection(items ...Issue) *Collection {
	c := &Collection{items: make([]Issue, 0, len(items))}
	c.items = append(c.items, items...)
	return c
}

func (c *Collection) Add(i Issue) {
	c.items = append(c.items, i)
}

func (c *Collection) Extend(items []Issue) {
	c.items = append(c.items, items...)
}

// Merge appends every issue of other.
func (c *Collection) Merge(other *Collection) {
	if other == nil {
		return
	}
	c.items = append(c.items, other.items...)
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Items returns a copy of the issues in their current order.
func (c *Collection) Items() []Issue {
	if c == nil {
		return nil
	}
	out := make([]Issue, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection) ErrorCount() int {
	return c.count(SeverityError)
}

func (c *Collection) WarningCount() int {
	return c.count(SeverityWarning)
}

func (c *Collection) HasErrors() bool {
	return c.ErrorCount() > 0
}

func (c *Collection) count(s Severity) int {
	if c == nil {
		return 0
	}
	n := 0
	for i := range c.items {
		if c.items[i].Severity == s {
			n++
		}
	}
	return n
}

// Sort orders issues by file, line, column, severity (errors first), identifier and
// message so that output is deterministic regardless of worker scheduling.
func (c *Collection) Sort() {
	sort.SliceStable(c.items, func(i, j int) bool {
		a, b := c.items[i], c.items[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Message < b.Message
	})
}

// Dedup removes exact duplicates while keeping the first occurrence.
func (c *Collection) Dedup() {
	seen := make(map[Issue]bool, len(c.items))
	out := c.items[:0]
	for _, it := range c.items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	c.items = out
}

// Filter keeps the issues for which keep returns true and returns how many were removed.
func (c *Collection) Filter(keep func(Issue) bool) int {
	out := c.items[:0]
	removed := 0
	for _, it := range c.items {
		if keep(it) {
			out = append(out, it)
			continue
		}
		removed++
	}
	c.items = out
	return removed
}

// ByFile groups issues by file path, preserving order within each file.
func (c *Collection) ByFile() map[string][]Issue {
	out := make(map[string][]Issue)
	for _, it := range c.items {
		out[it.File] = append(out[it.File], it)
	}
	return out
}

// CountByID tallies issues per identifier.
func (c *Collection) CountByID() map[string]int {
	out := make(map[string]int)
	for _, it := range c.items {
		out[it.ID]++
	}
	return out
}
