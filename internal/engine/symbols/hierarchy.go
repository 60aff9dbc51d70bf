package symbols

import (
	"strings"

	"strata/internal/engine/types"
)

// Lookup is the outcome of a member search through a class hierarchy.
type Lookup uint8

const (
	// Missing: the hierarchy is fully known and has no such member.
	Missing Lookup = iota
	// Declared: the member is declared on the class or an ancestor.
	Declared
	// Magic: the member is only reachable through __call, __callStatic or __get.
	Magic
	// Unresolved: the class or one of its ancestors is not in the table.
	Unresolved
)

// Trinary converts a lookup into existence confidence. Magic members exist.
func (l Lookup) Trinary() types.Trinary {
	switch l {
	case Declared, Magic:
		return types.Yes
	case Unresolved:
		return types.Maybe
	}
	return types.No
}

// walk visits name and its ancestors (parent chain, traits, interfaces) breadth-first,
// each at most once. It reports whether some ancestor could not be resolved. Visiting
// stops when fn returns false.
func (t *Table) walk(name string, fn func(*ClassInfo) bool) (unknown bool) {
	queue := []string{name}
	seen := make(map[string]bool)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		key := classKey(cur)
		if seen[key] {
			continue
		}
		seen[key] = true
		c, ok := t.classes[key]
		if !ok {
			unknown = true
			continue
		}
		if !fn(c) {
			return unknown
		}
		queue = append(queue, c.Traits...)
		if c.Parent != "" {
			queue = append(queue, c.Parent)
		}
		queue = append(queue, c.Interfaces...)
	}
	return unknown
}

// Ancestors lists the resolvable ancestors of name (parents, traits and interfaces),
// nearest first, excluding name itself.
func (t *Table) Ancestors(name string) []string {
	var out []string
	t.walk(name, func(c *ClassInfo) bool {
		if classKey(c.Name) != classKey(name) {
			out = append(out, c.Name)
		}
		return true
	})
	return out
}

// HasUnknownAncestor reports whether name or some ancestor is missing from the table.
func (t *Table) HasUnknownAncestor(name string) bool {
	return t.walk(name, func(*ClassInfo) bool { return true })
}

// IsSubclassOf reports whether child is parent, extends it, implements it or uses it.
// Unknown classes in the chain make the answer Maybe. It implements types.Hierarchy.
func (t *Table) IsSubclassOf(child, parent string) types.Trinary {
	target := classKey(parent)
	if classKey(child) == target {
		return types.Yes
	}
	found := false
	unknown := t.walk(child, func(c *ClassInfo) bool {
		if classKey(c.Name) == target {
			found = true
			return false
		}
		return true
	})
	switch {
	case found:
		return types.Yes
	case target == "stringable":
		if m, l := t.FindMethod(child, "__toString"); m != nil && l == Declared {
			return types.Yes
		}
	case target == "unitenum" || target == "backedenum":
		if c, ok := t.Class(child); ok && c.Kind == KindEnum {
			if target == "unitenum" {
				return types.Yes
			}
			return types.Maybe
		}
	}
	if unknown {
		return types.Maybe
	}
	return types.No
}

// FindMethod searches the class, its traits, its parents and its interfaces. When the
// method is not declared, __call (or __callStatic) turns Missing into Magic.
func (t *Table) FindMethod(class, method string) (*MethodInfo, Lookup) {
	var found *MethodInfo
	key := strings.ToLower(method)
	unknown := t.walk(class, func(c *ClassInfo) bool {
		if m, ok := c.Methods[key]; ok {
			found = m
			return false
		}
		return true
	})
	if found != nil {
		if found.Magic {
			return found, Magic
		}
		return found, Declared
	}
	if unknown {
		return nil, Unresolved
	}
	if key != "__call" && key != "__callstatic" {
		if m, l := t.FindMethod(class, "__call"); l == Declared {
			return m, Magic
		}
		if m, l := t.FindMethod(class, "__callStatic"); l == Declared {
			return m, Magic
		}
	}
	return nil, Missing
}

// FindProperty searches the class and its ancestors. Dynamic classes and __get make an
// undeclared property Magic.
func (t *Table) FindProperty(class, property string) (*PropertyInfo, Lookup) {
	var found *PropertyInfo
	dynamic := false
	unknown := t.walk(class, func(c *ClassInfo) bool {
		if p, ok := c.Properties[property]; ok {
			found = p
			return false
		}
		if c.Dynamic {
			dynamic = true
		}
		return true
	})
	if found != nil {
		if found.Magic {
			return found, Magic
		}
		return found, Declared
	}
	if unknown {
		return nil, Unresolved
	}
	if dynamic {
		return nil, Magic
	}
	if _, l := t.FindMethod(class, "__get"); l == Declared {
		return nil, Magic
	}
	return nil, Missing
}

// FindConstant searches the class and its ancestors, including enum cases.
func (t *Table) FindConstant(class, name string) (*ClassConstInfo, Lookup) {
	if strings.EqualFold(name, "class") {
		return nil, Declared
	}
	var found *ClassConstInfo
	unknown := t.walk(class, func(c *ClassInfo) bool {
		if k, ok := c.Constants[name]; ok {
			found = k
			return false
		}
		return true
	})
	switch {
	case found != nil:
		return found, Declared
	case unknown:
		return nil, Unresolved
	}
	return nil, Missing
}

// HasMethod implements types.Hierarchy; magic methods count as existing.
func (t *Table) HasMethod(class, method string) types.Trinary {
	_, l := t.FindMethod(class, method)
	return l.Trinary()
}

// HasProperty implements types.Hierarchy; magic properties count as existing.
func (t *Table) HasProperty(class, property string) types.Trinary {
	_, l := t.FindProperty(class, property)
	return l.Trinary()
}

var _ types.Hierarchy = (*Table)(nil)
