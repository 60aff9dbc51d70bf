package symbols

import (
	"sort"
	"strings"
	"sync/atomic"

	domainerr "strata/internal/core/errors"
)

// Table owns every class, function and constant of one analysis run. Class and
// function keys are case-insensitive; constant keys are case-sensitive.
type Table struct {
	classes   map[string]*ClassInfo
	functions map[string]*FunctionInfo
	constants map[string]*ConstantInfo
	frozen    atomic.Bool
}

func NewTable() *Table {
	return &Table{
		classes:   make(map[string]*ClassInfo),
		functions: make(map[string]*FunctionInfo),
		constants: make(map[string]*ConstantInfo),
	}
}

// NewTableWithBuiltins returns a table preloaded with the runtime's classes, functions
// and constants.
func NewTableWithBuiltins() *Table {
	t := NewTable()
	registerBuiltins(t)
	return t
}

func classKey(name string) string { return strings.ToLower(strings.TrimPrefix(name, `\`)) }

func constKey(name string) string { return strings.TrimPrefix(name, `\`) }

// Freeze makes the table read-only. Every later mutation fails with CONFLICT.
func (t *Table) Freeze() { t.frozen.Store(true) }

func (t *Table) Frozen() bool { return t.frozen.Load() }

func (t *Table) checkMutable(op, name string) error {
	if t.frozen.Load() {
		err := &domainerr.DomainError{Code: domainerr.CodeConflict, Message: "symbol table is frozen"}
		return err.WithContext(domainerr.CtxOperation, op).WithContext(domainerr.CtxSymbol, name)
	}
	return nil
}

// AddClass records c, replacing any earlier declaration of the same name.
func (t *Table) AddClass(c *ClassInfo) error {
	if err := t.checkMutable("add class", c.Name); err != nil {
		return err
	}
	t.classes[classKey(c.Name)] = c
	return nil
}

// AddFunction records f, replacing any earlier declaration of the same name.
func (t *Table) AddFunction(f *FunctionInfo) error {
	if err := t.checkMutable("add function", f.Name); err != nil {
		return err
	}
	t.functions[classKey(f.Name)] = f
	return nil
}

// AddConstant records c, replacing any earlier declaration of the same name.
func (t *Table) AddConstant(c *ConstantInfo) error {
	if err := t.checkMutable("add constant", c.Name); err != nil {
		return err
	}
	t.constants[constKey(c.Name)] = c
	return nil
}

// Merge adds every declaration of fs; later declarations win.
func (t *Table) Merge(fs *FileSymbols) error {
	for _, c := range fs.Classes {
		if err := t.AddClass(c); err != nil {
			return err
		}
	}
	for _, f := range fs.Functions {
		if err := t.AddFunction(f); err != nil {
			return err
		}
	}
	for _, c := range fs.Constants {
		if err := t.AddConstant(c); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) Class(name string) (*ClassInfo, bool) {
	c, ok := t.classes[classKey(name)]
	return c, ok
}

func (t *Table) Function(name string) (*FunctionInfo, bool) {
	f, ok := t.functions[classKey(name)]
	return f, ok
}

// Constant looks a constant up by exact name; the magic true, false and null are
// matched case-insensitively.
func (t *Table) Constant(name string) (*ConstantInfo, bool) {
	key := constKey(name)
	if c, ok := t.constants[key]; ok {
		return c, true
	}
	switch strings.ToLower(key) {
	case "true", "false", "null":
		c, ok := t.constants[strings.ToLower(key)]
		return c, ok
	}
	return nil, false
}

func (t *Table) HasClass(name string) bool {
	_, ok := t.Class(name)
	return ok
}

func (t *Table) HasFunction(name string) bool {
	_, ok := t.Function(name)
	return ok
}

func (t *Table) HasConstant(name string) bool {
	_, ok := t.Constant(name)
	return ok
}

// ResolveFunction tries the namespaced name first and then the global fallback.
func (t *Table) ResolveFunction(name, fallback string) (*FunctionInfo, bool) {
	if f, ok := t.Function(name); ok {
		return f, true
	}
	if fallback != "" {
		return t.Function(fallback)
	}
	return nil, false
}

// ResolveConstant tries the namespaced name first and then the global fallback.
func (t *Table) ResolveConstant(name, fallback string) (*ConstantInfo, bool) {
	if c, ok := t.Constant(name); ok {
		return c, true
	}
	if fallback != "" {
		return t.Constant(fallback)
	}
	return nil, false
}

// Classes returns all classes sorted by name.
func (t *Table) Classes() []*ClassInfo {
	out := make([]*ClassInfo, 0, len(t.classes))
	for _, c := range t.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return classKey(out[i].Name) < classKey(out[j].Name) })
	return out
}

// Functions returns all functions sorted by name.
func (t *Table) Functions() []*FunctionInfo {
	out := make([]*FunctionInfo, 0, len(t.functions))
	for _, f := range t.functions {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return classKey(out[i].Name) < classKey(out[j].Name) })
	return out
}

// Stats summarises the table, split into user and builtin declarations.
type Stats struct {
	Classes, Functions, Constants                      int
	BuiltinClasses, BuiltinFunctions, BuiltinConstants int
}

func (t *Table) Stats() Stats {
	var s Stats
	for _, c := range t.classes {
		if c.Builtin {
			s.BuiltinClasses++
		} else {
			s.Classes++
		}
	}
	for _, f := range t.functions {
		if f.Builtin {
			s.BuiltinFunctions++
		} else {
			s.Functions++
		}
	}
	for _, c := range t.constants {
		if c.Builtin {
			s.BuiltinConstants++
		} else {
			s.Constants++
		}
	}
	return s
}
