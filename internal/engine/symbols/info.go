// Package symbols holds the whole-program index of classes, functions and constants.
// A Table is populated by the collector, frozen, and then shared read-only by every
// check. Relations between classes are names resolved on demand, never pointers.
package symbols

import (
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/types"
)

// ClassKind is the declaration keyword of a class-like.
type ClassKind = ast.ClassKind

const (
	KindClass     = ast.KindClass
	KindInterface = ast.KindInterface
	KindTrait     = ast.KindTrait
	KindEnum      = ast.KindEnum
)

// Location of a declaration. Builtins have an empty File.
type Location struct {
	File   string
	Line   int
	Column int
}

// ParameterInfo describes one declared parameter.
type ParameterInfo struct {
	Name       string
	Type       *types.Type // native hint, nil when absent
	DocType    *types.Type // @param type, nil when absent
	HasDefault bool
	Variadic   bool
	ByRef      bool
	Promoted   bool
}

// Effective is the type callers must satisfy: the PHPDoc type when it refines the native
// hint (or there is no hint), otherwise the native hint. Nil means implicit mixed.
func (p *ParameterInfo) Effective() *types.Type {
	return effective(p.Type, p.DocType, nil)
}

// HasTypeInfo reports a native hint or a PHPDoc type.
func (p *ParameterInfo) HasTypeInfo() bool { return p.Type != nil || p.DocType != nil }

func effective(native, doc *types.Type, h types.Hierarchy) *types.Type {
	switch {
	case doc == nil:
		return native
	case native == nil:
		return doc
	case types.IsSubtype(doc, native, h).IsYes():
		return doc
	}
	return native
}

// Signature is the callable part shared by functions and methods.
type Signature struct {
	Params     []*ParameterInfo
	ReturnType *types.Type // native hint, nil when absent
	DocReturn  *types.Type
	ByRef      bool
	// Unknown marks builtins registered by name only; argument checks skip them.
	Unknown    bool
	// ReadsArgs marks bodies calling func_get_args(), which accept any extra arguments.
	ReadsArgs  bool
}

// RequiredArgs counts the leading parameters without default that are not variadic.
func (s *Signature) RequiredArgs() int {
	n := 0
	for _, p := range s.Params {
		if p.HasDefault || p.Variadic {
			break
		}
		n++
	}
	return n
}

// MaxArgs returns the maximum accepted argument count, or -1 when unbounded.
func (s *Signature) MaxArgs() int {
	if s.ReadsArgs {
		return -1
	}
	for _, p := range s.Params {
		if p.Variadic {
			return -1
		}
	}
	return len(s.Params)
}

// Param returns the parameter receiving positional argument i, following a trailing
// variadic parameter.
func (s *Signature) Param(i int) *ParameterInfo {
	if i < len(s.Params) {
		return s.Params[i]
	}
	if n := len(s.Params); n > 0 && s.Params[n-1].Variadic {
		return s.Params[n-1]
	}
	return nil
}

// ParamByName finds a parameter for a named argument.
func (s *Signature) ParamByName(name string) *ParameterInfo {
	for _, p := range s.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Return is the effective return type; nil means implicit mixed.
func (s *Signature) Return() *types.Type {
	return effective(s.ReturnType, s.DocReturn, nil)
}

// HasReturnInfo reports a native return hint or a @return tag.
func (s *Signature) HasReturnInfo() bool { return s.ReturnType != nil || s.DocReturn != nil }

type FunctionInfo struct {
	Signature
	Name       string // fully qualified, declared casing
	Location   Location
	Builtin    bool
	Deprecated bool
}

type MethodInfo struct {
	Signature
	Name       string
	Class      string // declaring class
	Visibility ast.Visibility
	Static     bool
	Abstract   bool
	Final      bool
	// Magic marks methods known only from a @method tag.
	Magic      bool
	Location   Location
	Deprecated bool
}

func (m *MethodInfo) IsConstructor() bool { return strings.EqualFold(m.Name, "__construct") }

type PropertyInfo struct {
	Name       string // without $
	Class      string
	Type       *types.Type
	DocType    *types.Type
	Visibility ast.Visibility
	Static     bool
	Readonly   bool
	HasDefault bool
	Promoted   bool
	// Magic marks properties known only from a @property tag.
	Magic      bool
	Access     PropertyAccess
	Location   Location
}

// PropertyAccess mirrors @property-read / @property-write.
type PropertyAccess uint8

const (
	AccessReadWrite PropertyAccess = iota
	AccessReadOnly
	AccessWriteOnly
)

// Effective is the declared type of the property; nil means implicit mixed.
func (p *PropertyInfo) Effective() *types.Type { return effective(p.Type, p.DocType, nil) }

type ClassConstInfo struct {
	Name       string
	Class      string
	Type       *types.Type
	Visibility ast.Visibility
	EnumCase   bool
}

type ConstantInfo struct {
	Name     string
	Type     *types.Type
	Location Location
	Builtin  bool
}

// ClassInfo is one class, interface, trait or enum.
type ClassInfo struct {
	Name       string
	Kind       ClassKind
	Parent     string
	Interfaces []string
	Traits     []string
	Abstract   bool
	Final      bool
	Readonly   bool
	Builtin    bool
	Deprecated bool
	// Dynamic classes accept any property (stdClass and friends).
	Dynamic    bool
	Methods    map[string]*MethodInfo // keyed by lower-case name
	Properties map[string]*PropertyInfo
	Constants  map[string]*ClassConstInfo
	Location   Location
}

// NewClassInfo returns an empty ClassInfo with initialised maps.
func NewClassInfo(name string, kind ClassKind) *ClassInfo {
	return &ClassInfo{
		Name:       strings.TrimPrefix(name, `\`),
		Kind:       kind,
		Methods:    make(map[string]*MethodInfo),
		Properties: make(map[string]*PropertyInfo),
		Constants:  make(map[string]*ClassConstInfo),
	}
}

// Method returns a method declared directly on this class.
func (c *ClassInfo) Method(name string) *MethodInfo { return c.Methods[strings.ToLower(name)] }

func (c *ClassInfo) Property(name string) *PropertyInfo { return c.Properties[name] }

func (c *ClassInfo) Constant(name string) *ClassConstInfo { return c.Constants[name] }

func (c *ClassInfo) AddMethod(m *MethodInfo) {
	m.Class = c.Name
	c.Methods[strings.ToLower(m.Name)] = m
}

func (c *ClassInfo) AddProperty(p *PropertyInfo) {
	p.Class = c.Name
	c.Properties[p.Name] = p
}

func (c *ClassInfo) AddConstant(k *ClassConstInfo) {
	k.Class = c.Name
	c.Constants[k.Name] = k
}

// InstanceType is the object type of this class.
func (c *ClassInfo) InstanceType() *types.Type { return types.ClassType(c.Name) }

// Constructor returns the class's own constructor, if declared.
func (c *ClassInfo) Constructor() *MethodInfo { return c.Method("__construct") }
