// Package scope tracks local variable types and flow-sensitive definiteness while walking
// a file. A Scope describes one program point; Walk folds a forward dataflow analysis over
// every function body and hands each node, with the scope in effect there, to a visitor.
package scope

import (
	"sort"
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

// Definiteness classifies whether a variable is assigned on every, some or no path
// reaching a program point.
type Definiteness uint8

const (
	Never Definiteness = iota
	Maybe
	Always
)

func (d Definiteness) String() string {
	switch d {
	case Always:
		return "always"
	case Maybe:
		return "maybe"
	}
	return "never"
}

// Join merges the definiteness of two incoming paths.
func (d Definiteness) Join(o Definiteness) Definiteness {
	if d == o {
		return d
	}
	return Maybe
}

// Trinary maps Always to Yes, Never to No and Maybe to Maybe.
func (d Definiteness) Trinary() types.Trinary {
	switch d {
	case Always:
		return types.Yes
	case Maybe:
		return types.Maybe
	}
	return types.No
}

// Var is what a scope knows about one variable.
type Var struct {
	Type *types.Type
	Def  Definiteness
}

// ClassContext binds the class being analysed. Name is empty for anonymous classes and
// Info is nil when the class is not in the table.
type ClassContext struct {
	Name   string
	Parent string
	Info   *symbols.ClassInfo
	Decl   *ast.ClassDecl
	// Trait is set inside a trait body, where self, static, parent and $this refer to
	// the class using the trait.
	Trait bool
}

// Resolve maps self, static and parent to class names. ok is false when the name
// cannot be bound, as for parent in a class without one or anything inside a trait.
func (c *ClassContext) Resolve(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "self", "static":
		if c == nil || c.Name == "" || c.Trait {
			return "", false
		}
		return c.Name, true
	case "parent":
		if c == nil || c.Parent == "" || c.Trait {
			return "", false
		}
		return c.Parent, true
	}
	return name, name != ""
}

// Signature builds the signature of a function-like declared in the class body.
func (c *ClassContext) Signature(params []*ast.Param, ret *ast.TypeHint, doc *ast.Doc, byRef bool) symbols.Signature {
	switch {
	case c == nil:
		return symbols.DeclSignature(params, ret, doc, byRef, "", "")
	case c.Trait:
		return symbols.TraitSignature(params, ret, doc, byRef)
	}
	return symbols.DeclSignature(params, ret, doc, byRef, c.Name, c.Parent)
}

// FunctionContext binds the function, method or closure being analysed.
type FunctionContext struct {
	Name      string // empty for closures and arrow functions
	Signature symbols.Signature
	Static    bool
	Closure   bool
	Arrow     bool
	// Dynamic is set when the body can create variables the analysis cannot see.
	Dynamic bool
	// Decl is the *ast.FunctionDecl, *ast.MethodDecl, *ast.Closure or *ast.ArrowFunc.
	Decl ast.Node
}

// ReturnType is the effective declared return type; nil when undeclared.
func (f *FunctionContext) ReturnType() *types.Type {
	if f == nil {
		return nil
	}
	return f.Signature.Return()
}

// IsConstructor reports a __construct method.
func (f *FunctionContext) IsConstructor() bool {
	if f == nil {
		return false
	}
	_, ok := f.Decl.(*ast.MethodDecl)
	return ok && strings.EqualFold(f.Name, "__construct")
}

type reach uint8

const (
	live reach = iota
	// terminated: control left through return, throw, exit, break or continue.
	terminated
	// impossible: the path requires a condition that can never hold.
	impossible
)

var superglobals = map[string]bool{
	"GLOBALS": true, "_SERVER": true, "_GET": true, "_POST": true, "_FILES": true,
	"_COOKIE": true, "_SESSION": true, "_REQUEST": true, "_ENV": true,
}

// IsSuperglobal reports variables that are defined in every scope.
func IsSuperglobal(name string) bool { return superglobals[name] }

// Scope maps variable names to their type and definiteness at one program point.
// Scopes handed to a visitor are owned by the walker and must not be retained.
type Scope struct {
	Table    *symbols.Table
	File     *ast.File
	Class    *ClassContext
	Function *FunctionContext

	vars    map[string]Var
	exprs   map[string]*types.Type // narrowed property fetches, keyed by exprKey
	reach   reach
	dynamic bool
	global  bool
}

// New returns an empty scope. A nil table is replaced by an empty one.
func New(table *symbols.Table, file *ast.File, class *ClassContext, fn *FunctionContext) *Scope {
	if table == nil {
		table = symbols.NewTable()
	}
	return &Scope{
		Table:    table,
		File:     file,
		Class:    class,
		Function: fn,
		vars:     make(map[string]Var),
		exprs:    make(map[string]*types.Type),
		dynamic:  fn != nil && fn.Dynamic,
	}
}

// Clone copies the scope; variables of the copy can be changed independently.
func (s *Scope) Clone() *Scope {
	c := *s
	c.vars = make(map[string]Var, len(s.vars))
	for k, v := range s.vars {
		c.vars[k] = v
	}
	c.exprs = make(map[string]*types.Type, len(s.exprs))
	for k, v := range s.exprs {
		c.exprs[k] = v
	}
	return &c
}

// HasThis reports whether $this is bound.
func (s *Scope) HasThis() bool {
	return s.Class != nil && s.Function != nil && !s.Function.Static
}

// IsDynamic reports a scope in which variables may appear that no assignment shows,
// through extract(), include, eval or variable variables.
func (s *Scope) IsDynamic() bool { return s.dynamic }

// IsGlobal reports the file-level scope.
func (s *Scope) IsGlobal() bool { return s.global }

// Lookup returns what is known about a variable. Unknown variables are Never defined.
func (s *Scope) Lookup(name string) Var {
	if superglobals[name] {
		return Var{Type: types.Array(types.String(), nil), Def: Always}
	}
	if name == "this" {
		if !s.HasThis() {
			return Var{Def: Never}
		}
		return Var{Type: s.thisType(), Def: Always}
	}
	if s.global && (name == "argv" || name == "argc") {
		if name == "argc" {
			return Var{Type: types.Int(), Def: Always}
		}
		return Var{Type: types.Array(types.Int(), types.String()), Def: Always}
	}
	return s.vars[name]
}

// Definiteness is Lookup(name).Def.
func (s *Scope) Definiteness(name string) Definiteness { return s.Lookup(name).Def }

func (s *Scope) thisType() *types.Type {
	if s.Class == nil || s.Class.Name == "" || s.Class.Trait {
		return types.Object()
	}
	return types.ClassType(s.Class.Name)
}

// Assign defines a variable on the current path and forgets narrowed facts about it.
func (s *Scope) Assign(name string, t *types.Type) {
	s.vars[name] = Var{Type: t, Def: Always}
	s.invalidate("$" + name)
}

// Unset removes a variable.
func (s *Scope) Unset(name string) {
	delete(s.vars, name)
	s.invalidate("$" + name)
}

// setType narrows a variable or expression without changing its definiteness.
func (s *Scope) setType(key string, t *types.Type) {
	if name, ok := variableKey(key); ok {
		v, found := s.vars[name]
		if !found || name == "this" {
			return
		}
		v.Type = t
		s.vars[name] = v
		return
	}
	s.exprs[key] = t
}

// define marks the variable named by key as defined with type t, as isset() proves.
func (s *Scope) define(key string, t *types.Type) {
	if name, ok := variableKey(key); ok {
		if name == "this" || superglobals[name] {
			return
		}
		s.vars[name] = Var{Type: t, Def: Always}
		return
	}
	s.exprs[key] = t
}

func (s *Scope) invalidate(prefix string) {
	for k := range s.exprs {
		if k == prefix || strings.HasPrefix(k, prefix+"->") || strings.HasPrefix(k, prefix+"[") {
			delete(s.exprs, k)
		}
	}
}

func variableKey(key string) (string, bool) {
	if !strings.HasPrefix(key, "$") || strings.ContainsAny(key, "-:[") {
		return "", false
	}
	return key[1:], true
}

// Names lists the variables with any chance of being defined, sorted.
func (s *Scope) Names() []string {
	out := make([]string, 0, len(s.vars))
	for k, v := range s.vars {
		if v.Def != Never {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Unreachable reports that no execution reaches this point.
func (s *Scope) Unreachable() bool { return s.reach != live }

// Terminated reports that a return, throw, exit, break or continue ended the path.
func (s *Scope) Terminated() bool { return s.reach == terminated }

func (s *Scope) terminate() {
	if s.reach == live {
		s.reach = terminated
	}
}

// Merge joins the scopes of several incoming paths. Unreachable paths do not
// contribute. A variable keeps Always only when every reachable path defines it.
func Merge(scopes ...*Scope) *Scope {
	var reachable []*Scope
	for _, s := range scopes {
		if s != nil && !s.Unreachable() {
			reachable = append(reachable, s)
		}
	}
	if len(reachable) == 0 {
		for _, s := range scopes {
			if s == nil {
				continue
			}
			out := s.Clone()
			for _, o := range scopes {
				if o != nil && o.reach == terminated {
					out.reach = terminated
				}
			}
			return out
		}
		return nil
	}
	if len(reachable) == 1 {
		return reachable[0].Clone()
	}

	out := reachable[0].Clone()
	out.vars = make(map[string]Var)
	out.exprs = make(map[string]*types.Type)
	names := make(map[string]bool)
	for _, s := range reachable {
		for k := range s.vars {
			names[k] = true
		}
		out.dynamic = out.dynamic || s.dynamic
	}
	for name := range names {
		def := reachable[0].vars[name].Def
		var ts []*types.Type
		for i, s := range reachable {
			v := s.vars[name]
			if i > 0 {
				def = def.Join(v.Def)
			}
			if v.Def != Never {
				ts = append(ts, v.Type)
			}
		}
		if def == Never {
			continue
		}
		out.vars[name] = Var{Type: types.NormalizeUnion(ts...), Def: def}
	}
	for key, t := range reachable[0].exprs {
		ts := []*types.Type{t}
		for _, s := range reachable[1:] {
			o, ok := s.exprs[key]
			if !ok {
				ts = nil
				break
			}
			ts = append(ts, o)
		}
		if ts != nil {
			out.exprs[key] = types.NormalizeUnion(ts...)
		}
	}
	return out
}

func (s *Scope) equal(o *Scope) bool {
	if s.reach != o.reach || len(s.vars) != len(o.vars) || len(s.exprs) != len(o.exprs) {
		return false
	}
	for k, v := range s.vars {
		w, ok := o.vars[k]
		if !ok || v.Def != w.Def || !types.Equal(v.Type, w.Type) {
			return false
		}
	}
	for k, t := range s.exprs {
		u, ok := o.exprs[k]
		if !ok || !types.Equal(t, u) {
			return false
		}
	}
	return true
}

func (s *Scope) generalize() {
	for k, v := range s.vars {
		v.Type = types.Generalize(v.Type)
		s.vars[k] = v
	}
	for k, t := range s.exprs {
		s.exprs[k] = types.Generalize(t)
	}
}

// widen gives up on types that still change between loop passes.
func (s *Scope) widen(prev *Scope) {
	for k, v := range s.vars {
		if p, ok := prev.vars[k]; !ok || !types.Equal(p.Type, v.Type) {
			v.Type = types.Unknown()
			s.vars[k] = v
		}
	}
	for k, t := range s.exprs {
		if p, ok := prev.exprs[k]; !ok || !types.Equal(p, t) {
			delete(s.exprs, k)
		}
	}
}
