// Package ast defines the immutable PHP syntax tree consumed by the analysis engine.
// Trees are produced by the parser package and never modified afterwards; every
// analysis pass reads them concurrently.
package ast

import "strata/internal/engine/types"

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) IsValid() bool { return p.Line > 0 }

// Node is implemented by every syntax element.
type Node interface {
	Position() Pos
}

// Stmt is a statement or declaration.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression.
type Expr interface {
	Node
	exprNode()
}

// SyntaxError is a recoverable parse error attached to a file.
type SyntaxError struct {
	Pos
	Message string
}

// File is one parsed PHP source file.
type File struct {
	Path        string
	Stmts       []Stmt
	StrictTypes bool
	Errors      []SyntaxError
}

func (f *File) Position() Pos { return Pos{Line: 1, Column: 1} }

// TypeHint is a native type declaration. Type is resolved against the file's namespace
// and imports; self, static and parent stay symbolic until a class context binds them.
type TypeHint struct {
	Pos
	Text string
	Type *types.Type
}

// NewTypeHint parses text without namespace resolution. Malformed text yields the
// unknown mixed type.
func NewTypeHint(text string) *TypeHint {
	t, _ := types.ParseTypeString(text, nil)
	return &TypeHint{Text: text, Type: t}
}

// Doc is a PHPDoc block with its type tags already resolved.
type Doc struct {
	Text       string
	Params     map[string]*types.Type // keyed by parameter name without $
	Return     *types.Type
	Var        *types.Type
	VarName    string // for inline `@var Type $name`
	Deprecated bool
	Properties []DocProperty
	Methods    []DocMethod
}

// DocProperty is a class-level @property, @property-read or @property-write tag.
type DocProperty struct {
	Name      string
	Type      *types.Type
	ReadOnly  bool
	WriteOnly bool
}

// DocMethod is a class-level @method tag.
type DocMethod struct {
	Name   string
	Return *types.Type
	Static bool
}

// Param returns the documented type of a parameter, or nil.
func (d *Doc) Param(name string) *types.Type {
	if d == nil {
		return nil
	}
	return d.Params[name]
}

// ReturnType returns the documented return type, or nil.
func (d *Doc) ReturnType() *types.Type {
	if d == nil {
		return nil
	}
	return d.Return
}

// VarType returns the documented @var type, or nil.
func (d *Doc) VarType() *types.Type {
	if d == nil {
		return nil
	}
	return d.Var
}

// Param is a function, method or closure parameter.
type Param struct {
	Pos
	Name     string // without the leading $
	Type     *TypeHint
	Default  Expr
	Variadic bool
	ByRef    bool
	// Promoted is the visibility of a constructor-promoted property, empty otherwise.
	Promoted string
	Readonly bool
}

func (p *Param) Position() Pos { return p.Pos }

// HasDefault reports whether the parameter may be omitted by callers.
func (p *Param) HasDefault() bool { return p.Default != nil }

// Arg is a call argument.
type Arg struct {
	Pos
	Value  Expr
	Name   string // named argument, empty when positional
	Spread bool
}

func (a *Arg) Position() Pos { return a.Pos }

// Visibility of class members.
type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	}
	return "public"
}

// ParseVisibility maps a modifier keyword to a Visibility; unknown text is public.
func ParseVisibility(s string) Visibility {
	switch s {
	case "protected", "Protected", "PROTECTED":
		return Protected
	case "private", "Private", "PRIVATE":
		return Private
	}
	return Public
}
