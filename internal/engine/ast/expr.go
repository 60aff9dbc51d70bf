package ast

import "strings"

// Name is a class, function or constant reference. The parser resolves it against the
// enclosing namespace and imports; Resolved never carries a leading backslash.
type Name struct {
	Text     string // as written
	Resolved string
	// Fallback is the global name tried at runtime for unqualified function and
	// constant references inside a namespace. Empty otherwise.
	Fallback string
}

// NewName builds an already-resolved name; the parser and tests use it.
func NewName(resolved string) *Name {
	resolved = strings.TrimPrefix(resolved, `\`)
	return &Name{Text: resolved, Resolved: resolved}
}

func (n *Name) String() string {
	if n == nil {
		return ""
	}
	return n.Resolved
}

// Special reports self, static or parent.
func (n *Name) Special() string {
	if n == nil {
		return ""
	}
	switch lower := strings.ToLower(n.Resolved); lower {
	case "self", "static", "parent":
		return lower
	}
	return ""
}

type Variable struct {
	Pos
	Name string // without the leading $
}

// DynamicVariable is `$$name` or `${expr}`.
type DynamicVariable struct {
	Pos
	Name Expr
}

// Assign covers plain, compound (`+=`, `??=`, ...) and by-reference assignment. Op is
// empty for plain assignment and the bare operator otherwise.
type Assign struct {
	Pos
	Target Expr
	Value  Expr
	Op     string
	ByRef  bool
}

type IntLit struct {
	Pos
	Value int64
}

type FloatLit struct {
	Pos
	Value float64
}

// StringLit is a string literal; interpolated strings keep their embedded expressions.
type StringLit struct {
	Pos
	Value        string
	Interpolated bool
	Parts        []Expr
}

type BoolLit struct {
	Pos
	Value bool
}

type NullLit struct {
	Pos
}

type ArrayItem struct {
	Pos
	Key    Expr
	Value  Expr
	ByRef  bool
	Spread bool
}

// ArrayLit is an array literal, or a list()/[...] destructuring target when List is set.
type ArrayLit struct {
	Pos
	Items []*ArrayItem
	List  bool
}

type ConstFetch struct {
	Pos
	Name *Name
}

// Call is a function call. Name is nil when the callee is an expression.
type Call struct {
	Pos
	Name *Name
	Func Expr
	Args []*Arg
}

// FuncName is the lower-cased resolved callee name, or "" for dynamic calls.
func (c *Call) FuncName() string {
	if c.Name == nil {
		return ""
	}
	return strings.ToLower(c.Name.Resolved)
}

type MethodCall struct {
	Pos
	Receiver   Expr
	Method     string // empty when dynamic
	MethodExpr Expr
	Args       []*Arg
	NullSafe   bool
}

type StaticCall struct {
	Pos
	Class      *Name // nil when the class is an expression
	ClassExpr  Expr
	Method     string
	MethodExpr Expr
	Args       []*Arg
}

type PropertyFetch struct {
	Pos
	Receiver     Expr
	Property     string // empty when dynamic
	PropertyExpr Expr
	NullSafe     bool
}

type StaticPropertyFetch struct {
	Pos
	Class     *Name
	ClassExpr Expr
	Property  string
}

type ClassConstFetch struct {
	Pos
	Class     *Name
	ClassExpr Expr
	Const     string
}

type New struct {
	Pos
	Class     *Name
	ClassExpr Expr
	Anonymous *ClassDecl
	Args      []*Arg
}

// Binary operators are kept as written, lower-cased for keyword operators (and, or, xor).
type Binary struct {
	Pos
	Op string
	L  Expr
	R  Expr
}

// Unary covers !, -, +, ~ and the @ silence operator.
type Unary struct {
	Pos
	Op string
	X  Expr
}

type IncDec struct {
	Pos
	X      Expr
	Inc    bool
	Prefix bool
}

type Cast struct {
	Pos
	To string // int, float, string, bool, array, object, unset
	X  Expr
}

// Ternary is `c ? a : b`; Then is nil for the short form `c ?: b`.
type Ternary struct {
	Pos
	Cond Expr
	Then Expr
	Else Expr
}

type MatchArm struct {
	Pos
	Conds []Expr // nil for the default arm
	Body  Expr
}

type Match struct {
	Pos
	Subject Expr
	Arms    []*MatchArm
}

type Isset struct {
	Pos
	Args []Expr
}

type Empty struct {
	Pos
	X Expr
}

type ClosureUse struct {
	Pos
	Name  string
	ByRef bool
}

type Closure struct {
	Pos
	Params     []*Param
	Uses       []ClosureUse
	ReturnType *TypeHint
	Body       []Stmt
	Static     bool
	ByRef      bool
}

type ArrowFunc struct {
	Pos
	Params     []*Param
	ReturnType *TypeHint
	Body       Expr
	Static     bool
}

// Index is `x[i]`; Index is nil for the append form `x[]`.
type Index struct {
	Pos
	X     Expr
	Index Expr
}

type Instanceof struct {
	Pos
	X         Expr
	Class     *Name
	ClassExpr Expr
}

type Clone struct {
	Pos
	X Expr
}

type Print struct {
	Pos
	X Expr
}

// Include is include, include_once, require or require_once.
type Include struct {
	Pos
	Kind string
	X    Expr
}

// Exit is exit or die.
type Exit struct {
	Pos
	X Expr
}

type Throw struct {
	Pos
	X Expr
}

type Yield struct {
	Pos
	Key   Expr
	Value Expr
	From  bool
}

// MagicConst is __LINE__, __FILE__, __CLASS__ and the like.
type MagicConst struct {
	Pos
	Name string
}

// Unknown stands for an expression the parser does not model. It types as mixed.
type Unknown struct {
	Pos
	Kind string
}

func (e *Variable) Position() Pos            { return e.Pos }
func (e *DynamicVariable) Position() Pos     { return e.Pos }
func (e *Assign) Position() Pos              { return e.Pos }
func (e *IntLit) Position() Pos              { return e.Pos }
func (e *FloatLit) Position() Pos            { return e.Pos }
func (e *StringLit) Position() Pos           { return e.Pos }
func (e *BoolLit) Position() Pos             { return e.Pos }
func (e *NullLit) Position() Pos             { return e.Pos }
func (e *ArrayItem) Position() Pos           { return e.Pos }
func (e *ArrayLit) Position() Pos            { return e.Pos }
func (e *ConstFetch) Position() Pos          { return e.Pos }
func (e *Call) Position() Pos                { return e.Pos }
func (e *MethodCall) Position() Pos          { return e.Pos }
func (e *StaticCall) Position() Pos          { return e.Pos }
func (e *PropertyFetch) Position() Pos       { return e.Pos }
func (e *StaticPropertyFetch) Position() Pos { return e.Pos }
func (e *ClassConstFetch) Position() Pos     { return e.Pos }
func (e *New) Position() Pos                 { return e.Pos }
func (e *Binary) Position() Pos              { return e.Pos }
func (e *Unary) Position() Pos               { return e.Pos }
func (e *IncDec) Position() Pos              { return e.Pos }
func (e *Cast) Position() Pos                { return e.Pos }
func (e *Ternary) Position() Pos             { return e.Pos }
func (e *MatchArm) Position() Pos            { return e.Pos }
func (e *Match) Position() Pos               { return e.Pos }
func (e *Isset) Position() Pos               { return e.Pos }
func (e *Empty) Position() Pos               { return e.Pos }
func (e *Closure) Position() Pos             { return e.Pos }
func (e *ArrowFunc) Position() Pos           { return e.Pos }
func (e *Index) Position() Pos               { return e.Pos }
func (e *Instanceof) Position() Pos          { return e.Pos }
func (e *Clone) Position() Pos               { return e.Pos }
func (e *Print) Position() Pos               { return e.Pos }
func (e *Include) Position() Pos             { return e.Pos }
func (e *Exit) Position() Pos                { return e.Pos }
func (e *Throw) Position() Pos               { return e.Pos }
func (e *Yield) Position() Pos               { return e.Pos }
func (e *MagicConst) Position() Pos          { return e.Pos }
func (e *Unknown) Position() Pos             { return e.Pos }

func (*Variable) exprNode()            {}
func (*DynamicVariable) exprNode()     {}
func (*Assign) exprNode()              {}
func (*IntLit) exprNode()              {}
func (*FloatLit) exprNode()            {}
func (*StringLit) exprNode()           {}
func (*BoolLit) exprNode()             {}
func (*NullLit) exprNode()             {}
func (*ArrayLit) exprNode()            {}
func (*ConstFetch) exprNode()          {}
func (*Call) exprNode()                {}
func (*MethodCall) exprNode()          {}
func (*StaticCall) exprNode()          {}
func (*PropertyFetch) exprNode()       {}
func (*StaticPropertyFetch) exprNode() {}
func (*ClassConstFetch) exprNode()     {}
func (*New) exprNode()                 {}
func (*Binary) exprNode()              {}
func (*Unary) exprNode()               {}
func (*IncDec) exprNode()              {}
func (*Cast) exprNode()                {}
func (*Ternary) exprNode()             {}
func (*Match) exprNode()               {}
func (*Isset) exprNode()               {}
func (*Empty) exprNode()               {}
func (*Closure) exprNode()             {}
func (*ArrowFunc) exprNode()           {}
func (*Index) exprNode()               {}
func (*Instanceof) exprNode()          {}
func (*Clone) exprNode()               {}
func (*Print) exprNode()               {}
func (*Include) exprNode()             {}
func (*Exit) exprNode()                {}
func (*Throw) exprNode()               {}
func (*Yield) exprNode()               {}
func (*MagicConst) exprNode()          {}
func (*Unknown) exprNode()             {}
