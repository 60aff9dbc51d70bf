package ast

// NamespaceStmt groups the statements of one namespace. An unbraced namespace
// declaration owns every statement up to the next namespace declaration.
type NamespaceStmt struct {
	Pos
	Name  string // empty for the global namespace
	Stmts []Stmt
}

// UseKind distinguishes `use`, `use function` and `use const`.
type UseKind uint8

const (
	UseClass UseKind = iota
	UseFunction
	UseConst
)

type UseItem struct {
	Pos
	Kind  UseKind
	Name  string // fully qualified, without a leading backslash
	Alias string // explicit alias, empty when none was given
}

// EffectiveAlias is the alias in effect: the explicit one or the last name segment.
func (u UseItem) EffectiveAlias() string {
	if u.Alias != "" {
		return u.Alias
	}
	for i := len(u.Name) - 1; i >= 0; i-- {
		if u.Name[i] == '\\' {
			return u.Name[i+1:]
		}
	}
	return u.Name
}

type UseStmt struct {
	Pos
	Items []UseItem
}

// FunctionDecl names are fully qualified without a leading backslash, like ClassDecl
// names, parents, interfaces, traits and catch types.
type FunctionDecl struct {
	Pos
	Name       string
	Params     []*Param
	ReturnType *TypeHint
	Body       []Stmt
	ByRef      bool
	Doc        *Doc
}

// ClassKind is the declaration keyword of a class-like.
type ClassKind uint8

const (
	KindClass ClassKind = iota
	KindInterface
	KindTrait
	KindEnum
)

func (k ClassKind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindTrait:
		return "trait"
	case KindEnum:
		return "enum"
	}
	return "class"
}

// ClassDecl is a class, interface, trait or enum. Anonymous classes have an empty Name.
type ClassDecl struct {
	Pos
	Kind        ClassKind
	Name        string
	Parent      string   // class: extends
	Interfaces  []string // class/enum: implements, interface: extends
	Traits      []string
	Abstract    bool
	Final       bool
	Readonly    bool
	BackingType *TypeHint // backed enums
	Methods     []*MethodDecl
	Properties  []*PropertyDecl
	Constants   []*ClassConstDecl
	Cases       []*EnumCase
	Doc         *Doc
}

type MethodDecl struct {
	Pos
	Name       string
	Params     []*Param
	ReturnType *TypeHint
	Body       []Stmt
	HasBody    bool
	ByRef      bool
	Visibility Visibility
	Static     bool
	Abstract   bool
	Final      bool
	Doc        *Doc
}

func (m *MethodDecl) Position() Pos { return m.Pos }

type PropertyDecl struct {
	Pos
	Name       string // without the leading $
	Type       *TypeHint
	Default    Expr
	Visibility Visibility
	Static     bool
	Readonly   bool
	Doc        *Doc
}

func (p *PropertyDecl) Position() Pos { return p.Pos }

type ClassConstDecl struct {
	Pos
	Name       string
	Value      Expr
	Visibility Visibility
	Final      bool
}

func (c *ClassConstDecl) Position() Pos { return c.Pos }

type EnumCase struct {
	Pos
	Name  string
	Value Expr
}

func (c *EnumCase) Position() Pos { return c.Pos }

// ConstItem is one `const NAME = value` entry or a `define('NAME', value)` call.
type ConstItem struct {
	Pos
	Name  string
	Value Expr
}

type ConstStmt struct {
	Pos
	Items []ConstItem
}

type ExprStmt struct {
	Pos
	X   Expr
	Doc *Doc // inline @var annotation, if any
}

type EchoStmt struct {
	Pos
	Args []Expr
}

type ReturnStmt struct {
	Pos
	Result Expr // nil for a bare return
}

type ElseIf struct {
	Pos
	Cond Expr
	Body []Stmt
}

func (e *ElseIf) Position() Pos { return e.Pos }

type IfStmt struct {
	Pos
	Cond    Expr
	Then    []Stmt
	ElseIfs []*ElseIf
	Else    []Stmt
	HasElse bool
}

type WhileStmt struct {
	Pos
	Cond Expr
	Body []Stmt
}

type DoWhileStmt struct {
	Pos
	Body []Stmt
	Cond Expr
}

type ForStmt struct {
	Pos
	Init []Expr
	Cond []Expr // empty means "loop forever"
	Step []Expr
	Body []Stmt
}

type ForeachStmt struct {
	Pos
	Subject Expr
	Key     Expr // nil without `$k =>`
	Value   Expr
	ByRef   bool
	Body    []Stmt
}

type CaseClause struct {
	Pos
	Test Expr // nil for default
	Body []Stmt
}

func (c *CaseClause) Position() Pos { return c.Pos }

type SwitchStmt struct {
	Pos
	Subject Expr
	Cases   []*CaseClause
}

type CatchClause struct {
	Pos
	Types []string
	Var   string // empty for catch without variable
	Body  []Stmt
}

func (c *CatchClause) Position() Pos { return c.Pos }

type TryStmt struct {
	Pos
	Body       []Stmt
	Catches    []*CatchClause
	Finally    []Stmt
	HasFinally bool
}

type BlockStmt struct {
	Pos
	Stmts []Stmt
}

type BreakStmt struct {
	Pos
	Levels int
}

type ContinueStmt struct {
	Pos
	Levels int
}

type GlobalStmt struct {
	Pos
	Names []string
}

type StaticVar struct {
	Name string
	Init Expr
}

type StaticVarStmt struct {
	Pos
	Vars []StaticVar
}

type UnsetStmt struct {
	Pos
	Args []Expr
}

// InlineHTMLStmt is text outside of PHP tags.
type InlineHTMLStmt struct {
	Pos
}

// DeclareStmt is `declare(...)`; strict_types is also recorded on File.
type DeclareStmt struct {
	Pos
	Directives map[string]Expr
	Body       []Stmt
}

// UnknownStmt stands for a construct the parser does not model.
type UnknownStmt struct {
	Pos
	Kind string
}

func (s *NamespaceStmt) Position() Pos  { return s.Pos }
func (s *UseStmt) Position() Pos        { return s.Pos }
func (s *FunctionDecl) Position() Pos   { return s.Pos }
func (s *ClassDecl) Position() Pos      { return s.Pos }
func (s *ConstStmt) Position() Pos      { return s.Pos }
func (s *ExprStmt) Position() Pos       { return s.Pos }
func (s *EchoStmt) Position() Pos       { return s.Pos }
func (s *ReturnStmt) Position() Pos     { return s.Pos }
func (s *IfStmt) Position() Pos         { return s.Pos }
func (s *WhileStmt) Position() Pos      { return s.Pos }
func (s *DoWhileStmt) Position() Pos    { return s.Pos }
func (s *ForStmt) Position() Pos        { return s.Pos }
func (s *ForeachStmt) Position() Pos    { return s.Pos }
func (s *SwitchStmt) Position() Pos     { return s.Pos }
func (s *TryStmt) Position() Pos        { return s.Pos }
func (s *BlockStmt) Position() Pos      { return s.Pos }
func (s *BreakStmt) Position() Pos      { return s.Pos }
func (s *ContinueStmt) Position() Pos   { return s.Pos }
func (s *GlobalStmt) Position() Pos     { return s.Pos }
func (s *StaticVarStmt) Position() Pos  { return s.Pos }
func (s *UnsetStmt) Position() Pos      { return s.Pos }
func (s *InlineHTMLStmt) Position() Pos { return s.Pos }
func (s *DeclareStmt) Position() Pos    { return s.Pos }
func (s *UnknownStmt) Position() Pos    { return s.Pos }

func (*NamespaceStmt) stmtNode()  {}
func (*UseStmt) stmtNode()        {}
func (*FunctionDecl) stmtNode()   {}
func (*ClassDecl) stmtNode()      {}
func (*ConstStmt) stmtNode()      {}
func (*ExprStmt) stmtNode()       {}
func (*EchoStmt) stmtNode()       {}
func (*ReturnStmt) stmtNode()     {}
func (*IfStmt) stmtNode()         {}
func (*WhileStmt) stmtNode()      {}
func (*DoWhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()        {}
func (*ForeachStmt) stmtNode()    {}
func (*SwitchStmt) stmtNode()     {}
func (*TryStmt) stmtNode()        {}
func (*BlockStmt) stmtNode()      {}
func (*BreakStmt) stmtNode()      {}
func (*ContinueStmt) stmtNode()   {}
func (*GlobalStmt) stmtNode()     {}
func (*StaticVarStmt) stmtNode()  {}
func (*UnsetStmt) stmtNode()      {}
func (*InlineHTMLStmt) stmtNode() {}
func (*DeclareStmt) stmtNode()    {}
func (*UnknownStmt) stmtNode()    {}
