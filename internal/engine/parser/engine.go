package parser

import (
	"fmt"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"strata/internal/engine/ast"
	"strata/internal/engine/phpdoc"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

// stmtHandler lowers one statement node; some nodes produce no statement at all.
type stmtHandler func(l *lowerer, n *sitter.Node) []ast.Stmt

type exprHandler func(l *lowerer, n *sitter.Node) ast.Expr

// Handler tables are filled in init because handlers recurse through them.
var (
	stmtHandlers map[string]stmtHandler
	exprHandlers map[string]exprHandler
)

// lowerer walks one concrete syntax tree and dispatches handlers by node kind.
type lowerer struct {
	src   []byte
	file  *ast.File
	names *symbols.NameContext
	// doc is the doc comment immediately preceding the statement being lowered.
	doc string
	// classTemplates are the @template names of the enclosing class.
	classTemplates []string
}

func newLowerer(src []byte, file *ast.File) *lowerer {
	return &lowerer{src: src, file: file, names: symbols.NewNameContext("")}
}

func (l *lowerer) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(l.src)
}

// compactText is the node text without whitespace, for names and type hints.
func (l *lowerer) compactText(n *sitter.Node) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, l.text(n))
}

func (l *lowerer) takeDoc() string {
	d := l.doc
	l.doc = ""
	return d
}

func pos(n *sitter.Node) ast.Pos {
	if n == nil {
		return ast.Pos{}
	}
	p := n.StartPosition()
	return ast.Pos{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func field(n *sitter.Node, name string) *sitter.Node {
	if n == nil {
		return nil
	}
	return n.ChildByFieldName(name)
}

// named returns the named children of n without comments.
func named(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range namedWithComments(n) {
		if c.Kind() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

func namedWithComments(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if kids := named(n); len(kids) > 0 {
		return kids[0]
	}
	return nil
}

func lastNamed(n *sitter.Node) *sitter.Node {
	if kids := named(n); len(kids) > 0 {
		return kids[len(kids)-1]
	}
	return nil
}

// childOfKind returns the first direct child of one of kinds.
func childOfKind(n *sitter.Node, kinds ...string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		for _, k := range kinds {
			if c.Kind() == k {
				return c
			}
		}
	}
	return nil
}

// hasToken reports an anonymous child token such as "&", "..." or "=>".
func hasToken(n *sitter.Node, token string) bool {
	if n == nil {
		return false
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() && strings.EqualFold(c.Kind(), token) {
			return true
		}
	}
	return false
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.Id() == b.Id()
}

// varName strips the sigil of a variable_name node text.
func varName(text string) string {
	return strings.TrimPrefix(strings.TrimSpace(text), "$")
}

// syntaxErrors reports ERROR and MISSING nodes. Subtrees without errors are skipped.
func syntaxErrors(root *sitter.Node, src []byte) []ast.SyntaxError {
	if root == nil || !root.HasError() {
		return nil
	}
	var out []ast.SyntaxError
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch {
		case n.IsMissing():
			out = append(out, ast.SyntaxError{Pos: pos(n), Message: fmt.Sprintf("Syntax error, missing %s", n.Kind())})
			return
		case n.IsError():
			out = append(out, ast.SyntaxError{Pos: pos(n), Message: fmt.Sprintf("Syntax error, unexpected %s", snippet(n.Utf8Text(src)))})
			return
		}
		if !n.HasError() {
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil {
				visit(c)
			}
		}
	}
	visit(root)
	return out
}

func snippet(text string) string {
	text, _, _ = strings.Cut(strings.TrimSpace(text), "\n")
	if text == "" {
		return "end of file"
	}
	if len(text) > 30 {
		text = text[:30] + "..."
	}
	return "'" + text + "'"
}

// typeHint parses a native type declaration in the current namespace.
func (l *lowerer) typeHint(n *sitter.Node) *ast.TypeHint {
	if n == nil {
		return nil
	}
	text := l.compactText(n)
	t, err := types.ParseTypeString(text, l.names.Resolver())
	if err != nil || t == nil {
		t = types.Unknown()
	}
	return &ast.TypeHint{Pos: pos(n), Text: text, Type: t}
}

// parseDoc converts a doc comment into resolved types. Types that mention a template
// parameter of the declaration or its class are dropped: generics are not modelled.
func (l *lowerer) parseDoc(text string) *ast.Doc {
	if text == "" {
		return nil
	}
	b := phpdoc.Parse(text)
	templates := append(append([]string(nil), l.classTemplates...), b.Templates...)
	parse := func(s string) *types.Type {
		if s == "" || mentions(s, templates) {
			return nil
		}
		t, err := types.ParseTypeString(s, l.names.Resolver())
		if err != nil {
			return nil
		}
		return t
	}

	d := &ast.Doc{Text: text, Deprecated: b.Deprecated, Return: parse(b.Return)}
	for name, typ := range b.Params {
		if t := parse(typ); t != nil {
			if d.Params == nil {
				d.Params = make(map[string]*types.Type)
			}
			d.Params[name] = t
		}
	}
	if len(b.Vars) > 0 {
		d.Var = parse(b.Vars[0].Type)
		d.VarName = b.Vars[0].Name
	}
	for _, p := range b.Properties {
		d.Properties = append(d.Properties, ast.DocProperty{
			Name:      p.Name,
			Type:      parse(p.Type),
			ReadOnly:  p.Access == phpdoc.ReadOnly,
			WriteOnly: p.Access == phpdoc.WriteOnly,
		})
	}
	for _, m := range b.Methods {
		d.Methods = append(d.Methods, ast.DocMethod{Name: m.Name, Return: parse(m.ReturnType), Static: m.Static})
	}
	return d
}

// mentions reports whether type expression s uses one of names as an identifier.
func mentions(s string, names []string) bool {
	if len(names) == 0 {
		return false
	}
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !(r == '_' || r == '\\' || unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	for _, w := range words {
		for _, n := range names {
			if w == n {
				return true
			}
		}
	}
	return false
}

func (l *lowerer) className(n *sitter.Node) *ast.Name {
	text := l.compactText(n)
	return &ast.Name{Text: text, Resolved: l.names.ResolveClass(text)}
}

func (l *lowerer) functionName(text string) *ast.Name {
	resolved, fallback := l.names.ResolveFunction(text)
	return &ast.Name{Text: text, Resolved: resolved, Fallback: fallback}
}

func (l *lowerer) constantName(text string) *ast.Name {
	resolved, fallback := l.names.ResolveConstant(text)
	return &ast.Name{Text: text, Resolved: resolved, Fallback: fallback}
}

// isNameNode reports node kinds that spell a class, function or constant name.
func isNameNode(n *sitter.Node) bool {
	switch n.Kind() {
	case "name", "qualified_name", "relative_name", "relative_scope", "named_type", "reserved_identifier":
		return true
	}
	return false
}

// classRef lowers a class position: a name when static, an expression otherwise.
func (l *lowerer) classRef(n *sitter.Node) (*ast.Name, ast.Expr) {
	if n == nil {
		return nil, nil
	}
	if isNameNode(n) {
		return l.className(n), nil
	}
	return nil, l.expr(n)
}

// clauseNames resolves the class names listed by an extends, implements or trait use
// clause.
func (l *lowerer) clauseNames(n *sitter.Node) []string {
	var out []string
	for _, c := range named(n) {
		if isNameNode(c) {
			out = append(out, l.names.ResolveClass(l.compactText(c)))
		}
	}
	return out
}
