package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"strata/internal/engine/ast"
	"strata/internal/engine/phpdoc"
)

func lowerFunction(l *lowerer, n *sitter.Node) []ast.Stmt {
	d := &ast.FunctionDecl{
		Pos:        pos(n),
		Name:       l.names.Qualify(l.text(field(n, "name"))),
		Params:     l.params(field(n, "parameters")),
		ReturnType: l.typeHint(field(n, "return_type")),
		ByRef:      childOfKind(n, "reference_modifier") != nil,
		Doc:        l.parseDoc(l.takeDoc()),
	}
	d.Body = l.body(field(n, "body"))
	return []ast.Stmt{d}
}

func lowerClassLike(kind ast.ClassKind) stmtHandler {
	return func(l *lowerer, n *sitter.Node) []ast.Stmt {
		return []ast.Stmt{l.classDecl(n, kind, l.takeDoc())}
	}
}

// classDecl lowers a named class-like declaration or an anonymous class. For
// anonymous classes n is the node holding the clauses and the declaration list.
func (l *lowerer) classDecl(n *sitter.Node, kind ast.ClassKind, docText string) *ast.ClassDecl {
	d := &ast.ClassDecl{Pos: pos(n), Kind: kind}
	if name := field(n, "name"); name != nil {
		d.Name = l.names.Qualify(l.text(name))
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "abstract_modifier":
			d.Abstract = true
		case "final_modifier":
			d.Final = true
		case "readonly_modifier":
			d.Readonly = true
		case "base_clause":
			names := l.clauseNames(c)
			if kind == ast.KindInterface {
				d.Interfaces = append(d.Interfaces, names...)
			} else if len(names) > 0 {
				d.Parent = names[0]
			}
		case "class_interface_clause":
			d.Interfaces = append(d.Interfaces, l.clauseNames(c)...)
		case "primitive_type", "named_type":
			if kind == ast.KindEnum {
				d.BackingType = l.typeHint(c)
			}
		}
	}

	saved := l.classTemplates
	if docText != "" {
		l.classTemplates = phpdoc.Parse(docText).Templates
	} else {
		l.classTemplates = nil
	}
	d.Doc = l.parseDoc(docText)
	body := field(n, "body")
	if body == nil {
		body = childOfKind(n, "declaration_list", "enum_declaration_list")
	}
	l.members(d, body)
	l.classTemplates = saved
	return d
}

func (l *lowerer) members(d *ast.ClassDecl, body *sitter.Node) {
	doc := ""
	for _, m := range namedWithComments(body) {
		switch m.Kind() {
		case "comment":
			if t := l.text(m); phpdoc.IsDocComment(t) {
				doc = t
			}
			continue
		case "method_declaration":
			d.Methods = append(d.Methods, l.method(m, doc))
		case "property_declaration":
			d.Properties = append(d.Properties, l.properties(m, doc)...)
		case "const_declaration":
			d.Constants = append(d.Constants, l.classConstants(m)...)
		case "use_declaration":
			d.Traits = append(d.Traits, l.clauseNames(m)...)
		case "enum_case":
			c := &ast.EnumCase{Pos: pos(m), Name: l.text(field(m, "name"))}
			if v := field(m, "value"); v != nil {
				c.Value = l.expr(v)
			}
			if c.Name == "" {
				c.Name = l.text(firstNamed(m))
			}
			d.Cases = append(d.Cases, c)
		}
		doc = ""
	}
}

// modifiers of a member declaration.
type modifiers struct {
	visibility ast.Visibility
	static     bool
	abstract   bool
	final      bool
	readonly   bool
}

func (l *lowerer) modifiers(n *sitter.Node) modifiers {
	var m modifiers
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "visibility_modifier":
			m.visibility = visibility(l.text(c))
		case "static_modifier":
			m.static = true
		case "abstract_modifier":
			m.abstract = true
		case "final_modifier":
			m.final = true
		case "readonly_modifier":
			m.readonly = true
		}
	}
	return m
}

func visibility(text string) ast.Visibility {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "private":
		return ast.Private
	case "protected":
		return ast.Protected
	}
	return ast.Public
}

func (l *lowerer) method(n *sitter.Node, doc string) *ast.MethodDecl {
	mods := l.modifiers(n)
	m := &ast.MethodDecl{
		Pos:        pos(n),
		Name:       l.text(field(n, "name")),
		Params:     l.params(field(n, "parameters")),
		ReturnType: l.typeHint(field(n, "return_type")),
		ByRef:      childOfKind(n, "reference_modifier") != nil,
		Visibility: mods.visibility,
		Static:     mods.static,
		Abstract:   mods.abstract,
		Final:      mods.final,
		Doc:        l.parseDoc(doc),
	}
	if body := field(n, "body"); body != nil {
		m.HasBody = true
		m.Body = l.body(body)
	}
	return m
}

func (l *lowerer) properties(n *sitter.Node, doc string) []*ast.PropertyDecl {
	mods := l.modifiers(n)
	typ := l.typeHint(field(n, "type"))
	parsed := l.parseDoc(doc)
	var out []*ast.PropertyDecl
	for _, c := range named(n) {
		if c.Kind() != "property_element" {
			continue
		}
		name := field(c, "name")
		if name == nil {
			name = childOfKind(c, "variable_name")
		}
		p := &ast.PropertyDecl{
			Pos:        pos(c),
			Name:       varName(l.text(name)),
			Type:       typ,
			Visibility: mods.visibility,
			Static:     mods.static,
			Readonly:   mods.readonly,
			Doc:        parsed,
		}
		if v := field(c, "default_value"); v != nil {
			p.Default = l.expr(v)
		} else if init := childOfKind(c, "property_initializer"); init != nil {
			p.Default = l.expr(firstNamed(init))
		} else if kids := named(c); len(kids) > 1 && kids[len(kids)-1].Kind() != "property_hook_list" {
			p.Default = l.expr(kids[len(kids)-1])
		}
		out = append(out, p)
	}
	return out
}

func (l *lowerer) classConstants(n *sitter.Node) []*ast.ClassConstDecl {
	mods := l.modifiers(n)
	var out []*ast.ClassConstDecl
	for _, c := range named(n) {
		if c.Kind() != "const_element" {
			continue
		}
		kids := named(c)
		if len(kids) < 2 {
			continue
		}
		out = append(out, &ast.ClassConstDecl{
			Pos:        pos(c),
			Name:       l.text(kids[0]),
			Value:      l.expr(kids[len(kids)-1]),
			Visibility: mods.visibility,
			Final:      mods.final,
		})
	}
	return out
}

func (l *lowerer) params(n *sitter.Node) []*ast.Param {
	var out []*ast.Param
	for _, c := range named(n) {
		switch c.Kind() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
		default:
			continue
		}
		p := &ast.Param{
			Pos:      pos(c),
			Type:     l.typeHint(field(c, "type")),
			Variadic: c.Kind() == "variadic_parameter" || hasToken(c, "..."),
			ByRef:    childOfKind(c, "reference_modifier") != nil,
		}
		name := field(c, "name")
		if name != nil && name.Kind() == "by_ref" {
			p.ByRef = true
			name = firstNamed(name)
		}
		if name == nil {
			name = childOfKind(c, "variable_name")
		}
		p.Name = varName(l.text(name))
		if v := field(c, "default_value"); v != nil {
			p.Default = l.expr(v)
		}
		if c.Kind() == "property_promotion_parameter" {
			p.Promoted = "public"
			if v := childOfKind(c, "visibility_modifier"); v != nil {
				p.Promoted = visibility(l.text(v)).String()
			}
			p.Readonly = childOfKind(c, "readonly_modifier") != nil
		}
		out = append(out, p)
	}
	return out
}
