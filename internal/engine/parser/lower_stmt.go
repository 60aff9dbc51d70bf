package parser

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"strata/internal/engine/ast"
	"strata/internal/engine/phpdoc"
	"strata/internal/engine/symbols"
)

func init() {
	stmtHandlers = map[string]stmtHandler{
		"expression_statement":        lowerExpressionStmt,
		"compound_statement":          lowerBlock,
		"echo_statement":              lowerEcho,
		"return_statement":            lowerReturn,
		"if_statement":                lowerIf,
		"while_statement":             lowerWhile,
		"do_statement":                lowerDoWhile,
		"for_statement":               lowerFor,
		"foreach_statement":           lowerForeach,
		"switch_statement":            lowerSwitch,
		"try_statement":               lowerTry,
		"break_statement":             lowerBreak,
		"continue_statement":          lowerContinue,
		"global_declaration":          lowerGlobal,
		"function_static_declaration": lowerStaticVars,
		"unset_statement":             lowerUnset,
		"declare_statement":           lowerDeclare,
		"const_declaration":           lowerConst,
		"function_definition":         lowerFunction,
		"class_declaration":           lowerClassLike(ast.KindClass),
		"interface_declaration":       lowerClassLike(ast.KindInterface),
		"trait_declaration":           lowerClassLike(ast.KindTrait),
		"enum_declaration":            lowerClassLike(ast.KindEnum),
		"namespace_use_declaration":   lowerUse,
		"text_interpolation":          lowerInlineHTML,
		"text":                        lowerInlineHTML,
		"exit_statement":              lowerExitStmt,
		"empty_statement":             skip,
		"php_tag":                     skip,
	}
}

func skip(*lowerer, *sitter.Node) []ast.Stmt { return nil }

// program lowers the root node into the file's statement list.
func (l *lowerer) program(root *sitter.Node) {
	l.file.Stmts = l.stmts(namedWithComments(root))
}

// stmts lowers a statement list. Doc comments attach to the statement that follows
// them. An unbraced namespace declaration owns the statements up to the next one.
func (l *lowerer) stmts(nodes []*sitter.Node) []ast.Stmt {
	var out []ast.Stmt
	doc := ""
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		switch n.Kind() {
		case "comment":
			if t := l.text(n); phpdoc.IsDocComment(t) {
				doc = t
			}
			continue
		case "namespace_definition":
			ns := &ast.NamespaceStmt{Pos: pos(n), Name: l.compactText(field(n, "name"))}
			l.names = symbols.NewNameContext(ns.Name)
			if body := field(n, "body"); body != nil {
				ns.Stmts = l.stmts(namedWithComments(body))
				l.names = symbols.NewNameContext("")
			} else {
				j := i + 1
				for j < len(nodes) && nodes[j].Kind() != "namespace_definition" {
					j++
				}
				ns.Stmts = l.stmts(nodes[i+1 : j])
				i = j - 1
			}
			out = append(out, ns)
			doc = ""
			continue
		}
		l.doc = doc
		out = append(out, l.stmt(n)...)
		l.doc, doc = "", ""
	}
	return out
}

func (l *lowerer) stmt(n *sitter.Node) []ast.Stmt {
	if h, ok := stmtHandlers[n.Kind()]; ok {
		return h(l, n)
	}
	if _, ok := exprHandlers[n.Kind()]; ok {
		return []ast.Stmt{&ast.ExprStmt{Pos: pos(n), X: l.expr(n)}}
	}
	return []ast.Stmt{&ast.UnknownStmt{Pos: pos(n), Kind: n.Kind()}}
}

// body lowers the body of a control structure: a block, a colon block or a single
// statement.
func (l *lowerer) body(n *sitter.Node) []ast.Stmt {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "compound_statement", "colon_block":
		return l.stmts(namedWithComments(n))
	}
	return l.stmt(n)
}

// bodyOf finds the body of a loop whether or not the grammar labels it.
func (l *lowerer) bodyOf(n *sitter.Node) []ast.Stmt {
	if b := field(n, "body"); b != nil {
		return l.body(b)
	}
	if b := childOfKind(n, "colon_block", "compound_statement"); b != nil {
		return l.body(b)
	}
	return nil
}

func lowerExpressionStmt(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.ExprStmt{Pos: pos(n), X: l.expr(firstNamed(n))}
	if doc := l.parseDoc(l.takeDoc()); doc != nil && doc.Var != nil {
		s.Doc = doc
	}
	return []ast.Stmt{s}
}

func lowerBlock(l *lowerer, n *sitter.Node) []ast.Stmt {
	return []ast.Stmt{&ast.BlockStmt{Pos: pos(n), Stmts: l.stmts(namedWithComments(n))}}
}

func lowerEcho(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.EchoStmt{Pos: pos(n)}
	for _, c := range named(n) {
		s.Args = append(s.Args, l.exprList(c)...)
	}
	return []ast.Stmt{s}
}

func lowerReturn(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.ReturnStmt{Pos: pos(n)}
	if x := firstNamed(n); x != nil {
		s.Result = l.expr(x)
	}
	return []ast.Stmt{s}
}

func lowerIf(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.IfStmt{Pos: pos(n), Cond: l.expr(field(n, "condition"))}
	if b := field(n, "body"); b != nil {
		s.Then = l.body(b)
	} else {
		s.Then = l.body(childOfKind(n, "colon_block", "compound_statement"))
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		alt := n.Child(i)
		if alt == nil {
			continue
		}
		switch alt.Kind() {
		case "else_if_clause":
			s.ElseIfs = append(s.ElseIfs, &ast.ElseIf{
				Pos:  pos(alt),
				Cond: l.expr(field(alt, "condition")),
				Body: l.bodyOf(alt),
			})
		case "else_clause":
			s.HasElse = true
			if b := field(alt, "body"); b != nil {
				s.Else = l.body(b)
			} else {
				s.Else = l.stmts(namedWithComments(alt))
			}
		}
	}
	return []ast.Stmt{s}
}

func lowerWhile(l *lowerer, n *sitter.Node) []ast.Stmt {
	return []ast.Stmt{&ast.WhileStmt{Pos: pos(n), Cond: l.expr(field(n, "condition")), Body: l.bodyOf(n)}}
}

func lowerDoWhile(l *lowerer, n *sitter.Node) []ast.Stmt {
	return []ast.Stmt{&ast.DoWhileStmt{Pos: pos(n), Body: l.bodyOf(n), Cond: l.expr(field(n, "condition"))}}
}

// lowerFor splits the header on its separators instead of relying on field names,
// which differ between grammar releases.
func lowerFor(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.ForStmt{Pos: pos(n)}
	segment, header := 0, false
	var body []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.Kind() == "comment" {
			continue
		}
		if !c.IsNamed() {
			switch c.Kind() {
			case "(":
				if segment == 0 {
					header = true
				}
			case ";":
				if header {
					segment++
				}
			case ")":
				if header {
					header, segment = false, 3
				}
			}
			continue
		}
		if !header {
			body = append(body, c)
			continue
		}
		exprs := l.exprList(c)
		switch segment {
		case 0:
			s.Init = append(s.Init, exprs...)
		case 1:
			s.Cond = append(s.Cond, exprs...)
		default:
			s.Step = append(s.Step, exprs...)
		}
	}
	if len(body) == 1 {
		s.Body = l.body(body[0])
	} else {
		s.Body = l.stmts(body)
	}
	return []ast.Stmt{s}
}

func lowerForeach(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.ForeachStmt{Pos: pos(n)}
	phase := 0
	var body []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.Kind() == "comment" {
			continue
		}
		if !c.IsNamed() {
			switch strings.ToLower(c.Kind()) {
			case "as":
				phase = 1
			case "=>":
				if phase == 1 {
					s.Key, s.Value, s.ByRef = s.Value, nil, false
				}
			case ")":
				if phase == 1 {
					phase = 2
				}
			}
			continue
		}
		switch phase {
		case 0:
			s.Subject = l.expr(c)
		case 1:
			if c.Kind() == "pair" {
				kids := named(c)
				if len(kids) == 2 {
					s.Key = l.expr(kids[0])
					l.foreachValue(s, kids[1])
				}
				continue
			}
			l.foreachValue(s, c)
		default:
			body = append(body, c)
		}
	}
	if len(body) == 1 {
		s.Body = l.body(body[0])
	} else {
		s.Body = l.stmts(body)
	}
	return []ast.Stmt{s}
}

func (l *lowerer) foreachValue(s *ast.ForeachStmt, n *sitter.Node) {
	if n.Kind() == "by_ref" {
		s.ByRef = true
		n = firstNamed(n)
	}
	s.Value = l.expr(n)
}

func lowerSwitch(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.SwitchStmt{Pos: pos(n), Subject: l.expr(field(n, "condition"))}
	block := field(n, "body")
	if block == nil {
		block = childOfKind(n, "switch_block")
	}
	for _, c := range named(block) {
		switch c.Kind() {
		case "case_statement":
			value := field(c, "value")
			if value == nil {
				value = firstNamed(c)
			}
			var rest []*sitter.Node
			for _, k := range namedWithComments(c) {
				if !sameNode(k, value) {
					rest = append(rest, k)
				}
			}
			s.Cases = append(s.Cases, &ast.CaseClause{Pos: pos(c), Test: l.expr(value), Body: l.stmts(rest)})
		case "default_statement":
			s.Cases = append(s.Cases, &ast.CaseClause{Pos: pos(c), Body: l.stmts(namedWithComments(c))})
		}
	}
	return []ast.Stmt{s}
}

func lowerTry(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.TryStmt{Pos: pos(n), Body: l.body(field(n, "body"))}
	for _, c := range named(n) {
		switch c.Kind() {
		case "catch_clause":
			cc := &ast.CatchClause{Pos: pos(c), Body: l.body(field(c, "body"))}
			if typ := field(c, "type"); typ != nil {
				list := []*sitter.Node{typ}
				if typ.Kind() == "type_list" {
					list = named(typ)
				}
				for _, t := range list {
					cc.Types = append(cc.Types, l.names.ResolveClass(l.compactText(t)))
				}
			}
			if v := field(c, "name"); v != nil {
				cc.Var = varName(l.text(v))
			}
			s.Catches = append(s.Catches, cc)
		case "finally_clause":
			s.HasFinally = true
			s.Finally = l.body(field(c, "body"))
		}
	}
	return []ast.Stmt{s}
}

func levels(l *lowerer, n *sitter.Node) int {
	if x := firstNamed(n); x != nil {
		if v, err := strconv.Atoi(strings.TrimSpace(l.text(x))); err == nil {
			return v
		}
	}
	return 1
}

func lowerBreak(l *lowerer, n *sitter.Node) []ast.Stmt {
	return []ast.Stmt{&ast.BreakStmt{Pos: pos(n), Levels: levels(l, n)}}
}

func lowerContinue(l *lowerer, n *sitter.Node) []ast.Stmt {
	return []ast.Stmt{&ast.ContinueStmt{Pos: pos(n), Levels: levels(l, n)}}
}

func lowerGlobal(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.GlobalStmt{Pos: pos(n)}
	for _, c := range named(n) {
		if c.Kind() == "variable_name" {
			s.Names = append(s.Names, varName(l.text(c)))
		}
	}
	return []ast.Stmt{s}
}

func lowerStaticVars(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.StaticVarStmt{Pos: pos(n)}
	for _, c := range named(n) {
		if c.Kind() != "static_variable_declaration" {
			continue
		}
		name := field(c, "name")
		if name == nil {
			name = firstNamed(c)
		}
		v := ast.StaticVar{Name: varName(l.text(name))}
		if init := field(c, "value"); init != nil {
			v.Init = l.expr(init)
		} else if kids := named(c); len(kids) > 1 {
			v.Init = l.expr(kids[len(kids)-1])
		}
		s.Vars = append(s.Vars, v)
	}
	return []ast.Stmt{s}
}

func lowerUnset(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.UnsetStmt{Pos: pos(n)}
	for _, c := range named(n) {
		s.Args = append(s.Args, l.expr(c))
	}
	return []ast.Stmt{s}
}

func lowerDeclare(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.DeclareStmt{Pos: pos(n), Directives: make(map[string]ast.Expr)}
	var body []*sitter.Node
	for _, c := range namedWithComments(n) {
		if c.Kind() != "declare_directive" {
			body = append(body, c)
			continue
		}
		name := ""
		for i := uint(0); i < c.ChildCount(); i++ {
			if k := c.Child(i); k != nil && !k.IsNamed() && k.Kind() != "=" {
				name = strings.ToLower(l.text(k))
				break
			}
		}
		value := l.expr(lastNamed(c))
		s.Directives[name] = value
		if lit, ok := value.(*ast.IntLit); ok && name == "strict_types" && lit.Value == 1 {
			l.file.StrictTypes = true
		}
	}
	if len(body) == 1 {
		s.Body = l.body(body[0])
	} else {
		s.Body = l.stmts(body)
	}
	return []ast.Stmt{s}
}

func lowerConst(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.ConstStmt{Pos: pos(n)}
	for _, c := range named(n) {
		if c.Kind() != "const_element" {
			continue
		}
		kids := named(c)
		if len(kids) < 2 {
			continue
		}
		s.Items = append(s.Items, ast.ConstItem{
			Pos:   pos(c),
			Name:  l.names.Qualify(l.text(kids[0])),
			Value: l.expr(kids[len(kids)-1]),
		})
	}
	return []ast.Stmt{s}
}

func lowerUse(l *lowerer, n *sitter.Node) []ast.Stmt {
	s := &ast.UseStmt{Pos: pos(n)}
	kind := useKind(l, n, ast.UseClass)
	prefix := ""
	for _, c := range named(n) {
		switch c.Kind() {
		case "namespace_name":
			prefix = l.compactText(c)
		case "namespace_use_clause":
			s.Items = append(s.Items, l.useClause(c, "", kind))
		case "namespace_use_group":
			for _, g := range named(c) {
				s.Items = append(s.Items, l.useClause(g, prefix, kind))
			}
		}
	}
	for _, item := range s.Items {
		l.names.AddUse(item)
	}
	return []ast.Stmt{s}
}

// useKind reads a function or const keyword among the direct children of n.
func useKind(l *lowerer, n *sitter.Node, def ast.UseKind) ast.UseKind {
	if t := field(n, "type"); t != nil {
		switch strings.ToLower(l.text(t)) {
		case "function":
			return ast.UseFunction
		case "const":
			return ast.UseConst
		}
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.IsNamed() {
			continue
		}
		switch strings.ToLower(c.Kind()) {
		case "function":
			return ast.UseFunction
		case "const":
			return ast.UseConst
		}
	}
	return def
}

func (l *lowerer) useClause(n *sitter.Node, prefix string, kind ast.UseKind) ast.UseItem {
	item := ast.UseItem{Pos: pos(n), Kind: useKind(l, n, kind)}
	var alias *sitter.Node
	if a := field(n, "alias"); a != nil {
		alias = a
	} else if a := childOfKind(n, "namespace_aliasing_clause"); a != nil {
		alias = lastNamed(a)
	}
	for _, c := range named(n) {
		if sameNode(c, alias) || c.Kind() == "namespace_aliasing_clause" {
			continue
		}
		if isNameNode(c) || c.Kind() == "namespace_name" {
			item.Name = strings.TrimPrefix(l.compactText(c), `\`)
			break
		}
	}
	if prefix != "" {
		item.Name = strings.Trim(prefix, `\`) + `\` + item.Name
	}
	if alias != nil {
		item.Alias = l.text(alias)
	}
	return item
}

func lowerInlineHTML(l *lowerer, n *sitter.Node) []ast.Stmt {
	text := l.text(n)
	if n.Kind() == "text_interpolation" {
		text = ""
		for _, c := range named(n) {
			if c.Kind() == "text" {
				text += l.text(c)
			}
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []ast.Stmt{&ast.InlineHTMLStmt{Pos: pos(n)}}
}

func lowerExitStmt(l *lowerer, n *sitter.Node) []ast.Stmt {
	return []ast.Stmt{&ast.ExprStmt{Pos: pos(n), X: lowerExit(l, n)}}
}
