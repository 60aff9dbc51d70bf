package parser

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"strata/internal/engine/ast"
)

func init() {
	exprHandlers = map[string]exprHandler{
		"parenthesized_expression":          func(l *lowerer, n *sitter.Node) ast.Expr { return l.expr(firstNamed(n)) },
		"variable_name":                     lowerVariable,
		"dynamic_variable_name":             lowerDynamicVariable,
		"name":                              lowerConstFetch,
		"qualified_name":                    lowerConstFetch,
		"relative_name":                     lowerConstFetch,
		"integer":                           lowerInteger,
		"float":                             lowerFloat,
		"boolean":                           lowerBool,
		"null":                              func(l *lowerer, n *sitter.Node) ast.Expr { return &ast.NullLit{Pos: pos(n)} },
		"string":                            lowerString,
		"encapsed_string":                   lowerInterpolated,
		"heredoc":                           lowerInterpolated,
		"shell_command_expression":          lowerInterpolated,
		"nowdoc":                            lowerNowdoc,
		"assignment_expression":             lowerAssign,
		"reference_assignment_expression":   lowerAssign,
		"augmented_assignment_expression":   lowerAssign,
		"binary_expression":                 lowerBinary,
		"instanceof_expression":             lowerInstanceof,
		"unary_op_expression":               lowerUnary,
		"error_suppression_expression":      lowerUnary,
		"update_expression":                 lowerIncDec,
		"cast_expression":                   lowerCast,
		"conditional_expression":            lowerTernary,
		"function_call_expression":          lowerCall,
		"member_call_expression":            lowerMethodCall,
		"nullsafe_member_call_expression":   lowerMethodCall,
		"member_access_expression":          lowerPropertyFetch,
		"nullsafe_member_access_expression": lowerPropertyFetch,
		"scoped_call_expression":            lowerStaticCall,
		"scoped_property_access_expression": lowerStaticProperty,
		"class_constant_access_expression":  lowerClassConst,
		"object_creation_expression":        lowerNew,
		"array_creation_expression":         lowerArray,
		"list_literal":                      lowerArray,
		"subscript_expression":              lowerIndex,
		"anonymous_function":                lowerClosure,
		"anonymous_function_creation_expression": lowerClosure,
		"arrow_function":                    lowerArrow,
		"match_expression":                  lowerMatch,
		"clone_expression":                  func(l *lowerer, n *sitter.Node) ast.Expr { return &ast.Clone{Pos: pos(n), X: l.expr(lastNamed(n))} },
		"print_intrinsic":                   func(l *lowerer, n *sitter.Node) ast.Expr { return &ast.Print{Pos: pos(n), X: l.expr(lastNamed(n))} },
		"include_expression":                lowerInclude,
		"include_once_expression":           lowerInclude,
		"require_expression":                lowerInclude,
		"require_once_expression":           lowerInclude,
		"yield_expression":                  lowerYield,
		"throw_expression":                  func(l *lowerer, n *sitter.Node) ast.Expr { return &ast.Throw{Pos: pos(n), X: l.expr(lastNamed(n))} },
		"exit_expression":                   lowerExit,
		"by_ref":                            func(l *lowerer, n *sitter.Node) ast.Expr { return l.expr(firstNamed(n)) },
	}
}

// expr lowers an expression node. Constructs without a model become ast.Unknown,
// which every consumer treats as carrying no information.
func (l *lowerer) expr(n *sitter.Node) ast.Expr {
	if n == nil {
		return nil
	}
	if h, ok := exprHandlers[n.Kind()]; ok {
		return h(l, n)
	}
	return &ast.Unknown{Pos: pos(n), Kind: n.Kind()}
}

// exprList flattens comma sequences, as found in echo and for headers.
func (l *lowerer) exprList(n *sitter.Node) []ast.Expr {
	if n.Kind() != "sequence_expression" {
		return []ast.Expr{l.expr(n)}
	}
	var out []ast.Expr
	for _, c := range named(n) {
		out = append(out, l.exprList(c)...)
	}
	return out
}

func lowerVariable(l *lowerer, n *sitter.Node) ast.Expr {
	return &ast.Variable{Pos: pos(n), Name: varName(l.text(n))}
}

func lowerDynamicVariable(l *lowerer, n *sitter.Node) ast.Expr {
	return &ast.DynamicVariable{Pos: pos(n), Name: l.expr(firstNamed(n))}
}

var magicConstants = map[string]bool{
	"__LINE__": true, "__FILE__": true, "__DIR__": true, "__FUNCTION__": true, "__CLASS__": true,
	"__TRAIT__": true, "__METHOD__": true, "__NAMESPACE__": true, "__PROPERTY__": true,
}

func lowerConstFetch(l *lowerer, n *sitter.Node) ast.Expr {
	text := l.compactText(n)
	if upper := strings.ToUpper(text); magicConstants[upper] {
		return &ast.MagicConst{Pos: pos(n), Name: upper}
	}
	switch strings.ToLower(text) {
	case "true", "false":
		return &ast.BoolLit{Pos: pos(n), Value: strings.EqualFold(text, "true")}
	case "null":
		return &ast.NullLit{Pos: pos(n)}
	}
	return &ast.ConstFetch{Pos: pos(n), Name: l.constantName(text)}
}

func lowerInteger(l *lowerer, n *sitter.Node) ast.Expr {
	text := strings.ReplaceAll(l.text(n), "_", "")
	if v, err := strconv.ParseInt(text, 0, 64); err == nil {
		return &ast.IntLit{Pos: pos(n), Value: v}
	}
	// Integer literals beyond int64 are floats at runtime.
	f, _ := strconv.ParseFloat(text, 64)
	return &ast.FloatLit{Pos: pos(n), Value: f}
}

func lowerFloat(l *lowerer, n *sitter.Node) ast.Expr {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(l.text(n), "_", ""), 64)
	return &ast.FloatLit{Pos: pos(n), Value: f}
}

func lowerBool(l *lowerer, n *sitter.Node) ast.Expr {
	return &ast.BoolLit{Pos: pos(n), Value: strings.EqualFold(strings.TrimSpace(l.text(n)), "true")}
}

func lowerString(l *lowerer, n *sitter.Node) ast.Expr {
	text := l.text(n)
	text = strings.TrimPrefix(strings.TrimPrefix(text, "b"), "B")
	if len(text) >= 2 && text[0] == '\'' {
		text = text[1 : len(text)-1]
		text = strings.NewReplacer(`\\`, `\`, `\'`, `'`).Replace(text)
	} else if len(text) >= 2 && text[0] == '"' {
		return lowerInterpolated(l, n)
	}
	return &ast.StringLit{Pos: pos(n), Value: text}
}

var doubleQuoted = strings.NewReplacer(
	`\n`, "\n", `\t`, "\t", `\r`, "\r", `\v`, "\v", `\f`, "\f", `\e`, "\x1b",
	`\\`, `\`, `\$`, `$`, `\"`, `"`, `\0`, "\x00",
)

// stringPieces are the node kinds holding literal text inside interpolated strings.
var stringPieces = map[string]bool{
	"string_content": true, "string_value": true, "escape_sequence": true, "heredoc_start": true,
	"heredoc_end": true, "nowdoc_string": true, "text": true,
}

// lowerInterpolated keeps the embedded expressions of a double-quoted string, heredoc
// or shell command. A string without any is a plain literal.
func lowerInterpolated(l *lowerer, n *sitter.Node) ast.Expr {
	s := &ast.StringLit{Pos: pos(n)}
	var literal strings.Builder
	var visit func(c *sitter.Node)
	visit = func(c *sitter.Node) {
		for _, k := range named(c) {
			switch {
			case stringPieces[k.Kind()]:
				if k.Kind() != "heredoc_start" && k.Kind() != "heredoc_end" {
					literal.WriteString(l.text(k))
				}
			case k.Kind() == "heredoc_body":
				visit(k)
			default:
				s.Interpolated = true
				s.Parts = append(s.Parts, l.expr(k))
			}
		}
	}
	visit(n)
	if n.Kind() == "shell_command_expression" {
		s.Interpolated = true
	}
	if !s.Interpolated {
		s.Value = doubleQuoted.Replace(literal.String())
	}
	return s
}

func lowerNowdoc(l *lowerer, n *sitter.Node) ast.Expr {
	body := childOfKind(n, "nowdoc_body")
	return &ast.StringLit{Pos: pos(n), Value: strings.TrimSpace(l.text(body))}
}

func lowerAssign(l *lowerer, n *sitter.Node) ast.Expr {
	a := &ast.Assign{
		Pos:    pos(n),
		Target: l.expr(field(n, "left")),
		Value:  l.expr(field(n, "right")),
		ByRef:  n.Kind() == "reference_assignment_expression",
	}
	if n.Kind() == "augmented_assignment_expression" {
		op := l.text(field(n, "operator"))
		if op == "" {
			for i := uint(0); i < n.ChildCount(); i++ {
				if c := n.Child(i); c != nil && !c.IsNamed() {
					op = c.Kind()
					break
				}
			}
		}
		a.Op = strings.TrimSuffix(op, "=")
	}
	if a.Target == nil || a.Value == nil {
		if kids := named(n); len(kids) >= 2 {
			a.Target, a.Value = l.expr(kids[0]), l.expr(kids[len(kids)-1])
		}
	}
	return a
}

func lowerBinary(l *lowerer, n *sitter.Node) ast.Expr {
	op := strings.ToLower(l.text(field(n, "operator")))
	if op == "instanceof" {
		return lowerInstanceof(l, n)
	}
	return &ast.Binary{Pos: pos(n), Op: op, L: l.expr(field(n, "left")), R: l.expr(field(n, "right"))}
}

func lowerInstanceof(l *lowerer, n *sitter.Node) ast.Expr {
	left, right := field(n, "left"), field(n, "right")
	if left == nil || right == nil {
		kids := named(n)
		if len(kids) < 2 {
			return &ast.Unknown{Pos: pos(n), Kind: n.Kind()}
		}
		left, right = kids[0], kids[len(kids)-1]
	}
	e := &ast.Instanceof{Pos: pos(n), X: l.expr(left)}
	e.Class, e.ClassExpr = l.classRef(right)
	return e
}

func lowerUnary(l *lowerer, n *sitter.Node) ast.Expr {
	op := l.text(field(n, "operator"))
	if op == "" {
		for i := uint(0); i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil && !c.IsNamed() {
				op = c.Kind()
				break
			}
		}
	}
	x := field(n, "argument")
	if x == nil {
		x = lastNamed(n)
	}
	return &ast.Unary{Pos: pos(n), Op: op, X: l.expr(x)}
}

func lowerIncDec(l *lowerer, n *sitter.Node) ast.Expr {
	e := &ast.IncDec{Pos: pos(n), Inc: strings.Contains(l.text(n), "++")}
	if first := n.Child(0); first != nil && !first.IsNamed() {
		e.Prefix = true
	}
	x := field(n, "argument")
	if x == nil {
		x = firstNamed(n)
	}
	e.X = l.expr(x)
	return e
}

func lowerCast(l *lowerer, n *sitter.Node) ast.Expr {
	to := strings.ToLower(l.compactText(field(n, "type")))
	to = strings.Trim(to, "()")
	switch to {
	case "integer":
		to = "int"
	case "boolean":
		to = "bool"
	case "double", "real":
		to = "float"
	case "binary":
		to = "string"
	}
	x := field(n, "value")
	if x == nil {
		x = lastNamed(n)
	}
	return &ast.Cast{Pos: pos(n), To: to, X: l.expr(x)}
}

func lowerTernary(l *lowerer, n *sitter.Node) ast.Expr {
	t := &ast.Ternary{Pos: pos(n), Cond: l.expr(field(n, "condition")), Else: l.expr(field(n, "alternative"))}
	if body := field(n, "body"); body != nil {
		t.Then = l.expr(body)
	}
	return t
}

// args lowers an argument list. ok is false for the first-class callable syntax
// `f(...)`, which creates a closure instead of calling.
func (l *lowerer) args(n *sitter.Node) (out []*ast.Arg, ok bool) {
	for _, c := range named(n) {
		switch c.Kind() {
		case "variadic_placeholder":
			return nil, false
		case "argument":
			a := &ast.Arg{Pos: pos(c)}
			nameNode := field(c, "name")
			if nameNode != nil {
				a.Name = l.text(nameNode)
			}
			var value *sitter.Node
			for _, k := range named(c) {
				if !sameNode(k, nameNode) && k.Kind() != "reference_modifier" {
					value = k
				}
			}
			if value != nil && value.Kind() == "variadic_unpacking" {
				a.Spread = true
				value = firstNamed(value)
			}
			if hasToken(c, "...") {
				a.Spread = true
			}
			a.Value = l.expr(value)
			out = append(out, a)
		case "variadic_unpacking":
			out = append(out, &ast.Arg{Pos: pos(c), Value: l.expr(firstNamed(c)), Spread: true})
		default:
			out = append(out, &ast.Arg{Pos: pos(c), Value: l.expr(c)})
		}
	}
	return out, true
}

func argValues(args []*ast.Arg) []ast.Expr {
	out := make([]ast.Expr, 0, len(args))
	for _, a := range args {
		out = append(out, a.Value)
	}
	return out
}

func lowerCall(l *lowerer, n *sitter.Node) ast.Expr {
	fn := field(n, "function")
	args, ok := l.args(field(n, "arguments"))
	if !ok {
		return &ast.Unknown{Pos: pos(n), Kind: "first_class_callable"}
	}
	if fn == nil || !isNameNode(fn) {
		return &ast.Call{Pos: pos(n), Func: l.expr(fn), Args: args}
	}
	text := l.compactText(fn)
	switch strings.ToLower(text) {
	case "isset":
		return &ast.Isset{Pos: pos(n), Args: argValues(args)}
	case "empty":
		if len(args) == 1 {
			return &ast.Empty{Pos: pos(n), X: args[0].Value}
		}
	case "exit", "die":
		e := &ast.Exit{Pos: pos(n)}
		if len(args) > 0 {
			e.X = args[0].Value
		}
		return e
	}
	return &ast.Call{Pos: pos(n), Name: l.functionName(text), Args: args}
}

func lowerExit(l *lowerer, n *sitter.Node) ast.Expr {
	e := &ast.Exit{Pos: pos(n)}
	if x := firstNamed(n); x != nil {
		if x.Kind() == "arguments" {
			if args, _ := l.args(x); len(args) > 0 {
				e.X = args[0].Value
			}
		} else {
			e.X = l.expr(x)
		}
	}
	return e
}

// memberName returns a static member name, or the expression of a dynamic one.
func (l *lowerer) memberName(n *sitter.Node) (string, ast.Expr) {
	if n == nil {
		return "", nil
	}
	switch n.Kind() {
	case "name", "reserved_identifier":
		return l.text(n), nil
	}
	return "", l.expr(n)
}

func lowerMethodCall(l *lowerer, n *sitter.Node) ast.Expr {
	args, ok := l.args(field(n, "arguments"))
	if !ok {
		return &ast.Unknown{Pos: pos(n), Kind: "first_class_callable"}
	}
	c := &ast.MethodCall{
		Pos:      pos(n),
		Receiver: l.expr(field(n, "object")),
		Args:     args,
		NullSafe: n.Kind() == "nullsafe_member_call_expression",
	}
	c.Method, c.MethodExpr = l.memberName(field(n, "name"))
	return c
}

func lowerPropertyFetch(l *lowerer, n *sitter.Node) ast.Expr {
	f := &ast.PropertyFetch{
		Pos:      pos(n),
		Receiver: l.expr(field(n, "object")),
		NullSafe: n.Kind() == "nullsafe_member_access_expression",
	}
	f.Property, f.PropertyExpr = l.memberName(field(n, "name"))
	return f
}

func lowerStaticCall(l *lowerer, n *sitter.Node) ast.Expr {
	args, ok := l.args(field(n, "arguments"))
	if !ok {
		return &ast.Unknown{Pos: pos(n), Kind: "first_class_callable"}
	}
	c := &ast.StaticCall{Pos: pos(n), Args: args}
	c.Class, c.ClassExpr = l.classRef(field(n, "scope"))
	c.Method, c.MethodExpr = l.memberName(field(n, "name"))
	return c
}

func lowerStaticProperty(l *lowerer, n *sitter.Node) ast.Expr {
	f := &ast.StaticPropertyFetch{Pos: pos(n)}
	f.Class, f.ClassExpr = l.classRef(field(n, "scope"))
	if name := field(n, "name"); name != nil && name.Kind() == "variable_name" {
		f.Property = varName(l.text(name))
	}
	return f
}

func lowerClassConst(l *lowerer, n *sitter.Node) ast.Expr {
	kids := named(n)
	if len(kids) < 2 {
		return &ast.Unknown{Pos: pos(n), Kind: n.Kind()}
	}
	c := &ast.ClassConstFetch{Pos: pos(n)}
	c.Class, c.ClassExpr = l.classRef(kids[0])
	if last := kids[len(kids)-1]; last.Kind() == "name" || last.Kind() == "reserved_identifier" {
		c.Const = l.text(last)
	}
	return c
}

func lowerNew(l *lowerer, n *sitter.Node) ast.Expr {
	e := &ast.New{Pos: pos(n)}
	for _, c := range named(n) {
		switch c.Kind() {
		case "arguments":
			e.Args, _ = l.args(c)
		case "anonymous_class":
			e.Anonymous = l.classDecl(c, ast.KindClass, "")
			e.Args, _ = l.args(childOfKind(c, "arguments"))
		case "declaration_list":
			e.Anonymous = l.classDecl(n, ast.KindClass, "")
		case "base_clause", "class_interface_clause", "attribute_list":
		default:
			if e.Class == nil && e.ClassExpr == nil {
				e.Class, e.ClassExpr = l.classRef(c)
			}
		}
	}
	return e
}

func lowerArray(l *lowerer, n *sitter.Node) ast.Expr {
	a := &ast.ArrayLit{Pos: pos(n), List: n.Kind() == "list_literal"}
	for _, c := range named(n) {
		if c.Kind() != "array_element_initializer" {
			a.Items = append(a.Items, &ast.ArrayItem{Pos: pos(c), Value: l.expr(c)})
			continue
		}
		item := &ast.ArrayItem{Pos: pos(c), ByRef: hasToken(c, "&"), Spread: hasToken(c, "...")}
		kids := named(c)
		if len(kids) == 0 {
			continue
		}
		value := kids[len(kids)-1]
		if hasToken(c, "=>") && len(kids) >= 2 {
			item.Key = l.expr(kids[0])
		}
		switch value.Kind() {
		case "by_ref":
			item.ByRef = true
			value = firstNamed(value)
		case "variadic_unpacking":
			item.Spread = true
			value = firstNamed(value)
		}
		item.Value = l.expr(value)
		a.Items = append(a.Items, item)
	}
	return a
}

func lowerIndex(l *lowerer, n *sitter.Node) ast.Expr {
	kids := named(n)
	if len(kids) == 0 {
		return &ast.Unknown{Pos: pos(n), Kind: n.Kind()}
	}
	e := &ast.Index{Pos: pos(n), X: l.expr(kids[0])}
	if len(kids) > 1 {
		e.Index = l.expr(kids[1])
	}
	return e
}

func lowerClosure(l *lowerer, n *sitter.Node) ast.Expr {
	c := &ast.Closure{
		Pos:        pos(n),
		Params:     l.params(field(n, "parameters")),
		ReturnType: l.typeHint(field(n, "return_type")),
		Static:     childOfKind(n, "static_modifier") != nil,
		ByRef:      childOfKind(n, "reference_modifier") != nil,
	}
	if uses := childOfKind(n, "anonymous_function_use_clause"); uses != nil {
		for _, u := range named(uses) {
			use := ast.ClosureUse{Pos: pos(u)}
			if u.Kind() == "by_ref" {
				use.ByRef = true
				u = firstNamed(u)
			}
			use.Name = varName(l.text(u))
			c.Uses = append(c.Uses, use)
		}
	}
	c.Body = l.body(field(n, "body"))
	return c
}

func lowerArrow(l *lowerer, n *sitter.Node) ast.Expr {
	return &ast.ArrowFunc{
		Pos:        pos(n),
		Params:     l.params(field(n, "parameters")),
		ReturnType: l.typeHint(field(n, "return_type")),
		Body:       l.expr(field(n, "body")),
		Static:     childOfKind(n, "static_modifier") != nil,
	}
}

func lowerMatch(l *lowerer, n *sitter.Node) ast.Expr {
	m := &ast.Match{Pos: pos(n), Subject: l.expr(field(n, "condition"))}
	block := field(n, "body")
	if block == nil {
		block = childOfKind(n, "match_block")
	}
	for _, arm := range named(block) {
		body := field(arm, "return_expression")
		if body == nil {
			body = lastNamed(arm)
		}
		a := &ast.MatchArm{Pos: pos(arm), Body: l.expr(body)}
		if arm.Kind() == "match_conditional_expression" {
			conds := field(arm, "conditional_expressions")
			if conds == nil {
				conds = childOfKind(arm, "match_condition_list")
			}
			for _, c := range named(conds) {
				a.Conds = append(a.Conds, l.expr(c))
			}
		}
		m.Arms = append(m.Arms, a)
	}
	return m
}

func lowerInclude(l *lowerer, n *sitter.Node) ast.Expr {
	return &ast.Include{Pos: pos(n), Kind: strings.TrimSuffix(n.Kind(), "_expression"), X: l.expr(lastNamed(n))}
}

func lowerYield(l *lowerer, n *sitter.Node) ast.Expr {
	y := &ast.Yield{Pos: pos(n), From: hasToken(n, "from")}
	x := firstNamed(n)
	if x == nil {
		return y
	}
	if x.Kind() == "array_element_initializer" {
		kids := named(x)
		if len(kids) >= 2 {
			y.Key = l.expr(kids[0])
		}
		if len(kids) > 0 {
			y.Value = l.expr(kids[len(kids)-1])
		}
		return y
	}
	y.Value = l.expr(x)
	return y
}
