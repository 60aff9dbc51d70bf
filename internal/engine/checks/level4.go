package checks

import (
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/scope"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

func levelFour() []Check {
	return []Check{
		&flowCheck{meta: meta{"deadCode.unreachable", "Statements after code that always terminates", 4}, start: visitFunc(unreachable), dead: true},
		&flowCheck{meta: meta{"function.resultUnused", "Pure builtin functions called as statements", 4}, start: visitFunc(resultUnused)},
		&flowCheck{meta: meta{"condition.alwaysFalse", "Conditions and comparisons that can never hold", 4}, start: visitFunc(alwaysFalse)},
		&flowCheck{meta: meta{"binaryOp.invalid", "Arithmetic and bitwise operators on arrays, objects or a literal zero divisor", 4}, start: visitFunc(invalidBinaryOp)},
		&syntaxCheck{meta: meta{"property.onlyWritten", "Private properties that are written but never read", 4}, run: onlyWritten},
	}
}

func unreachable(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	s, ok := n.(ast.Stmt)
	if !ok || !sc.Terminated() {
		return
	}
	switch s.(type) {
	case *ast.BreakStmt, *ast.InlineHTMLStmt, *ast.UnknownStmt:
		return
	}
	r.errorf(s, "Unreachable statement - code above always terminates.")
}

func resultUnused(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	s, ok := n.(*ast.ExprStmt)
	if !ok {
		return
	}
	c, ok := s.X.(*ast.Call)
	if !ok {
		return
	}
	f, ok := sc.FunctionForCall(c)
	if ok && f.Builtin && symbols.IsPureFunction(f.Name) {
		r.errorf(c, "Call to function %s() on a separate line has no effect.", f.Name)
	}
}

// literalBool recognises true and false written as literals or constants.
func literalBool(e ast.Expr) (value, ok bool) {
	switch e := e.(type) {
	case *ast.BoolLit:
		return e.Value, true
	case *ast.ConstFetch:
		if e.Name == nil {
			return false, false
		}
		name := e.Name.Resolved
		if e.Name.Fallback != "" {
			name = e.Name.Fallback
		}
		switch strings.ToLower(name) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func isNull(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.NullLit:
		return true
	case *ast.ConstFetch:
		return e.Name != nil && (strings.EqualFold(e.Name.Resolved, "null") || strings.EqualFold(e.Name.Fallback, "null"))
	}
	return false
}

func isFalse(e ast.Expr) bool {
	v, ok := literalBool(e)
	return ok && !v
}

func alwaysFalse(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	switch n := n.(type) {
	case *ast.IfStmt:
		if isFalse(n.Cond) {
			r.errorf(n, "If condition is always false.")
		}
	case *ast.ElseIf:
		if isFalse(n.Cond) {
			r.errorf(n, "Elseif condition is always false.")
		}
	case *ast.WhileStmt:
		if isFalse(n.Cond) {
			r.errorf(n, "While loop condition is always false.")
		}
	case *ast.Unary:
		if v, ok := literalBool(n.X); n.Op == "!" && ok && v {
			r.errorf(n, "Negated boolean expression is always false.")
		}
	case *ast.Binary:
		if n.Op != "===" {
			return
		}
		var other ast.Expr
		switch {
		case isNull(n.R) && !isNull(n.L):
			other = n.L
		case isNull(n.L) && !isNull(n.R):
			other = n.R
		default:
			return
		}
		t := sc.TypeOf(other)
		if t.IsMixed() || t.Kind() == types.KindNever || types.IsNullable(t) {
			return
		}
		l, rt := sc.TypeOf(n.L), sc.TypeOf(n.R)
		r.errorf(n, "Strict comparison using === between %s and %s will always evaluate to false.", l, rt)
	}
}

// serializers read every property of an object.
var serializers = map[string]bool{
	"get_object_vars": true, "serialize": true, "var_export": true, "var_dump": true,
	"print_r": true, "json_encode": true, "iterator_to_array": true, "array_walk": true,
}

// escapesProperties reports code in a class that can read properties without naming
// them: dynamic fetches, serializers, array casts and iteration over $this.
func escapesProperties(d *ast.ClassDecl) bool {
	for _, m := range d.Methods {
		switch strings.ToLower(m.Name) {
		case "__get", "__serialize", "__sleep", "__debuginfo", "jsonserialize", "__tostring":
			return true
		}
	}
	escaped := false
	ast.Inspect(d, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.PropertyFetch:
			if n.Property == "" {
				escaped = true
			}
		case *ast.Cast:
			if n.To == "array" {
				escaped = true
			}
		case *ast.ForeachStmt:
			if v, ok := n.Subject.(*ast.Variable); ok && v.Name == "this" {
				escaped = true
			}
		case *ast.Call:
			name := n.FuncName()
			if n.Name != nil && n.Name.Fallback != "" {
				name = strings.ToLower(n.Name.Fallback)
			}
			if serializers[name] || n.Name == nil {
				escaped = true
			}
		case *ast.New:
			if n.Class != nil && strings.HasPrefix(strings.ToLower(n.Class.Resolved), "reflection") {
				escaped = true
			}
		}
		return !escaped
	})
	return escaped
}

func onlyWritten(file *ast.File, r *reporter) {
	ast.InspectStmts(file.Stmts, func(n ast.Node) bool {
		d, ok := n.(*ast.ClassDecl)
		if !ok || d.Kind != ast.KindClass || len(d.Traits) > 0 {
			return true
		}
		checkOnlyWritten(d, r)
		return true
	})
}

type propertyUse struct {
	node    ast.Node
	written bool
	read    bool
}

func checkOnlyWritten(d *ast.ClassDecl, r *reporter) {
	props := make(map[string]*propertyUse)
	var order []string
	track := func(name string, node ast.Node, written bool) {
		props[name] = &propertyUse{node: node, written: written}
		order = append(order, name)
	}
	for _, p := range d.Properties {
		if p.Visibility != ast.Private || p.Static || (p.Doc != nil && strings.Contains(p.Doc.Text, "@ORM")) {
			continue
		}
		track(p.Name, p, false)
	}
	for _, m := range d.Methods {
		if !strings.EqualFold(m.Name, "__construct") {
			continue
		}
		for _, p := range m.Params {
			if ast.ParseVisibility(p.Promoted) == ast.Private && p.Promoted != "" {
				track(p.Name, p, true)
			}
		}
	}
	if len(props) == 0 || escapesProperties(d) {
		return
	}

	writes := make(map[*ast.PropertyFetch]bool)
	for _, m := range d.Methods {
		ast.InspectStmts(m.Body, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.Assign:
				if f, ok := n.Target.(*ast.PropertyFetch); ok && n.Op == "" && !n.ByRef {
					writes[f] = true
					if u := props[f.Property]; u != nil {
						u.written = true
					}
				}
			case *ast.PropertyFetch:
				if u := props[n.Property]; u != nil && !writes[n] {
					u.read = true
				}
			}
			return true
		})
	}
	class := d.Name
	if class == "" {
		class = "class@anonymous"
	}
	for _, name := range order {
		if u := props[name]; u.written && !u.read {
			r.errorf(u.node, "Property %s::$%s is never read, only written.", class, name)
		}
	}
}

var arithmeticOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"&": true, "|": true, "^": true, "<<": true, ">>": true,
}

// overloadsOperators lists the classes whose instances take part in arithmetic.
var overloadsOperators = map[string]bool{"gmp": true, `bcmath\number`: true, `ffi\cdata`: true}

func invalidBinaryOp(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	b, ok := n.(*ast.Binary)
	if !ok || !arithmeticOps[b.Op] {
		return
	}
	l, rt := sc.TypeOf(b.L), sc.TypeOf(b.R)
	const msg = "Binary operation \"%s\" between %s and %s results in an error."
	if zero, ok := rt.IntValue(); ok && zero == 0 && (b.Op == "/" || b.Op == "%") {
		r.errorf(b, msg, b.Op, l, rt)
		return
	}
	// array + array is a union.
	union := b.Op == "+"
	confidence := operandFails(l, union && mayBeArray(rt), sc).Or(operandFails(rt, union && mayBeArray(l), sc))
	r.report(confidence, b, msg, b.Op, l, rt)
}

func mayBeArray(t *types.Type) bool {
	for _, m := range t.Members() {
		switch m.Kind() {
		case types.KindArray, types.KindIterable, types.KindMixed:
			return true
		}
	}
	return false
}

// operandFails is Yes when every variant of t makes an arithmetic operator throw and
// Maybe when some do.
func operandFails(t *types.Type, arraysAllowed bool, sc *scope.Scope) types.Trinary {
	members := t.Members()
	failing := 0
	for _, m := range members {
		switch m.Kind() {
		case types.KindArray:
			if !arraysAllowed {
				failing++
			}
		case types.KindClass:
			if plainObject(m.ClassName(), sc) {
				failing++
			}
		}
	}
	switch {
	case failing == 0:
		return types.No
	case failing == len(members):
		return types.Yes
	}
	return types.Maybe
}

// plainObject reports a class or enum whose whole hierarchy is known and free of
// operator overloading.
func plainObject(name string, sc *scope.Scope) bool {
	c, ok := sc.Table.Class(name)
	if !ok || (c.Kind != symbols.KindClass && c.Kind != symbols.KindEnum) || sc.Table.HasUnknownAncestor(name) {
		return false
	}
	for _, a := range append([]string{c.Name}, sc.Table.Ancestors(name)...) {
		if overloadsOperators[strings.ToLower(a)] {
			return false
		}
	}
	return true
}
