package checks

import (
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/scope"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

func levelTwo() []Check {
	return []Check{
		&flowCheck{meta: meta{"method.notFound", "Instance calls on a resolved class that lacks the method", 2}, start: visitFunc(methodNotFound)},
		&flowCheck{meta: meta{"property.notFound", "Property fetches on a resolved class that lacks the property", 2}, start: visitFunc(propertyNotFound)},
		&flowCheck{meta: meta{"method.argumentCount", "Argument counts of resolved instance calls", 2}, start: visitFunc(methodArgumentCount)},
		&syntaxCheck{meta: meta{"void.pure", "Void functions whose body has no effect", 2}, run: voidPure},
	}
}

// singleClass is the class of a receiver typed as exactly one class once null is
// stripped, or "".
func singleClass(e ast.Expr, sc *scope.Scope) string {
	return types.RemoveNull(sc.TypeOf(e)).ClassName()
}

func methodNotFound(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	c, ok := n.(*ast.MethodCall)
	if !ok || c.Method == "" {
		return
	}
	class := singleClass(c.Receiver, sc)
	if class == "" {
		return
	}
	if _, l := sc.Table.FindMethod(class, c.Method); l == symbols.Missing {
		r.errorf(c, "Call to an undefined method %s::%s().", className(sc, class), c.Method)
	}
}

func propertyNotFound(n ast.Node, sc *scope.Scope, acc scope.Access, r *reporter) {
	p, ok := n.(*ast.PropertyFetch)
	if !ok || p.Property == "" || acc == scope.Guarded {
		return
	}
	class := singleClass(p.Receiver, sc)
	if class == "" {
		return
	}
	if _, l := sc.Table.FindProperty(class, p.Property); l == symbols.Missing {
		r.errorf(p, "Access to an undefined property %s::$%s.", className(sc, class), p.Property)
	}
}

func methodArgumentCount(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	c, ok := n.(*ast.MethodCall)
	if !ok || isThisCall(c) {
		return
	}
	site, ok := methodSite(c, sc)
	if !ok {
		return
	}
	if msg, bad := countProblem(site); bad {
		r.errorf(c, "%s", msg)
	}
}

const voidPureTip = "Either change the return type or add side effects (assignments, function calls, echo, etc.)"

// voidPure reports void functions, and methods nothing can override, whose non-empty
// body evaluates only side-effect free expressions.
func voidPure(file *ast.File, r *reporter) {
	declarations(file, func(f *ast.FunctionDecl) {
		if isVoid(f.ReturnType) && pureBody(f.Body) {
			r.errorTip(f, voidPureTip, "Function %s() returns void but does not have any side effects.", f.Name)
		}
	}, func(d *ast.ClassDecl) {
		for _, m := range d.Methods {
			if !m.HasBody || !isVoid(m.ReturnType) || !pureBody(m.Body) {
				continue
			}
			sealed := m.Visibility == ast.Private || m.Final || d.Final || d.Kind == ast.KindEnum
			if !sealed || d.Kind == ast.KindTrait || inherited(r.ctx.Table, d, m.Name, "") {
				continue
			}
			r.errorTip(m, voidPureTip, "Method %s::%s() returns void but does not have any side effects.", declName(d), m.Name)
		}
	})
}

func isVoid(h *ast.TypeHint) bool {
	return h != nil && strings.EqualFold(strings.TrimSpace(h.Text), "void")
}

func pureBody(body []ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	for _, s := range body {
		switch s := s.(type) {
		case *ast.ReturnStmt:
			if s.Result != nil {
				return false
			}
		case *ast.ExprStmt:
			if !sideEffectFree(s.X) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// sideEffectFree accepts literals, plain variables and strict or logical operators over
// them. Anything that may call code, write or throw is rejected.
func sideEffectFree(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.BoolLit, *ast.NullLit, *ast.Variable:
		return true
	case *ast.StringLit:
		return !e.Interpolated
	case *ast.Unary:
		return e.Op == "!" && sideEffectFree(e.X)
	case *ast.Binary:
		switch e.Op {
		case "===", "!==", "&&", "||", "and", "or", "xor":
			return sideEffectFree(e.L) && sideEffectFree(e.R)
		}
	}
	return false
}
