package checks

import (
	"strata/internal/engine/ast"
	"strata/internal/engine/scope"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

func levelThree() []Check {
	return []Check{
		&flowCheck{meta: meta{"return.type", "Returned values must be accepted by the declared return type", 3}, start: returnType},
		&flowCheck{meta: meta{"property.type", "Assigned values must be accepted by the property type", 3}, start: visitFunc(propertyType)},
	}
}

// lateStatic binds static and $this in t to the class being analysed.
func lateStatic(t *types.Type, sc *scope.Scope) *types.Type {
	switch {
	case sc.Class == nil || sc.Class.Name == "":
		return t
	case sc.Class.Trait:
		return types.Substitute(t, types.Object())
	}
	return types.Substitute(t, types.ClassType(sc.Class.Name))
}

func returnType(r *reporter) (scope.Visitor, func()) {
	generators := make(map[ast.Node]bool)
	generator := func(decl ast.Node) bool {
		if g, ok := generators[decl]; ok {
			return g
		}
		var body []ast.Stmt
		switch d := decl.(type) {
		case *ast.FunctionDecl:
			body = d.Body
		case *ast.MethodDecl:
			body = d.Body
		case *ast.Closure:
			body = d.Body
		}
		generators[decl] = isGenerator(body)
		return generators[decl]
	}
	return func(n ast.Node, sc *scope.Scope, _ scope.Access) {
		ret, ok := n.(*ast.ReturnStmt)
		if !ok || sc.Function == nil || sc.Function.Arrow {
			return
		}
		rt := r.ctx.returnType(&sc.Function.Signature)
		if rt == nil || generator(sc.Function.Decl) {
			return
		}
		rt = lateStatic(rt, sc)
		who := describeFunction(sc)
		switch {
		case rt.Kind() == types.KindVoid:
			if ret.Result != nil {
				r.errorf(ret, "%s with return type void returns %s but should not return anything.", who, sc.TypeOf(ret.Result))
			}
		case rt.Kind() == types.KindNever:
			r.errorf(ret, "%s should never return but return statement found.", who)
		case ret.Result == nil:
			r.errorf(ret, "%s should return %s but empty return statement found.", who, rt)
		default:
			actual := sc.TypeOf(ret.Result)
			if actual.IsMixed() {
				return
			}
			r.report(r.ctx.accepts(r.file, rt, actual).Not(), ret, "%s should return %s but returns %s.", who, rt, actual)
		}
	}, nil
}

func propertyType(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	a, ok := n.(*ast.Assign)
	if !ok || a.Op != "" || a.ByRef {
		return
	}
	var (
		class string
		name  string
	)
	switch t := a.Target.(type) {
	case *ast.PropertyFetch:
		class, name = sc.ReceiverClass(t.Receiver, t.NullSafe), t.Property
	case *ast.StaticPropertyFetch:
		class, _ = sc.ClassName(t.Class)
		name = t.Property
	default:
		return
	}
	if class == "" || name == "" {
		return
	}
	p, l := sc.Table.FindProperty(class, name)
	if l != symbols.Declared || p == nil {
		return
	}
	declared := r.ctx.propertyType(p)
	if declared == nil {
		return
	}
	declared = types.Substitute(declared, types.ClassType(class))
	actual := sc.TypeOf(a.Value)
	if actual.IsMixed() {
		return
	}
	r.report(r.ctx.accepts(r.file, declared, actual).Not(), a, "Property %s::$%s (%s) does not accept %s.", p.Class, p.Name, declared, actual)
}
