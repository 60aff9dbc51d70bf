package checks

import (
	"fmt"
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/scope"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

func levelZero() []Check {
	return []Check{
		&flowCheck{meta: meta{"function.notFound", "Calls to functions that are not declared anywhere", 0}, start: functionNotFound},
		&flowCheck{meta: meta{"class.notFound", "References to classes that are not declared anywhere", 0}, start: classNotFound},
		&flowCheck{meta: meta{"class.nameCase", "Class references whose case differs from the declaration", 0}, start: visitFunc(classNameCase)},
		&flowCheck{meta: meta{"staticMethod.notFound", "Static calls to methods missing from a fully known hierarchy", 0}, start: visitFunc(staticMethodNotFound)},
		&flowCheck{meta: meta{"staticProperty.notFound", "Static property fetches missing from a fully known hierarchy", 0}, start: visitFunc(staticPropertyNotFound)},
		&flowCheck{meta: meta{"constant.notFound", "Global constants that are not defined anywhere", 0}, start: constantNotFound},
		&flowCheck{meta: meta{"classConstant.notFound", "Class constants missing from a fully known hierarchy", 0}, start: visitFunc(classConstantNotFound)},
		&flowCheck{meta: meta{"arguments.count", "Argument counts of functions, constructors, static calls and $this calls", 0}, start: visitFunc(argumentsCount)},
		&flowCheck{meta: meta{"return.missing", "Functions with a return type whose body can end without returning", 0}, start: visitFunc(returnMissing)},
		&flowCheck{meta: meta{"new.static", "new static() outside a class or in an unsafe class", 0}, start: visitFunc(newStatic)},
	}
}

// existenceGuards collects the literal names passed to function_exists() and similar
// guards anywhere in file. Code guarded that way may use a symbol declared elsewhere.
func existenceGuards(file *ast.File, funcs ...string) map[string]bool {
	want := make(map[string]bool, len(funcs))
	for _, p := range funcs {
		want[p] = true
	}
	out := make(map[string]bool)
	ast.InspectStmts(file.Stmts, func(n ast.Node) bool {
		c, ok := n.(*ast.Call)
		if !ok || c.Name == nil || len(c.Args) == 0 {
			return true
		}
		name := c.FuncName()
		if c.Name.Fallback != "" {
			name = strings.ToLower(c.Name.Fallback)
		}
		if !want[name] {
			return true
		}
		if s, ok := c.Args[0].Value.(*ast.StringLit); ok && !s.Interpolated {
			out[strings.ToLower(strings.TrimPrefix(s.Value, `\`))] = true
		}
		return true
	})
	return out
}

func guarded(guards map[string]bool, names ...string) bool {
	for _, n := range names {
		if n != "" && guards[strings.ToLower(n)] {
			return true
		}
	}
	return false
}

func functionNotFound(r *reporter) (scope.Visitor, func()) {
	guards := existenceGuards(r.file, "function_exists", "is_callable")
	return func(n ast.Node, sc *scope.Scope, _ scope.Access) {
		c, ok := n.(*ast.Call)
		if !ok || c.Name == nil {
			return
		}
		if _, ok := sc.FunctionForCall(c); ok || guarded(guards, c.Name.Resolved, c.Name.Fallback) {
			return
		}
		r.errorf(c, "Function %s not found.", calledName(c.Name))
	}, nil
}

func classNotFound(r *reporter) (scope.Visitor, func()) {
	guards := existenceGuards(r.file, "class_exists", "interface_exists", "trait_exists", "enum_exists")
	missing := func(name *ast.Name) (string, bool) {
		if name == nil || name.Special() != "" || name.Resolved == "" {
			return "", false
		}
		if r.ctx.Table.HasClass(name.Resolved) || guarded(guards, name.Resolved) {
			return "", false
		}
		return name.Resolved, true
	}
	missingName := func(name string) bool {
		return name != "" && !r.ctx.Table.HasClass(name) && !guarded(guards, name)
	}
	return func(n ast.Node, sc *scope.Scope, _ scope.Access) {
		switch n := n.(type) {
		case *ast.New:
			if name, ok := missing(n.Class); ok {
				r.errorf(n, "Instantiated class %s not found.", name)
			}
		case *ast.StaticCall:
			if name, ok := missing(n.Class); ok {
				if n.Method == "" {
					r.errorf(n, "Call to static method on an unknown class %s.", name)
				} else {
					r.errorf(n, "Call to static method %s() on an unknown class %s.", n.Method, name)
				}
			}
		case *ast.StaticPropertyFetch:
			if name, ok := missing(n.Class); ok {
				r.errorf(n, "Access to static property $%s on an unknown class %s.", n.Property, name)
			}
		case *ast.ClassConstFetch:
			if strings.EqualFold(n.Const, "class") {
				return
			}
			if name, ok := missing(n.Class); ok {
				r.errorf(n, "Access to constant %s on an unknown class %s.", n.Const, name)
			}
		case *ast.Instanceof:
			if name, ok := missing(n.Class); ok {
				r.errorf(n, "Class %s not found.", name)
			}
		case *ast.CatchClause:
			for _, t := range n.Types {
				if missingName(t) {
					r.errorf(n, "Caught class %s not found.", t)
				}
			}
		case *ast.ClassDecl:
			self := n.Name
			if missingName(n.Parent) {
				r.errorf(n, "Class %s extends unknown class %s.", self, n.Parent)
			}
			for _, i := range n.Interfaces {
				if !missingName(i) {
					continue
				}
				if n.Kind == ast.KindInterface {
					r.errorf(n, "Interface %s extends unknown interface %s.", self, i)
				} else {
					r.errorf(n, "%s %s implements unknown interface %s.", titleKind(n.Kind), self, i)
				}
			}
			for _, t := range n.Traits {
				if missingName(t) {
					r.errorf(n, "%s %s uses unknown trait %s.", titleKind(n.Kind), self, t)
				}
			}
		}
	}, nil
}

func titleKind(k ast.ClassKind) string {
	s := k.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

func staticMethodNotFound(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	c, ok := n.(*ast.StaticCall)
	if !ok || c.Method == "" {
		return
	}
	class, ok := sc.ClassName(c.Class)
	if !ok || !sc.Table.HasClass(class) {
		return
	}
	if _, l := sc.Table.FindMethod(class, c.Method); l == symbols.Missing {
		r.errorf(c, "Call to an undefined static method %s::%s().", className(sc, class), c.Method)
	}
}

func staticPropertyNotFound(n ast.Node, sc *scope.Scope, acc scope.Access, r *reporter) {
	p, ok := n.(*ast.StaticPropertyFetch)
	if !ok || p.Property == "" || acc == scope.Guarded {
		return
	}
	class, ok := sc.ClassName(p.Class)
	if !ok || !sc.Table.HasClass(class) {
		return
	}
	if _, l := sc.Table.FindProperty(class, p.Property); l == symbols.Missing {
		r.errorf(p, "Access to an undefined static property %s::$%s.", className(sc, class), p.Property)
	}
}

func classNameCase(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	written := func(names ...string) {
		for _, w := range names {
			if w == "" {
				continue
			}
			if c, ok := sc.Table.Class(w); ok && c.Name != w {
				r.errorf(n, "Class %s referenced with incorrect case: %s.", c.Name, w)
			}
		}
	}
	name := func(nm *ast.Name) {
		if nm != nil && nm.Special() == "" {
			written(nm.Resolved)
		}
	}
	switch n := n.(type) {
	case *ast.New:
		name(n.Class)
	case *ast.StaticCall:
		name(n.Class)
	case *ast.StaticPropertyFetch:
		name(n.Class)
	case *ast.ClassConstFetch:
		name(n.Class)
	case *ast.Instanceof:
		name(n.Class)
	case *ast.CatchClause:
		written(n.Types...)
	case *ast.ClassDecl:
		written(n.Parent)
		written(n.Interfaces...)
		written(n.Traits...)
	}
}

// className prints a class with its declared casing.
func className(sc *scope.Scope, name string) string {
	if c, ok := sc.Table.Class(name); ok {
		return c.Name
	}
	return name
}

func constantNotFound(r *reporter) (scope.Visitor, func()) {
	guards := existenceGuards(r.file, "defined")
	return func(n ast.Node, sc *scope.Scope, _ scope.Access) {
		c, ok := n.(*ast.ConstFetch)
		if !ok || c.Name == nil {
			return
		}
		for _, name := range []string{c.Name.Resolved, c.Name.Fallback} {
			switch strings.ToLower(name) {
			case "true", "false", "null":
				return
			}
		}
		if _, ok := sc.Table.ResolveConstant(c.Name.Resolved, c.Name.Fallback); ok || guarded(guards, c.Name.Resolved, c.Name.Fallback) {
			return
		}
		r.errorf(c, "Constant %s not found.", calledName(c.Name))
	}, nil
}

func classConstantNotFound(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	c, ok := n.(*ast.ClassConstFetch)
	if !ok || c.Const == "" || strings.EqualFold(c.Const, "class") {
		return
	}
	class, ok := sc.ClassName(c.Class)
	if !ok || !sc.Table.HasClass(class) {
		return
	}
	if _, l := sc.Table.FindConstant(class, c.Const); l == symbols.Missing {
		r.errorf(c, "Access to undefined constant %s::%s.", className(sc, class), c.Const)
	}
}

func argumentsCount(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	var site callSite
	var ok bool
	switch n := n.(type) {
	case *ast.Call:
		site, ok = functionSite(n, sc)
	case *ast.StaticCall:
		site, ok = staticSite(n, sc)
	case *ast.MethodCall:
		if isThisCall(n) {
			site, ok = methodSite(n, sc)
		}
	case *ast.New:
		site, ok = constructorSite(n, sc)
		if !ok {
			noConstructor(n, sc, r)
			return
		}
	}
	if !ok {
		return
	}
	if msg, bad := countProblem(site); bad {
		r.errorf(n, "%s", msg)
	}
}

func noConstructor(n *ast.New, sc *scope.Scope, r *reporter) {
	if len(n.Args) == 0 {
		return
	}
	class, ok := sc.ClassName(n.Class)
	if !ok || !sc.Table.HasClass(class) {
		return
	}
	if _, l := sc.Table.FindMethod(class, "__construct"); l == symbols.Missing {
		r.errorf(n, "Class %s does not have a constructor and must be instantiated without any parameters.", className(sc, class))
	}
}

// describeFunction names the function being analysed for messages.
func describeFunction(sc *scope.Scope) string {
	fn := sc.Function
	switch {
	case fn == nil:
		return "Script"
	case fn.Closure:
		return "Anonymous function"
	}
	if _, ok := fn.Decl.(*ast.MethodDecl); ok {
		class := "class@anonymous"
		if sc.Class != nil && sc.Class.Name != "" {
			class = sc.Class.Name
		}
		return fmt.Sprintf("Method %s::%s()", class, fn.Name)
	}
	return fmt.Sprintf("Function %s()", fn.Name)
}

// isGenerator reports a yield in body outside nested functions.
func isGenerator(body []ast.Stmt) bool {
	found := false
	ast.InspectStmts(body, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.FunctionDecl, *ast.ClassDecl, *ast.Closure, *ast.ArrowFunc:
			return false
		case *ast.Yield:
			found = true
		}
		return !found
	})
	return found
}

func returnMissing(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	var body []ast.Stmt
	switch d := n.(type) {
	case *ast.FunctionDecl:
		body = d.Body
	case *ast.MethodDecl:
		if !d.HasBody {
			return
		}
		body = d.Body
	case *ast.Closure:
		body = d.Body
	default:
		return
	}
	if sc.Function == nil || sc.Function.Decl != n {
		return
	}
	rt := r.ctx.returnType(&sc.Function.Signature)
	if rt == nil {
		return
	}
	switch rt.Kind() {
	case types.KindVoid, types.KindNever:
		return
	}
	if isGenerator(body) || ast.Terminates(body) {
		return
	}
	r.errorf(n, "%s should return %s but return statement is missing.", describeFunction(sc), rt)
}

func newStatic(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	e, ok := n.(*ast.New)
	if !ok || e.Class.Special() != "static" {
		return
	}
	if sc.Class == nil {
		r.errorf(e, "Using static outside of class scope.")
		return
	}
	info := sc.Class.Info
	if info == nil || info.Final || info.Kind != ast.KindClass {
		return
	}
	ctor, l := sc.Table.FindMethod(info.Name, "__construct")
	if l != symbols.Declared || ctor.Final || ctor.Abstract {
		return
	}
	if decl, ok := sc.Table.Class(ctor.Class); ok && decl.Kind == ast.KindInterface {
		return
	}
	r.errorTip(e, "Make the class or its constructor final.", "Unsafe usage of new static().")
}
