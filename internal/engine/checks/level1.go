package checks

import (
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/scope"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

func levelOne() []Check {
	return []Check{
		&flowCheck{meta: meta{"variable.undefined", "Variables read where they are never or only possibly defined", 1}, start: visitFunc(variableUndefined)},
		&flowCheck{meta: meta{"method.magic", "Methods reachable only through __call or __callStatic", 1}, start: visitFunc(magicMethod)},
		&flowCheck{meta: meta{"property.magic", "Properties reachable only through __get, __set or __isset", 1}, start: visitFunc(magicProperty)},
		&syntaxCheck{meta: meta{"constructor.unusedParameter", "Constructor parameters that are never read", 1}, run: unusedConstructorParameters},
		&flowCheck{meta: meta{"isset.variable", "isset() and ?? on variables that always exist and are never null", 1}, start: visitFunc(issetVariable)},
	}
}

func variableUndefined(n ast.Node, sc *scope.Scope, acc scope.Access, r *reporter) {
	v, ok := n.(*ast.Variable)
	if !ok || acc != scope.Read || sc.IsDynamic() || sc.IsGlobal() {
		return
	}
	switch sc.Definiteness(v.Name) {
	case scope.Never:
		if v.Name != "this" {
			r.errorf(v, "Undefined variable: $%s", v.Name)
			return
		}
		if sc.Class == nil {
			r.errorf(v, "Using $this outside a class.")
		} else {
			r.errorf(v, "Using $this in a static method.")
		}
	case scope.Maybe:
		r.warningf(v, "Possibly undefined variable $%s.", v.Name)
	}
}

// dynamicClass reports a class, or an ancestor, accepting arbitrary properties.
func dynamicClass(t *symbols.Table, class string) bool {
	for _, name := range append([]string{class}, t.Ancestors(class)...) {
		if c, ok := t.Class(name); ok && c.Dynamic {
			return true
		}
	}
	return false
}

func magicMethod(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	switch n := n.(type) {
	case *ast.MethodCall:
		if n.Method == "" {
			return
		}
		class := sc.ReceiverClass(n.Receiver, n.NullSafe)
		if class == "" {
			return
		}
		if m, l := sc.Table.FindMethod(class, n.Method); l == symbols.Magic && m != nil && !m.Magic {
			r.warningf(n, "Call to method %s::%s() is resolved through %s().", className(sc, class), n.Method, m.Name)
		}
	case *ast.StaticCall:
		if n.Method == "" {
			return
		}
		class, ok := sc.ClassName(n.Class)
		if !ok {
			return
		}
		if m, l := sc.Table.FindMethod(class, n.Method); l == symbols.Magic && m != nil && !m.Magic {
			r.warningf(n, "Call to static method %s::%s() is resolved through %s().", className(sc, class), n.Method, m.Name)
		}
	}
}

func magicProperty(n ast.Node, sc *scope.Scope, acc scope.Access, r *reporter) {
	f, ok := n.(*ast.PropertyFetch)
	if !ok || f.Property == "" {
		return
	}
	class := sc.ReceiverClass(f.Receiver, f.NullSafe)
	if class == "" || dynamicClass(sc.Table, class) {
		return
	}
	if p, l := sc.Table.FindProperty(class, f.Property); l == symbols.Magic && p == nil {
		via := "__get()"
		switch acc {
		case scope.Write:
			via = "__set()"
		case scope.Guarded:
			via = "__isset()"
		}
		r.warningf(f, "Access to property %s::$%s is resolved through %s.", className(sc, class), f.Property, via)
	}
}

func unusedConstructorParameters(file *ast.File, r *reporter) {
	ast.InspectStmts(file.Stmts, func(n ast.Node) bool {
		d, ok := n.(*ast.ClassDecl)
		if !ok {
			return true
		}
		for _, m := range d.Methods {
			if !strings.EqualFold(m.Name, "__construct") || !m.HasBody {
				continue
			}
			if scope.UsesDynamicScope(m.Body) || symbols.ReadsArgs(m.Body) {
				continue
			}
			for _, p := range m.Params {
				if p.Promoted != "" || readsVariable(m.Body, p.Name) {
					continue
				}
				name := d.Name
				if name == "" {
					name = "class@anonymous"
				}
				r.errorf(p, "Constructor of class %s has an unused parameter $%s.", name, p.Name)
			}
		}
		return true
	})
}

// readsVariable reports any use of $name in body other than as the plain target of an
// assignment. Closures count through their use list; arrow functions inherit the scope.
func readsVariable(body []ast.Stmt, name string) bool {
	writes := make(map[*ast.Variable]bool)
	found := false
	ast.InspectStmts(body, func(n ast.Node) bool {
		if found {
			return false
		}
		switch n := n.(type) {
		case *ast.FunctionDecl, *ast.ClassDecl:
			return false
		case *ast.Closure:
			for _, u := range n.Uses {
				if u.Name == name {
					found = true
				}
			}
			return false
		case *ast.Assign:
			if v, ok := n.Target.(*ast.Variable); ok && n.Op == "" && !n.ByRef {
				writes[v] = true
			}
		case *ast.Variable:
			if n.Name == name && !writes[n] {
				found = true
			}
		case *ast.Call:
			if n.FuncName() == "compact" || (n.Name != nil && strings.EqualFold(n.Name.Fallback, "compact")) {
				for _, a := range n.Args {
					if s, ok := a.Value.(*ast.StringLit); ok && s.Value == name {
						found = true
					}
				}
			}
		}
		return !found
	})
	return found
}

func issetVariable(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	switch n := n.(type) {
	case *ast.Isset:
		for _, a := range n.Args {
			if v, ok := a.(*ast.Variable); ok && alwaysSet(v, sc) {
				r.errorf(v, "Variable $%s in isset() always exists and is not nullable.", v.Name)
			}
		}
	case *ast.Binary:
		if n.Op != "??" {
			return
		}
		if v, ok := n.L.(*ast.Variable); ok && alwaysSet(v, sc) {
			r.errorf(v, "Variable $%s on left side of ?? always exists and is not nullable.", v.Name)
		}
	case *ast.Assign:
		if n.Op != "??" {
			return
		}
		if v, ok := n.Target.(*ast.Variable); ok && alwaysSet(v, sc) {
			r.errorf(v, "Variable $%s on left side of ??= always exists and is not nullable.", v.Name)
		}
	}
}

func alwaysSet(v *ast.Variable, sc *scope.Scope) bool {
	if sc.IsDynamic() || v.Name == "this" || scope.IsSuperglobal(v.Name) {
		return false
	}
	got := sc.Lookup(v.Name)
	if got.Def != scope.Always || got.Type == nil {
		return false
	}
	return !got.Type.IsMixed() && !types.IsNullable(got.Type)
}
