package scope

import (
	"strings"

	"strata/internal/engine/ast"
)

var dynamicFunctions = map[string]bool{
	"extract":          true,
	"parse_str":        true,
	"get_defined_vars": true,
	"eval":             true,
}

// UsesDynamicScope reports whether stmts can create or observe variables that no
// assignment shows: variable variables, include/require, eval, extract(), parse_str()
// and get_defined_vars(). Nested functions and closures have their own scope and are
// not searched.
func UsesDynamicScope(stmts []ast.Stmt) bool {
	found := false
	for _, s := range stmts {
		ast.Inspect(s, func(n ast.Node) bool {
			if found {
				return false
			}
			switch n := n.(type) {
			case *ast.FunctionDecl, *ast.ClassDecl, *ast.Closure, *ast.ArrowFunc:
				return false
			case *ast.DynamicVariable, *ast.Include:
				found = true
			case *ast.Call:
				if dynamicFunctions[n.FuncName()] || (n.Name != nil && dynamicFunctions[strings.ToLower(n.Name.Fallback)]) {
					found = true
				}
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}
