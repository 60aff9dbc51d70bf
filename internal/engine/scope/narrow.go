package scope

import (
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/types"
)

// typePredicates maps is_* functions to the type they prove.
var typePredicates = map[string]func() *types.Type{
	"is_string":   types.String,
	"is_int":      types.Int,
	"is_integer":  types.Int,
	"is_long":     types.Int,
	"is_float":    types.Float,
	"is_double":   types.Float,
	"is_bool":     types.Bool,
	"is_object":   types.Object,
	"is_callable": types.Callable,
	"is_resource": types.Resource,
	"is_array":    func() *types.Type { return types.Array(nil, nil) },
	"is_iterable": func() *types.Type { return types.Iterable(nil, nil) },
}

// narrow returns a copy of sc refined by cond evaluating to truth. A condition that
// can never have that value makes the copy impossible.
func narrow(cond ast.Expr, sc *Scope, truth bool) *Scope {
	out := sc.Clone()
	if sc.Unreachable() || cond == nil {
		return out
	}
	return refine(cond, out, truth)
}

func refine(cond ast.Expr, sc *Scope, truth bool) *Scope {
	switch e := cond.(type) {
	case *ast.BoolLit:
		if e.Value != truth {
			sc.reach = impossible
		}
	case *ast.ConstFetch:
		if v, ok := boolConst(e); ok && v != truth {
			sc.reach = impossible
		}
	case *ast.Unary:
		if e.Op == "!" {
			return refine(e.X, sc, !truth)
		}
	case *ast.Binary:
		return refineBinary(e, sc, truth)
	case *ast.Instanceof:
		refineInstanceof(e, sc, truth)
	case *ast.Isset:
		if truth {
			for _, a := range e.Args {
				refineDefined(a, sc)
			}
		}
	case *ast.Empty:
		if !truth {
			refineDefined(e.X, sc)
			refineTruthy(e.X, sc)
		}
	case *ast.Call:
		refineCall(e, sc, truth)
	case *ast.Assign:
		// Reaching the assignment means it ran.
		if key, ok := exprKey(e.Target, sc); ok {
			sc.define(key, sc.TypeOf(e.Target))
		}
		if e.Op == "" && !e.ByRef {
			return refine(e.Target, sc, truth)
		}
	case *ast.Variable, *ast.PropertyFetch, *ast.StaticPropertyFetch:
		if truth {
			refineTruthy(e, sc)
		}
	}
	return sc
}

func boolConst(e *ast.ConstFetch) (bool, bool) {
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
	return false, false
}

func isNullExpr(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.NullLit:
		return true
	case *ast.ConstFetch:
		if e.Name == nil {
			return false
		}
		return strings.EqualFold(e.Name.Resolved, "null") || strings.EqualFold(e.Name.Fallback, "null")
	}
	return false
}

func refineBinary(e *ast.Binary, sc *Scope, truth bool) *Scope {
	op := strings.ToLower(e.Op)
	switch op {
	case "&&", "and":
		if truth {
			return refine(e.R, refine(e.L, sc, true), true)
		}
		return Merge(refine(e.L, sc.Clone(), false), refine(e.R, refine(e.L, sc.Clone(), true), false))
	case "||", "or":
		if !truth {
			return refine(e.R, refine(e.L, sc, false), false)
		}
		return Merge(refine(e.L, sc.Clone(), true), refine(e.R, refine(e.L, sc.Clone(), false), true))
	case "===", "==", "!==", "!=", "<>":
		equal := op == "===" || op == "=="
		if !truth {
			equal = !equal
		}
		strict := op == "===" || op == "!=="
		switch {
		case isNullExpr(e.R):
			refineNull(e.L, sc, equal, strict)
		case isNullExpr(e.L):
			refineNull(e.R, sc, equal, strict)
		}
	}
	return sc
}

// refineNull applies `e === null` (isNull) or `e !== null`. A loose equality with null
// also holds for other falsy values, so it only narrows in the negative direction.
func refineNull(e ast.Expr, sc *Scope, isNull, strict bool) {
	key, ok := exprKey(e, sc)
	if !ok {
		return
	}
	cur := sc.TypeOf(e)
	switch {
	case !isNull:
		sc.setType(key, types.RemoveNull(cur))
	case strict && types.ContainsNull(cur):
		sc.setType(key, types.Null())
	}
}

func refineInstanceof(e *ast.Instanceof, sc *Scope, truth bool) {
	name, ok := sc.ClassName(e.Class)
	if !ok {
		return
	}
	key, ok := exprKey(e.X, sc)
	if !ok {
		return
	}
	cur := sc.TypeOf(e.X)
	target := types.ClassType(name)
	if truth {
		if types.IsSubtype(cur, target, sc.Table).IsYes() {
			return
		}
		sc.setType(key, target)
		return
	}
	if !cur.IsMixed() {
		sc.setType(key, types.Remove(cur, target))
	}
}

// refineDefined applies isset(e): e and the receivers it is fetched from are defined
// and not null.
func refineDefined(e ast.Expr, sc *Scope) {
	switch x := e.(type) {
	case *ast.PropertyFetch:
		refineDefined(x.Receiver, sc)
	case *ast.Index:
		refineDefined(x.X, sc)
		return
	}
	key, ok := exprKey(e, sc)
	if !ok {
		return
	}
	sc.define(key, types.RemoveNull(sc.TypeOf(e)))
}

func refineTruthy(e ast.Expr, sc *Scope) {
	key, ok := exprKey(e, sc)
	if !ok {
		return
	}
	cur := sc.TypeOf(e)
	if cur.IsMixed() {
		return
	}
	t := types.Remove(types.RemoveNull(cur), types.BoolLiteral(false))
	if t.Kind() == types.KindNever {
		return
	}
	sc.setType(key, t)
}

func refineCall(c *ast.Call, sc *Scope, truth bool) {
	if c.Name == nil || len(c.Args) != 1 || c.Args[0].Spread {
		return
	}
	name := strings.ToLower(c.Name.Resolved)
	if c.Name.Fallback != "" {
		if _, ok := sc.Table.Function(name); !ok {
			name = strings.ToLower(c.Name.Fallback)
		}
	}
	arg := c.Args[0].Value
	if name == "is_null" {
		refineNull(arg, sc, truth, true)
		return
	}
	pred, ok := typePredicates[name]
	if !ok {
		return
	}
	key, ok := exprKey(arg, sc)
	if !ok {
		return
	}
	cur, want := sc.TypeOf(arg), pred()
	if truth {
		sc.setType(key, filterMembers(cur, want, true, sc))
		return
	}
	if !cur.IsMixed() {
		sc.setType(key, filterMembers(cur, want, false, sc))
	}
}

// filterMembers keeps the members of cur that may satisfy want (keep) or that surely
// do not (drop). Narrowing to nothing falls back to want, or to cur.
func filterMembers(cur, want *types.Type, keep bool, sc *Scope) *types.Type {
	if cur.IsMixed() {
		return want
	}
	var out []*types.Type
	for _, m := range cur.Members() {
		r := types.IsSubtype(m, want, sc.Table)
		if keep && !r.IsNo() || !keep && !r.IsYes() {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		if keep {
			return want
		}
		return cur
	}
	return types.NormalizeUnion(out...)
}
