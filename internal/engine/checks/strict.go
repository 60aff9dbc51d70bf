package checks

import (
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/scope"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

func strictLevels() []Check {
	return []Check{
		&flowCheck{meta: meta{"unionType.member", "Member access on a union must resolve on every variant", 7}, start: visitFunc(unionMember)},
		&flowCheck{meta: meta{"nullable.access", "Member access on a nullable receiver", 8}, start: visitFunc(nullableAccess)},
		&flowCheck{meta: meta{"mixed.explicitUsage", "Explicit mixed values passed to typed parameters", 9}, start: visitFunc(explicitMixed)},
		&flowCheck{meta: meta{"mixed.implicitUsage", "Untyped values passed to typed parameters", 10}, start: visitFunc(implicitMixed)},
		&flowCheck{meta: meta{"echo.nonString", "Echoed values that cannot be converted to string", 10}, start: visitFunc(echoNonString)},
	}
}

// memberAccess extracts the receiver and member of a named method call or property
// fetch.
func memberAccess(n ast.Node) (recv ast.Expr, name string, kind types.MemberKind, nullSafe, ok bool) {
	switch n := n.(type) {
	case *ast.MethodCall:
		return n.Receiver, n.Method, types.MemberMethod, n.NullSafe, n.Method != ""
	case *ast.PropertyFetch:
		return n.Receiver, n.Property, types.MemberProperty, n.NullSafe, n.Property != ""
	}
	return nil, "", 0, false, false
}

func unionMember(n ast.Node, sc *scope.Scope, acc scope.Access, r *reporter) {
	if !r.ctx.Options.CheckUnionTypes || acc == scope.Guarded {
		return
	}
	recv, name, kind, _, ok := memberAccess(n)
	if !ok {
		return
	}
	t := types.RemoveNull(sc.TypeOf(recv))
	if len(t.Members()) < 2 {
		return
	}
	var missing, unsure []string
	for _, v := range types.MemberExistsPerVariant(t, name, kind, sc.Table) {
		// A variant whose hierarchy is unknown gives no information at all.
		if c := v.Type.ClassName(); c != "" && (!sc.Table.HasClass(c) || sc.Table.HasUnknownAncestor(c)) {
			return
		}
		switch v.Result {
		case types.No:
			missing = append(missing, v.Type.String())
		case types.Maybe:
			unsure = append(unsure, v.Type.String())
		}
	}
	access := "Call to method " + name + "()"
	if kind == types.MemberProperty {
		access = "Access to property $" + name
	}
	switch {
	case len(missing) > 0:
		r.errorf(n, "%s on %s: %s is undefined on %s.", access, t, kind, strings.Join(missing, ", "))
	case len(unsure) > 0:
		r.report(types.Maybe, n, "%s on %s: %s might be undefined on %s.", access, t, kind, strings.Join(unsure, ", "))
	}
}

func nullableAccess(n ast.Node, sc *scope.Scope, acc scope.Access, r *reporter) {
	if !r.ctx.Options.CheckNullables || acc == scope.Guarded {
		return
	}
	recv, name, kind, nullSafe, ok := memberAccess(n)
	if !ok || nullSafe {
		return
	}
	t := sc.TypeOf(recv)
	if !types.ContainsNull(t) {
		return
	}
	base := types.RemoveNull(t)
	if base.Kind() == types.KindNever || types.MemberExists(base, name, kind, sc.Table) != types.Yes {
		return
	}
	if kind == types.MemberProperty {
		r.report(types.Maybe, n, "Cannot access property $%s on %s.", name, t)
		return
	}
	r.report(types.Maybe, n, "Cannot call method %s() on %s.", name, t)
}

func explicitMixed(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	if !r.ctx.Options.CheckExplicitMixed {
		return
	}
	site, ok := siteOf(n, sc)
	if !ok {
		return
	}
	for _, b := range bindArgs(site) {
		declared := r.ctx.paramType(b.param)
		if declared == nil || declared.IsMixed() || b.param.ByRef {
			continue
		}
		if sc.TypeOf(b.arg.Value).IsExplicit() {
			r.errorf(b.arg, "Parameter #%d $%s of %s expects %s, mixed given.", b.position, b.param.Name, site.subject, declared)
		}
	}
}

// untypedSource reports an argument whose value is implicitly mixed because it comes
// from an untyped parameter or from a known callable without return type.
func untypedSource(e ast.Expr, sc *scope.Scope) (string, bool) {
	switch e := e.(type) {
	case *ast.Variable:
		if sc.Function == nil || sc.Definiteness(e.Name) != scope.Always || !sc.Lookup(e.Name).Type.IsImplicitMixed() {
			return "", false
		}
		for _, p := range sc.Function.Signature.Params {
			if p.Name == e.Name && !p.HasTypeInfo() {
				return "parameter $" + e.Name + " has no type", true
			}
		}
	case *ast.Call, *ast.MethodCall, *ast.StaticCall:
		site, ok := siteOf(e, sc)
		if ok && !site.sig.HasReturnInfo() {
			return site.subject + " has no return type", true
		}
	}
	return "", false
}

func implicitMixed(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	if !r.ctx.Options.CheckImplicitMixed {
		return
	}
	site, ok := siteOf(n, sc)
	if !ok {
		return
	}
	for _, b := range bindArgs(site) {
		declared := r.ctx.paramType(b.param)
		if declared == nil || declared.IsMixed() || b.param.ByRef {
			continue
		}
		why, ok := untypedSource(b.arg.Value, sc)
		if !ok {
			continue
		}
		r.errorTip(b.arg, strings.ToUpper(why[:1])+why[1:]+".",
			"Parameter #%d $%s of %s expects %s, mixed given.", b.position, b.param.Name, site.subject, declared)
	}
}

func echoNonString(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	echo, ok := n.(*ast.EchoStmt)
	if !ok {
		return
	}
	for i, arg := range echo.Args {
		const msg = "Parameter #%d (%s) of echo cannot be converted to string."
		t := sc.TypeOf(arg)
		if t.IsExplicit() {
			if r.ctx.Options.CheckExplicitMixed {
				r.errorf(arg, msg, i+1, t)
			}
			continue
		}
		if why, ok := untypedSource(arg, sc); ok {
			if r.ctx.Options.CheckImplicitMixed {
				r.errorTip(arg, strings.ToUpper(why[:1])+why[1:]+".", msg, i+1, "mixed")
			}
			continue
		}
		r.report(notStringable(t, sc), arg, msg, i+1, t)
	}
}

// notStringable is Yes when no value of t converts to string and Maybe when some
// variant may not.
func notStringable(t *types.Type, sc *scope.Scope) types.Trinary {
	members := t.Members()
	certain, possible := 0, 0
	for _, m := range members {
		switch m.Kind() {
		case types.KindArray:
			certain++
		case types.KindObject:
			possible++
		case types.KindClass:
			c, ok := sc.Table.Class(m.ClassName())
			if !ok || sc.Table.HasUnknownAncestor(c.Name) {
				continue
			}
			if _, l := sc.Table.FindMethod(c.Name, "__toString"); l != symbols.Missing {
				continue
			}
			if c.Final || c.Kind == symbols.KindEnum {
				certain++
			} else {
				possible++
			}
		}
	}
	switch {
	case certain == len(members):
		return types.Yes
	case certain+possible > 0:
		return types.Maybe
	}
	return types.No
}
