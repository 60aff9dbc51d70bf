package scope

import (
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

// expr evaluates e for its effects on sc and returns the resulting scope. Short-circuit
// operators evaluate their optional side on a copy and merge it back.
func (w *walker) expr(e ast.Expr, sc *Scope, acc Access) *Scope {
	if e == nil {
		return sc
	}
	switch e.(type) {
	case *ast.Closure, *ast.ArrowFunc:
		// Visited with their own scope.
	default:
		w.emit(e, sc, acc)
	}
	// Guarded access propagates through the receivers of a fetch chain only.
	inner := Read
	if acc == Guarded {
		inner = Guarded
	}
	switch e := e.(type) {
	case *ast.DynamicVariable:
		sc = w.expr(e.Name, sc, Read)
	case *ast.Assign:
		sc = w.assign(e, sc)
	case *ast.Binary:
		sc = w.binary(e, sc)
	case *ast.Unary:
		sc = w.expr(e.X, sc, Read)
	case *ast.IncDec:
		sc = w.expr(e.X, sc, Read)
		if key, ok := exprKey(e.X, sc); ok {
			sc.setType(key, types.Generalize(sc.TypeOf(e.X)))
		}
	case *ast.Cast:
		sc = w.expr(e.X, sc, Read)
	case *ast.Ternary:
		sc = w.expr(e.Cond, sc, Read)
		then := narrow(e.Cond, sc, true)
		if e.Then != nil {
			then = w.expr(e.Then, then, Read)
		}
		sc = Merge(then, w.expr(e.Else, narrow(e.Cond, sc, false), Read))
	case *ast.Match:
		sc = w.expr(e.Subject, sc, Read)
		var outs []*Scope
		for _, arm := range e.Arms {
			in := sc.Clone()
			for _, c := range arm.Conds {
				in = w.expr(c, in, Read)
			}
			outs = append(outs, w.expr(arm.Body, in, Read))
		}
		if len(outs) > 0 {
			sc = Merge(outs...)
		}
	case *ast.Isset:
		for _, a := range e.Args {
			sc = w.expr(a, sc, Guarded)
		}
	case *ast.Empty:
		sc = w.expr(e.X, sc, Guarded)
	case *ast.Instanceof:
		sc = w.expr(e.X, sc, Read)
		sc = w.expr(e.ClassExpr, sc, Read)
	case *ast.Index:
		sc = w.expr(e.X, sc, inner)
		sc = w.expr(e.Index, sc, Read)
	case *ast.PropertyFetch:
		sc = w.expr(e.Receiver, sc, inner)
		sc = w.expr(e.PropertyExpr, sc, Read)
	case *ast.StaticPropertyFetch:
		sc = w.expr(e.ClassExpr, sc, Read)
	case *ast.ClassConstFetch:
		sc = w.expr(e.ClassExpr, sc, Read)
	case *ast.Call:
		sc = w.expr(e.Func, sc, Read)
		if e.FuncName() == "compact" {
			w.compact(e, sc)
		}
		var sig *symbols.Signature
		if f, ok := sc.FunctionForCall(e); ok {
			sig = &f.Signature
		}
		sc = w.args(e.Args, sig, sc)
	case *ast.MethodCall:
		sc = w.expr(e.Receiver, sc, Read)
		sc = w.expr(e.MethodExpr, sc, Read)
		var sig *symbols.Signature
		if m := sc.MethodForCall(e); m != nil {
			sig = &m.Signature
		}
		sc = w.args(e.Args, sig, sc)
	case *ast.StaticCall:
		sc = w.expr(e.ClassExpr, sc, Read)
		sc = w.expr(e.MethodExpr, sc, Read)
		var sig *symbols.Signature
		if m := sc.MethodForStaticCall(e); m != nil {
			sig = &m.Signature
		}
		sc = w.args(e.Args, sig, sc)
	case *ast.New:
		sc = w.expr(e.ClassExpr, sc, Read)
		var sig *symbols.Signature
		if m := sc.ConstructorFor(e); m != nil {
			sig = &m.Signature
		}
		sc = w.args(e.Args, sig, sc)
		if e.Anonymous != nil {
			w.class(e.Anonymous)
		}
	case *ast.ArrayLit:
		for _, item := range e.Items {
			sc = w.expr(item.Key, sc, Read)
			if v, ok := item.Value.(*ast.Variable); ok && item.ByRef {
				sc = w.byRef(v, nil, sc)
				continue
			}
			sc = w.expr(item.Value, sc, Read)
		}
	case *ast.StringLit:
		for _, p := range e.Parts {
			sc = w.expr(p, sc, Read)
		}
	case *ast.Clone:
		sc = w.expr(e.X, sc, Read)
	case *ast.Print:
		sc = w.expr(e.X, sc, Read)
	case *ast.Include:
		sc = w.expr(e.X, sc, Read)
	case *ast.Exit:
		sc = w.expr(e.X, sc, Read)
		sc.terminate()
	case *ast.Throw:
		sc = w.expr(e.X, sc, Read)
		sc.terminate()
	case *ast.Yield:
		sc = w.expr(e.Key, sc, Read)
		sc = w.expr(e.Value, sc, Read)
	case *ast.Closure:
		sc = w.closure(e, sc)
	case *ast.ArrowFunc:
		w.arrowFunc(e, sc)
	}
	return sc
}

func (w *walker) assign(e *ast.Assign, sc *Scope) *Scope {
	switch {
	case e.ByRef:
		if v, ok := e.Value.(*ast.Variable); ok {
			sc = w.byRef(v, nil, sc)
		} else {
			sc = w.expr(e.Value, sc, Read)
		}
		return w.assignTarget(e.Target, sc.TypeOf(e.Value), sc)
	case e.Op == "":
		sc = w.expr(e.Value, sc, Read)
		return w.assignTarget(e.Target, sc.TypeOf(e.Value), sc)
	case e.Op == "??":
		sc = w.expr(e.Target, sc, Guarded)
		old := sc.TypeOf(e.Target)
		if key, ok := exprKey(e.Target, sc); ok && sc.definitenessOf(key) != Always {
			old = types.Null()
		}
		rhs := w.expr(e.Value, sc.Clone(), Read)
		sc = Merge(sc, rhs)
		t := types.NormalizeUnion(types.RemoveNull(old), sc.TypeOf(e.Value))
		return w.assignTarget(e.Target, t, sc)
	default:
		sc = w.expr(e.Target, sc, Read)
		sc = w.expr(e.Value, sc, Read)
		t := binaryType(e.Op, sc.TypeOf(e.Target), sc.TypeOf(e.Value))
		return w.assignTarget(e.Target, t, sc)
	}
}

// assignTarget stores t into an assignable expression: a variable, an element, a
// property or a list() destructuring pattern.
func (w *walker) assignTarget(target ast.Expr, t *types.Type, sc *Scope) *Scope {
	switch target := target.(type) {
	case *ast.Variable:
		w.emit(target, sc, Write)
		if target.Name != "this" {
			sc.Assign(target.Name, t)
		}
	case *ast.ArrayLit:
		w.emit(target, sc, Write)
		for _, item := range target.Items {
			if item == nil || item.Value == nil {
				continue
			}
			sc = w.expr(item.Key, sc, Read)
			elem := types.Unknown()
			if k := t.Kind(); k == types.KindArray || k == types.KindIterable {
				elem = t.Value()
			}
			if item.ByRef {
				elem = types.Unknown()
			}
			sc = w.assignTarget(item.Value, elem, sc)
		}
	case *ast.Index:
		w.emit(target, sc, Write)
		sc = w.expr(target.Index, sc, Read)
		sc = w.autovivify(target.X, sc)
	case *ast.PropertyFetch:
		w.emit(target, sc, Write)
		sc = w.expr(target.Receiver, sc, Read)
		sc = w.expr(target.PropertyExpr, sc, Read)
		if key, ok := exprKey(target, sc); ok {
			sc.invalidate(key)
			sc.exprs[key] = t
		}
	case *ast.StaticPropertyFetch:
		w.emit(target, sc, Write)
		sc = w.expr(target.ClassExpr, sc, Read)
		if key, ok := exprKey(target, sc); ok {
			sc.invalidate(key)
			sc.exprs[key] = t
		}
	case *ast.DynamicVariable:
		w.emit(target, sc, Write)
		sc = w.expr(target.Name, sc, Read)
	default:
		sc = w.expr(target, sc, Read)
	}
	return sc
}

// autovivify handles the base of `$a[...] = v`: an undefined variable becomes an array.
func (w *walker) autovivify(base ast.Expr, sc *Scope) *Scope {
	switch base := base.(type) {
	case *ast.Variable:
		w.emit(base, sc, Write)
		if base.Name == "this" || IsSuperglobal(base.Name) {
			return sc
		}
		v := sc.Lookup(base.Name)
		switch {
		case v.Def != Always:
			sc.Assign(base.Name, types.Array(nil, nil))
		case v.Type.Kind() == types.KindArray:
			sc.Assign(base.Name, types.Array(nil, nil))
		}
	case *ast.Index:
		w.emit(base, sc, Write)
		sc = w.expr(base.Index, sc, Read)
		sc = w.autovivify(base.X, sc)
	case *ast.PropertyFetch:
		sc = w.expr(base.Receiver, sc, Read)
		sc = w.expr(base.PropertyExpr, sc, Read)
		if key, ok := exprKey(base, sc); ok {
			sc.invalidate(key)
		}
	default:
		sc = w.expr(base, sc, Read)
	}
	return sc
}

func (w *walker) byRef(v *ast.Variable, t *types.Type, sc *Scope) *Scope {
	w.emit(v, sc, Write)
	if v.Name == "this" || IsSuperglobal(v.Name) {
		return sc
	}
	if cur := sc.Lookup(v.Name); cur.Def == Always {
		sc.Assign(v.Name, cur.Type)
		return sc
	}
	if t == nil {
		t = types.Unknown()
	}
	sc.Assign(v.Name, t)
	return sc
}

func (w *walker) binary(e *ast.Binary, sc *Scope) *Scope {
	switch strings.ToLower(e.Op) {
	case "&&", "and":
		sc = w.expr(e.L, sc, Read)
		right := w.expr(e.R, narrow(e.L, sc, true), Read)
		return Merge(narrow(e.L, sc, false), right)
	case "||", "or":
		sc = w.expr(e.L, sc, Read)
		right := w.expr(e.R, narrow(e.L, sc, false), Read)
		return Merge(narrow(e.L, sc, true), right)
	case "??":
		sc = w.expr(e.L, sc, Guarded)
		right := w.expr(e.R, sc.Clone(), Read)
		return Merge(sc, right)
	}
	sc = w.expr(e.L, sc, Read)
	return w.expr(e.R, sc, Read)
}

// args evaluates call arguments. Variables passed to by-reference parameters are
// defined by the call. When the callee is unknown a bare undefined variable might be
// such an output parameter, so it is treated as guarded and defined.
func (w *walker) args(args []*ast.Arg, sig *symbols.Signature, sc *Scope) *Scope {
	unknown := sig == nil || sig.Unknown
	for i, a := range args {
		var p *symbols.ParameterInfo
		if !unknown {
			if a.Name != "" {
				p = sig.ParamByName(a.Name)
			} else {
				p = sig.Param(i)
			}
		}
		v, isVar := a.Value.(*ast.Variable)
		switch {
		case a.Spread:
			sc = w.expr(a.Value, sc, Read)
		case p != nil && p.ByRef && isVar:
			sc = w.byRef(v, p.Effective(), sc)
		case p != nil && p.ByRef:
			sc = w.assignTarget(a.Value, types.Unknown(), sc)
		case unknown && isVar && sc.Definiteness(v.Name) != Always && v.Name != "this":
			w.emit(v, sc, Guarded)
			sc.Assign(v.Name, types.Unknown())
		default:
			sc = w.expr(a.Value, sc, Read)
		}
	}
	return sc
}

// compact('a', 'b') reads the named variables.
func (w *walker) compact(c *ast.Call, sc *Scope) {
	for _, a := range c.Args {
		if s, ok := a.Value.(*ast.StringLit); ok && !s.Interpolated {
			w.emit(&ast.Variable{Pos: s.Pos, Name: s.Value}, sc, Read)
		}
	}
}

func (w *walker) closure(c *ast.Closure, outer *Scope) *Scope {
	for _, u := range c.Uses {
		v := &ast.Variable{Pos: u.Pos, Name: u.Name}
		if u.ByRef {
			outer = w.byRef(v, nil, outer)
		} else {
			w.emit(v, outer, Read)
		}
	}
	if w.silent > 0 {
		return outer
	}
	fn := &FunctionContext{
		Signature: closureSignature(c.Params, c.ReturnType, outer),
		Static:    c.Static || !outer.HasThis(),
		Closure:   true,
		Decl:      c,
		Dynamic:   UsesDynamicScope(c.Body),
	}
	sc := New(w.table, w.file, outer.Class, fn)
	for _, u := range c.Uses {
		v := outer.Lookup(u.Name)
		t := v.Type
		if v.Def == Never {
			t = types.Null()
		}
		sc.Assign(u.Name, t)
	}
	w.bindParams(c.Params, fn, sc)
	w.runBody(c, c.Body, sc)
	return outer
}

func (w *walker) arrowFunc(a *ast.ArrowFunc, outer *Scope) {
	if w.silent > 0 {
		return
	}
	fn := &FunctionContext{
		Signature: closureSignature(a.Params, a.ReturnType, outer),
		Static:    a.Static || !outer.HasThis(),
		Closure:   true,
		Arrow:     true,
		Decl:      a,
		Dynamic:   outer.dynamic,
	}
	sc := outer.Clone()
	sc.Function = fn
	sc.dynamic = fn.Dynamic
	sc.global = false
	sc.reach = live
	w.bindParams(a.Params, fn, sc)
	saved := w.frames
	w.frames = nil
	w.emit(a, sc, Read)
	w.expr(a.Body, sc, Read)
	w.frames = saved
}

func closureSignature(params []*ast.Param, ret *ast.TypeHint, outer *Scope) symbols.Signature {
	return outer.Class.Signature(params, ret, nil, false)
}
