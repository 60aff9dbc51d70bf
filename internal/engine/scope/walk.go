package scope

import (
	"strata/internal/engine/ast"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

// Access says how a visited expression is used.
type Access uint8

const (
	// Read: the value is needed.
	Read Access = iota
	// Write: the expression is an assignment target.
	Write
	// Guarded: inside isset(), empty(), unset() or the left side of ??, where an
	// undefined variable is not an error.
	Guarded
)

// Visitor receives every statement and expression in evaluation order together with
// the scope in effect before it runs. Declarations (functions, classes, methods,
// closures) are visited with the scope of their body, parameters already bound.
type Visitor func(n ast.Node, sc *Scope, acc Access)

const (
	maxLoopPasses   = 8
	generalizeAfter = 2
)

type frame struct {
	breaks    []*Scope
	continues []*Scope
	isSwitch  bool
}

type walker struct {
	table  *symbols.Table
	file   *ast.File
	visit  Visitor
	silent int
	frames []*frame
}

// Walk analyses every function body, method body and the top-level code of file.
// Each body starts from a fresh scope; nothing is shared between bodies.
func Walk(file *ast.File, table *symbols.Table, visit Visitor) {
	if table == nil {
		table = symbols.NewTable()
	}
	w := &walker{table: table, file: file, visit: visit}
	sc := New(table, file, nil, nil)
	sc.global = true
	sc.dynamic = UsesDynamicScope(file.Stmts)
	w.stmts(file.Stmts, sc)
}

func (w *walker) emit(n ast.Node, sc *Scope, acc Access) {
	if w.silent == 0 && w.visit != nil {
		w.visit(n, sc, acc)
	}
}

func isDeclaration(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.FunctionDecl, *ast.ClassDecl:
		return true
	}
	return false
}

// stmts walks a statement list. The first statement after a terminating one is
// visited with an unreachable scope so dead code can be reported; the rest is skipped.
func (w *walker) stmts(list []ast.Stmt, sc *Scope) *Scope {
	reported := false
	for _, s := range list {
		if isDeclaration(s) {
			w.declaration(s, sc)
			continue
		}
		if sc.Unreachable() {
			if !reported && sc.Terminated() {
				w.emit(s, sc, Read)
				reported = true
			}
			continue
		}
		sc = w.stmt(s, sc)
	}
	return sc
}

func (w *walker) declaration(s ast.Stmt, outer *Scope) {
	switch d := s.(type) {
	case *ast.FunctionDecl:
		fn := &FunctionContext{
			Name:      d.Name,
			Signature: symbols.DeclSignature(d.Params, d.ReturnType, d.Doc, d.ByRef, "", ""),
			Decl:      d,
		}
		w.body(d, d.Params, d.Body, nil, fn)
	case *ast.ClassDecl:
		w.emit(d, outer, Read)
		w.class(d)
	}
}

func (w *walker) classContext(d *ast.ClassDecl) *ClassContext {
	cc := &ClassContext{Name: d.Name, Parent: d.Parent, Decl: d, Trait: d.Kind == ast.KindTrait}
	if d.Name != "" {
		cc.Info, _ = w.table.Class(d.Name)
	}
	return cc
}

func (w *walker) class(d *ast.ClassDecl) {
	cc := w.classContext(d)
	// Constant expressions see no variables at all.
	init := New(w.table, w.file, cc, nil)
	init.dynamic = true
	for _, k := range d.Constants {
		w.emit(k, init, Read)
		w.expr(k.Value, init.Clone(), Read)
	}
	for _, c := range d.Cases {
		w.emit(c, init, Read)
		w.expr(c.Value, init.Clone(), Read)
	}
	for _, p := range d.Properties {
		w.emit(p, init, Read)
		w.expr(p.Default, init.Clone(), Read)
	}
	for _, m := range d.Methods {
		fn := &FunctionContext{
			Name:      m.Name,
			Signature: cc.Signature(m.Params, m.ReturnType, m.Doc, m.ByRef),
			Static:    m.Static,
			Decl:      m,
		}
		w.body(m, m.Params, m.Body, cc, fn)
	}
}

// body analyses one function-like body from a fresh scope.
func (w *walker) body(decl ast.Node, params []*ast.Param, body []ast.Stmt, cc *ClassContext, fn *FunctionContext) {
	fn.Dynamic = UsesDynamicScope(body)
	sc := New(w.table, w.file, cc, fn)
	w.bindParams(params, fn, sc)
	w.runBody(decl, body, sc)
}

func (w *walker) bindParams(params []*ast.Param, fn *FunctionContext, sc *Scope) {
	for i, p := range params {
		w.expr(p.Default, sc.Clone(), Read)
		var t *types.Type
		if i < len(fn.Signature.Params) {
			t = fn.Signature.Params[i].Effective()
		}
		if p.Variadic {
			t = types.Array(types.Int(), t)
		}
		sc.Assign(p.Name, t)
	}
}

func (w *walker) runBody(decl ast.Node, body []ast.Stmt, sc *Scope) *Scope {
	saved := w.frames
	w.frames = nil
	w.emit(decl, sc, Read)
	out := w.stmts(body, sc)
	w.frames = saved
	return out
}

func (w *walker) push(isSwitch bool) *frame {
	f := &frame{isSwitch: isSwitch}
	w.frames = append(w.frames, f)
	return f
}

func (w *walker) pop() { w.frames = w.frames[:len(w.frames)-1] }

// target returns the frame a break or continue of the given depth leaves.
func (w *walker) target(levels int) *frame {
	levels = max(levels, 1)
	if levels > len(w.frames) {
		return nil
	}
	return w.frames[len(w.frames)-levels]
}

func (w *walker) stmt(s ast.Stmt, sc *Scope) *Scope {
	w.emit(s, sc, Read)
	switch s := s.(type) {
	case *ast.ExprStmt:
		sc = w.expr(s.X, sc, Read)
		w.applyInlineVar(s, sc)
	case *ast.EchoStmt:
		for _, a := range s.Args {
			sc = w.expr(a, sc, Read)
		}
	case *ast.ReturnStmt:
		sc = w.expr(s.Result, sc, Read)
		sc.terminate()
	case *ast.NamespaceStmt:
		sc = w.stmts(s.Stmts, sc)
	case *ast.BlockStmt:
		sc = w.stmts(s.Stmts, sc)
	case *ast.DeclareStmt:
		for _, d := range s.Directives {
			sc = w.expr(d, sc, Read)
		}
		sc = w.stmts(s.Body, sc)
	case *ast.ConstStmt:
		for _, item := range s.Items {
			sc = w.expr(item.Value, sc, Read)
		}
	case *ast.IfStmt:
		sc = w.ifStmt(s, sc)
	case *ast.WhileStmt:
		sc = w.whileStmt(s, sc)
	case *ast.DoWhileStmt:
		sc = w.doWhileStmt(s, sc)
	case *ast.ForStmt:
		sc = w.forStmt(s, sc)
	case *ast.ForeachStmt:
		sc = w.foreachStmt(s, sc)
	case *ast.SwitchStmt:
		sc = w.switchStmt(s, sc)
	case *ast.TryStmt:
		sc = w.tryStmt(s, sc)
	case *ast.BreakStmt:
		if f := w.target(s.Levels); f != nil {
			f.breaks = append(f.breaks, sc.Clone())
		}
		sc.terminate()
	case *ast.ContinueStmt:
		if f := w.target(s.Levels); f != nil {
			if f.isSwitch {
				f.breaks = append(f.breaks, sc.Clone())
			} else {
				f.continues = append(f.continues, sc.Clone())
			}
		}
		sc.terminate()
	case *ast.GlobalStmt:
		for _, name := range s.Names {
			sc.Assign(name, types.Unknown())
		}
	case *ast.StaticVarStmt:
		for _, v := range s.Vars {
			sc = w.expr(v.Init, sc, Read)
			sc.Assign(v.Name, types.Unknown())
		}
	case *ast.UnsetStmt:
		for _, a := range s.Args {
			if v, ok := a.(*ast.Variable); ok {
				w.emit(v, sc, Guarded)
				sc.Unset(v.Name)
				continue
			}
			sc = w.expr(a, sc, Guarded)
			if key, ok := exprKey(a, sc); ok {
				delete(sc.exprs, key)
			}
		}
	}
	return sc
}

// applyInlineVar honours `/** @var Type $x */` placed before an assignment.
func (w *walker) applyInlineVar(s *ast.ExprStmt, sc *Scope) {
	t := s.Doc.VarType()
	if t == nil {
		return
	}
	name := s.Doc.VarName
	if name == "" {
		if a, ok := s.X.(*ast.Assign); ok {
			if v, ok := a.Target.(*ast.Variable); ok {
				name = v.Name
			}
		}
	}
	if name == "" || sc.Definiteness(name) == Never {
		return
	}
	sc.setType("$"+name, t)
}

func (w *walker) ifStmt(s *ast.IfStmt, sc *Scope) *Scope {
	sc = w.expr(s.Cond, sc, Read)
	outs := []*Scope{w.stmts(s.Then, narrow(s.Cond, sc, true))}
	rest := narrow(s.Cond, sc, false)
	for _, ei := range s.ElseIfs {
		if rest.Unreachable() {
			break
		}
		w.emit(ei, rest, Read)
		rest = w.expr(ei.Cond, rest, Read)
		outs = append(outs, w.stmts(ei.Body, narrow(ei.Cond, rest, true)))
		rest = narrow(ei.Cond, rest, false)
	}
	if s.HasElse {
		rest = w.stmts(s.Else, rest)
	}
	return Merge(append(outs, rest)...)
}

// loop runs pass to a fixpoint without visiting, then once more with visiting on the
// stable loop-head scope. pass returns the scope at the back edge and the scope when
// the loop condition fails; breaks are collected by the frame.
func (w *walker) loop(pre *Scope, pass func(head *Scope, f *frame) (back, exit *Scope)) *Scope {
	head := pre.Clone()
	w.silent++
	for i := 0; ; i++ {
		f := w.push(false)
		back, _ := pass(head.Clone(), f)
		w.pop()
		next := Merge(pre, back)
		if i >= generalizeAfter {
			next.generalize()
		}
		if next.equal(head) {
			break
		}
		if i == maxLoopPasses-1 {
			next.widen(head)
			head = next
			break
		}
		head = next
	}
	w.silent--

	f := w.push(false)
	_, exit := pass(head.Clone(), f)
	w.pop()
	return Merge(append([]*Scope{exit}, f.breaks...)...)
}

func (w *walker) whileStmt(s *ast.WhileStmt, sc *Scope) *Scope {
	return w.loop(sc, func(head *Scope, f *frame) (*Scope, *Scope) {
		head = w.expr(s.Cond, head, Read)
		end := w.stmts(s.Body, narrow(s.Cond, head, true))
		return Merge(append([]*Scope{end}, f.continues...)...), narrow(s.Cond, head, false)
	})
}

func (w *walker) doWhileStmt(s *ast.DoWhileStmt, sc *Scope) *Scope {
	return w.loop(sc, func(head *Scope, f *frame) (*Scope, *Scope) {
		end := w.stmts(s.Body, head)
		end = Merge(append([]*Scope{end}, f.continues...)...)
		if end.Unreachable() {
			return end, end
		}
		end = w.expr(s.Cond, end, Read)
		return narrow(s.Cond, end, true), narrow(s.Cond, end, false)
	})
}

func (w *walker) forStmt(s *ast.ForStmt, sc *Scope) *Scope {
	for _, e := range s.Init {
		sc = w.expr(e, sc, Read)
	}
	return w.loop(sc, func(head *Scope, f *frame) (*Scope, *Scope) {
		for _, e := range s.Cond {
			head = w.expr(e, head, Read)
		}
		body, exit := head, head.Clone()
		if n := len(s.Cond); n > 0 {
			body, exit = narrow(s.Cond[n-1], head, true), narrow(s.Cond[n-1], head, false)
		} else {
			exit.reach = impossible
		}
		end := w.stmts(s.Body, body)
		end = Merge(append([]*Scope{end}, f.continues...)...)
		if !end.Unreachable() {
			for _, e := range s.Step {
				end = w.expr(e, end, Read)
			}
		}
		return end, exit
	})
}

func (w *walker) foreachStmt(s *ast.ForeachStmt, sc *Scope) *Scope {
	sc = w.expr(s.Subject, sc, Read)
	subject := sc.TypeOf(s.Subject)
	key, value := types.Unknown(), types.Unknown()
	switch subject.Kind() {
	case types.KindArray, types.KindIterable:
		key, value = subject.Key(), subject.Value()
	}
	return w.loop(sc, func(head *Scope, f *frame) (*Scope, *Scope) {
		exit := head.Clone()
		if s.Key != nil {
			head = w.assignTarget(s.Key, key, head)
		}
		if s.ByRef {
			if v, ok := s.Value.(*ast.Variable); ok {
				w.emit(v, head, Write)
				head.Assign(v.Name, value)
			}
		} else {
			head = w.assignTarget(s.Value, value, head)
		}
		end := w.stmts(s.Body, head)
		return Merge(append([]*Scope{end}, f.continues...)...), exit
	})
}

func (w *walker) switchStmt(s *ast.SwitchStmt, sc *Scope) *Scope {
	sc = w.expr(s.Subject, sc, Read)
	f := w.push(true)
	var fall *Scope
	hasDefault := false
	for _, c := range s.Cases {
		entry := sc.Clone()
		w.emit(c, entry, Read)
		if c.Test == nil {
			hasDefault = true
		} else {
			entry = w.expr(c.Test, entry, Read)
		}
		if fall != nil && !fall.Unreachable() {
			entry = Merge(entry, fall)
		}
		fall = w.stmts(c.Body, entry)
	}
	w.pop()
	outs := append([]*Scope{fall}, f.breaks...)
	if !hasDefault {
		outs = append(outs, sc)
	}
	return Merge(outs...)
}

func (w *walker) tryStmt(s *ast.TryStmt, sc *Scope) *Scope {
	pre := sc.Clone()
	end := w.stmts(s.Body, sc.Clone())
	outs := []*Scope{end}

	// An exception can leave the body anywhere: whatever it assigns is possibly defined.
	reached := end.Clone()
	reached.reach = live
	catchEntry := Merge(pre, reached)
	for _, name := range assignedNames(s.Body) {
		if catchEntry.vars[name].Def == Never {
			catchEntry.vars[name] = Var{Type: types.Unknown(), Def: Maybe}
		}
	}
	for _, c := range s.Catches {
		in := catchEntry.Clone()
		w.emit(c, in, Read)
		if c.Var != "" {
			ts := make([]*types.Type, 0, len(c.Types))
			for _, name := range c.Types {
				ts = append(ts, types.ClassType(name))
			}
			in.Assign(c.Var, types.NormalizeUnion(ts...))
		}
		outs = append(outs, w.stmts(c.Body, in))
	}
	exit := Merge(outs...)
	if !s.HasFinally {
		return exit
	}
	in := exit
	if exit.Unreachable() {
		in = catchEntry.Clone()
	}
	fin := w.stmts(s.Finally, in)
	if fin.Unreachable() || exit.Unreachable() {
		fin.reach = terminated
	}
	return fin
}

// assignedNames lists the variables written anywhere in stmts, nested functions excluded.
func assignedNames(stmts []ast.Stmt) []string {
	var out []string
	for _, s := range stmts {
		ast.Inspect(s, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.Closure, *ast.ArrowFunc, *ast.FunctionDecl, *ast.ClassDecl:
				return false
			case *ast.Assign:
				if v, ok := n.Target.(*ast.Variable); ok {
					out = append(out, v.Name)
				}
			case *ast.ForeachStmt:
				if v, ok := n.Value.(*ast.Variable); ok {
					out = append(out, v.Name)
				}
				if v, ok := n.Key.(*ast.Variable); ok {
					out = append(out, v.Name)
				}
			}
			return true
		})
	}
	return out
}
