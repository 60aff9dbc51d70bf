package scope

import (
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

// TypeOf infers the type of e at this program point without evaluating it. Anything
// that cannot be resolved is the implicit mixed type.
func (s *Scope) TypeOf(e ast.Expr) *types.Type {
	switch e := e.(type) {
	case nil:
		return types.Unknown()
	case *ast.Variable:
		v := s.Lookup(e.Name)
		if v.Def == Never {
			return types.Unknown()
		}
		return v.Type
	case *ast.IntLit:
		return types.IntLiteral(e.Value)
	case *ast.FloatLit:
		return types.Float()
	case *ast.StringLit:
		if e.Interpolated {
			return types.String()
		}
		return types.StringLiteral(e.Value)
	case *ast.BoolLit:
		return types.BoolLiteral(e.Value)
	case *ast.NullLit:
		return types.Null()
	case *ast.ConstFetch:
		return s.constType(e)
	case *ast.ArrayLit:
		return s.arrayType(e)
	case *ast.New:
		if name, ok := s.ClassName(e.Class); ok {
			return types.ClassType(name)
		}
		return types.Object()
	case *ast.Clone:
		return s.TypeOf(e.X)
	case *ast.Call:
		if f, ok := s.FunctionForCall(e); ok {
			return f.Return()
		}
	case *ast.MethodCall:
		return s.methodCallType(e)
	case *ast.StaticCall:
		if m := s.MethodForStaticCall(e); m != nil {
			if name, ok := s.ClassName(e.Class); ok {
				return types.Substitute(m.Return(), types.ClassType(name))
			}
		}
	case *ast.PropertyFetch:
		return s.propertyFetchType(e)
	case *ast.StaticPropertyFetch:
		if key, ok := exprKey(e, s); ok {
			if t, ok := s.exprs[key]; ok {
				return t
			}
		}
		if name, ok := s.ClassName(e.Class); ok {
			if p, l := s.Table.FindProperty(name, e.Property); l == symbols.Declared && p.Static {
				return p.Effective()
			}
		}
	case *ast.ClassConstFetch:
		return s.classConstType(e)
	case *ast.Assign:
		switch e.Op {
		case "":
			return s.TypeOf(e.Value)
		case "??":
			return types.NormalizeUnion(types.RemoveNull(s.TypeOf(e.Target)), s.TypeOf(e.Value))
		}
		return binaryType(e.Op, s.TypeOf(e.Target), s.TypeOf(e.Value))
	case *ast.Binary:
		return binaryType(strings.ToLower(e.Op), s.TypeOf(e.L), s.TypeOf(e.R))
	case *ast.Unary:
		switch e.Op {
		case "!":
			return types.Bool()
		case "~":
			return types.Int()
		case "@":
			return s.TypeOf(e.X)
		case "-":
			if v, ok := s.TypeOf(e.X).IntValue(); ok {
				return types.IntLiteral(-v)
			}
			return numeric(types.Generalize(s.TypeOf(e.X)))
		case "+":
			return numeric(types.Generalize(s.TypeOf(e.X)))
		}
	case *ast.IncDec:
		return types.Generalize(s.TypeOf(e.X))
	case *ast.Cast:
		return castType(e.To)
	case *ast.Ternary:
		then := types.RemoveNull(s.TypeOf(e.Cond))
		if e.Then != nil {
			then = s.TypeOf(e.Then)
		}
		return types.NormalizeUnion(then, s.TypeOf(e.Else))
	case *ast.Match:
		ts := make([]*types.Type, 0, len(e.Arms))
		for _, arm := range e.Arms {
			ts = append(ts, s.TypeOf(arm.Body))
		}
		return types.NormalizeUnion(ts...)
	case *ast.Isset, *ast.Empty, *ast.Instanceof:
		return types.Bool()
	case *ast.Index:
		t := s.TypeOf(e.X)
		switch t.Kind() {
		case types.KindArray, types.KindIterable:
			return t.Value()
		case types.KindString:
			return types.String()
		}
	case *ast.Closure, *ast.ArrowFunc:
		return types.ClassType("Closure")
	case *ast.Print:
		return types.IntLiteral(1)
	case *ast.MagicConst:
		if strings.EqualFold(e.Name, "__LINE__") {
			return types.Int()
		}
		return types.String()
	case *ast.Exit, *ast.Throw:
		return types.Never()
	}
	return types.Unknown()
}

func (s *Scope) constType(e *ast.ConstFetch) *types.Type {
	if e.Name == nil {
		return types.Unknown()
	}
	name := e.Name.Resolved
	if e.Name.Fallback != "" {
		name = e.Name.Fallback
	}
	switch strings.ToLower(name) {
	case "true":
		return types.BoolLiteral(true)
	case "false":
		return types.BoolLiteral(false)
	case "null":
		return types.Null()
	}
	if c, ok := s.Table.ResolveConstant(e.Name.Resolved, e.Name.Fallback); ok && c.Type != nil {
		return c.Type
	}
	return types.Unknown()
}

func (s *Scope) arrayType(e *ast.ArrayLit) *types.Type {
	if len(e.Items) == 0 {
		return types.EmptyArray()
	}
	keyed := false
	values := make([]*types.Type, 0, len(e.Items))
	for _, item := range e.Items {
		if item == nil || item.Spread {
			return types.Array(nil, nil)
		}
		if item.Key != nil {
			keyed = true
		}
		values = append(values, types.Generalize(s.TypeOf(item.Value)))
	}
	key := types.Int()
	if keyed {
		key = nil
	}
	return types.Array(key, types.NormalizeUnion(values...))
}

func (s *Scope) methodCallType(e *ast.MethodCall) *types.Type {
	if e.Method == "" {
		return types.Unknown()
	}
	recv := s.TypeOf(e.Receiver)
	nullable := false
	if e.NullSafe && types.ContainsNull(recv) {
		recv, nullable = types.RemoveNull(recv), true
	}
	var out []*types.Type
	for _, m := range recv.Members() {
		class := m.ClassName()
		if class == "" {
			return types.Unknown()
		}
		mi, l := s.Table.FindMethod(class, e.Method)
		if mi == nil || (l == symbols.Magic && !mi.Magic) || l == symbols.Missing || l == symbols.Unresolved {
			return types.Unknown()
		}
		out = append(out, types.Substitute(mi.Return(), m))
	}
	if nullable {
		out = append(out, types.Null())
	}
	return types.NormalizeUnion(out...)
}

func (s *Scope) propertyFetchType(e *ast.PropertyFetch) *types.Type {
	if key, ok := exprKey(e, s); ok {
		if t, ok := s.exprs[key]; ok {
			return t
		}
	}
	if e.Property == "" {
		return types.Unknown()
	}
	recv := s.TypeOf(e.Receiver)
	nullable := false
	if e.NullSafe && types.ContainsNull(recv) {
		recv, nullable = types.RemoveNull(recv), true
	}
	var out []*types.Type
	for _, m := range recv.Members() {
		class := m.ClassName()
		if class == "" {
			return types.Unknown()
		}
		p, l := s.Table.FindProperty(class, e.Property)
		if p == nil || (l != symbols.Declared && l != symbols.Magic) {
			return types.Unknown()
		}
		out = append(out, types.Substitute(p.Effective(), m))
	}
	if nullable {
		out = append(out, types.Null())
	}
	return types.NormalizeUnion(out...)
}

func (s *Scope) classConstType(e *ast.ClassConstFetch) *types.Type {
	if strings.EqualFold(e.Const, "class") {
		return types.String()
	}
	name, ok := s.ClassName(e.Class)
	if !ok {
		return types.Unknown()
	}
	k, l := s.Table.FindConstant(name, e.Const)
	if l != symbols.Declared || k == nil {
		return types.Unknown()
	}
	if k.EnumCase {
		return types.ClassType(k.Class)
	}
	if k.Type == nil {
		return types.Unknown()
	}
	return k.Type
}

// ClassName resolves a class reference, binding self, static and parent to the class
// being analysed. ok is false when the reference cannot be bound.
func (s *Scope) ClassName(n *ast.Name) (string, bool) {
	if n == nil {
		return "", false
	}
	if sp := n.Special(); sp != "" {
		return s.Class.Resolve(sp)
	}
	return n.Resolved, n.Resolved != ""
}

// FunctionForCall finds the function a named call reaches, honouring the global
// fallback of unqualified names.
func (s *Scope) FunctionForCall(c *ast.Call) (*symbols.FunctionInfo, bool) {
	if c.Name == nil {
		return nil, false
	}
	return s.Table.ResolveFunction(c.Name.Resolved, c.Name.Fallback)
}

// ReceiverClass returns the class of an expression typed as exactly one class, with
// null stripped when nullSafe is set. It is empty for anything else.
func (s *Scope) ReceiverClass(e ast.Expr, nullSafe bool) string {
	t := s.TypeOf(e)
	if nullSafe {
		t = types.RemoveNull(t)
	}
	return t.ClassName()
}

// MethodForCall returns the declared method an instance call reaches, or nil when the
// receiver is not a single known class or the method is not declared.
func (s *Scope) MethodForCall(c *ast.MethodCall) *symbols.MethodInfo {
	if c.Method == "" {
		return nil
	}
	class := s.ReceiverClass(c.Receiver, c.NullSafe)
	if class == "" {
		return nil
	}
	if m, l := s.Table.FindMethod(class, c.Method); l == symbols.Declared {
		return m
	}
	return nil
}

// MethodForStaticCall is MethodForCall for Class::method() calls.
func (s *Scope) MethodForStaticCall(c *ast.StaticCall) *symbols.MethodInfo {
	if c.Method == "" {
		return nil
	}
	class, ok := s.ClassName(c.Class)
	if !ok {
		return nil
	}
	if m, l := s.Table.FindMethod(class, c.Method); l == symbols.Declared {
		return m
	}
	return nil
}

// ConstructorFor returns the constructor a `new` expression runs, if declared.
func (s *Scope) ConstructorFor(n *ast.New) *symbols.MethodInfo {
	class, ok := s.ClassName(n.Class)
	if !ok {
		return nil
	}
	if m, l := s.Table.FindMethod(class, "__construct"); l == symbols.Declared {
		return m
	}
	return nil
}

// exprKey names expressions whose narrowed type the scope can remember: variables and
// chains of named property fetches on them, and static properties.
func exprKey(e ast.Expr, s *Scope) (string, bool) {
	switch e := e.(type) {
	case *ast.Variable:
		return "$" + e.Name, true
	case *ast.PropertyFetch:
		if e.Property == "" {
			return "", false
		}
		base, ok := exprKey(e.Receiver, s)
		if !ok {
			return "", false
		}
		return base + "->" + e.Property, true
	case *ast.StaticPropertyFetch:
		class, ok := s.ClassName(e.Class)
		if !ok || e.Property == "" {
			return "", false
		}
		return strings.ToLower(class) + "::$" + e.Property, true
	}
	return "", false
}

func (s *Scope) definitenessOf(key string) Definiteness {
	if name, ok := variableKey(key); ok {
		return s.Definiteness(name)
	}
	return Always
}

func binaryType(op string, l, r *types.Type) *types.Type {
	switch op {
	case ".":
		return types.String()
	case "+", "-", "*", "**":
		l, r = types.Generalize(l), types.Generalize(r)
		if op == "+" && l.Kind() == types.KindArray && r.Kind() == types.KindArray {
			return types.Array(nil, nil)
		}
		switch {
		case l.Kind() == types.KindInt && r.Kind() == types.KindInt && op != "**":
			return types.Int()
		case isNumberKind(l) && isNumberKind(r) && (l.Kind() == types.KindFloat || r.Kind() == types.KindFloat):
			return types.Float()
		}
		return types.NormalizeUnion(types.Int(), types.Float())
	case "/":
		return types.NormalizeUnion(types.Int(), types.Float())
	case "%", "<<", ">>", "&", "|", "^":
		return types.Int()
	case "<=>":
		return types.Int()
	case "??":
		return types.NormalizeUnion(types.RemoveNull(l), r)
	case "==", "!=", "<>", "===", "!==", "<", ">", "<=", ">=", "&&", "||", "and", "or", "xor":
		return types.Bool()
	}
	return types.Unknown()
}

func isNumberKind(t *types.Type) bool {
	k := t.Kind()
	return k == types.KindInt || k == types.KindFloat
}

func numeric(t *types.Type) *types.Type {
	if isNumberKind(t) {
		return t
	}
	return types.NormalizeUnion(types.Int(), types.Float())
}

func castType(to string) *types.Type {
	switch strings.ToLower(to) {
	case "int", "integer":
		return types.Int()
	case "float", "double", "real":
		return types.Float()
	case "string", "binary":
		return types.String()
	case "bool", "boolean":
		return types.Bool()
	case "array":
		return types.Array(nil, nil)
	case "object":
		return types.Object()
	case "unset":
		return types.Null()
	}
	return types.Unknown()
}
