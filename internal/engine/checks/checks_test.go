package checks

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata/internal/core/errors"
	"strata/internal/engine/ast"
	"strata/internal/engine/issue"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

func v(name string) *ast.Variable { return &ast.Variable{Name: name} }

func str(s string) *ast.StringLit { return &ast.StringLit{Value: s} }

func num(i int64) *ast.IntLit { return &ast.IntLit{Value: i} }

func stmt(e ast.Expr) ast.Stmt { return &ast.ExprStmt{X: e} }

func set(name string, value ast.Expr) ast.Stmt {
	return stmt(&ast.Assign{Target: v(name), Value: value})
}

func args(values ...ast.Expr) []*ast.Arg {
	out := make([]*ast.Arg, 0, len(values))
	for _, x := range values {
		out = append(out, &ast.Arg{Value: x})
	}
	return out
}

func call(name string, values ...ast.Expr) *ast.Call {
	return &ast.Call{Name: ast.NewName(name), Args: args(values...)}
}

func hint(text string) *ast.TypeHint {
	if text == "" {
		return nil
	}
	return ast.NewTypeHint(text)
}

// p is a parameter; an empty type leaves it untyped.
func p(name, typ string) *ast.Param { return &ast.Param{Name: name, Type: hint(typ)} }

func params(list ...*ast.Param) []*ast.Param { return list }

func fn(name string, ps []*ast.Param, ret string, body ...ast.Stmt) *ast.FunctionDecl {
	return &ast.FunctionDecl{Name: name, Params: ps, ReturnType: hint(ret), Body: body}
}

func method(name string, ps []*ast.Param, ret string, body ...ast.Stmt) *ast.MethodDecl {
	return &ast.MethodDecl{Name: name, Params: ps, ReturnType: hint(ret), Body: body, HasBody: true}
}

func class(name string, methods ...*ast.MethodDecl) *ast.ClassDecl {
	return &ast.ClassDecl{Kind: ast.KindClass, Name: name, Methods: methods}
}

func file(stmts ...ast.Stmt) *ast.File { return &ast.File{Path: "t.php", Stmts: stmts} }

func table(t *testing.T, f *ast.File) *symbols.Table {
	t.Helper()
	tbl, err := symbols.Build([]*ast.File{f})
	require.NoError(t, err)
	return tbl
}

func analyse(t *testing.T, f *ast.File, level int, opts Options) []issue.Issue {
	t.Helper()
	return Default().Run(f, NewContext(table(t, f), level, opts))
}

func withMaybes() Options {
	opts := DefaultOptions()
	opts.ReportMaybes = true
	return opts
}

func messages(issues []issue.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.ID+": "+i.Message)
	}
	return out
}

func TestRegistryIsConsistent(t *testing.T) {
	reg := Default()
	seen := make(map[string]bool)
	levels := make(map[int]int)
	for _, c := range All() {
		assert.False(t, seen[c.ID()], "duplicate check %s", c.ID())
		seen[c.ID()] = true
		assert.GreaterOrEqual(t, c.Level(), 0)
		assert.LessOrEqual(t, c.Level(), MaxLevel)
		assert.NotEmpty(t, c.Description(), c.ID())
		levels[c.Level()]++

		got, ok := reg.Lookup(c.ID())
		require.True(t, ok, c.ID())
		assert.Equal(t, c.Level(), got.Level())
	}
	for l := 0; l <= MaxLevel; l++ {
		assert.NotZero(t, levels[l], "level %d has no checks", l)
	}

	sorted := reg.Checks()
	for i := 1; i < len(sorted); i++ {
		a, b := sorted[i-1], sorted[i]
		assert.True(t, a.Level() < b.Level() || (a.Level() == b.Level() && a.ID() < b.ID()),
			"%s before %s", a.ID(), b.ID())
	}
}

func TestRegistryRejectsDuplicatesAndBadLevels(t *testing.T) {
	c := &silentCheck{meta: meta{"x.y", "test", 3}}
	_, err := NewRegistry(c, c)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConflict))

	_, err = NewRegistry(&silentCheck{meta: meta{"x.z", "test", MaxLevel + 1}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

// marker reports one issue per run so that gating can be observed.
type marker struct{ meta }

func (m *marker) Check(file *ast.File, _ *Context) []issue.Issue {
	return []issue.Issue{issue.Error(m.id, file.Path, 1, 1, "marker")}
}

func TestLevelGating(t *testing.T) {
	var markers []Check
	for l := MaxLevel; l >= 0; l-- {
		markers = append(markers, &marker{meta{fmt.Sprintf("marker.l%d", l), "marker", l}})
	}
	reg, err := NewRegistry(markers...)
	require.NoError(t, err)

	for level := 0; level <= MaxLevel; level++ {
		got := reg.Run(file(), NewContext(nil, level, DefaultOptions()))
		require.Len(t, got, level+1, "level %d", level)
		for _, i := range got {
			var l int
			_, err := fmt.Sscanf(i.ID, "marker.l%d", &l)
			require.NoError(t, err)
			assert.LessOrEqual(t, l, level)
		}
	}

	at3 := Default().ForLevel(3)
	want := 0
	for _, c := range All() {
		if c.Level() <= 3 {
			want++
		}
	}
	assert.Len(t, at3, want)
	for _, c := range at3 {
		assert.LessOrEqual(t, c.Level(), 3, c.ID())
	}
}

func TestHigherLevelFindingsStayHiddenBelowTheirLevel(t *testing.T) {
	f := file(fn("g", nil, "void", &ast.ReturnStmt{}, &ast.EchoStmt{Args: []ast.Expr{num(1)}}))
	assert.Empty(t, analyse(t, f, 3, DefaultOptions()))

	got := analyse(t, f, 4, DefaultOptions())
	require.Len(t, got, 1, messages(got))
	assert.Equal(t, "deadCode.unreachable", got[0].ID)
}

func TestDefinedOnEveryBranch(t *testing.T) {
	f := file(fn("f", params(p("a", "bool")), "int",
		&ast.IfStmt{Cond: v("a"), Then: []ast.Stmt{set("x", num(1))}, Else: []ast.Stmt{set("x", num(2))}, HasElse: true},
		&ast.ReturnStmt{Result: v("x")},
	))
	assert.Empty(t, analyse(t, f, 1, DefaultOptions()))
}

func TestPossiblyUndefinedVariable(t *testing.T) {
	f := file(fn("f", params(p("a", "bool")), "int",
		&ast.IfStmt{Cond: v("a"), Then: []ast.Stmt{set("x", num(1))}},
		&ast.ReturnStmt{Result: v("x")},
	))
	got := analyse(t, f, 1, DefaultOptions())
	require.Len(t, got, 1, messages(got))
	assert.Equal(t, issue.SeverityWarning, got[0].Severity)
	assert.Equal(t, "variable.undefined", got[0].ID)
	assert.Equal(t, "Possibly undefined variable $x.", got[0].Message)

	never := file(fn("f", nil, "int", &ast.ReturnStmt{Result: v("x")}))
	got = analyse(t, never, 1, DefaultOptions())
	require.Len(t, got, 1, messages(got))
	assert.True(t, got[0].IsError())
	assert.Equal(t, "Undefined variable: $x", got[0].Message)
}

func TestUnionMemberMissingOnOneVariant(t *testing.T) {
	f := file(
		class("A", method("foo", nil, "void")),
		class("B"),
		fn("f", params(p("x", "A|B")), "void", stmt(&ast.MethodCall{Receiver: v("x"), Method: "foo"})),
	)
	got := analyse(t, f, 7, DefaultOptions())
	require.Len(t, got, 1, messages(got))
	assert.True(t, got[0].IsError())
	assert.Equal(t, "unionType.member", got[0].ID)
	assert.Contains(t, got[0].Message, "undefined on B")

	assert.Empty(t, analyse(t, f, 6, DefaultOptions()))

	opts := DefaultOptions()
	opts.CheckUnionTypes = false
	assert.Empty(t, analyse(t, f, 7, opts))
}

func TestUnionWithUnknownVariantIsSilent(t *testing.T) {
	f := file(
		class("A", method("foo", nil, "void")),
		fn("f", params(p("x", "A|Missing")), "void", stmt(&ast.MethodCall{Receiver: v("x"), Method: "foo"})),
	)
	got := analyse(t, f, 10, withMaybes())
	for _, i := range got {
		assert.NotEqual(t, "unionType.member", i.ID, i.Message)
	}
}

func TestNullableReceiver(t *testing.T) {
	f := file(
		class("A", method("foo", nil, "void")),
		fn("f", params(p("x", "?A")), "void", stmt(&ast.MethodCall{Receiver: v("x"), Method: "foo"})),
	)
	got := analyse(t, f, 8, withMaybes())
	require.Len(t, got, 1, messages(got))
	assert.Equal(t, issue.SeverityWarning, got[0].Severity)
	assert.Equal(t, "nullable.access", got[0].ID)
	assert.True(t, strings.HasPrefix(got[0].Message, "Cannot call method foo() on "), got[0].Message)

	assert.Empty(t, analyse(t, f, 8, DefaultOptions()))
	assert.Empty(t, analyse(t, f, 7, withMaybes()))

	nullSafe := file(
		class("A", method("foo", nil, "void")),
		fn("f", params(p("x", "?A")), "void", stmt(&ast.MethodCall{Receiver: v("x"), Method: "foo", NullSafe: true})),
	)
	assert.Empty(t, analyse(t, nullSafe, 10, withMaybes()))
}

func TestSilentChecks(t *testing.T) {
	var silent []string
	sample := file(
		fn("f", params(p("items", "array")), "array", &ast.ReturnStmt{Result: v("items")}),
	)
	tbl := table(t, sample)
	for _, c := range All() {
		if !IsSilent(c) {
			continue
		}
		silent = append(silent, c.ID())
		assert.Empty(t, c.Check(sample, NewContext(tbl, MaxLevel, withMaybes())))
	}
	assert.ElementsMatch(t, []string{"missingType.iterableValue", "missingType.generics"}, silent)
}

// fixtures holds, for every implemented check, a program it must flag.
func fixtures() map[string]*ast.File {
	takesInt := fn("g", params(p("x", "int")), "void")
	withProp := &ast.ClassDecl{Kind: ast.KindClass, Name: "A", Properties: []*ast.PropertyDecl{{Name: "p", Type: hint("int")}}}
	return map[string]*ast.File{
		"function.notFound": file(stmt(call("missing_fn"))),
		"class.notFound":    file(stmt(&ast.New{Class: ast.NewName("Missing")})),
		"staticMethod.notFound": file(class("A"),
			stmt(&ast.StaticCall{Class: ast.NewName("A"), Method: "nope"})),
		"constant.notFound": file(stmt(&ast.ConstFetch{Name: ast.NewName("NOPE")})),
		"class.nameCase":    file(class("Foo"), stmt(&ast.New{Class: ast.NewName("foo")})),
		"staticProperty.notFound": file(class("A"),
			stmt(&ast.StaticPropertyFetch{Class: ast.NewName("A"), Property: "nope"})),
		"classConstant.notFound": file(class("A"),
			stmt(&ast.ClassConstFetch{Class: ast.NewName("A"), Const: "NOPE"})),
		"arguments.count": file(takesInt, stmt(call("g"))),
		"return.missing":  file(fn("g", nil, "int")),
		"new.static": file(class("A",
			method("__construct", nil, ""),
			method("make", nil, "static", &ast.ReturnStmt{Result: &ast.New{Class: ast.NewName("static")}}),
		)),
		"variable.undefined": file(fn("g", nil, "void", &ast.EchoStmt{Args: []ast.Expr{v("x")}})),
		"method.magic": file(
			class("A", method("__call", params(p("n", "string"), p("a", "array")), "mixed", &ast.ReturnStmt{Result: num(1)})),
			fn("g", params(p("a", "A")), "void", stmt(&ast.MethodCall{Receiver: v("a"), Method: "foo"})),
		),
		"property.magic": file(
			class("A", method("__get", params(p("n", "string")), "mixed", &ast.ReturnStmt{Result: num(1)})),
			fn("g", params(p("a", "A")), "void", &ast.EchoStmt{Args: []ast.Expr{&ast.PropertyFetch{Receiver: v("a"), Property: "foo"}}}),
		),
		"constructor.unusedParameter": file(class("A", method("__construct", params(p("x", "int")), ""))),
		"isset.variable": file(fn("g", params(p("x", "int")), "void", stmt(&ast.Isset{Args: []ast.Expr{v("x")}}))),
		"method.notFound": file(class("A"),
			fn("g", params(p("a", "A")), "void", stmt(&ast.MethodCall{Receiver: v("a"), Method: "nope"}))),
		"property.notFound": file(class("A"),
			fn("g", params(p("a", "A")), "void", &ast.EchoStmt{Args: []ast.Expr{&ast.PropertyFetch{Receiver: v("a"), Property: "nope"}}})),
		"method.argumentCount": file(class("A", method("m", params(p("x", "int")), "void")),
			fn("g", params(p("a", "A")), "void", stmt(&ast.MethodCall{Receiver: v("a"), Method: "m"}))),
		"void.pure":   file(fn("g", nil, "void", &ast.ReturnStmt{})),
		"return.type": file(fn("g", nil, "int", &ast.ReturnStmt{Result: str("s")})),
		"property.type": file(withProp,
			fn("g", params(p("a", "A")), "void", stmt(&ast.Assign{Target: &ast.PropertyFetch{Receiver: v("a"), Property: "p"}, Value: str("s")}))),
		"deadCode.unreachable":   file(fn("g", nil, "void", &ast.ReturnStmt{}, &ast.EchoStmt{Args: []ast.Expr{num(1)}})),
		"function.resultUnused":  file(stmt(call("strlen", str("x")))),
		"condition.alwaysFalse":  file(&ast.IfStmt{Cond: &ast.BoolLit{Value: false}}),
		"binaryOp.invalid": file(fn("g", params(p("a", "array")), "int",
			&ast.ReturnStmt{Result: &ast.Binary{Op: "-", L: v("a"), R: num(1)}})),
		"property.onlyWritten": file(&ast.ClassDecl{Kind: ast.KindClass, Name: "A",
			Properties: []*ast.PropertyDecl{{Name: "p", Type: hint("int"), Visibility: ast.Private}},
			Methods: []*ast.MethodDecl{method("__construct", nil, "",
				stmt(&ast.Assign{Target: &ast.PropertyFetch{Receiver: v("this"), Property: "p"}, Value: num(1)}))},
		}),
		"argument.type":        file(takesInt, stmt(call("g", str("s")))),
		"missingType.parameter": file(fn("g", params(p("x", "")), "void")),
		"missingType.return":    file(fn("g", nil, "")),
		"missingType.property": file(&ast.ClassDecl{Kind: ast.KindClass, Name: "A",
			Properties: []*ast.PropertyDecl{{Name: "p"}}}),
		"function.alreadyNarrowedType": file(fn("g", params(p("s", "string")), "bool",
			&ast.ReturnStmt{Result: call("is_string", v("s"))})),
		"phpDoc.typeMismatch": file(&ast.FunctionDecl{Name: "g", Params: params(p("x", "int")), ReturnType: hint("void"),
			Doc: &ast.Doc{Params: map[string]*types.Type{"x": types.ClassType("Foo")}}}),
		"unionType.member": file(class("A", method("foo", nil, "void")), class("B"),
			fn("f", params(p("x", "A|B")), "void", stmt(&ast.MethodCall{Receiver: v("x"), Method: "foo"}))),
		"nullable.access": file(class("A", method("foo", nil, "void")),
			fn("f", params(p("x", "?A")), "void", stmt(&ast.MethodCall{Receiver: v("x"), Method: "foo"}))),
		"mixed.explicitUsage": file(takesInt, fn("h", params(p("m", "mixed")), "void", stmt(call("g", v("m"))))),
		"mixed.implicitUsage": file(takesInt, fn("h", params(p("m", "")), "void", stmt(call("g", v("m"))))),
		"echo.nonString":      file(fn("g", params(p("a", "array")), "void", &ast.EchoStmt{Args: []ast.Expr{v("a")}})),
	}
}

func TestEveryImplementedCheckDetectsItsFixture(t *testing.T) {
	reg := Default()
	fx := fixtures()
	for _, c := range reg.Checks() {
		if IsSilent(c) {
			continue
		}
		f, ok := fx[c.ID()]
		if !assert.True(t, ok, "no fixture for %s", c.ID()) {
			continue
		}
		t.Run(c.ID(), func(t *testing.T) {
			got := c.Check(f, NewContext(table(t, f), MaxLevel, withMaybes()))
			assert.NotEmpty(t, got)
			for _, iss := range got {
				assert.Equal(t, c.ID(), iss.ID, "issues carry the identifier the check is registered under")
			}
		})
	}
}

func TestArgumentCountMessages(t *testing.T) {
	f := file(
		fn("g", params(p("a", "int"), &ast.Param{Name: "b", Type: hint("int"), Default: num(0)}), "void"),
		stmt(call("g")),
		stmt(call("g", num(1), num(2), num(3))),
		stmt(call("g", num(1))),
	)
	got := analyse(t, f, 0, DefaultOptions())
	require.Len(t, got, 2, messages(got))
	assert.Equal(t, "Function g invoked with 0 parameters, 1-2 required.", got[0].Message)
	assert.Equal(t, "Function g invoked with 3 parameters, 1-2 required.", got[1].Message)

	spread := file(
		fn("g", params(p("a", "int")), "void"),
		stmt(&ast.Call{Name: ast.NewName("g"), Args: []*ast.Arg{{Value: v("xs"), Spread: true}, {Value: num(1)}}}),
	)
	assert.Empty(t, analyse(t, spread, 0, DefaultOptions()))
}

func TestFuncGetArgsMakesSignatureVariadic(t *testing.T) {
	f := file(
		fn("g", nil, "void", stmt(call("func_get_args"))),
		stmt(call("g", num(1), num(2))),
	)
	for _, i := range analyse(t, f, 0, DefaultOptions()) {
		assert.NotEqual(t, "arguments.count", i.ID, i.Message)
	}
}

func TestReturnMissingAcceptsExhaustiveSwitch(t *testing.T) {
	exhaustive := file(fn("g", params(p("a", "int")), "int",
		&ast.SwitchStmt{Subject: v("a"), Cases: []*ast.CaseClause{
			{Test: num(1), Body: []ast.Stmt{&ast.ReturnStmt{Result: num(1)}}},
			{Body: []ast.Stmt{&ast.ReturnStmt{Result: num(2)}}},
		}},
	))
	assert.Empty(t, analyse(t, exhaustive, 0, DefaultOptions()))

	partial := file(fn("g", params(p("a", "int")), "int",
		&ast.SwitchStmt{Subject: v("a"), Cases: []*ast.CaseClause{
			{Test: num(1), Body: []ast.Stmt{&ast.ReturnStmt{Result: num(1)}}},
		}},
	))
	got := analyse(t, partial, 0, DefaultOptions())
	require.Len(t, got, 1, messages(got))
	assert.Equal(t, "Function g() should return int but return statement is missing.", got[0].Message)
}

func TestExistenceGuardSuppressesNotFound(t *testing.T) {
	f := file(
		&ast.IfStmt{
			Cond: call("function_exists", str("optional_fn")),
			Then: []ast.Stmt{stmt(call("optional_fn"))},
		},
		&ast.IfStmt{
			Cond: call("class_exists", str("Optional")),
			Then: []ast.Stmt{stmt(&ast.New{Class: ast.NewName("Optional")})},
		},
	)
	assert.Empty(t, analyse(t, f, MaxLevel, withMaybes()))
}

func TestPropertyOnlyWrittenSkipsSerializedClasses(t *testing.T) {
	f := file(&ast.ClassDecl{Kind: ast.KindClass, Name: "A",
		Properties: []*ast.PropertyDecl{{Name: "p", Type: hint("int"), Visibility: ast.Private}},
		Methods: []*ast.MethodDecl{
			method("__construct", nil, "", stmt(&ast.Assign{Target: &ast.PropertyFetch{Receiver: v("this"), Property: "p"}, Value: num(1)})),
			method("__serialize", nil, "array", &ast.ReturnStmt{Result: &ast.ArrayLit{}}),
		},
	})
	for _, i := range analyse(t, f, 4, DefaultOptions()) {
		assert.NotEqual(t, "property.onlyWritten", i.ID, i.Message)
	}
}

// exempt lists checks whose whole purpose is to report symbols absent from the table.
var exempt = map[string]bool{
	"function.notFound": true,
	"class.notFound":    true,
	"constant.notFound": true,
}

// randomProgram builds top-level code that only touches undeclared symbols and
// classes whose ancestry is unknown. A sound analyser has nothing to say about it.
func randomProgram(rng *rand.Rand) *ast.File {
	var stmts []ast.Stmt
	for i := 0; i < 3; i++ {
		stmts = append(stmts, &ast.ClassDecl{Kind: ast.KindClass, Name: fmt.Sprintf("Partial%d", i), Parent: fmt.Sprintf("Missing%d", i)})
	}
	className := func() *ast.Name {
		if rng.Intn(2) == 0 {
			return ast.NewName(fmt.Sprintf("Partial%d", rng.Intn(3)))
		}
		return ast.NewName(fmt.Sprintf("Missing%d", rng.Intn(5)))
	}
	vars := []string{"a", "b", "c", "d"}
	variable := func() *ast.Variable { return v(vars[rng.Intn(len(vars))]) }

	var expr func(depth int) ast.Expr
	expr = func(depth int) ast.Expr {
		var sub []ast.Expr
		if depth < 2 {
			for j := rng.Intn(3); j > 0; j-- {
				sub = append(sub, expr(depth+1))
			}
		}
		switch rng.Intn(9) {
		case 0:
			return call(fmt.Sprintf("missing_fn_%d", rng.Intn(5)), sub...)
		case 1:
			return &ast.New{Class: className(), Args: args(sub...)}
		case 2:
			return &ast.StaticCall{Class: className(), Method: fmt.Sprintf("m%d", rng.Intn(3)), Args: args(sub...)}
		case 3:
			return &ast.MethodCall{Receiver: variable(), Method: fmt.Sprintf("m%d", rng.Intn(3)), Args: args(sub...), NullSafe: rng.Intn(2) == 0}
		case 4:
			return &ast.PropertyFetch{Receiver: variable(), Property: fmt.Sprintf("p%d", rng.Intn(3))}
		case 5:
			return &ast.ClassConstFetch{Class: className(), Const: fmt.Sprintf("C%d", rng.Intn(3))}
		case 6:
			return &ast.ConstFetch{Name: ast.NewName(fmt.Sprintf("MISSING_%d", rng.Intn(3)))}
		case 7:
			return &ast.StaticPropertyFetch{Class: className(), Property: fmt.Sprintf("s%d", rng.Intn(3))}
		}
		return variable()
	}

	for i := rng.Intn(12) + 1; i > 0; i-- {
		switch rng.Intn(4) {
		case 0:
			stmts = append(stmts, stmt(expr(0)))
		case 1:
			var cond ast.Expr = &ast.Instanceof{X: variable(), Class: className()}
			if rng.Intn(2) == 0 {
				cond = expr(1)
			}
			stmts = append(stmts, &ast.IfStmt{
				Cond: cond,
				Then: []ast.Stmt{set(variable().Name, expr(1))},
				Else: []ast.Stmt{set(variable().Name, expr(1))}, HasElse: rng.Intn(2) == 0,
			})
		case 2:
			stmts = append(stmts, &ast.EchoStmt{Args: []ast.Expr{expr(0)}})
		default:
			stmts = append(stmts, set(variable().Name, expr(0)))
		}
	}
	return file(stmts...)
}

func TestUnknownSymbolsNeverProduceFalsePositives(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	opts := withMaybes()
	for i := 0; i < 300; i++ {
		f := randomProgram(rng)
		for _, got := range analyse(t, f, MaxLevel, opts) {
			if exempt[got.ID] {
				continue
			}
			t.Fatalf("program %d: unexpected %s: %s", i, got.ID, got.Message)
		}
	}
}

func TestMessagesDoNotLeakInternalNames(t *testing.T) {
	for id, f := range fixtures() {
		for _, got := range analyse(t, f, MaxLevel, withMaybes()) {
			assert.False(t, strings.Contains(got.Message, "%!"), "%s: %s", id, got.Message)
		}
	}
}

func TestTraitMembersResolveAgainstTheUsingClass(t *testing.T) {
	greets := &ast.ClassDecl{Kind: ast.KindTrait, Name: "Greets", Methods: []*ast.MethodDecl{
		method("greet", nil, "string", &ast.ReturnStmt{Result: &ast.Binary{Op: ".",
			L: &ast.MethodCall{Receiver: v("this"), Method: "name"},
			R: &ast.PropertyFetch{Receiver: v("this"), Property: "title"}}}),
		method("label", nil, "string", &ast.ReturnStmt{Result: &ast.Binary{Op: ".",
			L: &ast.ClassConstFetch{Class: ast.NewName("self"), Const: "PREFIX"},
			R: &ast.StaticCall{Class: ast.NewName("static"), Method: "defaults"}}}),
		method("copy", nil, "self", &ast.ReturnStmt{Result: &ast.Clone{X: v("this")}}),
	}}
	defaults := method("defaults", nil, "string", &ast.ReturnStmt{Result: str("")})
	defaults.Static = true
	person := &ast.ClassDecl{Kind: ast.KindClass, Final: true, Name: "Person", Traits: []string{"Greets"},
		Constants:  []*ast.ClassConstDecl{{Name: "PREFIX", Value: str("Mx ")}},
		Properties: []*ast.PropertyDecl{{Name: "title", Type: hint("string")}},
		Methods: []*ast.MethodDecl{
			method("name", nil, "string", &ast.ReturnStmt{Result: str("Ada")}),
			defaults,
		},
	}
	for level := 0; level <= 6; level++ {
		assert.Empty(t, messages(analyse(t, file(greets, person), level, DefaultOptions())), "level %d", level)
	}

	// self in a trait signature is the class the method is called on.
	use := file(greets, person, fn("f", params(p("x", "Person")), "void",
		stmt(&ast.MethodCall{Receiver: &ast.MethodCall{Receiver: v("x"), Method: "copy"}, Method: "nope"})))
	got := analyse(t, use, 2, DefaultOptions())
	require.Len(t, got, 1, messages(got))
	assert.Equal(t, "method.notFound", got[0].ID)
	assert.Contains(t, got[0].Message, "Person::nope()")
}

func withID(issues []issue.Issue, id string) []issue.Issue {
	var out []issue.Issue
	for _, i := range issues {
		if i.ID == id {
			out = append(out, i)
		}
	}
	return out
}

func TestClassNameCase(t *testing.T) {
	f := file(
		&ast.ClassDecl{Kind: ast.KindInterface, Name: "Shape"},
		&ast.ClassDecl{Kind: ast.KindClass, Name: "Square", Interfaces: []string{"shape"}},
		&ast.ClassDecl{Kind: ast.KindClass, Name: "Box", Parent: "Square", Final: true, Methods: []*ast.MethodDecl{
			method("make", nil, "static", &ast.ReturnStmt{Result: &ast.New{Class: ast.NewName("static")}}),
		}},
		stmt(&ast.ClassConstFetch{Class: ast.NewName("BOX"), Const: "class"}),
		stmt(&ast.New{Class: ast.NewName("Box")}),
	)
	got := withID(analyse(t, f, 0, DefaultOptions()), "class.nameCase")
	assert.ElementsMatch(t, []string{
		"class.nameCase: Class Shape referenced with incorrect case: shape.",
		"class.nameCase: Class Box referenced with incorrect case: BOX.",
	}, messages(got))
}

func TestStaticPropertyNotFoundIsLevelZero(t *testing.T) {
	f := file(
		&ast.ClassDecl{Kind: ast.KindClass, Name: "A", Properties: []*ast.PropertyDecl{{Name: "known", Static: true}}},
		stmt(&ast.StaticPropertyFetch{Class: ast.NewName("A"), Property: "known"}),
		stmt(&ast.StaticPropertyFetch{Class: ast.NewName("A"), Property: "nope"}),
		stmt(&ast.Isset{Args: []ast.Expr{&ast.StaticPropertyFetch{Class: ast.NewName("A"), Property: "guarded"}}}),
	)
	got := analyse(t, f, 0, DefaultOptions())
	require.Len(t, got, 1, messages(got))
	assert.Equal(t, "staticProperty.notFound", got[0].ID)
	assert.Equal(t, "Access to an undefined static property A::$nope.", got[0].Message)
	assert.Empty(t, withID(analyse(t, f, 2, DefaultOptions()), "property.notFound"))
}

func TestVoidPure(t *testing.T) {
	f := file(
		fn("noop", nil, "void", stmt(&ast.BoolLit{Value: true}), &ast.ReturnStmt{}),
		fn("logs", nil, "void", &ast.EchoStmt{Args: []ast.Expr{str("x")}}),
		fn("empty", nil, "void"),
		fn("calls", nil, "void", stmt(call("strlen", str("x")))),
		&ast.ClassDecl{Kind: ast.KindClass, Name: "A", Methods: []*ast.MethodDecl{
			method("hook", nil, "void", &ast.ReturnStmt{}),
			{Name: "sealed", ReturnType: hint("void"), Body: []ast.Stmt{&ast.ReturnStmt{}}, HasBody: true, Visibility: ast.Private},
		}},
	)
	got := withID(analyse(t, f, 2, DefaultOptions()), "void.pure")
	assert.ElementsMatch(t, []string{
		"void.pure: Function noop() returns void but does not have any side effects.",
		"void.pure: Method A::sealed() returns void but does not have any side effects.",
	}, messages(got))
	for _, i := range got {
		assert.NotEmpty(t, i.Tip)
	}
}

func TestInvalidBinaryOperations(t *testing.T) {
	f := file(
		class("A"),
		fn("g", params(p("xs", "array"), p("ys", "array"), p("n", "int"), p("a", "A"), p("u", "A|int")), "void",
			set("r", &ast.Binary{Op: "+", L: v("xs"), R: v("ys")}),
			set("r", &ast.Binary{Op: "*", L: v("a"), R: num(2)}),
			set("r", &ast.Binary{Op: "%", L: v("n"), R: num(0)}),
			set("r", &ast.Binary{Op: "-", L: v("u"), R: num(1)}),
			set("r", &ast.Binary{Op: "/", L: v("n"), R: num(2)}),
		),
	)
	got := withID(analyse(t, f, 4, DefaultOptions()), "binaryOp.invalid")
	require.Len(t, got, 2, messages(got))
	for _, i := range got {
		assert.True(t, i.IsError(), i.Message)
	}
	assert.Contains(t, messages(got)[0]+messages(got)[1], `Binary operation "*" between A and`)
	assert.Contains(t, messages(got)[0]+messages(got)[1], `Binary operation "%" between int and`)

	got = withID(analyse(t, f, 7, withMaybes()), "binaryOp.invalid")
	require.Len(t, got, 3, messages(got))
}

func TestAlreadyNarrowedType(t *testing.T) {
	f := file(fn("g", params(p("x", ""), p("maybe", "?string")), "void",
		&ast.IfStmt{Cond: call("is_int", v("x")), Then: []ast.Stmt{
			&ast.IfStmt{Cond: call("is_int", v("x"))},
		}},
		&ast.IfStmt{Cond: call("is_string", v("maybe"))},
	))
	got := withID(analyse(t, f, 6, DefaultOptions()), "function.alreadyNarrowedType")
	require.Len(t, got, 1, messages(got))
	assert.Equal(t, "Call to function is_int() with int will always evaluate to true.", got[0].Message)
	assert.Empty(t, withID(analyse(t, f, 5, DefaultOptions()), "function.alreadyNarrowedType"))
}

func TestEchoNonString(t *testing.T) {
	f := file(
		&ast.ClassDecl{Kind: ast.KindClass, Name: "Sealed", Final: true},
		class("Open"),
		class("Text", method("__toString", nil, "string", &ast.ReturnStmt{Result: str("t")})),
		fn("g", params(p("s", "Sealed"), p("o", "Open"), p("t", "Text"), p("n", "int")), "void",
			&ast.EchoStmt{Args: []ast.Expr{v("s"), v("o"), v("t"), v("n")}}),
	)
	got := withID(analyse(t, f, 10, withMaybes()), "echo.nonString")
	assert.ElementsMatch(t, []string{
		"echo.nonString: Parameter #1 (Sealed) of echo cannot be converted to string.",
		"echo.nonString: Parameter #2 (Open) of echo cannot be converted to string.",
	}, messages(got))

	got = withID(analyse(t, f, 10, DefaultOptions()), "echo.nonString")
	require.Len(t, got, 1, messages(got))
	assert.True(t, got[0].IsError())
	assert.Empty(t, withID(analyse(t, f, 9, withMaybes()), "echo.nonString"))
}
