package parser

import (
	"strings"
	"testing"

	"strata/internal/engine/ast"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	file, err := New().ParseFile("test.php", []byte(src))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	return file
}

// find collects every node of type T in file, in source order.
func find[T ast.Node](file *ast.File) []T {
	var out []T
	ast.InspectStmts(file.Stmts, func(n ast.Node) bool {
		if v, ok := n.(T); ok {
			out = append(out, v)
		}
		return true
	})
	return out
}

func one[T ast.Node](t *testing.T, file *ast.File) T {
	t.Helper()
	all := find[T](file)
	if len(all) != 1 {
		var zero T
		t.Fatalf("expected exactly one %T, found %d", zero, len(all))
	}
	return all[0]
}

func TestNamesResolveAgainstNamespaceAndImports(t *testing.T) {
	file := parse(t, `<?php
namespace App\Http;

use Lib\Foo as Bar;
use function Lib\helper;
use const Lib\LIMIT;

new Bar();
new \Other\Thing();
new Local();
strlen('x');
helper();
echo LIMIT, PHP_EOL;
`)
	news := find[*ast.New](file)
	if len(news) != 3 {
		t.Fatalf("expected 3 new expressions, got %d", len(news))
	}
	want := []string{`Lib\Foo`, `Other\Thing`, `App\Http\Local`}
	for i, n := range news {
		if n.Class.Resolved != want[i] {
			t.Errorf("new #%d resolved to %q, want %q", i, n.Class.Resolved, want[i])
		}
	}

	calls := find[*ast.Call](file)
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Name.Resolved != `App\Http\strlen` || calls[0].Name.Fallback != "strlen" {
		t.Errorf("unqualified call: resolved %q fallback %q", calls[0].Name.Resolved, calls[0].Name.Fallback)
	}
	if calls[1].Name.Resolved != `Lib\helper` || calls[1].Name.Fallback != "" {
		t.Errorf("imported call: resolved %q fallback %q", calls[1].Name.Resolved, calls[1].Name.Fallback)
	}

	consts := find[*ast.ConstFetch](file)
	if len(consts) != 2 || consts[0].Name.Resolved != `Lib\LIMIT` || consts[1].Name.Fallback != "PHP_EOL" {
		t.Fatalf("unexpected constant resolution: %+v", consts)
	}
}

func TestBracedNamespacesResetImports(t *testing.T) {
	file := parse(t, `<?php
namespace A { use X\Y; new Y(); }
namespace { new Y(); }
`)
	news := find[*ast.New](file)
	if len(news) != 2 {
		t.Fatalf("expected 2 new expressions, got %d", len(news))
	}
	if news[0].Class.Resolved != `X\Y` || news[1].Class.Resolved != "Y" {
		t.Fatalf("got %q and %q", news[0].Class.Resolved, news[1].Class.Resolved)
	}
}

func TestClassDeclaration(t *testing.T) {
	file := parse(t, `<?php
namespace Shop;

/**
 * @property-read int $total
 * @method static self make()
 */
final class Cart extends Base implements \Countable, HasItems
{
    use Totals;

    public const MAX = 10;
    private ?string $label = null;
    protected static array $items = [];

    public function __construct(private readonly int $owner, int ...$ids) {}

    abstract protected function sum(int &$acc = 0): int;

    /** @deprecated */
    public static function count(): int { return 0; }
}
`)
	c := one[*ast.ClassDecl](t, file)
	if c.Name != `Shop\Cart` || !c.Final || c.Parent != `Shop\Base` {
		t.Fatalf("header: name %q final %v parent %q", c.Name, c.Final, c.Parent)
	}
	if strings.Join(c.Interfaces, ",") != `Countable,Shop\HasItems` {
		t.Errorf("interfaces: %v", c.Interfaces)
	}
	if len(c.Traits) != 1 || c.Traits[0] != `Shop\Totals` {
		t.Errorf("traits: %v", c.Traits)
	}
	if len(c.Constants) != 1 || c.Constants[0].Name != "MAX" {
		t.Errorf("constants: %+v", c.Constants)
	}

	if len(c.Properties) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(c.Properties))
	}
	label := c.Properties[0]
	if label.Name != "label" || label.Visibility != ast.Private || label.Type == nil || label.Type.Text != "?string" {
		t.Errorf("label property: %+v", label)
	}
	if _, ok := label.Default.(*ast.NullLit); !ok {
		t.Errorf("label default: %T", label.Default)
	}
	if items := c.Properties[1]; !items.Static || items.Visibility != ast.Protected {
		t.Errorf("items property: %+v", items)
	}

	if len(c.Methods) != 3 {
		t.Fatalf("expected 3 methods, got %d", len(c.Methods))
	}
	ctor := c.Methods[0]
	if len(ctor.Params) != 2 {
		t.Fatalf("constructor params: %d", len(ctor.Params))
	}
	if p := ctor.Params[0]; p.Name != "owner" || p.Promoted != "private" || !p.Readonly {
		t.Errorf("promoted param: %+v", p)
	}
	if p := ctor.Params[1]; p.Name != "ids" || !p.Variadic {
		t.Errorf("variadic param: %+v", p)
	}

	sum := c.Methods[1]
	if !sum.Abstract || sum.HasBody || sum.Visibility != ast.Protected {
		t.Errorf("abstract method: %+v", sum)
	}
	if p := sum.Params[0]; !p.ByRef || p.Default == nil {
		t.Errorf("by-ref param: %+v", p)
	}

	count := c.Methods[2]
	if !count.Static || !count.HasBody || count.Doc == nil || !count.Doc.Deprecated {
		t.Errorf("static method: %+v", count)
	}

	if c.Doc == nil || len(c.Doc.Properties) != 1 || !c.Doc.Properties[0].ReadOnly {
		t.Fatalf("class doc properties: %+v", c.Doc)
	}
	if len(c.Doc.Methods) != 1 || c.Doc.Methods[0].Name != "make" || !c.Doc.Methods[0].Static {
		t.Errorf("class doc methods: %+v", c.Doc.Methods)
	}
}

func TestEnumAndInterface(t *testing.T) {
	file := parse(t, `<?php
interface Shape extends Countable, Stringable {}
enum Suit: string implements Shape {
    case Hearts = 'H';
    case Spades = 'S';
}
`)
	classes := find[*ast.ClassDecl](file)
	if len(classes) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(classes))
	}
	iface, enum := classes[0], classes[1]
	if iface.Kind != ast.KindInterface || len(iface.Interfaces) != 2 {
		t.Errorf("interface: %+v", iface)
	}
	if enum.Kind != ast.KindEnum || enum.BackingType == nil || enum.BackingType.Text != "string" {
		t.Errorf("enum: %+v", enum)
	}
	if len(enum.Cases) != 2 || enum.Cases[1].Name != "Spades" {
		t.Fatalf("cases: %+v", enum.Cases)
	}
	if lit, ok := enum.Cases[0].Value.(*ast.StringLit); !ok || lit.Value != "H" {
		t.Errorf("case value: %#v", enum.Cases[0].Value)
	}
}

func TestControlFlow(t *testing.T) {
	file := parse(t, `<?php
foreach ($rows as $key => &$row) { continue; }
foreach ($rows as $row): endforeach;
for ($i = 0, $j = 1; $i < 10; $i++) { break 2; }
switch ($x) { case 1: echo 'a'; break; default: echo 'b'; }
try { risky(); } catch (A | B $e) { } finally { }
if ($a) { } elseif ($b) { } else { }
while (true);
`)
	loops := find[*ast.ForeachStmt](file)
	if len(loops) != 2 {
		t.Fatalf("expected 2 foreach loops, got %d", len(loops))
	}
	if loops[0].Key == nil || !loops[0].ByRef {
		t.Errorf("keyed by-ref foreach: %+v", loops[0])
	}
	if v, ok := loops[1].Value.(*ast.Variable); !ok || v.Name != "row" || loops[1].Key != nil {
		t.Errorf("plain foreach: %+v", loops[1])
	}

	f := one[*ast.ForStmt](t, file)
	if len(f.Init) != 2 || len(f.Cond) != 1 || len(f.Step) != 1 {
		t.Errorf("for header: init %d cond %d step %d", len(f.Init), len(f.Cond), len(f.Step))
	}

	sw := one[*ast.SwitchStmt](t, file)
	if len(sw.Cases) != 2 || sw.Cases[1].Test != nil || len(sw.Cases[0].Body) != 2 {
		t.Errorf("switch: %+v", sw.Cases)
	}

	try := one[*ast.TryStmt](t, file)
	if len(try.Catches) != 1 || len(try.Catches[0].Types) != 2 || try.Catches[0].Var != "e" || !try.HasFinally {
		t.Errorf("try: %+v", try)
	}

	ifs := one[*ast.IfStmt](t, file)
	if len(ifs.ElseIfs) != 1 || !ifs.HasElse {
		t.Errorf("if: %+v", ifs)
	}
}

func TestBreakLevels(t *testing.T) {
	file := parse(t, "<?php while (1) { while (2) { break 2; } break; }")
	breaks := find[*ast.BreakStmt](file)
	if len(breaks) != 2 || breaks[0].Levels != 2 || breaks[1].Levels != 1 {
		t.Fatalf("breaks: %+v", breaks)
	}
}

func TestExpressions(t *testing.T) {
	file := parse(t, `<?php
$a = [1, 'k' => 2.5, ...$rest];
[$x, $y] = $pair;
$n += 0x1F;
$s = "hello {$name}!";
$plain = "tab\there";
$f = static fn(int $v): int => $v * 2;
$g = function ($v) use (&$total, $scale) { return $v; };
$m = match ($v) { 1, 2 => 'low', default => 'high' };
$o?->call()->prop;
Foo::$count;
Foo::BAR;
static::make(...);
isset($a['k'], $b);
empty($c);
(int) $d;
!$e;
$i++;
--$j;
$t = $cond ? : $other;
$z = $obj instanceof Foo;
exit(1);
`)
	arr := find[*ast.ArrayLit](file)
	if len(arr) != 2 {
		t.Fatalf("expected 2 array literals, got %d", len(arr))
	}
	if items := arr[0].Items; len(items) != 3 || items[1].Key == nil || !items[2].Spread {
		t.Errorf("array items: %+v", items)
	}
	if !arr[1].List {
		t.Errorf("destructuring should be a list")
	}

	var compound *ast.Assign
	for _, a := range find[*ast.Assign](file) {
		if a.Op != "" {
			compound = a
		}
	}
	if compound == nil || compound.Op != "+" {
		t.Fatalf("compound assignment: %+v", compound)
	}
	if lit, ok := compound.Value.(*ast.IntLit); !ok || lit.Value != 31 {
		t.Errorf("hex literal: %#v", compound.Value)
	}

	var interpolated, plain *ast.StringLit
	for _, s := range find[*ast.StringLit](file) {
		if s.Interpolated {
			interpolated = s
		}
		if strings.HasPrefix(s.Value, "tab") {
			plain = s
		}
	}
	if interpolated == nil || len(interpolated.Parts) != 1 {
		t.Errorf("interpolated string: %+v", interpolated)
	}
	if plain == nil || plain.Value != "tab\there" {
		t.Errorf("escaped string: %+v", plain)
	}

	arrow := one[*ast.ArrowFunc](t, file)
	if !arrow.Static || len(arrow.Params) != 1 || arrow.ReturnType == nil {
		t.Errorf("arrow fn: %+v", arrow)
	}
	closure := one[*ast.Closure](t, file)
	if len(closure.Uses) != 2 || !closure.Uses[0].ByRef || closure.Uses[1].Name != "scale" {
		t.Errorf("closure uses: %+v", closure.Uses)
	}

	m := one[*ast.Match](t, file)
	if len(m.Arms) != 2 || len(m.Arms[0].Conds) != 2 || m.Arms[1].Conds != nil {
		t.Errorf("match arms: %+v", m.Arms)
	}

	mc := one[*ast.MethodCall](t, file)
	if mc.Method != "call" || !mc.NullSafe {
		t.Errorf("nullsafe call: %+v", mc)
	}
	if pf := one[*ast.PropertyFetch](t, file); pf.Property != "prop" || pf.NullSafe {
		t.Errorf("property fetch: %+v", pf)
	}
	if sp := one[*ast.StaticPropertyFetch](t, file); sp.Property != "count" || sp.Class.Resolved != "Foo" {
		t.Errorf("static property: %+v", sp)
	}
	if cc := one[*ast.ClassConstFetch](t, file); cc.Const != "BAR" {
		t.Errorf("class constant: %+v", cc)
	}
	if len(find[*ast.StaticCall](file)) != 0 {
		t.Errorf("first-class callable should not lower to a call")
	}

	if is := one[*ast.Isset](t, file); len(is.Args) != 2 {
		t.Errorf("isset args: %d", len(is.Args))
	}
	one[*ast.Empty](t, file)
	if c := one[*ast.Cast](t, file); c.To != "int" {
		t.Errorf("cast: %q", c.To)
	}
	if u := one[*ast.Unary](t, file); u.Op != "!" {
		t.Errorf("unary: %q", u.Op)
	}
	incs := find[*ast.IncDec](file)
	if len(incs) != 2 || !incs[0].Inc || incs[0].Prefix || incs[1].Inc || !incs[1].Prefix {
		t.Errorf("inc/dec: %+v", incs)
	}
	if tern := one[*ast.Ternary](t, file); tern.Then != nil {
		t.Errorf("short ternary should have no then branch")
	}
	if inst := one[*ast.Instanceof](t, file); inst.Class == nil || inst.Class.Resolved != "Foo" {
		t.Errorf("instanceof: %+v", inst)
	}
	if ex := one[*ast.Exit](t, file); ex.X == nil {
		t.Errorf("exit status missing")
	}
}

func TestInlineVarAnnotation(t *testing.T) {
	file := parse(t, `<?php
/** @var \App\User $user */
$user = load();
`)
	s := one[*ast.ExprStmt](t, file)
	if s.Doc == nil || s.Doc.Var == nil || s.Doc.VarName != "user" {
		t.Fatalf("inline @var not attached: %+v", s.Doc)
	}
}

func TestTemplateTypesAreDropped(t *testing.T) {
	file := parse(t, `<?php
/**
 * @template T
 * @param T $value
 * @param int $n
 * @return T
 */
function id($value, $n) { return $value; }
`)
	fn := one[*ast.FunctionDecl](t, file)
	if fn.Doc == nil || fn.Doc.Return != nil {
		t.Fatalf("template return type should be dropped: %+v", fn.Doc)
	}
	if _, ok := fn.Doc.Params["value"]; ok {
		t.Errorf("template param type should be dropped")
	}
	if _, ok := fn.Doc.Params["n"]; !ok {
		t.Errorf("concrete param type should be kept")
	}
}

func TestStrictTypes(t *testing.T) {
	if file := parse(t, "<?php declare(strict_types=1);\n"); !file.StrictTypes {
		t.Fatal("strict_types=1 not recorded")
	}
	if file := parse(t, "<?php declare(strict_types=0);\n"); file.StrictTypes {
		t.Fatal("strict_types=0 recorded as strict")
	}
}

func TestGlobalConstantsAreQualified(t *testing.T) {
	file := parse(t, "<?php namespace Cfg; const A = 1, B = 'b';\n")
	s := one[*ast.ConstStmt](t, file)
	if len(s.Items) != 2 || s.Items[0].Name != `Cfg\A` || s.Items[1].Name != `Cfg\B` {
		t.Fatalf("constants: %+v", s.Items)
	}
}

func TestSyntaxErrorsAreRecorded(t *testing.T) {
	file := parse(t, "<?php\nfunction ok() {}\n$x = ;\n")
	if len(file.Errors) == 0 {
		t.Fatal("expected syntax errors")
	}
	if !strings.HasPrefix(file.Errors[0].Message, "Syntax error") {
		t.Errorf("message: %q", file.Errors[0].Message)
	}
	if file.Errors[0].Line != 3 {
		t.Errorf("line: %d", file.Errors[0].Line)
	}
	if len(find[*ast.FunctionDecl](file)) != 1 {
		t.Errorf("recoverable declarations should still be lowered")
	}
}

func TestInlineHTML(t *testing.T) {
	file := parse(t, "<html>\n<?php echo $title; ?>\n</html>\n")
	if len(find[*ast.InlineHTMLStmt](file)) == 0 {
		t.Error("inline HTML not lowered")
	}
	if len(find[*ast.EchoStmt](file)) != 1 {
		t.Error("echo inside template not lowered")
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := New().ReadFile("/nonexistent/strata/file.php"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
