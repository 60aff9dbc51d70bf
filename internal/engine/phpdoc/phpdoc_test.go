package phpdoc

import "testing"

func TestParseTags(t *testing.T) {
	doc := `/**
	 * Loads a user.
	 *
	 * @param int $id
	 * @param array<string, int> $opts options
	 * @param string ...$rest
	 * @return User|null
	 * @throws NotFound
	 * @template T
	 * @property-read string $name
	 * @method static self create(int $id)
	 * @deprecated
	 */`
	b := Parse(doc)

	if got := b.Params["id"]; got != "int" {
		t.Fatalf("param id = %q", got)
	}
	if got := b.Params["opts"]; got != "array<string, int>" {
		t.Fatalf("param opts = %q", got)
	}
	if got := b.Params["rest"]; got != "string" {
		t.Fatalf("variadic param = %q", got)
	}
	if b.Return != "User|null" {
		t.Fatalf("return = %q", b.Return)
	}
	if len(b.Throws) != 1 || b.Throws[0] != "NotFound" {
		t.Fatalf("throws = %v", b.Throws)
	}
	if len(b.Templates) != 1 || b.Templates[0] != "T" {
		t.Fatalf("templates = %v", b.Templates)
	}
	if len(b.Properties) != 1 || b.Properties[0].Access != ReadOnly || b.Properties[0].Name != "name" {
		t.Fatalf("properties = %+v", b.Properties)
	}
	if len(b.Methods) != 1 || b.Methods[0].Name != "create" || !b.Methods[0].Static || b.Methods[0].ReturnType != "self" {
		t.Fatalf("methods = %+v", b.Methods)
	}
	if !b.Deprecated {
		t.Fatalf("expected deprecated")
	}
}

func TestPrefixedTagsWin(t *testing.T) {
	b := Parse(`/**
	 * @phpstan-return list<int>
	 * @return array
	 * @param mixed $x
	 * @psalm-param positive-int $x
	 */`)
	if b.Return != "list<int>" {
		t.Fatalf("return = %q", b.Return)
	}
	if b.Params["x"] != "positive-int" {
		t.Fatalf("param x = %q", b.Params["x"])
	}
}

func TestVarTags(t *testing.T) {
	b := Parse(`/** @var Foo $foo */`)
	if typ, ok := b.Var("foo"); !ok || typ != "Foo" {
		t.Fatalf("var foo = %q, %v", typ, ok)
	}
	b = Parse(`/** @var int|string */`)
	if typ, ok := b.Var("anything"); !ok || typ != "int|string" {
		t.Fatalf("unnamed var = %q, %v", typ, ok)
	}
	if _, ok := Parse(`/** nothing */`).Var(""); ok {
		t.Fatalf("no var tag expected")
	}
}

func TestTypeAndNameEdgeCases(t *testing.T) {
	cases := []struct {
		in, typ, name string
	}{
		{"int | string $x", "int | string", "x"},
		{"callable(int): void $cb", "callable(int): void", "cb"},
		{"array{a: int, b: string} $shape", "array{a: int, b: string}", "shape"},
		{"$legacy Foo", "Foo", "legacy"},
		{"Foo &$ref", "Foo", "ref"},
		{"Foo", "Foo", ""},
	}
	for _, tc := range cases {
		typ, name := typeAndName(tc.in)
		if typ != tc.typ || name != tc.name {
			t.Errorf("typeAndName(%q) = %q, %q; want %q, %q", tc.in, typ, name, tc.typ, tc.name)
		}
	}
}

func TestIsDocComment(t *testing.T) {
	if !IsDocComment("/** x */") || IsDocComment("/* x */") || IsDocComment("// x") {
		t.Fatalf("IsDocComment mismatch")
	}
}
