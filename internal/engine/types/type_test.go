package types

import (
	"strings"
	"testing"
)

// fakeHierarchy models a small class graph by lowercase name.
type fakeHierarchy struct {
	parents    map[string][]string
	methods    map[string][]string
	properties map[string][]string
}

func (f fakeHierarchy) IsSubclassOf(child, parent string) Trinary {
	child, parent = strings.ToLower(child), strings.ToLower(parent)
	if child == parent {
		return Yes
	}
	ps, ok := f.parents[child]
	if !ok {
		return Maybe
	}
	result := No
	for _, p := range ps {
		result = result.Or(f.IsSubclassOf(p, parent))
	}
	return result
}

func (f fakeHierarchy) has(table map[string][]string, class, name string) Trinary {
	members, ok := table[strings.ToLower(class)]
	if !ok {
		return Maybe
	}
	for _, m := range members {
		if strings.EqualFold(m, name) {
			return Yes
		}
	}
	return No
}

func (f fakeHierarchy) HasMethod(class, method string) Trinary {
	return f.has(f.methods, class, method)
}

func (f fakeHierarchy) HasProperty(class, property string) Trinary {
	return f.has(f.properties, class, property)
}

var testHierarchy = fakeHierarchy{
	parents: map[string][]string{
		"a":         {},
		"b":         {},
		"child":     {"base"},
		"base":      {},
		"exception": {"throwable"},
		"throwable": {},
	},
	methods: map[string][]string{
		"a": {"foo", "shared"},
		"b": {"shared"},
	},
	properties: map[string][]string{
		"a": {"name"},
		"b": {},
	},
}

func sampleTypes() []*Type {
	return []*Type{
		Never(), Void(), Null(), Bool(), BoolLiteral(true), Int(), IntLiteral(3),
		IntRange(&zero, nil), Float(), String(), StringLiteral("x"),
		Array(Int(), String()), EmptyArray(), Iterable(nil, nil), Callable(), Object(),
		ClassType("A"), Resource(), Mixed(true), Mixed(false),
		Union(Int(), String()), Union(ClassType("A"), Null()),
	}
}

func TestIsSubtypeReflexiveBottomTop(t *testing.T) {
	for _, typ := range sampleTypes() {
		if got := IsSubtype(typ, typ, testHierarchy); got != Yes {
			t.Errorf("IsSubtype(%s, %s) = %s, want Yes", typ, typ, got)
		}
		if got := IsSubtype(Never(), typ, testHierarchy); got != Yes {
			t.Errorf("IsSubtype(never, %s) = %s, want Yes", typ, got)
		}
		if got := IsSubtype(typ, Mixed(false), testHierarchy); got != Yes {
			t.Errorf("IsSubtype(%s, mixed) = %s, want Yes", typ, got)
		}
	}
}

func TestIsSubtype(t *testing.T) {
	tests := []struct {
		name     string
		sub, sup *Type
		want     Trinary
	}{
		{"literal in general", IntLiteral(5), Int(), Yes},
		{"general in literal", Int(), IntLiteral(5), Maybe},
		{"different literals", StringLiteral("a"), StringLiteral("b"), No},
		{"int not float", Int(), Float(), No},
		{"string not int", String(), Int(), No},
		{"null not class", Null(), ClassType("A"), No},
		{"union target or", Int(), Union(Int(), String()), Yes},
		{"union target miss", Float(), Union(Int(), String()), No},
		{"union source and", Union(Int(), String()), Int(), No},
		{"union source maybe", Union(Int(), IntLiteral(1)), IntLiteral(1), Maybe},
		{"mixed source", Mixed(true), Int(), Maybe},
		{"subclass", ClassType("Child"), ClassType("Base"), Yes},
		{"superclass", ClassType("Base"), ClassType("Child"), No},
		{"unknown class", ClassType("Unknown"), ClassType("Base"), Maybe},
		{"class is object", ClassType("A"), Object(), Yes},
		{"object in class", Object(), ClassType("A"), Maybe},
		{"array covariance", Array(Int(), IntLiteral(1)), Array(Int(), Int()), Yes},
		{"array value mismatch", Array(Int(), String()), Array(Int(), Int()), No},
		{"empty array", EmptyArray(), Array(Int(), String()), Yes},
		{"array iterable", Array(Int(), String()), Iterable(nil, nil), Yes},
		{"range inside range", IntRange(&one, nil), IntRange(&zero, nil), Yes},
		{"range outside", IntLiteral(-1), IntRange(&zero, nil), No},
		{"range overlap", IntRange(&minusOne, &one), IntRange(&zero, nil), Maybe},
		{"closure callable", ClassType("Closure"), Callable(), Yes},
		{"true in bool", BoolLiteral(true), Bool(), Yes},
		{"false not true", BoolLiteral(false), BoolLiteral(true), No},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSubtype(tt.sub, tt.sup, testHierarchy); got != tt.want {
				t.Fatalf("IsSubtype(%s, %s) = %s, want %s", tt.sub, tt.sup, got, tt.want)
			}
		})
	}
}

func TestNormalizeUnion(t *testing.T) {
	u := Union(Null(), String(), Int())
	if got := u.String(); got != "int|string|null" {
		t.Fatalf("union display = %q", got)
	}
	if !Equal(Union(Int(), Null(), String()), u) {
		t.Fatalf("union should be order invariant")
	}
	if !Equal(NormalizeUnion(u), u) {
		t.Fatalf("normalize should be idempotent")
	}
	nested := Union(Union(Int(), String()), Union(String(), Null()), Int())
	if !Equal(nested, u) {
		t.Fatalf("nested union = %s, want %s", nested, u)
	}
	if got := Union(Int()); got.Kind() != KindInt {
		t.Fatalf("singleton union should collapse, got %s", got)
	}
	if got := Union(); got.Kind() != KindNever {
		t.Fatalf("empty union should be never, got %s", got)
	}
	if got := Union(IntLiteral(1), Int()); got.String() != "int" {
		t.Fatalf("general int should absorb literals, got %s", got)
	}
	if got := Union(BoolLiteral(true), BoolLiteral(false)); got.String() != "bool" {
		t.Fatalf("true|false should become bool, got %s", got)
	}
	if got := Union(Int(), Mixed(true)); !got.IsExplicit() {
		t.Fatalf("mixed should absorb the union, got %s", got)
	}
	if got := Union(Int(), Never()); got.Kind() != KindInt {
		t.Fatalf("never is the identity of union, got %s", got)
	}
	if got := Union(ClassType("B"), Null(), ClassType("A")); got.String() != "A|B|null" {
		t.Fatalf("class union display = %q", got)
	}
	for _, m := range u.Members() {
		if m.Kind() == KindUnion {
			t.Fatalf("union must be flat")
		}
	}
}

func TestNullHelpers(t *testing.T) {
	nullable := Union(ClassType("A"), Null())
	if !IsNullable(nullable) || !ContainsNull(nullable) {
		t.Fatalf("%s should be nullable", nullable)
	}
	if got := RemoveNull(nullable); got.ClassName() != "A" {
		t.Fatalf("RemoveNull = %s", got)
	}
	if ContainsNull(Mixed(false)) {
		t.Fatalf("mixed does not contain a null member")
	}
	if got := Remove(Union(ClassType("A"), ClassType("B")), ClassType("a")); got.ClassName() != "B" {
		t.Fatalf("Remove = %s", got)
	}
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		name             string
		declared, actual *Type
		strict, loose    Trinary
	}{
		{"same", Int(), IntLiteral(1), Yes, Yes},
		{"int widens to float", Float(), Int(), Yes, Yes},
		{"int into string", String(), Int(), No, Yes},
		{"numeric string into int", Int(), StringLiteral("12"), No, Yes},
		{"word into int", Int(), StringLiteral("twelve"), No, No},
		{"null into class", ClassType("A"), Null(), No, No},
		{"nullable declared", Union(ClassType("A"), Null()), Null(), Yes, Yes},
		{"mixed actual", Int(), Mixed(false), Maybe, Maybe},
		{"mixed declared", Mixed(true), String(), Yes, Yes},
		{"union actual partly accepted", Int(), Union(Int(), String()), No, Maybe},
		{"subclass object", ClassType("Base"), ClassType("Child"), Yes, Yes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accepts(tt.declared, tt.actual, testHierarchy); got != tt.strict {
				t.Errorf("Accepts(%s, %s) = %s, want %s", tt.declared, tt.actual, got, tt.strict)
			}
			if got := AcceptsCoercing(tt.declared, tt.actual, testHierarchy); got != tt.loose {
				t.Errorf("AcceptsCoercing(%s, %s) = %s, want %s", tt.declared, tt.actual, got, tt.loose)
			}
		})
	}
}

func TestMemberExistsOnUnionIsConjunction(t *testing.T) {
	a, b := ClassType("A"), ClassType("B")
	u := Union(a, b)
	for _, member := range []string{"foo", "shared", "missing"} {
		want := MemberExists(a, member, MemberMethod, testHierarchy).And(MemberExists(b, member, MemberMethod, testHierarchy))
		if got := MemberExists(u, member, MemberMethod, testHierarchy); got != want {
			t.Errorf("MemberExists(%s, %s) = %s, want %s", u, member, got, want)
		}
	}
	if got := MemberExists(u, "shared", MemberMethod, testHierarchy); got != Yes {
		t.Fatalf("shared should exist on both variants, got %s", got)
	}
	if got := MemberExists(u, "foo", MemberMethod, testHierarchy); got != No {
		t.Fatalf("foo is missing on B, got %s", got)
	}
	if got := MemberExists(Union(a, ClassType("Unknown")), "foo", MemberMethod, testHierarchy); got != Maybe {
		t.Fatalf("unknown variant should make the answer Maybe, got %s", got)
	}
	if got := MemberExists(Null(), "foo", MemberMethod, testHierarchy); got != No {
		t.Fatalf("null has no members, got %s", got)
	}
	if got := MemberExists(Mixed(false), "foo", MemberProperty, testHierarchy); got != Maybe {
		t.Fatalf("mixed may have any member, got %s", got)
	}

	per := MemberExistsPerVariant(u, "foo", MemberMethod, testHierarchy)
	if len(per) != 2 || per[0].Result != Yes || per[1].Result != No {
		t.Fatalf("per-variant results = %+v", per)
	}
}

func TestParseTypeString(t *testing.T) {
	resolve := func(name string) string {
		switch strings.ToLower(name) {
		case "self":
			return `App\Model`
		case "static", "$this":
			return "static"
		}
		return `App\` + name
	}
	tests := []struct {
		src  string
		want string
	}{
		{"int", "int"},
		{"?string", "string|null"},
		{"int|string|null", "int|string|null"},
		{"array<int, string>", "array<int, string>"},
		{"list<Foo>", `array<int, App\Foo>`},
		{"Foo[]", `array<App\Foo>`},
		{"positive-int", "int<1, max>"},
		{"int<0, 10>", "int<0, 10>"},
		{"non-empty-string", "string"},
		{"'a'|'b'", "'a'|'b'"},
		{"self", `App\Model`},
		{"static", "static"},
		{"$this", "static"},
		{"mixed", "mixed"},
		{"(A|B)|null", `App\A|App\B|null`},
		{"array{id: int, name: string}", "array"},
		{"callable(int): void", "callable"},
		{"Collection<int, Foo>", `App\Collection`},
		{"A&B", "mixed"},
		{"true", "true"},
		{"iterable<string>", "iterable<string>"},
		{"class-string<Foo>", "string"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := ParseTypeString(tt.src, resolve)
			if err != nil {
				t.Fatalf("ParseTypeString(%q) error: %v", tt.src, err)
			}
			if got.String() != tt.want {
				t.Fatalf("ParseTypeString(%q) = %q, want %q", tt.src, got.String(), tt.want)
			}
		})
	}

	if got := MustParse("mixed"); !got.IsExplicit() {
		t.Fatalf("declared mixed must be explicit")
	}
	for _, bad := range []string{"array<int", "int|", "'open"} {
		got, err := ParseTypeString(bad, nil)
		if err == nil {
			t.Errorf("ParseTypeString(%q) should fail", bad)
		}
		if !got.IsImplicitMixed() {
			t.Errorf("ParseTypeString(%q) should degrade to implicit mixed, got %s", bad, got)
		}
	}
}

func TestGeneralizeAndSubstitute(t *testing.T) {
	if got := Generalize(Union(IntLiteral(1), StringLiteral("a"))); got.String() != "int|string" {
		t.Fatalf("Generalize = %s", got)
	}
	ret := Union(ClassType("static"), Null())
	if !HasLateStatic(ret) {
		t.Fatalf("static should be detected")
	}
	if got := Substitute(ret, ClassType("App\\User")); got.String() != `App\User|null` {
		t.Fatalf("Substitute = %s", got)
	}
}
