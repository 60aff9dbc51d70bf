package types

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// NameResolver maps a class name as written in source (possibly relative or aliased,
// or one of self/static/parent/$this) to the name stored in ClassType.
type NameResolver func(name string) string

// ParseTypeString parses a native type declaration or a PHPDoc type expression.
// On malformed input it returns the implicit mixed type together with an error, so a
// caller that ignores the error degrades to "no information".
func ParseTypeString(src string, resolve NameResolver) (*Type, error) {
	p := &typeParser{src: src, resolve: resolve}
	p.next()
	t := p.parseUnion()
	if p.err == nil && p.tok.kind != tokEOF {
		p.fail("unexpected %q", p.tok.text)
	}
	if p.err != nil {
		return Unknown(), p.err
	}
	return t, nil
}

// MustParse parses a type string known to be valid. It is meant for tables of builtin
// signatures and tests.
func MustParse(src string) *Type {
	t, err := ParseTypeString(src, nil)
	if err != nil {
		panic(err)
	}
	return t
}

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokPunct
)

type token struct {
	kind tokKind
	text string
}

type typeParser struct {
	src     string
	pos     int
	tok     token
	resolve NameResolver
	err     error
}

func (p *typeParser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("type %q: %s", p.src, fmt.Sprintf(format, args...))
	}
	p.tok = token{kind: tokEOF}
}

func (p *typeParser) next() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF}
		return
	}
	start := p.pos
	c := p.src[p.pos]
	switch {
	case c == '\'' || c == '"':
		p.pos++
		for p.pos < len(p.src) && p.src[p.pos] != c {
			if p.src[p.pos] == '\\' {
				p.pos++
			}
			p.pos++
		}
		if p.pos >= len(p.src) {
			p.fail("unterminated string literal")
			return
		}
		p.pos++
		p.tok = token{kind: tokString, text: p.src[start+1 : p.pos-1]}
	case c == '-' || (c >= '0' && c <= '9'):
		p.pos++
		isFloat := false
		for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.' || p.src[p.pos] == '_') {
			if p.src[p.pos] == '.' {
				isFloat = true
			}
			p.pos++
		}
		if p.pos == start+1 && c == '-' {
			p.fail("unexpected '-'")
			return
		}
		kind := tokInt
		if isFloat {
			kind = tokFloat
		}
		p.tok = token{kind: kind, text: strings.ReplaceAll(p.src[start:p.pos], "_", "")}
	case isIdentStart(c):
		p.pos++
		for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
			p.pos++
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.pos]}
	default:
		p.pos++
		p.tok = token{kind: tokPunct, text: string(c)}
	}
}

func (p *typeParser) accept(punct string) bool {
	if p.tok.kind == tokPunct && p.tok.text == punct {
		p.next()
		return true
	}
	return false
}

func (p *typeParser) expect(punct string) {
	if !p.accept(punct) {
		p.fail("expected %q", punct)
	}
}

func (p *typeParser) parseUnion() *Type {
	members := []*Type{p.parseIntersection()}
	for p.accept("|") {
		members = append(members, p.parseIntersection())
	}
	if len(members) == 1 {
		return members[0]
	}
	return NormalizeUnion(members...)
}

// Intersection types are not modelled; they degrade to "no information".
func (p *typeParser) parseIntersection() *Type {
	t := p.parsePostfix()
	intersected := false
	for p.tok.kind == tokPunct && p.tok.text == "&" {
		// `&...` and `&$` belong to by-reference parameters, not to the type.
		if p.pos < len(p.src) && (p.src[p.pos] == '.' || p.src[p.pos] == '$') {
			break
		}
		p.next()
		p.parsePostfix()
		intersected = true
	}
	if intersected {
		return Unknown()
	}
	return t
}

func (p *typeParser) parsePostfix() *Type {
	t := p.parsePrimary()
	for p.tok.kind == tokPunct && p.tok.text == "[" {
		p.next()
		p.expect("]")
		t = Array(nil, t)
	}
	return t
}

func (p *typeParser) parsePrimary() *Type {
	switch p.tok.kind {
	case tokPunct:
		switch p.tok.text {
		case "?":
			p.next()
			return NormalizeUnion(p.parsePostfix(), Null())
		case "(":
			p.next()
			t := p.parseUnion()
			p.expect(")")
			return t
		case "\\":
			// A fully qualified name starts with a backslash token only when the
			// lexer split it; identifiers normally include the separator.
			p.next()
			if p.tok.kind != tokIdent {
				p.fail("expected class name after '\\'")
				return Unknown()
			}
			name := `\` + p.tok.text
			p.next()
			return p.classType(name)
		case "$":
			p.next()
			if p.tok.kind == tokIdent && p.tok.text == "this" {
				p.next()
				return p.classType("$this")
			}
			p.fail("unexpected '$'")
			return Unknown()
		}
		p.fail("unexpected %q", p.tok.text)
		return Unknown()
	case tokInt:
		v, err := strconv.ParseInt(p.tok.text, 0, 64)
		p.next()
		if err != nil {
			return Int()
		}
		return IntLiteral(v)
	case tokFloat:
		p.next()
		return Float()
	case tokString:
		s := p.tok.text
		p.next()
		return StringLiteral(s)
	case tokIdent:
		name := p.tok.text
		p.next()
		return p.named(name)
	}
	p.fail("unexpected end of type")
	return Unknown()
}

func (p *typeParser) named(name string) *Type {
	lower := strings.ToLower(name)
	switch lower {
	case "array", "non-empty-array", "list", "non-empty-list", "iterable":
		return p.collection(lower)
	case "int", "integer":
		if p.tok.kind == tokPunct && p.tok.text == "<" {
			return p.intRange()
		}
		return Int()
	case "class-string", "interface-string", "trait-string", "enum-string":
		p.skipGenericArgs()
		return String()
	case "callable", "closure", "pure-callable", "pure-closure":
		if p.tok.kind == tokPunct && p.tok.text == "(" {
			p.skipBalanced("(", ")")
			if p.accept(":") {
				p.parsePostfix()
			}
		}
		if lower == "closure" || lower == "pure-closure" {
			return ClassType("Closure")
		}
		return Callable()
	case "object":
		if p.tok.kind == tokPunct && p.tok.text == "{" {
			p.skipBalanced("{", "}")
		}
		return Object()
	case "key-of", "value-of", "properties-of", "template-type", "new", "int-mask", "int-mask-of":
		p.skipGenericArgs()
		return Unknown()
	}
	if t, ok := keywordTypes[lower]; ok {
		return t
	}
	if p.tok.kind == tokPunct && p.tok.text == "<" {
		// Generic class references keep only the class: generics are not modelled.
		p.skipGenericArgs()
	}
	if p.tok.kind == tokPunct && p.tok.text == ":" && p.pos < len(p.src) && p.src[p.pos] == ':' {
		// Foo::BAR constant references.
		p.next()
		p.next()
		if p.tok.kind == tokIdent || (p.tok.kind == tokPunct && p.tok.text == "*") {
			p.next()
		}
		return Unknown()
	}
	return p.classType(name)
}

func (p *typeParser) classType(name string) *Type {
	if p.resolve != nil {
		name = p.resolve(name)
	}
	if name == "" {
		return Unknown()
	}
	return ClassType(name)
}

func (p *typeParser) collection(lower string) *Type {
	var key, value *Type
	switch {
	case p.tok.kind == tokPunct && p.tok.text == "<":
		p.next()
		first := p.parseUnion()
		if p.accept(",") {
			key, value = first, p.parseUnion()
		} else {
			value = first
		}
		p.expect(">")
	case p.tok.kind == tokPunct && p.tok.text == "{":
		p.skipBalanced("{", "}")
	}
	if lower == "list" || lower == "non-empty-list" {
		key = Int()
	}
	if lower == "iterable" {
		return Iterable(key, value)
	}
	return Array(key, value)
}

func (p *typeParser) intRange() *Type {
	p.expect("<")
	lo := p.rangeBound("min")
	p.expect(",")
	hi := p.rangeBound("max")
	p.expect(">")
	return IntRange(lo, hi)
}

func (p *typeParser) rangeBound(open string) *int64 {
	switch p.tok.kind {
	case tokIdent:
		if strings.EqualFold(p.tok.text, open) {
			p.next()
			return nil
		}
	case tokInt:
		v, err := strconv.ParseInt(p.tok.text, 10, 64)
		p.next()
		if err == nil {
			return &v
		}
		return nil
	}
	p.fail("invalid int range bound %q", p.tok.text)
	return nil
}

func (p *typeParser) skipGenericArgs() {
	if p.tok.kind == tokPunct && p.tok.text == "<" {
		p.skipBalanced("<", ">")
	}
}

// skipBalanced consumes a bracketed group starting at the current open token.
func (p *typeParser) skipBalanced(open, close string) {
	depth := 0
	for p.tok.kind != tokEOF {
		if p.tok.kind == tokPunct {
			switch p.tok.text {
			case open:
				depth++
			case close:
				depth--
				if depth == 0 {
					p.next()
					return
				}
			}
		}
		p.next()
	}
	p.fail("unbalanced %q", open)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '\\' || c >= 0x80 || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '-'
}

var (
	one      = int64(1)
	zero     = int64(0)
	minusOne = int64(-1)
)

var keywordTypes = map[string]*Type{
	"float":             Float(),
	"double":            Float(),
	"string":            String(),
	"non-empty-string":  String(),
	"numeric-string":    String(),
	"literal-string":    String(),
	"lowercase-string":  String(),
	"non-falsy-string":  String(),
	"truthy-string":     String(),
	"callable-string":   String(),
	"bool":              Bool(),
	"boolean":           Bool(),
	"true":              BoolLiteral(true),
	"false":             BoolLiteral(false),
	"null":              Null(),
	"void":              Void(),
	"never":             Never(),
	"never-return":      Never(),
	"never-returns":     Never(),
	"no-return":         Never(),
	"noreturn":          Never(),
	"mixed":             Mixed(true),
	"resource":          Resource(),
	"open-resource":     Resource(),
	"closed-resource":   Resource(),
	"positive-int":      IntRange(&one, nil),
	"negative-int":      IntRange(nil, &minusOne),
	"non-negative-int":  IntRange(&zero, nil),
	"non-positive-int":  IntRange(nil, &zero),
	"non-zero-int":      Int(),
	"scalar":            NormalizeUnion(Int(), Float(), String(), Bool()),
	"array-key":         NormalizeUnion(Int(), String()),
	"numeric":           NormalizeUnion(Int(), Float(), String()),
	"number":            NormalizeUnion(Int(), Float()),
	"empty":             Unknown(),
	"empty-array":       EmptyArray(),
	"callable-array":    Array(nil, nil),
	"callable-object":   Object(),
	"stringable-object": Object(),
}
