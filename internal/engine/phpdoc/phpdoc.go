// Package phpdoc reads type tags out of PHPDoc comment blocks. It returns type
// expressions as raw strings; callers parse them with types.ParseTypeString in the
// namespace context of the annotated declaration.
package phpdoc

import (
	"strings"
)

// PropertyAccess of a @property tag.
type PropertyAccess uint8

const (
	ReadWrite PropertyAccess = iota
	ReadOnly
	WriteOnly
)

// Tag is one typed tag: `@param int $x`, `@var Foo`, `@property-read string $name`.
type Tag struct {
	Type string
	Name string // variable or property name without $, may be empty
}

// Property is a @property, @property-read or @property-write tag.
type Property struct {
	Tag
	Access PropertyAccess
}

// Method is a @method tag; only its name, staticness and return type are kept.
type Method struct {
	Name       string
	ReturnType string
	Static     bool
}

// Block is the parsed form of one doc comment.
type Block struct {
	Params     map[string]string
	Return     string
	Vars       []Tag
	Throws     []string
	Templates  []string
	Properties []Property
	Methods    []Method
	Deprecated bool
}

// IsDocComment reports whether a comment is a `/** ... */` block.
func IsDocComment(text string) bool {
	return strings.HasPrefix(text, "/**") && !strings.HasPrefix(text, "/***")
}

// Parse extracts tags from a doc comment. Tool-prefixed tags (`@phpstan-param`,
// `@psalm-return`) take precedence over their plain forms.
func Parse(text string) Block {
	b := Block{Params: map[string]string{}}
	prefixedParams := map[string]bool{}
	prefixedReturn := false
	prefixedVar := false

	for _, line := range lines(text) {
		if !strings.HasPrefix(line, "@") {
			continue
		}
		tag, rest := splitTag(line)
		prefixed := false
		for _, p := range []string{"phpstan-", "psalm-"} {
			if strings.HasPrefix(tag, p) {
				tag = strings.TrimPrefix(tag, p)
				prefixed = true
			}
		}

		switch tag {
		case "param":
			typ, name := typeAndName(rest)
			if name == "" || typ == "" {
				continue
			}
			if prefixed || !prefixedParams[name] {
				b.Params[name] = typ
				prefixedParams[name] = prefixedParams[name] || prefixed
			}
		case "return":
			typ, _ := typeAndName(rest)
			if typ != "" && (prefixed || !prefixedReturn) {
				b.Return = typ
				prefixedReturn = prefixedReturn || prefixed
			}
		case "var":
			typ, name := typeAndName(rest)
			if typ == "" {
				continue
			}
			if prefixed && !prefixedVar {
				b.Vars = nil
				prefixedVar = true
			}
			if prefixed || !prefixedVar {
				b.Vars = append(b.Vars, Tag{Type: typ, Name: name})
			}
		case "throws":
			if typ, _ := typeAndName(rest); typ != "" {
				b.Throws = append(b.Throws, typ)
			}
		case "template", "template-covariant", "template-contravariant":
			if fields := strings.Fields(rest); len(fields) > 0 {
				b.Templates = append(b.Templates, fields[0])
			}
		case "property", "property-read", "property-write":
			typ, name := typeAndName(rest)
			if typ == "" || name == "" {
				continue
			}
			access := ReadWrite
			switch tag {
			case "property-read":
				access = ReadOnly
			case "property-write":
				access = WriteOnly
			}
			b.Properties = append(b.Properties, Property{Tag: Tag{Type: typ, Name: name}, Access: access})
		case "method":
			if m, ok := parseMethod(rest); ok {
				b.Methods = append(b.Methods, m)
			}
		case "deprecated":
			b.Deprecated = true
		}
	}
	return b
}

// Var returns the @var type for name, or the first unnamed @var when name is empty
// or not found.
func (b Block) Var(name string) (string, bool) {
	for _, v := range b.Vars {
		if name != "" && v.Name == name {
			return v.Type, true
		}
	}
	for _, v := range b.Vars {
		if v.Name == "" || name == "" {
			return v.Type, true
		}
	}
	return "", false
}

// lines strips comment delimiters and leading asterisks.
func lines(text string) []string {
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimSuffix(text, "*/")
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimLeft(line, "*")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func splitTag(line string) (string, string) {
	line = strings.TrimPrefix(line, "@")
	i := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i:])
}

// typeAndName reads a type expression, which may contain spaces inside brackets, and
// the variable name following it. The legacy `$name Type` order is accepted too.
func typeAndName(rest string) (string, string) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", ""
	}
	if strings.HasPrefix(rest, "$") {
		fields := strings.Fields(rest)
		name := strings.TrimPrefix(fields[0], "$")
		if len(fields) > 1 {
			return fields[1], name
		}
		return "", name
	}

	typ, tail := readType(rest)
	tail = strings.TrimSpace(tail)
	tail = strings.TrimPrefix(tail, "...")
	tail = strings.TrimPrefix(tail, "&")
	tail = strings.TrimPrefix(tail, "...")
	if strings.HasPrefix(tail, "$") {
		end := 1
		for end < len(tail) && isNameByte(tail[end]) {
			end++
		}
		return typ, tail[1:end]
	}
	return typ, ""
}

// readType returns the leading type expression of s and the remainder.
func readType(s string) (string, string) {
	depth := 0
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inQuote = c
		case '<', '(', '{', '[':
			depth++
		case '>', ')', '}', ']':
			if depth > 0 {
				depth--
			}
		case ' ', '\t':
			if depth == 0 {
				// `int | string` and `callable(int): void` continue past spaces.
				next := strings.TrimLeft(s[i:], " \t")
				prev := strings.TrimRight(s[:i], " \t")
				if strings.HasPrefix(next, "|") || strings.HasPrefix(next, "&") && !strings.HasPrefix(next, "&$") && !strings.HasPrefix(next, "&.") ||
					strings.HasSuffix(prev, "|") || strings.HasSuffix(prev, ":") || strings.HasPrefix(next, ":") {
					continue
				}
				return s[:i], s[i:]
			}
		}
	}
	return s, ""
}

func parseMethod(rest string) (Method, bool) {
	var m Method
	if strings.HasPrefix(rest, "static ") {
		m.Static = true
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "static "))
	}
	paren := strings.Index(rest, "(")
	if paren < 0 {
		return m, false
	}
	head := strings.TrimSpace(rest[:paren])
	fields := strings.Fields(head)
	switch len(fields) {
	case 0:
		return m, false
	case 1:
		m.Name = fields[0]
	default:
		m.ReturnType = strings.Join(fields[:len(fields)-1], " ")
		m.Name = fields[len(fields)-1]
	}
	return m, m.Name != ""
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 0x80 || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
