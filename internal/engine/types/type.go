package types

import (
	"strconv"
	"strings"
)

// Kind tags the variant held by a Type.
type Kind uint8

const (
	KindNever Kind = iota
	KindVoid
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindIterable
	KindCallable
	KindObject
	KindClass
	KindResource
	KindMixed
	KindUnion
)

var kindNames = [...]string{
	KindNever:    "never",
	KindVoid:     "void",
	KindNull:     "null",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindString:   "string",
	KindArray:    "array",
	KindIterable: "iterable",
	KindCallable: "callable",
	KindObject:   "object",
	KindClass:    "class",
	KindResource: "resource",
	KindMixed:    "mixed",
	KindUnion:    "union",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Type is an immutable PHP type. Values are shared freely between goroutines; every
// operation returns a new value instead of mutating its inputs.
//
// A nil *Type is treated as the implicit mixed type by every function in this package.
type Type struct {
	kind Kind

	// Bool, Int and String literals.
	hasValue bool
	boolVal  bool
	intVal   int64
	strVal   string

	// Int ranges; a nil bound is unbounded.
	hasRange bool
	min, max *int64

	// Array and Iterable.
	key, value *Type

	// ClassType: the fully qualified name without a leading backslash. Resolved lazily
	// against the symbol table, never by pointer.
	class string

	// Mixed: true when declared as `mixed`, false when no type information exists.
	explicit bool

	members []*Type
}

var (
	neverType         = &Type{kind: KindNever}
	voidType          = &Type{kind: KindVoid}
	nullType          = &Type{kind: KindNull}
	boolType          = &Type{kind: KindBool}
	trueType          = &Type{kind: KindBool, hasValue: true, boolVal: true}
	falseType         = &Type{kind: KindBool, hasValue: true, boolVal: false}
	intType           = &Type{kind: KindInt}
	floatType         = &Type{kind: KindFloat}
	stringType        = &Type{kind: KindString}
	objectType        = &Type{kind: KindObject}
	callableType      = &Type{kind: KindCallable}
	resourceType      = &Type{kind: KindResource}
	implicitMixedType = &Type{kind: KindMixed}
	explicitMixedType = &Type{kind: KindMixed, explicit: true}
)

func Never() *Type    { return neverType }
func Void() *Type     { return voidType }
func Null() *Type     { return nullType }
func Bool() *Type     { return boolType }
func Int() *Type      { return intType }
func Float() *Type    { return floatType }
func String() *Type   { return stringType }
func Object() *Type   { return objectType }
func Callable() *Type { return callableType }
func Resource() *Type { return resourceType }

// Mixed returns the top type. explicit distinguishes a declared `mixed` from the absence
// of any type information.
func Mixed(explicit bool) *Type {
	if explicit {
		return explicitMixedType
	}
	return implicitMixedType
}

// Unknown is the implicit mixed type used when inference gives up.
func Unknown() *Type { return implicitMixedType }

func BoolLiteral(v bool) *Type {
	if v {
		return trueType
	}
	return falseType
}

func IntLiteral(v int64) *Type {
	return &Type{kind: KindInt, hasValue: true, intVal: v}
}

// IntRange returns int<min, max>. Either bound may be nil for an open end. A range whose
// bounds are both nil is plain int, and a single-point range is a literal.
func IntRange(min, max *int64) *Type {
	if min == nil && max == nil {
		return intType
	}
	if min != nil && max != nil && *min == *max {
		return IntLiteral(*min)
	}
	return &Type{kind: KindInt, hasRange: true, min: copyBound(min), max: copyBound(max)}
}

func StringLiteral(v string) *Type {
	return &Type{kind: KindString, hasValue: true, strVal: v}
}

// Array returns array<key, value>. Nil arguments mean implicit mixed.
func Array(key, value *Type) *Type {
	return &Type{kind: KindArray, key: orMixed(key), value: orMixed(value)}
}

// EmptyArray is the type of the literal `[]`.
func EmptyArray() *Type {
	return &Type{kind: KindArray, key: neverType, value: neverType}
}

func Iterable(key, value *Type) *Type {
	return &Type{kind: KindIterable, key: orMixed(key), value: orMixed(value)}
}

// ClassType references a class, interface, trait or enum by name.
func ClassType(name string) *Type {
	return &Type{kind: KindClass, class: strings.TrimPrefix(name, `\`)}
}

func copyBound(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func orMixed(t *Type) *Type {
	if t == nil {
		return implicitMixedType
	}
	return t
}

func (t *Type) Kind() Kind { return orMixed(t).kind }

// IsLiteral reports whether t is a single constant value.
func (t *Type) IsLiteral() bool { return t != nil && t.hasValue }

func (t *Type) BoolValue() (bool, bool) {
	if t == nil || t.kind != KindBool || !t.hasValue {
		return false, false
	}
	return t.boolVal, true
}

func (t *Type) IntValue() (int64, bool) {
	if t == nil || t.kind != KindInt || !t.hasValue {
		return 0, false
	}
	return t.intVal, true
}

func (t *Type) StringValue() (string, bool) {
	if t == nil || t.kind != KindString || !t.hasValue {
		return "", false
	}
	return t.strVal, true
}

// Range returns the bounds of an int range; ok is false for anything else.
func (t *Type) Range() (min, max *int64, ok bool) {
	if t == nil || t.kind != KindInt || !t.hasRange {
		return nil, nil, false
	}
	return copyBound(t.min), copyBound(t.max), true
}

func (t *Type) Key() *Type {
	if t == nil || (t.kind != KindArray && t.kind != KindIterable) {
		return implicitMixedType
	}
	return t.key
}

func (t *Type) Value() *Type {
	if t == nil || (t.kind != KindArray && t.kind != KindIterable) {
		return implicitMixedType
	}
	return t.value
}

func (t *Type) ClassName() string {
	if t == nil || t.kind != KindClass {
		return ""
	}
	return t.class
}

// IsExplicit reports whether a mixed type was declared as such.
func (t *Type) IsExplicit() bool { return t != nil && t.kind == KindMixed && t.explicit }

func (t *Type) IsMixed() bool { return orMixed(t).kind == KindMixed }

// IsImplicitMixed reports whether t carries no type information at all.
func (t *Type) IsImplicitMixed() bool { return t == nil || (t.kind == KindMixed && !t.explicit) }

// Members returns the variants of a union, or t itself for any other type.
func (t *Type) Members() []*Type {
	t = orMixed(t)
	if t.kind != KindUnion {
		return []*Type{t}
	}
	out := make([]*Type, len(t.members))
	copy(out, t.members)
	return out
}

func (t *Type) String() string {
	return describe(orMixed(t), false)
}

// Equal compares types structurally. Class names compare case-insensitively.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	return canonical(orMixed(a)) == canonical(orMixed(b))
}

func canonical(t *Type) string {
	if t.kind == KindMixed && t.explicit {
		return "mixed!"
	}
	return describe(t, true)
}

func describe(t *Type, lowerClasses bool) string {
	switch t.kind {
	case KindBool:
		if t.hasValue {
			return strconv.FormatBool(t.boolVal)
		}
		return "bool"
	case KindInt:
		if t.hasValue {
			return strconv.FormatInt(t.intVal, 10)
		}
		if t.hasRange {
			return "int<" + describeBound(t.min, "min") + ", " + describeBound(t.max, "max") + ">"
		}
		return "int"
	case KindString:
		if t.hasValue {
			return "'" + strings.ReplaceAll(t.strVal, "'", `\'`) + "'"
		}
		return "string"
	case KindArray, KindIterable:
		name := t.kind.String()
		if t.kind == KindArray && t.key.kind == KindNever && t.value.kind == KindNever {
			return "array{}"
		}
		keyMixed := t.key.kind == KindMixed
		if keyMixed && t.value.kind == KindMixed {
			return name
		}
		if keyMixed {
			return name + "<" + describe(t.value, lowerClasses) + ">"
		}
		return name + "<" + describe(t.key, lowerClasses) + ", " + describe(t.value, lowerClasses) + ">"
	case KindClass:
		if lowerClasses {
			return strings.ToLower(t.class)
		}
		return t.class
	case KindUnion:
		parts := make([]string, len(t.members))
		for i, m := range t.members {
			parts[i] = describe(m, lowerClasses)
		}
		return strings.Join(parts, "|")
	default:
		return t.kind.String()
	}
}

func describeBound(v *int64, open string) string {
	if v == nil {
		return open
	}
	return strconv.FormatInt(*v, 10)
}
