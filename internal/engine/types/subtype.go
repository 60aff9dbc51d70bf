package types

import (
	"strconv"
	"strings"
)

// Hierarchy answers class questions by name. The symbol table implements it; passing
// nil makes every class relation other than identity Maybe.
type Hierarchy interface {
	IsSubclassOf(child, parent string) Trinary
	HasMethod(class, method string) Trinary
	HasProperty(class, property string) Trinary
}

// IsSubtype reports whether every value of sub is also a value of sup.
//
// Never is a subtype of everything, everything is a subtype of mixed, a union source
// must hold for all of its members (AND) and a union target needs only one (OR).
func IsSubtype(sub, sup *Type, h Hierarchy) Trinary {
	sub, sup = orMixed(sub), orMixed(sup)
	switch {
	case sup.kind == KindMixed:
		return Yes
	case sub.kind == KindNever:
		return Yes
	case Equal(sub, sup):
		return Yes
	case sub.kind == KindUnion:
		return AndFunc(sub.members, func(m *Type) Trinary { return IsSubtype(m, sup, h) })
	case sup.kind == KindUnion:
		return OrFunc(sup.members, func(m *Type) Trinary { return IsSubtype(sub, m, h) })
	case sub.kind == KindMixed:
		return Maybe
	}

	switch sub.kind {
	case KindBool:
		if sup.kind != KindBool {
			return No
		}
		if !sup.hasValue {
			return Yes
		}
		if sub.hasValue {
			return FromBool(sub.boolVal == sup.boolVal)
		}
		return Maybe
	case KindInt:
		if sup.kind != KindInt {
			return No
		}
		return intWithin(sub, sup)
	case KindFloat:
		return FromBool(sup.kind == KindFloat)
	case KindString:
		switch sup.kind {
		case KindString:
			if !sup.hasValue {
				return Yes
			}
			if sub.hasValue {
				return FromBool(sub.strVal == sup.strVal)
			}
			return Maybe
		case KindCallable:
			return Maybe
		}
		return No
	case KindArray:
		switch sup.kind {
		case KindArray, KindIterable:
			return IsSubtype(sub.key, sup.key, h).And(IsSubtype(sub.value, sup.value, h))
		case KindCallable:
			return Maybe
		}
		return No
	case KindIterable:
		switch sup.kind {
		case KindIterable:
			return IsSubtype(sub.key, sup.key, h).And(IsSubtype(sub.value, sup.value, h))
		case KindArray, KindClass, KindObject:
			return Maybe
		}
		return No
	case KindCallable:
		switch sup.kind {
		case KindCallable:
			return Yes
		case KindString, KindArray, KindObject, KindClass:
			return Maybe
		}
		return No
	case KindObject:
		switch sup.kind {
		case KindObject:
			return Yes
		case KindClass, KindCallable, KindIterable:
			return Maybe
		}
		return No
	case KindClass:
		return classSubtype(sub, sup, h)
	case KindResource:
		return FromBool(sup.kind == KindResource)
	}
	return No
}

func classSubtype(sub, sup *Type, h Hierarchy) Trinary {
	switch sup.kind {
	case KindClass:
		return classExtends(sub.class, sup.class, h)
	case KindObject:
		return Yes
	case KindCallable:
		if strings.EqualFold(sub.class, "Closure") {
			return Yes
		}
		if h == nil {
			return Maybe
		}
		return h.HasMethod(sub.class, "__invoke")
	case KindIterable:
		r := classExtends(sub.class, "Traversable", h)
		if r == Yes && !(sup.key.IsMixed() && sup.value.IsMixed()) {
			return Maybe
		}
		return r
	}
	return No
}

func classExtends(child, parent string, h Hierarchy) Trinary {
	if strings.EqualFold(child, parent) {
		return Yes
	}
	if h == nil {
		return Maybe
	}
	return h.IsSubclassOf(child, parent)
}

func intWithin(sub, sup *Type) Trinary {
	if !sup.hasValue && !sup.hasRange {
		return Yes
	}
	supMin, supMax := intBounds(sup)
	if !sub.hasValue && !sub.hasRange {
		return Maybe
	}
	subMin, subMax := intBounds(sub)
	if boundLE(supMin, subMin, true) && boundLE(subMax, supMax, false) {
		return Yes
	}
	if boundLT(subMax, supMin) || boundLT(supMax, subMin) {
		return No
	}
	return Maybe
}

func intBounds(t *Type) (min, max *int64) {
	if t.hasValue {
		v := t.intVal
		return &v, &v
	}
	return t.min, t.max
}

// boundLE compares a lower or upper bound pair; nil means -inf for lower bounds and
// +inf for upper bounds. lower selects which interpretation applies to nil.
func boundLE(a, b *int64, lower bool) bool {
	if lower {
		if a == nil {
			return true
		}
		if b == nil {
			return false
		}
		return *a <= *b
	}
	if b == nil {
		return true
	}
	if a == nil {
		return false
	}
	return *a <= *b
}

// boundLT reports whether upper bound a lies strictly below lower bound b.
func boundLT(upper, lower *int64) bool {
	if upper == nil || lower == nil {
		return false
	}
	return *upper < *lower
}

// Accepts reports whether a value of type actual may be passed where declared is
// expected under strict_types semantics. int widens to float.
func Accepts(declared, actual *Type, h Hierarchy) Trinary {
	return accepts(orMixed(declared), orMixed(actual), h, false)
}

// AcceptsCoercing is Accepts with PHP's weak-mode scalar coercions.
func AcceptsCoercing(declared, actual *Type, h Hierarchy) Trinary {
	return accepts(orMixed(declared), orMixed(actual), h, true)
}

func accepts(declared, actual *Type, h Hierarchy, coerce bool) Trinary {
	switch {
	case declared.kind == KindMixed:
		return Yes
	case actual.kind == KindUnion:
		return AndFunc(actual.members, func(m *Type) Trinary { return accepts(declared, m, h, coerce) })
	case actual.kind == KindMixed:
		return Maybe
	case declared.kind == KindUnion:
		return OrFunc(declared.members, func(m *Type) Trinary { return accepts(m, actual, h, coerce) })
	}

	if r := IsSubtype(actual, declared, h); r != No {
		return r
	}
	if declared.kind == KindFloat && actual.kind == KindInt {
		return Yes
	}
	if coerce {
		return coercible(declared, actual, h)
	}
	return No
}

func coercible(declared, actual *Type, h Hierarchy) Trinary {
	if declared.hasValue || declared.hasRange {
		return No
	}
	switch declared.kind {
	case KindString:
		switch actual.kind {
		case KindInt, KindFloat, KindBool:
			return Yes
		case KindClass:
			if h == nil {
				return Maybe
			}
			return h.HasMethod(actual.class, "__toString")
		case KindObject:
			return Maybe
		}
	case KindInt, KindFloat:
		switch actual.kind {
		case KindBool:
			return Yes
		case KindFloat:
			return Maybe
		case KindString:
			if actual.hasValue {
				return FromBool(isNumeric(actual.strVal))
			}
			return Maybe
		}
	case KindBool:
		switch actual.kind {
		case KindInt, KindFloat, KindString:
			return Yes
		}
	}
	return No
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
