package types

import (
	"sort"
	"strings"
)

// Union builds the normalized union of the given members. It is an alias of
// NormalizeUnion kept for call sites that read better as a constructor.
func Union(members ...*Type) *Type {
	return NormalizeUnion(members...)
}

// NormalizeUnion flattens nested unions, drops never, removes duplicates, lets general
// scalars absorb their literals and sorts the result with null last. Any mixed member
// absorbs the whole union. Zero members give never and one member collapses to itself.
// The operation is idempotent and independent of member order.
func NormalizeUnion(members ...*Type) *Type {
	flat := make([]*Type, 0, len(members))
	for _, m := range members {
		flat = appendFlat(flat, orMixed(m))
	}

	explicitMixed, hasMixed := false, false
	for _, m := range flat {
		if m.kind == KindMixed {
			hasMixed = true
			explicitMixed = explicitMixed || m.explicit
		}
	}
	if hasMixed {
		return Mixed(explicitMixed)
	}

	seen := make(map[string]bool, len(flat))
	unique := make([]*Type, 0, len(flat))
	general := make(map[Kind]bool)
	hasObject := false
	for _, m := range flat {
		if m.kind == KindNever {
			continue
		}
		key := canonical(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, m)
		if isGeneralScalar(m) {
			general[m.kind] = true
		}
		if m.kind == KindObject {
			hasObject = true
		}
	}

	hasTrue, hasFalse := seen["true"], seen["false"]
	if hasTrue && hasFalse {
		general[KindBool] = true
		if !seen["bool"] {
			unique = append(unique, boolType)
			seen["bool"] = true
		}
	}

	out := make([]*Type, 0, len(unique))
	for _, m := range unique {
		switch {
		case (m.hasValue || m.hasRange) && general[m.kind]:
			continue
		case m.kind == KindInt && m.hasValue && coveredByRange(m.intVal, unique):
			continue
		case m.kind == KindClass && hasObject:
			continue
		}
		out = append(out, m)
	}

	switch len(out) {
	case 0:
		return neverType
	case 1:
		return out[0]
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i]), rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return canonical(out[i]) < canonical(out[j])
	})
	return &Type{kind: KindUnion, members: out}
}

func appendFlat(dst []*Type, t *Type) []*Type {
	if t.kind != KindUnion {
		return append(dst, t)
	}
	for _, m := range t.members {
		dst = appendFlat(dst, m)
	}
	return dst
}

func isGeneralScalar(t *Type) bool {
	switch t.kind {
	case KindBool, KindInt, KindString:
		return !t.hasValue && !t.hasRange
	}
	return false
}

func coveredByRange(v int64, members []*Type) bool {
	for _, m := range members {
		if m.kind != KindInt || !m.hasRange {
			continue
		}
		if (m.min == nil || *m.min <= v) && (m.max == nil || v <= *m.max) {
			return true
		}
	}
	return false
}

// rank orders union members for display. Null is always last.
func rank(t *Type) int {
	switch t.kind {
	case KindClass:
		return 0
	case KindObject:
		return 1
	case KindBool:
		return 2
	case KindInt:
		return 3
	case KindFloat:
		return 4
	case KindString:
		return 5
	case KindArray:
		return 6
	case KindIterable:
		return 7
	case KindCallable:
		return 8
	case KindResource:
		return 9
	case KindVoid:
		return 10
	case KindNull:
		return 100
	}
	return 50
}

// IsNullable reports whether null is one of the values of t. Mixed counts as nullable.
func IsNullable(t *Type) bool {
	t = orMixed(t)
	switch t.kind {
	case KindNull, KindMixed:
		return true
	case KindUnion:
		for _, m := range t.members {
			if m.kind == KindNull {
				return true
			}
		}
	}
	return false
}

// ContainsNull is like IsNullable but false for mixed.
func ContainsNull(t *Type) bool {
	t = orMixed(t)
	return t.kind != KindMixed && IsNullable(t)
}

// RemoveNull strips null from t. Mixed is returned unchanged.
func RemoveNull(t *Type) *Type {
	t = orMixed(t)
	switch t.kind {
	case KindNull:
		return neverType
	case KindUnion:
		kept := make([]*Type, 0, len(t.members))
		for _, m := range t.members {
			if m.kind != KindNull {
				kept = append(kept, m)
			}
		}
		return NormalizeUnion(kept...)
	}
	return t
}

// Remove drops every member of t equal to r.
func Remove(t, r *Type) *Type {
	t, r = orMixed(t), orMixed(r)
	if t.kind == KindMixed {
		return t
	}
	drop := make(map[string]bool)
	for _, m := range r.Members() {
		drop[canonical(m)] = true
	}
	kept := make([]*Type, 0)
	for _, m := range t.Members() {
		if !drop[canonical(m)] {
			kept = append(kept, m)
		}
	}
	return NormalizeUnion(kept...)
}

// Generalize widens literals and ranges to their general scalar type.
func Generalize(t *Type) *Type {
	t = orMixed(t)
	switch t.kind {
	case KindBool:
		return boolType
	case KindInt:
		return intType
	case KindString:
		return stringType
	case KindArray:
		if t.key.kind == KindNever && t.value.kind == KindNever {
			return t
		}
		return Array(Generalize(t.key), Generalize(t.value))
	case KindIterable:
		return Iterable(Generalize(t.key), Generalize(t.value))
	case KindUnion:
		out := make([]*Type, len(t.members))
		for i, m := range t.members {
			out[i] = Generalize(m)
		}
		return NormalizeUnion(out...)
	}
	return t
}

// MapClasses rebuilds t with every class reference replaced by fn(name). Returning
// nil from fn keeps the reference.
func MapClasses(t *Type, fn func(name string) *Type) *Type {
	if t == nil {
		return nil
	}
	switch t.kind {
	case KindClass:
		if r := fn(t.class); r != nil {
			return r
		}
	case KindArray:
		if t.key.kind == KindNever && t.value.kind == KindNever {
			return t
		}
		return Array(MapClasses(t.key, fn), MapClasses(t.value, fn))
	case KindIterable:
		return Iterable(MapClasses(t.key, fn), MapClasses(t.value, fn))
	case KindUnion:
		out := make([]*Type, len(t.members))
		for i, m := range t.members {
			out[i] = MapClasses(m, fn)
		}
		return NormalizeUnion(out...)
	}
	return t
}

// Substitute replaces the late-static-binding placeholders `static` and `$this` with
// the given receiver type.
func Substitute(t, static *Type) *Type {
	if t == nil || static == nil {
		return t
	}
	return MapClasses(t, func(name string) *Type {
		if isLateStatic(name) {
			return static
		}
		return nil
	})
}

// HasLateStatic reports whether t mentions `static` or `$this`.
func HasLateStatic(t *Type) bool {
	if t == nil {
		return false
	}
	switch t.kind {
	case KindClass:
		return isLateStatic(t.class)
	case KindArray, KindIterable:
		return HasLateStatic(t.key) || HasLateStatic(t.value)
	case KindUnion:
		for _, m := range t.members {
			if HasLateStatic(m) {
				return true
			}
		}
	}
	return false
}

func isLateStatic(name string) bool {
	return name == "$this" || strings.EqualFold(name, "static")
}
