package types

// MemberKind selects between methods and properties for MemberExists.
type MemberKind uint8

const (
	MemberMethod MemberKind = iota
	MemberProperty
)

func (k MemberKind) String() string {
	if k == MemberProperty {
		return "property"
	}
	return "method"
}

// MemberExists reports whether name is a member of every value of t. For a union the
// per-variant answers are combined with AND: Yes only when every variant has the
// member, No as soon as one variant certainly lacks it.
func MemberExists(t *Type, name string, kind MemberKind, h Hierarchy) Trinary {
	t = orMixed(t)
	switch t.kind {
	case KindUnion:
		return AndFunc(t.members, func(m *Type) Trinary { return MemberExists(m, name, kind, h) })
	case KindClass:
		if h == nil {
			return Maybe
		}
		if kind == MemberProperty {
			return h.HasProperty(t.class, name)
		}
		return h.HasMethod(t.class, name)
	case KindNever:
		return Yes
	case KindMixed, KindObject, KindIterable, KindCallable:
		return Maybe
	}
	return No
}

// MemberExistsPerVariant evaluates MemberExists on each variant of t separately, in
// display order. Non-union types yield a single entry.
func MemberExistsPerVariant(t *Type, name string, kind MemberKind, h Hierarchy) []VariantResult {
	members := orMixed(t).Members()
	out := make([]VariantResult, 0, len(members))
	for _, m := range members {
		out = append(out, VariantResult{Type: m, Result: MemberExists(m, name, kind, h)})
	}
	return out
}

// VariantResult pairs one union member with a trinary answer.
type VariantResult struct {
	Type   *Type
	Result Trinary
}
