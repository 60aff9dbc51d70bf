package types

// Trinary is a three-valued truth value used wherever static type information is
// incomplete. With the encoding No < Maybe < Yes, AND is the minimum and OR the maximum.
type Trinary int8

const (
	No    Trinary = -1
	Maybe Trinary = 0
	Yes   Trinary = 1
)

func FromBool(b bool) Trinary {
	if b {
		return Yes
	}
	return No
}

func (t Trinary) And(other Trinary) Trinary {
	if other < t {
		return other
	}
	return t
}

func (t Trinary) Or(other Trinary) Trinary {
	if other > t {
		return other
	}
	return t
}

// Not swaps Yes and No and keeps Maybe.
func (t Trinary) Not() Trinary {
	return -t
}

func (t Trinary) IsYes() bool   { return t == Yes }
func (t Trinary) IsMaybe() bool { return t == Maybe }
func (t Trinary) IsNo() bool    { return t == No }

func (t Trinary) String() string {
	switch t {
	case Yes:
		return "Yes"
	case No:
		return "No"
	default:
		return "Maybe"
	}
}

// AndAll folds values with AND. The empty conjunction is Yes.
func AndAll(values ...Trinary) Trinary {
	result := Yes
	for _, v := range values {
		result = result.And(v)
		if result == No {
			return No
		}
	}
	return result
}

// OrAll folds values with OR. The empty disjunction is No.
func OrAll(values ...Trinary) Trinary {
	result := No
	for _, v := range values {
		result = result.Or(v)
		if result == Yes {
			return Yes
		}
	}
	return result
}

// AndFunc is AndAll over a lazily computed sequence; it stops at the first No.
func AndFunc[T any](items []T, fn func(T) Trinary) Trinary {
	result := Yes
	for _, item := range items {
		result = result.And(fn(item))
		if result == No {
			return No
		}
	}
	return result
}

// OrFunc is OrAll over a lazily computed sequence; it stops at the first Yes.
func OrFunc[T any](items []T, fn func(T) Trinary) Trinary {
	result := No
	for _, item := range items {
		result = result.Or(fn(item))
		if result == Yes {
			return Yes
		}
	}
	return result
}
