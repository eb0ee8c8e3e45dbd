package bluequery

// Shape tells whether a Value holds one string or several.
type Shape int

const (
	Absent Shape = iota
	Scalar
	List
)

// Value is the stored content of a parameter: either a single string or an
// ordered list of strings. The zero Value is absent.
//
// Values built by the store are normalized: one string is always Scalar and
// two or more are always List.
type Value struct {
	shape  Shape
	scalar string
	list   []string
}

// ScalarValue returns a Scalar holding s.
func ScalarValue(s string) Value {
	return Value{shape: Scalar, scalar: s}
}

// ListValue returns a List holding a copy of vs.
func ListValue(vs ...string) Value {
	return Value{shape: List, list: append([]string(nil), vs...)}
}

// valueOf normalizes vs by count.
func valueOf(vs []string) Value {
	switch len(vs) {
	case 0:
		return Value{}
	case 1:
		return ScalarValue(vs[0])
	}
	return ListValue(vs...)
}

func (v Value) Shape() Shape { return v.shape }

func (v Value) IsAbsent() bool { return v.shape == Absent }

// Scalar returns the single string and true when v is Scalar.
func (v Value) Scalar() (string, bool) {
	if v.shape != Scalar {
		return "", false
	}
	return v.scalar, true
}

// Strings returns every string held, in order. A Scalar yields a one-element
// slice and an absent Value yields nil.
func (v Value) Strings() []string {
	switch v.shape {
	case Scalar:
		return []string{v.scalar}
	case List:
		return append([]string(nil), v.list...)
	}
	return nil
}

// First returns the scalar or the first list element.
func (v Value) First() (string, bool) {
	switch v.shape {
	case Scalar:
		return v.scalar, true
	case List:
		if len(v.list) > 0 {
			return v.list[0], true
		}
	}
	return "", false
}

// Len returns the number of strings held.
func (v Value) Len() int {
	switch v.shape {
	case Scalar:
		return 1
	case List:
		return len(v.list)
	}
	return 0
}

// Equal reports whether v and o have the same shape and strings.
func (v Value) Equal(o Value) bool {
	if v.shape != o.shape {
		return false
	}
	switch v.shape {
	case Scalar:
		return v.scalar == o.scalar
	case List:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
	}
	return true
}
