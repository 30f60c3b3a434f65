package types

// Well-known root class ids the proxy variants project onto. The symbol
// table is free to use other names for its own Hash/Array classes; dispatch
// callers that need a different mapping can bypass Underlying and build the
// AppliedType themselves.
const (
	RootHashClassID  = "Hash"
	RootArrayClassID = "Array"
)

// Underlying projects a proxy variant (Literal, Shape, Tuple) down to the
// plain class or applied type it is ultimately backed by. Non-proxy types
// return themselves, so callers can call Underlying unconditionally.
func Underlying(t Type) Type {
	switch v := t.(type) {
	case LiteralType:
		if v.Underlying != nil {
			return v.Underlying
		}
		return Untyped{}
	case ShapeType:
		return AppliedType{ClassID: RootHashClassID, Args: []Type{shapeKeyUnion(v), shapeValueUnion(v)}}
	case TupleType:
		return AppliedType{ClassID: RootArrayClassID, Args: []Type{tupleElemUnion(v)}}
	default:
		return t
	}
}

func shapeKeyUnion(s ShapeType) Type {
	keys := make([]Type, len(s.Keys))
	for i, k := range s.Keys {
		keys[i] = k
	}
	return NewOr(keys...)
}

func shapeValueUnion(s ShapeType) Type {
	return NewOr(s.Values...)
}

func tupleElemUnion(t TupleType) Type {
	return NewOr(t.Elems...)
}

// IsProxy reports whether t is one of the proxy variants that expose an
// Underlying projection distinct from themselves.
func IsProxy(t Type) bool {
	switch t.(type) {
	case LiteralType, ShapeType, TupleType:
		return true
	default:
		return false
	}
}
