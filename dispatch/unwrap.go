package dispatch

import (
	"dispatchcore/diag"
	"dispatchcore/symbols"
	"dispatchcore/types"
)

// UnwrapType lifts a value-level expression's type back to the type it
// denotes, for intrinsics that treat a value as a type (spec §4.7). errs
// may be nil to discard the "literal used as type" diagnostic silently.
func UnwrapType(table *symbols.Table, t types.Type, loc string, errs *diag.Queue) types.Type {
	switch v := t.(type) {
	case types.MetaType:
		return v.Wrapped
	case types.ClassType:
		if info, ok := table.Class(v.ClassID); ok && info.AttachedClassID != "" {
			return types.ClassType{ClassID: info.AttachedClassID}
		}
		return v
	case types.AppliedType:
		if info, ok := table.Class(v.ClassID); ok && info.AttachedClassID != "" {
			return types.AppliedType{ClassID: info.AttachedClassID, Args: v.Args}
		}
		return v
	case types.ShapeType:
		values := make([]types.Type, len(v.Values))
		for i, val := range v.Values {
			values[i] = UnwrapType(table, val, loc, errs)
		}
		return types.ShapeType{Keys: v.Keys, Values: values}
	case types.TupleType:
		elems := make([]types.Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = UnwrapType(table, e, loc, errs)
		}
		return types.TupleType{Elems: elems}
	case types.LiteralType:
		if errs != nil {
			errs.AddBuilder(diag.New(diag.ExpectedLiteralType, loc).
				SetHeader("Literal value used in a type position"))
		}
		return types.Untyped{}
	default:
		return t
	}
}

// WrapAsValue is UnwrapType's inverse for class-like types, used by the
// value-type round-trip testable property (spec §8): unwrap_type(wrap_as_
// value(T)) = T.
func WrapAsValue(t types.Type) types.Type {
	return types.MetaType{Wrapped: t}
}
