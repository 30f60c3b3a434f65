// Package subtyping implements the primitives spec §1 and §6 describe as
// consumed by the dispatch core rather than owned by it: isSubType, the
// any/all/glb lattice operators, approximation, and a handful of type
// utilities (dropLiteral, dropNil, widen, rangeOf, arrayOf...). The core
// never reimplements these; package dispatch calls through this package
// exactly the way the original dispatch core calls through its own
// Types::isSubType, Types::any, Types::all.
package subtyping

import (
	"dispatchcore/symbols"
	"dispatchcore/types"
)

// IsSubType reports whether a is a subtype of b under the empty
// constraint — no type variable in a or b is solved against the other.
func IsSubType(table *symbols.Table, a, b types.Type) bool {
	return isSubTypeUnder(table, a, b, nil)
}

// Bounds accumulates, per type-variable id, the tightest upper and lower
// bound discovered while checking a subtype relation. Package constraint
// owns the authoritative TypeConstraint; this is the narrow read/write
// surface subtyping needs to participate in solving.
type Bounds interface {
	RecordUpperBound(id string, t types.Type)
	RecordLowerBound(id string, t types.Type)
}

// IsSubTypeUnderConstraint reports whether a is a subtype of b, recording
// any bounds discovered for type variables appearing in a or b into bounds.
// untypedMode controls how Untyped participates: AlwaysCompatible treats it
// as compatible with everything (used for ordinary argument checks per spec
// §4.3); Strict requires an exact Untyped/Untyped match when either side
// is itself Untyped.
func IsSubTypeUnderConstraint(table *symbols.Table, bounds Bounds, a, b types.Type, untypedMode UntypedMode) bool {
	if types.IsUntyped(a) || types.IsUntyped(b) {
		if untypedMode == AlwaysCompatible {
			return true
		}
		return types.IsUntyped(a) && types.IsUntyped(b)
	}
	return isSubTypeUnder(table, a, b, bounds)
}

// UntypedMode selects how Untyped participates in a subtype check.
type UntypedMode int

const (
	AlwaysCompatible UntypedMode = iota
	Strict
)

func isSubTypeUnder(table *symbols.Table, a, b types.Type, bounds Bounds) bool {
	if types.IsUntyped(a) || types.IsUntyped(b) {
		return true
	}
	if types.IsBottom(a) {
		return true
	}
	if _, ok := b.(types.Top); ok {
		return true
	}
	if bv, ok := b.(types.TypeVar); ok && bounds != nil {
		bounds.RecordLowerBound(bv.ID, a)
		return true
	}
	if av, ok := a.(types.TypeVar); ok && bounds != nil {
		bounds.RecordUpperBound(av.ID, b)
		return true
	}

	switch av := a.(type) {
	case types.OrType:
		return isSubTypeUnder(table, av.Left, b, bounds) && isSubTypeUnder(table, av.Right, b, bounds)
	case types.AndType:
		return isSubTypeUnder(table, av.Left, b, bounds) || isSubTypeUnder(table, av.Right, b, bounds)
	}
	switch bv := b.(type) {
	case types.OrType:
		return isSubTypeUnder(table, a, bv.Left, bounds) || isSubTypeUnder(table, a, bv.Right, bounds)
	case types.AndType:
		return isSubTypeUnder(table, a, bv.Left, bounds) && isSubTypeUnder(table, a, bv.Right, bounds)
	}

	if types.IsProxy(a) && !types.IsProxy(b) {
		if tupleIsSubTypeOfArray(table, a, b, bounds) {
			return true
		}
		return isSubTypeUnder(table, types.Underlying(a), b, bounds)
	}

	switch av := a.(type) {
	case types.ClassType:
		bv, ok := b.(types.ClassType)
		if !ok {
			return false
		}
		return table == nil || table.DerivesFrom(av.ClassID, bv.ClassID)
	case types.AppliedType:
		bv, ok := b.(types.AppliedType)
		if !ok {
			return false
		}
		if table != nil && !table.DerivesFrom(av.ClassID, bv.ClassID) {
			return false
		}
		if len(av.Args) != len(bv.Args) {
			return len(bv.Args) == 0
		}
		for i := range av.Args {
			if !isSubTypeUnder(table, av.Args[i], bv.Args[i], bounds) {
				return false
			}
		}
		return true
	case types.TupleType:
		bv, ok := b.(types.TupleType)
		if !ok {
			return false
		}
		if len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !isSubTypeUnder(table, av.Elems[i], bv.Elems[i], bounds) {
				return false
			}
		}
		return true
	case types.ShapeType:
		bv, ok := b.(types.ShapeType)
		if !ok {
			return false
		}
		for i, bk := range bv.Keys {
			idx := shapeKeyIndex(av, bk)
			if idx < 0 || !isSubTypeUnder(table, av.Values[idx], bv.Values[i], bounds) {
				return false
			}
		}
		return true
	case types.LiteralType:
		bv, ok := b.(types.LiteralType)
		if ok {
			return av.Kind == bv.Kind && av.Value == bv.Value
		}
		return isSubTypeUnder(table, av.Underlying, b, bounds)
	case types.Nil:
		if _, ok := b.(types.Nil); ok {
			return true
		}
		return false
	case types.MetaType:
		bv, ok := b.(types.MetaType)
		return ok && isSubTypeUnder(table, av.Wrapped, bv.Wrapped, bounds)
	case types.SelfTypeParam:
		bv, ok := b.(types.SelfTypeParam)
		return ok && av.Sym == bv.Sym
	}
	return types.Equal(a, b)
}

func shapeKeyIndex(s types.ShapeType, key types.LiteralType) int {
	for i, k := range s.Keys {
		if k.Value == key.Value {
			return i
		}
	}
	return -1
}

func tupleIsSubTypeOfArray(table *symbols.Table, a, b types.Type, bounds Bounds) bool {
	tuple, ok := a.(types.TupleType)
	if !ok {
		return false
	}
	applied, ok := b.(types.AppliedType)
	if !ok || applied.ClassID != types.RootArrayClassID || len(applied.Args) != 1 {
		return false
	}
	for _, elem := range tuple.Elems {
		if !isSubTypeUnder(table, elem, applied.Args[0], bounds) {
			return false
		}
	}
	return true
}

// Any returns the least upper bound of a and b: a normalized union.
func Any(a, b types.Type) types.Type {
	return types.NewOr(a, b)
}

// All returns the greatest lower bound... of a and b as far as the ordinary
// lattice join goes: a normalized intersection.
func All(a, b types.Type) types.Type {
	return types.NewAnd(a, b)
}

// GLB returns the greatest lower bound of a and b, collapsing to Bottom
// when the two types share no values (best-effort: two distinct, unrelated
// ClassTypes are assumed disjoint; everything else defers to All).
func GLB(table *symbols.Table, a, b types.Type) types.Type {
	ca, okA := a.(types.ClassType)
	cb, okB := b.(types.ClassType)
	if okA && okB {
		if table != nil && !table.DerivesFrom(ca.ClassID, cb.ClassID) && !table.DerivesFrom(cb.ClassID, ca.ClassID) {
			return types.Bottom{}
		}
	}
	return All(a, b)
}

// Widen drops literal precision and self-types, approximating toward the
// type's nearest non-literal ancestor (spec §4.6 must intrinsic's sibling
// concerns, §4.7 unwrap rules).
func Widen(t types.Type) types.Type {
	switch v := t.(type) {
	case types.LiteralType:
		return v.Underlying
	case types.OrType:
		return Any(Widen(v.Left), Widen(v.Right))
	default:
		return t
	}
}

// DropLiteral is Widen's spec name (spec §6 lists both isSubType and
// dropLiteral as consumed kernel primitives with this name).
func DropLiteral(t types.Type) types.Type { return Widen(t) }

// DropNil removes Nil from a union, used by the argument matcher's
// nil-stripping autocorrect search (spec §4.3) and the must intrinsic
// (spec §4.6).
func DropNil(t types.Type) types.Type {
	switch v := t.(type) {
	case types.Nil:
		return types.Bottom{}
	case types.OrType:
		left := DropNil(v.Left)
		right := DropNil(v.Right)
		if types.IsBottom(left) {
			return right
		}
		if types.IsBottom(right) {
			return left
		}
		return types.NewOr(left, right)
	default:
		return t
	}
}

// HasNil reports whether t's union includes Nil as a disjunct.
func HasNil(t types.Type) bool {
	switch v := t.(type) {
	case types.Nil:
		return true
	case types.OrType:
		return HasNil(v.Left) || HasNil(v.Right)
	default:
		return false
	}
}

// ArrayOf builds the canonical Array applied type over elem.
func ArrayOf(elem types.Type) types.Type {
	return types.AppliedType{ClassID: types.RootArrayClassID, Args: []types.Type{elem}}
}

// RangeOf builds the canonical Range applied type over elem.
func RangeOf(elem types.Type) types.Type {
	return types.AppliedType{ClassID: "Range", Args: []types.Type{elem}}
}

// HashOfUntyped builds Hash[untyped, untyped], the type synthesized by the
// overload resolver when treating trailing keyword args as an implicit
// positional hash (spec §4.4).
func HashOfUntyped() types.Type {
	return types.AppliedType{ClassID: types.RootHashClassID, Args: []types.Type{types.Untyped{}, types.Untyped{}}}
}

// ResultTypeAsSeenFrom substitutes a method's declared result/argument type
// through the receiver's type arguments, given the class the method was
// defined on (owner) and the class dispatch actually landed on (receiver).
// typeParams maps the owner's generic parameter names, positionally, onto
// receiverArgs.
func ResultTypeAsSeenFrom(t types.Type, typeParams []string, receiverArgs []types.Type) types.Type {
	if len(typeParams) == 0 || t == nil {
		return t
	}
	subst := make(map[string]types.Type, len(typeParams))
	for i, name := range typeParams {
		if i < len(receiverArgs) {
			subst[name] = receiverArgs[i]
		} else {
			subst[name] = types.Untyped{}
		}
	}
	return Substitute(t, subst)
}

// Substitute replaces TypeVar/SelfTypeParam occurrences named in subst
// (keyed by TypeVar.ID or SelfTypeParam.Sym) with their bound type.
func Substitute(t types.Type, subst map[string]types.Type) types.Type {
	if t == nil {
		return nil
	}
	switch v := t.(type) {
	case types.TypeVar:
		if r, ok := subst[v.ID]; ok {
			return r
		}
		return v
	case types.SelfTypeParam:
		if r, ok := subst[v.Sym]; ok {
			return r
		}
		return v
	case types.AppliedType:
		args := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = Substitute(a, subst)
		}
		return types.AppliedType{ClassID: v.ClassID, Args: args}
	case types.TupleType:
		elems := make([]types.Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = Substitute(e, subst)
		}
		return types.TupleType{Elems: elems}
	case types.ShapeType:
		values := make([]types.Type, len(v.Values))
		for i, val := range v.Values {
			values[i] = Substitute(val, subst)
		}
		return types.ShapeType{Keys: v.Keys, Values: values}
	case types.OrType:
		return types.NewOr(Substitute(v.Left, subst), Substitute(v.Right, subst))
	case types.AndType:
		return types.NewAnd(Substitute(v.Left, subst), Substitute(v.Right, subst))
	case types.MetaType:
		return types.MetaType{Wrapped: Substitute(v.Wrapped, subst)}
	case types.LiteralType:
		return types.LiteralType{Kind: v.Kind, Value: v.Value, Underlying: Substitute(v.Underlying, subst)}
	default:
		return t
	}
}

// ReplaceSelfType substitutes SelfTypeParam occurrences in t with self.
func ReplaceSelfType(t types.Type, selfSym string, self types.Type) types.Type {
	return Substitute(t, map[string]types.Type{selfSym: self})
}

// Instantiate is Substitute's name as listed in spec §6; kept as a thin
// alias so callers reading the spec's vocabulary find the expected symbol.
func Instantiate(t types.Type, subst map[string]types.Type) types.Type {
	return Substitute(t, subst)
}

// Approximate rebuilds t through Substitute with no bindings, so t comes
// back structurally unchanged: TypeVars are left in place, not replaced
// with Untyped. ApproximateSubtract forces named TypeVars to Untyped.
func Approximate(t types.Type) types.Type {
	return Substitute(t, nil)
}

// ApproximateSubtract approximates t with every TypeVar named in remove
// forced to Untyped, leaving others as TypeVar so a caller can continue
// solving the remainder.
func ApproximateSubtract(t types.Type, remove map[string]bool) types.Type {
	subst := make(map[string]types.Type, len(remove))
	for id := range remove {
		subst[id] = types.Untyped{}
	}
	return Substitute(t, subst)
}

// GetProcReturnType extracts a ProcType-like applied type's return type
// member, stripped of Nil (spec §4.5 block_return_type).
func GetProcReturnType(t types.Type) types.Type {
	applied, ok := t.(types.AppliedType)
	if !ok || applied.ClassID != "Proc" || len(applied.Args) == 0 {
		return types.Untyped{}
	}
	ret := applied.Args[len(applied.Args)-1]
	return DropNil(ret)
}

// GetProcArity reports the number of parameters a Proc applied type
// declares (all args but the trailing return type), or -1 for a bare Proc
// of unknown arity.
func GetProcArity(t types.Type) int {
	applied, ok := t.(types.AppliedType)
	if !ok || applied.ClassID != "Proc" {
		return -1
	}
	if len(applied.Args) == 0 {
		return -1
	}
	return len(applied.Args) - 1
}

// GetRepresentedClass returns the class id a MetaType/ClassType represents,
// for intrinsics that need to name the receiver's class directly.
func GetRepresentedClass(t types.Type) (string, bool) {
	switch v := t.(type) {
	case types.MetaType:
		return GetRepresentedClass(v.Wrapped)
	case types.ClassType:
		return v.ClassID, true
	case types.AppliedType:
		return v.ClassID, true
	default:
		return "", false
	}
}
