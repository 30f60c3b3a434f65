package dispatch

import (
	"fmt"

	"dispatchcore/diag"
	"dispatchcore/subtyping"
	"dispatchcore/symbols"
	"dispatchcore/types"
)

// tryProxyIntrinsic implements the Tuple/Shape half of spec §4.6's
// intrinsic table: these operations are structural (indexed by the actual
// keys/elements of the proxy value) rather than symbol-table methods, so
// they are matched directly on (variant, name) instead of going through
// dispatchSymbol. A false second return means "no such intrinsic"; the
// caller (dispatchProxy) falls through to Underlying().
func tryProxyIntrinsic(table *symbols.Table, opts Options, args DispatchArgs) (*DispatchResult, bool) {
	switch v := args.ThisType.(type) {
	case types.TupleType:
		return tupleIntrinsic(args, v)
	case types.ShapeType:
		return shapeIntrinsic(table, args, v)
	}
	return nil, false
}

func tupleIntrinsic(args DispatchArgs, v types.TupleType) (*DispatchResult, bool) {
	switch args.Name {
	case "[]":
		return simpleResult(args, tupleIndex(v, args)), true
	case "first":
		return simpleResult(args, tupleElemAt(v, 0)), true
	case "last":
		return simpleResult(args, tupleElemAt(v, len(v.Elems)-1)), true
	case "min", "max":
		return simpleResult(args, types.NewOr(v.Elems...)), true
	case "to_a", "to_ary":
		return simpleResult(args, subtyping.ArrayOf(types.NewOr(v.Elems...))), true
	case "concat":
		return simpleResult(args, concatTuples(v, args)), true
	}
	return nil, false
}

func tupleElemAt(v types.TupleType, idx int) types.Type {
	if idx < 0 || idx >= len(v.Elems) {
		return types.Nil{}
	}
	return v.Elems[idx]
}

// tupleIndex implements Tuple#[]: a negative integer literal index wraps
// around from the end; out-of-bounds (after wrapping) is nil; a non-literal
// or non-int index degrades to the union of every element plus nil, since
// the concrete slot can no longer be proven statically (spec §4.6, §8
// scenario 5).
func tupleIndex(v types.TupleType, args DispatchArgs) types.Type {
	pos := args.PositionalArgs()
	if len(pos) == 0 {
		return types.Nil{}
	}
	lit, ok := pos[0].Type.(types.LiteralType)
	if !ok || lit.Kind != types.LiteralInt {
		return types.NewOr(append(append([]types.Type{}, v.Elems...), types.Nil{})...)
	}
	idx, ok := toInt(lit.Value)
	if !ok {
		return types.NewOr(append(append([]types.Type{}, v.Elems...), types.Nil{})...)
	}
	if idx < 0 {
		idx += len(v.Elems)
	}
	return tupleElemAt(v, idx)
}

func concatTuples(v types.TupleType, args DispatchArgs) types.Type {
	elems := append([]types.Type{}, v.Elems...)
	for _, a := range args.PositionalArgs() {
		if other, ok := a.Type.(types.TupleType); ok {
			elems = append(elems, other.Elems...)
		}
	}
	return types.TupleType{Elems: elems}
}

func shapeIntrinsic(table *symbols.Table, args DispatchArgs, v types.ShapeType) (*DispatchResult, bool) {
	switch args.Name {
	case "[]":
		return simpleResult(args, shapeIndex(v, args)), true
	case "[]=":
		return shapeIndexSet(table, args, v), true
	case "merge":
		return simpleResult(args, shapeMerge(v, args)), true
	case "to_hash", "to_h":
		return simpleResult(args, types.Underlying(v)), true
	case "first":
		return simpleResult(args, firstShapeEntry(v)), true
	}
	return nil, false
}

func firstShapeEntry(v types.ShapeType) types.Type {
	if len(v.Keys) == 0 {
		return types.Nil{}
	}
	return types.TupleType{Elems: []types.Type{v.Keys[0], v.Values[0]}}
}

func shapeIndex(v types.ShapeType, args DispatchArgs) types.Type {
	pos := args.PositionalArgs()
	if len(pos) == 0 {
		return types.Nil{}
	}
	lit, ok := pos[0].Type.(types.LiteralType)
	if !ok {
		return types.Nil{}
	}
	idx := shapeKeyIndexByValue(v, lit.Value)
	if idx < 0 {
		return types.Nil{}
	}
	return v.Values[idx]
}

// shapeIndexSet implements Shape#[]=: type-checks the value against the
// existing key's type. The exact source-scan fallback that locates the
// original nil|true|false literal for the key (spec §4.6) lives in the
// diagnostic's autocorrect description rather than actually scanning
// source text, since this module has no source I/O (spec §1 scopes that
// out as an external collaborator).
func shapeIndexSet(table *symbols.Table, args DispatchArgs, v types.ShapeType) *DispatchResult {
	errs := diag.NewQueue()
	pos := args.PositionalArgs()
	var ret types.Type = types.Untyped{}
	if len(pos) >= 2 {
		ret = pos[1].Type
		if lit, ok := pos[0].Type.(types.LiteralType); ok {
			if idx := shapeKeyIndexByValue(v, lit.Value); idx >= 0 {
				existing := v.Values[idx]
				if !subtyping.IsSubTypeUnderConstraint(table, nil, ret, existing, subtyping.AlwaysCompatible) {
					b := diag.New(diag.MethodArgumentMismatch, pos[1].Loc).
						SetHeader(fmt.Sprintf("Cannot assign `%s` to a key typed `%s`", types.Name(ret), types.Name(existing)))
					if isHardcodedLiteralCandidate(existing) {
						b.AddAutocorrect(diag.Autocorrect{Loc: pos[1].Loc, Description: "Wrap the original value in `T.let(..., " + types.Name(existing) + ")`"})
					}
					errs.AddBuilder(b)
				}
			}
		}
	}
	if args.SuppressErrors {
		errs = diag.NewQueue()
	}
	result := newResult()
	result.ReturnType = ret
	result.Main = DispatchComponent{Receiver: args.ThisType, Errors: errs, SendType: ret}
	return result
}

// isHardcodedLiteralCandidate restricts the T.let autocorrect to the three
// hard-coded value forms spec §4.6 names (nil, true, false) as the only
// shapes the (unimplemented here) source scan could ever uniquely locate.
func isHardcodedLiteralCandidate(t types.Type) bool {
	switch v := t.(type) {
	case types.Nil:
		return true
	case types.LiteralType:
		return v.Kind == types.LiteralBool
	default:
		return false
	}
}

func shapeMerge(v types.ShapeType, args DispatchArgs) types.Type {
	pairs, kwsplat := args.KeywordPairs()
	merged := v
	for _, p := range pairs {
		if lit, ok := p.Key.Type.(types.LiteralType); ok {
			merged = mergeOneShapeKey(merged, lit, p.Value.Type)
		}
	}
	if kwsplat != nil {
		if other, ok := kwsplat.Type.(types.ShapeType); ok {
			for i, k := range other.Keys {
				merged = mergeOneShapeKey(merged, k, other.Values[i])
			}
		}
	}
	return merged
}

func mergeOneShapeKey(s types.ShapeType, key types.LiteralType, value types.Type) types.ShapeType {
	for i, k := range s.Keys {
		if k.Value == key.Value {
			values := append([]types.Type{}, s.Values...)
			values[i] = value
			return types.ShapeType{Keys: s.Keys, Values: values}
		}
	}
	return types.ShapeType{
		Keys:   append(append([]types.LiteralType{}, s.Keys...), key),
		Values: append(append([]types.Type{}, s.Values...), value),
	}
}

func shapeKeyIndexByValue(v types.ShapeType, value any) int {
	for i, k := range v.Keys {
		if k.Value == value {
			return i
		}
	}
	return -1
}

func simpleResult(args DispatchArgs, ret types.Type) *DispatchResult {
	errs := diag.NewQueue()
	result := newResult()
	result.ReturnType = ret
	result.Main = DispatchComponent{Receiver: args.ThisType, Errors: errs, SendType: ret}
	return result
}
