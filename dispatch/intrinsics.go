package dispatch

import (
	"fmt"

	"dispatchcore/constraint"
	"dispatchcore/diag"
	"dispatchcore/subtyping"
	"dispatchcore/symbols"
	"dispatchcore/types"
)

// IntrinsicHandler is a strategy-table entry (spec §4.6, §9 design notes:
// "intrinsics as strategy table... avoid inheritance hierarchies for
// handlers"). It may inspect the already-matched call, inject diagnostics,
// and return a replacement return type; returning nil leaves the
// already-computed return type untouched.
type IntrinsicHandler func(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type

// globalIntrinsics is the (owner-class-agnostic) registry of named
// intrinsics a symbols.Method.Intrinsic field points into, looked up by
// name once the method has already been resolved (spec §4.6's "registered
// once at startup... consulted via method.intrinsic").
var globalIntrinsics map[string]IntrinsicHandler

func init() {
	globalIntrinsics = map[string]IntrinsicHandler{
		"untyped":                   intrinsicUntyped,
		"noreturn":                  intrinsicNoreturn,
		"nilable":                   intrinsicNilable,
		"any":                       intrinsicAny,
		"all":                       intrinsicAll,
		"must":                      intrinsicMust,
		"reveal_type":               intrinsicRevealType,
		"proc":                      intrinsicProc,
		"class":                     intrinsicClass,
		"singleton_class":           intrinsicSingletonClass,
		"self_new":                  intrinsicSelfNew,
		"build_hash":                intrinsicBuildHash,
		"build_array":               intrinsicBuildArray,
		"build_range":               intrinsicBuildRange,
		"call_with_splat":           intrinsicCallWithSplat,
		"call_with_block":           intrinsicCallWithBlock,
		"call_with_splat_and_block": intrinsicCallWithSplatAndBlock,
		"splat":                     intrinsicSplat,
		"suggest_type":              intrinsicSuggestType,
		"generic_bracket":           intrinsicGenericBracket,
		"module_eqq":                intrinsicModuleEqq,
		"flatten":                   intrinsicFlatten,
		"product":                   intrinsicProduct,
		"zip":                       intrinsicZip,
		"compact":                   intrinsicCompact,
	}
}

func intrinsicUntyped(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	return types.Untyped{}
}

func intrinsicNoreturn(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	return types.Bottom{}
}

func intrinsicNilable(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	wrapped := unwrapFirstArg(table, args, errs)
	return types.MetaType{Wrapped: types.NewOr(wrapped, types.Nil{})}
}

func intrinsicAny(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	members := unwrapAllArgs(table, args, errs)
	return types.MetaType{Wrapped: types.NewOr(members...)}
}

func intrinsicAll(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	members := unwrapAllArgs(table, args, errs)
	return types.MetaType{Wrapped: types.NewAnd(members...)}
}

// intrinsicMust implements `T.must(x)`: strips nil from x's type and emits
// InvalidCast when x could never have been nil in the first place, using a
// single message template ("`T.must` called on `X`, which is never nil")
// plus an autocorrect that removes the redundant `T.must`.
func intrinsicMust(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	pos := args.PositionalArgs()
	if len(pos) == 0 {
		return types.Untyped{}
	}
	x := pos[0].Type
	if !subtyping.HasNil(x) && !types.IsUntyped(x) {
		errs.AddBuilder(diag.New(diag.InvalidCast, pos[0].Loc).
			SetHeader(fmt.Sprintf("`T.must` called on `%s`, which is never nil", types.Name(x))).
			AddAutocorrect(diag.Autocorrect{Loc: pos[0].Loc, Description: "Remove the redundant `T.must`"}))
		return x
	}
	return subtyping.DropNil(x)
}

func intrinsicRevealType(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	pos := args.PositionalArgs()
	if len(pos) == 0 {
		return types.Untyped{}
	}
	errs.AddBuilder(diag.New(diag.RevealType, pos[0].Loc).
		SetHeader(fmt.Sprintf("Revealed type: `%s`", types.Name(pos[0].Type))))
	return pos[0].Type
}

func intrinsicProc(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	return types.MetaType{Wrapped: types.ClassType{ClassID: "Proc"}}
}

func intrinsicClass(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	classID, _ := classAndArgs(args.ThisType)
	if classID == "" {
		return types.MetaType{Wrapped: types.ClassType{ClassID: "Class"}}
	}
	return types.MetaType{Wrapped: types.ClassType{ClassID: classID}}
}

func intrinsicSingletonClass(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	classID, _ := classAndArgs(args.ThisType)
	info, ok := table.Class(classID)
	if !ok || info.SingletonClassID == "" {
		return types.MetaType{Wrapped: types.ClassType{ClassID: "Class"}}
	}
	return types.MetaType{Wrapped: types.ClassType{ClassID: info.SingletonClassID}}
}

// intrinsicSelfNew replaces the return type of a constructor-ish method
// with SelfTypeParam(AttachedClass) so subclasses inherit the precise
// return type from a shared `self.new`-style definition (spec §4.6).
func intrinsicSelfNew(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	return types.SelfTypeParam{Sym: selfTypeSymbol}
}

func intrinsicBuildHash(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	pairs, _ := args.KeywordPairs()
	var keys, values []types.Type
	for _, p := range pairs {
		keys = append(keys, p.Key.Type)
		values = append(values, p.Value.Type)
	}
	for _, a := range args.PositionalArgs() {
		values = append(values, a.Type)
	}
	return types.AppliedType{ClassID: types.RootHashClassID, Args: []types.Type{types.NewOr(keys...), types.NewOr(values...)}}
}

func intrinsicBuildArray(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	var elems []types.Type
	for _, a := range args.PositionalArgs() {
		elems = append(elems, a.Type)
	}
	return subtyping.ArrayOf(types.NewOr(elems...))
}

func intrinsicBuildRange(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	pos := args.PositionalArgs()
	var elems []types.Type
	for _, a := range pos {
		elems = append(elems, a.Type)
	}
	return subtyping.RangeOf(types.NewOr(elems...))
}

// intrinsicCallWithSplat mirrors calls.cc's generateSendArgs: the first
// positional argument is the literal method name, the second a TupleType of
// positional arg types assembled from an `*args` splat; redispatches on the
// receiver under that name. A non-literal-tuple splat argument is
// UntypedSplat (spec §4.6, SPEC_FULL.md §11).
func intrinsicCallWithSplat(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	pos := args.PositionalArgs()
	if len(pos) < 2 {
		return types.Untyped{}
	}
	name, ok := literalSymbolName(pos[0].Type)
	if !ok {
		return types.Untyped{}
	}
	tuple, ok := pos[1].Type.(types.TupleType)
	if !ok {
		errs.AddBuilder(diag.New(diag.UntypedSplat, pos[1].Loc).
			SetHeader("Splatting a non-literal-tuple value; argument types cannot be checked"))
		return types.Untyped{}
	}
	sub := DispatchArgs{
		Name:       name,
		Locs:       args.Locs,
		NumPosArgs: len(tuple.Elems),
		Args:       tupleAsActuals(tuple, args.Locs.Call),
		ThisType:   args.SelfType,
		SelfType:   args.SelfType,
		FullType:   args.FullType,
	}
	result := Dispatch(table, opts, sub)
	errs.Merge(result.Main.Errors)
	return result.ReturnType
}

func intrinsicCallWithBlock(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	pos := args.PositionalArgs()
	if len(pos) < 1 {
		return types.Untyped{}
	}
	name, ok := literalSymbolName(pos[0].Type)
	if !ok {
		return types.Untyped{}
	}
	var blk *BlockArg
	if len(pos) >= 2 {
		if types.IsNil(pos[1].Type) {
			return types.Nil{}
		}
		coerced := coerceBlockValue(table, opts, pos[1].Type, pos[1].Loc, errs)
		blk = &BlockArg{Type: coerced, Loc: pos[1].Loc, ArityKnown: subtyping.GetProcArity(coerced) >= 0}
	}
	sub := DispatchArgs{
		Name:     name,
		Locs:     args.Locs,
		ThisType: args.SelfType,
		SelfType: args.SelfType,
		FullType: args.FullType,
		Block:    blk,
	}
	result := Dispatch(table, opts, sub)
	errs.Merge(result.Main.Errors)
	return result.ReturnType
}

func intrinsicCallWithSplatAndBlock(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	pos := args.PositionalArgs()
	if len(pos) < 3 {
		return types.Untyped{}
	}
	name, ok := literalSymbolName(pos[0].Type)
	if !ok {
		return types.Untyped{}
	}
	tuple, ok := pos[1].Type.(types.TupleType)
	if !ok {
		errs.AddBuilder(diag.New(diag.UntypedSplat, pos[1].Loc).
			SetHeader("Splatting a non-literal-tuple value; argument types cannot be checked"))
		return types.Untyped{}
	}
	var blk *BlockArg
	if !types.IsNil(pos[2].Type) {
		coerced := coerceBlockValue(table, opts, pos[2].Type, pos[2].Loc, errs)
		blk = &BlockArg{Type: coerced, Loc: pos[2].Loc, ArityKnown: subtyping.GetProcArity(coerced) >= 0}
	}
	sub := DispatchArgs{
		Name:       name,
		Locs:       args.Locs,
		NumPosArgs: len(tuple.Elems),
		Args:       tupleAsActuals(tuple, args.Locs.Call),
		ThisType:   args.SelfType,
		SelfType:   args.SelfType,
		FullType:   args.FullType,
		Block:      blk,
	}
	result := Dispatch(table, opts, sub)
	errs.Merge(result.Main.Errors)
	return result.ReturnType
}

// intrinsicSplat invokes a synthetic `to_a` dispatch on the receiver.
func intrinsicSplat(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	sub := DispatchArgs{Name: "to_a", Locs: args.Locs, ThisType: args.ThisType, SelfType: args.SelfType, FullType: args.FullType}
	result := Dispatch(table, opts, sub)
	errs.Merge(result.Main.Errors)
	return result.ReturnType
}

func intrinsicSuggestType(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	pos := args.PositionalArgs()
	if len(pos) == 0 {
		return types.Untyped{}
	}
	errs.AddBuilder(diag.New(diag.UntypedConstantSuggestion, pos[0].Loc).
		SetHeader(fmt.Sprintf("Add a type annotation: `T.let(..., %s)`", types.Name(pos[0].Type))).
		AddAutocorrect(diag.Autocorrect{Loc: pos[0].Loc, Description: "Wrap in `T.let(...)`"}))
	return pos[0].Type
}

// intrinsicGenericBracket implements `SomeGeneric[Arg1, Arg2]`: validates
// arity against the class's declared type arity, checks each argument
// against the class's declared type-member bound at that position (a slot
// with no recorded bound accepts anything), and produces a
// MetaType(AppliedType(...)). Keyword arguments are rejected with a
// brace-wrap autocorrect (spec §4.6).
func intrinsicGenericBracket(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	classID, _ := classAndArgs(args.ThisType)
	if pairs, kwsplat := args.KeywordPairs(); len(pairs) > 0 || kwsplat != nil {
		errs.AddBuilder(diag.New(diag.GenericArgumentKeywordArgs, args.Locs.Call).
			SetHeader("Generic type arguments must be positional").
			AddAutocorrect(diag.Autocorrect{Loc: args.Locs.Call, Description: "Wrap keyword-looking arguments in `{...}`"}))
	}
	info, _ := table.Class(classID)
	positional := args.PositionalArgs()
	targs := make([]types.Type, 0, len(positional))
	for _, a := range positional {
		targs = append(targs, unwrapFirstArgType(table, a, errs))
	}
	if info.TypeArity > 0 && len(targs) != info.TypeArity {
		errs.AddBuilder(diag.New(diag.GenericArgumentCountMismatch, args.Locs.Call).
			SetHeader(fmt.Sprintf("`%s` takes %d type argument(s), got %d", classID, info.TypeArity, len(targs))))
	}
	for i, targ := range targs {
		if i >= len(info.TypeMemberBounds) || info.TypeMemberBounds[i] == nil {
			continue
		}
		bound := info.TypeMemberBounds[i]
		if !subtyping.IsSubType(table, targ, bound) {
			loc := args.Locs.Call
			if i < len(positional) {
				loc = positional[i].Loc
			}
			errs.AddBuilder(diag.New(diag.GenericTypeParamBoundMismatch, loc).
				SetHeader(fmt.Sprintf("Type argument `%s` at position %d is not a subtype of the declared bound `%s` for `%s`", types.Name(targ), i, types.Name(bound), classID)))
		}
	}
	return types.MetaType{Wrapped: types.AppliedType{ClassID: classID, Args: targs}}
}

// intrinsicModuleEqq implements `Mod === x`: statically true when x is a
// subtype of the represented class, false when their GLB is bottom, else a
// plain boolean (unresolved at check time) (spec §4.6).
func intrinsicModuleEqq(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	pos := args.PositionalArgs()
	if len(pos) == 0 {
		return types.ClassType{ClassID: "Boolean"}
	}
	classID, ok := subtyping.GetRepresentedClass(args.ThisType)
	if !ok {
		return types.ClassType{ClassID: "Boolean"}
	}
	represented := types.ClassType{ClassID: classID}
	if subtyping.IsSubType(table, pos[0].Type, represented) {
		return types.LiteralType{Kind: types.LiteralBool, Value: true, Underlying: types.ClassType{ClassID: "Boolean"}}
	}
	if types.IsBottom(subtyping.GLB(table, pos[0].Type, represented)) {
		return types.LiteralType{Kind: types.LiteralBool, Value: false, Underlying: types.ClassType{ClassID: "Boolean"}}
	}
	return types.ClassType{ClassID: "Boolean"}
}

// intrinsicFlatten implements Array#flatten(depth?): descends through
// nested Array/Tuple element types up to depth (negative behaves as
// infinite), invoking a synthetic `to_ary` dispatch on element types before
// recursing, and rewraps (spec §4.6).
func intrinsicFlatten(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	elem := applyArrayElem(args.ThisType)
	depth := -1
	if pos := args.PositionalArgs(); len(pos) > 0 {
		if lit, ok := pos[0].Type.(types.LiteralType); ok && lit.Kind == types.LiteralInt {
			if v, ok := toInt(lit.Value); ok {
				depth = v
			}
		}
	}
	return subtyping.ArrayOf(flattenElem(table, opts, elem, depth, args.Locs.Call, errs))
}

func flattenElem(table *symbols.Table, opts Options, elem types.Type, depth int, loc string, errs *diag.Queue) types.Type {
	if depth == 0 {
		return elem
	}
	switch v := elem.(type) {
	case types.TupleType:
		return types.NewOr(mapFlatten(table, opts, v.Elems, depth, loc, errs)...)
	case types.AppliedType:
		if v.ClassID == types.RootArrayClassID && len(v.Args) == 1 {
			return flattenElem(table, opts, v.Args[0], decr(depth), loc, errs)
		}
	}
	sub := DispatchArgs{Name: "to_ary", ThisType: elem, SelfType: elem, FullType: elem, Locs: Locs{Call: loc}, SuppressErrors: true}
	result := Dispatch(table, opts, sub)
	if applied, ok := result.ReturnType.(types.AppliedType); ok && applied.ClassID == types.RootArrayClassID && len(applied.Args) == 1 {
		return flattenElem(table, opts, applied.Args[0], decr(depth), loc, errs)
	}
	return elem
}

func mapFlatten(table *symbols.Table, opts Options, elems []types.Type, depth int, loc string, errs *diag.Queue) []types.Type {
	out := make([]types.Type, len(elems))
	for i, e := range elems {
		out[i] = flattenElem(table, opts, e, decr(depth), loc, errs)
	}
	return out
}

func decr(depth int) int {
	if depth < 0 {
		return depth
	}
	return depth - 1
}

func intrinsicProduct(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	elems := []types.Type{applyArrayElem(args.ThisType)}
	for _, a := range args.PositionalArgs() {
		elems = append(elems, applyArrayElem(a.Type))
	}
	return subtyping.ArrayOf(types.TupleType{Elems: elems})
}

func intrinsicZip(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	elems := []types.Type{applyArrayElem(args.ThisType)}
	for _, a := range args.PositionalArgs() {
		elems = append(elems, types.NewOr(applyArrayElem(a.Type), types.Nil{}))
	}
	return subtyping.ArrayOf(types.TupleType{Elems: elems})
}

func intrinsicCompact(table *symbols.Table, opts Options, args DispatchArgs, method symbols.Method, c *constraint.TypeConstraint, errs *diag.Queue, current types.Type) types.Type {
	return subtyping.ArrayOf(subtyping.DropNil(applyArrayElem(args.ThisType)))
}

func applyArrayElem(t types.Type) types.Type {
	switch v := types.Underlying(t).(type) {
	case types.AppliedType:
		if len(v.Args) == 1 {
			return v.Args[0]
		}
	}
	return types.Untyped{}
}

func unwrapFirstArg(table *symbols.Table, args DispatchArgs, errs *diag.Queue) types.Type {
	pos := args.PositionalArgs()
	if len(pos) == 0 {
		return types.Untyped{}
	}
	return unwrapFirstArgType(table, pos[0], errs)
}

func unwrapFirstArgType(table *symbols.Table, a ActualArg, errs *diag.Queue) types.Type {
	return UnwrapType(table, a.Type, a.Loc, errs)
}

func unwrapAllArgs(table *symbols.Table, args DispatchArgs, errs *diag.Queue) []types.Type {
	pos := args.PositionalArgs()
	out := make([]types.Type, len(pos))
	for i, a := range pos {
		out[i] = unwrapFirstArgType(table, a, errs)
	}
	return out
}

func literalSymbolName(t types.Type) (string, bool) {
	lit, ok := t.(types.LiteralType)
	if !ok || lit.Kind != types.LiteralSymbol {
		return "", false
	}
	name, ok := lit.Value.(string)
	return name, ok
}

func tupleAsActuals(tuple types.TupleType, loc string) []ActualArg {
	out := make([]ActualArg, len(tuple.Elems))
	for i, e := range tuple.Elems {
		out[i] = ActualArg{Type: e, Loc: loc}
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
