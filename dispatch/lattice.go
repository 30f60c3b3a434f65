package dispatch

import (
	"dispatchcore/diag"
	"dispatchcore/subtyping"
	"dispatchcore/symbols"
	"dispatchcore/types"
)

// Dispatch is the top-level entry point (spec §4.1): it cases on the
// receiver type's variant and routes to the matching strategy. Every
// variant in the sealed lattice (types.Type) is handled exhaustively; an
// unrecognized inference-only artifact (TypeVar, SelfTypeParam, LambdaParam,
// Top) falls back to the Untyped contract rather than panicking, since none
// of them can appear as a call's receiver once the caller's own constraint
// solving has run.
func Dispatch(table *symbols.Table, opts Options, args DispatchArgs) *DispatchResult {
	switch v := args.ThisType.(type) {
	case nil:
		return dispatchUntyped(args)
	case types.Untyped:
		return dispatchUntyped(args)
	case types.Bottom:
		return dispatchBottom(args)
	case types.OrType:
		return dispatchOr(table, opts, args, v)
	case types.AndType:
		return dispatchAnd(table, opts, args, v)
	case types.LiteralType, types.ShapeType, types.TupleType:
		return dispatchProxy(table, opts, args)
	case types.MetaType:
		return dispatchMeta(table, opts, args, v)
	case types.ClassType, types.AppliedType, types.Nil:
		return dispatchSymbol(table, opts, args)
	default:
		return dispatchUntyped(args)
	}
}

func dispatchUntyped(args DispatchArgs) *DispatchResult {
	result := newResult()
	result.ReturnType = types.Untyped{}
	result.Main = DispatchComponent{Receiver: args.ThisType, Errors: diag.NewQueue(), SendType: types.Untyped{}}
	return result
}

// dispatchBottom covers the "cannot call a method on an expression with no
// possible values" contract spec §4.1 describes for Void; this module's
// sealed lattice (spec §3) names Bottom rather than a separate Void
// variant, so Bottom plays that role here.
func dispatchBottom(args DispatchArgs) *DispatchResult {
	errs := diag.NewQueue()
	if !args.SuppressErrors {
		errs.AddBuilder(diag.New(diag.BareTypeUsage, args.Locs.Receiver).
			SetHeader("Cannot call method `" + args.Name + "` on an expression with no possible values"))
	}
	result := newResult()
	result.ReturnType = types.Untyped{}
	result.Main = DispatchComponent{Receiver: args.ThisType, Errors: errs}
	return result
}

func dispatchOr(table *symbols.Table, opts Options, args DispatchArgs, v types.OrType) *DispatchResult {
	leftArgs, rightArgs := args, args
	leftArgs.ThisType, rightArgs.ThisType = v.Left, v.Right
	dl := Dispatch(table, opts, leftArgs)
	dr := Dispatch(table, opts, rightArgs)
	return mergeResults(dl, dr, SecondaryOr, subtyping.Any(dl.ReturnType, dr.ReturnType))
}

// dispatchAnd implements intersection short-circuit (spec §4.1, §8): both
// sides are probed with errors suppressed; if exactly one resolves the
// method, that side's result is adopted as-is (re-dispatched with errors
// enabled), otherwise both are merged under AND.
func dispatchAnd(table *symbols.Table, opts Options, args DispatchArgs, v types.AndType) *DispatchResult {
	probeLeft, probeRight := args, args
	probeLeft.ThisType, probeLeft.SuppressErrors = v.Left, true
	probeRight.ThisType, probeRight.SuppressErrors = v.Right, true
	leftPresent := allComponentsPresent(Dispatch(table, opts, probeLeft))
	rightPresent := allComponentsPresent(Dispatch(table, opts, probeRight))

	leftArgs, rightArgs := args, args
	leftArgs.ThisType, rightArgs.ThisType = v.Left, v.Right

	if leftPresent && !rightPresent {
		return Dispatch(table, opts, leftArgs)
	}
	if rightPresent && !leftPresent {
		return Dispatch(table, opts, rightArgs)
	}

	dl := Dispatch(table, opts, leftArgs)
	dr := Dispatch(table, opts, rightArgs)
	return mergeResults(dl, dr, SecondaryAnd, subtyping.All(dl.ReturnType, dr.ReturnType))
}

// allComponentsPresent walks the linked result chain (spec §4.1): every
// component must have a resolved method, and any OR-joined secondary must
// also resolve. Intersection links (SecondaryAnd) never require both sides
// present — that is precisely the asymmetry §4.1 exploits.
func allComponentsPresent(r *DispatchResult) bool {
	if r == nil || r.Main.Method == nil {
		return false
	}
	if r.SecondaryKind == SecondaryOr {
		if r.Secondary == nil || r.Secondary.Method == nil {
			return false
		}
	}
	return true
}

func mergeResults(dl, dr *DispatchResult, kind SecondaryKind, returnType types.Type) *DispatchResult {
	result := newResult()
	result.ReturnType = returnType
	result.Main = dl.Main
	secondary := dr.Main
	result.Secondary = &secondary
	result.SecondaryKind = kind
	return result
}

// dispatchProxy implements the Literal/Shape/Tuple contract (spec §4.1):
// try the intrinsic table first; fall through to the underlying class when
// it declines (no intrinsic matched this name) or leaves the return type
// unset.
func dispatchProxy(table *symbols.Table, opts Options, args DispatchArgs) *DispatchResult {
	if result, ok := tryProxyIntrinsic(table, opts, args); ok {
		return result
	}
	fallback := args
	fallback.ThisType = types.Underlying(args.ThisType)
	return Dispatch(table, opts, fallback)
}

// dispatchMeta implements the MetaType contract (spec §4.1): `new` redirects
// to `initialize` on the wrapped type, then overrides the return type to
// the wrapped type; every other call falls through to underlying dispatch
// with a "mistakes a type for a value" diagnostic suggesting `===`.
func dispatchMeta(table *symbols.Table, opts Options, args DispatchArgs, v types.MetaType) *DispatchResult {
	if args.Name == "new" {
		initArgs := args
		initArgs.Name = "initialize"
		initArgs.ThisType = v.Wrapped
		result := Dispatch(table, opts, initArgs)
		result.ReturnType = v.Wrapped
		if result.Main.Method == nil && !result.Main.Errors.HasErrors() {
			classID, _ := classAndArgs(v.Wrapped)
			synthesized := symbols.Method{Name: "new", Owner: classID, Result: v.Wrapped}
			result.Main.Method = &synthesized
		}
		return result
	}

	fallback := args
	fallback.ThisType = v.Wrapped
	result := Dispatch(table, opts, fallback)
	if !args.SuppressErrors {
		result.Main.Errors.AddBuilder(diag.New(diag.MetaTypeDispatchCall, args.Locs.Receiver).
			SetHeader("This code mistakes a type for a value; did you mean `===`?").
			AddNote("Pattern-match on the concrete class with `===` instead of calling instance methods on a type value."))
	}
	return result
}

// GetCallArguments implements spec §6's per-variant "obtain the formal
// parameter types without performing a full dispatch" entry point, used by
// control-flow analysis. Union returns the GLB of sides' argument tuples;
// intersection the LUB; Untyped returns Untyped; class/applied constructs a
// tuple from the method's non-block formals with a rest formal widened to
// an array-of.
func GetCallArguments(table *symbols.Table, opts Options, receiver types.Type, name string) (types.Type, bool) {
	switch v := receiver.(type) {
	case types.Untyped, nil:
		return types.Untyped{}, true
	case types.OrType:
		l, lok := GetCallArguments(table, opts, v.Left, name)
		r, rok := GetCallArguments(table, opts, v.Right, name)
		if !lok || !rok {
			return nil, false
		}
		return elementwiseTuple(table, l, r, func(x, y types.Type) types.Type { return subtyping.GLB(table, x, y) }), true
	case types.AndType:
		l, lok := GetCallArguments(table, opts, v.Left, name)
		r, rok := GetCallArguments(table, opts, v.Right, name)
		switch {
		case lok && rok:
			return elementwiseTuple(table, l, r, subtyping.Any), true
		case lok:
			return l, true
		case rok:
			return r, true
		default:
			return nil, false
		}
	case types.ClassType, types.AppliedType:
		classID, typeArgs := classAndArgs(v)
		method, found := lookupMethod(table, classID, name, opts)
		if !found {
			return nil, false
		}
		return callArgumentsTuple(method, typeArgs), true
	case types.LiteralType, types.ShapeType, types.TupleType:
		return GetCallArguments(table, opts, types.Underlying(v), name)
	case types.MetaType:
		return GetCallArguments(table, opts, v.Wrapped, name)
	default:
		return nil, false
	}
}

func callArgumentsTuple(method symbols.Method, typeArgs []types.Type) types.Type {
	var elems []types.Type
	names := syntheticTypeParamNames(len(typeArgs))
	for _, f := range method.NonBlockArguments() {
		t := f.Type
		if f.IsRepeated {
			t = subtyping.ArrayOf(t)
		}
		elems = append(elems, subtyping.ResultTypeAsSeenFrom(t, names, typeArgs))
	}
	return types.TupleType{Elems: elems}
}

func elementwiseTuple(table *symbols.Table, a, b types.Type, f func(x, y types.Type) types.Type) types.Type {
	ta, ok1 := a.(types.TupleType)
	tb, ok2 := b.(types.TupleType)
	if !ok1 || !ok2 {
		return a
	}
	n := len(ta.Elems)
	if len(tb.Elems) < n {
		n = len(tb.Elems)
	}
	elems := make([]types.Type, n)
	for i := 0; i < n; i++ {
		elems[i] = f(ta.Elems[i], tb.Elems[i])
	}
	return types.TupleType{Elems: elems}
}
