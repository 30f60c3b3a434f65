package dispatch

import (
	"dispatchcore/constraint"
	"dispatchcore/diag"
	"dispatchcore/subtyping"
	"dispatchcore/symbols"
	"dispatchcore/types"
)

// matchBlock implements spec §4.5. When no block formal is declared (or it
// is the absent synthetic one) and no block was passed, it is a no-op; the
// BlockNotPassed check (spec §4.2 step 10) runs separately in symbol.go once
// the whole call has otherwise resolved.
func matchBlock(table *symbols.Table, c *constraint.TypeConstraint, method symbols.Method, args DispatchArgs, errs *diag.Queue, opts Options) *BlockMatch {
	blockFormal, hasFormal := method.BlockArgument()
	if args.Block == nil {
		return nil
	}
	if !hasFormal || blockFormal.Type == nil {
		if errs != nil {
			errs.AddBuilder(diag.New(diag.TakesNoBlock, args.Block.Loc).
				SetHeader("Method `" + method.Name + "` does not take a block"))
		}
		return nil
	}

	formalType := c.Instantiate(blockFormal.Type)
	passedType := args.Block.Type

	if !args.Block.ArityKnown {
		formalArity := subtyping.GetProcArity(formalType)
		if formalArity >= 0 {
			passedType = syntheticUntypedProc(formalArity)
			if opts.StrictKeywordArgs && errs != nil {
				errs.AddBuilder(diag.New(diag.ProcArityUnknown, args.Block.Loc).
					SetHeader("Block has unknown arity; assuming it matches the declared arity"))
			}
		}
	}

	if !subtyping.IsSubTypeUnderConstraint(table, c, passedType, formalType, subtyping.AlwaysCompatible) {
		if errs != nil {
			errs.AddBuilder(diag.New(diag.GenericPassedAsBlock, args.Block.Loc).
				SetHeader("Block does not match the declared block type `" + types.Name(formalType) + "`"))
		}
	}

	return &BlockMatch{
		PreType:      formalType,
		ReturnType:   subtyping.GetProcReturnType(formalType),
		ArityUnknown: !args.Block.ArityKnown,
	}
}

// syntheticUntypedProc builds a Proc applied type of the given arity with
// every parameter and the return type set to Untyped, for subtype checks
// against a bare Proc of unknown arity (spec §4.5).
func syntheticUntypedProc(arity int) types.Type {
	targs := make([]types.Type, arity+1)
	for i := range targs {
		targs[i] = types.Untyped{}
	}
	return types.AppliedType{ClassID: "Proc", Args: targs}
}

// coerceBlockValue synthesizes a virtual to_proc dispatch on a value passed
// where a block is expected (the call-with-block intrinsics' shim, spec
// §4.5). nil is preserved by returning nil directly; any other value is
// redispatched through Dispatch under the name "to_proc".
func coerceBlockValue(table *symbols.Table, opts Options, v types.Type, loc string, errs *diag.Queue) types.Type {
	if types.IsNil(v) {
		return types.Nil{}
	}
	result := Dispatch(table, opts, DispatchArgs{
		Name:     "to_proc",
		ThisType: v,
		SelfType: v,
		FullType: v,
		Locs:     Locs{Call: loc, Receiver: loc},
	})
	if errs != nil {
		errs.Merge(result.Main.Errors)
	}
	return result.ReturnType
}
