package dispatch

import (
	"fmt"
	"strings"

	"dispatchcore/constraint"
	"dispatchcore/diag"
	"dispatchcore/subtyping"
	"dispatchcore/symbols"
	"dispatchcore/types"
)

// selfTypeSymbol is the well-known SelfTypeParam symbol every method result
// is substituted against once the receiver is known (spec §4.2 step 8/9).
const selfTypeSymbol = "Self"

// dispatchSymbol is the primary path: symbol lookup, overload pick, argument
// matching, block matching, intrinsic application, and return-type
// computation (spec §4.2).
func dispatchSymbol(table *symbols.Table, opts Options, args DispatchArgs) *DispatchResult {
	classID, typeArgs := classAndArgs(args.ThisType)
	errs := diag.NewQueue()

	method, found := lookupMethod(table, classID, args.Name, opts)
	if !found {
		return handleNotFound(table, opts, args, classID, errs)
	}

	if method.IsOverloaded {
		method = guessOverload(table, method, args, args.Block != nil)
	}

	var c *constraint.TypeConstraint
	if args.Block != nil || method.IsGenericMethod {
		c = constraint.New()
		c.DeclareDomain(method.TypeArguments...)
	} else {
		c = constraint.Empty()
	}

	mres := matchArguments(table, c, method, args, errs, opts)
	blockMatch := matchBlock(table, c, method, args, errs, opts)

	returnType := computeReturnType(method, typeArgs, mres)

	if method.Intrinsic != "" {
		// Per DESIGN.md's Open Question decisions: the intrinsic handler runs
		// unconditionally after matching and before the constraint is solved;
		// it sees the call's live constraint, and a non-nil return type it
		// supplies replaces the overload-picked method's own.
		if handler, ok := globalIntrinsics[method.Intrinsic]; ok {
			if repl := handler(table, opts, args, method, c, errs, returnType); repl != nil {
				returnType = repl
			}
		}
	}

	if !c.Solve(table) {
		errs.AddBuilder(diag.New(diag.GenericMethodConstaintUnsolved, args.Locs.Call).
			SetHeader("Could not solve for type parameter(s) " + strings.Join(c.UnsolvedDomain(), ", ")))
	}
	returnType = c.Instantiate(returnType)
	returnType = subtyping.ReplaceSelfType(returnType, selfTypeSymbol, args.SelfType)

	if args.Block == nil {
		if blockFormal, ok := method.BlockArgument(); ok && blockFormal.Type != nil && !blockFormal.IsSynthetic && !subtyping.HasNil(blockFormal.Type) {
			errs.AddBuilder(diag.New(diag.BlockNotPassed, args.Locs.Call).
				SetHeader(fmt.Sprintf("Method `%s` requires a block", method.Name)))
		}
	}

	if args.SuppressErrors {
		errs = diag.NewQueue()
	}

	result := newResult()
	result.ReturnType = returnType
	result.Main = DispatchComponent{
		Receiver:   args.ThisType,
		Method:     &method,
		Constraint: c,
		Errors:     errs,
		SendType:   args.ThisType,
	}
	if blockMatch != nil {
		result.Main.BlockPreType = blockMatch.PreType
		result.Main.BlockReturnType = blockMatch.ReturnType
		result.Main.BlockSpec = blockMatch
	}
	_ = mres.ok // matching diagnostics already recorded on errs
	return result
}

func lookupMethod(table *symbols.Table, classID, name string, opts Options) (symbols.Method, bool) {
	return table.FindMemberTransitive(classID, name, opts.AllowRequiredAncestors)
}

func classAndArgs(t types.Type) (string, []types.Type) {
	switch v := t.(type) {
	case types.ClassType:
		return v.ClassID, nil
	case types.AppliedType:
		return v.ClassID, v.Args
	default:
		return "", nil
	}
}

// computeReturnType implements spec §4.2 step 8: setter methods return the
// RHS value type, `[]=` returns its second argument, otherwise the method's
// declared result type is substituted through the receiver's type arguments.
func computeReturnType(method symbols.Method, typeArgs []types.Type, mres matchResult) types.Type {
	if method.Name == "[]=" && mres.hasSecond {
		return mres.secondArg
	}
	if isSetterMethodName(method.Name) {
		return mres.lastArg
	}
	return subtyping.ResultTypeAsSeenFrom(method.Result, syntheticTypeParamNames(len(typeArgs)), typeArgs)
}

func isSetterMethodName(name string) bool {
	if !strings.HasSuffix(name, "=") {
		return false
	}
	switch name {
	case "==", "!=", "<=", ">=", "===":
		return false
	}
	return true
}

// syntheticTypeParamNames produces the TypeVar ids ("T0", "T1", ...) this
// module's convention uses to represent a class's own generic parameters in
// a method's declared argument/result types, positionally matched against
// AppliedType.Args (spec §6 resultTypeAsSeenFrom).
func syntheticTypeParamNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("T%d", i)
	}
	return names
}

// declarationMacroAutocorrect maps a known set of declaration-macro names to
// the helper-extension statement UnknownMethod suggests adding (spec §4.2
// step 2). Kept small and explicit rather than pattern-matched, matching the
// "known set" framing in the spec.
var declarationMacroAutocorrect = map[string]string{
	"prop":          "Add `extend T::Props` to the class",
	"const":         "Add `extend T::Props` and `prop ... const: true` for immutable props",
	"mixes_in_class_methods": "Add `extend T::Helpers` and `mixes_in_class_methods(...)`",
}

func handleNotFound(table *symbols.Table, opts Options, args DispatchArgs, classID string, errs *diag.Queue) *DispatchResult {
	result := newResult()
	result.ReturnType = types.Untyped{}

	if args.Name == "initialize" || args.Name == SuperCallSentinel {
		if args.Name == "initialize" && args.NumPosArgs > 0 {
			errs.AddBuilder(diag.New(diag.MethodArgumentCountMismatch, args.Locs.Call).
				SetHeader("`initialize` takes no arguments on this receiver"))
		}
		if args.SuppressErrors {
			errs = diag.NewQueue()
		}
		result.Main = DispatchComponent{Receiver: args.ThisType, Errors: errs}
		return result
	}

	b := diag.New(diag.UnknownMethod, args.Locs.Call).
		SetHeader(fmt.Sprintf("Method `%s` does not exist on `%s`", args.Name, types.Name(args.ThisType)))

	if suggestions := table.FindMemberFuzzyMatch(classID, args.Name); len(suggestions) > 0 {
		b.AddNote("Did you mean: " + strings.Join(suggestions, ", ") + "?")
	}
	if info, ok := table.Class(classID); ok && info.IsModule {
		if _, onRoot := table.FindMember(RootObjectClassID, args.Name); onRoot {
			b.AddNote(fmt.Sprintf("Did you mean to `include %s`?", classID))
		}
	}
	if desc, ok := declarationMacroAutocorrect[args.Name]; ok {
		b.AddAutocorrect(diag.Autocorrect{Description: desc, Loc: args.Locs.Call})
	}
	if types.IsNil(args.ThisType) || opts.SuggestUnsafeWrap {
		b.AddNote("Wrap the receiver in `T.must(...)` to strip `nil` before calling, or switch on `&:" + args.Name + "` if this came from a block pass.").
			AddAutocorrect(diag.Autocorrect{Loc: args.Locs.Receiver, Description: "Wrap in `T.must(...)`"})
	}
	errs.AddBuilder(b)

	if args.SuppressErrors {
		errs = diag.NewQueue()
	}
	result.Main = DispatchComponent{Receiver: args.ThisType, Errors: errs}
	return result
}
