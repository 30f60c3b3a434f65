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

// matchResult carries what the argument matcher discovered beyond pass/fail,
// consumed by the caller for the setter/[]= return-type laws (spec §4.2
// step 8).
type matchResult struct {
	ok        bool
	lastArg   types.Type // last positional actual's type: the setter return-type law
	secondArg types.Type // second positional actual's type: the []= return-type law
	hasSecond bool
}

// matchArguments walks method's non-block formals in lockstep with args'
// actuals (spec §4.3): positional phase, implicit-kwsplat promotion, keyword
// bundle assembly, the positional-consume-the-hash corner case, and the
// keyword phase. Diagnostics are appended to errs in discovery order
// (positional before keyword, arity after argument errors), per spec §5.
func matchArguments(table *symbols.Table, c *constraint.TypeConstraint, method symbols.Method, args DispatchArgs, errs *diag.Queue, opts Options) matchResult {
	formals := method.NonBlockArguments()
	var positionalFormals []symbols.Argument
	var keywordFormals []symbols.Argument
	var kwRestFormal *symbols.Argument
	for i := range formals {
		f := formals[i]
		switch {
		case f.IsKeywordRest:
			kwRestFormal = &formals[i]
		case f.IsKeyword:
			keywordFormals = append(keywordFormals, f)
		default:
			positionalFormals = append(positionalFormals, f)
		}
	}
	hasKeywordFormals := len(keywordFormals) > 0 || kwRestFormal != nil

	positional := args.PositionalArgs()
	pairs, kwsplat := args.KeywordPairs()

	res := matchResult{ok: true}

	// Positional phase.
	pit, ait := 0, 0
	for pit < len(positionalFormals) && ait < len(positional) {
		formal := positionalFormals[pit]
		actual := positional[ait]

		lastActual := ait == len(positional)-1
		formalOptionalOrRest := formal.IsDefault || formal.IsRepeated
		if lastActual && hasKeywordFormals && formalOptionalOrRest && len(pairs) == 0 && kwsplat == nil && isHashDerived(actual.Type) {
			break
		}

		if !checkArgAgainstFormal(table, c, method, formal, actual, errs, opts) {
			res.ok = false
		}
		res.lastArg = actual.Type
		if ait == 1 {
			res.secondArg, res.hasSecond = actual.Type, true
		}
		ait++
		if !formal.IsRepeated {
			pit++
		}
	}

	// Implicit-kwsplat promotion: a trailing positional actual left over
	// when the method accepts keyword args and none were supplied inline.
	if ait < len(positional) && ait == len(positional)-1 && hasKeywordFormals && len(pairs) == 0 && kwsplat == nil {
		implicit := positional[ait]
		kwsplat = &implicit
		ait++
		if opts.StrictKeywordArgs {
			errs.AddBuilder(diag.New(diag.KeywordArgHashWithoutSplat, implicit.Loc).
				SetHeader("Passing a hash literal as keyword arguments without `**` is deprecated").
				AddAutocorrect(diag.Autocorrect{
					Loc:         implicit.Loc,
					Description: "Prefix the argument with `**`",
				}))
		}
	}

	// Keyword bundle assembly.
	bundle, kind := buildKeywordBundle(pairs, kwsplat)

	// Positional-consume-the-hash corner case.
	if kind == bundleShape && (len(pairs) > 0 || kwsplat != nil) && pit < len(positionalFormals) && !hasKeywordFormals {
		formal := positionalFormals[pit]
		actual := ActualArg{Type: *bundle, Loc: args.Locs.Call}
		if !checkArgAgainstFormal(table, c, method, formal, actual, errs, opts) {
			res.ok = false
		}
		res.lastArg = actual.Type
		pit++
		kind = bundleConsumedPositionally
	}

	// Keyword phase.
	if hasKeywordFormals {
		switch kind {
		case bundleShape:
			if !matchKeywordShape(table, c, method, keywordFormals, kwRestFormal, *bundle, args, errs, opts) {
				res.ok = false
			}
		case bundleUntypedUnknown:
			// Untyped absorbs dispatch: every keyword formal is satisfied
			// with no type check possible.
		case bundleUntypedHash:
			if opts.AllowUntypedHashAsKwargs {
				break
			}
			for _, kf := range keywordFormals {
				if kf.IsDefault {
					continue
				}
				errs.AddBuilder(diag.New(diag.UntypedSplat, args.Locs.Call).
					SetHeader(fmt.Sprintf("Unable to treat a non-shape hash as keyword arguments for `%s`", kf.RenderedName)))
				res.ok = false
			}
		case bundleAbandoned, bundleConsumedPositionally:
			for _, kf := range keywordFormals {
				if kf.IsDefault {
					continue
				}
				errs.AddBuilder(diag.New(diag.MethodArgumentCountMismatch, args.Locs.Call).
					SetHeader(fmt.Sprintf("Missing required keyword argument `%s`", kf.RenderedName)))
				res.ok = false
			}
		}
	}

	// Arity diagnostics.
	if pit < len(positionalFormals) {
		for _, f := range positionalFormals[pit:] {
			if !f.IsDefault && !f.IsRepeated {
				errs.AddBuilder(diag.New(diag.MethodArgumentCountMismatch, args.Locs.Call).
					SetHeader(fmt.Sprintf("Not enough arguments provided for method `%s`: expected %s, got %d",
						method.Name, prettyArity(positionalFormals), args.NumPosArgs)))
				res.ok = false
				break
			}
		}
	}
	if ait < len(positional) && kind != bundleConsumedPositionally {
		phrase := "positional arguments"
		if hasKeywordFormals {
			phrase = "arguments"
		}
		errs.AddBuilder(diag.New(diag.MethodArgumentCountMismatch, args.Locs.Call).
			SetHeader(fmt.Sprintf("Too many %s provided for method `%s`: expected %s, got %d",
				phrase, method.Name, prettyArity(positionalFormals), args.NumPosArgs)))
		res.ok = false
	}

	return res
}

type bundleKind int

const (
	bundleShape bundleKind = iota
	bundleUntypedUnknown
	bundleUntypedHash
	bundleAbandoned
	bundleConsumedPositionally
)

// buildKeywordBundle assembles a ShapeType from inline keyword pairs plus an
// optional kwsplat actual (spec §4.3 "Keyword bundle assembly").
func buildKeywordBundle(pairs []KeywordPair, kwsplat *ActualArg) (*types.ShapeType, bundleKind) {
	var keys []types.LiteralType
	var values []types.Type
	for _, p := range pairs {
		lit, ok := p.Key.Type.(types.LiteralType)
		if !ok || lit.Kind != types.LiteralSymbol {
			return nil, bundleAbandoned
		}
		keys = append(keys, lit)
		values = append(values, p.Value.Type)
	}
	if kwsplat != nil {
		switch kv := kwsplat.Type.(type) {
		case types.ShapeType:
			for _, k := range kv.Keys {
				if k.Kind != types.LiteralSymbol {
					return nil, bundleAbandoned
				}
			}
			keys = append(keys, kv.Keys...)
			values = append(values, kv.Values...)
		case types.Untyped:
			return nil, bundleUntypedUnknown
		default:
			if isHashDerived(kv) {
				return nil, bundleUntypedHash
			}
			return nil, bundleAbandoned
		}
	}
	shape := types.ShapeType{Keys: keys, Values: values}
	return &shape, bundleShape
}

func matchKeywordShape(table *symbols.Table, c *constraint.TypeConstraint, method symbols.Method, keywordFormals []symbols.Argument, kwRestFormal *symbols.Argument, shape types.ShapeType, args DispatchArgs, errs *diag.Queue, opts Options) bool {
	ok := true
	consumed := make(map[string]bool, len(shape.Keys))
	for _, formal := range keywordFormals {
		idx := shapeKeyIndex(shape, formal.Name)
		if idx < 0 {
			if !formal.IsDefault {
				errs.AddBuilder(diag.New(diag.MethodArgumentCountMismatch, args.Locs.Call).
					SetHeader(fmt.Sprintf("Missing required keyword argument `%s`", formal.RenderedName)))
				ok = false
			}
			continue
		}
		consumed[formal.Name] = true
		actual := ActualArg{Type: shape.Values[idx], Loc: args.Locs.Call}
		if !checkArgAgainstFormal(table, c, method, formal, actual, errs, opts) {
			ok = false
		}
	}
	if kwRestFormal != nil {
		for _, k := range shape.Keys {
			name, _ := k.Value.(string)
			consumed[name] = true
		}
		return ok
	}
	for i, k := range shape.Keys {
		name, _ := k.Value.(string)
		if consumed[name] {
			continue
		}
		_ = shape.Values[i]
		errs.AddBuilder(diag.New(diag.MethodArgumentCountMismatch, args.Locs.Call).
			SetHeader(fmt.Sprintf("Unrecognized keyword argument `%s`", name)))
		ok = false
	}
	return ok
}

func shapeKeyIndex(s types.ShapeType, name string) int {
	for i, k := range s.Keys {
		if sym, ok := k.Value.(string); ok && sym == name {
			return i
		}
	}
	return -1
}

func isHashDerived(t types.Type) bool {
	if _, ok := t.(types.ShapeType); ok {
		return true
	}
	applied, ok := t.(types.AppliedType)
	return ok && applied.ClassID == types.RootHashClassID
}

// checkArgAgainstFormal type-checks one actual against its formal under the
// current constraint (subtyping.AlwaysCompatible, per spec §4.3), emitting
// MethodArgumentMismatch on failure with setter/single-arg header phrasing
// and a nil-stripping autocorrect when dropping nil from the actual would
// satisfy the formal.
func checkArgAgainstFormal(table *symbols.Table, c *constraint.TypeConstraint, method symbols.Method, formal symbols.Argument, actual ActualArg, errs *diag.Queue, opts Options) bool {
	if formal.Type == nil {
		return true
	}
	if subtyping.IsSubTypeUnderConstraint(table, c, actual.Type, formal.Type, subtyping.AlwaysCompatible) {
		return true
	}
	if errs == nil {
		return false
	}
	header := fmt.Sprintf("Expected type `%s` but found `%s` for argument `%s`",
		types.Name(formal.Type), types.Name(actual.Type), formal.RenderedName)
	if isSetterOrSingleArgMethod(method) {
		header = fmt.Sprintf("Assigning a value of type `%s` does not match expected type `%s`",
			types.Name(actual.Type), types.Name(formal.Type))
	}
	b := diag.New(diag.MethodArgumentMismatch, actual.Loc).SetHeader(header)
	if subtyping.HasNil(actual.Type) {
		stripped := subtyping.DropNil(actual.Type)
		if subtyping.IsSubTypeUnderConstraint(table, c, stripped, formal.Type, subtyping.AlwaysCompatible) {
			b.AddAutocorrect(diag.Autocorrect{
				Loc:         actual.Loc,
				Description: "Wrap in `T.must(...)` to strip `nil`",
			})
		}
	}
	errs.AddBuilder(b)
	return false
}

func isSetterOrSingleArgMethod(method symbols.Method) bool {
	if len(method.NonBlockArguments()) == 1 {
		return true
	}
	if !strings.HasSuffix(method.Name, "=") {
		return false
	}
	switch method.Name {
	case "==", "!=", "<=", ">=", "===":
		return false
	}
	return true
}

// prettyArity formats a positional-formal list per spec §4.3's arity string
// format: the required count, "required..required+optional" when there are
// optionals, or "required+" when there is a rest parameter.
func prettyArity(positionalFormals []symbols.Argument) string {
	required, optional, hasRest := 0, 0, false
	for _, f := range positionalFormals {
		switch {
		case f.IsRepeated:
			hasRest = true
		case f.IsDefault:
			optional++
		default:
			required++
		}
	}
	switch {
	case hasRest:
		return fmt.Sprintf("%d+", required)
	case optional > 0:
		return fmt.Sprintf("%d..%d", required, required+optional)
	default:
		return fmt.Sprintf("%d", required)
	}
}
