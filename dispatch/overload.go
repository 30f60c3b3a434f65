package dispatch

import (
	"sort"

	"dispatchcore/subtyping"
	"dispatchcore/symbols"
	"dispatchcore/types"
)

const unboundedArity = 1 << 30

// guessOverload implements spec §4.4: sort by arity, filter by positional
// subtyping (remembering a fallback before the filter can empty the set),
// filter by block presence, then retain candidates whose arity covers the
// actual positional count. Mirrors calls.cc's guessOverload two-phase
// filter-then-restore-fallback control flow (SPEC_FULL.md §11).
func guessOverload(table *symbols.Table, method symbols.Method, args DispatchArgs, hasBlock bool) symbols.Method {
	chain := table.Overloads(method)
	if len(chain) <= 1 {
		return method
	}
	sort.SliceStable(chain, func(i, j int) bool { return arityOf(chain[i]) < arityOf(chain[j]) })

	positional := args.PositionalArgs()
	hasKwargs := len(args.Args) > args.NumPosArgs

	filtered := filterByPositionalSubtyping(table, chain, positional, hasKwargs)
	var fallback symbols.Method
	haveFallback := false
	if len(filtered) == 0 {
		filtered = chain
	} else {
		fallback = filtered[0]
		haveFallback = true
	}

	filtered = filterByBlockPresence(filtered, hasBlock)
	filtered = filterByMinArity(filtered, len(positional))

	if len(filtered) > 0 {
		return filtered[0]
	}
	if haveFallback {
		return fallback
	}
	return chain[0]
}

// arityOf is a candidate's total positional-formal count, or unboundedArity
// if it has a rest parameter (a rest formal can always cover any actual
// count, so it must sort last and never be filtered out by count).
func arityOf(m symbols.Method) int {
	n := 0
	for _, f := range positionalFormalsOf(m) {
		if f.IsRepeated {
			return unboundedArity
		}
		n++
	}
	return n
}

func positionalFormalsOf(m symbols.Method) []symbols.Argument {
	var out []symbols.Argument
	for _, f := range m.NonBlockArguments() {
		if f.IsKeyword || f.IsKeywordRest {
			continue
		}
		out = append(out, f)
	}
	return out
}

func filterByPositionalSubtyping(table *symbols.Table, candidates []symbols.Method, positional []ActualArg, hasKwargs bool) []symbols.Method {
	var out []symbols.Method
	for _, cand := range candidates {
		formals := positionalFormalsOf(cand)
		ok := true
		n := len(positional)
		if n > len(formals) {
			n = len(formals)
		}
		for i := 0; i < n; i++ {
			formal := formals[i]
			if formal.Type == nil || containsTypeVar(formal.Type) {
				continue
			}
			if !subtyping.IsSubTypeUnderConstraint(table, nil, positional[i].Type, formal.Type, subtyping.AlwaysCompatible) {
				ok = false
				break
			}
		}
		if ok && hasKwargs {
			if next, has := nextFormalAfter(cand, len(positional)); has && !acceptsUntypedHash(table, next) {
				ok = false
			}
		}
		if ok {
			out = append(out, cand)
		}
	}
	return out
}

func nextFormalAfter(m symbols.Method, n int) (symbols.Argument, bool) {
	formals := m.NonBlockArguments()
	if n >= len(formals) {
		return symbols.Argument{}, false
	}
	return formals[n], true
}

func acceptsUntypedHash(table *symbols.Table, formal symbols.Argument) bool {
	if formal.IsKeyword || formal.IsKeywordRest {
		return true
	}
	if formal.Type == nil {
		return true
	}
	return subtyping.IsSubTypeUnderConstraint(table, nil, subtyping.HashOfUntyped(), formal.Type, subtyping.AlwaysCompatible)
}

func filterByBlockPresence(candidates []symbols.Method, hasBlock bool) []symbols.Method {
	var out []symbols.Method
	for _, cand := range candidates {
		blockFormal, ok := cand.BlockArgument()
		wantsBlock := ok && !blockFormal.IsSynthetic && blockFormal.Type != nil
		if wantsBlock == hasBlock {
			out = append(out, cand)
		}
	}
	return out
}

func filterByMinArity(candidates []symbols.Method, actualCount int) []symbols.Method {
	var out []symbols.Method
	for _, cand := range candidates {
		if arityOf(cand) >= actualCount {
			out = append(out, cand)
		}
	}
	return out
}

func containsTypeVar(t types.Type) bool {
	switch v := t.(type) {
	case types.TypeVar:
		return true
	case types.AppliedType:
		for _, a := range v.Args {
			if containsTypeVar(a) {
				return true
			}
		}
		return false
	case types.OrType:
		return containsTypeVar(v.Left) || containsTypeVar(v.Right)
	case types.AndType:
		return containsTypeVar(v.Left) || containsTypeVar(v.Right)
	case types.TupleType:
		for _, e := range v.Elems {
			if containsTypeVar(e) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
