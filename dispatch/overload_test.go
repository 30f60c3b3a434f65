package dispatch

import (
	"testing"

	"dispatchcore/symbols"
	"dispatchcore/types"
)

func defineOverloadChain(tbl *symbols.Table) {
	tbl.DefineClass(symbols.ClassInfo{ID: "Integer"})
	tbl.DefineClass(symbols.ClassInfo{ID: "String"})
	tbl.DefineClass(symbols.ClassInfo{ID: "C"})

	blk := symbols.Argument{Name: "blk", IsBlock: true, IsSynthetic: true, Type: types.Untyped{}}
	tbl.DefineMember("C", symbols.Method{
		Name:      "f",
		Arguments: []symbols.Argument{{Name: "a", Type: types.ClassType{ClassID: "Integer"}}, blk},
		Result:    types.ClassType{ClassID: "Integer"},
		HasSig:    true,
	})
	tbl.DefineMember("C", symbols.Method{
		Name: "f#1",
		Arguments: []symbols.Argument{
			{Name: "a", Type: types.ClassType{ClassID: "Integer"}},
			{Name: "b", Type: types.ClassType{ClassID: "String"}},
			blk,
		},
		Result: types.ClassType{ClassID: "String"},
		HasSig: true,
	})
}

func TestGuessOverloadPicksArityMatchingActualCount(t *testing.T) {
	tbl := symbols.NewTable()
	defineOverloadChain(tbl)
	primary, _ := tbl.FindMember("C", "f")

	one := guessOverload(tbl, primary, DispatchArgs{
		NumPosArgs: 1,
		Args:       []ActualArg{{Type: types.ClassType{ClassID: "Integer"}}},
	}, false)
	if len(one.NonBlockArguments()) != 1 {
		t.Fatalf("expected the 1-ary overload for a single actual, got %d formals", len(one.NonBlockArguments()))
	}

	two := guessOverload(tbl, primary, DispatchArgs{
		NumPosArgs: 2,
		Args: []ActualArg{
			{Type: types.ClassType{ClassID: "Integer"}},
			{Type: types.ClassType{ClassID: "String"}},
		},
	}, false)
	if len(two.NonBlockArguments()) != 2 {
		t.Fatalf("expected the 2-ary overload for two actuals, got %d formals", len(two.NonBlockArguments()))
	}
	if two.Result.(types.ClassType).ClassID != "String" {
		t.Fatalf("expected the 2-ary overload's String result, got %s", types.Name(two.Result))
	}
}

func TestGuessOverloadSingleCandidateShortCircuits(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "C"})
	only := symbols.Method{Name: "solo", Owner: "C", Arguments: []symbols.Argument{{Name: "blk", IsBlock: true, IsSynthetic: true}}}
	tbl.DefineMember("C", only)

	got := guessOverload(tbl, only, DispatchArgs{}, false)
	if got.Name != "solo" {
		t.Fatalf("a method with no overload chain should be returned unchanged, got %s", got.Name)
	}
}

func TestGuessOverloadFallsBackWhenNoCandidateSurvivesPositionalFilter(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "Integer"})
	tbl.DefineClass(symbols.ClassInfo{ID: "String"})
	tbl.DefineClass(symbols.ClassInfo{ID: "C"})
	blk := symbols.Argument{Name: "blk", IsBlock: true, IsSynthetic: true}
	primary := symbols.Method{Name: "g", Arguments: []symbols.Argument{{Name: "a", Type: types.ClassType{ClassID: "Integer"}}, blk}, HasSig: true}
	tbl.DefineMember("C", primary)
	tbl.DefineMember("C", symbols.Method{Name: "g#1", Arguments: []symbols.Argument{{Name: "a", Type: types.ClassType{ClassID: "Integer"}}, blk}, HasSig: true})
	primary, _ = tbl.FindMember("C", "g")

	got := guessOverload(tbl, primary, DispatchArgs{
		NumPosArgs: 1,
		Args:       []ActualArg{{Type: types.ClassType{ClassID: "String"}}},
	}, false)
	if got.Name != "g" {
		t.Fatalf("expected the original chain[0] fallback when every overload rejects the actual, got %s", got.Name)
	}
}

func TestFilterByBlockPresenceRequiresExactMatch(t *testing.T) {
	withBlock := symbols.Method{Arguments: []symbols.Argument{{Name: "blk", IsBlock: true, Type: types.AppliedType{ClassID: "Proc", Args: []types.Type{types.Untyped{}}}}}}
	withoutBlock := symbols.Method{Arguments: []symbols.Argument{{Name: "blk", IsBlock: true, IsSynthetic: true}}}

	got := filterByBlockPresence([]symbols.Method{withBlock, withoutBlock}, true)
	if len(got) != 1 || got[0].Arguments[0].IsSynthetic {
		t.Fatalf("expected only the block-taking candidate to survive when a block is passed, got %+v", got)
	}

	got = filterByBlockPresence([]symbols.Method{withBlock, withoutBlock}, false)
	if len(got) != 1 || !got[0].Arguments[0].IsSynthetic {
		t.Fatalf("expected only the no-block candidate to survive when no block is passed, got %+v", got)
	}
}

func TestArityOfRestParameterIsUnbounded(t *testing.T) {
	m := symbols.Method{Arguments: []symbols.Argument{{Name: "rest", IsRepeated: true}, {Name: "blk", IsBlock: true}}}
	if arityOf(m) != unboundedArity {
		t.Fatalf("a rest parameter should report unbounded arity, got %d", arityOf(m))
	}
}

func TestContainsTypeVarFindsNestedOccurrence(t *testing.T) {
	tv := types.TypeVar{ID: "%T"}
	if !containsTypeVar(types.AppliedType{ClassID: "Array", Args: []types.Type{tv}}) {
		t.Fatalf("expected a nested type variable inside an AppliedType to be detected")
	}
	if containsTypeVar(types.ClassType{ClassID: "Integer"}) {
		t.Fatalf("a concrete ClassType should not contain a type variable")
	}
}
