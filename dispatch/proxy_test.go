package dispatch

import (
	"testing"

	"dispatchcore/subtyping"
	"dispatchcore/symbols"
	"dispatchcore/types"
)

func intLit(v int) types.LiteralType {
	return types.LiteralType{Kind: types.LiteralInt, Value: v, Underlying: types.ClassType{ClassID: "Integer"}}
}

func sampleTuple() types.TupleType {
	return types.TupleType{Elems: []types.Type{
		types.ClassType{ClassID: "Integer"},
		types.ClassType{ClassID: "String"},
		types.ClassType{ClassID: "Bool"},
	}}
}

func TestTupleIndexPositiveLiteral(t *testing.T) {
	got := tupleIndex(sampleTuple(), DispatchArgs{NumPosArgs: 1, Args: []ActualArg{{Type: intLit(1)}}})
	if !types.Equal(got, types.ClassType{ClassID: "String"}) {
		t.Fatalf("tupleIndex[1] = %s, want String", types.Name(got))
	}
}

func TestTupleIndexNegativeLiteralWrapsFromEnd(t *testing.T) {
	got := tupleIndex(sampleTuple(), DispatchArgs{NumPosArgs: 1, Args: []ActualArg{{Type: intLit(-1)}}})
	if !types.Equal(got, types.ClassType{ClassID: "Bool"}) {
		t.Fatalf("tupleIndex[-1] = %s, want Bool", types.Name(got))
	}
}

func TestTupleIndexOutOfBoundsIsNil(t *testing.T) {
	got := tupleIndex(sampleTuple(), DispatchArgs{NumPosArgs: 1, Args: []ActualArg{{Type: intLit(9)}}})
	if !types.IsNil(got) {
		t.Fatalf("out-of-bounds tupleIndex = %s, want nil", types.Name(got))
	}
}

func TestTupleIndexNonLiteralDegradesToUnionPlusNil(t *testing.T) {
	got := tupleIndex(sampleTuple(), DispatchArgs{NumPosArgs: 1, Args: []ActualArg{{Type: types.ClassType{ClassID: "Integer"}}}})
	if _, ok := got.(types.OrType); !ok {
		t.Fatalf("expected a non-literal index to degrade to a union, got %s", types.Name(got))
	}
	if !subtyping.HasNil(got) {
		t.Fatalf("expected nil to be a member of the degraded union, got %s", types.Name(got))
	}
}

func TestTupleFirstAndLast(t *testing.T) {
	v := sampleTuple()
	if got := tupleElemAt(v, 0); !types.Equal(got, types.ClassType{ClassID: "Integer"}) {
		t.Fatalf("first = %s, want Integer", types.Name(got))
	}
	if got := tupleElemAt(v, len(v.Elems)-1); !types.Equal(got, types.ClassType{ClassID: "Bool"}) {
		t.Fatalf("last = %s, want Bool", types.Name(got))
	}
}

func TestConcatTuplesAppendsElems(t *testing.T) {
	a := types.TupleType{Elems: []types.Type{types.ClassType{ClassID: "Integer"}}}
	b := types.TupleType{Elems: []types.Type{types.ClassType{ClassID: "String"}}}
	got := concatTuples(a, DispatchArgs{NumPosArgs: 1, Args: []ActualArg{{Type: b}}})
	want := types.TupleType{Elems: []types.Type{types.ClassType{ClassID: "Integer"}, types.ClassType{ClassID: "String"}}}
	if !types.Equal(got, want) {
		t.Fatalf("concatTuples = %s, want %s", types.Name(got), types.Name(want))
	}
}

func sampleShape() types.ShapeType {
	return types.ShapeType{
		Keys:   []types.LiteralType{symbolLit("name"), symbolLit("age")},
		Values: []types.Type{types.ClassType{ClassID: "String"}, types.ClassType{ClassID: "Integer"}},
	}
}

func TestShapeIndexKnownKey(t *testing.T) {
	got := shapeIndex(sampleShape(), DispatchArgs{NumPosArgs: 1, Args: []ActualArg{{Type: symbolLit("age")}}})
	if !types.Equal(got, types.ClassType{ClassID: "Integer"}) {
		t.Fatalf("shapeIndex(:age) = %s, want Integer", types.Name(got))
	}
}

func TestShapeIndexUnknownKeyIsNil(t *testing.T) {
	got := shapeIndex(sampleShape(), DispatchArgs{NumPosArgs: 1, Args: []ActualArg{{Type: symbolLit("missing")}}})
	if !types.IsNil(got) {
		t.Fatalf("shapeIndex(:missing) = %s, want nil", types.Name(got))
	}
}

func TestShapeIndexSetTypeMismatchReportsDiagnostic(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "String"})
	tbl.DefineClass(symbols.ClassInfo{ID: "Integer"})
	result := shapeIndexSet(tbl, DispatchArgs{
		NumPosArgs: 2,
		Args:       []ActualArg{{Type: symbolLit("age")}, {Type: types.ClassType{ClassID: "String"}}},
	}, sampleShape())
	if !result.Main.Errors.HasErrors() {
		t.Fatalf("expected a diagnostic when assigning a String to an Integer-typed key")
	}
}

func TestShapeIndexSetTypeMatchIsSilent(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "String"})
	tbl.DefineClass(symbols.ClassInfo{ID: "Integer"})
	result := shapeIndexSet(tbl, DispatchArgs{
		NumPosArgs: 2,
		Args:       []ActualArg{{Type: symbolLit("age")}, {Type: types.ClassType{ClassID: "Integer"}}},
	}, sampleShape())
	if result.Main.Errors.HasErrors() {
		t.Fatalf("expected no diagnostics for a type-matching assignment, got %+v", result.Main.Errors.Items())
	}
	if !types.Equal(result.ReturnType, types.ClassType{ClassID: "Integer"}) {
		t.Fatalf("[]= ReturnType = %s, want Integer", types.Name(result.ReturnType))
	}
}

func TestShapeMergeOverwritesExistingKeyAndAddsNew(t *testing.T) {
	got := shapeMerge(sampleShape(), DispatchArgs{
		Args: []ActualArg{
			{Type: symbolLit("age")}, {Type: types.ClassType{ClassID: "Float"}},
			{Type: symbolLit("email")}, {Type: types.ClassType{ClassID: "String"}},
		},
	})
	shape, ok := got.(types.ShapeType)
	if !ok {
		t.Fatalf("expected shapeMerge to return a ShapeType, got %T", got)
	}
	if idx := shapeKeyIndexByValue(shape, "age"); idx < 0 || !types.Equal(shape.Values[idx], types.ClassType{ClassID: "Float"}) {
		t.Fatalf("expected `age` to be overwritten to Float")
	}
	if idx := shapeKeyIndexByValue(shape, "email"); idx < 0 {
		t.Fatalf("expected a new `email` key to be appended")
	}
}

func TestFirstShapeEntryReturnsKeyValueTuple(t *testing.T) {
	got := firstShapeEntry(sampleShape())
	want := types.TupleType{Elems: []types.Type{symbolLit("name"), types.ClassType{ClassID: "String"}}}
	if !types.Equal(got, want) {
		t.Fatalf("firstShapeEntry = %s, want %s", types.Name(got), types.Name(want))
	}
}

func TestFirstShapeEntryEmptyShapeIsNil(t *testing.T) {
	got := firstShapeEntry(types.ShapeType{})
	if !types.IsNil(got) {
		t.Fatalf("firstShapeEntry(empty) = %s, want nil", types.Name(got))
	}
}
