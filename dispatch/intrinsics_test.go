package dispatch

import (
	"testing"

	"dispatchcore/constraint"
	"dispatchcore/diag"
	"dispatchcore/symbols"
	"dispatchcore/types"
)

func TestIntrinsicMustStripsNilFromNilable(t *testing.T) {
	tbl := symbols.NewTable()
	errs := diag.NewQueue()
	args := DispatchArgs{NumPosArgs: 1, Args: []ActualArg{{Type: types.NewOr(types.ClassType{ClassID: "Integer"}, types.Nil{})}}}
	got := intrinsicMust(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	if !types.Equal(got, types.ClassType{ClassID: "Integer"}) {
		t.Fatalf("T.must(Integer|nil) = %s, want Integer", types.Name(got))
	}
	if errs.HasErrors() {
		t.Fatalf("stripping nil from a genuinely nilable value should not error")
	}
}

func TestIntrinsicMustOnNeverNilReportsInvalidCast(t *testing.T) {
	tbl := symbols.NewTable()
	errs := diag.NewQueue()
	args := DispatchArgs{NumPosArgs: 1, Args: []ActualArg{{Type: types.ClassType{ClassID: "Integer"}}}}
	got := intrinsicMust(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	if !types.Equal(got, types.ClassType{ClassID: "Integer"}) {
		t.Fatalf("T.must(Integer) should pass the type through unchanged, got %s", types.Name(got))
	}
	items := errs.Items()
	if len(items) != 1 || items[0].Code != diag.InvalidCast {
		t.Fatalf("expected InvalidCast, got %+v", items)
	}
	if len(items[0].Autocorrect) == 0 {
		t.Fatalf("expected a remove-the-redundant-T.must autocorrect")
	}
}

func TestIntrinsicNilableWrapsInOrNil(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "Integer"})
	errs := diag.NewQueue()
	args := DispatchArgs{NumPosArgs: 1, Args: []ActualArg{{Type: types.MetaType{Wrapped: types.ClassType{ClassID: "Integer"}}}}}
	got := intrinsicNilable(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	meta, ok := got.(types.MetaType)
	if !ok {
		t.Fatalf("T.nilable should return a MetaType, got %T", got)
	}
	want := types.NewOr(types.ClassType{ClassID: "Integer"}, types.Nil{})
	if !types.Equal(meta.Wrapped, want) {
		t.Fatalf("T.nilable(Integer) wraps %s, want %s", types.Name(meta.Wrapped), types.Name(want))
	}
}

func TestIntrinsicAnyBuildsUnionOfMembers(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "Integer"})
	tbl.DefineClass(symbols.ClassInfo{ID: "String"})
	errs := diag.NewQueue()
	args := DispatchArgs{NumPosArgs: 2, Args: []ActualArg{
		{Type: types.MetaType{Wrapped: types.ClassType{ClassID: "Integer"}}},
		{Type: types.MetaType{Wrapped: types.ClassType{ClassID: "String"}}},
	}}
	got := intrinsicAny(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	meta := got.(types.MetaType)
	want := types.NewOr(types.ClassType{ClassID: "Integer"}, types.ClassType{ClassID: "String"})
	if !types.Equal(meta.Wrapped, want) {
		t.Fatalf("T.any(Integer, String) wraps %s, want %s", types.Name(meta.Wrapped), types.Name(want))
	}
}

func TestIntrinsicAllBuildsIntersectionOfMembers(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "Flyable"})
	tbl.DefineClass(symbols.ClassInfo{ID: "Swimmable"})
	errs := diag.NewQueue()
	args := DispatchArgs{NumPosArgs: 2, Args: []ActualArg{
		{Type: types.MetaType{Wrapped: types.ClassType{ClassID: "Flyable"}}},
		{Type: types.MetaType{Wrapped: types.ClassType{ClassID: "Swimmable"}}},
	}}
	got := intrinsicAll(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	meta := got.(types.MetaType)
	want := types.NewAnd(types.ClassType{ClassID: "Flyable"}, types.ClassType{ClassID: "Swimmable"})
	if !types.Equal(meta.Wrapped, want) {
		t.Fatalf("T.all(Flyable, Swimmable) wraps %s, want %s", types.Name(meta.Wrapped), types.Name(want))
	}
}

func TestIntrinsicRevealTypeEmitsInfoAndPassesThrough(t *testing.T) {
	tbl := symbols.NewTable()
	errs := diag.NewQueue()
	args := DispatchArgs{NumPosArgs: 1, Args: []ActualArg{{Type: types.ClassType{ClassID: "Integer"}}}}
	got := intrinsicRevealType(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	if !types.Equal(got, types.ClassType{ClassID: "Integer"}) {
		t.Fatalf("T.reveal_type should pass the type through, got %s", types.Name(got))
	}
	items := errs.Items()
	if len(items) != 1 || items[0].Code != diag.RevealType {
		t.Fatalf("expected a single RevealType diagnostic, got %+v", items)
	}
	if items[0].Severity != diag.SeverityInfo {
		t.Fatalf("RevealType should be an info-level diagnostic, got %v", items[0].Severity)
	}
}

func TestIntrinsicBuildHashUnionsKeysAndValues(t *testing.T) {
	tbl := symbols.NewTable()
	errs := diag.NewQueue()
	args := DispatchArgs{Args: []ActualArg{
		{Type: symbolLit("a")}, {Type: types.ClassType{ClassID: "Integer"}},
		{Type: symbolLit("b")}, {Type: types.ClassType{ClassID: "String"}},
	}}
	got := intrinsicBuildHash(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	applied, ok := got.(types.AppliedType)
	if !ok || applied.ClassID != types.RootHashClassID {
		t.Fatalf("expected a Hash AppliedType, got %s", types.Name(got))
	}
	wantKeys := types.NewOr(symbolLit("a"), symbolLit("b"))
	wantValues := types.NewOr(types.ClassType{ClassID: "Integer"}, types.ClassType{ClassID: "String"})
	if len(applied.Args) != 2 || !types.Equal(applied.Args[0], wantKeys) || !types.Equal(applied.Args[1], wantValues) {
		t.Fatalf("build_hash = %s, want Hash[%s, %s]", types.Name(got), types.Name(wantKeys), types.Name(wantValues))
	}
}

func TestIntrinsicBuildArrayUnionsElems(t *testing.T) {
	tbl := symbols.NewTable()
	errs := diag.NewQueue()
	args := DispatchArgs{NumPosArgs: 2, Args: []ActualArg{
		{Type: types.ClassType{ClassID: "Integer"}},
		{Type: types.ClassType{ClassID: "String"}},
	}}
	got := intrinsicBuildArray(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	applied, ok := got.(types.AppliedType)
	if !ok || applied.ClassID != types.RootArrayClassID {
		t.Fatalf("expected an Array AppliedType, got %s", types.Name(got))
	}
	want := types.NewOr(types.ClassType{ClassID: "Integer"}, types.ClassType{ClassID: "String"})
	if !types.Equal(applied.Args[0], want) {
		t.Fatalf("Array elem = %s, want %s", types.Name(applied.Args[0]), types.Name(want))
	}
}

func TestIntrinsicGenericBracketValidatesArity(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "Box", TypeArity: 1})
	tbl.DefineClass(symbols.ClassInfo{ID: "Integer"})
	errs := diag.NewQueue()
	args := DispatchArgs{
		NumPosArgs: 1,
		Args:       []ActualArg{{Type: types.MetaType{Wrapped: types.ClassType{ClassID: "Integer"}}}},
		ThisType:   types.ClassType{ClassID: "Box"},
	}
	got := intrinsicGenericBracket(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	if errs.HasErrors() {
		t.Fatalf("a correct arity generic bracket should not error, got %+v", errs.Items())
	}
	meta := got.(types.MetaType)
	applied := meta.Wrapped.(types.AppliedType)
	if applied.ClassID != "Box" || !types.Equal(applied.Args[0], types.ClassType{ClassID: "Integer"}) {
		t.Fatalf("Box[Integer] = %s", types.Name(got))
	}
}

func TestIntrinsicGenericBracketArityMismatchReportsDiagnostic(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "Box", TypeArity: 2})
	tbl.DefineClass(symbols.ClassInfo{ID: "Integer"})
	errs := diag.NewQueue()
	args := DispatchArgs{
		NumPosArgs: 1,
		Args:       []ActualArg{{Type: types.MetaType{Wrapped: types.ClassType{ClassID: "Integer"}}}},
		ThisType:   types.ClassType{ClassID: "Box"},
	}
	intrinsicGenericBracket(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	items := errs.Items()
	if len(items) != 1 || items[0].Code != diag.GenericArgumentCountMismatch {
		t.Fatalf("expected GenericArgumentCountMismatch, got %+v", items)
	}
}

func TestIntrinsicGenericBracketRejectsKeywordArguments(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "Box", TypeArity: 1})
	tbl.DefineClass(symbols.ClassInfo{ID: "Integer"})
	errs := diag.NewQueue()
	args := DispatchArgs{
		Args:     []ActualArg{{Type: symbolLit("k")}, {Type: types.MetaType{Wrapped: types.ClassType{ClassID: "Integer"}}}},
		ThisType: types.ClassType{ClassID: "Box"},
	}
	intrinsicGenericBracket(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	items := errs.Items()
	found := false
	for _, d := range items {
		if d.Code == diag.GenericArgumentKeywordArgs {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected GenericArgumentKeywordArgs, got %+v", items)
	}
}

func TestIntrinsicGenericBracketAcceptsArgumentWithinBound(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "Animal"})
	tbl.DefineClass(symbols.ClassInfo{ID: "Dog", DerivesFromIDs: []string{"Animal"}})
	tbl.DefineClass(symbols.ClassInfo{ID: "Cage", TypeArity: 1, TypeMemberBounds: []types.Type{types.ClassType{ClassID: "Animal"}}})
	errs := diag.NewQueue()
	args := DispatchArgs{
		NumPosArgs: 1,
		Args:       []ActualArg{{Type: types.MetaType{Wrapped: types.ClassType{ClassID: "Dog"}}}},
		ThisType:   types.ClassType{ClassID: "Cage"},
	}
	got := intrinsicGenericBracket(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	if errs.HasErrors() {
		t.Fatalf("Cage[Dog] satisfies the Animal bound and should not error, got %+v", errs.Items())
	}
	meta := got.(types.MetaType)
	applied := meta.Wrapped.(types.AppliedType)
	if !types.Equal(applied.Args[0], types.ClassType{ClassID: "Dog"}) {
		t.Fatalf("Cage[Dog] = %s", types.Name(got))
	}
}

func TestIntrinsicGenericBracketViolatesBoundReportsDiagnostic(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "Animal"})
	tbl.DefineClass(symbols.ClassInfo{ID: "String"})
	tbl.DefineClass(symbols.ClassInfo{ID: "Cage", TypeArity: 1, TypeMemberBounds: []types.Type{types.ClassType{ClassID: "Animal"}}})
	errs := diag.NewQueue()
	args := DispatchArgs{
		NumPosArgs: 1,
		Args:       []ActualArg{{Type: types.MetaType{Wrapped: types.ClassType{ClassID: "String"}}}},
		ThisType:   types.ClassType{ClassID: "Cage"},
	}
	intrinsicGenericBracket(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	items := errs.Items()
	if len(items) != 1 || items[0].Code != diag.GenericTypeParamBoundMismatch {
		t.Fatalf("expected GenericTypeParamBoundMismatch, got %+v", items)
	}
}

func TestIntrinsicGenericBracketUnboundedSlotAcceptsAnything(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "String"})
	tbl.DefineClass(symbols.ClassInfo{ID: "Box", TypeArity: 1})
	errs := diag.NewQueue()
	args := DispatchArgs{
		NumPosArgs: 1,
		Args:       []ActualArg{{Type: types.MetaType{Wrapped: types.ClassType{ClassID: "String"}}}},
		ThisType:   types.ClassType{ClassID: "Box"},
	}
	intrinsicGenericBracket(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	if errs.HasErrors() {
		t.Fatalf("a class with no recorded bounds should accept any type argument, got %+v", errs.Items())
	}
}

func TestIntrinsicModuleEqqStaticTrueForSubtype(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "Animal"})
	tbl.DefineClass(symbols.ClassInfo{ID: "Dog", DerivesFromIDs: []string{"Animal"}})
	errs := diag.NewQueue()
	args := DispatchArgs{
		NumPosArgs: 1,
		Args:       []ActualArg{{Type: types.ClassType{ClassID: "Dog"}}},
		ThisType:   types.MetaType{Wrapped: types.ClassType{ClassID: "Animal"}},
	}
	got := intrinsicModuleEqq(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	lit := got.(types.LiteralType)
	if lit.Kind != types.LiteralBool || lit.Value != true {
		t.Fatalf("Animal === Dog should statically be true, got %s", types.Name(got))
	}
}

func TestIntrinsicModuleEqqStaticFalseForUnrelatedClasses(t *testing.T) {
	tbl := symbols.NewTable()
	tbl.DefineClass(symbols.ClassInfo{ID: "Animal"})
	tbl.DefineClass(symbols.ClassInfo{ID: "Vehicle"})
	errs := diag.NewQueue()
	args := DispatchArgs{
		NumPosArgs: 1,
		Args:       []ActualArg{{Type: types.ClassType{ClassID: "Vehicle"}}},
		ThisType:   types.MetaType{Wrapped: types.ClassType{ClassID: "Animal"}},
	}
	got := intrinsicModuleEqq(tbl, Options{}, args, symbols.Method{}, constraint.Empty(), errs, nil)
	lit := got.(types.LiteralType)
	if lit.Kind != types.LiteralBool || lit.Value != false {
		t.Fatalf("Animal === Vehicle should statically be false, got %s", types.Name(got))
	}
}

func TestIntrinsicCompactDropsNilFromArrayElem(t *testing.T) {
	tbl := symbols.NewTable()
	errs := diag.NewQueue()
	receiver := types.AppliedType{ClassID: types.RootArrayClassID, Args: []types.Type{types.NewOr(types.ClassType{ClassID: "Integer"}, types.Nil{})}}
	got := intrinsicCompact(tbl, Options{}, DispatchArgs{ThisType: receiver}, symbols.Method{}, constraint.Empty(), errs, nil)
	applied := got.(types.AppliedType)
	if !types.Equal(applied.Args[0], types.ClassType{ClassID: "Integer"}) {
		t.Fatalf("compact should drop nil from the element union, got %s", types.Name(applied.Args[0]))
	}
}

func TestLiteralSymbolNameExtractsValue(t *testing.T) {
	name, ok := literalSymbolName(symbolLit("hello"))
	if !ok || name != "hello" {
		t.Fatalf("literalSymbolName(:hello) = (%q, %v), want (\"hello\", true)", name, ok)
	}
	if _, ok := literalSymbolName(types.ClassType{ClassID: "Integer"}); ok {
		t.Fatalf("literalSymbolName should fail for a non-symbol type")
	}
}
