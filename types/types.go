// Package types implements the type lattice the dispatch core operates
// over: a sealed set of variants exhaustively matched by every switch in
// package dispatch.
package types

import "fmt"

// Type is implemented by every lattice variant. It is intentionally thin —
// callers type-switch on the concrete variant rather than calling virtual
// methods, mirroring how the teacher's own sealed Type interface is used.
type Type interface {
	Name() string
}

// ClassType is a nominal class or module, referenced by its symbol id.
type ClassType struct {
	ClassID string
}

func (c ClassType) Name() string { return c.ClassID }

// AppliedType is a generic class instantiated with concrete type arguments.
type AppliedType struct {
	ClassID string
	Args    []Type
}

func (a AppliedType) Name() string {
	s := a.ClassID + "["
	for i, arg := range a.Args {
		if i > 0 {
			s += ", "
		}
		s += Name(arg)
	}
	return s + "]"
}

// LiteralKind enumerates the value kinds LiteralType can wrap.
type LiteralKind string

const (
	LiteralInt    LiteralKind = "int"
	LiteralFloat  LiteralKind = "float"
	LiteralString LiteralKind = "string"
	LiteralSymbol LiteralKind = "symbol"
	LiteralBool   LiteralKind = "bool"
)

// LiteralType is a singleton value type, e.g. the type of the literal `:ok`.
type LiteralType struct {
	Kind       LiteralKind
	Value      any
	Underlying Type
}

func (l LiteralType) Name() string {
	return fmt.Sprintf("%s(%v)", l.Underlying.Name(), l.Value)
}

// ShapeType is a record-like type: a fixed, ordered set of literal keys and
// their value types.
type ShapeType struct {
	Keys   []LiteralType
	Values []Type
}

func (s ShapeType) Name() string {
	out := "{"
	for i := range s.Keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%v: %s", s.Keys[i].Value, Name(s.Values[i]))
	}
	return out + "}"
}

// TupleType is a fixed-length heterogeneous sequence.
type TupleType struct {
	Elems []Type
}

func (t TupleType) Name() string {
	out := "["
	for i, e := range t.Elems {
		if i > 0 {
			out += ", "
		}
		out += Name(e)
	}
	return out + "]"
}

// OrType is a union. Normalize via NewOr, never construct directly outside
// this package, so that neither side is itself an Or with a shared partner.
type OrType struct {
	Left, Right Type
}

func (o OrType) Name() string { return Name(o.Left) + " | " + Name(o.Right) }

// AndType is an intersection. Normalize via NewAnd.
type AndType struct {
	Left, Right Type
}

func (a AndType) Name() string { return Name(a.Left) + " & " + Name(a.Right) }

// MetaType is a type surfaced as a first-class value, e.g. the expression
// `Integer` used where a value is expected.
type MetaType struct {
	Wrapped Type
}

func (m MetaType) Name() string { return "Class<" + Name(m.Wrapped) + ">" }

// TypeVar is an inference artifact: a placeholder solved by a constraint.
type TypeVar struct {
	ID string
}

func (t TypeVar) Name() string { return "%" + t.ID }

// SelfTypeParam stands for the `self` type of the owning symbol, substituted
// at the call site once the receiver is known.
type SelfTypeParam struct {
	Sym string
}

func (s SelfTypeParam) Name() string { return "self(" + s.Sym + ")" }

// LambdaParam is an inference artifact used while solving block/proc types:
// an upper/lower bounded placeholder rather than a named TypeVar.
type LambdaParam struct {
	Upper, Lower Type
}

func (l LambdaParam) Name() string { return "lambda-param" }

// Bottom is the lattice's bottom element (no values).
type Bottom struct{}

func (Bottom) Name() string { return "<bottom>" }

// Top is the lattice's top element (all values).
type Top struct{}

func (Top) Name() string { return "<top>" }

// Untyped is the lattice fixpoint: dispatch on it short-circuits with no
// errors. Blame optionally names the symbol responsible for the type being
// unknown, for diagnostics that want to point at the origin.
type Untyped struct {
	Blame string
}

func (Untyped) Name() string { return "untyped" }

// Nil is the type of the nil value.
type Nil struct{}

func (Nil) Name() string { return "nil" }

// Name returns t.Name(), tolerating a nil interface value.
func Name(t Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}

// IsUntyped reports whether t is the Untyped fixpoint.
func IsUntyped(t Type) bool {
	if t == nil {
		return true
	}
	_, ok := t.(Untyped)
	return ok
}

// IsBottom reports whether t is Bottom.
func IsBottom(t Type) bool {
	_, ok := t.(Bottom)
	return ok
}

// IsNil reports whether t is the Nil type.
func IsNil(t Type) bool {
	_, ok := t.(Nil)
	return ok
}

// NewOr builds a normalized union: flattens nested Ors and drops duplicate
// members (by structural equality), collapsing to the sole member when only
// one remains.
func NewOr(members ...Type) Type {
	flat := flattenOr(members)
	switch len(flat) {
	case 0:
		return Untyped{}
	case 1:
		return flat[0]
	}
	result := flat[0]
	for _, m := range flat[1:] {
		result = OrType{Left: result, Right: m}
	}
	return result
}

func flattenOr(members []Type) []Type {
	var out []Type
	for _, m := range members {
		if m == nil {
			continue
		}
		switch v := m.(type) {
		case OrType:
			out = append(out, flattenOr([]Type{v.Left, v.Right})...)
			continue
		}
		out = appendUnique(out, m)
	}
	return out
}

func appendUnique(existing []Type, candidate Type) []Type {
	for _, e := range existing {
		if Equal(e, candidate) {
			return existing
		}
	}
	return append(existing, candidate)
}

// NewAnd builds a normalized intersection, analogous to NewOr.
func NewAnd(members ...Type) Type {
	flat := flattenAnd(members)
	switch len(flat) {
	case 0:
		return Top{}
	case 1:
		return flat[0]
	}
	result := flat[0]
	for _, m := range flat[1:] {
		result = AndType{Left: result, Right: m}
	}
	return result
}

func flattenAnd(members []Type) []Type {
	var out []Type
	for _, m := range members {
		if m == nil {
			continue
		}
		if v, ok := m.(AndType); ok {
			out = append(out, flattenAnd([]Type{v.Left, v.Right})...)
			continue
		}
		out = appendUnique(out, m)
	}
	return out
}

// Equal is a structural equality check over the lattice, sufficient for
// deduplication in NewOr/NewAnd. It does not attempt subtyping.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case ClassType:
		bv, ok := b.(ClassType)
		return ok && av.ClassID == bv.ClassID
	case AppliedType:
		bv, ok := b.(AppliedType)
		if !ok || av.ClassID != bv.ClassID || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !Equal(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	case LiteralType:
		bv, ok := b.(LiteralType)
		return ok && av.Kind == bv.Kind && av.Value == bv.Value
	case ShapeType:
		bv, ok := b.(ShapeType)
		if !ok || len(av.Keys) != len(bv.Keys) {
			return false
		}
		for i := range av.Keys {
			if !Equal(av.Keys[i], bv.Keys[i]) || !Equal(av.Values[i], bv.Values[i]) {
				return false
			}
		}
		return true
	case TupleType:
		bv, ok := b.(TupleType)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case OrType:
		bv, ok := b.(OrType)
		return ok && ((Equal(av.Left, bv.Left) && Equal(av.Right, bv.Right)) ||
			(Equal(av.Left, bv.Right) && Equal(av.Right, bv.Left)))
	case AndType:
		bv, ok := b.(AndType)
		return ok && ((Equal(av.Left, bv.Left) && Equal(av.Right, bv.Right)) ||
			(Equal(av.Left, bv.Right) && Equal(av.Right, bv.Left)))
	case MetaType:
		bv, ok := b.(MetaType)
		return ok && Equal(av.Wrapped, bv.Wrapped)
	case TypeVar:
		bv, ok := b.(TypeVar)
		return ok && av.ID == bv.ID
	case SelfTypeParam:
		bv, ok := b.(SelfTypeParam)
		return ok && av.Sym == bv.Sym
	case Untyped:
		_, ok := b.(Untyped)
		return ok
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bottom:
		_, ok := b.(Bottom)
		return ok
	case Top:
		_, ok := b.(Top)
		return ok
	default:
		return a.Name() == b.Name()
	}
}
