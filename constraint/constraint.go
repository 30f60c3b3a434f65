// Package constraint implements TypeConstraint (spec §3): a collection of
// upper/lower bounds on the type parameters being inferred during a single
// dispatch, with Solve and Instantiate.
package constraint

import (
	"dispatchcore/subtyping"
	"dispatchcore/symbols"
	"dispatchcore/types"
)

// TypeConstraint owns per-type-parameter bounds for a single dispatch. A
// shared, frozen empty constraint is used for non-generic calls so callers
// never need a nil check (spec §4.2 step 4).
type TypeConstraint struct {
	domain map[string]bool
	upper  map[string]types.Type
	lower  map[string]types.Type
	frozen bool
	solved map[string]types.Type
}

var emptyConstraint = &TypeConstraint{frozen: true}

// Empty returns the process-wide shared empty constraint, used whenever a
// call has no block and the method is not generic.
func Empty() *TypeConstraint { return emptyConstraint }

// New returns a fresh, writable constraint with no declared domain.
func New() *TypeConstraint {
	return &TypeConstraint{
		domain: make(map[string]bool),
		upper:  make(map[string]types.Type),
		lower:  make(map[string]types.Type),
	}
}

// IsEmpty reports whether c is the shared empty constraint.
func (c *TypeConstraint) IsEmpty() bool { return c == nil || c == emptyConstraint }

// DeclareDomain registers ids as the type parameters this constraint is
// responsible for solving (spec §4.2 step 4: "declare the method's type
// parameters as the constraint's domain").
func (c *TypeConstraint) DeclareDomain(ids ...string) {
	if c.frozen {
		return
	}
	for _, id := range ids {
		c.domain[id] = true
	}
}

// InDomain reports whether id is one of this constraint's declared type
// parameters.
func (c *TypeConstraint) InDomain(id string) bool {
	return c != nil && c.domain[id]
}

// RecordUpperBound tightens id's upper bound to the meet of its current
// upper bound and t. Implements subtyping.Bounds so IsSubTypeUnderConstraint
// can feed discovered bounds straight back into the constraint being built.
func (c *TypeConstraint) RecordUpperBound(id string, t types.Type) {
	if c.frozen || !c.domain[id] {
		return
	}
	if existing, ok := c.upper[id]; ok {
		c.upper[id] = types.NewAnd(existing, t)
	} else {
		c.upper[id] = t
	}
}

// RecordLowerBound widens id's lower bound to the join of its current lower
// bound and t.
func (c *TypeConstraint) RecordLowerBound(id string, t types.Type) {
	if c.frozen || !c.domain[id] {
		return
	}
	if existing, ok := c.lower[id]; ok {
		c.lower[id] = types.NewOr(existing, t)
	} else {
		c.lower[id] = t
	}
}

// Solve attempts to pick a concrete type for every id in the domain: the
// lower bound if present (the tightest type that satisfies every
// contravariant use site), else the upper bound, else Untyped. Solve fails
// only when a lower bound exists that does not satisfy the corresponding
// upper bound.
func (c *TypeConstraint) Solve(table *symbols.Table) bool {
	if c.frozen {
		c.solved = map[string]types.Type{}
		return true
	}
	solved := make(map[string]types.Type, len(c.domain))
	ok := true
	for id := range c.domain {
		lower, hasLower := c.lower[id]
		upper, hasUpper := c.upper[id]
		switch {
		case hasLower && hasUpper:
			if !subtyping.IsSubType(table, lower, upper) {
				ok = false
				solved[id] = types.Untyped{}
				continue
			}
			solved[id] = lower
		case hasLower:
			solved[id] = lower
		case hasUpper:
			solved[id] = upper
		default:
			solved[id] = types.Untyped{}
		}
	}
	c.solved = solved
	return ok
}

// Instantiate substitutes every solved type parameter into t. Calling
// Instantiate before Solve substitutes nothing (an unsolved constraint
// behaves as the empty one).
func (c *TypeConstraint) Instantiate(t types.Type) types.Type {
	if c == nil || len(c.solved) == 0 {
		return t
	}
	return subtyping.Substitute(t, c.solved)
}

// Solved returns the map of solved bindings, or nil if Solve has not been
// called. After Solve on an empty/frozen constraint the map is empty.
func (c *TypeConstraint) Solved() map[string]types.Type {
	return c.solved
}

// UnsolvedDomain returns the domain ids Solve could not pin to anything
// more specific than Untyped, for the GenericMethodConstaintUnsolved
// diagnostic's detail message.
func (c *TypeConstraint) UnsolvedDomain() []string {
	var out []string
	for id := range c.domain {
		t, ok := c.solved[id]
		if !ok || types.IsUntyped(t) {
			out = append(out, id)
		}
	}
	return out
}
