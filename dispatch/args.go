// Package dispatch implements the method dispatch core (spec §2-§7): given
// a receiver type, a method name, positional/keyword argument types, and an
// optional block, it resolves the call against the type lattice and
// produces a return type, constraints on any inferred type variables, and a
// stream of diagnostics.
package dispatch

import (
	"dispatchcore/constraint"
	"dispatchcore/diag"
	"dispatchcore/symbols"
	"dispatchcore/types"

	"github.com/google/uuid"
)

// ActualArg is one typed-with-origin actual argument or keyword key/value
// slot (spec §3 "Call input").
type ActualArg struct {
	Type types.Type
	Loc  string
}

// BlockArg describes an attached block: its Proc type, whether its arity
// was statically known at the call site (false for a bare `&blk` pass-
// through of unknown arity), and its source location.
type BlockArg struct {
	Type       types.Type
	Loc        string
	ArityKnown bool
}

// Locs bundles the source ranges spec §3 lists for diagnostics.
type Locs struct {
	File     string
	Call     string
	Receiver string
	Args     []string
}

// DispatchArgs is the call input (spec §3).
type DispatchArgs struct {
	Name string
	Locs Locs

	// NumPosArgs is the count of leading positional entries in Args.
	NumPosArgs int

	// Args holds, in order: NumPosArgs positional entries, then alternating
	// keyword key/value pairs, with an optional odd trailing keyword-rest
	// entry.
	Args []ActualArg

	// ThisType is the current subcomponent being dispatched (narrows during
	// union/intersection recursion). SelfType is the original static
	// receiver. FullType is the broadest receiver, with origins, used for
	// diagnostics that reference the call's nominal receiver rather than
	// the narrowed subcomponent.
	ThisType types.Type
	SelfType types.Type
	FullType types.Type

	Block *BlockArg

	// SuppressErrors, when set, makes dispatch produce a result with no
	// diagnostics retained — used by intersection dispatch to probe a side
	// without committing to its errors (spec §4.1, §5).
	SuppressErrors bool

	OriginForUninitialized string
}

// KeywordPairs splits the trailing keyword portion of Args into symbol
// key / value pairs, plus an optional trailing keyword-rest entry when the
// keyword portion has an odd count (spec §3).
func (d DispatchArgs) KeywordPairs() (pairs []KeywordPair, kwsplat *ActualArg) {
	kwPortion := d.Args[d.NumPosArgs:]
	n := len(kwPortion)
	pairCount := n / 2
	for i := 0; i < pairCount; i++ {
		pairs = append(pairs, KeywordPair{Key: kwPortion[2*i], Value: kwPortion[2*i+1]})
	}
	if n%2 == 1 {
		last := kwPortion[n-1]
		kwsplat = &last
	}
	return pairs, kwsplat
}

// KeywordPair is one inline `name: value` actual.
type KeywordPair struct {
	Key   ActualArg
	Value ActualArg
}

// PositionalArgs returns the leading NumPosArgs entries of Args.
func (d DispatchArgs) PositionalArgs() []ActualArg {
	return d.Args[:d.NumPosArgs]
}

// SecondaryKind names how Main and Secondary combine in a DispatchResult
// (spec §3).
type SecondaryKind string

const (
	SecondaryNone SecondaryKind = ""
	SecondaryAnd  SecondaryKind = "and"
	SecondaryOr   SecondaryKind = "or"
)

// BlockMatch records how a passed block was matched against the method's
// declared block formal (spec §4.5).
type BlockMatch struct {
	PreType      types.Type
	ReturnType   types.Type
	ArityUnknown bool
}

// DispatchComponent is one resolved leg of a dispatch (spec §3).
type DispatchComponent struct {
	Receiver        types.Type
	Method          *symbols.Method
	Constraint      *constraint.TypeConstraint
	BlockPreType    types.Type
	BlockReturnType types.Type
	BlockSpec       *BlockMatch
	Errors          *diag.Queue
	SendType        types.Type
}

// DispatchResult is the call output (spec §3).
type DispatchResult struct {
	ID            string
	ReturnType    types.Type
	Main          DispatchComponent
	Secondary     *DispatchComponent
	SecondaryKind SecondaryKind
}

func newResult() *DispatchResult {
	return &DispatchResult{ID: uuid.NewString()}
}

// Options is the dispatcher's policy-knob surface. Of its knobs, only
// AllowUntypedHashAsKwargs corresponds to a spec §9 Open Question.
type Options struct {
	// AllowUntypedHashAsKwargs relaxes the spec-documented (intentional but
	// acknowledged wrong) rule that a non-shape hash can never satisfy
	// keyword parameters, even against `**kwargs: untyped`. Default false
	// preserves the documented source behavior.
	AllowUntypedHashAsKwargs bool

	// StrictKeywordArgs enables the "strict keyword-arg" deprecation
	// diagnostics (implicit-kwsplat promotion, ProcArityUnknown) that spec
	// §4.3/§4.5 gate on strictness.
	StrictKeywordArgs bool

	// AllowRequiredAncestors enables the "required ancestors" scan in
	// member lookup (spec §4.2 step 1).
	AllowRequiredAncestors bool

	// SuggestUnsafeWrap turns on the "wrap the receiver" UnknownMethod note
	// even for a non-nil receiver (spec §4.2 step 2's "unsafe wrap hint
	// configured" clause). Nil receivers always get the note regardless of
	// this flag.
	SuggestUnsafeWrap bool
}

// Root and sentinel names the symbol-based dispatch path (§4.2) and the
// meta-type/not-found handling special-case against. A real symbol table
// would resolve these structurally; this module's in-memory symbols.Table
// has no dedicated "is this Object" or "is this a super call" predicate, so
// dispatch matches on these well-known names instead.
const (
	RootObjectClassID  = "Object"
	SuperCallSentinel  = "<super>"
)
