// Package symbols defines the read-only symbol-table surface the dispatch
// core consumes (spec §1, §6). It is deliberately minimal: name resolution,
// incremental caching, and source-level type-syntax checking are external
// collaborators the core never performs itself. Table is implemented here
// only as an in-memory store sufficient to drive and test package dispatch.
package symbols

import "dispatchcore/types"

// Strictness mirrors the defining file's strictness level. Package dispatch
// does not read it: its strict-only diagnostics (spec §4.5, §4.3) are gated
// on dispatch.Options.StrictKeywordArgs instead.
type Strictness string

const (
	StrictnessIgnore Strictness = "ignore"
	StrictnessFalse  Strictness = "false"
	StrictnessTrue   Strictness = "true"
	StrictnessStrict Strictness = "strict"
)

// Argument describes one formal parameter, including the synthetic trailing
// block parameter every method carries (spec §3 invariants).
type Argument struct {
	Name          string
	RenderedName  string
	Type          types.Type
	IsKeyword     bool
	IsKeywordRest bool
	IsDefault     bool
	IsRepeated    bool
	IsBlock       bool
	IsSynthetic   bool
	Loc           string
}

// Method is the per-method metadata spec §6 lists.
type Method struct {
	Name            string
	Owner           string
	Arguments       []Argument
	Result          types.Type
	IsOverloaded    bool
	IsGenericMethod bool
	TypeArguments   []string
	HasSig          bool
	Intrinsic       string
	Loc             string
	Strictness      Strictness
}

// BlockArgument returns the method's trailing block parameter. Every method
// has one per the invariant in spec §3; a method built without one is a
// caller bug, and BlockArgument returns the zero Argument with ok=false
// rather than panicking, since this table is read-only scaffolding, not a
// validator.
func (m Method) BlockArgument() (Argument, bool) {
	if len(m.Arguments) == 0 {
		return Argument{}, false
	}
	last := m.Arguments[len(m.Arguments)-1]
	if !last.IsBlock {
		return Argument{}, false
	}
	return last, true
}

// NonBlockArguments returns every formal parameter except the trailing
// block parameter.
func (m Method) NonBlockArguments() []Argument {
	if _, ok := m.BlockArgument(); !ok {
		return m.Arguments
	}
	return m.Arguments[:len(m.Arguments)-1]
}

// overloadChain returns the chain of overload candidates for m, recovered by
// looking up mangled names "m.Name#1", "m.Name#2", ... on the owner class,
// ascending and contiguous from 1 (spec §3 invariants, §4.4).
func (m Method) overloadChain(t *Table) []Method {
	chain := []Method{m}
	i := 1
	for {
		name := overloadName(m.Name, i)
		next, ok := t.FindMember(m.Owner, name)
		if !ok {
			break
		}
		chain = append(chain, next)
		i++
	}
	return chain
}

func overloadName(name string, i int) string {
	return name + "#" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// ClassInfo is the per-class metadata spec §6 lists.
type ClassInfo struct {
	ID                     string
	TypeArity              int
	AttachedClassID        string // set on singleton classes; the instance class they are attached to
	SingletonClassID       string // this class's own singleton class, if looked up
	DerivesFromIDs         []string
	RequiredAncestorIDs    []string
	IsModule               bool
	IsSingleton            bool
	ExternalTypeClassArity int
	// TypeMemberBounds holds the upper bound declared for each of this
	// class's type members, positionally matched against AppliedType.Args
	// and against SomeGeneric[...] bracket arguments. A nil entry (or a
	// slice shorter than TypeArity) means that slot carries no bound.
	TypeMemberBounds []types.Type
}

// Table is an in-memory, read-only (from the dispatcher's point of view)
// symbol table: classes, their members, and overload chains.
type Table struct {
	classes map[string]*ClassInfo
	members map[string]map[string]Method // classID -> methodName -> Method
	order   map[string][]string          // classID -> method names in declaration order, for fuzzy-match stability
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		classes: make(map[string]*ClassInfo),
		members: make(map[string]map[string]Method),
		order:   make(map[string][]string),
	}
}

// DefineClass registers (or overwrites) a class's metadata.
func (t *Table) DefineClass(info ClassInfo) {
	c := info
	t.classes[info.ID] = &c
}

// Class returns a class's metadata.
func (t *Table) Class(id string) (ClassInfo, bool) {
	c, ok := t.classes[id]
	if !ok {
		return ClassInfo{}, false
	}
	return *c, true
}

// DefineMember registers a method on a class.
func (t *Table) DefineMember(classID string, m Method) {
	if t.members[classID] == nil {
		t.members[classID] = make(map[string]Method)
	}
	if _, exists := t.members[classID][m.Name]; !exists {
		t.order[classID] = append(t.order[classID], m.Name)
	}
	m.Owner = classID
	t.members[classID][m.Name] = m
}

// FindMember looks up name directly on classID, without walking ancestors.
func (t *Table) FindMember(classID, name string) (Method, bool) {
	members, ok := t.members[classID]
	if !ok {
		return Method{}, false
	}
	m, ok := members[name]
	return m, ok
}

// FindMemberTransitive walks classID's ancestors (derivesFrom chain, then
// required ancestors if requiredAncestors is true) looking for name.
func (t *Table) FindMemberTransitive(classID, name string, requiredAncestors bool) (Method, bool) {
	if m, ok := t.FindMember(classID, name); ok {
		return m, true
	}
	info, ok := t.Class(classID)
	if !ok {
		return Method{}, false
	}
	for _, ancestor := range info.DerivesFromIDs {
		if m, ok := t.FindMemberTransitive(ancestor, name, requiredAncestors); ok {
			return m, true
		}
	}
	if requiredAncestors {
		for _, ancestor := range info.RequiredAncestorIDs {
			if m, ok := t.FindMember(ancestor, name); ok {
				return m, true
			}
		}
	}
	return Method{}, false
}

// FindMemberFuzzyMatch returns member names on classID within edit distance
// 2 of name, in declaration order, for UnknownMethod suggestions (spec §4.2).
func (t *Table) FindMemberFuzzyMatch(classID, name string) []string {
	var out []string
	for _, candidate := range t.order[classID] {
		if candidate == name {
			continue
		}
		if levenshtein(candidate, name) <= 2 {
			out = append(out, candidate)
		}
	}
	return out
}

// Overloads returns m's full overload chain, including m itself at index 0,
// sorted neither here nor by the table — ordering is the resolver's job.
func (t *Table) Overloads(m Method) []Method {
	return m.overloadChain(t)
}

// DerivesFrom reports whether classID derives from ancestorID, transitively.
func (t *Table) DerivesFrom(classID, ancestorID string) bool {
	if classID == ancestorID {
		return true
	}
	info, ok := t.Class(classID)
	if !ok {
		return false
	}
	for _, a := range info.DerivesFromIDs {
		if t.DerivesFrom(a, ancestorID) {
			return true
		}
	}
	return false
}

// RequiredAncestorsTransitive returns classID's full transitive closure of
// required-ancestor ids.
func (t *Table) RequiredAncestorsTransitive(classID string) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(id string)
	walk = func(id string) {
		info, ok := t.Class(id)
		if !ok {
			return
		}
		for _, a := range info.RequiredAncestorIDs {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
				walk(a)
			}
		}
	}
	walk(classID)
	return out
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
