// Package diag implements diagnostics-as-data (spec §7): constructing a
// diagnostic never raises a Go error or transfers control. A Builder
// accumulates a header, explanatory sections, notes, and autocorrect
// suggestions; the caller decides whether to keep it or drop it.
package diag

// Code names one entry in the taxonomy spec §7 lists.
type Code string

const (
	UnknownMethod                   Code = "UnknownMethod"
	MethodArgumentMismatch          Code = "MethodArgumentMismatch"
	MethodArgumentCountMismatch     Code = "MethodArgumentCountMismatch"
	BareTypeUsage                   Code = "BareTypeUsage"
	InvalidCast                     Code = "InvalidCast"
	GenericMethodConstaintUnsolved  Code = "GenericMethodConstaintUnsolved"
	TakesNoBlock                    Code = "TakesNoBlock"
	BlockNotPassed                  Code = "BlockNotPassed"
	ProcArityUnknown                Code = "ProcArityUnknown"
	GenericPassedAsBlock            Code = "GenericPassedAsBlock"
	UntypedSplat                    Code = "UntypedSplat"
	KeywordArgHashWithoutSplat      Code = "KeywordArgHashWithoutSplat"
	GenericArgumentCountMismatch    Code = "GenericArgumentCountMismatch"
	GenericArgumentKeywordArgs      Code = "GenericArgumentKeywordArgs"
	GenericTypeParamBoundMismatch   Code = "GenericTypeParamBoundMismatch"
	RevealType                      Code = "RevealType"
	UntypedConstantSuggestion       Code = "UntypedConstantSuggestion"
	ExpectedLiteralType             Code = "ExpectedLiteralType"
	MetaTypeDispatchCall            Code = "MetaTypeDispatchCall"
)

// Severity distinguishes the two informational codes (RevealType,
// UntypedConstantSuggestion) from everything else, which is an error.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityInfo  Severity = "info"
)

var infoCodes = map[Code]bool{
	RevealType:                 true,
	UntypedConstantSuggestion:  true,
}

func severityFor(code Code) Severity {
	if infoCodes[code] {
		return SeverityInfo
	}
	return SeverityError
}

// Section is one named, multi-line block of explanation attached below a
// diagnostic's header (e.g. "Got Integer originating from:", grounded on
// Sorbet's ErrorSection).
type Section struct {
	Title string
	Lines []string
}

// Autocorrect is an approximate, source-scanning suggested edit. Per spec
// §9 design notes, autocorrects are intentionally approximate and must
// never cause the dispatcher itself to fail — a Diagnostic with no
// autocorrects is just as valid as one with several.
type Autocorrect struct {
	Loc         string
	Description string
	Replacement string
}

// Diagnostic is the finished, immutable record produced by a Builder.
type Diagnostic struct {
	Code        Code
	Severity    Severity
	Header      string
	Loc         string
	Sections    []Section
	Notes       []string
	Autocorrect []Autocorrect
}

// Builder accumulates a diagnostic's parts before it is either emitted or
// discarded. Sections, notes and autocorrects are append-only: once added
// they cannot be retracted (SetHeader replaces the header), matching the
// source pattern of "build error, then
// decide to emit or drop" (spec §9).
type Builder struct {
	code     Code
	loc      string
	header   string
	sections []Section
	notes    []string
	auto     []Autocorrect
}

// New starts a Builder for the given taxonomy code at loc.
func New(code Code, loc string) *Builder {
	return &Builder{code: code, loc: loc}
}

// SetHeader sets the one-line summary shown at the diagnostic's location.
func (b *Builder) SetHeader(header string) *Builder {
	b.header = header
	return b
}

// AddSection appends a titled block of explanatory lines.
func (b *Builder) AddSection(title string, lines ...string) *Builder {
	b.sections = append(b.sections, Section{Title: title, Lines: lines})
	return b
}

// AddNote appends a single free-standing note line.
func (b *Builder) AddNote(note string) *Builder {
	b.notes = append(b.notes, note)
	return b
}

// AddAutocorrect attaches a suggested edit. Per spec §9, callers must gate
// this on the source scan having uniquely matched; Builder itself performs
// no such check and simply records what it is given.
func (b *Builder) AddAutocorrect(a Autocorrect) *Builder {
	b.auto = append(b.auto, a)
	return b
}

// Build finishes the diagnostic. Build may be called more than once on the
// same Builder (e.g. once to inspect before deciding whether to keep it);
// each call returns an independent, fully-populated Diagnostic.
func (b *Builder) Build() Diagnostic {
	return Diagnostic{
		Code:        b.code,
		Severity:    severityFor(b.code),
		Header:      b.header,
		Loc:         b.loc,
		Sections:    append([]Section(nil), b.sections...),
		Notes:       append([]string(nil), b.notes...),
		Autocorrect: append([]Autocorrect(nil), b.auto...),
	}
}

// Queue is a local, append-only collection of diagnostics owned by one
// dispatch result. The caller — not the dispatcher — decides whether to
// merge a Queue into a wider, global queue or discard it wholesale, which
// is what lets intersection/union dispatch discard the failing side's
// errors without the dispatcher ever needing to know about suppression
// policy (spec §7, §9).
type Queue struct {
	items []Diagnostic
}

// NewQueue returns an empty queue.
func NewQueue() *Queue { return &Queue{} }

// Add appends d to the queue.
func (q *Queue) Add(d Diagnostic) { q.items = append(q.items, d) }

// AddBuilder finishes b and appends the result.
func (q *Queue) AddBuilder(b *Builder) { q.Add(b.Build()) }

// Merge appends every diagnostic in other onto q, leaving other untouched.
func (q *Queue) Merge(other *Queue) {
	if other == nil {
		return
	}
	q.items = append(q.items, other.items...)
}

// Items returns the queue's diagnostics in emission order.
func (q *Queue) Items() []Diagnostic {
	return q.items
}

// HasErrors reports whether the queue contains any SeverityError diagnostic.
func (q *Queue) HasErrors() bool {
	for _, d := range q.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Len returns the number of diagnostics currently queued.
func (q *Queue) Len() int { return len(q.items) }
