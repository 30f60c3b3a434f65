// Package fixture loads small, self-contained dispatch scenarios — a
// symbol table plus one call — from YAML files, the way pkg/driver's
// Manifest loader turns package.yml into a validated struct: decode with
// strict unknown-field checking, then run a second validation pass that
// collects every problem before returning, rather than failing fast on the
// first one.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"dispatchcore/dispatch"
	"dispatchcore/symbols"
	"dispatchcore/types"

	"gopkg.in/yaml.v3"
)

// ValidationError aggregates fixture validation failures, mirroring the
// manifest loader's "collect everything, report once" convention.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "fixture: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("fixture validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n  - ")
		b.WriteString(issue)
	}
	return b.String()
}

// argumentSpec is one formal parameter as spelled in YAML.
type argumentSpec struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Keyword   bool   `yaml:"keyword"`
	KwRest    bool   `yaml:"keyword_rest"`
	Default   bool   `yaml:"default"`
	Repeated  bool   `yaml:"repeated"`
}

// blockSpec describes a method's trailing block formal. Omitting it yields
// the synthetic, untyped block formal every method carries per the "last
// argument is always a block parameter" invariant.
type blockSpec struct {
	Type      string `yaml:"type"`
	Synthetic bool   `yaml:"synthetic"`
}

type methodSpec struct {
	Args          []argumentSpec `yaml:"args"`
	Block         *blockSpec     `yaml:"block"`
	Result        string         `yaml:"result"`
	Overloaded    bool           `yaml:"overloaded"`
	Generic       bool           `yaml:"generic"`
	TypeArguments []string       `yaml:"type_arguments"`
	Intrinsic     string         `yaml:"intrinsic"`
	Strictness    string         `yaml:"strictness"`
}

type classSpec struct {
	TypeArity         int                   `yaml:"type_arity"`
	Module            bool                  `yaml:"module"`
	Singleton         bool                  `yaml:"singleton"`
	AttachedClassID   string                `yaml:"attached_class_id"`
	DerivesFrom       []string              `yaml:"derives_from"`
	RequiredAncestors []string              `yaml:"required_ancestors"`
	// TypeMemberBounds is positional: entry i is the upper bound for type
	// member i, or "" for an unbounded slot.
	TypeMemberBounds []string              `yaml:"type_member_bounds"`
	Methods          map[string]methodSpec `yaml:"methods"`
}

type blockArgSpec struct {
	Type       string `yaml:"type"`
	ArityKnown bool   `yaml:"arity_known"`
}

type callSpec struct {
	Receiver       string        `yaml:"receiver"`
	SelfType       string        `yaml:"self_type"`
	Name           string        `yaml:"name"`
	Positional     []string      `yaml:"positional"`
	Keywords       keywordPairs  `yaml:"keywords"`
	KeywordRest    string        `yaml:"keyword_rest"`
	Block          *blockArgSpec `yaml:"block"`
	SuppressErrors bool          `yaml:"suppress_errors"`
}

// keywordPair is one `name: type` entry in call.keywords.
type keywordPair struct {
	Name string
	Type string
}

// keywordPairs preserves YAML mapping order, the way targetMap does in the
// manifest loader — call argument order is observable in diagnostics, so a
// plain Go map (unordered) would make fixtures nondeterministic.
type keywordPairs []keywordPair

func (kp *keywordPairs) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 {
		*kp = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("fixture: expected mapping for call.keywords but found %s", value.ShortTag())
	}
	var out keywordPairs
	for i := 0; i+1 < len(value.Content); i += 2 {
		out = append(out, keywordPair{Name: value.Content[i].Value, Type: value.Content[i+1].Value})
	}
	*kp = out
	return nil
}

type optionsSpec struct {
	AllowUntypedHashAsKwargs bool `yaml:"allow_untyped_hash_as_kwargs"`
	StrictKeywordArgs        bool `yaml:"strict_keyword_args"`
	AllowRequiredAncestors   bool `yaml:"allow_required_ancestors"`
	SuggestUnsafeWrap        bool `yaml:"suggest_unsafe_wrap"`
}

// fixtureFile is the root YAML document shape.
type fixtureFile struct {
	Classes map[string]classSpec `yaml:"classes"`
	Call    callSpec             `yaml:"call"`
	Options optionsSpec          `yaml:"options"`
}

// Fixture is a loaded, validated scenario ready to drive dispatch.Dispatch.
type Fixture struct {
	Path string
	raw  fixtureFile
}

// Load reads and validates path, a *.dispatch.yaml file.
func Load(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: open %s: %w", path, err)
	}
	defer file.Close()
	return loadFrom(path, file)
}

func loadFrom(path string, r io.Reader) (*Fixture, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw fixtureFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("fixture: %s is empty", path)
		}
		return nil, fmt.Errorf("fixture: parse %s: %w", path, err)
	}

	f := &Fixture{Path: path, raw: raw}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Fixture) validate() error {
	var errs ValidationError
	if f.raw.Call.Receiver == "" {
		errs.Issues = append(errs.Issues, "call.receiver must be provided")
	}
	if f.raw.Call.Name == "" {
		errs.Issues = append(errs.Issues, "call.name must be provided")
	}
	for id, c := range f.raw.Classes {
		for name, m := range c.Methods {
			for i, a := range m.Args {
				if a.Name == "" {
					errs.Issues = append(errs.Issues, fmt.Sprintf("class %s method %s arg %d missing name", id, name, i))
				}
			}
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// Build converts the validated fixture into a symbol table, the dispatch
// policy knobs, and the call arguments, ready to pass to dispatch.Dispatch.
func (f *Fixture) Build() (*symbols.Table, dispatch.Options, dispatch.DispatchArgs, error) {
	table := symbols.NewTable()
	for id, c := range f.raw.Classes {
		bounds, err := parseTypeMemberBounds(c.TypeMemberBounds)
		if err != nil {
			return nil, dispatch.Options{}, dispatch.DispatchArgs{}, fmt.Errorf("fixture: class %s: %w", id, err)
		}
		table.DefineClass(symbols.ClassInfo{
			ID:                  id,
			TypeArity:           c.TypeArity,
			AttachedClassID:     c.AttachedClassID,
			DerivesFromIDs:      c.DerivesFrom,
			RequiredAncestorIDs: c.RequiredAncestors,
			IsModule:            c.Module,
			IsSingleton:         c.Singleton,
			TypeMemberBounds:    bounds,
		})
	}
	for id, c := range f.raw.Classes {
		for name, spec := range c.Methods {
			method, err := buildMethod(name, spec)
			if err != nil {
				return nil, dispatch.Options{}, dispatch.DispatchArgs{}, fmt.Errorf("fixture: %s.%s: %w", id, name, err)
			}
			table.DefineMember(id, method)
		}
	}

	opts := dispatch.Options{
		AllowUntypedHashAsKwargs: f.raw.Options.AllowUntypedHashAsKwargs,
		StrictKeywordArgs:        f.raw.Options.StrictKeywordArgs,
		AllowRequiredAncestors:   f.raw.Options.AllowRequiredAncestors,
		SuggestUnsafeWrap:        f.raw.Options.SuggestUnsafeWrap,
	}

	args, err := f.buildCallArgs()
	if err != nil {
		return nil, dispatch.Options{}, dispatch.DispatchArgs{}, err
	}
	return table, opts, args, nil
}

// parseTypeMemberBounds parses a class's positional type-member bound list;
// an empty string leaves that slot unbounded (nil entry).
func parseTypeMemberBounds(specs []string) ([]types.Type, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	bounds := make([]types.Type, len(specs))
	for i, s := range specs {
		if s == "" {
			continue
		}
		t, err := parseType(s)
		if err != nil {
			return nil, err
		}
		bounds[i] = t
	}
	return bounds, nil
}

func buildMethod(name string, spec methodSpec) (symbols.Method, error) {
	var args []symbols.Argument
	for _, a := range spec.Args {
		t, err := parseType(a.Type)
		if err != nil {
			return symbols.Method{}, err
		}
		args = append(args, symbols.Argument{
			Name:          a.Name,
			RenderedName:  a.Name,
			Type:          t,
			IsKeyword:     a.Keyword,
			IsKeywordRest: a.KwRest,
			IsDefault:     a.Default,
			IsRepeated:    a.Repeated,
		})
	}

	block := symbols.Argument{Name: "blk", IsBlock: true, IsSynthetic: true, Type: types.Untyped{}}
	if spec.Block != nil {
		block.IsSynthetic = spec.Block.Synthetic
		if spec.Block.Type != "" {
			t, err := parseType(spec.Block.Type)
			if err != nil {
				return symbols.Method{}, err
			}
			block.Type = t
		}
	}
	args = append(args, block)

	result := types.Type(types.Untyped{})
	if spec.Result != "" {
		t, err := parseType(spec.Result)
		if err != nil {
			return symbols.Method{}, err
		}
		result = t
	}

	strictness := symbols.StrictnessTrue
	switch spec.Strictness {
	case "ignore":
		strictness = symbols.StrictnessIgnore
	case "false":
		strictness = symbols.StrictnessFalse
	case "strict":
		strictness = symbols.StrictnessStrict
	}

	return symbols.Method{
		Name:            name,
		Arguments:       args,
		Result:          result,
		IsOverloaded:    spec.Overloaded,
		IsGenericMethod: spec.Generic,
		TypeArguments:   spec.TypeArguments,
		HasSig:          true,
		Intrinsic:       spec.Intrinsic,
		Strictness:      strictness,
	}, nil
}

func (f *Fixture) buildCallArgs() (dispatch.DispatchArgs, error) {
	c := f.raw.Call
	receiver, err := parseType(c.Receiver)
	if err != nil {
		return dispatch.DispatchArgs{}, err
	}

	selfType := receiver
	if c.SelfType != "" {
		selfType, err = parseType(c.SelfType)
		if err != nil {
			return dispatch.DispatchArgs{}, err
		}
	}

	var actuals []dispatch.ActualArg
	for _, posType := range c.Positional {
		t, err := parseType(posType)
		if err != nil {
			return dispatch.DispatchArgs{}, err
		}
		actuals = append(actuals, dispatch.ActualArg{Type: t})
	}
	numPos := len(actuals)

	for _, kw := range c.Keywords {
		kt, err := parseType(":" + kw.Name)
		if err != nil {
			return dispatch.DispatchArgs{}, err
		}
		vt, err := parseType(kw.Type)
		if err != nil {
			return dispatch.DispatchArgs{}, err
		}
		actuals = append(actuals, dispatch.ActualArg{Type: kt}, dispatch.ActualArg{Type: vt})
	}
	if c.KeywordRest != "" {
		t, err := parseType(c.KeywordRest)
		if err != nil {
			return dispatch.DispatchArgs{}, err
		}
		actuals = append(actuals, dispatch.ActualArg{Type: t})
	}

	var block *dispatch.BlockArg
	if c.Block != nil {
		t, err := parseType(c.Block.Type)
		if err != nil {
			return dispatch.DispatchArgs{}, err
		}
		block = &dispatch.BlockArg{Type: t, ArityKnown: c.Block.ArityKnown}
	}

	return dispatch.DispatchArgs{
		Name:           c.Name,
		NumPosArgs:     numPos,
		Args:           actuals,
		ThisType:       receiver,
		SelfType:       selfType,
		FullType:       receiver,
		Block:          block,
		SuppressErrors: c.SuppressErrors,
	}, nil
}
