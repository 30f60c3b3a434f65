package fixture

import (
	"fmt"
	"strconv"
	"strings"

	"dispatchcore/types"
)

// parseType reads the small type-expression grammar fixture YAML files use
// to spell types.Type values as plain strings, since a YAML scalar cannot
// otherwise name a sealed Go interface variant. The grammar is deliberately
// thin — just enough to exercise every lattice variant dispatch cares about:
//
//	nil | untyped | bottom | top
//	Identifier
//	Identifier[Type, Type, ...]        (AppliedType)
//	Class[Type]                        (MetaType)
//	(Type, Type, ...)                  (TupleType)
//	{key: Type, key: Type, ...}        (ShapeType, keys are bare words, read as symbols)
//	:symbol | "string" | 123 | true | false   (LiteralType)
//	Type | Type                        (union, lowest precedence)
//	Type & Type                        (intersection)
func parseType(src string) (types.Type, error) {
	p := &typeParser{toks: tokenizeType(src), src: src}
	t, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("fixture: unexpected trailing input %q in type %q", p.rest(), src)
	}
	return t, nil
}

type typeToken struct {
	kind string // "ident", "int", "string", "symbol", "punct"
	text string
}

func tokenizeType(src string) []typeToken {
	var toks []typeToken
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n':
			i++
		case strings.ContainsRune("[](){}|&,:", r):
			toks = append(toks, typeToken{kind: "punct", text: string(r)})
			i++
		case r == '"':
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				j++
			}
			toks = append(toks, typeToken{kind: "string", text: string(runes[i+1 : j])})
			i = j + 1
		case r >= '0' && r <= '9':
			j := i
			for j < len(runes) && (runes[j] >= '0' && runes[j] <= '9' || runes[j] == '.') {
				j++
			}
			toks = append(toks, typeToken{kind: "int", text: string(runes[i:j])})
			i = j
		default:
			j := i
			for j < len(runes) && !strings.ContainsRune("[](){}|&,: \t\n\"", runes[j]) {
				j++
			}
			toks = append(toks, typeToken{kind: "ident", text: string(runes[i:j])})
			i = j
		}
	}
	return toks
}

type typeParser struct {
	toks []typeToken
	pos  int
	src  string
}

func (p *typeParser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *typeParser) rest() string {
	var parts []string
	for _, t := range p.toks[p.pos:] {
		parts = append(parts, t.text)
	}
	return strings.Join(parts, "")
}

func (p *typeParser) peek() (typeToken, bool) {
	if p.atEnd() {
		return typeToken{}, false
	}
	return p.toks[p.pos], true
}

func (p *typeParser) next() (typeToken, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *typeParser) expectPunct(text string) error {
	t, ok := p.next()
	if !ok || t.kind != "punct" || t.text != text {
		return fmt.Errorf("fixture: expected %q in type %q", text, p.src)
	}
	return nil
}

func (p *typeParser) parseUnion() (types.Type, error) {
	left, err := p.parseIntersection()
	if err != nil {
		return nil, err
	}
	members := []types.Type{left}
	for {
		t, ok := p.peek()
		if !ok || t.kind != "punct" || t.text != "|" {
			break
		}
		p.next()
		right, err := p.parseIntersection()
		if err != nil {
			return nil, err
		}
		members = append(members, right)
	}
	return types.NewOr(members...), nil
}

func (p *typeParser) parseIntersection() (types.Type, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	members := []types.Type{left}
	for {
		t, ok := p.peek()
		if !ok || t.kind != "punct" || t.text != "&" {
			break
		}
		p.next()
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		members = append(members, right)
	}
	return types.NewAnd(members...), nil
}

func (p *typeParser) parseAtom() (types.Type, error) {
	t, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("fixture: unexpected end of type %q", p.src)
	}
	switch {
	case t.kind == "int":
		v, err := strconv.Atoi(t.text)
		if err != nil {
			f, ferr := strconv.ParseFloat(t.text, 64)
			if ferr != nil {
				return nil, fmt.Errorf("fixture: bad numeric literal %q in type %q", t.text, p.src)
			}
			return types.LiteralType{Kind: types.LiteralFloat, Value: f, Underlying: types.ClassType{ClassID: "Float"}}, nil
		}
		return types.LiteralType{Kind: types.LiteralInt, Value: v, Underlying: types.ClassType{ClassID: "Integer"}}, nil
	case t.kind == "string":
		return types.LiteralType{Kind: types.LiteralString, Value: t.text, Underlying: types.ClassType{ClassID: "String"}}, nil
	case t.kind == "punct" && t.text == ":":
		name, ok := p.next()
		if !ok || name.kind != "ident" {
			return nil, fmt.Errorf("fixture: expected symbol name after `:` in type %q", p.src)
		}
		return types.LiteralType{Kind: types.LiteralSymbol, Value: name.text, Underlying: types.ClassType{ClassID: "Symbol"}}, nil
	case t.kind == "punct" && t.text == "(":
		var elems []types.Type
		for {
			if nt, ok := p.peek(); ok && nt.kind == "punct" && nt.text == ")" {
				break
			}
			elem, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
			if nt, ok := p.peek(); ok && nt.kind == "punct" && nt.text == "," {
				p.next()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return types.TupleType{Elems: elems}, nil
	case t.kind == "punct" && t.text == "{":
		var keys []types.LiteralType
		var values []types.Type
		for {
			if nt, ok := p.peek(); ok && nt.kind == "punct" && nt.text == "}" {
				break
			}
			keyTok, ok := p.next()
			if !ok || keyTok.kind != "ident" {
				return nil, fmt.Errorf("fixture: expected shape key in type %q", p.src)
			}
			if err := p.expectPunct(":"); err != nil {
				return nil, err
			}
			valType, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			keys = append(keys, types.LiteralType{Kind: types.LiteralSymbol, Value: keyTok.text, Underlying: types.ClassType{ClassID: "Symbol"}})
			values = append(values, valType)
			if nt, ok := p.peek(); ok && nt.kind == "punct" && nt.text == "," {
				p.next()
				continue
			}
			break
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		return types.ShapeType{Keys: keys, Values: values}, nil
	case t.kind == "ident":
		return p.parseIdentTail(t.text)
	default:
		return nil, fmt.Errorf("fixture: unexpected token %q in type %q", t.text, p.src)
	}
}

func (p *typeParser) parseIdentTail(name string) (types.Type, error) {
	switch name {
	case "nil", "Nil":
		return types.Nil{}, nil
	case "untyped", "Untyped":
		return types.Untyped{}, nil
	case "bottom", "Bottom":
		return types.Bottom{}, nil
	case "top", "Top":
		return types.Top{}, nil
	case "true", "false":
		return types.LiteralType{Kind: types.LiteralBool, Value: name == "true", Underlying: types.ClassType{ClassID: "Boolean"}}, nil
	}

	t, ok := p.peek()
	if !ok || t.kind != "punct" || t.text != "[" {
		return types.ClassType{ClassID: name}, nil
	}
	p.next()
	var args []types.Type
	for {
		if nt, ok := p.peek(); ok && nt.kind == "punct" && nt.text == "]" {
			break
		}
		arg, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if nt, ok := p.peek(); ok && nt.kind == "punct" && nt.text == "," {
			p.next()
			continue
		}
		break
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	if name == "Class" && len(args) == 1 {
		return types.MetaType{Wrapped: args[0]}, nil
	}
	return types.AppliedType{ClassID: name, Args: args}, nil
}
