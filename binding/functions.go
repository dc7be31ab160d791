package binding

import (
	"strings"

	"github.com/gomlx/cryptbind/header"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// analyseFunction classifies the parameters of a prototype and transforms its signature.
func (ctx *Context) analyseFunction(proto *header.Prototype) (*Function, error) {
	name, ok := ctx.Dialect.StripFunctionPrefix(proto.Name)
	if !ok {
		return nil, errors.Errorf("line %d: function %s doesn't start with %s", proto.Line, proto.Name, ctx.Dialect.FunctionPrefix)
	}
	if ctx.Function(name) != nil {
		return nil, errors.Errorf("line %d: function %s declared twice", proto.Line, proto.Name)
	}
	f := &Function{Span: proto.Span, Name: name, CName: proto.Name, Text: proto.Text}

	isVoid := len(proto.Params) == 1 && len(proto.Params[0]) == 1 && proto.Params[0][0].Is(header.Ident, "void")
	if !isVoid {
		for ii, tokens := range proto.Params {
			p, err := ctx.parseParam(tokens, ii)
			if err != nil {
				return nil, errors.WithMessagef(err, "function %s", proto.Name)
			}
			f.Raw = append(f.Raw, p)
		}
	}
	if err := ctx.transform(f); err != nil {
		return nil, errors.WithMessagef(err, "line %d: function %s", proto.Line, proto.Name)
	}
	klog.V(2).Infof("function %s: %d raw params, %d params, offsets=%v, lengths=%v",
		f.Name, len(f.Raw), len(f.Params), f.OffsetIndices, f.LengthIndices)
	ctx.Functions = append(ctx.Functions, f)
	return f, nil
}

// parseParam parses one declared parameter:
//
//	[DIRECTION] TYPE NAME
//	[DIRECTION] STRING_MARKER NAME
//	[DIRECTION] TYPE POINTER_MARKER NAME   (POINTER_MARKER may also be "*")
func (ctx *Context) parseParam(tokens []header.Token, index int) (*Param, error) {
	d := ctx.Dialect
	p := &Param{RawIndex: index}
	words := tokens
	if len(words) > 0 && words[0].Kind == header.Ident && d.IsDirection(words[0].Text) {
		p.Direction = words[0].Text
		p.IsOutput = d.IsOutput(p.Direction)
		words = words[1:]
	}
	malformed := func() error {
		texts := make([]string, len(tokens))
		for ii, tok := range tokens {
			texts[ii] = tok.Text
		}
		line := 0
		if len(tokens) > 0 {
			line = tokens[0].Line
		}
		return errors.Errorf("line %d: unrecognized parameter %q", line, strings.Join(texts, " "))
	}
	for _, w := range words {
		if w.Kind != header.Ident && !w.IsPunct("*") {
			return nil, malformed()
		}
	}

	switch len(words) {
	case 2:
		if d.StringMarker != "" && words[0].Text == d.StringMarker {
			p.Type = "char"
			p.IsPointer = true
		} else {
			p.Type = words[0].Text
		}
		p.Name = words[1].Text
	case 3:
		if words[1].Text != d.PointerMarker && !words[1].IsPunct("*") {
			return nil, malformed()
		}
		p.Type = words[0].Text
		p.IsPointer = true
		p.Name = words[2].Text
	default:
		return nil, malformed()
	}
	if p.Type == "*" || p.Name == "*" {
		return nil, malformed()
	}

	p.Category = ctx.CategoryOf(p.Type)
	if p.Category == CategoryUnknown {
		return nil, errors.Errorf("line %d: unknown type %s of parameter %s", tokens[0].Line, p.Type, p.Name)
	}
	return p, nil
}

// transform derives the generated signature of f from its raw parameters:
//
//  1. A void pointer following a key ID type parameter is a string.
//  2. The last output int (or struct) pointer becomes the return value. If there are two, the
//     first is discarded; three are an error.
//  3. Every buffer is followed by a synthesized "<name>Offset" parameter. If the buffer is an input
//     followed by an int, that int is a length the wrappers can elide, except for the dual duty
//     functions that encrypt in place and need the length explicitly.
func (ctx *Context) transform(f *Function) error {
	d := ctx.Dialect
	for ii := 1; ii < len(f.Raw); ii++ {
		p := f.Raw[ii]
		if p.IsBuffer() && d.KeyIDType != "" && f.Raw[ii-1].Type == d.KeyIDType {
			p.Type = "char"
		}
	}

	for _, p := range f.Raw {
		if !p.IsOutput || !p.IsPointer {
			continue
		}
		if p.Category != CategoryInt && p.Category != CategoryStruct && p.Type != "int" {
			continue
		}
		if f.Returned != nil {
			if f.Discarded != nil {
				return errors.Errorf("found two returned ints to discard (%s and %s, before %s)",
					f.Discarded.Name, f.Returned.Name, p.Name)
			}
			f.Discarded = f.Returned
		}
		f.Returned = p
	}
	if f.Returned != nil && f.Returned.Category == CategoryStruct {
		f.ReturnStruct = ctx.Struct(f.Returned.Type)
	}

	for _, p := range f.Raw {
		if !f.IsReturnedOrDiscarded(p) {
			f.Params = append(f.Params, p)
		}
	}
	for ii := 0; ii < len(f.Params); ii++ {
		p := f.Params[ii]
		if !p.IsBuffer() {
			continue
		}
		offset := &Param{
			Name:     p.Name + "Offset",
			Type:     "int",
			Category: CategoryRaw,
			RawIndex: -1,
		}
		f.Params = append(f.Params[:ii+1], append([]*Param{offset}, f.Params[ii+1:]...)...)
		f.OffsetIndices = append(f.OffsetIndices, ii+1)
		if !p.IsOutput && !d.IsDualDuty(f.Name) && ii+2 < len(f.Params) && f.Params[ii+2].Type == "int" {
			f.LengthIndices = append(f.LengthIndices, ii+2)
		}
	}
	return nil
}
