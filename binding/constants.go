package binding

import (
	"strconv"
	"strings"

	"github.com/gomlx/cryptbind/header"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// constantName strips the constant prefix from name, failing if it's missing.
func (ctx *Context) constantName(name string, line int) (string, error) {
	stripped, ok := ctx.Dialect.StripConstantPrefix(name)
	if !ok {
		return "", errors.Errorf("line %d: constant %s doesn't start with %s", line, name, ctx.Dialect.ConstantPrefix)
	}
	return stripped, nil
}

// analyseEnum evaluates the entries of an enum block. An entry without explicit value takes the
// value of the previous entry plus one, starting at 0.
func (ctx *Context) analyseEnum(block *header.EnumBlock) (*Enum, error) {
	if len(block.Entries) == 0 {
		return nil, errors.Errorf("line %d: empty enum", block.Line)
	}
	enum := &Enum{Span: block.Span, TypeName: block.TypeName}
	if block.TypeName != "" {
		if err := ctx.registerType(block.TypeName, CategoryEnum, block.Line); err != nil {
			return nil, err
		}
		ctx.EnumTypes = append(ctx.EnumTypes, block.TypeName)
	}
	var next int64
	for _, entry := range block.Entries {
		name, err := ctx.constantName(entry.Name, entry.Line)
		if err != nil {
			return nil, err
		}
		value := next
		if entry.Value != nil {
			value, err = ctx.Evaluate(entry.Value)
			if err != nil {
				return nil, errors.WithMessagef(err, "value of %s", entry.Name)
			}
		}
		if err := ctx.Symbols.Define(name, value, entry.Line); err != nil {
			return nil, err
		}
		next = value + 1
		enum.Constants = append(enum.Constants, &Constant{
			Name:    name,
			CName:   entry.Name,
			Value:   value,
			Text:    strconv.FormatInt(value, 10),
			Comment: entry.Comment,
		})
	}
	klog.V(2).Infof("enum %q: %d values", block.TypeName, len(enum.Constants))
	ctx.Enums = append(ctx.Enums, enum)
	return enum, nil
}

// isParenthesized reports whether the body of a define is enclosed in parentheses.
func isParenthesized(body []header.Token) bool {
	return len(body) >= 2 && body[0].IsPunct("(") && body[len(body)-1].IsPunct(")")
}

// analyseDefine evaluates a scalar or parenthesized define.
//
// Literal values keep their source spelling ("0x001", "( -100 )" becomes "-100"), other
// expressions are emitted as their evaluated value.
func (ctx *Context) analyseDefine(def *header.Define) (*Define, error) {
	name, err := ctx.constantName(def.Name, def.Line)
	if err != nil {
		return nil, err
	}
	if len(def.Body) == 0 {
		return nil, errors.Errorf("line %d: #define %s has no value", def.Line, def.Name)
	}
	value, err := ctx.Evaluate(def.Body)
	if err != nil {
		return nil, errors.WithMessagef(err, "value of %s", def.Name)
	}
	if err := ctx.Symbols.Define(name, value, def.Line); err != nil {
		return nil, err
	}

	parenthesized := isParenthesized(def.Body)
	literal := def.Body
	if parenthesized {
		literal = literal[1 : len(literal)-1]
	}
	text := strconv.FormatInt(value, 10)
	switch {
	case len(literal) == 1 && literal[0].Kind == header.Number:
		text = strings.TrimRight(literal[0].Text, "uUlL")
	case len(literal) == 2 && literal[0].IsPunct("-") && literal[1].Kind == header.Number:
		text = "-" + strings.TrimRight(literal[1].Text, "uUlL")
	}

	define := &Define{
		Span: def.Span,
		Constant: &Constant{
			Name:    name,
			CName:   def.Name,
			Value:   value,
			Text:    text,
			Comment: def.Comment,
		},
		Parenthesized: parenthesized,
	}
	ctx.Defines = append(ctx.Defines, define)
	if ctx.Dialect.IsErrorName(name) {
		ctx.Errors = append(ctx.Errors, ErrorMapping{Name: name, Value: value, Comment: def.Comment})
	}
	return define, nil
}

func (ctx *Context) analyseTypedefInt(def *header.Typedef) (*Commented, error) {
	if err := ctx.registerType(def.Name, CategoryInt, def.Line); err != nil {
		return nil, err
	}
	ctx.IntTypes = append(ctx.IntTypes, def.Name)
	return &Commented{Span: def.Span, Kind: NotNeeded, Name: def.Name, Text: def.Text}, nil
}

func (ctx *Context) analyseTypedefStruct(def *header.Typedef) (*Commented, error) {
	if err := ctx.registerType(def.Name, CategoryStruct, def.Line); err != nil {
		return nil, err
	}
	s := &Struct{Name: def.Name, decl: def}
	ctx.Structs = append(ctx.Structs, s)
	ctx.structsByName[def.Name] = s
	return &Commented{Span: def.Span, Kind: NotSupported, Name: def.Name, Text: def.Text}, nil
}
