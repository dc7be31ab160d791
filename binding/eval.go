package binding

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/cryptbind/header"
	"github.com/pkg/errors"
)

// Evaluate computes the value of a C integer constant expression. Identifiers are looked up in the
// symbol table after the constant prefix is stripped.
//
// Supported operators, by increasing precedence: "|", "^", "&", "<< >>", "+ -", "* / %" and the
// unary "- + ~". Parentheses group.
func (ctx *Context) Evaluate(tokens []header.Token) (int64, error) {
	if len(tokens) == 0 {
		return 0, errors.New("empty expression")
	}
	e := &evaluator{ctx: ctx, tokens: tokens}
	value, err := e.binary(0)
	if err != nil {
		return 0, err
	}
	if e.pos < len(tokens) {
		tok := tokens[e.pos]
		return 0, errors.Errorf("line %d: unexpected %q in expression", tok.Line, tok.Text)
	}
	return value, nil
}

type evaluator struct {
	ctx    *Context
	tokens []header.Token
	pos    int
}

// binaryLevels lists the binary operators by increasing precedence.
var binaryLevels = [][]string{
	{"|"},
	{"^"},
	{"&"},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (e *evaluator) peek() (header.Token, bool) {
	if e.pos >= len(e.tokens) {
		return header.Token{}, false
	}
	return e.tokens[e.pos], true
}

// binary parses a left-associative chain of operators of the given precedence level.
func (e *evaluator) binary(level int) (int64, error) {
	if level == len(binaryLevels) {
		return e.unary()
	}
	lhs, err := e.binary(level + 1)
	if err != nil {
		return 0, err
	}
	for {
		tok, ok := e.peek()
		if !ok || tok.Kind != header.Punct || !slices.Contains(binaryLevels[level], tok.Text) {
			return lhs, nil
		}
		e.pos++
		rhs, err := e.binary(level + 1)
		if err != nil {
			return 0, err
		}
		switch tok.Text {
		case "|":
			lhs |= rhs
		case "^":
			lhs ^= rhs
		case "&":
			lhs &= rhs
		case "<<":
			lhs <<= uint64(rhs)
		case ">>":
			lhs >>= uint64(rhs)
		case "+":
			lhs += rhs
		case "-":
			lhs -= rhs
		case "*":
			lhs *= rhs
		case "/", "%":
			if rhs == 0 {
				return 0, errors.Errorf("line %d: division by zero", tok.Line)
			}
			if tok.Text == "/" {
				lhs /= rhs
			} else {
				lhs %= rhs
			}
		}
	}
}

func (e *evaluator) unary() (int64, error) {
	tok, ok := e.peek()
	if !ok {
		return 0, errors.New("unexpected end of expression")
	}
	if tok.Kind == header.Punct {
		switch tok.Text {
		case "-", "+", "~":
			e.pos++
			value, err := e.unary()
			if err != nil {
				return 0, err
			}
			switch tok.Text {
			case "-":
				return -value, nil
			case "~":
				return ^value, nil
			}
			return value, nil
		case "(":
			e.pos++
			value, err := e.binary(0)
			if err != nil {
				return 0, err
			}
			closing, ok := e.peek()
			if !ok || !closing.IsPunct(")") {
				return 0, errors.Errorf("line %d: missing \")\" in expression", tok.Line)
			}
			e.pos++
			return value, nil
		}
	}
	e.pos++
	switch tok.Kind {
	case header.Number:
		return parseNumber(tok)
	case header.Ident:
		name, _ := e.ctx.Dialect.StripConstantPrefix(tok.Text)
		value, found := e.ctx.Symbols.Lookup(name)
		if !found {
			return 0, errors.Errorf("line %d: unknown constant %q in expression", tok.Line, tok.Text)
		}
		return value, nil
	}
	return 0, errors.Errorf("line %d: unexpected %q in expression", tok.Line, tok.Text)
}

// parseNumber parses a C integer literal: decimal, hex or octal, with optional "u"/"l" suffixes.
// Go-only forms ("0b", "0o" prefixes and "_" separators) are rejected.
func parseNumber(tok header.Token) (int64, error) {
	text := strings.TrimRight(tok.Text, "uUlL")
	if strings.Contains(text, "_") || len(text) > 1 && text[0] == '0' && strings.ContainsRune("bBoO", rune(text[1])) {
		return 0, errors.Errorf("line %d: invalid number %q", tok.Line, tok.Text)
	}
	value, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "line %d: invalid number %q", tok.Line, tok.Text)
	}
	return value, nil
}
