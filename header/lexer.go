package header

import (
	"strings"

	"github.com/pkg/errors"
)

// Lexer splits a C header into tokens.
//
// Unlike a C compiler's lexer it keeps comments (they are carried over to the generated code) and
// returns preprocessor directives as single tokens, so the parser can decide what to do with them.
type Lexer struct {
	src string
	pos int

	// line and col are the position of src[pos].
	line, col int

	// atLineStart is true while only blanks were seen since the last newline.
	atLineStart bool
}

// NewLexer creates a Lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1, atLineStart: true}
}

var twoCharPuncts = []string{"<<", ">>", "->", "&&", "||", "==", "!=", "<=", ">=", "##", "++", "--"}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *Lexer) advance(n int) {
	for ; n > 0 && l.pos < len(l.src); n-- {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

// continuation returns the length of a "\<newline>" sequence at the current position, or 0.
func (l *Lexer) continuation() int {
	if l.peekAt(0) != '\\' {
		return 0
	}
	switch {
	case l.peekAt(1) == '\n':
		return 2
	case l.peekAt(1) == '\r' && l.peekAt(2) == '\n':
		return 3
	}
	return 0
}

func (l *Lexer) skipBlanks() {
	for l.pos < len(l.src) {
		switch c := l.src[l.pos]; c {
		case ' ', '\t', '\r', '\f', '\v':
			l.advance(1)
		case '\n':
			l.advance(1)
			l.atLineStart = true
		case '\\':
			n := l.continuation()
			if n == 0 {
				return
			}
			l.advance(n)
		default:
			return
		}
	}
}

// Next returns the next token. At the end of the input it returns an EOF token, and on
// unrecognized input an Illegal token.
func (l *Lexer) Next() Token {
	l.skipBlanks()
	tok := Token{Line: l.line, Col: l.col, Offset: l.pos}
	if l.pos >= len(l.src) {
		tok.Kind = EOF
		tok.End, tok.EndLine = l.pos, l.line
		return tok
	}
	lineStart := l.atLineStart
	l.atLineStart = false

	c := l.src[l.pos]
	switch {
	case c == '#' && lineStart:
		tok.Kind = l.scanDirective()
	case c == '/' && l.peekAt(1) == '*':
		tok.Kind = l.scanBlockComment()
	case c == '/' && l.peekAt(1) == '/':
		for l.pos < len(l.src) && l.src[l.pos] != '\n' {
			l.advance(1)
		}
		tok.Kind = Comment
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.advance(1)
		}
		tok.Kind = Ident
	case isDigit(c):
		for l.pos < len(l.src) && (isIdentChar(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.advance(1)
		}
		tok.Kind = Number
	case c == '"' || c == '\'':
		tok.Kind = l.scanQuoted(c)
	default:
		tok.Kind = l.scanPunct()
	}
	tok.End, tok.EndLine = l.pos, l.line
	if tok.Kind == Directive {
		tok.Text = strings.TrimRight(l.src[tok.Offset:tok.End], " \t\r\n")
	} else {
		tok.Text = l.src[tok.Offset:tok.End]
	}
	if l.pos > tok.Offset && l.src[l.pos-1] == '\n' {
		// Only a directive consumes its terminating newline.
		tok.EndLine--
		l.atLineStart = true
	}
	return tok
}

func (l *Lexer) scanDirective() TokenKind {
	for l.pos < len(l.src) {
		switch {
		case l.src[l.pos] == '\n':
			l.advance(1)
			return Directive
		case l.continuation() > 0:
			l.advance(l.continuation())
		case l.src[l.pos] == '/' && l.peekAt(1) == '*':
			if l.scanBlockComment() == Illegal {
				return Illegal
			}
		default:
			l.advance(1)
		}
	}
	return Directive
}

func (l *Lexer) scanBlockComment() TokenKind {
	end := strings.Index(l.src[l.pos+2:], "*/")
	if end < 0 {
		l.advance(len(l.src) - l.pos)
		return Illegal
	}
	l.advance(end + 4)
	return Comment
}

func (l *Lexer) scanQuoted(quote byte) TokenKind {
	l.advance(1)
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.advance(2)
		case '\n':
			return Illegal
		case quote:
			l.advance(1)
			if quote == '"' {
				return String
			}
			return Char
		default:
			l.advance(1)
		}
	}
	return Illegal
}

func (l *Lexer) scanPunct() TokenKind {
	if l.pos+1 < len(l.src) {
		pair := l.src[l.pos : l.pos+2]
		for _, p := range twoCharPuncts {
			if pair == p {
				l.advance(2)
				return Punct
			}
		}
	}
	c := l.src[l.pos]
	l.advance(1)
	if strings.IndexByte("{}()[];,=+-*/%&|^~!<>?:.#", c) >= 0 {
		return Punct
	}
	return Illegal
}

// Tokenize returns all tokens of src, excluding the final EOF.
func Tokenize(src string) ([]Token, error) {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok := l.Next()
		switch tok.Kind {
		case EOF:
			return tokens, nil
		case Illegal:
			return nil, errors.Errorf("line %d, column %d: unexpected input %q", tok.Line, tok.Col, tok.Text)
		}
		tokens = append(tokens, tok)
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
