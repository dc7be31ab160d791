package header

import (
	"fmt"
	"strings"
)

// TokenKind classifies a Token.
type TokenKind int

const (
	EOF TokenKind = iota
	Illegal
	Ident
	Number
	String
	Char
	Punct
	Comment
	Directive
)

var tokenKindNames = [...]string{
	EOF:       "EOF",
	Illegal:   "Illegal",
	Ident:     "Ident",
	Number:    "Number",
	String:    "String",
	Char:      "Char",
	Punct:     "Punct",
	Comment:   "Comment",
	Directive: "Directive",
}

func (k TokenKind) String() string {
	if k < 0 || int(k) >= len(tokenKindNames) {
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
	return tokenKindNames[k]
}

// Token is a lexical unit of the header.
//
// Text holds the token as it appears in the source: for a Comment it includes the "/*" and "*/"
// delimiters, and for a Directive the whole logical line starting at '#' (continuations included).
type Token struct {
	Kind TokenKind
	Text string

	// Line and Col are 1-based positions of the first character.
	Line, Col int

	// Offset and End are the byte range of the token in the source.
	Offset, End int

	// EndLine is the line of the last character, which differs from Line for multi-line
	// comments and continued directives.
	EndLine int
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// IsPunct reports whether the token is the punctuator p.
func (t Token) IsPunct(p string) bool {
	return t.Is(Punct, p)
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q (line %d)", t.Kind, t.Text, t.Line)
}

// CommentBody returns the text of a comment without delimiters and surrounding whitespace.
func (t Token) CommentBody() string {
	text := t.Text
	switch {
	case len(text) >= 4 && text[:2] == "/*" && text[len(text)-2:] == "*/":
		text = text[2 : len(text)-2]
	case len(text) >= 2 && text[:2] == "//":
		text = text[2:]
	}
	return strings.TrimSpace(text)
}
