package header

import (
	"strings"

	"github.com/gomlx/cryptbind"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Parse tokenizes src and parses it into a Document, following the conventions of dialect:
//
//   - The "#ifndef <IncludeGuard>" block is transparent, all other conditional blocks are removed.
//   - Items before "#define <StartMarker>" are dropped.
//   - Annotations, and their parenthesized arguments, are dropped.
//
// Any construct that is not a comment, an enum, a #define, a supported typedef or a prototype
// starting with the dialect's ReturnMarker is an error.
func Parse(src string, dialect *cryptbind.Dialect) (*Document, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	tokens, err = preprocess(tokens, dialect)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, dialect: dialect, tokens: tokens}
	doc := &Document{}
	for !p.atEnd() {
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		doc.Items = append(doc.Items, item)
	}
	klog.V(1).Infof("parsed %d top-level items", len(doc.Items))
	return doc, nil
}

// ignoredDirectives are dropped without affecting the output.
var ignoredDirectives = map[string]bool{
	"include": true,
	"pragma":  true,
	"undef":   true,
	"error":   true,
	"line":    true,
}

type condition struct {
	// guard marks the include guard block, whose contents are kept.
	guard bool
	skip  bool
}

// preprocess resolves conditional blocks, the include guard, the start marker and the annotations,
// returning the tokens left to parse.
func preprocess(tokens []Token, dialect *cryptbind.Dialect) ([]Token, error) {
	var (
		out                   []Token
		stack                 []condition
		guardSeen, markerSeen bool
	)
	skipping := func() bool { return len(stack) > 0 && stack[len(stack)-1].skip }

	for ii := 0; ii < len(tokens); ii++ {
		tok := tokens[ii]
		if tok.Kind != Directive {
			if skipping() {
				continue
			}
			if tok.Kind == Ident && dialect.IsAnnotation(tok.Text) {
				ii = skipAnnotationArgs(tokens, ii)
				continue
			}
			out = append(out, tok)
			continue
		}

		words, err := directiveTokens(tok)
		if err != nil {
			return nil, err
		}
		if len(words) == 0 {
			// Null directive, a lone "#".
			continue
		}
		keyword := words[0].Text
		var arg string
		if len(words) > 1 {
			arg = words[1].Text
		}
		switch keyword {
		case "if", "ifdef", "ifndef":
			if !skipping() && !guardSeen && keyword == "ifndef" && dialect.IncludeGuard != "" && arg == dialect.IncludeGuard {
				guardSeen = true
				stack = append(stack, condition{guard: true})
			} else {
				stack = append(stack, condition{skip: true})
			}
			continue
		case "elif", "else":
			if len(stack) == 0 {
				return nil, errors.Errorf("line %d: #%s without #if", tok.Line, keyword)
			}
			stack[len(stack)-1] = condition{skip: true}
			continue
		case "endif":
			if len(stack) == 0 {
				return nil, errors.Errorf("line %d: #endif without #if", tok.Line)
			}
			stack = stack[:len(stack)-1]
			continue
		}
		if skipping() {
			continue
		}
		switch {
		case keyword == "define" && guardSeen && arg == dialect.IncludeGuard:
		case keyword == "define" && dialect.StartMarker != "" && arg == dialect.StartMarker:
			klog.V(2).Infof("line %d: start marker %s found, dropping %d tokens before it", tok.Line, arg, len(out))
			out = out[:0]
			markerSeen = true
		case keyword == "define":
			out = append(out, tok)
		case ignoredDirectives[keyword]:
			klog.Warningf("line %d: ignoring directive %q", tok.Line, tok.Text)
		default:
			return nil, errors.Errorf("line %d: unsupported directive %q", tok.Line, tok.Text)
		}
	}
	if len(stack) > 0 {
		return nil, errors.Errorf("unterminated conditional block: %d #endif missing", len(stack))
	}
	if dialect.IncludeGuard != "" && !guardSeen {
		klog.Warningf("include guard %q not found", dialect.IncludeGuard)
	}
	if dialect.StartMarker != "" && !markerSeen {
		klog.Warningf("start marker \"#define %s\" not found, using the whole header", dialect.StartMarker)
	}
	return out, nil
}

// skipAnnotationArgs returns the index of the last token of the annotation at tokens[idx], including
// a parenthesized group immediately following it.
func skipAnnotationArgs(tokens []Token, idx int) int {
	if idx+1 >= len(tokens) || !tokens[idx+1].IsPunct("(") {
		return idx
	}
	depth := 0
	for ii := idx + 1; ii < len(tokens); ii++ {
		switch {
		case tokens[ii].IsPunct("("):
			depth++
		case tokens[ii].IsPunct(")"):
			depth--
			if depth == 0 {
				return ii
			}
		}
	}
	return len(tokens) - 1
}

// directiveTokens re-tokenizes the text of a directive after its '#'. Positions are translated
// to the original source, except for columns on continuation lines.
func directiveTokens(tok Token) ([]Token, error) {
	tokens, err := Tokenize(tok.Text[1:])
	if err != nil {
		return nil, errors.WithMessagef(err, "in directive starting at line %d", tok.Line)
	}
	for ii := range tokens {
		t := &tokens[ii]
		if t.Line == 1 {
			t.Col += tok.Col
		}
		t.Line += tok.Line - 1
		t.EndLine += tok.Line - 1
		t.Offset += tok.Offset + 1
		t.End += tok.Offset + 1
	}
	return tokens, nil
}

type parser struct {
	src     string
	dialect *cryptbind.Dialect
	tokens  []Token
	pos     int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.tokens) }

// peek returns the current token, or an EOF token at the end.
func (p *parser) peek() Token {
	if p.atEnd() {
		tok := Token{Kind: EOF}
		if len(p.tokens) > 0 {
			last := p.tokens[len(p.tokens)-1]
			tok.Line, tok.EndLine, tok.Offset, tok.End = last.EndLine, last.EndLine, last.End, last.End
		}
		return tok
	}
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.peek()
	if !p.atEnd() {
		p.pos++
	}
	return tok
}

// nextCode returns the next token that is not a comment.
func (p *parser) nextCode() Token {
	for p.peek().Kind == Comment {
		p.pos++
	}
	return p.next()
}

func (p *parser) expectPunct(punct string) (Token, error) {
	tok := p.nextCode()
	if !tok.IsPunct(punct) {
		return tok, errors.Errorf("line %d: expected %q, got %s", tok.Line, punct, tok)
	}
	return tok, nil
}

func (p *parser) expectIdent() (Token, error) {
	tok := p.nextCode()
	if tok.Kind != Ident {
		return tok, errors.Errorf("line %d: expected an identifier, got %s", tok.Line, tok)
	}
	return tok, nil
}

// text returns the source text from the start of first to the end of last.
func (p *parser) text(first, last Token) string {
	return p.src[first.Offset:last.End]
}

func (p *parser) parseItem() (Item, error) {
	tok := p.peek()
	switch {
	case tok.Kind == Comment:
		p.next()
		return &CommentItem{Span: spanOf(tok, tok), Text: tok.Text}, nil
	case tok.Kind == Directive:
		p.next()
		return parseDefine(tok)
	case tok.Is(Ident, "typedef"):
		return p.parseTypedef()
	case tok.Is(Ident, "enum"):
		p.next()
		return p.parseEnum(tok, false)
	case tok.Is(Ident, p.dialect.ReturnMarker):
		return p.parsePrototype()
	}
	return nil, errors.Errorf("line %d: unexpected %s at top level", tok.Line, tok)
}

// parseDefine parses a "#define" directive token.
func parseDefine(tok Token) (*Define, error) {
	words, err := directiveTokens(tok)
	if err != nil {
		return nil, err
	}
	// Drop the "define" keyword.
	words = words[1:]
	def := &Define{Span: spanOf(tok, tok), Text: tok.Text}
	if len(words) == 0 || words[0].Kind != Ident {
		return nil, errors.Errorf("line %d: #define without a name: %q", tok.Line, tok.Text)
	}
	name := words[0]
	def.Name = name.Text
	words = words[1:]

	if len(words) > 0 && words[0].IsPunct("(") && words[0].Offset == name.End {
		def.FunctionLike = true
		closing := -1
		for ii, w := range words {
			if w.IsPunct(")") {
				closing = ii
				break
			}
		}
		if closing < 0 {
			return nil, errors.Errorf("line %d: unterminated parameter list in macro %s", tok.Line, def.Name)
		}
		words = words[closing+1:]
	}
	for _, w := range words {
		if w.Kind == Comment {
			def.Comment = w.CommentBody()
			continue
		}
		def.Body = append(def.Body, w)
	}
	return def, nil
}

func (p *parser) parseTypedef() (Item, error) {
	first := p.next()
	kind := p.nextCode()
	switch {
	case kind.Is(Ident, "enum"):
		return p.parseEnum(first, true)
	case kind.Is(Ident, "struct"):
		return p.parseStruct(first)
	case kind.Is(Ident, "int"):
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		last, err := p.expectPunct(";")
		if err != nil {
			return nil, err
		}
		return &Typedef{Span: spanOf(first, last), Kind: TypedefInt, Name: name.Text, Text: p.text(first, last)}, nil
	}
	return nil, errors.Errorf("line %d: unsupported typedef of %s", kind.Line, kind)
}

// parseEnum parses the rest of an enum, after the "enum" keyword. first is the starting token
// of the item ("typedef" or "enum").
func (p *parser) parseEnum(first Token, isTypedef bool) (*EnumBlock, error) {
	block := &EnumBlock{}
	if p.peek().Kind == Ident {
		// Optional tag.
		p.next()
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}

	// lastLine is the line where the most recent entry ends.
	lastLine := -1
	attachComment := func(tok Token) {
		n := len(block.Entries)
		if n > 0 && tok.Line == lastLine && block.Entries[n-1].Comment == "" {
			block.Entries[n-1].Comment = tok.CommentBody()
		}
	}
entries:
	for {
		tok := p.next()
		switch {
		case tok.Kind == Comment:
			attachComment(tok)
		case tok.IsPunct(","):
			continue
		case tok.IsPunct("}"):
			break entries
		case tok.Kind == Ident:
			entry := EnumEntry{Name: tok.Text, Line: tok.Line}
			lastLine = tok.EndLine
			if p.peek().IsPunct("=") {
				eq := p.next()
				var comments []Token
				depth := 0
			value:
				for {
					v := p.peek()
					switch {
					case v.Kind == EOF:
						return nil, errors.Errorf("line %d: unterminated enum", first.Line)
					case v.Kind == Comment:
						comments = append(comments, v)
						p.next()
						continue
					case depth == 0 && (v.IsPunct(",") || v.IsPunct("}")):
						break value
					case v.IsPunct("("):
						depth++
					case v.IsPunct(")"):
						depth--
					}
					entry.Value = append(entry.Value, v)
					lastLine = v.EndLine
					p.next()
				}
				if len(entry.Value) == 0 {
					return nil, errors.Errorf("line %d: missing value for enum entry %s", eq.Line, entry.Name)
				}
				block.Entries = append(block.Entries, entry)
				for _, c := range comments {
					attachComment(c)
				}
				continue
			}
			block.Entries = append(block.Entries, entry)
		default:
			return nil, errors.Errorf("line %d: unexpected %s in enum", tok.Line, tok)
		}
	}

	if isTypedef {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		block.TypeName = name.Text
	}
	last, err := p.expectPunct(";")
	if err != nil {
		return nil, err
	}
	block.Span = spanOf(first, last)
	return block, nil
}

// parseStruct parses the rest of "typedef struct [tag] { fields } NAME;".
func (p *parser) parseStruct(first Token) (*Typedef, error) {
	def := &Typedef{Kind: TypedefStruct}
	if p.peek().Kind == Ident {
		p.next()
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	lastLine := -1
	for {
		tok := p.next()
		switch {
		case tok.Kind == EOF:
			return nil, errors.Errorf("line %d: unterminated struct", first.Line)
		case tok.Kind == Comment:
			n := len(def.Fields)
			if n > 0 && tok.Line == lastLine && def.Fields[n-1].Comment == "" {
				def.Fields[n-1].Comment = tok.CommentBody()
			}
			continue
		case tok.IsPunct("}"):
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			last, err := p.expectPunct(";")
			if err != nil {
				return nil, err
			}
			def.Name = name.Text
			def.Span = spanOf(first, last)
			def.Text = p.text(first, last)
			return def, nil
		}

		// A member declaration, up to its ';'.
		decl := []Token{tok}
		for !p.peek().IsPunct(";") {
			t := p.next()
			if t.Kind == EOF {
				return nil, errors.Errorf("line %d: unterminated struct member", tok.Line)
			}
			if t.Kind != Comment {
				decl = append(decl, t)
			}
		}
		semicolon := p.next()
		lastLine = semicolon.EndLine
		field, err := parseField(decl)
		if err != nil {
			return nil, err
		}
		def.Fields = append(def.Fields, field)
	}
}

// parseField parses "TYPE... NAME [ '[' SIZE ']' ]".
func parseField(decl []Token) (Field, error) {
	var field Field
	end := len(decl)
	for ii, t := range decl {
		if t.IsPunct("[") {
			if !decl[len(decl)-1].IsPunct("]") {
				return field, errors.Errorf("line %d: malformed array member", t.Line)
			}
			field.ArraySize = decl[ii+1 : len(decl)-1]
			if len(field.ArraySize) == 0 {
				return field, errors.Errorf("line %d: array member without a size", t.Line)
			}
			end = ii
			break
		}
	}
	if end < 2 || decl[end-1].Kind != Ident {
		return field, errors.Errorf("line %d: malformed struct member", decl[0].Line)
	}
	field.Name = decl[end-1].Text
	parts := make([]string, 0, end-1)
	for _, t := range decl[:end-1] {
		parts = append(parts, t.Text)
	}
	field.Type = strings.Join(parts, " ")
	return field, nil
}

// parsePrototype parses "RETURN_MARKER name( params );".
func (p *parser) parsePrototype() (*Prototype, error) {
	first := p.next()
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	proto := &Prototype{Name: name.Text}
	var current []Token
	depth := 0
	for {
		tok := p.next()
		switch {
		case tok.Kind == EOF:
			return nil, errors.Errorf("line %d: unterminated parameter list of %s", first.Line, proto.Name)
		case tok.Kind == Comment:
			continue
		case tok.IsPunct("("):
			depth++
		case tok.IsPunct(")") && depth > 0:
			depth--
		case tok.IsPunct(")"):
			if len(current) > 0 || len(proto.Params) > 0 {
				if len(current) == 0 {
					return nil, errors.Errorf("line %d: empty parameter in %s", tok.Line, proto.Name)
				}
				proto.Params = append(proto.Params, current)
			}
			last, err := p.expectPunct(";")
			if err != nil {
				return nil, err
			}
			proto.Span = spanOf(first, last)
			proto.Text = p.text(first, last)
			return proto, nil
		case tok.IsPunct(",") && depth == 0:
			if len(current) == 0 {
				return nil, errors.Errorf("line %d: empty parameter in %s", tok.Line, proto.Name)
			}
			proto.Params = append(proto.Params, current)
			current = nil
			continue
		}
		current = append(current, tok)
	}
}
