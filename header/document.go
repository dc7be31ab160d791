package header

// Document is the parsed header: the top-level items in source order.
type Document struct {
	Items []Item
}

// Item is a top-level element of a Document: one of *CommentItem, *EnumBlock, *Define, *Typedef
// or *Prototype.
type Item interface {
	// Lines returns the first and last source lines of the item.
	Lines() Span
}

// Span is a range of source lines, 1-based and inclusive.
type Span struct {
	Line, EndLine int
}

// Lines implements Item.
func (s Span) Lines() Span { return s }

// spanOf returns the span from the first to the last token.
func spanOf(first, last Token) Span {
	return Span{Line: first.Line, EndLine: last.EndLine}
}

// CommentItem is a comment standing on its own between declarations.
type CommentItem struct {
	Span
	// Text includes the comment delimiters.
	Text string
}

// EnumBlock is either "typedef enum { ... } TypeName;" or a simple "enum { ... };" (TypeName empty).
type EnumBlock struct {
	Span
	TypeName string
	Entries  []EnumEntry
}

// EnumEntry is one "NAME [= expression]" element of an enum.
type EnumEntry struct {
	Name string
	// Value holds the tokens of the explicit value expression, nil for an implicit value.
	Value []Token
	// Comment is the body of a comment trailing the entry on the same line, if any.
	Comment string
	Line    int
}

// Define is a "#define" directive.
type Define struct {
	Span
	Name string

	// FunctionLike is set for macros with a parameter list, "#define NAME(a, b) ...".
	FunctionLike bool

	// Body holds the replacement tokens, comments excluded.
	Body []Token

	// Comment is the body of the last comment in the directive, if any.
	Comment string

	// Text is the directive as written, including continuation lines.
	Text string
}

// TypedefKind tells the supported kinds of typedef apart.
type TypedefKind int

const (
	TypedefInt TypedefKind = iota
	TypedefStruct
)

// Typedef is either "typedef int NAME;" or "typedef struct { ... } NAME;".
type Typedef struct {
	Span
	Kind TypedefKind
	Name string

	// Fields of a struct, in order.
	Fields []Field

	// Text is the declaration as written.
	Text string
}

// Field is a member of a struct typedef.
type Field struct {
	// Type is the member type; multi-word types are joined by a single space ("unsigned char").
	Type string
	Name string
	// ArraySize holds the tokens between brackets, nil for scalar members.
	ArraySize []Token
	Comment   string
}

// Prototype is an exported function declaration, "RETURN_MARKER name( params );".
type Prototype struct {
	Span
	Name string

	// Params holds the identifier and punctuation tokens of each comma-separated parameter.
	Params [][]Token

	// Text is the declaration as written.
	Text string
}
