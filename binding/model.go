package binding

import (
	"github.com/gomlx/cryptbind/header"
)

// Item is an element of the analysed header, in source order: one of *Comment, *Enum, *Define,
// *Commented or *Function.
type Item interface {
	Lines() header.Span
}

// Comment is a top-level comment, carried over to the generated files.
type Comment struct {
	header.Span
	Text string
}

// Constant is a named integer: an enum value or a #define.
type Constant struct {
	// Name without the constant prefix, e.g. "ALGO_AES".
	Name string

	// CName is the name as declared in the header, e.g. "CRYPT_ALGO_AES".
	CName string

	Value int64

	// Text is the value as it is emitted: the evaluated decimal value for enum entries,
	// the source text for defines ("0x001", "-100").
	Text string

	Comment string
}

// Enum is a block of constants, from a "typedef enum" (TypeName set) or a simple "enum".
type Enum struct {
	header.Span
	TypeName  string
	Constants []*Constant
}

// Define is a constant defined with "#define".
type Define struct {
	header.Span
	*Constant

	// Parenthesized is set for defines written as "( value )".
	Parenthesized bool
}

// CommentedKind tells why an item is not translated.
type CommentedKind int

const (
	// NotNeeded items, like "typedef int", have no counterpart: the target languages use plain ints.
	NotNeeded CommentedKind = iota

	// NotSupported items, like macros and structs, can't be translated and are carried over
	// commented out.
	NotSupported
)

// Commented is an item carried over commented out.
type Commented struct {
	header.Span
	Kind CommentedKind
	Name string

	// Text is the original declaration.
	Text string
}

// ErrorMapping associates an error status constant with its description.
type ErrorMapping struct {
	// Name without the constant prefix, e.g. "ERROR_PARAM1".
	Name    string
	Value   int64
	Comment string
}

// Param is a parameter of a function.
type Param struct {
	Name string

	// Type is the C type name without pointer markers: "void", "char", "int" or a typedef name.
	Type string

	// Direction is the direction marker, "" if none was given.
	Direction string

	IsOutput  bool
	IsPointer bool
	Category  Category

	// RawIndex is the position in the declared parameter list, -1 for synthesized parameters.
	RawIndex int
}

// Synthetic reports whether the parameter was added by the transformation (an offset).
func (p *Param) Synthetic() bool { return p.RawIndex < 0 }

// IsBuffer reports whether the parameter is an untyped data buffer ("void *").
func (p *Param) IsBuffer() bool { return p.IsPointer && p.Type == "void" }

// IsString reports whether the parameter is a C string ("char *").
func (p *Param) IsString() bool { return p.IsPointer && p.Type == "char" }

// IsRawInt reports whether the parameter is a plain "int" passed by value.
func (p *Param) IsRawInt() bool { return !p.IsPointer && p.Category == CategoryRaw && p.Type == "int" }

// Function is an exported function with its transformed signature.
type Function struct {
	header.Span

	// Name without the function prefix, e.g. "Encrypt".
	Name string

	// CName is the name as declared, e.g. "cryptEncrypt".
	CName string

	// Raw are the parameters as declared.
	Raw []*Param

	// Params is the transformed parameter list of the generated declaration: the returned and
	// discarded parameters removed, buffer offsets inserted.
	Params []*Param

	// Returned is the output parameter promoted to return value, nil if the function returns nothing.
	Returned *Param

	// Discarded is an output parameter dropped from the generated interface, or nil.
	Discarded *Param

	// OffsetIndices are the indices in Params of the synthesized buffer offsets.
	OffsetIndices []int

	// LengthIndices are the indices in Params of buffer lengths that wrappers elide.
	LengthIndices []int

	// ReturnStruct is the value model of the returned struct, if Returned is a struct.
	ReturnStruct *Struct

	// Text is the original declaration.
	Text string
}

// IsOffset reports whether Params[idx] is a synthesized offset.
func (f *Function) IsOffset(idx int) bool {
	for _, ii := range f.OffsetIndices {
		if ii == idx {
			return true
		}
	}
	return false
}

// IsLength reports whether Params[idx] is an elidable buffer length.
func (f *Function) IsLength(idx int) bool {
	for _, ii := range f.LengthIndices {
		if ii == idx {
			return true
		}
	}
	return false
}

// HasWrapper reports whether the generated interface has an overload without offsets and lengths.
func (f *Function) HasWrapper() bool {
	return len(f.OffsetIndices) > 0 || len(f.LengthIndices) > 0
}

// Buffers returns the buffer parameters of Params.
func (f *Function) Buffers() []*Param {
	return f.filter((*Param).IsBuffer)
}

// Strings returns the string parameters of Params.
func (f *Function) Strings() []*Param {
	return f.filter((*Param).IsString)
}

// Pointers returns the buffer and string parameters of Params, in order.
func (f *Function) Pointers() []*Param {
	return f.filter(func(p *Param) bool { return p.IsPointer })
}

// OutputBuffers returns the buffers of Params that the function writes to.
func (f *Function) OutputBuffers() []*Param {
	return f.filter(func(p *Param) bool { return p.IsBuffer() && p.IsOutput })
}

func (f *Function) filter(fn func(*Param) bool) []*Param {
	var params []*Param
	for _, p := range f.Params {
		if fn(p) {
			params = append(params, p)
		}
	}
	return params
}

// IsReturnedOrDiscarded reports whether the raw parameter p is passed by address to the C function
// instead of being part of the generated interface.
func (f *Function) IsReturnedOrDiscarded(p *Param) bool {
	return p == f.Returned || p == f.Discarded
}

// FieldKind tells how a struct member is exposed.
type FieldKind int

const (
	FieldInt FieldKind = iota
	FieldString
	FieldBytes
)

// StructField is a member of a struct value model.
type StructField struct {
	Name string
	Kind FieldKind

	// CType is the declared member type.
	CType string

	// Size is the array size of string and bytes members.
	Size int64

	// SizeName is the constant that declares Size, without prefix, if it was given by name.
	SizeName string

	// LengthField is the int member holding the used length of a bytes member ("<name>Size").
	// It is folded into the bytes field and does not appear on its own.
	LengthField string

	Comment string
}

// Struct is the value model of a "typedef struct", as exposed to the target languages.
type Struct struct {
	Name   string
	Fields []*StructField

	decl *header.Typedef
	// built is set once Fields has been resolved.
	built bool
}
