// Package binding analyses a parsed header into the language independent description of the
// bindings: constants, error mappings, type registries and transformed function signatures.
//
// The analysis runs in passes over the Document (see Analyze), all of them sharing one Context.
package binding

import (
	"github.com/gomlx/cryptbind"
	"github.com/gomlx/cryptbind/header"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Context holds the state of the analysis of one header. Generators read it once Analyze returns.
type Context struct {
	Dialect *cryptbind.Dialect
	Symbols *Symbols

	// Items in source order.
	Items []Item

	// Enums and Defines in the order they were analysed: typedef enums before simple enums, and
	// scalar defines before parenthesized ones.
	Enums   []*Enum
	Defines []*Define

	// Errors maps error status codes to their descriptions, in the order of the defines.
	Errors []ErrorMapping

	// EnumTypes and IntTypes are the names of the "typedef enum" and "typedef int" types.
	EnumTypes, IntTypes []string

	// Structs are the "typedef struct" types, in source order.
	Structs []*Struct

	Functions []*Function

	categories    map[string]Category
	structsByName map[string]*Struct
}

// NewContext creates an empty Context.
func NewContext(dialect *cryptbind.Dialect) *Context {
	ctx := &Context{
		Dialect:       dialect,
		Symbols:       NewSymbols(),
		categories:    make(map[string]Category),
		structsByName: make(map[string]*Struct),
	}
	for _, raw := range dialect.RawTypes {
		ctx.categories[raw] = CategoryRaw
	}
	return ctx
}

// pass analyses the items of the document it accepts. It returns nil for items it doesn't handle.
type pass struct {
	name string
	fn   func(ctx *Context, item header.Item) (Item, error)
}

// passes run in this order: parameter classification needs every type registered, and enum values
// may be referenced by later constants.
var passes = []pass{
	{"typedef enums", func(ctx *Context, item header.Item) (Item, error) {
		if block, ok := item.(*header.EnumBlock); ok && block.TypeName != "" {
			return ctx.analyseEnum(block)
		}
		return nil, nil
	}},
	{"simple enums", func(ctx *Context, item header.Item) (Item, error) {
		if block, ok := item.(*header.EnumBlock); ok && block.TypeName == "" {
			return ctx.analyseEnum(block)
		}
		return nil, nil
	}},
	{"scalar defines", func(ctx *Context, item header.Item) (Item, error) {
		if def, ok := item.(*header.Define); ok && !def.FunctionLike && !isParenthesized(def.Body) {
			return ctx.analyseDefine(def)
		}
		return nil, nil
	}},
	{"parenthesized defines", func(ctx *Context, item header.Item) (Item, error) {
		if def, ok := item.(*header.Define); ok && !def.FunctionLike && isParenthesized(def.Body) {
			return ctx.analyseDefine(def)
		}
		return nil, nil
	}},
	{"macros", func(ctx *Context, item header.Item) (Item, error) {
		if def, ok := item.(*header.Define); ok && def.FunctionLike {
			return &Commented{Span: def.Span, Kind: NotSupported, Name: def.Name, Text: def.Text}, nil
		}
		return nil, nil
	}},
	{"typedef int", func(ctx *Context, item header.Item) (Item, error) {
		if def, ok := item.(*header.Typedef); ok && def.Kind == header.TypedefInt {
			return ctx.analyseTypedefInt(def)
		}
		return nil, nil
	}},
	{"typedef struct", func(ctx *Context, item header.Item) (Item, error) {
		if def, ok := item.(*header.Typedef); ok && def.Kind == header.TypedefStruct {
			return ctx.analyseTypedefStruct(def)
		}
		return nil, nil
	}},
	{"functions", func(ctx *Context, item header.Item) (Item, error) {
		if proto, ok := item.(*header.Prototype); ok {
			return ctx.analyseFunction(proto)
		}
		return nil, nil
	}},
	{"comments", func(ctx *Context, item header.Item) (Item, error) {
		if comment, ok := item.(*header.CommentItem); ok {
			return &Comment{Span: comment.Span, Text: comment.Text}, nil
		}
		return nil, nil
	}},
}

// Analyze runs all passes over doc and returns the resulting Context.
//
// Any inconsistency (a constant without the prefix, a duplicate name, a parameter of unknown
// type, ...) is an error: there is no partial result.
func Analyze(doc *header.Document, dialect *cryptbind.Dialect) (*Context, error) {
	ctx := NewContext(dialect)
	items := make([]Item, len(doc.Items))
	for _, p := range passes {
		count := 0
		for ii, docItem := range doc.Items {
			if items[ii] != nil {
				continue
			}
			item, err := p.fn(ctx, docItem)
			if err != nil {
				return nil, errors.WithMessagef(err, "while analysing %s", p.name)
			}
			if item != nil {
				items[ii] = item
				count++
			}
		}
		klog.V(1).Infof("%s: %d items", p.name, count)
	}
	for ii, item := range items {
		if item == nil {
			return nil, errors.Errorf("line %d: item of type %T not handled by any pass", doc.Items[ii].Lines().Line, doc.Items[ii])
		}
	}
	ctx.Items = items
	if err := ctx.buildStructs(); err != nil {
		return nil, err
	}
	klog.V(1).Infof("analysed %d constants, %d error codes, %d functions", ctx.Symbols.Len(), len(ctx.Errors), len(ctx.Functions))
	return ctx, nil
}

// registerType adds a type name to the registries.
func (ctx *Context) registerType(name string, category Category, line int) error {
	if prev, found := ctx.categories[name]; found {
		return errors.Errorf("line %d: type %s already declared as %s", line, name, prev)
	}
	ctx.categories[name] = category
	return nil
}

// CategoryOf returns the category of a type name, or CategoryUnknown.
func (ctx *Context) CategoryOf(typeName string) Category {
	return ctx.categories[typeName]
}

// Struct returns the struct type with the given name, or nil.
func (ctx *Context) Struct(name string) *Struct {
	return ctx.structsByName[name]
}

// ReturnedStructs returns the structs returned by some function, in source order. These are the
// ones exposed as value classes.
func (ctx *Context) ReturnedStructs() []*Struct {
	var structs []*Struct
	for _, s := range ctx.Structs {
		if ctx.isReturned(s) {
			structs = append(structs, s)
		}
	}
	return structs
}

func (ctx *Context) isReturned(s *Struct) bool {
	for _, f := range ctx.Functions {
		if f.ReturnStruct == s {
			return true
		}
	}
	return false
}

// Function returns the function with the given name (without prefix), or nil.
func (ctx *Context) Function(name string) *Function {
	for _, f := range ctx.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}
