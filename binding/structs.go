package binding

import (
	"slices"

	"github.com/gomlx/cryptbind/header"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// stringElementTypes are the array element types exposed as strings.
	stringElementTypes = []string{"char", "C_CHR", "signed char"}

	// bytesElementTypes are the array element types exposed as byte arrays.
	bytesElementTypes = []string{"unsigned char", "BYTE"}
)

// buildStructs resolves the value model of every struct. Failing to model a struct returned by a
// function is an error, other structs are only exposed as commented out declarations anyway.
func (ctx *Context) buildStructs() error {
	for _, s := range ctx.Structs {
		err := ctx.buildStruct(s)
		if err == nil {
			continue
		}
		if ctx.isReturned(s) {
			return errors.WithMessagef(err, "struct %s is returned by a function", s.Name)
		}
		klog.Warningf("struct %s can't be exposed as a value class: %v", s.Name, err)
	}
	return nil
}

func (ctx *Context) buildStruct(s *Struct) error {
	if s.built {
		return nil
	}
	fields := s.decl.Fields
	var built []*StructField
	for ii := 0; ii < len(fields); ii++ {
		field := fields[ii]
		sf := &StructField{Name: field.Name, CType: field.Type, Comment: field.Comment}
		if field.ArraySize == nil {
			category := ctx.CategoryOf(field.Type)
			if field.Type != "int" && category != CategoryEnum && category != CategoryInt {
				return errors.Errorf("member %s: type %s is not supported", field.Name, field.Type)
			}
			sf.Kind = FieldInt
			built = append(built, sf)
			continue
		}

		size, err := ctx.Evaluate(field.ArraySize)
		if err != nil {
			return errors.WithMessagef(err, "size of member %s", field.Name)
		}
		sf.Size = size
		if len(field.ArraySize) == 1 && field.ArraySize[0].Kind == header.Ident {
			sf.SizeName, _ = ctx.Dialect.StripConstantPrefix(field.ArraySize[0].Text)
		}
		switch {
		case slices.Contains(stringElementTypes, field.Type):
			sf.Kind = FieldString
		case slices.Contains(bytesElementTypes, field.Type):
			sf.Kind = FieldBytes
			if ii+1 < len(fields) {
				next := fields[ii+1]
				if next.Name == field.Name+"Size" && next.Type == "int" && next.ArraySize == nil {
					sf.LengthField = next.Name
					ii++
				}
			}
		default:
			return errors.Errorf("member %s: arrays of %s are not supported", field.Name, field.Type)
		}
		built = append(built, sf)
	}
	s.Fields = built
	s.built = true
	return nil
}
