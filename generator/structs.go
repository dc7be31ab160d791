package generator

import (
	"fmt"
	"strings"

	"github.com/gomlx/cryptbind/binding"
)

// structView is a returned struct as the templates see it.
type structView struct {
	Name   string
	Fields []fieldView

	// Helper is the name of the glue function converting the struct.
	Helper string
}

// fieldView is a member of a returned struct as the templates see it.
type fieldView struct {
	*binding.StructField

	// Type is the member type in the target language.
	Type string

	// Param is the name of the constructor parameter setting the member.
	Param string
}

func (f fieldView) IsInt() bool    { return f.Kind == binding.FieldInt }
func (f fieldView) IsString() bool { return f.Kind == binding.FieldString }
func (f fieldView) IsBytes() bool  { return f.Kind == binding.FieldBytes }

// Length is the C expression of the number of bytes used in a bytes member.
func (f fieldView) Length() string {
	if f.LengthField != "" {
		return "returnValue." + f.LengthField
	}
	return fmt.Sprint(f.Size)
}

// newStructView builds the view of s, with member types given by typeOf.
func newStructView(s *binding.Struct, typeOf func(kind binding.FieldKind) string) *structView {
	view := &structView{Name: s.Name, Helper: structHelperName(s)}
	for _, field := range s.Fields {
		view.Fields = append(view.Fields, fieldView{
			StructField: field,
			Type:        typeOf(field.Kind),
			Param:       "new" + strings.ToUpper(field.Name[:1]) + field.Name[1:],
		})
	}
	return view
}
