package binding

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts the analysis results to a protobuf Struct, used to inspect the intermediate
// representation (see DumpJSON).
func (ctx *Context) ToStruct() (*structpb.Struct, error) {
	constants := make([]any, 0, ctx.Symbols.Len())
	for _, enum := range ctx.Enums {
		for _, c := range enum.Constants {
			constants = append(constants, constantToMap(c, "enum", enum.TypeName))
		}
	}
	for _, def := range ctx.Defines {
		constants = append(constants, constantToMap(def.Constant, "define", ""))
	}

	errorsList := make([]any, 0, len(ctx.Errors))
	for _, e := range ctx.Errors {
		errorsList = append(errorsList, map[string]any{
			"name":    e.Name,
			"value":   e.Value,
			"comment": e.Comment,
		})
	}

	structs := make([]any, 0, len(ctx.Structs))
	for _, s := range ctx.Structs {
		fields := make([]any, 0, len(s.Fields))
		for _, f := range s.Fields {
			fields = append(fields, map[string]any{
				"name":         f.Name,
				"kind":         [...]string{FieldInt: "int", FieldString: "string", FieldBytes: "bytes"}[f.Kind],
				"c_type":       f.CType,
				"size":         f.Size,
				"length_field": f.LengthField,
			})
		}
		structs = append(structs, map[string]any{
			"name":     s.Name,
			"returned": ctx.isReturned(s),
			"fields":   fields,
		})
	}

	functions := make([]any, 0, len(ctx.Functions))
	for _, f := range ctx.Functions {
		function := map[string]any{
			"name":           f.Name,
			"c_name":         f.CName,
			"line":           f.Line,
			"raw_params":     paramsToList(f, f.Raw),
			"params":         paramsToList(f, f.Params),
			"offset_indices": intsToList(f.OffsetIndices),
			"length_indices": intsToList(f.LengthIndices),
		}
		if f.Returned != nil {
			function["returned"] = f.Returned.Name
		}
		if f.Discarded != nil {
			function["discarded"] = f.Discarded.Name
		}
		functions = append(functions, function)
	}

	s, err := structpb.NewStruct(map[string]any{
		"constants":  constants,
		"errors":     errorsList,
		"enum_types": stringsToList(ctx.EnumTypes),
		"int_types":  stringsToList(ctx.IntTypes),
		"structs":    structs,
		"functions":  functions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert the analysis to a protobuf Struct")
	}
	return s, nil
}

// DumpJSON returns the intermediate representation as indented JSON.
func (ctx *Context) DumpJSON() ([]byte, error) {
	s, err := ctx.ToStruct()
	if err != nil {
		return nil, err
	}
	contents, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal the intermediate representation")
	}
	return contents, nil
}

func constantToMap(c *Constant, kind, typeName string) map[string]any {
	m := map[string]any{
		"name":  c.Name,
		"value": c.Value,
		"text":  c.Text,
		"kind":  kind,
	}
	if c.Comment != "" {
		m["comment"] = c.Comment
	}
	if typeName != "" {
		m["type"] = typeName
	}
	return m
}

func paramsToList(f *Function, params []*Param) []any {
	list := make([]any, 0, len(params))
	for _, p := range params {
		list = append(list, map[string]any{
			"name":      p.Name,
			"type":      p.Type,
			"category":  p.Category.String(),
			"direction": p.Direction,
			"output":    p.IsOutput,
			"pointer":   p.IsPointer,
			"raw_index": p.RawIndex,
			"returned":  p == f.Returned,
			"discarded": p == f.Discarded,
		})
	}
	return list
}

func intsToList(values []int) []any {
	list := make([]any, len(values))
	for ii, v := range values {
		list[ii] = v
	}
	return list
}

func stringsToList(values []string) []any {
	list := make([]any, len(values))
	for ii, v := range values {
		list[ii] = v
	}
	return list
}
