package generator

import (
	"fmt"
	"strings"

	"github.com/golang-cz/textcase"
	"github.com/gomlx/cryptbind"
	"github.com/gomlx/cryptbind/binding"
	"k8s.io/klog/v2"
)

// paramWhiteSpace indents the parameters of the java and net declarations.
const paramWhiteSpace = "\t\t\t\t\t\t"

// declParam is one parameter of a java or net declaration.
type declParam struct {
	Type, Name string

	// Comment is the C type of ints that stand for a typedef or enum.
	Comment string
}

// declaration is the signature of a method of the java or net class.
type declaration struct {
	Modifiers string
	Return    string
	Name      string
	Params    []declParam

	// Throws is appended after the closing parenthesis.
	Throws string
}

// header renders the declaration without its terminating ";" or body.
func (d *declaration) header() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s %s(", d.Modifiers, d.Return, d.Name)
	if len(d.Params) > 0 {
		b.WriteString("\n")
		for ii, p := range d.Params {
			b.WriteString(paramWhiteSpace + p.Type + " " + p.Name)
			if ii < len(d.Params)-1 {
				b.WriteString(",")
			}
			if p.Comment != "" {
				b.WriteString(" // " + p.Comment)
			}
			b.WriteString("\n")
		}
		b.WriteString(paramWhiteSpace)
	}
	b.WriteString(")" + d.Throws)
	return b.String()
}

// prototype renders the declaration terminated by ";", as for native and extern methods.
func (d *declaration) prototype() string {
	return d.header() + ";"
}

// oneLiner renders the declaration with a body that forwards to call.
func (d *declaration) oneLiner(call string) string {
	if d.Return == "void" {
		return fmt.Sprintf("%s { %s; }", d.header(), call)
	}
	return fmt.Sprintf("%s { return %s; }", d.header(), call)
}

// typeNames of the parameters of the java and net declarations.
type typeNames struct {
	// Buffer is the type of untyped buffers, String the type of C strings.
	Buffer, String string
}

// returnType of the generated method for f.
func returnType(f *binding.Function) string {
	switch {
	case f.Returned == nil:
		return "void"
	case f.ReturnStruct != nil:
		return f.ReturnStruct.Name
	default:
		return "int"
	}
}

// declParamOf converts a parameter of the transformed signature.
func declParamOf(p *binding.Param, types typeNames) declParam {
	switch {
	case p.IsBuffer():
		return declParam{Type: types.Buffer, Name: p.Name}
	case p.IsString():
		return declParam{Type: types.String, Name: p.Name}
	case p.Category == binding.CategoryEnum || p.Category == binding.CategoryInt:
		return declParam{Type: "int", Name: p.Name, Comment: p.Type}
	default:
		return declParam{Type: "int", Name: p.Name}
	}
}

// fullParams converts all the parameters of the transformed signature of f.
func fullParams(f *binding.Function, types typeNames) []declParam {
	params := make([]declParam, 0, len(f.Params))
	for _, p := range f.Params {
		params = append(params, declParamOf(p, types))
	}
	return params
}

// wrapperKind selects the convenience overload that elides offsets and lengths.
type wrapperKind int

const (
	// plainWrapper keeps the buffer type of the wrapped method.
	plainWrapper wrapperKind = iota

	// stringWrapper takes the input buffers as strings.
	stringWrapper
)

// wrapperExprs tells how a wrapper computes the elided arguments.
type wrapperExprs struct {
	// Length of a buffer and of a string passed in place of a buffer, as format strings taking
	// the name of the buffer twice.
	Length, StringLength string

	// StringBytes converts a string passed in place of a buffer to the buffer type.
	StringBytes string
}

// wrapper builds the overload of f without offsets and elided lengths, and the call it forwards to.
func wrapper(f *binding.Function, base declaration, types typeNames, kind wrapperKind, exprs wrapperExprs) (declaration, string) {
	decl := base
	decl.Params = nil
	args := make([]string, 0, len(f.Params))
	for ii, p := range f.Params {
		switch {
		case f.IsOffset(ii):
			args = append(args, "0")
		case f.IsLength(ii):
			buffer := f.Params[ii-2].Name
			format := exprs.Length
			if kind == stringWrapper && !f.Params[ii-2].IsOutput {
				format = exprs.StringLength
			}
			args = append(args, fmt.Sprintf(format, buffer, buffer))
		default:
			dp := declParamOf(p, types)
			arg := p.Name
			if kind == stringWrapper && p.IsBuffer() && !p.IsOutput {
				dp.Type = types.String
				arg = fmt.Sprintf(exprs.StringBytes, p.Name, p.Name)
			}
			decl.Params = append(decl.Params, dp)
			args = append(args, arg)
		}
	}
	return decl, fmt.Sprintf("%s(%s)", f.Name, strings.Join(args, ", "))
}

// hasStringWrapper reports whether f gets an overload taking its input buffers as strings: it
// needs both an offset and a length to elide.
func hasStringWrapper(f *binding.Function) bool {
	return len(f.OffsetIndices) > 0 && len(f.LengthIndices) > 0
}

// probesLength reports whether the glue code queries the size of the output buffers of f, by
// calling it with a NULL buffer, before the actual call.
func probesLength(d *cryptbind.Dialect, f *binding.Function) bool {
	return len(f.OutputBuffers()) > 0 && f.Returned != nil && f.ReturnStruct == nil && !d.SkipsLengthProbe(f.Name)
}

// unknownLength is used as the size of buffers whose accessed length nothing tells.
const unknownLength = "1"

// bufferLength returns the name of the variable holding the number of bytes the call accesses in
// the buffer Params[idx]: the probed length for output buffers, the int parameter following the
// offset otherwise.
func bufferLength(d *cryptbind.Dialect, f *binding.Function, idx int) string {
	p := f.Params[idx]
	if p.IsOutput && probesLength(d, f) {
		return f.Returned.Name
	}
	if idx+2 < len(f.Params) && f.Params[idx+2].IsRawInt() {
		return f.Params[idx+2].Name
	}
	return unknownLength
}

// paramIndex returns the index of p in f.Params.
func paramIndex(f *binding.Function, p *binding.Param) int {
	for ii, param := range f.Params {
		if param == p {
			return ii
		}
	}
	return -1
}

// callArgs renders the arguments of the call to the C function, converting each raw parameter
// with arg.
func callArgs(f *binding.Function, arg func(p *binding.Param) string) string {
	args := make([]string, len(f.Raw))
	for ii, p := range f.Raw {
		args[ii] = arg(p)
	}
	return strings.Join(args, ", ")
}

// stringAccessorParams returns the parameters of the String returning overload of the string
// attribute function: its parameters up to the output buffer. It returns false if f is not that
// function or doesn't have the expected shape.
func stringAccessorParams(d *cryptbind.Dialect, f *binding.Function) ([]*binding.Param, bool) {
	if f.Name != d.Functions.StringAttribute {
		return nil, false
	}
	outputs := f.OutputBuffers()
	if len(outputs) != 1 || f.Returned == nil || f.ReturnStruct != nil {
		klog.Warningf("function %s doesn't return a buffer and its length, no String accessor generated", f.Name)
		return nil, false
	}
	idx := paramIndex(f, outputs[0])
	if idx != len(f.Params)-2 {
		klog.Warningf("function %s: the output buffer is not the last parameter, no String accessor generated", f.Name)
		return nil, false
	}
	return f.Params[:idx], true
}

// pollTypeBuffer returns the raw buffer parameter of the poll type function, which the poll type
// overload passes as NULL, and the int parameter that receives the poll type in place of the
// buffer length. It returns false if f is not that function or doesn't have the expected shape.
func pollTypeBuffer(d *cryptbind.Dialect, f *binding.Function) (buffer, pollType *binding.Param, ok bool) {
	if f.Name != d.Functions.PollType {
		return nil, nil, false
	}
	for ii, p := range f.Raw {
		if p.IsBuffer() && ii+1 < len(f.Raw) && f.Raw[ii+1].IsRawInt() && len(f.Raw) == 2 {
			return p, f.Raw[ii+1], true
		}
	}
	klog.Warningf("function %s doesn't take just a buffer and its length, no poll type overload generated", f.Name)
	return nil, nil, false
}

// structHelperName is the name of the glue function converting a returned struct.
func structHelperName(s *binding.Struct) string {
	return "processStatusReturn" + textcase.PascalCase(strings.ToLower(s.Name))
}

// structClassVar is the name of the C variable holding the Python class of a returned struct.
func structClassVar(s *binding.Struct) string {
	return textcase.CamelCase(strings.ToLower(s.Name)) + "Class"
}
