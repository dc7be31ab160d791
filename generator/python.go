package generator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/cryptbind"
	"github.com/gomlx/cryptbind/binding"
	"github.com/pkg/errors"
)

func init() {
	Register(cryptbind.Python.String(), func() Generator { return &PythonGenerator{} })
}

// PythonGenerator produces a CPython 3 extension module (python.c) and the setup.py building it.
//
// Buffers are accepted as any object supporting the buffer protocol (bytes for inputs, bytearray
// or memoryview for outputs), strings as str or bytes, and None stands for NULL. Functions raise
// CryptException(status, message) on errors, and return handles wrapped in a CryptHandle.
type PythonGenerator struct{}

func (g *PythonGenerator) Name() string { return cryptbind.Python.String() }

func (g *PythonGenerator) Generate(ctx *binding.Context) ([]*OutputFile, error) {
	opts := ctx.Dialect.Python
	if opts.Module == "" {
		return nil, errors.New("python module name must be set")
	}
	var files []*OutputFile
	for _, fw := range []*fileWriter{g.extensionFile(ctx), g.setupFile(ctx)} {
		f, err := fw.file()
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func (g *PythonGenerator) setupFile(ctx *binding.Context) *fileWriter {
	fw := newFileWriter("setup.py")
	fw.execute("setup_py", ctx.Dialect.Python)
	return fw
}

// pythonFunctionName is the name of the C function implementing f in the extension.
func pythonFunctionName(f *binding.Function) string {
	return "python_" + f.CName
}

func (g *PythonGenerator) extensionFile(ctx *binding.Context) *fileWriter {
	d := ctx.Dialect
	opts := d.Python
	fw := newFileWriter("python.c")
	fw.w("#define PY_SSIZE_T_CLEAN\n#include <Python.h>\n#include <limits.h>\n#include <stdlib.h>\n#include <string.h>\n")
	if opts.Include != "" {
		fw.w("#include %q\n", opts.Include)
	}
	fw.w("\nstatic PyObject* cryptHandleClass;\n")
	structs := ctx.ReturnedStructs()
	for _, s := range structs {
		fw.w("static PyObject* %s;\n", structClassVar(s))
	}
	fw.w("static PyObject* CryptException;\n\n")

	fw.execute("python_helpers", opts)
	fw.w("\n")
	g.processStatus(ctx, fw)
	fw.w("\n")
	fw.execute("python_status_helpers", opts)
	for _, s := range structs {
		fw.w("\n")
		g.structHelper(s, fw)
	}

	for _, f := range ctx.Functions {
		fw.w("\n%s\n", g.function(d, f))
	}

	fw.w("\nstatic PyMethodDef module_functions[] =\n{\n")
	for _, f := range ctx.Functions {
		fw.w("\t{ %q, %s, METH_VARARGS },\n", f.CName, pythonFunctionName(f))
	}
	fw.w("\t{ NULL, NULL, 0, NULL }\n};\n\n")
	fw.w("static struct PyModuleDef moduleDef =\n{\n\tPyModuleDef_HEAD_INIT, %q, NULL, -1, module_functions\n};\n\n", opts.Module)
	g.moduleInit(ctx, structs, fw)
	return fw
}

// processStatus renders the function raising CryptException for error statuses, with the
// message of the error mapping.
func (g *PythonGenerator) processStatus(ctx *binding.Context, fw *fileWriter) {
	prefix := ctx.Dialect.ConstantPrefix
	fw.w("static PyObject* processStatus(int status)\n{\n")
	fw.w("\tPyObject* o = NULL;\n\n")
	fw.w("\t/* An error already set by the argument conversion takes precedence over the status. */\n")
	fw.w("\tif (PyErr_Occurred())\n\t\treturn(NULL);\n\n")
	fw.w("\tif (status >= 0)\n\t\treturn(Py_BuildValue(\"\"));\n")
	for _, e := range ctx.Errors {
		fw.w("\telse if (status == %s%s)\n", prefix, e.Name)
		fw.w("\t\to = Py_BuildValue(\"(is)\", %s%s, %s);\n", prefix, e.Name, strconv.Quote(e.Comment))
	}
	fw.w("\telse\n\t\to = Py_BuildValue(\"(is)\", status, \"Unknown Exception ?!?!\");\n\n")
	fw.w("\tPyErr_SetObject(CryptException, o);\n\tPy_DECREF(o);\n\treturn(NULL);\n}\n")
}

// pythonFieldType maps struct members to Py_BuildValue format units.
func pythonFieldType(kind binding.FieldKind) string {
	switch kind {
	case binding.FieldString:
		return "s"
	case binding.FieldBytes:
		return "y#"
	default:
		return "i"
	}
}

// structHelper renders the conversion of a returned struct into an instance of its python class.
func (g *PythonGenerator) structHelper(s *binding.Struct, fw *fileWriter) {
	view := newStructView(s, pythonFieldType)
	var format strings.Builder
	var args []string
	for _, field := range view.Fields {
		format.WriteString(field.Type)
		args = append(args, "returnValue."+field.Name)
		if field.IsBytes() {
			args = append(args, "(Py_ssize_t)"+field.Length())
		}
	}
	fw.w("static PyObject* %s(int status, %s returnValue)\n{\n", view.Helper, s.Name)
	fw.w("\tPyObject* o2;\n\tPyObject* o = processStatus(status);\n\n")
	fw.w("\tif (o == NULL)\n\t\treturn(NULL);\n\tPy_DECREF(o);\n")
	fw.w("\to2 = Py_BuildValue(\"(%s)\", %s);\n", format.String(), strings.Join(args, ", "))
	fw.w("\tif (o2 == NULL)\n\t\treturn(NULL);\n")
	fw.w("\to = PyObject_CallObject(%s, o2);\n\tPy_DECREF(o2);\n\treturn(o);\n}\n", structClassVar(s))
}

// isParsed reports whether Params[idx] is one of the python arguments: offsets and elided lengths
// are taken from the buffer objects.
func isParsed(f *binding.Function, idx int) bool {
	return !f.IsOffset(idx) && !f.IsLength(idx)
}

// function renders the C function implementing f: parse the arguments, acquire the strings,
// probe the length of the output buffers, acquire the buffers, call, release everything and
// convert the status.
func (g *PythonGenerator) function(d *cryptbind.Dialect, f *binding.Function) string {
	body := []string{"int status = 0;"}
	if r := f.Returned; r != nil {
		if f.ReturnStruct != nil {
			body = append(body, fmt.Sprintf("%s %s;", r.Type, r.Name))
		} else {
			body = append(body, fmt.Sprintf("int %s = 0;", r.Name))
		}
	}
	if f.Discarded != nil {
		body = append(body, fmt.Sprintf("int %s = 0;", f.Discarded.Name))
	}
	var format strings.Builder
	var parsed []string
	for ii, p := range f.Params {
		switch {
		case p.IsPointer:
			body = append(body, fmt.Sprintf("PyObject* %s = NULL;", p.Name))
		case !f.IsOffset(ii):
			body = append(body, fmt.Sprintf("int %s = 0;", p.Name))
		}
		if !isParsed(f, ii) {
			continue
		}
		if p.IsPointer {
			format.WriteString("O")
		} else {
			format.WriteString("i")
		}
		parsed = append(parsed, "&"+p.Name)
	}
	for _, p := range f.Buffers() {
		body = append(body, fmt.Sprintf("unsigned char* %sPtr = NULL;", p.Name))
		body = append(body, fmt.Sprintf("Py_buffer %sView = {0};", p.Name))
	}
	for _, p := range f.Strings() {
		body = append(body, fmt.Sprintf("char* %sPtr = NULL;", p.Name))
	}
	body = append(body, "")
	goTo := func(cond string) []string { return []string{"if (!" + cond + ")", "\tgoto finish;"} }

	if buffer, pollType, ok := pollTypeBuffer(d, f); ok {
		args := callArgs(f, func(p *binding.Param) string {
			if p == buffer {
				return "NULL"
			}
			return p.Name
		})
		body = append(body,
			"/* A single int argument is a poll type. */",
			fmt.Sprintf("if (PyArg_ParseTuple(args, \"i\", &%s))", pollType.Name),
			fmt.Sprintf("\treturn(processStatus(%s(%s)));", f.CName, args),
			"PyErr_Clear();",
			"")
	}
	if len(parsed) > 0 {
		body = append(body,
			fmt.Sprintf("if (!PyArg_ParseTuple(args, %q, %s))", format.String(), strings.Join(parsed, ", ")),
			"\treturn(NULL);",
			"")
	}

	arg := func(probe bool) func(p *binding.Param) string {
		return func(p *binding.Param) string {
			switch {
			case f.IsReturnedOrDiscarded(p):
				return "&" + p.Name
			case p.IsBuffer() && probe && p.IsOutput:
				return "NULL"
			case p.IsPointer:
				return p.Name + "Ptr"
			default:
				return p.Name
			}
		}
	}
	pointers := f.Pointers()
	if len(pointers) > 0 {
		if strs := f.Strings(); len(strs) > 0 {
			for _, p := range strs {
				body = append(body, goTo(fmt.Sprintf("getPointerReadString(%s, &%sPtr)", p.Name, p.Name))...)
			}
			body = append(body, "")
		}
		if probesLength(d, f) {
			body = append(body, goTo(fmt.Sprintf("processStatusBool(%s(%s))", f.CName, callArgs(f, arg(true))))...)
			body = append(body, "")
		}
		if buffers := f.Buffers(); len(buffers) > 0 {
			for _, p := range buffers {
				body = append(body, goTo(pythonGetPointer(d, f, p))...)
			}
			body = append(body, "")
		}
	}

	body = append(body, fmt.Sprintf("status = %s(%s);", f.CName, callArgs(f, arg(false))), "")
	if len(pointers) > 0 {
		body = append(body, "finish:")
		for _, p := range f.Buffers() {
			body = append(body, fmt.Sprintf("releasePointer(&%sView);", p.Name))
		}
		for _, p := range f.Strings() {
			body = append(body, fmt.Sprintf("releasePointerString(%sPtr);", p.Name))
		}
	}
	switch {
	case f.Returned == nil:
		body = append(body, "return(processStatus(status));")
	case f.ReturnStruct != nil:
		body = append(body, fmt.Sprintf("return(%s(status, %s));", structHelperName(f.ReturnStruct), f.Returned.Name))
	case f.Returned.Category == binding.CategoryInt:
		body = append(body, fmt.Sprintf("return(processStatusReturnCryptHandle(status, %s));", f.Returned.Name))
	default:
		body = append(body, fmt.Sprintf("return(processStatusReturnInt(status, %s));", f.Returned.Name))
	}
	return fmt.Sprintf("static PyObject* %s(PyObject* self, PyObject* args)\n{\n%s\n}",
		pythonFunctionName(f), indentLines("\t", strings.Join(body, "\n")))
}

// pythonGetPointer returns the call acquiring the contents of the buffer p. Elided lengths are
// set from the buffer size; written buffers must hold the length the call is given.
func pythonGetPointer(d *cryptbind.Dialect, f *binding.Function, p *binding.Param) string {
	idx := paramIndex(f, p)
	name := p.Name
	if f.IsLength(idx + 2) {
		return fmt.Sprintf("getPointerRead(%s, &%sView, &%sPtr, &%s)", name, name, name, f.Params[idx+2].Name)
	}
	length := bufferLength(d, f, idx)
	written := p.IsOutput || d.IsDualDuty(f.Name)
	switch {
	case written && length != unknownLength:
		return fmt.Sprintf("getPointerWriteCheckIndices(%s, &%sView, &%sPtr, &%s)", name, name, name, length)
	case written:
		return fmt.Sprintf("getPointerWrite(%s, &%sView, &%sPtr, NULL)", name, name, name)
	default:
		return fmt.Sprintf("getPointerReadNoLength(%s, &%sView, &%sPtr)", name, name, name)
	}
}

// moduleInit renders PyInit_<module>: the exception, the python classes and the constants.
func (g *PythonGenerator) moduleInit(ctx *binding.Context, structs []*binding.Struct, fw *fileWriter) {
	d := ctx.Dialect
	fw.w("PyMODINIT_FUNC PyInit_%s(void)\n{\n", d.Python.Module)
	fw.w("\tPyObject* module;\n\tPyObject* moduleDict;\n\tPyObject* v = NULL;\n\n")
	fw.w("\tmodule = PyModule_Create(&moduleDef);\n\tif (module == NULL)\n\t\treturn(NULL);\n")
	fw.w("\tmoduleDict = PyModule_GetDict(module);\n\n")
	fw.w("\tCryptException = PyErr_NewException(\"%s.CryptException\", NULL, NULL);\n", d.Python.Module)
	fw.w("\tPyDict_SetItemString(moduleDict, \"CryptException\", CryptException);\n\n")

	handle := newFileWriter("")
	handle.execute("python_handle", map[string]string{
		"Prefix":             d.ConstantPrefix,
		"GetAttribute":       d.FunctionPrefix + "GetAttribute",
		"GetAttributeString": d.FunctionPrefix + "GetAttributeString",
		"SetAttribute":       d.FunctionPrefix + "SetAttribute",
		"SetAttributeString": d.FunctionPrefix + "SetAttributeString",
	})
	if handle.err != nil {
		fw.err = handle.err
		return
	}
	sources := []string{handle.String()}
	for _, s := range structs {
		sources = append(sources, pythonStructClass(s))
	}
	fw.w("\tPyDict_SetItemString(moduleDict, \"__builtins__\", PyEval_GetBuiltins());\n")
	fw.w("\tv = PyRun_String(\n%s,\n\t\tPy_file_input, moduleDict, moduleDict);\n", cStringLines("\t\t", strings.Join(sources, "\n")))
	fw.w("\tif (v == NULL)\n\t\treturn(NULL);\n\tPy_DECREF(v);\n\n")
	fw.w("\tcryptHandleClass = PyMapping_GetItemString(moduleDict, \"CryptHandle\");\n")
	for _, s := range structs {
		fw.w("\t%s = PyMapping_GetItemString(moduleDict, %q);\n", structClassVar(s), s.Name)
	}
	fw.w("\n")

	for _, item := range ctx.Items {
		var constants []*binding.Constant
		switch item := item.(type) {
		case *binding.Enum:
			constants = item.Constants
		case *binding.Define:
			constants = []*binding.Constant{item.Constant}
		}
		for _, c := range constants {
			fw.w("\tv = Py_BuildValue(\"i\", %s);\n", c.Text)
			fw.w("\tPyDict_SetItemString(moduleDict, %q, v);\n\tPy_DECREF(v);\n", c.CName)
		}
	}
	fw.w("\n\treturn(module);\n}\n")
}

// pythonStructClass renders the python class of a returned struct, whose constructor takes the
// members in order.
func pythonStructClass(s *binding.Struct) string {
	names := make([]string, len(s.Fields))
	for ii, field := range s.Fields {
		names[ii] = field.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "class %s:\n", s.Name)
	if len(names) == 0 {
		b.WriteString("    pass\n")
		return b.String()
	}
	fmt.Fprintf(&b, "    def __init__(self, %s):\n", strings.Join(names, ", "))
	for _, name := range names {
		fmt.Fprintf(&b, "        self.%s = %s\n", name, name)
	}
	return b.String()
}

// cStringLines renders text as a sequence of C string literals, one per line.
func cStringLines(indent, text string) string {
	lines := strings.SplitAfter(strings.TrimRight(text, "\n")+"\n", "\n")
	quoted := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			quoted = append(quoted, indent+strconv.Quote(line))
		}
	}
	return strings.Join(quoted, "\n")
}
