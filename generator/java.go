package generator

import (
	"path"
	"strings"

	"github.com/gomlx/cryptbind"
	"github.com/gomlx/cryptbind/binding"
	"github.com/pkg/errors"
)

func init() {
	Register(cryptbind.Java.String(), func() Generator { return &JavaGenerator{} })
}

// JavaGenerator produces the Java class with the constants and native methods, its exception
// class, one value class per returned struct and the JNI glue implementing the native methods.
type JavaGenerator struct{}

func (g *JavaGenerator) Name() string { return cryptbind.Java.String() }

// Java types used by the declarations.
var (
	javaNIOTypes    = typeNames{Buffer: "java.nio.ByteBuffer", String: "String"}
	javaArrayTypes  = typeNames{Buffer: "byte[]", String: "String"}
	javaNIOExprs    = wrapperExprs{Length: "%s == null ? 0 : %s.capacity()"}
	javaArrayExprs  = wrapperExprs{Length: "%s == null ? 0 : %s.length"}
	javaStringExprs = wrapperExprs{
		Length:       javaArrayExprs.Length,
		StringLength: "%s == null ? 0 : %s.getBytes().length",
		StringBytes:  "%s == null ? null : %s.getBytes()",
	}
)

const (
	javaNativeModifiers = "public static native "
	javaModifiers       = "public static "
	javaThrows          = " throws CryptException"
)

// bufferAccess tells how the JNI glue gets to the contents of the buffers of a native method.
type bufferAccess string

const (
	noBuffers    bufferAccess = ""
	nioBuffers   bufferAccess = "NIO"
	arrayBuffers bufferAccess = "Array"
)

// javaNative is a native method of the java class, implemented by the JNI glue.
type javaNative struct {
	f    *binding.Function
	decl declaration
	tag  bufferAccess

	// pollType is set for the overload of the poll type function.
	pollType bool
}

// javaNatives lists the native methods of f: one taking ByteBuffers and one taking byte arrays
// if f has buffers, a single one otherwise, plus the poll type overload.
func javaNatives(d *cryptbind.Dialect, f *binding.Function) []*javaNative {
	base := declaration{Modifiers: javaNativeModifiers, Return: returnType(f), Name: f.Name, Throws: javaThrows}
	var natives []*javaNative
	if len(f.Buffers()) == 0 {
		decl := base
		decl.Params = fullParams(f, javaNIOTypes)
		natives = append(natives, &javaNative{f: f, decl: decl, tag: noBuffers})
	} else {
		for _, variant := range []struct {
			types typeNames
			tag   bufferAccess
		}{{javaNIOTypes, nioBuffers}, {javaArrayTypes, arrayBuffers}} {
			decl := base
			decl.Params = fullParams(f, variant.types)
			natives = append(natives, &javaNative{f: f, decl: decl, tag: variant.tag})
		}
	}
	if _, _, ok := pollTypeBuffer(d, f); ok {
		decl := base
		decl.Return = "void"
		decl.Params = []declParam{{Type: "int", Name: "pollType"}}
		natives = append(natives, &javaNative{f: f, decl: decl, tag: noBuffers, pollType: true})
	}
	return natives
}

// classPath returns the directory of the java package.
func (g *JavaGenerator) classPath(opts cryptbind.JavaOptions) string {
	return strings.ReplaceAll(opts.Package, ".", "/")
}

func (g *JavaGenerator) Generate(ctx *binding.Context) ([]*OutputFile, error) {
	opts := ctx.Dialect.Java
	if opts.Package == "" || opts.Class == "" {
		return nil, errors.New("java package and class must be set")
	}
	dir := g.classPath(opts)
	writers := []*fileWriter{g.classFile(ctx, dir), g.exceptionFile(ctx, dir)}
	for _, s := range ctx.ReturnedStructs() {
		writers = append(writers, g.valueClassFile(ctx, dir, s))
	}
	writers = append(writers, jniFile(ctx))

	files := make([]*OutputFile, 0, len(writers))
	for _, fw := range writers {
		f, err := fw.file()
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// classFile renders the class with the constants and the methods.
func (g *JavaGenerator) classFile(ctx *binding.Context, dir string) *fileWriter {
	opts := ctx.Dialect.Java
	body := newFileWriter("")
	forEachItem(ctx, body, func(item binding.Item) {
		switch item := item.(type) {
		case *binding.Comment:
			body.w("%s\n", item.Text)
		case *binding.Enum:
			if item.TypeName != "" {
				body.w("// %s\n", item.TypeName)
			}
			namePad, valuePad := padWidths(item.Constants)
			for _, c := range item.Constants {
				body.w("%s\n", constantLine("public static final int ", c, namePad, valuePad, "// %s"))
			}
		case *binding.Define:
			body.w("%s\n", constantLine("public static final int ", item.Constant, defineNamePad, defineValuePad, "// %s"))
		case *binding.Commented:
			body.w("%s\n", commentedOut(item))
		case *binding.Function:
			body.w("%s\n", g.methods(ctx.Dialect, item))
		}
	})

	fw := newFileWriter(path.Join(dir, opts.Class+".java"))
	fw.w("package %s;\n\nimport java.nio.*;\n\npublic class %s\n{\n", opts.Package, opts.Class)
	fw.lines("\t", strings.TrimRight(body.String(), "\n"))
	fw.w("};\n")
	return fw
}

// methods renders the native methods of f and their convenience overloads.
func (g *JavaGenerator) methods(d *cryptbind.Dialect, f *binding.Function) string {
	var parts []string
	var pollType *javaNative
	for _, native := range javaNatives(d, f) {
		if native.pollType {
			pollType = native
			continue
		}
		parts = append(parts, native.decl.prototype())
	}

	base := declaration{Modifiers: javaModifiers, Return: returnType(f), Name: f.Name, Throws: javaThrows}
	if f.HasWrapper() {
		decl, call := wrapper(f, base, javaNIOTypes, plainWrapper, javaNIOExprs)
		parts = append(parts, decl.oneLiner(call))
		decl, call = wrapper(f, base, javaArrayTypes, plainWrapper, javaArrayExprs)
		parts = append(parts, decl.oneLiner(call))
	}
	if hasStringWrapper(f) {
		decl, call := wrapper(f, base, javaArrayTypes, stringWrapper, javaStringExprs)
		parts = append(parts, decl.oneLiner(call))
	}
	if params, ok := stringAccessorParams(d, f); ok {
		parts = append(parts, javaStringAccessor(f, params))
	}
	if pollType != nil {
		parts = append(parts, pollType.decl.prototype())
	}
	return strings.Join(parts, "\n")
}

// javaStringAccessor renders the overload of the string attribute function that returns a String,
// querying the length first.
func javaStringAccessor(f *binding.Function, params []*binding.Param) string {
	decl := declaration{Modifiers: javaModifiers, Return: "String", Name: f.Name, Throws: javaThrows}
	args := make([]string, 0, len(params)+1)
	for _, p := range params {
		decl.Params = append(decl.Params, declParamOf(p, javaArrayTypes))
		args = append(args, p.Name)
	}
	call := func(buffer string) string {
		return f.Name + "(" + strings.Join(append(args, buffer), ", ") + ")"
	}
	var b strings.Builder
	b.WriteString(decl.header() + "\n{\n")
	b.WriteString("\tint length = " + call("(byte[])null") + ";\n")
	b.WriteString("\tbyte[] bytes = new byte[length];\n")
	b.WriteString("\tlength = " + call("bytes") + ";\n")
	b.WriteString("\treturn new String(bytes, 0, length);\n}")
	return b.String()
}

func (g *JavaGenerator) exceptionFile(ctx *binding.Context, dir string) *fileWriter {
	fw := newFileWriter(path.Join(dir, "CryptException.java"))
	fw.execute("java_exception", map[string]any{
		"Package": ctx.Dialect.Java.Package,
		"Class":   ctx.Dialect.Java.Class,
		"Errors":  ctx.Errors,
	})
	return fw
}

// javaFieldType maps struct members to Java types.
func javaFieldType(kind binding.FieldKind) string {
	switch kind {
	case binding.FieldString:
		return "String"
	case binding.FieldBytes:
		return "byte[]"
	default:
		return "int"
	}
}

func (g *JavaGenerator) valueClassFile(ctx *binding.Context, dir string, s *binding.Struct) *fileWriter {
	fw := newFileWriter(path.Join(dir, s.Name+".java"))
	view := newStructView(s, javaFieldType)
	fw.execute("java_struct", map[string]any{
		"Package": ctx.Dialect.Java.Package,
		"Name":    view.Name,
		"Fields":  view.Fields,
	})
	return fw
}
