package generator

import (
	"fmt"
	"strings"

	"github.com/gomlx/cryptbind"
	"github.com/gomlx/cryptbind/binding"
	"github.com/pkg/errors"
)

func init() {
	Register(cryptbind.Net.String(), func() Generator { return &NetGenerator{} })
}

// NetGenerator produces a single C# file: the class with the constants and methods calling the
// library through P/Invoke, the value classes of the returned structs and CryptException.
type NetGenerator struct{}

func (g *NetGenerator) Name() string { return cryptbind.Net.String() }

var (
	netTypes = typeNames{Buffer: "byte[]", String: "String"}
	netExprs = wrapperExprs{
		Length:       "%s == null ? 0 : %s.Length",
		StringLength: "%s == null ? 0 : new UTF8Encoding().GetByteCount(%s)",
		StringBytes:  "%s == null ? null : new UTF8Encoding().GetBytes(%s)",
	}
)

const netModifiers = "public static "

func (g *NetGenerator) Generate(ctx *binding.Context) ([]*OutputFile, error) {
	opts := ctx.Dialect.Net
	if opts.Namespace == "" || opts.Class == "" || opts.Library == "" {
		return nil, errors.New("net namespace, class and library must be set")
	}
	fw := newFileWriter(opts.Namespace + ".cs")
	fw.w("using System;\nusing System.Runtime.InteropServices;\nusing System.Text;\n\nnamespace %s\n{\n\n", opts.Namespace)
	fw.w("public class %s\n{\n", opts.Class)
	fw.lines("\t", strings.TrimRight(g.classBody(ctx), "\n"))
	fw.w("\n")
	for _, f := range ctx.Functions {
		fw.w("\t[DllImport(%q, EntryPoint=%q)]\n", opts.Library, f.CName)
		fw.w("\tprivate static extern int %s(%s);\n\n", netWrappedName(f), netExternParams(f))
	}
	helpers := newFileWriter("")
	helpers.execute("net_helpers", nil)
	fw.lines("\t", strings.TrimRight(helpers.String(), "\n"))
	fw.w("}\n\n")

	for _, s := range ctx.ReturnedStructs() {
		fw.execute("net_struct", newStructView(s, netFieldType))
		fw.w("\n")
	}
	fw.execute("net_exception", map[string]any{
		"Class":  opts.Class,
		"Errors": uniqueErrors(ctx.Errors),
	})
	fw.w("\n}\n")

	if helpers.err != nil {
		return nil, helpers.err
	}
	f, err := fw.file()
	if err != nil {
		return nil, err
	}
	return []*OutputFile{f}, nil
}

// uniqueErrors drops the error mappings whose value was already listed: C# switch labels must
// be distinct.
func uniqueErrors(mappings []binding.ErrorMapping) []binding.ErrorMapping {
	seen := make(map[int64]bool, len(mappings))
	var unique []binding.ErrorMapping
	for _, e := range mappings {
		if seen[e.Value] {
			continue
		}
		seen[e.Value] = true
		unique = append(unique, e)
	}
	return unique
}

// netFieldType maps struct members to C# types.
func netFieldType(kind binding.FieldKind) string {
	switch kind {
	case binding.FieldString:
		return "String"
	case binding.FieldBytes:
		return "byte[]"
	default:
		return "int"
	}
}

func netWrappedName(f *binding.Function) string {
	return "wrapped_" + f.Name
}

// netExternParams renders the parameters of the P/Invoke declaration: pointers of any kind are
// passed as IntPtr.
func netExternParams(f *binding.Function) string {
	params := make([]string, len(f.Raw))
	for ii, p := range f.Raw {
		if p.IsPointer {
			params[ii] = "IntPtr " + p.Name
		} else {
			params[ii] = "int " + p.Name
		}
	}
	return strings.Join(params, ", ")
}

// classBody renders the constants and methods of the class, following the layout of the header.
func (g *NetGenerator) classBody(ctx *binding.Context) string {
	d := ctx.Dialect
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
				body.w("%s\n", constantLine("public const int ", c, namePad, valuePad, "// %s"))
			}
		case *binding.Define:
			body.w("%s\n", constantLine("public const int ", item.Constant, defineNamePad, defineValuePad, "// %s"))
		case *binding.Commented:
			body.w("%s\n", commentedOut(item))
		case *binding.Function:
			body.w("%s\n", g.methods(d, item))
		}
	})
	return body.String()
}

// methods renders the method of f with its marshalling body, and its convenience overloads.
func (g *NetGenerator) methods(d *cryptbind.Dialect, f *binding.Function) string {
	base := declaration{Modifiers: netModifiers, Return: returnType(f), Name: f.Name}
	decl := base
	decl.Params = fullParams(f, netTypes)
	parts := []string{decl.header() + "\n{\n" + indentLines("\t", strings.Join(netBody(d, f), "\n")) + "\n}"}

	if f.HasWrapper() {
		decl, call := wrapper(f, base, netTypes, plainWrapper, netExprs)
		parts = append(parts, decl.oneLiner(call))
	}
	if hasStringWrapper(f) {
		decl, call := wrapper(f, base, netTypes, stringWrapper, netExprs)
		parts = append(parts, decl.oneLiner(call))
	}
	if params, ok := stringAccessorParams(d, f); ok {
		parts = append(parts, netStringAccessor(f, params))
	}
	if buffer, pollType, ok := pollTypeBuffer(d, f); ok {
		decl := base
		decl.Return = "void"
		decl.Params = []declParam{{Type: "int", Name: "pollType"}}
		args := callArgs(f, func(p *binding.Param) string {
			switch p {
			case buffer:
				return "IntPtr.Zero"
			case pollType:
				return "pollType"
			default:
				return p.Name
			}
		})
		parts = append(parts, fmt.Sprintf("%s\n{\n\tprocessStatus(%s(%s));\n}", decl.header(), netWrappedName(f), args))
	}
	return strings.Join(parts, "\n")
}

// netBody returns the lines of the method calling f: allocate the returned values, pin the
// strings, probe the length of the output buffers, check and pin the buffers, call and convert
// the status. Everything allocated is freed in a finally block.
func netBody(d *cryptbind.Dialect, f *binding.Function) []string {
	var pre, body, cleanup []string
	r := f.Returned
	if r != nil {
		if f.ReturnStruct != nil {
			pre = append(pre,
				fmt.Sprintf("IntPtr %sPtr = Marshal.AllocHGlobal(Marshal.SizeOf(typeof(%s)));", r.Name, r.Type),
				fmt.Sprintf("%s %s = new %s();", r.Type, r.Name, r.Type))
		} else {
			pre = append(pre, fmt.Sprintf("IntPtr %sPtr = Marshal.AllocHGlobal(4);", r.Name))
		}
		cleanup = append(cleanup, fmt.Sprintf("Marshal.FreeHGlobal(%sPtr);", r.Name))
	}
	if f.Discarded != nil {
		pre = append(pre, fmt.Sprintf("IntPtr %sPtr = Marshal.AllocHGlobal(4);", f.Discarded.Name))
		cleanup = append(cleanup, fmt.Sprintf("Marshal.FreeHGlobal(%sPtr);", f.Discarded.Name))
	}
	for _, p := range f.Pointers() {
		pre = append(pre,
			fmt.Sprintf("GCHandle %sHandle = new GCHandle();", p.Name),
			fmt.Sprintf("IntPtr %sPtr = IntPtr.Zero;", p.Name))
		if p.IsString() {
			pre = append(pre, fmt.Sprintf(`byte[] %sArray = %s == null ? null : new UTF8Encoding().GetBytes(%s + "\0");`, p.Name, p.Name, p.Name))
		}
		cleanup = append(cleanup, fmt.Sprintf("releasePointer(%sHandle);", p.Name))
	}

	arg := func(probe bool) func(p *binding.Param) string {
		return func(p *binding.Param) string {
			switch {
			case p.IsBuffer() && probe && p.IsOutput:
				return "IntPtr.Zero"
			case p.IsPointer || f.IsReturnedOrDiscarded(p):
				return p.Name + "Ptr"
			default:
				return p.Name
			}
		}
	}
	for _, p := range f.Strings() {
		body = append(body, fmt.Sprintf("getPointer(%sArray, 0, ref %sHandle, ref %sPtr);", p.Name, p.Name, p.Name))
	}
	declared := false
	if probesLength(d, f) {
		body = append(body,
			fmt.Sprintf("processStatus(%s(%s));", netWrappedName(f), callArgs(f, arg(true))),
			fmt.Sprintf("int %s = Marshal.ReadInt32(%sPtr);", r.Name, r.Name))
		declared = true
	}
	for _, p := range f.Buffers() {
		length := bufferLength(d, f, paramIndex(f, p))
		body = append(body, fmt.Sprintf("checkIndices(%s, %sOffset, %s);", p.Name, p.Name, length))
		body = append(body, fmt.Sprintf("getPointer(%s, %sOffset, ref %sHandle, ref %sPtr);", p.Name, p.Name, p.Name, p.Name))
	}

	call := fmt.Sprintf("%s(%s)", netWrappedName(f), callArgs(f, arg(false)))
	switch {
	case r == nil:
		body = append(body, fmt.Sprintf("processStatus(%s);", call))
	case f.ReturnStruct != nil:
		body = append(body,
			fmt.Sprintf("processStatus(%s);", call),
			fmt.Sprintf("Marshal.PtrToStructure(%sPtr, %s);", r.Name, r.Name),
			fmt.Sprintf("return %s;", r.Name))
	case d.ReportsExtraInfo(f.Name):
		read := fmt.Sprintf("%s = Marshal.ReadInt32(%sPtr);", r.Name, r.Name)
		if !declared {
			read = "int " + read
		}
		body = append(body,
			fmt.Sprintf("int status = %s;", call),
			read,
			fmt.Sprintf("processStatus(status, %s);", r.Name),
			fmt.Sprintf("return %s;", r.Name))
	default:
		body = append(body,
			fmt.Sprintf("processStatus(%s);", call),
			fmt.Sprintf("return Marshal.ReadInt32(%sPtr);", r.Name))
	}

	if len(cleanup) == 0 {
		return append(pre, body...)
	}
	lines := append(pre, "try", "{")
	for _, line := range body {
		lines = append(lines, "\t"+line)
	}
	lines = append(lines, "}", "finally", "{")
	for _, line := range cleanup {
		lines = append(lines, "\t"+line)
	}
	return append(lines, "}")
}

// netStringAccessor renders the overload of the string attribute function that returns a String,
// querying the length first.
func netStringAccessor(f *binding.Function, params []*binding.Param) string {
	decl := declaration{Modifiers: netModifiers, Return: "String", Name: f.Name}
	args := make([]string, 0, len(params)+1)
	for _, p := range params {
		decl.Params = append(decl.Params, declParamOf(p, netTypes))
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
	b.WriteString("\treturn new UTF8Encoding().GetString(bytes, 0, length);\n}")
	return b.String()
}
