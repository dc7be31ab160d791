package generator

import (
	"fmt"
	"strings"

	"github.com/gomlx/cryptbind"
	"github.com/gomlx/cryptbind/binding"
)

// jniFileName is the name of the JNI glue source, also used in its diagnostics.
const jniFileName = "java_jni.c"

// jniDescriptors maps the Java parameter types to JNI type descriptors.
var jniDescriptors = map[string]string{
	"int":                 "I",
	"String":              "Ljava/lang/String;",
	"java.nio.ByteBuffer": "Ljava/nio/ByteBuffer;",
	"byte[]":              "[B",
}

// jniTypes maps the Java parameter types to the C types of the JNI function arguments.
var jniTypes = map[string]string{
	"int":                 "jint",
	"String":              "jstring",
	"java.nio.ByteBuffer": "jobject",
	"byte[]":              "jbyteArray",
}

// jniMangle escapes a Java name (with '.' or '/' separators) for use in a JNI symbol.
func jniMangle(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '.' || r == '/':
			b.WriteByte('_')
		case r == '_':
			b.WriteString("_1")
		case r == ';':
			b.WriteString("_2")
		case r == '[':
			b.WriteString("_3")
		case r < 128 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "_0%04x", r)
		}
	}
	return b.String()
}

// jniSymbol returns the name of the C function implementing a native method. Overloaded methods
// use the long form, with the mangled argument signature.
func jniSymbol(opts cryptbind.JavaOptions, decl declaration, overloaded bool) string {
	symbol := "Java_" + jniMangle(opts.Package+"."+opts.Class) + "_" + jniMangle(decl.Name)
	if overloaded {
		var sig strings.Builder
		for _, p := range decl.Params {
			sig.WriteString(jniDescriptors[p.Type])
		}
		symbol += "__" + jniMangle(sig.String())
	}
	return symbol
}

// jniConstantPrefix is the prefix javac gives to the constants of the class in the JNI header.
func jniConstantPrefix(opts cryptbind.JavaOptions) string {
	return jniMangle(opts.Package+"."+opts.Class) + "_"
}

// jniFile renders the C glue implementing the native methods of the java class.
func jniFile(ctx *binding.Context) *fileWriter {
	d := ctx.Dialect
	opts := d.Java
	fw := newFileWriter(jniFileName)
	if opts.Include != "" {
		fw.w("#include %q\n\n", opts.Include)
	}
	if opts.GuardMacro != "" {
		fw.w("#ifdef %s\n\n", opts.GuardMacro)
	}
	fw.w("#include <jni.h>\n#include <stdio.h>  //printf\n#include <stdlib.h> //malloc, free\n#include <string.h> //memcpy\n\n")

	prefix := jniConstantPrefix(opts)
	for _, item := range ctx.Items {
		var constants []*binding.Constant
		switch item := item.(type) {
		case *binding.Enum:
			constants = item.Constants
		case *binding.Define:
			constants = []*binding.Constant{item.Constant}
		}
		for _, c := range constants {
			fw.w("#undef %s%s\n#define %s%s %dL\n", prefix, c.Name, prefix, c.Name, c.Value)
		}
	}
	fw.w("\n")

	fw.execute("jni_helpers", map[string]any{
		"ExceptionClass": strings.ReplaceAll(opts.Package, ".", "/") + "/CryptException",
		"File":           jniFileName,
	})
	for _, s := range ctx.ReturnedStructs() {
		view := newStructView(s, javaFieldType)
		var sig strings.Builder
		sig.WriteString("(")
		for _, field := range view.Fields {
			sig.WriteString(jniDescriptors[field.Type])
		}
		sig.WriteString(")V")
		fw.w("\n")
		fw.execute("jni_struct", map[string]any{
			"Name":      view.Name,
			"Helper":    view.Helper,
			"Fields":    view.Fields,
			"ClassPath": strings.ReplaceAll(opts.Package, ".", "/") + "/" + s.Name,
			"Signature": sig.String(),
			"File":      jniFileName,
		})
	}

	var natives []*javaNative
	count := make(map[string]int)
	for _, f := range ctx.Functions {
		for _, native := range javaNatives(d, f) {
			natives = append(natives, native)
			count[native.decl.Name]++
		}
	}
	for _, native := range natives {
		fw.w("\n%s\n", jniFunction(d, native, count[native.decl.Name] > 1))
	}

	if opts.GuardMacro != "" {
		fw.w("\n#endif /* %s */\n", opts.GuardMacro)
	}
	return fw
}

// jniFunction renders the C function implementing a native method.
func jniFunction(d *cryptbind.Dialect, native *javaNative, overloaded bool) string {
	decl := native.decl
	cReturn := "jint"
	switch decl.Return {
	case "void":
		cReturn = "void"
	case "int":
	default:
		cReturn = "jobject"
	}
	args := []string{"JNIEnv *env", "jclass cryptClass"}
	for _, p := range decl.Params {
		args = append(args, jniTypes[p.Type]+" "+p.Name)
	}

	var body []string
	if native.pollType {
		body = jniPollTypeBody(d, native.f)
	} else {
		body = jniBody(d, native.f, native.tag)
	}
	return fmt.Sprintf("JNIEXPORT %s JNICALL %s(%s)\n{\n%s\n}",
		cReturn, jniSymbol(d.Java, decl, overloaded), strings.Join(args, ", "),
		indentLines("\t", strings.Join(body, "\n")))
}

// jniBody returns the lines of the glue code calling f: acquire the strings, probe the length of
// the output buffers, check and acquire the buffers, call, release everything and convert the status.
func jniBody(d *cryptbind.Dialect, f *binding.Function, tag bufferAccess) []string {
	body := []string{"int status = 0;"}
	if r := f.Returned; r != nil {
		if f.ReturnStruct != nil {
			body = append(body, fmt.Sprintf("%s %s;", r.Type, r.Name))
		} else {
			body = append(body, fmt.Sprintf("jint %s = 0;", r.Name))
		}
	}
	if f.Discarded != nil {
		body = append(body, fmt.Sprintf("jint %s = 0;", f.Discarded.Name))
	}
	pointers := f.Pointers()
	for _, p := range pointers {
		body = append(body, fmt.Sprintf("jbyte* %sPtr = 0;", p.Name))
	}
	goTo := func(cond string) []string { return []string{"if (!" + cond + ")", "\tgoto finish;"} }

	// C arguments, for the call and for the length probe, where the output buffers are NULL.
	arg := func(probe bool) func(p *binding.Param) string {
		return func(p *binding.Param) string {
			switch {
			case f.IsReturnedOrDiscarded(p):
				return "&" + p.Name
			case p.IsBuffer() && probe && p.IsOutput:
				return "NULL"
			case p.IsBuffer():
				return fmt.Sprintf("%sPtr + %sOffset", p.Name, p.Name)
			case p.IsString():
				return p.Name + "Ptr"
			default:
				return p.Name
			}
		}
	}

	if len(pointers) > 0 {
		body = append(body, "")
		if strs := f.Strings(); len(strs) > 0 {
			for _, p := range strs {
				body = append(body, goTo(fmt.Sprintf("getPointerString(env, %s, &%sPtr)", p.Name, p.Name))...)
			}
			body = append(body, "")
		}
		if probesLength(d, f) {
			body = append(body, goTo(fmt.Sprintf("processStatus(env, %s(%s))", f.CName, callArgs(f, arg(true))))...)
			body = append(body, "")
		} else if len(f.OutputBuffers()) > 0 {
			body = append(body, "// The length of the output is given explicitly, there is no length query.", "")
		}
		if buffers := f.Buffers(); len(buffers) > 0 {
			for _, p := range buffers {
				length := bufferLength(d, f, paramIndex(f, p))
				body = append(body, goTo(fmt.Sprintf("checkIndices%s(env, %s, %sOffset, %s)", tag, p.Name, p.Name, length))...)
			}
			body = append(body, "")
			for _, p := range buffers {
				body = append(body, goTo(fmt.Sprintf("getPointer%s(env, %s, &%sPtr)", tag, p.Name, p.Name))...)
			}
			body = append(body, "")
		}
	} else {
		body = append(body, "")
	}

	body = append(body, fmt.Sprintf("status = %s(%s);", f.CName, callArgs(f, arg(false))), "")
	if len(pointers) > 0 {
		body = append(body, "finish:")
		for _, p := range f.Buffers() {
			body = append(body, fmt.Sprintf("releasePointer%s(env, %s, %sPtr);", tag, p.Name, p.Name))
		}
		for _, p := range f.Strings() {
			body = append(body, fmt.Sprintf("releasePointerString(env, %s, %sPtr);", p.Name, p.Name))
		}
	}
	switch {
	case f.Returned == nil:
		body = append(body, "processStatus(env, status);")
	case f.ReturnStruct != nil:
		body = append(body, fmt.Sprintf("return(%s(env, status, %s));", structHelperName(f.ReturnStruct), f.Returned.Name))
	default:
		body = append(body, "processStatus(env, status);", fmt.Sprintf("return(%s);", f.Returned.Name))
	}
	return body
}

// jniPollTypeBody returns the lines of the glue code of the poll type overload: the buffer is
// NULL, and the poll type takes the place of its length.
func jniPollTypeBody(d *cryptbind.Dialect, f *binding.Function) []string {
	buffer, pollType, _ := pollTypeBuffer(d, f)
	args := callArgs(f, func(p *binding.Param) string {
		switch p {
		case buffer:
			return "NULL"
		case pollType:
			return "pollType"
		default:
			return p.Name
		}
	})
	return []string{
		"int status = 0;",
		"",
		fmt.Sprintf("status = %s(%s);", f.CName, args),
		"",
		"processStatus(env, status);",
	}
}
