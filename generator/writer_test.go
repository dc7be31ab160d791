package generator

import (
	"testing"

	"github.com/gomlx/cryptbind/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantLine(t *testing.T) {
	c := &binding.Constant{Name: "ALGO_AES", Text: "8", Comment: "AES"}
	assert.Equal(t, "public static final int ALGO_AES   = 8;  // AES",
		constantLine("public static final int ", c, 10, 2, "// %s"))

	c.Comment = ""
	assert.Equal(t, "public const int ALGO_AES   = 8;",
		constantLine("public const int ", c, 10, 2, "// %s"))

	namePad, valuePad := padWidths([]*binding.Constant{
		{Name: "A", Text: "100"},
		{Name: "LONGER", Text: "1"},
	})
	assert.Equal(t, 6, namePad)
	assert.Equal(t, 3, valuePad)
}

func TestCommentedOut(t *testing.T) {
	assert.Equal(t, "//CRYPTBIND - NOT NEEDED: typedef int CRYPT_HANDLE;",
		commentedOut(&binding.Commented{Kind: binding.NotNeeded, Text: "typedef int CRYPT_HANDLE;"}))
	assert.Equal(t, "//CRYPTBIND - NOT SUPPORTED:\n//#define f( x ) \\\n//\t( x )",
		commentedOut(&binding.Commented{Kind: binding.NotSupported, Text: "#define f( x ) \\\n\t( x )"}))
}

func TestIndentLines(t *testing.T) {
	assert.Equal(t, "\ta\n\n\tb", indentLines("\t", "a\n\nb"))
	assert.Equal(t, "a\nb", indentLines("", "a\nb"))
}

func TestFileWriter(t *testing.T) {
	fw := newFileWriter("out.txt")
	fw.w("%s=%d\n", "x", 1)
	fw.lines("  ", "a\nb")
	f, err := fw.file()
	require.NoError(t, err)
	assert.Equal(t, "out.txt", f.Path)
	assert.Equal(t, "x=1\n  a\n  b\n", string(f.Content))

	// A failed template sticks: later writes are dropped and file reports the error.
	fw = newFileWriter("broken.txt")
	fw.execute("no_such_template", nil)
	fw.w("ignored")
	assert.Empty(t, fw.String())
	_, err = fw.file()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.txt")
}

func TestSignatureHelpers(t *testing.T) {
	ctx := analyseFixture(t)
	d := ctx.Dialect

	getAttr := ctx.Function("GetAttributeString")
	require.NotNil(t, getAttr)
	assert.True(t, probesLength(d, getAttr))
	assert.Equal(t, "valueLength", bufferLength(d, getAttr, paramIndex(getAttr, getAttr.Buffers()[0])))
	params, ok := stringAccessorParams(d, getAttr)
	require.True(t, ok)
	assert.Len(t, params, 2)

	popData := ctx.Function("PopData")
	assert.False(t, probesLength(d, popData))
	assert.Equal(t, "length", bufferLength(d, popData, 1))

	checkSig := ctx.Function("CheckSignature")
	assert.Equal(t, unknownLength, bufferLength(d, checkSig, 0))

	addRandom := ctx.Function("AddRandom")
	buffer, pollType, ok := pollTypeBuffer(d, addRandom)
	require.True(t, ok)
	assert.Equal(t, "randomData", buffer.Name)
	assert.Equal(t, "randomDataLength", pollType.Name)
	_, _, ok = pollTypeBuffer(d, popData)
	assert.False(t, ok)

	assert.True(t, hasStringWrapper(addRandom))
	assert.False(t, hasStringWrapper(ctx.Function("Encrypt")))

	query := ctx.Struct("CRYPT_QUERY_INFO")
	assert.Equal(t, "processStatusReturnCryptQueryInfo", structHelperName(query))
	assert.Equal(t, "cryptQueryInfoClass", structClassVar(query))
}

func TestWrapper(t *testing.T) {
	ctx := analyseFixture(t)
	base := declaration{Modifiers: "public static ", Return: "void", Name: "AddRandom"}
	f := ctx.Function("AddRandom")

	decl, call := wrapper(f, base, javaArrayTypes, plainWrapper, javaArrayExprs)
	require.Len(t, decl.Params, 1)
	assert.Equal(t, "byte[]", decl.Params[0].Type)
	assert.Equal(t, "AddRandom(randomData, 0, randomData == null ? 0 : randomData.length)", call)

	decl, call = wrapper(f, base, javaArrayTypes, stringWrapper, javaStringExprs)
	assert.Equal(t, "String", decl.Params[0].Type)
	assert.Equal(t, "AddRandom(randomData == null ? null : randomData.getBytes(), 0, randomData == null ? 0 : randomData.getBytes().length)", call)
	assert.Equal(t, "public static void AddRandom(\n"+paramWhiteSpace+"String randomData\n"+paramWhiteSpace+") { AddRandom(x); }",
		decl.oneLiner("AddRandom(x)"))

	// Dual duty buffers only get their offset elided.
	_, call = wrapper(ctx.Function("Encrypt"), base, javaArrayTypes, plainWrapper, javaArrayExprs)
	assert.Equal(t, "Encrypt(cryptContext, buffer, 0, length)", call)
}
