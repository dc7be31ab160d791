package binding

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/gomlx/cryptbind"
	"github.com/gomlx/cryptbind/header"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyseFixture(t *testing.T) *Context {
	src, err := os.ReadFile("../testdata/cryptlib_mini.h")
	require.NoError(t, err)
	dialect := cryptbind.DefaultDialect()
	doc, err := header.Parse(string(src), dialect)
	require.NoError(t, err)
	ctx, err := Analyze(doc, dialect)
	require.NoError(t, err)
	return ctx
}

func analyseSource(src string, dialect *cryptbind.Dialect) (*Context, error) {
	if dialect == nil {
		dialect = cryptbind.DefaultDialect()
	}
	doc, err := header.Parse(src, dialect)
	if err != nil {
		return nil, err
	}
	return Analyze(doc, dialect)
}

func paramNames(params []*Param) []string {
	var names []string
	for _, p := range params {
		names = append(names, p.Name)
	}
	return names
}

func TestAnalyzeConstants(t *testing.T) {
	ctx := analyseFixture(t)
	assert.Equal(t, []string{"CRYPT_ALGO_TYPE", "CRYPT_KEYID_TYPE", "CRYPT_ATTRIBUTE_TYPE"}, ctx.EnumTypes)
	assert.Equal(t, []string{"CRYPT_CONTEXT", "CRYPT_CERTIFICATE", "CRYPT_ENVELOPE", "CRYPT_HANDLE"}, ctx.IntTypes)

	require.Len(t, ctx.Enums, 4)
	algos := ctx.Enums[0]
	var values []int64
	for _, c := range algos.Constants {
		values = append(values, c.Value)
	}
	assert.Equal(t, []int64{0, 1, 2, 8, 19, 20, 20, 39}, values)
	assert.Equal(t, "ALGO_3DES", algos.Constants[2].Name)
	assert.Equal(t, "CRYPT_ALGO_3DES", algos.Constants[2].CName)
	assert.Equal(t, "19", algos.Constants[4].Text)
	assert.Equal(t, "Alternate name", algos.Constants[6].Comment)

	// Simple enums come after all the typedef enums.
	reasons := ctx.Enums[3]
	assert.Empty(t, reasons.TypeName)
	values = nil
	for _, c := range reasons.Constants {
		values = append(values, c.Value)
	}
	assert.Equal(t, []int64{0, 1, 8, 9, 20, 21}, values)

	var names, texts []string
	for _, def := range ctx.Defines {
		names = append(names, def.Name)
		texts = append(texts, def.Text)
	}
	assert.Equal(t, []string{
		"KEYUSAGE_NONE", "KEYUSAGE_DIGITALSIGNATURE", "MAX_TEXTSIZE", "MAX_HASHSIZE", "OK",
		"USE_DEFAULT", "RANDOM_FASTPOLL", "RANDOM_SLOWPOLL", "ERROR_PARAM1", "ERROR_MEMORY", "ENVELOPE_RESOURCE",
	}, names)
	assert.Equal(t, []string{"0x000", "0x001", "64", "32", "0", "-100", "-300", "-301", "-1", "-10", "-50"}, texts)
	assert.True(t, ctx.Defines[5].Parenthesized)
	assert.False(t, ctx.Defines[4].Parenthesized)

	assert.Equal(t, []ErrorMapping{
		{Name: "ERROR_PARAM1", Value: -1, Comment: "Bad argument, parameter 1"},
		{Name: "ERROR_MEMORY", Value: -10, Comment: "Out of memory"},
		{Name: "ENVELOPE_RESOURCE", Value: -50, Comment: "Need resource to proceed"},
	}, ctx.Errors)

	value, found := ctx.Symbols.Lookup("MAX_HASHSIZE")
	assert.True(t, found)
	assert.Equal(t, int64(32), value)
}

func TestAnalyzeItemsOrder(t *testing.T) {
	ctx := analyseFixture(t)
	require.Len(t, ctx.Items, 56)
	prev := 0
	counts := map[string]int{}
	for _, item := range ctx.Items {
		assert.Greater(t, item.Lines().Line, prev)
		prev = item.Lines().EndLine
		switch it := item.(type) {
		case *Comment:
			counts["comment"]++
		case *Enum:
			counts["enum"]++
		case *Define:
			counts["define"]++
		case *Commented:
			if it.Kind == NotNeeded {
				counts["not needed"]++
			} else {
				counts["not supported"]++
			}
		case *Function:
			counts["function"]++
		}
	}
	assert.Equal(t, map[string]int{
		"comment":       18,
		"enum":          4,
		"define":        11,
		"not needed":    4,
		"not supported": 4, // 2 macros and 2 structs.
		"function":      15,
	}, counts)
}

func TestAnalyzeStructs(t *testing.T) {
	ctx := analyseFixture(t)
	require.Len(t, ctx.Structs, 2)
	assert.Len(t, ctx.ReturnedStructs(), 2)
	assert.Equal(t, CategoryStruct, ctx.CategoryOf("CRYPT_QUERY_INFO"))

	query := ctx.Struct("CRYPT_QUERY_INFO")
	require.NotNil(t, query)
	require.Len(t, query.Fields, 5)
	assert.Equal(t, FieldString, query.Fields[0].Kind)
	assert.Equal(t, int64(64), query.Fields[0].Size)
	assert.Equal(t, "MAX_TEXTSIZE", query.Fields[0].SizeName)
	for _, f := range query.Fields[1:] {
		assert.Equal(t, FieldInt, f.Kind)
	}

	object := ctx.Struct("CRYPT_OBJECT_INFO")
	require.NotNil(t, object)
	require.Len(t, object.Fields, 2)
	assert.Equal(t, "cryptAlgo", object.Fields[0].Name)
	assert.Equal(t, FieldInt, object.Fields[0].Kind)
	assert.Equal(t, FieldBytes, object.Fields[1].Kind)
	assert.Equal(t, int64(32), object.Fields[1].Size)
	assert.Equal(t, "saltSize", object.Fields[1].LengthField)
}

func TestAnalyzeFunctions(t *testing.T) {
	ctx := analyseFixture(t)
	require.Len(t, ctx.Functions, 15)

	type want struct {
		params            []string
		returned, discard string
		offsets, lengths  []int
	}
	for name, w := range map[string]want{
		"Init":               {},
		"End":                {},
		"QueryCapability":    {params: []string{"cryptAlgo"}, returned: "cryptQueryInfo"},
		"CreateContext":      {params: []string{"cryptUser", "cryptAlgo"}, returned: "cryptContext"},
		"Encrypt":            {params: []string{"cryptContext", "buffer", "bufferOffset", "length"}, offsets: []int{2}},
		"GetAttributeString": {params: []string{"cryptHandle", "attributeType", "value", "valueOffset"}, returned: "valueLength", offsets: []int{3}},
		"SetAttributeString": {params: []string{"cryptHandle", "attributeType", "value", "valueOffset", "valueLength"}, offsets: []int{3}, lengths: []int{4}},
		"AddRandom":          {params: []string{"randomData", "randomDataOffset", "randomDataLength"}, offsets: []int{1}, lengths: []int{2}},
		"QueryObject":        {params: []string{"objectData", "objectDataOffset", "objectDataLength"}, returned: "cryptObjectInfo", offsets: []int{1}, lengths: []int{2}},
		"CheckSignature":     {params: []string{"signature", "signatureOffset", "sigCheckKey"}, offsets: []int{1}},
		"GetPublicKey":       {params: []string{"keyset", "keyIDtype", "keyID"}, returned: "cryptContext"},
		"GetKeyByID":         {params: []string{"keyset", "keyIDtype", "keyID"}, returned: "cryptContext"},
		"GetCertExtension":   {params: []string{"certificate", "oid", "extension", "extensionOffset", "extensionMaxLength"}, returned: "extensionLength", discard: "criticalFlag", offsets: []int{3}},
		"PushData":           {params: []string{"envelope", "buffer", "bufferOffset", "length"}, returned: "bytesCopied", offsets: []int{2}, lengths: []int{3}},
		"PopData":            {params: []string{"envelope", "buffer", "bufferOffset", "length"}, returned: "bytesCopied", offsets: []int{2}},
	} {
		f := ctx.Function(name)
		require.NotNilf(t, f, "function %s", name)
		assert.Equalf(t, w.params, paramNames(f.Params), "params of %s", name)
		if w.returned == "" {
			assert.Nilf(t, f.Returned, "returned of %s", name)
		} else if assert.NotNilf(t, f.Returned, "returned of %s", name) {
			assert.Equalf(t, w.returned, f.Returned.Name, "returned of %s", name)
		}
		if w.discard == "" {
			assert.Nilf(t, f.Discarded, "discarded of %s", name)
		} else if assert.NotNilf(t, f.Discarded, "discarded of %s", name) {
			assert.Equalf(t, w.discard, f.Discarded.Name, "discarded of %s", name)
		}
		assert.Equalf(t, w.offsets, f.OffsetIndices, "offsets of %s", name)
		assert.Equalf(t, w.lengths, f.LengthIndices, "lengths of %s", name)
		for _, idx := range f.OffsetIndices {
			assert.True(t, f.Params[idx].Synthetic())
			assert.True(t, f.IsOffset(idx))
		}
	}

	// Key ID substitution: the void pointer following the key ID type is a string, also in the
	// raw parameters used by the glue code.
	byID := ctx.Function("GetKeyByID")
	assert.True(t, byID.Raw[2].IsString())
	assert.True(t, byID.Params[2].IsString())
	assert.Equal(t, CategoryRaw, byID.Raw[2].Category)

	publicKey := ctx.Function("GetPublicKey")
	assert.True(t, publicKey.Params[2].IsString())
	assert.Equal(t, CategoryEnum, publicKey.Params[1].Category)
	assert.Equal(t, CategoryInt, publicKey.Returned.Category)

	query := ctx.Function("QueryCapability")
	assert.Equal(t, ctx.Struct("CRYPT_QUERY_INFO"), query.ReturnStruct)
	assert.Equal(t, "C_OUT_OPT", query.Returned.Direction)

	encrypt := ctx.Function("Encrypt")
	assert.Equal(t, "C_INOUT", encrypt.Params[1].Direction)
	assert.False(t, encrypt.Params[1].IsOutput)
	assert.True(t, encrypt.HasWrapper())
	assert.Len(t, encrypt.Buffers(), 1)
	assert.Empty(t, encrypt.OutputBuffers())
	assert.False(t, ctx.Function("CreateContext").HasWrapper())

	extension := ctx.Function("GetCertExtension")
	assert.Equal(t, []string{"certificate", "oid", "criticalFlag", "extension", "extensionMaxLength", "extensionLength"}, paramNames(extension.Raw))
	assert.Equal(t, []string{"oid", "extension"}, paramNames(extension.Pointers()))
	assert.Equal(t, []string{"extension"}, paramNames(extension.OutputBuffers()))
	assert.True(t, extension.IsReturnedOrDiscarded(extension.Raw[2]))
}

// TestEnumImplicitValues checks that implicit values continue from the last explicit one.
func TestEnumImplicitValues(t *testing.T) {
	dialect := cryptbind.DefaultDialect()
	dialect.ConstantPrefix = "FOO_"
	ctx, err := analyseSource("enum { FOO_A, FOO_B = 5, FOO_C };", dialect)
	require.NoError(t, err)
	require.Len(t, ctx.Enums, 1)
	type triple struct {
		name    string
		value   int64
		comment string
	}
	var got []triple
	for _, c := range ctx.Enums[0].Constants {
		got = append(got, triple{c.Name, c.Value, c.Comment})
	}
	assert.Equal(t, []triple{{"A", 0, ""}, {"B", 5, ""}, {"C", 6, ""}}, got)
}

func TestTransformOutputs(t *testing.T) {
	// One output int: promoted to the return value.
	ctx, err := analyseSource("C_RET cryptThing(C_IN int x, C_OUT int* y);", nil)
	require.NoError(t, err)
	thing := ctx.Function("Thing")
	require.NotNil(t, thing)
	assert.Equal(t, []string{"x"}, paramNames(thing.Params))
	require.NotNil(t, thing.Returned)
	assert.Equal(t, "y", thing.Returned.Name)
	assert.Len(t, thing.Params, len(thing.Raw)-1)

	// Two: the first is discarded.
	ctx, err = analyseSource("C_RET cryptTwo( C_OUT int C_PTR a, C_IN int b, C_OUT int C_PTR c );", nil)
	require.NoError(t, err)
	two := ctx.Function("Two")
	assert.Equal(t, []string{"b"}, paramNames(two.Params))
	assert.Equal(t, "c", two.Returned.Name)
	assert.Equal(t, "a", two.Discarded.Name)
	assert.Len(t, two.Params, len(two.Raw)-2)

	// Three: error.
	_, err = analyseSource("C_RET cryptThree( C_OUT int C_PTR a, C_OUT int C_PTR b, C_OUT int C_PTR c );", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found two returned ints to discard")

	// Output enums are not promoted.
	ctx, err = analyseSource("typedef enum { CRYPT_X } CRYPT_X_TYPE;\nC_RET cryptGetX( C_OUT CRYPT_X_TYPE C_PTR x );", nil)
	require.NoError(t, err)
	assert.Nil(t, ctx.Function("GetX").Returned)
}

func TestAnalyzeErrors(t *testing.T) {
	for _, tc := range []struct {
		src, want string
	}{
		{"enum { ALGO_NONE };", "doesn't start with CRYPT_"},
		{"#define MAX 10", "doesn't start with CRYPT_"},
		{"#define CRYPT_A 1\n#define CRYPT_A 2", "already defined"},
		{"enum { CRYPT_A };\n#define CRYPT_A ( 2 )", "already defined"},
		{"enum { CRYPT_A = CRYPT_B };", "unknown constant"},
		{"#define CRYPT_EMPTY", "has no value"},
		{"typedef int T;\ntypedef int T;", "already declared"},
		{"C_RET cryptF( C_IN long x );", "unknown type long"},
		{"C_RET cryptF( C_IN int C_STR x );", "unrecognized parameter"},
		{"C_RET cryptF( C_IN int );", "unrecognized parameter"},
		{"C_RET cryptF( void );\nC_RET cryptF( void );", "declared twice"},
		{"C_RET clF( void );", "doesn't start with crypt"},
		{"typedef struct { float x; } CRYPT_S;\nC_RET cryptGetS( C_OUT CRYPT_S C_PTR s );", "struct CRYPT_S is returned"},
	} {
		_, err := analyseSource(tc.src, nil)
		require.Errorf(t, err, "source %q", tc.src)
		assert.Containsf(t, err.Error(), tc.want, "source %q", tc.src)
	}

	// Structs nobody returns only need to be commented out.
	ctx, err := analyseSource("typedef struct { float x; } CRYPT_S;", nil)
	require.NoError(t, err)
	assert.Empty(t, ctx.ReturnedStructs())
}

func TestDumpJSON(t *testing.T) {
	ctx := analyseFixture(t)
	s, err := ctx.ToStruct()
	require.NoError(t, err)
	functions := s.Fields["functions"].GetListValue().GetValues()
	require.Len(t, functions, 15)
	certExtension := functions[12].GetStructValue().GetFields()
	assert.Equal(t, "GetCertExtension", certExtension["name"].GetStringValue())
	assert.Equal(t, "criticalFlag", certExtension["discarded"].GetStringValue())
	assert.Len(t, certExtension["raw_params"].GetListValue().GetValues(), 6)
	assert.Len(t, s.Fields["errors"].GetListValue().GetValues(), 3)

	contents, err := ctx.DumpJSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(contents, &decoded))
	assert.Contains(t, decoded, "constants")
	assert.Len(t, decoded["int_types"], 4)
}
