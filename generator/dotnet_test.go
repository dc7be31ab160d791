package generator

import (
	"strings"
	"testing"

	"github.com/gomlx/cryptbind/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetFile(t *testing.T) {
	files := generate(t, "net")
	require.Len(t, files, 1)
	cs := files["cryptlib.cs"]
	require.NotEmpty(t, cs)
	assert.True(t, strings.HasPrefix(cs, "using System;\nusing System.Runtime.InteropServices;\nusing System.Text;\n\nnamespace cryptlib\n{\n\npublic class crypt\n{\n"))

	for _, want := range []string{
		"\tpublic const int ALGO_AES",
		"\tpublic static void Init()\n\t{\n\t\tprocessStatus(wrapped_Init());\n\t}\n",

		// Returned handles are read back from unmanaged memory.
		"\t\tIntPtr cryptContextPtr = Marshal.AllocHGlobal(4);\n",
		"\t\t\treturn Marshal.ReadInt32(cryptContextPtr);\n",
		"\t\t\tMarshal.FreeHGlobal(cryptContextPtr);\n",

		// Returned structs.
		"\t\tIntPtr cryptQueryInfoPtr = Marshal.AllocHGlobal(Marshal.SizeOf(typeof(CRYPT_QUERY_INFO)));\n",
		"\t\t\tMarshal.PtrToStructure(cryptQueryInfoPtr, cryptQueryInfo);\n",

		// Length probe of the output buffer.
		"\t\t\tprocessStatus(wrapped_GetAttributeString(cryptHandle, attributeType, IntPtr.Zero, valueLengthPtr));\n\t\t\tint valueLength = Marshal.ReadInt32(valueLengthPtr);\n",
		"\t\t\tcheckIndices(value, valueOffset, valueLength);\n\t\t\tgetPointer(value, valueOffset, ref valueHandle, ref valuePtr);\n",
		"\t\tint length = GetAttributeString(cryptHandle, attributeType, (byte[])null);\n",
		"\t\treturn new UTF8Encoding().GetString(bytes, 0, length);\n",

		// The discarded output is allocated and freed too.
		"\t\tIntPtr criticalFlagPtr = Marshal.AllocHGlobal(4);\n",
		"\t\t\tMarshal.FreeHGlobal(criticalFlagPtr);\n",

		"\t\tbyte[] keyIDArray = keyID == null ? null : new UTF8Encoding().GetBytes(keyID + \"\\0\");\n",
		"\t\t\tgetPointer(keyIDArray, 0, ref keyIDHandle, ref keyIDPtr);\n",

		// Status with extra info.
		"\t\t\tint status = wrapped_PushData(envelope, bufferPtr, length, bytesCopiedPtr);\n\t\t\tint bytesCopied = Marshal.ReadInt32(bytesCopiedPtr);\n\t\t\tprocessStatus(status, bytesCopied);\n\t\t\treturn bytesCopied;\n",

		") { return PushData(envelope, buffer, 0, buffer == null ? 0 : buffer.Length); }",
		") { return PushData(envelope, buffer == null ? null : new UTF8Encoding().GetBytes(buffer), 0, buffer == null ? 0 : new UTF8Encoding().GetByteCount(buffer)); }",
		") { Encrypt(cryptContext, buffer, 0, length); }",
		"\t\tprocessStatus(wrapped_AddRandom(IntPtr.Zero, pollType));\n",

		"\t[DllImport(\"cl32.dll\", EntryPoint=\"cryptGetCertExtension\")]\n\tprivate static extern int wrapped_GetCertExtension(int certificate, IntPtr oid, IntPtr criticalFlag, IntPtr extension, int extensionMaxLength, IntPtr extensionLength);\n",
		"\tprivate static void checkIndices(byte[] array, int sequenceOffset, int sequenceLength)\n",

		"[StructLayout(LayoutKind.Sequential, Pack=0, CharSet=CharSet.Ansi)]\npublic class CRYPT_OBJECT_INFO\n{\n",
		"\t[MarshalAs(UnmanagedType.ByValTStr, SizeConst=64)]public String algoName;\n",
		"\t[MarshalAs(UnmanagedType.ByValArray, SizeConst=32)]public byte[] salt;\n\tpublic int saltSize;\n",
		"\tpublic CRYPT_OBJECT_INFO()\n\t{\n\t\tsalt = new byte[32];\n\t}\n",
		"\tpublic CRYPT_OBJECT_INFO(int newCryptAlgo, byte[] newSalt)\n",
		"\t\tsaltSize = newSalt == null ? 0 : newSalt.Length;\n",

		"public class CryptException : ApplicationException\n",
		"\t\tcase crypt.ERROR_PARAM1: return prefix + \"Bad argument, parameter 1\";\n",
	} {
		assert.Contains(t, cs, want)
	}
	assert.True(t, strings.HasSuffix(cs, "}\n\n}\n"))
}

func TestUniqueErrors(t *testing.T) {
	unique := uniqueErrors([]binding.ErrorMapping{
		{Name: "ERROR_A", Value: -1},
		{Name: "ERROR_ALIAS", Value: -1},
		{Name: "ERROR_B", Value: -2},
	})
	require.Len(t, unique, 2)
	assert.Equal(t, "ERROR_B", unique[1].Name)
}
