package binding

import (
	"testing"

	"github.com/gomlx/cryptbind"
	"github.com/gomlx/cryptbind/header"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluate(t *testing.T, ctx *Context, expr string) (int64, error) {
	tokens, err := header.Tokenize(expr)
	require.NoError(t, err)
	return ctx.Evaluate(tokens)
}

func TestEvaluate(t *testing.T) {
	ctx := NewContext(cryptbind.DefaultDialect())
	require.NoError(t, ctx.Symbols.Define("ALGO_SHA2", 20, 1))
	require.NoError(t, ctx.Symbols.Define("MAX_TEXTSIZE", 64, 2))

	for expr, want := range map[string]int64{
		"0":                          0,
		"0x10 + 3":                   19,
		"010":                        8,
		"100UL":                      100,
		"( -100 )":                   -100,
		"CRYPT_ALGO_SHA2 * 2 - 1":    39,
		"ALGO_SHA2":                  20,
		"1 << 4 | 1":                 17,
		"~0 & 0xFF":                  255,
		"-(2 + 3) * 4":               -20,
		"CRYPT_MAX_TEXTSIZE / 3 % 5": 1,
		"7 ^ 2":                      5,
		"256 >> 2 >> 1":              32,
	} {
		got, err := evaluate(t, ctx, expr)
		require.NoErrorf(t, err, "expression %q", expr)
		assert.Equalf(t, want, got, "expression %q", expr)
	}

	for _, expr := range []string{
		"CRYPT_UNKNOWN",
		"1 +",
		"( 1",
		"1 2",
		"1 / 0",
		"0x",
		"0b101",
		"0O17",
		"1_000",
		"0x1_0",
	} {
		_, err := evaluate(t, ctx, expr)
		assert.Errorf(t, err, "expression %q should fail", expr)
	}
	_, err := ctx.Evaluate(nil)
	assert.Error(t, err)
}

func TestSymbols(t *testing.T) {
	s := NewSymbols()
	require.NoError(t, s.Define("A", 1, 10))
	require.NoError(t, s.Define("B", 2, 11))
	err := s.Define("A", 3, 12)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 12")
	assert.Contains(t, err.Error(), "line 10")

	value, found := s.Lookup("B")
	assert.True(t, found)
	assert.Equal(t, int64(2), value)
	_, found = s.Lookup("C")
	assert.False(t, found)
	assert.Equal(t, []string{"A", "B"}, s.Names())
	assert.Equal(t, 2, s.Len())
}
