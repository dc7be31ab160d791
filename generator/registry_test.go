package generator

import (
	"os"
	"testing"

	"github.com/gomlx/cryptbind"
	"github.com/gomlx/cryptbind/binding"
	"github.com/gomlx/cryptbind/header"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyseFixture(t *testing.T) *binding.Context {
	src, err := os.ReadFile("../testdata/cryptlib_mini.h")
	require.NoError(t, err)
	dialect := cryptbind.DefaultDialect()
	doc, err := header.Parse(string(src), dialect)
	require.NoError(t, err)
	ctx, err := binding.Analyze(doc, dialect)
	require.NoError(t, err)
	return ctx
}

// generate runs the named generator over the fixture and returns the contents of its files by path.
func generate(t *testing.T, name string) map[string]string {
	g, ok := Get(name)
	require.True(t, ok, "generator %q not registered", name)
	files, err := g.Generate(analyseFixture(t))
	require.NoError(t, err)
	contents := make(map[string]string, len(files))
	for _, f := range files {
		contents[f.Path] = string(f.Content)
	}
	return contents
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"java", "net", "python"}, All())
	for _, lang := range cryptbind.LanguageValues() {
		g, ok := Get(lang.String())
		require.True(t, ok)
		assert.Equal(t, lang.String(), g.Name())
	}

	_, ok := Get("cobol")
	assert.False(t, ok)
	assert.Panics(t, func() {
		Register("java", func() Generator { return &JavaGenerator{} })
	})
}
