package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/cryptbind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureConfig(t *testing.T, lang cryptbind.Language) *config {
	inFile, err := filepath.Abs("../../testdata/cryptlib_mini.h")
	require.NoError(t, err)
	return &config{
		InFile:        inFile,
		OutDir:        filepath.Join(t.TempDir(), "out"),
		Language:      lang,
		SkipToolchain: true,
		Quiet:         true,
	}
}

func TestRunWritesFiles(t *testing.T) {
	for lang, want := range map[cryptbind.Language][]string{
		cryptbind.Java:   {"cryptlib/crypt.java", "cryptlib/CryptException.java", "cryptlib/CRYPT_QUERY_INFO.java", "java_jni.c"},
		cryptbind.Python: {"python.c", "setup.py"},
		cryptbind.Net:    {"cryptlib.cs"},
	} {
		t.Run(lang.String(), func(t *testing.T) {
			cfg := fixtureConfig(t, lang)
			require.NoError(t, run(context.Background(), cfg))
			for _, name := range want {
				assert.FileExists(t, filepath.Join(cfg.OutDir, filepath.FromSlash(name)))
			}
		})
	}
}

func TestRunDumpIR(t *testing.T) {
	cfg := fixtureConfig(t, cryptbind.Python)
	cfg.DumpIR = filepath.Join(t.TempDir(), "ir.json")
	require.NoError(t, run(context.Background(), cfg))

	contents, err := os.ReadFile(cfg.DumpIR)
	require.NoError(t, err)
	var ir map[string]any
	require.NoError(t, json.Unmarshal(contents, &ir))
	assert.Contains(t, ir, "functions")
}

func TestRunFailureWritesNothing(t *testing.T) {
	cfg := fixtureConfig(t, cryptbind.Java)
	cfg.InFile = filepath.Join(t.TempDir(), "bad.h")
	require.NoError(t, os.WriteFile(cfg.InFile, []byte("#define C_INOUT\n#define CRYPT_X ( 1 +\n"), 0644))
	require.Error(t, run(context.Background(), cfg))
	assert.NoDirExists(t, cfg.OutDir)

	cfg.InFile = filepath.Join(t.TempDir(), "missing.h")
	require.Error(t, run(context.Background(), cfg))
}

func TestRunDialect(t *testing.T) {
	cfg := fixtureConfig(t, cryptbind.Java)
	cfg.DialectFile = filepath.Join(t.TempDir(), "dialect.yaml")
	require.NoError(t, os.WriteFile(cfg.DialectFile, []byte("java:\n  package: org.example.crypt\n  class: Crypt\n"), 0644))
	require.NoError(t, run(context.Background(), cfg))
	assert.FileExists(t, filepath.Join(cfg.OutDir, "org", "example", "crypt", "Crypt.java"))

	require.NoError(t, os.WriteFile(cfg.DialectFile, []byte("no_such_field: 1\n"), 0644))
	require.Error(t, run(context.Background(), cfg))
}
