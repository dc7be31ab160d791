package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/gomlx/cryptbind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("tests use shell scripts as fake tools")
	}
}

func TestRun(t *testing.T) {
	skipOnWindows(t)
	r := &Runner{Dir: t.TempDir(), Quiet: true}
	ctx := context.Background()
	require.NoError(t, r.Run(ctx, "true", "true"))

	err := r.Run(ctx, "failing", "sh", "-c", "echo something went wrong; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "something went wrong")
	assert.Contains(t, err.Error(), "exit status 3")

	require.Error(t, r.Run(ctx, "missing", "cryptbind-no-such-command"))
}

// writeScript writes an executable shell script into dir.
func writeScript(t *testing.T, dir, name, body string) string {
	scriptPath := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\n"+body), 0755))
	return scriptPath
}

func TestBuildJava(t *testing.T) {
	skipOnWindows(t)
	tools := t.TempDir()
	out := t.TempDir()
	opts := cryptbind.DefaultDialect().Java
	require.NoError(t, os.MkdirAll(filepath.Join(out, "cryptlib"), 0755))
	for _, name := range []string{"crypt.java", "CryptException.java"} {
		require.NoError(t, os.WriteFile(filepath.Join(out, "cryptlib", name), []byte("class x {}"), 0644))
	}

	r := New(out)
	r.Quiet = true
	r.Javac = writeScript(t, tools, "javac", `for f in "$@"; do
  case "$f" in *.java) touch "${f%.java}.class" ;; esac
done
touch cryptlib_crypt.h
`)
	r.Jar = writeScript(t, tools, "jar", `echo "$@" > jar.args
`)
	require.NoError(t, r.BuildJava(context.Background(), opts))

	assert.FileExists(t, filepath.Join(out, "cryptlib_crypt.h"))
	assert.FileExists(t, filepath.Join(out, "cryptlib", "crypt.class"))
	args, err := os.ReadFile(filepath.Join(out, "jar.args"))
	require.NoError(t, err)
	assert.Equal(t, "cf cryptlib.jar cryptlib/CryptException.class cryptlib/crypt.class\n", string(args))
}

func TestBuildJavaFailures(t *testing.T) {
	skipOnWindows(t)
	out := t.TempDir()
	opts := cryptbind.DefaultDialect().Java
	r := New(out)
	r.Quiet = true

	// No sources.
	require.Error(t, r.BuildJava(context.Background(), opts))

	require.NoError(t, os.MkdirAll(filepath.Join(out, "cryptlib"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "cryptlib", "crypt.java"), nil, 0644))
	r.Javac = writeScript(t, t.TempDir(), "javac", "echo 'crypt.java:1: error' >&2\nexit 1\n")
	err := r.BuildJava(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crypt.java:1: error")
}

func TestJarName(t *testing.T) {
	assert.Equal(t, "cryptlib.jar", JarName(cryptbind.JavaOptions{Package: "cryptlib"}))
	assert.Equal(t, "bindings.jar", JarName(cryptbind.JavaOptions{Package: "org.example.bindings"}))
}
