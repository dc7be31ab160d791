// Package toolchain runs the external tools that build the generated sources: javac, which
// compiles the java classes and writes the JNI header the glue code includes, and jar.
package toolchain

import (
	"context"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/x/term"
	"github.com/gomlx/cryptbind"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Runner executes the tools in the output directory.
type Runner struct {
	// Dir is the working directory of the commands.
	Dir string

	// Javac and Jar are the commands used, looked up in the PATH if not absolute.
	Javac, Jar string

	// Quiet disables the spinner shown while a command runs on a terminal.
	Quiet bool
}

// New returns a Runner for dir using javac and jar from the PATH.
func New(dir string) *Runner {
	return &Runner{Dir: dir, Javac: "javac", Jar: "jar"}
}

// interactive reports whether a spinner can be shown.
func (r *Runner) interactive() bool {
	return !r.Quiet && term.IsTerminal(os.Stdout.Fd())
}

// Run executes name with args in Dir and waits for it. The combined output is logged, and
// included in the error if the command fails or exits with a non-zero status.
func (r *Runner) Run(ctx context.Context, title, name string, args ...string) error {
	cmdLine := strings.Join(append([]string{name}, args...), " ")
	var output []byte
	var err error
	action := func() {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Dir = r.Dir
		output, err = cmd.CombinedOutput()
	}
	klog.V(1).Infof("Running command: %s (in %s)", cmdLine, r.Dir)
	if r.interactive() {
		if spinnerErr := spinner.New().Title(title).Action(action).Run(); spinnerErr != nil {
			return errors.Wrapf(spinnerErr, "failed to run spinner for %q", cmdLine)
		}
	} else {
		action()
	}
	if len(output) > 0 {
		klog.V(1).Infof("%s:\n%s", name, output)
	}
	if err != nil {
		return errors.Wrapf(err, "command %q failed, output:\n%s", cmdLine, output)
	}
	return nil
}

// relGlob returns the files in Dir matching pattern, relative to Dir and with forward slashes.
func (r *Runner) relGlob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(r.Dir, filepath.FromSlash(pattern)))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid pattern %q", pattern)
	}
	files := make([]string, 0, len(matches))
	for _, match := range matches {
		rel, err := filepath.Rel(r.Dir, match)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		files = append(files, filepath.ToSlash(rel))
	}
	return files, nil
}

// JarName is the archive BuildJava creates for the java package.
func JarName(opts cryptbind.JavaOptions) string {
	return path.Base(strings.ReplaceAll(opts.Package, ".", "/")) + ".jar"
}

// BuildJava compiles the generated java sources, producing the class files and the JNI header
// ("-h ."), and packs the classes into JarName(opts).
func (r *Runner) BuildJava(ctx context.Context, opts cryptbind.JavaOptions) error {
	classDir := strings.ReplaceAll(opts.Package, ".", "/")
	sources, err := r.relGlob(path.Join(classDir, "*.java"))
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.Errorf("no java sources in %s", filepath.Join(r.Dir, classDir))
	}
	args := append([]string{"-h", ".", "-classpath", "."}, sources...)
	if err := r.Run(ctx, "Compiling java classes…", r.Javac, args...); err != nil {
		return err
	}

	classes, err := r.relGlob(path.Join(classDir, "*.class"))
	if err != nil {
		return err
	}
	if len(classes) == 0 {
		return errors.Errorf("%s produced no class files in %s", r.Javac, filepath.Join(r.Dir, classDir))
	}
	jar := JarName(opts)
	if err := r.Run(ctx, "Packing "+jar+"…", r.Jar, append([]string{"cf", jar}, classes...)...); err != nil {
		return err
	}
	klog.Infof("built %s", filepath.Join(r.Dir, jar))
	return nil
}
