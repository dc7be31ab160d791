// cryptbind converts a cryptlib-style C header into Java, Python or .NET bindings.
//
// Usage:
//
//	cryptbind [flags] <inFile> <outDir> <language>
//
// where language is one of java, python or net. For java, the generated classes are compiled
// with javac (which also writes the JNI header the glue code includes) and packed in a jar,
// unless -skip_toolchain is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/cryptbind"
	"github.com/gomlx/cryptbind/binding"
	"github.com/gomlx/cryptbind/generator"
	"github.com/gomlx/cryptbind/header"
	"github.com/gomlx/cryptbind/toolchain"
	"github.com/janpfeifer/gonb/common"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// exitUsage is the exit code of invalid command lines.
const exitUsage = 2

// errUsage marks command line errors: the usage has been printed and the program exits with exitUsage.
var errUsage = errors.New("invalid command line")

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	_, _ = fmt.Fprintf(out, "Usage: %s [flags] <inFile> <outDir> <language>\n\n", filepath.Base(fs.Name()))
	_, _ = fmt.Fprintf(out, "  language is one of: %s\n\nFlags:\n", strings.Join(generator.All(), ", "))
	fs.PrintDefaults()
}

// config of one conversion.
type config struct {
	InFile, OutDir string
	Language       cryptbind.Language

	// DialectFile and DumpIR are optional paths.
	DialectFile, DumpIR string

	SkipToolchain bool
	Javac, Jar    string
	Quiet         bool
}

// expandPath replaces a leading "~" by the home directory. Empty paths are left empty.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	return common.ReplaceTildeInDir(p)
}

// parseArgs defines the flags in fs and parses args into a config.
func parseArgs(fs *flag.FlagSet, args []string) (*config, error) {
	flagDialect := fs.String("dialect", "",
		"YAML file overriding the header conventions (prefixes, markers, special functions, per-language names). "+
			"Fields not given keep the cryptlib.h defaults.")
	flagDumpIR := fs.String("dump_ir", "",
		"If set, write the analysed header (constants, error mappings, types and transformed signatures) as JSON to this file.")
	flagSkipToolchain := fs.Bool("skip_toolchain", false, "Don't run javac and jar on the generated java sources.")
	flagJavac := fs.String("javac", "javac", "Java compiler used to build the generated classes.")
	flagJar := fs.String("jar", "jar", "Tool used to pack the compiled classes.")
	flagQuiet := fs.Bool("quiet", false, "Don't display a spinner while the java toolchain runs.")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, errors.WithMessage(errUsage, err.Error())
	}
	if fs.NArg() != 3 || fs.Arg(0) == "" || fs.Arg(1) == "" {
		fs.Usage()
		return nil, errors.WithMessagef(errUsage, "expected <inFile> <outDir> <language>, got %q", fs.Args())
	}
	lang, err := cryptbind.LanguageString(fs.Arg(2))
	if err != nil {
		_, _ = fmt.Fprintf(fs.Output(), "Unsupported language %q.\n\n", fs.Arg(2))
		fs.Usage()
		return nil, errors.WithMessagef(errUsage, "unsupported language %q", fs.Arg(2))
	}

	cfg := &config{
		InFile:        must.M1(filepath.Abs(expandPath(fs.Arg(0)))),
		OutDir:        must.M1(filepath.Abs(expandPath(fs.Arg(1)))),
		Language:      lang,
		DialectFile:   expandPath(*flagDialect),
		DumpIR:        expandPath(*flagDumpIR),
		SkipToolchain: *flagSkipToolchain,
		Javac:         *flagJavac,
		Jar:           *flagJar,
		Quiet:         *flagQuiet,
	}
	return cfg, nil
}

// exitCode maps the result of parseArgs or run to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return exitUsage
	default:
		return 1
	}
}

func main() {
	klog.InitFlags(nil)
	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)
	cfg, err := parseArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		klog.V(1).Infof("%v", err)
		os.Exit(exitCode(err))
	}
	if err := run(context.Background(), cfg); err != nil {
		klog.Fatalf("Error: %+v", err)
	}
}

// run converts cfg.InFile and writes the bindings into cfg.OutDir. Nothing is written if the
// header can't be parsed or analysed, or if generation fails.
func run(ctx context.Context, cfg *config) error {
	dialect := cryptbind.DefaultDialect()
	if cfg.DialectFile != "" {
		var err error
		dialect, err = cryptbind.LoadDialect(cfg.DialectFile)
		if err != nil {
			return err
		}
	}

	src, err := os.ReadFile(cfg.InFile)
	if err != nil {
		return errors.Wrapf(err, "failed to read header %q", cfg.InFile)
	}
	doc, err := header.Parse(string(src), dialect)
	if err != nil {
		return errors.WithMessagef(err, "failed to parse %s", cfg.InFile)
	}
	bindings, err := binding.Analyze(doc, dialect)
	if err != nil {
		return errors.WithMessagef(err, "failed to analyse %s", cfg.InFile)
	}
	if cfg.DumpIR != "" {
		contents, err := bindings.DumpJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.DumpIR, contents, 0644); err != nil {
			return errors.Wrapf(err, "failed to write %s", cfg.DumpIR)
		}
		klog.V(1).Infof("intermediate representation written to %s", cfg.DumpIR)
	}

	gen, ok := generator.Get(cfg.Language.String())
	if !ok {
		return errors.Errorf("no generator registered for %s", cfg.Language)
	}
	files, err := gen.Generate(bindings)
	if err != nil {
		return errors.WithMessagef(err, "failed to generate %s bindings", gen.Name())
	}
	if err := writeFiles(cfg.OutDir, files); err != nil {
		return err
	}

	if cfg.Language != cryptbind.Java || cfg.SkipToolchain {
		return nil
	}
	runner := toolchain.New(cfg.OutDir)
	runner.Javac, runner.Jar, runner.Quiet = cfg.Javac, cfg.Jar, cfg.Quiet
	return runner.BuildJava(ctx, dialect.Java)
}

// writeFiles writes the generated files under outDir, creating the directories as needed.
func writeFiles(outDir string, files []*generator.OutputFile) error {
	for _, f := range files {
		filePath := filepath.Join(outDir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return errors.Wrapf(err, "failed to create directory for %s", filePath)
		}
		if err := os.WriteFile(filePath, f.Content, 0644); err != nil {
			return errors.Wrapf(err, "failed to write %s", filePath)
		}
		klog.V(1).Infof("wrote %s (%d bytes)", filePath, len(f.Content))
	}
	klog.Infof("%d files written to %s", len(files), outDir)
	return nil
}
