package generator

import (
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/gomlx/cryptbind/binding"
	"github.com/pkg/errors"
)

//go:embed templates/*.gotmpl
var templatesFS embed.FS

// templates holds the fixed parts of the generated files: the marshalling helpers of each glue
// layer, exception classes and build scripts.
var templates = template.Must(template.New("").Funcs(template.FuncMap{
	// quote renders a string literal, with the escapes C, Java and C# have in common.
	"quote": strconv.Quote,
}).ParseFS(templatesFS, "templates/*.gotmpl"))

// fileWriter accumulates the contents of one generated file. The first error (from a template) is
// kept and returned by file; further writes are ignored.
type fileWriter struct {
	path string
	buf  strings.Builder
	err  error
}

func newFileWriter(path string) *fileWriter {
	return &fileWriter{path: path}
}

func (fw *fileWriter) w(format string, args ...any) {
	if fw.err != nil {
		return
	}
	_, _ = fmt.Fprintf(&fw.buf, format, args...)
}

// lines writes text followed by a new line, each of its lines prefixed by indent.
func (fw *fileWriter) lines(indent, text string) {
	fw.w("%s\n", indentLines(indent, text))
}

// execute renders one of the embedded templates.
func (fw *fileWriter) execute(name string, data any) {
	if fw.err != nil {
		return
	}
	if err := templates.ExecuteTemplate(&fw.buf, name, data); err != nil {
		fw.err = errors.Wrapf(err, "failed to render %s for %s", name, fw.path)
	}
}

func (fw *fileWriter) String() string { return fw.buf.String() }

func (fw *fileWriter) file() (*OutputFile, error) {
	if fw.err != nil {
		return nil, fw.err
	}
	return &OutputFile{Path: fw.path, Content: []byte(fw.buf.String())}, nil
}

// indentLines prefixes every non-empty line of text with indent.
func indentLines(indent, text string) string {
	if indent == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for ii, line := range lines {
		if line != "" {
			lines[ii] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

// maxBlankLines is the largest run of blank lines carried over from the header.
const maxBlankLines = 2

// forEachItem calls fn for each item of the header in source order, after writing the blank lines
// that separated it from the previous item. Consecutive functions are always separated by one.
func forEachItem(ctx *binding.Context, fw *fileWriter, fn func(item binding.Item)) {
	var prev binding.Item
	for _, item := range ctx.Items {
		if prev != nil {
			gap := item.Lines().Line - prev.Lines().EndLine - 1
			_, prevIsFunction := prev.(*binding.Function)
			_, isFunction := item.(*binding.Function)
			if prevIsFunction && isFunction {
				gap = max(gap, 1)
			}
			fw.w("%s", strings.Repeat("\n", min(max(gap, 0), maxBlankLines)))
		}
		fn(item)
		prev = item
	}
}

// Widths used to align the #define'd constants, which are emitted one at a time.
const (
	defineNamePad  = 40
	defineValuePad = 4
)

// padWidths returns the length of the longest name and value among constants.
func padWidths(constants []*binding.Constant) (namePad, valuePad int) {
	for _, c := range constants {
		namePad = max(namePad, len(c.Name))
		valuePad = max(valuePad, len(c.Text))
	}
	return
}

// constantLine formats a constant declaration "<prefix><NAME> = <VALUE>;", with name and value
// padded, followed by the comment if there is one.
func constantLine(prefix string, c *binding.Constant, namePad, valuePad int, commentFormat string) string {
	line := fmt.Sprintf("%s%-*s = %-*s", prefix, namePad, c.Name, valuePad+1, c.Text+";")
	if c.Comment == "" {
		return strings.TrimRight(line, " ")
	}
	return line + " " + fmt.Sprintf(commentFormat, c.Comment)
}

// commentedOut renders an item that can't be translated as line comments.
func commentedOut(item *binding.Commented) string {
	if item.Kind == binding.NotNeeded {
		return "//CRYPTBIND - NOT NEEDED: " + item.Text
	}
	return "//CRYPTBIND - NOT SUPPORTED:\n//" + strings.ReplaceAll(item.Text, "\n", "\n//")
}
