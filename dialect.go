// Package cryptbind generates Java, Python and .NET bindings from a cryptlib-style C header.
//
// The header dialect (prefixes, parameter markers, the few functions that need special treatment)
// is described by a Dialect. DefaultDialect matches cryptlib.h, and LoadDialect overlays a YAML
// file on top of it, so other libraries written in the same style can be converted too.
//
// The pipeline lives in sub-packages: header tokenizes and parses the input into a Document,
// binding analyses it into typed constants and function signatures, generator renders the
// per-language files and toolchain compiles the Java ones. See cmd/cryptbind for the command line.
package cryptbind

import (
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Dialect describes the conventions of the input header.
type Dialect struct {
	// ConstantPrefix is required on every enum value and #define'd constant, and stripped in the output.
	ConstantPrefix string `yaml:"constant_prefix"`

	// FunctionPrefix is required on every function name, and stripped in the output.
	FunctionPrefix string `yaml:"function_prefix"`

	// ReturnMarker starts every exported prototype, e.g. "C_RET cryptInit( void );".
	ReturnMarker string `yaml:"return_marker"`

	// IncludeGuard is the macro of the enclosing "#ifndef GUARD" block, which is kept (all other
	// conditional blocks are removed). Empty means no guard.
	IncludeGuard string `yaml:"include_guard"`

	// StartMarker: everything before "#define StartMarker" is dropped. Empty means the whole file is used.
	StartMarker string `yaml:"start_marker"`

	// Annotations are identifiers dropped from the input, together with a parenthesized argument list
	// if one follows them.
	Annotations []string `yaml:"annotations"`

	// DirectionMarkers may prefix each parameter. OutputMarkers is the subset that marks output parameters.
	DirectionMarkers []string `yaml:"direction_markers"`
	OutputMarkers    []string `yaml:"output_markers"`

	// PointerMarker marks a pointer parameter ("*" is always accepted as well).
	PointerMarker string `yaml:"pointer_marker"`

	// StringMarker is a type token meaning "pointer to char".
	StringMarker string `yaml:"string_marker"`

	// KeyIDType is the type of the parameter that makes the following void pointer a string.
	KeyIDType string `yaml:"key_id_type"`

	// ErrorPrefixes select the constants (after ConstantPrefix is stripped) that go into the error mapping.
	ErrorPrefixes []string `yaml:"error_prefixes"`

	// RawTypes are the C types understood natively.
	RawTypes []string `yaml:"raw_types"`

	// Functions lists the functions (without FunctionPrefix) that need special handling.
	Functions SpecialFunctions `yaml:"functions"`

	Java   JavaOptions   `yaml:"java"`
	Python PythonOptions `yaml:"python"`
	Net    NetOptions    `yaml:"net"`
}

// SpecialFunctions names the functions whose generated code deviates from the general rules.
type SpecialFunctions struct {
	// DualDutyBuffers use the same buffer for input and output: they keep their explicit length
	// and get no String convenience overload.
	DualDutyBuffers []string `yaml:"dual_duty_buffers"`

	// NoLengthProbe functions are called with an explicit destination size, so the glue code
	// doesn't query the required length first.
	NoLengthProbe []string `yaml:"no_length_probe"`

	// ExtraInfoStatus functions report their returned value along with a failure status (.NET only).
	ExtraInfoStatus []string `yaml:"extra_info_status"`

	// StringAttribute gets an overload returning a String, using the two-call idiom.
	StringAttribute string `yaml:"string_attribute"`

	// PollType gets an overload taking only a poll-type constant in place of its buffer and length.
	PollType string `yaml:"poll_type"`
}

// JavaOptions configures the java target.
type JavaOptions struct {
	Package string `yaml:"package"`
	Class   string `yaml:"class"`
	// GuardMacro wraps the JNI glue in "#ifdef GuardMacro".
	GuardMacro string `yaml:"guard_macro"`
	// Include is the header included by the JNI glue.
	Include string `yaml:"include"`
}

// PythonOptions configures the python target.
type PythonOptions struct {
	Module  string `yaml:"module"`
	Include string `yaml:"include"`
	// Library is linked by setup.py, and WindowsLibrary on win32.
	Library        string `yaml:"library"`
	WindowsLibrary string `yaml:"windows_library"`
}

// NetOptions configures the .NET target.
type NetOptions struct {
	Namespace string `yaml:"namespace"`
	Class     string `yaml:"class"`
	Library   string `yaml:"library"`
}

// DefaultDialect returns the conventions of cryptlib.h.
func DefaultDialect() *Dialect {
	return &Dialect{
		ConstantPrefix:   "CRYPT_",
		FunctionPrefix:   "crypt",
		ReturnMarker:     "C_RET",
		IncludeGuard:     "_CRYPTLIB_DEFINED",
		StartMarker:      "C_INOUT",
		Annotations:      []string{"C_CHECK_RETVAL", "C_NONNULL_ARG"},
		DirectionMarkers: []string{"C_IN", "C_IN_OPT", "C_OUT", "C_OUT_OPT", "C_INOUT"},
		OutputMarkers:    []string{"C_OUT", "C_OUT_OPT"},
		PointerMarker:    "C_PTR",
		StringMarker:     "C_STR",
		KeyIDType:        "CRYPT_KEYID_TYPE",
		ErrorPrefixes:    []string{"ERROR_", "ENVELOPE_RESOURCE"},
		RawTypes:         []string{"char", "int", "void"},
		Functions: SpecialFunctions{
			DualDutyBuffers: []string{"Encrypt", "Decrypt"},
			NoLengthProbe:   []string{"PopData"},
			ExtraInfoStatus: []string{"PushData", "PopData"},
			StringAttribute: "GetAttributeString",
			PollType:        "AddRandom",
		},
		Java: JavaOptions{
			Package:    "cryptlib",
			Class:      "crypt",
			GuardMacro: "USE_JAVA",
			Include:    "../crypt.h",
		},
		Python: PythonOptions{
			Module:         "cryptlib_py",
			Include:        "../cryptlib.h",
			Library:        "cl",
			WindowsLibrary: "cl32",
		},
		Net: NetOptions{
			Namespace: "cryptlib",
			Class:     "crypt",
			Library:   "cl32.dll",
		},
	}
}

// LoadDialect reads a YAML file and overlays it on DefaultDialect. Fields not present in the file
// keep their default values; unknown fields are an error.
func LoadDialect(path string) (*Dialect, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dialect file %q", path)
	}
	defer func() { _ = f.Close() }()

	d := DefaultDialect()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(d); err != nil {
		return nil, errors.Wrapf(err, "failed to parse dialect file %q", path)
	}
	if err := d.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid dialect file %q", path)
	}
	return d, nil
}

// Validate checks that the fields the parser can't do without are set.
func (d *Dialect) Validate() error {
	switch {
	case d.ConstantPrefix == "":
		return errors.New("constant_prefix must be set")
	case d.FunctionPrefix == "":
		return errors.New("function_prefix must be set")
	case d.ReturnMarker == "":
		return errors.New("return_marker must be set")
	case d.PointerMarker == "":
		return errors.New("pointer_marker must be set")
	case len(d.RawTypes) == 0:
		return errors.New("raw_types must not be empty")
	}
	for _, m := range d.OutputMarkers {
		if !slices.Contains(d.DirectionMarkers, m) {
			return errors.Errorf("output marker %q is not listed in direction_markers", m)
		}
	}
	return nil
}

// IsAnnotation reports whether name is one of the dropped annotations.
func (d *Dialect) IsAnnotation(name string) bool {
	return slices.Contains(d.Annotations, name)
}

// IsDirection reports whether name is a parameter direction marker.
func (d *Dialect) IsDirection(name string) bool {
	return slices.Contains(d.DirectionMarkers, name)
}

// IsOutput reports whether the direction marker makes a parameter an output.
func (d *Dialect) IsOutput(marker string) bool {
	return slices.Contains(d.OutputMarkers, marker)
}

// IsErrorName reports whether a constant (already stripped of ConstantPrefix) belongs to the error mapping.
func (d *Dialect) IsErrorName(name string) bool {
	for _, prefix := range d.ErrorPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// StripConstantPrefix removes ConstantPrefix from name. It returns false if name doesn't carry it.
func (d *Dialect) StripConstantPrefix(name string) (string, bool) {
	if !strings.HasPrefix(name, d.ConstantPrefix) || len(name) == len(d.ConstantPrefix) {
		return name, false
	}
	return name[len(d.ConstantPrefix):], true
}

// StripFunctionPrefix removes FunctionPrefix from name. It returns false if name doesn't carry it.
func (d *Dialect) StripFunctionPrefix(name string) (string, bool) {
	if !strings.HasPrefix(name, d.FunctionPrefix) || len(name) == len(d.FunctionPrefix) {
		return name, false
	}
	return name[len(d.FunctionPrefix):], true
}

// IsDualDuty reports whether the function's buffers are both read and written.
func (d *Dialect) IsDualDuty(function string) bool {
	return slices.Contains(d.Functions.DualDutyBuffers, function)
}

// SkipsLengthProbe reports whether the function's glue code must not query the output length.
func (d *Dialect) SkipsLengthProbe(function string) bool {
	return slices.Contains(d.Functions.NoLengthProbe, function)
}

// ReportsExtraInfo reports whether failures of the function carry its returned value (.NET only).
func (d *Dialect) ReportsExtraInfo(function string) bool {
	return slices.Contains(d.Functions.ExtraInfoStatus, function)
}
