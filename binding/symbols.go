package binding

import (
	"github.com/pkg/errors"
)

// Symbols maps constant names (without the constant prefix) to their values. It is shared by
// enums and defines, so names must be unique across both.
type Symbols struct {
	values map[string]int64
	lines  map[string]int
	names  []string
}

// NewSymbols creates an empty symbol table.
func NewSymbols() *Symbols {
	return &Symbols{values: make(map[string]int64), lines: make(map[string]int)}
}

// Define adds a new symbol. It fails if name is already defined.
func (s *Symbols) Define(name string, value int64, line int) error {
	if prevLine, found := s.lines[name]; found {
		return errors.Errorf("line %d: constant %s already defined in line %d", line, name, prevLine)
	}
	s.values[name] = value
	s.lines[name] = line
	s.names = append(s.names, name)
	return nil
}

// Lookup returns the value of name.
func (s *Symbols) Lookup(name string) (value int64, found bool) {
	value, found = s.values[name]
	return
}

// Len returns the number of symbols defined.
func (s *Symbols) Len() int { return len(s.names) }

// Names returns the symbol names in definition order.
func (s *Symbols) Names() []string { return s.names }
