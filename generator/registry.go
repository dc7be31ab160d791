// Package generator renders the analysed header (a binding.Context) into the source files of each
// target language.
//
// Each target is a Generator registered by name: "java", "python" and "net". Generators only
// produce contents in memory; writing them (and compiling the Java ones) is up to the caller, so
// a failure leaves no partial output behind.
package generator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gomlx/cryptbind/binding"
)

// OutputFile is one generated file.
type OutputFile struct {
	// Path relative to the output directory, using forward slashes.
	Path    string
	Content []byte
}

// Generator produces the files of one target language.
type Generator interface {
	// Name of the target, as given in the command line.
	Name() string

	// Generate renders the files for the analysed header.
	Generate(ctx *binding.Context) ([]*OutputFile, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Generator{}
)

// Register adds a generator factory under the given name. It panics if the name is taken.
func Register(name string, factory func() Generator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("generator %q already registered", name))
	}
	registry[name] = factory
}

// Get returns a new instance of the named generator.
func Get(name string) (Generator, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// All returns the names of the registered generators, sorted.
func All() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
