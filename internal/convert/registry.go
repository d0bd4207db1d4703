// Package convert resolves conversion descriptors from key files into
// callable conversion functions with bound keyword arguments. Conversion
// functions turn raw source variables into the analysis's target quantity;
// the pipeline only resolves and binds them, it never interprets their
// semantics.
package convert

import (
	"sort"

	"github.com/oceanbgc/marineval/internal/masks"
	"github.com/oceanbgc/marineval/pkg/convertapi"
)

// Kwargs are the keyword arguments bound to a conversion function from its
// descriptor.
type Kwargs = convertapi.Kwargs

// Func is the conversion-function contract, shared with external plugins
// through pkg/convertapi.
type Func = convertapi.Func

// Registry is the fixed table of standard conversion functions addressable
// by bare name in key files.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns a registry seeded with the standard functions. The
// land-mask functions consult the given cache, which is owned by the
// pipeline so mask loads are shared across keys.
func NewRegistry(maskCache *masks.Cache) *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	registerStandard(r, maskCache)
	return r
}

// Register adds or replaces a named function.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Lookup returns the named function if registered.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
