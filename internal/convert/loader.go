package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/oceanbgc/marineval/pkg/convertapi"
)

// MissingFieldError reports a conversion descriptor with a required field
// absent. This is a configuration error: the run cannot proceed.
type MissingFieldError struct {
	Field      string
	Descriptor string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("conversion descriptor %s: required field %q not provided", e.Descriptor, e.Field)
}

// UnknownFunctionError reports a bare function name that is not in the
// standard-function table.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("conversion function %q is not a standard function", e.Name)
}

// SymbolNotFoundError reports a named function absent from its source file.
type SymbolNotFoundError struct {
	Name string
	Path string
	Err  error
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("function %q not found in %s: %v", e.Name, e.Path, e.Err)
}

func (e *SymbolNotFoundError) Unwrap() error { return e.Err }

// SymbolSource is one loadable conversion source file.
type SymbolSource interface {
	Lookup(name string) (any, error)
}

// SymbolOpener loads conversion source files by path. The default opener
// is backed by Go's plugin loader; tests substitute an in-memory one.
type SymbolOpener interface {
	Open(path string) (SymbolSource, error)
}

type pluginOpener struct{}

func (pluginOpener) Open(path string) (SymbolSource, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return pluginSource{p: p}, nil
}

type pluginSource struct {
	p *plugin.Plugin
}

func (s pluginSource) Lookup(name string) (any, error) {
	return s.p.Lookup(name)
}

// Resolver turns a file-path template plus context into a concrete file
// list; it is provided by the discovery layer.
type Resolver func(template string, ctx map[string]string) ([]string, error)

// Loader resolves conversion descriptors into callables plus bound kwargs.
type Loader struct {
	registry *Registry
	repoRoot string
	resolve  Resolver
	opener   SymbolOpener
}

// NewLoader returns a Loader using the standard-function registry, the
// repository root for relative descriptor paths, and the given file
// resolver for "file" kwargs.
func NewLoader(registry *Registry, repoRoot string, resolve Resolver) *Loader {
	return &Loader{
		registry: registry,
		repoRoot: repoRoot,
		resolve:  resolve,
		opener:   pluginOpener{},
	}
}

// Load resolves a conversion descriptor. A bare string names a standard
// function; a mapping names either a standard function with kwargs or an
// externally supplied function addressed by source-file path. All mapping
// fields other than path/function are bound as kwargs; a string kwarg whose
// name contains "file" is resolved to a concrete file list first.
func (l *Loader) Load(descriptor any, ctx map[string]string) (Func, Kwargs, error) {
	switch desc := descriptor.(type) {
	case string:
		if fn, ok := l.registry.Lookup(desc); ok {
			log.Debug().Str("function", desc).Msg("Standard conversion function found")
			return fn, Kwargs{}, nil
		}
		return nil, nil, &UnknownFunctionError{Name: desc}

	case map[string]any:
		return l.loadFromMap(desc, ctx)

	case nil:
		return nil, nil, &MissingFieldError{Field: "function", Descriptor: "<empty>"}

	default:
		return nil, nil, fmt.Errorf("conversion descriptor: want a name or a mapping, got %T", descriptor)
	}
}

func (l *Loader) loadFromMap(desc map[string]any, ctx map[string]string) (Func, Kwargs, error) {
	name, ok := desc["function"].(string)
	if !ok || name == "" {
		return nil, nil, &MissingFieldError{Field: "function", Descriptor: describe(desc)}
	}

	if fn, ok := l.registry.Lookup(name); ok {
		log.Debug().Str("function", name).Msg("Standard conversion function found")
		kw, err := l.bindKwargs(desc, ctx)
		if err != nil {
			return nil, nil, err
		}
		return fn, kw, nil
	}

	path, ok := desc["path"].(string)
	if !ok || path == "" {
		return nil, nil, &MissingFieldError{Field: "path", Descriptor: describe(desc)}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.repoRoot, path)
	}
	if _, err := os.Stat(path); err != nil {
		log.Error().Str("path", path).Msg("Conversion source file not found")
		return nil, nil, fmt.Errorf("conversion source file: %w", err)
	}

	src, err := l.opener.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load conversion source %s: %w", path, err)
	}
	sym, err := src.Lookup(name)
	if err != nil {
		return nil, nil, &SymbolNotFoundError{Name: name, Path: path, Err: err}
	}
	fn, err := asFunc(sym)
	if err != nil {
		return nil, nil, fmt.Errorf("function %q in %s: %w", name, path, err)
	}

	kw, err := l.bindKwargs(desc, ctx)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("function", name).Str("path", path).Int("kwargs", len(kw)).Msg("Loaded external conversion function")
	return fn, kw, nil
}

// bindKwargs collects every descriptor field except path/function. String
// kwargs whose name contains "file" are path templates and resolve to the
// matching file list.
func (l *Loader) bindKwargs(desc map[string]any, ctx map[string]string) (Kwargs, error) {
	kw := Kwargs{}
	for key, value := range desc {
		if key == "path" || key == "function" {
			continue
		}
		s, isString := value.(string)
		if isString && strings.Contains(strings.ToLower(key), "file") {
			files, err := l.resolve(s, ctx)
			if err != nil {
				return nil, fmt.Errorf("resolve kwarg %q: %w", key, err)
			}
			kw[key] = files
			continue
		}
		kw[key] = value
	}
	return kw, nil
}

// asFunc verifies the loaded symbol is callable with the conversion
// contract. Plugins export either a plain function or a convertapi.Func
// variable (plugin lookup yields a pointer for variables).
func asFunc(sym any) (Func, error) {
	switch fn := sym.(type) {
	case func(src convertapi.Source, vars []string, kw convertapi.Kwargs) ([]float64, error):
		return fn, nil
	case Func:
		return fn, nil
	case *Func:
		return *fn, nil
	default:
		return nil, fmt.Errorf("symbol is %T, not a conversion function", sym)
	}
}

func describe(desc map[string]any) string {
	keys := make([]string, 0, len(desc))
	for k := range desc {
		keys = append(keys, k)
	}
	return "{" + strings.Join(keys, ", ") + "}"
}
