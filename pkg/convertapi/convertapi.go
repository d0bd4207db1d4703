// Package convertapi defines the contract between the pipeline and
// conversion functions, including externally compiled ones loaded from
// source files at run time. External conversion plugins import only this
// package.
package convertapi

// Source is a read-only view of one NetCDF input.
type Source interface {
	// Path returns the file path the source was opened from.
	Path() string
	// HasVariable reports whether the named variable exists.
	HasVariable(name string) bool
	// ReadFloats reads a variable of any rank as a flat float64 slice.
	ReadFloats(name string) ([]float64, error)
	// Shape returns the variable's dimension lengths.
	Shape(name string) ([]int, error)
}

// Kwargs are the keyword arguments bound to a conversion function from its
// descriptor in the key file.
type Kwargs map[string]any

// Func is a pure conversion: read the listed variables from the source and
// return the converted field as a flat array, masked cells as NaN.
type Func func(src Source, vars []string, kw Kwargs) ([]float64, error)
