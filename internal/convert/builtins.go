package convert

import (
	"fmt"
	"math"

	"github.com/oceanbgc/marineval/internal/masks"
	"github.com/oceanbgc/marineval/pkg/convertapi"
)

// registerStandard installs the standard conversion functions. Names match
// the identifiers used in key files.
func registerStandard(r *Registry, maskCache *masks.Cache) {
	r.Register("NoChange", NoChange)
	r.Register("sums", Sums)
	r.Register("mul1000", scaleBy(1000))
	r.Register("mul1000000", scaleBy(1e6))
	r.Register("div1000", scaleBy(1e-3))
	r.Register("div1000000", scaleBy(1e-6))
	r.Register("abs", Abs)
	r.Register("multiplyBy", MultiplyBy)
	r.Register("addBy", AddBy)
	r.Register("applyLandMask", applyLandMask(maskCache, false))
	r.Register("applyLandMask2D", applyLandMask(maskCache, true))
	r.Register("applyLandMask_maskInFile", applyLandMaskInFile(maskCache))
}

// NoChange reads the first listed variable untouched.
func NoChange(src convertapi.Source, vars []string, _ Kwargs) ([]float64, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("NoChange: no variables listed")
	}
	return src.ReadFloats(vars[0])
}

// Sums reads all listed variables and adds them element-wise.
func Sums(src convertapi.Source, vars []string, _ Kwargs) ([]float64, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("sums: no variables listed")
	}
	total, err := src.ReadFloats(vars[0])
	if err != nil {
		return nil, err
	}
	for _, name := range vars[1:] {
		next, err := src.ReadFloats(name)
		if err != nil {
			return nil, err
		}
		if len(next) != len(total) {
			return nil, fmt.Errorf("sums: %s has %d cells, want %d", name, len(next), len(total))
		}
		for i, v := range next {
			total[i] += v
		}
	}
	return total, nil
}

// Abs reads the first listed variable and takes its absolute value.
func Abs(src convertapi.Source, vars []string, kw Kwargs) ([]float64, error) {
	arr, err := NoChange(src, vars, kw)
	if err != nil {
		return nil, err
	}
	for i, v := range arr {
		arr[i] = math.Abs(v)
	}
	return arr, nil
}

// MultiplyBy scales the first listed variable by the `factor` kwarg.
func MultiplyBy(src convertapi.Source, vars []string, kw Kwargs) ([]float64, error) {
	factor, err := floatKwarg(kw, "factor")
	if err != nil {
		return nil, err
	}
	arr, err := NoChange(src, vars, kw)
	if err != nil {
		return nil, err
	}
	for i := range arr {
		arr[i] *= factor
	}
	return arr, nil
}

// AddBy offsets the first listed variable by the `addend` kwarg.
func AddBy(src convertapi.Source, vars []string, kw Kwargs) ([]float64, error) {
	addend, err := floatKwarg(kw, "addend")
	if err != nil {
		return nil, err
	}
	arr, err := NoChange(src, vars, kw)
	if err != nil {
		return nil, err
	}
	for i := range arr {
		arr[i] += addend
	}
	return arr, nil
}

func scaleBy(factor float64) Func {
	return func(src convertapi.Source, vars []string, kw Kwargs) ([]float64, error) {
		arr, err := NoChange(src, vars, kw)
		if err != nil {
			return nil, err
		}
		for i := range arr {
			arr[i] *= factor
		}
		return arr, nil
	}
}

// applyLandMask reads the first variable and masks cells where the grid
// file's mask is zero. surfaceOnly selects the top layer of a 3-D mask for
// 2-D fields.
func applyLandMask(maskCache *masks.Cache, surfaceOnly bool) Func {
	return func(src convertapi.Source, vars []string, kw Kwargs) ([]float64, error) {
		areaFile, err := fileKwarg(kw, "areafile")
		if err != nil {
			return nil, err
		}
		maskName := stringKwarg(kw, "maskname", "tmask")

		mask, err := maskCache.Get(areaFile, maskName)
		if err != nil {
			return nil, err
		}
		values := mask.Values
		if surfaceOnly {
			values = mask.Surface()
		}
		arr, err := NoChange(src, vars, kw)
		if err != nil {
			return nil, err
		}
		return maskWhereZero(arr, values)
	}
}

// applyLandMaskInFile masks against a mask variable carried in the same
// file as the data.
func applyLandMaskInFile(maskCache *masks.Cache) Func {
	return func(src convertapi.Source, vars []string, kw Kwargs) ([]float64, error) {
		maskName := stringKwarg(kw, "maskname", "tmask")
		mask, err := maskCache.Get(src.Path(), maskName)
		if err != nil {
			return nil, err
		}
		arr, err := NoChange(src, vars, kw)
		if err != nil {
			return nil, err
		}
		return maskWhereZero(arr, mask.Values)
	}
}

func maskWhereZero(arr, mask []float64) ([]float64, error) {
	if len(mask) != len(arr) {
		return nil, fmt.Errorf("mask has %d cells, field has %d", len(mask), len(arr))
	}
	for i := range arr {
		if mask[i] == 0 {
			arr[i] = math.NaN()
		}
	}
	return arr, nil
}

func floatKwarg(kw Kwargs, name string) (float64, error) {
	v, ok := kw[name]
	if !ok {
		return 0, fmt.Errorf("missing kwarg %q", name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("kwarg %q: want a number, got %T", name, v)
	}
}

func stringKwarg(kw Kwargs, name, fallback string) string {
	if s, ok := kw[name].(string); ok {
		return s
	}
	return fallback
}

// fileKwarg returns a single file path from a kwarg that the loader has
// resolved to a file list (or that was given as a bare path).
func fileKwarg(kw Kwargs, name string) (string, error) {
	switch v := kw[name].(type) {
	case string:
		return v, nil
	case []string:
		if len(v) == 1 {
			return v[0], nil
		}
		return "", fmt.Errorf("kwarg %q: want exactly one file, got %d", name, len(v))
	case nil:
		return "", fmt.Errorf("missing kwarg %q", name)
	default:
		return "", fmt.Errorf("kwarg %q: want a file path, got %T", name, v)
	}
}
