// Package dataset is a thin wrapper around NetCDF sources. The pipeline
// only needs to probe variable names, read mask/area style arrays and guess
// coordinate variables; everything numerical happens downstream.
package dataset

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"
)

// Dataset is an open, read-only NetCDF file.
type Dataset struct {
	path string
	nc   netcdf.Dataset
}

// Open opens path for reading.
func Open(path string) (*Dataset, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open netcdf file %s: %w", path, err)
	}
	return &Dataset{path: path, nc: nc}, nil
}

// Close releases the underlying file handle.
func (d *Dataset) Close() error {
	return d.nc.Close()
}

// Path returns the file path the dataset was opened from.
func (d *Dataset) Path() string {
	return d.path
}

// HasVariable reports whether the named variable exists in the file.
func (d *Dataset) HasVariable(name string) bool {
	_, err := d.nc.Var(name)
	return err == nil
}

// ReadFloats reads the named variable of any rank as a flat float64 slice.
func (d *Dataset) ReadFloats(name string) ([]float64, error) {
	v, err := d.nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("variable %s not found in %s: %w", name, d.path, err)
	}

	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("dimensions of %s: %w", name, err)
	}
	total := 1
	for _, dim := range dims {
		n, err := dim.Len()
		if err != nil {
			return nil, fmt.Errorf("dimension length of %s: %w", name, err)
		}
		total *= int(n)
	}

	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("type of %s: %w", name, err)
	}
	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, total)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("variable %s: unsupported type %v", name, t)
	}
}

// Shape returns the dimension lengths of the named variable.
func (d *Dataset) Shape(name string) ([]int, error) {
	v, err := d.nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("variable %s not found in %s: %w", name, d.path, err)
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("dimensions of %s: %w", name, err)
	}
	shape := make([]int, len(dims))
	for i, dim := range dims {
		n, err := dim.Len()
		if err != nil {
			return nil, fmt.Errorf("dimension length of %s: %w", name, err)
		}
		shape[i] = int(n)
	}
	return shape, nil
}
