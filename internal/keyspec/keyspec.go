// Package keyspec loads per-key declarative definitions and resolves them
// into complete analysis specifications: source files located on disk,
// conversion functions bound, coordinate names settled, and layer, region
// and metric lists normalized.
package keyspec

import (
	"fmt"

	"github.com/oceanbgc/marineval/internal/convert"
)

// Sentinel selector values for fields without a vertical, spatial or
// metric axis. Specs never carry an empty selector list.
const (
	Layerless  = "layerless"
	Regionless = "regionless"
	Metricless = "metricless"
)

// ConfigError reports a key definition file that is missing, empty or
// structurally invalid.
type ConfigError struct {
	Key  string
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("analysis key %s (%s): %v", e.Key, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MissingFieldError reports a required field absent from a key definition.
type MissingFieldError struct {
	Key   string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("analysis key %s: required field %q not provided", e.Key, e.Field)
}

// Coords names the physical variables filling each logical coordinate role
// in one NetCDF source. An empty name means the role does not apply.
type Coords struct {
	T   string
	Z   string
	Lat string
	Lon string
	Cal string
	// TDict maps stored time indices to month indices.
	TDict map[int]int
}

// Details carries one role's variable list and bound conversion.
type Details struct {
	Name    string
	Vars    []string
	Convert convert.Func
	Kwargs  convert.Kwargs
	Units   string
}

// AnalysisSpec is the fully resolved description of one analysis key,
// ready to hand to the analysis executor. It is built once per run and not
// mutated afterwards.
type AnalysisSpec struct {
	Name         string
	ModelFiles   []string
	DataFile     string
	ModelCoords  Coords
	DataCoords   Coords
	ModelDetails Details
	DataDetails  *Details
	Layers       []string
	Regions      []string
	Metrics      []string
	GridName     string
	GridFile     string
	Dimensions   int
	Model        string
	JobID        string
}

// HasData reports whether the spec carries an observational reference.
func (s *AnalysisSpec) HasData() bool {
	return s.DataDetails != nil && s.DataFile != ""
}
