package keyspec

import "fmt"

// Builder assembles an AnalysisSpec field by field and validates it once,
// at the end, so an incomplete spec can never leak to the executor.
type Builder struct {
	spec AnalysisSpec
}

// NewBuilder starts a spec for the named analysis key.
func NewBuilder(name string) *Builder {
	return &Builder{spec: AnalysisSpec{Name: name}}
}

func (b *Builder) ModelFiles(files []string) *Builder {
	b.spec.ModelFiles = files
	return b
}

func (b *Builder) DataFile(path string) *Builder {
	b.spec.DataFile = path
	return b
}

func (b *Builder) ModelCoords(c Coords) *Builder {
	b.spec.ModelCoords = c
	return b
}

func (b *Builder) DataCoords(c Coords) *Builder {
	b.spec.DataCoords = c
	return b
}

func (b *Builder) ModelDetails(d Details) *Builder {
	b.spec.ModelDetails = d
	return b
}

func (b *Builder) DataDetails(d *Details) *Builder {
	b.spec.DataDetails = d
	return b
}

func (b *Builder) Layers(layers []string) *Builder {
	b.spec.Layers = layers
	return b
}

func (b *Builder) Regions(regions []string) *Builder {
	b.spec.Regions = regions
	return b
}

func (b *Builder) Metrics(metrics []string) *Builder {
	b.spec.Metrics = metrics
	return b
}

func (b *Builder) Grid(name, file string) *Builder {
	b.spec.GridName = name
	b.spec.GridFile = file
	return b
}

func (b *Builder) Dimensions(n int) *Builder {
	b.spec.Dimensions = n
	return b
}

func (b *Builder) Model(model string) *Builder {
	b.spec.Model = model
	return b
}

func (b *Builder) JobID(jobID string) *Builder {
	b.spec.JobID = jobID
	return b
}

// Build validates the assembled spec. Selector lists are never left empty:
// an absent axis gets its sentinel, and an absent metric list defaults from
// the field's dimensionality.
func (b *Builder) Build() (*AnalysisSpec, error) {
	spec := b.spec

	if spec.Name == "" {
		return nil, fmt.Errorf("analysis spec without a name")
	}
	if spec.Dimensions < 1 || spec.Dimensions > 3 {
		return nil, fmt.Errorf("analysis key %s: dimensions must be 1, 2 or 3, got %d",
			spec.Name, spec.Dimensions)
	}
	if len(spec.ModelDetails.Vars) == 0 {
		return nil, &MissingFieldError{Key: spec.Name, Field: "model_vars"}
	}
	if spec.ModelDetails.Convert == nil {
		return nil, &MissingFieldError{Key: spec.Name, Field: "model_convert"}
	}
	if spec.DataDetails != nil && len(spec.DataDetails.Vars) == 0 {
		return nil, &MissingFieldError{Key: spec.Name, Field: "data_vars"}
	}

	if len(spec.Layers) == 0 {
		spec.Layers = []string{Layerless}
	}
	if len(spec.Regions) == 0 {
		spec.Regions = []string{Regionless}
	}
	if len(spec.Metrics) == 0 {
		if spec.Dimensions == 1 {
			spec.Metrics = []string{Metricless}
		} else {
			spec.Metrics = []string{"mean"}
		}
	}
	return &spec, nil
}
