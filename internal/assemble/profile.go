package assemble

import (
	"strconv"

	"github.com/oceanbgc/marineval/internal/keyspec"
)

// profileLevels is the eORCA1 vertical grid size.
const profileLevels = 102

// ProfileRequest derives the depth-profile variant of a 3-D spec: the
// named layers are replaced by every vertical index and the metric list is
// forced to the mean. The executor runs it alongside the time series.
func ProfileRequest(spec *keyspec.AnalysisSpec) *keyspec.AnalysisSpec {
	layers := make([]string, profileLevels)
	for i := range layers {
		layers[i] = strconv.Itoa(i)
	}
	profile := *spec
	profile.Layers = layers
	profile.Metrics = []string{"mean"}
	return &profile
}
