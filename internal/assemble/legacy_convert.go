package assemble

import (
	"fmt"
	"math"
	"strings"

	"github.com/oceanbgc/marineval/internal/convert"
	"github.com/oceanbgc/marineval/internal/dataset"
	"github.com/oceanbgc/marineval/internal/masks"
	"github.com/oceanbgc/marineval/pkg/convertapi"
)

// Conversion closures for the legacy catalogue. These pre-date the
// declarative key files and bake in MEDUSA/NEMO variable names and grid
// conventions.

// fieldShape splits a variable's shape into depth-level count and
// horizontal cell count, tolerating a leading time or singleton axis.
func fieldShape(shape []int) (levels, cells int, err error) {
	if len(shape) < 2 {
		return 0, 0, fmt.Errorf("field of rank %d has no horizontal axes", len(shape))
	}
	cells = shape[len(shape)-1] * shape[len(shape)-2]
	total := 1
	for _, n := range shape {
		total *= n
	}
	if cells == 0 || total%cells != 0 {
		return 0, 0, fmt.Errorf("inconsistent field shape %v", shape)
	}
	return total / cells, cells, nil
}

// firstSlice cuts the leading time step from a flattened field.
func firstSlice(arr []float64, size int) ([]float64, error) {
	if len(arr) < size {
		return nil, fmt.Errorf("field has %d cells, want at least %d", len(arr), size)
	}
	return arr[:size], nil
}

func readField(src convertapi.Source, name string) (arr []float64, levels, cells int, err error) {
	arr, err = src.ReadFloats(name)
	if err != nil {
		return nil, 0, 0, err
	}
	shape, err := src.Shape(name)
	if err != nil {
		return nil, 0, 0, err
	}
	levels, cells, err = fieldShape(shape)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w", name, err)
	}
	return arr, levels, cells, nil
}

func gridMask(cache *masks.Cache, gridFile string) (*masks.Mask, error) {
	return cache.Get(gridFile, "tmask")
}

// gridCellArea builds the horizontal cell areas from the grid file's e1t
// and e2t scale factors.
func gridCellArea(cache *masks.Cache, gridFile string) ([]float64, error) {
	e1t, err := cache.Get(gridFile, "e1t")
	if err != nil {
		return nil, err
	}
	e2t, err := cache.Get(gridFile, "e2t")
	if err != nil {
		return nil, err
	}
	if len(e1t.Values) != len(e2t.Values) {
		return nil, fmt.Errorf("e1t and e2t disagree on grid size")
	}
	area := make([]float64, len(e1t.Values))
	for i := range area {
		area[i] = e1t.Values[i] * e2t.Values[i]
	}
	return area, nil
}

// gridCellVolume builds per-cell volumes, preferring a precomputed pvol
// variable and falling back to e3t times the cell area.
func gridCellVolume(cache *masks.Cache, gridFile string) ([]float64, error) {
	if pvol, err := cache.Get(gridFile, "pvol"); err == nil {
		return pvol.Values, nil
	}
	e3t, err := cache.Get(gridFile, "e3t")
	if err != nil {
		return nil, err
	}
	area, err := gridCellArea(cache, gridFile)
	if err != nil {
		return nil, err
	}
	if len(area) == 0 || len(e3t.Values)%len(area) != 0 {
		return nil, fmt.Errorf("e3t does not tile the horizontal grid")
	}
	vol := make([]float64, len(e3t.Values))
	for i := range vol {
		vol[i] = e3t.Values[i] * area[i%len(area)]
	}
	return vol, nil
}

// diaFrac is the diatom fraction of total chlorophyll, in percent.
func diaFrac(src convertapi.Source, vars []string, _ convert.Kwargs) ([]float64, error) {
	if len(vars) < 2 {
		return nil, fmt.Errorf("diatom fraction needs the CHD and CHN variables")
	}
	chd, err := src.ReadFloats(vars[0])
	if err != nil {
		return nil, err
	}
	chn, err := src.ReadFloats(vars[1])
	if err != nil {
		return nil, err
	}
	if len(chd) != len(chn) {
		return nil, fmt.Errorf("CHD and CHN grids disagree")
	}
	out := make([]float64, len(chd))
	for i := range out {
		total := chd[i] + chn[i]
		if total == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = 100 * chd[i] / total
	}
	return out, nil
}

// globalExportRatio reduces carbon export against primary production to a
// single scalar.
func globalExportRatio(src convertapi.Source, _ []string, _ convert.Kwargs) ([]float64, error) {
	var export, production float64
	for _, name := range []string{"SDT__100", "FDT__100"} {
		arr, err := src.ReadFloats(name)
		if err != nil {
			return nil, err
		}
		for _, v := range arr {
			export += v
		}
	}
	for _, name := range []string{"PRD", "PRN"} {
		arr, err := src.ReadFloats(name)
		if err != nil {
			return nil, err
		}
		for _, v := range arr {
			production += v
		}
	}
	if production == 0 {
		return nil, fmt.Errorf("primary production is zero, export ratio undefined")
	}
	return []float64{export / production}, nil
}

// localExportRatio is the per-cell export ratio; ratios above 1.01 are
// numerical artifacts and masked out.
func localExportRatio(src convertapi.Source, _ []string, _ convert.Kwargs) ([]float64, error) {
	sdt, err := src.ReadFloats("SDT__100")
	if err != nil {
		return nil, err
	}
	fdt, err := src.ReadFloats("FDT__100")
	if err != nil {
		return nil, err
	}
	prd, err := src.ReadFloats("PRD")
	if err != nil {
		return nil, err
	}
	prn, err := src.ReadFloats("PRN")
	if err != nil {
		return nil, err
	}
	if len(sdt) != len(fdt) || len(sdt) != len(prd) || len(sdt) != len(prn) {
		return nil, fmt.Errorf("export and production grids disagree")
	}
	out := make([]float64, len(sdt))
	for i := range out {
		production := prd[i] + prn[i]
		ratio := math.NaN()
		if production != 0 {
			ratio = (sdt[i] + fdt[i]) / production
			if ratio > 1.01 {
				ratio = math.NaN()
			}
		}
		out[i] = ratio
	}
	return out, nil
}

// Garcia and Gordon (1992) oxygen saturation fit, Benson and Krause
// coefficients, umol/kg.
const (
	o2satA0 = 5.80871
	o2satA1 = 3.20291
	o2satA2 = 4.17887
	o2satA3 = 5.10006
	o2satA4 = -9.86643e-2
	o2satA5 = 3.80369
	o2satB0 = -7.01577e-3
	o2satB1 = -7.70028e-3
	o2satB2 = -1.13864e-2
	o2satB3 = -9.51519e-3
	o2satC0 = -2.75915e-7

	// umol/kg to mmol/m^3 at reference seawater density.
	o2satDensity = 1.027
)

func oxygenSaturation(temp, sal float64) float64 {
	ts := math.Log((298.15 - temp) / (273.15 + temp))
	lnC := o2satA0 + ts*(o2satA1+ts*(o2satA2+ts*(o2satA3+ts*(o2satA4+ts*o2satA5)))) +
		sal*(o2satB0+ts*(o2satB1+ts*(o2satB2+ts*o2satB3))) +
		o2satC0*sal*sal
	return math.Exp(lnC) * o2satDensity
}

// modelAOU computes apparent oxygen utilisation. Oxygen lives in the
// passive-tracer stream while temperature and salinity live in the grid_T
// stream of the same run, so the companion file is opened by name.
func modelAOU(keys ModelKeys) convert.Func {
	return func(src convertapi.Source, vars []string, _ convert.Kwargs) ([]float64, error) {
		oxy, err := src.ReadFloats("OXY")
		if err != nil {
			return nil, err
		}
		companion := strings.Replace(src.Path(), "ptrc_T", "grid_T", 1)
		ds, err := dataset.Open(companion)
		if err != nil {
			return nil, fmt.Errorf("companion physics file: %w", err)
		}
		defer ds.Close()

		temp, err := ds.ReadFloats(keys.Temp3D)
		if err != nil {
			return nil, err
		}
		sal, err := ds.ReadFloats(keys.Sal3D)
		if err != nil {
			return nil, err
		}
		if len(temp) != len(oxy) || len(sal) != len(oxy) {
			return nil, fmt.Errorf("oxygen and physics grids disagree")
		}
		out := make([]float64, len(oxy))
		for i := range out {
			out[i] = oxygenSaturation(temp[i], sal[i]) - oxy[i]
		}
		return out, nil
	}
}

// volumeWeightedMean reduces a 3-D field to one scalar using the in-file
// cell thickness and area. maxLevel caps the depth range; zero means the
// whole column.
func volumeWeightedMean(cache *masks.Cache, gridFile, thicknessVar string, maxLevel int) convert.Func {
	return func(src convertapi.Source, vars []string, _ convert.Kwargs) ([]float64, error) {
		if len(vars) == 0 {
			return nil, fmt.Errorf("volume mean needs a variable")
		}
		field, levels, cells, err := readField(src, vars[0])
		if err != nil {
			return nil, err
		}
		field, err = firstSlice(field, levels*cells)
		if err != nil {
			return nil, err
		}
		thickness, err := src.ReadFloats(thicknessVar)
		if err != nil {
			return nil, err
		}
		thickness, err = firstSlice(thickness, levels*cells)
		if err != nil {
			return nil, err
		}
		area, err := src.ReadFloats("area")
		if err != nil {
			area, err = gridCellArea(cache, gridFile)
			if err != nil {
				return nil, err
			}
		}
		if len(area) < cells {
			return nil, fmt.Errorf("cell areas do not cover the grid")
		}
		mask, err := gridMask(cache, gridFile)
		if err != nil {
			return nil, err
		}
		if maxLevel <= 0 || maxLevel > levels {
			maxLevel = levels
		}

		var weighted, volume float64
		for level := 0; level < maxLevel; level++ {
			for cell := 0; cell < cells; cell++ {
				i := level*cells + cell
				if i < len(mask.Values) && mask.Values[i] == 0 {
					continue
				}
				if math.IsNaN(field[i]) {
					continue
				}
				vol := thickness[i] * area[cell%len(area)]
				weighted += field[i] * vol
				volume += vol
			}
		}
		if volume == 0 {
			return nil, fmt.Errorf("masked volume is empty")
		}
		return []float64{weighted / volume}, nil
	}
}

// columnVolumeMean reduces each water column to its volume-weighted mean,
// leaving a 2-D field for the regional metrics.
func columnVolumeMean(cache *masks.Cache, gridFile, thicknessVar string) convert.Func {
	return func(src convertapi.Source, vars []string, _ convert.Kwargs) ([]float64, error) {
		if len(vars) == 0 {
			return nil, fmt.Errorf("volume mean needs a variable")
		}
		field, levels, cells, err := readField(src, vars[0])
		if err != nil {
			return nil, err
		}
		field, err = firstSlice(field, levels*cells)
		if err != nil {
			return nil, err
		}
		thickness, err := src.ReadFloats(thicknessVar)
		if err != nil {
			return nil, err
		}
		thickness, err = firstSlice(thickness, levels*cells)
		if err != nil {
			return nil, err
		}
		mask, err := gridMask(cache, gridFile)
		if err != nil {
			return nil, err
		}
		out := make([]float64, cells)
		for cell := 0; cell < cells; cell++ {
			var weighted, volume float64
			for level := 0; level < levels; level++ {
				i := level*cells + cell
				if i < len(mask.Values) && mask.Values[i] == 0 {
					continue
				}
				if math.IsNaN(field[i]) {
					continue
				}
				weighted += field[i] * thickness[i]
				volume += thickness[i]
			}
			if volume == 0 {
				out[cell] = math.NaN()
				continue
			}
			out[cell] = weighted / volume
		}
		return out, nil
	}
}

// icelessMeanSST is the area-weighted mean surface temperature over open
// water, excluding cells with more than 15% ice cover.
func icelessMeanSST(cache *masks.Cache, gridFile string, keys ModelKeys) convert.Func {
	return func(src convertapi.Source, vars []string, _ convert.Kwargs) ([]float64, error) {
		ice, err := src.ReadFloats("soicecov")
		if err != nil {
			return nil, err
		}
		temp, _, cells, err := readField(src, keys.Temp3D)
		if err != nil {
			return nil, err
		}
		sst, err := firstSlice(temp, cells)
		if err != nil {
			return nil, err
		}
		ice, err = firstSlice(ice, cells)
		if err != nil {
			return nil, err
		}
		mask, err := gridMask(cache, gridFile)
		if err != nil {
			return nil, err
		}
		surface := mask.Surface()
		area, err := gridCellArea(cache, gridFile)
		if err != nil {
			return nil, err
		}
		if len(area) < cells || len(surface) < cells {
			return nil, fmt.Errorf("grid does not cover the temperature field")
		}

		var weighted, total float64
		for i := 0; i < cells; i++ {
			if surface[i] == 0 || ice[i] > 0.15 || math.IsNaN(sst[i]) {
				continue
			}
			weighted += sst[i] * area[i]
			total += area[i]
		}
		if total == 0 {
			return nil, fmt.Errorf("no open-water cells")
		}
		return []float64{weighted / total}, nil
	}
}

const omzThreshold = 20.0 // mmol O2/m^3

// omzMeanDepth maps each column to the mean depth of its oxygen-minimum
// zone, zero where the column has none.
func omzMeanDepth(cache *masks.Cache, gridFile string) convert.Func {
	return func(src convertapi.Source, vars []string, _ convert.Kwargs) ([]float64, error) {
		oxy, levels, cells, err := readField(src, "OXY")
		if err != nil {
			return nil, err
		}
		oxy, err = firstSlice(oxy, levels*cells)
		if err != nil {
			return nil, err
		}
		depths, err := cache.Get(gridFile, "gdepw")
		if err != nil {
			return nil, err
		}
		mask, err := gridMask(cache, gridFile)
		if err != nil {
			return nil, err
		}
		out := make([]float64, cells)
		for cell := 0; cell < cells; cell++ {
			var depthSum float64
			var count int
			for level := 0; level < levels; level++ {
				i := level*cells + cell
				if i >= len(depths.Values) || i >= len(mask.Values) {
					break
				}
				if mask.Values[i] == 0 || oxy[i] > omzThreshold || math.IsNaN(oxy[i]) {
					continue
				}
				depthSum += math.Abs(depths.Values[i])
				count++
			}
			if count > 0 {
				out[cell] = depthSum / float64(count)
			}
		}
		return out, nil
	}
}

// omzThickness maps each column to the summed thickness of its
// oxygen-minimum cells.
func omzThickness(cache *masks.Cache, gridFile string) convert.Func {
	return func(src convertapi.Source, vars []string, _ convert.Kwargs) ([]float64, error) {
		oxy, levels, cells, err := readField(src, "OXY")
		if err != nil {
			return nil, err
		}
		oxy, err = firstSlice(oxy, levels*cells)
		if err != nil {
			return nil, err
		}
		e3t, err := cache.Get(gridFile, "e3t")
		if err != nil {
			return nil, err
		}
		mask, err := gridMask(cache, gridFile)
		if err != nil {
			return nil, err
		}
		out := make([]float64, cells)
		for cell := 0; cell < cells; cell++ {
			for level := 0; level < levels; level++ {
				i := level*cells + cell
				if i >= len(e3t.Values) || i >= len(mask.Values) {
					break
				}
				if mask.Values[i] == 0 || oxy[i] > omzThreshold || math.IsNaN(oxy[i]) {
					continue
				}
				out[cell] += e3t.Values[i]
			}
		}
		return out, nil
	}
}

// totalOMZVolume reduces the oxygen field to the global volume below the
// oxygen-minimum threshold.
func totalOMZVolume(cache *masks.Cache, gridFile string) convert.Func {
	return func(src convertapi.Source, vars []string, _ convert.Kwargs) ([]float64, error) {
		oxy, levels, cells, err := readField(src, "OXY")
		if err != nil {
			return nil, err
		}
		oxy, err = firstSlice(oxy, levels*cells)
		if err != nil {
			return nil, err
		}
		vol, err := gridCellVolume(cache, gridFile)
		if err != nil {
			return nil, err
		}
		mask, err := gridMask(cache, gridFile)
		if err != nil {
			return nil, err
		}
		var total float64
		for i := 0; i < levels*cells && i < len(vol); i++ {
			if i < len(mask.Values) && mask.Values[i] == 0 {
				continue
			}
			if oxy[i] > omzThreshold || math.IsNaN(oxy[i]) {
				continue
			}
			total += vol[i]
		}
		return []float64{total}, nil
	}
}
