package keyspec

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbgc/marineval/internal/convert"
	"github.com/oceanbgc/marineval/internal/paths"
	"github.com/oceanbgc/marineval/pkg/convertapi"
)

func testPaths(t *testing.T) *paths.Paths {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "key_files"), 0o755))
	return &paths.Paths{
		RepoRoot:   root,
		OrcaGridFn: "/grid/mesh_mask_eORCA1.nc",
	}
}

func writeKeyFile(t *testing.T, p *paths.Paths, key, body string) {
	t.Helper()
	path := filepath.Join(p.KeyFilesDir(), key+".yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// echoDeps resolves every template to itself, loads every descriptor as a
// no-op callable, and guesses NEMO coordinate names.
func echoDeps() Deps {
	return Deps{
		Resolve: func(template string, ctx map[string]string) ([]string, error) {
			return []string{template}, nil
		},
		LoadFunction: func(descriptor any, ctx map[string]string) (convert.Func, convert.Kwargs, error) {
			fn := func(_ convertapi.Source, _ []string, _ convert.Kwargs) ([]float64, error) {
				return nil, nil
			}
			kw := convert.Kwargs{}
			if m, ok := descriptor.(map[string]any); ok {
				for k, v := range m {
					if k == "path" || k == "function" {
						continue
					}
					kw[k] = v
				}
			}
			return fn, kw, nil
		},
		GuessCoords: func(file string) (map[string]string, error) {
			return map[string]string{
				"t": "time_counter", "z": "deptht",
				"lat": "nav_lat", "lon": "nav_lon", "cal": "360_day",
			}, nil
		},
	}
}

func TestLoad_FullDefinition(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "temperature", `
name: Temperature
units: degrees C
dimensions: 3
model: NEMO
modelgrid: eORCA1
model_vars: votemper
model_convert: NoChange
modelFiles: /model/$JOBID/nemo_$JOBID*_grid_T.nc
layers: [Surface, 500m]
regions: [Global, SouthernOcean]
`)

	var gotTemplates []string
	deps := echoDeps()
	base := deps.Resolve
	deps.Resolve = func(template string, ctx map[string]string) ([]string, error) {
		gotTemplates = append(gotTemplates, template)
		assert.Equal(t, "u-ab671", ctx["jobID"])
		return base(template, ctx)
	}

	spec, err := Load("Temperature", p, "u-ab671", deps)
	require.NoError(t, err)

	assert.Equal(t, "Temperature", spec.Name)
	assert.Equal(t, 3, spec.Dimensions)
	assert.Equal(t, "NEMO", spec.Model)
	assert.Equal(t, "u-ab671", spec.JobID)
	assert.Equal(t, []string{"votemper"}, spec.ModelDetails.Vars)
	assert.Equal(t, "degrees C", spec.ModelDetails.Units)
	assert.Equal(t, []string{"/model/$JOBID/nemo_$JOBID*_grid_T.nc"}, spec.ModelFiles)
	assert.Equal(t, []string{"Surface", "500m"}, spec.Layers)
	assert.Equal(t, []string{"Global", "SouthernOcean"}, spec.Regions)
	assert.Equal(t, []string{"mean"}, spec.Metrics, "dimensions 3 defaults the metric list to mean")
	assert.Equal(t, "eORCA1", spec.GridName)
	assert.Equal(t, p.OrcaGridFn, spec.GridFile)
	assert.Contains(t, gotTemplates, p.OrcaGridFn, "grid file goes through discovery")

	assert.Equal(t, "time_counter", spec.ModelCoords.T)
	assert.Equal(t, "deptht", spec.ModelCoords.Z)
	assert.Equal(t, "nav_lat", spec.ModelCoords.Lat)
	assert.Nil(t, spec.DataDetails, "no data_vars means no observational role")
	assert.False(t, spec.HasData())
}

func TestLoad_MissingModelVars(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "broken", `
name: Broken
dimensions: 2
modelFiles: /model/file.nc
`)

	_, err := Load("Broken", p, "u-ab671", echoDeps())
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "model_vars", missing.Field)
}

func TestLoad_MissingKeyFile(t *testing.T) {
	p := testPaths(t)

	_, err := Load("Absent", p, "u-ab671", echoDeps())
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Absent", cfgErr.Key)
}

func TestLoad_MetriclessForOneDimensional(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "amoc", `
name: AMOC
dimensions: 1
model_vars: vo
model_convert: NoChange
modelFiles: /model/$JOBID/grid_V.nc
`)

	spec, err := Load("AMOC", p, "u-ab671", echoDeps())
	require.NoError(t, err)
	assert.Equal(t, []string{Metricless}, spec.Metrics)
	assert.Equal(t, []string{Layerless}, spec.Layers)
	assert.Equal(t, []string{Regionless}, spec.Regions)
}

func TestLoad_ExplicitMetricsOverrideDefault(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "mld", `
name: MLD
dimensions: 2
model_vars: somxzint1
model_convert: NoChange
modelFiles: /model/grid_T.nc
metrics: [mean, wcvweighted]
`)

	spec, err := Load("MLD", p, "u-ab671", echoDeps())
	require.NoError(t, err)
	assert.Equal(t, []string{"mean", "wcvweighted"}, spec.Metrics)
}

func TestLoad_DelimitedStringLists(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "chl", `
name: Chlorophyll
dimensions: 2
model_vars: "CHN, CHD"
model_convert: sums
modelFiles: /model/ptrc_T.nc
regions: "Global 'SouthernOcean'	NorthAtlantic"
`)

	spec, err := Load("Chl", p, "u-ab671", echoDeps())
	require.NoError(t, err)
	assert.Equal(t, []string{"CHN", "CHD"}, spec.ModelDetails.Vars)
	assert.Equal(t, []string{"Global", "SouthernOcean", "NorthAtlantic"}, spec.Regions)
}

func TestLoad_DataRoleAndTDict(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "nitrate", `
name: Nitrate
dimensions: 3
model_vars: DIN
model_convert: NoChange
modelFiles: /model/ptrc_T.nc
data_vars: n_an
data_convert: NoChange
dataFile: /obs/woa/nitrate_annual.nc
tdict: OneToZero
data_t: time
data_lat: lat
`)

	spec, err := Load("Nitrate", p, "u-ab671", echoDeps())
	require.NoError(t, err)
	require.NotNil(t, spec.DataDetails)
	assert.Equal(t, []string{"n_an"}, spec.DataDetails.Vars)
	assert.Equal(t, "/obs/woa/nitrate_annual.nc", spec.DataFile)
	assert.True(t, spec.HasData())

	assert.Equal(t, "time", spec.DataCoords.T, "key-file override beats the guess")
	assert.Equal(t, "lat", spec.DataCoords.Lat)
	assert.Equal(t, "deptht", spec.DataCoords.Z, "unoverridden role keeps the guess")
	assert.Equal(t, 0, spec.DataCoords.TDict[1], "OneToZero maps stored index 1 to month 0")
	assert.Equal(t, spec.DataCoords.TDict, spec.ModelCoords.TDict, "tdict selection covers both roles")
}

func TestLoad_CoordOverridesForModel(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "ice", `
name: IceExtent
dimensions: 2
model_vars: siconc
model_convert: NoChange
modelFiles: /model/grid_T.nc
model_t: time_centered
`)

	spec, err := Load("Ice", p, "u-ab671", echoDeps())
	require.NoError(t, err)
	assert.Equal(t, "time_centered", spec.ModelCoords.T)
	assert.Equal(t, "nav_lon", spec.ModelCoords.Lon)
}

func TestLoad_MissingModelConvert(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "noconvert", `
name: NoConvert
dimensions: 2
model_vars: thetao
modelFiles: /model/grid_T.nc
`)

	_, err := Load("NoConvert", p, "u-ab671", echoDeps())
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing), "omitted model_convert must fail the load, got %v", err)
	assert.Equal(t, "model_convert", missing.Field)
}

func TestLoad_MissingDataConvert(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "nodataconvert", `
name: NoDataConvert
dimensions: 2
model_vars: thetao
model_convert: NoChange
modelFiles: /model/grid_T.nc
data_vars: t_an
dataFile: /obs/woa/temperature_annual.nc
`)

	_, err := Load("NoDataConvert", p, "u-ab671", echoDeps())
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing), "data role without data_convert must fail the load, got %v", err)
	assert.Equal(t, "data_convert", missing.Field)
}

func TestLoad_UnknownTDict(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "badtdict", `
name: BadTDict
dimensions: 2
model_vars: thetao
model_convert: NoChange
modelFiles: /model/grid_T.nc
tdict: TwoToZero
`)

	_, err := Load("BadTDict", p, "u-ab671", echoDeps())
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr), "want ConfigError for an unknown tdict, got %v", err)
	assert.Contains(t, cfgErr.Error(), "TwoToZero")
}

func TestLoad_MissingModelGridLeftEmpty(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "nogrid", `
name: NoGrid
dimensions: 2
model_vars: thetao
model_convert: NoChange
modelFiles: /model/grid_T.nc
`)

	spec, err := Load("NoGrid", p, "u-ab671", echoDeps())
	require.NoError(t, err)
	assert.Equal(t, "", spec.GridName, "absent modelgrid must stay visible as empty, not invent a grid")
}

func TestLoad_ContextCarriesKeyFileFlags(t *testing.T) {
	p := testPaths(t)
	writeKeyFile(t, p, "scenario", `
name: ScenarioTemperature
dimensions: 2
model: CMIP6
scenario: ssp585
year: 2100
model_vars: thetao
model_convert: NoChange
modelFiles: /model/$MODEL/$SCENARIO/$YEAR/thetao.nc
`)

	var gotCtx map[string]string
	deps := echoDeps()
	deps.Resolve = func(template string, ctx map[string]string) ([]string, error) {
		gotCtx = ctx
		return []string{template}, nil
	}

	_, err := Load("Scenario", p, "u-ab671", deps)
	require.NoError(t, err)
	assert.Equal(t, "CMIP6", gotCtx["model"])
	assert.Equal(t, "ssp585", gotCtx["scenario"])
	assert.Equal(t, "2100", gotCtx["year"])
}
