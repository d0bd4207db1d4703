package assemble

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbgc/marineval/internal/convert"
	"github.com/oceanbgc/marineval/internal/keyspec"
	"github.com/oceanbgc/marineval/internal/masks"
	"github.com/oceanbgc/marineval/internal/paths"
	"github.com/oceanbgc/marineval/pkg/convertapi"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "key_files"), 0o755))
	p := &paths.Paths{
		RepoRoot:        root,
		ModelFolderPref: filepath.Join(root, "model") + string(os.PathSeparator),
		OrcaGridFn:      filepath.Join(root, "mesh_mask.nc"),
		MAREDATFolder:   filepath.Join(root, "maredat") + string(os.PathSeparator),
		CCIDir:          filepath.Join(root, "cci") + string(os.PathSeparator),
		WOAFolderAnnual: filepath.Join(root, "woa") + string(os.PathSeparator),
	}
	cache := masks.NewCacheWithLoader(func(file, maskName string) (*masks.Mask, error) {
		return &masks.Mask{Values: []float64{1}, Shape: []int{1}}, nil
	})
	return Options{
		JobID:     "u-ab671",
		Annual:    true,
		Paths:     p,
		Registry:  convert.NewRegistry(cache),
		MaskCache: cache,
		Deps: keyspec.Deps{
			Resolve: func(template string, ctx map[string]string) ([]string, error) {
				return []string{template}, nil
			},
			LoadFunction: func(descriptor any, ctx map[string]string) (convert.Func, convert.Kwargs, error) {
				fn := func(_ convertapi.Source, _ []string, _ convert.Kwargs) ([]float64, error) {
					return nil, nil
				}
				return fn, convert.Kwargs{}, nil
			},
			GuessCoords: func(file string) (map[string]string, error) {
				return map[string]string{"t": "time_counter"}, nil
			},
		},
	}
}

func writeKeyDefinition(t *testing.T, p *paths.Paths, key, body string) {
	t.Helper()
	path := filepath.Join(p.KeyFilesDir(), key+".yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestAssemble_DeclarativeKey(t *testing.T) {
	opts := testOptions(t)
	writeKeyDefinition(t, opts.Paths, "temperature", `
name: Temperature
dimensions: 3
model_vars: thetao
modelFiles: /model/grid_T.nc
`)

	specs, order, err := Assemble([]string{"Temperature"}, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"Temperature"}, order)
	require.Contains(t, specs, "Temperature")
	assert.Equal(t, 3, specs["Temperature"].Dimensions)
}

func TestAssemble_LegacyFallback(t *testing.T) {
	opts := testOptions(t)

	specs, order, err := Assemble([]string{"CHN"}, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"CHN"}, order)

	spec := specs["CHN"]
	require.NotNil(t, spec)
	assert.Equal(t, "CHN", spec.Name)
	assert.Equal(t, 3, spec.Dimensions)
	assert.Equal(t, "MEDUSA", spec.Model)
	assert.Equal(t, []string{"Surface"}, spec.Layers)
	assert.Equal(t, RegionList("all"), spec.Regions)
	assert.NotNil(t, spec.ModelDetails.Convert)
	assert.Equal(t, "time_counter", spec.ModelCoords.T)
}

func TestAssemble_DeclarativeShadowsLegacy(t *testing.T) {
	opts := testOptions(t)
	writeKeyDefinition(t, opts.Paths, "chn", `
name: CHN
dimensions: 2
model_vars: CHN
modelFiles: /model/ptrc_T.nc
units: redefined
`)

	specs, _, err := Assemble([]string{"CHN"}, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, specs["CHN"].Dimensions, "the key file must win over the legacy block")
	assert.Equal(t, "redefined", specs["CHN"].ModelDetails.Units)
}

func TestAssemble_UnknownKey(t *testing.T) {
	opts := testOptions(t)

	_, _, err := Assemble([]string{"NotAnAnalysis"}, opts)
	var unknown *UnknownKeyError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "NotAnAnalysis", unknown.Key)
}

func TestAssemble_StrictPreflight(t *testing.T) {
	opts := testOptions(t)
	missing := filepath.Join(opts.Paths.RepoRoot, "nope.nc")
	writeKeyDefinition(t, opts.Paths, "temperature", `
name: Temperature
dimensions: 3
model_vars: thetao
modelFiles: `+missing+`
`)

	opts.Strict = true
	_, _, err := Assemble([]string{"Temperature"}, opts)
	var missErr *MissingFilesError
	require.True(t, errors.As(err, &missErr))
	assert.Equal(t, []string{missing}, missErr.Files)

	opts.Strict = false
	specs, _, err := Assemble([]string{"Temperature"}, opts)
	require.NoError(t, err, "lenient mode forwards the spec")
	assert.Equal(t, []string{missing}, specs["Temperature"].ModelFiles)
}

func TestAssemble_StrictPassesWhenFilesExist(t *testing.T) {
	opts := testOptions(t)
	existing := filepath.Join(opts.Paths.RepoRoot, "grid_T.nc")
	require.NoError(t, os.WriteFile(existing, []byte("nc"), 0o644))
	writeKeyDefinition(t, opts.Paths, "temperature", `
name: Temperature
dimensions: 3
model_vars: thetao
modelFiles: `+existing+`
`)

	opts.Strict = true
	_, _, err := Assemble([]string{"Temperature"}, opts)
	assert.NoError(t, err)
}

func TestAssemble_DuplicateSpecName(t *testing.T) {
	opts := testOptions(t)
	for _, key := range []string{"alpha", "beta"} {
		writeKeyDefinition(t, opts.Paths, key, `
name: SameName
dimensions: 2
model_vars: thetao
modelFiles: /model/grid_T.nc
`)
	}

	_, _, err := Assemble([]string{"Alpha", "Beta"}, opts)
	assert.Error(t, err)
}

func TestAssemble_RepeatedKeyResolvedOnce(t *testing.T) {
	opts := testOptions(t)
	writeKeyDefinition(t, opts.Paths, "temperature", `
name: Temperature
dimensions: 3
model_vars: thetao
modelFiles: /model/grid_T.nc
`)

	_, order, err := Assemble([]string{"Temperature", "Temperature"}, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"Temperature"}, order)
}

func TestListModelDataFiles(t *testing.T) {
	root := t.TempDir()
	runDir := filepath.Join(root, "u-ab671")
	require.NoError(t, os.MkdirAll(runDir, 0o755))
	for _, name := range []string{
		"u-ab671o_1y_20020101_grid_T.nc",
		"u-ab671o_1y_20000101_grid_T.nc",
		"u-ab671o_1m_20000101_grid_T.nc",
		"u-ab671o_1y_20000101_ptrc_T.nc",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(runDir, name), []byte("nc"), 0o644))
	}

	annual := ListModelDataFiles("u-ab671", "grid_T", root, true)
	require.Len(t, annual, 2)
	assert.Equal(t, filepath.Join(runDir, "u-ab671o_1y_20000101_grid_T.nc"), annual[0])
	assert.Equal(t, filepath.Join(runDir, "u-ab671o_1y_20020101_grid_T.nc"), annual[1])

	monthly := ListModelDataFiles("u-ab671", "grid_T", root, false)
	require.Len(t, monthly, 1)

	assert.Empty(t, ListModelDataFiles("u-zz999", "grid_T", root, true))
}

func TestDetectModelKeys(t *testing.T) {
	gen1 := DetectModelKeys(func(name string) bool { return name == "votemper" })
	assert.Equal(t, "votemper", gen1.Temp3D)
	assert.Equal(t, "vosaline", gen1.Sal3D)
	assert.Equal(t, "time_counter", gen1.Time)
	assert.Equal(t, "ssomxl010", gen1.MLD)

	gen2 := DetectModelKeys(func(name string) bool { return name == "thetao_con" })
	assert.Equal(t, "thetao_con", gen2.Temp3D)
	assert.Equal(t, "so_abs", gen2.Sal3D)
	assert.Equal(t, "somxzint1", gen2.MLD)

	cmip := DetectModelKeys(func(string) bool { return false })
	assert.Equal(t, "thetao", cmip.Temp3D)
	assert.Equal(t, "so", cmip.Sal3D)
	assert.Equal(t, "time_centered", cmip.Time)
}

func TestProfileRequest(t *testing.T) {
	spec := &keyspec.AnalysisSpec{
		Name:       "Temperature",
		Dimensions: 3,
		Layers:     []string{"Surface", "500m"},
		Metrics:    []string{"wcvweighted"},
	}

	profile := ProfileRequest(spec)
	assert.Len(t, profile.Layers, 102)
	assert.Equal(t, "0", profile.Layers[0])
	assert.Equal(t, "101", profile.Layers[101])
	assert.Equal(t, []string{"mean"}, profile.Metrics)

	assert.Equal(t, []string{"Surface", "500m"}, spec.Layers, "source spec must not change")
	assert.Equal(t, []string{"wcvweighted"}, spec.Metrics)
}

func TestRegionList(t *testing.T) {
	assert.Len(t, RegionList("all"), 9)
	assert.Equal(t, []string{"Global", "SouthernHemisphere", "NorthernHemisphere"}, RegionList("short"))
	assert.Equal(t, []string{"Global"}, RegionList("debug"))
	assert.Equal(t, []string{"Global"}, RegionList("spinup"))
	assert.Equal(t, []string{"WeddelSea"}, RegionList("WeddelSea"))
}

func TestLegacyKeysCatalogueOrder(t *testing.T) {
	keys := LegacyKeys()
	assert.Equal(t, "Chl_pig", keys[0])
	assert.Contains(t, keys, "AOU")
	assert.Contains(t, keys, "IcelessMeanSST")
	assert.Len(t, keys, 17)
}
