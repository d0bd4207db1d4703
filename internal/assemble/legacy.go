package assemble

import (
	"fmt"
	"path/filepath"

	"github.com/oceanbgc/marineval/internal/convert"
	"github.com/oceanbgc/marineval/internal/keyspec"
	"github.com/oceanbgc/marineval/internal/masks"
	"github.com/oceanbgc/marineval/internal/paths"
)

// The legacy catalogue: hand-coded analysis blocks retained for keys that
// never received a declarative definition. Each builds the same spec shape
// the declarative path produces.

type legacyContext struct {
	jobID     string
	annual    bool
	p         *paths.Paths
	regions   []string
	registry  *convert.Registry
	maskCache *masks.Cache
	modelKeys ModelKeys
}

func (c *legacyContext) std(name string) (convert.Func, error) {
	fn, ok := c.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("standard function %s not registered", name)
	}
	return fn, nil
}

func (c *legacyContext) modelFiles(fileKey string) []string {
	return ListModelDataFiles(c.jobID, fileKey, c.p.ModelFolderPref, c.annual)
}

type legacySpec struct {
	key   string
	build func(c *legacyContext) (*keyspec.AnalysisSpec, error)
}

// LegacyKeys lists the analysis keys the legacy catalogue can build, in
// catalogue order.
func LegacyKeys() []string {
	keys := make([]string, 0, len(legacyCatalogue))
	for _, entry := range legacyCatalogue {
		keys = append(keys, entry.key)
	}
	return keys
}

var legacyCatalogue = []legacySpec{
	{key: "Chl_pig", build: buildChlPig},
	{key: "Chl_CCI", build: buildChlCCI},
	{key: "CHD", build: buildPlanktonChl("CHD")},
	{key: "CHN", build: buildPlanktonChl("CHN")},
	{key: "DTC", build: buildDTC},
	{key: "DiaFrac", build: buildDiaFrac},
	{key: "AOU", build: buildAOU},
	{key: "GlobalExportRatio", build: buildGlobalExportRatio},
	{key: "LocalExportRatio", build: buildLocalExportRatio},
	{key: "OMZMeanDepth", build: buildOMZMeanDepth},
	{key: "OMZThickness", build: buildOMZThickness},
	{key: "TotalOMZVolume", build: buildTotalOMZVolume},
	{key: "VolumeMeanOxygen", build: buildVolumeMeanOxygen},
	{key: "GlobalMeanTemperature", build: buildGlobalMeanTemperature(0)},
	{key: "GlobalMeanTemperature_700", build: buildGlobalMeanTemperature(43)},
	{key: "GlobalMeanTemperature_2000", build: buildGlobalMeanTemperature(54)},
	{key: "IcelessMeanSST", build: buildIcelessMeanSST},
}

func buildChlPig(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	sums, err := c.std("sums")
	if err != nil {
		return nil, err
	}
	div1000, err := c.std("div1000")
	if err != nil {
		return nil, err
	}
	return keyspec.NewBuilder("Chlorophyll_pig").
		JobID(c.jobID).
		Model("MEDUSA").
		Dimensions(3).
		ModelFiles(c.modelFiles("ptrc_T")).
		DataFile(filepath.Join(c.p.MAREDATFolder, "MarEDat20121001Pigments.nc")).
		ModelCoords(medusaCoords()).
		DataCoords(maredatCoords()).
		ModelDetails(keyspec.Details{
			Name: "Chlorophyll_pig", Vars: []string{"CHN", "CHD"},
			Convert: sums, Units: "mg C/m^3",
		}).
		DataDetails(&keyspec.Details{
			Name: "Chlorophyll_pig", Vars: []string{"Chlorophylla"},
			Convert: div1000, Units: "ug/L",
		}).
		Layers([]string{"Surface"}).
		Regions(c.regions).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}

func buildChlCCI(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	sums, err := c.std("sums")
	if err != nil {
		return nil, err
	}
	noChange, err := c.std("NoChange")
	if err != nil {
		return nil, err
	}
	// The satellite product ships both annual and monthly climatologies.
	dataFile := filepath.Join(c.p.CCIDir, "ESACCI-OC-L3S-OC_PRODUCTS-CLIMATOLOGY-16Y_MONTHLY_1degree_GEO_PML_OC4v6_QAA-annual-fv2.0.nc")
	if !c.annual {
		dataFile = filepath.Join(c.p.CCIDir, "ESACCI-OC-L3S-OC_PRODUCTS-CLIMATOLOGY-16Y_MONTHLY_1degree_GEO_PML_OC4v6_QAA-all-fv2.0.nc")
	}
	return keyspec.NewBuilder("Chlorophyll_cci").
		JobID(c.jobID).
		Model("MEDUSA").
		Dimensions(2).
		ModelFiles(c.modelFiles("ptrc_T")).
		DataFile(dataFile).
		ModelCoords(medusaCoords()).
		DataCoords(cciCoords()).
		ModelDetails(keyspec.Details{
			Name: "Chlorophyll_cci", Vars: []string{"CHN", "CHD"},
			Convert: sums, Units: "mg C/m^3",
		}).
		DataDetails(&keyspec.Details{
			Name: "Chlorophyll_cci", Vars: []string{"chlor_a"},
			Convert: noChange, Units: "mg C/m^3",
		}).
		Layers([]string{"Surface"}).
		Regions(c.regions).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}

func buildPlanktonChl(variable string) func(*legacyContext) (*keyspec.AnalysisSpec, error) {
	return func(c *legacyContext) (*keyspec.AnalysisSpec, error) {
		noChange, err := c.std("NoChange")
		if err != nil {
			return nil, err
		}
		return keyspec.NewBuilder(variable).
			JobID(c.jobID).
			Model("MEDUSA").
			Dimensions(3).
			ModelFiles(c.modelFiles("ptrc_T")).
			ModelCoords(medusaCoords()).
			ModelDetails(keyspec.Details{
				Name: variable, Vars: []string{variable},
				Convert: noChange, Units: "mg C/m^3",
			}).
			Layers([]string{"Surface"}).
			Regions(c.regions).
			Grid("eORCA1", c.p.OrcaGridFn).
			Build()
	}
}

func buildDTC(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	mul1000, err := c.std("mul1000")
	if err != nil {
		return nil, err
	}
	return keyspec.NewBuilder("DTC").
		JobID(c.jobID).
		Model("MEDUSA").
		Dimensions(3).
		ModelFiles(c.modelFiles("ptrc_T")).
		ModelCoords(medusaCoords()).
		ModelDetails(keyspec.Details{
			Name: "DTC", Vars: []string{"DTC"},
			Convert: mul1000, Units: "umol-C/m3",
		}).
		Layers([]string{"3000m"}).
		Regions(c.regions).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}

func buildDiaFrac(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	return keyspec.NewBuilder("DiaFrac").
		JobID(c.jobID).
		Model("MEDUSA").
		Dimensions(3).
		ModelFiles(c.modelFiles("ptrc_T")).
		ModelCoords(medusaCoords()).
		ModelDetails(keyspec.Details{
			Name: "DiaFrac", Vars: []string{"CHD", "CHN"},
			Convert: diaFrac, Units: "%",
		}).
		Layers([]string{"Surface", "100m"}).
		Regions(c.regions).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}

func buildAOU(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	return keyspec.NewBuilder("AOU").
		JobID(c.jobID).
		Model("MEDUSA").
		Dimensions(3).
		ModelFiles(c.modelFiles("ptrc_T")).
		ModelCoords(medusaCoords()).
		DataCoords(woaCoords()).
		ModelDetails(keyspec.Details{
			Name: "AOU", Vars: []string{"OXY", c.modelKeys.Temp3D, c.modelKeys.Sal3D},
			Convert: modelAOU(c.modelKeys), Units: "mmol O2/m^3",
		}).
		Layers([]string{"Surface"}).
		Regions(c.regions).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}

func buildGlobalExportRatio(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	return keyspec.NewBuilder("ExportRatio").
		JobID(c.jobID).
		Model("MEDUSA").
		Dimensions(1).
		ModelFiles(c.modelFiles("diad_T")).
		ModelCoords(medusaCoords()).
		ModelDetails(keyspec.Details{
			Name: "ExportRatio", Vars: []string{"SDT__100", "FDT__100", "PRD", "PRN"},
			Convert: globalExportRatio, Units: "",
		}).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}

func buildLocalExportRatio(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	return keyspec.NewBuilder("LocalExportRatio").
		JobID(c.jobID).
		Model("MEDUSA").
		Dimensions(2).
		ModelFiles(c.modelFiles("diad_T")).
		ModelCoords(medusaCoords()).
		ModelDetails(keyspec.Details{
			Name: "LocalExportRatio", Vars: []string{"SDT__100", "FDT__100", "PRD", "PRN"},
			Convert: localExportRatio, Units: "",
		}).
		Regions(c.regions).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}

func buildOMZMeanDepth(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	return keyspec.NewBuilder("OMZMeanDepth").
		JobID(c.jobID).
		Model("MEDUSA").
		Dimensions(2).
		ModelFiles(c.modelFiles("ptrc_T")).
		DataFile(filepath.Join(c.p.WOAFolderAnnual, "woa13_all_o00_01.nc")).
		ModelCoords(medusaCoords()).
		DataCoords(woaCoords()).
		ModelDetails(keyspec.Details{
			Name: "OMZMeanDepth", Vars: []string{"OXY"},
			Convert: omzMeanDepth(c.maskCache, c.p.OrcaGridFn), Units: "m",
		}).
		Regions(c.regions).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}

func buildOMZThickness(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	return keyspec.NewBuilder("OMZThickness").
		JobID(c.jobID).
		Model("MEDUSA").
		Dimensions(2).
		ModelFiles(c.modelFiles("ptrc_T")).
		DataFile(filepath.Join(c.p.WOAFolderAnnual, "woa13_all_o00_01.nc")).
		ModelCoords(medusaCoords()).
		DataCoords(woaCoords()).
		ModelDetails(keyspec.Details{
			Name: "OMZThickness", Vars: []string{"OXY"},
			Convert: omzThickness(c.maskCache, c.p.OrcaGridFn), Units: "m",
		}).
		Regions(c.regions).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}

func buildTotalOMZVolume(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	return keyspec.NewBuilder("TotalOMZVolume").
		JobID(c.jobID).
		Model("MEDUSA").
		Dimensions(1).
		ModelFiles(c.modelFiles("ptrc_T")).
		ModelCoords(medusaCoords()).
		DataCoords(woaCoords()).
		ModelDetails(keyspec.Details{
			Name: "TotalOMZVolume", Vars: []string{"OXY"},
			Convert: totalOMZVolume(c.maskCache, c.p.OrcaGridFn), Units: "m^3",
		}).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}

func buildVolumeMeanOxygen(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	return keyspec.NewBuilder("VolumeMeanOxygen").
		JobID(c.jobID).
		Model("MEDUSA").
		Dimensions(2).
		ModelFiles(c.modelFiles("ptrc_T")).
		ModelCoords(medusaCoords()).
		ModelDetails(keyspec.Details{
			Name: "VolumeMeanOxygen", Vars: []string{"OXY"},
			Convert: columnVolumeMean(c.maskCache, c.p.OrcaGridFn, c.modelKeys.CellThickness),
			Units:   "mmol O2/m^3",
		}).
		Regions(append(append([]string(nil), c.regions...), omzRegions...)).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}

func buildGlobalMeanTemperature(maxLevel int) func(*legacyContext) (*keyspec.AnalysisSpec, error) {
	name := "GlobalMeanTemperature"
	switch maxLevel {
	case 43:
		name = "GlobalMeanTemperature_700"
	case 54:
		name = "GlobalMeanTemperature_2000"
	}
	return func(c *legacyContext) (*keyspec.AnalysisSpec, error) {
		return keyspec.NewBuilder(name).
			JobID(c.jobID).
			Model("NEMO").
			Dimensions(1).
			ModelFiles(c.modelFiles("grid_T")).
			ModelCoords(medusaCoords()).
			DataCoords(woaCoords()).
			ModelDetails(keyspec.Details{
				Name: name, Vars: []string{c.modelKeys.Temp3D},
				Convert: volumeWeightedMean(c.maskCache, c.p.OrcaGridFn, c.modelKeys.CellThickness, maxLevel),
				Units:   "degrees C",
			}).
			Grid("eORCA1", c.p.OrcaGridFn).
			Build()
	}
}

func buildIcelessMeanSST(c *legacyContext) (*keyspec.AnalysisSpec, error) {
	return keyspec.NewBuilder("IcelessMeanSST").
		JobID(c.jobID).
		Model("NEMO").
		Dimensions(1).
		ModelFiles(c.modelFiles("grid_T")).
		ModelCoords(medusaCoords()).
		DataCoords(woaCoords()).
		ModelDetails(keyspec.Details{
			Name: "IcelessMeanSST", Vars: []string{"soicecov", c.modelKeys.Temp3D},
			Convert: icelessMeanSST(c.maskCache, c.p.OrcaGridFn, c.modelKeys),
			Units:   "degrees C",
		}).
		Grid("eORCA1", c.p.OrcaGridFn).
		Build()
}
