// Package assemble is the orchestrator: it turns the enabled analysis keys
// into fully resolved specifications, preferring declarative key files and
// falling back to the legacy hand-coded catalogue, and pre-flight checks
// every spec's input files.
package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/oceanbgc/marineval/internal/convert"
	"github.com/oceanbgc/marineval/internal/keyspec"
	"github.com/oceanbgc/marineval/internal/masks"
	"github.com/oceanbgc/marineval/internal/paths"
)

// UnknownKeyError reports an enabled analysis key with neither a
// declarative definition nor a legacy block.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("analysis key %s: no key file and no legacy block", e.Key)
}

// MissingFilesError reports input files absent at spec-build time under
// strict checking.
type MissingFilesError struct {
	Key   string
	Files []string
}

func (e *MissingFilesError) Error() string {
	return fmt.Sprintf("analysis key %s: %d input files missing, first is %s",
		e.Key, len(e.Files), e.Files[0])
}

// Region list presets. Each analysis can override these, the presets only
// seed the legacy catalogue.
var regionPresets = map[string][]string{
	"all": {
		"Global", "ignoreInlandSeas", "SouthernOcean", "ArcticOcean",
		"AtlanticSOcean", "Equator10", "Remainder",
		"NorthernSubpolarAtlantic", "NorthernSubpolarPacific",
	},
	"short":  {"Global", "SouthernHemisphere", "NorthernHemisphere"},
	"debug":  {"Global"},
	"spinup": {"Global"},
}

// omzRegions are the low-oxygen basins appended to the volume-mean oxygen
// analysis on top of whatever preset the run selected.
var omzRegions = []string{
	"EquatorialPacificOcean", "IndianOcean", "EquatorialAtlanticOcean",
}

// RegionList expands a region preset name; an unrecognized name is taken
// as a single literal region.
func RegionList(name string) []string {
	if preset, ok := regionPresets[name]; ok {
		return append([]string(nil), preset...)
	}
	return []string{name}
}

// Options configure one assembly run.
type Options struct {
	JobID     string
	Annual    bool
	Strict    bool
	Regions   []string
	Paths     *paths.Paths
	Deps      keyspec.Deps
	Registry  *convert.Registry
	MaskCache *masks.Cache
}

// Assemble resolves every enabled key into an AnalysisSpec. The returned
// order slice preserves the enabled-key order for deterministic execution.
// Declarative definitions always win over legacy blocks for the same key.
func Assemble(enabledKeys []string, opts Options) (map[string]*keyspec.AnalysisSpec, []string, error) {
	legacyByKey := make(map[string]legacySpec, len(legacyCatalogue))
	for _, entry := range legacyCatalogue {
		legacyByKey[entry.key] = entry
	}

	var lctx *legacyContext
	specs := make(map[string]*keyspec.AnalysisSpec, len(enabledKeys))
	names := make(map[string]string, len(enabledKeys))
	var order []string

	for _, key := range enabledKeys {
		if _, done := specs[key]; done {
			continue
		}
		var spec *keyspec.AnalysisSpec
		var err error

		switch {
		case hasKeyFile(opts.Paths, key):
			if _, shadowed := legacyByKey[key]; shadowed {
				log.Debug().Str("key", key).Msg("Declarative definition shadows legacy block")
			}
			spec, err = keyspec.Load(key, opts.Paths, opts.JobID, opts.Deps)

		default:
			entry, ok := legacyByKey[key]
			if !ok {
				return nil, nil, &UnknownKeyError{Key: key}
			}
			if lctx == nil {
				lctx, err = newLegacyContext(opts)
				if err != nil {
					return nil, nil, err
				}
			}
			spec, err = entry.build(lctx)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("assemble %s: %w", key, err)
		}

		if prior, clash := names[spec.Name]; clash {
			return nil, nil, fmt.Errorf("analysis keys %s and %s both resolve to spec name %s",
				prior, key, spec.Name)
		}
		names[spec.Name] = key

		if err := preflight(key, spec, opts.Strict); err != nil {
			return nil, nil, err
		}
		specs[key] = spec
		order = append(order, key)
		log.Info().Str("key", key).Str("name", spec.Name).Int("modelFiles", len(spec.ModelFiles)).
			Int("dimensions", spec.Dimensions).Msg("Assembled analysis spec")
	}
	return specs, order, nil
}

func hasKeyFile(p *paths.Paths, key string) bool {
	path := filepath.Join(p.KeyFilesDir(), strings.ToLower(key)+".yml")
	_, err := os.Stat(path)
	return err == nil
}

func newLegacyContext(opts Options) (*legacyContext, error) {
	samples := ListModelDataFiles(opts.JobID, "grid_T", opts.Paths.ModelFolderPref, opts.Annual)
	sample := ""
	if len(samples) > 0 {
		sample = samples[0]
	}
	modelKeys, err := DetectModelKeysFromFile(sample)
	if err != nil {
		return nil, fmt.Errorf("detect model variable naming: %w", err)
	}
	regions := opts.Regions
	if len(regions) == 0 {
		regions = RegionList("all")
	}
	return &legacyContext{
		jobID:     opts.JobID,
		annual:    opts.Annual,
		p:         opts.Paths,
		regions:   regions,
		registry:  opts.Registry,
		maskCache: opts.MaskCache,
		modelKeys: modelKeys,
	}, nil
}

// preflight verifies the spec's input files exist. Partial model output is
// routine mid-simulation, so lenient mode only logs; strict mode fails the
// run before any analysis starts.
func preflight(key string, spec *keyspec.AnalysisSpec, strict bool) error {
	var missing []string
	for _, file := range spec.ModelFiles {
		if _, err := os.Stat(file); err != nil {
			missing = append(missing, file)
		}
	}
	if spec.DataFile != "" {
		if _, err := os.Stat(spec.DataFile); err != nil {
			missing = append(missing, spec.DataFile)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if strict {
		log.Error().Str("key", key).Strs("missing", missing).Msg("Input files missing")
		return &MissingFilesError{Key: key, Files: missing}
	}
	log.Warn().Str("key", key).Int("missing", len(missing)).Str("first", missing[0]).
		Msg("Input files missing, forwarding spec anyway")
	return nil
}
