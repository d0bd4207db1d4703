package keyspec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/oceanbgc/marineval/internal/convert"
	"github.com/oceanbgc/marineval/internal/paths"
)

// Deps are the collaborators Load needs: file discovery, conversion
// resolution, and coordinate guessing from a sample file. Injecting them
// keeps key loading testable without NetCDF files on disk.
type Deps struct {
	Resolve      func(template string, ctx map[string]string) ([]string, error)
	LoadFunction func(descriptor any, ctx map[string]string) (convert.Func, convert.Kwargs, error)
	GuessCoords  func(file string) (map[string]string, error)
}

// Load reads the declarative definition for one analysis key and resolves
// it into a complete AnalysisSpec. The definition lives in the key_files
// directory under the lower-cased key name.
func Load(key string, p *paths.Paths, jobID string, deps Deps) (*AnalysisSpec, error) {
	path := filepath.Join(p.KeyFilesDir(), strings.ToLower(key)+".yml")
	doc, err := readKeyFile(key, path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("key", key).Str("path", path).Msg("Loaded key definition")

	ctx := buildContext(doc, jobID)

	b := NewBuilder(stringField(doc, "name", key)).
		JobID(jobID).
		Model(stringField(doc, "model", "")).
		Dimensions(intField(doc, "dimensions"))

	layers, err := ParseList(doc["layers"])
	if err != nil {
		return nil, &ConfigError{Key: key, Path: path, Err: fmt.Errorf("layers: %w", err)}
	}
	regions, err := ParseList(doc["regions"])
	if err != nil {
		return nil, &ConfigError{Key: key, Path: path, Err: fmt.Errorf("regions: %w", err)}
	}
	metrics, err := ParseList(doc["metrics"])
	if err != nil {
		return nil, &ConfigError{Key: key, Path: path, Err: fmt.Errorf("metrics: %w", err)}
	}
	b.Layers(layers).Regions(regions).Metrics(metrics)

	gridFile, err := resolveGridFile(doc, p, ctx, deps)
	if err != nil {
		return nil, &ConfigError{Key: key, Path: path, Err: err}
	}
	b.Grid(stringField(doc, "modelgrid", ""), gridFile)

	tdict, err := TDict(stringField(doc, "tdict", ""))
	if err != nil {
		return nil, &ConfigError{Key: key, Path: path, Err: err}
	}

	units := stringField(doc, "units", "")

	modelDetails, modelFiles, err := loadModelRole(key, doc, units, ctx, deps)
	if err != nil {
		return nil, err
	}
	b.ModelDetails(modelDetails).ModelFiles(modelFiles)

	dataDetails, dataFile, err := loadDataRole(key, doc, units, ctx, deps)
	if err != nil {
		return nil, err
	}
	b.DataDetails(dataDetails).DataFile(dataFile)

	modelCoords, err := roleCoords(doc, "model", firstOrEmpty(modelFiles), deps)
	if err != nil {
		return nil, &ConfigError{Key: key, Path: path, Err: err}
	}
	modelCoords.TDict = tdict
	b.ModelCoords(modelCoords)

	if dataFile != "" {
		dataCoords, err := roleCoords(doc, "data", dataFile, deps)
		if err != nil {
			return nil, &ConfigError{Key: key, Path: path, Err: err}
		}
		dataCoords.TDict = tdict
		b.DataCoords(dataCoords)
	}

	return b.Build()
}

func readKeyFile(key, path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Key: key, Path: path, Err: err}
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &ConfigError{Key: key, Path: path, Err: err}
	}
	if len(doc) == 0 {
		return nil, &ConfigError{Key: key, Path: path, Err: fmt.Errorf("definition is empty")}
	}
	return doc, nil
}

// buildContext assembles the placeholder context for file discovery. The
// job id always participates; the remaining flags come from the key file
// when present.
func buildContext(doc map[string]any, jobID string) map[string]string {
	ctx := map[string]string{"jobID": jobID}
	for _, flag := range []string{"model", "years", "year", "scenario", "name"} {
		switch v := doc[flag].(type) {
		case string:
			if v != "" {
				ctx[flag] = v
			}
		case int:
			ctx[flag] = fmt.Sprint(v)
		}
	}
	return ctx
}

func resolveGridFile(doc map[string]any, p *paths.Paths, ctx map[string]string, deps Deps) (string, error) {
	template := stringField(doc, "gridFile", p.OrcaGridFn)
	if template == "" {
		return "", nil
	}
	files, err := deps.Resolve(template, ctx)
	if err != nil {
		return "", fmt.Errorf("grid file: %w", err)
	}
	return files[0], nil
}

func loadModelRole(key string, doc map[string]any, units string, ctx map[string]string, deps Deps) (Details, []string, error) {
	vars, err := ParseList(doc["model_vars"])
	if err != nil {
		return Details{}, nil, fmt.Errorf("analysis key %s: model_vars: %w", key, err)
	}
	if len(vars) == 0 {
		return Details{}, nil, &MissingFieldError{Key: key, Field: "model_vars"}
	}

	descriptor, ok := doc["model_convert"]
	if !ok || descriptor == nil {
		return Details{}, nil, &MissingFieldError{Key: key, Field: "model_convert"}
	}
	fn, kwargs, err := deps.LoadFunction(descriptor, ctx)
	if err != nil {
		return Details{}, nil, fmt.Errorf("analysis key %s: model_convert: %w", key, err)
	}

	templates, err := ParseList(doc["modelFiles"])
	if err != nil {
		return Details{}, nil, fmt.Errorf("analysis key %s: modelFiles: %w", key, err)
	}
	if len(templates) == 0 {
		return Details{}, nil, &MissingFieldError{Key: key, Field: "modelFiles"}
	}
	var files []string
	for _, template := range templates {
		matches, err := deps.Resolve(template, ctx)
		if err != nil {
			return Details{}, nil, fmt.Errorf("analysis key %s: model files: %w", key, err)
		}
		files = append(files, matches...)
	}

	details := Details{
		Name:    stringField(doc, "name", key),
		Vars:    vars,
		Convert: fn,
		Kwargs:  kwargs,
		Units:   units,
	}
	return details, files, nil
}

// loadDataRole is the optional half of the spec: no data_vars field means
// the key runs without an observational comparison.
func loadDataRole(key string, doc map[string]any, units string, ctx map[string]string, deps Deps) (*Details, string, error) {
	if _, ok := doc["data_vars"]; !ok {
		log.Debug().Str("key", key).Msg("No data variables, observational comparison skipped")
		return nil, "", nil
	}
	vars, err := ParseList(doc["data_vars"])
	if err != nil {
		return nil, "", fmt.Errorf("analysis key %s: data_vars: %w", key, err)
	}

	descriptor, ok := doc["data_convert"]
	if !ok || descriptor == nil {
		return nil, "", &MissingFieldError{Key: key, Field: "data_convert"}
	}
	fn, kwargs, err := deps.LoadFunction(descriptor, ctx)
	if err != nil {
		return nil, "", fmt.Errorf("analysis key %s: data_convert: %w", key, err)
	}

	dataFile := ""
	if template := stringField(doc, "dataFile", ""); template != "" {
		files, err := deps.Resolve(template, ctx)
		if err != nil {
			return nil, "", fmt.Errorf("analysis key %s: data file: %w", key, err)
		}
		if len(files) > 1 {
			log.Warn().Str("key", key).Int("matches", len(files)).Str("chosen", files[0]).
				Msg("Data file template matched several files, using the first")
		}
		dataFile = files[0]
	}

	details := &Details{
		Name:    stringField(doc, "name", key),
		Vars:    vars,
		Convert: fn,
		Kwargs:  kwargs,
		Units:   units,
	}
	return details, dataFile, nil
}

// roleCoords fills the coordinate mapping for one role: guessed from the
// variables present in a sample file, then overridden by any
// <role>_<coord> fields in the key definition.
func roleCoords(doc map[string]any, role, sampleFile string, deps Deps) (Coords, error) {
	guessed := map[string]string{}
	if sampleFile != "" && deps.GuessCoords != nil {
		var err error
		guessed, err = deps.GuessCoords(sampleFile)
		if err != nil {
			return Coords{}, fmt.Errorf("%s coordinates from %s: %w", role, sampleFile, err)
		}
	}
	pick := func(coord string) string {
		if v := stringField(doc, role+"_"+coord, ""); v != "" {
			return v
		}
		return guessed[coord]
	}
	return Coords{
		T:   pick("t"),
		Z:   pick("z"),
		Lat: pick("lat"),
		Lon: pick("lon"),
		Cal: pick("cal"),
	}, nil
}

func stringField(doc map[string]any, field, fallback string) string {
	if s, ok := doc[field].(string); ok && s != "" {
		return s
	}
	return fallback
}

func intField(doc map[string]any, field string) int {
	if n, ok := doc[field].(int); ok {
		return n
	}
	return 0
}

func firstOrEmpty(files []string) string {
	if len(files) == 0 {
		return ""
	}
	return files[0]
}
