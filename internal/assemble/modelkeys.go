package assemble

import (
	"github.com/rs/zerolog/log"

	"github.com/oceanbgc/marineval/internal/dataset"
)

// ModelKeys names the NetCDF variables a model configuration uses for the
// common physical fields. Successive UKESM generations renamed most of
// them, and newer configurations use the CMIP standard names, so the set
// in play is detected from a sample output file rather than assumed.
type ModelKeys struct {
	Time          string
	Temp3D        string
	SST           string
	Sal3D         string
	SSS           string
	U3D           string
	V3D           string
	W3D           string
	CellThickness string
	MLD           string
}

// DetectModelKeys picks the variable-name set by probing which temperature
// variable a sample file carries. The CMIP standard names are the fallback
// when neither UKESM generation matches.
func DetectModelKeys(has func(name string) bool) ModelKeys {
	switch {
	case has("votemper"):
		return ModelKeys{
			Time:          "time_counter",
			Temp3D:        "votemper",
			SST:           "",
			Sal3D:         "vosaline",
			SSS:           "",
			U3D:           "vozocrtx",
			V3D:           "vomecrty",
			W3D:           "vovecrtz",
			CellThickness: "e3u",
			MLD:           "ssomxl010",
		}
	case has("thetao_con"):
		return ModelKeys{
			Time:          "time_counter",
			Temp3D:        "thetao_con",
			SST:           "tos_con",
			Sal3D:         "so_abs",
			SSS:           "sos_abs",
			U3D:           "uo",
			V3D:           "vo",
			W3D:           "wo",
			CellThickness: "thkcello",
			MLD:           "somxzint1",
		}
	default:
		return ModelKeys{
			Time:          "time_centered",
			Temp3D:        "thetao",
			SST:           "tos",
			Sal3D:         "so",
			SSS:           "sos",
			U3D:           "uo",
			V3D:           "vo",
			W3D:           "wo",
			CellThickness: "thkcello",
			MLD:           "ssomxl010",
		}
	}
}

// DetectModelKeysFromFile opens a sample output file and detects the
// variable-name set from it. With no sample available the CMIP names are
// assumed.
func DetectModelKeysFromFile(path string) (ModelKeys, error) {
	if path == "" {
		log.Warn().Msg("No sample file to detect variable naming, assuming CMIP names")
		return DetectModelKeys(func(string) bool { return false }), nil
	}
	ds, err := dataset.Open(path)
	if err != nil {
		return ModelKeys{}, err
	}
	defer ds.Close()

	keys := DetectModelKeys(ds.HasVariable)
	log.Info().Str("sample", path).Str("temperature", keys.Temp3D).Msg("Detected model variable naming")
	return keys, nil
}
