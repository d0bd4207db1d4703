package assemble

import (
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

// ListModelDataFiles lists one run's output files for a NEMO file key such
// as grid_T or ptrc_T. Annual runs use the o_1y naming, monthly runs o_1m.
// No matches is not an error here; several legacy analyses probe for files
// and skip cleanly when a stream was never produced.
func ListModelDataFiles(jobID, fileKey, folder string, annual bool) []string {
	freq := "1m"
	if annual {
		freq = "1y"
	}
	pattern := filepath.Join(folder, jobID, jobID+"o_"+freq+"_*_"+fileKey+".nc")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		log.Warn().Str("pattern", pattern).Err(err).Msg("Bad model file pattern")
		return nil
	}
	sort.Strings(matches)
	log.Debug().Str("jobID", jobID).Str("fileKey", fileKey).Int("files", len(matches)).
		Msg("Listed model data files")
	return matches
}
