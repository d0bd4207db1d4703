// Package discover resolves file-path templates to concrete, existing file
// sets on disk.
package discover

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/oceanbgc/marineval/internal/paths"
	"github.com/oceanbgc/marineval/internal/pathsub"
)

// InvalidDirectoryError reports a template whose parent directory does not
// exist. It is checked before globbing so a bad path and an empty match are
// distinguishable in batch logs.
type InvalidDirectoryError struct {
	Dir string
}

func (e *InvalidDirectoryError) Error() string {
	return fmt.Sprintf("base %s is not a valid directory", e.Dir)
}

// NoMatchingFilesError reports a template whose directory exists but whose
// glob expansion is empty. Empty results indicate a real data gap, never a
// valid outcome.
type NoMatchingFilesError struct {
	Pattern string
	Dir     string
}

func (e *NoMatchingFilesError) Error() string {
	return fmt.Sprintf("directory %s contains no file matching pattern %s", e.Dir, e.Pattern)
}

// contextFlags are the per-key context values recognized in templates, in
// substitution order.
var contextFlags = []string{"jobID", "model", "years", "year", "scenario", "name"}

// ListInputFiles substitutes the recognized $FLAG tokens in template, then
// expands it to the sorted list of matching files. Lexicographic order is
// the de facto chronological order for date-stamped model filenames.
// The returned list is never empty: no match is an error.
func ListInputFiles(template string, ctx map[string]string, p *paths.Paths) ([]string, error) {
	resolved := template
	for _, fv := range fixedFlags(p) {
		resolved = pathsub.Resolve(resolved, fv[0], fv[1])
	}
	for _, flag := range contextFlags {
		if v, ok := ctx[flag]; ok && v != "" {
			resolved = pathsub.Resolve(resolved, strings.ToUpper(flag), v)
		}
	}

	dir := filepath.Dir(resolved)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Error().Str("dir", dir).Str("template", template).Msg("Template parent directory does not exist")
		return nil, &InvalidDirectoryError{Dir: dir}
	}

	matches, err := filepath.Glob(resolved)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", resolved, err)
	}
	if len(matches) == 0 {
		log.Error().Str("pattern", resolved).Str("dir", dir).Msg("No files match template")
		return nil, &NoMatchingFilesError{Pattern: resolved, Dir: dir}
	}

	sort.Strings(matches)
	log.Debug().Str("pattern", resolved).Int("matches", len(matches)).Msg("Resolved input files")
	return matches, nil
}

// fixedFlags returns the always-recognized flags in substitution order.
func fixedFlags(p *paths.Paths) [][2]string {
	return [][2]string{
		{"USERNAME", currentUser()},
		{"BASEDIR_MODEL", p.ModelFolderPref},
		{"BASEDIR_OBS", p.ObsFolder},
		{"PATHS_GRIDFILE", p.OrcaGridFn},
		{"PATHS_REPO", p.RepoRoot},
	}
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
