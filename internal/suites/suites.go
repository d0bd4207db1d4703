// Package suites expands named suite files into the merged list of enabled
// analysis keys. A suite file is a YAML mapping of key name to on/off flag;
// a run may name several suites, and their flags are merged.
package suites

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ConfigError reports a suite file that is missing or malformed.
type ConfigError struct {
	Suite string
	Path  string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("suite %s (%s): %v", e.Suite, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConflictError reports an analysis key switched on by one suite and off by
// another. Partially running a key the user switched off somewhere would be
// worse than stopping, so a conflict aborts the run.
type ConflictError struct {
	Key         string
	FirstSuite  string
	SecondSuite string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("analysis key %s: suites %s and %s disagree on whether it runs",
		e.Key, e.FirstSuite, e.SecondSuite)
}

type keyState struct {
	enabled bool
	suite   string
}

// BuildEnabledKeys merges the named suites from dir into the list of
// enabled analysis keys. A key's flag must agree across every suite that
// mentions it; a disagreement is a ConflictError. The result keeps keys in
// the order they first appear across the suite files.
func BuildEnabledKeys(suiteNames []string, dir string) ([]string, error) {
	seen := make(map[string]keyState)
	var order []string

	for _, suite := range suiteNames {
		suite = strings.Trim(suite, " ,\t")
		if suite == "" {
			continue
		}
		path := filepath.Join(dir, strings.ToLower(suite)+".yml")
		entries, err := readSuiteFile(suite, path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			prior, ok := seen[entry.key]
			if ok && prior.enabled != entry.enabled {
				return nil, &ConflictError{
					Key:         entry.key,
					FirstSuite:  prior.suite,
					SecondSuite: suite,
				}
			}
			if !ok {
				seen[entry.key] = keyState{enabled: entry.enabled, suite: suite}
				order = append(order, entry.key)
			}
		}
		log.Debug().Str("suite", suite).Int("entries", len(entries)).Msg("Loaded suite file")
	}

	keys := make([]string, 0, len(order))
	for _, key := range order {
		if seen[key].enabled {
			keys = append(keys, key)
		}
	}
	log.Info().Strs("suites", suiteNames).Int("keys", len(keys)).Msg("Suites merged")
	return keys, nil
}

type suiteEntry struct {
	key     string
	enabled bool
}

// readSuiteFile parses one suite file, preserving the order keys appear in
// the document. Decoding into a map would lose that order, so the YAML node
// tree is walked directly.
func readSuiteFile(suite, path string) ([]suiteEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Suite: suite, Path: path, Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &ConfigError{Suite: suite, Path: path, Err: err}
	}
	if len(doc.Content) == 0 {
		return nil, &ConfigError{Suite: suite, Path: path, Err: fmt.Errorf("suite file is empty")}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigError{Suite: suite, Path: path, Err: fmt.Errorf("top level must be a mapping")}
	}

	keysNode := mappingValue(root, "keys")
	if keysNode == nil {
		return nil, &ConfigError{Suite: suite, Path: path, Err: fmt.Errorf("no keys section")}
	}
	if keysNode.Kind != yaml.MappingNode {
		return nil, &ConfigError{Suite: suite, Path: path, Err: fmt.Errorf("keys section must be a mapping")}
	}

	var entries []suiteEntry
	for i := 0; i+1 < len(keysNode.Content); i += 2 {
		keyNode, valNode := keysNode.Content[i], keysNode.Content[i+1]
		if keyNode.Value == "" {
			continue
		}
		if valNode.Tag == "!!null" || valNode.Value == "" {
			log.Warn().Str("suite", suite).Str("key", keyNode.Value).Msg("Suite entry has no flag, skipping")
			continue
		}
		var enabled bool
		if err := valNode.Decode(&enabled); err != nil {
			return nil, &ConfigError{
				Suite: suite,
				Path:  path,
				Err:   fmt.Errorf("key %s: flag must be a boolean: %w", keyNode.Value, err),
			}
		}
		entries = append(entries, suiteEntry{key: keyNode.Value, enabled: enabled})
	}
	return entries, nil
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
