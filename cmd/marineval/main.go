package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/oceanbgc/marineval/internal/assemble"
	"github.com/oceanbgc/marineval/internal/convert"
	"github.com/oceanbgc/marineval/internal/dataset"
	"github.com/oceanbgc/marineval/internal/discover"
	"github.com/oceanbgc/marineval/internal/executor"
	"github.com/oceanbgc/marineval/internal/keyspec"
	"github.com/oceanbgc/marineval/internal/masks"
	"github.com/oceanbgc/marineval/internal/paths"
	"github.com/oceanbgc/marineval/internal/suites"
)

var (
	jobIDs          []string
	suiteKeys       []string
	configFile      string
	strictFileCheck bool
	annual          bool
	regionPreset    string
	clean           bool
	debugLogging    bool
)

// acceptedSuites are the suite names the CLI recognizes. Anything else is
// rejected up front so a typo fails before any analysis starts.
var acceptedSuites = []string{
	"kmf", "physics", "bgc", "debug", "spinup", "salinity", "fast", "level1", "level3",
}

var rootCmd = &cobra.Command{
	Use:   "marineval",
	Short: "Ocean biogeochemistry model evaluation",
	Long: `marineval evaluates ocean biogeochemical model output against
observational climatologies. It resolves analysis suites into per-variable
specifications, locates model and reference files on disk, and drives the
time-series and depth-profile analyses for each one.`,
}

var timeseriesCmd = &cobra.Command{
	Use:   "timeseries",
	Short: "Run the time-series analysis for one or more jobs",
	Long: `Resolve the requested suites into analysis specifications and run
the time-series analysis for each job.

Example usage:
  marineval timeseries -j u-ab671                      # default suites
  marineval timeseries -j u-ab671 -k bgc -k physics    # named suites
  marineval timeseries -j u-ab671 -j u-ab672 -k debug  # several jobs
  marineval timeseries -j u-ab671 --strict-file-check=false`,
	RunE: runTimeseries,
}

func init() {
	rootCmd.AddCommand(timeseriesCmd)

	timeseriesCmd.Flags().StringSliceVarP(&jobIDs, "job-id", "j", nil, "Job identifier of the model run (repeatable)")
	timeseriesCmd.Flags().StringSliceVarP(&suiteKeys, "keys", "k", []string{"kmf", "level1"}, "Analysis suites to run")
	timeseriesCmd.Flags().StringVarP(&configFile, "config-file", "c", "marineval-config.yml", "Path configuration file")
	timeseriesCmd.Flags().BoolVar(&strictFileCheck, "strict-file-check", true, "Fail when expected input files are missing")
	timeseriesCmd.Flags().BoolVar(&annual, "annual", true, "Use annual model output rather than monthly")
	timeseriesCmd.Flags().StringVar(&regionPreset, "regions", "all", "Region preset: all, short, debug, or a single region name")
	timeseriesCmd.Flags().BoolVar(&clean, "clean", false, "Discard cached intermediate results before running")
	timeseriesCmd.Flags().BoolVar(&debugLogging, "debug", false, "Verbose logging")
	_ = timeseriesCmd.MarkFlagRequired("job-id")
}

func runTimeseries(cmd *cobra.Command, args []string) error {
	level := zerolog.InfoLevel
	if debugLogging {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	if err := validateSuites(suiteKeys); err != nil {
		return err
	}

	p, err := paths.Load(configFile)
	if err != nil {
		return fmt.Errorf("load path configuration: %w", err)
	}

	for _, jobID := range jobIDs {
		if err := runJob(cmd.Context(), jobID, p); err != nil {
			return fmt.Errorf("job %s: %w", jobID, err)
		}
	}
	return nil
}

func validateSuites(requested []string) error {
	accepted := make(map[string]bool, len(acceptedSuites))
	for _, name := range acceptedSuites {
		accepted[name] = true
	}
	for _, name := range requested {
		if !accepted[strings.ToLower(name)] {
			return fmt.Errorf("unrecognized suite %q, accepted suites are: %s",
				name, strings.Join(acceptedSuites, ", "))
		}
	}
	return nil
}

func runJob(ctx context.Context, jobID string, p *paths.Paths) error {
	log.Info().Str("jobID", jobID).Strs("suites", suiteKeys).Msg("Starting analysis")

	enabled, err := suites.BuildEnabledKeys(suiteKeys, p.KeyListsDir())
	if err != nil {
		return err
	}
	if len(enabled) == 0 {
		log.Warn().Str("jobID", jobID).Msg("No analysis keys enabled, nothing to do")
		return nil
	}

	resolve := func(template string, fileCtx map[string]string) ([]string, error) {
		return discover.ListInputFiles(template, fileCtx, p)
	}
	maskCache := masks.NewCache()
	registry := convert.NewRegistry(maskCache)
	loader := convert.NewLoader(registry, p.RepoRoot, resolve)

	specs, order, err := assemble.Assemble(enabled, assemble.Options{
		JobID:     jobID,
		Annual:    annual,
		Strict:    strictFileCheck,
		Regions:   assemble.RegionList(regionPreset),
		Paths:     p,
		Registry:  registry,
		MaskCache: maskCache,
		Deps: keyspec.Deps{
			Resolve:      resolve,
			LoadFunction: loader.Load,
			GuessCoords:  guessCoords,
		},
	})
	if err != nil {
		return err
	}

	workingDir, err := paths.Folder(p.ShelveDir, "timeseries", jobID)
	if err != nil {
		return err
	}
	imageDir, err := paths.Folder(p.ImageDir, "timeseries", jobID)
	if err != nil {
		return err
	}

	var runner executor.Runner = executor.LogRunner{}
	for _, key := range order {
		spec := specs[key]
		req := executor.Request{
			Spec:       spec,
			JobID:      jobID,
			WorkingDir: workingDir,
			ImageDir:   imageDir,
			Clean:      clean,
		}
		if err := runner.RunTimeseries(ctx, req); err != nil {
			return fmt.Errorf("timeseries %s: %w", key, err)
		}
		if spec.Dimensions == 3 {
			profile := req
			profile.Spec = assemble.ProfileRequest(spec)
			if err := runner.RunProfile(ctx, profile); err != nil {
				return fmt.Errorf("profile %s: %w", key, err)
			}
		}
	}
	log.Info().Str("jobID", jobID).Int("specs", len(order)).Msg("Analysis complete")
	return nil
}

func guessCoords(file string) (map[string]string, error) {
	ds, err := dataset.Open(file)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	return ds.GuessCoords(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
