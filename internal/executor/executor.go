// Package executor defines the boundary to the time-series and profile
// analysis engine. The pipeline assembles specs and hands them over here;
// the numerical work, caching and plotting happen behind the Runner
// interface.
package executor

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/oceanbgc/marineval/internal/keyspec"
)

// Request is one unit of analysis work: a resolved spec plus the run's
// output locations. Clean discards any cached intermediate results before
// recomputing.
type Request struct {
	Spec       *keyspec.AnalysisSpec
	JobID      string
	WorkingDir string
	ImageDir   string
	Clean      bool
}

// Runner executes analysis requests. Implementations own their caches and
// plots; they return only an error to the pipeline.
type Runner interface {
	RunTimeseries(ctx context.Context, req Request) error
	RunProfile(ctx context.Context, req Request) error
}

// LogRunner reports what would run without computing anything. It stands
// in for the analysis engine during dry runs and tests.
type LogRunner struct{}

func (LogRunner) RunTimeseries(_ context.Context, req Request) error {
	log.Info().Str("jobID", req.JobID).Str("name", req.Spec.Name).
		Int("modelFiles", len(req.Spec.ModelFiles)).
		Strs("regions", req.Spec.Regions).Strs("metrics", req.Spec.Metrics).
		Str("workingDir", req.WorkingDir).Bool("clean", req.Clean).
		Msg("Timeseries analysis")
	return nil
}

func (LogRunner) RunProfile(_ context.Context, req Request) error {
	log.Info().Str("jobID", req.JobID).Str("name", req.Spec.Name).
		Int("layers", len(req.Spec.Layers)).
		Str("workingDir", req.WorkingDir).
		Msg("Profile analysis")
	return nil
}
