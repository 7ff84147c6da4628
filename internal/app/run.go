package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/cmorize/internal/chain"
	"github.com/vk/cmorize/internal/config"
	"github.com/vk/cmorize/internal/ctxlog"
	"github.com/vk/cmorize/internal/executor"
	"github.com/vk/cmorize/internal/fsutil"
	"github.com/vk/cmorize/internal/timeslice"
)

// Run executes the main application logic: discover sources, build one
// chain per descriptor, and drive them through the worker pool.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	jobs, err := a.buildJobs()
	if err != nil {
		return err
	}
	a.logger.Info("Stages registered:", "count", len(a.registry.Tokens()), "keys", a.registry.Tokens())

	a.logger.Info("🚀 Starting concurrent execution...",
		"chains", len(jobs), "workers", a.model.Job.Workers)
	pool := executor.New(a.model.Job.Workers)
	if err := pool.Run(ctx, jobs); err != nil {
		return err
	}
	a.logger.Info("🏁 Execution finished.")
	return nil
}

// buildJobs resolves every chain descriptor into a self-contained
// invocation: discovered source artifacts plus freshly built step instances.
func (a *App) buildJobs() ([]executor.Job, error) {
	jobs := make([]executor.Job, 0, len(a.model.Chains))
	for _, def := range a.model.Chains {
		inputs, err := discoverSources(def)
		if err != nil {
			return nil, err
		}

		c, err := chain.Build(def.Name, def.Stages, a.registry, a.metadataFor(def))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, executor.Job{Name: def.Name, Chain: c, Inputs: inputs})
	}
	return jobs, nil
}

// discoverSources expands the descriptor's glob patterns and parses each
// match's year coverage from its filename, ordered by first year.
func discoverSources(def *config.Chain) ([]chain.Artifact, error) {
	paths, err := fsutil.ExpandGlobs("", def.Sources)
	if err != nil {
		return nil, fmt.Errorf("chain %q: expanding sources: %w", def.Name, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("chain %q: no source files match %v", def.Name, def.Sources)
	}

	inputs := make([]chain.Artifact, len(paths))
	for i, path := range paths {
		years, err := timeslice.ParseFileYears(path)
		if err != nil {
			return nil, fmt.Errorf("chain %q: source %s: %w", def.Name, path, err)
		}
		inputs[i] = chain.Artifact{Path: path, Years: years}
	}
	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].Years.First() < inputs[j].Years.First()
	})
	return inputs, nil
}

// metadataFor assembles the immutable attribute bundle shared by every step
// of one chain.
func (a *App) metadataFor(def *config.Chain) *chain.Metadata {
	return &chain.Metadata{
		OutputDir:        a.model.Job.OutputDir,
		GridFile:         a.model.Job.GridFile,
		GlobalAttributes: a.model.Job.GlobalAttributes,
		Variable:         def.Variable,
		Frequency:        def.Frequency,
		SourceUnit:       def.SourceUnit,
		TargetVariable:   def.TargetVariable,
		TargetFrequency:  def.TargetFrequency,
		TargetUnit:       def.TargetUnit,
		Table:            def.Table,
		Description:      def.Description,
		StandardName:     def.StandardName,
		CellMethods:      def.CellMethods,
		CellMeasures:     def.CellMeasures,
	}
}
