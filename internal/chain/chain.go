// Package chain implements the step-execution engine: the step state
// machine, the two-pass resumable orchestrator, and the wiring between
// declarative stage tokens and their variant implementations.
//
// A chain is driven twice per invocation. The dry pass feeds every source
// artifact through the wired steps with execution disabled, which populates
// each step's deterministic result path without touching storage. A resume
// scan then checks which of those paths already exist and marks the longest
// materialized prefix of steps as not needing to run. The real pass feeds
// the same artifacts again, executing only the steps whose output is
// missing. Result paths are pure functions of step identity and upstream
// naming, never of executed output content; the two-pass split depends on
// that invariant.
package chain

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vk/cmorize/internal/ctxlog"
	"github.com/vk/cmorize/internal/fsutil"
)

// Chain is an ordered sequence of steps converting one variable's source
// artifacts into a final artifact. Chains are single-use: build a fresh one
// per invocation.
type Chain struct {
	name  string
	steps []*Step
	meta  *Metadata
}

// Build resolves stage tokens into wired step instances, newest last. The
// first step receives the chain's uniqueness prefix and the forbid-in-place
// guard; unknown tokens fail immediately.
func Build(name string, stages []string, resolver StageResolver, meta *Metadata) (*Chain, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("chain %s: no stages declared", name)
	}
	if meta.OutputDir == "" {
		return nil, fmt.Errorf("chain %s: metadata has no output directory", name)
	}

	// Instantiate newest first so each step can hold its already-built
	// successor, then reverse into first-to-last order.
	var next *Step
	steps := make([]*Step, len(stages))
	for i := len(stages) - 1; i >= 0; i-- {
		token := stages[i]
		factory, ok := resolver.Stage(token)
		if !ok {
			return nil, &UnknownStageError{Token: token, Known: resolver.Tokens()}
		}
		variant, err := factory(meta)
		if err != nil {
			return nil, fmt.Errorf("chain %s: building stage %q: %w", name, token, err)
		}
		step := &Step{
			name:    fmt.Sprintf("%d-%s", i+1, token),
			variant: variant,
			next:    next,
			meta:    meta,
		}
		steps[i] = step
		next = step
	}

	steps[0].forbidInPlace = true
	steps[0].prefix = Prefix(meta)

	return &Chain{name: name, steps: steps, meta: meta}, nil
}

// Prefix derives the chain's uniqueness prefix. First-step result names are
// the prefix plus the firing's year label, so two chains collide only if
// they agree on variable, frequency, table and the years of a firing, in
// which case they demand the same artifact.
func Prefix(meta *Metadata) string {
	return fmt.Sprintf("%s_%s_%s", meta.Variable, meta.Frequency, meta.Table)
}

// Name returns the chain's descriptor name.
func (c *Chain) Name() string { return c.name }

// Steps returns the wired steps in first-to-last order.
func (c *Chain) Steps() []*Step { return c.steps }

// FinalPath returns the last step's result path. It is only meaningful after
// Run has at least completed the dry pass.
func (c *Chain) FinalPath() string { return c.steps[len(c.steps)-1].ResultPath() }

// Run drives the chain over the given source artifacts: dry pass, resume
// scan, real pass, cleanup. On error the chain aborts in place, leaving all
// produced artifacts on disk for inspection and a later resume.
func (c *Chain) Run(ctx context.Context, inputs []Artifact) error {
	if len(inputs) == 0 {
		return fmt.Errorf("chain %s: no input artifacts", c.name)
	}
	ctx = ctxlog.With(ctx, "chain", c.name)
	logger := ctxlog.FromContext(ctx)
	total := len(inputs)

	// Dry pass: populate every step's deterministic result path without
	// touching storage.
	for _, s := range c.steps {
		s.reset()
		s.needsToRun = true
	}
	for _, in := range inputs {
		if err := c.steps[0].AddInput(ctx, in, total, false); err != nil {
			return fmt.Errorf("chain %s: %w", c.name, err)
		}
	}

	// Resume scan: trust the longest prefix of steps whose output already
	// exists and skip their execution in the real pass.
	resumeFrom := -1
	for i, s := range c.steps {
		if s.resultPath != "" && fsutil.Exists(s.resultPath) {
			resumeFrom = i
		}
	}
	for i, s := range c.steps {
		s.needsToRun = i > resumeFrom
	}
	if resumeFrom >= 0 {
		logger.Info("Resuming from materialized step.",
			"step", c.steps[resumeFrom].Name(), "result", c.steps[resumeFrom].ResultPath())
	}

	if err := os.MkdirAll(c.meta.OutputDir, 0o755); err != nil {
		return fmt.Errorf("chain %s: creating output directory: %w", c.name, err)
	}

	// Real pass: execute only the steps whose output is missing.
	for _, s := range c.steps {
		s.reset()
	}
	for _, in := range inputs {
		if err := c.steps[0].AddInput(ctx, in, total, true); err != nil {
			return fmt.Errorf("chain %s: %w", c.name, err)
		}
	}

	if err := c.cleanup(); err != nil {
		return fmt.Errorf("chain %s: %w", c.name, err)
	}
	logger.Info("Chain finished.", "final", c.FinalPath())
	return nil
}

// cleanup removes intermediate step results once the final artifact exists.
// If the final artifact is missing the intermediates stay untouched so a
// later invocation can resume from them.
func (c *Chain) cleanup() error {
	final := c.steps[len(c.steps)-1]
	if final.resultPath == "" || !fsutil.Exists(final.resultPath) {
		return fmt.Errorf("final artifact %s missing after execution", final.resultPath)
	}

	var errs []error
	for _, s := range c.steps[:len(c.steps)-1] {
		for _, p := range s.produced {
			if p == final.resultPath {
				continue
			}
			if err := fsutil.RemoveIfExists(p); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
