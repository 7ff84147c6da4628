package chain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vk/cmorize/internal/cdo"
	"github.com/vk/cmorize/internal/ctxlog"
	"github.com/vk/cmorize/internal/timeslice"
)

// maxTagLen bounds the step-type tag inside result filenames so that long
// chains cannot push a name past filesystem limits.
const maxTagLen = 32

// Step is one stage instance inside a chain. A step accumulates inputs until
// its variant's readiness predicate holds, then derives its deterministic
// result path, runs (or skips) its sub-commands, and forwards the result to
// its successor. Step instances belong to exactly one chain invocation.
type Step struct {
	name    string
	variant Variant
	next    *Step
	meta    *Metadata

	// prefix is the chain's uniqueness prefix; set on the first step only.
	prefix string

	// forbidInPlace protects caller-owned originals: the step must produce
	// a distinct output file. Always true for the first step of a chain.
	forbidInPlace bool

	// needsToRun is false when the resume scan found this step's result
	// already on disk; the step then forwards without executing.
	needsToRun bool

	// collapsed counts how many extra groups this step's firings have
	// consumed so far; a merge firing over N groups forwards N-1 fewer
	// artifacts than it received, and the successor's expectation must
	// shrink accordingly.
	collapsed int

	acc        []Group
	resultPath string
	produced   []string
}

// Name returns the step's ordinal name within its chain.
func (s *Step) Name() string { return s.name }

// ResultPath returns the deterministic result path computed at the step's
// most recent firing. It is empty before the first firing.
func (s *Step) ResultPath() string { return s.resultPath }

// reset prepares the step for a fresh pass over the same invocation.
func (s *Step) reset() {
	s.acc = nil
	s.produced = nil
	s.collapsed = 0
}

// AddInput feeds one artifact into the step. totalExpected is the number of
// input groups this step will eventually receive; upstream firings that
// collapse several groups into one shrink it before forwarding. Only
// merge-kind readiness consults it. With execute=false the step computes its result
// path and forwards without touching storage (the dry pass); with
// execute=true it runs its sub-commands unless the resume scan marked it as
// already materialized.
func (s *Step) AddInput(ctx context.Context, in Artifact, totalExpected int, execute bool) error {
	for _, g := range s.acc {
		if g.Years.Overlaps(in.Years) {
			return &InfeasibleRequestError{
				Step:   s.name,
				Reason: fmt.Sprintf("input %s overlaps years %s already accumulated", in.Path, in.Years),
			}
		}
	}
	s.acc = append(s.acc, Group{Years: in.Years, Path: in.Path})

	ready, err := s.variant.Ready(s.acc, totalExpected)
	if err != nil {
		return fmt.Errorf("step %s: %w", s.name, err)
	}
	if !ready {
		return nil
	}

	groups := s.acc
	s.acc = nil
	s.collapsed += len(groups) - 1
	sort.Slice(groups, func(i, j int) bool { return groups[i].Years.First() < groups[j].Years.First() })

	years := timeslice.YearSet{}
	for _, g := range groups {
		years = years.Union(g.Years)
	}

	name, err := s.resultName(groups, years)
	if err != nil {
		return err
	}
	s.resultPath = filepath.Join(s.meta.OutputDir, name)
	s.produced = append(s.produced, s.resultPath)

	cmds, err := s.variant.Commands(groups)
	if err != nil {
		return fmt.Errorf("step %s: %w", s.name, err)
	}
	if err := s.checkInPlacePolicy(cmds); err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx).With("step", s.name, "result", s.resultPath)
	if execute {
		if s.needsToRun {
			logger.Info("Executing step.", "inputs", len(groups), "commands", len(cmds))
			if err := s.execute(ctx, groups, cmds); err != nil {
				return err
			}
		} else {
			logger.Info("Result already materialized, skipping execution.")
		}
	}

	if s.next == nil {
		return nil
	}
	return s.next.AddInput(ctx, Artifact{Path: s.resultPath, Years: years}, totalExpected-s.collapsed, execute)
}

// resultName derives the step's result filename. Variants with an externally
// mandated final name override the generic rule; otherwise the truncated
// step tag is appended to the chain prefix plus the firing's year label
// (first step) or to the basename of the step's first input (later steps).
// The year label keeps an individual first step's firings from all landing
// on the same path.
func (s *Step) resultName(groups []Group, years timeslice.YearSet) (string, error) {
	if fixed, ok := s.variant.(FixedNamer); ok {
		if len(groups) > 1 {
			return "", &StructuralPolicyError{
				Step:   s.name,
				Reason: fmt.Sprintf("fixed result name cannot represent %d input groups", len(groups)),
			}
		}
		return fixed.FixedName(groups[0])
	}

	tag := s.variant.Tag()
	if len(tag) > maxTagLen {
		tag = tag[:maxTagLen]
	}
	if s.prefix != "" {
		return s.prefix + "_" + years.Label() + "_" + tag, nil
	}
	return filepath.Base(groups[0].Path) + "_" + tag, nil
}

// checkInPlacePolicy rejects, before any I/O, a forbid-in-place step whose
// firing could only mutate or consume its input: either every sub-command
// works in place, or there is no sub-command at all and the sole input would
// be relocated away.
func (s *Step) checkInPlacePolicy(cmds []cdo.Command) error {
	if !s.forbidInPlace {
		return nil
	}
	if len(cmds) == 0 {
		return &StructuralPolicyError{
			Step:   s.name,
			Reason: "no sub-commands: firing would relocate a caller-owned input",
		}
	}
	for _, c := range cmds {
		if !c.InPlace() {
			return nil
		}
	}
	return &StructuralPolicyError{
		Step:   s.name,
		Reason: "every sub-command mutates its input in place",
	}
}

// execute runs the ordered sub-command list, piping each command's output
// into the next, and relocates the final intermediate to the deterministic
// result path. With an empty command list the sole input is relocated
// directly; multiple inputs without a combining command are an error.
func (s *Step) execute(ctx context.Context, groups []Group, cmds []cdo.Command) error {
	current := make([]string, len(groups))
	for i, g := range groups {
		current[i] = g.Path
	}

	var temps []string
	for i, cmd := range cmds {
		if cmd.InPlace() {
			if len(current) != 1 {
				return &CommandError{
					Step:    s.name,
					Command: cmd.Name(),
					Err:     fmt.Errorf("in-place command requires exactly one input, got %d", len(current)),
				}
			}
			if err := cmd.Run(ctx, current, current[0]); err != nil {
				return &CommandError{Step: s.name, Command: cmd.Name(), Err: err}
			}
			continue
		}

		out := fmt.Sprintf("%s.tmp%d", s.resultPath, i)
		if err := cmd.Run(ctx, current, out); err != nil {
			return &CommandError{Step: s.name, Command: cmd.Name(), Err: err}
		}
		temps = append(temps, out)
		current = []string{out}
	}

	if len(current) != 1 {
		return &StructuralPolicyError{
			Step:   s.name,
			Reason: fmt.Sprintf("%d inputs remain but no sub-command combines them", len(current)),
		}
	}
	if current[0] != s.resultPath {
		if err := os.Rename(current[0], s.resultPath); err != nil {
			return fmt.Errorf("step %s: relocating result: %w", s.name, err)
		}
	}

	// Earlier pipe intermediates are no longer reachable; drop them.
	for _, tmp := range temps {
		if tmp == s.resultPath {
			continue
		}
		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("step %s: removing intermediate %s: %w", s.name, tmp, err)
		}
	}
	return nil
}
