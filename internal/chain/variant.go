package chain

import (
	"github.com/vk/cmorize/internal/cdo"
	"github.com/vk/cmorize/internal/timeslice"
)

// Artifact is a file on disk plus the set of years it covers. Artifacts are
// otherwise opaque to the engine.
type Artifact struct {
	Path  string
	Years timeslice.YearSet
}

// Group is one accumulated input of a step: the years it covers and the path
// that holds it. Groups in one accumulator are pairwise disjoint.
type Group struct {
	Years timeslice.YearSet
	Path  string
}

// Variant is the behavior of one step kind. Implementations are pure: both
// Ready and Commands may be called speculatively during the dry pass and
// must not touch storage.
type Variant interface {
	// Tag is the short step-type token appended to result filenames.
	Tag() string

	// Ready reports whether the accumulated groups are sufficient to fire.
	// totalExpected is the number of groups this invocation will eventually
	// deliver. An error means the request can never be satisfied and aborts
	// the chain before any sub-command runs.
	Ready(groups []Group, totalExpected int) (bool, error)

	// Commands derives the ordered sub-command list for one firing.
	Commands(groups []Group) ([]cdo.Command, error)
}

// FixedNamer is an optional variant capability: the step's result file has an
// externally mandated name instead of the derived one. Such steps refuse
// multi-input firing, since a fixed name cannot represent more than one
// input set.
type FixedNamer interface {
	FixedName(group Group) (string, error)
}

// Factory builds a variant for one chain, given the chain's metadata.
// Factories run at chain-build time so that impossible configurations fail
// before any input is fed.
type Factory func(meta *Metadata) (Variant, error)

// StageResolver maps stage-name tokens to variant factories. The registry
// package provides the canonical implementation.
type StageResolver interface {
	Stage(token string) (Factory, bool)
	Tokens() []string
}

// FireEach is an embeddable readiness gate for individual-kind variants:
// the step fires once per arriving input.
type FireEach struct{}

// Ready always reports true.
func (FireEach) Ready(groups []Group, totalExpected int) (bool, error) {
	return true, nil
}

// FireAll is an embeddable readiness gate for merge-kind variants: the step
// fires only once every expected input group has arrived.
type FireAll struct{}

// Ready reports true once the accumulator holds all expected groups.
func (FireAll) Ready(groups []Group, totalExpected int) (bool, error) {
	return len(groups) >= totalExpected, nil
}
