// Package merge provides the merge stage: it waits for every expected
// year group of the invocation and concatenates them along the time axis.
package merge

import (
	"github.com/vk/cmorize/internal/cdo"
	"github.com/vk/cmorize/internal/chain"
	"github.com/vk/cmorize/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the stage with the engine.
func (Module) Register(r *registry.Registry) {
	r.RegisterStage("merge", New)
}

// New builds the merge variant for one chain.
func New(meta *chain.Metadata) (chain.Variant, error) {
	return variant{}, nil
}

type variant struct {
	chain.FireAll
}

func (variant) Tag() string { return "merge" }

func (variant) Commands(groups []chain.Group) ([]cdo.Command, error) {
	return []cdo.Command{cdo.MergeTime()}, nil
}
