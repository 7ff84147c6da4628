// Package unitconvert provides the unit conversion stage, driven by the
// unit transition table in internal/convert.
package unitconvert

import (
	"github.com/vk/cmorize/internal/cdo"
	"github.com/vk/cmorize/internal/chain"
	"github.com/vk/cmorize/internal/convert"
	"github.com/vk/cmorize/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the stage with the engine.
func (Module) Register(r *registry.Registry) {
	r.RegisterStage("convert_unit", New)
}

// New builds the unit conversion variant for one chain. An unsupported unit
// pair is not rejected here: the table lookup raises during the dry pass,
// before any sub-command runs, and feasibility probing belongs to
// convert.UnitSupported.
func New(meta *chain.Metadata) (chain.Variant, error) {
	return variant{meta: meta}, nil
}

type variant struct {
	chain.FireEach
	meta *chain.Metadata
}

func (variant) Tag() string { return "convert_unit" }

func (v variant) Commands(groups []chain.Group) ([]cdo.Command, error) {
	return convert.UnitCommands(v.meta.SourceUnit, v.meta.TargetUnit)
}
