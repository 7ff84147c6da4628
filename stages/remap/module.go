// Package remap provides the horizontal regridding stage. It interpolates
// each input onto the grid described by the chain's grid description file.
package remap

import (
	"fmt"

	"github.com/vk/cmorize/internal/cdo"
	"github.com/vk/cmorize/internal/chain"
	"github.com/vk/cmorize/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the stage with the engine.
func (Module) Register(r *registry.Registry) {
	r.RegisterStage("remap", New)
}

// New builds the remap variant for one chain. A chain without a grid
// description cannot remap; that is a build-time error, not a runtime one.
func New(meta *chain.Metadata) (chain.Variant, error) {
	if meta.GridFile == "" {
		return nil, fmt.Errorf("remap stage requires a grid description file")
	}
	return variant{meta: meta}, nil
}

type variant struct {
	chain.FireEach
	meta *chain.Metadata
}

func (variant) Tag() string { return "remap" }

func (v variant) Commands(groups []chain.Group) ([]cdo.Command, error) {
	return []cdo.Command{cdo.Remap(v.meta.GridFile)}, nil
}
