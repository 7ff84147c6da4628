// Package finalize provides the last stage of a typical chain: it stamps the
// chain's descriptive metadata onto the file and gives it the externally
// mandated final name instead of the derived intermediate one.
package finalize

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
	r.RegisterStage("finalize", New)
}

// New builds the finalize variant for one chain.
func New(meta *chain.Metadata) (chain.Variant, error) {
	if meta.TargetVariable == "" || meta.Table == "" {
		return nil, fmt.Errorf("finalize stage requires a target variable and a table")
	}
	return variant{meta: meta}, nil
}

type variant struct {
	chain.FireEach
	meta *chain.Metadata
}

func (variant) Tag() string { return "finalize" }

// FixedName returns the mandated final filename. A fixed name can only
// represent a single input set; the engine rejects multi-input firing.
func (v variant) FixedName(group chain.Group) (string, error) {
	return fmt.Sprintf("%s_%s_%s.nc", v.meta.TargetVariable, v.meta.Table, group.Years.Label()), nil
}

// Commands returns a single in-place attribute rewrite applying the global
// attributes and the descriptive variable metadata.
func (v variant) Commands(groups []chain.Group) ([]cdo.Command, error) {
	attrs := make(map[string]string, len(v.meta.GlobalAttributes)+8)
	for k, val := range v.meta.GlobalAttributes {
		attrs[k] = val
	}
	attrs["variable_id"] = v.meta.TargetVariable
	attrs["table_id"] = v.meta.Table
	if v.meta.TargetFrequency != "" {
		attrs["frequency"] = v.meta.TargetFrequency
	}
	if v.meta.StandardName != "" {
		attrs["standard_name"] = v.meta.StandardName
	}
	if v.meta.CellMethods != "" {
		attrs["cell_methods"] = v.meta.CellMethods
	}
	if v.meta.CellMeasures != "" {
		attrs["cell_measures"] = v.meta.CellMeasures
	}
	if v.meta.Description != "" {
		attrs["long_name"] = v.meta.Description
	}
	return []cdo.Command{cdo.SetAttributes{Attributes: attrs}}, nil
}
