// Package downsample provides the frequency downsampling stage. The target
// frequency is declarative; the transition table in internal/convert turns
// the (source, target) pair into a concrete aggregation command. Decadal
// output additionally gates readiness on exactly ten accumulated input
// years: fewer keeps waiting while groups are still expected, anything else
// is an infeasible request, never a silently aggregated partial decade.
package downsample

import (
	"fmt"

	"github.com/vk/cmorize/internal/cdo"
	"github.com/vk/cmorize/internal/chain"
	"github.com/vk/cmorize/internal/convert"
	"github.com/vk/cmorize/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the stage with the engine.
func (Module) Register(r *registry.Registry) {
	r.RegisterStage("downsample", New)
}

// New builds the downsampling variant for one chain.
func New(meta *chain.Metadata) (chain.Variant, error) {
	if meta.TargetFrequency == "" {
		return nil, fmt.Errorf("downsample stage requires a target frequency")
	}
	return variant{meta: meta}, nil
}

type variant struct {
	meta *chain.Metadata
}

func (variant) Tag() string { return "downsample" }

func (v variant) Ready(groups []chain.Group, totalExpected int) (bool, error) {
	if v.meta.TargetFrequency != convert.FreqDecadal {
		return true, nil
	}

	years := 0
	for _, g := range groups {
		years += g.Years.Len()
	}
	switch {
	case years == convert.DecadeYears:
		return true, nil
	case years < convert.DecadeYears && len(groups) < totalExpected:
		return false, nil
	default:
		return false, &chain.InfeasibleRequestError{
			Reason: fmt.Sprintf("decadal aggregation requires exactly %d input years, got %d",
				convert.DecadeYears, years),
		}
	}
}

func (v variant) Commands(groups []chain.Group) ([]cdo.Command, error) {
	return convert.FrequencyCommands(v.meta.Frequency, v.meta.TargetFrequency)
}
