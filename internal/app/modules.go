package app

import (
	"github.com/vk/cmorize/internal/registry"
	"github.com/vk/cmorize/stages/downsample"
	"github.com/vk/cmorize/stages/finalize"
	"github.com/vk/cmorize/stages/merge"
	"github.com/vk/cmorize/stages/remap"
	"github.com/vk/cmorize/stages/unitconvert"
)

// coreStages is the definitive list of all stage modules that are compiled
// into the cmorize binary.
var coreStages = []registry.Module{
	merge.Module{},
	downsample.Module{},
	unitconvert.Module{},
	remap.Module{},
	finalize.Module{},
}
