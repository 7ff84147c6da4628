package convert

import "github.com/vk/cmorize/internal/cdo"

type unitPair struct{ from, to string }

// unitTable maps a (source, target) unit pair to its sub-command list:
// zero-or-one affine transform followed by a set-unit command recording the
// target spelling. Physically equal spellings map to the empty list, and
// pairs not listed at all are unsupported.
var unitTable = map[unitPair][]cdo.Command{
	// Temperature offsets.
	{"K", "degC"}:    {cdo.SubtractConstant(273.15), cdo.SetUnit{Unit: "degC"}},
	{"K", "Celsius"}: {cdo.SubtractConstant(273.15), cdo.SetUnit{Unit: "Celsius"}},

	// Flux and rate scalings.
	{"kg m-2 s-1", "mm day-1"}: {cdo.MultiplyConstant(86400), cdo.SetUnit{Unit: "mm day-1"}},
	{"m s-1", "mm s-1"}:        {cdo.MultiplyConstant(1000), cdo.SetUnit{Unit: "mm s-1"}},
	{"m", "km"}:                {cdo.MultiplyConstant(0.001), cdo.SetUnit{Unit: "km"}},
	{"1", "%"}:                 {cdo.MultiplyConstant(100), cdo.SetUnit{Unit: "%"}},
	{"frac.", "%"}:             {cdo.MultiplyConstant(100), cdo.SetUnit{Unit: "%"}},

	// Physically equal spellings: nothing to do.
	{"degC", "Celsius"}:         {},
	{"Celsius", "degC"}:         {},
	{"kg/m2/s", "kg m-2 s-1"}:   {},
	{"kg/(m2*s)", "kg m-2 s-1"}: {},
	{"W/m2", "W m-2"}:           {},
	{"m/s", "m s-1"}:            {},
	{"%", "percent"}:            {},
}

// UnitSupported reports whether UnitCommands would succeed for the pair. It
// never errors; upstream request matching uses it to decide feasibility
// without committing to execution.
func UnitSupported(from, to string) bool {
	if from == to {
		return true
	}
	_, ok := unitTable[unitPair{from, to}]
	return ok
}

// UnitCommands returns the sub-commands converting between the two unit
// spellings: the empty list when they are identical or physically equal, an
// affine transform plus a trailing set-unit metadata rewrite when the pair
// needs one, and an error naming both units otherwise.
func UnitCommands(from, to string) ([]cdo.Command, error) {
	if from == to {
		return nil, nil
	}
	cmds, ok := unitTable[unitPair{from, to}]
	if !ok {
		return nil, &UnsupportedConversionError{Kind: "unit", From: from, To: to}
	}
	out := make([]cdo.Command, len(cmds))
	copy(out, cmds)
	return out, nil
}
