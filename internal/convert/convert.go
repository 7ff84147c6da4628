// Package convert holds the two finite transition tables that turn
// declarative targets into sub-command lists: frequency downsampling and
// unit conversion. Lookups are pure and safe to call speculatively; an
// absent pair is a defined error naming both sides, never a silent no-op.
package convert

import "fmt"

// UnsupportedConversionError reports a conversion pair absent from a
// transition table. The message format is stable: it always names both
// descriptors of the failed pair.
type UnsupportedConversionError struct {
	Kind string // "frequency" or "unit"
	From string
	To   string
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("no supported %s conversion from %q to %q", e.Kind, e.From, e.To)
}
