package cdo

import (
	"context"
	"fmt"
	"sort"
)

// operator is a plain CDO operator: "cdo <spec> <inputs...> <output>".
type operator struct {
	name string
	spec string
}

func (o operator) Name() string  { return o.name }
func (o operator) InPlace() bool { return false }

func (o operator) Run(ctx context.Context, inputs []string, output string) error {
	args := make([]string, 0, len(inputs)+2)
	args = append(args, o.spec)
	args = append(args, inputs...)
	args = append(args, output)
	return run(ctx, "cdo", args...)
}

// MergeTime concatenates time-sliced inputs along the time axis.
func MergeTime() Command { return operator{name: "mergetime", spec: "mergetime"} }

// MonthlyMean reduces time resolution to one value per month.
func MonthlyMean() Command { return operator{name: "monmean", spec: "monmean"} }

// YearlyMean reduces time resolution to one value per year.
func YearlyMean() Command { return operator{name: "yearmean", spec: "yearmean"} }

// TimeMean reduces the whole covered time range to a single mean, used for
// decadal aggregation over exactly ten merged years.
func TimeMean() Command { return operator{name: "timmean", spec: "timmean"} }

// Remap interpolates the input onto the grid described by the given file.
func Remap(gridFile string) Command {
	return operator{name: "remapbil", spec: "remapbil," + gridFile}
}

// Affine applies a single affine transform to every value: multiply by a
// constant or subtract a constant. It writes a distinct output file.
type Affine struct {
	// Op is the CDO operator name, either "mulc" or "subc".
	Op string
	// Constant is the operand of the transform.
	Constant float64
}

// MultiplyConstant scales every value by c.
func MultiplyConstant(c float64) Affine { return Affine{Op: "mulc", Constant: c} }

// SubtractConstant subtracts c from every value.
func SubtractConstant(c float64) Affine { return Affine{Op: "subc", Constant: c} }

func (a Affine) Name() string  { return fmt.Sprintf("%s,%g", a.Op, a.Constant) }
func (a Affine) InPlace() bool { return false }

func (a Affine) Run(ctx context.Context, inputs []string, output string) error {
	args := make([]string, 0, len(inputs)+2)
	args = append(args, fmt.Sprintf("%s,%g", a.Op, a.Constant))
	args = append(args, inputs...)
	args = append(args, output)
	return run(ctx, "cdo", args...)
}

// SetUnit rewrites the unit attribute of the data variable, recording the
// target unit string after a numeric conversion.
type SetUnit struct {
	Unit string
}

func (s SetUnit) Name() string  { return "setunit," + s.Unit }
func (s SetUnit) InPlace() bool { return false }

func (s SetUnit) Run(ctx context.Context, inputs []string, output string) error {
	args := make([]string, 0, len(inputs)+2)
	args = append(args, "setunit,"+s.Unit)
	args = append(args, inputs...)
	args = append(args, output)
	return run(ctx, "cdo", args...)
}

// SetAttributes rewrites global attributes of its sole input in place via
// ncatted, the way finalization stamps provenance metadata onto a file.
type SetAttributes struct {
	Attributes map[string]string
}

func (s SetAttributes) Name() string  { return "ncatted" }
func (s SetAttributes) InPlace() bool { return true }

func (s SetAttributes) Run(ctx context.Context, inputs []string, output string) error {
	if len(inputs) != 1 {
		return fmt.Errorf("ncatted: expected exactly one input, got %d", len(inputs))
	}

	// Deterministic argument order keeps logs and retries comparable.
	keys := make([]string, 0, len(s.Attributes))
	for k := range s.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []string{"-O", "-h"}
	for _, k := range keys {
		args = append(args, "-a", fmt.Sprintf("%s,global,o,c,%s", k, s.Attributes[k]))
	}
	args = append(args, inputs[0])
	return run(ctx, "ncatted", args...)
}
