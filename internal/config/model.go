package config

import (
	"fmt"
	"strings"
)

// Model is the unified, format-agnostic representation of one job: global
// settings plus the chain descriptors to execute.
type Model struct {
	Job    *Job
	Chains []*Chain
}

// Job holds job-wide settings.
type Job struct {
	// OutputDir receives every chain's artifacts.
	OutputDir string

	// Workers bounds the number of concurrently running chains.
	Workers int

	// AttributesFile optionally points at a YAML file of global attributes
	// stamped onto final artifacts.
	AttributesFile string

	// GridFile optionally points at a grid description used by remapping.
	GridFile string

	// GlobalAttributes is populated from AttributesFile at load time.
	GlobalAttributes map[string]string
}

// Chain is the declarative descriptor of one conversion chain.
type Chain struct {
	Name   string
	Stages []string

	Variable  string
	Frequency string
	Table     string

	TargetVariable  string
	TargetFrequency string
	SourceUnit      string
	TargetUnit      string

	StandardName string
	CellMethods  string
	CellMeasures string
	Description  string

	// Sources are glob patterns naming the chain's input files, resolved
	// relative to the job file that declared them.
	Sources []string
}

// defaultWorkers bounds chain concurrency when the job does not say.
const defaultWorkers = 4

// Validate checks the model for completeness and fills in defaults: target
// variable and frequency fall back to their source counterparts, and the
// worker count falls back to a small fixed bound.
func (m *Model) Validate() error {
	if m.Job == nil {
		return fmt.Errorf("job block is missing")
	}
	if m.Job.OutputDir == "" {
		return fmt.Errorf("job: output_dir is required")
	}
	if m.Job.Workers < 0 {
		return fmt.Errorf("job: workers must not be negative")
	}
	if m.Job.Workers == 0 {
		m.Job.Workers = defaultWorkers
	}
	if len(m.Chains) == 0 {
		return fmt.Errorf("no chain blocks declared")
	}

	seen := make(map[string]struct{}, len(m.Chains))
	var errs []string
	for _, c := range m.Chains {
		if _, dup := seen[c.Name]; dup {
			errs = append(errs, fmt.Sprintf("chain %q: declared twice", c.Name))
		}
		seen[c.Name] = struct{}{}

		if len(c.Stages) == 0 {
			errs = append(errs, fmt.Sprintf("chain %q: stages is required", c.Name))
		}
		if c.Variable == "" {
			errs = append(errs, fmt.Sprintf("chain %q: variable is required", c.Name))
		}
		if c.Frequency == "" {
			errs = append(errs, fmt.Sprintf("chain %q: frequency is required", c.Name))
		}
		if c.Table == "" {
			errs = append(errs, fmt.Sprintf("chain %q: table is required", c.Name))
		}
		if len(c.Sources) == 0 {
			errs = append(errs, fmt.Sprintf("chain %q: sources is required", c.Name))
		}

		if c.TargetVariable == "" {
			c.TargetVariable = c.Variable
		}
		if c.TargetFrequency == "" {
			c.TargetFrequency = c.Frequency
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid job configuration:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
