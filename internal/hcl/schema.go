package hcl

// jobBlock is the HCL shape of the single `job` block.
type jobBlock struct {
	OutputDir  string `hcl:"output_dir"`
	Workers    int    `hcl:"workers,optional"`
	Attributes string `hcl:"attributes,optional"`
	Grid       string `hcl:"grid,optional"`
}

// chainBlock is the HCL shape of one `chain` block.
type chainBlock struct {
	Name   string   `hcl:"name,label"`
	Stages []string `hcl:"stages"`

	Variable  string `hcl:"variable"`
	Frequency string `hcl:"frequency"`
	Table     string `hcl:"table"`

	TargetVariable  string `hcl:"target_variable,optional"`
	TargetFrequency string `hcl:"target_frequency,optional"`
	SourceUnit      string `hcl:"source_unit,optional"`
	TargetUnit      string `hcl:"target_unit,optional"`

	StandardName string `hcl:"standard_name,optional"`
	CellMethods  string `hcl:"cell_methods,optional"`
	CellMeasures string `hcl:"cell_measures,optional"`
	Description  string `hcl:"description,optional"`

	Sources []string `hcl:"sources"`
}

// jobFile is the top-level structure of one .hcl job file.
type jobFile struct {
	Job    *jobBlock     `hcl:"job,block"`
	Chains []*chainBlock `hcl:"chain,block"`
}
