package chain

// Metadata is the immutable attribute bundle shared by every step of one
// chain. It is assembled once, before any input is fed, and steps only ever
// read from it.
type Metadata struct {
	// OutputDir is the directory all step results are written into.
	OutputDir string

	// GridFile references the grid description used by remapping stages.
	GridFile string

	// GlobalAttributes are stamped onto the final artifact.
	GlobalAttributes map[string]string

	// Variable, Frequency and SourceUnit describe the source data.
	Variable   string
	Frequency  string
	SourceUnit string

	// TargetVariable, TargetFrequency, TargetUnit and Table describe the
	// requested output.
	TargetVariable  string
	TargetFrequency string
	TargetUnit      string
	Table           string

	// Descriptive attributes of the output variable.
	Description  string
	StandardName string
	CellMethods  string
	CellMeasures string
}
