package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/cmorize/internal/config"
	"github.com/vk/cmorize/internal/ctxlog"
	"github.com/vk/cmorize/internal/fsutil"
)

// Loader implements config.Loader for HCL job files.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a ready-to-use HCL loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load parses every .hcl file found under the given paths, merges them into
// a single model, resolves file references relative to the declaring file,
// and validates the result. Exactly one file must carry the `job` block.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := collectFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl job files found in %v", paths)
	}
	logger.Debug("Found job files.", "count", len(files))

	model := &config.Model{}
	for _, path := range files {
		if err := l.mergeFile(path, model); err != nil {
			return nil, err
		}
	}

	if model.Job != nil && model.Job.AttributesFile != "" {
		attrs, err := config.LoadGlobalAttributes(model.Job.AttributesFile)
		if err != nil {
			return nil, err
		}
		model.Job.GlobalAttributes = attrs
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded and translated into unified model.",
		"chains", len(model.Chains))
	return model, nil
}

// collectFiles expands each path into the .hcl files it names: directories
// are searched recursively, plain files are taken as-is.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("job path %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("searching %s: %w", path, err)
		}
		files = append(files, found...)
	}
	return files, nil
}

// mergeFile parses one job file and folds its blocks into the model.
func (l *Loader) mergeFile(path string, model *config.Model) error {
	src, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("parsing %s: %w", path, diags)
	}

	var parsed jobFile
	if diags := gohcl.DecodeBody(src.Body, nil, &parsed); diags.HasErrors() {
		return fmt.Errorf("decoding %s: %w", path, diags)
	}

	baseDir := filepath.Dir(path)
	if parsed.Job != nil {
		if model.Job != nil {
			return fmt.Errorf("%s: duplicate job block, job is already declared", path)
		}
		model.Job = translateJob(parsed.Job, baseDir)
	}
	for _, c := range parsed.Chains {
		model.Chains = append(model.Chains, translateChain(c, baseDir))
	}
	return nil
}

// translateJob converts the HCL-specific job schema into the agnostic model,
// anchoring relative file references at the declaring file's directory.
func translateJob(j *jobBlock, baseDir string) *config.Job {
	return &config.Job{
		OutputDir:      resolve(baseDir, j.OutputDir),
		Workers:        j.Workers,
		AttributesFile: resolve(baseDir, j.Attributes),
		GridFile:       resolve(baseDir, j.Grid),
	}
}

// translateChain converts the HCL-specific chain schema into the agnostic model.
func translateChain(c *chainBlock, baseDir string) *config.Chain {
	sources := make([]string, len(c.Sources))
	for i, pattern := range c.Sources {
		sources[i] = resolve(baseDir, pattern)
	}
	return &config.Chain{
		Name:            c.Name,
		Stages:          c.Stages,
		Variable:        c.Variable,
		Frequency:       c.Frequency,
		Table:           c.Table,
		TargetVariable:  c.TargetVariable,
		TargetFrequency: c.TargetFrequency,
		SourceUnit:      c.SourceUnit,
		TargetUnit:      c.TargetUnit,
		StandardName:    c.StandardName,
		CellMethods:     c.CellMethods,
		CellMeasures:    c.CellMeasures,
		Description:     c.Description,
		Sources:         sources,
	}
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
