package runner

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParamRunDate is the single parameter injected into every notebook
const ParamRunDate = "run_date"

// Step is one notebook in the pipeline
type Step struct {
	Name     string `yaml:"name"`
	Notebook string `yaml:"notebook"` // relative to the base directory unless absolute
}

// Stem is the notebook file name without extension
func (s Step) Stem() string {
	return strings.TrimSuffix(filepath.Base(s.Notebook), filepath.Ext(s.Notebook))
}

// OutputName is the dated artifact name, e.g. Production_v1.0_2026-01-05.ipynb
func (s Step) OutputName(runDate string) string {
	return fmt.Sprintf("%s_%s.ipynb", s.Stem(), runDate)
}

// InputPath resolves the notebook against baseDir
func (s Step) InputPath(baseDir string) string {
	if filepath.IsAbs(s.Notebook) {
		return s.Notebook
	}
	return filepath.Join(baseDir, s.Notebook)
}

// PlannedStep is a step with both of its paths resolved
type PlannedStep struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Plan resolves every step's notebook and dated output without running anything
func (p *Pipeline) Plan(baseDir, runsDir, runDate string) []PlannedStep {
	out := make([]PlannedStep, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = PlannedStep{
			Name:   s.Name,
			Input:  s.InputPath(baseDir),
			Output: filepath.Join(runsDir, s.OutputName(runDate)),
		}
	}
	return out
}

// Pipeline is the ordered notebook list
type Pipeline struct {
	Steps []Step `yaml:"steps"`
}

// DefaultPipeline is data pipeline, alpha factors, then production model
func DefaultPipeline() *Pipeline {
	return &Pipeline{Steps: []Step{
		{Name: "Data Pipeline", Notebook: "ML_Trading_File1.ipynb"},
		{Name: "Alpha Factors", Notebook: "Alpha_Research_File2.ipynb"},
		{Name: "Production Model & Strategy", Notebook: "Production_v1.0.ipynb"},
	}}
}

// LoadPipeline reads a YAML step list. An empty path or a missing file
// yields DefaultPipeline. Unknown fields are rejected.
func LoadPipeline(path string) (*Pipeline, error) {
	if path == "" {
		return DefaultPipeline(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultPipeline(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pipeline: %w", err)
	}

	var p Pipeline
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the step list
func (p *Pipeline) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("pipeline has no steps")
	}

	seen := make(map[string]bool, len(p.Steps))
	for i, s := range p.Steps {
		if s.Notebook == "" {
			return fmt.Errorf("step %d: notebook is required", i+1)
		}
		if filepath.Ext(s.Notebook) != ".ipynb" {
			return fmt.Errorf("step %d: %s is not a notebook", i+1, s.Notebook)
		}
		if seen[s.Stem()] {
			return fmt.Errorf("step %d: duplicate notebook %s", i+1, s.Stem())
		}
		seen[s.Stem()] = true
		if s.Name == "" {
			p.Steps[i].Name = s.Stem()
		}
	}
	return nil
}
