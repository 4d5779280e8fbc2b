package plan

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/pclab/shaperun/internal/ctxlog"
	"github.com/pclab/shaperun/internal/fsutil"
	"github.com/pclab/shaperun/internal/schema"
)

// Loader parses plan files into the format-agnostic model.
type Loader struct{}

// NewLoader creates a plan loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load discovers every .hcl file under path (a file or a directory), parses
// and merges them into a single Plan, and validates its integrity.
func (l *Loader) Load(ctx context.Context, path string) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to discover plan files under %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no plan files found under %s", path)
	}
	sort.Strings(files)
	logger.Debug("Discovered plan files.", "count", len(files))

	p := &Plan{byName: make(map[string]*Experiment)}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse plan file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode plan file %s: %w", file, diags)
		}

		if root.Defaults != nil {
			if err := mergeDefaults(&p.Defaults, root.Defaults, file); err != nil {
				return nil, err
			}
		}
		for _, block := range root.Experiments {
			exp, err := l.translateExperiment(block)
			if err != nil {
				return nil, fmt.Errorf("plan file %s: %w", file, err)
			}
			if _, dup := p.byName[exp.Name]; dup {
				return nil, fmt.Errorf("plan file %s: duplicate experiment name %q", file, exp.Name)
			}
			p.byName[exp.Name] = exp
			p.Experiments = append(p.Experiments, exp)
		}
	}

	if err := p.validate(); err != nil {
		return nil, err
	}
	logger.Debug("Plan loaded.", "experiments", len(p.Experiments))
	return p, nil
}

// mergeDefaults folds one defaults block into the plan. A plan spread over
// several files may state defaults once; restating a field is an error.
func mergeDefaults(dst *Defaults, src *defaultsBlock, file string) error {
	if len(src.Trainer) > 0 {
		if len(dst.Trainer) > 0 {
			return fmt.Errorf("plan file %s: trainer defaults declared twice", file)
		}
		dst.Trainer = src.Trainer
	}
	if len(src.Tester) > 0 {
		if len(dst.Tester) > 0 {
			return fmt.Errorf("plan file %s: tester defaults declared twice", file)
		}
		dst.Tester = src.Tester
	}
	if src.OutputRoot != "" {
		if dst.OutputRoot != "" {
			return fmt.Errorf("plan file %s: output_root declared twice", file)
		}
		dst.OutputRoot = src.OutputRoot
	}
	if len(src.Devices) > 0 {
		if len(dst.Devices) > 0 {
			return fmt.Errorf("plan file %s: device defaults declared twice", file)
		}
		dst.Devices = src.Devices
	}
	return nil
}

// translateExperiment converts one decoded block into the model, resolving
// the overrides expression into an ordered, schema-checked list.
func (l *Loader) translateExperiment(block *experimentBlock) (*Experiment, error) {
	if block.Task != "" && !schema.KnownTask(block.Task) {
		return nil, fmt.Errorf("experiment %q: unrecognized task %q", block.Name, block.Task)
	}
	exp := &Experiment{
		Name:        block.Name,
		Config:      block.Config,
		Task:        block.Task,
		Repetitions: block.Repetitions,
		Folds:       block.Folds,
		Devices:     block.Devices,
		TestAfter:   block.TestAfter,
		OutputDir:   block.OutputDir,
		DependsOn:   block.DependsOn,
	}

	overrides, err := decodeOverrides(block)
	if err != nil {
		return nil, fmt.Errorf("experiment %q: %w", block.Name, err)
	}
	exp.Overrides = overrides
	return exp, nil
}

// decodeOverrides evaluates the overrides map expression. Keys are sorted so
// the same plan always yields the same trainer command line.
func decodeOverrides(block *experimentBlock) ([]Override, error) {
	if block.Overrides == nil {
		return nil, nil
	}
	val, diags := block.Overrides.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to evaluate overrides: %w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("overrides must be a map of dotted config keys to values")
	}

	valueMap := val.AsValueMap()
	keys := make([]string, 0, len(valueMap))
	for k := range valueMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	overrides := make([]Override, 0, len(keys))
	for _, key := range keys {
		if !schema.KnownKey(key) {
			return nil, fmt.Errorf("override key %q does not exist in the config schema", key)
		}
		goVal, err := ctyToGo(valueMap[key])
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", key, err)
		}
		overrides = append(overrides, Override{Key: key, Value: goVal})
	}
	return overrides, nil
}
