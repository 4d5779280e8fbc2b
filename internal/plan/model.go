package plan

import "fmt"

// Plan is the format-agnostic model of one loaded run plan.
type Plan struct {
	Defaults    Defaults
	Experiments []*Experiment

	byName map[string]*Experiment
}

// Defaults apply to every experiment that does not state its own value.
type Defaults struct {
	// Trainer and Tester are the external entry points, as argv prefixes
	// (e.g. ["python", "tools/train_net.py"]).
	Trainer []string
	Tester  []string
	// OutputRoot anchors relative output directories and the run ledger.
	OutputRoot string
	// Devices become CUDA_VISIBLE_DEVICES for each invocation.
	Devices []int
}

// Experiment is one experiment block: a configuration document plus the loop
// structure around it.
type Experiment struct {
	Name   string
	Config string

	// Task overrides the document's TASK, e.g. to reuse a classification
	// config for its few-shot variant.
	Task string

	// Repetitions lists repetition indices (OUTPUT_DIR suffix "_<rep>").
	// Empty means a single run with no suffix.
	Repetitions []int
	// Folds is the cross-validation fold count; 0 disables folding.
	Folds int

	Devices   []int
	TestAfter bool
	OutputDir string
	DependsOn []string

	// Overrides apply in order after the config document, before the
	// per-invocation keys the expander adds.
	Overrides []Override
}

// Override is one dotted key / value pair passed to the trainer after --cfg.
type Override struct {
	Key   string
	Value any
}

// Experiment returns the named experiment.
func (p *Plan) Experiment(name string) (*Experiment, bool) {
	e, ok := p.byName[name]
	return e, ok
}

// Trainer resolves the experiment's trainer argv, falling back to the plan
// defaults.
func (p *Plan) Trainer() []string {
	return p.Defaults.Trainer
}

// Tester resolves the tester argv from the plan defaults.
func (p *Plan) Tester() []string {
	return p.Defaults.Tester
}

// DevicesFor resolves the device pinning for an experiment.
func (p *Plan) DevicesFor(e *Experiment) []int {
	if len(e.Devices) > 0 {
		return e.Devices
	}
	return p.Defaults.Devices
}

// validate checks cross-experiment integrity after all files are merged.
func (p *Plan) validate() error {
	if len(p.Experiments) == 0 {
		return fmt.Errorf("plan contains no experiment blocks")
	}
	for _, e := range p.Experiments {
		if e.Config == "" {
			return fmt.Errorf("experiment %q: config path is required", e.Name)
		}
		if e.Folds < 0 {
			return fmt.Errorf("experiment %q: folds must not be negative", e.Name)
		}
		for _, rep := range e.Repetitions {
			if rep < 0 {
				return fmt.Errorf("experiment %q: repetition index %d must not be negative", e.Name, rep)
			}
		}
		for _, dep := range e.DependsOn {
			if _, ok := p.byName[dep]; !ok {
				return fmt.Errorf("experiment %q depends on unknown experiment %q", e.Name, dep)
			}
			if dep == e.Name {
				return fmt.Errorf("experiment %q depends on itself", e.Name)
			}
		}
	}
	return nil
}
