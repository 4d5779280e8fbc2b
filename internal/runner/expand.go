package runner

import (
	"fmt"
	"path/filepath"

	"github.com/pclab/shaperun/internal/dataset"
	"github.com/pclab/shaperun/internal/plan"
	"github.com/pclab/shaperun/internal/schema"
)

// Expand produces the ordered invocation list for one experiment:
// repetitions outermost, folds within a repetition, and the optional test
// phase immediately after each training phase. Each step gets its own
// OUTPUT_DIR, suffixed "_<rep>" and "_cross_<fold>".
func Expand(p *plan.Plan, e *plan.Experiment, doc *schema.Document) ([]*Invocation, error) {
	trainer := p.Trainer()
	if len(trainer) == 0 {
		return nil, fmt.Errorf("experiment %q: plan declares no trainer", e.Name)
	}
	tester := p.Tester()
	if e.TestAfter && len(tester) == 0 {
		return nil, fmt.Errorf("experiment %q: test_after set but plan declares no tester", e.Name)
	}

	baseDir := baseOutputDir(p, e, doc)
	devices := p.DevicesFor(e)
	autoResume := true
	if v, err := doc.Merged.GetBool("AUTO_RESUME"); err == nil {
		autoResume = v
	}

	reps := e.Repetitions
	if len(reps) == 0 {
		reps = []int{NoIndex}
	}
	folds := []int{NoIndex}
	if e.Folds > 0 {
		folds = make([]int, e.Folds)
		for i := range folds {
			folds[i] = i
		}
	}

	var invocations []*Invocation
	for _, rep := range reps {
		for _, fold := range folds {
			dir := baseDir
			if rep != NoIndex {
				dir = fmt.Sprintf("%s_%d", dir, rep)
			}
			if fold != NoIndex {
				dir = fmt.Sprintf("%s_cross_%d", dir, fold)
			}

			var overrides []plan.Override
			if e.Task != "" {
				overrides = append(overrides, plan.Override{Key: "TASK", Value: e.Task})
			}
			overrides = append(overrides, e.Overrides...)
			if fold != NoIndex {
				split := []any{dataset.CrossSplitName(fold)}
				for _, group := range []string{"DATASET.TRAIN", "DATASET.VAL", "DATASET.TEST"} {
					overrides = append(overrides, plan.Override{Key: group, Value: split})
				}
			}
			overrides = append(overrides, plan.Override{Key: "OUTPUT_DIR", Value: dir})

			invocations = append(invocations, &Invocation{
				Experiment: e.Name,
				Phase:      PhaseTrain,
				Rep:        rep,
				Fold:       fold,
				Program:    trainer,
				ConfigPath: e.Config,
				Overrides:  overrides,
				OutputDir:  dir,
				Devices:    devices,
				AutoResume: autoResume,
			})
			if e.TestAfter {
				invocations = append(invocations, &Invocation{
					Experiment: e.Name,
					Phase:      PhaseTest,
					Rep:        rep,
					Fold:       fold,
					Program:    tester,
					ConfigPath: e.Config,
					Overrides:  overrides,
					OutputDir:  dir,
					Devices:    devices,
					AutoResume: autoResume,
				})
			}
		}
	}
	return invocations, nil
}

// baseOutputDir resolves the unsuffixed output directory: the experiment's
// explicit output_dir wins, then the plan's output_root anchored at the
// experiment name, then the document's own OUTPUT_DIR convention.
func baseOutputDir(p *plan.Plan, e *plan.Experiment, doc *schema.Document) string {
	if e.OutputDir != "" {
		return e.OutputDir
	}
	if p.Defaults.OutputRoot != "" {
		return filepath.Join(p.Defaults.OutputRoot, e.Name)
	}
	return doc.Merged.OutputDir(e.Config)
}
