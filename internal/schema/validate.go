package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pclab/shaperun/internal/cfg"
)

// Document couples the raw parsed YAML with the defaults-merged tree. Both
// views are needed: presence checks run against the raw document, semantic
// checks against the merged one.
type Document struct {
	Path   string
	Raw    map[string]any
	Merged *cfg.Node
}

// LoadDocument parses and merges one experiment configuration file. The
// merged tree is frozen; per-invocation overrides are applied to clones.
func LoadDocument(path string) (*Document, error) {
	raw, err := cfg.ParseFile(path)
	if err != nil {
		return nil, err
	}
	merged, err := cfg.Load(path, nil)
	if err != nil {
		return nil, err
	}
	merged.Freeze()
	return &Document{Path: path, Raw: raw, Merged: merged}, nil
}

// Validate runs every structural and semantic check and returns all findings
// joined into one error, or nil for a valid document.
func (d *Document) Validate() error {
	var errs []error

	for _, section := range RequiredSections {
		if _, ok := d.Raw[section]; !ok {
			errs = append(errs, &MissingFieldError{Key: section})
		}
	}
	for _, field := range RequiredFields {
		if !rawHas(d.Raw, field) {
			errs = append(errs, &MissingFieldError{Key: field})
		}
	}

	errs = append(errs, d.checkIdentity()...)
	errs = append(errs, d.checkInput()...)
	errs = append(errs, d.checkDataset()...)
	errs = append(errs, d.checkSolver()...)
	errs = append(errs, d.checkScheduler()...)
	errs = append(errs, d.checkLoops()...)

	return errors.Join(errs...)
}

func (d *Document) checkIdentity() []error {
	var errs []error
	if task, err := d.Merged.GetString("TASK"); err != nil {
		errs = append(errs, err)
	} else if !knownTasks[task] {
		errs = append(errs, &FieldError{Key: "TASK", Reason: fmt.Sprintf("unrecognized task %q", task)})
	}
	if model, err := d.Merged.GetString("MODEL.TYPE"); err != nil {
		errs = append(errs, err)
	} else if model != "" && !knownModels[model] {
		errs = append(errs, &FieldError{Key: "MODEL.TYPE", Reason: fmt.Sprintf("unrecognized model %q", model)})
	}
	return errs
}

func (d *Document) checkInput() []error {
	var errs []error
	if np, err := d.Merged.GetInt("INPUT.NUM_POINTS"); err != nil {
		errs = append(errs, err)
	} else if np <= 0 && np != -1 {
		errs = append(errs, &FieldError{Key: "INPUT.NUM_POINTS", Reason: "must be a positive integer or -1 for all points"})
	}
	if ch, err := d.Merged.GetInt("INPUT.IN_CHANNELS"); err != nil {
		errs = append(errs, err)
	} else if ch <= 0 {
		errs = append(errs, &FieldError{Key: "INPUT.IN_CHANNELS", Reason: "must be positive"})
	}
	return errs
}

func (d *Document) checkDataset() []error {
	var errs []error
	task, _ := d.Merged.GetString("TASK")

	if nc, err := d.Merged.GetInt("DATASET.NUM_CLASSES"); err != nil {
		errs = append(errs, err)
	} else if nc < 0 {
		errs = append(errs, &FieldError{Key: "DATASET.NUM_CLASSES", Reason: "must not be negative"})
	}
	if nsc, err := d.Merged.GetInt("DATASET.NUM_SEG_CLASSES"); err != nil {
		errs = append(errs, err)
	} else if nsc <= 0 && (task == cfg.TaskPartSegmentation || task == cfg.TaskInstanceSegmentation) {
		errs = append(errs, &FieldError{Key: "DATASET.NUM_SEG_CLASSES", Reason: "segmentation tasks need a positive segmentation class count"})
	}

	for _, split := range []string{"TRAIN", "VAL", "TEST"} {
		key := "DATASET." + split
		if _, err := d.Merged.GetStrings(key); err != nil {
			errs = append(errs, &FieldError{Key: key, Reason: "split group must be a list of split names"})
		}
	}

	if wk, err := d.Merged.GetInt("DATALOADER.NUM_WORKERS"); err != nil {
		errs = append(errs, err)
	} else if wk < 0 {
		errs = append(errs, &FieldError{Key: "DATALOADER.NUM_WORKERS", Reason: "must not be negative"})
	}

	for _, fs := range []string{"MODELNET_FEWSHOT", "SHAPENET_FEWSHOT", "SHAPENET55_FEWSHOT"} {
		npc, err := d.Merged.GetInt("DATASET." + fs + ".NUM_PER_CLASS")
		if err == nil && npc <= 0 {
			errs = append(errs, &FieldError{Key: "DATASET." + fs + ".NUM_PER_CLASS", Reason: "must be positive"})
		}
		cn, err := d.Merged.GetInt("DATASET." + fs + ".CROSS_NUM")
		if err == nil && cn < 0 {
			errs = append(errs, &FieldError{Key: "DATASET." + fs + ".CROSS_NUM", Reason: "must not be negative"})
		}
	}
	return errs
}

func (d *Document) checkSolver() []error {
	var errs []error
	if solver, err := d.Merged.GetString("SOLVER.TYPE"); err != nil {
		errs = append(errs, err)
	} else if !knownSolvers[solver] {
		errs = append(errs, &FieldError{Key: "SOLVER.TYPE", Reason: fmt.Sprintf("unrecognized solver %q", solver)})
	}
	if epochs, err := d.Merged.GetInt("SOLVER.MAX_EPOCH"); err != nil {
		errs = append(errs, err)
	} else if epochs <= 0 {
		errs = append(errs, &FieldError{Key: "SOLVER.MAX_EPOCH", Reason: "must be positive"})
	}
	if lr, err := d.Merged.GetFloat("SOLVER.BASE_LR"); err != nil {
		errs = append(errs, err)
	} else if lr <= 0 {
		errs = append(errs, &FieldError{Key: "SOLVER.BASE_LR", Reason: "must be positive"})
	}
	if wd, err := d.Merged.GetFloat("SOLVER.WEIGHT_DECAY"); err != nil {
		errs = append(errs, err)
	} else if wd < 0 {
		errs = append(errs, &FieldError{Key: "SOLVER.WEIGHT_DECAY", Reason: "must not be negative"})
	}
	return errs
}

func (d *Document) checkScheduler() []error {
	var errs []error
	sched, err := d.Merged.GetString("SCHEDULER.TYPE")
	if err != nil {
		return []error{err}
	}
	if sched == "" {
		// A constant learning rate; nothing further to check.
		return nil
	}
	if !knownSchedulers[sched] {
		return []error{&FieldError{Key: "SCHEDULER.TYPE", Reason: fmt.Sprintf("unrecognized scheduler %q", sched)}}
	}

	if gamma, gErr := d.Merged.GetFloat("SCHEDULER.GAMMA"); gErr != nil {
		errs = append(errs, gErr)
	} else if gamma <= 0 || gamma > 1 {
		errs = append(errs, &FieldError{Key: "SCHEDULER.GAMMA", Reason: "must be in (0, 1]"})
	}

	maxEpoch, _ := d.Merged.GetInt("SOLVER.MAX_EPOCH")
	switch sched {
	case "MultiStepLR":
		milestones, mErr := d.Merged.GetInts("SCHEDULER.MultiStepLR.MILESTONES")
		if mErr != nil {
			errs = append(errs, &FieldError{Key: "SCHEDULER.MultiStepLR.MILESTONES", Reason: "must be a list of epoch indices"})
			break
		}
		if len(milestones) == 0 {
			errs = append(errs, &FieldError{Key: "SCHEDULER.MultiStepLR.MILESTONES", Reason: "must name at least one milestone epoch"})
		}
		for i, m := range milestones {
			if i > 0 && m <= milestones[i-1] {
				errs = append(errs, &FieldError{Key: "SCHEDULER.MultiStepLR.MILESTONES", Reason: "milestones must be strictly increasing"})
				break
			}
		}
		if len(milestones) > 0 && maxEpoch > 0 && milestones[len(milestones)-1] >= maxEpoch {
			errs = append(errs, &FieldError{Key: "SCHEDULER.MultiStepLR.MILESTONES", Reason: "milestones must fall before SOLVER.MAX_EPOCH"})
		}
	case "StepLR":
		step, sErr := d.Merged.GetInt("SCHEDULER.StepLR.STEP_SIZE")
		if sErr != nil {
			errs = append(errs, sErr)
		} else if step <= 0 {
			errs = append(errs, &FieldError{Key: "SCHEDULER.StepLR.STEP_SIZE", Reason: "must be positive"})
		}
	}
	return errs
}

func (d *Document) checkLoops() []error {
	var errs []error
	for _, key := range []string{"TRAIN.BATCH_SIZE", "TEST.BATCH_SIZE", "TRAIN.LOG_PERIOD", "TEST.LOG_PERIOD", "TRAIN.CHECKPOINT_PERIOD"} {
		if v, err := d.Merged.GetInt(key); err != nil {
			errs = append(errs, err)
		} else if v <= 0 {
			errs = append(errs, &FieldError{Key: key, Reason: "must be positive"})
		}
	}
	if vp, err := d.Merged.GetInt("TRAIN.VAL_PERIOD"); err != nil {
		errs = append(errs, err)
	} else if vp < 0 {
		errs = append(errs, &FieldError{Key: "TRAIN.VAL_PERIOD", Reason: "must not be negative (0 disables validation)"})
	}

	errs = append(errs, d.checkAugmentations("TRAIN.AUGMENTATION")...)
	errs = append(errs, d.checkAugmentations("TEST.AUGMENTATION")...)
	return errs
}

// checkAugmentations validates an ordered augmentation pipeline. Each entry
// is either a bare op name or a list whose head is the op name and whose tail
// holds the op's arguments, e.g. ("PointCloudRotateByAngle", "y", 1.57).
func (d *Document) checkAugmentations(key string) []error {
	list, err := d.Merged.GetList(key)
	if err != nil {
		return []error{&FieldError{Key: key, Reason: "must be an ordered list of augmentation ops"}}
	}
	var errs []error
	for i, entry := range list {
		name := ""
		switch e := entry.(type) {
		case string:
			name = e
		case []any:
			if len(e) > 0 {
				name, _ = e[0].(string)
			}
		}
		if name == "" {
			errs = append(errs, &FieldError{
				Key:    fmt.Sprintf("%s[%d]", key, i),
				Reason: "entry must be an op name or a (name, args...) list",
			})
			continue
		}
		if !knownAugmentations[name] {
			errs = append(errs, &FieldError{
				Key:    fmt.Sprintf("%s[%d]", key, i),
				Reason: fmt.Sprintf("unrecognized augmentation op %q", name),
			})
		}
	}
	return errs
}

// rawHas resolves a dotted key against the raw (unmerged) document.
func rawHas(doc map[string]any, key string) bool {
	parts := strings.Split(key, ".")
	cur := doc
	for i, part := range parts {
		v, ok := cur[part]
		if !ok {
			return false
		}
		if i == len(parts)-1 {
			return true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return false
		}
		cur = next
	}
	return false
}
