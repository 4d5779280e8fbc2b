package schema

import (
	"fmt"

	"github.com/pclab/shaperun/internal/cfg"
)

// RequiredSections are the top-level keys every experiment document must
// carry, in report order.
var RequiredSections = []string{
	"TASK", "MODEL", "INPUT", "DATASET", "SOLVER", "SCHEDULER", "TRAIN", "TEST",
}

// RequiredFields must be stated explicitly in the document; a default is not
// an acceptable substitute for the experiment's core choices.
var RequiredFields = []string{
	"TASK",
	"MODEL.TYPE",
	"DATASET.TYPE",
	"SOLVER.TYPE",
	"SOLVER.MAX_EPOCH",
	"SOLVER.BASE_LR",
	"SCHEDULER.TYPE",
	"TRAIN.BATCH_SIZE",
	"TEST.BATCH_SIZE",
}

// Vocabularies. The harness only checks names; the semantics live in the
// external trainer.
var (
	knownTasks = map[string]bool{
		cfg.TaskClassification:        true,
		cfg.TaskPartSegmentation:      true,
		cfg.TaskInstanceSegmentation:  true,
		cfg.TaskFewShotClassification: true,
	}

	knownModels = map[string]bool{
		"POINTNET": true,
		"DGCNN":    true,
		"S2CNN":    true,
		"PN2SSG":   true,
		"PN2MSG":   true,
	}

	knownSolvers = map[string]bool{
		"SGD":  true,
		"Adam": true,
	}

	knownSchedulers = map[string]bool{
		"MultiStepLR": true,
		"StepLR":      true,
	}

	knownAugmentations = map[string]bool{
		"PointCloudToTensor":           true,
		"PointCloudNormalize":          true,
		"PointCloudRotate":             true,
		"PointCloudRotateByAngle":      true,
		"PointCloudRotatePerturbation": true,
		"PointCloudTranslate":          true,
		"PointCloudScale":              true,
		"PointCloudJitter":             true,
		"PointCloudRandomInputDropout": true,
	}
)

// MissingFieldError reports a required dotted key absent from the document.
type MissingFieldError struct {
	Key string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required config field: %s", e.Key)
}

// FieldError reports a semantic violation at one dotted key.
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid config field %s: %s", e.Key, e.Reason)
}

// KnownKey reports whether a dotted override key exists in the default
// document, so plans can be rejected before any process is launched.
func KnownKey(key string) bool {
	return cfg.Defaults().Has(key)
}

// KnownTask reports whether the task name is in the trainer's vocabulary.
func KnownTask(task string) bool {
	return knownTasks[task]
}
