package cfg

import (
	"path/filepath"
	"strings"
)

// Tasks the harness recognizes. The external trainer selects its loss and
// metric heads from this value.
const (
	TaskClassification        = "classification"
	TaskPartSegmentation      = "part_segmentation"
	TaskInstanceSegmentation  = "instance_segmentation"
	TaskFewShotClassification = "few_shot_classification"
)

// Defaults returns the full default document. Every key an experiment file or
// override may touch must appear here; the merge layer rejects the rest.
func Defaults() *Node {
	n := New()

	n.set("TASK", TaskClassification)
	// Resume weights from the last checkpoint in OUTPUT_DIR when present.
	n.set("AUTO_RESUME", true)

	n.set("MODEL.TYPE", "")
	n.set("MODEL.WEIGHT", "")

	n.set("INPUT.IN_CHANNELS", 3)
	n.set("INPUT.NUM_POINTS", -1)
	n.set("INPUT.USE_NORMAL", false)

	// Architecture hyperparameters. One sub-section per supported model; the
	// trainer reads only the section matching MODEL.TYPE.
	n.set("MODEL.POINTNET.STEM_FUNC", "")
	n.set("MODEL.POINTNET.STEM_CHANNELS", []any{64, 64})
	n.set("MODEL.POINTNET.LOCAL_CHANNELS", []any{64, 128, 1024})
	n.set("MODEL.POINTNET.GLOBAL_CHANNELS", []any{512, 256})
	n.set("MODEL.POINTNET.DROPOUT_RATIO", 0.5)
	n.set("MODEL.POINTNET.REG_WEIGHT", 0.0)
	n.set("MODEL.POINTNET.BEFORE_CHANNELS", 0)

	n.set("MODEL.DGCNN.K", 20)
	n.set("MODEL.DGCNN.GRAPH_LAYER_CHANNELS", []any{64, 64, 128, 1024})
	n.set("MODEL.DGCNN.INTER_LAYER_CHANNELS", 1024)
	n.set("MODEL.DGCNN.GLOBAL_CHANNELS", []any{512, 256})
	n.set("MODEL.DGCNN.LABEL_SMOOTH", 0.0)
	n.set("MODEL.DGCNN.BEFORE_CHANNELS", 0)

	n.set("MODEL.S2CNN.BAND_WIDTH_IN", 30)
	n.set("MODEL.S2CNN.FEATURE_CHANNELS", []any{100, 100})
	n.set("MODEL.S2CNN.BAND_WIDTH_LIST", []any{16, 10})

	n.set("MODEL.PN2SSG.NUM_POINTS", []any{512, 128})
	n.set("MODEL.PN2SSG.RADIUS", []any{0.2, 0.4})
	n.set("MODEL.PN2SSG.NUM_SAMPLE", []any{32, 64})
	n.set("MODEL.PN2SSG.GROUP_MLPS", []any{
		[]any{64, 64, 128},
		[]any{128, 128, 256},
	})
	n.set("MODEL.PN2SSG.GLOBAL_MLPS", []any{256, 512, 1024})
	n.set("MODEL.PN2SSG.FC_CHANNELS", []any{512, 256})
	n.set("MODEL.PN2SSG.DROP_PROB", 0.5)
	n.set("MODEL.PN2SSG.USE_XYZ", true)
	n.set("MODEL.PN2SSG.BEFORE_CHANNELS", 0)

	n.set("MODEL.PN2MSG.NUM_POINTS", []any{512, 128})
	n.set("MODEL.PN2MSG.RADIUS", []any{
		[]any{0.1, 0.2, 0.4},
		[]any{0.2, 0.4, 0.8},
	})
	n.set("MODEL.PN2MSG.NUM_SAMPLE", []any{
		[]any{16, 32, 128},
		[]any{32, 64, 128},
	})
	n.set("MODEL.PN2MSG.GROUP_MLPS", []any{
		[]any{[]any{32, 32, 64}, []any{64, 64, 128}, []any{64, 96, 128}},
		[]any{[]any{64, 64, 128}, []any{128, 128, 256}, []any{128, 128, 256}},
	})
	n.set("MODEL.PN2MSG.GLOBAL_MLPS", []any{256, 512, 1024})
	n.set("MODEL.PN2MSG.FC_CHANNELS", []any{512, 256})
	n.set("MODEL.PN2MSG.DROP_PROB", 0.5)
	n.set("MODEL.PN2MSG.USE_XYZ", true)
	n.set("MODEL.PN2MSG.BEFORE_CHANNELS", 0)

	n.set("DATASET.TYPE", "")
	n.set("DATASET.NUM_CLASSES", 0)
	n.set("DATASET.NUM_SEG_CLASSES", 0)
	n.set("DATASET.ROOT_DIR", "")
	// Named split groups; each entry names one split list under ROOT_DIR.
	n.set("DATASET.TRAIN", []any{})
	n.set("DATASET.VAL", []any{})
	n.set("DATASET.TEST", []any{})

	// Few-shot episode shape, one sub-section per few-shot dataset adapter.
	n.set("DATASET.MODELNET_FEWSHOT.NUM_PER_CLASS", 1)
	n.set("DATASET.MODELNET_FEWSHOT.CROSS_NUM", 0)
	n.set("DATASET.SHAPENET_FEWSHOT.NUM_PER_CLASS", 1)
	n.set("DATASET.SHAPENET_FEWSHOT.CROSS_NUM", 0)
	n.set("DATASET.SHAPENET55_FEWSHOT.NUM_PER_CLASS", 1)
	n.set("DATASET.SHAPENET55_FEWSHOT.CROSS_NUM", 0)

	n.set("DATALOADER.NUM_WORKERS", 4)

	n.set("SOLVER.TYPE", "Adam")
	n.set("SOLVER.MAX_EPOCH", 1)
	n.set("SOLVER.BASE_LR", 0.001)
	n.set("SOLVER.WEIGHT_DECAY", 0.0)
	// Learning-rate decay applied at each epoch listed in STEPS.
	n.set("SOLVER.GAMMA", 0.1)
	n.set("SOLVER.STEPS", []any{})
	n.set("SOLVER.SGD.momentum", 0.9)
	n.set("SOLVER.Adam.betas", []any{0.9, 0.999})

	n.set("SCHEDULER.TYPE", "")
	n.set("SCHEDULER.GAMMA", 0.1)
	n.set("SCHEDULER.MultiStepLR.MILESTONES", []any{})
	n.set("SCHEDULER.StepLR.STEP_SIZE", 0)

	n.set("TRAIN.BATCH_SIZE", 32)
	n.set("TRAIN.CHECKPOINT_PERIOD", 1000)
	n.set("TRAIN.LOG_PERIOD", 10)
	n.set("TRAIN.VAL_PERIOD", 1)
	n.set("TRAIN.VAL_METRIC", "")
	n.set("TRAIN.AUGMENTATION", []any{})

	// Transfer / few-shot fine-tuning controls.
	n.set("TRAIN.LOAD_PRETRAIN", false)
	n.set("TRAIN.FREEZE_PARAMS", []any{})
	n.set("TRAIN.WARM_UP.ENABLE", false)
	n.set("TRAIN.WARM_UP.WARM_STEP_LAMBDA", []any{0.01, 0.01, 0.01, 0.01, 0.01, 0.1, 0.1, 0.1, 0.1, 0.1})
	n.set("TRAIN.WARM_UP.GAMMA", 0.1)
	n.set("TRAIN.WARM_UP.STEP_SIZE", 20)
	n.set("TRAIN.MID_UNFREEZE.ENABLE", false)
	n.set("TRAIN.MID_UNFREEZE.PATTERNS", []any{})
	n.set("TRAIN.MID_UNFREEZE.STEPS", 0)

	n.set("TEST.BATCH_SIZE", 32)
	n.set("TEST.LOG_PERIOD", 10)
	n.set("TEST.WEIGHT", "")
	n.set("TEST.AUGMENTATION", []any{})
	n.set("TEST.VOTE.ENABLE", false)
	n.set("TEST.VOTE.NUM_VIEW", 12)
	n.set("TEST.VOTE.AXIS", "y")
	n.set("TEST.VOTE.SCORE_HEUR", []any{"logit"})

	// "@" means: derive the output directory from the config filename.
	n.set("OUTPUT_DIR", "@")
	n.set("RNG_SEED", 0)
	n.set("DEVICE_IDS", []any{})

	return n
}

// Load builds a document: defaults, then the YAML file, then overrides. The
// returned Node is not frozen so callers can apply per-invocation keys.
func Load(path string, overrides []string) (*Node, error) {
	n := Defaults()
	if err := n.MergeFromFile(path); err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := n.MergeFromList(overrides); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// OutputDir resolves the document's OUTPUT_DIR. The sentinel "@" derives
// "outputs/<config-file-stem>" next to the config file, mirroring the
// trainer's convention.
func (n *Node) OutputDir(cfgPath string) string {
	dir, err := n.GetString("OUTPUT_DIR")
	if err != nil || dir == "@" || dir == "" {
		stem := strings.TrimSuffix(filepath.Base(cfgPath), filepath.Ext(cfgPath))
		return filepath.Join("outputs", stem)
	}
	return dir
}
