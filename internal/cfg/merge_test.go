package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
TASK: part_segmentation
MODEL:
  TYPE: PN2SSG
INPUT:
  NUM_POINTS: 2048
  USE_NORMAL: true
DATASET:
  TYPE: ShapeNetH5
  NUM_CLASSES: 16
  NUM_SEG_CLASSES: 50
  ROOT_DIR: data/shapenet_hdf5
  TRAIN: [train, val]
  TEST: [test]
SOLVER:
  TYPE: Adam
  MAX_EPOCH: 200
  BASE_LR: 0.001
SCHEDULER:
  TYPE: MultiStepLR
  GAMMA: 0.5
  MultiStepLR:
    MILESTONES: [20, 40, 60, 80, 100, 120]
TRAIN:
  BATCH_SIZE: 32
  AUGMENTATION: [PointCloudRotatePerturbation, PointCloudJitter]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pn2ssg_seg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestMergeFromFile_SampleDocument(t *testing.T) {
	t.Parallel()

	n := Defaults()
	require.NoError(t, n.MergeFromFile(writeConfig(t, sampleYAML)))

	task, err := n.GetString("TASK")
	require.NoError(t, err)
	require.Equal(t, "part_segmentation", task)

	epoch, err := n.GetInt("SOLVER.MAX_EPOCH")
	require.NoError(t, err)
	require.Equal(t, 200, epoch)

	milestones, err := n.GetInts("SCHEDULER.MultiStepLR.MILESTONES")
	require.NoError(t, err)
	require.Equal(t, []int{20, 40, 60, 80, 100, 120}, milestones)

	splits, err := n.GetStrings("DATASET.TRAIN")
	require.NoError(t, err)
	require.Equal(t, []string{"train", "val"}, splits)

	// Untouched defaults survive the merge.
	workers, err := n.GetInt("DATALOADER.NUM_WORKERS")
	require.NoError(t, err)
	require.Equal(t, 4, workers)
}

func TestMergeFromFile_SolverSchedule(t *testing.T) {
	t.Parallel()

	n := Defaults()
	require.NoError(t, n.MergeFromFile(writeConfig(t, "SOLVER:\n  GAMMA: 0.5\n  STEPS: [40, 80]\n")))

	gamma, err := n.GetFloat("SOLVER.GAMMA")
	require.NoError(t, err)
	require.Equal(t, 0.5, gamma)

	steps, err := n.GetInts("SOLVER.STEPS")
	require.NoError(t, err)
	require.Equal(t, []int{40, 80}, steps)
}

func TestMergeFromFile_RejectsUnknownKey(t *testing.T) {
	t.Parallel()

	n := Defaults()
	err := n.MergeFromFile(writeConfig(t, "SOLVER:\n  LEARNING_RATE: 0.1\n"))

	var keyErr *KeyError
	require.ErrorAs(t, err, &keyErr)
	require.Equal(t, "SOLVER.LEARNING_RATE", keyErr.Key)
}

func TestMergeFromFile_RejectsTypeChange(t *testing.T) {
	t.Parallel()

	n := Defaults()
	err := n.MergeFromFile(writeConfig(t, "SOLVER:\n  MAX_EPOCH: lots\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "SOLVER.MAX_EPOCH")
}

func TestMergeFromFile_RejectsSectionValueMismatch(t *testing.T) {
	t.Parallel()

	n := Defaults()
	err := n.MergeFromFile(writeConfig(t, "SOLVER: 3\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "section/value mismatch")
}

func TestMergeFromList_Overrides(t *testing.T) {
	t.Parallel()

	n := Defaults()
	err := n.MergeFromList([]string{
		"SOLVER.MAX_EPOCH", "100",
		"SOLVER.BASE_LR", "0.01",
		"MODEL.TYPE", "DGCNN",
		"AUTO_RESUME", "False",
		"DATASET.TRAIN", "('cross_0',)",
		"SCHEDULER.MultiStepLR.MILESTONES", "(20, 40, 60)",
	})
	require.NoError(t, err)

	epoch, err := n.GetInt("SOLVER.MAX_EPOCH")
	require.NoError(t, err)
	require.Equal(t, 100, epoch)

	resume, err := n.GetBool("AUTO_RESUME")
	require.NoError(t, err)
	require.False(t, resume)

	train, err := n.GetStrings("DATASET.TRAIN")
	require.NoError(t, err)
	require.Equal(t, []string{"cross_0"}, train)
}

func TestMergeFromList_OddPairs(t *testing.T) {
	t.Parallel()

	n := Defaults()
	err := n.MergeFromList([]string{"SOLVER.MAX_EPOCH"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "key/value pairs")
}

func TestLoad_DefaultsPlusFilePlusOverrides(t *testing.T) {
	t.Parallel()

	n, err := Load(writeConfig(t, sampleYAML), []string{"TRAIN.BATCH_SIZE", "16"})
	require.NoError(t, err)

	bs, err := n.GetInt("TRAIN.BATCH_SIZE")
	require.NoError(t, err)
	require.Equal(t, 16, bs)
}

func TestOutputDir_Sentinel(t *testing.T) {
	t.Parallel()

	n := Defaults()
	require.Equal(t, filepath.Join("outputs", "pn2ssg_seg"),
		n.OutputDir("configs/pn2ssg_seg.yaml"))

	require.NoError(t, n.Set("OUTPUT_DIR", "results/run1"))
	require.Equal(t, "results/run1", n.OutputDir("configs/pn2ssg_seg.yaml"))
}
