package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pclab/shaperun/internal/cfg"
	"github.com/pclab/shaperun/internal/ledger"
	"github.com/pclab/shaperun/internal/plan"
	"github.com/pclab/shaperun/internal/runner"
	"github.com/pclab/shaperun/internal/schema"
)

// testApp returns an App whose logger writes to the returned buffer.
func testApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return &App{
		logger: newLogger("debug", "text", &buf),
		config: &Config{},
		plan: &plan.Plan{
			Defaults: plan.Defaults{
				Trainer:    []string{"python", "tools/train.py"},
				OutputRoot: filepath.Join(t.TempDir(), "outputs"),
			},
		},
	}, &buf
}

// h5Root lays out an HDF5-style dataset directory: per-split list files plus
// the category file.
func h5Root(t *testing.T, splits map[string]string, categories string) string {
	t.Helper()
	root := t.TempDir()
	for split, content := range splits {
		name := split + "_hdf5_file_list.txt"
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
	}
	if categories != "" {
		path := filepath.Join(root, "all_object_categories.txt")
		require.NoError(t, os.WriteFile(path, []byte(categories), 0644))
	}
	return root
}

func h5Doc(t *testing.T, root string, numClasses int) *schema.Document {
	t.Helper()
	merged := cfg.Defaults()
	require.NoError(t, merged.Set("DATASET.TYPE", "ShapeNetH5"))
	require.NoError(t, merged.Set("DATASET.ROOT_DIR", root))
	require.NoError(t, merged.Set("DATASET.NUM_CLASSES", numClasses))
	require.NoError(t, merged.Set("DATASET.TRAIN", []any{"train"}))
	require.NoError(t, merged.Set("DATASET.VAL", []any{"val"}))
	return &schema.Document{Merged: merged}
}

func TestVerifySplits_EmptySplitWarns(t *testing.T) {
	t.Parallel()

	root := h5Root(t, map[string]string{
		"train": "ply_data_train0.h5\nply_data_train1.h5\n",
		"val":   "",
	}, "")

	a, logs := testApp(t)
	a.verifySplits(&plan.Experiment{Name: "exp"}, h5Doc(t, root, 0))

	require.Contains(t, logs.String(), "Dataset split is empty.")
	require.Contains(t, logs.String(), "split=val")
	require.NotContains(t, logs.String(), "split=train")
}

func TestVerifySplits_CategoryCountMismatchWarns(t *testing.T) {
	t.Parallel()

	splits := map[string]string{"train": "a.h5\n", "val": "b.h5\n"}

	a, logs := testApp(t)
	root := h5Root(t, splits, "airplane 02691156\ncar 02958343\n")
	a.verifySplits(&plan.Experiment{Name: "exp"}, h5Doc(t, root, 16))
	require.Contains(t, logs.String(), "disagrees with the category file")
	require.Contains(t, logs.String(), "configured=16")
	require.Contains(t, logs.String(), "category_file=2")

	// A matching count stays quiet.
	a, logs = testApp(t)
	root = h5Root(t, splits, "airplane 02691156\ncar 02958343\n")
	a.verifySplits(&plan.Experiment{Name: "exp"}, h5Doc(t, root, 2))
	require.NotContains(t, logs.String(), "disagrees")
}

func TestRunExperiment_ReportsPriorRun(t *testing.T) {
	t.Parallel()

	led, err := ledger.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer led.Close()

	ctx := context.Background()
	id, err := led.Begin(ctx, ledger.Run{Experiment: "dgcnn_cls", Phase: "train", OutputDir: "outputs/dgcnn_cls"})
	require.NoError(t, err)
	require.NoError(t, led.Finish(ctx, id, 1, ledger.StatusFailed))

	a, logs := testApp(t)
	e := &plan.Experiment{Name: "dgcnn_cls", Config: "configs/dgcnn_cls.yaml"}
	doc := &schema.Document{Merged: cfg.Defaults()}

	launcher := &runner.Launcher{DryRun: true}
	require.NoError(t, a.runExperiment(ctx, e, doc, launcher, led))

	require.Contains(t, logs.String(), "prior run on record")
	require.Contains(t, logs.String(), "status=failed")
}
