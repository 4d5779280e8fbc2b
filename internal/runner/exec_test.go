package runner

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pclab/shaperun/internal/checkpoint"
	"github.com/pclab/shaperun/internal/ctxlog"
)

// launchCtx returns a context whose logger writes to the returned buffer.
func launchCtx(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), &buf
}

// shellInvocation wraps a shell snippet as a train invocation. The snippet
// sees the harness-supplied --cfg and override arguments as $@ and may
// ignore them.
func shellInvocation(dir, script string) *Invocation {
	return &Invocation{
		Experiment: "stub",
		Phase:      PhaseTrain,
		Rep:        NoIndex,
		Fold:       NoIndex,
		Program:    []string{"sh", "-c", script, "trainer"},
		ConfigPath: "configs/stub.yaml",
		OutputDir:  dir,
	}
}

func TestLauncher_DryRun(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "never_created")
	ctx, logs := launchCtx(t)

	launcher := &Launcher{DryRun: true}
	require.NoError(t, launcher.Run(ctx, shellInvocation(dir, "exit 1")))

	require.Contains(t, logs.String(), "Would run.")
	require.Contains(t, logs.String(), "--cfg=configs/stub.yaml")
	require.NoDirExists(t, dir, "dry runs must not touch the filesystem")
}

func TestLauncher_CapturesOutput(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "stub")
	ctx, _ := launchCtx(t)

	script := "echo 'epoch 1 done'; printf 'model_best.pth' > " + filepath.Join(dir, checkpoint.TagFile)
	require.NoError(t, (&Launcher{}).Run(ctx, shellInvocation(dir, script)))

	logData, err := os.ReadFile(filepath.Join(dir, "train.log"))
	require.NoError(t, err)
	require.Contains(t, string(logData), "epoch 1 done")

	last, err := checkpoint.New(dir).Last()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "model_best.pth"), last)
}

func TestLauncher_ExitCode(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "stub")
	ctx, _ := launchCtx(t)

	err := (&Launcher{}).Run(ctx, shellInvocation(dir, "echo boom >&2; exit 3"))

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 3, exitErr.Code)
	require.Equal(t, "stub/train", exitErr.ID)

	logData, readErr := os.ReadFile(filepath.Join(dir, "train.log"))
	require.NoError(t, readErr)
	require.Contains(t, string(logData), "boom", "stderr lands in the captured log")
}

func TestLauncher_ResumeAndWarn(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "stub")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, checkpoint.New(dir).Tag("model_080.pth"))

	ctx, logs := launchCtx(t)
	inv := shellInvocation(dir, "true")
	inv.AutoResume = true
	require.NoError(t, (&Launcher{}).Run(ctx, inv))
	require.Contains(t, logs.String(), "Resuming from checkpoint.")
	require.Contains(t, logs.String(), "model_080.pth")

	// A fresh directory whose trainer writes no checkpoint draws a warning.
	fresh := filepath.Join(t.TempDir(), "fresh")
	ctx, logs = launchCtx(t)
	require.NoError(t, (&Launcher{}).Run(ctx, shellInvocation(fresh, "true")))
	require.Contains(t, logs.String(), "without writing a checkpoint")
}

func TestLauncher_DevicePinning(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "stub")
	ctx, _ := launchCtx(t)

	inv := shellInvocation(dir, `echo "devices=$CUDA_VISIBLE_DEVICES"`)
	inv.Devices = []int{1, 3}
	require.NoError(t, (&Launcher{}).Run(ctx, inv))

	logData, err := os.ReadFile(filepath.Join(dir, "train.log"))
	require.NoError(t, err)
	require.Contains(t, string(logData), "devices=1,3")
}
