package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pclab/shaperun/internal/checkpoint"
	"github.com/pclab/shaperun/internal/ctxlog"
	"github.com/pclab/shaperun/internal/watch"
)

// ExitError reports a trainer process that ran and failed. The exit code is
// preserved so callers can distinguish trainer failures from launch failures.
type ExitError struct {
	ID   string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("invocation %s exited with code %d", e.ID, e.Code)
}

// Launcher executes invocations as external processes. One output directory
// belongs to one invocation at a time, so Run is safe to call from a single
// worker per experiment.
type Launcher struct {
	// DryRun prints the resolved command lines instead of executing them.
	DryRun bool

	// Watch enables checkpoint progress logging while a process runs.
	Watch bool
}

// Run executes one invocation to completion. The process inherits the parent
// environment plus CUDA_VISIBLE_DEVICES when the invocation pins devices, and
// its combined output is captured to <output_dir>/<phase>.log.
func (l *Launcher) Run(ctx context.Context, inv *Invocation) error {
	logger := ctxlog.FromContext(ctx).With("invocation", inv.ID())

	if l.DryRun {
		logger.Info("▶️ Would run.", "command", inv.CommandLine())
		return nil
	}

	if err := os.MkdirAll(inv.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tracker := checkpoint.New(inv.OutputDir)
	if inv.AutoResume {
		if last, err := tracker.Last(); err != nil {
			return fmt.Errorf("reading checkpoint tag: %w", err)
		} else if last != "" {
			logger.Info("Resuming from checkpoint.", "checkpoint", filepath.Base(last))
		}
	}

	logFile, err := os.Create(filepath.Join(inv.OutputDir, string(inv.Phase)+".log"))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	if l.Watch {
		if w, werr := watch.Start(ctx, inv.OutputDir); werr != nil {
			logger.Debug("Checkpoint watch unavailable.", "error", werr)
		} else {
			defer w.Close()
		}
	}

	cmd := exec.CommandContext(ctx, inv.Program[0], inv.Args()...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = os.Environ()
	if devices := inv.DeviceList(); devices != "" {
		cmd.Env = append(cmd.Env, "CUDA_VISIBLE_DEVICES="+devices)
	}

	logger.Info("▶️ Launching.", "command", inv.CommandLine(), "output_dir", inv.OutputDir)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{ID: inv.ID(), Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("launching %s: %w", inv.ID(), err)
	}

	if inv.Phase == PhaseTrain && !tracker.Has() {
		logger.Warn("Training finished without writing a checkpoint.", "output_dir", inv.OutputDir)
	}
	logger.Info("✅ Finished.", "output_dir", inv.OutputDir)
	return nil
}
