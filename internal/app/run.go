package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pclab/shaperun/internal/ctxlog"
	"github.com/pclab/shaperun/internal/dataset"
	"github.com/pclab/shaperun/internal/executor"
	"github.com/pclab/shaperun/internal/graph"
	"github.com/pclab/shaperun/internal/ledger"
	"github.com/pclab/shaperun/internal/plan"
	"github.com/pclab/shaperun/internal/runner"
	"github.com/pclab/shaperun/internal/schema"
)

// Run executes the main application logic: validate every experiment's
// config document, then drain the dependency graph through the executor.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer a.closeHealthcheckServer()
	}

	docs, err := a.loadDocuments(ctx)
	if err != nil {
		return err
	}
	if a.config.ValidateOnly {
		a.logger.Info("✅ All experiment configs are valid.", "experiments", len(docs))
		return nil
	}

	var led *ledger.Ledger
	if a.config.LedgerPath != "" {
		led, err = ledger.Open(a.config.LedgerPath)
		if err != nil {
			return fmt.Errorf("failed to open run ledger: %w", err)
		}
		defer led.Close()
		a.logger.Debug("Run ledger opened.", "path", a.config.LedgerPath)
	}

	g, err := graph.Build(a.plan)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", g.Len())

	launcher := &runner.Launcher{DryRun: a.config.DryRun, Watch: a.config.Watch}
	run := func(ctx context.Context, e *plan.Experiment) error {
		return a.runExperiment(ctx, e, docs[e.Name], launcher, led)
	}

	exec := executor.New(g, a.config.WorkerCount, run)
	if err := exec.Execute(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// loadDocuments parses and validates the config document of every
// experiment in the plan. All validation errors are reported at once so a
// broken plan fails before anything launches.
func (a *App) loadDocuments(ctx context.Context) (map[string]*schema.Document, error) {
	docs := make(map[string]*schema.Document, len(a.plan.Experiments))
	var errs []error
	for _, e := range a.plan.Experiments {
		doc, err := schema.LoadDocument(e.Config)
		if err != nil {
			errs = append(errs, fmt.Errorf("experiment %q: %w", e.Name, err))
			continue
		}
		if err := doc.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("experiment %q: %w", e.Name, err))
			continue
		}
		docs[e.Name] = doc
		a.logger.Debug("Config document validated.", "experiment", e.Name, "config", e.Config)
		a.verifySplits(e, doc)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return docs, nil
}

// verifySplits warns when a config references dataset splits whose list
// files are missing. The dataset may live on another machine, so the check
// only runs when ROOT_DIR is present locally and never fails the run.
func (a *App) verifySplits(e *plan.Experiment, doc *schema.Document) {
	root, err := doc.Merged.GetString("DATASET.ROOT_DIR")
	if err != nil || root == "" {
		return
	}
	if _, statErr := os.Stat(root); statErr != nil {
		return
	}
	adapter, err := doc.Merged.GetString("DATASET.TYPE")
	if err != nil {
		return
	}

	var splits []string
	if e.Folds > 0 {
		splits = dataset.CrossSplitNames(e.Folds)
	} else {
		for _, group := range []string{"DATASET.TRAIN", "DATASET.VAL", "DATASET.TEST"} {
			if names, gErr := doc.Merged.GetStrings(group); gErr == nil {
				splits = append(splits, names...)
			}
		}
	}
	if err := dataset.Verify(adapter, root, splits); err != nil {
		a.logger.Warn("Dataset split check failed.", "experiment", e.Name, "error", err)
		return
	}

	layout, err := dataset.LayoutFor(adapter)
	if err != nil {
		return
	}
	for _, split := range splits {
		entries, sErr := dataset.SplitEntries(layout, root, split)
		if sErr != nil {
			a.logger.Warn("Dataset split list is unreadable.", "experiment", e.Name, "split", split, "error", sErr)
			continue
		}
		if len(entries) == 0 {
			a.logger.Warn("Dataset split is empty.", "experiment", e.Name, "split", split)
		}
	}
	a.verifyCategories(e, doc, layout, root)
}

// verifyCategories cross-checks DATASET.NUM_CLASSES against the dataset's
// category file when one is present locally.
func (a *App) verifyCategories(e *plan.Experiment, doc *schema.Document, layout dataset.Layout, root string) {
	name := dataset.CategoryFile
	if layout == dataset.LayoutH5 {
		name = dataset.CategoryFileH5
	}
	path := filepath.Join(root, name)
	if _, err := os.Stat(path); err != nil {
		return
	}

	categories, err := dataset.LoadCategories(path)
	if err != nil {
		a.logger.Warn("Category file is unreadable.", "experiment", e.Name, "path", path, "error", err)
		return
	}
	classes, err := doc.Merged.GetInt("DATASET.NUM_CLASSES")
	if err != nil || classes <= 0 {
		return
	}
	if classes != len(categories) {
		a.logger.Warn("DATASET.NUM_CLASSES disagrees with the category file.",
			"experiment", e.Name, "configured", classes, "category_file", len(categories))
	}
}

// runExperiment expands one experiment and launches each invocation in
// order. The first failure aborts the remaining invocations; when a ledger
// is attached, those are recorded as skipped.
func (a *App) runExperiment(ctx context.Context, e *plan.Experiment, doc *schema.Document, launcher *runner.Launcher, led *ledger.Ledger) error {
	if led != nil {
		if prev, ok, lErr := led.LastRun(ctx, e.Name); lErr == nil && ok {
			a.logger.Info("Experiment has a prior run on record.",
				"experiment", e.Name, "status", prev.Status, "output_dir", prev.OutputDir)
		}
	}

	invocations, err := runner.Expand(a.plan, e, doc)
	if err != nil {
		return err
	}
	a.logger.Debug("Experiment expanded.", "experiment", e.Name, "invocations", len(invocations))

	for i, inv := range invocations {
		runID, err := a.recordStart(ctx, inv, led)
		if err != nil {
			return err
		}

		runErr := launcher.Run(ctx, inv)
		if err := a.recordFinish(ctx, runID, runErr, led); err != nil {
			return err
		}
		if runErr != nil {
			a.recordSkips(ctx, invocations[i+1:], led)
			return runErr
		}
	}
	return nil
}

func (a *App) recordStart(ctx context.Context, inv *runner.Invocation, led *ledger.Ledger) (string, error) {
	if led == nil {
		return "", nil
	}
	id, err := led.Begin(ctx, ledgerRun(inv))
	if err != nil {
		return "", fmt.Errorf("ledger: %w", err)
	}
	return id, nil
}

func (a *App) recordFinish(ctx context.Context, runID string, runErr error, led *ledger.Ledger) error {
	if led == nil {
		return nil
	}
	status := ledger.StatusSucceeded
	code := 0
	if runErr != nil {
		status = ledger.StatusFailed
		code = 1
		var exitErr *runner.ExitError
		if errors.As(runErr, &exitErr) {
			code = exitErr.Code
		}
	}
	if err := led.Finish(ctx, runID, code, status); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	return nil
}

func (a *App) recordSkips(ctx context.Context, remaining []*runner.Invocation, led *ledger.Ledger) {
	if led == nil {
		return
	}
	for _, inv := range remaining {
		if err := led.RecordSkip(ctx, ledgerRun(inv)); err != nil {
			a.logger.Warn("Failed to record skipped invocation.", "invocation", inv.ID(), "error", err)
		}
	}
}

func ledgerRun(inv *runner.Invocation) ledger.Run {
	return ledger.Run{
		Experiment: inv.Experiment,
		Phase:      string(inv.Phase),
		Rep:        inv.Rep,
		Fold:       inv.Fold,
		ConfigPath: inv.ConfigPath,
		OutputDir:  inv.OutputDir,
		Devices:    inv.DeviceList(),
	}
}
