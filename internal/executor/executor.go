// Package executor runs the experiment graph with a fixed pool of workers.
// The default pool size is one, which preserves the strict sequential order
// a research workstation expects; more workers let independent experiments
// share a multi-GPU machine.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pclab/shaperun/internal/ctxlog"
	"github.com/pclab/shaperun/internal/graph"
	"github.com/pclab/shaperun/internal/plan"
)

// RunExperiment executes one experiment end to end: expanding it into
// invocations and launching each in order.
type RunExperiment func(ctx context.Context, e *plan.Experiment) error

// Executor drains the graph, dispatching ready experiments to workers. A
// failed experiment skips its transitive dependents; unrelated experiments
// keep running.
type Executor struct {
	graph   *graph.Graph
	run     RunExperiment
	workers int
	wg      sync.WaitGroup
}

// New creates an executor. A workers value below one is pinned to one.
func New(g *graph.Graph, workers int, run RunExperiment) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{graph: g, run: run, workers: workers}
}

// Execute runs the whole graph and blocks until every node reached a
// terminal state. The returned error aggregates all failed and skipped
// experiments.
func (e *Executor) Execute(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("🚀 Starting execution.", "experiments", e.graph.Len(), "workers", e.workers)

	readyChan := make(chan *graph.Node, e.graph.Len())
	e.wg.Add(e.graph.Len())
	for _, n := range e.graph.Ready() {
		readyChan <- n
	}

	for i := 0; i < e.workers; i++ {
		go e.worker(ctx, readyChan, i)
	}
	e.wg.Wait()
	close(readyChan)

	var errs []error
	for _, n := range e.graph.Nodes() {
		switch n.State() {
		case graph.Failed:
			errs = append(errs, fmt.Errorf("experiment %q failed: %w", n.Name(), n.Error))
		case graph.Skipped:
			errs = append(errs, fmt.Errorf("experiment %q skipped: %w", n.Name(), n.Error))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Info("🏁 All experiments finished.")
	return nil
}

// worker is the processing loop for one concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *graph.Node, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range readyChan {
		workerLogger := logger.With("workerID", workerID, "experiment", n.Name())

		if ctx.Err() != nil {
			if n.Skip(ctx.Err()) {
				e.skipDependents(ctx, n, n.Error)
				e.wg.Done()
			}
			continue
		}
		if !n.Begin() {
			continue
		}

		workerLogger.Info("▶️ Starting experiment.")
		err := e.run(ctx, n.Experiment)
		n.Finish(err)

		if err != nil {
			workerLogger.Error("Experiment failed.", "error", err)
			e.skipDependents(ctx, n, fmt.Errorf("dependency %q failed", n.Name()))
			e.wg.Done()
			continue
		}

		workerLogger.Info("✅ Experiment finished.")
		for _, dependent := range n.Dependents() {
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent experiment.", "dependent", dependent.Name())
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// skipDependents cascades a skip through everything waiting on n.
func (e *Executor) skipDependents(ctx context.Context, n *graph.Node, cause error) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.Dependents() {
		if dependent.Skip(cause) {
			logger.Warn("Skipping experiment.", "experiment", dependent.Name(), "cause", cause)
			e.skipDependents(ctx, dependent, fmt.Errorf("dependency %q skipped", dependent.Name()))
			e.wg.Done()
		}
	}
}
