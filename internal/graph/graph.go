// Package graph models the experiment dependency structure of a plan as a
// DAG. Each node is one experiment; edges come from depends_on. The graph
// owns the scheduling state (dependency counters, node states) that the
// executor's workers manipulate concurrently.
package graph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pclab/shaperun/internal/plan"
)

// State is the execution state of a node, managed atomically.
type State int32

const (
	// Pending indicates the node is waiting for its dependencies.
	Pending State = iota
	// Running indicates a worker is executing the node.
	Running
	// Done indicates the node completed successfully.
	Done
	// Failed indicates the node's execution returned an error.
	Failed
	// Skipped indicates the node never ran because a dependency failed.
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Node is one experiment in the execution graph.
type Node struct {
	Experiment *plan.Experiment

	// Error records why the node failed or was skipped.
	Error error

	dependents []*Node
	depCount   atomic.Int32
	state      atomic.Int32
	errMu      sync.Mutex
}

// Name returns the experiment name the node represents.
func (n *Node) Name() string {
	return n.Experiment.Name
}

// State atomically reads the node's execution state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// Dependents returns the nodes that wait on this one.
func (n *Node) Dependents() []*Node {
	return n.dependents
}

// DecrementDepCount atomically decrements the unmet-dependency counter and
// returns the new value. A result of zero means the node is ready to run.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// Begin transitions the node from Pending to Running. It returns false when
// the node already left Pending, e.g. because it was skipped.
func (n *Node) Begin() bool {
	return n.state.CompareAndSwap(int32(Pending), int32(Running))
}

// Finish records the terminal state of a node that ran.
func (n *Node) Finish(err error) {
	if err != nil {
		n.setError(err)
		n.state.Store(int32(Failed))
		return
	}
	n.state.Store(int32(Done))
}

// Skip marks a Pending node as skipped. It returns true only for the caller
// that performed the transition, so cascading skips visit each node once.
func (n *Node) Skip(err error) bool {
	if n.state.CompareAndSwap(int32(Pending), int32(Skipped)) {
		n.setError(err)
		return true
	}
	return false
}

func (n *Node) setError(err error) {
	n.errMu.Lock()
	n.Error = err
	n.errMu.Unlock()
}

// Graph is the immutable node structure built from a plan. Node states
// mutate during execution; the topology does not.
type Graph struct {
	nodes  []*Node
	byName map[string]*Node
}

// Build constructs the graph from a plan and rejects dependency cycles.
func Build(p *plan.Plan) (*Graph, error) {
	g := &Graph{byName: make(map[string]*Node, len(p.Experiments))}
	for _, e := range p.Experiments {
		n := &Node{Experiment: e}
		n.depCount.Store(int32(len(e.DependsOn)))
		g.nodes = append(g.nodes, n)
		g.byName[e.Name] = n
	}
	for _, n := range g.nodes {
		for _, dep := range n.Experiment.DependsOn {
			parent, ok := g.byName[dep]
			if !ok {
				return nil, fmt.Errorf("experiment %q depends on unknown experiment %q", n.Name(), dep)
			}
			parent.dependents = append(parent.dependents, n)
		}
	}
	if err := g.checkCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// Nodes returns all nodes in plan declaration order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node looks up a node by experiment name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// Ready returns the nodes with no unmet dependencies, in declaration order.
func (g *Graph) Ready() []*Node {
	var ready []*Node
	for _, n := range g.nodes {
		if n.depCount.Load() == 0 {
			ready = append(ready, n)
		}
	}
	return ready
}

// checkCycles runs a three-color depth-first search over the dependency
// edges and reports the first cycle it finds.
func (g *Graph) checkCycles() error {
	const (
		white = 0 // unvisited
		grey  = 1 // on the current path
		black = 2 // fully explored
	)
	colors := make(map[*Node]int, len(g.nodes))

	var visit func(n *Node, path []string) error
	visit = func(n *Node, path []string) error {
		colors[n] = grey
		path = append(path, n.Name())
		for _, dep := range n.Experiment.DependsOn {
			parent := g.byName[dep]
			switch colors[parent] {
			case grey:
				return fmt.Errorf("dependency cycle: %v -> %s", path, dep)
			case white:
				if err := visit(parent, path); err != nil {
					return err
				}
			}
		}
		colors[n] = black
		return nil
	}

	for _, n := range g.nodes {
		if colors[n] == white {
			if err := visit(n, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
