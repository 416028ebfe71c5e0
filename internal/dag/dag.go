package dag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// State tracks a node through its lifecycle.
type State int32

const (
	Pending State = iota
	Running
	Done
	Failed
)

// String returns the lowercase state name used in logs and the run store.
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
	}
	return "unknown"
}

// Node is a single unit of pipeline work. Run is the task body; Deps and
// Dependents are maintained by the graph.
type Node struct {
	ID  string
	Run func(ctx context.Context) error

	Deps       map[string]*Node
	Dependents map[string]*Node

	state    atomic.Int32
	depCount atomic.Int32
	skipOnce sync.Once

	// Err is written once by the worker or skip path before the node's
	// WaitGroup slot is released, so readers after Run() see it safely.
	Err error
}

// State reports the node's current lifecycle state.
func (n *Node) State() State {
	return State(n.state.Load())
}

func (n *Node) setState(s State) {
	n.state.Store(int32(s))
}

// Graph is a dependency graph of pipeline nodes. All mutating operations
// are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	Nodes map[string]*Node
}

// NewGraph creates and returns an initialized, empty Graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode adds a new node with the given ID and task body. Duplicate IDs
// are an error: the pipeline builder derives IDs from the matrix, so a
// collision means the matrix itself is broken.
func (g *Graph) AddNode(id string, run func(ctx context.Context) error) (*Node, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.Nodes[id]; ok {
		return nil, fmt.Errorf("duplicate node id %q", id)
	}

	n := &Node{
		ID:         id,
		Run:        run,
		Deps:       make(map[string]*Node),
		Dependents: make(map[string]*Node),
	}
	g.Nodes[id] = n
	return n, nil
}

// AddEdge creates a directed edge from the `fromID` node to the `toID`
// node, meaning `toID` depends on `fromID`.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.Nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.Nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	if _, dup := toNode.Deps[fromID]; dup {
		return nil
	}
	toNode.Deps[fromID] = fromNode
	fromNode.Dependents[toID] = toNode
	toNode.depCount.Add(1)

	return nil
}

// DetectCycles checks the graph for cycles. It returns a non-nil error if
// a cycle is found, naming the first node involved.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic depth-first search over three node sets: permanent nodes are
	// fully visited and known safe, temporary nodes sit on the current
	// recursion stack, everything else is unvisited.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if permanent[n.ID] {
			return nil
		}
		if temporary[n.ID] {
			return fmt.Errorf("cycle detected involving node '%s'", n.ID)
		}

		temporary[n.ID] = true
		for _, dependent := range n.Dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.ID)
		permanent[n.ID] = true
		return nil
	}

	for _, n := range g.Nodes {
		if !permanent[n.ID] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}
