package dag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quafel/quafel/internal/ctxlog"
)

// ErrSkipped marks nodes that never ran because something upstream failed.
// It is a symptom, never the root cause of a failed run.
var ErrSkipped = errors.New("skipped")

// Observer receives node lifecycle notifications during a run. Used to feed
// the run store and the dashboard progress stream.
type Observer interface {
	NodeStarted(id string)
	NodeFinished(id string, state State, elapsed time.Duration, err error)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) NodeStarted(string) {}
func (NopObserver) NodeFinished(string, State, time.Duration, error) {}

// Executor runs a graph's nodes concurrently on a fixed worker pool,
// honoring dependencies and failing fast on the first error.
type Executor struct {
	graph      *Graph
	numWorkers int
	observer   Observer
	wg         sync.WaitGroup
}

// NewExecutor creates an executor over the given graph. A nil observer
// disables notifications.
func NewExecutor(graph *Graph, numWorkers int, observer Observer) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Executor{graph: graph, numWorkers: numWorkers, observer: observer}
}

// Run executes the entire graph concurrently and returns an error if any
// node fails. It respects the cancellation signal from the provided context.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *Node, len(e.graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Debug("Initializing executor, finding root nodes...")
	rootNodeCount := 0
	for _, node := range e.graph.Nodes {
		if node.depCount.Load() == 0 {
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)

	var failedNodes []string
	var rootCauseError error
	for _, node := range e.graph.Nodes {
		if node.State() != Failed {
			continue
		}
		logger.Error("Node failed execution.", "nodeID", node.ID, "error", node.Err)
		// Skip and cancellation errors are symptoms of another node's
		// failure, not causes.
		if node.Err != nil && !errors.Is(node.Err, ErrSkipped) && !errors.Is(node.Err, context.Canceled) {
			failedNodes = append(failedNodes, node.ID)
			if rootCauseError == nil {
				rootCauseError = node.Err
			}
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	return nil
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)

		if ctx.Err() != nil {
			e.skipNode(ctx, node, ctx.Err())
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		node.setState(Running)
		e.observer.NodeStarted(node.ID)

		start := time.Now()
		err := node.Run(ctx)
		elapsed := time.Since(start)

		if err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			node.setState(Failed)
			node.Err = err
			e.observer.NodeFinished(node.ID, Failed, elapsed, err)
			cancel()
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Node execution succeeded.", "elapsed", elapsed)
		node.setState(Done)
		e.observer.NodeFinished(node.ID, Done, elapsed, nil)

		for _, dependent := range node.Dependents {
			if dependent.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// skipNode marks a node failed without running it, exactly once.
func (e *Executor) skipNode(ctx context.Context, node *Node, cause error) {
	node.skipOnce.Do(func() {
		ctxlog.FromContext(ctx).Warn("Skipping node.", "nodeID", node.ID, "cause", cause)
		node.setState(Failed)
		node.Err = cause
		e.observer.NodeFinished(node.ID, Failed, 0, cause)
		e.wg.Done()
		// A node skipped here may have dependents that were never
		// unlocked. Release them too, or Run waits on them forever.
		e.skipDependents(ctx, node)
	})
}

// skipDependents recursively marks all downstream nodes as failed and
// releases their WaitGroup slots.
func (e *Executor) skipDependents(ctx context.Context, node *Node) {
	for _, dependent := range node.Dependents {
		dependent.skipOnce.Do(func() {
			ctxlog.FromContext(ctx).Warn("Skipping dependent node due to upstream failure.",
				"nodeID", dependent.ID, "dependency", node.ID)
			dependent.setState(Failed)
			dependent.Err = fmt.Errorf("%w due to upstream failure of '%s'", ErrSkipped, node.ID)
			e.observer.NodeFinished(dependent.ID, Failed, 0, dependent.Err)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}
