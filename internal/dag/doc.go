// Package dag provides the dependency graph and the concurrent worker-pool
// executor that drives a benchmark run: matrix partitions fan out into
// generation and simulation nodes, then fan back in for combination and
// reporting.
package dag
