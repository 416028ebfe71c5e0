// Package matrix expands an experiment into its evaluation matrix: one
// partition per framework x qubits x depth x shots combination.
package matrix

import (
	"github.com/quafel/quafel/internal/config"
)

// Partition is a single cell of the evaluation matrix, the unit of work for
// the pipeline. Its Seed depends only on the circuit shape, never on the
// framework, so adapters compete on identical circuits.
type Partition struct {
	ID          int
	Framework   string
	Qubits      int
	Depth       int
	Shots       int
	Evaluations int
	Seed        int64
}

// CircuitSeed derives the deterministic per-shape seed used for circuit
// generation and measurement sampling.
func CircuitSeed(base int64, qubits, depth int) int64 {
	return base + int64(qubits)*1_000_003 + int64(depth)*10_007
}

// Expand produces the full evaluation matrix in deterministic order:
// framework outermost, then qubits, depths and shots.
func Expand(exp *config.Experiment) []Partition {
	size := len(exp.Frameworks) * len(exp.Qubits) * len(exp.Depths) * len(exp.Shots)
	partitions := make([]Partition, 0, size)

	id := 0
	for _, fw := range exp.Frameworks {
		for _, q := range exp.Qubits {
			for _, d := range exp.Depths {
				for _, s := range exp.Shots {
					partitions = append(partitions, Partition{
						ID:          id,
						Framework:   fw,
						Qubits:      q,
						Depth:       d,
						Shots:       s,
						Evaluations: exp.Evaluations,
						Seed:        CircuitSeed(exp.Seed, q, d),
					})
					id++
				}
			}
		}
	}

	return partitions
}
