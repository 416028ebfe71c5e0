// Package pipeline assembles benchmark runs into executable task graphs.
// A run is split into staged pipelines mirroring the staged data layout:
// pre cleans and expands the matrix, generate writes circuits, simulate
// benchmarks them, combine fans partition outputs in, visualize renders
// the reporting figures.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quafel/quafel/internal/results"
)

// Pipeline selects which stages of a run execute.
type Pipeline string

const (
	Pre       Pipeline = "pre"
	Generate  Pipeline = "generate"
	Simulate  Pipeline = "simulate"
	Combine   Pipeline = "combine"
	Visualize Pipeline = "visualize"
	All       Pipeline = "all"
)

// stageOrder lists the concrete stages in execution order. All is not a
// stage of its own, it selects every entry.
var stageOrder = []Pipeline{Pre, Generate, Simulate, Combine, Visualize}

// Parse validates a pipeline name from the CLI.
func Parse(s string) (Pipeline, error) {
	switch Pipeline(s) {
	case Pre, Generate, Simulate, Combine, Visualize, All:
		return Pipeline(s), nil
	}
	return "", fmt.Errorf("unknown pipeline %q (expected pre, generate, simulate, combine, visualize or all)", s)
}

func stageIndex(p Pipeline) int {
	for i, stage := range stageOrder {
		if stage == p {
			return i
		}
	}
	return -1
}

// stages resolves the selected pipeline into the set of stages to run.
// A stage whose inputs are missing on disk pulls in its upstream stage,
// so e.g. `simulate` on a fresh data directory runs pre and generate
// first. The result is always a contiguous window ending at the selected
// stage.
func stages(p Pipeline, paths results.Paths) map[Pipeline]bool {
	included := make(map[Pipeline]bool)
	if p == All {
		for _, stage := range stageOrder {
			included[stage] = true
		}
		return included
	}

	for i := stageIndex(p); i >= 0; i-- {
		stage := stageOrder[i]
		included[stage] = true
		if stageInputsPresent(stage, paths) {
			break
		}
	}
	return included
}

// stageInputsPresent reports whether the stage can run from what is
// already on disk, without its upstream stage.
func stageInputsPresent(stage Pipeline, paths results.Paths) bool {
	switch stage {
	case Generate:
		return hasFiles(paths.Intermediate(), "partition_*.csv")
	case Simulate:
		return hasFiles(paths.Intermediate(), "partition_*.csv") &&
			hasFiles(paths.Circuits(), "partition_*.qasm")
	case Combine:
		return hasFiles(paths.Durations(), "partition_*.csv")
	case Visualize:
		if _, err := os.Stat(paths.CombinedDurations()); err == nil {
			return true
		}
		return false
	}
	// Pre has no inputs.
	return true
}

func hasFiles(dir, pattern string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	return err == nil && len(matches) > 0
}
