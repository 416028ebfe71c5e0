package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/quafel/quafel/internal/circuit"
	"github.com/quafel/quafel/internal/config"
	"github.com/quafel/quafel/internal/ctxlog"
	"github.com/quafel/quafel/internal/dag"
	"github.com/quafel/quafel/internal/matrix"
	"github.com/quafel/quafel/internal/registry"
	"github.com/quafel/quafel/internal/results"
	"github.com/quafel/quafel/internal/runstore"
	"github.com/quafel/quafel/internal/viz"
)

// Builder assembles the task graph of one run.
type Builder struct {
	Exp        *config.Experiment
	Frameworks map[string]registry.Framework
	Paths      results.Paths
	Store      *runstore.Store
	Version    string
}

// Build constructs the DAG for the selected pipeline. Stages whose
// inputs are missing pull in their upstream stages, see stages().
func (b *Builder) Build(ctx context.Context, p Pipeline) (*dag.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	if err := b.Paths.EnsureAll(); err != nil {
		return nil, err
	}

	included := stages(p, b.Paths)
	logger.Debug("Resolved pipeline stages.", "pipeline", p, "stages", len(included))

	partitions, err := b.partitions(included)
	if err != nil {
		return nil, err
	}

	graph := dag.NewGraph()

	if included[Pre] {
		if err := b.addNode(graph, "pre", "pre", "", -1, b.preRun(partitions)); err != nil {
			return nil, err
		}
	}

	if included[Generate] {
		for _, part := range partitions {
			part := part
			id := fmt.Sprintf("generate.%d", part.ID)
			if err := b.addNode(graph, id, "generate", "", part.ID, b.generateRun(part)); err != nil {
				return nil, err
			}
			if included[Pre] {
				if err := graph.AddEdge("pre", id); err != nil {
					return nil, err
				}
			}
		}
	}

	var simulateIDs []string
	if included[Simulate] {
		for _, part := range partitions {
			part := part
			id := fmt.Sprintf("simulate.%s.%d", part.Framework, part.ID)
			if err := b.addNode(graph, id, "simulate", part.Framework, part.ID, b.simulateRun(part)); err != nil {
				return nil, err
			}
			simulateIDs = append(simulateIDs, id)
			if included[Generate] {
				if err := graph.AddEdge(fmt.Sprintf("generate.%d", part.ID), id); err != nil {
					return nil, err
				}
			}
		}
	}

	combineIDs := []string{"combine.durations", "combine.results"}
	if included[Combine] {
		runs := map[string]func(context.Context) error{
			"combine.durations": func(ctx context.Context) error {
				return results.CombineDurations(b.Paths.Durations(), b.Paths.CombinedDurations())
			},
			"combine.results": func(ctx context.Context) error {
				return results.CombineResults(b.Paths.Results(), b.Paths.CombinedResults())
			},
		}
		for _, id := range combineIDs {
			if err := b.addNode(graph, id, "combine", "", -1, runs[id]); err != nil {
				return nil, err
			}
			for _, simID := range simulateIDs {
				if err := graph.AddEdge(simID, id); err != nil {
					return nil, err
				}
			}
		}
	}

	if included[Visualize] {
		source := &durationSource{path: b.Paths.CombinedDurations()}
		for _, fig := range b.figures(source) {
			fig := fig
			id := "figure." + fig.name
			if err := b.addNode(graph, id, "figure", "", -1, fig.run); err != nil {
				return nil, err
			}
			if included[Combine] {
				if err := graph.AddEdge("combine.durations", id); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := graph.DetectCycles(); err != nil {
		return nil, err
	}
	return graph, nil
}

// partitions returns the matrix rows the graph is built over. When pre
// runs it re-expands the experiment; otherwise the rows written by a
// previous run are loaded from disk.
func (b *Builder) partitions(included map[Pipeline]bool) ([]matrix.Partition, error) {
	if !included[Pre] && !included[Generate] && !included[Simulate] {
		return nil, nil
	}
	if included[Pre] {
		return matrix.Expand(b.Exp), nil
	}
	parts, err := matrix.ReadPartitions(b.Paths.Intermediate())
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no partitions found in %s, run the pre pipeline first", b.Paths.Intermediate())
	}
	return parts, nil
}

func (b *Builder) addNode(graph *dag.Graph, id, kind, framework string, partition int, run func(context.Context) error) error {
	if _, err := graph.AddNode(id, run); err != nil {
		return err
	}
	if b.Store == nil {
		return nil
	}
	return b.Store.Insert(runstore.Task{
		ID:        id,
		Kind:      kind,
		Framework: framework,
		Partition: partition,
		State:     dag.Pending.String(),
	})
}

func (b *Builder) preRun(partitions []matrix.Partition) func(context.Context) error {
	return func(ctx context.Context) error {
		logger := ctxlog.FromContext(ctx)
		if err := b.Paths.CleanUnversioned(); err != nil {
			return err
		}
		if err := matrix.WritePartitions(b.Paths.Intermediate(), partitions); err != nil {
			return err
		}
		logger.Info("Matrix expanded.", "experiment", b.Exp.Name, "partitions", len(partitions))
		return nil
	}
}

func (b *Builder) circuitPath(id int) string {
	return filepath.Join(b.Paths.Circuits(), fmt.Sprintf("partition_%d.qasm", id))
}

func (b *Builder) generateRun(part matrix.Partition) func(context.Context) error {
	return func(ctx context.Context) error {
		c := circuit.Generate(part.Seed, part.Qubits, part.Depth)
		path := b.circuitPath(part.ID)
		if err := os.WriteFile(path, []byte(c.QASM()), 0o644); err != nil {
			return fmt.Errorf("writing circuit for partition %d: %w", part.ID, err)
		}
		ctxlog.FromContext(ctx).Debug("Circuit generated.",
			"partition", part.ID, "qubits", part.Qubits, "depth", part.Depth)
		return nil
	}
}

func (b *Builder) simulateRun(part matrix.Partition) func(context.Context) error {
	return func(ctx context.Context) error {
		logger := ctxlog.FromContext(ctx)

		fw, ok := b.Frameworks[part.Framework]
		if !ok {
			return fmt.Errorf("framework %q not resolved for partition %d", part.Framework, part.ID)
		}

		qasm, err := os.ReadFile(b.circuitPath(part.ID))
		if err != nil {
			return fmt.Errorf("reading circuit for partition %d: %w", part.ID, err)
		}

		durations := make([]results.DurationRow, 0, part.Evaluations)
		var counts map[string]int
		for eval := 0; eval < part.Evaluations; eval++ {
			start := time.Now()
			counts, err = fw.Run(ctx, string(qasm), part.Shots, part.Seed+int64(eval))
			elapsed := time.Since(start)
			if err != nil {
				return fmt.Errorf("framework %q failed on partition %d: %w", part.Framework, part.ID, err)
			}
			durations = append(durations, results.DurationRow{
				Framework:  part.Framework,
				Qubits:     part.Qubits,
				Depth:      part.Depth,
				Shots:      part.Shots,
				Evaluation: eval,
				Duration:   elapsed,
			})
		}

		fileName := matrix.FileName(part.ID)
		if err := results.WriteDurations(filepath.Join(b.Paths.Durations(), fileName), durations); err != nil {
			return err
		}
		if err := results.WriteResults(filepath.Join(b.Paths.Results(), fileName), resultRows(part, counts)); err != nil {
			return err
		}

		logger.Debug("Partition benchmarked.",
			"partition", part.ID, "framework", part.Framework, "evaluations", part.Evaluations)
		return nil
	}
}

// resultRows converts the final evaluation's measurement distribution
// into sorted dataset rows.
func resultRows(part matrix.Partition, counts map[string]int) []results.ResultRow {
	bitstrings := make([]string, 0, len(counts))
	for bits := range counts {
		bitstrings = append(bitstrings, bits)
	}
	sort.Strings(bitstrings)

	rows := make([]results.ResultRow, 0, len(bitstrings))
	for _, bits := range bitstrings {
		rows = append(rows, results.ResultRow{
			Framework: part.Framework,
			Qubits:    part.Qubits,
			Depth:     part.Depth,
			Shots:     part.Shots,
			Bitstring: bits,
			Count:     counts[bits],
		})
	}
	return rows
}

// durationSource loads the combined duration dataset once and shares it
// across all figure nodes of a run.
type durationSource struct {
	path string
	once sync.Once
	rows []results.DurationRow
	err  error
}

func (s *durationSource) load() ([]results.DurationRow, error) {
	s.once.Do(func() {
		s.rows, s.err = results.ReadDurations(s.path)
	})
	return s.rows, s.err
}

type figureSpec struct {
	name string
	run  func(context.Context) error
}

// figures enumerates every reporting figure of the experiment, following
// the established name grammar: per-framework views at fixed qubits and
// fixed depth, plus cross-framework views at fixed axis pairs.
func (b *Builder) figures(source *durationSource) []figureSpec {
	var specs []figureSpec

	add := func(name string, build func(rows []results.DurationRow) *viz.Figure) {
		specs = append(specs, figureSpec{
			name: name,
			run: func(ctx context.Context) error {
				rows, err := source.load()
				if err != nil {
					return err
				}
				if err := viz.WriteVersioned(b.Paths.Reporting(), name, b.Version, build(rows)); err != nil {
					return err
				}
				ctxlog.FromContext(ctx).Debug("Figure written.", "figure", name, "version", b.Version)
				return nil
			},
		})
	}

	for _, fw := range b.Exp.Frameworks {
		fw := fw
		for _, q := range b.Exp.Qubits {
			q := q
			add(fmt.Sprintf("framework_%s_qubits_%d", fw, q), func(rows []results.DurationRow) *viz.Figure {
				return viz.FrameworkQubits(rows, fw, q)
			})
		}
		for _, d := range b.Exp.Depths {
			d := d
			add(fmt.Sprintf("framework_%s_depth_%d", fw, d), func(rows []results.DurationRow) *viz.Figure {
				return viz.FrameworkDepth(rows, fw, d)
			})
		}
	}
	for _, s := range b.Exp.Shots {
		s := s
		for _, d := range b.Exp.Depths {
			d := d
			add(fmt.Sprintf("shots_%d_depth_%d", s, d), func(rows []results.DurationRow) *viz.Figure {
				return viz.ShotsDepth(rows, s, d)
			})
		}
		for _, q := range b.Exp.Qubits {
			q := q
			add(fmt.Sprintf("shots_%d_qubits_%d", s, q), func(rows []results.DurationRow) *viz.Figure {
				return viz.ShotsQubits(rows, s, q)
			})
		}
	}
	for _, q := range b.Exp.Qubits {
		q := q
		for _, d := range b.Exp.Depths {
			d := d
			add(fmt.Sprintf("qubits_%d_depth_%d", q, d), func(rows []results.DurationRow) *viz.Figure {
				return viz.QubitsDepth(rows, q, d)
			})
		}
	}

	return specs
}
