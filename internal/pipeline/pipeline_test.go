package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quafel/quafel/frameworks/baseline"
	"github.com/quafel/quafel/frameworks/native"
	"github.com/quafel/quafel/internal/config"
	"github.com/quafel/quafel/internal/dag"
	"github.com/quafel/quafel/internal/matrix"
	"github.com/quafel/quafel/internal/registry"
	"github.com/quafel/quafel/internal/results"
	"github.com/quafel/quafel/internal/runstore"
	"github.com/quafel/quafel/internal/testutil"
	"github.com/quafel/quafel/internal/viz"
)

func TestParse(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"pre", "generate", "simulate", "combine", "visualize", "all"} {
		p, err := Parse(name)
		require.NoError(t, err)
		require.Equal(t, Pipeline(name), p)
	}

	_, err := Parse("report")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown pipeline")
}

func TestStages_ImplyUpstreamOnFreshDataDir(t *testing.T) {
	t.Parallel()

	paths := results.Paths{Root: t.TempDir()}

	included := stages(Simulate, paths)
	require.Equal(t, map[Pipeline]bool{Pre: true, Generate: true, Simulate: true}, included)

	included = stages(Visualize, paths)
	require.Len(t, included, 5)
}

func TestStages_StopAtPresentInputs(t *testing.T) {
	t.Parallel()

	paths := results.Paths{Root: t.TempDir()}
	require.NoError(t, paths.EnsureAll())
	testutil.WriteFiles(t, paths.Durations(), map[string]string{
		"partition_0.csv": "framework,qubits,depth,shots,evaluation,duration_ns\n",
	})

	included := stages(Combine, paths)
	require.Equal(t, map[Pipeline]bool{Combine: true}, included)
}

func scalingExperiment() *config.Experiment {
	return &config.Experiment{
		Name:        "scaling",
		Seed:        99,
		Evaluations: 2,
		Frameworks:  []string{"native", "baseline"},
		Qubits:      []int{1, 2},
		Depths:      []int{1, 2},
		Shots:       []int{100},
	}
}

func resolveFrameworks(t *testing.T, exp *config.Experiment) map[string]registry.Framework {
	t.Helper()

	ctx, _ := testutil.Context(t)
	r := registry.New()
	(&native.Module{}).Register(r)
	(&baseline.Module{}).Register(r)

	frameworks, err := r.Resolve(ctx, exp)
	require.NoError(t, err)
	return frameworks
}

func TestBuild_FullRunProducesAllStagedOutputs(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	exp := scalingExperiment()
	store, err := runstore.New()
	require.NoError(t, err)

	builder := &Builder{
		Exp:        exp,
		Frameworks: resolveFrameworks(t, exp),
		Paths:      results.Paths{Root: t.TempDir()},
		Store:      store,
		Version:    viz.NewVersion(time.Now()),
	}

	graph, err := builder.Build(ctx, All)
	require.NoError(t, err)
	require.NoError(t, dag.NewExecutor(graph, 4, NewObserver(store, nil, testutil.Logger(t))).Run(ctx))

	// 2 frameworks x 2 qubits x 2 depths x 1 shots value.
	const partitions = 8

	for _, dir := range []string{
		builder.Paths.Intermediate(),
		builder.Paths.Results(),
		builder.Paths.Durations(),
	} {
		matches, err := filepath.Glob(filepath.Join(dir, "partition_*.csv"))
		require.NoError(t, err)
		require.Len(t, matches, partitions, dir)
	}
	circuits, err := filepath.Glob(filepath.Join(builder.Paths.Circuits(), "partition_*.qasm"))
	require.NoError(t, err)
	require.Len(t, circuits, partitions)

	durations, err := results.ReadDurations(builder.Paths.CombinedDurations())
	require.NoError(t, err)
	require.Len(t, durations, partitions*exp.Evaluations)

	resultRows, err := results.ReadResults(builder.Paths.CombinedResults())
	require.NoError(t, err)
	require.NotEmpty(t, resultRows)

	// Every framework benchmarks the same circuits, so both contribute
	// the same (qubits, depth, shots) cells.
	figures, err := viz.ListFigures(builder.Paths.Reporting())
	require.NoError(t, err)
	require.Len(t, figures, 16)
	for _, fig := range figures {
		require.Equal(t, builder.Version, fig.LatestVersion)
	}

	fig, err := viz.ReadFigure(builder.Paths.Reporting(), "shots_100_depth_1", builder.Version)
	require.NoError(t, err)
	require.Equal(t, []string{"baseline", "native"}, fig.Data[0].X)

	tasks, err := store.List()
	require.NoError(t, err)
	for _, task := range tasks {
		require.Equal(t, dag.Done.String(), task.State, task.ID)
	}
}

func TestBuild_GenerateFromExistingPartitions(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	exp := scalingExperiment()
	paths := results.Paths{Root: t.TempDir()}
	require.NoError(t, paths.EnsureAll())
	require.NoError(t, matrix.WritePartitions(paths.Intermediate(), matrix.Expand(exp)))

	builder := &Builder{Exp: exp, Frameworks: resolveFrameworks(t, exp), Paths: paths}
	graph, err := builder.Build(ctx, Generate)
	require.NoError(t, err)

	// Partitions already exist, so pre is not implied and generate
	// nodes are the roots.
	require.NotContains(t, graph.Nodes, "pre")
	require.Contains(t, graph.Nodes, "generate.0")

	require.NoError(t, dag.NewExecutor(graph, 2, nil).Run(ctx))
	circuits, err := filepath.Glob(filepath.Join(paths.Circuits(), "partition_*.qasm"))
	require.NoError(t, err)
	require.Len(t, circuits, 8)
}

func TestBuild_FailedFrameworkSkipsDownstream(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	exp := &config.Experiment{
		Name:        "failing",
		Seed:        7,
		Evaluations: 1,
		Frameworks:  []string{"native", "broken"},
		Qubits:      []int{1},
		Depths:      []int{1},
		Shots:       []int{50},
	}

	r := registry.New()
	(&native.Module{}).Register(r)
	r.RegisterFramework("broken", func(cfg *config.Framework) (registry.Framework, error) {
		return brokenFramework{}, nil
	})
	frameworks, err := r.Resolve(ctx, exp)
	require.NoError(t, err)

	store, err := runstore.New()
	require.NoError(t, err)
	builder := &Builder{
		Exp:        exp,
		Frameworks: frameworks,
		Paths:      results.Paths{Root: t.TempDir()},
		Store:      store,
		Version:    viz.NewVersion(time.Now()),
	}

	graph, err := builder.Build(ctx, All)
	require.NoError(t, err)

	err = dag.NewExecutor(graph, 2, NewObserver(store, nil, testutil.Logger(t))).Run(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "deliberately broken")

	failed, lookupErr := store.ListByState(dag.Failed.String())
	require.NoError(t, lookupErr)
	require.NotEmpty(t, failed)
}

type brokenFramework struct{}

func (brokenFramework) Name() string { return "broken" }

func (brokenFramework) Run(ctx context.Context, qasm string, shots int, seed int64) (map[string]int, error) {
	return nil, fmt.Errorf("deliberately broken adapter")
}

func TestBuild_PreWritesPartitions(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	exp := scalingExperiment()
	paths := results.Paths{Root: t.TempDir()}

	builder := &Builder{Exp: exp, Frameworks: resolveFrameworks(t, exp), Paths: paths}
	graph, err := builder.Build(ctx, Pre)
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 1)

	require.NoError(t, dag.NewExecutor(graph, 1, nil).Run(ctx))
	parts, err := matrix.ReadPartitions(paths.Intermediate())
	require.NoError(t, err)
	require.Len(t, parts, 8)
}
