package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quafel/quafel/internal/ctxlog"
	"github.com/quafel/quafel/internal/dag"
	"github.com/quafel/quafel/internal/pipeline"
	"github.com/quafel/quafel/internal/progress"
	"github.com/quafel/quafel/internal/report"
	"github.com/quafel/quafel/internal/results"
	"github.com/quafel/quafel/internal/runstore"
	"github.com/quafel/quafel/internal/viz"
)

// Run executes the selected pipeline and, when configured, serves the
// reporting API until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	paths := results.Paths{Root: a.config.DataDir}
	store, err := runstore.New()
	if err != nil {
		return err
	}

	var server *report.Server
	if a.config.Serve {
		server = report.NewServer(paths, store, a.logger)
		go func() {
			addr := fmt.Sprintf(":%d", a.config.ReportPort)
			if err := server.Listen(addr); err != nil {
				a.logger.Error("Report server stopped.", "error", err)
			}
		}()
	}

	var runErr error
	if a.experiments != nil {
		runErr = a.runPipeline(ctx, paths, store)
	}

	if a.config.Serve {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-ctx.Done():
		}
		a.logger.Info("Shutting down report server.")
		if err := server.Shutdown(5 * time.Second); err != nil {
			a.logger.Warn("Report server shutdown was not clean.", "error", err)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return runErr
}

func (a *App) runPipeline(ctx context.Context, paths results.Paths, store *runstore.Store) error {
	exp, err := a.experiments.Select(a.config.ExperimentName)
	if err != nil {
		return err
	}
	if exp.Seed == 0 {
		exp.Seed = time.Now().UnixNano()
		a.logger.Info("No seed configured, derived one from the clock.", "seed", exp.Seed)
	}

	selected, err := pipeline.Parse(a.config.Pipeline)
	if err != nil {
		return err
	}

	frameworks, err := a.registry.Resolve(ctx, exp)
	if err != nil {
		return err
	}

	publisher, err := progress.NewPublisher(a.config.DashboardURL, a.logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	builder := &pipeline.Builder{
		Exp:        exp,
		Frameworks: frameworks,
		Paths:      paths,
		Store:      store,
		Version:    viz.NewVersion(time.Now()),
	}
	graph, err := builder.Build(ctx, selected)
	if err != nil {
		return fmt.Errorf("failed to build task graph: %w", err)
	}

	a.logger.Info("Starting benchmark run.",
		"experiment", exp.Name, "pipeline", selected,
		"nodes", len(graph.Nodes), "workers", a.config.WorkerCount)

	observer := pipeline.NewObserver(store, publisher, a.logger)
	start := time.Now()
	runErr := dag.NewExecutor(graph, a.config.WorkerCount, observer).Run(ctx)
	elapsed := time.Since(start)

	state := dag.Done.String()
	if runErr != nil {
		state = dag.Failed.String()
	}
	publisher.RunFinished(exp.Name, state, elapsed, runErr)

	if runErr != nil {
		return runErr
	}
	a.logger.Info("Benchmark run finished.", "experiment", exp.Name, "elapsed", elapsed)
	return nil
}
