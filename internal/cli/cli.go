package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/quafel/quafel/internal/app"
	"github.com/quafel/quafel/internal/pipeline"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an
// ExitError. Flags override the layered settings from quafel.yaml and
// QUAFEL_* environment variables.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("quafel", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
QUAFEL - quantum framework evaluation.

Benchmarks quantum circuit simulators over a declarative evaluation
matrix and renders the results as reporting figures.

Usage:
  quafel [options] [EXPERIMENT_PATH]

Arguments:
  EXPERIMENT_PATH
    Path to a single .hcl experiment file or a directory containing
    .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	experimentFlag := flagSet.String("experiment", "", "Path to the experiment file or directory.")
	eFlag := flagSet.String("e", "", "Path to the experiment file or directory (shorthand).")
	nameFlag := flagSet.String("name", "", "Name of the experiment to run when the config defines several.")
	pipelineFlag := flagSet.String("pipeline", "all", "Pipeline to run. Options: 'pre', 'generate', 'simulate', 'combine', 'visualize' or 'all'.")
	serveFlag := flagSet.Bool("serve", false, "Serve the reporting API over HTTP.")
	configFlag := flagSet.String("config", "", "Path to the settings file. Defaults to an optional ./quafel.yaml.")
	dataDirFlag := flagSet.String("data-dir", "", "Root of the staged data directories.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent workers for the executor.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	dashboardURLFlag := flagSet.String("dashboard-url", "", "socket.io URL of the progress dashboard. Empty disables the feed.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *experimentFlag != "" {
		path = *experimentFlag
	} else if *eFlag != "" {
		path = *eFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Experiment path determined.", "path", path)

	if path == "" && !*serveFlag {
		slog.Debug("No experiment path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	settings, err := app.LoadSettings(*configFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg := app.Config{
		ExperimentPath: path,
		ExperimentName: *nameFlag,
		Pipeline:       *pipelineFlag,
		Serve:          *serveFlag,
		DataDir:        settings.DataDir,
		WorkerCount:    settings.Workers,
		LogFormat:      settings.LogFormat,
		LogLevel:       settings.LogLevel,
		ReportPort:     settings.ReportPort,
		DashboardURL:   settings.DashboardURL,
	}

	// Flags the user actually set win over the layered settings.
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data-dir":
			cfg.DataDir = *dataDirFlag
		case "workers":
			cfg.WorkerCount = *workersFlag
		case "log-format":
			cfg.LogFormat = *logFormatFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		case "dashboard-url":
			cfg.DashboardURL = *dashboardURLFlag
		}
	})

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if _, err := pipeline.Parse(cfg.Pipeline); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
