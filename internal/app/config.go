package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	ExperimentPath string // hcl file or directory
	ExperimentName string // required when the config defines several
	Pipeline       string
	Serve          bool

	DataDir      string
	WorkerCount  int
	LogFormat    string
	LogLevel     string
	ReportPort   int
	DashboardURL string
}

// NewConfig validates a Config. An experiment path is required unless the
// process only serves an existing data directory.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ExperimentPath == "" && !cfg.Serve {
		return nil, errors.New("an experiment path is required unless -serve is set")
	}
	if cfg.WorkerCount < 1 {
		return nil, errors.New("workers must be at least 1")
	}
	return &cfg, nil
}
