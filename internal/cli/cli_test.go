package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_NoArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer

	cfg, shouldExit, err := Parse(nil, &out)
	require.NoError(t, err)
	require.True(t, shouldExit)
	require.Nil(t, cfg)
	require.Contains(t, out.String(), "Usage:")
}

func TestParse_PositionalExperimentPath(t *testing.T) {
	var out bytes.Buffer

	cfg, shouldExit, err := Parse([]string{"experiments/scaling.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, shouldExit)
	require.Equal(t, "experiments/scaling.hcl", cfg.ExperimentPath)
	require.Equal(t, "all", cfg.Pipeline)
	require.Equal(t, 10, cfg.WorkerCount)
}

func TestParse_FlagsOverrideSettings(t *testing.T) {
	var out bytes.Buffer

	cfg, _, err := Parse([]string{
		"-e", "exp.hcl",
		"-name", "scaling",
		"-pipeline", "simulate",
		"-workers", "3",
		"-log-format", "text",
		"-data-dir", "/tmp/quafel-data",
		"-dashboard-url", "http://localhost:3000",
	}, &out)
	require.NoError(t, err)
	require.Equal(t, "exp.hcl", cfg.ExperimentPath)
	require.Equal(t, "scaling", cfg.ExperimentName)
	require.Equal(t, "simulate", cfg.Pipeline)
	require.Equal(t, 3, cfg.WorkerCount)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, "/tmp/quafel-data", cfg.DataDir)
	require.Equal(t, "http://localhost:3000", cfg.DashboardURL)
}

func TestParse_ServeWithoutExperimentPath(t *testing.T) {
	var out bytes.Buffer

	cfg, shouldExit, err := Parse([]string{"-serve"}, &out)
	require.NoError(t, err)
	require.False(t, shouldExit)
	require.True(t, cfg.Serve)
	require.Empty(t, cfg.ExperimentPath)
}

func TestParse_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"pipeline", []string{"-pipeline", "report", "exp.hcl"}, "unknown pipeline"},
		{"log-format", []string{"-log-format", "xml", "exp.hcl"}, "invalid log-format"},
		{"log-level", []string{"-log-level", "verbose", "exp.hcl"}, "invalid log-level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			_, _, err := Parse(tc.args, &out)
			require.Error(t, err)

			exitErr, ok := err.(*ExitError)
			require.True(t, ok)
			require.Equal(t, 2, exitErr.Code)
			require.Contains(t, exitErr.Message, tc.want)
		})
	}
}
