package config_test

import (
	"testing"

	"github.com/quafel/quafel/internal/config"
	"github.com/quafel/quafel/internal/testutil"
	"github.com/stretchr/testify/require"
)

func loadFromString(t *testing.T, hcl string) (*config.Set, error) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"experiment.hcl": hcl})
	ctx, _ := testutil.Context(t)
	return config.Load(ctx, dir)
}

func TestLoad_RangesExpandInclusive(t *testing.T) {
	t.Parallel()

	set, err := loadFromString(t, `
		experiment "scaling" {
			seed        = 42
			evaluations = 3
			frameworks  = ["native"]

			qubits {
				min = 1
				max = 5
			}
			depths {
				min       = 1
				max       = 10
				increment = 3
			}
			shots {
				min       = 128
				max       = 1024
				increment = 256
			}
		}
	`)
	require.NoError(t, err)

	exp, err := set.Select("scaling")
	require.NoError(t, err)

	require.Equal(t, int64(42), exp.Seed)
	require.Equal(t, 3, exp.Evaluations)
	require.Equal(t, []int{1, 2, 3, 4, 5}, exp.Qubits)
	require.Equal(t, []int{1, 4, 7, 10}, exp.Depths)
	require.Equal(t, []int{128, 384, 640, 896}, exp.Shots)
}

func TestLoad_ExplicitValuesAndDefaults(t *testing.T) {
	t.Parallel()

	set, err := loadFromString(t, `
		experiment "explicit" {
			frameworks = ["native", "baseline"]

			qubits {
				values = [2, 4, 8]
			}
			depths {
				values = [5]
			}
			shots {
				values = [1024]
			}
		}
	`)
	require.NoError(t, err)

	exp, err := set.Select("")
	require.NoError(t, err)

	require.Equal(t, int64(0), exp.Seed)
	require.Equal(t, 1, exp.Evaluations, "evaluations should default to 1")
	require.Equal(t, []int{2, 4, 8}, exp.Qubits)
}

func TestLoad_FrameworkSettingsBlock(t *testing.T) {
	t.Parallel()

	set, err := loadFromString(t, `
		experiment "remote" {
			frameworks = ["native", "qiskit"]

			framework "qiskit" {
				endpoint = "http://localhost:8000"
				options = {
					timeout = "45s"
				}
			}

			qubits { values = [2] }
			depths { values = [2] }
			shots  { values = [100] }
		}
	`)
	require.NoError(t, err)

	exp, err := set.Select("remote")
	require.NoError(t, err)

	fw := exp.Setting("qiskit")
	require.Equal(t, "http://localhost:8000", fw.Endpoint)
	require.Equal(t, "45s", fw.Options["timeout"])

	// A listed framework without a block still resolves to empty settings.
	native := exp.Setting("native")
	require.Equal(t, "native", native.Name)
	require.Empty(t, native.Endpoint)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		hcl     string
		wantErr string
	}{
		{
			name: "min exceeds max",
			hcl: `
				experiment "bad" {
					frameworks = ["native"]
					qubits {
						min = 5
						max = 1
					}
					depths { values = [1] }
					shots  { values = [1] }
				}
			`,
			wantErr: "min 5 exceeds max 1",
		},
		{
			name: "values mixed with range",
			hcl: `
				experiment "bad" {
					frameworks = ["native"]
					qubits {
						min    = 1
						values = [1, 2]
					}
					depths { values = [1] }
					shots  { values = [1] }
				}
			`,
			wantErr: "values cannot be combined",
		},
		{
			name: "missing range block",
			hcl: `
				experiment "bad" {
					frameworks = ["native"]
					depths { values = [1] }
					shots  { values = [1] }
				}
			`,
			wantErr: "missing required qubits block",
		},
		{
			name: "empty frameworks",
			hcl: `
				experiment "bad" {
					frameworks = []
					qubits { values = [1] }
					depths { values = [1] }
					shots  { values = [1] }
				}
			`,
			wantErr: "frameworks list must not be empty",
		},
		{
			name: "orphan framework block",
			hcl: `
				experiment "bad" {
					frameworks = ["native"]
					framework "cirq" {}
					qubits { values = [1] }
					depths { values = [1] }
					shots  { values = [1] }
				}
			`,
			wantErr: "no matching entry",
		},
		{
			name: "zero evaluations",
			hcl: `
				experiment "bad" {
					frameworks  = ["native"]
					evaluations = 0
					qubits { values = [1] }
					depths { values = [1] }
					shots  { values = [1] }
				}
			`,
			wantErr: "evaluations must be at least 1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := loadFromString(t, tc.hcl)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_DuplicateExperimentNameAcrossFiles(t *testing.T) {
	t.Parallel()

	exp := `
		experiment "dup" {
			frameworks = ["native"]
			qubits { values = [1] }
			depths { values = [1] }
			shots  { values = [1] }
		}
	`
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"a.hcl": exp,
		"b.hcl": exp,
	})
	ctx, _ := testutil.Context(t)

	_, err := config.Load(ctx, dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate experiment name")
}

func TestSelect_RequiresNameWhenAmbiguous(t *testing.T) {
	t.Parallel()

	set, err := loadFromString(t, `
		experiment "a" {
			frameworks = ["native"]
			qubits { values = [1] }
			depths { values = [1] }
			shots  { values = [1] }
		}
		experiment "b" {
			frameworks = ["native"]
			qubits { values = [1] }
			depths { values = [1] }
			shots  { values = [1] }
		}
	`)
	require.NoError(t, err)

	_, err = set.Select("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "select one with -name")

	_, err = set.Select("missing")
	require.Error(t, err)
}

func TestLoad_EnvInterpolation(t *testing.T) {
	t.Setenv("QUAFEL_TEST_ENDPOINT", "http://sim.example:9000")

	set, err := loadFromString(t, `
		experiment "remote" {
			frameworks = ["remote"]
			qubits { values = [1] }
			depths { values = [1] }
			shots  { values = [100] }

			framework "remote" {
				endpoint = env.QUAFEL_TEST_ENDPOINT
			}
		}
	`)
	require.NoError(t, err)

	exp, err := set.Select("remote")
	require.NoError(t, err)
	require.Equal(t, "http://sim.example:9000", exp.Setting("remote").Endpoint)
}
