package simulator_test

import (
	"math"
	"testing"

	"github.com/quafel/quafel/internal/circuit"
	"github.com/quafel/quafel/internal/simulator"
	"github.com/stretchr/testify/require"
)

// manual builds a circuit from gates without the generator, for known states.
func manual(qubits int, gates ...circuit.Gate) *circuit.Circuit {
	return &circuit.Circuit{Qubits: qubits, Gates: gates}
}

func TestProbabilities_Hadamard(t *testing.T) {
	t.Parallel()

	c := manual(1, circuit.Gate{Name: "h", Target: 0, Control: -1})
	probs, err := simulator.Probabilities(c)
	require.NoError(t, err)

	require.Len(t, probs, 2)
	require.InDelta(t, 0.5, probs[0], 1e-9)
	require.InDelta(t, 0.5, probs[1], 1e-9)
}

func TestProbabilities_BellState(t *testing.T) {
	t.Parallel()

	c := manual(2,
		circuit.Gate{Name: "h", Target: 0, Control: -1},
		circuit.Gate{Name: "cx", Control: 0, Target: 1},
	)
	probs, err := simulator.Probabilities(c)
	require.NoError(t, err)

	require.InDelta(t, 0.5, probs[0], 1e-9, "|00> amplitude")
	require.InDelta(t, 0.0, probs[1], 1e-9)
	require.InDelta(t, 0.0, probs[2], 1e-9)
	require.InDelta(t, 0.5, probs[3], 1e-9, "|11> amplitude")
}

func TestProbabilities_RotationMatchesAnalytic(t *testing.T) {
	t.Parallel()

	theta := math.Pi / 3
	c := manual(1, circuit.Gate{Name: "ry", Target: 0, Control: -1, Angle: theta})
	probs, err := simulator.Probabilities(c)
	require.NoError(t, err)

	require.InDelta(t, math.Pow(math.Cos(theta/2), 2), probs[0], 1e-9)
	require.InDelta(t, math.Pow(math.Sin(theta/2), 2), probs[1], 1e-9)
}

func TestProbabilities_GeneratedCircuitNormalized(t *testing.T) {
	t.Parallel()

	c := circuit.Generate(31337, 6, 12)
	probs, err := simulator.Probabilities(c)
	require.NoError(t, err)

	sum := 0.0
	for _, p := range probs {
		require.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	require.InDelta(t, 1.0, sum, 1e-9, "unitary evolution must preserve the norm")
}

func TestRun_DeterministicState(t *testing.T) {
	t.Parallel()

	// X on qubit 0 of a 2-qubit register: the only outcome is "01"
	// (qubit 1 leftmost).
	c := manual(2, circuit.Gate{Name: "x", Target: 0, Control: -1})
	counts, err := simulator.Run(c, 500, 1)
	require.NoError(t, err)

	require.Equal(t, map[string]int{"01": 500}, counts)
}

func TestRun_ShotsSumAndSeedStability(t *testing.T) {
	t.Parallel()

	c := manual(1, circuit.Gate{Name: "h", Target: 0, Control: -1})

	counts, err := simulator.Run(c, 1000, 7)
	require.NoError(t, err)

	total := 0
	for _, n := range counts {
		total += n
	}
	require.Equal(t, 1000, total)
	// Fair coin over 1000 shots: both outcomes present.
	require.Contains(t, counts, "0")
	require.Contains(t, counts, "1")

	again, err := simulator.Run(c, 1000, 7)
	require.NoError(t, err)
	require.Equal(t, counts, again, "same seed must reproduce the sample")
}

func TestRun_RejectsBadInput(t *testing.T) {
	t.Parallel()

	c := manual(1, circuit.Gate{Name: "h", Target: 0, Control: -1})
	_, err := simulator.Run(c, 0, 1)
	require.Error(t, err)

	_, err = simulator.Run(&circuit.Circuit{Qubits: simulator.MaxQubits + 1}, 10, 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cap")
}
