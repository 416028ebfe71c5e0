// Package simulator is the in-process statevector engine behind the native
// framework adapter. It executes the generator's QASM gate subset exactly
// and samples measurement outcomes from the final amplitude distribution.
package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/quafel/quafel/internal/circuit"
)

// MaxQubits caps the register size; a 24-qubit state already holds 2^24
// complex amplitudes (256 MiB).
const MaxQubits = 24

type gateMatrix [2][2]complex128

// Run executes the circuit and samples `shots` measurement outcomes with
// the given seed. Keys of the returned counts are bitstrings with qubit
// n-1 leftmost, the convention the reporting layer expects.
func Run(c *circuit.Circuit, shots int, seed int64) (map[string]int, error) {
	if shots < 1 {
		return nil, fmt.Errorf("shots must be positive, got %d", shots)
	}

	probs, err := Probabilities(c)
	if err != nil {
		return nil, err
	}

	cumulative := make([]float64, len(probs))
	sum := 0.0
	for i, p := range probs {
		sum += p
		cumulative[i] = sum
	}

	rng := rand.New(rand.NewSource(seed))
	counts := make(map[string]int)
	for i := 0; i < shots; i++ {
		r := rng.Float64() * sum
		idx := sort.SearchFloat64s(cumulative, r)
		if idx == len(cumulative) {
			idx = len(cumulative) - 1
		}
		counts[Bitstring(idx, c.Qubits)]++
	}

	return counts, nil
}

// Probabilities executes the circuit and returns the exact measurement
// distribution over all 2^n basis states.
func Probabilities(c *circuit.Circuit) ([]float64, error) {
	state, err := evolve(c)
	if err != nil {
		return nil, err
	}

	probs := make([]float64, len(state))
	for i, amp := range state {
		re, im := real(amp), imag(amp)
		probs[i] = re*re + im*im
	}
	return probs, nil
}

// Bitstring renders a basis-state index for an n-qubit register, qubit n-1
// leftmost.
func Bitstring(index, qubits int) string {
	return fmt.Sprintf("%0*b", qubits, index)
}

// evolve applies every gate of the circuit to the |0...0> state.
func evolve(c *circuit.Circuit) ([]complex128, error) {
	if c.Qubits < 1 {
		return nil, fmt.Errorf("circuit has no qubits")
	}
	if c.Qubits > MaxQubits {
		return nil, fmt.Errorf("circuit has %d qubits, exceeding the simulator cap of %d", c.Qubits, MaxQubits)
	}

	state := make([]complex128, 1<<uint(c.Qubits))
	state[0] = 1

	for _, g := range c.Gates {
		if g.Name == "cx" {
			applyCX(state, g.Control, g.Target)
			continue
		}
		m, err := matrixFor(g)
		if err != nil {
			return nil, err
		}
		applySingle(state, g.Target, m)
	}

	return state, nil
}

// applySingle applies a 2x2 unitary to the target qubit, walking every
// amplitude pair that differs only in the target bit.
func applySingle(state []complex128, target int, m gateMatrix) {
	bit := 1 << uint(target)
	for i := range state {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		a, b := state[i], state[j]
		state[i] = m[0][0]*a + m[0][1]*b
		state[j] = m[1][0]*a + m[1][1]*b
	}
}

// applyCX flips the target bit of every amplitude whose control bit is set.
func applyCX(state []complex128, control, target int) {
	controlBit := 1 << uint(control)
	targetBit := 1 << uint(target)
	for i := range state {
		if i&controlBit == 0 || i&targetBit != 0 {
			continue
		}
		j := i | targetBit
		state[i], state[j] = state[j], state[i]
	}
}

func matrixFor(g circuit.Gate) (gateMatrix, error) {
	invSqrt2 := complex(1/math.Sqrt2, 0)
	half := g.Angle / 2
	cos := complex(math.Cos(half), 0)

	switch g.Name {
	case "h":
		return gateMatrix{{invSqrt2, invSqrt2}, {invSqrt2, -invSqrt2}}, nil
	case "x":
		return gateMatrix{{0, 1}, {1, 0}}, nil
	case "y":
		return gateMatrix{{0, complex(0, -1)}, {complex(0, 1), 0}}, nil
	case "z":
		return gateMatrix{{1, 0}, {0, -1}}, nil
	case "rx":
		isin := complex(0, -math.Sin(half))
		return gateMatrix{{cos, isin}, {isin, cos}}, nil
	case "ry":
		sin := complex(math.Sin(half), 0)
		return gateMatrix{{cos, -sin}, {sin, cos}}, nil
	case "rz":
		return gateMatrix{
			{complex(math.Cos(half), -math.Sin(half)), 0},
			{0, complex(math.Cos(half), math.Sin(half))},
		}, nil
	default:
		return gateMatrix{}, fmt.Errorf("unsupported gate %q", g.Name)
	}
}
