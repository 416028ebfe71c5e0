// Package circuit generates the deterministic pseudo-random benchmark
// circuits and renders them as OpenQASM 2.0, the interchange format every
// framework adapter consumes.
package circuit

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// singleQubitGates is the draw pool for each layer. Rotation gates get a
// uniform angle in [0, 2pi).
var singleQubitGates = []string{"h", "x", "y", "z", "rx", "ry", "rz"}

// Gate is one operation of a circuit. Control is -1 for single-qubit gates;
// Angle is meaningful only for rx/ry/rz.
type Gate struct {
	Name    string
	Target  int
	Control int
	Angle   float64
}

// Circuit is a generated benchmark circuit over a fixed qubit register.
type Circuit struct {
	Qubits int
	Gates  []Gate
}

// Generate builds the benchmark circuit for the given shape. The same
// (seed, qubits, depth) triple always yields an identical circuit.
func Generate(seed int64, qubits, depth int) *Circuit {
	rng := rand.New(rand.NewSource(seed))
	c := &Circuit{Qubits: qubits}

	for layer := 0; layer < depth; layer++ {
		for q := 0; q < qubits; q++ {
			name := singleQubitGates[rng.Intn(len(singleQubitGates))]
			gate := Gate{Name: name, Target: q, Control: -1}
			if isRotation(name) {
				gate.Angle = rng.Float64() * 2 * math.Pi
			}
			c.Gates = append(c.Gates, gate)
		}
		if qubits >= 2 {
			control := rng.Intn(qubits - 1)
			c.Gates = append(c.Gates, Gate{Name: "cx", Target: control + 1, Control: control})
		}
	}

	return c
}

func isRotation(name string) bool {
	return name == "rx" || name == "ry" || name == "rz"
}

// QASM renders the circuit as OpenQASM 2.0 with a trailing full-register
// measurement. The rendering is byte-stable for a given circuit.
func (c *Circuit) QASM() string {
	var b strings.Builder
	fmt.Fprintf(&b, "OPENQASM 2.0;\n")
	fmt.Fprintf(&b, "include \"qelib1.inc\";\n")
	fmt.Fprintf(&b, "qreg q[%d];\n", c.Qubits)
	fmt.Fprintf(&b, "creg c[%d];\n", c.Qubits)

	for _, g := range c.Gates {
		switch {
		case g.Name == "cx":
			fmt.Fprintf(&b, "cx q[%d],q[%d];\n", g.Control, g.Target)
		case isRotation(g.Name):
			fmt.Fprintf(&b, "%s(%.12f) q[%d];\n", g.Name, g.Angle, g.Target)
		default:
			fmt.Fprintf(&b, "%s q[%d];\n", g.Name, g.Target)
		}
	}

	fmt.Fprintf(&b, "measure q -> c;\n")
	return b.String()
}
