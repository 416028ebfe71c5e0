package circuit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The parser accepts exactly the OpenQASM 2.0 subset the generator emits.
var (
	qregRe     = regexp.MustCompile(`^qreg q\[(\d+)\];$`)
	cregRe     = regexp.MustCompile(`^creg c\[(\d+)\];$`)
	simpleRe   = regexp.MustCompile(`^(h|x|y|z) q\[(\d+)\];$`)
	rotationRe = regexp.MustCompile(`^(rx|ry|rz)\(([-+0-9.eE]+)\) q\[(\d+)\];$`)
	cxRe       = regexp.MustCompile(`^cx q\[(\d+)\],q\[(\d+)\];$`)
)

// Parse reads a QASM document produced by Generate back into a Circuit.
// Anything outside the generator's gate subset is an error: adapters must
// never silently drop operations they cannot honor.
func Parse(qasm string) (*Circuit, error) {
	c := &Circuit{Qubits: -1}
	measured := false

	for lineNo, raw := range strings.Split(qasm, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || line == "OPENQASM 2.0;" || strings.HasPrefix(line, "include ") {
			continue
		}
		if measured {
			return nil, fmt.Errorf("qasm line %d: statement after final measurement", lineNo+1)
		}

		switch {
		case qregRe.MatchString(line):
			n, _ := strconv.Atoi(qregRe.FindStringSubmatch(line)[1])
			if n < 1 {
				return nil, fmt.Errorf("qasm line %d: empty quantum register", lineNo+1)
			}
			c.Qubits = n

		case cregRe.MatchString(line):
			// Classical register size always mirrors the quantum register.

		case line == "measure q -> c;":
			measured = true

		case simpleRe.MatchString(line):
			m := simpleRe.FindStringSubmatch(line)
			target, err := parseQubit(c, m[2], lineNo)
			if err != nil {
				return nil, err
			}
			c.Gates = append(c.Gates, Gate{Name: m[1], Target: target, Control: -1})

		case rotationRe.MatchString(line):
			m := rotationRe.FindStringSubmatch(line)
			angle, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, fmt.Errorf("qasm line %d: bad rotation angle %q: %w", lineNo+1, m[2], err)
			}
			target, err := parseQubit(c, m[3], lineNo)
			if err != nil {
				return nil, err
			}
			c.Gates = append(c.Gates, Gate{Name: m[1], Target: target, Control: -1, Angle: angle})

		case cxRe.MatchString(line):
			m := cxRe.FindStringSubmatch(line)
			control, err := parseQubit(c, m[1], lineNo)
			if err != nil {
				return nil, err
			}
			target, err := parseQubit(c, m[2], lineNo)
			if err != nil {
				return nil, err
			}
			if control == target {
				return nil, fmt.Errorf("qasm line %d: cx control equals target", lineNo+1)
			}
			c.Gates = append(c.Gates, Gate{Name: "cx", Target: target, Control: control})

		default:
			return nil, fmt.Errorf("qasm line %d: unsupported statement %q", lineNo+1, line)
		}
	}

	if c.Qubits < 0 {
		return nil, fmt.Errorf("qasm document declares no quantum register")
	}
	if !measured {
		return nil, fmt.Errorf("qasm document has no final measurement")
	}
	return c, nil
}

func parseQubit(c *Circuit, s string, lineNo int) (int, error) {
	q, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("qasm line %d: bad qubit index %q: %w", lineNo+1, s, err)
	}
	if c.Qubits < 0 {
		return 0, fmt.Errorf("qasm line %d: gate before qreg declaration", lineNo+1)
	}
	if q >= c.Qubits {
		return 0, fmt.Errorf("qasm line %d: qubit index %d out of range for register of %d", lineNo+1, q, c.Qubits)
	}
	return q, nil
}
