// Package baseline measures harness overhead: it decodes the circuit like a
// real adapter but skips simulation, returning the all-zeros outcome.
// Subtracting its durations from another framework's isolates simulation
// cost from pipeline cost.
package baseline

import (
	"context"
	"fmt"
	"strings"

	"github.com/quafel/quafel/internal/circuit"
	"github.com/quafel/quafel/internal/config"
	"github.com/quafel/quafel/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

type framework struct{}

func (f *framework) Name() string { return "baseline" }

func (f *framework) Run(ctx context.Context, qasm string, shots int, seed int64) (map[string]int, error) {
	c, err := circuit.Parse(qasm)
	if err != nil {
		return nil, fmt.Errorf("baseline adapter rejected circuit: %w", err)
	}
	if shots < 1 {
		return nil, fmt.Errorf("shots must be positive, got %d", shots)
	}

	zeros := strings.Repeat("0", c.Qubits)
	return map[string]int{zeros: shots}, nil
}

// Register registers the adapter factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFramework("baseline", func(cfg *config.Framework) (registry.Framework, error) {
		return &framework{}, nil
	})
}
