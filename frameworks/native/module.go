// Package native benchmarks the in-process statevector simulator.
package native

import (
	"context"
	"fmt"

	"github.com/quafel/quafel/internal/circuit"
	"github.com/quafel/quafel/internal/config"
	"github.com/quafel/quafel/internal/registry"
	"github.com/quafel/quafel/internal/simulator"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

type framework struct{}

func (f *framework) Name() string { return "native" }

// Run parses the QASM document and executes it on the statevector engine.
// Parsing is deliberately inside the timed path: every adapter pays its own
// decode cost, exactly like the out-of-process frameworks do.
func (f *framework) Run(ctx context.Context, qasm string, shots int, seed int64) (map[string]int, error) {
	c, err := circuit.Parse(qasm)
	if err != nil {
		return nil, fmt.Errorf("native adapter rejected circuit: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return simulator.Run(c, shots, seed)
}

// Register registers the adapter factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFramework("native", func(cfg *config.Framework) (registry.Framework, error) {
		return &framework{}, nil
	})
}
