package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/quafel/quafel/internal/config"
	"github.com/quafel/quafel/internal/ctxlog"
)

// Framework is the adapter contract every benchmark target implements.
type Framework interface {
	// Name reports the adapter's registry name.
	Name() string
	// Run executes the QASM circuit with the given shot count and returns
	// measurement counts keyed by bitstring.
	Run(ctx context.Context, qasm string, shots int, seed int64) (map[string]int, error)
}

// Factory builds an adapter instance from its experiment settings.
type Factory func(cfg *config.Framework) (Framework, error)

// Module is the interface all adapter packages implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry maps framework names to adapter factories for one application
// instance.
type Registry struct {
	factories map[string]Factory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// RegisterFramework registers an adapter factory under a name. Registering
// the same name twice is a programmer error.
func (r *Registry) RegisterFramework(name string, factory Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("framework adapter %q already registered", name))
	}
	r.factories[name] = factory
}

// Validate checks that every framework the experiment names resolves to a
// registered adapter. It reports all missing adapters at once.
func (r *Registry) Validate(ctx context.Context, exp *config.Experiment) error {
	logger := ctxlog.FromContext(ctx)

	var missing []string
	for _, name := range exp.Frameworks {
		if _, ok := r.factories[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("experiment %q names unregistered frameworks: %s", exp.Name, strings.Join(missing, ", "))
	}

	logger.Debug("Framework registry validation passed.", "frameworks", exp.Frameworks)
	return nil
}

// Resolve instantiates one adapter per framework the experiment names.
func (r *Registry) Resolve(ctx context.Context, exp *config.Experiment) (map[string]Framework, error) {
	if err := r.Validate(ctx, exp); err != nil {
		return nil, err
	}

	adapters := make(map[string]Framework, len(exp.Frameworks))
	for _, name := range exp.Frameworks {
		fw, err := r.factories[name](exp.Setting(name))
		if err != nil {
			return nil, fmt.Errorf("failed to configure framework %q: %w", name, err)
		}
		adapters[name] = fw
	}
	return adapters, nil
}
