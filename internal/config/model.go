package config

import (
	"fmt"
	"sort"
)

// Framework holds the per-adapter settings declared in a `framework` block.
type Framework struct {
	Name     string
	Endpoint string
	Options  map[string]string
}

// Experiment is the fully validated form of one `experiment` block: every
// range expanded into an explicit axis of the evaluation matrix.
type Experiment struct {
	Name        string
	Seed        int64
	Evaluations int

	Frameworks        []string
	FrameworkSettings map[string]*Framework

	Qubits []int
	Depths []int
	Shots  []int
}

// Setting returns the named framework settings, or empty settings when the
// framework was listed without a dedicated block.
func (e *Experiment) Setting(name string) *Framework {
	if fw, ok := e.FrameworkSettings[name]; ok {
		return fw
	}
	return &Framework{Name: name}
}

// Set is the merged collection of all experiments discovered under the
// configuration path.
type Set struct {
	Experiments map[string]*Experiment
}

// Select resolves the experiment to run. An empty name is allowed only when
// exactly one experiment is defined.
func (s *Set) Select(name string) (*Experiment, error) {
	if name != "" {
		exp, ok := s.Experiments[name]
		if !ok {
			return nil, fmt.Errorf("experiment %q is not defined (have: %v)", name, s.Names())
		}
		return exp, nil
	}

	if len(s.Experiments) != 1 {
		return nil, fmt.Errorf("config defines %d experiments, select one with -name (have: %v)", len(s.Experiments), s.Names())
	}
	for _, exp := range s.Experiments {
		return exp, nil
	}
	return nil, fmt.Errorf("no experiments defined")
}

// Names returns the defined experiment names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.Experiments))
	for name := range s.Experiments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
