package config

import "github.com/hashicorp/hcl/v2"

// rangeHCL represents a `qubits`, `depths` or `shots` block. A range is
// either an explicit `values` list or an inclusive min/max sweep.
type rangeHCL struct {
	Min       *int64  `hcl:"min,optional"`
	Max       *int64  `hcl:"max,optional"`
	Increment *int64  `hcl:"increment,optional"`
	Values    []int64 `hcl:"values,optional"`
}

// frameworkHCL represents a `framework "<name>"` settings block.
type frameworkHCL struct {
	Name     string            `hcl:"name,label"`
	Endpoint string            `hcl:"endpoint,optional"`
	Options  map[string]string `hcl:"options,optional"`
}

// experimentHCL represents an `experiment "<name>"` block from a user's
// configuration file.
type experimentHCL struct {
	Name        string          `hcl:"name,label"`
	Seed        *int64          `hcl:"seed,optional"`
	Evaluations *int64          `hcl:"evaluations,optional"`
	Frameworks  []string        `hcl:"frameworks"`
	Qubits      *rangeHCL       `hcl:"qubits,block"`
	Depths      *rangeHCL       `hcl:"depths,block"`
	Shots       *rangeHCL       `hcl:"shots,block"`
	Settings    []*frameworkHCL `hcl:"framework,block"`
}

// fileHCL represents the top-level structure of a configuration file.
type fileHCL struct {
	Experiments []*experimentHCL `hcl:"experiment,block"`
	Body        hcl.Body         `hcl:",remain"`
}
