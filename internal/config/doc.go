// Package config loads and validates the HCL experiment definitions that
// describe an evaluation matrix: which framework adapters to benchmark and
// the qubit, circuit-depth and shot axes to sweep.
package config
