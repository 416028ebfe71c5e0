// Package registry holds the framework adapter registry: the mapping from
// the names an experiment uses to the Go adapters that execute circuits.
package registry
