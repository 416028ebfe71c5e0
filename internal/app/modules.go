package app

import (
	"github.com/quafel/quafel/frameworks/baseline"
	"github.com/quafel/quafel/frameworks/native"
	"github.com/quafel/quafel/frameworks/remote"
	"github.com/quafel/quafel/internal/registry"
)

// coreModules are the framework adapters compiled into the binary.
var coreModules = []registry.Module{
	&native.Module{},
	&baseline.Module{},
	&remote.Module{},
}
