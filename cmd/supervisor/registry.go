package main

import "github.com/blueenergy/strategy-supervisor/internal/registry"

// defaultRegistry is empty out of the box: concrete strategy engines are
// an out-of-scope collaborator. A real deployment imports its engine
// packages here and calls RegisterClass/Bind during init, mirroring how
// vnpy_adapter.py classes were wired into a dotted-path lookup table.
var defaultRegistry = registry.New()
