// Package workerkey defines the WorkerKey identity shared by every
// component that addresses a worker: the orchestrator's running set, the
// lifecycle controller's registry, and the HTTP read layer.
package workerkey

import "fmt"

// Key is the case-sensitive string identity of one (user, symbol,
// strategy) triple. It is the primary key across the whole supervisor.
type Key string

// Format renders the canonical WorkerKey for a (user, symbol, strategy)
// triple. userID may be empty for account-less configurations.
func Format(userID, symbol, strategyKey string) Key {
	return Key(fmt.Sprintf("%s_%s_%s", userID, symbol, strategyKey))
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}
