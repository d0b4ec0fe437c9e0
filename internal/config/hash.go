package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ContentHash computes the content hash invariant from the data model: a
// digest over every field in a canonical ordering, such that any field
// change (including a nested Params value) changes the hash. Map
// iteration order in Go is randomized, so Params keys are sorted before
// hashing to keep the hash stable across process runs.
func (c StrategyConfig) ContentHash() string {
	var b strings.Builder

	fmt.Fprintf(&b, "user_id=%s\n", c.UserID)
	fmt.Fprintf(&b, "symbol=%s\n", c.Symbol)
	fmt.Fprintf(&b, "strategy_key=%s\n", c.StrategyKey)
	fmt.Fprintf(&b, "engine=%s\n", c.Engine)
	fmt.Fprintf(&b, "enabled=%t\n", c.Enabled)
	fmt.Fprintf(&b, "engine_class=%s\n", c.EngineClass)

	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	b.WriteString("params={")

	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, c.Params[k])
	}

	b.WriteString("}\n")

	sum := sha256.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])
}
