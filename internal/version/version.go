// Package version tracks the supervisor binary's own version and checks
// it for compatibility with a StrategyConfig's declared
// min_engine_version, so a config written against a newer engine
// feature set fails fast at worker construction instead of at runtime.
package version

// Version is the current version of the supervisor binary, set at
// build time using ldflags:
// -ldflags "-X github.com/blueenergy/strategy-supervisor/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// GetVersion returns the supervisor's current version.
func GetVersion() string {
	return Version
}
