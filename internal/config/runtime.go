package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Runtime is the set of environment-configurable knobs read once at
// process start. Flags take precedence; RuntimeFromEnv only fills in
// values the caller left at its defaults' zero-equivalent.
type Runtime struct {
	ReloadInterval time.Duration
	LogBackends    []string
	LogRoot        string
	PublicHost     string
	AuthEnabled    bool
	JWTSecret      string
	CalendarLocale string
}

// RuntimeFromEnv overlays SUPERVISOR_* environment variables onto
// defaults, returning the merged Runtime. Each env var is consulted
// only when the corresponding default field is still its zero value,
// so explicit CLI flags always win over the environment.
func RuntimeFromEnv(defaults Runtime) Runtime {
	rt := defaults

	if rt.ReloadInterval == 0 {
		if raw := os.Getenv("SUPERVISOR_RELOAD_INTERVAL"); raw != "" {
			if d, err := time.ParseDuration(raw); err == nil {
				rt.ReloadInterval = d
			} else if secs, err := strconv.Atoi(raw); err == nil {
				rt.ReloadInterval = time.Duration(secs) * time.Second
			}
		}
	}

	if len(rt.LogBackends) == 0 {
		if raw := os.Getenv("SUPERVISOR_LOG_BACKENDS"); raw != "" {
			rt.LogBackends = ParseLogBackends(raw)
		}
	}

	if rt.LogRoot == "" {
		rt.LogRoot = os.Getenv("SUPERVISOR_LOG_ROOT")
	}

	if rt.PublicHost == "" {
		rt.PublicHost = os.Getenv("SUPERVISOR_PUBLIC_HOST")
	}

	if rt.JWTSecret == "" {
		rt.JWTSecret = os.Getenv("SUPERVISOR_JWT_SECRET")
	}

	if rt.CalendarLocale == "" {
		rt.CalendarLocale = os.Getenv("SUPERVISOR_CALENDAR_LOCALE")
	}

	// AuthEnabled's zero value (false) is a valid setting, so unlike the
	// fields above it can't be used to detect "caller left this unset".
	// The environment variable wins whenever present; callers that want
	// a flag to take precedence must not set the variable.
	if raw := os.Getenv("SUPERVISOR_AUTH_ENABLED"); raw != "" {
		if enabled, err := strconv.ParseBool(raw); err == nil {
			rt.AuthEnabled = enabled
		}
	}

	return rt
}

// ParseLogBackends splits a comma-separated backend list, trimming
// whitespace and dropping empty entries.
func ParseLogBackends(raw string) []string {
	parts := strings.Split(raw, ",")
	backends := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			backends = append(backends, p)
		}
	}

	return backends
}
