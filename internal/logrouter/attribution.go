package logrouter

import (
	"regexp"
	"strings"
)

// symbolToken matches the canonical A-share style symbol token used
// throughout the attribution rule: six digits followed by a market
// suffix. Centralized here and reused by every sink.
var symbolToken = regexp.MustCompile(`\d{6}\.(SZ|SH|BJ)`)

// allow implements the three-case ALLOW/REJECT attribution rule.
//
//  1. If symbol appears in loggerName, ALLOW.
//  2. Else scan message for symbolToken matches:
//     - a match set containing symbol, ALLOW
//     - a non-empty match set not containing symbol, REJECT
//  3. Else (no symbol tokens anywhere), ALLOW as a system log.
func allow(symbol, loggerName, message string) bool {
	if symbol != "" && strings.Contains(loggerName, symbol) {
		return true
	}

	matches := symbolToken.FindAllString(message, -1)
	if len(matches) == 0 {
		return true
	}

	for _, m := range matches {
		if m == symbol {
			return true
		}
	}

	return false
}
