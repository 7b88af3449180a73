package fusion

import (
	"regexp"
	"strings"
)

// Free-text ingredient and manufacturer names drive every event join, so
// both sides of a join must pass through this one function. A divergent
// normalization is a silent join miss, which default-fills downstream and
// skews the model input without any error surfacing.

var nonKeyChars = regexp.MustCompile(`[^A-Z0-9\s]`)

// JoinKey reduces a free-text name to its canonical join key:
// uppercase, strip non-alphanumerics, keep the first whitespace token.
// "Abbott Laboratories, Inc." and "ABBOTT LABS" both become "ABBOTT".
// Returns "" for names with no usable token; "" never matches anything.
func JoinKey(name string) string {
	upper := strings.ToUpper(name)
	cleaned := nonKeyChars.ReplaceAllString(upper, "")
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
