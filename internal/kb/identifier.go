package kb

import (
	"regexp"
	"strings"
)

var (
	unsafeCharRe = regexp.MustCompile(`[^\w\-. ]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeID derives a file-safe identifier from a display name.
// Characters outside [A-Za-z0-9_-. ] become underscores and whitespace
// runs collapse to a single underscore, so repeated stores of the same
// name land on the same record. foldCase additionally lowercases the
// result.
func NormalizeID(name string, foldCase bool) string {
	id := unsafeCharRe.ReplaceAllString(name, "_")
	id = strings.TrimSpace(id)
	id = whitespaceRe.ReplaceAllString(id, "_")
	if foldCase {
		id = strings.ToLower(id)
	}
	return id
}
