package protocol

import (
	"regexp"
	"strings"
)

var (
	markerToken = regexp.MustCompile(`(?i)` + PendingMarker + `\s*:?`)
	legacyToken = regexp.MustCompile(legacyMarker + `+`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// Sanitize removes every action descriptor fragment from text bound for the
// user. Any balanced top-level object is treated as leakage, and an object
// that never closes is cut through to the end of the text.
func Sanitize(text string) string {
	out := fencedObject.ReplaceAllString(text, "")

	var b strings.Builder
	b.Grow(len(out))
	pos := 0
	for {
		start, end, _, found := ObjectSpan(out, pos)
		if !found {
			b.WriteString(out[pos:])
			break
		}
		b.WriteString(out[pos:start])
		pos = end
	}
	out = b.String()

	out = markerToken.ReplaceAllString(out, "")
	out = legacyToken.ReplaceAllString(out, "")
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
