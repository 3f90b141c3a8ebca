package protocol

import "strings"

// ObjectSpan returns the byte range of the first top-level {...} object in s
// at or after from. Braces inside JSON string literals are ignored. When the
// opening brace is never closed, closed is false and end is len(s).
// found is false when s contains no '{' after from.
func ObjectSpan(s string, from int) (start, end int, closed, found bool) {
	if from >= len(s) {
		return 0, 0, false, false
	}
	rel := strings.IndexByte(s[from:], '{')
	if rel == -1 {
		return 0, 0, false, false
	}
	start = from + rel

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return start, i + 1, true, true
			}
		}
	}
	return start, len(s), false, true
}

// FirstObject returns the first balanced top-level object in s, or "".
func FirstObject(s string) string {
	start, end, closed, found := ObjectSpan(s, 0)
	if !found || !closed {
		return ""
	}
	return s[start:end]
}
