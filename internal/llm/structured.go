package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alexanderramin/liminal/internal/protocol"
)

// SchemaValidator checks a decoded value.
type SchemaValidator[T any] func(T) error

// ExtractJSON decodes the first JSON object in model output into T. Fences,
// surrounding prose, comments and bare leading decimals are tolerated.
func ExtractJSON[T any](raw string, validator SchemaValidator[T]) (T, error) {
	var zero T

	cleaned := stripCodeFences(raw)
	jsonStr := protocol.FirstObject(cleaned)
	if jsonStr == "" {
		return zero, fmt.Errorf("%w: no JSON object found in response", ErrInvalidOutput)
	}
	jsonStr = stripJSONComments(jsonStr)
	jsonStr = normalizeLeadingDecimalNumbers(jsonStr)

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	if validator != nil {
		if err := validator(result); err != nil {
			return zero, fmt.Errorf("%w: validation failed: %v", ErrInvalidOutput, err)
		}
	}

	return result, nil
}

// stripCodeFences drops fence lines and keeps their contents.
func stripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	var result []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		result = append(result, line)
	}
	return strings.Join(result, "\n")
}

// rewriteOutsideStrings copies s, handing every byte outside a JSON string
// to visit. visit writes what it wants kept and returns how many following
// bytes it consumed.
func rewriteOutsideStrings(s string, visit func(b *strings.Builder, s string, i int) int) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString:
			i += visit(&b, s, i)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// stripJSONComments removes // and /* */ comments outside string values.
// An unterminated comment runs to the end of the input.
func stripJSONComments(s string) string {
	return rewriteOutsideStrings(s, func(b *strings.Builder, s string, i int) int {
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, "//"):
			if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
				return nl - 1
			}
			return len(rest) - 1
		case strings.HasPrefix(rest, "/*"):
			if end := strings.Index(rest[2:], "*/"); end >= 0 {
				return end + 3
			}
			return len(rest) - 1
		}
		b.WriteByte(s[i])
		return 0
	})
}

// normalizeLeadingDecimalNumbers rewrites ".8" as "0.8" and "-.3" as "-0.3"
// outside string values.
func normalizeLeadingDecimalNumbers(s string) string {
	return rewriteOutsideStrings(s, func(b *strings.Builder, s string, i int) int {
		if s[i] == '.' && i+1 < len(s) && isDigit(s[i+1]) && isNumericBoundary(prevNonSpace(s, i-1)) {
			b.WriteByte('0')
		}
		b.WriteByte(s[i])
		return 0
	})
}

func prevNonSpace(s string, i int) byte {
	for ; i >= 0; i-- {
		if s[i] != ' ' && s[i] != '\n' && s[i] != '\r' && s[i] != '\t' {
			return s[i]
		}
	}
	return 0
}

func isNumericBoundary(c byte) bool {
	switch c {
	case 0, ':', ',', '[', '{', '-':
		return true
	default:
		return false
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
