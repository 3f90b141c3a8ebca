// Package fuzzy ranks tasks against free-text references such as
// "the review one" or "code review".
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the minimum score a candidate needs to be returned.
const DefaultThreshold = 60.0

// Tokens lowercases s, treats any non-alphanumeric rune as a separator and
// returns the resulting words.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Ratio is the 0-100 sequence similarity of two strings.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return math.Round(m.Ratio() * 100)
}

// TokenSortRatio compares the sorted word lists of a and b.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedJoin(Tokens(a)), sortedJoin(Tokens(b)))
}

// TokenSetRatio compares a and b as word sets. When every word of one side
// appears in the other the result is 100, whatever the length difference.
func TokenSetRatio(a, b string) float64 {
	setA := toSet(Tokens(a))
	setB := toSet(Tokens(b))

	var common, onlyA, onlyB []string
	for w := range setA {
		if _, ok := setB[w]; ok {
			common = append(common, w)
		} else {
			onlyA = append(onlyA, w)
		}
	}
	for w := range setB {
		if _, ok := setA[w]; !ok {
			onlyB = append(onlyB, w)
		}
	}

	sect := sortedJoin(common)
	withA := strings.TrimSpace(sect + " " + sortedJoin(onlyA))
	withB := strings.TrimSpace(sect + " " + sortedJoin(onlyB))

	return max(Ratio(sect, withA), Ratio(sect, withB), Ratio(withA, withB))
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func sortedJoin(words []string) string {
	cp := append([]string(nil), words...)
	sort.Strings(cp)
	return strings.Join(cp, " ")
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
