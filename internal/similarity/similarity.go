// Package similarity decides whether two headlines describe the same story.
package similarity

import (
	"strings"
	"unicode"
)

// Threshold is the Dice coefficient above which two titles count as the same story.
const Threshold = 0.6

// Normalize lowercases s and drops everything that is not a letter or a digit.
// Letters of any script are kept, so Cyrillic titles compare like Latin ones;
// for ASCII input this is the plain [a-z0-9] reduction.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsSimilar reports whether a and b are likely the same headline.
// Containment after normalization short-circuits the bigram comparison.
func IsSimilar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}

	return dice(bigrams(na), bigrams(nb)) > Threshold
}

// Dice returns the Dice coefficient over the bigram sets of the normalized inputs.
func Dice(a, b string) float64 {
	return dice(bigrams(Normalize(a)), bigrams(Normalize(b)))
}

func dice(a, b map[string]struct{}) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}

	shared := 0
	for g := range a {
		if _, ok := b[g]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(total)
}

func bigrams(s string) map[string]struct{} {
	runes := []rune(s)
	set := make(map[string]struct{}, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}
