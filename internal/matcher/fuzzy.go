// file: internal/matcher/fuzzy.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7890-abcd-ef1234567890

package matcher

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/unicode/norm"
)

// ScoreMatch scores how well query matches target on a 0-100 scale.
func ScoreMatch(query, target string) int {
	q := normalize(query)
	t := normalize(target)
	if q == "" || t == "" {
		return 0
	}
	if q == t {
		return 100
	}

	score := 0
	switch {
	case strings.HasPrefix(t, q):
		score = 90
	case strings.Contains(t, q):
		// shorter targets are more specific matches
		score = 60 + int(float64(len(q))/float64(len(t))*25)
	case fuzzy.Match(q, t):
		score = 55
	}

	score = max(score, similarity(q, t, 50))
	for _, w := range strings.Fields(t) {
		if strings.HasPrefix(w, q) {
			score = max(score, 80)
		}
		score = max(score, similarity(q, w, 70))
	}
	return score
}

// similarity maps edit distance to [0, scale].
func similarity(a, b string, scale int) int {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 0
	}
	d := fuzzy.LevenshteinDistance(a, b)
	s := int((1 - float64(d)/float64(longest)) * float64(scale))
	return max(s, 0)
}

// normalize folds case, composes unicode and strips punctuation.
func normalize(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	var b strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case unicode.IsSpace(r) && !space && b.Len() > 0:
			b.WriteRune(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
