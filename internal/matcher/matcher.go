// file: internal/matcher/matcher.go
// version: 2.0.0
// guid: 1f2a3b4c-5d6e-7f8a-9b0c-1d2e3f4a5b6c

// Package matcher picks the candidate that best fits a query out of the
// list a single provider returned.
package matcher

import (
	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// MinScore is the lowest score a candidate may have and still be
// considered a match.
const MinScore = 40

// Match is the chosen candidate and its score.
type Match struct {
	Index int
	Score int
}

// BestBook returns the book whose title, and author when given, best fit
// the query. ok is false when no candidate reaches MinScore. Ties keep the
// provider's own order.
func BestBook(title, author string, books []models.Book) (Match, bool) {
	return best(len(books), func(i int) int {
		b := books[i]
		score := ScoreMatch(title, b.Title)
		if b.Subtitle != "" {
			score = max(score, ScoreMatch(title, b.Title+" "+b.Subtitle))
		}
		if author == "" {
			return score
		}
		authorScore := 0
		for _, a := range b.Authors {
			authorScore = max(authorScore, ScoreMatch(author, a))
		}
		return (score*7 + authorScore*3) / 10
	})
}

// BestAuthor returns the author whose name or an alternate name best fits name.
func BestAuthor(name string, authors []models.Author) (Match, bool) {
	return best(len(authors), func(i int) int {
		a := authors[i]
		score := ScoreMatch(name, a.Name)
		for _, alt := range a.AlternateNames {
			score = max(score, ScoreMatch(name, alt))
		}
		return score
	})
}

func best(n int, score func(int) int) (Match, bool) {
	m := Match{Index: -1}
	for i := 0; i < n; i++ {
		if s := score(i); s > m.Score {
			m = Match{Index: i, Score: s}
		}
	}
	if m.Index < 0 || m.Score < MinScore {
		return Match{Index: -1}, false
	}
	return m, true
}
