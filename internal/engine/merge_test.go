// file: internal/engine/merge_test.go
// version: 1.0.0
// guid: fa504875-f1f2-41db-a656-b7a1b4f12474

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

func bookResult(id string, priority int, b models.Book) ProviderResult {
	return ProviderResult{ProviderID: id, ProviderName: id, Priority: priority, Entity: models.Entity{Book: &b}}
}

func TestMerger_FirstNonEmptyValueWins(t *testing.T) {
	m := NewMerger()
	rec := m.Merge([]ProviderResult{
		bookResult("p1", 10, models.Book{
			Title:       "Dune",
			Authors:     []string{"Frank Herbert"},
			Description: "Desert planet.",
			PublishYear: 1965,
		}),
		bookResult("p2", 20, models.Book{
			Title:       "Dune (Deluxe Edition)",
			Description: "A different blurb.",
			CoverURL:    "https://img/dune.jpg",
			PageCount:   896,
		}),
	})

	require.Equal(t, models.KindBook, rec.Kind)
	b := rec.Entity.Book
	require.NotNil(t, b)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "Desert planet.", b.Description)
	assert.Equal(t, "https://img/dune.jpg", b.CoverURL)
	assert.Equal(t, 896, b.PageCount)
	assert.Equal(t, 1965, b.PublishYear)

	assert.Equal(t, []string{"p1"}, rec.Provenance["title"])
	assert.Equal(t, []string{"p1"}, rec.Provenance["description"])
	assert.Equal(t, []string{"p2"}, rec.Provenance["cover_url"])
	assert.Equal(t, []string{"p2"}, rec.Provenance["page_count"])
	assert.NotContains(t, rec.Provenance, "subtitle")
	assert.Equal(t, []string{"p1", "p2"}, rec.Sources)
}

func TestMerger_WhitespaceCountsAsEmpty(t *testing.T) {
	rec := NewMerger().Merge([]ProviderResult{
		bookResult("p1", 10, models.Book{Title: "Dune", Publisher: "   "}),
		bookResult("p2", 20, models.Book{Title: "Dune", Publisher: " Ace "}),
	})
	assert.Equal(t, "Ace", rec.Entity.Book.Publisher)
	assert.Equal(t, []string{"p2"}, rec.Provenance["publisher"])
}

func TestMerger_ListsAreUnionedCaseInsensitively(t *testing.T) {
	rec := NewMerger().Merge([]ProviderResult{
		bookResult("p1", 10, models.Book{Title: "Dune", Genres: []string{"Science Fiction", "Classics"}}),
		bookResult("p2", 20, models.Book{Title: "Dune", Genres: []string{"science  fiction", "Space Opera", "CLASSICS"}}),
	})

	assert.Equal(t, []string{"Science Fiction", "Classics", "Space Opera"}, rec.Entity.Book.Genres)
	assert.Equal(t, []string{"p1", "p2"}, rec.Provenance["genres"])
}

func TestMerger_AuthorsAndNarratorsUnioned(t *testing.T) {
	rec := NewMerger().Merge([]ProviderResult{
		bookResult("p1", 10, models.Book{Title: "Good Omens", Authors: []string{"Terry Pratchett"}}),
		bookResult("p2", 20, models.Book{Title: "Good Omens", Authors: []string{"neil gaiman", "TERRY PRATCHETT"}, Narrators: []string{"Martin Jarvis"}}),
		bookResult("p3", 30, models.Book{Title: "Good Omens", Authors: []string{"Neil Gaiman"}, Narrators: []string{"Martin Jarvis", "Stephen Fry"}}),
	})

	assert.Equal(t, []string{"Terry Pratchett", "neil gaiman"}, rec.Entity.Book.Authors)
	assert.Equal(t, []string{"p1", "p2"}, rec.Provenance["authors"])
	assert.Equal(t, []string{"Martin Jarvis", "Stephen Fry"}, rec.Entity.Book.Narrators)
	assert.Equal(t, []string{"p2", "p3"}, rec.Provenance["narrators"])
}

func TestMerger_EditionsUnionedByIdentifier(t *testing.T) {
	rec := NewMerger().Merge([]ProviderResult{
		bookResult("p1", 10, models.Book{Title: "Dune", Editions: []models.Edition{
			{ISBN13: "9780441013593", Format: "paperback", Publisher: "Ace"},
		}}),
		bookResult("p2", 20, models.Book{Title: "Dune", Editions: []models.Edition{
			{ISBN13: "9780441013593", Format: "paperback", Publisher: "Ace Books"},
			{ASIN: "B002V1OF70", Format: "audiobook", Narrator: "Scott Brick"},
			{},
		}}),
	})

	require.Len(t, rec.Entity.Book.Editions, 2)
	assert.Equal(t, "Ace", rec.Entity.Book.Editions[0].Publisher)
	assert.Equal(t, "B002V1OF70", rec.Entity.Book.Editions[1].ASIN)
	assert.Equal(t, []string{"p1", "p2"}, rec.Provenance["editions"])
}

func TestMerger_AuthorEntities(t *testing.T) {
	rec := NewMerger().Merge([]ProviderResult{
		{ProviderID: "p1", Priority: 10, Entity: models.Entity{Author: &models.Author{
			Name: "Ursula K. Le Guin", AlternateNames: []string{"Ursula Le Guin"},
		}}},
		{ProviderID: "p2", Priority: 20, Entity: models.Entity{Author: &models.Author{
			Name: "Ursula Kroeber Le Guin", ImageURL: "https://img/leguin.jpg",
			AlternateNames: []string{"ursula le guin", "U. K. Le Guin"},
		}}},
	})

	require.Equal(t, models.KindAuthor, rec.Kind)
	a := rec.Entity.Author
	assert.Equal(t, "Ursula K. Le Guin", a.Name)
	assert.Equal(t, "https://img/leguin.jpg", a.ImageURL)
	assert.Equal(t, []string{"Ursula Le Guin", "U. K. Le Guin"}, a.AlternateNames)
	assert.Equal(t, []string{"p2"}, rec.Provenance["image_url"])
}

func TestMerger_SeriesEntries(t *testing.T) {
	rec := NewMerger().Merge([]ProviderResult{
		{ProviderID: "p1", Entity: models.Entity{Series: &models.Series{Name: "Discworld", Entries: []models.SeriesEntry{
			{Position: "1", Title: "The Colour of Magic"},
		}}}},
		{ProviderID: "p2", Entity: models.Entity{Series: &models.Series{Name: "Discworld", Description: "Comic fantasy.", Entries: []models.SeriesEntry{
			{Position: "1", Title: "the colour of magic"},
			{Position: "2", Title: "The Light Fantastic"},
			{Position: "3"},
		}}}},
	})

	require.Equal(t, models.KindSeries, rec.Kind)
	s := rec.Entity.Series
	assert.Equal(t, "Comic fantasy.", s.Description)
	require.Len(t, s.Entries, 2)
	assert.Equal(t, "The Light Fantastic", s.Entries[1].Title)
}

func TestMerger_Idempotent(t *testing.T) {
	m := NewMerger()
	r := bookResult("p1", 10, models.Book{Title: "Dune", Genres: []string{"Classics"}, CoverURL: "https://img/dune.jpg"})

	once := m.Merge([]ProviderResult{r})
	twice := m.Merge([]ProviderResult{r, r})
	assert.Equal(t, once, twice)

	again := m.Merge(once.Contributions)
	assert.Equal(t, once, again)
}

func TestMerger_IgnoresEmptyAndMismatchedResults(t *testing.T) {
	rec := NewMerger().Merge([]ProviderResult{
		{ProviderID: "p0"},
		bookResult("p1", 10, models.Book{Title: "Dune"}),
		{ProviderID: "p2", Entity: models.Entity{Author: &models.Author{Name: "Frank Herbert"}}},
	})

	assert.Equal(t, models.KindBook, rec.Kind)
	require.Len(t, rec.Contributions, 1)
	assert.Equal(t, []string{"p1"}, rec.Sources)
}

func TestMerger_NoResults(t *testing.T) {
	rec := NewMerger().Merge(nil)
	assert.Equal(t, models.KindNone, rec.Kind)
	assert.True(t, rec.Entity.IsEmpty())
	assert.Empty(t, rec.Sources)
}

func TestMerger_RemergeReplacesOneContribution(t *testing.T) {
	m := NewMerger()
	prev := m.Merge([]ProviderResult{
		bookResult("p1", 10, models.Book{Title: "Dune", Description: "Desert planet."}),
		bookResult("p2", 20, models.Book{Title: "Dune", CoverURL: "https://img/old.jpg"}),
	})

	next := m.Remerge(prev, bookResult("p2", 20, models.Book{Title: "Dune", CoverURL: "https://img/new.jpg", Rating: 4.3}))
	require.Len(t, next.Contributions, 2)
	assert.Equal(t, "p1", next.Contributions[0].ProviderID)
	assert.Equal(t, "Desert planet.", next.Entity.Book.Description)
	assert.Equal(t, "https://img/new.jpg", next.Entity.Book.CoverURL)
	assert.InDelta(t, 4.3, next.Entity.Book.Rating, 0.001)
	assert.Equal(t, []string{"p2"}, next.Provenance["rating"])

	// A new higher-priority provider takes over scalar fields.
	next = m.Remerge(next, bookResult("p0", 1, models.Book{Title: "Dune", Description: "Arrakis."}))
	require.Len(t, next.Contributions, 3)
	assert.Equal(t, "p0", next.Contributions[0].ProviderID)
	assert.Equal(t, "Arrakis.", next.Entity.Book.Description)
}

func TestMerger_RemergeFromNothing(t *testing.T) {
	rec := NewMerger().Remerge(nil, bookResult("p1", 10, models.Book{Title: "Dune"}))
	assert.Equal(t, "Dune", rec.Entity.Book.Title)
}
