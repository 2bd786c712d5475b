// file: internal/metadata/audnexus.go
// version: 2.0.0
// guid: c3d4e5f6-a7b8-9c0d-1e2f-a3b4c5d6e7f8

package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

const (
	KindAudnexus       = "audnexus"
	defaultAudnexusURL = "https://api.audnex.us"
)

var audnexusRegions = map[string]bool{
	"us": true, "uk": true, "ca": true, "au": true, "de": true,
	"fr": true, "it": true, "es": true, "in": true, "jp": true,
}

// AudnexusSettings is the settings blob of an audnexus provider.
type AudnexusSettings struct {
	BaseURL string `json:"base_url,omitempty"`
	Region  string `json:"region,omitempty"`
}

// AudnexusClient fetches audiobook metadata from the Audnexus API.
// The API has no title search; books are resolved by ASIN and authors by name.
type AudnexusClient struct {
	api    *apiClient
	region string
}

// NewAudnexusClientWithBaseURL creates a client with a custom base URL (for testing).
func NewAudnexusClientWithBaseURL(baseURL string) (*AudnexusClient, error) {
	return newAudnexusClient(AudnexusSettings{BaseURL: baseURL})
}

func newAudnexusClient(s AudnexusSettings) (*AudnexusClient, error) {
	if s.BaseURL == "" {
		s.BaseURL = defaultAudnexusURL
	}
	s.Region = strings.ToLower(strings.TrimSpace(s.Region))
	if s.Region == "" {
		s.Region = "us"
	}
	if !audnexusRegions[s.Region] {
		return nil, configError(KindAudnexus, "unknown region %q", s.Region)
	}
	base, err := parseBaseURL(KindAudnexus, s.BaseURL)
	if err != nil {
		return nil, err
	}
	return &AudnexusClient{api: newAPIClient(KindAudnexus, base), region: s.Region}, nil
}

// Name returns the display name for this metadata source.
func (c *AudnexusClient) Name() string {
	return "Audnexus (Audible)"
}

type audnexusPerson struct {
	ASIN string `json:"asin"`
	Name string `json:"name"`
}

type audnexusSeries struct {
	ASIN     string `json:"asin"`
	Name     string `json:"name"`
	Position string `json:"position"`
}

type audnexusGenre struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type audnexusBook struct {
	ASIN            string           `json:"asin"`
	Title           string           `json:"title"`
	Subtitle        string           `json:"subtitle"`
	Authors         []audnexusPerson `json:"authors"`
	Narrators       []audnexusPerson `json:"narrators"`
	PublisherName   string           `json:"publisherName"`
	ReleaseDate     string           `json:"releaseDate"`
	Language        string           `json:"language"`
	Image           string           `json:"image"`
	Description     string           `json:"description"`
	Summary         string           `json:"summary"`
	ISBN            string           `json:"isbn"`
	Copyright       int              `json:"copyright"`
	Rating          string           `json:"rating"`
	Genres          []audnexusGenre  `json:"genres"`
	SeriesPrimary   *audnexusSeries  `json:"seriesPrimary"`
	SeriesSecondary *audnexusSeries  `json:"seriesSecondary"`
}

type audnexusAuthor struct {
	ASIN        string           `json:"asin"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	Genres      []audnexusGenre  `json:"genres"`
	Similar     []audnexusPerson `json:"similar"`
}

func (c *AudnexusClient) regionQuery() url.Values {
	q := url.Values{}
	q.Set("region", c.region)
	return q
}

// SearchAuthors finds authors by name. The search endpoint returns only
// ASIN and name; descriptions come from the per-author endpoint.
func (c *AudnexusClient) SearchAuthors(ctx context.Context, name string, limit int) ([]models.Author, error) {
	q := c.regionQuery()
	q.Set("name", name)

	var found []audnexusAuthor
	if err := c.api.getJSON(ctx, "/authors", q, &found); err != nil {
		if errors.Is(err, errNoContent) {
			return nil, nil
		}
		return nil, err
	}
	log.Printf("[DEBUG] audnexus: %d authors for %q", len(found), name)

	limit = clampLimit(limit)
	authors := make([]models.Author, 0, len(found))
	seen := make(map[string]bool)
	for _, a := range found {
		if a.ASIN == "" || seen[a.ASIN] {
			continue
		}
		seen[a.ASIN] = true
		authors = append(authors, authorFromAudnexus(a))
		if len(authors) == limit {
			break
		}
	}
	return authors, nil
}

// LookupAuthor fetches a single author with biography and image.
func (c *AudnexusClient) LookupAuthor(ctx context.Context, asin string) (*models.Author, error) {
	var a audnexusAuthor
	if err := c.api.getJSON(ctx, "/authors/"+url.PathEscape(asin), c.regionQuery(), &a); err != nil {
		if errors.Is(err, errNoContent) {
			return nil, nil
		}
		return nil, err
	}
	author := authorFromAudnexus(a)
	return &author, nil
}

func authorFromAudnexus(a audnexusAuthor) models.Author {
	author := models.Author{
		ForeignID:   "audible:" + a.ASIN,
		Name:        a.Name,
		Description: a.Description,
		ImageURL:    a.Image,
	}
	for _, g := range a.Genres {
		author.Genres = append(author.Genres, g.Name)
	}
	return author
}

// LookupASIN fetches a book directly by its Audible ASIN.
func (c *AudnexusClient) LookupASIN(ctx context.Context, asin string) (*models.Book, error) {
	asin = strings.ToUpper(strings.TrimSpace(asin))
	var book audnexusBook
	if err := c.api.getJSON(ctx, "/books/"+url.PathEscape(asin), c.regionQuery(), &book); err != nil {
		if errors.Is(err, errNoContent) {
			return nil, nil
		}
		return nil, err
	}
	if book.ASIN == "" {
		return nil, nil
	}
	return bookFromAudnexus(&book), nil
}

// Test looks up a well-known author.
func (c *AudnexusClient) Test(ctx context.Context) error {
	q := c.regionQuery()
	q.Set("name", "Brandon Sanderson")
	var found []audnexusAuthor
	return probeError(KindAudnexus, c.api.getJSON(ctx, "/authors", q, &found))
}

func bookFromAudnexus(book *audnexusBook) *models.Book {
	out := &models.Book{
		ForeignID: "audible:" + book.ASIN,
		Title:     book.Title,
		Subtitle:  book.Subtitle,
		Publisher: book.PublisherName,
		Language:  book.Language,
		CoverURL:  book.Image,
		ASIN:      book.ASIN,
	}
	if len(book.ISBN) == 13 {
		out.ISBN13 = book.ISBN
	} else if len(book.ISBN) == 10 {
		out.ISBN10 = book.ISBN
	}

	if book.Summary != "" {
		out.Description = book.Summary
	} else {
		out.Description = book.Description
	}
	for _, a := range book.Authors {
		out.Authors = append(out.Authors, a.Name)
	}
	for _, n := range book.Narrators {
		out.Narrators = append(out.Narrators, n.Name)
	}
	for _, g := range book.Genres {
		out.Genres = append(out.Genres, g.Name)
	}

	if len(book.ReleaseDate) >= 4 {
		fmt.Sscanf(book.ReleaseDate[:4], "%d", &out.PublishYear)
	} else if book.Copyright > 0 {
		out.PublishYear = book.Copyright
	}
	if book.Rating != "" {
		fmt.Sscanf(book.Rating, "%g", &out.Rating)
	}

	if book.SeriesPrimary != nil {
		out.SeriesName = book.SeriesPrimary.Name
		out.SeriesPosition = book.SeriesPrimary.Position
	}

	out.Editions = []models.Edition{{
		ASIN:        book.ASIN,
		ISBN13:      out.ISBN13,
		ISBN10:      out.ISBN10,
		Title:       book.Title,
		Format:      "audiobook",
		Publisher:   book.PublisherName,
		PublishYear: out.PublishYear,
		Language:    book.Language,
		Narrator:    strings.Join(out.Narrators, ", "),
	}}
	return out
}
