// file: internal/metadata/openlibrary.go
// version: 2.0.0
// guid: 1a2b3c4d-5e6f-7a8b-9c0d-1e2f3a4b5c6d

package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

const (
	KindOpenLibrary          = "openlibrary"
	defaultOpenLibraryURL    = "https://openlibrary.org"
	defaultOpenLibraryCovers = "https://covers.openlibrary.org"
)

// OpenLibrarySettings is the settings blob of an openlibrary provider.
type OpenLibrarySettings struct {
	BaseURL   string `json:"base_url,omitempty"`
	CoversURL string `json:"covers_url,omitempty"`
}

// OpenLibraryClient handles metadata fetching from the Open Library API.
type OpenLibraryClient struct {
	api       *apiClient
	coversURL string
}

// NewOpenLibraryClient creates a client against the public Open Library API.
func NewOpenLibraryClient() *OpenLibraryClient {
	c, _ := NewOpenLibraryClientWithBaseURL(defaultOpenLibraryURL)
	return c
}

// NewOpenLibraryClientWithBaseURL creates a client with a custom base URL.
func NewOpenLibraryClientWithBaseURL(baseURL string) (*OpenLibraryClient, error) {
	return newOpenLibraryClient(OpenLibrarySettings{BaseURL: baseURL})
}

func newOpenLibraryClient(s OpenLibrarySettings) (*OpenLibraryClient, error) {
	if s.BaseURL == "" {
		s.BaseURL = defaultOpenLibraryURL
	}
	if s.CoversURL == "" {
		s.CoversURL = defaultOpenLibraryCovers
	}
	base, err := parseBaseURL(KindOpenLibrary, s.BaseURL)
	if err != nil {
		return nil, err
	}
	covers, err := parseBaseURL(KindOpenLibrary, s.CoversURL)
	if err != nil {
		return nil, err
	}
	return &OpenLibraryClient{api: newAPIClient(KindOpenLibrary, base), coversURL: covers}, nil
}

// Name returns the display name for this metadata source.
func (c *OpenLibraryClient) Name() string {
	return "Open Library"
}

type olSearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	Publisher        []string `json:"publisher"`
	Language         []string `json:"language"`
	CoverI           int      `json:"cover_i"`
	NumberOfPages    int      `json:"number_of_pages_median"`
	RatingsAverage   float64  `json:"ratings_average"`
	RatingsCount     int      `json:"ratings_count"`
	Subject          []string `json:"subject"`
	Series           []string `json:"series"`
}

type olSearchResponse struct {
	NumFound int           `json:"numFound"`
	Docs     []olSearchDoc `json:"docs"`
}

type olAuthorDoc struct {
	Key            string   `json:"key"`
	Name           string   `json:"name"`
	AlternateNames []string `json:"alternate_names"`
	BirthDate      string   `json:"birth_date"`
	TopSubjects    []string `json:"top_subjects"`
}

type olAuthorResponse struct {
	NumFound int           `json:"numFound"`
	Docs     []olAuthorDoc `json:"docs"`
}

// SearchAuthors searches authors by name.
func (c *OpenLibraryClient) SearchAuthors(ctx context.Context, name string, limit int) ([]models.Author, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("limit", strconv.Itoa(clampLimit(limit)))

	var resp olAuthorResponse
	if err := c.api.getJSON(ctx, "/search/authors.json", q, &resp); err != nil {
		if errors.Is(err, errNoContent) {
			return nil, nil
		}
		return nil, err
	}

	authors := make([]models.Author, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		if doc.Name == "" {
			continue
		}
		authors = append(authors, models.Author{
			ForeignID:      "ol:" + strings.TrimPrefix(doc.Key, "/authors/"),
			Name:           doc.Name,
			BirthDate:      doc.BirthDate,
			ImageURL:       fmt.Sprintf("%s/a/olid/%s-L.jpg", c.coversURL, strings.TrimPrefix(doc.Key, "/authors/")),
			AlternateNames: doc.AlternateNames,
			Genres:         doc.TopSubjects,
		})
	}
	return authors, nil
}

// SearchBooks searches works by title and optional author.
func (c *OpenLibraryClient) SearchBooks(ctx context.Context, title, author string, limit int) ([]models.Book, error) {
	q := url.Values{}
	q.Set("title", title)
	if author != "" {
		q.Set("author", author)
	}
	q.Set("limit", strconv.Itoa(clampLimit(limit)))
	return c.search(ctx, q)
}

// LookupISBN resolves a book by ISBN through the search index, which
// answers directly instead of redirecting to the edition record.
func (c *OpenLibraryClient) LookupISBN(ctx context.Context, isbn string) (*models.Book, error) {
	q := url.Values{}
	q.Set("isbn", normalizeISBN(isbn))
	q.Set("limit", "1")
	books, err := c.search(ctx, q)
	if err != nil || len(books) == 0 {
		return nil, err
	}
	return &books[0], nil
}

func (c *OpenLibraryClient) search(ctx context.Context, q url.Values) ([]models.Book, error) {
	var resp olSearchResponse
	if err := c.api.getJSON(ctx, "/search.json", q, &resp); err != nil {
		if errors.Is(err, errNoContent) {
			return nil, nil
		}
		return nil, err
	}
	log.Printf("[DEBUG] openlibrary: %d of %d results for %s", len(resp.Docs), resp.NumFound, q.Encode())

	books := make([]models.Book, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		books = append(books, c.docToBook(doc))
	}
	return books, nil
}

func (c *OpenLibraryClient) docToBook(doc olSearchDoc) models.Book {
	book := models.Book{
		ForeignID:   "ol:" + strings.TrimPrefix(doc.Key, "/works/"),
		Title:       doc.Title,
		Subtitle:    doc.Subtitle,
		Authors:     doc.AuthorName,
		PublishYear: doc.FirstPublishYear,
		PageCount:   doc.NumberOfPages,
		Rating:      doc.RatingsAverage,
		RatingCount: doc.RatingsCount,
	}
	if len(doc.Publisher) > 0 {
		book.Publisher = doc.Publisher[0]
	}
	if len(doc.Language) > 0 {
		book.Language = doc.Language[0]
	}
	for _, isbn := range doc.ISBN {
		switch len(isbn) {
		case 13:
			if book.ISBN13 == "" {
				book.ISBN13 = isbn
			}
		case 10:
			if book.ISBN10 == "" {
				book.ISBN10 = isbn
			}
		}
	}
	if doc.CoverI > 0 {
		book.CoverURL = fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, doc.CoverI)
	}
	if len(doc.Series) > 0 {
		book.SeriesName = doc.Series[0]
	}
	if len(doc.Subject) > 5 {
		book.Genres = doc.Subject[:5]
	} else {
		book.Genres = doc.Subject
	}
	return book
}

// Test runs a one-result search.
func (c *OpenLibraryClient) Test(ctx context.Context) error {
	q := url.Values{}
	q.Set("q", "tolkien")
	q.Set("limit", "1")
	var resp olSearchResponse
	return probeError(KindOpenLibrary, c.api.getJSON(ctx, "/search.json", q, &resp))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 5
	}
	if limit > 50 {
		return 50
	}
	return limit
}

func normalizeISBN(isbn string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(isbn))
}
