// file: internal/metadata/googlebooks.go
// version: 2.0.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-f2a3b4c5d6e7

package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

const (
	KindGoogleBooks       = "googlebooks"
	defaultGoogleBooksURL = "https://www.googleapis.com/books/v1"
)

// GoogleBooksSettings is the settings blob of a googlebooks provider.
type GoogleBooksSettings struct {
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
}

// GoogleBooksClient fetches metadata from the Google Books Volume API.
// No API key is required for basic searches (free tier, ~1000 req/day).
type GoogleBooksClient struct {
	api    *apiClient
	apiKey string
}

// NewGoogleBooksClientWithBaseURL creates a client with a custom base URL (for testing).
func NewGoogleBooksClientWithBaseURL(baseURL string) (*GoogleBooksClient, error) {
	return newGoogleBooksClient(GoogleBooksSettings{BaseURL: baseURL})
}

func newGoogleBooksClient(s GoogleBooksSettings) (*GoogleBooksClient, error) {
	if s.BaseURL == "" {
		s.BaseURL = defaultGoogleBooksURL
	}
	base, err := parseBaseURL(KindGoogleBooks, s.BaseURL)
	if err != nil {
		return nil, err
	}
	return &GoogleBooksClient{api: newAPIClient(KindGoogleBooks, base), apiKey: s.APIKey}, nil
}

// Name returns the display name for this metadata source.
func (c *GoogleBooksClient) Name() string {
	return "Google Books"
}

type googleBooksResponse struct {
	TotalItems int              `json:"totalItems"`
	Items      []googleBooksVol `json:"items"`
}

type googleBooksVol struct {
	ID         string                `json:"id"`
	VolumeInfo googleBooksVolumeInfo `json:"volumeInfo"`
}

type googleBooksVolumeInfo struct {
	Title               string                  `json:"title"`
	Subtitle            string                  `json:"subtitle"`
	Authors             []string                `json:"authors"`
	Publisher           string                  `json:"publisher"`
	PublishedDate       string                  `json:"publishedDate"`
	Description         string                  `json:"description"`
	IndustryIdentifiers []googleBooksIndustryID `json:"industryIdentifiers"`
	PageCount           int                     `json:"pageCount"`
	Categories          []string                `json:"categories"`
	AverageRating       float64                 `json:"averageRating"`
	RatingsCount        int                     `json:"ratingsCount"`
	ImageLinks          *googleBooksImageLinks  `json:"imageLinks"`
	Language            string                  `json:"language"`
}

type googleBooksIndustryID struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type googleBooksImageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}

// SearchBooks searches Google Books by title and optional author.
func (c *GoogleBooksClient) SearchBooks(ctx context.Context, title, author string, limit int) ([]models.Book, error) {
	q := "intitle:" + title
	if author != "" {
		q += " inauthor:" + author
	}
	return c.search(ctx, q, clampLimit(limit))
}

// LookupISBN resolves a volume by ISBN.
func (c *GoogleBooksClient) LookupISBN(ctx context.Context, isbn string) (*models.Book, error) {
	books, err := c.search(ctx, "isbn:"+normalizeISBN(isbn), 1)
	if err != nil || len(books) == 0 {
		return nil, err
	}
	return &books[0], nil
}

// Test runs a one-result query, which also validates the API key.
func (c *GoogleBooksClient) Test(ctx context.Context) error {
	var resp googleBooksResponse
	return probeError(KindGoogleBooks, c.api.getJSON(ctx, "/volumes", c.query("intitle:dune", 1), &resp))
}

func (c *GoogleBooksClient) query(q string, limit int) url.Values {
	v := url.Values{}
	v.Set("q", q)
	v.Set("maxResults", strconv.Itoa(limit))
	if c.apiKey != "" {
		v.Set("key", c.apiKey)
	}
	return v
}

func (c *GoogleBooksClient) search(ctx context.Context, q string, limit int) ([]models.Book, error) {
	var gbResp googleBooksResponse
	if err := c.api.getJSON(ctx, "/volumes", c.query(q, limit), &gbResp); err != nil {
		if errors.Is(err, errNoContent) {
			return nil, nil
		}
		return nil, err
	}

	results := make([]models.Book, 0, len(gbResp.Items))
	for _, item := range gbResp.Items {
		results = append(results, volumeToBook(item))
	}
	return results, nil
}

func volumeToBook(item googleBooksVol) models.Book {
	vi := item.VolumeInfo
	book := models.Book{
		ForeignID:   "gb:" + item.ID,
		Title:       vi.Title,
		Subtitle:    vi.Subtitle,
		Authors:     vi.Authors,
		Publisher:   vi.Publisher,
		Description: vi.Description,
		Language:    vi.Language,
		PageCount:   vi.PageCount,
		Rating:      vi.AverageRating,
		RatingCount: vi.RatingsCount,
		Genres:      vi.Categories,
	}
	if len(vi.PublishedDate) >= 4 {
		fmt.Sscanf(vi.PublishedDate[:4], "%d", &book.PublishYear)
	}
	for _, id := range vi.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			book.ISBN13 = id.Identifier
		case "ISBN_10":
			book.ISBN10 = id.Identifier
		}
	}
	if vi.ImageLinks != nil {
		cover := vi.ImageLinks.Thumbnail
		if cover == "" {
			cover = vi.ImageLinks.SmallThumbnail
		}
		book.CoverURL = strings.Replace(cover, "http://", "https://", 1)
	}
	if book.ISBN13 != "" || book.ISBN10 != "" {
		book.Editions = []models.Edition{{
			ISBN13:      book.ISBN13,
			ISBN10:      book.ISBN10,
			Title:       vi.Title,
			Publisher:   vi.Publisher,
			PublishYear: book.PublishYear,
			Language:    vi.Language,
			PageCount:   vi.PageCount,
		}}
	}
	return book
}
