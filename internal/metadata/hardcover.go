// file: internal/metadata/hardcover.go
// version: 2.0.0
// guid: e7e02554-8931-49ba-9528-d3d51279da1d

package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

const (
	KindHardcover               = "hardcover"
	defaultHardcoverURL         = "https://api.hardcover.app/v1/graphql"
	defaultHardcoverRequestsMin = 60
)

// HardcoverSettings is the settings blob of a hardcover provider.
type HardcoverSettings struct {
	BaseURL           string `json:"base_url,omitempty"`
	Token             string `json:"token"`
	RequestsPerMinute int    `json:"requests_per_minute,omitempty"`
}

// HardcoverClient fetches metadata from the Hardcover.app GraphQL API.
// Requires a Bearer token for authentication.
type HardcoverClient struct {
	api     *apiClient
	limiter *rate.Limiter
}

// NewHardcoverClientWithBaseURL creates a client with a custom base URL (for testing).
func NewHardcoverClientWithBaseURL(baseURL, apiToken string) (*HardcoverClient, error) {
	return newHardcoverClient(HardcoverSettings{BaseURL: baseURL, Token: apiToken})
}

func newHardcoverClient(s HardcoverSettings) (*HardcoverClient, error) {
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s.Token), "Bearer "))
	if token == "" {
		return nil, configError(KindHardcover, "token is required")
	}
	if s.BaseURL == "" {
		s.BaseURL = defaultHardcoverURL
	}
	if s.RequestsPerMinute <= 0 {
		s.RequestsPerMinute = defaultHardcoverRequestsMin
	}
	base, err := parseBaseURL(KindHardcover, s.BaseURL)
	if err != nil {
		return nil, err
	}
	api := newAPIClient(KindHardcover, base)
	api.headers["Authorization"] = "Bearer " + token
	return &HardcoverClient{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.RequestsPerMinute)), s.RequestsPerMinute),
	}, nil
}

// Name returns the display name for this metadata source.
func (c *HardcoverClient) Name() string {
	return "Hardcover"
}

type hardcoverGraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type hardcoverError struct {
	Message string `json:"message"`
}

type hardcoverSearchResponse struct {
	Data *struct {
		SearchBooks *struct {
			Results *struct {
				Hits []struct {
					Document hardcoverDocument `json:"document"`
				} `json:"hits"`
			} `json:"results"`
		} `json:"search_books"`
	} `json:"data"`
	Errors []hardcoverError `json:"errors"`
}

type hardcoverDocument struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Subtitle     string          `json:"subtitle"`
	AuthorNames  []string        `json:"author_names"`
	Image        *hardcoverImage `json:"image"`
	Description  string          `json:"description"`
	ReleaseYear  int             `json:"release_year"`
	Slug         string          `json:"slug"`
	Publisher    string          `json:"publisher"`
	ISBNs        []string        `json:"isbns"`
	Rating       float64         `json:"rating"`
	RatingsCount int             `json:"ratings_count"`
	Genres       []string        `json:"genres"`
	SeriesNames  []string        `json:"series_names"`
}

type hardcoverImage struct {
	URL string `json:"url"`
}

type hardcoverSeriesResponse struct {
	Data *struct {
		Series []struct {
			ID          int    `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			BookSeries  []struct {
				Position float64 `json:"position"`
				Book     struct {
					Title string `json:"title"`
				} `json:"book"`
			} `json:"book_series"`
		} `json:"series"`
	} `json:"data"`
	Errors []hardcoverError `json:"errors"`
}

const hardcoverSearchQuery = `query SearchBooks($query: String!, $limit: Int!) {
  search_books(query: $query, limit: $limit) {
    results { hits { document {
      id title subtitle author_names image { url } description release_year
      slug publisher isbns rating ratings_count genres series_names
    } } }
  }
}`

const hardcoverSeriesQuery = `query SeriesByName($name: String!) {
  series(where: {name: {_ilike: $name}}, limit: 1) {
    id name description
    book_series(order_by: {position: asc}) { position book { title } }
  }
}`

const hardcoverMeQuery = `query { me { id } }`

// execute waits for a rate limiter slot and posts a GraphQL request.
// A limiter wait that cannot complete before the deadline is treated as
// throttling, not as a caller cancellation.
func (c *HardcoverClient) execute(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return &ProviderError{Provider: KindHardcover, Class: ClassCanceled, Err: ctx.Err()}
		}
		return operationalError(KindHardcover, 0, fmt.Errorf("rate limited: %w", err))
	}
	return c.api.postJSON(ctx, "", hardcoverGraphQLRequest{Query: query, Variables: vars}, out)
}

func graphQLError(errs []hardcoverError) error {
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Message
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "jwt") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "permission") {
		return configError(KindHardcover, "graphql: %s", msg)
	}
	return operationalError(KindHardcover, 0, fmt.Errorf("graphql: %s", msg))
}

// SearchBooks searches Hardcover by title. The search endpoint takes a
// single query string, so the author is appended to it.
func (c *HardcoverClient) SearchBooks(ctx context.Context, title, author string, limit int) ([]models.Book, error) {
	query := strings.TrimSpace(title + " " + author)
	var resp hardcoverSearchResponse
	err := c.execute(ctx, hardcoverSearchQuery, map[string]interface{}{"query": query, "limit": clampLimit(limit)}, &resp)
	if err != nil {
		if errors.Is(err, errNoContent) {
			return nil, nil
		}
		return nil, err
	}
	if err := graphQLError(resp.Errors); err != nil {
		return nil, err
	}
	if resp.Data == nil || resp.Data.SearchBooks == nil || resp.Data.SearchBooks.Results == nil {
		return nil, nil
	}

	hits := resp.Data.SearchBooks.Results.Hits
	results := make([]models.Book, 0, len(hits))
	for _, hit := range hits {
		results = append(results, documentToBook(hit.Document))
	}
	return results, nil
}

func documentToBook(doc hardcoverDocument) models.Book {
	book := models.Book{
		ForeignID:   "hc:" + doc.ID,
		Title:       doc.Title,
		Subtitle:    doc.Subtitle,
		Authors:     doc.AuthorNames,
		Description: doc.Description,
		Publisher:   doc.Publisher,
		PublishYear: doc.ReleaseYear,
		Rating:      doc.Rating,
		RatingCount: doc.RatingsCount,
		Genres:      doc.Genres,
	}
	if doc.ID == "" {
		book.ForeignID = "hc:" + doc.Slug
	}
	if doc.Image != nil {
		book.CoverURL = doc.Image.URL
	}
	for _, isbn := range doc.ISBNs {
		if len(isbn) == 13 && book.ISBN13 == "" {
			book.ISBN13 = isbn
		} else if len(isbn) == 10 && book.ISBN10 == "" {
			book.ISBN10 = isbn
		}
	}
	if len(doc.SeriesNames) > 0 {
		book.SeriesName = doc.SeriesNames[0]
	}
	return book
}

// LookupSeries resolves a series by name, with its books in reading order.
func (c *HardcoverClient) LookupSeries(ctx context.Context, name string) (*models.Series, error) {
	var resp hardcoverSeriesResponse
	if err := c.execute(ctx, hardcoverSeriesQuery, map[string]interface{}{"name": name}, &resp); err != nil {
		if errors.Is(err, errNoContent) {
			return nil, nil
		}
		return nil, err
	}
	if err := graphQLError(resp.Errors); err != nil {
		return nil, err
	}
	if resp.Data == nil || len(resp.Data.Series) == 0 {
		return nil, nil
	}

	s := resp.Data.Series[0]
	series := &models.Series{
		ForeignID:   fmt.Sprintf("hc:%d", s.ID),
		Name:        s.Name,
		Description: s.Description,
	}
	for _, bs := range s.BookSeries {
		series.Entries = append(series.Entries, models.SeriesEntry{
			Position: formatPosition(bs.Position),
			Title:    bs.Book.Title,
		})
	}
	return series, nil
}

// Test checks the token against the authenticated user endpoint.
func (c *HardcoverClient) Test(ctx context.Context) error {
	var resp struct {
		Errors []hardcoverError `json:"errors"`
	}
	if err := c.execute(ctx, hardcoverMeQuery, nil, &resp); err != nil {
		return probeError(KindHardcover, err)
	}
	return graphQLError(resp.Errors)
}

func formatPosition(p float64) string {
	if p == float64(int(p)) {
		return fmt.Sprintf("%d", int(p))
	}
	return fmt.Sprintf("%g", p)
}
