// file: internal/metadata/source.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-e1f2a3b4c5d6

// Package metadata contains the external metadata provider adapters. Each
// adapter implements only the capability interfaces its upstream API can
// serve. A nil result with a nil error means the provider answered but had
// no data.
package metadata

import (
	"context"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// MetadataSource is the base of every adapter.
type MetadataSource interface {
	Name() string
}

// AuthorSearcher finds authors by name.
type AuthorSearcher interface {
	SearchAuthors(ctx context.Context, name string, limit int) ([]models.Author, error)
}

// BookSearcher finds books by title, optionally narrowed by author.
type BookSearcher interface {
	SearchBooks(ctx context.Context, title, author string, limit int) ([]models.Book, error)
}

// ISBNLookup resolves a single book by ISBN-10 or ISBN-13.
type ISBNLookup interface {
	LookupISBN(ctx context.Context, isbn string) (*models.Book, error)
}

// ASINLookup resolves a single book by Audible ASIN.
type ASINLookup interface {
	LookupASIN(ctx context.Context, asin string) (*models.Book, error)
}

// SeriesLookup resolves a series by name or provider identifier.
type SeriesLookup interface {
	LookupSeries(ctx context.Context, query string) (*models.Series, error)
}

// Tester performs a cheap authenticated request to verify configuration.
type Tester interface {
	Test(ctx context.Context) error
}
