// file: internal/engine/invoke.go
// version: 1.0.0
// guid: c3a9e1fd-32a6-4894-b641-885e8a015e82

package engine

import (
	"context"
	"errors"

	"github.com/DS09AT/Shelvance-sub001/internal/matcher"
	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// errCannotServe marks an adapter that has no operation able to answer
// this particular request, e.g. an identifier-only covers request sent to a
// search-only provider. The candidate is skipped, not failed.
var errCannotServe = errors.New("adapter cannot serve request")

// invoke dispatches req to the capability interface src implements. Search
// operations are narrowed to the single best match. A zero Entity with a
// nil error means the provider answered without data.
func invoke(ctx context.Context, src metadata.MetadataSource, req LookupRequest) (models.Entity, error) {
	switch req.Capability {
	case models.CapAuthorSearch:
		s, ok := src.(metadata.AuthorSearcher)
		if !ok {
			return models.Entity{}, errCannotServe
		}
		return searchAuthor(ctx, s, req)
	case models.CapBookSearch:
		s, ok := src.(metadata.BookSearcher)
		if !ok {
			return models.Entity{}, errCannotServe
		}
		return searchBook(ctx, s, req)
	case models.CapISBNLookup:
		s, ok := src.(metadata.ISBNLookup)
		if !ok {
			return models.Entity{}, errCannotServe
		}
		return bookEntity(s.LookupISBN(ctx, req.Identifier))
	case models.CapASINLookup:
		s, ok := src.(metadata.ASINLookup)
		if !ok {
			return models.Entity{}, errCannotServe
		}
		return bookEntity(s.LookupASIN(ctx, req.Identifier))
	case models.CapSeriesInfo:
		s, ok := src.(metadata.SeriesLookup)
		if !ok {
			return models.Entity{}, errCannotServe
		}
		q := req.Query
		if q == "" {
			q = req.Identifier
		}
		series, err := s.LookupSeries(ctx, q)
		if err != nil || series == nil {
			return models.Entity{}, err
		}
		return models.Entity{Series: series}, nil
	case models.CapCovers, models.CapRatings, models.CapDescriptions:
		return lookupBook(ctx, src, req)
	}
	return models.Entity{}, errCannotServe
}

// lookupBook answers the book-attribute capabilities with whichever book
// operation the adapter offers, preferring exact identifier lookups.
func lookupBook(ctx context.Context, src metadata.MetadataSource, req LookupRequest) (models.Entity, error) {
	if req.Identifier != "" {
		if s, ok := src.(metadata.ISBNLookup); ok {
			return bookEntity(s.LookupISBN(ctx, req.Identifier))
		}
		if s, ok := src.(metadata.ASINLookup); ok {
			return bookEntity(s.LookupASIN(ctx, req.Identifier))
		}
	}
	if s, ok := src.(metadata.BookSearcher); ok && req.Query != "" {
		return searchBook(ctx, s, req)
	}
	return models.Entity{}, errCannotServe
}

func searchAuthor(ctx context.Context, s metadata.AuthorSearcher, req LookupRequest) (models.Entity, error) {
	authors, err := s.SearchAuthors(ctx, req.Query, req.Limit)
	if err != nil {
		return models.Entity{}, err
	}
	m, ok := matcher.BestAuthor(req.Query, authors)
	if !ok {
		return models.Entity{}, nil
	}
	a := authors[m.Index]
	return models.Entity{Author: &a}, nil
}

func searchBook(ctx context.Context, s metadata.BookSearcher, req LookupRequest) (models.Entity, error) {
	books, err := s.SearchBooks(ctx, req.Query, req.Author, req.Limit)
	if err != nil {
		return models.Entity{}, err
	}
	m, ok := matcher.BestBook(req.Query, req.Author, books)
	if !ok {
		return models.Entity{}, nil
	}
	b := books[m.Index]
	return models.Entity{Book: &b}, nil
}

func bookEntity(book *models.Book, err error) (models.Entity, error) {
	if err != nil || book == nil {
		return models.Entity{}, err
	}
	return models.Entity{Book: book}, nil
}
