// file: internal/engine/merge.go
// version: 1.1.0
// guid: b6d3e597-3cde-440f-ae0d-5f3e38801e6b

package engine

import (
	"log"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// MergedRecord is one canonical entity built from several provider answers.
type MergedRecord struct {
	Kind   models.EntityKind `json:"kind"`
	Entity models.Entity     `json:"entity"`
	// Provenance maps each populated field to the providers that supplied
	// it. Scalar fields have exactly one provider; list fields list every
	// contributor in priority order.
	Provenance map[string][]string `json:"provenance"`
	// Sources lists the providers that contributed at least one field.
	Sources []string `json:"sources"`
	// Contributions are the inputs, kept so one provider's answer can be
	// replaced without asking the others again.
	Contributions []ProviderResult `json:"contributions"`
}

// Merger resolves fields across provider results. Scalars come from the
// first result, in the given order, that has a non-empty value; list fields
// are unioned with case-insensitive de-duplication.
type Merger struct{}

// NewMerger creates a merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Merge combines results, which must already be in priority order. Results
// whose entity kind differs from the first result's are ignored. A provider
// appearing more than once only contributes its first result.
func (m *Merger) Merge(results []ProviderResult) *MergedRecord {
	rec := &MergedRecord{Provenance: make(map[string][]string)}

	seen := make(map[string]bool)
	for _, r := range results {
		if r.Entity.IsEmpty() || seen[r.ProviderID] {
			continue
		}
		if rec.Kind == models.KindNone {
			rec.Kind = r.Entity.Kind()
		}
		if r.Entity.Kind() != rec.Kind {
			log.Printf("[WARN] merger: ignoring %s result from provider %s while merging %s",
				r.Entity.Kind(), r.ProviderID, rec.Kind)
			continue
		}
		seen[r.ProviderID] = true
		rec.Contributions = append(rec.Contributions, r)
	}

	f := newFieldMerger(rec.Provenance)
	switch rec.Kind {
	case models.KindAuthor:
		out := &models.Author{}
		for _, c := range rec.Contributions {
			f.author(out, c.Entity.Author, c.ProviderID)
		}
		rec.Entity.Author = out
	case models.KindBook:
		out := &models.Book{}
		for _, c := range rec.Contributions {
			f.book(out, c.Entity.Book, c.ProviderID)
		}
		rec.Entity.Book = out
	case models.KindSeries:
		out := &models.Series{}
		for _, c := range rec.Contributions {
			f.series(out, c.Entity.Series, c.ProviderID)
		}
		rec.Entity.Series = out
	}
	rec.Sources = f.sources()
	return rec
}

// Remerge replaces the contribution of updated.ProviderID in prev, or adds
// it, and resolves the record again. Other contributions are reused as is.
func (m *Merger) Remerge(prev *MergedRecord, updated ProviderResult) *MergedRecord {
	var results []ProviderResult
	if prev != nil {
		for _, c := range prev.Contributions {
			if c.ProviderID != updated.ProviderID {
				results = append(results, c)
			}
		}
	}
	results = append(results, updated)
	sortResults(results)
	return m.Merge(results)
}

func sortResults(results []ProviderResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Priority != results[j].Priority {
			return results[i].Priority < results[j].Priority
		}
		return results[i].ProviderID < results[j].ProviderID
	})
}

// fieldMerger accumulates values and provenance for one merge.
type fieldMerger struct {
	prov   map[string][]string
	fold   cases.Caser
	used   map[string]bool
	order  []string
	listed map[string]map[string]bool
}

func newFieldMerger(prov map[string][]string) *fieldMerger {
	return &fieldMerger{
		prov:   prov,
		fold:   cases.Fold(),
		used:   make(map[string]bool),
		listed: make(map[string]map[string]bool),
	}
}

func (f *fieldMerger) credit(field, provider string) {
	if !f.used[provider] {
		f.used[provider] = true
		f.order = append(f.order, provider)
	}
	for _, p := range f.prov[field] {
		if p == provider {
			return
		}
	}
	f.prov[field] = append(f.prov[field], provider)
}

func (f *fieldMerger) sources() []string {
	return f.order
}

func (f *fieldMerger) key(s string) string {
	return f.fold.String(norm.NFC.String(strings.Join(strings.Fields(s), " ")))
}

func (f *fieldMerger) str(dst *string, src, field, provider string) {
	if *dst == "" && strings.TrimSpace(src) != "" {
		*dst = strings.TrimSpace(src)
		f.credit(field, provider)
	}
}

func (f *fieldMerger) num(dst *int, src int, field, provider string) {
	if *dst == 0 && src != 0 {
		*dst = src
		f.credit(field, provider)
	}
}

func (f *fieldMerger) float(dst *float64, src float64, field, provider string) {
	if *dst == 0 && src != 0 {
		*dst = src
		f.credit(field, provider)
	}
}

// union appends values not yet present, comparing case-insensitively and
// keeping the first spelling seen.
func (f *fieldMerger) union(dst *[]string, src []string, field, provider string) {
	seen := f.listed[field]
	if seen == nil {
		seen = make(map[string]bool)
		for _, v := range *dst {
			seen[f.key(v)] = true
		}
		f.listed[field] = seen
	}
	for _, v := range src {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := f.key(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		*dst = append(*dst, v)
		f.credit(field, provider)
	}
}

func (f *fieldMerger) author(dst, src *models.Author, provider string) {
	if src == nil {
		return
	}
	f.str(&dst.ForeignID, src.ForeignID, "foreign_id", provider)
	f.str(&dst.Name, src.Name, "name", provider)
	f.str(&dst.SortName, src.SortName, "sort_name", provider)
	f.str(&dst.Description, src.Description, "description", provider)
	f.str(&dst.ImageURL, src.ImageURL, "image_url", provider)
	f.str(&dst.Website, src.Website, "website", provider)
	f.str(&dst.BirthDate, src.BirthDate, "birth_date", provider)
	f.float(&dst.Rating, src.Rating, "rating", provider)
	f.num(&dst.RatingCount, src.RatingCount, "rating_count", provider)
	f.union(&dst.AlternateNames, src.AlternateNames, "alternate_names", provider)
	f.union(&dst.Genres, src.Genres, "genres", provider)
}

func (f *fieldMerger) book(dst, src *models.Book, provider string) {
	if src == nil {
		return
	}
	f.str(&dst.ForeignID, src.ForeignID, "foreign_id", provider)
	f.str(&dst.Title, src.Title, "title", provider)
	f.str(&dst.Subtitle, src.Subtitle, "subtitle", provider)
	f.union(&dst.Authors, src.Authors, "authors", provider)
	f.union(&dst.Narrators, src.Narrators, "narrators", provider)
	f.str(&dst.Description, src.Description, "description", provider)
	f.str(&dst.Publisher, src.Publisher, "publisher", provider)
	f.num(&dst.PublishYear, src.PublishYear, "publish_year", provider)
	f.str(&dst.Language, src.Language, "language", provider)
	f.str(&dst.ISBN10, src.ISBN10, "isbn10", provider)
	f.str(&dst.ISBN13, src.ISBN13, "isbn13", provider)
	f.str(&dst.ASIN, src.ASIN, "asin", provider)
	f.str(&dst.CoverURL, src.CoverURL, "cover_url", provider)
	f.str(&dst.SeriesName, src.SeriesName, "series_name", provider)
	f.str(&dst.SeriesPosition, src.SeriesPosition, "series_position", provider)
	f.num(&dst.PageCount, src.PageCount, "page_count", provider)
	f.float(&dst.Rating, src.Rating, "rating", provider)
	f.num(&dst.RatingCount, src.RatingCount, "rating_count", provider)
	f.union(&dst.Genres, src.Genres, "genres", provider)
	f.editions(dst, src.Editions, provider)
}

// editions unions editions by identifier key; the first edition seen for a
// key is kept whole.
func (f *fieldMerger) editions(dst *models.Book, src []models.Edition, provider string) {
	seen := f.listed["editions"]
	if seen == nil {
		seen = make(map[string]bool)
		f.listed["editions"] = seen
	}
	for _, e := range src {
		k := f.key(e.Key())
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		dst.Editions = append(dst.Editions, e)
		f.credit("editions", provider)
	}
}

func (f *fieldMerger) series(dst, src *models.Series, provider string) {
	if src == nil {
		return
	}
	f.str(&dst.ForeignID, src.ForeignID, "foreign_id", provider)
	f.str(&dst.Name, src.Name, "name", provider)
	f.str(&dst.Description, src.Description, "description", provider)

	seen := f.listed["entries"]
	if seen == nil {
		seen = make(map[string]bool)
		f.listed["entries"] = seen
	}
	for _, e := range src.Entries {
		k := f.key(e.Position + "|" + e.Title)
		if strings.TrimSpace(e.Title) == "" || seen[k] {
			continue
		}
		seen[k] = true
		dst.Entries = append(dst.Entries, e)
		f.credit("entries", provider)
	}
}
