// file: internal/metadata/factory.go
// version: 1.0.0
// guid: 6446dcdc-10c4-4a33-a2e8-ce14e6b0f97f

package metadata

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// Kind describes one adapter implementation: its static capabilities and
// how to build an instance from a settings blob.
type Kind struct {
	Name         string
	DisplayName  string
	Capabilities models.Capabilities
	New          func(settings json.RawMessage) (MetadataSource, error)
}

var kinds = map[string]Kind{
	KindOpenLibrary: {
		Name:        KindOpenLibrary,
		DisplayName: "Open Library",
		Capabilities: models.Capabilities{
			AuthorSearch: true,
			BookSearch:   true,
			ISBNLookup:   true,
			Covers:       true,
			Ratings:      true,
		},
		New: func(raw json.RawMessage) (MetadataSource, error) {
			var s OpenLibrarySettings
			if err := decodeSettings(KindOpenLibrary, raw, &s); err != nil {
				return nil, err
			}
			return newOpenLibraryClient(s)
		},
	},
	KindGoogleBooks: {
		Name:        KindGoogleBooks,
		DisplayName: "Google Books",
		Capabilities: models.Capabilities{
			BookSearch:   true,
			ISBNLookup:   true,
			Covers:       true,
			Ratings:      true,
			Descriptions: true,
		},
		New: func(raw json.RawMessage) (MetadataSource, error) {
			var s GoogleBooksSettings
			if err := decodeSettings(KindGoogleBooks, raw, &s); err != nil {
				return nil, err
			}
			return newGoogleBooksClient(s)
		},
	},
	KindAudnexus: {
		Name:        KindAudnexus,
		DisplayName: "Audnexus (Audible)",
		Capabilities: models.Capabilities{
			AuthorSearch: true,
			ASINLookup:   true,
			Covers:       true,
			Descriptions: true,
		},
		New: func(raw json.RawMessage) (MetadataSource, error) {
			var s AudnexusSettings
			if err := decodeSettings(KindAudnexus, raw, &s); err != nil {
				return nil, err
			}
			return newAudnexusClient(s)
		},
	},
	KindHardcover: {
		Name:        KindHardcover,
		DisplayName: "Hardcover",
		Capabilities: models.Capabilities{
			BookSearch:   true,
			SeriesInfo:   true,
			Covers:       true,
			Ratings:      true,
			Descriptions: true,
		},
		New: func(raw json.RawMessage) (MetadataSource, error) {
			var s HardcoverSettings
			if err := decodeSettings(KindHardcover, raw, &s); err != nil {
				return nil, err
			}
			return newHardcoverClient(s)
		},
	},
}

// Kinds lists every registered implementation kind sorted by name.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupKind returns the kind registered under name.
func LookupKind(name string) (Kind, bool) {
	k, ok := kinds[name]
	return k, ok
}

// Catalog exposes the registered kinds to the provider registry and builds
// adapter instances for the router.
type Catalog struct{}

// NewCatalog returns the catalog of built-in adapter kinds.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Capabilities returns the static capability declaration of kind.
func (c *Catalog) Capabilities(kind string) (models.Capabilities, bool) {
	k, ok := kinds[kind]
	if !ok {
		return models.Capabilities{}, false
	}
	return k.Capabilities, true
}

// ValidateSettings builds a throwaway instance so every settings check the
// constructor makes also runs at save time.
func (c *Catalog) ValidateSettings(kind string, settings json.RawMessage) error {
	_, err := c.Build(kind, settings)
	return err
}

// Build creates an adapter instance of kind configured by settings.
func (c *Catalog) Build(kind string, settings json.RawMessage) (MetadataSource, error) {
	k, ok := kinds[kind]
	if !ok {
		return nil, configError(kind, "unknown implementation %q", kind)
	}
	src, err := k.New(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s adapter: %w", kind, err)
	}
	return src, nil
}

var (
	_ AuthorSearcher = (*OpenLibraryClient)(nil)
	_ BookSearcher   = (*OpenLibraryClient)(nil)
	_ ISBNLookup     = (*OpenLibraryClient)(nil)
	_ Tester         = (*OpenLibraryClient)(nil)
	_ BookSearcher   = (*GoogleBooksClient)(nil)
	_ ISBNLookup     = (*GoogleBooksClient)(nil)
	_ Tester         = (*GoogleBooksClient)(nil)
	_ AuthorSearcher = (*AudnexusClient)(nil)
	_ ASINLookup     = (*AudnexusClient)(nil)
	_ Tester         = (*AudnexusClient)(nil)
	_ BookSearcher   = (*HardcoverClient)(nil)
	_ SeriesLookup   = (*HardcoverClient)(nil)
	_ Tester         = (*HardcoverClient)(nil)
)
