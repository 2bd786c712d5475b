// file: internal/models/metadata.go
// version: 2.0.0
// guid: f078cbce-79c3-4ea3-855a-3879cd3b529c

package models

// Author is the normalized author entity returned by metadata providers.
type Author struct {
	ForeignID      string   `json:"foreign_id,omitempty"`
	Name           string   `json:"name"`
	SortName       string   `json:"sort_name,omitempty"`
	Description    string   `json:"description,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	Website        string   `json:"website,omitempty"`
	BirthDate      string   `json:"birth_date,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	RatingCount    int      `json:"rating_count,omitempty"`
	AlternateNames []string `json:"alternate_names,omitempty"`
	Genres         []string `json:"genres,omitempty"`
}

// Edition is one published form of a book (print, ebook, audiobook).
type Edition struct {
	ISBN13      string `json:"isbn13,omitempty"`
	ISBN10      string `json:"isbn10,omitempty"`
	ASIN        string `json:"asin,omitempty"`
	Title       string `json:"title,omitempty"`
	Format      string `json:"format,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	PublishYear int    `json:"publish_year,omitempty"`
	Language    string `json:"language,omitempty"`
	PageCount   int    `json:"page_count,omitempty"`
	Narrator    string `json:"narrator,omitempty"`
}

// Key identifies an edition across providers. Empty when the edition
// carries no usable identifier.
func (e Edition) Key() string {
	switch {
	case e.ISBN13 != "":
		return "isbn13:" + e.ISBN13
	case e.ISBN10 != "":
		return "isbn10:" + e.ISBN10
	case e.ASIN != "":
		return "asin:" + e.ASIN
	case e.Title != "":
		return "title:" + e.Title + "|" + e.Format
	}
	return ""
}

// Book is the normalized work-level entity returned by metadata providers.
type Book struct {
	ForeignID      string    `json:"foreign_id,omitempty"`
	Title          string    `json:"title"`
	Subtitle       string    `json:"subtitle,omitempty"`
	Authors        []string  `json:"authors,omitempty"`
	Narrators      []string  `json:"narrators,omitempty"`
	Description    string    `json:"description,omitempty"`
	Publisher      string    `json:"publisher,omitempty"`
	PublishYear    int       `json:"publish_year,omitempty"`
	Language       string    `json:"language,omitempty"`
	ISBN10         string    `json:"isbn10,omitempty"`
	ISBN13         string    `json:"isbn13,omitempty"`
	ASIN           string    `json:"asin,omitempty"`
	CoverURL       string    `json:"cover_url,omitempty"`
	SeriesName     string    `json:"series_name,omitempty"`
	SeriesPosition string    `json:"series_position,omitempty"`
	PageCount      int       `json:"page_count,omitempty"`
	Rating         float64   `json:"rating,omitempty"`
	RatingCount    int       `json:"rating_count,omitempty"`
	Genres         []string  `json:"genres,omitempty"`
	Editions       []Edition `json:"editions,omitempty"`
}

// SeriesEntry is one book's position inside a series.
type SeriesEntry struct {
	Position string `json:"position,omitempty"`
	Title    string `json:"title"`
	ASIN     string `json:"asin,omitempty"`
}

// Series is the normalized series entity.
type Series struct {
	ForeignID   string        `json:"foreign_id,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Entries     []SeriesEntry `json:"entries,omitempty"`
}

// Entity holds exactly one of the normalized entity kinds.
type Entity struct {
	Author *Author `json:"author,omitempty"`
	Book   *Book   `json:"book,omitempty"`
	Series *Series `json:"series,omitempty"`
}

// EntityKind names the kind of entity held by an Entity.
type EntityKind string

const (
	KindNone   EntityKind = ""
	KindAuthor EntityKind = "author"
	KindBook   EntityKind = "book"
	KindSeries EntityKind = "series"
)

// Kind reports which entity is populated.
func (e Entity) Kind() EntityKind {
	switch {
	case e.Author != nil:
		return KindAuthor
	case e.Book != nil:
		return KindBook
	case e.Series != nil:
		return KindSeries
	}
	return KindNone
}

// IsEmpty reports whether no entity is populated.
func (e Entity) IsEmpty() bool {
	return e.Kind() == KindNone
}
