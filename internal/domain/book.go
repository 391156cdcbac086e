package domain

// Kind discriminates catalog entries.
const (
	KindBook  = "book"
	KindComic = "comic"
)

type Book struct {
	ID            int64
	Title         string
	Author        *string
	ISBN          *string
	Kind          string // book|comic
	PublishedYear *int
	Publisher     *string
	Description   *string
	CoverURL      *string
	Subjects      []string
	RatingSum     int64
	RatingsCount  int64
	AverageRating float64
	RawJSON       []byte // full upstream payload when imported
}

// BookPatch carries the mutable metadata fields for an update.
// Rating aggregates are never written through this path.
type BookPatch struct {
	Title         *string
	Author        *string
	Kind          *string
	PublishedYear *int
	Publisher     *string
	Description   *string
	CoverURL      *string
	Subjects      []string
}
