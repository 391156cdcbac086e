package domain

import "context"

type BookRepository interface {
	// Write paths
	CreateBook(ctx context.Context, b Book) (int64, error)
	UpdateBook(ctx context.Context, id int64, p BookPatch) error
	DeleteBook(ctx context.Context, id int64) error
	UpsertImported(ctx context.Context, b Book) (int64, error)
	LogMiss(ctx context.Context, isbn string, status int, reason string) error

	// Read paths
	GetBook(ctx context.Context, id int64) (Book, error)
	SearchBooks(ctx context.Context, q BooksQuery) (BooksPage, error)
}

// RatingStore is the ledger of rating events plus the aggregate maintainer.
type RatingStore interface {
	// Record persists one rating event and applies the O(1) aggregate update
	// to the book row, both inside a single transaction. Returns the event and
	// the fresh aggregate snapshot. ErrDuplicateRating when the (book, rater)
	// pair already rated; ErrNotFound when the book does not exist — in both
	// cases nothing is persisted.
	Record(ctx context.Context, bookID int64, raterID string, score int) (Rating, RatingSummary, error)

	ListByRater(ctx context.Context, raterID string, pg PageQuery) ([]Rating, error)
	Summary(ctx context.Context, bookID int64) (RatingSummary, error)
}

// MetadataClient fetches bibliographic records from the upstream catalog API.
type MetadataClient interface {
	GetEdition(ctx context.Context, isbn string) (map[string]any, error)
	GetAuthor(ctx context.Context, key string) (map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries

type BooksQuery struct {
	Q      *string // LIKE match on title/author
	Author *string
	Kind   *string
	Limit  int
}

type BooksPage struct {
	Items []Book
}

type PageQuery struct {
	Limit int
}
