package domain

import "time"

// Rating is one immutable record of a rater's score for a book.
// At most one exists per (book, rater); enforced by a unique key in storage.
type Rating struct {
	BookID    int64
	RaterID   string
	Score     int // 1-5
	CreatedAt time.Time
}

// RatingSummary is the aggregate snapshot kept on the book row.
type RatingSummary struct {
	AverageRating float64
	RatingsCount  int64
}
