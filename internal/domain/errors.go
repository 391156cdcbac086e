package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRating indicates the (book, rater) pair already has a rating.
	// Terminal for the pair; resubmitting deterministically fails again.
	ErrDuplicateRating = errors.New("rating already exists for this book and rater")

	// ErrInvalidScore indicates a score outside 1..5 or a non-integral value.
	ErrInvalidScore = errors.New("score must be an integer between 1 and 5")

	// ErrConflict indicates a uniqueness violation on catalog writes (e.g. ISBN).
	ErrConflict = errors.New("conflict")
)
