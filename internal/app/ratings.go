package app

import (
	"context"
	"fmt"
	"math"

	"libris/internal/domain"
)

// RatingService is the write path for ratings: validate the score, hand the
// event to the ledger, and evict the now-stale cached snapshots. Uniqueness
// and the aggregate update are the ledger's job; no in-process locks are held
// across store round-trips, so concurrent submissions from other processes
// are handled identically.
type RatingService struct {
	ledger domain.RatingStore
	cache  domain.Cache
}

func NewRatingService(l domain.RatingStore, c domain.Cache) *RatingService {
	return &RatingService{ledger: l, cache: c}
}

// SubmitRating records raterID's score for a book exactly once and returns
// the updated aggregate snapshot. The score must be an integral value in
// [1,5]; anything else fails with ErrInvalidScore before storage is touched.
func (s *RatingService) SubmitRating(ctx context.Context, bookID int64, raterID string, score float64) (domain.Rating, domain.RatingSummary, error) {
	if score < 1 || score > 5 || score != math.Trunc(score) {
		return domain.Rating{}, domain.RatingSummary{}, domain.ErrInvalidScore
	}

	rating, sum, err := s.ledger.Record(ctx, bookID, raterID, int(score))
	if err != nil {
		return domain.Rating{}, domain.RatingSummary{}, err
	}

	if s.cache != nil {
		s.invalidateBook(ctx, bookID)
	}
	return rating, sum, nil
}

// RaterHistory lists a rater's recorded ratings, newest first.
func (s *RatingService) RaterHistory(ctx context.Context, raterID string, pg domain.PageQuery) ([]domain.Rating, error) {
	return s.ledger.ListByRater(ctx, raterID, pg)
}

func (s *RatingService) invalidateBook(ctx context.Context, bookID int64) {
	_ = s.cache.Del(ctx, fmt.Sprintf("book:%d", bookID))
	_ = s.cache.Del(ctx, fmt.Sprintf("summary:%d", bookID))
}
