package app

import (
	"context"
	"fmt"
	"time"

	"libris/internal/domain"
)

type QueryService struct {
	repo     domain.BookRepository
	ratings  domain.RatingStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.BookRepository, rs domain.RatingStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, ratings: rs, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	key := fmt.Sprintf("book:%d", id)
	var b domain.Book
	if ok, _ := s.cache.Get(ctx, key, &b); ok {
		return b, nil
	}
	b, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return domain.Book{}, err
	}
	_ = s.cache.Set(ctx, key, b, int(s.cacheTTL.Seconds()))
	return b, nil
}

// SearchBooks hits the database directly; query shapes are too varied for the
// id-keyed cache to pay off.
func (s *QueryService) SearchBooks(ctx context.Context, q domain.BooksQuery) (domain.BooksPage, error) {
	return s.repo.SearchBooks(ctx, q)
}

func (s *QueryService) RatingSummary(ctx context.Context, bookID int64) (domain.RatingSummary, error) {
	key := fmt.Sprintf("summary:%d", bookID)
	var sum domain.RatingSummary
	if ok, _ := s.cache.Get(ctx, key, &sum); ok {
		return sum, nil
	}
	sum, err := s.ratings.Summary(ctx, bookID)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	_ = s.cache.Set(ctx, key, sum, int(s.cacheTTL.Seconds()))
	return sum, nil
}
