package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"libris/internal/domain"
)

// CatalogService covers the create/update/delete surface for catalog entries.
type CatalogService struct {
	repo  domain.BookRepository
	cache domain.Cache
}

func NewCatalogService(r domain.BookRepository, c domain.Cache) *CatalogService {
	return &CatalogService{repo: r, cache: c}
}

func (s *CatalogService) CreateBook(ctx context.Context, b domain.Book) (int64, error) {
	if strings.TrimSpace(b.Title) == "" {
		return 0, fmt.Errorf("title is required")
	}
	if b.Kind == "" {
		b.Kind = domain.KindBook
	}
	if b.Kind != domain.KindBook && b.Kind != domain.KindComic {
		return 0, fmt.Errorf("kind must be %q or %q", domain.KindBook, domain.KindComic)
	}
	// New entries start unrated; the aggregate only ever moves through the
	// rating ledger.
	b.RatingSum, b.RatingsCount, b.AverageRating = 0, 0, 0
	return s.repo.CreateBook(ctx, b)
}

func (s *CatalogService) UpdateBook(ctx context.Context, id int64, p domain.BookPatch) error {
	if p.Kind != nil && *p.Kind != domain.KindBook && *p.Kind != domain.KindComic {
		return fmt.Errorf("kind must be %q or %q", domain.KindBook, domain.KindComic)
	}
	if err := s.repo.UpdateBook(ctx, id, p); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CatalogService) DeleteBook(ctx context.Context, id int64) error {
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, fmt.Sprintf("book:%d", id))
	_ = s.cache.Del(ctx, fmt.Sprintf("summary:%d", id))
}

// ImportService bulk-loads catalog entries by ISBN, enriching them from the
// upstream bibliographic API.
type ImportService struct {
	client domain.MetadataClient
	repo   domain.BookRepository
	cache  domain.Cache
}

func NewImportService(c domain.MetadataClient, r domain.BookRepository, cache domain.Cache) *ImportService {
	return &ImportService{client: c, repo: r, cache: cache}
}

// ImportBook fetches the edition record for isbn and upserts it. Upstream
// 404/401/403 are recorded as misses and do not fail the run; anything else
// (network, 5xx after retries, decode) bubbles up.
func (s *ImportService) ImportBook(ctx context.Context, isbn string) error {
	payload, err := s.client.GetEdition(ctx, isbn)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			_ = s.repo.LogMiss(ctx, isbn, 404, "not found")
			return nil
		case isAuthErr(err):
			_ = s.repo.LogMiss(ctx, isbn, 403, "rejected")
			return nil
		}
		return err
	}

	book := mapEdition(isbn, payload)

	// Enrichment: resolve the first author's name with a second lookup.
	// Best-effort; an unresolvable author never fails the import.
	if book.Author == nil {
		for _, key := range authorKeys(payload) {
			author, aerr := s.client.GetAuthor(ctx, key)
			if aerr != nil {
				if errors.Is(aerr, domain.ErrNotFound) || isAuthErr(aerr) {
					continue
				}
				return aerr
			}
			if name := mapAuthorName(author); name != "" {
				book.Author = &name
				break
			}
		}
	}

	id, err := s.repo.UpsertImported(ctx, book)
	if err != nil {
		return fmt.Errorf("upsert imported %s: %w", isbn, err)
	}

	// Drop any cached snapshot of a re-imported entry.
	if s.cache != nil && id > 0 {
		_ = s.cache.Del(ctx, fmt.Sprintf("book:%d", id))
	}
	return nil
}

func isAuthErr(err error) bool {
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "401") || strings.Contains(low, "unauthorized") ||
		strings.Contains(low, "403") || strings.Contains(low, "forbidden")
}
