package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"libris/internal/domain"
)

// Record writes one rating event and folds it into the book's aggregate inside
// a single transaction. Either both land or neither does, so a rating can
// never dangle without its aggregate update.
//
// The ledger insert relies on uq_ratings_book_rater for uniqueness and the
// book_id foreign key for existence; there is no check-then-act window to
// race through. A concurrent duplicate loses at the constraint and is
// reported as ErrDuplicateRating, same as a sequential one.
func (r *Repo) Record(ctx context.Context, bookID int64, raterID string, score int) (domain.Rating, domain.RatingSummary, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Rating{}, domain.RatingSummary{}, fmt.Errorf("begin rating tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertRatingSQL, bookID, raterID, score); err != nil {
		switch mysqlErrNumber(err) {
		case mysqlErrDupEntry:
			return domain.Rating{}, domain.RatingSummary{}, domain.ErrDuplicateRating
		case mysqlErrNoReferenced:
			return domain.Rating{}, domain.RatingSummary{}, domain.ErrNotFound
		}
		return domain.Rating{}, domain.RatingSummary{}, fmt.Errorf("insert rating: %w", err)
	}

	res, err := tx.ExecContext(ctx, applyRatingSQL, score, score, bookID)
	if err != nil {
		return domain.Rating{}, domain.RatingSummary{}, fmt.Errorf("apply rating aggregate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Rating{}, domain.RatingSummary{}, domain.ErrNotFound
	}

	var sum domain.RatingSummary
	if err := tx.QueryRowContext(ctx, ratingSummarySQL, bookID).Scan(&sum.AverageRating, &sum.RatingsCount); err != nil {
		return domain.Rating{}, domain.RatingSummary{}, fmt.Errorf("read rating summary: %w", err)
	}

	rating := domain.Rating{BookID: bookID, RaterID: raterID, Score: score}
	if err := tx.QueryRowContext(ctx, ratingCreatedAtSQL, bookID, raterID).Scan(&rating.CreatedAt); err != nil {
		return domain.Rating{}, domain.RatingSummary{}, fmt.Errorf("read rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Rating{}, domain.RatingSummary{}, fmt.Errorf("commit rating tx: %w", err)
	}
	return rating, sum, nil
}

func (r *Repo) ListByRater(ctx context.Context, raterID string, pg domain.PageQuery) ([]domain.Rating, error) {
	limit := pg.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, listRatingsByRaterSQL, raterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Rating
	for rows.Next() {
		var rt domain.Rating
		if err := rows.Scan(&rt.BookID, &rt.RaterID, &rt.Score, &rt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Summary(ctx context.Context, bookID int64) (domain.RatingSummary, error) {
	var sum domain.RatingSummary
	err := r.db.QueryRowContext(ctx, ratingSummarySQL, bookID).Scan(&sum.AverageRating, &sum.RatingsCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.RatingSummary{}, domain.ErrNotFound
		}
		return domain.RatingSummary{}, err
	}
	return sum, nil
}
