package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"libris/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// MySQL server error numbers this repo translates to domain errors.
const (
	mysqlErrDupEntry     = 1062
	mysqlErrNoReferenced = 1452
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) CreateBook(ctx context.Context, b domain.Book) (int64, error) {
	subjects, _ := json.Marshal(b.Subjects)
	kind := b.Kind
	if kind == "" {
		kind = domain.KindBook
	}
	res, err := r.db.ExecContext(ctx, createBookSQL,
		b.Title,
		valStr(b.Author),
		valStr(b.ISBN),
		kind,
		valInt(b.PublishedYear),
		valStr(b.Publisher),
		valStr(b.Description),
		valStr(b.CoverURL),
		string(subjects),
		valJSON(b.RawJSON),
	)
	if err != nil {
		if mysqlErrNumber(err) == mysqlErrDupEntry {
			return 0, domain.ErrConflict
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) UpdateBook(ctx context.Context, id int64, p domain.BookPatch) error {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *p.Author)
	}
	if p.Kind != nil {
		sets = append(sets, "kind = ?")
		args = append(args, *p.Kind)
	}
	if p.PublishedYear != nil {
		sets = append(sets, "published_year = ?")
		args = append(args, *p.PublishedYear)
	}
	if p.Publisher != nil {
		sets = append(sets, "publisher = ?")
		args = append(args, *p.Publisher)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.CoverURL != nil {
		sets = append(sets, "cover_url = ?")
		args = append(args, *p.CoverURL)
	}
	if p.Subjects != nil {
		b, _ := json.Marshal(p.Subjects)
		sets = append(sets, "subjects = ?")
		args = append(args, string(b))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	q := "UPDATE books SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either missing or a no-op update; disambiguate with a lookup.
		if _, gerr := r.GetBook(ctx, id); gerr != nil {
			return gerr
		}
	}
	return nil
}

func (r *Repo) DeleteBook(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteBookSQL, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) UpsertImported(ctx context.Context, b domain.Book) (int64, error) {
	subjects, _ := json.Marshal(b.Subjects)
	kind := b.Kind
	if kind == "" {
		kind = domain.KindBook
	}
	res, err := r.db.ExecContext(ctx, upsertImportedSQL,
		b.Title,
		valStr(b.Author),
		valStr(b.ISBN),
		kind,
		valInt(b.PublishedYear),
		valStr(b.Publisher),
		valStr(b.Description),
		valStr(b.CoverURL),
		string(subjects),
		valJSON(b.RawJSON),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) LogMiss(ctx context.Context, isbn string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, isbn, status, reason)
	return err
}

func (r *Repo) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	row := r.db.QueryRowContext(ctx, getBookSQL, id)
	b, err := scanBook(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Book{}, domain.ErrNotFound
		}
		return domain.Book{}, err
	}
	return b, nil
}

func (r *Repo) SearchBooks(ctx context.Context, q domain.BooksQuery) (domain.BooksPage, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if q.Q != nil {
		like := "%" + *q.Q + "%"
		where = append(where, "(title LIKE ? OR author LIKE ?)")
		args = append(args, like, like)
	}
	if q.Author != nil {
		where = append(where, "author = ?")
		args = append(args, *q.Author)
	}
	if q.Kind != nil {
		where = append(where, "kind = ?")
		args = append(args, *q.Kind)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	sqlStr := `
SELECT
  id, title, author, isbn, kind, published_year, publisher,
  description, cover_url, subjects, rating_sum, ratings_count, average_rating
FROM books`
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY id LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return domain.BooksPage{}, err
	}
	defer rows.Close()

	var out []domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return domain.BooksPage{}, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return domain.BooksPage{}, err
	}
	return domain.BooksPage{Items: out}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (domain.Book, error) {
	var b domain.Book
	var (
		author, isbn, publisher, desc, cover sql.NullString
		year                                 sql.NullInt64
		subjectsJSON                         []byte
	)
	if err := row.Scan(
		&b.ID,
		&b.Title,
		&author,
		&isbn,
		&b.Kind,
		&year,
		&publisher,
		&desc,
		&cover,
		&subjectsJSON,
		&b.RatingSum,
		&b.RatingsCount,
		&b.AverageRating,
	); err != nil {
		return domain.Book{}, err
	}
	if author.Valid {
		s := author.String
		b.Author = &s
	}
	if isbn.Valid {
		s := isbn.String
		b.ISBN = &s
	}
	if year.Valid {
		y := int(year.Int64)
		b.PublishedYear = &y
	}
	if publisher.Valid {
		s := publisher.String
		b.Publisher = &s
	}
	if desc.Valid {
		s := desc.String
		b.Description = &s
	}
	if cover.Valid {
		s := cover.String
		b.CoverURL = &s
	}
	_ = json.Unmarshal(subjectsJSON, &b.Subjects)
	return b, nil
}
