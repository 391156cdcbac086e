package mysql

const createBookSQL = `
INSERT INTO books
  (title, author, isbn, kind, published_year, publisher, description, cover_url, subjects, raw)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const deleteBookSQL = `DELETE FROM books WHERE id = ?`

// Keyed on the unique isbn; COALESCE keeps the stored value when the new one is
// NULL. Rating aggregates are deliberately absent from the update list.
// LAST_INSERT_ID(id) makes ExecResult.LastInsertId yield the existing row's id
// on the update path, so callers always learn which book the upsert touched.
const upsertImportedSQL = `
INSERT INTO books
  (title, author, isbn, kind, published_year, publisher, description, cover_url, subjects, raw)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  id             = LAST_INSERT_ID(id),
  title          = VALUES(title),
  author         = COALESCE(VALUES(author), books.author),
  kind           = VALUES(kind),
  published_year = COALESCE(VALUES(published_year), books.published_year),
  publisher      = COALESCE(VALUES(publisher), books.publisher),
  description    = COALESCE(VALUES(description), books.description),
  cover_url      = COALESCE(VALUES(cover_url), books.cover_url),
  subjects       = COALESCE(VALUES(subjects), books.subjects),
  raw            = COALESCE(VALUES(raw), books.raw),
  updated_at     = CURRENT_TIMESTAMP
`

const insertMissSQL = `
INSERT INTO import_misses (isbn, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE seen_at = CURRENT_TIMESTAMP
`

const getBookSQL = `
SELECT
  id, title, author, isbn, kind, published_year, publisher,
  description, cover_url, subjects, rating_sum, ratings_count, average_rating
FROM books
WHERE id = ?
`

// -----------------------------------------------------------------------------
// RATING LEDGER + AGGREGATE
// -----------------------------------------------------------------------------

// The unique key uq_ratings_book_rater is the authoritative uniqueness
// guarantee; a concurrent submission that loses the race surfaces as a 1062.
const insertRatingSQL = `
INSERT INTO ratings (book_id, rater_id, score)
VALUES (?, ?, ?)
`

// Incremental mean, O(1). The average is recomputed from the exact integer
// rating_sum, so no floating-point drift accumulates across updates. The row
// lock taken by the statement serializes concurrent raters of the same book;
// the average assignment reads the pre-update sum and count.
const applyRatingSQL = `
UPDATE books
SET average_rating = (rating_sum + ?) / (ratings_count + 1),
    rating_sum     = rating_sum + ?,
    ratings_count  = ratings_count + 1
WHERE id = ?
`

const ratingSummarySQL = `
SELECT average_rating, ratings_count
FROM books
WHERE id = ?
`

const ratingCreatedAtSQL = `
SELECT created_at
FROM ratings
WHERE book_id = ? AND rater_id = ?
`

const listRatingsByRaterSQL = `
SELECT book_id, rater_id, score, created_at
FROM ratings
WHERE rater_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`
