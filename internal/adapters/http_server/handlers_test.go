package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpserver "libris/internal/adapters/http_server"
	"libris/internal/app"
	"libris/internal/domain"
)

/********** fakes **********/

type stubRepo struct {
	books map[int64]domain.Book
}

func (s *stubRepo) CreateBook(ctx context.Context, b domain.Book) (int64, error) { return 1, nil }
func (s *stubRepo) UpdateBook(ctx context.Context, id int64, p domain.BookPatch) error {
	return nil
}
func (s *stubRepo) DeleteBook(ctx context.Context, id int64) error                 { return nil }
func (s *stubRepo) UpsertImported(ctx context.Context, b domain.Book) (int64, error) { return 1, nil }
func (s *stubRepo) LogMiss(ctx context.Context, isbn string, status int, reason string) error {
	return nil
}

func (s *stubRepo) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	b, ok := s.books[id]
	if !ok {
		return domain.Book{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *stubRepo) SearchBooks(ctx context.Context, q domain.BooksQuery) (domain.BooksPage, error) {
	var out []domain.Book
	for _, b := range s.books {
		out = append(out, b)
	}
	return domain.BooksPage{Items: out}, nil
}

// stubLedger replays a scripted outcome per Record call.
type stubLedger struct {
	err     error
	summary domain.RatingSummary
	calls   int
}

func (s *stubLedger) Record(ctx context.Context, bookID int64, raterID string, score int) (domain.Rating, domain.RatingSummary, error) {
	s.calls++
	if s.err != nil {
		return domain.Rating{}, domain.RatingSummary{}, s.err
	}
	return domain.Rating{BookID: bookID, RaterID: raterID, Score: score, CreatedAt: time.Now()}, s.summary, nil
}

func (s *stubLedger) ListByRater(ctx context.Context, raterID string, pg domain.PageQuery) ([]domain.Rating, error) {
	return []domain.Rating{{BookID: 7, RaterID: raterID, Score: 4, CreatedAt: time.Unix(0, 0)}}, nil
}

func (s *stubLedger) Summary(ctx context.Context, bookID int64) (domain.RatingSummary, error) {
	return s.summary, nil
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string, dst any) (bool, error) { return false, nil }
func (noopCache) Set(ctx context.Context, key string, v any, ttlSec int) error { return nil }
func (noopCache) Del(ctx context.Context, key string) error                    { return nil }

func newTestServer(repo *stubRepo, ledger *stubLedger) http.Handler {
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{
		Q: app.NewQueryService(repo, ledger, noopCache{}, time.Minute),
		C: app.NewCatalogService(repo, noopCache{}),
		R: app.NewRatingService(ledger, noopCache{}),
	})
	return srv.Mux()
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

/********** rating endpoint **********/

func TestSubmitRating_MissingIdentity(t *testing.T) {
	ledger := &stubLedger{}
	h := newTestServer(&stubRepo{}, ledger)

	rr := do(t, h, "POST", "/v1/books/1/ratings", `{"score":4}`, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: %d", rr.Code)
	}
	if ledger.calls != 0 {
		t.Fatal("ledger must not be touched without a rater identity")
	}
}

func TestSubmitRating_InvalidScores(t *testing.T) {
	hdr := map[string]string{"X-Rater-Id": "alice"}
	cases := []string{
		`{"score":"five"}`, // wrong type
		`{"score":0}`,
		`{"score":6}`,
		`{"score":1.5}`,
		`{}`, // absent
	}
	for _, body := range cases {
		ledger := &stubLedger{}
		h := newTestServer(&stubRepo{}, ledger)
		rr := do(t, h, "POST", "/v1/books/1/ratings", body, hdr)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("body %s: status %d, want 422", body, rr.Code)
		}
		if ledger.calls != 0 {
			t.Errorf("body %s: ledger touched on invalid input", body)
		}
	}
}

func TestSubmitRating_AcceptedReturnsSnapshot(t *testing.T) {
	ledger := &stubLedger{summary: domain.RatingSummary{AverageRating: 3.0, RatingsCount: 2}}
	h := newTestServer(&stubRepo{}, ledger)

	rr := do(t, h, "POST", "/v1/books/1/ratings", `{"score":2}`, map[string]string{"X-Rater-Id": "bob"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: %d body: %s", rr.Code, rr.Body.String())
	}
	var got struct {
		AverageRating float64 `json:"averageRating"`
		RatingsCount  int64   `json:"ratingsCount"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.AverageRating != 3.0 || got.RatingsCount != 2 {
		t.Fatalf("snapshot: %+v", got)
	}
}

func TestSubmitRating_Duplicate(t *testing.T) {
	ledger := &stubLedger{err: domain.ErrDuplicateRating}
	h := newTestServer(&stubRepo{}, ledger)

	rr := do(t, h, "POST", "/v1/books/1/ratings", `{"score":5}`, map[string]string{"X-Rater-Id": "alice"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type: %q", ct)
	}
}

func TestSubmitRating_MissingBook(t *testing.T) {
	ledger := &stubLedger{err: domain.ErrNotFound}
	h := newTestServer(&stubRepo{}, ledger)

	rr := do(t, h, "POST", "/v1/books/99/ratings", `{"score":3}`, map[string]string{"X-Rater-Id": "alice"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestGetRatingSummary(t *testing.T) {
	ledger := &stubLedger{summary: domain.RatingSummary{AverageRating: 4.5, RatingsCount: 10}}
	h := newTestServer(&stubRepo{}, ledger)

	rr := do(t, h, "GET", "/v1/books/1/ratings", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	var got struct {
		AverageRating float64 `json:"averageRating"`
		RatingsCount  int64   `json:"ratingsCount"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.AverageRating != 4.5 || got.RatingsCount != 10 {
		t.Fatalf("summary: %+v", got)
	}
}

func TestRaterHistory(t *testing.T) {
	h := newTestServer(&stubRepo{}, &stubLedger{})

	rr := do(t, h, "GET", "/v1/raters/alice/ratings", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	var got struct {
		Items []struct {
			BookID int64 `json:"bookId"`
			Score  int   `json:"score"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].BookID != 7 || got.Items[0].Score != 4 {
		t.Fatalf("items: %+v", got.Items)
	}
}

/********** book endpoints **********/

func TestGetBook_ETagRoundTrip(t *testing.T) {
	repo := &stubRepo{books: map[int64]domain.Book{
		5: {ID: 5, Title: "Dune", Kind: domain.KindBook, AverageRating: 4, RatingsCount: 1},
	}}
	h := newTestServer(repo, &stubLedger{})

	rr := do(t, h, "GET", "/v1/books/5", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	rr2 := do(t, h, "GET", "/v1/books/5", "", map[string]string{"If-None-Match": etag})
	if rr2.Code != http.StatusNotModified {
		t.Fatalf("conditional status: %d", rr2.Code)
	}
}

func TestGetBook_NotFound(t *testing.T) {
	h := newTestServer(&stubRepo{}, &stubLedger{})

	rr := do(t, h, "GET", "/v1/books/404", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestCreateBook_RequiresTitle(t *testing.T) {
	h := newTestServer(&stubRepo{books: map[int64]domain.Book{}}, &stubLedger{})

	rr := do(t, h, "POST", "/v1/books", `{"kind":"book"}`, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestUpdateBook_RejectsISBNChange(t *testing.T) {
	repo := &stubRepo{books: map[int64]domain.Book{1: {ID: 1, Title: "Maus", Kind: domain.KindComic}}}
	h := newTestServer(repo, &stubLedger{})

	rr := do(t, h, "PUT", "/v1/books/1", `{"isbn":"123"}`, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestListBooks_InvalidKind(t *testing.T) {
	h := newTestServer(&stubRepo{}, &stubLedger{})

	rr := do(t, h, "GET", "/v1/books?kind=zine", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rr.Code)
	}
}
