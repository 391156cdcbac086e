package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"libris/internal/adapters/observability"
	"libris/internal/app"
	"libris/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	C *app.CatalogService
	R *app.RatingService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1/books", func(r chi.Router) {
		r.Get("/", h.listBooks)
		r.Post("/", h.createBook)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getBook)
			r.Put("/", h.updateBook)
			r.Delete("/", h.deleteBook)
			r.Post("/ratings", h.submitRating)
			r.Get("/ratings", h.getRatingSummary)
		})
	})
	s.mux.Get("/v1/raters/{raterID}/ratings", h.raterHistory)
}

/********** request/response shapes **********/

type bookPayload struct {
	Title         *string  `json:"title"`
	Author        *string  `json:"author"`
	ISBN          *string  `json:"isbn"`
	Kind          *string  `json:"kind"`
	PublishedYear *int     `json:"publishedYear"`
	Publisher     *string  `json:"publisher"`
	Description   *string  `json:"description"`
	CoverURL      *string  `json:"coverUrl"`
	Subjects      []string `json:"subjects"`
}

type bookResponse struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Author        *string  `json:"author,omitempty"`
	ISBN          *string  `json:"isbn,omitempty"`
	Kind          string   `json:"kind"`
	PublishedYear *int     `json:"publishedYear,omitempty"`
	Publisher     *string  `json:"publisher,omitempty"`
	Description   *string  `json:"description,omitempty"`
	CoverURL      *string  `json:"coverUrl,omitempty"`
	Subjects      []string `json:"subjects,omitempty"`
	AverageRating float64  `json:"averageRating"`
	RatingsCount  int64    `json:"ratingsCount"`
}

type summaryResponse struct {
	AverageRating float64 `json:"averageRating"`
	RatingsCount  int64   `json:"ratingsCount"`
}

// Score is a pointer so an absent field is distinguishable from zero; a
// non-integral or out-of-range value is the service's call, not ours.
type ratingRequest struct {
	Score *float64 `json:"score"`
}

type historyItem struct {
	BookID    int64     `json:"bookId"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

func toBookResponse(b domain.Book) bookResponse {
	return bookResponse{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		ISBN:          b.ISBN,
		Kind:          b.Kind,
		PublishedYear: b.PublishedYear,
		Publisher:     b.Publisher,
		Description:   b.Description,
		CoverURL:      b.CoverURL,
		Subjects:      b.Subjects,
		AverageRating: b.AverageRating,
		RatingsCount:  b.RatingsCount,
	}
}

/********** helpers **********/

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

/********** catalog handlers **********/

func (h *Handlers) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	b, err := h.Q.GetBook(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "book not found")
			return
		}
		log.Error().Err(err).Int64("id", id).Msg("get book failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	etag, body := calcETagAndBody(toBookResponse(b))
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getBook body")
	}
}

func (h *Handlers) listBooks(w http.ResponseWriter, r *http.Request) {
	q := domain.BooksQuery{Limit: 50}
	if v := strings.TrimSpace(r.URL.Query().Get("q")); v != "" {
		q.Q = &v
	}
	if v := strings.TrimSpace(r.URL.Query().Get("author")); v != "" {
		q.Author = &v
	}
	if v := strings.TrimSpace(r.URL.Query().Get("kind")); v != "" {
		if v != domain.KindBook && v != domain.KindComic {
			writeProblem(w, http.StatusBadRequest, "Invalid kind", "kind must be book or comic")
			return
		}
		q.Kind = &v
	}
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		q.Limit = l
	}

	page, err := h.Q.SearchBooks(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("search books failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	items := make([]bookResponse, 0, len(page.Items))
	for _, b := range page.Items {
		items = append(items, toBookResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) createBook(w http.ResponseWriter, r *http.Request) {
	var req bookPayload
	if err := decodeBody(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "unable to parse request body")
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Error", "title is required")
		return
	}

	b := domain.Book{
		Title:         strings.TrimSpace(*req.Title),
		Author:        req.Author,
		ISBN:          req.ISBN,
		PublishedYear: req.PublishedYear,
		Publisher:     req.Publisher,
		Description:   req.Description,
		CoverURL:      req.CoverURL,
		Subjects:      req.Subjects,
	}
	if req.Kind != nil {
		b.Kind = *req.Kind
	}

	id, err := h.C.CreateBook(r.Context(), b)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			writeProblem(w, http.StatusConflict, "Conflict", "a book with this ISBN already exists")
			return
		}
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Error", err.Error())
		return
	}

	created, err := h.Q.GetBook(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("read back created book failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Location", "/v1/books/"+strconv.FormatInt(id, 10))
	writeJSON(w, http.StatusCreated, toBookResponse(created))
}

func (h *Handlers) updateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var req bookPayload
	if err := decodeBody(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "unable to parse request body")
		return
	}
	if req.ISBN != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Error", "isbn cannot be changed")
		return
	}

	patch := domain.BookPatch{
		Title:         req.Title,
		Author:        req.Author,
		Kind:          req.Kind,
		PublishedYear: req.PublishedYear,
		Publisher:     req.Publisher,
		Description:   req.Description,
		CoverURL:      req.CoverURL,
		Subjects:      req.Subjects,
	}
	if err := h.C.UpdateBook(r.Context(), id, patch); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "book not found")
			return
		}
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Error", err.Error())
		return
	}

	updated, err := h.Q.GetBook(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("read back updated book failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	writeJSON(w, http.StatusOK, toBookResponse(updated))
}

func (h *Handlers) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	if err := h.C.DeleteBook(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "book not found")
			return
		}
		log.Error().Err(err).Int64("id", id).Msg("delete book failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/********** rating handlers **********/

func (h *Handlers) submitRating(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}

	raterID := strings.TrimSpace(r.Header.Get("X-Rater-Id"))
	if raterID == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing rater identity")
		return
	}

	var req ratingRequest
	if err := decodeBody(w, r, &req); err != nil {
		// covers non-numeric scores and malformed JSON alike
		observability.ObserveRating("invalid")
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid Score", "score must be a number")
		return
	}
	if req.Score == nil {
		observability.ObserveRating("invalid")
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid Score", "score is required")
		return
	}

	_, sum, err := h.R.SubmitRating(r.Context(), id, raterID, *req.Score)
	switch {
	case err == nil:
		observability.ObserveRating("accepted")
		writeJSON(w, http.StatusCreated, summaryResponse{AverageRating: sum.AverageRating, RatingsCount: sum.RatingsCount})
	case errors.Is(err, domain.ErrInvalidScore):
		observability.ObserveRating("invalid")
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid Score", err.Error())
	case errors.Is(err, domain.ErrDuplicateRating):
		observability.ObserveRating("duplicate")
		writeProblem(w, http.StatusConflict, "Already Rated", "you have already rated this book")
	case errors.Is(err, domain.ErrNotFound):
		// data-integrity signal, not a user mistake; log it loudly
		observability.ObserveRating("not_found")
		log.Warn().Int64("book_id", id).Str("rater_id", raterID).Msg("rating submitted for missing book")
		writeProblem(w, http.StatusNotFound, "Not Found", "book not found")
	default:
		observability.ObserveRating("error")
		log.Error().Err(err).Int64("book_id", id).Msg("submit rating failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "failed to record rating")
	}
}

func (h *Handlers) getRatingSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	sum, err := h.Q.RatingSummary(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "book not found")
			return
		}
		log.Error().Err(err).Int64("id", id).Msg("rating summary failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{AverageRating: sum.AverageRating, RatingsCount: sum.RatingsCount})
}

func (h *Handlers) raterHistory(w http.ResponseWriter, r *http.Request) {
	raterID := strings.TrimSpace(chi.URLParam(r, "raterID"))
	if raterID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Rater", "rater id is required")
		return
	}
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	ratings, err := h.R.RaterHistory(r.Context(), raterID, domain.PageQuery{Limit: limit})
	if err != nil {
		log.Error().Err(err).Str("rater_id", raterID).Msg("rater history failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	items := make([]historyItem, 0, len(ratings))
	for _, rt := range ratings {
		items = append(items, historyItem{BookID: rt.BookID, Score: rt.Score, CreatedAt: rt.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
