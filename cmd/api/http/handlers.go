package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/books-catalog/cmd/api/book"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Nonstandard status for a request the client abandoned, as logged by nginx.
const statusClientClosedRequest = 499

type BookHandler struct {
	bookService    book.ServiceAPI
	log            *zap.Logger
	requestTimeout time.Duration
	metrics        *Metrics
}

func NewBookHandler(bookService book.ServiceAPI, log *zap.Logger, requestTimeout time.Duration) *BookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookHandler{
		bookService:    bookService,
		log:            log,
		requestTimeout: requestTimeout,
	}
}

/* Bounds every catalog request with the configured timeout. */
func (h *BookHandler) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.requestTimeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BookEntry fields are pointers so a missing field can be told apart from an
// empty one. Price accepts a JSON number or a string.
type BookEntry struct {
	Title  *string             `json:"title"`
	Author *string             `json:"author"`
	Price  jsoniter.RawMessage `json:"price"`
}

/* Validates the entry, then appends it to the catalog. */
func (h *BookHandler) addBook(w http.ResponseWriter, r *http.Request) {
	var bookEntry BookEntry
	err := json.NewDecoder(r.Body).Decode(&bookEntry) //Read the Json body and save the entry to bookEntry
	if err != nil {
		h.log.Info("invalid book entry", zap.Error(err))
		errR := book.ErrResponse{
			Code:    book.ErrResponseEntryInvalidJSON.Code,
			Message: book.ErrResponseEntryInvalidJSON.Message + err.Error(),
		}
		responseJSON(w, http.StatusBadRequest, errR)
		return
	}

	b, err := entryToBook(bookEntry)
	if err != nil {
		var errR book.ErrResponse
		if !errors.As(err, &errR) {
			errR = book.ErrResponseEntryInvalidJSON
		}
		responseJSON(w, http.StatusBadRequest, errR)
		return
	}

	entry, err := h.bookService.AddBook(r.Context(), book.AddBookRequest{
		Title:  b.Title(),
		Author: b.Author(),
		Price:  b.Price(),
	})
	if err != nil {
		h.serviceError(w, "AddBook", err)
		return
	}

	if h.metrics != nil {
		h.metrics.BooksAdded.Inc()
	}
	responseJSON(w, http.StatusCreated, entryToResponse(entry))
}

func (h *BookHandler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.log.Info("invalid entry id", zap.Error(err))
		responseJSON(w, http.StatusBadRequest, book.ErrResponseIdInvalidFormat)
		return
	}

	entry, err := h.bookService.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, book.ErrResponseBookNotFound) {
			responseJSON(w, http.StatusNotFound, book.ErrResponseBookNotFound)
			return
		}
		h.serviceError(w, "GetEntry", err)
		return
	}

	responseJSON(w, http.StatusOK, entryToResponse(entry))
}

/* Lists the catalog in insertion order, or only the books of '?author=' when given. */
func (h *BookHandler) listBooks(w http.ResponseWriter, r *http.Request) {
	var books []book.Book
	var err error

	query := r.URL.Query()
	if query.Has("author") {
		books, err = h.bookService.FindByAuthor(r.Context(), query.Get("author"))
	} else {
		books, err = h.bookService.ListBooks(r.Context())
	}
	if err != nil {
		h.serviceError(w, "ListBooks", err)
		return
	}

	responseJSON(w, http.StatusOK, booksToResponse(books))
}

func (h *BookHandler) titles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.bookService.Titles(r.Context())
	if err != nil {
		h.serviceError(w, "Titles", err)
		return
	}
	if titles == nil {
		titles = []string{}
	}

	responseJSON(w, http.StatusOK, TitlesResponse{Titles: titles})
}

func (h *BookHandler) totalPrice(w http.ResponseWriter, r *http.Request) {
	total, err := h.bookService.TotalPrice(r.Context())
	if err != nil {
		h.serviceError(w, "TotalPrice", err)
		return
	}

	responseJSON(w, http.StatusOK, TotalPriceResponse{TotalPrice: total})
}

func (h *BookHandler) cheapest(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.Cheapest(r.Context())
	if err != nil {
		h.serviceError(w, "Cheapest", err)
		return
	}

	responseJSON(w, http.StatusOK, booksToResponse(books))
}

func (h *BookHandler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.bookService.Summary(r.Context())
	if err != nil {
		h.serviceError(w, "Summary", err)
		return
	}

	titles := s.Titles
	if titles == nil {
		titles = []string{}
	}
	responseJSON(w, http.StatusOK, SummaryResponse{
		Count:         s.Count,
		TotalPrice:    s.TotalPrice,
		CheapestPrice: s.CheapestPrice,
		Titles:        titles,
	})
}

/* Maps a service error to its status code and logs it. */
func (h *BookHandler) serviceError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		h.log.Warn("request timed out", zap.String("op", op), zap.Error(err))
		responseJSON(w, http.StatusGatewayTimeout, book.ErrResponseRequestTimeout)
		return
	}
	if errors.Is(err, context.Canceled) {
		h.log.Warn("request canceled by the client", zap.String("op", op), zap.Error(err))
		w.WriteHeader(statusClientClosedRequest)
		return
	}

	h.log.Error("catalog operation failed", zap.String("op", op), zap.Error(err))
	var errR book.ErrResponse
	if errors.As(err, &errR) && errR.Code == book.ErrResponseFromRepository.Code {
		responseJSON(w, http.StatusInternalServerError, errR)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
}

/* Verifies that all entry fields are present and that the price is a decimal number. */
func entryToBook(bookEntry BookEntry) (book.Book, error) {
	raw := strings.TrimSpace(string(bookEntry.Price))
	if bookEntry.Title == nil || bookEntry.Author == nil || raw == "" || raw == "null" {
		return book.Book{}, book.ErrResponseBookEntryBlankFields
	}

	price := raw
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(bookEntry.Price, &price); err != nil {
			return book.Book{}, book.ErrResponsePriceInvalidFormat
		}
	}

	return book.Parse(*bookEntry.Title, *bookEntry.Author, price)
}

type BookResponse struct {
	Title  string          `json:"title"`
	Author string          `json:"author"`
	Price  decimal.Decimal `json:"price"`
}

type EntryResponse struct {
	ID       uuid.UUID       `json:"id"`
	Position uint64          `json:"position"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	Price    decimal.Decimal `json:"price"`
}

type TitlesResponse struct {
	Titles []string `json:"titles"`
}

type TotalPriceResponse struct {
	TotalPrice decimal.Decimal `json:"total_price"`
}

type SummaryResponse struct {
	Count         int              `json:"count"`
	TotalPrice    decimal.Decimal  `json:"total_price"`
	CheapestPrice *decimal.Decimal `json:"cheapest_price"`
	Titles        []string         `json:"titles"`
}

/*Copy the fields of a book object to an http layer struct with json tags*/
func bookToResponse(b book.Book) BookResponse {
	return BookResponse{
		Title:  b.Title(),
		Author: b.Author(),
		Price:  b.Price(),
	}
}

func booksToResponse(books []book.Book) []BookResponse {
	results := []BookResponse{}
	for _, b := range books {
		results = append(results, bookToResponse(b))
	}
	return results
}

func entryToResponse(e book.Entry) EntryResponse {
	return EntryResponse{
		ID:       e.ID,
		Position: e.Position,
		Title:    e.Book.Title(),
		Author:   e.Book.Author(),
		Price:    e.Book.Price(),
	}
}

/*Writes a JSON response into a http.ResponseWriter. */
func responseJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
