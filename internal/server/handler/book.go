package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// BookHandler serves the live book state of the currently running
// simulation out of the cache.
type BookHandler struct {
	books  domain.BookCache
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler backed by the given cache.
func NewBookHandler(books domain.BookCache, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		books:  books,
		logger: logger.With(slog.String("handler", "books")),
	}
}

// GetBook returns the cached book snapshot for a product.
// GET /api/books/{product}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	product := r.PathValue("product")
	snap, err := h.books.GetSnapshot(r.Context(), product)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no book for product")
		return
	}
	if err != nil {
		h.logger.Error("get book", slog.String("product", product), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to get book")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetBBO returns just the best bid and ask for a product.
// GET /api/books/{product}/bbo
func (h *BookHandler) GetBBO(w http.ResponseWriter, r *http.Request) {
	product := r.PathValue("product")
	bid, ask, err := h.books.GetBBO(r.Context(), product)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no book for product")
		return
	}
	if err != nil {
		h.logger.Error("get bbo", slog.String("product", product), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to get bbo")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product": product,
		"bid":     bid,
		"ask":     ask,
	})
}
