package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bookcart/apiserver/internal/services"
	"github.com/bookcart/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

// CartHandler provides authenticated shopping cart endpoints.
type CartHandler struct {
	cartService *services.CartService
}

// NewCartHandler constructs a handler with the provided service.
func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// CartRouter registers cart routes on the given router.
func CartRouter(r chi.Router, cartService *services.CartService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewCartHandler(cartService)

	r.Use(authMiddleware)
	r.Get("/{userID}", handler.GetCart)
	r.Delete("/{userID}", handler.ClearCart)
	r.Post("/{userID}/{bookID}", handler.AddToCart)
	r.Put("/{userID}/{bookID}", handler.RemoveOneCopy)
	r.Delete("/{userID}/{bookID}", handler.RemoveFromCart)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizedUserID(w, r)
	if !ok {
		return
	}

	items, err := h.cartService.Snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizedUserID(w, r)
	if !ok {
		return
	}
	bookID, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil || bookID < 1 {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	count, err := h.cartService.AddBook(r.Context(), userID, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to add book to cart")
		return
	}
	writeJSON(w, http.StatusOK, count)
}

func (h *CartHandler) RemoveOneCopy(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizedUserID(w, r)
	if !ok {
		return
	}
	bookID, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil || bookID < 1 {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	count, err := h.cartService.RemoveOneCopy(r.Context(), userID, bookID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	writeJSON(w, http.StatusOK, count)
}

func (h *CartHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizedUserID(w, r)
	if !ok {
		return
	}
	bookID, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil || bookID < 1 {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	count, err := h.cartService.RemoveBook(r.Context(), userID, bookID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	writeJSON(w, http.StatusOK, count)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizedUserID(w, r)
	if !ok {
		return
	}

	if err := h.cartService.Clear(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizedUserID parses the path user id and checks it matches the token
// subject; a user may only touch their own cart.
func (h *CartHandler) authorizedUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}

	subject, err := userIDFromContext(r.Context())
	if err != nil || subject != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return 0, false
	}
	return userID, true
}
