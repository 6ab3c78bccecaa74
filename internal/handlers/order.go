package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bookcart/apiserver/internal/services"
	"github.com/bookcart/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

// OrderHandler provides checkout and order history endpoints.
type OrderHandler struct {
	orderService *services.OrderService
}

// NewOrderHandler constructs a handler with the provided service.
func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CheckoutRouter registers the checkout route on the given router.
func CheckoutRouter(r chi.Router, orderService *services.OrderService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewOrderHandler(orderService)

	r.Use(authMiddleware)
	r.Post("/{userID}", handler.Checkout)
}

// OrderRouter registers the order history route on the given router.
func OrderRouter(r chi.Router, orderService *services.OrderService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewOrderHandler(orderService)

	r.Use(authMiddleware)
	r.Get("/{userID}", handler.ListOrders)
	r.Get("/{userID}/receipt/{orderID}", handler.Receipt)
}

// Checkout converts the user's cart into an order. An empty cart is a
// client error, not a retryable failure.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizedUserID(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.Checkout(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrEmptyCart) {
			writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "Cart is empty"})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to place order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ListOrders returns the user's order history.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizedUserID(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// Receipt streams the archived receipt for one of the user's orders.
func (h *OrderHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizedUserID(w, r)
	if !ok {
		return
	}
	orderID, err := strconv.Atoi(chi.URLParam(r, "orderID"))
	if err != nil || orderID < 1 {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	receipt, err := h.orderService.Receipt(r.Context(), userID, orderID)
	if err != nil {
		writeError(w, http.StatusNotFound, "receipt not found")
		return
	}
	defer receipt.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, receipt)
}

func (h *OrderHandler) authorizedUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
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
