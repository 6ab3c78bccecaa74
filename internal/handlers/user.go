package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/bookcart/apiserver/internal/services"
	"github.com/bookcart/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

// UserHandler provides registration, username validation and the cart item
// count lookup the storefront header polls.
type UserHandler struct {
	userService *services.UserService
	cartService *services.CartService
}

// NewUserHandler constructs a handler with the provided services.
func NewUserHandler(userService *services.UserService, cartService *services.CartService) *UserHandler {
	return &UserHandler{
		userService: userService,
		cartService: cartService,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, cartService *services.CartService) {
	handler := NewUserHandler(userService, cartService)

	r.Post("/", handler.Register)
	r.Get("/validateUserName/{userName}", handler.ValidateUserName)
	r.Get("/{userID}", handler.CartItemCount)
}

// CartItemCount returns the number of items in the user's cart. Guests and
// unknown users get 0.
func (h *UserHandler) CartItemCount(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	count, err := h.cartService.ItemCount(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count cart items")
		return
	}

	writeJSON(w, http.StatusOK, count)
}

// ValidateUserName reports whether the username is still available.
func (h *UserHandler) ValidateUserName(w http.ResponseWriter, r *http.Request) {
	userName := strings.TrimSpace(chi.URLParam(r, "userName"))
	if userName == "" {
		writeError(w, http.StatusBadRequest, "invalid username")
		return
	}

	available, err := h.userService.CheckUsernameAvailable(r.Context(), userName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check username")
		return
	}

	writeJSON(w, http.StatusOK, available)
}

// Register creates a new user account.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	reg := services.Registration{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		Gender:    strings.TrimSpace(req.Gender),
	}
	if problems := services.ValidateRegistration(reg); len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Message: "Validation failed",
			Errors:  problems,
		})
		return
	}

	if _, err := h.userService.Register(r.Context(), reg); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			writeJSON(w, http.StatusConflict, MessageResponse{Message: "Username already exists"})
			return
		}
		// Storage detail stays in the server log.
		log.Printf("register %q: %v", reg.Username, err)
		writeJSON(w, http.StatusInternalServerError, MessageResponse{
			Message: "Registration failed",
			Error:   "unexpected storage failure",
		})
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Registration successful"})
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Gender    string `json:"gender"`
}

// ValidationErrorResponse carries field-level validation problems.
type ValidationErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}
