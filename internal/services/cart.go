package services

import (
	"context"

	"github.com/bookcart/apiserver/types"
)

// CartRepository defines persistence operations for cart lines.
type CartRepository interface {
	ItemCount(ctx context.Context, userID int) (int, error)
	Items(ctx context.Context, userID int) ([]types.CartItem, error)
	AddBook(ctx context.Context, userID, bookID int) error
	DecrementBook(ctx context.Context, userID, bookID int) error
	RemoveBook(ctx context.Context, userID, bookID int) error
	Clear(ctx context.Context, userID int) error
}

// BookRepository defines the catalog reads the cart needs.
type BookRepository interface {
	GetByID(ctx context.Context, id int) (types.Book, error)
}

// CartService encapsulates shopping cart use-cases.
type CartService struct {
	repo  CartRepository
	books BookRepository
}

func NewCartService(repo CartRepository, books BookRepository) *CartService {
	return &CartService{repo: repo, books: books}
}

// ItemCount returns the number of copies in the user's cart. Unknown and
// guest users have no cart rows and count as zero.
func (s *CartService) ItemCount(ctx context.Context, userID int) (int, error) {
	return s.repo.ItemCount(ctx, userID)
}

// Snapshot returns the committed cart state at read time.
func (s *CartService) Snapshot(ctx context.Context, userID int) ([]types.CartItem, error) {
	return s.repo.Items(ctx, userID)
}

// AddBook puts one copy of the book in the cart after confirming the book
// exists, and returns the new item count.
func (s *CartService) AddBook(ctx context.Context, userID, bookID int) (int, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return 0, err
	}
	if err := s.repo.AddBook(ctx, userID, bookID); err != nil {
		return 0, err
	}
	return s.repo.ItemCount(ctx, userID)
}

// RemoveOneCopy takes a single copy of the book out of the cart and returns
// the new item count.
func (s *CartService) RemoveOneCopy(ctx context.Context, userID, bookID int) (int, error) {
	if err := s.repo.DecrementBook(ctx, userID, bookID); err != nil {
		return 0, err
	}
	return s.repo.ItemCount(ctx, userID)
}

// RemoveBook drops the whole cart line for the book and returns the new
// item count.
func (s *CartService) RemoveBook(ctx context.Context, userID, bookID int) (int, error) {
	if err := s.repo.RemoveBook(ctx, userID, bookID); err != nil {
		return 0, err
	}
	return s.repo.ItemCount(ctx, userID)
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID int) error {
	return s.repo.Clear(ctx, userID)
}
