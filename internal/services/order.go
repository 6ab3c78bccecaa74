package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/bookcart/apiserver/internal/events"
	"github.com/bookcart/apiserver/types"
)

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	CreateFromCart(ctx context.Context, userID int) (types.Order, error)
	ListByUser(ctx context.Context, userID int) ([]types.Order, error)
}

// ReceiptStore archives order receipts in object storage and reads them
// back for support lookups.
type ReceiptStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ErrReceiptUnavailable is returned when no receipt can be produced for an
// order, either because the archive is disabled or because the object is
// missing.
var ErrReceiptUnavailable = errors.New("receipt unavailable")

// OrderService encapsulates checkout and order history use-cases.
//
// Publisher and receipts are optional; when nil the corresponding step is
// skipped. Both run after the checkout transaction has committed and are
// best effort: a failure is logged but the order stands.
type OrderService struct {
	repo      OrderRepository
	publisher events.Publisher
	receipts  ReceiptStore
}

func NewOrderService(repo OrderRepository, publisher events.Publisher, receipts ReceiptStore) *OrderService {
	return &OrderService{repo: repo, publisher: publisher, receipts: receipts}
}

// Checkout converts the user's cart into an immutable order. An empty cart
// yields store.ErrEmptyCart and creates nothing. The price snapshot, the
// server-computed total, the order rows and the cart deletion all commit or
// roll back together inside the repository transaction.
func (s *OrderService) Checkout(ctx context.Context, userID int) (types.Order, error) {
	order, err := s.repo.CreateFromCart(ctx, userID)
	if err != nil {
		return types.Order{}, err
	}

	if s.publisher != nil {
		event := events.OrderPlaced{
			OrderID:    order.ID,
			UserID:     order.UserID,
			TotalCents: order.TotalCents,
			OrderedAt:  order.OrderedAt,
		}
		if _, err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
			log.Printf("order %d: publish order-placed event: %v", order.ID, err)
		}
	}

	if s.receipts != nil {
		if err := s.archiveReceipt(ctx, order); err != nil {
			log.Printf("order %d: archive receipt: %v", order.ID, err)
		}
	}

	return order, nil
}

// ListOrders returns the user's order history, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID int) ([]types.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Receipt opens the archived receipt for one of the user's orders. The
// caller owns the returned reader.
func (s *OrderService) Receipt(ctx context.Context, userID, orderID int) (io.ReadCloser, error) {
	if s.receipts == nil {
		return nil, ErrReceiptUnavailable
	}
	rc, err := s.receipts.Get(ctx, receiptKey(userID, orderID))
	if err != nil {
		log.Printf("order %d: read receipt: %v", orderID, err)
		return nil, ErrReceiptUnavailable
	}
	return rc, nil
}

func (s *OrderService) archiveReceipt(ctx context.Context, order types.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	key := receiptKey(order.UserID, order.ID)
	return s.receipts.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json")
}

func receiptKey(userID, orderID int) string {
	return fmt.Sprintf("receipts/%d/order-%d.json", userID, orderID)
}
